package checkout

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

const (
	RejectReasonInvalidAmount = "invalid_amount"
	RejectReasonOutOfStock    = "out_of_stock"
)
