package observability

const (
	MHTTPRequests        = "http_requests_total"
	MHTTPRequestDuration = "http_request_duration_seconds"

	MCheckoutRequests = "checkout_requests_total"
	MCheckoutDuration = "checkout_duration_seconds"

	MUnitsSold         = "units_sold_total"
	MCheckoutsRejected = "checkouts_rejected_total"
	MStockAvailable    = "stock_available"
	MStockResets       = "stock_resets_total"
	MPlanInstallments  = "plan_installments"
)
