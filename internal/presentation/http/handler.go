package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	appcheckout "github.com/gopherpay/checkout-engine/internal/application/checkout"
	domcheckout "github.com/gopherpay/checkout-engine/internal/domain/checkout"
	domplan "github.com/gopherpay/checkout-engine/internal/domain/plan"
	"github.com/gopherpay/checkout-engine/internal/observability"
	"github.com/gopherpay/checkout-engine/internal/observability/logctx"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"

	apiPrefix   = "/api/v1"
	routeStock  = apiPrefix + "/stock"
	routeReset  = apiPrefix + "/stock/reset"
	routeBuy    = apiPrefix + "/checkout"
	routePlans  = apiPrefix + "/plans/"
	routeHealth = "/health"
)

type Handler struct {
	checkoutService *appcheckout.Service
	log             observability.Logger
	tel             observability.Telemetry
}

func NewHandler(checkoutSvc *appcheckout.Service, logger observability.Logger, tel observability.Telemetry) *Handler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = observability.NopLogger()
	}
	return &Handler{
		checkoutService: checkoutSvc,
		log:             baseLogger.With(observability.F("component", componentHTTPHandler)),
		tel:             tel,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Wire each route with middlewares:
	// Trace → ObservabilityMiddleware (request logger) → Access log → Handler
	h.muxHandle(mux, http.MethodGet, routeStock, h.handleGetStock)
	h.muxHandle(mux, http.MethodPost, routeBuy, h.handleCheckout)
	h.muxHandle(mux, http.MethodPost, routeReset, h.handleResetStock)
	h.muxHandle(mux, http.MethodGet, routePlans, h.handleGetPlan)
	h.muxHandle(mux, http.MethodGet, routeHealth, h.handleHealth)

	// The storefront client is a mobile app served from a different origin.
	return withCORS(mux)
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, route string, handler http.HandlerFunc) {
	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		// Store stable route template for low-cardinality labels
		ctx := contextWithRoute(r.Context(), route)
		r = r.WithContext(ctx)

		wrapped := h.withTrace(
			ObservabilityMiddleware(
				logctx.FromOr(ctx, h.log),
				func(r *http.Request) string {
					return r.Header.Get(headerRequestID)
				},
				h.tel,
			)(
				h.withAccessLog(http.HandlerFunc(handler)),
			),
		)
		wrapped.ServeHTTP(w, r)
	})
}

type checkoutRequest struct {
	TotalCents int64 `json:"total_cents"`
}

type installmentResponse struct {
	Sequence int       `json:"sequence"`
	Amount   int64     `json:"amount"`
	DueDate  time.Time `json:"due_date"`
}

type checkoutResponse struct {
	Status       domcheckout.Status    `json:"status"`
	Message      string                `json:"message"`
	PlanID       string                `json:"plan_id"`
	TotalAmount  int64                 `json:"total_amount,omitempty"`
	Installments []installmentResponse `json:"installments,omitempty"`
}

type stockResponse struct {
	Stock int `json:"stock"`
}

type resetResponse struct {
	Stock   int    `json:"stock"`
	Message string `json:"message"`
}

type planResponse struct {
	PlanID       string                `json:"plan_id"`
	TotalAmount  int64                 `json:"total_amount"`
	Installments []installmentResponse `json:"installments"`
}

func (h *Handler) handleGetStock(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stockResponse{
		Stock: h.checkoutService.Stock(r.Context()),
	})
}

// handleCheckout reports business outcomes, SUCCESS and FAILED alike, with
// HTTP 200 and the status field; the client switches on status, not on the
// transport code. Only an undecodable body earns a 400, still FAILED-shaped
// so the client never sees a response without plan_id.
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, checkoutResponse{
			Status:  domcheckout.StatusFailed,
			Message: "invalid request body: " + err.Error(),
		})
		return
	}

	result, err := h.checkoutService.Checkout(r.Context(), appcheckout.CheckoutInput{
		TotalCents: req.TotalCents,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, checkoutResponse{
			Status:  domcheckout.StatusFailed,
			Message: "internal error",
		})
		return
	}

	resp := checkoutResponse{
		Status:  result.Status,
		Message: result.Message,
		PlanID:  result.PlanID,
	}
	if result.Plan != nil {
		resp.TotalAmount = result.Plan.TotalCents
		resp.Installments = toInstallmentResponses(result.Plan.Installments)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleResetStock(w http.ResponseWriter, r *http.Request) {
	restored := h.checkoutService.ResetStock(r.Context())
	writeJSON(w, http.StatusOK, resetResponse{
		Stock:   restored,
		Message: "stock reset",
	})
}

func (h *Handler) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	planID := strings.TrimPrefix(r.URL.Path, routePlans)
	if planID == "" || strings.Contains(planID, "/") {
		writeError(w, http.StatusNotFound, domplan.ErrNotFound)
		return
	}

	p, err := h.checkoutService.Plan(r.Context(), planID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, planResponse{
		PlanID:       p.PlanID,
		TotalAmount:  p.TotalCents,
		Installments: toInstallmentResponses(p.Installments),
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func toInstallmentResponses(installments []domplan.Installment) []installmentResponse {
	out := make([]installmentResponse, 0, len(installments))
	for _, inst := range installments {
		out = append(out, installmentResponse{
			Sequence: inst.Sequence,
			Amount:   inst.Amount,
			DueDate:  inst.DueDate,
		})
	}
	return out
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("checkout-engine.http")
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		template := routeFromContext(parentCtx)
		if template == "unknown" || template == "" {
			template = r.URL.Path
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			r.Method+" "+template,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", template),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Length, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func decodeJSON(ctx context.Context, r *http.Request, dst any) error {
	_ = ctx
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domplan.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domplan.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
