package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcheckout "github.com/gopherpay/checkout-engine/internal/application/checkout"
	"github.com/gopherpay/checkout-engine/internal/config"
	domplan "github.com/gopherpay/checkout-engine/internal/domain/plan"
	auditworker "github.com/gopherpay/checkout-engine/internal/infrastructure/audit/worker"
	"github.com/gopherpay/checkout-engine/internal/infrastructure/id"
	"github.com/gopherpay/checkout-engine/internal/infrastructure/memory"
	"github.com/gopherpay/checkout-engine/internal/infrastructure/observability/oteltrace"
	"github.com/gopherpay/checkout-engine/internal/infrastructure/observability/prometrics"
	"github.com/gopherpay/checkout-engine/internal/infrastructure/observability/telemetry"
	"github.com/gopherpay/checkout-engine/internal/infrastructure/observability/zaplogger"
	"github.com/gopherpay/checkout-engine/internal/infrastructure/outbox"
	"github.com/gopherpay/checkout-engine/internal/observability"
	httppresentation "github.com/gopherpay/checkout-engine/internal/presentation/http"
	"github.com/gopherpay/checkout-engine/internal/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	serviceName := getenvDefault("SERVICE_NAME", "checkout-engine")
	env := getenvDefault("ENV", "dev")
	baseZap := logging.MustNewLogger(serviceName, env)
	defer func() { _ = baseZap.Sync() }()
	zap.ReplaceGlobals(baseZap)

	cfg, err := config.Load()
	if err != nil {
		baseZap.Fatal("config_load_failed", zap.Error(err))
	}

	baseLogger := zaplogger.Wrap(baseZap)

	registry := prometrics.New("gopherpay", "checkout")
	counters := map[string]observability.Counter{
		observability.MHTTPRequests: registry.Counter(
			observability.MHTTPRequests, "Total number of HTTP requests.",
			"method", "route", "status",
		),
		observability.MCheckoutRequests: registry.Counter(
			observability.MCheckoutRequests, "Total number of checkout attempts.",
			"use_case", "outcome",
		),
		observability.MUnitsSold: registry.Counter(
			observability.MUnitsSold, "Units sold since process start.",
		),
		observability.MCheckoutsRejected: registry.Counter(
			observability.MCheckoutsRejected, "Checkouts rejected, by reason.",
			"reason",
		),
		observability.MStockResets: registry.Counter(
			observability.MStockResets, "Stock resets since process start.",
		),
	}
	histograms := map[string]observability.Histogram{
		observability.MHTTPRequestDuration: registry.Histogram(
			observability.MHTTPRequestDuration, "Duration of HTTP requests in seconds.",
			prometheus.DefBuckets,
			"method", "route", "status",
		),
		observability.MCheckoutDuration: registry.Histogram(
			observability.MCheckoutDuration, "Duration of checkout processing in seconds.",
			prometheus.DefBuckets,
			"use_case",
		),
		observability.MPlanInstallments: registry.Histogram(
			observability.MPlanInstallments, "Installment count per issued plan.",
			[]float64{1, 2, 3, 4, 6, 12},
		),
	}
	gauges := map[string]observability.Gauge{
		observability.MStockAvailable: registry.Gauge(
			observability.MStockAvailable, "Units currently available in stock.",
		),
	}

	tracer := oteltrace.New(serviceName)
	tel := telemetry.New(tracer, baseLogger, counters, histograms, gauges)

	// In-memory event bus carrying checkout events to background workers.
	bus := outbox.NewBus(baseLogger)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	stockLedger, err := memory.NewStockLedger(cfg.Inventory.InitialStock)
	if err != nil {
		baseZap.Fatal("ledger_init_failed", zap.Error(err))
	}

	planner, err := domplan.NewPlanner(plannerTiers(cfg.Installments.Tiers))
	if err != nil {
		baseZap.Fatal("planner_init_failed", zap.Error(err))
	}

	planStore := memory.NewPlanRepository()
	idGenerator := id.NewUUIDGenerator("plan_")

	checkoutService := appcheckout.NewService(
		stockLedger,
		planner,
		planStore,
		idGenerator,
		appcheckout.SystemClock{},
		bus,
		cfg.Inventory.InitialStock,
		tel,
	)

	auditWorker := auditworker.New(bus, stockLedger, tel)
	auditWorker.Start()

	handler := httppresentation.NewHandler(checkoutService, baseLogger, tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseZap.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.Int("initial_stock", cfg.Inventory.InitialStock),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseZap.Error("http_server_error",
				zap.Error(err),
			)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseZap.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		baseZap.Info("http_server_stopped")
	}
}

func plannerTiers(tiers []config.Tier) []domplan.Tier {
	out := make([]domplan.Tier, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, domplan.Tier{MinCents: t.MinCents, Count: t.Count})
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
