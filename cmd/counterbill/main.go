package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/counterbill/counterbill/internal/config"
	"github.com/counterbill/counterbill/internal/health"
	"github.com/counterbill/counterbill/internal/invoice"
	"github.com/counterbill/counterbill/internal/obs"
	"github.com/counterbill/counterbill/internal/security"
	"github.com/counterbill/counterbill/internal/session"
	"github.com/counterbill/counterbill/internal/shell"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("service", "counterbill").Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "counterbill")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var printer session.Printer
	if cfg.PDFEnabled {
		printer = &invoice.Printer{ChromePath: cfg.ChromePath}
	}

	sess, err := session.New(session.Config{
		CatalogPath:    cfg.CatalogPath,
		InvoicesDir:    cfg.InvoicesDir,
		ExportsDir:     cfg.ExportsDir,
		DefaultTaxRate: cfg.DefaultTaxRate,
		Printer:        printer,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise billing session")
	}

	handler := shell.NewHandler(sess, logger)

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true}.Middleware)
	r.Use(security.LocalOrigin{Addr: cfg.ListenAddr}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		r.Mount("/debug/pprof", newPprofMux())
	}

	healthHandler := health.Handler{
		Checker: health.StoreChecker{CatalogPath: cfg.CatalogPath, InvoicesDir: cfg.InvoicesDir},
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Get("/", handler.Home)
	r.Get("/invoices/{number}", handler.PreviewInvoice)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/state", handler.State)
		v.Put("/session", handler.UpdateSession)

		v.Route("/cart", func(c chi.Router) {
			c.Post("/items", handler.AddItem)
			c.Delete("/items/{code}", handler.RemoveItem)
			c.Post("/clear", handler.ClearCart)
			c.Get("/export", handler.ExportCart)
			c.Post("/export", handler.ExportCartFile)
		})

		v.Route("/invoices", func(i chi.Router) {
			i.Get("/", handler.ListInvoices)
			i.Post("/", handler.GenerateInvoice)
			i.Post("/{number}/pdf", handler.PrintInvoicePDF)
		})

		v.Post("/catalog/reload", handler.ReloadCatalog)
	})

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if cfg.OpenBrowser {
		go func() {
			time.Sleep(300 * time.Millisecond)
			if err := browser.OpenURL("http://" + cfg.ListenAddr); err != nil {
				logger.Warn().Err(err).Msg("open browser")
			}
		}()
	}

	select {
	case err := <-errCh:
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown http server")
	}
	logger.Info().Msg("shutdown complete")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}
