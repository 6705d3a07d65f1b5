package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nomoreanxious/calibra/internal/api/handlers"
	mw "github.com/nomoreanxious/calibra/internal/api/middleware"
	"github.com/nomoreanxious/calibra/internal/config"
	"github.com/nomoreanxious/calibra/internal/domain"
	"github.com/nomoreanxious/calibra/internal/literature"
	"github.com/nomoreanxious/calibra/internal/service"
	"github.com/nomoreanxious/calibra/internal/store"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router  *chi.Mux
	Refresh *service.RefreshDispatcher

	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	userStore := store.NewUserStore(db)
	beliefStore := store.NewBeliefSessionStore(db)
	inquiryStore := store.NewInquiryStore(db)

	// Literature providers
	providers := []domain.LiteratureProvider{
		literature.NewSemanticScholarClient(config.SemanticScholarAPIBase(), config.SemanticScholarAPIKey()),
		literature.NewPubMedClient(config.PubMedAPIBase()),
	}

	// Services
	gate := service.NewRelevanceGate()
	aggregatorCfg := service.DefaultAggregatorConfig()
	aggregatorCfg.PerProviderTimeout = config.SearchProviderTimeout()
	aggregatorCfg.TopK = config.SearchTopK()
	aggregatorCfg.CacheTTL = config.EvidenceCacheTTL()
	aggregator := service.NewEvidenceAggregator(providers, aggregatorCfg, logger)
	beliefSvc := service.NewBeliefService(beliefStore, aggregator, gate, logger)
	refresh := service.NewRefreshDispatcher(func(ctx context.Context, task service.RefreshTask) error {
		// The session list is the cheapest user-scoped read; it verifies the
		// store is reachable and warms the connection after a data change.
		_, err := beliefStore.ListByUser(ctx, task.UserID)
		return err
	}, logger)
	inquirySvc := service.NewInquiryService(inquiryStore, gate, refresh, logger)

	// Handlers
	userHandler := handlers.NewUserHandler(userStore)
	beliefHandler := handlers.NewBeliefHandler(beliefSvc)
	searchHandler := handlers.NewSearchHandler(aggregator, gate)
	inquiryHandler := handlers.NewInquiryHandler(inquirySvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Refresh:   refresh,
		startTime: time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health (no auth)
	r.Get("/health", healthHandler(db))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// User creation (no auth, bootstrap endpoint)
	r.Post("/v1/users", userHandler.Create)

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(userStore))

		r.Route("/beliefs", func(r chi.Router) {
			r.Post("/calibrate", beliefHandler.Calibrate)
			r.Get("/", beliefHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", beliefHandler.GetByID)
				r.Post("/evidence", beliefHandler.AppendEvidence)
			})
		})

		r.Get("/search", searchHandler.Search)

		r.Route("/inquiries", func(r chi.Router) {
			r.Post("/next", inquiryHandler.Next)
			r.Post("/{id}/response", inquiryHandler.Respond)
		})
	})

	return app
}

// NewRouter returns just the chi.Mux.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and providers satisfy interfaces at compile time.
var (
	_ domain.UserStore          = (*store.UserStore)(nil)
	_ domain.BeliefSessionStore = (*store.BeliefSessionStore)(nil)
	_ domain.InquiryStore       = (*store.InquiryStore)(nil)
	_ domain.LiteratureProvider = (*literature.SemanticScholarClient)(nil)
	_ domain.LiteratureProvider = (*literature.PubMedClient)(nil)
	_ domain.LiteratureProvider = (*literature.MockProvider)(nil)
)
