package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"presupuesto/internal/core"
	"presupuesto/internal/log"
	"presupuesto/internal/middleware/ratelimit"
	"presupuesto/internal/middleware/security"
	"presupuesto/internal/middleware/trace"
	"presupuesto/internal/services"
)

const readinessTimeout = 2 * time.Second

// Config tunes the server. Zero values fall back to defaults.
type Config struct {
	RateLimitPerMinute int
	// TrustedProxies are extra CIDRs whose forwarding headers are honored.
	TrustedProxies []string
	Logger         *log.Logger
}

type Server struct {
	http.Server
	budget   *services.BudgetService
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, budget *services.BudgetService, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	limiterCfg := ratelimit.DefaultConfig()
	if cfg.RateLimitPerMinute > 0 {
		limiterCfg.RequestsPerMinute = cfg.RateLimitPerMinute
	}

	detector := security.NewDetector()
	for _, cidr := range cfg.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err.Error())
		}
	}
	s := &Server{
		budget:   budget,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(limiterCfg),
		detector: detector,
		tracer:   trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)

	mux.HandleFunc("GET /api/calendar/{ym}", s.handleCalendar)
	mux.HandleFunc("GET /api/budget/{ym}", s.handleBudget)

	mux.HandleFunc("GET /api/sales", s.handleSalesHistory)
	mux.HandleFunc("GET /api/sales/{ym}", s.handleGetSales)
	mux.HandleFunc("PUT /api/sales/{ym}", s.handleSetSales)

	mux.HandleFunc("GET /api/commitments/{ym}", s.handleCommitmentCalendar)
	mux.HandleFunc("PATCH /api/commitments/{date}", s.handlePatchCommitment)

	mux.HandleFunc("GET /api/purchases/{ym}", s.handleListPurchases)
	mux.HandleFunc("POST /api/purchases", s.handleCreatePurchase)
	mux.HandleFunc("POST /api/purchases/suggest-category", s.handleSuggestCategory)
	mux.HandleFunc("DELETE /api/purchases/{id}", s.handleDeletePurchase)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(detector.ExtractClientIP, s.onRateLimited)(handler)
	handler = detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

// Shutdown stops the rate limiter and then the HTTP server. Safe to call twice.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)

		m := s.tracer.GetMetrics()
		d := s.detector.GetMetrics()
		s.logger.Info("HTTP server stopped",
			"total_requests", m.TotalRequests,
			"avg_response_us", m.AverageResponseTime,
			"suspicious_requests", d.SuspiciousRequests,
			"rate_limited", s.limiter.GetMetrics().TotalHits)
	})
	return shutdownErr
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	TooManyRequestsError("rate limit exceeded, please try again later").Write(w)
}

// monthFromPath resolves the {ym} path value; "current" maps to the current
// month in the settings timezone.
func (s *Server) monthFromPath(r *http.Request) (core.YearMonth, error) {
	return s.budget.ResolveYearMonth(r.Context(), r.PathValue("ym"))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := s.budget.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
		ServiceUnavailableError("store unavailable").Write(w)
		return
	}
	NewJSONResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}
