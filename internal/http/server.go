// Package http exposes the finance service as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"financeflow/internal/core"
	applog "financeflow/internal/log"
	"financeflow/internal/middleware/ratelimit"
	"financeflow/internal/middleware/security"
	"financeflow/internal/middleware/trace"
	"financeflow/internal/services"

	"github.com/gorilla/mux"
)

type Server struct {
	http.Server
	svc   *services.FinanceService
	ready func(context.Context) error

	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

// Options configures NewServer. Zero values fall back to defaults.
type Options struct {
	Addr               string
	Logger             *applog.Logger
	RateLimitPerMinute int
	// Ready backs /readyz; nil means always ready.
	Ready func(context.Context) error
}

// NewServer builds the router and middleware chain around svc.
func NewServer(svc *services.FinanceService, opts Options) *Server {
	s := &Server{
		svc:      svc,
		ready:    opts.Ready,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	router.HandleFunc("/api/bills/upcoming", s.handleUpcomingBills).Methods(http.MethodGet)
	router.HandleFunc("/api/bills/{id:[0-9]+}/pay", s.handlePayBill).Methods(http.MethodPost)
	router.HandleFunc("/api/goals/{id:[0-9]+}/contributions", s.handleContribute).Methods(http.MethodPost)

	router.HandleFunc("/api/analytics/dashboard", s.handleDashboard).Methods(http.MethodGet)
	router.HandleFunc("/api/analytics/trend", s.handleTrend).Methods(http.MethodGet)
	router.HandleFunc("/api/analytics/categories", s.handleCategories).Methods(http.MethodGet)
	router.HandleFunc("/api/analytics/top-categories", s.handleTopCategories).Methods(http.MethodGet)
	router.HandleFunc("/api/analytics/budgets", s.handleBudgets).Methods(http.MethodGet)

	router.HandleFunc("/api/testimonials", s.handleTestimonials).Methods(http.MethodGet)
	router.HandleFunc("/api/testimonials/{id:[0-9]+}", s.handleTestimonial).Methods(http.MethodGet)

	(&collection[core.Account]{records: svc.Accounts}).mount(router)
	(&collection[core.Transaction]{records: svc.Transactions, list: s.listTransactions}).mount(router)
	(&collection[core.Budget]{records: svc.Budgets}).mount(router)
	(&collection[core.Bill]{records: svc.Bills, list: s.listBills, view: s.billView}).mount(router)
	(&collection[core.Goal]{records: svc.Goals, list: s.listGoals, view: s.goalView}).mount(router)

	// Outermost first: every response, including 404s and 429s, gets an id
	// and the hardening headers.
	var handler http.Handler = router
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, rateLimited)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Shutdown stops the background limiter cleanup and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		m := s.tracer.GetMetrics()
		applog.FromContext(ctx).WithComponent(applog.ComponentHTTP).InfoContext(ctx, "HTTP server stopping",
			"total_requests", m.TotalRequests,
			"avg_response_us", m.AverageResponseTime,
			"rate_limited", s.limiter.GetMetrics().Rejected,
			"suspicious_requests", s.detector.GetMetrics().SuspiciousRequests)
		err = s.Server.Shutdown(ctx)
	})
	return err
}
