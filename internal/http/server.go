// Package http exposes the ledger, debt, budget, import, analytics and export
// engines as a JSON API.
package http

import (
	"context"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/budget"
	"fintrack/internal/cache"
	"fintrack/internal/csvimport"
	"fintrack/internal/debt"
	"fintrack/internal/export"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
)

// Deps are the engines the API serves.
type Deps struct {
	Ledger   *ledger.Service
	Debts    *debt.Service
	Budgets  *budget.Service
	Importer *csvimport.Importer
	Exporter *export.Exporter
}

type Options struct {
	Logger         *log.Logger
	RateLimit      int            // requests per minute per owner, 0 disables
	TrustedProxies []netip.Prefix // loopback and private ranges when empty
	RequestTimeout time.Duration  // per-request deadline, 30s when zero
	Now            func() time.Time
}

type Server struct {
	http.Server
	deps     Deps
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector
	caches   *cache.Manager
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	s := &Server{
		deps:     deps,
		logger:   opts.Logger.WithComponent(log.ComponentHTTP),
		detector: security.NewDetector(opts.Logger, opts.TrustedProxies...),
		caches:   cache.NewManager(opts.Logger),
		now:      opts.Now,
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)
	if opts.RateLimit > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{Requests: opts.RateLimit})
		s.caches.Register(s.limiter)
	}
	if deps.Importer != nil {
		s.caches.Register(deps.Importer.Previews())
	}
	s.caches.StartCleanup(5 * time.Minute)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(opts.RequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)
	r.Get("/statusz", s.handleStatus)

	r.Route("/api", func(r chi.Router) {
		r.Use(requireOwner)
		if s.limiter != nil {
			r.Use(s.limiter.Middleware(s.rateLimitKey, s.onRateLimit))
		}
		r.Use(middleware.Timeout(timeout))

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.handleListAccounts)
			r.Post("/", s.handleCreateAccount)
			r.Get("/{id}", s.handleGetAccount)
			r.Patch("/{id}", s.handleRenameAccount)
			r.Delete("/{id}", s.handleDeleteAccount)
			r.Put("/{id}/balance", s.handleSetBalance)
			r.Post("/{id}/adjustments", s.handleApplyDelta)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Get("/{id}", s.handleGetTransaction)
			r.Patch("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", s.handleListBudgets)
			r.Post("/", s.handleCreateBudget)
			r.Get("/report", s.handleBudgetReport)
			r.Get("/{id}", s.handleGetBudget)
			r.Patch("/{id}", s.handleUpdateBudget)
			r.Delete("/{id}", s.handleDeleteBudget)
		})

		r.Route("/people", func(r chi.Router) {
			r.Get("/", s.handleListPeople)
			r.Post("/", s.handleCreatePerson)
			r.Delete("/{id}", s.handleRemovePerson)
		})

		r.Route("/debts", func(r chi.Router) {
			r.Get("/", s.handleListDebts)
			r.Post("/", s.handleCreateDebt)
			r.Get("/summary", s.handleDebtSummary)
			r.Post("/{id}/paid", s.handleMarkPaid)
			r.Delete("/{id}", s.handleRemoveDebt)
		})

		r.Route("/imports", func(r chi.Router) {
			r.Post("/", s.handleImport)
			r.Post("/preview", s.handleImportPreview)
			r.Post("/{id}/commit", s.handleImportCommit)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/summary", s.handleSummary)
			r.Get("/categories", s.handleBreakdown)
			r.Get("/series", s.handleSeries)
		})

		r.Get("/export/json", s.handleExportJSON)
		r.Get("/export/csv", s.handleExportCSV)
	})

	return r
}

// rateLimitKey counts requests per owner.
func (s *Server) rateLimitKey(r *http.Request) string {
	return session(r).Owner
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldOwner, session(r).Owner,
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded. Please try again later.")
}

// Shutdown stops the cache sweeper, then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type statusResponse struct {
	Requests   trace.Metrics      `json:"requests"`
	RateLimit  *ratelimit.Metrics `json:"rateLimit,omitempty"`
	Suspicious int64              `json:"suspiciousRequests"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Requests:   s.tracer.GetMetrics(),
		Suspicious: s.detector.GetMetrics().SuspiciousRequests,
	}
	if s.limiter != nil {
		m := s.limiter.GetMetrics()
		resp.RateLimit = &m
	}
	writeJSON(w, http.StatusOK, resp)
}
