package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"finance/internal/auth"
	"finance/internal/cache"
	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/middleware/ratelimit"
	"finance/internal/middleware/security"
	"finance/internal/middleware/trace"
	"finance/internal/services"
	"finance/internal/sheets"
	"finance/internal/summary"
)

// Store is the account and category storage plus a liveness check.
type Store interface {
	Ping(ctx context.Context) error

	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	GetAccount(ctx context.Context, userID, id string) (core.Account, error)
	CreateAccount(ctx context.Context, userID, name string) (core.Account, error)
	UpdateAccount(ctx context.Context, userID, id, name string) (core.Account, error)
	DeleteAccount(ctx context.Context, userID, id string) error
	BulkDeleteAccounts(ctx context.Context, userID string, ids []string) ([]string, error)

	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	GetCategory(ctx context.Context, userID, id string) (core.Category, error)
	CreateCategory(ctx context.Context, userID, name string) (core.Category, error)
	UpdateCategory(ctx context.Context, userID, id, name string) (core.Category, error)
	DeleteCategory(ctx context.Context, userID, id string) error
	BulkDeleteCategories(ctx context.Context, userID string, ids []string) ([]string, error)
}

// Deps are the components the handlers call into.
type Deps struct {
	Store        Store
	Transactions *services.TransactionService
	Imports      *services.ImportService
	Summary      *summary.Service
	Auth         auth.Provider
	// Sheets enables sheet range previews. Nil disables them.
	Sheets sheets.GridReader
	// SummaryCache, when set, is swept periodically and reported in /metrics.
	SummaryCache *cache.LRUCache[summary.Summary]
}

// Options tune the request guards.
type Options struct {
	RateLimitPerMinute int
	MaxBodyBytes       int64
	TrustedProxies     []string
}

type appMetrics struct {
	started             time.Time
	transactionsCreated atomic.Int64
	importsTotal        atomic.Int64
	importsFailed       atomic.Int64
}

type Server struct {
	http.Server
	deps   Deps
	opts   Options
	logger *log.Logger
	now    func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	metrics  *appMetrics
	caches   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires the middleware chain and the routes.
func NewServer(addr string, deps Deps, opts Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, log.FieldError, err)
		}
	}

	s := &Server{
		deps:     deps,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: detector,
		metrics:  &appMetrics{started: time.Now()},
	}
	s.tracer = trace.NewMiddleware(logger, detector.ExtractClientIP)
	s.caches = cache.NewManager(func(removed int) {
		logger.Debug("Swept expired cache entries", "removed", removed)
	})
	if deps.SummaryCache != nil {
		s.caches.Register(deps.SummaryCache)
		s.caches.StartCleanup(time.Minute)
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.limitBody)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) { respondError(w, r, notFound()) })
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, &APIError{
			Status:      http.StatusMethodNotAllowed,
			ID:          "method-not-allowed-405",
			Message:     "Method Not Allowed",
			Details:     r.Method + " is not supported on " + r.URL.Path,
			Suggestions: []string{"Check the HTTP method against the API documentation."},
		})
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.IsMutation,
			func(w http.ResponseWriter, r *http.Request) { respondError(w, r, rateLimited()) }))
		r.Use(auth.Middleware(s.deps.Auth,
			func(w http.ResponseWriter, r *http.Request) { respondError(w, r, unauthorized()) }))
		r.Use(s.invalidateSummaries)

		r.Route("/accounts", namedRoutes(namedResource[core.Account]{
			list:       s.deps.Store.ListAccounts,
			get:        s.deps.Store.GetAccount,
			create:     s.deps.Store.CreateAccount,
			update:     s.deps.Store.UpdateAccount,
			delete:     s.deps.Store.DeleteAccount,
			bulkDelete: s.deps.Store.BulkDeleteAccounts,
		}))
		r.Route("/categories", namedRoutes(namedResource[core.Category]{
			list:       s.deps.Store.ListCategories,
			get:        s.deps.Store.GetCategory,
			create:     s.deps.Store.CreateCategory,
			update:     s.deps.Store.UpdateCategory,
			delete:     s.deps.Store.DeleteCategory,
			bulkDelete: s.deps.Store.BulkDeleteCategories,
		}))
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Post("/bulk-create", s.handleBulkCreateTransactions)
			r.Post("/bulk-delete", s.handleBulkDeleteTransactions)
			r.Post("/import/preview", s.handleImportPreview)
			r.Post("/import", s.handleImport)
			r.Get("/{id}", s.handleGetTransaction)
			r.Patch("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})
		r.Get("/summary", s.handleSummary)
	})

	return r
}

// limitBody caps request bodies at MaxBodyBytes.
func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.MaxBodyBytes > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// invalidateSummaries drops the caller's cached summaries once a mutating
// request has been handled.
func (s *Server) invalidateSummaries(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if ratelimit.IsMutation(r) {
			s.deps.Summary.Invalidate(userID(r))
		}
	})
}

// userID returns the authenticated user. Routes under /api always have one.
func userID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

// Shutdown stops the background sweepers and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.caches.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
