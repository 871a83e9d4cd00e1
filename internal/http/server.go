package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"expensemanager/internal/cache"
	"expensemanager/internal/core"
	"expensemanager/internal/log"
	"expensemanager/internal/middleware/ratelimit"
	"expensemanager/internal/middleware/security"
	"expensemanager/internal/middleware/trace"
	"expensemanager/internal/services"
	appweb "expensemanager/web"
)

const (
	statsCacheSize     = 16
	statsCacheTTL      = 10 * time.Minute
	cacheCleanInterval = 5 * time.Minute
	staticMaxAge       = 3600
)

// Options configures the HTTP server.
type Options struct {
	Addr               string
	CurrencySymbol     string
	RateLimitPerMinute int
	Logger             *log.Logger

	// Templates and Static default to the embedded web assets.
	Templates fs.FS
	Static    fs.FS
}

// Server serves the entry form, the expense table and the statistics panel.
type Server struct {
	http.Server
	svc       *services.ExpenseService
	templates *template.Template
	currency  string
	logger    *log.Logger

	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	// Rendered statistics keyed by ledger revision.
	statsCache *cache.LRUCache[uint64, statisticsView]
	caches     *cache.Manager

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(opts Options, svc *services.ExpenseService) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = "₹"
	}
	if opts.Templates == nil {
		opts.Templates = appweb.TemplatesFS
	}
	if opts.Static == nil {
		sub, err := fs.Sub(appweb.StaticFS, "static")
		if err != nil {
			return nil, fmt.Errorf("mount static assets: %w", err)
		}
		opts.Static = sub
	}

	t, err := template.ParseFS(opts.Templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		svc:        svc,
		templates:  t,
		currency:   opts.CurrencySymbol,
		logger:     logger,
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:     trace.NewMiddleware(opts.Logger, security.ClientIP),
		statsCache: cache.NewLRUCache[uint64, statisticsView](statsCacheSize, statsCacheTTL),
		caches:     cache.NewManager(),
		started:    time.Now(),
	}
	s.caches.Register(s.statsCache)

	mux := http.NewServeMux()

	static := http.StripPrefix("/static/", http.FileServer(http.FS(opts.Static)))
	mux.Handle("/static/", security.StaticAssetMiddleware(staticMaxAge)(static))

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/expenses", s.handleCreateExpense)
	mux.HandleFunc("/expenses/delete", s.handleDeleteExpense)
	mux.HandleFunc("/ui/expenses", s.handleExpenseTable)
	mux.HandleFunc("/ui/statistics", s.handleStatistics)
	mux.HandleFunc("/api/expenses", s.handleAPIExpenses)
	mux.HandleFunc("/api/statistics", s.handleAPIStatistics)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(security.ClientIP, s.rateLimited, http.MethodPost, http.MethodDelete)(handler)
	handler = security.SameOrigin(s.crossOriginRejected)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// StartBackground launches the rate limiter and cache cleanup loops. They
// stop when ctx ends or the server shuts down.
func (s *Server) StartBackground(ctx context.Context) {
	go s.limiter.Run(ctx)
	s.caches.StartCleanup(ctx, cacheCleanInterval)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "HTTP server shutting down", log.FieldOperation, log.OpShutdown)
		s.caches.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// statistics returns the rendered statistics for the current revision,
// computing them at most once per revision.
func (s *Server) statistics(ctx context.Context) (statisticsView, uint64) {
	items, revision := s.svc.Snapshot(ctx)
	if view, ok := s.statsCache.Get(revision); ok {
		return view, revision
	}
	view := buildStatisticsView(core.Summarize(items), s.currency)
	s.statsCache.Set(revision, view)
	return view, revision
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Template execution failed", err,
			log.ComponentTemplate, log.OpRender,
			log.NewFields().WithErrorType(log.ErrorTypeInternal).With("template", name))
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
	}
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, security.ClientIP(r),
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests, please slow down").
		TriggerErrorNotification("Too many requests, please slow down").
		Write(w)
}

func (s *Server) crossOriginRejected(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(), "Cross-origin request rejected",
		"origin", r.Header.Get("Origin"),
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusForbidden, "Cross-origin request rejected").Write(w)
}
