package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
	appweb "ledger/web"
)

// Ledger is the state the handlers drive. *services.LedgerService implements it.
type Ledger interface {
	Submit(ctx context.Context, in core.EntryInput) (core.MonthlySummary, error)
	Clear(ctx context.Context) error
	Select(monthKey string) error
	View() services.LedgerView
	Ping(ctx context.Context) error
}

// Options tunes the server. Zero values take defaults.
type Options struct {
	Logger          *applog.Logger
	Metrics         *metrics.Metrics
	RateLimit       ratelimit.Config
	TrustedProxies  []string
	CleanupInterval time.Duration
}

// Server wraps http.Server with the ledger handlers and their middleware.
type Server struct {
	http.Server

	ledger    Ledger
	templates *template.Template
	logger    *applog.Logger
	logs      *applog.StructuredLogger
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
	caches    *cache.Manager
	cleanup   time.Duration
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer builds a server listening on addr. Templates are parsed up front.
func NewServer(addr string, ledger Ledger, opts Options) (*Server, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 5 * time.Minute
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	m := opts.Metrics

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	resolver := security.NewClientIPResolver()
	for _, cidr := range opts.TrustedProxies {
		if err := resolver.AddTrustedProxy(cidr); err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
	}

	rl := opts.RateLimit
	rl.OnLimit = m.IncRateLimited
	limiter := ratelimit.NewLimiter(rl)

	caches := cache.NewManager(opts.Logger.WithComponent(applog.ComponentCache))
	caches.Register(limiter.Cache())

	s := &Server{
		ledger:    ledger,
		templates: t,
		logger:    logger,
		logs:      applog.NewStructuredLogger(logger),
		metrics:   m,
		limiter:   limiter,
		caches:    caches,
		cleanup:   opts.CleanupInterval,
		started:   time.Now(),
	}

	mux := http.NewServeMux()

	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /entries", s.handleSubmit)
	mux.HandleFunc("POST /clear", s.handleClear)
	mux.HandleFunc("POST /months/select", s.handleSelect)
	mux.HandleFunc("GET /api/ledger", s.handleAPILedger)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", m.Handler())

	route := func(r *http.Request) string {
		if _, pattern := mux.Handler(r); pattern != "" {
			return pattern
		}
		return "unmatched"
	}

	var h http.Handler = mux
	h = limiter.Middleware(resolver.ClientIP, s.handleRateLimited, http.MethodPost)(h)
	h = applog.Middleware(logger, trace.GetRequestID)(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = trace.NewMiddleware(logger.WithComponent(applog.ComponentTrace), resolver.ClientIP, route, m).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// StartBackground launches periodic cache cleanup until ctx ends or Shutdown.
func (s *Server) StartBackground(ctx context.Context) {
	s.caches.Start(ctx, s.cleanup)
	go func() {
		ticker := time.NewTicker(s.cleanup)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.metrics.SetRateLimitClients(s.limiter.ActiveClients())
			}
		}
	}()
}

// Shutdown gracefully stops the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
