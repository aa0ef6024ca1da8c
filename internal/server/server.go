package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/conforma/remitos-api/internal/config"
	"github.com/conforma/remitos-api/internal/db"
	"github.com/conforma/remitos-api/internal/handlers"
	"github.com/conforma/remitos-api/internal/metrics"
	"github.com/conforma/remitos-api/internal/middleware"
	"github.com/conforma/remitos-api/internal/openapi"
	"github.com/conforma/remitos-api/internal/repos"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

type Server struct {
	cfg     config.Config
	db      *db.Manager
	mx      *metrics.Registry
	log     *slog.Logger
	rdb     *redis.Client
	limiter *middleware.Limiter
	started time.Time
}

// New wires the HTTP surface. rdb may be nil, in which case rate limiting
// is per process.
func New(cfg config.Config, mgr *db.Manager, mx *metrics.Registry, log *slog.Logger, rdb *redis.Client) *Server {
	if mx == nil {
		mx = metrics.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		db:      mgr,
		mx:      mx,
		log:     log,
		rdb:     rdb,
		started: time.Now(),
	}
}

func (s *Server) rateLimit() func(http.Handler) http.Handler {
	if s.rdb != nil {
		return middleware.NewRedisLimiter(s.rdb, s.cfg.Redis.Limit, s.cfg.Redis.Window, middleware.IPKey, s.cfg.MetricsAllowCIDR).Middleware
	}
	s.limiter = middleware.NewLimiter(rate.Limit(s.cfg.RateRPS), s.cfg.RateBurst, 5*time.Minute)
	return s.limiter.Middleware
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	r.Use(
		otelhttp.NewMiddleware("remitos-api"),
		middleware.RequestID,
		chimw.RealIP,
		middleware.SecurityHeaders,
		middleware.CORS(s.cfg.CorsOrigins),
		middleware.BodyLimit(s.cfg.MaxBodyBytes),
		middleware.RecoverJSON(s.log),
		s.mx.MW,
		s.rateLimit(),
		middleware.Logger(s.log),
	)

	hh := handlers.Health{DB: s.db, Started: s.started, Timeout: s.cfg.RequestTimeout}
	r.Get("/", hh.Root)
	r.Get("/ping", hh.Ping)
	r.Get("/healthz", hh.Live)
	r.Get("/readyz", hh.Ready)

	r.Group(func(gr chi.Router) {
		gr.Use(middleware.AllowCIDR(s.cfg.MetricsAllowCIDR))
		gr.Handle("/metrics", s.mx.Handler())
	})

	if !s.cfg.IsProduction() {
		r.Handle("/openapi.yaml", openapi.Spec())
		r.Handle("/docs", openapi.UI())
	}

	rh := handlers.Remitos{
		Store:    &repos.Remitos{Pool: s.db, Dialect: s.cfg.DB.Driver, Mx: s.mx},
		Timeout:  s.cfg.RequestTimeout,
		Server:   s.cfg.DB.Host,
		Database: s.cfg.DB.Name,
	}
	r.Route("/api", rh.Routes)

	return r
}

func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              "0.0.0.0:" + s.cfg.Port,
		Handler:           s.router(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}
}

// ListenAndServe binds the configured port and runs Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", "0.0.0.0:"+s.cfg.Port)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve handles requests on ln until ctx ends. Shutdown order: stop
// accepting, drain in-flight requests, then release the database pool.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := s.HTTPServer()
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	hkCtx, stopHK := context.WithCancel(ctx)
	defer stopHK()
	go s.housekeeping(hkCtx)

	s.log.Info("api_listening", slog.String("addr", ln.Addr().String()), slog.String("env", s.cfg.Env))

	select {
	case err := <-errCh:
		s.closeResources()
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutdown_started")
	sctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(sctx)
	if err != nil {
		s.log.Error("http_shutdown", slog.String("err", err.Error()))
	} else {
		s.log.Info("http_closed")
	}
	if serr := <-errCh; serr != nil && !errors.Is(serr, http.ErrServerClosed) && err == nil {
		err = serr
	}
	s.closeResources()
	return err
}

func (s *Server) closeResources() {
	if err := s.db.Close(); err != nil {
		s.log.Error("db_pool_close", slog.String("err", err.Error()))
	} else {
		s.log.Info("db_pool_closed")
	}
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
}

// housekeeping prunes idle limiter buckets and, in production, logs a
// periodic heartbeat so hosting platforms see the process as active.
func (s *Server) housekeeping(ctx context.Context) {
	cleanup := time.NewTicker(time.Minute)
	defer cleanup.Stop()

	var keepalive <-chan time.Time
	if s.cfg.KeepAliveInterval > 0 {
		t := time.NewTicker(s.cfg.KeepAliveInterval)
		defer t.Stop()
		keepalive = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanup.C:
			if s.limiter != nil {
				if n := s.limiter.Cleanup(); n > 0 {
					s.log.Debug("rate_limit_cleanup", slog.Int("dropped", n))
				}
			}
		case <-keepalive:
			s.log.Info("keepalive", slog.Duration("uptime", time.Since(s.started).Round(time.Second)))
		}
	}
}
