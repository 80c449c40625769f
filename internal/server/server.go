// Package server exposes schema metadata and read-only table rows over HTTP,
// in the shape the transport, metaclient and crud packages consume:
//
//	GET /healthz
//	GET /meta/schemas
//	GET /meta/schemas/{schema}[?refresh=true]
//	GET /api/{schema}/{table}[?limit=&offset=&order_by=&order_dir=&<column>=<value>]
//	GET /api/{schema}/{table}/{id}
//
// Errors are rendered as {"error":{"kind","message"}} with the status
// errs.HTTPStatus picks for the kind.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/koustreak/datrigen/internal/database"
	"github.com/koustreak/datrigen/internal/errs"
	"github.com/koustreak/datrigen/internal/logger"
	"github.com/koustreak/datrigen/internal/schema"
)

// Config holds the server settings.
type Config struct {
	Addr            string        `yaml:"addr"`
	DefaultLimit    int           `yaml:"default_limit"`    // rows per page when limit is omitted
	MaxLimit        int           `yaml:"max_limit"`        // largest accepted limit
	QueryTimeout    time.Duration `yaml:"query_timeout"`    // per-request database deadline
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // http.Server ReadHeaderTimeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // grace period for in-flight requests
}

// DefaultConfig returns settings for a local metadata service.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		DefaultLimit:    100,
		MaxLimit:        1000,
		QueryTimeout:    30 * time.Second,
		ReadTimeout:     10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return errs.New(errs.ErrKindInvalidInput, "server address is required")
	case c.MaxLimit <= 0:
		return errs.New(errs.ErrKindInvalidInput, "server max_limit must be positive")
	case c.DefaultLimit <= 0 || c.DefaultLimit > c.MaxLimit:
		return errs.New(errs.ErrKindInvalidInput, "server default_limit must be between 1 and max_limit")
	}
	return nil
}

// Server answers metadata and row requests from a schema.Reader and a
// database.DB. Inspected schemas are cached until refreshed.
type Server struct {
	cfg    Config
	reader schema.Reader
	db     database.DB
	log    *logger.Logger

	mu    sync.RWMutex
	cache map[string]*schema.SchemaInfo
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for the access log and failures.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a Server. db may be nil, in which case only the metadata
// routes answer successfully.
func New(cfg Config, reader schema.Reader, db database.DB, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		reader: reader,
		db:     db,
		log:    logger.L().Component("server"),
		cache:  make(map[string]*schema.SchemaInfo),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errs.New(errs.ErrKindNotFound, "no route for "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeErrorStatus(w, r, http.StatusMethodNotAllowed,
			errs.New(errs.ErrKindInvalidInput, "method "+r.Method+" not allowed"))
	})

	r.Get("/healthz", s.handleHealth)

	r.Route("/meta/schemas", func(r chi.Router) {
		r.Get("/", s.handleListSchemas)
		r.Get("/{schema}", s.handleInspectSchema)
	})

	r.Route("/api/{schema}/{table}", func(r chi.Router) {
		r.Get("/", s.handleListRows)
		r.Get("/{id}", s.handleGetRow)
	})

	return r
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errs.Wrap(errs.ErrKindConnectionFailed, "failed to listen on "+s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		BaseContext:       func(net.Listener) context.Context { return s.log.WithContext(context.Background()) },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.InfoWith("server listening", map[string]interface{}{"addr": ln.Addr().String()})
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errs.Wrap(errs.ErrKindConnectionFailed, "server failed", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx := context.Background()
		if s.cfg.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.cfg.ShutdownTimeout)
			defer cancel()
		}
		s.log.Info("server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(errs.ErrKindTimeout, "server shutdown timed out", err)
		}
		return nil
	})
	return g.Wait()
}

// accessLog writes one line per request and puts a request-scoped logger
// into the context.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		reqLog := s.log.With().Str("request_id", reqID).Logger()
		w.Header().Set(middleware.RequestIDHeader, reqID)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(reqLog.WithContext(r.Context())))

		s.log.HTTPEvent().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// schema returns the cached schema called name, inspecting it on a miss
// or when refresh is set.
func (s *Server) schema(ctx context.Context, name string, refresh bool) (*schema.SchemaInfo, error) {
	if !refresh {
		s.mu.RLock()
		info, ok := s.cache[name]
		s.mu.RUnlock()
		if ok {
			return info, nil
		}
	}

	info, err := s.reader.InspectSchema(ctx, name)
	if err != nil {
		return nil, err
	}
	if info.Name == "" {
		info.Name = name
	}

	s.mu.Lock()
	s.cache[name] = info
	s.mu.Unlock()
	return info, nil
}
