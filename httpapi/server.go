package httpapi

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/bufferstream/bufferstream"
	"github.com/kbukum/bufferstream/logger"
	"github.com/kbukum/bufferstream/observability"
	"github.com/kbukum/bufferstream/transform"
)

// Server exposes transform chains over HTTP. Gin handles routing. Without
// TLS the handler is wrapped with h2c so HTTP/2 clients still work.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     Config
	log        *logger.Logger

	service    string
	registry   *transform.Registry
	chains     map[string]string
	stageOpts  []bufferstream.Option
	metrics    *observability.StageMetrics
	maxBody    int64
	limit      *limiter
	listenAddr string
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry sets the transform registry. Defaults to transform.Default.
func WithRegistry(r *transform.Registry) Option {
	return func(s *Server) { s.registry = r }
}

// WithChains registers named chain specs usable as ?chain=<name>.
func WithChains(chains map[string]string) Option {
	return func(s *Server) { s.chains = chains }
}

// WithStageOptions applies opts to every stage the server builds.
func WithStageOptions(opts ...bufferstream.Option) Option {
	return func(s *Server) { s.stageOpts = append(s.stageOpts, opts...) }
}

// WithMetrics records stage instruments on m.
func WithMetrics(m *observability.StageMetrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithServiceName sets the name reported by /health.
func WithServiceName(name string) Option {
	return func(s *Server) { s.service = name }
}

// New creates a Server with middleware and routes registered.
// cfg should have ApplyDefaults called already.
func New(cfg Config, log *logger.Logger, opts ...Option) (*Server, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	maxBody, err := ParseSize(cfg.MaxBodySize)
	if err != nil {
		return nil, fmt.Errorf("server.max_body_size: %w", err)
	}

	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine:   gin.New(),
		config:   cfg,
		log:      log.WithComponent("httpapi"),
		service:  "bufferstream",
		registry: transform.Default,
		maxBody:  maxBody,
		limit:    newLimiter(cfg.MaxConcurrent, seconds(cfg.QueueTimeout)),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine.Use(Recovery(s.log), RequestID(), BodySizeLimit(s.maxBody), RequestLogger(s.log))
	s.routes()

	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          seconds(cfg.IdleTimeout),
	}
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	var handler http.Handler = s.engine
	if tlsCfg == nil {
		handler = h2c.NewHandler(s.engine, h2s)
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		TLSConfig:    tlsCfg,
		ReadTimeout:  seconds(cfg.ReadTimeout),
		WriteTimeout: seconds(cfg.WriteTimeout),
		IdleTimeout:  seconds(cfg.IdleTimeout),
	}
	if tlsCfg != nil {
		if err := http2.ConfigureServer(s.httpServer, h2s); err != nil {
			return nil, fmt.Errorf("server.tls: %w", err)
		}
	}
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/version", s.version)
	v1 := s.engine.Group("/v1")
	v1.GET("/transforms", s.listTransforms)
	v1.POST("/transform", s.limit.middleware(s.log), s.transform)
}

// Handler returns the root handler, h2c included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start binds the port and serves in a goroutine. It returns once the
// listener is bound.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.listenAddr = listener.Addr().String()
	if s.httpServer.TLSConfig != nil {
		listener = tls.NewListener(listener, s.httpServer.TLSConfig)
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.log.Error("Server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	s.log.Info("HTTP server started", logger.Fields("addr", s.listenAddr, "tls", s.httpServer.TLSConfig != nil))
	return nil
}

// Stop gracefully shuts down the server within the configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")

	timeout := seconds(s.config.ShutdownTimeout)
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	if s.listenAddr != "" {
		return s.listenAddr
	}
	return s.httpServer.Addr
}
