// Package http serves the newsletter HTTP API.
package http

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fyrsmithlabs/newsletter/internal/config"
	"github.com/fyrsmithlabs/newsletter/internal/storage"
	"github.com/fyrsmithlabs/newsletter/internal/task"
	"github.com/fyrsmithlabs/newsletter/internal/tracing"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Target is the tracing target of request spans.
const Target = "newsletter.http"

// SubscriptionStore persists new subscribers.
type SubscriptionStore interface {
	InsertSubscriptionTask(sub *storage.Subscription) task.Task
}

// Runner runs a task to completion.
type Runner interface {
	Run(ctx context.Context, t task.Task) error
}

// Server provides the newsletter HTTP endpoints.
type Server struct {
	echo     *echo.Echo
	store    SubscriptionStore
	runner   Runner
	logger   *zap.Logger
	config   *Config
	dispatch *tracing.Dispatch
	metrics  *HTTPMetrics
	gatherer prometheus.Gatherer

	mu       sync.Mutex
	listener net.Listener
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// SubscribeRateLimit is requests per second per client on
	// POST /subscriptions. Zero disables limiting.
	SubscribeRateLimit float64
}

// ConfigFromSettings maps loaded settings onto a Config.
func ConfigFromSettings(s config.ApplicationSettings) *Config {
	return &Config{
		Host:               s.Host,
		Port:               int(s.Port),
		SubscribeRateLimit: s.SubscribeRateLimit,
	}
}

// Option configures a Server.
type Option func(*Server)

// WithDispatch scopes request spans to d instead of the global dispatch.
func WithDispatch(d *tracing.Dispatch) Option {
	return func(s *Server) { s.dispatch = d }
}

// WithMetrics records request metrics through m.
func WithMetrics(m *HTTPMetrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithGatherer serves g on GET /metrics instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// NewServer creates a new HTTP server.
func NewServer(store SubscriptionStore, runner Runner, logger *zap.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "127.0.0.1",
			Port: 8000,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &formValidator{validate: validator.New(validator.WithRequiredStructEnabled())}

	s := &Server{
		echo:     e,
		store:    store,
		runner:   runner,
		logger:   logger,
		config:   cfg,
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(s.traceRequests)
	if s.metrics != nil {
		e.Use(s.metrics.MetricsMiddleware())
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health_check", s.handleHealthCheck)
	s.echo.POST("/subscriptions", s.handleSubscribe, s.subscribeLimiter()...)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
}

func (s *Server) subscribeLimiter() []echo.MiddlewareFunc {
	limit := s.config.SubscribeRateLimit
	if limit <= 0 {
		return nil
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(limit),
		Burst:     int(math.Max(1, math.Ceil(limit))),
		ExpiresIn: 3 * time.Minute,
	})
	return []echo.MiddlewareFunc{middleware.RateLimiter(store)}
}

// traceRequests gives every request its own unit and a root span that is
// current for the whole handler.
func (s *Server) traceRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		d := s.dispatch
		if d == nil {
			d = tracing.Global()
		}
		unit := tracing.NewUnit()
		ctx := tracing.ContextWithUnit(tracing.ContextWithDispatch(req.Context(), d), unit)

		span := tracing.OpenSpan(ctx, "HTTP request",
			tracing.WithParent(nil),
			tracing.WithTarget(Target),
			tracing.WithFields(
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.String("http.method", req.Method),
				zap.String("http.route", c.Path()),
			),
		)
		c.SetRequest(req.WithContext(ctx))

		g := span.Enter(unit)
		defer span.Close()
		defer g.Exit()
		if err := next(c); err != nil {
			c.Error(err)
		}
		span.Record(zap.Int("http.status_code", c.Response().Status))
		return nil
	}
}

// handleHealthCheck answers 200 with an empty body.
func (s *Server) handleHealthCheck(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// Start binds the configured address and serves until Shutdown.
func (s *Server) Start() error {
	if _, err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Listen binds the configured address. Port 0 picks a free port; Addr
// reports the one bound.
func (s *Server) Listen() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr(), nil
	}
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.echo.Listener = ln
	return ln.Addr(), nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve serves on the bound listener. It returns nil after Shutdown.
func (s *Server) Serve() error {
	addr := s.Addr()
	if addr == nil {
		return fmt.Errorf("server is not listening")
	}
	s.logger.Info("starting http server", zap.String("addr", addr.String()))
	if err := s.echo.Start(addr.String()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler { return s.echo }
