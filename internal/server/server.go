package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"ndcscan/internal"
	"ndcscan/internal/docai"
	"ndcscan/internal/pipeline"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	MaxBodyBytes     string
	MaxPDFPages      int
	CORSAllowOrigins []string
	HealthTimeout    time.Duration
}

type Server struct {
	echo       *echo.Echo
	analyzer   docai.Analyzer
	translator *pipeline.Translator
	db         Pinger
	opts       Options
	logger     *zap.Logger
}

func New(analyzer docai.Analyzer, translator *pipeline.Translator, db Pinger, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = 3 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:       e,
		analyzer:   analyzer,
		translator: translator,
		db:         db,
		opts:       opts,
		logger:     logger,
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Recover())
	e.Use(s.requestLogger())
	if len(opts.CORSAllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: opts.CORSAllowOrigins}))
	}
	if opts.MaxBodyBytes != "" {
		e.Use(middleware.BodyLimit(opts.MaxBodyBytes))
	}

	e.POST("/processDocument", s.processDocument)
	e.GET("/healthz", s.health)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("http server listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		HandleError:  true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info("request",
				zap.String("request_id", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	})
}

// handleError maps typed errors to status codes. Only validation messages
// reach the caller; everything else is logged and answered generically.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = c.String(he.Code, http.StatusText(he.Code))
		return
	}

	status := internal.HTTPStatus(err)
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	if status >= http.StatusInternalServerError {
		s.logger.Error("error processing document",
			zap.String("request_id", requestID),
			zap.String("kind", string(internal.KindOf(err))),
			zap.Error(err),
		)
	} else {
		s.logger.Info("request rejected", zap.String("request_id", requestID), zap.Error(err))
	}
	_ = c.String(status, internal.PublicMessage(err))
}

func (s *Server) health(c echo.Context) error {
	if s.db == nil {
		return c.String(http.StatusOK, "ok")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), s.opts.HealthTimeout)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		return c.String(http.StatusServiceUnavailable, "unavailable")
	}
	return c.String(http.StatusOK, "ok")
}
