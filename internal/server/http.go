package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/teemow/gmail-ai-agent/internal/apperr"
	"github.com/teemow/gmail-ai-agent/internal/instrumentation"
	"github.com/teemow/gmail-ai-agent/internal/logging"
)

// API metadata reported by the root endpoint.
const (
	APIName    = "Gmail AI Agent API"
	APIVersion = "1.0.0"
)

// DefaultCORSOrigins are the development frontends allowed by default.
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr        string
	CORSOrigins []string
}

// HTTPServer is the REST API in front of a ServerContext.
type HTTPServer struct {
	echo   *echo.Echo
	sc     *ServerContext
	health *HealthChecker
	addr   string
}

// NewHTTPServer builds the echo router with every API route registered.
func NewHTTPServer(sc *ServerContext, cfg HTTPConfig) *HTTPServer {
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = DefaultCORSOrigins
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New()}

	s := &HTTPServer{
		echo:   e,
		sc:     sc,
		health: NewHealthChecker(sc),
		addr:   cfg.Addr,
	}
	e.HTTPErrorHandler = s.handleError

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(s.observe)

	s.routes()
	return s
}

func (s *HTTPServer) routes() {
	e := s.echo

	e.GET("/", s.root)
	e.GET("/health", s.healthz)
	s.health.RegisterHealthEndpoints(e)

	auth := e.Group("/auth")
	auth.POST("/google", s.googleAuth)
	auth.GET("/url", s.authURL)
	auth.GET("/callback", s.authCallback)
	auth.GET("/auth/callback", s.authCallback)
	auth.GET("/me", s.me, s.requireSession)
	auth.POST("/refresh", s.refresh, s.requireSession)

	emails := e.Group("/emails", s.requireSession)
	emails.GET("", s.listEmails)
	emails.GET("/search/semantic", s.semanticSearch)
	emails.GET("/stats/overview", s.statsOverview)
	emails.GET("/thread/:thread_id", s.thread)
	emails.GET("/:email_id", s.getEmail)
	emails.POST("/:email_id/read", s.markRead)
	emails.GET("/:email_id/analysis", s.analyzeEmail)

	ai := e.Group("/ai", s.requireSession)
	ai.POST("/chat", s.chat)
	ai.GET("/insights", s.insights)
	ai.POST("/analyze-batch", s.analyzeBatch)
	ai.GET("/search/advanced", s.advancedSearch)
	ai.POST("/generate-response", s.generateResponse)
	ai.GET("/recommendations", s.recommendations)
}

// Handler returns the router, for tests and custom listeners.
func (s *HTTPServer) Handler() http.Handler {
	return s.echo
}

// Health returns the health checker backing the probe endpoints.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Start serves the API until Shutdown. It blocks.
func (s *HTTPServer) Start() error {
	s.sc.logger.Info("starting HTTP server", "addr", s.addr)
	return s.echo.Start(s.addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	s.sc.logger.Info("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return apperr.Wrap(apperr.KindInvalidRequest, "Requisição inválida: "+err.Error(), err)
	}
	return nil
}

// observe traces, measures and logs every request.
func (s *HTTPServer) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()
		route := c.Path()

		ctx, span := instrumentation.StartServerSpan(req.Context(), req.Method, route)
		defer span.End()
		c.SetRequest(req.WithContext(ctx))

		if err := next(c); err != nil {
			instrumentation.SetSpanError(span, err)
			c.Error(err)
		}

		status := c.Response().Status
		duration := time.Since(start)
		s.sc.metrics.RecordHTTPRequest(ctx, req.Method, route, status, duration)

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.sc.logger.LogAttrs(ctx, level, "request",
			slog.String("method", req.Method),
			slog.String("route", route),
			logging.Status(http.StatusText(status)),
			slog.Int("code", status),
			slog.Duration(logging.KeyDuration, duration),
			slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			slog.String("trace_id", instrumentation.GetTraceID(ctx)),
		)
		return nil
	}
}

// errorBody matches the {"detail": ...} shape clients expect.
type errorBody struct {
	Detail string `json:"detail"`
}

func (s *HTTPServer) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := apperr.StatusFor(apperr.KindOf(err))
	detail := apperr.MessageOf(err)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		detail = http.StatusText(code)
		if msg, ok := he.Message.(string); ok {
			detail = msg
		}
	}

	if code >= http.StatusInternalServerError {
		s.sc.logger.Error("request failed", slog.String("route", c.Path()), logging.Err(err))
	} else {
		s.sc.logger.Debug("request rejected", slog.String("route", c.Path()), slog.Int("code", code), logging.Err(err))
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, errorBody{Detail: detail})
}

// fail prefixes the caller-facing message of err while keeping its kind.
func fail(prefix string, err error) error {
	return apperr.Wrap(apperr.KindOf(err), prefix+": "+apperr.MessageOf(err), err)
}

func (s *HTTPServer) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": APIName,
		"version": APIVersion,
		"status":  "running",
	})
}

func (s *HTTPServer) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}
