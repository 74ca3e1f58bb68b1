package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	middleware "notegrid.app/notegrid/internal/http/middlewares"
	"notegrid.app/notegrid/internal/http/validators"
)

type RouteOptions struct {
	Limiter middleware.Limiter
	// Tracer enables request spans when set.
	Tracer trace.Tracer
}

// NewEcho returns an echo instance with the API's codec, validator and
// error rendering installed.
func NewEcho(logger *log.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = sonicSerializer{}
	e.Validator = validators.New()
	e.HTTPErrorHandler = ErrorHandler(logger)
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))
	return e
}

func Register(e *echo.Echo, h *Handler, logger *log.Logger, opts RouteOptions) {
	if opts.Tracer != nil {
		e.Use(middleware.Tracing(opts.Tracer))
	}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	if opts.Limiter != nil {
		e.Use(middleware.RateLimiter(opts.Limiter, logger))
	}

	auth := middleware.Auth()
	api := e.Group("/api")

	api.GET("/health", h.Health)
	api.GET("/exists/:uuid", h.Exists)
	api.POST("/register", h.Register)

	api.GET("/data", h.GetData, auth)
	api.PUT("/data", h.PutData, auth)
	api.DELETE("/account", h.DeleteAccount, auth)

	api.GET("/tasks", h.ListTasks, auth)
	api.POST("/tasks", h.CreateTask, auth)
	api.PUT("/tasks/reorder", h.ReorderTasks, auth)
	api.PUT("/tasks/:id", h.UpdateTask, auth)
	api.DELETE("/tasks/:id", h.DeleteTask, auth)

	api.GET("/links", h.ListLinks, auth)
	api.POST("/links", h.CreateLink, auth)
	api.PUT("/links/reorder", h.ReorderLinks, auth)
	api.DELETE("/links/:id", h.DeleteLink, auth)
}
