// Package server exposes the provisioner's REST boundary on echo: tenant and
// application lifecycle plus the assignment endpoints.
package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/provisioner/internal/faults"
	"github.com/wolfeidau/provisioner/internal/logger"
)

// Server wires the handlers into an echo instance.
type Server struct {
	tenants      *TenantHandler
	applications *ApplicationHandler
}

func New(tenants *TenantHandler, applications *ApplicationHandler) *Server {
	return &Server{tenants: tenants, applications: applications}
}

// Router builds the echo instance with routes and middleware attached.
func (s *Server) Router(log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(logger.Requests(log))
	e.HTTPErrorHandler = errorHandler

	e.POST("/tenants", s.tenants.Create)
	e.GET("/tenants", s.tenants.List)
	e.GET("/tenants/:identifier", s.tenants.Get)
	e.DELETE("/tenants/:identifier", s.tenants.Delete)
	e.POST("/tenants/:identifier/identityservice", s.tenants.AssignIdentityManager)
	e.PUT("/tenants/:identifier/applications", s.tenants.AssignApplications)
	e.GET("/tenants/:identifier/applications", s.tenants.GetAssignedApplications)

	e.POST("/applications", s.applications.Create)
	e.GET("/applications", s.applications.List)
	e.GET("/applications/:name", s.applications.Get)
	e.DELETE("/applications/:name", s.applications.Delete)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return e
}

// problem is the error body every failed request carries.
type problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeFault maps the service error taxonomy onto HTTP statuses.
func writeFault(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch faults.CodeOf(err) {
	case faults.CodeNotFound:
		status = http.StatusNotFound
	case faults.CodeConflict:
		status = http.StatusConflict
	case faults.CodeBadRequest:
		status = http.StatusBadRequest
	}

	message := err.Error()
	var f *faults.Fault
	if errors.As(err, &f) {
		// Internal causes stay in the logs, not in responses.
		message = f.Message
	}

	return c.JSON(status, problem{Code: faults.CodeOf(err).String(), Message: message})
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		_ = c.JSON(httpErr.Code, problem{Code: "http_error", Message: http.StatusText(httpErr.Code)})
		return
	}

	_ = writeFault(c, err)
}
