package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wolfeidau/provisioner/internal/models"
	"github.com/wolfeidau/provisioner/internal/service"
)

// ApplicationHandler serves the application catalog endpoints.
type ApplicationHandler struct {
	applications *service.Applications
}

func NewApplicationHandler(applications *service.Applications) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

func (h *ApplicationHandler) Create(c echo.Context) error {
	var app models.Application
	if err := c.Bind(&app); err != nil {
		return c.JSON(http.StatusBadRequest, problem{Code: "bad_request", Message: "invalid application body"})
	}

	if err := h.applications.Create(c.Request().Context(), &app); err != nil {
		return writeFault(c, err)
	}

	return c.JSON(http.StatusCreated, app)
}

func (h *ApplicationHandler) List(c echo.Context) error {
	apps, err := h.applications.FetchAll(c.Request().Context())
	if err != nil {
		return writeFault(c, err)
	}
	if apps == nil {
		apps = []*models.Application{}
	}
	return c.JSON(http.StatusOK, apps)
}

func (h *ApplicationHandler) Get(c echo.Context) error {
	app, err := h.applications.Find(c.Request().Context(), c.Param("name"))
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusOK, app)
}

func (h *ApplicationHandler) Delete(c echo.Context) error {
	if err := h.applications.Delete(c.Request().Context(), c.Param("name")); err != nil {
		return writeFault(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
