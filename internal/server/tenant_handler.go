package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wolfeidau/provisioner/internal/models"
	"github.com/wolfeidau/provisioner/internal/service"
)

// TenantHandler serves the tenant lifecycle and assignment endpoints.
type TenantHandler struct {
	tenants      *service.Tenants
	orchestrator *service.Orchestrator
}

func NewTenantHandler(tenants *service.Tenants, orchestrator *service.Orchestrator) *TenantHandler {
	return &TenantHandler{tenants: tenants, orchestrator: orchestrator}
}

func (h *TenantHandler) Create(c echo.Context) error {
	var tenant models.Tenant
	if err := c.Bind(&tenant); err != nil {
		return c.JSON(http.StatusBadRequest, problem{Code: "bad_request", Message: "invalid tenant body"})
	}

	if err := h.tenants.Create(c.Request().Context(), &tenant); err != nil {
		return writeFault(c, err)
	}

	return c.JSON(http.StatusCreated, tenant)
}

func (h *TenantHandler) List(c echo.Context) error {
	tenants, err := h.tenants.FetchAll(c.Request().Context())
	if err != nil {
		return writeFault(c, err)
	}
	if tenants == nil {
		tenants = []*models.Tenant{}
	}
	return c.JSON(http.StatusOK, tenants)
}

func (h *TenantHandler) Get(c echo.Context) error {
	tenant, err := h.tenants.Find(c.Request().Context(), c.Param("identifier"))
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

func (h *TenantHandler) Delete(c echo.Context) error {
	if err := h.tenants.Delete(c.Request().Context(), c.Param("identifier")); err != nil {
		return writeFault(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// identityManagerRequest names the registered application to wire in as the
// tenant's identity manager.
type identityManagerRequest struct {
	ApplicationName string `json:"applicationName"`
}

// identityManagerResponse carries the one-time admin password, empty when the
// identity manager was already initialized.
type identityManagerResponse struct {
	AdminPassword string `json:"adminPassword,omitempty"`
}

func (h *TenantHandler) AssignIdentityManager(c echo.Context) error {
	var req identityManagerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, problem{Code: "bad_request", Message: "invalid identity manager body"})
	}

	password, err := h.tenants.AssignIdentityManager(c.Request().Context(), c.Param("identifier"), req.ApplicationName)
	if err != nil {
		return writeFault(c, err)
	}

	return c.JSON(http.StatusOK, identityManagerResponse{AdminPassword: password})
}

// AssignApplications accepts the desired assignment set and returns 202; the
// onboarding run happens on the background worker.
func (h *TenantHandler) AssignApplications(c echo.Context) error {
	var applications []string
	if err := c.Bind(&applications); err != nil {
		return c.JSON(http.StatusBadRequest, problem{Code: "bad_request", Message: "invalid application list"})
	}

	if err := h.orchestrator.AssignApplications(c.Request().Context(), c.Param("identifier"), applications); err != nil {
		return writeFault(c, err)
	}

	return c.NoContent(http.StatusAccepted)
}

func (h *TenantHandler) GetAssignedApplications(c echo.Context) error {
	assignment, err := h.orchestrator.FetchAssigned(c.Request().Context(), c.Param("identifier"))
	if err != nil {
		return writeFault(c, err)
	}
	if assignment.Applications == nil {
		assignment.Applications = []string{}
	}
	return c.JSON(http.StatusOK, assignment.Applications)
}
