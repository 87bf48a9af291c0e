package handlers

import (
	"net/http"
	"strings"

	"mailroom/internal/models"
	"mailroom/internal/services"

	"github.com/labstack/echo/v4"
)

type PackageHandlers struct {
	packageService services.PackageService
}

func NewPackageHandlers(packageService services.PackageService) *PackageHandlers {
	return &PackageHandlers{packageService: packageService}
}

func packageFilter(c echo.Context) (models.PackageFilter, error) {
	var (
		filter models.PackageFilter
		err    error
	)
	if filter.MailboxID, err = queryID(c, "mailbox_id"); err != nil {
		return filter, err
	}
	if filter.TenantID, err = queryID(c, "tenant_id"); err != nil {
		return filter, err
	}
	if filter.HighValue, err = queryBool(c, "high_value"); err != nil {
		return filter, err
	}
	if filter.Limit, filter.Offset, err = pagination(c); err != nil {
		return filter, err
	}
	if s := strings.TrimSpace(c.QueryParam("status")); s != "" {
		status := models.PackageStatus(s)
		filter.Status = &status
	}
	if carrier := strings.TrimSpace(c.QueryParam("carrier")); carrier != "" {
		filter.Carrier = &carrier
	}
	filter.Query = c.QueryParam("q")
	return filter, nil
}

// ListPackages handles GET /packages?mailbox_id=&tenant_id=&status=&carrier=&high_value=&q=
func (h *PackageHandlers) ListPackages(c echo.Context) error {
	filter, err := packageFilter(c)
	if err != nil {
		return err
	}
	packages, err := h.packageService.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, packages)
}

// IntakePackage handles POST /packages.
func (h *PackageHandlers) IntakePackage(c echo.Context) error {
	var req services.IntakeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	pkg, err := h.packageService.Intake(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, pkg)
}

func (h *PackageHandlers) GetPackage(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	pkg, err := h.packageService.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pkg)
}

func (h *PackageHandlers) GetPackageByTracking(c echo.Context) error {
	pkg, err := h.packageService.GetByTracking(c.Request().Context(), c.Param("tracking"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pkg)
}

func (h *PackageHandlers) UpdatePackage(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req services.UpdatePackageRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	pkg, err := h.packageService.Update(c.Request().Context(), id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pkg)
}

func (h *PackageHandlers) DeletePackage(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.packageService.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PackageHandlers) ResetStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	pkg, err := h.packageService.ResetStatus(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pkg)
}
