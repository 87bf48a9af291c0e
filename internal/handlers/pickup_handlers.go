package handlers

import (
	"net/http"

	"mailroom/internal/models"
	"mailroom/internal/services"

	"github.com/labstack/echo/v4"
)

// PickupHandlers serves pickup recording, history and bulk status changes.
type PickupHandlers struct {
	pickupService services.PickupService
}

func NewPickupHandlers(pickupService services.PickupService) *PickupHandlers {
	return &PickupHandlers{pickupService: pickupService}
}

// ProcessPickup handles POST /pickups. The whole batch succeeds or none of
// it does; the response is the pickup summary.
func (h *PickupHandlers) ProcessPickup(c echo.Context) error {
	var req models.PickupRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	summary, err := h.pickupService.ProcessPickup(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// ListPickups handles GET /pickups?tenant_id=&mailbox_id=&days=&limit=&offset=
func (h *PickupHandlers) ListPickups(c echo.Context) error {
	var (
		filter models.PickupFilter
		err    error
	)
	if filter.TenantID, err = queryID(c, "tenant_id"); err != nil {
		return err
	}
	if filter.MailboxID, err = queryID(c, "mailbox_id"); err != nil {
		return err
	}
	if filter.Days, err = queryIntPtr(c, "days"); err != nil {
		return err
	}
	if filter.Limit, filter.Offset, err = pagination(c); err != nil {
		return err
	}

	page, err := h.pickupService.ListPickups(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// BulkUpdateStatus handles POST /pickups/bulk-status.
func (h *PickupHandlers) BulkUpdateStatus(c echo.Context) error {
	var req models.BulkStatusRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	result, err := h.pickupService.BulkUpdateStatus(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
