package handlers

import (
	"net/http"

	"mailroom/internal/models"
	"mailroom/internal/services"

	"github.com/labstack/echo/v4"
)

// MailboxHandlers serves the mailbox directory.
type MailboxHandlers struct {
	mailboxService services.MailboxService
	packageService services.PackageService
}

func NewMailboxHandlers(mailboxService services.MailboxService, packageService services.PackageService) *MailboxHandlers {
	return &MailboxHandlers{mailboxService: mailboxService, packageService: packageService}
}

// SearchMailboxes handles GET /mailboxes?q=&include_inactive=&limit=&offset=
func (h *MailboxHandlers) SearchMailboxes(c echo.Context) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}
	includeInactive, err := queryBool(c, "include_inactive")
	if err != nil {
		return err
	}

	filter := models.MailboxFilter{Query: c.QueryParam("q"), Limit: limit, Offset: offset}
	if includeInactive != nil {
		filter.IncludeInactive = *includeInactive
	}
	mailboxes, err := h.mailboxService.Search(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mailboxes)
}

func (h *MailboxHandlers) CreateMailbox(c echo.Context) error {
	var req services.MailboxRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	mailbox, err := h.mailboxService.Create(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, mailbox)
}

func (h *MailboxHandlers) GetMailbox(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	mailbox, err := h.mailboxService.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mailbox)
}

func (h *MailboxHandlers) UpdateMailbox(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req services.MailboxRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	mailbox, err := h.mailboxService.Update(c.Request().Context(), id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mailbox)
}

func (h *MailboxHandlers) DeleteMailbox(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.mailboxService.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type defaultTenantRequest struct {
	TenantID *int64 `json:"tenant_id"`
}

// SetDefaultTenant handles PUT /mailboxes/:id/default-tenant. A null
// tenant_id clears the default.
func (h *MailboxHandlers) SetDefaultTenant(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req defaultTenantRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	mailbox, err := h.mailboxService.SetDefaultTenant(c.Request().Context(), id, req.TenantID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mailbox)
}

func (h *MailboxHandlers) ListTenants(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	includeInactive, err := queryBool(c, "include_inactive")
	if err != nil {
		return err
	}
	tenants, err := h.mailboxService.ListTenants(c.Request().Context(), id, includeInactive != nil && *includeInactive)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tenants)
}

// ListPackages handles GET /mailboxes/:id/packages with the same filters as
// the package list, scoped to the mailbox.
func (h *MailboxHandlers) ListPackages(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	filter, err := packageFilter(c)
	if err != nil {
		return err
	}
	filter.MailboxID = &id
	packages, err := h.packageService.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, packages)
}
