package handlers

import (
	"net/http"

	"mailroom/internal/services"

	"github.com/labstack/echo/v4"
)

// Stored signatures never change, so inline images may be cached forever.
const signatureCacheControl = "public, max-age=31536000, immutable"

type SignatureHandlers struct {
	signatureService services.SignatureService
}

func NewSignatureHandlers(signatureService services.SignatureService) *SignatureHandlers {
	return &SignatureHandlers{signatureService: signatureService}
}

// GetSignature returns signature metadata without the payload.
func (h *SignatureHandlers) GetSignature(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	sig, err := h.signatureService.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sig)
}

// GetSignatureImage serves the decoded image for data URI signatures and
// redirects for URL and object storage signatures.
func (h *SignatureHandlers) GetSignatureImage(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	img, err := h.signatureService.Image(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if img.RedirectURL != "" {
		return c.Redirect(http.StatusFound, img.RedirectURL)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, signatureCacheControl)
	return c.Blob(http.StatusOK, img.ContentType, img.Body)
}

func (h *SignatureHandlers) DeleteSignature(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.signatureService.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
