package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"portal/internal/documents"
	"portal/internal/form"
	"portal/internal/repository"
	"portal/internal/service"
	"portal/internal/storeclient"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
)

var statusByError = []struct {
	err    error
	status int
}{
	{service.ErrInvalidTransition, http.StatusConflict},
	{service.ErrDocumentsOnCreateOnly, http.StatusConflict},
	{service.ErrProgramNotRequired, http.StatusBadRequest},
	{service.ErrRejectionReasonRequired, http.StatusBadRequest},
	{service.ErrRejectionDetailRequired, http.StatusBadRequest},
	{service.ErrUnknownRejectionReason, http.StatusBadRequest},
	{service.ErrDraftForbidden, http.StatusForbidden},
	{service.ErrMissingSAMLToken, http.StatusBadRequest},
	{service.ErrProfileUnavailable, http.StatusBadGateway},
	{service.ErrDuplicateNotDraft, http.StatusBadGateway},
	{repository.ErrDraftNotFound, http.StatusNotFound},
	{documents.ErrNotFound, http.StatusNotFound},
	{documents.ErrTooLarge, http.StatusRequestEntityTooLarge},
	{documents.ErrEmpty, http.StatusBadRequest},
	{form.ErrCompanySelectionRequired, http.StatusBadRequest},
	{form.ErrCompanyLocked, http.StatusBadRequest},
	{form.ErrUnknownField, http.StatusBadRequest},
	{form.ErrTooManyDocuments, http.StatusBadRequest},
	{form.ErrDuplicateEntry, http.StatusBadRequest},
	{form.ErrIndexOutOfRange, http.StatusBadRequest},
	{context.DeadlineExceeded, http.StatusGatewayTimeout},
}

// respondError maps service, form and store errors onto the envelope. Store
// messages are passed through untouched.
func respondError(c *gin.Context, err error) {
	var verrs form.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusUnprocessableEntity, response.Invalid(http.StatusUnprocessableEntity, "Validation failed", verrs))
		return
	}

	var storeErr *storeclient.StoreError
	if errors.As(err, &storeErr) {
		status := storeErr.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		c.JSON(status, response.Error(status, storeErr.Message))
		return
	}

	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			c.JSON(m.status, response.Error(m.status, err.Error()))
			return
		}
	}

	log.Printf("handler: %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}
