package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pdfscan/pdfscan/internal/document/service"
	"github.com/pdfscan/pdfscan/pkg/logger"
)

// APIError is rendered as {"error": Message}.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// toAPIError maps service errors onto the HTTP surface. Anything unknown
// becomes a 500 with fallback as the public message.
func toAPIError(err error, fallback string) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, service.ErrNoFile):
		return &APIError{http.StatusBadRequest, "No file uploaded"}
	case errors.Is(err, service.ErrUnsupportedType):
		return &APIError{http.StatusBadRequest, service.ErrUnsupportedType.Error()}
	case errors.Is(err, service.ErrTooLarge):
		return &APIError{http.StatusBadRequest, service.ErrTooLarge.Error()}
	case errors.Is(err, service.ErrInvalidInput):
		return &APIError{http.StatusBadRequest, "Document ID is required"}
	case errors.Is(err, service.ErrNotFound):
		return &APIError{http.StatusNotFound, "Document not found"}
	case errors.Is(err, service.ErrExtractionInProgress):
		return &APIError{http.StatusConflict, "Extraction already in progress"}
	case errors.Is(err, service.ErrDownloadUnsupported):
		return &APIError{http.StatusNotImplemented, service.ErrDownloadUnsupported.Error()}
	}
	return &APIError{http.StatusInternalServerError, fallback}
}

func abortWithError(c *gin.Context, err error, fallback string) {
	apiErr := toAPIError(err, fallback)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr.Message})
}
