package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/yelinaung/smart-finance/internal/extraction"
	"gitlab.com/yelinaung/smart-finance/internal/ledger"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
)

// msgExtractionFailed is the only detail clients see for extraction failures.
const msgExtractionFailed = "could not extract an expense from the input"

type errorResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errorResponse {
	return errorResponse{Error: msg}
}

// statusFor maps ledger errors to an HTTP status and client message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrBusy):
		return http.StatusConflict, "a previous request for this session is still being processed"
	case errors.Is(err, ledger.ErrNotConfigured):
		return http.StatusServiceUnavailable, "AI features are not configured"
	case errors.Is(err, extraction.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType, "unsupported media type for this endpoint"
	case errors.Is(err, extraction.ErrEmptyInput):
		return http.StatusBadRequest, "input must not be empty"
	case errors.Is(err, extraction.ErrExtractionFailed):
		return http.StatusUnprocessableEntity, msgExtractionFailed
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func abortWithError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	evt := logger.Log.Warn()
	if status >= http.StatusInternalServerError {
		evt = logger.Log.Error()
	}
	if errors.Is(err, extraction.ErrExtractionFailed) {
		evt = evt.Str("kind", extraction.KindOf(err).String())
	}
	evt.Err(err).
		Str("path", c.FullPath()).
		Int("status", status).
		Msg("Request failed")
	c.AbortWithStatusJSON(status, errorBody(msg))
}
