package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rail-service/hub_bridge/internal/api/middleware"
	"github.com/rail-service/hub_bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/hub_bridge/internal/domain/errors"
)

// getUserID returns the authenticated caller. Clients never supply it in the body.
func getUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.UserIDKey)
	return userID, userID != ""
}

// getRequestID extracts request ID from context
func getRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}

// respondError sends a standardized error response
func respondError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, entities.ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// respondDomainError maps a domain error category onto an HTTP status.
func respondDomainError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("request_id", getRequestID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	var domainErr *domainerrors.DomainError
	if !errors.As(err, &domainErr) {
		respondError(c, status, ErrCodeInternalError, MsgInternalError, nil)
		return
	}

	details := domainErr.Details
	if domainErr.Retryable {
		details = withDetail(details, "retryable", true)
	}
	message := domainErr.Message
	if status >= http.StatusInternalServerError && !domainErr.Retryable {
		message = MsgInternalError
	}
	respondError(c, status, domainErr.Code, message, details)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domainerrors.ErrMissingUserID):
		return http.StatusUnauthorized
	case errors.Is(err, domainerrors.ErrInvalidInput), errors.Is(err, domainerrors.ErrChainResolution):
		return http.StatusBadRequest
	case errors.Is(err, domainerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainerrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domainerrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domainerrors.ErrAddressMismatch):
		return http.StatusBadGateway
	case domainerrors.IsRetryable(err), errors.Is(err, domainerrors.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func withDetail(details map[string]interface{}, key string, value interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(details)+1)
	for k, v := range details {
		out[k] = v
	}
	out[key] = value
	return out
}

// parseIntParam parses a query parameter to int with default value
func parseIntParam(c *gin.Context, param string, defaultVal int) int {
	if val := c.Query(param); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// parseBoolParam parses a query parameter to bool with default value
func parseBoolParam(c *gin.Context, param string, defaultVal bool) bool {
	if val := c.Query(param); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
