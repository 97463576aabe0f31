package cctp

import (
	"errors"
	"fmt"
)

// ErrorResponse represents a CCTP API error response
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("CCTP API error [%d]: %s (code: %s)", e.StatusCode, e.Message, e.Code)
}

func (e *ErrorResponse) IsNotFound() bool {
	return e.StatusCode == 404
}

func (e *ErrorResponse) IsRateLimited() bool {
	return e.StatusCode == 429
}

// ErrNoMessages indicates the oracle has not indexed the burn yet
var ErrNoMessages = errors.New("no messages found for transaction")

// isClientError keeps 4xx responses from tripping the breaker; they say nothing about oracle health.
func isClientError(err error) bool {
	if errors.Is(err, ErrNoMessages) {
		return true
	}
	var apiErr *ErrorResponse
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && !apiErr.IsRateLimited()
}
