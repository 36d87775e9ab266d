package powerbi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound      = errors.New("powerbi: resource not found")
	ErrUnauthorized  = errors.New("powerbi: not authorized")
	ErrNoTokenSource = errors.New("powerbi: no access token source available")
)

// APIError is a non-2xx response from the Power BI REST API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	// RequestID is the value of the RequestId response header, quoted in
	// Power BI support requests.
	RequestID string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("powerbi: status %d", e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RequestID != "" {
		msg += " (request id " + e.RequestID + ")"
	}
	return msg
}

// Is maps status codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
