package client

import (
	"errors"
	"fmt"

	"github.com/preventix/preventix/internal/api"
)

// ErrorKind classifies API call failures. Only KindAuthExpired is ever
// recovered from (by a single refresh-and-retry); every other kind propagates
// to the caller immediately.
type ErrorKind string

const (
	// KindNetwork means no response was received.
	KindNetwork ErrorKind = "network"

	// KindValidation is a 422 with field-level detail.
	KindValidation ErrorKind = "validation"

	// KindAuthExpired is a 401 that may be recoverable via refresh. Callers
	// never observe it directly; the client either recovers or converts it
	// to KindAuthFinal.
	KindAuthExpired ErrorKind = "auth_expired"

	// KindAuthFinal is a 401 after a failed refresh, after the one permitted
	// retry, or with no refresh credential. The caller must re-authenticate.
	KindAuthFinal ErrorKind = "auth_final"

	// KindServer is a 5xx response.
	KindServer ErrorKind = "server"

	// KindClient is any other 4xx response.
	KindClient ErrorKind = "client"
)

// ErrSessionExpired matches KindAuthFinal failures via errors.Is.
var ErrSessionExpired = errors.New("session expired, please log in again")

// APIError is the failure contract of every client operation.
type APIError struct {
	Kind       ErrorKind
	StatusCode int    // 0 for network errors
	Detail     string // server-provided message, if any
	Fields     []api.FieldError
	cause      error
}

func (e *APIError) Error() string {
	switch {
	case e.Kind == KindNetwork:
		return fmt.Sprintf("request failed: %v", e.cause)
	case e.Detail != "":
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
	default:
		return fmt.Sprintf("api error %d", e.StatusCode)
	}
}

func (e *APIError) Unwrap() error {
	if e.Kind == KindAuthFinal {
		return ErrSessionExpired
	}
	return e.cause
}

// IsAuth reports whether the failure requires re-authentication.
func (e *APIError) IsAuth() bool {
	return e.Kind == KindAuthExpired || e.Kind == KindAuthFinal
}

func networkError(err error) *APIError {
	return &APIError{Kind: KindNetwork, cause: err}
}

// classifyStatus maps an HTTP status and parsed error body to an APIError.
func classifyStatus(status int, body *api.ErrorResponse) *APIError {
	apiErr := &APIError{StatusCode: status}
	if body != nil {
		apiErr.Detail = body.Message()
		apiErr.Fields = body.FieldErrors()
	}

	switch {
	case status == 401:
		apiErr.Kind = KindAuthExpired
	case status == 422:
		apiErr.Kind = KindValidation
	case status >= 500:
		apiErr.Kind = KindServer
	default:
		apiErr.Kind = KindClient
	}
	return apiErr
}
