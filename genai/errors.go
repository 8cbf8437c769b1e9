package genai

import (
	"errors"
	"fmt"
	"net/http"
)

// SDKError is the base error type for all genai errors.
type SDKError struct {
	Message string
	Cause   error
}

func (e *SDKError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SDKError) Unwrap() error {
	return e.Cause
}

// ConfigurationError means a required dependency or credential is absent.
// It is raised at construction and is not recoverable without fixing the
// environment.
type ConfigurationError struct{ SDKError }

// InvalidParameterError reports conflicting or out-of-range parameters.
// It is always raised before any network call.
type InvalidParameterError struct{ SDKError }

// UnsupportedOperationError reports an operation that is not defined for the
// adapter's task or backend.
type UnsupportedOperationError struct{ SDKError }

// RequestError is embedded by errors raised after a dispatch attempt; it
// carries the request context for diagnosis.
type RequestError struct {
	SDKError
	Request RequestContext
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s (adapter=%s, task=%s, request=%s): %v",
		e.Message, e.Request.Adapter, e.Request.Task, e.Request.ID, e.Cause)
}

// AuthorizationError means the backend rejected the credentials. Callers can
// use it to trigger re-authentication.
type AuthorizationError struct{ RequestError }

// BackendError is a network or backend failure that persisted after the
// single automatic retry, or a malformed backend response.
type BackendError struct{ RequestError }

// StatusError is returned by the transport for non-2xx HTTP responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

// ErrMalformedResponse is wrapped when a backend envelope misses expected keys.
var ErrMalformedResponse = errors.New("malformed response envelope")

func configError(format string, a ...any) error {
	return &ConfigurationError{SDKError{Message: fmt.Sprintf(format, a...)}}
}

func invalidParam(format string, a ...any) error {
	return &InvalidParameterError{SDKError{Message: fmt.Sprintf(format, a...)}}
}

func unsupported(format string, a ...any) error {
	return &UnsupportedOperationError{SDKError{Message: fmt.Sprintf(format, a...)}}
}

// classifyFailure turns the final dispatch failure into the public taxonomy.
func classifyFailure(rc RequestContext, err error) error {
	var se *StatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) {
		return &AuthorizationError{RequestError{
			SDKError: SDKError{Message: "backend rejected credentials", Cause: err},
			Request:  rc,
		}}
	}
	return &BackendError{RequestError{
		SDKError: SDKError{Message: "backend call failed after retry", Cause: err},
		Request:  rc,
	}}
}

func malformed(rc RequestContext, format string, a ...any) error {
	return &BackendError{RequestError{
		SDKError: SDKError{Message: "cannot normalize response", Cause: fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, a...))},
		Request:  rc,
	}}
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

// IsInvalidParameter reports whether err is an InvalidParameterError.
func IsInvalidParameter(err error) bool {
	var e *InvalidParameterError
	return errors.As(err, &e)
}

// IsUnsupported reports whether err is an UnsupportedOperationError.
func IsUnsupported(err error) bool {
	var e *UnsupportedOperationError
	return errors.As(err, &e)
}

// IsAuthorization reports whether err is an AuthorizationError.
func IsAuthorization(err error) bool {
	var e *AuthorizationError
	return errors.As(err, &e)
}

// IsBackend reports whether err is a BackendError.
func IsBackend(err error) bool {
	var e *BackendError
	return errors.As(err, &e)
}
