package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable wraps transport-level failures reaching the remote API
	ErrUnavailable = errors.New("remote api unavailable")
	// ErrUnrecognizedShape is returned when a list response has no array in any known place
	ErrUnrecognizedShape = errors.New("unrecognized response shape")
)

// APIError is a non-2xx response from the remote API
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote api: status %d: %s", e.Status, e.Message)
}

// IsUnavailable reports network failures and 5xx responses. These are
// recoverable by falling back to local state.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= http.StatusInternalServerError
}

// IsRejected reports 4xx responses carrying a business reason
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		apiErr.Status >= http.StatusBadRequest &&
		apiErr.Status < http.StatusInternalServerError
}

// IsNotFound reports a 404 from the remote API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// IsCanceled reports whether err stems from the caller's context. Timeouts of
// the remote client itself are reported as ErrUnavailable instead.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Message extracts the user-facing reason from a remote error
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
