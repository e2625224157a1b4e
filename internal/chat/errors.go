package chat

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthError reports rejected credentials. Callers treat it as "needs registration".
type AuthError struct {
	Identity string
	Status   int
	Message  string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth %s: rejected (status %d)", e.Identity, e.Status)
	}
	return fmt.Sprintf("auth %s: %s (status %d)", e.Identity, e.Message, e.Status)
}

// ServiceError reports a failed operation call.
type ServiceError struct {
	Op      Operation
	Status  int
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
	default:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Conflict reports whether the server rejected the call because the resource already exists.
func (e *ServiceError) Conflict() bool {
	return e.Status == http.StatusConflict
}

// StreamError reports a failed event subscription, either an error frame from
// the server or a broken connection.
type StreamError struct {
	Message string
	Err     error
}

func (e *StreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("event stream: %v", e.Err)
	}
	return fmt.Sprintf("event stream: %s", e.Message)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err is, or wraps, an *AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsConflict reports whether err is a ServiceError for an already existing resource.
func IsConflict(err error) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Conflict()
}
