package apperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind is a stable, machine-readable error category. Handlers map kinds
// to HTTP statuses; callers can branch on them without parsing messages.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindConflict          Kind = "conflict"
	KindInvalidTransition Kind = "invalid_transition"
	KindInvalidState      Kind = "invalid_state"
	KindValidation        Kind = "validation"
	KindInternal          Kind = "internal"
)

// Error is a caller-facing error carrying a stable kind and a
// human-readable reason.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func NotFound(msg string) *Error          { return newError(KindNotFound, msg) }
func Forbidden(msg string) *Error         { return newError(KindForbidden, msg) }
func Conflict(msg string) *Error          { return newError(KindConflict, msg) }
func InvalidTransition(msg string) *Error { return newError(KindInvalidTransition, msg) }
func InvalidState(msg string) *Error      { return newError(KindInvalidState, msg) }
func Validation(msg string) *Error        { return newError(KindValidation, msg) }
func Internal(msg string) *Error          { return newError(KindInternal, msg) }

// KindOf returns the kind of err, or KindInternal for unrecognized errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindInvalidTransition, KindInvalidState:
		return http.StatusUnprocessableEntity
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// JSON writes the error response for a failed handler. Unrecognized
// errors are reported as a generic internal error so database details
// never leak to the caller.
func JSON(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error", "kind": string(KindInternal)})
		return
	}
	c.JSON(Status(e), gin.H{"error": e.Message, "kind": string(e.Kind)})
}
