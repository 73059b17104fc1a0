package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a service-level failure so handlers can map it to an
// HTTP status without string matching.
type Kind int

const (
	KindValidation Kind = iota
	KindAuthorization
	KindConflict
	KindPrecondition
	KindNotFound
)

// Error carries a message plus the limiting state that caused the
// rejection (capacity, window bounds, current counters).
type Error struct {
	Kind    Kind
	Message string
	Context map[string]interface{}
}

func (e *Error) Error() string {
	return e.Message
}

// With attaches a context field and returns the same error for chaining.
func (e *Error) With(key string, val interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = val
	return e
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Precondition(msg string) *Error {
	return &Error{Kind: KindPrecondition, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Is lets errors.Is match two apperr errors of the same kind and message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Status maps an error to its HTTP status code. Unknown errors are 500.
func Status(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation, KindPrecondition:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Payload builds the response body: {"error": message, ...context}.
func Payload(err error) map[string]interface{} {
	out := map[string]interface{}{"error": err.Error()}
	var e *Error
	if errors.As(err, &e) {
		for k, v := range e.Context {
			out[k] = v
		}
	}
	return out
}
