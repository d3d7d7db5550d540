package errordata

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindAuthentication Kind = "authentication_failure"
	KindProvider       Kind = "provider_error"
	KindTransport      Kind = "transport_failure"
	KindMalformed      Kind = "malformed_response"
	KindPersistence    Kind = "persistence"
	KindUnknown        Kind = "unknown"
)

// Error is the single error type crossing service boundaries. Message is safe to show
// to a caller; Err keeps the underlying cause for logs.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Body       string
	Fallback   string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s (HTTP %d): %s: %v", e.Kind, e.StatusCode, e.Message, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Persistence(msg string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsGatewayFailure reports whether err is one of the model-provider failure kinds.
func IsGatewayFailure(err error) bool {
	switch KindOf(err) {
	case KindAuthentication, KindProvider, KindTransport, KindMalformed:
		return true
	}
	return false
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindAuthentication, KindProvider, KindTransport, KindMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is what a handler may echo back for err.
func PublicMessage(err error) string {
	if e, ok := As(err); ok && e.Kind != KindPersistence && e.Kind != KindUnknown {
		return e.Message
	}
	return "An internal error occurred"
}
