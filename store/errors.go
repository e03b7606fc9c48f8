package store

import (
	"fmt"
	"net/http"
)

// Kind classifies a failure so handlers and tests can tell, for example, a
// business-rule conflict from a malformed argument even though both reach the
// wire as 400.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindValidation
	KindNotFound
	KindConflict
)

// Error is a domain error carrying its kind, a user-facing message and
// optional per-field validation detail.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind so errors.Is(err, store.ErrNotFound) holds for any
// not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// HTTPCode maps the error kind to its wire status. Conflicts are reported as
// 400, matching the API's published status-code contract.
func (e *Error) HTTPCode() int {
	switch e.Kind {
	case KindInvalid, KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound = &Error{Kind: KindNotFound, Message: "resource not found"}
	ErrConflict = &Error{Kind: KindConflict, Message: "conflict"}
	ErrInvalid  = &Error{Kind: KindInvalid, Message: "invalid input"}
)

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Message: msg} }

func Invalid(msg string) *Error { return &Error{Kind: KindInvalid, Message: msg} }

func Validation(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}
