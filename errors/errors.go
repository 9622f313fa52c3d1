package errors

import "fmt"

// Kind classifies a domain error. The API layer maps kinds onto HTTP statuses;
// callers can branch on them without string matching.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindForbidden        Kind = "forbidden"
	KindInvalidState     Kind = "invalid_state"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindValidation       Kind = "validation_error"
	// KindConflict means the optimistic retry budget was exhausted; the
	// operation is safe to retry.
	KindConflict Kind = "conflict"
)

// Error is the typed domain error returned by every service operation.
// Field is set for validation errors to name the offending input field.
type Error struct {
	Kind    Kind   `json:"error"`
	Message string `json:"error_description,omitempty"`
	Field   string `json:"field,omitempty"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewNotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func NewForbidden(description string) *Error {
	return &Error{Kind: KindForbidden, Message: description}
}

func NewInvalidState(description string) *Error {
	return &Error{Kind: KindInvalidState, Message: description}
}

func NewCapacityExceeded() *Error {
	return &Error{Kind: KindCapacityExceeded, Message: "session is at maximum capacity"}
}

func NewValidation(field, description string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: description}
}

func NewConflict(description string) *Error {
	return &Error{Kind: KindConflict, Message: description}
}

// IsKind reports whether err is a domain *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
