package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrConflict        = errors.New("conflict")
)

// FieldError describes one invalid request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error is a classified failure raised by the core.
// Unwrap returns the kind so callers can match on the sentinel errors above.
type Error struct {
	Kind    error
	Entity  string
	ID      string
	Message string
	Fields  []FieldError
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Entity != "" {
		b.WriteString(": ")
		b.WriteString(e.Entity)
		if e.ID != "" {
			fmt.Fprintf(&b, " %q", e.ID)
		}
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	for i, f := range e.Fields {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s %s", f.Field, f.Message)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NotFound reports that entity id does not exist
func NotFound(entity, id string) error {
	return &Error{Kind: ErrNotFound, Entity: entity, ID: id}
}

// Validation reports one or more invalid fields
func Validation(fields ...FieldError) error {
	return &Error{Kind: ErrValidation, Fields: fields}
}

// InvalidField is shorthand for a single-field validation failure
func InvalidField(field, code, message string) error {
	return Validation(FieldError{Field: field, Code: code, Message: message})
}

// Unauthenticated reports that no current user is available
func Unauthenticated() error {
	return &Error{Kind: ErrUnauthenticated}
}

// Conflict reports a collision such as a duplicate name
func Conflict(entity, message string) error {
	return &Error{Kind: ErrConflict, Entity: entity, Message: message}
}

// FieldErrors extracts the field errors carried by err, if any
func FieldErrors(err error) []FieldError {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}
