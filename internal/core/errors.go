package core

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error for callers and the HTTP layer.
type Kind string

const (
	KindNotFound       Kind = "not_found"
	KindDuplicateKey   Kind = "duplicate_key"
	KindInvalidFormat  Kind = "invalid_format"
	KindValidation     Kind = "validation_error"
	KindReference      Kind = "reference_error"
	KindMissingColumns Kind = "missing_columns"
	KindInternal       Kind = "internal_error"
)

// Error carries an error kind plus a human-readable message naming the
// offending id or field.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Errf builds a kinded error with a formatted message.
func Errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of err, or KindInternal for anything unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
