package lcom

import (
	"errors"
	"fmt"
)

// ErrInvalidTypeModel is returned when a type description violates the
// model's structural rules. Match it with errors.Is.
var ErrInvalidTypeModel = errors.New("invalid type model")

// InvalidTypeModelError carries the offending type and what is wrong with it.
type InvalidTypeModelError struct {
	Type   string
	Reason string
}

func (e *InvalidTypeModelError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidTypeModel, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", ErrInvalidTypeModel, e.Type, e.Reason)
}

func (e *InvalidTypeModelError) Unwrap() error {
	return ErrInvalidTypeModel
}

func invalid(typeName, format string, args ...any) error {
	return &InvalidTypeModelError{Type: typeName, Reason: fmt.Sprintf(format, args...)}
}
