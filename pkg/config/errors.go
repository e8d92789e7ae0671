package config

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Error reports a missing or malformed setting for one configured component.
type Error struct {
	Component string
	Field     string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Component)
	b.WriteString(" configuration")
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalidConfig
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Missing builds an Error for a required setting that is absent.
func Missing(component, field string) *Error {
	return &Error{
		Component: component,
		Field:     field,
		Err:       fmt.Errorf("%s is required", field),
	}
}
