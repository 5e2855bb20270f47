package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrBusinessObjectNotFound = errors.New("business object not found")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrOperationNotPermitted  = errors.New("operation not permitted")
	ErrConflict               = errors.New("unique value conflict")
)

// Error is a typed failure carrying the arguments a caller needs to build a
// localized message.
type Error struct {
	Kind      error  `json:"-"`
	Message   string `json:"message"`
	Class     string `json:"class,omitempty"`
	ID        string `json:"id,omitempty"`
	Attribute string `json:"attribute,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Is lets a conflict satisfy ErrInvalidArgument and a missing business
// object satisfy ErrNotFound.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case ErrConflict:
		return target == ErrInvalidArgument
	case ErrBusinessObjectNotFound:
		return target == ErrNotFound
	}
	return false
}

// WithClass records the class name argument
func (e *Error) WithClass(class string) *Error {
	e.Class = class
	return e
}

// WithID records the object id argument
func (e *Error) WithID(id string) *Error {
	e.ID = id
	return e
}

// WithAttribute records the attribute name argument
func (e *Error) WithAttribute(attribute string) *Error {
	e.Attribute = attribute
	return e
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds an ErrNotFound error
func NotFoundf(format string, args ...any) *Error {
	return newError(ErrNotFound, format, args...)
}

// InvalidArgumentf builds an ErrInvalidArgument error
func InvalidArgumentf(format string, args ...any) *Error {
	return newError(ErrInvalidArgument, format, args...)
}

// NotPermittedf builds an ErrOperationNotPermitted error
func NotPermittedf(format string, args ...any) *Error {
	return newError(ErrOperationNotPermitted, format, args...)
}

// ClassNotFound reports a missing class
func ClassNotFound(className string) *Error {
	return NotFoundf("class %s could not be found", className).WithClass(className)
}

// ObjectNotFound reports a missing business object
func ObjectNotFound(className, id string) *Error {
	return newError(ErrBusinessObjectNotFound, "object of class %s with id %s could not be found", className, id).
		WithClass(className).WithID(id)
}

// UniqueConflict reports a value already held by another instance
func UniqueConflict(className, attribute, value string) *Error {
	return newError(ErrConflict, "the value %q of attribute %s is already in use in class %s", value, attribute, className).
		WithClass(className).WithAttribute(attribute)
}

// AsError extracts the typed error from err, if any
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
