package core

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// ErrorKind tags an AppError so the transport layer can map it to a status.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindInvalidInput
	KindNotFound
	KindAlreadyExists
	KindForbidden
	KindInvalidAmount
)

var kindNames = map[ErrorKind]string{
	KindUnknown:       "Unknown",
	KindInvalidInput:  "InvalidInput",
	KindNotFound:      "NotFound",
	KindAlreadyExists: "AlreadyExists",
	KindForbidden:     "Forbidden",
	KindInvalidAmount: "InvalidAmount",
}

func (k ErrorKind) String() string { return kindNames[k] }

// AppError is a domain error carrying its taxonomy tag.
type AppError struct {
	Kind    ErrorKind
	Message string
}

func (err *AppError) Error() string { return err.Message }

func NewInvalidInputError(msg string) error  { return &AppError{Kind: KindInvalidInput, Message: msg} }
func NewNotFoundError(msg string) error      { return &AppError{Kind: KindNotFound, Message: msg} }
func NewAlreadyExistsError(msg string) error { return &AppError{Kind: KindAlreadyExists, Message: msg} }
func NewForbiddenError(msg string) error     { return &AppError{Kind: KindForbidden, Message: msg} }
func NewInvalidAmountError(msg string) error { return &AppError{Kind: KindInvalidAmount, Message: msg} }

// ErrorKindOf returns the taxonomy tag of err, looking through wrapped errors.
func ErrorKindOf(err error) ErrorKind {
	switch origErr := errors.Cause(err).(type) {
	case nil:
		return KindUnknown
	case *AppError:
		return origErr.Kind
	case *ValidationError, validator.ValidationErrors:
		return KindInvalidInput
	}
	return KindUnknown
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
