package models

import (
	"errors"
	"sort"
	"strings"
)

type ErrCode string

const (
	CodeValidation         ErrCode = "VALIDATION_ERROR"
	CodeInvalidID          ErrCode = "INVALID_ID"
	CodeDuplicateKey       ErrCode = "DUPLICATE_KEY"
	CodeNotFound           ErrCode = "NOT_FOUND"
	CodeInvalidQuantity    ErrCode = "INVALID_QUANTITY"
	CodeInsufficientCopies ErrCode = "INSUFFICIENT_COPIES"
	CodeUnavailable        ErrCode = "STORE_UNAVAILABLE"
)

// Error is a domain error carrying a code the HTTP layer maps to a status.
// Two Errors match under errors.Is when their codes are equal.
type Error struct {
	Code    ErrCode
	Message string
	Fields  map[string]string // only for CodeValidation
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Fields) > 0 {
		msg += ": " + e.fieldSummary()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

func (e *Error) fieldSummary() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return strings.Join(parts, "; ")
}

var (
	ErrValidation         = &Error{Code: CodeValidation, Message: "Validation failed"}
	ErrInvalidID          = &Error{Code: CodeInvalidID, Message: "Invalid ID"}
	ErrDuplicateKey       = &Error{Code: CodeDuplicateKey, Message: "Duplicate key error"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "Not found"}
	ErrBookNotFound       = &Error{Code: CodeNotFound, Message: "Book not found"}
	ErrInvalidQuantity    = &Error{Code: CodeInvalidQuantity, Message: "Quantity must be > 0"}
	ErrInsufficientCopies = &Error{Code: CodeInsufficientCopies, Message: "Not enough copies available"}
	ErrUnavailable        = &Error{Code: CodeUnavailable, Message: "Store unavailable"}
)

func NewValidationError(fields map[string]string) error {
	return &Error{Code: CodeValidation, Message: "Validation failed", Fields: fields}
}

// WithFieldError adds a field message to err, creating a validation error if
// err is nil. Non-validation errors are returned unchanged.
func WithFieldError(err error, field, msg string) error {
	if err == nil {
		return NewValidationError(map[string]string{field: msg})
	}
	var e *Error
	if errors.As(err, &e) && e.Code == CodeValidation {
		fields := make(map[string]string, len(e.Fields)+1)
		for k, v := range e.Fields {
			fields[k] = v
		}
		fields[field] = msg
		return NewValidationError(fields)
	}
	return err
}

// Wrap returns a copy of base with cause attached.
func Wrap(base *Error, cause error) error {
	return &Error{Code: base.Code, Message: base.Message, Fields: base.Fields, Err: cause}
}

// Code extracts the domain code of err, or "" when err is not a domain error.
func Code(err error) ErrCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
