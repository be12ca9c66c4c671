package errors

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrValidation ErrorCode = iota + 1000
	ErrUnknownVariant
	ErrRecordCorrupt
	ErrNotFound
	ErrStorageUnavailable
	ErrInvalidArgument
)

// Error constructors
func NewValidation(message string, err error) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
		Err:     err,
	}
}

func NewUnknownVariant(kind string) *AppError {
	return &AppError{
		Code:    ErrUnknownVariant,
		Message: fmt.Sprintf("unknown appointment type %q", kind),
	}
}

func NewRecordCorrupt(message string, err error) *AppError {
	return &AppError{
		Code:    ErrRecordCorrupt,
		Message: message,
		Err:     err,
	}
}

func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewStorageUnavailable(message string, err error) *AppError {
	return &AppError{
		Code:    ErrStorageUnavailable,
		Message: message,
		Err:     err,
	}
}

func NewInvalidArgument(message string) *AppError {
	return &AppError{
		Code:    ErrInvalidArgument,
		Message: message,
	}
}

// Common errors
func Validation(message string, err error) *AppError {
	return NewValidation(message, err)
}

func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func StorageUnavailable(message string, err error) *AppError {
	return NewStorageUnavailable(message, err)
}

// Code extracts the ErrorCode from err, or 0 when err carries none.
func Code(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return 0
}

func IsNotFound(err error) bool {
	return Code(err) == ErrNotFound
}

func IsRecordCorrupt(err error) bool {
	return Code(err) == ErrRecordCorrupt
}

// IsNotExist reports whether err stems from a missing file, so callers
// can treat a first run against an empty data directory as an empty
// collection instead of a storage failure.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
