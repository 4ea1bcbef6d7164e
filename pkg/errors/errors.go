package errors

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrFileMissing        = errors.New("no file uploaded")
	ErrInvalidFileFormat  = errors.New("invalid file format")
	ErrFileTooLarge       = errors.New("file too large")
	ErrEmptyFile          = errors.New("no data found in file")
	ErrSchemaValidation   = errors.New("schema validation failed")
	ErrPartitionMismatch  = errors.New("inconsistent academic year or class")
	ErrRowValidation      = errors.New("row validation failed")
	ErrDuplicateRecord    = errors.New("duplicate record")
	ErrUploadExists       = errors.New("upload already exists for partition")
	ErrUploadNotFound     = errors.New("upload not found")
	ErrResultNotFound     = errors.New("result not found")
	ErrPersistence        = errors.New("persistence failed")
	ErrArchiveUnavailable = errors.New("archived file unavailable")
)

// Is and As are re-exported so callers importing this package as "errors"
// keep the standard helpers.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s",
		e.Field, e.Value, e.Message)
}

type RetryableError struct {
	Err     error
	Message string
}

func (e RetryableError) Error() string {
	return fmt.Sprintf("retryable error: %s - %s", e.Message, e.Err.Error())
}

func (e RetryableError) Unwrap() error {
	return e.Err
}

func NewRetryableError(err error, message string) error {
	return RetryableError{
		Err:     err,
		Message: message,
	}
}
