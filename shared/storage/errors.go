package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNotFound means the tenant has no descriptive record
	ErrConfigNotFound = errors.New("configuration not found")
	// ErrInvalidConfig means the record exists but required fields are missing
	ErrInvalidConfig = errors.New("invalid configuration: missing required fields")
	// ErrInvalidConfigFormat means the record could not be decoded
	ErrInvalidConfigFormat = errors.New("invalid configuration format")

	// ErrMissingFields is returned before any write when a record is incomplete
	ErrMissingFields = errors.New("missing required fields")
	// ErrInvalidAttendance is returned when attendance is not yes, no or maybe
	ErrInvalidAttendance = errors.New("invalid attendance value")
	// ErrRecordNotFound is returned by Update for an unknown id
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidTenant is returned when a tenant id cannot address storage
	ErrInvalidTenant = errors.New("invalid tenant id")

	// ErrStorageIO wraps filesystem and database failures. Callers may retry.
	ErrStorageIO = errors.New("storage unavailable")
)

func ioError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageIO, op, err)
}

// IsRetryable reports whether err came from the underlying storage rather
// than from the caller's input
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageIO)
}
