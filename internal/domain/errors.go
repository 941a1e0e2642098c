package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyQuery         = errors.New("query cannot be empty")
	ErrInvalidSessionID   = errors.New("invalid session id")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// StorageError wraps a failure of the backing store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorageUnavailable, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

// StorageFailure wraps err as a StorageError for op. A nil err stays nil.
func StorageFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
