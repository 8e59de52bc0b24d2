package store

import (
	"errors"

	"gorm.io/gorm"
)

// isNotFound reports whether err is gorm's "no rows" sentinel, which
// callers treat as a legitimate empty result rather than a failure.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ErrUnavailable is returned when a store operation fails due to a
// transient connectivity error. The caller (a Job) should record the
// failure and return; idempotency covers recovery on the next tick.
var ErrUnavailable = errors.New("store: unavailable")

// ErrInvariant is returned when a caller attempts to persist a row that
// violates a storage-level invariant (e.g. pair1 < pair2 on correlation
// rows). This is a programmer error, not a transient condition.
var ErrInvariant = errors.New("store: invariant violated")

func wrapUnavailable(err error) error {
	if err == nil {
		return nil
	}
	return &storeError{kind: ErrUnavailable, cause: err}
}

func wrapInvariant(err error) error {
	if err == nil {
		return nil
	}
	return &storeError{kind: ErrInvariant, cause: err}
}

type storeError struct {
	kind  error
	cause error
}

func (e *storeError) Error() string {
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *storeError) Unwrap() error {
	return e.kind
}

func (e *storeError) Is(target error) bool {
	return target == e.kind
}
