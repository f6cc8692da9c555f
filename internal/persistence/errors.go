package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a CHECK or NOT NULL constraint fails,
	// or when a record is missing a field the store requires.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKey is returned when a write references a missing row or a delete
	// would orphan dependent rows.
	ErrForeignKey = errors.New("persistence: foreign key violation")
	// ErrStaleWrite is returned when a conditional update finds the row changed.
	ErrStaleWrite = errors.New("persistence: stale write")
)
