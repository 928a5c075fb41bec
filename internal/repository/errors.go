package repository

import "errors"

// Generic repository errors. Implementations map driver errors onto these.
var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry means an insert or update violated a unique constraint.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
	// ErrTxConflict means the transaction was aborted by the database to resolve
	// a lock conflict (deadlock or serialization failure). Re-running it is safe.
	ErrTxConflict = errors.New("repository: transaction conflict")
)

// Resource-specific aliases, kept distinct in name only.
var (
	ErrUserNotFound    = ErrNotFound
	ErrRoomNotFound    = ErrNotFound
	ErrMessageNotFound = ErrNotFound
	ErrStatusNotFound  = ErrNotFound
)
