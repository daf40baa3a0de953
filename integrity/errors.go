package integrity

import "errors"

// The engine's error surface. Callers test with errors.Is. A digest
// mismatch is never an error. It comes back as is_valid=false on
// the check, because detecting mismatches is the system working,
// not the system failing.
var (
	// ErrNotFound covers both "no such file" and "file belongs to
	// someone else". The two are deliberately indistinguishable so
	// the engine never confirms another owner's file exists.
	ErrNotFound = errors.New("file does not exist")

	// ErrSizeLimitExceeded means the upload stream ran past the
	// size limit. Nothing is stored.
	ErrSizeLimitExceeded = errors.New("file exceeds size limit")

	// ErrIO is a storage or stream failure. These are typically
	// transient and callers may retry idempotent operations.
	ErrIO = errors.New("storage i/o failure")

	// ErrStorageCorruption means the metadata says the file exists
	// but the blob store has no bytes for it. This is worse than a
	// digest mismatch and distinct from ErrNotFound.
	ErrStorageCorruption = errors.New("file bytes are missing from storage")

	// ErrUnauthorized means the caller presented no owner
	// identity. Ownership mismatches do not produce this. They
	// produce ErrNotFound.
	ErrUnauthorized = errors.New("caller may not access this file")
)
