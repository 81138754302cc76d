package types

import "errors"

// Error taxonomy of the key-ring core. Call sites wrap these with %w,
// callers match with errors.Is.
var (
	// ErrLocked a secret-touching operation was attempted while the vault is locked
	ErrLocked = errors.New("key ring is locked")
	// ErrNotFound unknown vault / key ring id
	ErrNotFound = errors.New("key ring not found")
	// ErrUnsupportedBackend no registered backend matches the vault type
	ErrUnsupportedBackend = errors.New("unsupported key ring backend")
	// ErrValidation malformed input or a violated write-once rule
	ErrValidation = errors.New("validation failed")
	// ErrAuth wrong password
	ErrAuth = errors.New("authentication failed")
	// ErrCapability the backend refuses the operation by policy
	ErrCapability = errors.New("operation not supported by key ring")
	// ErrMigration migration is running, not needed or has nothing to migrate
	ErrMigration = errors.New("migration error")
)
