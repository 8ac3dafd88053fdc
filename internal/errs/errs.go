// Package errs defines the error taxonomy shared by all Switchboard
// operations. Every operation outcome that is not success falls into
// exactly one of these kinds, and collaborator layers map each kind to a
// distinct outward status.
package errs

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrValidation marks a required field that is missing or a value
	// outside its declared constraint. Detectable before touching the store.
	ErrValidation = errors.New("validation failed")

	// ErrReference marks a foreign-key target that does not exist.
	ErrReference = errors.New("referenced entity not found")

	// ErrDuplicate marks a uniqueness violation (recipient pair, user email).
	ErrDuplicate = errors.New("duplicate key")

	// ErrNotFound marks an entity id that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied marks a caller without visibility of the target.
	ErrAccessDenied = errors.New("access denied")

	// ErrStoreUnavailable marks a transient store failure. Callers may
	// retry with backoff; nothing else in the taxonomy is retryable.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Validationf wraps ErrValidation with a formatted detail message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// Referencef wraps ErrReference with a formatted detail message.
func Referencef(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrReference)...)
}

// Duplicatef wraps ErrDuplicate with a formatted detail message.
func Duplicatef(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrDuplicate)...)
}

// NotFoundf wraps ErrNotFound with a formatted detail message.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// AccessDeniedf wraps ErrAccessDenied with a formatted detail message.
func AccessDeniedf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrAccessDenied)...)
}

// Store classifies an error returned by the store. GORM translated errors
// map onto the taxonomy; anything unrecognized is treated as transient.
func Store(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s: %w", op, ErrReference)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	default:
		return fmt.Errorf("%s: %v: %w", op, err, ErrStoreUnavailable)
	}
}
