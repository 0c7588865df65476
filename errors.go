package envmeta

import (
	"errors"
	"fmt"
)

var (
	// Entity errors
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnknownBackend    = errors.New("unknown key-wrapping backend")
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// Scope-rule errors
	ErrInvalidRule = errors.New("invalid encryption-scope rule")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// Wrapping errors, shared by the providers
	ErrWrapFailed         = errors.New("key wrapping failed")
	ErrUnwrapFailed       = errors.New("key unwrapping failed")
	ErrBackendUnavailable = errors.New("key backend unavailable")
)

func NewMissingArgumentError(name string) error {
	return fmt.Errorf("%w: '%s' must not be empty", ErrInvalidArgument, name)
}

func NewUnknownBackendError(backend string) error {
	return fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}

func NewInvalidRuleError(rule, pattern string, cause error) error {
	return fmt.Errorf("%w: %s pattern %q: %w", ErrInvalidRule, rule, pattern, cause)
}
