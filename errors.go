package sx

import (
	"errors"
	"fmt"
)

// Kind identifies the category of an SxError, matching the taxonomy in
// spec.md §7. Kinds, not types: callers switch on Kind rather than on the
// concrete Go type.
type Kind string

const (
	KindConfigSchema       Kind = "ConfigSchema"
	KindUnknownProfile     Kind = "UnknownProfile"
	KindInvalidPath        Kind = "InvalidPath"
	KindHardDenyViolation  Kind = "HardDenyViolation"
	KindProfileRejected    Kind = "ProfileRejected"
	KindSpawnFailure       Kind = "SpawnFailure"
	KindInterrupted        Kind = "Interrupted"
)

// Sentinel errors, one per Kind, so callers can use errors.Is across
// package boundaries without depending on the concrete *SxError type.
var (
	ErrConfigSchema      = errors.New(string(KindConfigSchema))
	ErrUnknownProfile    = errors.New(string(KindUnknownProfile))
	ErrInvalidPath       = errors.New(string(KindInvalidPath))
	ErrHardDenyViolation = errors.New(string(KindHardDenyViolation))
	ErrProfileRejected   = errors.New(string(KindProfileRejected))
	ErrSpawnFailure      = errors.New(string(KindSpawnFailure))
	ErrInterrupted       = errors.New(string(KindInterrupted))
)

func sentinelFor(k Kind) error {
	switch k {
	case KindConfigSchema:
		return ErrConfigSchema
	case KindUnknownProfile:
		return ErrUnknownProfile
	case KindInvalidPath:
		return ErrInvalidPath
	case KindHardDenyViolation:
		return ErrHardDenyViolation
	case KindProfileRejected:
		return ErrProfileRejected
	case KindSpawnFailure:
		return ErrSpawnFailure
	case KindInterrupted:
		return ErrInterrupted
	default:
		return errors.New(string(k))
	}
}

// SxError is the single wrapped-error type used throughout sx. Its
// Error() string renders the fixed, machine-greppable diagnostic form
// required by spec.md §7: "sx: <kind>: <detail>".
type SxError struct {
	Kind   Kind
	Detail string
	Err    error // underlying cause, if any; may be nil
}

func (e *SxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sx: %s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("sx: %s: %s", e.Kind, e.Detail)
}

func (e *SxError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return sentinelFor(e.Kind)
}

// Is lets errors.Is(err, ErrUnknownProfile) succeed without first
// unwrapping to the underlying cause.
func (e *SxError) Is(target error) bool {
	return target == sentinelFor(e.Kind)
}

// newErr constructs an *SxError with the given kind and a formatted detail.
func newErr(kind Kind, format string, args ...any) *SxError {
	return &SxError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// wrapErr constructs an *SxError wrapping an underlying cause.
func wrapErr(kind Kind, detail string, cause error) *SxError {
	return &SxError{Kind: kind, Detail: detail, Err: cause}
}
