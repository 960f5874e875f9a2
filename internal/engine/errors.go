package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/assetsync/internal/asset"
	"github.com/roach88/assetsync/internal/reconcile"
)

// SyncError represents a failure to synchronise one entity.
//
// Sync errors include:
//   - Identity resolution: a lookup that had to succeed did not
//   - Missing dependency: a schema, set, template or referenced entity is
//     absent in the target
//   - Schema drift: the payload cannot satisfy the target schema
//   - Transport: the store itself failed
type SyncError struct {
	// Code identifies the error category.
	Code SyncErrorCode

	// Ref is the entity being synchronised.
	Ref asset.Ref

	// Dependency names the missing dependency or the failing node path.
	Dependency string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// SyncErrorCode categorizes sync errors.
type SyncErrorCode string

const (
	// ErrCodeIdentityResolution indicates a required lookup found nothing.
	ErrCodeIdentityResolution SyncErrorCode = "IDENTITY_RESOLUTION"

	// ErrCodeMissingDependency indicates a required cross-reference is
	// absent in the target.
	ErrCodeMissingDependency SyncErrorCode = "MISSING_DEPENDENCY"

	// ErrCodeSchemaDrift indicates a payload irreconcilable with its schema.
	ErrCodeSchemaDrift SyncErrorCode = "SCHEMA_DRIFT"

	// ErrCodeTransport indicates an opaque store failure.
	ErrCodeTransport SyncErrorCode = "TRANSPORT"
)

// Error implements the error interface.
func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Ref)
	if e.Dependency != "" {
		msg += " [" + e.Dependency + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// ErrorCode returns the code of the first SyncError in err's chain.
func ErrorCode(err error) (SyncErrorCode, bool) {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return "", false
}

func hasCode(err error, code SyncErrorCode) bool {
	c, ok := ErrorCode(err)
	return ok && c == code
}

// IsIdentityResolution returns true if err is an identity resolution error.
// Uses errors.As to handle wrapped errors.
func IsIdentityResolution(err error) bool {
	return hasCode(err, ErrCodeIdentityResolution)
}

// IsMissingDependency returns true if err is a missing dependency error.
func IsMissingDependency(err error) bool {
	return hasCode(err, ErrCodeMissingDependency)
}

// IsSchemaDrift returns true if err is a schema drift error.
func IsSchemaDrift(err error) bool {
	return hasCode(err, ErrCodeSchemaDrift)
}

// IsTransport returns true if err is a transport error.
func IsTransport(err error) bool {
	return hasCode(err, ErrCodeTransport)
}

// isFatal reports errors that must abort under any policy.
func isFatal(err error) bool {
	return IsTransport(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// NewIdentityError creates a SyncError for a failed required lookup.
func NewIdentityError(ref asset.Ref, message string, cause error) *SyncError {
	return &SyncError{
		Code:    ErrCodeIdentityResolution,
		Ref:     ref,
		Message: message,
		Err:     cause,
	}
}

// NewMissingDependencyError creates a SyncError naming the owning entity
// and the unresolved dependency.
func NewMissingDependencyError(owner asset.Ref, dependency string, missing asset.Ref, cause error) *SyncError {
	msg := "not found in target"
	if !missing.IsZero() {
		msg = missing.String() + " not found in target"
	}
	return &SyncError{
		Code:       ErrCodeMissingDependency,
		Ref:        owner,
		Dependency: dependency,
		Message:    msg,
		Err:        cause,
	}
}

// NewSchemaDriftError promotes a reconcile.DriftError.
func NewSchemaDriftError(ref asset.Ref, cause error) *SyncError {
	se := &SyncError{
		Code: ErrCodeSchemaDrift,
		Ref:  ref,
		Err:  cause,
	}
	var drift *reconcile.DriftError
	if errors.As(cause, &drift) {
		se.Dependency = drift.Path
	}
	return se
}

// NewTransportError wraps a store failure unchanged.
func NewTransportError(ref asset.Ref, op string, cause error) *SyncError {
	return &SyncError{
		Code:    ErrCodeTransport,
		Ref:     ref,
		Message: op,
		Err:     cause,
	}
}

// transportError wraps err as a transport error unless it already carries
// a sync error code or is a context error.
func transportError(ref asset.Ref, op string, err error) error {
	var se *SyncError
	if errors.As(err, &se) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return NewTransportError(ref, op, err)
}
