// errors.go: structured error handling for memo coordinator operations
//
// Error codes follow spec.md section 7's error kinds. ThunkFailure is
// never constructed here — it is the caller's own error, re-raised
// unwrapped by coordinator.go. The errors memo itself returns to
// application code are the Settings.Validate errors, ErrCodeNilThunk,
// ErrCodePanicRecovered (to the caller whose thunk panicked) and
// ErrCodeInternalError (from Typed on a value of another type).
// RunnerDeath is logged, never returned: waiters re-dispatch instead.
// StrategyRetry and CASLoss are internal control-flow signals and never
// leave this package.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package memo

import (
	goerrors "errors"
	"fmt"

	"github.com/agilira/go-errors"
)

// Error codes for memo coordinator operations.
const (
	// Configuration errors.
	ErrCodeInvalidMaxWaiters errors.ErrorCode = "MEMO_INVALID_MAX_WAITERS"
	ErrCodeInvalidThreshold  errors.ErrorCode = "MEMO_INVALID_THRESHOLD"
	ErrCodeInvalidExpiresIn  errors.ErrorCode = "MEMO_INVALID_EXPIRES_IN"

	// Dispatch errors.
	ErrCodeNilThunk    errors.ErrorCode = "MEMO_NIL_THUNK"
	ErrCodeRunnerDeath errors.ErrorCode = "MEMO_RUNNER_DEATH"

	// Internal and recovery errors. GetOrRun returns ErrCodePanicRecovered
	// to the caller whose thunk panicked; Typed returns ErrCodeInternalError.
	ErrCodeInternalError  errors.ErrorCode = "MEMO_INTERNAL_ERROR"
	ErrCodePanicRecovered errors.ErrorCode = "MEMO_PANIC_RECOVERED"
)

const (
	msgInvalidThreshold = "invalid threshold: min_threshold is required when max_threshold is finite"
	msgInvalidExpiresIn = "invalid expires_in: must be non-negative"
	msgNilThunk         = "thunk function cannot be nil"
	msgRunnerDeath      = "runner vanished mid-computation without completing or failing the entry"
	msgInternalError    = "internal coordinator error"
	msgPanicRecovered   = "panic recovered inside thunk"
)

// =============================================================================
// CONFIGURATION ERRORS
// =============================================================================

// NewErrInvalidThreshold creates an error for a missing MinThreshold when
// MaxThreshold is finite.
func NewErrInvalidThreshold(maxThreshold, minThreshold int64) error {
	return errors.NewWithContext(ErrCodeInvalidThreshold, msgInvalidThreshold, map[string]interface{}{
		"max_threshold": maxThreshold,
		"min_threshold": minThreshold,
	})
}

// NewErrInvalidExpiresIn creates an error for a negative expires_in.
func NewErrInvalidExpiresIn(expiresIn interface{}) error {
	return errors.NewWithField(ErrCodeInvalidExpiresIn, msgInvalidExpiresIn, "expires_in", expiresIn)
}

// =============================================================================
// DISPATCH ERRORS
// =============================================================================

// NewErrNilThunk creates an error when the thunk passed to GetOrRun is nil.
func NewErrNilThunk(key interface{}) error {
	return errors.NewWithContext(ErrCodeNilThunk, msgNilThunk, map[string]interface{}{
		"key": fmt.Sprintf("%v", key),
	})
}

// NewErrRunnerDeath creates the error logged by whichever waiter wins the
// race to clear an entry whose runner vanished mid-computation. It is not
// returned to any caller.
func NewErrRunnerDeath(key interface{}) error {
	return errors.NewWithContext(ErrCodeRunnerDeath, msgRunnerDeath, map[string]interface{}{
		"key": fmt.Sprintf("%v", key),
	}).AsRetryable()
}

// =============================================================================
// INTERNAL ERRORS
// =============================================================================

// NewErrInternal creates a generic internal coordinator error.
func NewErrInternal(operation string, cause error) error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeInternalError, msgInternalError).
			WithContext("operation", operation).
			WithSeverity("warning")
	}
	return errors.NewWithField(ErrCodeInternalError, msgInternalError, "operation", operation).
		WithSeverity("warning")
}

// NewErrPanicRecovered creates an error when a panic is recovered from a thunk.
func NewErrPanicRecovered(key interface{}, panicValue interface{}) error {
	return errors.NewWithContext(ErrCodePanicRecovered, msgPanicRecovered, map[string]interface{}{
		"key":         fmt.Sprintf("%v", key),
		"panic_value": fmt.Sprintf("%v", panicValue),
	}).WithSeverity("critical")
}

// =============================================================================
// ERROR CHECKING HELPERS
// =============================================================================

// IsRunnerDeath reports whether err is a runner-death error.
func IsRunnerDeath(err error) bool {
	return errors.HasCode(err, ErrCodeRunnerDeath)
}

// IsPanicRecovered reports whether err wraps a recovered thunk panic.
func IsPanicRecovered(err error) bool {
	return errors.HasCode(err, ErrCodePanicRecovered)
}

// IsRetryable reports whether err declares itself retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable errors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// GetErrorCode extracts the error code from err, if any.
func GetErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}

// GetErrorContext extracts structured context from err, if any.
func GetErrorContext(err error) map[string]interface{} {
	if err == nil {
		return nil
	}
	var memoErr *errors.Error
	if goerrors.As(err, &memoErr) {
		return memoErr.Context
	}
	return nil
}
