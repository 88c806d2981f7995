// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

import "fmt"

// ErrorCode identifies a class of error returned by the pool package.
type ErrorCode int

const (
	// ErrMalformedHash indicates a submitted hash was not a well-formed
	// hex string.
	ErrMalformedHash ErrorCode = iota

	// ErrBelowDifficulty indicates a submitted hash had fewer leading
	// zero bits than MinimumZeroBitLength.
	ErrBelowDifficulty

	// ErrHashMismatch indicates a recomputed hash did not match the
	// one claimed by the submitter.
	ErrHashMismatch

	// ErrDuplicateHash indicates a hash had already been accepted by
	// the pool.
	ErrDuplicateHash

	// ErrNoSuchLease indicates a job/submit packet referenced a job
	// number that is not currently pending for the submitter.
	ErrNoSuchLease

	// ErrLeaseRangeMismatch indicates a job/submit packet's
	// nounce_start disagreed with the pending lease it claims to
	// complete.
	ErrLeaseRangeMismatch

	// ErrPersistenceFailure indicates a write to the data directory
	// failed. Callers treat this as fatal.
	ErrPersistenceFailure
)

// String returns the human-readable name of the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrMalformedHash:
		return "ErrMalformedHash"
	case ErrBelowDifficulty:
		return "ErrBelowDifficulty"
	case ErrHashMismatch:
		return "ErrHashMismatch"
	case ErrDuplicateHash:
		return "ErrDuplicateHash"
	case ErrNoSuchLease:
		return "ErrNoSuchLease"
	case ErrLeaseRangeMismatch:
		return "ErrLeaseRangeMismatch"
	case ErrPersistenceFailure:
		return "ErrPersistenceFailure"
	default:
		return "Unknown ErrorCode"
	}
}

// PoolError wraps an ErrorCode with a descriptive message. It is the
// error type returned by every exported operation in this package.
type PoolError struct {
	ErrorCode   ErrorCode
	Description string
}

// Error satisfies the error interface.
func (e PoolError) Error() string {
	return e.Description
}

// poolError is the single convenience constructor for PoolError,
// shared by every error kind.
func poolError(code ErrorCode, format string, args ...interface{}) PoolError {
	return PoolError{
		ErrorCode:   code,
		Description: fmt.Sprintf(format, args...),
	}
}

// IsError returns whether err is a PoolError carrying the given code.
func IsError(err error, code ErrorCode) bool {
	var pErr PoolError
	if e, ok := err.(PoolError); ok {
		pErr = e
		return pErr.ErrorCode == code
	}
	return false
}
