package engine

import (
	"errors"
	"fmt"
)

// ApplyError reports the change that stopped a batch.
//
// Applied counts the changes fully applied and recorded before the
// failure. Those are permanent: the batch halts, nothing rolls back, and
// the changelog keeps every entry already written. The operator re-runs
// the command to pick up where the batch stopped; the fresh diff skips
// everything that already succeeded.
type ApplyError struct {
	// Change is the change that failed.
	Change Change

	// Applied is how many changes succeeded before this one.
	Applied int

	// Err is the underlying remote or storage failure.
	Err error
}

// Error implements the error interface.
func (e *ApplyError) Error() string {
	return fmt.Sprintf("updating %s: %v (%d changes applied before failure)",
		e.Change.KeyName, e.Err, e.Applied)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// ProvisionError reports the candidate that stopped a provisioning batch.
// Keys created before the failure are real; the caller must still deliver
// their secrets.
type ProvisionError struct {
	// Candidate is the student whose key creation failed.
	Candidate Candidate

	// Created is how many keys were created before this one.
	Created int

	// Err is the underlying remote or storage failure.
	Err error
}

// Error implements the error interface.
func (e *ProvisionError) Error() string {
	return fmt.Sprintf("creating key for %s: %v (%d keys created before failure)",
		e.Candidate.Email, e.Err, e.Created)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// IsApplyError returns the *ApplyError inside err, if any.
// Uses errors.As to handle wrapped errors.
func IsApplyError(err error) (*ApplyError, bool) {
	var ae *ApplyError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsProvisionError returns the *ProvisionError inside err, if any.
// Uses errors.As to handle wrapped errors.
func IsProvisionError(err error) (*ProvisionError, bool) {
	var pe *ProvisionError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
