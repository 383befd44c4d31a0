package models

import "errors"

// Validation errors: rejected synchronously, nothing is applied.
var (
	ErrInvalidAmount   = errors.New("amount must be a positive number of cents")
	ErrSameParty       = errors.New("requester and helper must be different users")
	ErrDuplicateEscrow = errors.New("an active escrow already exists for this favor")
)

// State errors: the caller's view of the record was stale or duplicate.
var (
	ErrEscrowNotFound    = errors.New("escrow not found")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInvalidTransition = errors.New("invalid escrow status transition")
	ErrAlreadyFinal      = errors.New("escrow is already in a terminal status")
)

// Gateway errors: recoverable. The record reverts to its pre-claim
// status and the operation may be retried.
var (
	ErrChargeFailed   = errors.New("gateway charge failed")
	ErrTransferFailed = errors.New("gateway transfer failed")
	ErrRefundFailed   = errors.New("gateway refund failed")
)

// ErrInvariantViolation means a record broke an internal consistency
// rule (fee mismatch, double credit). The record is frozen and flagged
// for manual audit; it is never auto-corrected.
var ErrInvariantViolation = errors.New("escrow internal consistency violation")
