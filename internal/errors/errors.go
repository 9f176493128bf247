// Package errors provides sentinel errors for lplocker operations.
package errors

import "errors"

// Validation errors
var (
	// ErrInvalidDuration indicates the requested lock duration is zero or
	// below the configured minimum.
	ErrInvalidDuration = errors.New("invalid lock duration")

	// ErrInsufficientFee indicates the create-time payment is below the
	// configured lock fee.
	ErrInsufficientFee = errors.New("payment below lock fee")

	// ErrInvalidAddress indicates a value is not a valid hex address.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrZeroAddress indicates the zero address was supplied where a real
	// address is required.
	ErrZeroAddress = errors.New("zero address not allowed")

	// ErrInvalidAmount indicates an amount is missing, negative, or not a
	// valid integer.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidTokenID indicates a position token id is not a valid
	// non-negative integer.
	ErrInvalidTokenID = errors.New("invalid position token id")
)

// Authorization errors
var (
	// ErrNotDepositor indicates the caller is not the depositor recorded on
	// the lock.
	ErrNotDepositor = errors.New("caller is not the depositor")

	// ErrNotOwner indicates the caller is not the vault owner.
	ErrNotOwner = errors.New("caller is not the owner")
)

// State errors
var (
	// ErrLockNotFound indicates the requested lock does not exist.
	ErrLockNotFound = errors.New("lock not found")

	// ErrLockNotActive indicates the lock has already been withdrawn and can
	// no longer accrue operations.
	ErrLockNotActive = errors.New("lock is not active")

	// ErrStillLocked indicates the lock has not reached its unlock time.
	ErrStillLocked = errors.New("lock has not matured")

	// ErrAlreadyWithdrawn indicates the position was already returned to the
	// depositor.
	ErrAlreadyWithdrawn = errors.New("lock already withdrawn")

	// ErrTokenAlreadyLocked indicates the position token already has an
	// active lock. Custody is exclusive.
	ErrTokenAlreadyLocked = errors.New("position token is already locked")

	// ErrAlreadyInitialized indicates the vault configuration was already
	// written. The position manager reference is immutable after init.
	ErrAlreadyInitialized = errors.New("vault already initialized")

	// ErrNotInitialized indicates the vault has no configuration yet.
	ErrNotInitialized = errors.New("vault not initialized, run 'lplocker init' first")
)

// External call failures
var (
	// ErrCustodyTransferFailed indicates the position manager rejected a
	// custody transfer.
	ErrCustodyTransferFailed = errors.New("custody transfer failed")

	// ErrHarvestFailed indicates the position manager rejected a fee harvest.
	ErrHarvestFailed = errors.New("fee harvest failed")

	// ErrFeeForwardFailed indicates the lock fee could not be forwarded to
	// the collector.
	ErrFeeForwardFailed = errors.New("fee forwarding failed")
)

// Concurrency errors
var (
	// ErrOperationInProgress indicates a mutating operation re-entered the
	// registry while another one was still executing.
	ErrOperationInProgress = errors.New("another operation is in progress")

	// ErrVaultLocked indicates another process holds the vault lock.
	ErrVaultLocked = errors.New("vault is locked by another process")
)
