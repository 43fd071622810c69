package engine

import "errors"

// Authorization errors.
var (
	ErrNotAdmin  = errors.New("caller is not the administrator")
	ErrNotOracle = errors.New("caller is not the oracle")
)

// State-precondition errors.
var (
	ErrSpotNotFree  = errors.New("spot is not free")
	ErrSpotFree     = errors.New("spot is already free")
	ErrNotCheckedIn = errors.New("spot is not checked in")
	ErrNotOccupied  = errors.New("spot is not occupied")
	ErrPaused       = errors.New("engine is paused")
)

// Timing errors.
var (
	ErrCheckInExpired    = errors.New("check-in window has expired")
	ErrTimeoutNotReached = errors.New("check-in timeout has not been reached")
)

// Input-validation errors.
var (
	ErrEmptyIdentity       = errors.New("identity must not be empty")
	ErrDepositTooLow       = errors.New("deposit is below the configured minimum")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrTimeoutTooShort     = errors.New("check-in timeout is below the minimum floor")
	ErrEndBeforeStart      = errors.New("end time is before start time")
	ErrExceedsWithdrawable = errors.New("amount exceeds withdrawable fees")
)

// Transfer and re-entry errors.
var (
	ErrTransferFailed = errors.New("funds transfer failed")
	ErrReentrancy     = errors.New("another guarded operation is in progress")
)
