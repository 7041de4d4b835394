package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Split validation errors (pure checks, detected before any mutation)
var (
	// ErrInvalidPartCount is returned when a split requests fewer than 2 or
	// more than 10 parts.
	ErrInvalidPartCount = errors.New("split must produce between 2 and 10 parts")

	// ErrZeroPartAmount is returned when a split part is zero (except the
	// empty-position bookkeeping case: a zero position split into two zero parts).
	ErrZeroPartAmount = errors.New("split part amount cannot be zero")

	// ErrBelowMinimumPart is returned when a nonzero split part is smaller than
	// the minimum stake unit.
	ErrBelowMinimumPart = errors.New("split part is below the minimum stake unit")

	// ErrInvalidIncrement is returned when a nonzero split part is not an exact
	// multiple of the minimum stake unit.
	ErrInvalidIncrement = errors.New("split part must be a multiple of the minimum stake unit")

	// ErrSumMismatch is returned when the split parts do not add up to the
	// original staked amount.
	ErrSumMismatch = errors.New("split parts must sum to the original staked amount")
)

// Merge validation errors
var (
	// ErrInsufficientCount is returned when a merge is attempted with fewer
	// than 2 positions.
	ErrInsufficientCount = errors.New("merge requires at least 2 positions")

	// ErrMixedTargets is returned when merged positions reference different
	// collection targets.
	ErrMixedTargets = errors.New("positions reference different targets")

	// ErrOwnerMismatch is returned when merged positions do not all belong to
	// the caller.
	ErrOwnerMismatch = errors.New("positions belong to different owners")

	// ErrDuplicatePosition is returned when the same position id appears more
	// than once in a merge input.
	ErrDuplicatePosition = errors.New("duplicate position id in merge input")
)

// Position ledger errors
var (
	// ErrPositionNotFound is returned when no active position matches the id.
	// Retired positions (consumed by split or merge) are reported the same way.
	ErrPositionNotFound = errors.New("position not found")

	// ErrNotOwner is returned when a caller operates on a position they do not own.
	ErrNotOwner = errors.New("caller does not own this position")

	// ErrZeroAmount is returned when a mint is attempted with a zero stake.
	ErrZeroAmount = errors.New("staked amount cannot be zero")

	// ErrZeroAddress is returned when the position owner is the null identity.
	ErrZeroAddress = errors.New("owner cannot be the zero address")

	// ErrNoRewardsToClaim is returned when claiming a position with zero
	// accrued rewards.
	ErrNoRewardsToClaim = errors.New("no rewards to claim")

	// ErrRewardOverflow is returned when crediting rewards would wrap the
	// accrued balance.
	ErrRewardOverflow = errors.New("reward accumulation overflow")

	// ErrAmountOverflow is returned when an aggregate amount computation would
	// wrap int64.
	ErrAmountOverflow = errors.New("amount overflow")

	// ErrReentrantCall is returned when a mutating ledger operation is entered
	// while another one is still in progress.
	ErrReentrantCall = errors.New("ledger operation already in progress")
)

// Target errors
var (
	// ErrTargetNotFound is returned when no target matches the given id.
	ErrTargetNotFound = errors.New("target not found")

	// ErrTargetNotFunding is returned when a mint is attempted against a target
	// whose funding phase is closed.
	ErrTargetNotFunding = errors.New("target is not open for funding")
)

// Reward token errors
var (
	// ErrSupplyCapExceeded is returned when a token mint would push total
	// supply past the configured cap.
	ErrSupplyCapExceeded = errors.New("token supply cap exceeded")

	// ErrInsufficientBalance is returned when a token transfer exceeds the
	// source account balance.
	ErrInsufficientBalance = errors.New("insufficient token balance")
)

// Account / auth errors
var (
	// ErrUserNotFound is returned when no account matches the given criteria.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned on registration when the email already exists.
	ErrEmailTaken = errors.New("email address is already registered")

	// ErrUsernameTaken is returned on registration when the username already exists.
	ErrUsernameTaken = errors.New("username is already taken")

	// ErrInvalidCredentials is returned when login credentials are wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserInactive is returned when a suspended account attempts an action.
	ErrUserInactive = errors.New("user account is inactive")

	// ErrUnauthorized is returned when the caller lacks the role a privileged
	// ledger operation requires. Checked before any other validation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when an authenticated user lacks the required role.
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	// ErrTokenExpired is returned when a JWT has passed its TTL.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid is returned when a JWT cannot be parsed or its signature
	// does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinel errors so that
// IsNotFound can stay in sync automatically.
var notFoundErrors = []error{
	ErrPositionNotFound,
	ErrTargetNotFound,
	ErrUserNotFound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors. Use this instead of comparing error values
// directly when translating domain errors to HTTP 404 responses.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValidation returns true for errors detected by pure input validation —
// always before any state mutation, so the operation aborted cleanly.
func IsValidation(err error) bool {
	validationErrors := []error{
		ErrInvalidPartCount,
		ErrZeroPartAmount,
		ErrBelowMinimumPart,
		ErrInvalidIncrement,
		ErrSumMismatch,
		ErrInsufficientCount,
		ErrDuplicatePosition,
		ErrMixedTargets,
		ErrZeroAmount,
		ErrZeroAddress,
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict returns true for errors that represent a state conflict
// (ownership, lifecycle, or double-spend style rejections).
func IsConflict(err error) bool {
	conflictErrors := []error{
		ErrOwnerMismatch,
		ErrNotOwner,
		ErrNoRewardsToClaim,
		ErrTargetNotFunding,
		ErrReentrantCall,
		ErrEmailTaken,
		ErrUsernameTaken,
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsAuthError returns true for authentication/authorisation errors.
func IsAuthError(err error) bool {
	authErrors := []error{
		ErrUnauthorized,
		ErrForbidden,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrInvalidCredentials,
	}
	for _, target := range authErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
