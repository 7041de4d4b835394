package domain

import (
	"math"
	"math/big"
)

// ──────────────────────────────────────────────────────────────────────────────
// Constants
// ──────────────────────────────────────────────────────────────────────────────

const (
	// BpsDenominator is the basis-point scale: a share of 10 000 bps is 100 %
	// of a target's funding goal.
	BpsDenominator int64 = 10_000

	// CurrencyScale is the number of smallest units per display unit
	// (kuruş per TRY).
	CurrencyScale int64 = 100

	// MinPartAmount is the smallest nonzero stake a split part may carry:
	// 10 TRY expressed in smallest units.
	MinPartAmount = 10 * CurrencyScale

	// MinSplitParts and MaxSplitParts bound how many pieces a position can be
	// divided into in one operation.
	MinSplitParts = 2
	MaxSplitParts = 10
)

// ──────────────────────────────────────────────────────────────────────────────
// Split / merge validation
// ──────────────────────────────────────────────────────────────────────────────

// ValidateSplit checks a proposed division of a position's staked amount.
// Pure — no state is read or written.
//
// Rules, checked in order:
//  1. part count must be within [MinSplitParts, MaxSplitParts]
//  2. no part may be zero — except the bookkeeping case of an empty position
//     (original == 0) split into exactly two zero parts, which is accepted
//  3. while original > 0, every part must be at least MinPartAmount
//  4. every nonzero part must be an exact multiple of MinPartAmount
//  5. the parts must sum to exactly the original amount
func ValidateSplit(original int64, parts []int64) error {
	if len(parts) < MinSplitParts || len(parts) > MaxSplitParts {
		return ErrInvalidPartCount
	}

	// Empty-position bookkeeping: splitting a zero stake into two zero halves.
	if original == 0 && len(parts) == 2 && parts[0] == 0 && parts[1] == 0 {
		return nil
	}

	var sum int64
	for _, p := range parts {
		if p < 0 {
			return ErrBelowMinimumPart
		}
		if p == 0 {
			return ErrZeroPartAmount
		}
		if original > 0 && p < MinPartAmount {
			return ErrBelowMinimumPart
		}
		if p%MinPartAmount != 0 {
			return ErrInvalidIncrement
		}
		var err error
		if sum, err = SafeAdd(sum, p); err != nil {
			return err
		}
	}
	if sum != original {
		return ErrSumMismatch
	}
	return nil
}

// ValidateMerge checks that the given positions can be combined into one:
// at least two of them, all referencing the same target. Ownership is the
// ledger's concern, not ShareMath's.
func ValidateMerge(positions []*Position) error {
	if len(positions) < 2 {
		return ErrInsufficientCount
	}
	target := positions[0].TargetID
	for _, p := range positions[1:] {
		if p.TargetID != target {
			return ErrMixedTargets
		}
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Proportional arithmetic
// ──────────────────────────────────────────────────────────────────────────────

// Proportional returns floor(base * numerator / denominator), or 0 when the
// denominator is zero. The intermediate product goes through big.Int so it
// cannot wrap even for stakes near the int64 limit.
func Proportional(base, numerator, denominator int64) int64 {
	if denominator == 0 {
		return 0
	}
	p := new(big.Int).Mul(big.NewInt(base), big.NewInt(numerator))
	p.Quo(p, big.NewInt(denominator))
	return p.Int64()
}

// DistributionAmount returns a position's cut of a settlement:
// floor(proceeds * share / totalShare), or 0 when totalShare is zero.
//
// Repeated application across all positions of a target under-distributes by
// up to (positionCount - 1) smallest units per settlement. That remainder is
// accepted drift: it stays in the token treasury and is never swept.
func DistributionAmount(shareBps, totalShareBps, proceeds int64) int64 {
	return Proportional(proceeds, shareBps, totalShareBps)
}

// SafeAdd returns a + b, or ErrAmountOverflow if the sum would wrap.
// Inputs are expected to be non-negative ledger amounts.
func SafeAdd(a, b int64) (int64, error) {
	if a > math.MaxInt64-b {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}
