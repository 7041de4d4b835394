package domain_test

import (
	"errors"
	"math"
	"testing"

	"github.com/Decycle-IO/stakeledger/internal/domain"
)

// TestValidateSplitBoundaries walks the split validation rules edge by edge.
// MinPartAmount is 1 000 smallest units (10 TRY in kuruş).
func TestValidateSplitBoundaries(t *testing.T) {
	min := domain.MinPartAmount

	cases := []struct {
		name     string
		original int64
		parts    []int64
		want     error
	}{
		{"one part", 2 * min, []int64{2 * min}, domain.ErrInvalidPartCount},
		{"eleven parts", 11 * min, []int64{min, min, min, min, min, min, min, min, min, min, min}, domain.ErrInvalidPartCount},
		{"ten parts ok", 10 * min, []int64{min, min, min, min, min, min, min, min, min, min}, nil},
		{"exact minimum part", 2 * min, []int64{min, min}, nil},
		{"part of minimum minus one", 2*min - 1, []int64{min, min - 1}, domain.ErrBelowMinimumPart},
		{"zero part", 2 * min, []int64{2 * min, 0}, domain.ErrZeroPartAmount},
		{"not a multiple of the minimum", 2*min + 500, []int64{min, min + 500}, domain.ErrInvalidIncrement},
		{"sum mismatch", 3 * min, []int64{min, min}, domain.ErrSumMismatch},
		{"negative part", 2 * min, []int64{3 * min, -min}, domain.ErrBelowMinimumPart},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := domain.ValidateSplit(tc.original, tc.parts)
			if !errors.Is(err, tc.want) && !(err == nil && tc.want == nil) {
				t.Errorf("ValidateSplit(%d, %v) = %v, want %v", tc.original, tc.parts, err, tc.want)
			}
		})
	}
}

// TestValidateSplitDegenerateZero covers the empty-position bookkeeping case:
// a zero stake split into exactly two zero parts is the only configuration in
// which zero parts are accepted.
func TestValidateSplitDegenerateZero(t *testing.T) {
	if err := domain.ValidateSplit(0, []int64{0, 0}); err != nil {
		t.Errorf("zero position into two zero parts should be accepted, got %v", err)
	}
	if err := domain.ValidateSplit(0, []int64{0, 0, 0}); !errors.Is(err, domain.ErrZeroPartAmount) {
		t.Errorf("three zero parts should fail ErrZeroPartAmount, got %v", err)
	}
	if err := domain.ValidateSplit(domain.MinPartAmount, []int64{0, 0}); !errors.Is(err, domain.ErrZeroPartAmount) {
		t.Errorf("zero parts on a funded position should fail ErrZeroPartAmount, got %v", err)
	}
}

// TestProportional validates the floor-division core: floor(base*num/den),
// zero denominator defined as 0, and no intermediate overflow near MaxInt64.
func TestProportional(t *testing.T) {
	if got := domain.Proportional(100, 1, 3); got != 33 {
		t.Errorf("Proportional(100,1,3) = %d, want 33", got)
	}
	if got := domain.Proportional(100, 2, 3); got != 66 {
		t.Errorf("Proportional(100,2,3) = %d, want 66", got)
	}
	if got := domain.Proportional(100, 5, 0); got != 0 {
		t.Errorf("Proportional with zero denominator = %d, want 0", got)
	}
	// base*numerator far exceeds int64; the quotient must still be exact.
	big := int64(math.MaxInt64 / 2)
	if got := domain.Proportional(big, 10_000, 10_000); got != big {
		t.Errorf("Proportional(%d,10000,10000) = %d, want %d", big, got, big)
	}
}

// TestDistributionAmount checks the share-weighted settlement cut.
//
//	share=2500 bps of totalShare=10000 bps over proceeds=1001
//	→ floor(1001 * 2500 / 10000) = 250 (one unit of floor drift)
func TestDistributionAmount(t *testing.T) {
	if got := domain.DistributionAmount(2500, 10_000, 1001); got != 250 {
		t.Errorf("DistributionAmount = %d, want 250", got)
	}
	if got := domain.DistributionAmount(2500, 0, 1000); got != 0 {
		t.Errorf("zero total share should distribute 0, got %d", got)
	}
}

// TestValidateMerge covers the merge preconditions: at least two inputs and a
// single common target.
func TestValidateMerge(t *testing.T) {
	a := &domain.Position{ID: 1, TargetID: mustUUID("11111111-1111-1111-1111-111111111111")}
	b := &domain.Position{ID: 2, TargetID: a.TargetID}
	c := &domain.Position{ID: 3, TargetID: mustUUID("22222222-2222-2222-2222-222222222222")}

	if err := domain.ValidateMerge([]*domain.Position{a}); !errors.Is(err, domain.ErrInsufficientCount) {
		t.Errorf("single position merge = %v, want ErrInsufficientCount", err)
	}
	if err := domain.ValidateMerge([]*domain.Position{a, c}); !errors.Is(err, domain.ErrMixedTargets) {
		t.Errorf("mixed target merge = %v, want ErrMixedTargets", err)
	}
	if err := domain.ValidateMerge([]*domain.Position{a, b}); err != nil {
		t.Errorf("valid merge rejected: %v", err)
	}
}

// TestSafeAdd verifies overflow aborts instead of wrapping.
func TestSafeAdd(t *testing.T) {
	if _, err := domain.SafeAdd(math.MaxInt64, 1); !errors.Is(err, domain.ErrAmountOverflow) {
		t.Errorf("MaxInt64+1 should overflow, got %v", err)
	}
	got, err := domain.SafeAdd(40, 60)
	if err != nil || got != 100 {
		t.Errorf("SafeAdd(40,60) = %d, %v; want 100, nil", got, err)
	}
}
