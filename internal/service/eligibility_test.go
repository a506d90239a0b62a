package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamyinka/reliefproj/internal/config"
	"github.com/iamyinka/reliefproj/internal/domain"
)

func TestCanApply_NoPriorApplication(t *testing.T) {
	f := newFixture(t)

	e, err := f.eligibility.CanApply(f.ctx, "0701 234 5678")
	require.NoError(t, err)
	assert.True(t, e.Allowed)
	assert.Equal(t, ReasonNoPriorApplication, e.Reason)
	assert.Equal(t, "07012345678", e.Phone)
	assert.Nil(t, e.DaysRemaining)
}

func TestCanApply_InvalidPhone(t *testing.T) {
	f := newFixture(t)

	_, err := f.eligibility.CanApply(f.ctx, "+1 555 0100")
	assert.ErrorIs(t, err, domain.ErrInvalidPhoneFormat)
}

func TestCanApply_PendingBlocksUntilWindowEnds(t *testing.T) {
	f := newFixture(t)
	f.submit("08012345678")

	tests := []struct {
		after     time.Duration
		allowed   bool
		remaining int
	}{
		{time.Hour, false, 21},
		{20*24*time.Hour + 23*time.Hour, false, 1},
		{21*24*time.Hour + time.Minute, true, 0},
	}
	start := f.now
	for _, tt := range tests {
		f.now = start.Add(tt.after)
		e, err := f.eligibility.CanApply(f.ctx, "08012345678")
		require.NoError(t, err)
		assert.Equal(t, tt.allowed, e.Allowed, "after %s", tt.after)
		if !tt.allowed {
			require.NotNil(t, e.DaysRemaining)
			assert.Equal(t, tt.remaining, *e.DaysRemaining, "after %s", tt.after)
			assert.Equal(t, ReasonRecentApplication, e.Reason)
		} else {
			assert.Equal(t, ReasonOutsideWindow, e.Reason)
		}
	}
}

func TestCanApply_ApprovedWithLiveVoucherBlocks(t *testing.T) {
	f := newFixture(t)
	app := f.submit("08012345678")
	f.approve(app.ID)

	f.advance(2 * 24 * time.Hour)
	e, err := f.eligibility.CanApply(f.ctx, "08012345678")
	require.NoError(t, err)
	assert.False(t, e.Allowed)
	assert.Equal(t, app.ReferenceNumber, e.Blocking.ReferenceNumber)
}

func TestCanApply_ApprovedWithExpiredVoucherAllows(t *testing.T) {
	f := newFixture(t)
	app := f.submit("08012345678")
	f.approve(app.ID)

	f.now = time.Date(2025, 10, 14, 9, 0, 0, 0, wat)
	e, err := f.eligibility.CanApply(f.ctx, "08012345678")
	require.NoError(t, err)
	assert.True(t, e.Allowed)
	assert.Equal(t, ReasonApprovedPickupExpiry, e.Reason)
}

func TestCanApply_PickedUpBlocksEvenAfterExpiry(t *testing.T) {
	f := newFixture(t)
	app := f.submit("08012345678")
	approved := f.approve(app.ID)
	_, err := f.vouchers.Complete(f.ctx, CompleteRequest{PickupID: approved.PickupID, Operator: "gate-1"})
	require.NoError(t, err)

	f.now = time.Date(2025, 10, 20, 9, 0, 0, 0, wat)
	e, err := f.eligibility.CanApply(f.ctx, "08012345678")
	require.NoError(t, err)
	assert.False(t, e.Allowed)
	require.NotNil(t, e.DaysRemaining)
	assert.Equal(t, 8, *e.DaysRemaining)
}

func TestCanApply_ApprovedWithoutVoucherAllows(t *testing.T) {
	f := newFixture(t)
	reviewed := f.now
	require.NoError(t, f.store.CreateApplication(f.ctx, &domain.Application{
		ID:              uuid.NewString(),
		ReferenceNumber: "GCR25109999",
		FirstName:       "Ada",
		LastName:        "Obi",
		Phone:           "08012345678",
		SelectedPackage: domain.PackageSmallBasic,
		PreferredDate:   f.now,
		PreferredTime:   "morning",
		Status:          domain.ApplicationApproved,
		ReviewedAt:      &reviewed,
		CreatedAt:       f.now,
	}))

	e, err := f.eligibility.CanApply(f.ctx, "08012345678")
	require.NoError(t, err)
	assert.True(t, e.Allowed)
	assert.Equal(t, ReasonApprovedNoPickup, e.Reason)
}

func TestCanApply_DefaultWindow(t *testing.T) {
	p := NewEligibilityPolicy(nil, nil, config.EligibilityConfig{}, domain.DefaultExpiryPolicy())
	assert.Equal(t, DefaultRestrictionDays, p.restrictionDays)

	p = NewEligibilityPolicy(nil, nil, config.EligibilityConfig{RestrictionDays: 30}, domain.DefaultExpiryPolicy())
	assert.Equal(t, 30, p.restrictionDays)
}
