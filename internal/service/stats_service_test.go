package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamyinka/reliefproj/internal/domain"
)

func TestDailyStats(t *testing.T) {
	f := newFixture(t)
	a1 := f.submit("08012345678")
	a2 := f.submit("08022222222")
	f.submit("08033333333")

	p1 := f.approve(a1.ID)
	_, err := f.apps.Reject(f.ctx, ReviewRequest{ApplicationID: a2.ID, Reviewer: "reviewer-1"})
	require.NoError(t, err)
	_, err = f.vouchers.Complete(f.ctx, CompleteRequest{PickupID: p1.PickupID, Operator: "gate-1"})
	require.NoError(t, err)

	st, err := f.stats.Daily(f.ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-06", domain.DateString(st.Date))
	assert.Equal(t, 3, st.ApplicationsSubmitted)
	assert.Equal(t, 1, st.ApplicationsApproved)
	assert.Equal(t, 1, st.ApplicationsRejected)
	assert.Equal(t, 1, st.PackagesPickedUp)
	assert.True(t, decimal.NewFromInt(5000).Equal(st.TotalCashDistributed))

	yesterday, err := f.stats.Daily(f.ctx, f.now.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Zero(t, yesterday.ApplicationsSubmitted)
}

func TestSnapshotAndDailyOrStored(t *testing.T) {
	f := newFixture(t)
	f.submit("08012345678")

	_, err := f.stats.Stored(f.ctx, f.now)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	snap, err := f.stats.Snapshot(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ApplicationsSubmitted)

	stored, err := f.stats.Stored(f.ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.ApplicationsSubmitted)

	// the next day, the snapshot is served for the past day even though
	// live counters have moved on
	day := f.now
	f.advance(24 * time.Hour)
	f.submit("08022222222")
	past, err := f.stats.DailyOrStored(f.ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 1, past.ApplicationsSubmitted)

	today, err := f.stats.DailyOrStored(f.ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, today.ApplicationsSubmitted)
}
