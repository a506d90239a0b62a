package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamyinka/reliefproj/internal/domain"
	"github.com/iamyinka/reliefproj/internal/events"
	"github.com/iamyinka/reliefproj/internal/render"
)

func TestVerify_IsReadOnly(t *testing.T) {
	f := newFixture(t)
	app := f.submit("08012345678")
	approved := f.approve(app.ID)

	for i := 0; i < 2; i++ {
		view, err := f.vouchers.Verify(f.ctx, "  "+approved.PickupCode+" ")
		require.NoError(t, err)
		assert.Equal(t, app.ReferenceNumber, view.ReferenceNumber)
		assert.Equal(t, "Ada Obi", view.ApplicantName)
		assert.Equal(t, "Small Family Basic", view.PackageName)
		assert.Equal(t, "5kg Rice, 2kg Beans, ₦5,000 Cash", view.PackageContents)
		assert.Equal(t, "9:00 AM - 12:00 PM", view.ScheduledTime)
		assert.Equal(t, "2025-10-13", view.ExpiryDate)
		assert.Equal(t, domain.VoucherScheduled, view.Status)
	}

	v, err := f.store.GetVoucher(f.ctx, approved.PickupID)
	require.NoError(t, err)
	assert.Equal(t, domain.VoucherScheduled, v.Status)
	a, err := f.store.GetApplication(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationApproved, a.Status)
}

func TestVerify_CodeIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	f.codes.pickups = []string{"GCRABCDEF123456"}
	app := f.submit("08012345678")
	f.approve(app.ID)

	_, err := f.vouchers.Verify(f.ctx, "gcrabcdef123456")
	require.NoError(t, err)
}

func TestVerify_UnknownAndEmptyCode(t *testing.T) {
	f := newFixture(t)

	_, err := f.vouchers.Verify(f.ctx, "GCR000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.vouchers.Verify(f.ctx, "   ")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestComplete_FlipsVoucherAndApplication(t *testing.T) {
	f := newFixture(t)
	app := f.submit("08012345678")
	approved := f.approve(app.ID)
	f.advance(3 * 24 * time.Hour)

	view, err := f.vouchers.Complete(f.ctx, CompleteRequest{PickupCode: approved.PickupCode, Operator: "gate-2", Notes: "collected by spouse"})
	require.NoError(t, err)
	assert.Equal(t, domain.VoucherCompleted, view.Status)
	assert.Equal(t, "gate-2", view.CompletedBy)
	require.NotNil(t, view.CompletedAt)
	assert.True(t, view.CompletedAt.Equal(f.now))

	a, err := f.store.GetApplication(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationPickedUp, a.Status)

	_, err = f.vouchers.Verify(f.ctx, approved.PickupCode)
	assert.ErrorIs(t, err, domain.ErrAlreadyCompleted)
	_, err = f.vouchers.Complete(f.ctx, CompleteRequest{PickupID: approved.PickupID, Operator: "gate-1"})
	assert.ErrorIs(t, err, domain.ErrAlreadyCompleted)

	assert.Contains(t, f.publisher.types(), events.PickupCompleted)
	assert.Contains(t, f.sender.sent[len(f.sender.sent)-1].Message, "collected")
}

func TestComplete_RequiresIdentifier(t *testing.T) {
	f := newFixture(t)

	_, err := f.vouchers.Complete(f.ctx, CompleteRequest{Operator: "gate-1"})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.vouchers.Complete(f.ctx, CompleteRequest{PickupID: 42, Operator: "gate-1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExpiryBoundary(t *testing.T) {
	f := newFixture(t)
	app := f.submit("08012345678")
	approved := f.approve(app.ID)

	// scheduled 2025-10-09, created 2025-10-06: valid through 2025-10-13
	f.now = time.Date(2025, 10, 13, 23, 30, 0, 0, wat)
	_, err := f.vouchers.Verify(f.ctx, approved.PickupCode)
	require.NoError(t, err)

	f.now = time.Date(2025, 10, 14, 0, 30, 0, 0, wat)
	_, err = f.vouchers.Verify(f.ctx, approved.PickupCode)
	assert.ErrorIs(t, err, domain.ErrExpired)
	assert.Contains(t, err.Error(), "2025-10-13")

	_, err = f.vouchers.Complete(f.ctx, CompleteRequest{PickupCode: approved.PickupCode, Operator: "gate-1"})
	assert.ErrorIs(t, err, domain.ErrExpired)

	a, err := f.store.GetApplication(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationApproved, a.Status)

	status, err := f.vouchers.Status(f.ctx, approved.PickupCode)
	require.NoError(t, err)
	assert.True(t, status.IsExpired)
}

func TestOverride(t *testing.T) {
	f := newFixture(t)
	app := f.submit("08012345678")
	approved := f.approve(app.ID)

	v, err := f.vouchers.Override(f.ctx, approved.PickupID, domain.VoucherConfirmed, "called ahead", "staff-1")
	require.NoError(t, err)
	assert.Equal(t, domain.VoucherConfirmed, v.Status)

	_, err = f.vouchers.Override(f.ctx, approved.PickupID, domain.VoucherConfirmed, "", "staff-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.vouchers.Override(f.ctx, approved.PickupID, domain.VoucherCompleted, "", "staff-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.vouchers.Override(f.ctx, approved.PickupID, "LOST", "", "staff-1")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.vouchers.Override(f.ctx, approved.PickupID, domain.VoucherCancelled, "duplicate", "staff-1")
	require.NoError(t, err)
	_, err = f.vouchers.Verify(f.ctx, approved.PickupCode)
	assert.ErrorIs(t, err, domain.ErrCancelled)
	_, err = f.vouchers.Complete(f.ctx, CompleteRequest{PickupID: approved.PickupID, Operator: "gate-1"})
	assert.ErrorIs(t, err, domain.ErrCancelled)

	assert.Contains(t, f.publisher.types(), events.PickupStatusChanged)
}

func TestNoShowCanStillBeCollectedBeforeExpiry(t *testing.T) {
	f := newFixture(t)
	app := f.submit("08012345678")
	approved := f.approve(app.ID)

	_, err := f.vouchers.Override(f.ctx, approved.PickupID, domain.VoucherNoShow, "", "staff-1")
	require.NoError(t, err)

	_, err = f.vouchers.Complete(f.ctx, CompleteRequest{PickupID: approved.PickupID, Operator: "gate-1"})
	require.NoError(t, err)
}

func TestTodayQueueAndRecentScans(t *testing.T) {
	f := newFixture(t)
	late := f.request("08012345678")
	late.PreferredDate = domain.DateString(f.now)
	late.PreferredTime = "evening"
	a1, err := f.apps.Submit(f.ctx, late)
	require.NoError(t, err)

	early := f.request("08022222222")
	early.PreferredDate = domain.DateString(f.now)
	a2, err := f.apps.Submit(f.ctx, early)
	require.NoError(t, err)

	tomorrow := f.submit("08033333333")

	p1 := f.approve(a1.ID)
	p2 := f.approve(a2.ID)
	f.approve(tomorrow.ID)

	queue, err := f.vouchers.TodayQueue(f.ctx)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, p2.PickupCode, queue[0].PickupCode)
	assert.Equal(t, p1.PickupCode, queue[1].PickupCode)
	assert.Equal(t, "Ada Obi", queue[0].ApplicantName)

	_, err = f.vouchers.Complete(f.ctx, CompleteRequest{PickupID: p2.PickupID, Operator: "gate-1"})
	require.NoError(t, err)

	queue, err = f.vouchers.TodayQueue(f.ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)

	scans, err := f.vouchers.RecentScans(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, p2.PickupCode, scans[0].PickupCode)
	assert.Equal(t, "gate-1", scans[0].CompletedBy)
}

func TestImageIsRegeneratedWhenMissing(t *testing.T) {
	f := newFixtureWith(t, fixtureOptions{renderer: failingRenderer{}})
	app := f.submit("08012345678")
	approved := f.approve(app.ID)

	_, err := f.vouchers.Image(f.ctx, approved.PickupID)
	assert.Error(t, err)

	f.vouchers.renderer = render.NewQRRenderer()
	png, err := f.vouchers.Image(f.ctx, approved.PickupID)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])

	v, err := f.store.GetVoucher(f.ctx, approved.PickupID)
	require.NoError(t, err)
	assert.Equal(t, png, v.QRImage)
}
