package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpiryDate_TakesLaterThreshold(t *testing.T) {
	p := DefaultExpiryPolicy()

	// scheduled soon after creation: creation+7 wins
	v := &Voucher{ScheduledDate: date(2025, 3, 2), CreatedAt: date(2025, 3, 1).Add(15 * time.Hour)}
	assert.Equal(t, date(2025, 3, 8), p.ExpiryDate(v))

	// scheduled far ahead: scheduled+1 wins
	v = &Voucher{ScheduledDate: date(2025, 3, 20), CreatedAt: date(2025, 3, 1)}
	assert.Equal(t, date(2025, 3, 21), p.ExpiryDate(v))
}

func TestIsExpired_Boundary(t *testing.T) {
	p := DefaultExpiryPolicy()
	v := &Voucher{ScheduledDate: date(2025, 3, 20), CreatedAt: date(2025, 3, 1)}

	assert.False(t, p.IsExpired(v, date(2025, 3, 20).Add(10*time.Hour)))
	// exactly on the expiry date, even late in the day, is still valid
	assert.False(t, p.IsExpired(v, date(2025, 3, 21).Add(23*time.Hour+59*time.Minute)))
	assert.True(t, p.IsExpired(v, date(2025, 3, 22)))
}

func TestIsExpired_UsesPolicyLocation(t *testing.T) {
	lagos := time.FixedZone("WAT", 3600)
	p := ExpiryPolicy{GraceDays: 1, MinValidityDays: 7, Location: lagos}
	v := &Voucher{ScheduledDate: date(2025, 3, 20), CreatedAt: date(2025, 3, 1)}

	// 23:30 UTC on the 21st is already the 22nd in Lagos
	now := time.Date(2025, 3, 21, 23, 30, 0, 0, time.UTC)
	assert.True(t, p.IsExpired(v, now))
	assert.False(t, DefaultExpiryPolicy().IsExpired(v, now))
}

func TestCheckRedeemable_GuardOrder(t *testing.T) {
	p := DefaultExpiryPolicy()
	past := &Voucher{ScheduledDate: date(2025, 1, 1), CreatedAt: date(2025, 1, 1)}
	now := date(2025, 6, 1)

	past.Status = VoucherCompleted
	assert.ErrorIs(t, p.CheckRedeemable(past, now), ErrAlreadyCompleted)

	past.Status = VoucherCancelled
	assert.ErrorIs(t, p.CheckRedeemable(past, now), ErrCancelled)

	past.Status = VoucherScheduled
	assert.ErrorIs(t, p.CheckRedeemable(past, now), ErrExpired)

	assert.NoError(t, p.CheckRedeemable(past, date(2025, 1, 8)))
}

func TestVoucherComplete(t *testing.T) {
	at := date(2025, 3, 5).Add(11 * time.Hour)
	v := &Voucher{Status: VoucherScheduled}
	require.NoError(t, v.Complete(Completion{Operator: "desk-1", Notes: "ok", At: at}))
	assert.Equal(t, VoucherCompleted, v.Status)
	require.NotNil(t, v.CompletedAt)
	assert.Equal(t, at, *v.CompletedAt)
	assert.Equal(t, "desk-1", v.CompletedBy)

	assert.ErrorIs(t, v.Complete(Completion{At: at}), ErrAlreadyCompleted)
}

func TestVoucherOverride(t *testing.T) {
	now := date(2025, 3, 5)
	v := &Voucher{Status: VoucherScheduled}
	require.NoError(t, v.Override(VoucherConfirmed, "", now))
	assert.Equal(t, VoucherConfirmed, v.Status)

	assert.ErrorIs(t, v.Override(VoucherConfirmed, "", now), ErrInvalidTransition)
	assert.ErrorIs(t, v.Override(VoucherCompleted, "", now), ErrInvalidTransition)

	require.NoError(t, v.Override(VoucherNoShow, "did not come", now))
	assert.Equal(t, "did not come", v.Notes)
	assert.ErrorIs(t, v.Override(VoucherCancelled, "", now), ErrInvalidTransition)
}

func TestQRPayloadJSON(t *testing.T) {
	app := &Application{ID: "a-1", FirstName: "Ada", LastName: "Obi", SelectedPackage: PackageSmallBasic}
	v := &Voucher{PickupCode: "GCRABCDEF123456", ScheduledDate: date(2025, 3, 20), ScheduledTime: "morning"}

	raw, err := json.Marshal(NewQRPayload(v, app))
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"GCRABCDEF123456","application_id":"a-1","name":"Ada Obi","package":"small_basic","date":"2025-03-20","time":"morning"}`, string(raw))
}

func TestTimeSlotDisplay(t *testing.T) {
	assert.Equal(t, "9:00 AM - 12:00 PM", TimeSlotDisplay("morning"))
	assert.Equal(t, "4:00 PM - 6:00 PM", TimeSlotDisplay("evening"))
	assert.Equal(t, "noon", TimeSlotDisplay("noon"))
	assert.True(t, ValidTimeSlot("afternoon"))
	assert.False(t, ValidTimeSlot("night"))
}
