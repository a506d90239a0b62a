package domain

import (
	"fmt"
	"time"
)

// VoucherStatus values are stored verbatim in pickups.status.
type VoucherStatus string

const (
	VoucherScheduled VoucherStatus = "SCHEDULED"
	VoucherConfirmed VoucherStatus = "CONFIRMED"
	VoucherCompleted VoucherStatus = "COMPLETED"
	VoucherCancelled VoucherStatus = "CANCELLED"
	VoucherNoShow    VoucherStatus = "NO_SHOW"
)

// Terminal statuses accept no further transitions.
func (s VoucherStatus) Terminal() bool {
	return s == VoucherCompleted || s == VoucherCancelled || s == VoucherNoShow
}

// Valid reports whether s is a known status.
func (s VoucherStatus) Valid() bool {
	switch s {
	case VoucherScheduled, VoucherConfirmed, VoucherCompleted, VoucherCancelled, VoucherNoShow:
		return true
	}
	return false
}

// Voucher is the redeemable pickup record created on approval (pickups table).
type Voucher struct {
	ID            int64         `db:"id"`
	ApplicationID string        `db:"application_id"`
	PickupCode    string        `db:"pickup_code"`
	ScheduledDate time.Time     `db:"scheduled_date"`
	ScheduledTime string        `db:"scheduled_time"`
	Status        VoucherStatus `db:"status"`
	CompletedAt   *time.Time    `db:"completed_at"`
	CompletedBy   string        `db:"completed_by"`
	Notes         string        `db:"notes"`
	QRImage       []byte        `db:"qr_image"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

// ExpiryPolicy decides when an unredeemed voucher stops being valid:
// the later of scheduled_date + GraceDays and created_at + MinValidityDays.
type ExpiryPolicy struct {
	GraceDays       int
	MinValidityDays int
	Location        *time.Location
}

// DefaultExpiryPolicy is scheduled+1 day / created+7 days, in UTC.
func DefaultExpiryPolicy() ExpiryPolicy {
	return ExpiryPolicy{GraceDays: 1, MinValidityDays: 7, Location: time.UTC}
}

func (p ExpiryPolicy) loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// ExpiryDate is the last calendar day on which v can still be redeemed.
func (p ExpiryPolicy) ExpiryDate(v *Voucher) time.Time {
	loc := p.loc()
	bySchedule := CalendarDay(v.ScheduledDate, loc).AddDate(0, 0, p.GraceDays)
	byCreation := Day(v.CreatedAt, loc).AddDate(0, 0, p.MinValidityDays)
	if byCreation.After(bySchedule) {
		return byCreation
	}
	return bySchedule
}

// IsExpired is true iff today's date is strictly after ExpiryDate.
func (p ExpiryPolicy) IsExpired(v *Voucher, now time.Time) bool {
	return Day(now, p.loc()).After(p.ExpiryDate(v))
}

// CheckRedeemable applies the scanner guards in order:
// completed, cancelled, expired.
func (p ExpiryPolicy) CheckRedeemable(v *Voucher, now time.Time) error {
	switch v.Status {
	case VoucherCompleted:
		return ErrAlreadyCompleted
	case VoucherCancelled:
		return ErrCancelled
	}
	if p.IsExpired(v, now) {
		return fmt.Errorf("%w: valid until %s", ErrExpired, DateString(p.ExpiryDate(v)))
	}
	return nil
}

// Completion records who handed the package over.
type Completion struct {
	Operator string
	Notes    string
	At       time.Time
}

// Complete marks v COMPLETED. Guards are the caller's job (CheckRedeemable).
func (v *Voucher) Complete(c Completion) error {
	if v.Status == VoucherCompleted {
		return ErrAlreadyCompleted
	}
	at := c.At
	v.Status = VoucherCompleted
	v.CompletedAt = &at
	v.CompletedBy = c.Operator
	v.Notes = c.Notes
	v.UpdatedAt = at
	return nil
}

// Override applies an administrative status change (CONFIRMED, CANCELLED,
// NO_SHOW) to a non-terminal voucher.
func (v *Voucher) Override(next VoucherStatus, notes string, at time.Time) error {
	if v.Status.Terminal() {
		return fmt.Errorf("%w: pickup %s is already %s", ErrInvalidTransition, v.PickupCode, v.Status)
	}
	switch next {
	case VoucherConfirmed:
		if v.Status != VoucherScheduled {
			return fmt.Errorf("%w: only scheduled pickups can be confirmed", ErrInvalidTransition)
		}
	case VoucherCancelled, VoucherNoShow:
	default:
		return fmt.Errorf("%w: %s cannot be set directly", ErrInvalidTransition, next)
	}
	v.Status = next
	if notes != "" {
		v.Notes = notes
	}
	v.UpdatedAt = at
	return nil
}

// QRPayload is the content encoded into the voucher image.
type QRPayload struct {
	Code          string `json:"code"`
	ApplicationID string `json:"application_id"`
	Name          string `json:"name"`
	Package       string `json:"package"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

// NewQRPayload builds the image payload for v issued to app.
func NewQRPayload(v *Voucher, app *Application) QRPayload {
	return QRPayload{
		Code:          v.PickupCode,
		ApplicationID: app.ID,
		Name:          app.FullName(),
		Package:       string(app.SelectedPackage),
		Date:          DateString(v.ScheduledDate),
		Time:          v.ScheduledTime,
	}
}

var timeSlots = map[string]string{
	"morning":   "9:00 AM - 12:00 PM",
	"afternoon": "1:00 PM - 4:00 PM",
	"evening":   "4:00 PM - 6:00 PM",
}

// TimeSlotDisplay expands a slot code; unknown values pass through.
func TimeSlotDisplay(slot string) string {
	if v, ok := timeSlots[slot]; ok {
		return v
	}
	return slot
}

// ValidTimeSlot reports whether slot is one of the bookable slots.
func ValidTimeSlot(slot string) bool {
	_, ok := timeSlots[slot]
	return ok
}
