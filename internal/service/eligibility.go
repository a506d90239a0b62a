package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iamyinka/reliefproj/internal/config"
	"github.com/iamyinka/reliefproj/internal/domain"
	"github.com/iamyinka/reliefproj/internal/repository"
)

// DefaultRestrictionDays is the re-application window when none is configured.
const DefaultRestrictionDays = 21

// Reasons reported with an eligibility decision.
const (
	ReasonNoPriorApplication   = "no_prior_application"
	ReasonOutsideWindow        = "outside_window"
	ReasonPreviousRejected     = "previous_rejected"
	ReasonApprovedNoPickup     = "approved_without_pickup"
	ReasonApprovedPickupExpiry = "approved_pickup_expired"
	ReasonRecentApplication    = "recent_application"
)

// Eligibility is the outcome of CanApply.
type Eligibility struct {
	Allowed       bool                `json:"allowed"`
	Phone         string              `json:"phone"`
	Blocking      *domain.Application `json:"-"`
	DaysRemaining *int                `json:"days_remaining,omitempty"`
	Reason        string              `json:"reason"`
}

// EligibilityPolicy decides whether a phone number may submit a new application.
type EligibilityPolicy struct {
	apps            repository.ApplicationsRepository
	vouchers        repository.VouchersRepository
	restrictionDays int
	expiry          domain.ExpiryPolicy
	now             Clock
}

func NewEligibilityPolicy(apps repository.ApplicationsRepository, vouchers repository.VouchersRepository, cfg config.EligibilityConfig, expiry domain.ExpiryPolicy) *EligibilityPolicy {
	restrictionDays := cfg.RestrictionDays
	if restrictionDays <= 0 {
		restrictionDays = DefaultRestrictionDays
	}
	return &EligibilityPolicy{
		apps:            apps,
		vouchers:        vouchers,
		restrictionDays: restrictionDays,
		expiry:          expiry,
		now:             systemClock,
	}
}

func (p *EligibilityPolicy) SetClock(c Clock) { p.now = c }

// CanApply checks, in order: phone format, prior application, window age,
// REJECTED status, then an APPROVED application whose pickup expired
// uncollected. The first two bypasses short-circuit before any status check.
func (p *EligibilityPolicy) CanApply(ctx context.Context, rawPhone string) (*Eligibility, error) {
	phone, err := domain.NormalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}
	result := &Eligibility{Phone: phone}

	latest, err := p.apps.LatestApplicationByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			result.Allowed = true
			result.Reason = ReasonNoPriorApplication
			return result, nil
		}
		return nil, fmt.Errorf("failed to load previous application: %w", err)
	}

	now := p.now()
	window := time.Duration(p.restrictionDays) * 24 * time.Hour
	if latest.CreatedAt.Before(now.Add(-window)) {
		result.Allowed = true
		result.Reason = ReasonOutsideWindow
		return result, nil
	}

	switch latest.Status {
	case domain.ApplicationRejected:
		result.Allowed = true
		result.Reason = ReasonPreviousRejected
		return result, nil
	case domain.ApplicationApproved:
		lookup, err := p.vouchers.VoucherForApplication(ctx, latest.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load pickup for %s: %w", latest.ReferenceNumber, err)
		}
		if !lookup.Found {
			result.Allowed = true
			result.Reason = ReasonApprovedNoPickup
			return result, nil
		}
		if lookup.Voucher.Status != domain.VoucherCompleted && p.expiry.IsExpired(lookup.Voucher, now) {
			result.Allowed = true
			result.Reason = ReasonApprovedPickupExpiry
			return result, nil
		}
	}

	daysSince := int(now.Sub(latest.CreatedAt).Hours() / 24)
	remaining := p.restrictionDays - daysSince
	if remaining < 0 {
		remaining = 0
	}
	result.Blocking = latest
	result.DaysRemaining = &remaining
	result.Reason = ReasonRecentApplication
	return result, nil
}
