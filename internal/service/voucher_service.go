package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iamyinka/reliefproj/internal/domain"
	"github.com/iamyinka/reliefproj/internal/events"
	"github.com/iamyinka/reliefproj/internal/metrics"
	"github.com/iamyinka/reliefproj/internal/render"
	"github.com/iamyinka/reliefproj/internal/repository"

	"go.uber.org/zap"
)

// VoucherService scanner-side operations on pickup vouchers
type VoucherService struct {
	vouchers  repository.VouchersRepository
	apps      repository.ApplicationsRepository
	inventory *InventoryService
	notifier  *NotificationService
	renderer  render.Renderer
	publisher events.Publisher
	expiry    domain.ExpiryPolicy
	logger    *zap.Logger
	now       Clock
}

func NewVoucherService(
	vouchers repository.VouchersRepository,
	apps repository.ApplicationsRepository,
	inventory *InventoryService,
	notifier *NotificationService,
	renderer render.Renderer,
	publisher events.Publisher,
	expiry domain.ExpiryPolicy,
	logger *zap.Logger,
) *VoucherService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &VoucherService{
		vouchers:  vouchers,
		apps:      apps,
		inventory: inventory,
		notifier:  notifier,
		renderer:  renderer,
		publisher: publisher,
		expiry:    expiry,
		logger:    logger,
		now:       systemClock,
	}
}

func (s *VoucherService) SetClock(c Clock) { s.now = c }

func (s *VoucherService) location() *time.Location {
	if s.expiry.Location == nil {
		return time.UTC
	}
	return s.expiry.Location
}

// NormalizeCode trims and upper-cases a scanned or typed pickup code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RedemptionView what the scanner operator sees for a valid code
type RedemptionView struct {
	PickupID        int64                `json:"pickup_id"`
	PickupCode      string               `json:"pickup_code"`
	ApplicationID   string               `json:"application_id"`
	ReferenceNumber string               `json:"reference_number"`
	ApplicantName   string               `json:"applicant_name"`
	Phone           string               `json:"phone"`
	FamilySize      int                  `json:"family_size"`
	PackageType     domain.PackageType   `json:"package_type"`
	PackageName     string               `json:"package_name"`
	PackageContents string               `json:"package_contents"`
	ScheduledDate   string               `json:"scheduled_date"`
	ScheduledTime   string               `json:"scheduled_time"`
	ExpiryDate      string               `json:"expiry_date"`
	Status          domain.VoucherStatus `json:"status"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
	CompletedBy     string               `json:"completed_by,omitempty"`
	Notes           string               `json:"notes,omitempty"`
}

func (s *VoucherService) redemptionView(ctx context.Context, v *domain.Voucher, a *domain.Application) *RedemptionView {
	name, contents := s.inventory.Contents(ctx, a.SelectedPackage)
	return &RedemptionView{
		PickupID:        v.ID,
		PickupCode:      v.PickupCode,
		ApplicationID:   a.ID,
		ReferenceNumber: a.ReferenceNumber,
		ApplicantName:   a.FullName(),
		Phone:           a.Phone,
		FamilySize:      a.FamilySize,
		PackageType:     a.SelectedPackage,
		PackageName:     name,
		PackageContents: contents,
		ScheduledDate:   domain.DateString(v.ScheduledDate),
		ScheduledTime:   domain.TimeSlotDisplay(v.ScheduledTime),
		ExpiryDate:      domain.DateString(s.expiry.ExpiryDate(v)),
		Status:          v.Status,
		CompletedAt:     v.CompletedAt,
		CompletedBy:     v.CompletedBy,
		Notes:           v.Notes,
	}
}

func scanResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrAlreadyCompleted):
		return "already_completed"
	case errors.Is(err, domain.ErrCancelled):
		return "cancelled"
	case errors.Is(err, domain.ErrExpired):
		return "expired"
	}
	return "error"
}

func (s *VoucherService) byCode(ctx context.Context, code string) (*domain.Voucher, error) {
	code = NormalizeCode(code)
	if code == "" {
		v := domain.NewValidationError()
		v.Add("pickup_code", "Pickup code is required.")
		return nil, v
	}
	return s.vouchers.GetVoucherByCode(ctx, code)
}

// Verify checks a code without changing anything.
func (s *VoucherService) Verify(ctx context.Context, code string) (view *RedemptionView, err error) {
	defer func() { metrics.RecordScan("verify", scanResult(err)) }()

	v, err := s.byCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.expiry.CheckRedeemable(v, s.now()); err != nil {
		return nil, err
	}
	a, err := s.apps.GetApplication(ctx, v.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load application for pickup %s: %w", v.PickupCode, err)
	}
	return s.redemptionView(ctx, v, a), nil
}

// CompleteRequest identifies the voucher by id or by code.
type CompleteRequest struct {
	PickupID   int64
	PickupCode string
	Operator   string
	Notes      string
}

// Complete hands the package over: the voucher becomes COMPLETED and its
// application PICKED_UP in one repository transaction.
func (s *VoucherService) Complete(ctx context.Context, req CompleteRequest) (view *RedemptionView, err error) {
	defer func() { metrics.RecordScan("complete", scanResult(err)) }()

	var v *domain.Voucher
	switch {
	case req.PickupID > 0:
		v, err = s.vouchers.GetVoucher(ctx, req.PickupID)
	case strings.TrimSpace(req.PickupCode) != "":
		v, err = s.byCode(ctx, req.PickupCode)
	default:
		ve := domain.NewValidationError()
		ve.Add("pickup_id", "Either pickup_id or pickup_code is required.")
		return nil, ve
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	done, err := s.vouchers.CompleteVoucher(ctx, v.ID, func(locked *domain.Voucher) error {
		return s.expiry.CheckRedeemable(locked, now)
	}, domain.Completion{Operator: req.Operator, Notes: req.Notes, At: now})
	if err != nil {
		return nil, err
	}

	a, err := s.apps.GetApplication(ctx, done.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load application for pickup %s: %w", done.PickupCode, err)
	}
	s.logger.Info("Pickup completed",
		zap.String("pickup_code", done.PickupCode),
		zap.String("reference_number", a.ReferenceNumber),
		zap.String("operator", req.Operator),
	)

	s.publish(ctx, events.Event{
		Type:            events.PickupCompleted,
		ApplicationID:   a.ID,
		ReferenceNumber: a.ReferenceNumber,
		PickupCode:      done.PickupCode,
		Status:          string(done.Status),
		Actor:           req.Operator,
		At:              now,
	})
	if s.notifier != nil {
		s.notifier.PackageCollected(ctx, a)
	}
	return s.redemptionView(ctx, done, a), nil
}

// Override sets CONFIRMED, CANCELLED or NO_SHOW on a voucher.
func (s *VoucherService) Override(ctx context.Context, id int64, status domain.VoucherStatus, notes, actor string) (*domain.Voucher, error) {
	if !status.Valid() {
		v := domain.NewValidationError()
		v.Add("status", fmt.Sprintf("%q is not a valid pickup status.", status))
		return nil, v
	}
	now := s.now()
	v, err := s.vouchers.UpdateVoucher(ctx, id, func(locked *domain.Voucher) error {
		return locked.Override(status, notes, now)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Pickup status changed", zap.String("pickup_code", v.PickupCode), zap.String("status", string(v.Status)), zap.String("actor", actor))
	s.publish(ctx, events.Event{
		Type:          events.PickupStatusChanged,
		ApplicationID: v.ApplicationID,
		PickupCode:    v.PickupCode,
		Status:        string(v.Status),
		Actor:         actor,
		At:            now,
	})
	return v, nil
}

// VoucherStatusView applicant-facing voucher status
type VoucherStatusView struct {
	PickupCode      string               `json:"pickup_code"`
	ReferenceNumber string               `json:"reference_number"`
	ApplicantName   string               `json:"applicant_name"`
	PackageName     string               `json:"package_name"`
	Status          domain.VoucherStatus `json:"status"`
	ScheduledDate   string               `json:"scheduled_date"`
	ScheduledTime   string               `json:"scheduled_time"`
	ExpiryDate      string               `json:"expiry_date"`
	IsExpired       bool                 `json:"is_expired"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
}

func (s *VoucherService) Status(ctx context.Context, code string) (*VoucherStatusView, error) {
	v, err := s.byCode(ctx, code)
	if err != nil {
		return nil, err
	}
	a, err := s.apps.GetApplication(ctx, v.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load application for pickup %s: %w", v.PickupCode, err)
	}
	name, _ := s.inventory.Contents(ctx, a.SelectedPackage)
	return &VoucherStatusView{
		PickupCode:      v.PickupCode,
		ReferenceNumber: a.ReferenceNumber,
		ApplicantName:   a.FullName(),
		PackageName:     name,
		Status:          v.Status,
		ScheduledDate:   domain.DateString(v.ScheduledDate),
		ScheduledTime:   domain.TimeSlotDisplay(v.ScheduledTime),
		ExpiryDate:      domain.DateString(s.expiry.ExpiryDate(v)),
		IsExpired:       v.Status != domain.VoucherCompleted && s.expiry.IsExpired(v, s.now()),
		CompletedAt:     v.CompletedAt,
	}, nil
}

// QueueEntry one row of a pickup list
type QueueEntry struct {
	PickupID        int64                `json:"pickup_id"`
	PickupCode      string               `json:"pickup_code"`
	ReferenceNumber string               `json:"reference_number"`
	ApplicantName   string               `json:"applicant_name"`
	Phone           string               `json:"phone"`
	PackageType     domain.PackageType   `json:"package_type"`
	ScheduledDate   string               `json:"scheduled_date"`
	ScheduledTime   string               `json:"scheduled_time"`
	Status          domain.VoucherStatus `json:"status"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
	CompletedBy     string               `json:"completed_by,omitempty"`
}

func (s *VoucherService) queueEntries(ctx context.Context, vouchers []*domain.Voucher) []QueueEntry {
	out := make([]QueueEntry, 0, len(vouchers))
	for _, v := range vouchers {
		e := QueueEntry{
			PickupID:      v.ID,
			PickupCode:    v.PickupCode,
			ScheduledDate: domain.DateString(v.ScheduledDate),
			ScheduledTime: domain.TimeSlotDisplay(v.ScheduledTime),
			Status:        v.Status,
			CompletedAt:   v.CompletedAt,
			CompletedBy:   v.CompletedBy,
		}
		if a, err := s.apps.GetApplication(ctx, v.ApplicationID); err == nil {
			e.ReferenceNumber = a.ReferenceNumber
			e.ApplicantName = a.FullName()
			e.Phone = a.Phone
			e.PackageType = a.SelectedPackage
		} else {
			s.logger.Warn("Pickup without readable application", zap.Int64("pickup_id", v.ID), zap.Error(err))
		}
		out = append(out, e)
	}
	return out
}

// TodayQueue SCHEDULED and CONFIRMED pickups for today, ordered by slot.
func (s *VoucherService) TodayQueue(ctx context.Context) ([]QueueEntry, error) {
	today := domain.Day(s.now(), s.location())
	vs, err := s.vouchers.ListVouchersForDate(ctx, today, []domain.VoucherStatus{domain.VoucherScheduled, domain.VoucherConfirmed})
	if err != nil {
		return nil, fmt.Errorf("failed to list today's pickups: %w", err)
	}
	return s.queueEntries(ctx, vs), nil
}

// RecentScans most recently completed pickups.
func (s *VoucherService) RecentScans(ctx context.Context, limit int) ([]QueueEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	vs, err := s.vouchers.ListRecentlyCompleted(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent scans: %w", err)
	}
	return s.queueEntries(ctx, vs), nil
}

// Image returns the voucher PNG, rendering and storing it first if absent.
func (s *VoucherService) Image(ctx context.Context, id int64) ([]byte, error) {
	v, err := s.vouchers.GetVoucher(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(v.QRImage) > 0 {
		return v.QRImage, nil
	}
	a, err := s.apps.GetApplication(ctx, v.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load application for pickup %s: %w", v.PickupCode, err)
	}
	return s.EnsureImage(ctx, v, a)
}

// EnsureImage renders v's QR code when it has none and saves it.
func (s *VoucherService) EnsureImage(ctx context.Context, v *domain.Voucher, a *domain.Application) ([]byte, error) {
	if len(v.QRImage) > 0 {
		return v.QRImage, nil
	}
	png, err := s.renderer.Render(domain.NewQRPayload(v, a))
	if err != nil {
		return nil, fmt.Errorf("failed to render QR for %s: %w", v.PickupCode, err)
	}
	if err := s.vouchers.SaveVoucherImage(ctx, v.ID, png); err != nil {
		return nil, fmt.Errorf("failed to save QR for %s: %w", v.PickupCode, err)
	}
	v.QRImage = png
	return png, nil
}

func (s *VoucherService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("Failed to publish event", zap.String("type", e.Type), zap.Error(err))
	}
}
