package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/iamyinka/reliefproj/internal/domain"
	"github.com/iamyinka/reliefproj/internal/events"
	"github.com/iamyinka/reliefproj/internal/metrics"
	"github.com/iamyinka/reliefproj/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCodeAttempts bounds reference / pickup code regeneration on collision.
const DefaultCodeAttempts = 10

// ApplicationService submission, status lookup and the review workflow
type ApplicationService struct {
	apps        repository.ApplicationsRepository
	vouchers    repository.VouchersRepository
	eligibility *EligibilityPolicy
	inventory   *InventoryService
	voucherSvc  *VoucherService
	notifier    *NotificationService
	publisher   events.Publisher
	codes       domain.CodeGenerator
	maxAttempts int
	expiry      domain.ExpiryPolicy
	logger      *zap.Logger
	now         Clock
}

// ApplicationServiceDeps collaborators of ApplicationService
type ApplicationServiceDeps struct {
	Applications repository.ApplicationsRepository
	Vouchers     repository.VouchersRepository
	Eligibility  *EligibilityPolicy
	Inventory    *InventoryService
	VoucherSvc   *VoucherService
	Notifier     *NotificationService
	Publisher    events.Publisher
	Codes        domain.CodeGenerator
	MaxAttempts  int
	Expiry       domain.ExpiryPolicy
	Logger       *zap.Logger
}

func NewApplicationService(d ApplicationServiceDeps) *ApplicationService {
	if d.Publisher == nil {
		d.Publisher = events.Nop{}
	}
	if d.Codes == nil {
		d.Codes = domain.RandomCodes{}
	}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = DefaultCodeAttempts
	}
	return &ApplicationService{
		apps:        d.Applications,
		vouchers:    d.Vouchers,
		eligibility: d.Eligibility,
		inventory:   d.Inventory,
		voucherSvc:  d.VoucherSvc,
		notifier:    d.Notifier,
		publisher:   d.Publisher,
		codes:       d.Codes,
		maxAttempts: d.MaxAttempts,
		expiry:      d.Expiry,
		logger:      d.Logger,
		now:         systemClock,
	}
}

func (s *ApplicationService) SetClock(c Clock) { s.now = c }

func (s *ApplicationService) location() *time.Location {
	if s.expiry.Location == nil {
		return time.UTC
	}
	return s.expiry.Location
}

// ---- submission ----

// SubmitRequest public application form
type SubmitRequest struct {
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Phone              string `json:"phone"`
	Email              string `json:"email"`
	Address            string `json:"address"`
	FamilySize         int    `json:"family_size"`
	ChildrenCount      int    `json:"children_count"`
	ElderlyCount       int    `json:"elderly_count"`
	EmploymentStatus   string `json:"employment_status"`
	SpecialNeeds       string `json:"special_needs"`
	ChurchMember       string `json:"church_member"`
	SelectedPackage    string `json:"selected_package"`
	PackageFlexibility bool   `json:"package_flexibility"`
	PreferredDate      string `json:"preferred_date"`
	PreferredTime      string `json:"preferred_time"`
	AlternativeDate    string `json:"alternative_date"`
	AlternativeTime    string `json:"alternative_time"`
	TransportationHelp bool   `json:"transportation_help"`
	DeliveryRequest    bool   `json:"delivery_request"`
	TermsAgreement     bool   `json:"terms_agreement"`
}

// SubmitResponse summary returned to the applicant
type SubmitResponse struct {
	ID              string                   `json:"id"`
	ReferenceNumber string                   `json:"reference_number"`
	FullName        string                   `json:"full_name"`
	Phone           string                   `json:"phone"`
	SelectedPackage domain.PackageType       `json:"selected_package"`
	Status          domain.ApplicationStatus `json:"status"`
}

const requiredMsg = "This field is required."

func (s *ApplicationService) parseDate(raw string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(raw), s.location())
}

// validate checks the form and returns the application to persist.
func (s *ApplicationService) validate(ctx context.Context, req SubmitRequest, now time.Time) (*domain.Application, error) {
	v := domain.NewValidationError()
	a := &domain.Application{
		FirstName:          strings.TrimSpace(req.FirstName),
		LastName:           strings.TrimSpace(req.LastName),
		Email:              strings.TrimSpace(req.Email),
		Address:            strings.TrimSpace(req.Address),
		FamilySize:         req.FamilySize,
		ChildrenCount:      req.ChildrenCount,
		ElderlyCount:       req.ElderlyCount,
		EmploymentStatus:   strings.TrimSpace(req.EmploymentStatus),
		SpecialNeeds:       strings.TrimSpace(req.SpecialNeeds),
		ChurchMember:       strings.ToLower(strings.TrimSpace(req.ChurchMember)),
		SelectedPackage:    domain.PackageType(strings.TrimSpace(req.SelectedPackage)),
		PackageFlexibility: req.PackageFlexibility,
		PreferredTime:      strings.TrimSpace(req.PreferredTime),
		AlternativeTime:    strings.TrimSpace(req.AlternativeTime),
		TransportationHelp: req.TransportationHelp,
		DeliveryRequest:    req.DeliveryRequest,
		TermsAgreement:     req.TermsAgreement,
	}

	if a.FirstName == "" {
		v.Add("first_name", requiredMsg)
	}
	if a.LastName == "" {
		v.Add("last_name", requiredMsg)
	}
	if a.Address == "" {
		v.Add("address", requiredMsg)
	}
	if strings.TrimSpace(req.Phone) == "" {
		v.Add("phone", requiredMsg)
	} else if phone, err := domain.NormalizePhone(req.Phone); err != nil {
		v.Add("phone", "Enter a valid Nigerian phone number.")
	} else {
		a.Phone = phone
	}
	if a.Email != "" {
		if _, err := mail.ParseAddress(a.Email); err != nil {
			v.Add("email", "Enter a valid email address.")
		}
	}
	if a.FamilySize < 1 {
		v.Add("family_size", "Family size must be at least 1.")
	}
	if a.ChildrenCount < 0 {
		v.Add("children_count", "Cannot be negative.")
	}
	if a.ElderlyCount < 0 {
		v.Add("elderly_count", "Cannot be negative.")
	}
	if a.ChurchMember != "yes" && a.ChurchMember != "no" {
		v.Add("church_member", "Please select your membership status.")
	}

	switch {
	case a.SelectedPackage == "":
		v.Add("selected_package", requiredMsg)
	case !a.SelectedPackage.Valid():
		v.Add("selected_package", fmt.Sprintf("%q is not a valid package.", a.SelectedPackage))
	default:
		if _, err := s.inventory.ActivePackage(ctx, a.SelectedPackage); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("failed to load package %s: %w", a.SelectedPackage, err)
			}
			v.Add("selected_package", "The selected package is not currently available.")
		}
	}

	today := domain.Day(now, s.location())
	if strings.TrimSpace(req.PreferredDate) == "" {
		v.Add("preferred_date", requiredMsg)
	} else if d, err := s.parseDate(req.PreferredDate); err != nil {
		v.Add("preferred_date", "Enter a valid date (YYYY-MM-DD).")
	} else if d.Before(today) {
		v.Add("preferred_date", "Preferred date cannot be in the past.")
	} else {
		a.PreferredDate = d
	}
	if a.PreferredTime == "" {
		v.Add("preferred_time", requiredMsg)
	} else if !domain.ValidTimeSlot(a.PreferredTime) {
		v.Add("preferred_time", "Select a valid time slot.")
	}
	if strings.TrimSpace(req.AlternativeDate) != "" {
		if d, err := s.parseDate(req.AlternativeDate); err != nil {
			v.Add("alternative_date", "Enter a valid date (YYYY-MM-DD).")
		} else {
			a.AlternativeDate = &d
		}
	}
	if a.AlternativeTime != "" && !domain.ValidTimeSlot(a.AlternativeTime) {
		v.Add("alternative_time", "Select a valid time slot.")
	}
	if !a.TermsAgreement {
		v.Add("terms_agreement", "You must accept the terms and conditions.")
	}

	if err := v.OrNil(); err != nil {
		return nil, err
	}
	return a, nil
}

// Submit validates the form, applies the eligibility window and stores a new
// PENDING application under a fresh reference number.
func (s *ApplicationService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	now := s.now()
	a, err := s.validate(ctx, req, now)
	if err != nil {
		return nil, err
	}

	elig, err := s.eligibility.CanApply(ctx, a.Phone)
	if err != nil {
		return nil, err
	}
	if !elig.Allowed {
		metrics.RecordEligibilityBlocked()
		days := 0
		if elig.DaysRemaining != nil {
			days = *elig.DaysRemaining
		}
		return nil, &domain.EligibilityBlockedError{Blocking: elig.Blocking, DaysRemaining: days}
	}

	a.ID = uuid.NewString()
	a.Status = domain.ApplicationPending
	a.CreatedAt = now
	a.UpdatedAt = now

	for attempt := 1; ; attempt++ {
		a.ReferenceNumber = s.codes.ReferenceNumber(now)
		err = s.apps.CreateApplication(ctx, a)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrCodeCollision) {
			return nil, fmt.Errorf("failed to save application: %w", err)
		}
		metrics.RecordCodeCollision("reference")
		s.logger.Warn("Reference number collision", zap.String("reference_number", a.ReferenceNumber), zap.Int("attempt", attempt))
		if attempt >= s.maxAttempts {
			return nil, fmt.Errorf("no free reference number after %d attempts: %w", attempt, err)
		}
	}

	metrics.RecordSubmission()
	s.logger.Info("Application submitted",
		zap.String("reference_number", a.ReferenceNumber),
		zap.String("package", string(a.SelectedPackage)),
	)
	s.publish(ctx, events.Event{
		Type:            events.ApplicationSubmitted,
		ApplicationID:   a.ID,
		ReferenceNumber: a.ReferenceNumber,
		Status:          string(a.Status),
		At:              now,
	})
	if s.notifier != nil {
		s.notifier.ApplicationSubmitted(ctx, a)
	}

	return &SubmitResponse{
		ID:              a.ID,
		ReferenceNumber: a.ReferenceNumber,
		FullName:        a.FullName(),
		Phone:           a.Phone,
		SelectedPackage: a.SelectedPackage,
		Status:          a.Status,
	}, nil
}

// CheckEligibility previews the eligibility decision for a phone number.
func (s *ApplicationService) CheckEligibility(ctx context.Context, phone string) (*Eligibility, error) {
	return s.eligibility.CanApply(ctx, phone)
}

// ---- status lookup ----

// PickupSummary voucher details shown with an application
type PickupSummary struct {
	PickupID      int64                `json:"pickup_id"`
	PickupCode    string               `json:"pickup_code"`
	ScheduledDate string               `json:"scheduled_date"`
	ScheduledTime string               `json:"scheduled_time"`
	Status        domain.VoucherStatus `json:"status"`
	ExpiryDate    string               `json:"expiry_date"`
	IsExpired     bool                 `json:"is_expired"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
	CompletedBy   string               `json:"completed_by,omitempty"`
}

// StatusView applicant-facing application status
type StatusView struct {
	ReferenceNumber string                   `json:"reference_number"`
	ApplicantName   string                   `json:"applicant_name"`
	Status          domain.ApplicationStatus `json:"status"`
	StatusLabel     string                   `json:"status_label"`
	SelectedPackage domain.PackageType       `json:"selected_package"`
	PackageName     string                   `json:"package_name"`
	PreferredDate   string                   `json:"preferred_date"`
	PreferredTime   string                   `json:"preferred_time"`
	SubmittedAt     time.Time                `json:"submitted_at"`
	ReviewedAt      *time.Time               `json:"reviewed_at,omitempty"`
	Pickup          *PickupSummary           `json:"pickup,omitempty"`
}

func (s *ApplicationService) pickupSummary(v *domain.Voucher) *PickupSummary {
	return &PickupSummary{
		PickupID:      v.ID,
		PickupCode:    v.PickupCode,
		ScheduledDate: domain.DateString(v.ScheduledDate),
		ScheduledTime: domain.TimeSlotDisplay(v.ScheduledTime),
		Status:        v.Status,
		ExpiryDate:    domain.DateString(s.expiry.ExpiryDate(v)),
		IsExpired:     v.Status != domain.VoucherCompleted && s.expiry.IsExpired(v, s.now()),
		CompletedAt:   v.CompletedAt,
		CompletedBy:   v.CompletedBy,
	}
}

// CheckStatus looks an application up by reference number, or else by the
// latest application for a phone number.
func (s *ApplicationService) CheckStatus(ctx context.Context, phone, reference string) (*StatusView, error) {
	var (
		a   *domain.Application
		err error
	)
	switch {
	case strings.TrimSpace(reference) != "":
		a, err = s.apps.GetApplicationByReference(ctx, strings.ToUpper(strings.TrimSpace(reference)))
	case strings.TrimSpace(phone) != "":
		var canonical string
		canonical, err = domain.NormalizePhone(phone)
		if err != nil {
			return nil, err
		}
		a, err = s.apps.LatestApplicationByPhone(ctx, canonical)
	default:
		v := domain.NewValidationError()
		v.Add("phone", "Provide a phone number or reference number.")
		return nil, v
	}
	if err != nil {
		return nil, err
	}

	name, _ := s.inventory.Contents(ctx, a.SelectedPackage)
	view := &StatusView{
		ReferenceNumber: a.ReferenceNumber,
		ApplicantName:   a.FullName(),
		Status:          a.Status,
		StatusLabel:     a.Status.Label(),
		SelectedPackage: a.SelectedPackage,
		PackageName:     name,
		PreferredDate:   domain.DateString(a.PreferredDate),
		PreferredTime:   domain.TimeSlotDisplay(a.PreferredTime),
		SubmittedAt:     a.CreatedAt,
		ReviewedAt:      a.ReviewedAt,
	}
	if a.Status == domain.ApplicationApproved || a.Status == domain.ApplicationPickedUp {
		lookup, err := s.vouchers.VoucherForApplication(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load pickup for %s: %w", a.ReferenceNumber, err)
		}
		if lookup.Found {
			view.Pickup = s.pickupSummary(lookup.Voucher)
		}
	}
	return view, nil
}

// ---- staff views ----

// ApplicationView full application record for staff
type ApplicationView struct {
	ID                 string                   `json:"id"`
	ReferenceNumber    string                   `json:"reference_number"`
	FirstName          string                   `json:"first_name"`
	LastName           string                   `json:"last_name"`
	FullName           string                   `json:"full_name"`
	Phone              string                   `json:"phone"`
	Email              string                   `json:"email"`
	Address            string                   `json:"address"`
	FamilySize         int                      `json:"family_size"`
	ChildrenCount      int                      `json:"children_count"`
	ElderlyCount       int                      `json:"elderly_count"`
	EmploymentStatus   string                   `json:"employment_status"`
	SpecialNeeds       string                   `json:"special_needs"`
	ChurchMember       string                   `json:"church_member"`
	SelectedPackage    domain.PackageType       `json:"selected_package"`
	PackageFlexibility bool                     `json:"package_flexibility"`
	PreferredDate      string                   `json:"preferred_date"`
	PreferredTime      string                   `json:"preferred_time"`
	AlternativeDate    string                   `json:"alternative_date,omitempty"`
	AlternativeTime    string                   `json:"alternative_time,omitempty"`
	TransportationHelp bool                     `json:"transportation_help"`
	DeliveryRequest    bool                     `json:"delivery_request"`
	TermsAgreement     bool                     `json:"terms_agreement"`
	Status             domain.ApplicationStatus `json:"status"`
	ReviewedBy         string                   `json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time               `json:"reviewed_at,omitempty"`
	ReviewNotes        string                   `json:"review_notes,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

func toApplicationView(a *domain.Application) ApplicationView {
	v := ApplicationView{
		ID:                 a.ID,
		ReferenceNumber:    a.ReferenceNumber,
		FirstName:          a.FirstName,
		LastName:           a.LastName,
		FullName:           a.FullName(),
		Phone:              a.Phone,
		Email:              a.Email,
		Address:            a.Address,
		FamilySize:         a.FamilySize,
		ChildrenCount:      a.ChildrenCount,
		ElderlyCount:       a.ElderlyCount,
		EmploymentStatus:   a.EmploymentStatus,
		SpecialNeeds:       a.SpecialNeeds,
		ChurchMember:       a.ChurchMember,
		SelectedPackage:    a.SelectedPackage,
		PackageFlexibility: a.PackageFlexibility,
		PreferredDate:      domain.DateString(a.PreferredDate),
		PreferredTime:      a.PreferredTime,
		AlternativeTime:    a.AlternativeTime,
		TransportationHelp: a.TransportationHelp,
		DeliveryRequest:    a.DeliveryRequest,
		TermsAgreement:     a.TermsAgreement,
		Status:             a.Status,
		ReviewedBy:         a.ReviewedBy,
		ReviewedAt:         a.ReviewedAt,
		ReviewNotes:        a.ReviewNotes,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
	if a.AlternativeDate != nil {
		v.AlternativeDate = domain.DateString(*a.AlternativeDate)
	}
	return v
}

// ListApplicationsRequest staff list query
type ListApplicationsRequest struct {
	Status string
	Search string
	Page   int
	Size   int
}

// ListApplicationsResponse one page of applications
type ListApplicationsResponse struct {
	Items []ApplicationView `json:"items"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
}

func (s *ApplicationService) List(ctx context.Context, req ListApplicationsRequest) (*ListApplicationsResponse, error) {
	status := domain.ApplicationStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if status != "" && !status.Valid() {
		v := domain.NewValidationError()
		v.Add("status", fmt.Sprintf("%q is not a valid status.", req.Status))
		return nil, v
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Size <= 0 {
		req.Size = 20
	}

	apps, total, err := s.apps.ListApplications(ctx, repository.ApplicationsFilter{
		Status: status,
		Search: strings.TrimSpace(req.Search),
	}, req.Page, req.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	items := make([]ApplicationView, 0, len(apps))
	for _, a := range apps {
		items = append(items, toApplicationView(a))
	}
	return &ListApplicationsResponse{Items: items, Total: total, Page: req.Page, Size: req.Size}, nil
}

// ApplicationDetail application with its voucher and message history
type ApplicationDetail struct {
	ApplicationView
	Pickup        *PickupSummary         `json:"pickup,omitempty"`
	Notifications []*domain.Notification `json:"notifications"`
}

func (s *ApplicationService) getByID(ctx context.Context, id string) (*domain.Application, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("application %s: %w", id, domain.ErrNotFound)
	}
	return s.apps.GetApplication(ctx, id)
}

func (s *ApplicationService) Get(ctx context.Context, id string) (*ApplicationDetail, error) {
	a, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &ApplicationDetail{ApplicationView: toApplicationView(a), Notifications: []*domain.Notification{}}

	lookup, err := s.vouchers.VoucherForApplication(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pickup for %s: %w", a.ReferenceNumber, err)
	}
	if lookup.Found {
		detail.Pickup = s.pickupSummary(lookup.Voucher)
	}
	if s.notifier != nil {
		ns, err := s.notifier.List(ctx, a.ID)
		if err != nil {
			s.logger.Warn("Failed to load notifications", zap.String("application_id", a.ID), zap.Error(err))
		} else if ns != nil {
			detail.Notifications = ns
		}
	}
	return detail, nil
}

// ---- review ----

// ReviewRequest approve / reject input
type ReviewRequest struct {
	ApplicationID string
	Reviewer      string
	Notes         string
}

// ReviewResponse outcome of a review decision
type ReviewResponse struct {
	ApplicationID   string                   `json:"application_id"`
	ReferenceNumber string                   `json:"reference_number"`
	Status          domain.ApplicationStatus `json:"status"`
	PickupID        int64                    `json:"pickup_id,omitempty"`
	PickupCode      string                   `json:"pickup_code,omitempty"`
	ScheduledDate   string                   `json:"scheduled_date,omitempty"`
	ScheduledTime   string                   `json:"scheduled_time,omitempty"`
}

// Approve moves a PENDING application to APPROVED and issues its SCHEDULED
// voucher at the preferred date and slot. Stock is not reserved here.
func (s *ApplicationService) Approve(ctx context.Context, req ReviewRequest) (*ReviewResponse, error) {
	current, err := s.getByID(ctx, req.ApplicationID)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.ApplicationPending {
		return nil, fmt.Errorf("%w: only pending applications can be approved (current status %s)",
			domain.ErrInvalidTransition, current.Status)
	}

	now := s.now()
	review := domain.Review{Reviewer: req.Reviewer, Notes: strings.TrimSpace(req.Notes), At: now}

	var (
		approved *domain.Application
		voucher  *domain.Voucher
	)
	for attempt := 1; ; attempt++ {
		voucher = &domain.Voucher{
			PickupCode:    s.codes.PickupCode(),
			ScheduledDate: current.PreferredDate,
			ScheduledTime: current.PreferredTime,
			Status:        domain.VoucherScheduled,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		approved, err = s.apps.ApproveApplication(ctx, current.ID, review, voucher)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrCodeCollision) {
			return nil, err
		}
		metrics.RecordCodeCollision("pickup")
		s.logger.Warn("Pickup code collision", zap.String("pickup_code", voucher.PickupCode), zap.Int("attempt", attempt))
		if attempt >= s.maxAttempts {
			return nil, fmt.Errorf("no free pickup code after %d attempts: %w", attempt, err)
		}
	}
	voucher.ApplicationID = approved.ID

	metrics.RecordDecision("approved")
	s.logger.Info("Application approved",
		zap.String("reference_number", approved.ReferenceNumber),
		zap.String("pickup_code", voucher.PickupCode),
		zap.String("reviewer", req.Reviewer),
	)

	if s.voucherSvc != nil {
		if _, err := s.voucherSvc.EnsureImage(ctx, voucher, approved); err != nil {
			s.logger.Warn("QR render failed; will retry on first image request", zap.String("pickup_code", voucher.PickupCode), zap.Error(err))
		}
	}
	s.publish(ctx, events.Event{
		Type:            events.ApplicationApproved,
		ApplicationID:   approved.ID,
		ReferenceNumber: approved.ReferenceNumber,
		PickupCode:      voucher.PickupCode,
		Status:          string(approved.Status),
		Actor:           req.Reviewer,
		At:              now,
	})
	if s.notifier != nil {
		s.notifier.ApplicationApproved(ctx, approved, voucher)
	}

	return &ReviewResponse{
		ApplicationID:   approved.ID,
		ReferenceNumber: approved.ReferenceNumber,
		Status:          approved.Status,
		PickupID:        voucher.ID,
		PickupCode:      voucher.PickupCode,
		ScheduledDate:   domain.DateString(voucher.ScheduledDate),
		ScheduledTime:   voucher.ScheduledTime,
	}, nil
}

// Reject moves a PENDING application to REJECTED. No voucher is created.
func (s *ApplicationService) Reject(ctx context.Context, req ReviewRequest) (*ReviewResponse, error) {
	if _, err := uuid.Parse(req.ApplicationID); err != nil {
		return nil, fmt.Errorf("application %s: %w", req.ApplicationID, domain.ErrNotFound)
	}
	now := s.now()
	rejected, err := s.apps.RejectApplication(ctx, req.ApplicationID, domain.Review{
		Reviewer: req.Reviewer,
		Notes:    strings.TrimSpace(req.Notes),
		At:       now,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDecision("rejected")
	s.logger.Info("Application rejected", zap.String("reference_number", rejected.ReferenceNumber), zap.String("reviewer", req.Reviewer))
	s.publish(ctx, events.Event{
		Type:            events.ApplicationRejected,
		ApplicationID:   rejected.ID,
		ReferenceNumber: rejected.ReferenceNumber,
		Status:          string(rejected.Status),
		Actor:           req.Reviewer,
		At:              now,
	})
	if s.notifier != nil {
		s.notifier.ApplicationRejected(ctx, rejected)
	}
	return &ReviewResponse{
		ApplicationID:   rejected.ID,
		ReferenceNumber: rejected.ReferenceNumber,
		Status:          rejected.Status,
	}, nil
}

func (s *ApplicationService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("Failed to publish event", zap.String("type", e.Type), zap.Error(err))
	}
}
