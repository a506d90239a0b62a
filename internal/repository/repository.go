package repository

import (
	"context"
	"time"

	"github.com/iamyinka/reliefproj/internal/domain"
)

// PackagesRepository package catalog and stock counters
type PackagesRepository interface {
	ListPackages(ctx context.Context, activeOnly bool) ([]*domain.Package, error)
	GetPackage(ctx context.Context, id int64) (*domain.Package, error)
	// GetPackageByType prefers the active row when several share a type.
	GetPackageByType(ctx context.Context, t domain.PackageType) (*domain.Package, error)
	// CreatePackage inserts the package and its items. A second active
	// package of the same type fails with domain.ActiveTypeTakenError.
	CreatePackage(ctx context.Context, p *domain.Package) (int64, error)
	// UpdatePackage locks the row, runs mutate, validates and writes the
	// package back with its items replaced.
	UpdatePackage(ctx context.Context, id int64, mutate func(p *domain.Package) error) (*domain.Package, error)

	// Allocate takes one unit iff available_quantity > 0.
	Allocate(ctx context.Context, id int64) (bool, error)
	// Restock adds qty to both counters and returns the new available_quantity.
	Restock(ctx context.Context, id int64, qty int) (int, error)
}

// ApplicationsFilter list filter for staff views
type ApplicationsFilter struct {
	Status domain.ApplicationStatus // empty = all
	Search string                   // reference number, phone or name
}

// ApplicationsRepository applications table
type ApplicationsRepository interface {
	// CreateApplication returns domain.ErrCodeCollision when the reference number is taken.
	CreateApplication(ctx context.Context, a *domain.Application) error
	GetApplication(ctx context.Context, id string) (*domain.Application, error)
	GetApplicationByReference(ctx context.Context, ref string) (*domain.Application, error)
	// LatestApplicationByPhone returns domain.ErrNotFound when the phone has never applied.
	LatestApplicationByPhone(ctx context.Context, phone string) (*domain.Application, error)
	ListApplications(ctx context.Context, filter ApplicationsFilter, page, size int) ([]*domain.Application, int, error)

	// ApproveApplication locks the row, applies domain.Application.Approve and
	// inserts voucher in the same transaction. voucher.ID is filled on success.
	// A pickup-code conflict returns domain.ErrCodeCollision and nothing is written.
	ApproveApplication(ctx context.Context, id string, review domain.Review, voucher *domain.Voucher) (*domain.Application, error)
	// RejectApplication locks the row and applies domain.Application.Reject.
	RejectApplication(ctx context.Context, id string, review domain.Review) (*domain.Application, error)
}

// VoucherLookup is the optional one-to-one voucher of an application.
type VoucherLookup struct {
	Voucher *domain.Voucher
	Found   bool
}

// VoucherGuard runs against the locked row before a mutation.
type VoucherGuard func(v *domain.Voucher) error

// VouchersRepository pickups table
type VouchersRepository interface {
	GetVoucher(ctx context.Context, id int64) (*domain.Voucher, error)
	GetVoucherByCode(ctx context.Context, code string) (*domain.Voucher, error)
	VoucherForApplication(ctx context.Context, applicationID string) (VoucherLookup, error)

	// CompleteVoucher locks the voucher and its application, runs guard,
	// marks the voucher COMPLETED and the application PICKED_UP in one transaction.
	CompleteVoucher(ctx context.Context, id int64, guard VoucherGuard, c domain.Completion) (*domain.Voucher, error)
	// UpdateVoucher locks the voucher and persists whatever mutate changed
	// (status, notes, updated_at).
	UpdateVoucher(ctx context.Context, id int64, mutate VoucherGuard) (*domain.Voucher, error)
	SaveVoucherImage(ctx context.Context, id int64, png []byte) error

	// ListVouchersForDate returns pickups scheduled on day, ordered by slot.
	ListVouchersForDate(ctx context.Context, day time.Time, statuses []domain.VoucherStatus) ([]*domain.Voucher, error)
	ListRecentlyCompleted(ctx context.Context, limit int) ([]*domain.Voucher, error)
}

// NotificationsRepository outbound message log
type NotificationsRepository interface {
	CreateNotification(ctx context.Context, n *domain.Notification) (int64, error)
	MarkNotification(ctx context.Context, id int64, status domain.NotificationStatus, errMsg string, at time.Time) error
	ListNotifications(ctx context.Context, applicationID string) ([]*domain.Notification, error)
}

// StatsRepository daily rollups
type StatsRepository interface {
	// ComputeDailyStats counts activity in [from, to).
	ComputeDailyStats(ctx context.Context, from, to time.Time) (*domain.DailyStats, error)
	UpsertDailyStats(ctx context.Context, s *domain.DailyStats) error
	GetDailyStats(ctx context.Context, day time.Time) (*domain.DailyStats, error)
}

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 500 {
		size = 500
	}
	return page, size
}
