package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iamyinka/reliefproj/internal/domain"

	"github.com/lib/pq"
)

// PostgresVouchersRepository pickups table; completion also writes applications
type PostgresVouchersRepository struct {
	db *sql.DB
}

func NewPostgresVouchersRepository(db *sql.DB) *PostgresVouchersRepository {
	return &PostgresVouchersRepository{db: db}
}

var _ VouchersRepository = (*PostgresVouchersRepository)(nil)

// qr_image is only selected for single-row reads.
const voucherColumns = `
	id, application_id::text, pickup_code, scheduled_date, scheduled_time, status,
	completed_at, completed_by, notes, created_at, updated_at`

func scanVoucher(s rowScanner, withImage bool) (*domain.Voucher, error) {
	var v domain.Voucher
	var completedAt sql.NullTime
	dest := []any{
		&v.ID, &v.ApplicationID, &v.PickupCode, &v.ScheduledDate, &v.ScheduledTime, &v.Status,
		&completedAt, &v.CompletedBy, &v.Notes, &v.CreatedAt, &v.UpdatedAt,
	}
	if withImage {
		dest = append(dest, &v.QRImage)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		v.CompletedAt = &t
	}
	return &v, nil
}

func (r *PostgresVouchersRepository) getOne(ctx context.Context, where string, arg any) (*domain.Voucher, error) {
	v, err := scanVoucher(r.db.QueryRowContext(ctx, `SELECT`+voucherColumns+`, qr_image FROM pickups WHERE `+where, arg), true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("pickup: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get pickup: %w", err)
	}
	return v, nil
}

func (r *PostgresVouchersRepository) GetVoucher(ctx context.Context, id int64) (*domain.Voucher, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *PostgresVouchersRepository) GetVoucherByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	return r.getOne(ctx, `pickup_code = $1`, code)
}

func (r *PostgresVouchersRepository) VoucherForApplication(ctx context.Context, applicationID string) (VoucherLookup, error) {
	v, err := r.getOne(ctx, `application_id = $1`, applicationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return VoucherLookup{}, nil
		}
		return VoucherLookup{}, err
	}
	return VoucherLookup{Voucher: v, Found: true}, nil
}

func lockVoucher(ctx context.Context, tx *sql.Tx, id int64) (*domain.Voucher, error) {
	v, err := scanVoucher(tx.QueryRowContext(ctx, `SELECT`+voucherColumns+` FROM pickups WHERE id = $1 FOR UPDATE`, id), false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("pickup %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock pickup: %w", err)
	}
	return v, nil
}

func (r *PostgresVouchersRepository) CompleteVoucher(ctx context.Context, id int64, guard VoucherGuard, c domain.Completion) (*domain.Voucher, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	v, err := lockVoucher(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if guard != nil {
		if err := guard(v); err != nil {
			return nil, err
		}
	}
	a, err := lockApplication(ctx, tx, v.ApplicationID)
	if err != nil {
		return nil, err
	}
	if err := v.Complete(c); err != nil {
		return nil, err
	}
	if err := a.MarkPickedUp(c.At); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE pickups
		SET status = $2, completed_at = $3, completed_by = $4, notes = $5, updated_at = $3
		WHERE id = $1
	`, v.ID, string(v.Status), c.At, v.CompletedBy, v.Notes); err != nil {
		return nil, fmt.Errorf("failed to complete pickup: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE applications SET status = $2, updated_at = $3 WHERE id = $1
	`, a.ID, string(a.Status), c.At); err != nil {
		return nil, fmt.Errorf("failed to mark application picked up: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit completion: %w", err)
	}
	return v, nil
}

func (r *PostgresVouchersRepository) UpdateVoucher(ctx context.Context, id int64, mutate VoucherGuard) (*domain.Voucher, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	v, err := lockVoucher(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(v); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE pickups SET status = $2, notes = $3, updated_at = $4 WHERE id = $1
	`, v.ID, string(v.Status), v.Notes, v.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to update pickup: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit pickup update: %w", err)
	}
	return v, nil
}

func (r *PostgresVouchersRepository) SaveVoucherImage(ctx context.Context, id int64, png []byte) error {
	res, err := r.db.ExecContext(ctx, `UPDATE pickups SET qr_image = $2 WHERE id = $1`, id, png)
	if err != nil {
		return fmt.Errorf("failed to save pickup image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("pickup %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *PostgresVouchersRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Voucher, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pickups: %w", err)
	}
	defer rows.Close()

	out := []*domain.Voucher{}
	for rows.Next() {
		v, err := scanVoucher(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pickup: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PostgresVouchersRepository) ListVouchersForDate(ctx context.Context, day time.Time, statuses []domain.VoucherStatus) ([]*domain.Voucher, error) {
	codes := make([]string, 0, len(statuses))
	for _, s := range statuses {
		codes = append(codes, string(s))
	}
	return r.list(ctx, `
		SELECT`+voucherColumns+`
		FROM pickups
		WHERE scheduled_date = $1 AND status = ANY($2)
		ORDER BY CASE scheduled_time
			WHEN 'morning' THEN 1
			WHEN 'afternoon' THEN 2
			WHEN 'evening' THEN 3
			ELSE 4 END, id
	`, domain.DateString(day), pq.Array(codes))
}

func (r *PostgresVouchersRepository) ListRecentlyCompleted(ctx context.Context, limit int) ([]*domain.Voucher, error) {
	if limit <= 0 {
		limit = 10
	}
	return r.list(ctx, `
		SELECT`+voucherColumns+`
		FROM pickups
		WHERE status = 'COMPLETED'
		ORDER BY completed_at DESC
		LIMIT $1
	`, limit)
}
