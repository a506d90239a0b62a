package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iamyinka/reliefproj/internal/domain"
)

type PostgresStatsRepository struct {
	db *sql.DB
}

func NewPostgresStatsRepository(db *sql.DB) *PostgresStatsRepository {
	return &PostgresStatsRepository{db: db}
}

var _ StatsRepository = (*PostgresStatsRepository)(nil)

// Cash is taken from the package row matching the application's type,
// preferring the active one.
const computeDailyStatsSQL = `
	SELECT
		(SELECT COUNT(*) FROM applications
		  WHERE created_at >= $1 AND created_at < $2),
		(SELECT COUNT(*) FROM applications
		  WHERE status IN ('APPROVED', 'PICKED_UP') AND reviewed_at >= $1 AND reviewed_at < $2),
		(SELECT COUNT(*) FROM applications
		  WHERE status = 'REJECTED' AND reviewed_at >= $1 AND reviewed_at < $2),
		(SELECT COUNT(*) FROM pickups
		  WHERE status = 'COMPLETED' AND completed_at >= $1 AND completed_at < $2),
		(SELECT COALESCE(SUM(pk.cash_amount), 0)
		   FROM pickups p
		   JOIN applications a ON a.id = p.application_id
		   LEFT JOIN LATERAL (
		       SELECT cash_amount FROM packages
		        WHERE package_type = a.selected_package
		        ORDER BY is_active DESC, id
		        LIMIT 1
		   ) pk ON TRUE
		  WHERE p.status = 'COMPLETED' AND p.completed_at >= $1 AND p.completed_at < $2)`

func (r *PostgresStatsRepository) ComputeDailyStats(ctx context.Context, from, to time.Time) (*domain.DailyStats, error) {
	s := domain.DailyStats{Date: from, UpdatedAt: time.Now()}
	err := r.db.QueryRowContext(ctx, computeDailyStatsSQL, from, to).Scan(
		&s.ApplicationsSubmitted,
		&s.ApplicationsApproved,
		&s.ApplicationsRejected,
		&s.PackagesPickedUp,
		&s.TotalCashDistributed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute daily stats: %w", err)
	}
	return &s, nil
}

func (r *PostgresStatsRepository) UpsertDailyStats(ctx context.Context, s *domain.DailyStats) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_stats (
			date, applications_submitted, applications_approved, applications_rejected,
			packages_picked_up, total_cash_distributed, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (date) DO UPDATE SET
			applications_submitted = EXCLUDED.applications_submitted,
			applications_approved = EXCLUDED.applications_approved,
			applications_rejected = EXCLUDED.applications_rejected,
			packages_picked_up = EXCLUDED.packages_picked_up,
			total_cash_distributed = EXCLUDED.total_cash_distributed,
			updated_at = EXCLUDED.updated_at
	`, domain.DateString(s.Date), s.ApplicationsSubmitted, s.ApplicationsApproved, s.ApplicationsRejected,
		s.PackagesPickedUp, s.TotalCashDistributed, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert daily stats: %w", err)
	}
	return nil
}

func (r *PostgresStatsRepository) GetDailyStats(ctx context.Context, day time.Time) (*domain.DailyStats, error) {
	var s domain.DailyStats
	err := r.db.QueryRowContext(ctx, `
		SELECT date, applications_submitted, applications_approved, applications_rejected,
		       packages_picked_up, total_cash_distributed, updated_at
		FROM daily_stats
		WHERE date = $1
	`, domain.DateString(day)).Scan(
		&s.Date,
		&s.ApplicationsSubmitted,
		&s.ApplicationsApproved,
		&s.ApplicationsRejected,
		&s.PackagesPickedUp,
		&s.TotalCashDistributed,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("daily stats %s: %w", domain.DateString(day), domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}
	return &s, nil
}
