package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyStats is the per-day rollup stored in daily_stats.
type DailyStats struct {
	Date                  time.Time       `db:"date" json:"-"`
	ApplicationsSubmitted int             `db:"applications_submitted" json:"applications_submitted"`
	ApplicationsApproved  int             `db:"applications_approved" json:"applications_approved"`
	ApplicationsRejected  int             `db:"applications_rejected" json:"applications_rejected"`
	PackagesPickedUp      int             `db:"packages_picked_up" json:"packages_picked_up"`
	TotalCashDistributed  decimal.Decimal `db:"total_cash_distributed" json:"total_cash_distributed"`
	UpdatedAt             time.Time       `db:"updated_at" json:"updated_at"`
}
