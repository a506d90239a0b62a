package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iamyinka/reliefproj/internal/domain"
)

type PostgresNotificationsRepository struct {
	db *sql.DB
}

func NewPostgresNotificationsRepository(db *sql.DB) *PostgresNotificationsRepository {
	return &PostgresNotificationsRepository{db: db}
}

var _ NotificationsRepository = (*PostgresNotificationsRepository)(nil)

func (r *PostgresNotificationsRepository) CreateNotification(ctx context.Context, n *domain.Notification) (int64, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (application_id, channel, recipient, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, n.ApplicationID, string(n.Channel), n.Recipient, n.Message, string(n.Status), n.CreatedAt).Scan(&n.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert notification: %w", err)
	}
	return n.ID, nil
}

func (r *PostgresNotificationsRepository) MarkNotification(ctx context.Context, id int64, status domain.NotificationStatus, errMsg string, at time.Time) error {
	var sentAt any
	if status == domain.NotificationSent {
		sentAt = at
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET status = $2, error = $3, sent_at = $4 WHERE id = $1
	`, id, string(status), errMsg, sentAt)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	return nil
}

func (r *PostgresNotificationsRepository) ListNotifications(ctx context.Context, applicationID string) ([]*domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, application_id::text, channel, recipient, message, status, error, sent_at, created_at
		FROM notifications
		WHERE application_id = $1
		ORDER BY created_at DESC, id DESC
	`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out := []*domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		var sentAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.ApplicationID, &n.Channel, &n.Recipient, &n.Message, &n.Status, &n.Error, &sentAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if sentAt.Valid {
			t := sentAt.Time
			n.SentAt = &t
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}
