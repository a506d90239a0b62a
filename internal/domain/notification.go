package domain

import "time"

type NotificationChannel string

const (
	ChannelSMS   NotificationChannel = "SMS"
	ChannelEmail NotificationChannel = "EMAIL"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "PENDING"
	NotificationSent    NotificationStatus = "SENT"
	NotificationFailed  NotificationStatus = "FAILED"
)

// Notification is an outbound message about an application (notifications table).
type Notification struct {
	ID            int64               `db:"id"`
	ApplicationID string              `db:"application_id"`
	Channel       NotificationChannel `db:"channel"`
	Recipient     string              `db:"recipient"`
	Message       string              `db:"message"`
	Status        NotificationStatus  `db:"status"`
	Error         string              `db:"error"`
	SentAt        *time.Time          `db:"sent_at"`
	CreatedAt     time.Time           `db:"created_at"`
}
