package service

import (
	"context"
	"fmt"

	"github.com/iamyinka/reliefproj/internal/domain"
	"github.com/iamyinka/reliefproj/internal/metrics"
	"github.com/iamyinka/reliefproj/internal/notify"
	"github.com/iamyinka/reliefproj/internal/repository"

	"go.uber.org/zap"
)

// NotificationService records and sends applicant SMS. Delivery failures are
// logged and stored on the notification row; they never fail the caller.
type NotificationService struct {
	notifications repository.NotificationsRepository
	sender        notify.Sender
	logger        *zap.Logger
	now           Clock
}

func NewNotificationService(notifications repository.NotificationsRepository, sender notify.Sender, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		sender:        sender,
		logger:        logger,
		now:           systemClock,
	}
}

func (s *NotificationService) SetClock(c Clock) { s.now = c }

func submittedMessage(a *domain.Application) string {
	return fmt.Sprintf("Hello %s, your relief application %s has been received and is pending review.",
		a.FirstName, a.ReferenceNumber)
}

func approvedMessage(a *domain.Application, v *domain.Voucher) string {
	return fmt.Sprintf("Hello %s, your application %s is approved. Pickup code %s on %s, %s. Bring this code with you.",
		a.FirstName, a.ReferenceNumber, v.PickupCode, v.ScheduledDate.Format("Mon 02 Jan 2006"), domain.TimeSlotDisplay(v.ScheduledTime))
}

func rejectedMessage(a *domain.Application) string {
	return fmt.Sprintf("Hello %s, we are unable to approve application %s at this time.",
		a.FirstName, a.ReferenceNumber)
}

func pickedUpMessage(a *domain.Application) string {
	return fmt.Sprintf("Hello %s, your relief package for application %s has been collected. Thank you.",
		a.FirstName, a.ReferenceNumber)
}

func (s *NotificationService) ApplicationSubmitted(ctx context.Context, a *domain.Application) {
	s.send(ctx, a, submittedMessage(a))
}

func (s *NotificationService) ApplicationApproved(ctx context.Context, a *domain.Application, v *domain.Voucher) {
	s.send(ctx, a, approvedMessage(a, v))
}

func (s *NotificationService) ApplicationRejected(ctx context.Context, a *domain.Application) {
	s.send(ctx, a, rejectedMessage(a))
}

func (s *NotificationService) PackageCollected(ctx context.Context, a *domain.Application) {
	s.send(ctx, a, pickedUpMessage(a))
}

// List notification history for an application.
func (s *NotificationService) List(ctx context.Context, applicationID string) ([]*domain.Notification, error) {
	return s.notifications.ListNotifications(ctx, applicationID)
}

func (s *NotificationService) send(ctx context.Context, a *domain.Application, message string) {
	n := &domain.Notification{
		ApplicationID: a.ID,
		Channel:       domain.ChannelSMS,
		Recipient:     domain.InternationalPhone(a.Phone),
		Message:       message,
		Status:        domain.NotificationPending,
		CreatedAt:     s.now(),
	}
	id, err := s.notifications.CreateNotification(ctx, n)
	if err != nil {
		s.logger.Error("Failed to record notification", zap.String("application_id", a.ID), zap.Error(err))
		return
	}

	status, errMsg := domain.NotificationSent, ""
	if err := s.sender.Send(ctx, n.Recipient, message); err != nil {
		status, errMsg = domain.NotificationFailed, err.Error()
		s.logger.Warn("SMS delivery failed",
			zap.String("reference_number", a.ReferenceNumber),
			zap.Int64("notification_id", id),
			zap.Error(err),
		)
	}
	metrics.RecordNotification(string(domain.ChannelSMS), string(status))

	if err := s.notifications.MarkNotification(ctx, id, status, errMsg, s.now()); err != nil {
		s.logger.Error("Failed to update notification", zap.Int64("notification_id", id), zap.Error(err))
	}
}
