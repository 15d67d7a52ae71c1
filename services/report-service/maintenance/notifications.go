package maintenance

import (
	"context"
	"strings"

	"campus-maintenance-system/pkg/apperror"
	"campus-maintenance-system/pkg/auth"
	"campus-maintenance-system/pkg/events"
	"campus-maintenance-system/services/report-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationService struct {
	deps *Deps
}

// Notify validates and stores one notification, then announces it on the
// event bus. Each call is independent; nothing is batched or retried.
func (s *NotificationService) Notify(ctx context.Context, n models.Notification) (*models.Notification, error) {
	n.UserID = strings.TrimSpace(n.UserID)
	n.Message = strings.TrimSpace(n.Message)
	switch {
	case n.UserID == "":
		return nil, apperror.Validation("Notification userId is required")
	case n.ReportID.IsZero():
		return nil, apperror.Validation("Notification reportId is required")
	case !n.Type.IsValid():
		return nil, apperror.Validation("Invalid notification type %q", n.Type)
	case n.Message == "":
		return nil, apperror.Validation("Notification message is required")
	}

	n.ID = primitive.NilObjectID
	n.IsRead = false
	n.ReadAt = nil
	n.CreatedAt = s.deps.now()
	if err := s.deps.Stores.Notifications.Insert(ctx, &n); err != nil {
		return nil, apperror.Internal("Failed to save notification", err)
	}

	s.deps.publish(ctx, events.NotificationCreated, events.NotificationEvent{
		ID:        n.ID.Hex(),
		UserID:    n.UserID,
		ReportID:  n.ReportID.Hex(),
		Type:      string(n.Type),
		Message:   n.Message,
		Status:    string(n.Status),
		Priority:  string(n.Priority),
		CreatedAt: n.CreatedAt,
	})
	return &n, nil
}

// notifyBestEffort is how workflows fan out: failures are logged and counted,
// never returned.
func (s *NotificationService) notifyBestEffort(ctx context.Context, n models.Notification) {
	if _, err := s.Notify(ctx, n); err != nil {
		sideEffectFailed(ctx, "notification", "Failed to create "+string(n.Type)+" notification", err)
	}
}

func (s *NotificationService) ListForUser(ctx context.Context, p auth.Principal) ([]models.Notification, error) {
	list, err := s.deps.Stores.Notifications.ListForUser(ctx, p.UserID, false)
	return list, storeErr(err, "Notifications")
}

func (s *NotificationService) ListUnread(ctx context.Context, p auth.Principal) ([]models.Notification, error) {
	list, err := s.deps.Stores.Notifications.ListForUser(ctx, p.UserID, true)
	return list, storeErr(err, "Notifications")
}

func (s *NotificationService) UnreadCount(ctx context.Context, p auth.Principal) (int64, error) {
	n, err := s.deps.Stores.Notifications.CountUnread(ctx, p.UserID)
	return n, storeErr(err, "Notifications")
}

// MarkAsRead is idempotent; only the recipient may call it.
func (s *NotificationService) MarkAsRead(ctx context.Context, p auth.Principal, id string) (*models.Notification, error) {
	oid, err := parseID(id, "notification")
	if err != nil {
		return nil, err
	}

	repo := s.deps.Stores.Notifications
	n, err := repo.FindByID(ctx, oid)
	if err != nil {
		return nil, storeErr(err, "Notification")
	}
	if n.UserID != p.UserID {
		return nil, apperror.Forbidden("You can only mark your own notifications as read")
	}
	if n.IsRead {
		return n, nil
	}

	if err := repo.MarkAsRead(ctx, oid, s.deps.now()); err != nil {
		return nil, storeErr(err, "Notification")
	}
	updated, err := repo.FindByID(ctx, oid)
	return updated, storeErr(err, "Notification")
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, p auth.Principal) (int64, error) {
	n, err := s.deps.Stores.Notifications.MarkAllAsRead(ctx, p.UserID, s.deps.now())
	return n, storeErr(err, "Notifications")
}
