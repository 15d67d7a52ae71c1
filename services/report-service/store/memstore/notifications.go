package memstore

import (
	"context"
	"time"

	"campus-maintenance-system/services/report-service/models"
	"campus-maintenance-system/services/report-service/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type notificationRepo struct{ db *DB }

func (r notificationRepo) Insert(_ context.Context, n *models.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.injected("notifications.Insert"); err != nil {
		return err
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	r.db.notifications[n.ID] = *n
	return nil
}

func (r notificationRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Notification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.notifications[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &n, nil
}

func (r notificationRepo) collect(match func(models.Notification) bool) []models.Notification {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.Notification{}
	for _, n := range r.db.notifications {
		if match(n) {
			out = append(out, n)
		}
	}
	newestFirst(out, func(n models.Notification) int64 { return n.CreatedAt.UnixNano() })
	return out
}

func (r notificationRepo) ListForUser(_ context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	return r.collect(func(n models.Notification) bool {
		return n.UserID == userID && (!unreadOnly || !n.IsRead)
	}), nil
}

func (r notificationRepo) ListByReport(_ context.Context, reportID primitive.ObjectID) ([]models.Notification, error) {
	return r.collect(func(n models.Notification) bool { return n.ReportID == reportID }), nil
}

func (r notificationRepo) MarkAsRead(_ context.Context, id primitive.ObjectID, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.notifications[id]
	if !ok {
		return store.ErrNotFound
	}
	if !n.IsRead {
		n.IsRead = true
		n.ReadAt = &at
		r.db.notifications[id] = n
	}
	return nil
}

func (r notificationRepo) MarkAllAsRead(_ context.Context, userID string, at time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var count int64
	for id, n := range r.db.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &at
			r.db.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (r notificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var count int64
	for _, n := range r.db.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r notificationRepo) DeleteByReport(_ context.Context, reportID primitive.ObjectID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.injected("notifications.DeleteByReport"); err != nil {
		return 0, err
	}
	var n int64
	for id, notif := range r.db.notifications {
		if notif.ReportID == reportID {
			delete(r.db.notifications, id)
			n++
		}
	}
	return n, nil
}
