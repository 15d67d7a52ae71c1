// Package maintenance holds the report lifecycle, the task coordinator,
// notification fan-out and the announcement and message workflows.
// Every operation takes the caller's auth.Principal explicitly.
package maintenance

import (
	"context"
	"errors"
	"time"

	"campus-maintenance-system/pkg/apperror"
	"campus-maintenance-system/pkg/middleware"
	"campus-maintenance-system/pkg/users"
	"campus-maintenance-system/services/report-service/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventPublisher is satisfied by queue.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// PhotoRemover deletes stored photos by key. storage.PhotoStore satisfies it.
type PhotoRemover interface {
	Delete(ctx context.Context, key string) error
}

// UserDirectory answers the user lookups the workflows need.
type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
	FirstAdminID(ctx context.Context) (string, error)
}

type userDirectory struct {
	users users.Repository
}

// NewUserDirectory adapts the shared user repository.
func NewUserDirectory(repo users.Repository) UserDirectory {
	return userDirectory{users: repo}
}

func (d userDirectory) Exists(ctx context.Context, userID string) (bool, error) {
	_, err := d.users.FindByID(ctx, userID)
	if errors.Is(err, users.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (d userDirectory) FirstAdminID(ctx context.Context) (string, error) {
	admin, err := d.users.FirstAdmin(ctx)
	if err != nil {
		return "", err
	}
	return admin.ID, nil
}

// Deps are the collaborators shared by the services in this package.
type Deps struct {
	Stores store.Stores
	Users  UserDirectory
	Events EventPublisher
	Photos PhotoRemover
	Now    func() time.Time
	Retry  RetryPolicy
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Services wires every workflow against one set of dependencies.
type Services struct {
	Reports       *ReportService
	Tasks         *TaskService
	Notifications *NotificationService
	Announcements *AnnouncementService
	Messages      *MessageService
}

func New(deps Deps) *Services {
	if deps.Retry.Attempts == 0 {
		deps.Retry = DefaultRetryPolicy
	}
	d := &deps
	notifications := &NotificationService{deps: d}
	tasks := &TaskService{deps: d}
	return &Services{
		Reports:       &ReportService{deps: d, tasks: tasks, notifications: notifications},
		Tasks:         tasks,
		Notifications: notifications,
		Announcements: &AnnouncementService{deps: d},
		Messages:      &MessageService{deps: d},
	}
}

func parseID(id, what string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperror.Validation("Invalid %s ID", what)
	}
	return oid, nil
}

// storeErr maps store sentinels to domain errors.
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperror.NotFound("%s not found", what)
	case errors.Is(err, store.ErrVersionConflict):
		return apperror.Conflict("%s was modified by another request, please retry", what)
	default:
		return apperror.Internal("Failed to access "+what, err)
	}
}

// sideEffectFailed records a best-effort step that did not happen.
func sideEffectFailed(ctx context.Context, kind, message string, err error) {
	middleware.SideEffectFailures.WithLabelValues(kind).Inc()
	middleware.LogWarnCtx(ctx, message, err)
}

func (d *Deps) publish(ctx context.Context, routingKey string, payload interface{}) {
	if d.Events == nil {
		return
	}
	if err := d.Events.Publish(ctx, routingKey, payload); err != nil {
		sideEffectFailed(ctx, "event", "Saved but failed to publish "+routingKey, err)
	}
}
