// Package store defines the persistence contracts of the report service.
// mongostore implements them on MongoDB, memstore in process memory.
package store

import (
	"context"
	"errors"
	"time"

	"campus-maintenance-system/services/report-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrVersionConflict = errors.New("document was modified concurrently")
)

type ReportFilter struct {
	ReporterID string
	Status     models.ReportStatus
	Category   string
	Since      time.Time
}

// ReportChange lists the fields a guarded report write may touch. A nil
// field is left unchanged; an empty AssignedTo clears the assignment.
type ReportChange struct {
	Status     *models.ReportStatus
	Priority   *models.Priority
	AssignedTo *string
}

type ReportRepository interface {
	Insert(ctx context.Context, r *models.Report) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error)
	List(ctx context.Context, filter ReportFilter) ([]models.Report, error)
	// ApplyChange writes change only if the stored version still equals
	// expectedVersion, and returns the updated report.
	ApplyChange(ctx context.Context, id primitive.ObjectID, expectedVersion int64, change ReportChange) (*models.Report, error)
	AppendComment(ctx context.Context, id primitive.ObjectID, c models.Comment) (*models.Report, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	CountByStatus(ctx context.Context, since time.Time) (map[models.ReportStatus]int64, error)
}

type TaskFilter struct {
	Status     models.TaskStatus
	AssignedTo string
}

type TaskRepository interface {
	Insert(ctx context.Context, t *models.AdminTask) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.AdminTask, error)
	FindActiveByReport(ctx context.Context, reportID primitive.ObjectID) (*models.AdminTask, error)
	List(ctx context.Context, filter TaskFilter) ([]models.AdminTask, error)
	ListOverdue(ctx context.Context, now time.Time) ([]models.AdminTask, error)
	ListByReport(ctx context.Context, reportID primitive.ObjectID) ([]models.AdminTask, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.TaskStatus, completedAt *time.Time) (*models.AdminTask, error)
	AppendNote(ctx context.Context, id primitive.ObjectID, note models.TaskNote) (*models.AdminTask, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByReport(ctx context.Context, reportID primitive.ObjectID) (int64, error)
}

type NotificationRepository interface {
	Insert(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)
	ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	ListByReport(ctx context.Context, reportID primitive.ObjectID) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id primitive.ObjectID, at time.Time) error
	MarkAllAsRead(ctx context.Context, userID string, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	DeleteByReport(ctx context.Context, reportID primitive.ObjectID) (int64, error)
}

type AnnouncementRepository interface {
	Insert(ctx context.Context, a *models.Announcement) error
	ListLive(ctx context.Context, now time.Time) ([]models.Announcement, error)
	Deactivate(ctx context.Context, id primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type MessageRepository interface {
	Insert(ctx context.Context, m *models.Message) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	Conversation(ctx context.Context, userA, userB string) ([]models.Message, error)
	MarkDelivered(ctx context.Context, senderID, receiverID string, at time.Time) (int64, error)
	MarkRead(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// UnitOfWork runs fn so that the writes it makes through the context it
// receives either all land or none do. Transactional reports whether that
// guarantee is real; when it is false the caller compensates or retries.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	Transactional() bool
}

// Stores bundles every repository the report service needs.
type Stores struct {
	Reports       ReportRepository
	Tasks         TaskRepository
	Notifications NotificationRepository
	Announcements AnnouncementRepository
	Messages      MessageRepository
	UnitOfWork    UnitOfWork
}
