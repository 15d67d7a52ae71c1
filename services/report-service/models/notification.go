package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationAcknowledgment NotificationType = "acknowledgment"
	NotificationComment        NotificationType = "comment"
	NotificationAdminComment   NotificationType = "admin_comment"
	NotificationStatusChange   NotificationType = "status_change"
	NotificationPriorityChange NotificationType = "priority_change"
)

func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationAcknowledgment, NotificationComment, NotificationAdminComment,
		NotificationStatusChange, NotificationPriorityChange:
		return true
	}
	return false
}

// Notification carries the structured fields of its variant so clients
// never have to parse Message.
type Notification struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           string             `bson:"user_id" json:"userId"`
	ReportID         primitive.ObjectID `bson:"report_id" json:"reportId"`
	Type             NotificationType   `bson:"type" json:"type"`
	Message          string             `bson:"message" json:"message"`
	ActorID          string             `bson:"actor_id,omitempty" json:"actorId,omitempty"`
	PreviousStatus   ReportStatus       `bson:"previous_status,omitempty" json:"previousStatus,omitempty"`
	Status           ReportStatus       `bson:"status,omitempty" json:"status,omitempty"`
	PreviousPriority Priority           `bson:"previous_priority,omitempty" json:"previousPriority,omitempty"`
	Priority         Priority           `bson:"priority,omitempty" json:"priority,omitempty"`
	IsRead           bool               `bson:"is_read" json:"isRead"`
	ReadAt           *time.Time         `bson:"read_at,omitempty" json:"readAt,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"createdAt"`
}

// NewAcknowledgment tells an admin that a report was filed.
func NewAcknowledgment(adminID string, r *Report) Notification {
	return Notification{
		UserID:   adminID,
		ReportID: r.ID,
		Type:     NotificationAcknowledgment,
		Message:  fmt.Sprintf("New %s report submitted and awaiting review", r.Category),
		ActorID:  r.ReporterID,
		Status:   r.Status,
		Priority: r.Priority,
	}
}

func NewCommentNotice(r *Report, commenterID string) Notification {
	return Notification{
		UserID:   r.ReporterID,
		ReportID: r.ID,
		Type:     NotificationComment,
		Message:  "New comment on your report",
		ActorID:  commenterID,
	}
}

func NewAdminCommentNotice(r *Report, adminID string) Notification {
	return Notification{
		UserID:   r.ReporterID,
		ReportID: r.ID,
		Type:     NotificationAdminComment,
		Message:  "An administrator commented on your report",
		ActorID:  adminID,
	}
}

func NewStatusChange(r *Report, previous ReportStatus, actorID string) Notification {
	return Notification{
		UserID:         r.ReporterID,
		ReportID:       r.ID,
		Type:           NotificationStatusChange,
		Message:        fmt.Sprintf("Your report status has been updated to: %s", r.Status),
		ActorID:        actorID,
		PreviousStatus: previous,
		Status:         r.Status,
	}
}

func NewPriorityChange(r *Report, previous Priority, actorID string) Notification {
	return Notification{
		UserID:           r.ReporterID,
		ReportID:         r.ID,
		Type:             NotificationPriorityChange,
		Message:          fmt.Sprintf("Your report priority has been updated to: %s", r.Priority),
		ActorID:          actorID,
		PreviousPriority: previous,
		Priority:         r.Priority,
	}
}
