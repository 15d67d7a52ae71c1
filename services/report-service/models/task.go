package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "Pending"
	TaskInProgress TaskStatus = "In Progress"
	TaskDraft      TaskStatus = "Draft"
	TaskCompleted  TaskStatus = "Completed"
	TaskCancelled  TaskStatus = "Cancelled"
)

// ParseTaskStatus accepts every stored status plus the legacy "To Do"
// spelling of Pending.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	if strings.EqualFold(strings.TrimSpace(s), "To Do") {
		return TaskPending, true
	}
	st := TaskStatus(strings.TrimSpace(s))
	switch st {
	case TaskPending, TaskInProgress, TaskDraft, TaskCompleted, TaskCancelled:
		return st, true
	}
	return "", false
}

// IsUpdatable reports whether the status may be written through a status update.
func (s TaskStatus) IsUpdatable() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskCancelled:
		return true
	}
	return false
}

func (s TaskStatus) IsActive() bool {
	return s != TaskCompleted && s != TaskCancelled
}

type TaskNote struct {
	Text      string    `bson:"text" json:"text"`
	CreatedBy string    `bson:"created_by" json:"createdBy"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// AdminTask is the working record for one report's remediation.
type AdminTask struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	ReportID    primitive.ObjectID `bson:"report_id" json:"reportId"`
	AssignedTo  string             `bson:"assigned_to" json:"assignedTo"`
	CreatedBy   string             `bson:"created_by" json:"createdBy"`
	Status      TaskStatus         `bson:"status" json:"status"`
	Priority    Priority           `bson:"priority" json:"priority"`
	DueDate     time.Time          `bson:"due_date" json:"dueDate"`
	CompletedAt *time.Time         `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
	Notes       []TaskNote         `bson:"notes" json:"notes"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

func (t *AdminTask) IsOverdue(now time.Time) bool {
	return t.Status.IsActive() && t.DueDate.Before(now)
}
