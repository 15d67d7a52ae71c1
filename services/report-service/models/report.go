package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReportStatus string

const (
	StatusPending    ReportStatus = "Pending"
	StatusInProgress ReportStatus = "In Progress"
	StatusResolved   ReportStatus = "Resolved"
	StatusCancelled  ReportStatus = "Cancelled"
)

var reportTransitions = map[ReportStatus][]ReportStatus{
	StatusPending:    {StatusInProgress, StatusResolved, StatusCancelled},
	StatusInProgress: {StatusPending, StatusResolved, StatusCancelled},
}

func (s ReportStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further status writes are accepted.
func (s ReportStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusCancelled
}

func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	for _, allowed := range reportTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Comment struct {
	UserID      string    `bson:"user_id" json:"userId"`
	CommentText string    `bson:"comment_text" json:"commentText"`
	PhotoURL    string    `bson:"photo_url,omitempty" json:"photoUrl,omitempty"`
	PhotoKey    string    `bson:"photo_key,omitempty" json:"-"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
}

// Report is a maintenance request filed by a student or staff member.
// Version is bumped on every status, priority or assignment write and is
// used as the precondition for the next one.
type Report struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReporterID  string             `bson:"reporter" json:"reporter"`
	Category    string             `bson:"category" json:"category"`
	Description string             `bson:"description" json:"description"`
	Building    string             `bson:"building,omitempty" json:"building,omitempty"`
	Location    string             `bson:"location,omitempty" json:"location,omitempty"`
	Room        string             `bson:"room,omitempty" json:"room,omitempty"`
	PhotoURL    string             `bson:"photo_url,omitempty" json:"photoUrl,omitempty"`
	PhotoKey    string             `bson:"photo_key,omitempty" json:"-"`
	Priority    Priority           `bson:"priority" json:"priority"`
	Status      ReportStatus       `bson:"status" json:"status"`
	AssignedTo  string             `bson:"assigned_to,omitempty" json:"assignedTo,omitempty"`
	Comments    []Comment          `bson:"comments" json:"comments"`
	Version     int64              `bson:"version" json:"version"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// PhotoKeys lists the stored objects of the report and its comments.
func (r *Report) PhotoKeys() []string {
	var keys []string
	if r.PhotoKey != "" {
		keys = append(keys, r.PhotoKey)
	}
	for _, c := range r.Comments {
		if c.PhotoKey != "" {
			keys = append(keys, c.PhotoKey)
		}
	}
	return keys
}

// VisibleTo reports whether the user may read and comment on the report.
func (r *Report) VisibleTo(userID string, isAdmin bool) bool {
	return isAdmin || r.ReporterID == userID || (r.AssignedTo != "" && r.AssignedTo == userID)
}
