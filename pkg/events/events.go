// Package events holds the payloads exchanged between services over RabbitMQ.
package events

import "time"

const (
	ReportCreated       = "report.created"
	ReportStatusChanged = "report.status_changed"
	NotificationCreated = "notification.created"
	MessageSent         = "message.sent"
)

type ReportEvent struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Building    string    `json:"building,omitempty"`
	Location    string    `json:"location,omitempty"`
	Room        string    `json:"room,omitempty"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	ReporterID  string    `json:"reporter_id"`
	AssignedTo  string    `json:"assigned_to,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type NotificationEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ReportID  string    `json:"report_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Status    string    `json:"status,omitempty"`
	Priority  string    `json:"priority,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageEvent struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
