package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus-maintenance-system/pkg/apperror"
	"campus-maintenance-system/pkg/auth"
	"campus-maintenance-system/services/report-service/models"
	"campus-maintenance-system/services/report-service/store"
)

const defaultTaskDuration = 7 * 24 * time.Hour

// TaskDetails describe the task created when a report is accepted. Only
// AssignedTo is required; the rest fall back to report-derived defaults.
type TaskDetails struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssignedTo  string `json:"assignedTo"`
	Priority    string `json:"priority"`
	DueDate     *Date  `json:"dueDate"`
}

// Date accepts either an RFC 3339 timestamp or a calendar date, which is
// read as midnight UTC.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return apperror.Validation("dueDate must be a string")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			d.Time = t
			return nil
		}
	}
	return apperror.Validation("dueDate must be a YYYY-MM-DD date or an RFC 3339 timestamp")
}

type CreateTaskInput struct {
	ReportID string `json:"reportId"`
	TaskDetails
}

type TaskService struct {
	deps *Deps
}

// buildForReport applies the defaults and checks the assignee exists.
func (s *TaskService) buildForReport(ctx context.Context, report *models.Report, details TaskDetails, createdBy string) (*models.AdminTask, error) {
	assignee := strings.TrimSpace(details.AssignedTo)
	if assignee == "" {
		return nil, apperror.Validation("taskDetails.assignedTo is required")
	}
	if s.deps.Users != nil {
		ok, err := s.deps.Users.Exists(ctx, assignee)
		if err != nil {
			return nil, apperror.Internal("Failed to look up assignee", err)
		}
		if !ok {
			return nil, apperror.Validation("Assignee %s does not exist", assignee)
		}
	}

	priority := models.PriorityMedium
	if details.Priority != "" {
		priority = models.Priority(details.Priority)
		if !priority.IsValid() {
			return nil, apperror.Validation("Invalid task priority %q", details.Priority)
		}
	}

	now := s.deps.now()
	due := now.Add(defaultTaskDuration)
	if details.DueDate != nil && !details.DueDate.IsZero() {
		due = details.DueDate.Time
	}

	title := strings.TrimSpace(details.Title)
	if title == "" {
		title = fmt.Sprintf("Task for Report #%s", report.ID.Hex())
	}
	description := strings.TrimSpace(details.Description)
	if description == "" {
		description = report.Description
	}

	return &models.AdminTask{
		Title:       title,
		Description: description,
		ReportID:    report.ID,
		AssignedTo:  assignee,
		CreatedBy:   createdBy,
		Status:      models.TaskPending,
		Priority:    priority,
		DueDate:     due,
		Notes:       []models.TaskNote{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *TaskService) activeFor(ctx context.Context, report *models.Report) (*models.AdminTask, error) {
	task, err := s.deps.Stores.Tasks.FindActiveByReport(ctx, report.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Internal("Failed to look up active task", err)
	}
	return task, nil
}

// closeActive moves the report's active task, if any, to status.
func (s *TaskService) closeActive(ctx context.Context, report *models.Report, status models.TaskStatus) error {
	task, err := s.deps.Stores.Tasks.FindActiveByReport(ctx, report.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var completedAt *time.Time
	if status == models.TaskCompleted {
		now := s.deps.now()
		completedAt = &now
	}
	_, err = s.deps.Stores.Tasks.UpdateStatus(ctx, task.ID, status, completedAt)
	return err
}

// Create is the admin path for opening a task on an existing report.
func (s *TaskService) Create(ctx context.Context, p auth.Principal, in CreateTaskInput) (*models.AdminTask, error) {
	if !p.IsAdmin() {
		return nil, apperror.Forbidden("Only administrators can create tasks")
	}
	reportID, err := parseID(in.ReportID, "report")
	if err != nil {
		return nil, err
	}
	report, err := s.deps.Stores.Reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, storeErr(err, "Report")
	}

	active, err := s.activeFor(ctx, report)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, apperror.BusinessRule("Report already has an active task")
	}

	task, err := s.buildForReport(ctx, report, in.TaskDetails, p.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Stores.Tasks.Insert(ctx, task); err != nil {
		return nil, apperror.Internal("Failed to save task", err)
	}
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, id string) (*models.AdminTask, error) {
	oid, err := parseID(id, "task")
	if err != nil {
		return nil, err
	}
	task, err := s.deps.Stores.Tasks.FindByID(ctx, oid)
	return task, storeErr(err, "Task")
}

func (s *TaskService) List(ctx context.Context) ([]models.AdminTask, error) {
	list, err := s.deps.Stores.Tasks.List(ctx, store.TaskFilter{})
	return list, storeErr(err, "Tasks")
}

func (s *TaskService) ListByStatus(ctx context.Context, status string) ([]models.AdminTask, error) {
	st, ok := models.ParseTaskStatus(status)
	if !ok {
		return nil, apperror.Validation("Invalid task status %q", status)
	}
	list, err := s.deps.Stores.Tasks.List(ctx, store.TaskFilter{Status: st})
	return list, storeErr(err, "Tasks")
}

func (s *TaskService) ListByAssignee(ctx context.Context, userID string) ([]models.AdminTask, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Validation("userId is required")
	}
	list, err := s.deps.Stores.Tasks.List(ctx, store.TaskFilter{AssignedTo: userID})
	return list, storeErr(err, "Tasks")
}

// ListOverdue returns tasks past their due date that are neither completed
// nor cancelled.
func (s *TaskService) ListOverdue(ctx context.Context) ([]models.AdminTask, error) {
	list, err := s.deps.Stores.Tasks.ListOverdue(ctx, s.deps.now())
	return list, storeErr(err, "Tasks")
}

func (s *TaskService) ListForReport(ctx context.Context, reportID string) ([]models.AdminTask, error) {
	oid, err := parseID(reportID, "report")
	if err != nil {
		return nil, err
	}
	list, err := s.deps.Stores.Tasks.ListByReport(ctx, oid)
	return list, storeErr(err, "Tasks")
}

func (s *TaskService) UpdateStatus(ctx context.Context, p auth.Principal, id, status string) (*models.AdminTask, error) {
	if !p.IsAdmin() {
		return nil, apperror.Forbidden("Only administrators can update tasks")
	}
	next, ok := models.ParseTaskStatus(status)
	if !ok || !next.IsUpdatable() {
		return nil, apperror.Validation("Invalid task status %q", status)
	}

	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if next == models.TaskCancelled && task.Status == models.TaskCompleted {
		return nil, apperror.BusinessRule("Cannot cancel a completed task")
	}

	var completedAt *time.Time
	if next == models.TaskCompleted {
		now := s.deps.now()
		completedAt = &now
	}
	updated, err := s.deps.Stores.Tasks.UpdateStatus(ctx, task.ID, next, completedAt)
	return updated, storeErr(err, "Task")
}

func (s *TaskService) AppendNote(ctx context.Context, p auth.Principal, id, text string) (*models.AdminTask, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.Validation("Note text is required")
	}
	oid, err := parseID(id, "task")
	if err != nil {
		return nil, err
	}
	updated, err := s.deps.Stores.Tasks.AppendNote(ctx, oid, models.TaskNote{
		Text:      text,
		CreatedBy: p.UserID,
		CreatedAt: s.deps.now(),
	})
	return updated, storeErr(err, "Task")
}

// Delete removes the task only; the report keeps its assignee until an
// admin moves it back to Pending.
func (s *TaskService) Delete(ctx context.Context, p auth.Principal, id string) error {
	if !p.IsAdmin() {
		return apperror.Forbidden("Only administrators can delete tasks")
	}
	oid, err := parseID(id, "task")
	if err != nil {
		return err
	}
	return storeErr(s.deps.Stores.Tasks.Delete(ctx, oid), "Task")
}
