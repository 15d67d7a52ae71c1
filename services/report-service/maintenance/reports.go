package maintenance

import (
	"context"
	"errors"
	"strings"
	"time"

	"campus-maintenance-system/pkg/apperror"
	"campus-maintenance-system/pkg/auth"
	"campus-maintenance-system/pkg/events"
	"campus-maintenance-system/pkg/middleware"
	"campus-maintenance-system/services/report-service/models"
	"campus-maintenance-system/services/report-service/store"
)

const minDescriptionLength = 10

type CreateReportInput struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Building    string `json:"building"`
	Location    string `json:"location"`
	Room        string `json:"room"`
	Priority    string `json:"priority"`
	// Status is accepted for compatibility and ignored.
	Status   string `json:"status"`
	PhotoURL string `json:"photoUrl"`
	// PhotoKey is set by the upload path, never by clients.
	PhotoKey string `json:"-"`
}

type ListReportsInput struct {
	Status    string
	Category  string
	TimeRange string
}

type StatusUpdateInput struct {
	Status      string       `json:"status"`
	TaskDetails *TaskDetails `json:"taskDetails"`
}

type StatusUpdateResult struct {
	Report *models.Report    `json:"report"`
	Task   *models.AdminTask `json:"task,omitempty"`
}

type CommentInput struct {
	Text     string `json:"commentText"`
	PhotoURL string `json:"photoUrl"`
	PhotoKey string `json:"-"`
}

type DeleteResult struct {
	TasksDeleted         int64 `json:"tasksDeleted"`
	NotificationsDeleted int64 `json:"notificationsDeleted"`
}

type ReportService struct {
	deps          *Deps
	tasks         *TaskService
	notifications *NotificationService
}

func (s *ReportService) Create(ctx context.Context, p auth.Principal, in CreateReportInput) (*models.Report, error) {
	category := strings.TrimSpace(in.Category)
	description := strings.TrimSpace(in.Description)
	if category == "" {
		return nil, apperror.Validation("Category is required")
	}
	if len(description) < minDescriptionLength {
		return nil, apperror.Validation("Description must be at least %d characters", minDescriptionLength)
	}

	priority := models.PriorityMedium
	if in.Priority != "" {
		priority = models.Priority(in.Priority)
		if !priority.IsValid() {
			return nil, apperror.Validation("Invalid priority %q", in.Priority)
		}
	}

	now := s.deps.now()
	report := &models.Report{
		ReporterID:  p.UserID,
		Category:    category,
		Description: description,
		Building:    strings.TrimSpace(in.Building),
		Location:    strings.TrimSpace(in.Location),
		Room:        strings.TrimSpace(in.Room),
		PhotoURL:    in.PhotoURL,
		PhotoKey:    in.PhotoKey,
		Priority:    priority,
		Status:      models.StatusPending,
		Comments:    []models.Comment{},
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.deps.Stores.Reports.Insert(ctx, report); err != nil {
		return nil, apperror.Internal("Failed to save report", err)
	}
	middleware.LogInfoCtx(ctx, "Report saved - ID: "+report.ID.Hex())

	s.acknowledge(ctx, report)
	s.deps.publish(ctx, events.ReportCreated, reportEvent(report, now))
	return report, nil
}

func (s *ReportService) acknowledge(ctx context.Context, report *models.Report) {
	if s.deps.Users == nil {
		return
	}
	adminID, err := s.deps.Users.FirstAdminID(ctx)
	if err != nil {
		sideEffectFailed(ctx, "notification", "No admin available to acknowledge report", err)
		return
	}
	s.notifications.notifyBestEffort(ctx, models.NewAcknowledgment(adminID, report))
}

func reportEvent(r *models.Report, at time.Time) events.ReportEvent {
	return events.ReportEvent{
		ID:          r.ID.Hex(),
		Category:    r.Category,
		Description: r.Description,
		Building:    r.Building,
		Location:    r.Location,
		Room:        r.Room,
		Priority:    string(r.Priority),
		Status:      string(r.Status),
		ReporterID:  r.ReporterID,
		AssignedTo:  r.AssignedTo,
		OccurredAt:  at,
	}
}

func timeRangeStart(now time.Time, timeRange string) (time.Time, error) {
	switch timeRange {
	case "", "all":
		return time.Time{}, nil
	case "7d":
		return now.AddDate(0, 0, -7), nil
	case "30d":
		return now.AddDate(0, 0, -30), nil
	case "90d":
		return now.AddDate(0, 0, -90), nil
	}
	return time.Time{}, apperror.Validation("Invalid timeRange %q, use 7d, 30d, 90d or all", timeRange)
}

// List is the admin view over every report.
func (s *ReportService) List(ctx context.Context, p auth.Principal, in ListReportsInput) ([]models.Report, error) {
	if !p.IsAdmin() {
		return nil, apperror.Forbidden("Only administrators can list all reports")
	}
	filter := store.ReportFilter{Category: strings.TrimSpace(in.Category)}
	if in.Status != "" {
		filter.Status = models.ReportStatus(in.Status)
		if !filter.Status.IsValid() {
			return nil, apperror.Validation("Invalid status %q", in.Status)
		}
	}
	since, err := timeRangeStart(s.deps.now(), in.TimeRange)
	if err != nil {
		return nil, err
	}
	filter.Since = since

	list, err := s.deps.Stores.Reports.List(ctx, filter)
	return list, storeErr(err, "Reports")
}

func (s *ReportService) ListMine(ctx context.Context, p auth.Principal) ([]models.Report, error) {
	list, err := s.deps.Stores.Reports.List(ctx, store.ReportFilter{ReporterID: p.UserID})
	return list, storeErr(err, "Reports")
}

func (s *ReportService) Get(ctx context.Context, p auth.Principal, id string) (*models.Report, error) {
	oid, err := parseID(id, "report")
	if err != nil {
		return nil, err
	}
	report, err := s.deps.Stores.Reports.FindByID(ctx, oid)
	if err != nil {
		return nil, storeErr(err, "Report")
	}
	if !report.VisibleTo(p.UserID, p.IsAdmin()) {
		return nil, apperror.Forbidden("You do not have access to this report")
	}
	return report, nil
}

// Analytics counts reports per status over a time range.
func (s *ReportService) Analytics(ctx context.Context, p auth.Principal, timeRange string) (map[string]interface{}, error) {
	if !p.IsAdmin() {
		return nil, apperror.Forbidden("Only administrators can view analytics")
	}
	since, err := timeRangeStart(s.deps.now(), timeRange)
	if err != nil {
		return nil, err
	}
	counts, err := s.deps.Stores.Reports.CountByStatus(ctx, since)
	if err != nil {
		return nil, storeErr(err, "Reports")
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	resolutionRate := 0.0
	if total > 0 {
		resolutionRate = float64(counts[models.StatusResolved]) / float64(total) * 100
	}
	return map[string]interface{}{
		"total":          total,
		"pending":        counts[models.StatusPending],
		"inProgress":     counts[models.StatusInProgress],
		"resolved":       counts[models.StatusResolved],
		"cancelled":      counts[models.StatusCancelled],
		"resolutionRate": resolutionRate,
		"timeRange":      timeRange,
	}, nil
}

// UpdateStatus drives the report state machine. The report write and the
// task write it implies run as one unit of work; the reporter notification
// and the event are best-effort afterwards.
func (s *ReportService) UpdateStatus(ctx context.Context, p auth.Principal, id string, in StatusUpdateInput) (*StatusUpdateResult, error) {
	if !p.IsAdmin() {
		return nil, apperror.Forbidden("Only administrators can update report status")
	}
	next := models.ReportStatus(in.Status)
	if !next.IsValid() {
		return nil, apperror.Validation("Invalid status %q", in.Status)
	}

	oid, err := parseID(id, "report")
	if err != nil {
		return nil, err
	}
	report, err := s.deps.Stores.Reports.FindByID(ctx, oid)
	if err != nil {
		return nil, storeErr(err, "Report")
	}

	prev := report.Status
	switch {
	case prev.IsTerminal():
		return nil, apperror.BusinessRule("Cannot change status of a %s report", prev)
	case prev == next:
		return nil, apperror.BusinessRule("Report is already %s", prev)
	case !prev.CanTransitionTo(next):
		return nil, apperror.BusinessRule("Cannot move a report from %s to %s", prev, next)
	}

	change := store.ReportChange{Status: &next}
	var task *models.AdminTask
	switch next {
	case models.StatusInProgress:
		if in.TaskDetails == nil || strings.TrimSpace(in.TaskDetails.AssignedTo) == "" {
			return nil, apperror.Validation("taskDetails.assignedTo is required to move a report to In Progress")
		}
		active, err := s.tasks.activeFor(ctx, report)
		if err != nil {
			return nil, err
		}
		if active != nil {
			return nil, apperror.BusinessRule("Report already has an active task")
		}
		task, err = s.tasks.buildForReport(ctx, report, *in.TaskDetails, p.UserID)
		if err != nil {
			return nil, err
		}
		change.AssignedTo = &task.AssignedTo
	case models.StatusPending:
		unassigned := ""
		change.AssignedTo = &unassigned
	}

	var updated *models.Report
	reportWritten := false
	err = s.deps.Stores.UnitOfWork.RunInTx(ctx, func(ctx context.Context) error {
		reportWritten = false
		var err error
		updated, err = s.deps.Stores.Reports.ApplyChange(ctx, oid, report.Version, change)
		if err != nil {
			return err
		}
		reportWritten = true

		switch next {
		case models.StatusInProgress:
			return s.deps.Stores.Tasks.Insert(ctx, task)
		case models.StatusPending, models.StatusCancelled:
			return s.tasks.closeActive(ctx, report, models.TaskCancelled)
		case models.StatusResolved:
			return s.tasks.closeActive(ctx, report, models.TaskCompleted)
		}
		return nil
	})
	if err != nil {
		if reportWritten && !s.deps.Stores.UnitOfWork.Transactional() {
			s.revert(ctx, report, updated)
		}
		if errors.Is(err, store.ErrVersionConflict) || errors.Is(err, store.ErrNotFound) {
			return nil, storeErr(err, "Report")
		}
		return nil, apperror.Internal("Failed to update report status", err)
	}

	middleware.ReportTransitions.WithLabelValues(string(next)).Inc()
	middleware.LogInfoCtx(ctx, "Report "+updated.ID.Hex()+" moved from "+string(prev)+" to "+string(next))

	s.notifications.notifyBestEffort(ctx, models.NewStatusChange(updated, prev, p.UserID))
	s.deps.publish(ctx, events.ReportStatusChanged, reportEvent(updated, s.deps.now()))

	return &StatusUpdateResult{Report: updated, Task: task}, nil
}

// revert restores the fields a failed non-transactional status write
// changed, guarded by the version that write produced.
func (s *ReportService) revert(ctx context.Context, original, written *models.Report) {
	status := original.Status
	assignee := original.AssignedTo
	_, err := s.deps.Stores.Reports.ApplyChange(ctx, original.ID, written.Version, store.ReportChange{
		Status:     &status,
		AssignedTo: &assignee,
	})
	if err != nil {
		sideEffectFailed(ctx, "compensation", "Failed to revert report "+original.ID.Hex()+" after task write failure", err)
		return
	}
	middleware.LogWarnCtx(ctx, "Reverted report "+original.ID.Hex()+" after task write failure", nil)
}

func (s *ReportService) UpdatePriority(ctx context.Context, p auth.Principal, id, priority string) (*models.Report, error) {
	if !p.IsAdmin() {
		return nil, apperror.Forbidden("Only administrators can update report priority")
	}
	next := models.Priority(priority)
	if !next.IsValid() {
		return nil, apperror.Validation("Invalid priority %q", priority)
	}

	oid, err := parseID(id, "report")
	if err != nil {
		return nil, err
	}
	report, err := s.deps.Stores.Reports.FindByID(ctx, oid)
	if err != nil {
		return nil, storeErr(err, "Report")
	}
	if report.Priority == next {
		return nil, apperror.BusinessRule("Report priority is already %s", next)
	}

	updated, err := s.deps.Stores.Reports.ApplyChange(ctx, oid, report.Version, store.ReportChange{Priority: &next})
	if err != nil {
		return nil, storeErr(err, "Report")
	}

	s.notifications.notifyBestEffort(ctx, models.NewPriorityChange(updated, report.Priority, p.UserID))
	return updated, nil
}

// AddComment appends a comment and notifies the reporter. An admin who is
// not the reporter triggers both a comment and an admin_comment notification.
func (s *ReportService) AddComment(ctx context.Context, p auth.Principal, id string, in CommentInput) (*models.Report, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, apperror.Validation("Comment text is required")
	}

	report, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.deps.Stores.Reports.AppendComment(ctx, report.ID, models.Comment{
		UserID:      p.UserID,
		CommentText: text,
		PhotoURL:    in.PhotoURL,
		PhotoKey:    in.PhotoKey,
		CreatedAt:   s.deps.now(),
	})
	if err != nil {
		return nil, storeErr(err, "Report")
	}

	if p.UserID != report.ReporterID {
		s.notifications.notifyBestEffort(ctx, models.NewCommentNotice(updated, p.UserID))
		if p.IsAdmin() {
			s.notifications.notifyBestEffort(ctx, models.NewAdminCommentNotice(updated, p.UserID))
		}
	}
	return updated, nil
}

// Delete removes a report with its tasks and notifications. Without
// transactions the cascade is retried as a whole; every step tolerates
// having already run, so a partial failure is completed at least once.
func (s *ReportService) Delete(ctx context.Context, p auth.Principal, id string) (*DeleteResult, error) {
	oid, err := parseID(id, "report")
	if err != nil {
		return nil, err
	}
	report, err := s.deps.Stores.Reports.FindByID(ctx, oid)
	if err != nil {
		return nil, storeErr(err, "Report")
	}

	if !p.IsAdmin() {
		if report.ReporterID != p.UserID {
			return nil, apperror.Forbidden("You can only delete your own reports")
		}
		if report.Status != models.StatusPending {
			return nil, apperror.BusinessRule("Can only delete reports with Pending status")
		}
	}

	var result DeleteResult
	cascade := func(ctx context.Context) error {
		tasks, err := s.deps.Stores.Tasks.DeleteByReport(ctx, oid)
		if err != nil {
			return err
		}
		result.TasksDeleted += tasks

		notifications, err := s.deps.Stores.Notifications.DeleteByReport(ctx, oid)
		if err != nil {
			return err
		}
		result.NotificationsDeleted += notifications

		if err := s.deps.Stores.Reports.Delete(ctx, oid); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return nil
	}

	uow := s.deps.Stores.UnitOfWork
	if uow.Transactional() {
		err = uow.RunInTx(ctx, func(ctx context.Context) error {
			result = DeleteResult{}
			return cascade(ctx)
		})
	} else {
		err = retry(ctx, s.deps.Retry, cascade)
	}
	if err != nil {
		return nil, apperror.Internal("Failed to delete report", err)
	}

	middleware.LogInfoCtx(ctx, "Report "+oid.Hex()+" deleted with its tasks and notifications")
	s.removePhotos(ctx, report)
	return &result, nil
}

// removePhotos drops the stored objects of a deleted report. A failure
// leaves an orphaned object and is only logged.
func (s *ReportService) removePhotos(ctx context.Context, report *models.Report) {
	if s.deps.Photos == nil {
		return
	}
	for _, key := range report.PhotoKeys() {
		if err := s.deps.Photos.Delete(ctx, key); err != nil {
			sideEffectFailed(ctx, "photo", "Failed to remove photo "+key, err)
		}
	}
}
