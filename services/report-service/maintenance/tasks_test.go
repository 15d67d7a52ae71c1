package maintenance

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"campus-maintenance-system/pkg/apperror"
	"campus-maintenance-system/services/report-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateTaskDirectly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createReport(t, f.student)

	_, err := f.svc.Tasks.Create(ctx, f.admin, CreateTaskInput{
		ReportID:    primitive.NewObjectID().Hex(),
		TaskDetails: TaskDetails{AssignedTo: f.admin.UserID},
	})
	requireKind(t, err, apperror.KindNotFound)

	_, err = f.svc.Tasks.Create(ctx, f.student, CreateTaskInput{ReportID: r.ID.Hex()})
	requireKind(t, err, apperror.KindForbidden)

	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	task, err := f.svc.Tasks.Create(ctx, f.admin, CreateTaskInput{
		ReportID: r.ID.Hex(),
		TaskDetails: TaskDetails{
			Title:      "Replace socket",
			AssignedTo: f.admin.UserID,
			Priority:   "High",
			DueDate:    &Date{due},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Replace socket", task.Title)
	assert.Equal(t, models.PriorityHigh, task.Priority)
	assert.Equal(t, due, task.DueDate)
	assert.Equal(t, f.admin.UserID, task.CreatedBy)

	_, err = f.svc.Tasks.Create(ctx, f.admin, CreateTaskInput{
		ReportID:    r.ID.Hex(),
		TaskDetails: TaskDetails{AssignedTo: f.admin.UserID},
	})
	requireKind(t, err, apperror.KindBusinessRule)
}

func TestTaskDueDateFormats(t *testing.T) {
	var details TaskDetails
	require.NoError(t, json.Unmarshal([]byte(`{"assignedTo":"u","dueDate":"2026-12-01"}`), &details))
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), details.DueDate.Time)

	require.NoError(t, json.Unmarshal([]byte(`{"dueDate":"2026-12-01T09:30:00+07:00"}`), &details))
	assert.True(t, details.DueDate.Equal(time.Date(2026, 12, 1, 2, 30, 0, 0, time.UTC)))

	err := json.Unmarshal([]byte(`{"dueDate":"01/12/2026"}`), &details)
	requireKind(t, err, apperror.KindValidation)

	f := newFixture(t)
	r := f.createReport(t, f.student)
	var in CreateTaskInput
	require.NoError(t, json.Unmarshal([]byte(`{"reportId":"`+r.ID.Hex()+`","assignedTo":"`+f.admin.UserID+`","dueDate":"2026-12-01"}`), &in))
	task, err := f.svc.Tasks.Create(context.Background(), f.admin, in)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), task.DueDate)
}

func TestTaskStatusRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.accept(t, f.createReport(t, f.student)).Task
	id := task.ID.Hex()

	_, err := f.svc.Tasks.UpdateStatus(ctx, f.admin, id, "Draft")
	requireKind(t, err, apperror.KindValidation)

	_, err = f.svc.Tasks.UpdateStatus(ctx, f.admin, id, "Done")
	requireKind(t, err, apperror.KindValidation)

	updated, err := f.svc.Tasks.UpdateStatus(ctx, f.admin, id, "In Progress")
	require.NoError(t, err)
	assert.Nil(t, updated.CompletedAt)

	updated, err = f.svc.Tasks.UpdateStatus(ctx, f.admin, id, "Completed")
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)

	_, err = f.svc.Tasks.UpdateStatus(ctx, f.admin, id, "Cancelled")
	requireKind(t, err, apperror.KindBusinessRule)
	assert.Contains(t, err.Error(), "Cannot cancel a completed task")
}

func TestTaskQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	late := f.accept(t, f.createReport(t, f.student)).Task
	done := f.accept(t, f.createReport(t, f.student)).Task
	_, err := f.svc.Tasks.UpdateStatus(ctx, f.admin, done.ID.Hex(), "Completed")
	require.NoError(t, err)

	// Jump past the default due date.
	f.clock.mu.Lock()
	f.clock.now = f.clock.now.Add(8 * 24 * time.Hour)
	f.clock.mu.Unlock()

	overdue, err := f.svc.Tasks.ListOverdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)

	byStatus, err := f.svc.Tasks.ListByStatus(ctx, "To Do")
	require.NoError(t, err)
	assert.Len(t, byStatus, 1)

	_, err = f.svc.Tasks.ListByStatus(ctx, "Someday")
	requireKind(t, err, apperror.KindValidation)

	mine, err := f.svc.Tasks.ListByAssignee(ctx, f.admin.UserID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := f.svc.Tasks.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAppendNoteAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.accept(t, f.createReport(t, f.student))
	id := res.Task.ID.Hex()

	_, err := f.svc.Tasks.AppendNote(ctx, f.admin, id, "  ")
	requireKind(t, err, apperror.KindValidation)

	updated, err := f.svc.Tasks.AppendNote(ctx, f.admin, id, "Ordered replacement part")
	require.NoError(t, err)
	require.Len(t, updated.Notes, 1)
	assert.Equal(t, f.admin.UserID, updated.Notes[0].CreatedBy)

	requireKind(t, f.svc.Tasks.Delete(ctx, f.student, id), apperror.KindForbidden)
	require.NoError(t, f.svc.Tasks.Delete(ctx, f.admin, id))
	requireKind(t, f.svc.Tasks.Delete(ctx, f.admin, id), apperror.KindNotFound)

	// Deleting the task leaves the report assignment alone.
	report, err := f.svc.Reports.Get(ctx, f.admin, res.Report.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, f.admin.UserID, report.AssignedTo)
}
