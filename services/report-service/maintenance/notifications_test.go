package maintenance

import (
	"context"
	"testing"

	"campus-maintenance-system/pkg/apperror"
	"campus-maintenance-system/pkg/events"
	"campus-maintenance-system/services/report-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNotifyValidatesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reportID := primitive.NewObjectID()

	cases := map[string]models.Notification{
		"missing user":   {ReportID: reportID, Type: models.NotificationComment, Message: "hi"},
		"missing report": {UserID: "u", Type: models.NotificationComment, Message: "hi"},
		"unknown type":   {UserID: "u", ReportID: reportID, Type: "reminder", Message: "hi"},
		"blank message":  {UserID: "u", ReportID: reportID, Type: models.NotificationComment, Message: "   "},
	}
	for name, n := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Notifications.Notify(ctx, n)
			requireKind(t, err, apperror.KindValidation)
		})
	}

	n, err := f.svc.Notifications.Notify(ctx, models.Notification{
		UserID: "u", ReportID: reportID, Type: models.NotificationComment, Message: "  hello  ", IsRead: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", n.Message)
	assert.False(t, n.IsRead)
	assert.Contains(t, f.events.published(), events.NotificationCreated)
}

func TestMarkAsReadOwnershipAndIdempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createReport(t, f.student)
	f.accept(t, r)

	notes, err := f.svc.Notifications.ListUnread(ctx, f.student)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	id := notes[0].ID.Hex()

	_, err = f.svc.Notifications.MarkAsRead(ctx, f.other, id)
	requireKind(t, err, apperror.KindForbidden)

	first, err := f.svc.Notifications.MarkAsRead(ctx, f.student, id)
	require.NoError(t, err)
	assert.True(t, first.IsRead)
	require.NotNil(t, first.ReadAt)

	second, err := f.svc.Notifications.MarkAsRead(ctx, f.student, id)
	require.NoError(t, err)
	assert.True(t, second.IsRead)
	assert.Equal(t, first.ReadAt, second.ReadAt)

	_, err = f.svc.Notifications.MarkAsRead(ctx, f.student, primitive.NewObjectID().Hex())
	requireKind(t, err, apperror.KindNotFound)

	unread, err := f.svc.Notifications.ListUnread(ctx, f.student)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestMarkAllAsReadAndUnreadCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createReport(t, f.student)
	_, err := f.svc.Reports.AddComment(ctx, f.admin, r.ID.Hex(), CommentInput{Text: "Checking today"})
	require.NoError(t, err)

	count, err := f.svc.Notifications.UnreadCount(ctx, f.student)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	marked, err := f.svc.Notifications.MarkAllAsRead(ctx, f.student)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	count, err = f.svc.Notifications.UnreadCount(ctx, f.student)
	require.NoError(t, err)
	assert.Zero(t, count)

	// The admin's acknowledgment is untouched.
	adminCount, err := f.svc.Notifications.UnreadCount(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), adminCount)
}
