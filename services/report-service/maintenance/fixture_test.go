package maintenance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campus-maintenance-system/pkg/apperror"
	"campus-maintenance-system/pkg/auth"
	"campus-maintenance-system/pkg/users"
	"campus-maintenance-system/services/report-service/models"
	"campus-maintenance-system/services/report-service/store/memstore"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.keys...)
}

type recordingRemover struct {
	mu      sync.Mutex
	removed []string
	err     error
}

func (r *recordingRemover) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.removed = append(r.removed, key)
	return nil
}

// clock advances one second per reading so creation order is stable.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	db      *memstore.DB
	svc     *Services
	events  *recordingPublisher
	photos  *recordingRemover
	clock   *clock
	admin   auth.Principal
	student auth.Principal
	other   auth.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := users.NewMemoryRepository()

	create := func(name string, role auth.Role) auth.Principal {
		u := &users.User{Username: name, Email: name + "@campus.edu", Role: role}
		require.NoError(t, repo.Create(ctx, u))
		return u.Principal()
	}

	f := &fixture{
		db:     memstore.New(),
		events: &recordingPublisher{},
		photos: &recordingRemover{},
		clock:  &clock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
	}
	f.admin = create("admin", auth.RoleAdmin)
	f.student = create("student", auth.RoleStudent)
	f.other = create("other", auth.RoleStaff)

	f.svc = New(Deps{
		Stores: f.db.Stores(),
		Users:  NewUserDirectory(repo),
		Events: f.events,
		Photos: f.photos,
		Now:    f.clock.Now,
		Retry:  RetryPolicy{Attempts: 3, Backoff: time.Millisecond},
	})
	return f
}

func (f *fixture) createReport(t *testing.T, by auth.Principal) *models.Report {
	t.Helper()
	r, err := f.svc.Reports.Create(context.Background(), by, CreateReportInput{
		Category:    "Electrical",
		Description: "Broken socket in W2 room 101 longer than ten chars",
		Building:    "W2",
		Room:        "101",
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) accept(t *testing.T, r *models.Report) *StatusUpdateResult {
	t.Helper()
	res, err := f.svc.Reports.UpdateStatus(context.Background(), f.admin, r.ID.Hex(), StatusUpdateInput{
		Status:      string(models.StatusInProgress),
		TaskDetails: &TaskDetails{AssignedTo: f.admin.UserID},
	})
	require.NoError(t, err)
	return res
}

func requireKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr), "expected domain error, got %v", err)
	require.Equal(t, kind, appErr.Kind, appErr.Message)
}
