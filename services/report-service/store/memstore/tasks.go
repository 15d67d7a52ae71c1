package memstore

import (
	"context"
	"time"

	"campus-maintenance-system/services/report-service/models"
	"campus-maintenance-system/services/report-service/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type taskRepo struct{ db *DB }

func cloneTask(t models.AdminTask) models.AdminTask {
	t.Notes = append([]models.TaskNote{}, t.Notes...)
	return t
}

func (r taskRepo) Insert(_ context.Context, t *models.AdminTask) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.injected("tasks.Insert"); err != nil {
		return err
	}
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	r.db.tasks[t.ID] = cloneTask(*t)
	return nil
}

func (r taskRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.AdminTask, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneTask(t)
	return &out, nil
}

func (r taskRepo) FindActiveByReport(_ context.Context, reportID primitive.ObjectID) (*models.AdminTask, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, t := range r.db.tasks {
		if t.ReportID == reportID && t.Status.IsActive() {
			out := cloneTask(t)
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r taskRepo) collect(match func(models.AdminTask) bool) []models.AdminTask {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.AdminTask{}
	for _, t := range r.db.tasks {
		if match(t) {
			out = append(out, cloneTask(t))
		}
	}
	newestFirst(out, func(t models.AdminTask) int64 { return t.CreatedAt.UnixNano() })
	return out
}

func (r taskRepo) List(_ context.Context, f store.TaskFilter) ([]models.AdminTask, error) {
	return r.collect(func(t models.AdminTask) bool {
		return (f.Status == "" || t.Status == f.Status) && (f.AssignedTo == "" || t.AssignedTo == f.AssignedTo)
	}), nil
}

func (r taskRepo) ListOverdue(_ context.Context, now time.Time) ([]models.AdminTask, error) {
	return r.collect(func(t models.AdminTask) bool { return t.IsOverdue(now) }), nil
}

func (r taskRepo) ListByReport(_ context.Context, reportID primitive.ObjectID) ([]models.AdminTask, error) {
	return r.collect(func(t models.AdminTask) bool { return t.ReportID == reportID }), nil
}

func (r taskRepo) update(op string, id primitive.ObjectID, apply func(*models.AdminTask)) (*models.AdminTask, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.injected(op); err != nil {
		return nil, err
	}
	t, ok := r.db.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	t = cloneTask(t)
	apply(&t)
	t.UpdatedAt = time.Now()
	r.db.tasks[id] = t
	out := cloneTask(t)
	return &out, nil
}

func (r taskRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, status models.TaskStatus, completedAt *time.Time) (*models.AdminTask, error) {
	return r.update("tasks.UpdateStatus", id, func(t *models.AdminTask) {
		t.Status = status
		if completedAt != nil {
			t.CompletedAt = completedAt
		}
	})
}

func (r taskRepo) AppendNote(_ context.Context, id primitive.ObjectID, note models.TaskNote) (*models.AdminTask, error) {
	return r.update("tasks.AppendNote", id, func(t *models.AdminTask) {
		t.Notes = append(t.Notes, note)
	})
}

func (r taskRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tasks[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.db.tasks, id)
	return nil
}

func (r taskRepo) DeleteByReport(_ context.Context, reportID primitive.ObjectID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.injected("tasks.DeleteByReport"); err != nil {
		return 0, err
	}
	var n int64
	for id, t := range r.db.tasks {
		if t.ReportID == reportID {
			delete(r.db.tasks, id)
			n++
		}
	}
	return n, nil
}
