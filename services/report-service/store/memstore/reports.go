package memstore

import (
	"context"
	"time"

	"campus-maintenance-system/services/report-service/models"
	"campus-maintenance-system/services/report-service/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type reportRepo struct{ db *DB }

func cloneReport(r models.Report) models.Report {
	r.Comments = append([]models.Comment{}, r.Comments...)
	return r
}

func (r reportRepo) Insert(_ context.Context, rep *models.Report) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.injected("reports.Insert"); err != nil {
		return err
	}
	if rep.ID.IsZero() {
		rep.ID = primitive.NewObjectID()
	}
	r.db.reports[rep.ID] = cloneReport(*rep)
	return nil
}

func (r reportRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Report, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.injected("reports.FindByID"); err != nil {
		return nil, err
	}
	rep, ok := r.db.reports[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneReport(rep)
	return &out, nil
}

func (r reportRepo) List(_ context.Context, f store.ReportFilter) ([]models.Report, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.Report{}
	for _, rep := range r.db.reports {
		if f.ReporterID != "" && rep.ReporterID != f.ReporterID {
			continue
		}
		if f.Status != "" && rep.Status != f.Status {
			continue
		}
		if f.Category != "" && rep.Category != f.Category {
			continue
		}
		if !f.Since.IsZero() && rep.CreatedAt.Before(f.Since) {
			continue
		}
		out = append(out, cloneReport(rep))
	}
	newestFirst(out, func(m models.Report) int64 { return m.CreatedAt.UnixNano() })
	return out, nil
}

func (r reportRepo) ApplyChange(_ context.Context, id primitive.ObjectID, expectedVersion int64, change store.ReportChange) (*models.Report, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.injected("reports.ApplyChange"); err != nil {
		return nil, err
	}
	rep, ok := r.db.reports[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if rep.Version != expectedVersion {
		return nil, store.ErrVersionConflict
	}
	if change.Status != nil {
		rep.Status = *change.Status
	}
	if change.Priority != nil {
		rep.Priority = *change.Priority
	}
	if change.AssignedTo != nil {
		rep.AssignedTo = *change.AssignedTo
	}
	rep.Version++
	rep.UpdatedAt = time.Now()
	r.db.reports[id] = rep
	out := cloneReport(rep)
	return &out, nil
}

func (r reportRepo) AppendComment(_ context.Context, id primitive.ObjectID, c models.Comment) (*models.Report, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.injected("reports.AppendComment"); err != nil {
		return nil, err
	}
	rep, ok := r.db.reports[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	rep = cloneReport(rep)
	rep.Comments = append(rep.Comments, c)
	rep.UpdatedAt = time.Now()
	r.db.reports[id] = rep
	out := cloneReport(rep)
	return &out, nil
}

func (r reportRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.injected("reports.Delete"); err != nil {
		return err
	}
	if _, ok := r.db.reports[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.db.reports, id)
	return nil
}

func (r reportRepo) CountByStatus(_ context.Context, since time.Time) (map[models.ReportStatus]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	counts := map[models.ReportStatus]int64{}
	for _, rep := range r.db.reports {
		if !since.IsZero() && rep.CreatedAt.Before(since) {
			continue
		}
		counts[rep.Status]++
	}
	return counts, nil
}
