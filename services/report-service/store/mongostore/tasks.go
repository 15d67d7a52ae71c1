package mongostore

import (
	"context"
	"time"

	"campus-maintenance-system/services/report-service/models"
	"campus-maintenance-system/services/report-service/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type taskRepo struct {
	col *mongo.Collection
}

var inactiveTaskStatuses = bson.A{models.TaskCompleted, models.TaskCancelled}

func (r *taskRepo) Insert(ctx context.Context, t *models.AdminTask) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if t.Notes == nil {
		t.Notes = []models.TaskNote{}
	}
	_, err := r.col.InsertOne(ctx, t)
	return err
}

func (r *taskRepo) findOne(ctx context.Context, filter bson.M) (*models.AdminTask, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var t models.AdminTask
	if err := r.col.FindOne(ctx, filter).Decode(&t); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *taskRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.AdminTask, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *taskRepo) FindActiveByReport(ctx context.Context, reportID primitive.ObjectID) (*models.AdminTask, error) {
	return r.findOne(ctx, bson.M{
		"report_id": reportID,
		"status":    bson.M{"$nin": inactiveTaskStatuses},
	})
}

func (r *taskRepo) List(ctx context.Context, f store.TaskFilter) ([]models.AdminTask, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.AssignedTo != "" {
		filter["assigned_to"] = f.AssignedTo
	}
	return decodeAll[models.AdminTask](ctx, r.col, filter, newestFirst())
}

func (r *taskRepo) ListOverdue(ctx context.Context, now time.Time) ([]models.AdminTask, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"due_date": bson.M{"$lt": now},
		"status":   bson.M{"$nin": inactiveTaskStatuses},
	}
	return decodeAll[models.AdminTask](ctx, r.col, filter, options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}}))
}

func (r *taskRepo) ListByReport(ctx context.Context, reportID primitive.ObjectID) ([]models.AdminTask, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return decodeAll[models.AdminTask](ctx, r.col, bson.M{"report_id": reportID}, newestFirst())
}

func (r *taskRepo) update(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.AdminTask, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var t models.AdminTask
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, afterUpdate()).Decode(&t); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *taskRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.TaskStatus, completedAt *time.Time) (*models.AdminTask, error) {
	set := bson.M{"status": status, "updated_at": time.Now()}
	if completedAt != nil {
		set["completed_at"] = *completedAt
	}
	return r.update(ctx, id, bson.M{"$set": set})
}

func (r *taskRepo) AppendNote(ctx context.Context, id primitive.ObjectID, note models.TaskNote) (*models.AdminTask, error) {
	return r.update(ctx, id, bson.M{
		"$push": bson.M{"notes": note},
		"$set":  bson.M{"updated_at": time.Now()},
	})
}

func (r *taskRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *taskRepo) DeleteByReport(ctx context.Context, reportID primitive.ObjectID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.col.DeleteMany(ctx, bson.M{"report_id": reportID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
