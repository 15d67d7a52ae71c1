package mongostore

import (
	"context"
	"errors"
	"time"

	"campus-maintenance-system/services/report-service/models"
	"campus-maintenance-system/services/report-service/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type reportRepo struct {
	col *mongo.Collection
}

func (r *reportRepo) Insert(ctx context.Context, rep *models.Report) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if rep.ID.IsZero() {
		rep.ID = primitive.NewObjectID()
	}
	if rep.Comments == nil {
		rep.Comments = []models.Comment{}
	}
	_, err := r.col.InsertOne(ctx, rep)
	return err
}

func (r *reportRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var rep models.Report
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&rep); err != nil {
		return nil, notFound(err)
	}
	return &rep, nil
}

func reportFilter(f store.ReportFilter) bson.M {
	filter := bson.M{}
	if f.ReporterID != "" {
		filter["reporter"] = f.ReporterID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if !f.Since.IsZero() {
		filter["created_at"] = bson.M{"$gte": f.Since}
	}
	return filter
}

func (r *reportRepo) List(ctx context.Context, f store.ReportFilter) ([]models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return decodeAll[models.Report](ctx, r.col, reportFilter(f), newestFirst())
}

func (r *reportRepo) ApplyChange(ctx context.Context, id primitive.ObjectID, expectedVersion int64, change store.ReportChange) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now()}
	update := bson.M{"$inc": bson.M{"version": 1}}
	if change.Status != nil {
		set["status"] = *change.Status
	}
	if change.Priority != nil {
		set["priority"] = *change.Priority
	}
	if change.AssignedTo != nil {
		if *change.AssignedTo == "" {
			update["$unset"] = bson.M{"assigned_to": ""}
		} else {
			set["assigned_to"] = *change.AssignedTo
		}
	}
	update["$set"] = set

	var rep models.Report
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id, "version": expectedVersion}, update, afterUpdate()).Decode(&rep)
	if err == nil {
		return &rep, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// Either the report is gone or another writer got there first.
	n, countErr := r.col.CountDocuments(ctx, bson.M{"_id": id})
	if countErr != nil {
		return nil, countErr
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}
	return nil, store.ErrVersionConflict
}

func (r *reportRepo) AppendComment(ctx context.Context, id primitive.ObjectID, c models.Comment) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	update := bson.M{
		"$push": bson.M{"comments": c},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	var rep models.Report
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, afterUpdate()).Decode(&rep); err != nil {
		return nil, notFound(err)
	}
	return &rep, nil
}

func (r *reportRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
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

func (r *reportRepo) CountByStatus(ctx context.Context, since time.Time) (map[models.ReportStatus]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	match := bson.M{}
	if !since.IsZero() {
		match["created_at"] = bson.M{"$gte": since}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.ReportStatus `bson:"_id"`
		Count  int64               `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[models.ReportStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
