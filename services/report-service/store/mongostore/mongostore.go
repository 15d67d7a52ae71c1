// Package mongostore implements the report service stores on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"campus-maintenance-system/services/report-service/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	reportsCollection       = "reports"
	tasksCollection         = "admin_tasks"
	notificationsCollection = "notifications"
	announcementsCollection = "announcements"
	messagesCollection      = "messages"

	opTimeout = 5 * time.Second
)

// New returns the stores backed by db. When transactions is true the unit
// of work uses multi-document transactions, which need a replica set.
func New(db *mongo.Database, transactions bool) store.Stores {
	return store.Stores{
		Reports:       &reportRepo{col: db.Collection(reportsCollection)},
		Tasks:         &taskRepo{col: db.Collection(tasksCollection)},
		Notifications: &notificationRepo{col: db.Collection(notificationsCollection)},
		Announcements: &announcementRepo{col: db.Collection(announcementsCollection)},
		Messages:      &messageRepo{col: db.Collection(messagesCollection)},
		UnitOfWork:    &unitOfWork{client: db.Client(), enabled: transactions},
	}
}

// EnsureIndexes creates the indexes the repositories query by.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		reportsCollection: {
			{Keys: bson.D{{Key: "reporter", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		tasksCollection: {
			{Keys: bson.D{{Key: "report_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "assigned_to", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "due_date", Value: 1}}},
		},
		notificationsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_read", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "report_id", Value: 1}}},
		},
		announcementsCollection: {
			{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "expires_at", Value: 1}}},
		},
		messagesCollection: {
			{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}

	for name, idx := range indexes {
		c, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, err := db.Collection(name).Indexes().CreateMany(c, idx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	log.Println("[OK] MongoDB indexes ensured")
	return nil
}

type unitOfWork struct {
	client  *mongo.Client
	enabled bool
}

func (u *unitOfWork) Transactional() bool { return u.enabled }

func (u *unitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !u.enabled {
		return fn(ctx)
	}

	sess, err := u.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func decodeAll[T any](ctx context.Context, col *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
}

func afterUpdate() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}
