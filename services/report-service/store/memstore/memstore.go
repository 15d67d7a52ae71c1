// Package memstore is an in-process implementation of the report service
// stores. It backs the tests and the STORE_DRIVER=memory development mode.
package memstore

import (
	"context"
	"sort"
	"sync"

	"campus-maintenance-system/services/report-service/models"
	"campus-maintenance-system/services/report-service/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DB struct {
	mu            sync.Mutex
	reports       map[primitive.ObjectID]models.Report
	tasks         map[primitive.ObjectID]models.AdminTask
	notifications map[primitive.ObjectID]models.Notification
	announcements map[primitive.ObjectID]models.Announcement
	messages      map[primitive.ObjectID]models.Message
	faults        map[string]*fault
}

type fault struct {
	err       error
	remaining int
}

func New() *DB {
	return &DB{
		reports:       map[primitive.ObjectID]models.Report{},
		tasks:         map[primitive.ObjectID]models.AdminTask{},
		notifications: map[primitive.ObjectID]models.Notification{},
		announcements: map[primitive.ObjectID]models.Announcement{},
		messages:      map[primitive.ObjectID]models.Message{},
		faults:        map[string]*fault{},
	}
}

// Stores exposes the database through the store interfaces.
func (db *DB) Stores() store.Stores {
	return store.Stores{
		Reports:       reportRepo{db},
		Tasks:         taskRepo{db},
		Notifications: notificationRepo{db},
		Announcements: announcementRepo{db},
		Messages:      messageRepo{db},
		UnitOfWork:    unitOfWork{},
	}
}

// FailNext makes the next times calls of op return err. Ops are named
// "<collection>.<method>", e.g. "tasks.Insert".
func (db *DB) FailNext(op string, err error, times int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.faults[op] = &fault{err: err, remaining: times}
}

// injected must be called with mu held.
func (db *DB) injected(op string) error {
	f, ok := db.faults[op]
	if !ok || f.remaining == 0 {
		return nil
	}
	f.remaining--
	return f.err
}

// unitOfWork runs writes sequentially; nothing is rolled back.
type unitOfWork struct{}

func (unitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (unitOfWork) Transactional() bool { return false }

func newestFirst[T any](items []T, createdAt func(T) int64) {
	sort.SliceStable(items, func(i, j int) bool { return createdAt(items[i]) > createdAt(items[j]) })
}
