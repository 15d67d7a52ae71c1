package memstore

import (
	"context"
	"sort"
	"time"

	"campus-maintenance-system/services/report-service/models"
	"campus-maintenance-system/services/report-service/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type announcementRepo struct{ db *DB }

func (r announcementRepo) Insert(_ context.Context, a *models.Announcement) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	r.db.announcements[a.ID] = *a
	return nil
}

func (r announcementRepo) ListLive(_ context.Context, now time.Time) ([]models.Announcement, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.Announcement{}
	for _, a := range r.db.announcements {
		if a.IsLive(now) {
			out = append(out, a)
		}
	}
	newestFirst(out, func(a models.Announcement) int64 { return a.CreatedAt.UnixNano() })
	return out, nil
}

func (r announcementRepo) Deactivate(_ context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.announcements[id]
	if !ok {
		return store.ErrNotFound
	}
	a.IsActive = false
	r.db.announcements[id] = a
	return nil
}

func (r announcementRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.announcements[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.db.announcements, id)
	return nil
}

type messageRepo struct{ db *DB }

func (r messageRepo) Insert(_ context.Context, m *models.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	r.db.messages[m.ID] = *m
	return nil
}

func (r messageRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (r messageRepo) Conversation(_ context.Context, userA, userB string) ([]models.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.Message{}
	for _, m := range r.db.messages {
		if (m.SenderID == userA && m.ReceiverID == userB) || (m.SenderID == userB && m.ReceiverID == userA) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r messageRepo) MarkDelivered(_ context.Context, senderID, receiverID string, at time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, m := range r.db.messages {
		if m.SenderID == senderID && m.ReceiverID == receiverID && m.Status == models.MessageSent {
			m.Status = models.MessageDelivered
			m.DeliveredAt = &at
			r.db.messages[id] = m
			n++
		}
	}
	return n, nil
}

func (r messageRepo) MarkRead(_ context.Context, id primitive.ObjectID, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.messages[id]
	if !ok {
		return store.ErrNotFound
	}
	if m.Status != models.MessageRead {
		m.Status = models.MessageRead
		m.ReadAt = &at
		if m.DeliveredAt == nil {
			m.DeliveredAt = &at
		}
		r.db.messages[id] = m
	}
	return nil
}
