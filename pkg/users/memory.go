package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"campus-maintenance-system/pkg/auth"

	"github.com/google/uuid"
)

// MemoryRepository keeps users in process memory. It backs tests and the
// STORE_DRIVER=memory development mode.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: map[string]User{}}
}

func (r *MemoryRepository) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range r.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = auth.RoleStudent
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.users[u.ID] = *u
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*User, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) UpdateProfile(_ context.Context, id string, update ProfileUpdate) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.Username != nil {
		for otherID, other := range r.users {
			if otherID != id && other.Username == *update.Username {
				return nil, ErrDuplicate
			}
		}
		u.Username = *update.Username
	}
	if update.ProfileImage != nil {
		u.ProfileImage = *update.ProfileImage
	}
	u.UpdatedAt = time.Now()
	r.users[id] = u
	return &u, nil
}

func (r *MemoryRepository) DeleteByEmail(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for id, u := range r.users {
		if u.Email == email {
			delete(r.users, id)
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepository) FirstAdmin(_ context.Context) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var admins []User
	for _, u := range r.users {
		if u.Role == auth.RoleAdmin {
			admins = append(admins, u)
		}
	}
	if len(admins) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].CreatedAt.Before(admins[j].CreatedAt) })
	return &admins[0], nil
}

func (r *MemoryRepository) CountByRole(_ context.Context) (map[auth.Role]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := map[auth.Role]int64{}
	for _, u := range r.users {
		counts[u.Role]++
	}
	return counts, nil
}
