package users

import (
	"context"
	"testing"
	"time"

	"campus-maintenance-system/pkg/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryRejectsDuplicates(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &User{Username: "alice", Email: "Alice@Campus.edu"}))

	err := repo.Create(ctx, &User{Username: "alice2", Email: "alice@campus.edu"})
	assert.ErrorIs(t, err, ErrDuplicate)

	err = repo.Create(ctx, &User{Username: "alice", Email: "other@campus.edu"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryRepositoryFirstAdmin(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.FirstAdmin(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	first := &User{Username: "root", Email: "root@campus.edu", Role: auth.RoleAdmin}
	require.NoError(t, repo.Create(ctx, first))
	time.Sleep(time.Millisecond)
	require.NoError(t, repo.Create(ctx, &User{Username: "ops", Email: "ops@campus.edu", Role: auth.RoleAdmin}))
	require.NoError(t, repo.Create(ctx, &User{Username: "stu", Email: "stu@campus.edu"}))

	admin, err := repo.FirstAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, admin.ID)

	counts, err := repo.CountByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[auth.RoleAdmin])
	assert.Equal(t, int64(1), counts[auth.RoleStudent])
}

func TestMemoryRepositoryProfileAndDelete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	u := &User{Username: "bob", Email: "bob@campus.edu"}
	require.NoError(t, repo.Create(ctx, u))
	require.NoError(t, repo.Create(ctx, &User{Username: "carol", Email: "carol@campus.edu"}))

	taken := "carol"
	_, err := repo.UpdateProfile(ctx, u.ID, ProfileUpdate{Username: &taken})
	assert.ErrorIs(t, err, ErrDuplicate)

	img := "https://cdn.campus.edu/bob.png"
	updated, err := repo.UpdateProfile(ctx, u.ID, ProfileUpdate{ProfileImage: &img})
	require.NoError(t, err)
	assert.Equal(t, img, updated.ProfileImage)

	require.NoError(t, repo.DeleteByEmail(ctx, "BOB@campus.edu"))
	_, err = repo.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteByEmail(ctx, "bob@campus.edu"), ErrNotFound)
}

func TestMemoryRepositoryUnknownIDShapes(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	u := &User{Username: "erin", Email: "erin@campus.edu"}
	require.NoError(t, repo.Create(ctx, u))

	found, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "erin", found.Username)

	for _, id := range []string{"", "erin", "65f1c2a9e4b0a1b2c3d4e5f6"} {
		_, err := repo.FindByID(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound, id)
	}
}
