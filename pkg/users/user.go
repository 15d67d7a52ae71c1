package users

import (
	"context"
	"errors"
	"time"

	"campus-maintenance-system/pkg/auth"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("username or email already registered")
)

// validID reports whether id can be a user primary key. Other ids, such as
// Mongo ObjectIDs, cannot match any user.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type User struct {
	ID           string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Password     string    `gorm:"not null" json:"-"`
	Role         auth.Role `gorm:"type:varchar(16);default:'student';index" json:"role"`
	ProfileImage string    `json:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) Principal() auth.Principal {
	return auth.Principal{UserID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

type ProfileUpdate struct {
	Username     *string
	ProfileImage *string
}

// Repository is the user store shared by auth-service, report-service and facilityctl.
type Repository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*User, error)
	DeleteByEmail(ctx context.Context, email string) error
	FirstAdmin(ctx context.Context) (*User, error)
	CountByRole(ctx context.Context) (map[auth.Role]int64, error)
}
