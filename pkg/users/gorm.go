package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campus-maintenance-system/pkg/auth"

	"gorm.io/gorm"
)

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Migrate() error {
	return r.db.AutoMigrate(&User{})
}

func (r *GormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *GormRepository) Create(ctx context.Context, u *User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *GormRepository) first(ctx context.Context, query string, args ...interface{}) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where(query, args...).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &u, nil
}

func (r *GormRepository) FindByID(ctx context.Context, id string) (*User, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	return r.first(ctx, "id = ?", id)
}

func (r *GormRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.first(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *GormRepository) FirstAdmin(ctx context.Context) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("role = ?", auth.RoleAdmin).Order("created_at ASC").First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}
	return &u, nil
}

func (r *GormRepository) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*User, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	fields := map[string]interface{}{}
	if update.Username != nil {
		fields["username"] = *update.Username
	}
	if update.ProfileImage != nil {
		fields["profile_image"] = *update.ProfileImage
	}

	if len(fields) > 0 {
		res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return nil, ErrDuplicate
			}
			return nil, fmt.Errorf("failed to update user: %w", res.Error)
		}
	}
	return r.FindByID(ctx, id)
}

func (r *GormRepository) DeleteByEmail(ctx context.Context, email string) error {
	res := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).Delete(&User{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepository) CountByRole(ctx context.Context) (map[auth.Role]int64, error) {
	var rows []struct {
		Role  auth.Role
		Count int64
	}
	if err := r.db.WithContext(ctx).Model(&User{}).Select("role, count(*) as count").Group("role").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	counts := make(map[auth.Role]int64, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}
