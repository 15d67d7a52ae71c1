package maintenance

import (
	"context"
	"strings"
	"time"

	"campus-maintenance-system/pkg/apperror"
	"campus-maintenance-system/pkg/auth"
	"campus-maintenance-system/services/report-service/models"
)

type AnnouncementInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

type AnnouncementService struct {
	deps *Deps
}

func (s *AnnouncementService) Create(ctx context.Context, p auth.Principal, in AnnouncementInput) (*models.Announcement, error) {
	if !p.IsAdmin() {
		return nil, apperror.Forbidden("Only administrators can post announcements")
	}
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" {
		return nil, apperror.Validation("Title and description are required")
	}

	now := s.deps.now()
	expiresAt := now.Add(models.DefaultAnnouncementTTL)
	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(now) {
			return nil, apperror.Validation("expiresAt must be in the future")
		}
		expiresAt = *in.ExpiresAt
	}

	a := &models.Announcement{
		Title:       title,
		Description: description,
		Author:      p.UserID,
		ExpiresAt:   expiresAt,
		IsActive:    true,
		CreatedAt:   now,
	}
	if err := s.deps.Stores.Announcements.Insert(ctx, a); err != nil {
		return nil, apperror.Internal("Failed to save announcement", err)
	}
	return a, nil
}

// ListActive hides deactivated and expired announcements; nothing is purged.
func (s *AnnouncementService) ListActive(ctx context.Context) ([]models.Announcement, error) {
	list, err := s.deps.Stores.Announcements.ListLive(ctx, s.deps.now())
	return list, storeErr(err, "Announcements")
}

func (s *AnnouncementService) Deactivate(ctx context.Context, p auth.Principal, id string) error {
	if !p.IsAdmin() {
		return apperror.Forbidden("Only administrators can deactivate announcements")
	}
	oid, err := parseID(id, "announcement")
	if err != nil {
		return err
	}
	return storeErr(s.deps.Stores.Announcements.Deactivate(ctx, oid), "Announcement")
}

func (s *AnnouncementService) Delete(ctx context.Context, p auth.Principal, id string) error {
	if !p.IsAdmin() {
		return apperror.Forbidden("Only administrators can delete announcements")
	}
	oid, err := parseID(id, "announcement")
	if err != nil {
		return err
	}
	return storeErr(s.deps.Stores.Announcements.Delete(ctx, oid), "Announcement")
}
