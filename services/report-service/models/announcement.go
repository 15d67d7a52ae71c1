package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultAnnouncementTTL = 14 * 24 * time.Hour

type Announcement struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Author      string             `bson:"author" json:"author"`
	ExpiresAt   time.Time          `bson:"expires_at" json:"expiresAt"`
	IsActive    bool               `bson:"is_active" json:"isActive"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
}

// IsLive is the soft-expiry check applied when listing.
func (a *Announcement) IsLive(now time.Time) bool {
	return a.IsActive && a.ExpiresAt.After(now)
}
