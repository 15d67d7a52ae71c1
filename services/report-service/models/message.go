package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageStatus string

const (
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageRead      MessageStatus = "read"
)

type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SenderID    string             `bson:"sender_id" json:"senderId"`
	ReceiverID  string             `bson:"receiver_id" json:"receiverId"`
	Content     string             `bson:"content" json:"content"`
	Status      MessageStatus      `bson:"status" json:"status"`
	DeliveredAt *time.Time         `bson:"delivered_at,omitempty" json:"deliveredAt,omitempty"`
	ReadAt      *time.Time         `bson:"read_at,omitempty" json:"readAt,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
}
