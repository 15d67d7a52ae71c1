package maintenance

import (
	"context"
	"strings"

	"campus-maintenance-system/pkg/apperror"
	"campus-maintenance-system/pkg/auth"
	"campus-maintenance-system/pkg/events"
	"campus-maintenance-system/services/report-service/models"
)

const maxMessageLength = 2000

type SendMessageInput struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

type MessageService struct {
	deps *Deps
}

func (s *MessageService) Send(ctx context.Context, p auth.Principal, in SendMessageInput) (*models.Message, error) {
	receiver := strings.TrimSpace(in.ReceiverID)
	content := strings.TrimSpace(in.Content)
	switch {
	case receiver == "":
		return nil, apperror.Validation("receiverId is required")
	case receiver == p.UserID:
		return nil, apperror.BusinessRule("You cannot message yourself")
	case content == "":
		return nil, apperror.Validation("Message content is required")
	case len(content) > maxMessageLength:
		return nil, apperror.Validation("Message content must be at most %d characters", maxMessageLength)
	}

	if s.deps.Users != nil {
		ok, err := s.deps.Users.Exists(ctx, receiver)
		if err != nil {
			return nil, apperror.Internal("Failed to look up receiver", err)
		}
		if !ok {
			return nil, apperror.NotFound("Receiver not found")
		}
	}

	m := &models.Message{
		SenderID:   p.UserID,
		ReceiverID: receiver,
		Content:    content,
		Status:     models.MessageSent,
		CreatedAt:  s.deps.now(),
	}
	if err := s.deps.Stores.Messages.Insert(ctx, m); err != nil {
		return nil, apperror.Internal("Failed to save message", err)
	}

	s.deps.publish(ctx, events.MessageSent, events.MessageEvent{
		ID:         m.ID.Hex(),
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
	})
	return m, nil
}

// Conversation returns both directions oldest first. Opening it marks the
// other user's sent messages as delivered.
func (s *MessageService) Conversation(ctx context.Context, p auth.Principal, otherUserID string) ([]models.Message, error) {
	other := strings.TrimSpace(otherUserID)
	if other == "" {
		return nil, apperror.Validation("userId is required")
	}

	repo := s.deps.Stores.Messages
	if _, err := repo.MarkDelivered(ctx, other, p.UserID, s.deps.now()); err != nil {
		sideEffectFailed(ctx, "message", "Failed to mark messages delivered", err)
	}
	list, err := repo.Conversation(ctx, p.UserID, other)
	return list, storeErr(err, "Messages")
}

func (s *MessageService) MarkRead(ctx context.Context, p auth.Principal, id string) (*models.Message, error) {
	oid, err := parseID(id, "message")
	if err != nil {
		return nil, err
	}
	repo := s.deps.Stores.Messages
	m, err := repo.FindByID(ctx, oid)
	if err != nil {
		return nil, storeErr(err, "Message")
	}
	if m.ReceiverID != p.UserID {
		return nil, apperror.Forbidden("Only the receiver can mark a message as read")
	}
	if m.Status == models.MessageRead {
		return m, nil
	}
	if err := repo.MarkRead(ctx, oid, s.deps.now()); err != nil {
		return nil, storeErr(err, "Message")
	}
	updated, err := repo.FindByID(ctx, oid)
	return updated, storeErr(err, "Message")
}
