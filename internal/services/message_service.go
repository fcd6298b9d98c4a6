package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reelwork/marketplace/internal/models"
	"github.com/reelwork/marketplace/internal/realtime"
	"github.com/reelwork/marketplace/internal/repository"
	appErr "github.com/reelwork/marketplace/pkg/errors"
	"github.com/reelwork/marketplace/pkg/logger"
)

type MessageService interface {
	// ListConversation returns the messages between caller and other, oldest
	// first, then marks other's unread messages to caller as read.
	ListConversation(ctx context.Context, callerID, otherID uuid.UUID) ([]models.Message, error)
	SendMessage(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*models.Message, error)
}

type messageService struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	events   realtime.Publisher
}

func NewMessageService(messages repository.MessageRepository, users repository.UserRepository, events realtime.Publisher) MessageService {
	return &messageService{messages: messages, users: users, events: events}
}

var _ MessageService = (*messageService)(nil)

func (s *messageService) ListConversation(ctx context.Context, callerID, otherID uuid.UUID) ([]models.Message, error) {
	logger.Ctx(ctx).Info("list conversation called",
		zap.String("user_id", callerID.String()), zap.String("other_user_id", otherID.String()))

	msgs, err := s.messages.Conversation(ctx, callerID, otherID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	n, err := s.messages.MarkRead(ctx, otherID, callerID)
	if err != nil {
		logger.Ctx(ctx).Warn("mark messages read failed", zap.Error(err))
	} else if n > 0 {
		logger.Ctx(ctx).Debug("messages marked read", zap.Int64("count", n))
	}
	return msgs, nil
}

func (s *messageService) SendMessage(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*models.Message, error) {
	logger.Ctx(ctx).Info("send message called",
		zap.String("sender_id", senderID.String()), zap.String("receiver_id", receiverID.String()))

	ok, err := s.users.Exists(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErr.New(appErr.CodeNotFound, "Receiver not found")
	}

	m := &models.Message{Content: content, SenderID: senderID, ReceiverID: receiverID}
	if err := s.messages.Create(ctx, m); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.Wrap(err, appErr.CodeNotFound, "Receiver not found")
		}
		return nil, err
	}

	out := m
	var loaded models.Message
	if err := s.messages.GetWithParties(ctx, m.ID, &loaded); err != nil {
		logger.Ctx(ctx).Warn("reload message failed", zap.String("message_id", m.ID.String()), zap.Error(err))
	} else {
		out = &loaded
	}

	notify(ctx, s.events, realtime.EventMessageCreated, out, senderID, receiverID)
	return out, nil
}
