package datasource

import (
	"context"
	"fmt"

	"studyspot-backend/internal/messaging"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/remote"
)

type MessageSource interface {
	Send(ctx context.Context, req models.SendMessageRequest) (*models.Message, error)
	Thread(ctx context.Context, counterpartID string) ([]models.Message, error)
	Conversations(ctx context.Context) ([]models.Conversation, error)
	MarkRead(ctx context.Context, messageID string) (bool, error)
	UnreadCount(ctx context.Context) (int, error)
}

type localMessages struct {
	mailbox *messaging.Mailbox
}

func (s *localMessages) Send(ctx context.Context, req models.SendMessageRequest) (*models.Message, error) {
	msg := s.mailbox.SendMessage(ctx, req.ReceiverID, req.Content, req.ReceiverName, req.ReceiverRole)
	return &msg, nil
}

func (s *localMessages) Thread(ctx context.Context, counterpartID string) ([]models.Message, error) {
	return s.mailbox.GetMessages(ctx, counterpartID), nil
}

func (s *localMessages) Conversations(ctx context.Context) ([]models.Conversation, error) {
	return s.mailbox.GetConversations(ctx), nil
}

func (s *localMessages) MarkRead(ctx context.Context, messageID string) (bool, error) {
	return s.mailbox.MarkAsRead(ctx, messageID), nil
}

func (s *localMessages) UnreadCount(ctx context.Context) (int, error) {
	return s.mailbox.GetUnreadCount(ctx), nil
}

type remoteMessages struct {
	client *remote.Client
	token  string
}

func (s *remoteMessages) Send(ctx context.Context, req models.SendMessageRequest) (*models.Message, error) {
	msg, err := s.client.SendMessage(ctx, s.token, req)
	if err != nil {
		return nil, fmt.Errorf("sending remote message: %w", err)
	}
	return msg, nil
}

func (s *remoteMessages) Thread(ctx context.Context, counterpartID string) ([]models.Message, error) {
	msgs, err := s.client.Thread(ctx, s.token, counterpartID)
	if err = notFoundAsNil(err); err != nil {
		return nil, fmt.Errorf("fetching remote thread: %w", err)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

func (s *remoteMessages) Conversations(ctx context.Context) ([]models.Conversation, error) {
	convs, err := s.client.Conversations(ctx, s.token)
	if err != nil {
		return nil, fmt.Errorf("fetching remote conversations: %w", err)
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	return convs, nil
}

func (s *remoteMessages) MarkRead(ctx context.Context, messageID string) (bool, error) {
	ok, err := s.client.MarkRead(ctx, s.token, messageID)
	if err = notFoundAsNil(err); err != nil {
		return false, fmt.Errorf("marking remote message read: %w", err)
	}
	return ok, nil
}

func (s *remoteMessages) UnreadCount(ctx context.Context) (int, error) {
	n, err := s.client.UnreadCount(ctx, s.token)
	if err != nil {
		return 0, fmt.Errorf("fetching remote unread count: %w", err)
	}
	return n, nil
}
