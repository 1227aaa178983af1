package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"courier/internal/domain"
	"courier/internal/repository"
)

// MessageService coordinates message exchange and enforces the per-resource
// access rules: only sender or recipient may read a message, only the
// recipient may mark it read, and users may list only their own traffic.
type MessageService interface {
	Send(ctx context.Context, fromUsername, toUsername, body string) (*domain.Message, error)
	Get(ctx context.Context, requester string, id int64) (*domain.Message, error)
	MarkRead(ctx context.Context, requester string, id int64) (*domain.Message, error)
	ListTo(ctx context.Context, requester, username string) ([]domain.Message, error)
	ListFrom(ctx context.Context, requester, username string) ([]domain.Message, error)
}

type messageService struct {
	messages repository.MessageRepository
	users    repository.UserRepository
}

func NewMessageService(messages repository.MessageRepository, users repository.UserRepository) MessageService {
	return &messageService{
		messages: messages,
		users:    users,
	}
}

func (s *messageService) Send(ctx context.Context, fromUsername, toUsername, body string) (*domain.Message, error) {
	toUsername = strings.TrimSpace(toUsername)
	if toUsername == "" {
		return nil, errors.New("to_username is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, errors.New("body is required")
	}

	if _, err := s.users.GetByUsername(ctx, toUsername); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	msg := &domain.Message{
		FromUsername: fromUsername,
		ToUsername:   toUsername,
		Body:         body,
		SentAt:       time.Now().UTC(),
	}
	if _, err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *messageService) Get(ctx context.Context, requester string, id int64) (*domain.Message, error) {
	msg, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.FromUsername != requester && msg.ToUsername != requester {
		return nil, ErrForbidden
	}
	if err := s.attachProfiles(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkRead performs the null -> timestamp transition. Re-marking an already
// read message is a no-op; the timestamp set by the first call survives.
func (s *messageService) MarkRead(ctx context.Context, requester string, id int64) (*domain.Message, error) {
	msg, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.ToUsername != requester {
		return nil, ErrForbidden
	}
	return s.messages.MarkRead(ctx, id, time.Now().UTC())
}

func (s *messageService) ListTo(ctx context.Context, requester, username string) ([]domain.Message, error) {
	if err := s.checkListAccess(ctx, requester, username); err != nil {
		return nil, err
	}
	messages, err := s.messages.ListTo(ctx, username)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		if err := s.attachProfiles(ctx, &messages[i]); err != nil {
			return nil, err
		}
	}
	return messages, nil
}

func (s *messageService) ListFrom(ctx context.Context, requester, username string) ([]domain.Message, error) {
	if err := s.checkListAccess(ctx, requester, username); err != nil {
		return nil, err
	}
	messages, err := s.messages.ListFrom(ctx, username)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		if err := s.attachProfiles(ctx, &messages[i]); err != nil {
			return nil, err
		}
	}
	return messages, nil
}

// checkListAccess restricts inbox/outbox listings to the owner.
func (s *messageService) checkListAccess(ctx context.Context, requester, username string) error {
	if _, err := s.users.GetByUsername(ctx, username); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	if requester != username {
		return ErrForbidden
	}
	return nil
}

func (s *messageService) get(ctx context.Context, id int64) (*domain.Message, error) {
	msg, err := s.messages.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return msg, nil
}

func (s *messageService) attachProfiles(ctx context.Context, msg *domain.Message) error {
	from, err := s.users.GetByUsername(ctx, msg.FromUsername)
	if err != nil {
		return err
	}
	to, err := s.users.GetByUsername(ctx, msg.ToUsername)
	if err != nil {
		return err
	}
	fromProfile := from.Profile()
	toProfile := to.Profile()
	msg.FromUser = &fromProfile
	msg.ToUser = &toProfile
	return nil
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not found")
}
