package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"courier/internal/domain"
	"courier/internal/repository"
	"courier/internal/storage"
)

// ExportService dumps a user's full message history to object storage and
// returns the resulting location. Users may export and list only their own
// history.
type ExportService interface {
	Export(ctx context.Context, requester, username string) (string, error)
	ListExports(ctx context.Context, requester, username string) ([]storage.ObjectInfo, error)
}

type exportService struct {
	messages  repository.MessageRepository
	users     repository.UserRepository
	store     storage.Service
	bucket    string
	keyPrefix string
}

func NewExportService(messages repository.MessageRepository, users repository.UserRepository, store storage.Service, bucket, keyPrefix string) ExportService {
	return &exportService{
		messages:  messages,
		users:     users,
		store:     store,
		bucket:    bucket,
		keyPrefix: keyPrefix,
	}
}

type exportEnvelope struct {
	Username   string           `json:"username"`
	ExportedAt time.Time        `json:"exported_at"`
	Received   []domain.Message `json:"received"`
	Sent       []domain.Message `json:"sent"`
}

func (s *exportService) Export(ctx context.Context, requester, username string) (string, error) {
	if err := s.checkAccess(ctx, requester, username); err != nil {
		return "", err
	}

	received, err := s.messages.ListTo(ctx, username)
	if err != nil {
		return "", err
	}
	sent, err := s.messages.ListFrom(ctx, username)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(exportEnvelope{
		Username:   username,
		ExportedAt: time.Now().UTC(),
		Received:   received,
		Sent:       sent,
	})
	if err != nil {
		return "", fmt.Errorf("marshal export: %w", err)
	}

	key := fmt.Sprintf("%s/%s/%s.json", s.keyPrefix, username, uuid.NewString())
	location, err := s.store.Put(ctx, s.bucket, key, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("store export: %w", err)
	}
	return location, nil
}

// ListExports returns the objects previously written for username.
func (s *exportService) ListExports(ctx context.Context, requester, username string) ([]storage.ObjectInfo, error) {
	if err := s.checkAccess(ctx, requester, username); err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("%s/%s/", s.keyPrefix, username)
	objects, err := s.store.ListObjects(ctx, s.bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	return objects, nil
}

func (s *exportService) checkAccess(ctx context.Context, requester, username string) error {
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
