package repository

import (
	"context"
	"time"

	"courier/internal/domain"
)

// MessageRepository defines persistence operations for Message entities.
type MessageRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, msg *domain.Message) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Message, error)
	ListTo(ctx context.Context, username string) ([]domain.Message, error)
	ListFrom(ctx context.Context, username string) ([]domain.Message, error)
	// MarkRead sets read_at if and only if it is still null. Returns the
	// message in its post-update state regardless of whether this call
	// performed the transition.
	MarkRead(ctx context.Context, id int64, at time.Time) (*domain.Message, error)
}
