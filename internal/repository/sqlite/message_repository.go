package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"courier/internal/domain"
	"courier/internal/repository"
)

const createMessagesTable = `
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	from_username TEXT NOT NULL,
	to_username TEXT NOT NULL,
	body TEXT NOT NULL,
	sent_at DATETIME NOT NULL,
	read_at DATETIME NULL,
	FOREIGN KEY(from_username) REFERENCES users(username),
	FOREIGN KEY(to_username) REFERENCES users(username)
);
CREATE INDEX IF NOT EXISTS idx_messages_to_username ON messages(to_username);
CREATE INDEX IF NOT EXISTS idx_messages_from_username ON messages(from_username);
`

type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) repository.MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createMessagesTable); err != nil {
		return fmt.Errorf("create messages table: %w", err)
	}
	return nil
}

func (r *MessageRepository) Create(ctx context.Context, msg *domain.Message) (int64, error) {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO messages (from_username, to_username, body, sent_at)
VALUES (?, ?, ?, ?)`,
		msg.FromUsername,
		msg.ToUsername,
		msg.Body,
		msg.SentAt,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
			return 0, fmt.Errorf("user not found: %w", err)
		}
		return 0, fmt.Errorf("insert message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("message last insert id: %w", err)
	}
	msg.ID = id
	return id, nil
}

func (r *MessageRepository) Get(ctx context.Context, id int64) (*domain.Message, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, from_username, to_username, body, sent_at, read_at
FROM messages
WHERE id = ?`,
		id,
	)
	return scanMessage(row)
}

func (r *MessageRepository) ListTo(ctx context.Context, username string) ([]domain.Message, error) {
	return r.list(ctx, `
SELECT id, from_username, to_username, body, sent_at, read_at
FROM messages
WHERE to_username = ?
ORDER BY id`, username)
}

func (r *MessageRepository) ListFrom(ctx context.Context, username string) ([]domain.Message, error) {
	return r.list(ctx, `
SELECT id, from_username, to_username, body, sent_at, read_at
FROM messages
WHERE from_username = ?
ORDER BY id`, username)
}

func (r *MessageRepository) list(ctx context.Context, query, username string) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// MarkRead flips read_at exactly once; the conditional update is the
// serialization point for concurrent calls on the same message.
func (r *MessageRepository) MarkRead(ctx context.Context, id int64, at time.Time) (*domain.Message, error) {
	if _, err := r.db.ExecContext(ctx, `
UPDATE messages SET read_at = ? WHERE id = ? AND read_at IS NULL`,
		at.UTC(), id,
	); err != nil {
		return nil, fmt.Errorf("mark message read: %w", err)
	}
	return r.Get(ctx, id)
}

func scanMessage(row interface {
	Scan(dest ...any) error
}) (*domain.Message, error) {
	var (
		msg    domain.Message
		readAt sql.NullTime
	)
	if err := row.Scan(
		&msg.ID,
		&msg.FromUsername,
		&msg.ToUsername,
		&msg.Body,
		&msg.SentAt,
		&readAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message not found")
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}
	if readAt.Valid {
		t := readAt.Time
		msg.ReadAt = &t
	}
	return &msg, nil
}
