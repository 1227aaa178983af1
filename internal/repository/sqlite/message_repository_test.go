package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/domain"
	"courier/internal/repository"
)

func newMessageFixture(t *testing.T) (repository.MessageRepository, repository.UserRepository) {
	t.Helper()
	ctx := context.Background()
	db := openTestDB(t)

	users := NewUserRepository(db)
	require.NoError(t, users.Init(ctx))
	messages := NewMessageRepository(db)
	require.NoError(t, messages.Init(ctx))

	require.NoError(t, users.Create(ctx, testUser("alice")))
	require.NoError(t, users.Create(ctx, testUser("bob")))

	return messages, users
}

func TestMessageRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	messages, _ := newMessageFixture(t)

	msg := &domain.Message{FromUsername: "alice", ToUsername: "bob", Body: "hi"}
	id, err := messages.Create(ctx, msg)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := messages.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.FromUsername)
	assert.Equal(t, "bob", got.ToUsername)
	assert.Equal(t, "hi", got.Body)
	assert.False(t, got.SentAt.IsZero())
	assert.Nil(t, got.ReadAt)
}

func TestMessageRepositoryIDsAreMonotonic(t *testing.T) {
	ctx := context.Background()
	messages, _ := newMessageFixture(t)

	first, err := messages.Create(ctx, &domain.Message{FromUsername: "alice", ToUsername: "bob", Body: "one"})
	require.NoError(t, err)
	second, err := messages.Create(ctx, &domain.Message{FromUsername: "alice", ToUsername: "bob", Body: "two"})
	require.NoError(t, err)
	assert.Greater(t, second, first)
}

func TestMessageRepositoryRejectsUnknownUsers(t *testing.T) {
	ctx := context.Background()
	messages, _ := newMessageFixture(t)

	_, err := messages.Create(ctx, &domain.Message{FromUsername: "alice", ToUsername: "ghost", Body: "boo"})
	require.Error(t, err)
}

func TestMessageRepositoryGetMissing(t *testing.T) {
	ctx := context.Background()
	messages, _ := newMessageFixture(t)

	_, err := messages.Get(ctx, 9999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMessageRepositoryListToAndFrom(t *testing.T) {
	ctx := context.Background()
	messages, _ := newMessageFixture(t)

	_, err := messages.Create(ctx, &domain.Message{FromUsername: "alice", ToUsername: "bob", Body: "alice -> bob"})
	require.NoError(t, err)
	_, err = messages.Create(ctx, &domain.Message{FromUsername: "bob", ToUsername: "alice", Body: "bob -> alice"})
	require.NoError(t, err)

	inbox, err := messages.ListTo(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "alice -> bob", inbox[0].Body)

	outbox, err := messages.ListFrom(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, outbox, 1)
	assert.Equal(t, "bob -> alice", outbox[0].Body)

	empty, err := messages.ListTo(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMessageRepositoryMarkReadSetOnce(t *testing.T) {
	ctx := context.Background()
	messages, _ := newMessageFixture(t)

	id, err := messages.Create(ctx, &domain.Message{FromUsername: "alice", ToUsername: "bob", Body: "hi"})
	require.NoError(t, err)

	first := time.Now().UTC()
	msg, err := messages.MarkRead(ctx, id, first)
	require.NoError(t, err)
	require.NotNil(t, msg.ReadAt)
	firstStamp := *msg.ReadAt

	// second mark must not move the timestamp
	msg, err = messages.MarkRead(ctx, id, first.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, msg.ReadAt)
	assert.Equal(t, firstStamp, *msg.ReadAt)
}
