package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"courier/internal/auth"
	"courier/internal/repository"
	"courier/internal/repository/sqlite"
)

// threeUsers builds alice, bob and eve on an in-memory store.
func threeUsers(t *testing.T) (MessageService, repository.MessageRepository, repository.UserRepository) {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := sqlite.NewUserRepository(db)
	require.NoError(t, users.Init(ctx))
	messages := sqlite.NewMessageRepository(db)
	require.NoError(t, messages.Init(ctx))

	userSvc := NewUserService(users, auth.NewPasswordHasher(bcrypt.MinCost), quietLogger())
	for _, name := range []string{"alice", "bob", "eve"} {
		_, err := userSvc.Register(ctx, RegisterInput{
			Username:  name,
			Password:  "secret-" + name,
			FirstName: name,
			LastName:  "Test",
			Phone:     "+14155550000",
		})
		require.NoError(t, err)
	}

	return NewMessageService(messages, users), messages, users
}

func TestSendAttachesSenderAndValidatesRecipient(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := threeUsers(t)

	msg, err := svc.Send(ctx, "alice", "bob", "hi")
	require.NoError(t, err)
	assert.Equal(t, "alice", msg.FromUsername)
	assert.Equal(t, "bob", msg.ToUsername)
	assert.Positive(t, msg.ID)
	assert.Nil(t, msg.ReadAt)

	_, err = svc.Send(ctx, "alice", "ghost", "boo")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Send(ctx, "alice", "bob", "   ")
	assert.Error(t, err)
}

func TestMessageReadableByPartiesOnly(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := threeUsers(t)

	msg, err := svc.Send(ctx, "alice", "bob", "hi")
	require.NoError(t, err)

	for _, requester := range []string{"alice", "bob"} {
		got, err := svc.Get(ctx, requester, msg.ID)
		require.NoError(t, err, "requester %s", requester)
		assert.Equal(t, "hi", got.Body)
		require.NotNil(t, got.FromUser)
		require.NotNil(t, got.ToUser)
		assert.Equal(t, "alice", got.FromUser.Username)
		assert.Equal(t, "bob", got.ToUser.Username)
	}

	_, err = svc.Get(ctx, "eve", msg.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(ctx, "alice", 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkReadRecipientOnly(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := threeUsers(t)

	msg, err := svc.Send(ctx, "alice", "bob", "hi")
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, "alice", msg.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.MarkRead(ctx, "eve", msg.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	read, err := svc.MarkRead(ctx, "bob", msg.ID)
	require.NoError(t, err)
	require.NotNil(t, read.ReadAt)
	stamp := *read.ReadAt

	// idempotent no-op on re-mark
	again, err := svc.MarkRead(ctx, "bob", msg.ID)
	require.NoError(t, err)
	require.NotNil(t, again.ReadAt)
	assert.Equal(t, stamp, *again.ReadAt)
}

func TestListingsAreSelfOnly(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := threeUsers(t)

	_, err := svc.Send(ctx, "alice", "bob", "alice -> bob")
	require.NoError(t, err)
	_, err = svc.Send(ctx, "bob", "alice", "bob -> alice")
	require.NoError(t, err)

	inbox, err := svc.ListTo(ctx, "alice", "alice")
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "bob -> alice", inbox[0].Body)
	require.NotNil(t, inbox[0].FromUser)
	assert.Equal(t, "bob", inbox[0].FromUser.Username)

	outbox, err := svc.ListFrom(ctx, "alice", "alice")
	require.NoError(t, err)
	require.Len(t, outbox, 1)
	assert.Equal(t, "alice -> bob", outbox[0].Body)
	require.NotNil(t, outbox[0].ToUser)
	assert.Equal(t, "bob", outbox[0].ToUser.Username)

	// someone else's inbox is off limits
	_, err = svc.ListTo(ctx, "eve", "alice")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.ListFrom(ctx, "eve", "alice")
	assert.ErrorIs(t, err, ErrForbidden)

	// unknown target reads as not found
	_, err = svc.ListTo(ctx, "alice", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
