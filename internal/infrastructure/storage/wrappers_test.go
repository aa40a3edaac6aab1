package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/domain/repository"
)

// failingChatRepository barcha yozishlarda xato qaytaradi
type failingChatRepository struct {
	repository.ChatRepository
	err error
}

func (f failingChatRepository) CreateChat(context.Context, string, entity.Chat) error { return f.err }
func (f failingChatRepository) UpdateTitle(context.Context, string, string, string) error {
	return f.err
}
func (f failingChatRepository) AppendMessage(context.Context, string, string, entity.Message) error {
	return f.err
}
func (f failingChatRepository) DeleteChat(context.Context, string, string) error { return f.err }
func (f failingChatRepository) ReplaceChat(context.Context, string, entity.Chat, []entity.Message) error {
	return f.err
}

func TestNotifyingChatRepository(t *testing.T) {
	ctx := context.Background()
	var events []SaveEvent
	repo := NewNotifyingChatRepository(NewMemoryChatRepository(), func(e SaveEvent) {
		events = append(events, e)
	})

	require.NoError(t, repo.CreateChat(ctx, "u1", entity.Chat{ID: "a", CreatedAt: base}))
	require.NoError(t, repo.AppendMessage(ctx, "u1", "a", msg("m1", entity.RoleUser, "hi", 0)))
	require.NoError(t, repo.UpdateTitle(ctx, "u1", "a", "hi"))
	err := repo.AppendMessage(ctx, "u1", "missing", msg("m2", entity.RoleUser, "x", 0))
	require.ErrorIs(t, err, repository.ErrChatNotFound)
	require.NoError(t, repo.DeleteChat(ctx, "u1", "a"))

	// o'qish hodisa chiqarmaydi
	_, err = repo.ListChats(ctx, "u1")
	require.NoError(t, err)

	require.Len(t, events, 5)
	assert.Equal(t, SaveEvent{UserID: "u1", ChatID: "a", Op: OpCreateChat}, events[0])
	assert.Equal(t, OpAppendMessage, events[1].Op)
	assert.Equal(t, OpUpdateTitle, events[2].Op)
	assert.Equal(t, "missing", events[3].ChatID)
	assert.ErrorIs(t, events[3].Err, repository.ErrChatNotFound)
	assert.Equal(t, OpDeleteChat, events[4].Op)
	assert.NoError(t, events[4].Err)
}

func TestMirroredChatRepository_MirrorFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)

	primary := NewMemoryChatRepository()
	healthy := NewKVChatRepository(NewMemoryKeyValue())
	broken := failingChatRepository{err: errors.New("disk full")}
	repo := NewMirroredChatRepository(primary, zap.New(core), broken, healthy)

	require.NoError(t, repo.CreateChat(ctx, "u1", entity.Chat{ID: "a", Title: "t", CreatedAt: base}))
	require.NoError(t, repo.AppendMessage(ctx, "u1", "a", msg("m1", entity.RoleUser, "hi", 0)))

	// sog' nusxa yozuvlarni oldi
	mirrored, err := healthy.GetMessages(ctx, "u1", "a")
	require.NoError(t, err)
	require.Len(t, mirrored, 1)

	assert.Equal(t, 2, logs.FilterMessage("mirror write failed").Len())
	entry := logs.All()[0]
	assert.Equal(t, string(OpCreateChat), entry.ContextMap()["op"])
	assert.Equal(t, int64(0), entry.ContextMap()["mirror"])
}

func TestMirroredChatRepository_PrimaryFailureSkipsMirrors(t *testing.T) {
	ctx := context.Background()
	mirror := NewMemoryChatRepository()
	repo := NewMirroredChatRepository(failingChatRepository{err: errors.New("boom")}, zap.NewNop(), mirror)

	require.Error(t, repo.CreateChat(ctx, "u1", entity.Chat{ID: "a", CreatedAt: base}))
	chats, err := mirror.ListChats(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestMirroredChatRepository_NoMirrorsReturnsPrimary(t *testing.T) {
	primary := NewMemoryChatRepository()
	assert.Same(t, primary, NewMirroredChatRepository(primary, zap.NewNop()))
}
