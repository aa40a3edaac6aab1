package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/domain/repository"
	"github.com/fingenie/assistant/internal/infrastructure/storage"
	"github.com/fingenie/assistant/internal/session"
)

func TestDeriveTitle(t *testing.T) {
	exactly50 := strings.Repeat("x", 50)
	long := strings.Repeat("y", 60)
	unicode := strings.Repeat("ş", 51)
	emoji := strings.Repeat("a", 46) + "💰💰💰"

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "How do I save for college?", "How do I save for college?"},
		{"exactly 50", exactly50, exactly50},
		{"long", long, strings.Repeat("y", 47) + "..."},
		{"bmp runes are one unit", unicode, strings.Repeat("ş", 47) + "..."},
		{"emoji counts as two units", strings.Repeat("💰", 25), strings.Repeat("💰", 25)},
		{"emoji pair not split", emoji, strings.Repeat("a", 46) + "..."},
		{"kept verbatim", "  hi  ", "  hi  "},
		{"empty", "   ", entity.DefaultChatTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.in))
		})
	}
}

func TestChatUseCase_RequiresSession(t *testing.T) {
	uc, _ := newChat(t)
	ctx := context.Background()

	_, err := uc.CreateChat(ctx, "")
	assert.ErrorIs(t, err, session.ErrNoSession)
	_, err = uc.ListChats(ctx)
	assert.ErrorIs(t, err, session.ErrNoSession)
	_, err = uc.Ask(ctx, "", "hi", nil)
	assert.ErrorIs(t, err, session.ErrNoSession)
	_, err = uc.Export(ctx)
	assert.ErrorIs(t, err, session.ErrNoSession)
	_, err = uc.Import(ctx, []byte(`{"chats":[]}`))
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestChatUseCase_TitleFromFirstUserMessage(t *testing.T) {
	uc, _ := newChat(t)
	ctx := userCtx("did:ethr:0x1:00000001")

	chatID, err := uc.CreateChat(ctx, "")
	require.NoError(t, err)

	chats, err := uc.ListChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, entity.DefaultChatTitle, chats[0].Title)

	// bot xabari sarlavhani o'zgartirmaydi
	_, err = uc.AppendMessage(ctx, chatID, entity.RoleBot, "Welcome to FinGenie!")
	require.NoError(t, err)
	_, err = uc.AppendMessage(ctx, chatID, entity.RoleUser, strings.Repeat("a", 55))
	require.NoError(t, err)
	_, err = uc.AppendMessage(ctx, chatID, entity.RoleUser, "second question")
	require.NoError(t, err)

	chats, err = uc.ListChats(ctx)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 47)+"...", chats[0].Title)

	messages, err := uc.GetMessages(ctx, chatID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, entity.RoleBot, messages[0].Role)
	assert.Equal(t, "second question", messages[2].Content)
}

func TestChatUseCase_AppendToUnknownChat(t *testing.T) {
	uc := NewChatUseCase(&fakeAssistant{}, storage.NewKVChatRepository(storage.NewMemoryKeyValue()), nil)
	_, err := uc.AppendMessage(userCtx("u1"), "missing", entity.RoleUser, "hi")
	assert.ErrorIs(t, err, repository.ErrChatNotFound)
}

func TestChatUseCase_GetMessagesOfUnknownChat(t *testing.T) {
	for name, repo := range map[string]repository.ChatRepository{
		"memory": storage.NewMemoryChatRepository(),
		"kv":     storage.NewKVChatRepository(storage.NewMemoryKeyValue()),
		"sqlite": sqliteChats(t),
	} {
		t.Run(name, func(t *testing.T) {
			uc := NewChatUseCase(&fakeAssistant{}, repo, nil)
			ctx := userCtx("u1")

			_, err := uc.GetMessages(ctx, "missing")
			assert.ErrorIs(t, err, repository.ErrChatNotFound)

			id, err := uc.CreateChat(ctx, "Budget")
			require.NoError(t, err)
			messages, err := uc.GetMessages(ctx, id)
			require.NoError(t, err)
			assert.Empty(t, messages)

			// boshqa foydalanuvchi chatni ko'rmaydi
			_, err = uc.GetMessages(userCtx("u2"), id)
			assert.ErrorIs(t, err, repository.ErrChatNotFound)
		})
	}
}

func TestChatUseCase_AskCreatesChatAndStoresReply(t *testing.T) {
	uc, assistant := newChat(t)
	ctx := userCtx("u1")

	res, err := uc.Ask(ctx, "", "  Should I pay off debt first?  ", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, res.ChatID)
	assert.Equal(t, "Here is my advice.", res.Reply)
	assert.Equal(t, "Should I pay off debt first?", assistant.lastPrompt())

	messages, err := uc.GetMessages(ctx, res.ChatID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, entity.RoleUser, messages[0].Role)
	assert.Equal(t, "Should I pay off debt first?", messages[0].Content)
	assert.Equal(t, entity.RoleBot, messages[1].Role)
	assert.Equal(t, "Here is my advice.", messages[1].Content)

	chats, err := uc.ListChats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Should I pay off debt first?", chats[0].Title)

	// xuddi shu chatga davom etish
	again, err := uc.Ask(ctx, res.ChatID, "And then?", nil)
	require.NoError(t, err)
	assert.Equal(t, res.ChatID, again.ChatID)
	chats, err = uc.ListChats(ctx)
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestChatUseCase_AskWithFallbackReplyIsStored(t *testing.T) {
	assistant := &fakeAssistant{reply: repository.UnavailableFallback}
	uc := NewChatUseCase(assistant, storage.NewMemoryChatRepository(), nil)
	ctx := userCtx("u1")

	res, err := uc.Ask(ctx, "", "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, repository.UnavailableFallback, res.Reply)

	messages, err := uc.GetMessages(ctx, res.ChatID)
	require.NoError(t, err)
	assert.Equal(t, repository.UnavailableFallback, messages[1].Content)
}

func TestChatUseCase_AskWithAttachment(t *testing.T) {
	uc, assistant := newChat(t)
	ctx := userCtx("u1")
	doc := &entity.Attachment{Name: "w2.txt", Content: "Wages: 50000"}

	res, err := uc.Ask(ctx, "", "", doc)
	require.NoError(t, err)

	assert.Equal(t,
		"DOCUMENT_CONTENT_FOR_ANALYSIS\n\nI've uploaded \"w2.txt\" for analysis.\n\nDocument: w2.txt\n\nWages: 50000",
		assistant.lastPrompt())

	messages, err := uc.GetMessages(ctx, res.ChatID)
	require.NoError(t, err)
	assert.Equal(t, `I've uploaded "w2.txt" for analysis.`, messages[0].Content)

	_, err = uc.Ask(ctx, res.ChatID, "Is my withholding right?", doc)
	require.NoError(t, err)
	assert.Equal(t,
		"DOCUMENT_CONTENT_FOR_ANALYSIS\n\nIs my withholding right?\n\nDocument: w2.txt\n\nWages: 50000",
		assistant.lastPrompt())
}

func TestChatUseCase_AskEmpty(t *testing.T) {
	uc, assistant := newChat(t)
	_, err := uc.Ask(userCtx("u1"), "", "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, assistant.prompts)
}

func TestChatUseCase_DeleteChat(t *testing.T) {
	uc, _ := newChat(t)
	ctx := userCtx("u1")

	res, err := uc.Ask(ctx, "", "hi", nil)
	require.NoError(t, err)
	require.NoError(t, uc.DeleteChat(ctx, res.ChatID))

	chats, err := uc.ListChats(ctx)
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestChatUseCase_ExportFormat(t *testing.T) {
	uc, _ := newChat(t)
	ctx := userCtx("u1")

	res, err := uc.Ask(ctx, "", "Budget help", nil)
	require.NoError(t, err)

	data, err := uc.Export(ctx)
	require.NoError(t, err)

	require.True(t, gjson.ValidBytes(data))
	chats := gjson.GetBytes(data, "chats").Array()
	require.Len(t, chats, 1)
	assert.Equal(t, res.ChatID, chats[0].Get("id").String())
	assert.Equal(t, "Budget help", chats[0].Get("title").String())
	_, err = time.Parse(time.RFC3339, chats[0].Get("createdAt").String())
	assert.NoError(t, err)
	assert.Equal(t, []string{"user", "bot"}, []string{
		chats[0].Get("messages.0.role").String(),
		chats[0].Get("messages.1.role").String(),
	})
	assert.Contains(t, string(data), "\n  \"chats\"")
}

func TestChatUseCase_ExportImportRoundTrip(t *testing.T) {
	src, _ := newChat(t)
	ctx := userCtx("u1")

	first, err := src.Ask(ctx, "", "First chat question", nil)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := src.Ask(ctx, "", strings.Repeat("long title ", 10), nil)
	require.NoError(t, err)
	_, err = src.Ask(ctx, first.ChatID, "follow-up", nil)
	require.NoError(t, err)

	data, err := src.Export(ctx)
	require.NoError(t, err)

	dst := NewChatUseCase(&fakeAssistant{}, sqliteChats(t), nil)
	n, err := dst.Import(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	srcChats, err := src.ListChats(ctx)
	require.NoError(t, err)
	dstChats, err := dst.ListChats(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(srcChats, dstChats); diff != "" {
		t.Errorf("chats mismatch after import (-want +got):\n%s", diff)
	}
	assert.Equal(t, second.ChatID, dstChats[0].ID)

	for _, chat := range srcChats {
		want, err := src.GetMessages(ctx, chat.ID)
		require.NoError(t, err)
		got, err := dst.GetMessages(ctx, chat.ID)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("messages of %s mismatch (-want +got):\n%s", chat.ID, diff)
		}
	}
}

func TestChatUseCase_ImportFillsDefaultsAndReplaces(t *testing.T) {
	uc, _ := newChat(t)
	ctx := userCtx("u1")

	archive := `{"chats":[{"id":"1700000000000","title":"","createdAt":"2023-11-14T22:13:20.000Z",
		"messages":[{"id":"1","role":"user","content":"hi","timestamp":"2023-11-14T22:13:21.000Z"},
		            {"role":"bot","content":"hello"}]}]}`
	n, err := uc.Import(ctx, []byte(archive))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	chats, err := uc.ListChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, entity.DefaultChatTitle, chats[0].Title)

	messages, err := uc.GetMessages(ctx, "1700000000000")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "1", messages[0].ID)
	assert.Equal(t, entity.RoleBot, messages[1].Role)
	assert.NotEmpty(t, messages[1].ID)

	// qayta import xabarlarni almashtiradi, ikki baravar qilmaydi
	_, err = uc.Import(ctx, []byte(archive))
	require.NoError(t, err)
	messages, err = uc.GetMessages(ctx, "1700000000000")
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestChatUseCase_ImportEpochMillisTimestamps(t *testing.T) {
	uc, _ := newChat(t)
	ctx := userCtx("u1")

	archive := `{"chats":[{"id":"1704164640000","title":"Budget help","createdAt":"2024-01-02T03:04:00.000Z",
		"messages":[{"id":"1704164645000","role":"user","content":"Hello","timestamp":1704164645000},
		            {"id":"1704164647000","role":"bot","content":"Hi! How can I help?","timestamp":1704164647000}]},
		{"id":"c2","title":"Numbers only","createdAt":1704000000000,"messages":[]}]}`

	n, err := uc.Import(ctx, []byte(archive))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	messages, err := uc.GetMessages(ctx, "1704164640000")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, time.UnixMilli(1704164645000).UTC(), messages[0].Timestamp.UTC())
	assert.Equal(t, "Hi! How can I help?", messages[1].Content)

	chats, err := uc.ListChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC), chats[0].CreatedAt.UTC())
	assert.Equal(t, time.UnixMilli(1704000000000).UTC(), chats[1].CreatedAt.UTC())
}

func TestChatUseCase_ImportRejectsInvalidArchives(t *testing.T) {
	uc, _ := newChat(t)
	ctx := userCtx("u1")

	for name, data := range map[string]string{
		"not json":       `{"chats":`,
		"no chats":       `{"conversations":[]}`,
		"chats not list": `{"chats":{"id":"1"}}`,
		"bad role":       `{"chats":[{"id":"1","title":"t","messages":[{"id":"m","role":"system","content":"x"}]}]}`,
		"bad timestamp":  `{"chats":[{"id":"1","title":"t","messages":[{"id":"m","role":"user","content":"x","timestamp":"yesterday"}]}]}`,
		"chat not obj":   `{"chats":["1"]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := uc.Import(ctx, []byte(data))
			assert.ErrorIs(t, err, ErrInvalidArchive)
		})
	}
}
