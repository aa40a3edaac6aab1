package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fingenie/assistant/internal/domain/repository"
	"github.com/fingenie/assistant/internal/infrastructure/storage"
	"github.com/fingenie/assistant/internal/session"
)

// fakeAssistant yuborilgan promptlarni yozib boradi
type fakeAssistant struct {
	mu      sync.Mutex
	reply   string
	prompts []string
}

func (f *fakeAssistant) Send(ctx context.Context, prompt string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply
}

func (f *fakeAssistant) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func userCtx(userID string) context.Context {
	return session.WithSession(context.Background(), session.Session{UserID: userID, Username: "alice"})
}

func newChat(t *testing.T) (ChatUseCase, *fakeAssistant) {
	t.Helper()
	assistant := &fakeAssistant{reply: "Here is my advice."}
	uc := NewChatUseCase(assistant, storage.NewMemoryChatRepository(), nil)
	require.NotNil(t, uc)
	return uc, assistant
}

func sqliteChats(t *testing.T) repository.ChatRepository {
	t.Helper()
	db, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return storage.NewSQLiteChatRepository(db)
}
