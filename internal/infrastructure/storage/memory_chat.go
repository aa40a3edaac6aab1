package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/domain/repository"
)

type memoryChat struct {
	chat     entity.Chat
	messages []entity.Message
}

type memoryChatRepository struct {
	mu    sync.RWMutex
	users map[string]map[string]*memoryChat
}

// NewMemoryChatRepository in-memory chat repository yaratish
func NewMemoryChatRepository() repository.ChatRepository {
	return &memoryChatRepository{
		users: make(map[string]map[string]*memoryChat),
	}
}

func (m *memoryChatRepository) chatsOf(userID string) map[string]*memoryChat {
	chats, ok := m.users[userID]
	if !ok {
		chats = make(map[string]*memoryChat)
		m.users[userID] = chats
	}
	return chats
}

// CreateChat yangi chat yaratish
func (m *memoryChatRepository) CreateChat(ctx context.Context, userID string, chat entity.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.chatsOf(userID)[chat.ID] = &memoryChat{chat: chat, messages: []entity.Message{}}
	return nil
}

// GetChat chatni olish
func (m *memoryChatRepository) GetChat(ctx context.Context, userID, chatID string) (*entity.Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.users[userID][chatID]
	if !ok {
		return nil, repository.ErrChatNotFound
	}
	chat := c.chat
	return &chat, nil
}

// UpdateTitle sarlavhani yangilash
func (m *memoryChatRepository) UpdateTitle(ctx context.Context, userID, chatID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.users[userID][chatID]
	if !ok {
		return repository.ErrChatNotFound
	}
	c.chat.Title = title
	return nil
}

// AppendMessage xabarni saqlash
func (m *memoryChatRepository) AppendMessage(ctx context.Context, userID, chatID string, message entity.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.users[userID][chatID]
	if !ok {
		return repository.ErrChatNotFound
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	c.messages = append(c.messages, message)
	return nil
}

// ListChats chatlar ro'yxati (eng yangisi birinchi)
func (m *memoryChatRepository) ListChats(ctx context.Context, userID string) ([]entity.Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chats := make([]entity.Chat, 0, len(m.users[userID]))
	for _, c := range m.users[userID] {
		chats = append(chats, c.chat)
	}
	sortChatsNewestFirst(chats)
	return chats, nil
}

// GetMessages chat xabarlari (eskidan yangiga)
func (m *memoryChatRepository) GetMessages(ctx context.Context, userID, chatID string) ([]entity.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.users[userID][chatID]
	if !ok {
		return []entity.Message{}, nil
	}
	messages := make([]entity.Message, len(c.messages))
	copy(messages, c.messages)
	sortMessagesOldestFirst(messages)
	return messages, nil
}

// DeleteChat chatni o'chirish
func (m *memoryChatRepository) DeleteChat(ctx context.Context, userID, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.users[userID], chatID)
	return nil
}

// ReplaceChat chatni to'liq almashtirish
func (m *memoryChatRepository) ReplaceChat(ctx context.Context, userID string, chat entity.Chat, messages []entity.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]entity.Message, len(messages))
	copy(stored, messages)
	m.chatsOf(userID)[chat.ID] = &memoryChat{chat: chat, messages: stored}
	return nil
}

func sortChatsNewestFirst(chats []entity.Chat) {
	sort.SliceStable(chats, func(i, j int) bool {
		if chats[i].CreatedAt.Equal(chats[j].CreatedAt) {
			return chats[i].ID > chats[j].ID
		}
		return chats[i].CreatedAt.After(chats[j].CreatedAt)
	})
}

func sortMessagesOldestFirst(messages []entity.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
}
