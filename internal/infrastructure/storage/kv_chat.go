package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/domain/repository"
)

// ChatsKey foydalanuvchi chatlari ro'yxati kaliti
func ChatsKey(userID string) string {
	return fmt.Sprintf("fingenie_%s_chats", userID)
}

// MessagesKey bitta chat xabarlari kaliti
func MessagesKey(userID, chatID string) string {
	return fmt.Sprintf("fingenie_%s_chat_%s", userID, chatID)
}

// kvChatRepository chatlarni KeyValue ustida localStorage sxemasida saqlaydi:
// ChatsKey -> JSON []Chat, MessagesKey -> JSON []Message.
type kvChatRepository struct {
	kv KeyValue
	mu sync.Mutex // read-modify-write ketma-ketligi uchun
}

// NewKVChatRepository KeyValue asosidagi chat repository
func NewKVChatRepository(kv KeyValue) repository.ChatRepository {
	return &kvChatRepository{kv: kv}
}

func (r *kvChatRepository) loadChats(ctx context.Context, userID string) ([]entity.Chat, error) {
	chats := []entity.Chat{}
	if err := r.load(ctx, ChatsKey(userID), &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *kvChatRepository) loadMessages(ctx context.Context, userID, chatID string) ([]entity.Message, error) {
	messages := []entity.Message{}
	if err := r.load(ctx, MessagesKey(userID, chatID), &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *kvChatRepository) load(ctx context.Context, key string, v any) error {
	data, err := r.kv.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return nil
}

func (r *kvChatRepository) store(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return r.kv.Set(ctx, key, data)
}

// CreateChat yangi chat yaratish
func (r *kvChatRepository) CreateChat(ctx context.Context, userID string, chat entity.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chats, err := r.loadChats(ctx, userID)
	if err != nil {
		return err
	}
	chats = upsertChat(chats, chat)
	return r.store(ctx, ChatsKey(userID), chats)
}

// GetChat chatni olish
func (r *kvChatRepository) GetChat(ctx context.Context, userID, chatID string) (*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chats, err := r.loadChats(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range chats {
		if c.ID == chatID {
			return &c, nil
		}
	}
	return nil, repository.ErrChatNotFound
}

// UpdateTitle sarlavhani yangilash
func (r *kvChatRepository) UpdateTitle(ctx context.Context, userID, chatID, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chats, err := r.loadChats(ctx, userID)
	if err != nil {
		return err
	}
	for i := range chats {
		if chats[i].ID == chatID {
			chats[i].Title = title
			return r.store(ctx, ChatsKey(userID), chats)
		}
	}
	return repository.ErrChatNotFound
}

// AppendMessage xabarni saqlash
func (r *kvChatRepository) AppendMessage(ctx context.Context, userID, chatID string, message entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	messages, err := r.loadMessages(ctx, userID, chatID)
	if err != nil {
		return err
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	messages = append(messages, message)
	return r.store(ctx, MessagesKey(userID, chatID), messages)
}

// ListChats chatlar ro'yxati (eng yangisi birinchi)
func (r *kvChatRepository) ListChats(ctx context.Context, userID string) ([]entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chats, err := r.loadChats(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortChatsNewestFirst(chats)
	return chats, nil
}

// GetMessages chat xabarlari (eskidan yangiga)
func (r *kvChatRepository) GetMessages(ctx context.Context, userID, chatID string) ([]entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	messages, err := r.loadMessages(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	sortMessagesOldestFirst(messages)
	return messages, nil
}

// DeleteChat chatni o'chirish
func (r *kvChatRepository) DeleteChat(ctx context.Context, userID, chatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chats, err := r.loadChats(ctx, userID)
	if err != nil {
		return err
	}
	kept := chats[:0]
	for _, c := range chats {
		if c.ID != chatID {
			kept = append(kept, c)
		}
	}
	if err := r.store(ctx, ChatsKey(userID), kept); err != nil {
		return err
	}
	return r.kv.Delete(ctx, MessagesKey(userID, chatID))
}

// ReplaceChat chatni to'liq almashtirish
func (r *kvChatRepository) ReplaceChat(ctx context.Context, userID string, chat entity.Chat, messages []entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chats, err := r.loadChats(ctx, userID)
	if err != nil {
		return err
	}
	if err := r.store(ctx, ChatsKey(userID), upsertChat(chats, chat)); err != nil {
		return err
	}
	if messages == nil {
		messages = []entity.Message{}
	}
	return r.store(ctx, MessagesKey(userID, chat.ID), messages)
}

func upsertChat(chats []entity.Chat, chat entity.Chat) []entity.Chat {
	for i := range chats {
		if chats[i].ID == chat.ID {
			chats[i] = chat
			return chats
		}
	}
	return append(chats, chat)
}
