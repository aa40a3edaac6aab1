package storage

import (
	"context"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/domain/repository"
)

// SaveOp yozish amali turi
type SaveOp string

const (
	OpCreateChat    SaveOp = "create_chat"
	OpUpdateTitle   SaveOp = "update_title"
	OpAppendMessage SaveOp = "append_message"
	OpDeleteChat    SaveOp = "delete_chat"
	OpReplaceChat   SaveOp = "replace_chat"
)

// SaveEvent yozish tugagandan keyin yuboriladi; Err muvaffaqiyatsiz yozishda to'ldiriladi
type SaveEvent struct {
	UserID string
	ChatID string
	Op     SaveOp
	Err    error
}

// SaveListener yozish tugaganda chaqiriladi
type SaveListener func(SaveEvent)

type notifyingChatRepository struct {
	repository.ChatRepository
	listeners []SaveListener
}

// NewNotifyingChatRepository har bir yozishdan keyin listener larni chaqiradigan o'ram.
// O'qish metodlari o'zgarishsiz uzatiladi.
func NewNotifyingChatRepository(inner repository.ChatRepository, listeners ...SaveListener) repository.ChatRepository {
	return &notifyingChatRepository{ChatRepository: inner, listeners: listeners}
}

func (n *notifyingChatRepository) emit(userID, chatID string, op SaveOp, err error) error {
	event := SaveEvent{UserID: userID, ChatID: chatID, Op: op, Err: err}
	for _, l := range n.listeners {
		l(event)
	}
	return err
}

func (n *notifyingChatRepository) CreateChat(ctx context.Context, userID string, chat entity.Chat) error {
	return n.emit(userID, chat.ID, OpCreateChat, n.ChatRepository.CreateChat(ctx, userID, chat))
}

func (n *notifyingChatRepository) UpdateTitle(ctx context.Context, userID, chatID, title string) error {
	return n.emit(userID, chatID, OpUpdateTitle, n.ChatRepository.UpdateTitle(ctx, userID, chatID, title))
}

func (n *notifyingChatRepository) AppendMessage(ctx context.Context, userID, chatID string, message entity.Message) error {
	return n.emit(userID, chatID, OpAppendMessage, n.ChatRepository.AppendMessage(ctx, userID, chatID, message))
}

func (n *notifyingChatRepository) DeleteChat(ctx context.Context, userID, chatID string) error {
	return n.emit(userID, chatID, OpDeleteChat, n.ChatRepository.DeleteChat(ctx, userID, chatID))
}

func (n *notifyingChatRepository) ReplaceChat(ctx context.Context, userID string, chat entity.Chat, messages []entity.Message) error {
	return n.emit(userID, chat.ID, OpReplaceChat, n.ChatRepository.ReplaceChat(ctx, userID, chat, messages))
}
