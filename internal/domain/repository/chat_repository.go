package repository

import (
	"context"
	"errors"

	"github.com/fingenie/assistant/internal/domain/entity"
)

// ErrChatNotFound chat topilmadi
var ErrChatNotFound = errors.New("chat not found")

// ChatRepository chat va xabarlar bilan ishlash uchun interface.
// Barcha metodlar foydalanuvchi identifikatori (DID) bo'yicha ajratilgan.
type ChatRepository interface {
	// CreateChat yangi chat yaratish
	CreateChat(ctx context.Context, userID string, chat entity.Chat) error

	// GetChat chat metadata sini olish
	GetChat(ctx context.Context, userID, chatID string) (*entity.Chat, error)

	// UpdateTitle chat sarlavhasini yangilash
	UpdateTitle(ctx context.Context, userID, chatID, title string) error

	// AppendMessage xabarni saqlash (Timestamp bo'sh bo'lsa hozirgi vaqt qo'yiladi)
	AppendMessage(ctx context.Context, userID, chatID string, message entity.Message) error

	// ListChats foydalanuvchi chatlari, eng yangisi birinchi
	ListChats(ctx context.Context, userID string) ([]entity.Chat, error)

	// GetMessages chat xabarlari, eskidan yangiga
	GetMessages(ctx context.Context, userID, chatID string) ([]entity.Message, error)

	// DeleteChat chat va uning xabarlarini o'chirish
	DeleteChat(ctx context.Context, userID, chatID string) error

	// ReplaceChat chatni xabarlari bilan birga to'liq almashtirish (import)
	ReplaceChat(ctx context.Context, userID string, chat entity.Chat, messages []entity.Message) error
}
