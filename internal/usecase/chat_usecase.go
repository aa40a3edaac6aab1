package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/domain/repository"
	"github.com/fingenie/assistant/internal/session"
)

const (
	maxTitleUnits     = 50
	truncatedTitleLen = 47

	documentPromptMarker = "DOCUMENT_CONTENT_FOR_ANALYSIS"
)

var (
	// ErrEmptyMessage matn ham, hujjat ham yo'q
	ErrEmptyMessage = errors.New("message is empty")
	// ErrInvalidArchive import fayli {"chats": [...]} ko'rinishida emas
	ErrInvalidArchive = errors.New("invalid chat archive")
)

// AskResult yordamchi javobi va u yozilgan chat
type AskResult struct {
	ChatID string `json:"chatId"`
	Reply  string `json:"reply"`
}

// ChatUseCase chat bilan bog'liq business logic
type ChatUseCase interface {
	CreateChat(ctx context.Context, title string) (string, error)
	AppendMessage(ctx context.Context, chatID string, role entity.Role, content string) (entity.Message, error)
	ListChats(ctx context.Context) ([]entity.Chat, error)
	GetMessages(ctx context.Context, chatID string) ([]entity.Message, error)
	DeleteChat(ctx context.Context, chatID string) error

	// Ask savolni saqlab, yordamchiga yuboradi va javobni saqlaydi.
	// chatID bo'sh bo'lsa yangi chat ochiladi.
	Ask(ctx context.Context, chatID, text string, attachment *entity.Attachment) (AskResult, error)

	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, data []byte) (int, error)
}

type chatUseCase struct {
	assistant repository.AssistantRepository
	chatRepo  repository.ChatRepository
	logger    *zap.Logger
}

// NewChatUseCase yangi ChatUseCase yaratish
func NewChatUseCase(
	assistant repository.AssistantRepository,
	chatRepo repository.ChatRepository,
	logger *zap.Logger,
) ChatUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &chatUseCase{
		assistant: assistant,
		chatRepo:  chatRepo,
		logger:    logger,
	}
}

// DeriveTitle birinchi xabardan sarlavha: 50 UTF-16 birlikgacha o'zgarishsiz,
// aks holda 47 birlik + "...". Surrogat juftlik bo'linmaydi.
func DeriveTitle(content string) string {
	if strings.TrimSpace(content) == "" {
		return entity.DefaultChatTitle
	}
	units := utf16.Encode([]rune(content))
	if len(units) <= maxTitleUnits {
		return content
	}
	cut := truncatedTitleLen
	if isHighSurrogate(units[cut-1]) {
		cut--
	}
	return string(utf16.Decode(units[:cut])) + "..."
}

func isHighSurrogate(u uint16) bool {
	return u >= 0xD800 && u < 0xDC00
}

// CreateChat yangi chat yaratish
func (u *chatUseCase) CreateChat(ctx context.Context, title string) (string, error) {
	s, err := session.Require(ctx)
	if err != nil {
		return "", err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = entity.DefaultChatTitle
	}
	chat := entity.Chat{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	if err := u.chatRepo.CreateChat(ctx, s.UserID, chat); err != nil {
		return "", fmt.Errorf("failed to create chat: %w", err)
	}
	return chat.ID, nil
}

// AppendMessage xabar qo'shish; chatdagi birinchi user xabari sarlavhani belgilaydi
func (u *chatUseCase) AppendMessage(ctx context.Context, chatID string, role entity.Role, content string) (entity.Message, error) {
	s, err := session.Require(ctx)
	if err != nil {
		return entity.Message{}, err
	}
	return u.appendMessage(ctx, s.UserID, chatID, role, content)
}

func (u *chatUseCase) appendMessage(ctx context.Context, userID, chatID string, role entity.Role, content string) (entity.Message, error) {
	if _, err := u.chatRepo.GetChat(ctx, userID, chatID); err != nil {
		return entity.Message{}, err
	}

	firstUserMessage := false
	if role == entity.RoleUser {
		history, err := u.chatRepo.GetMessages(ctx, userID, chatID)
		if err != nil {
			return entity.Message{}, fmt.Errorf("failed to get history: %w", err)
		}
		firstUserMessage = !hasUserMessage(history)
	}

	message := entity.Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	if err := u.chatRepo.AppendMessage(ctx, userID, chatID, message); err != nil {
		return entity.Message{}, fmt.Errorf("failed to save message: %w", err)
	}

	if firstUserMessage && strings.TrimSpace(content) != "" {
		if err := u.chatRepo.UpdateTitle(ctx, userID, chatID, DeriveTitle(content)); err != nil {
			return entity.Message{}, fmt.Errorf("failed to update chat title: %w", err)
		}
	}
	return message, nil
}

func hasUserMessage(messages []entity.Message) bool {
	for _, m := range messages {
		if m.Role == entity.RoleUser {
			return true
		}
	}
	return false
}

// ListChats chatlar ro'yxati (eng yangisi birinchi)
func (u *chatUseCase) ListChats(ctx context.Context) ([]entity.Chat, error) {
	s, err := session.Require(ctx)
	if err != nil {
		return nil, err
	}
	return u.chatRepo.ListChats(ctx, s.UserID)
}

// GetMessages chat tarixi
func (u *chatUseCase) GetMessages(ctx context.Context, chatID string) ([]entity.Message, error) {
	s, err := session.Require(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := u.chatRepo.GetChat(ctx, s.UserID, chatID); err != nil {
		return nil, err
	}
	return u.chatRepo.GetMessages(ctx, s.UserID, chatID)
}

// DeleteChat chatni o'chirish
func (u *chatUseCase) DeleteChat(ctx context.Context, chatID string) error {
	s, err := session.Require(ctx)
	if err != nil {
		return err
	}
	return u.chatRepo.DeleteChat(ctx, s.UserID, chatID)
}

// Ask foydalanuvchi xabarini qayta ishlash
func (u *chatUseCase) Ask(ctx context.Context, chatID, text string, attachment *entity.Attachment) (AskResult, error) {
	s, err := session.Require(ctx)
	if err != nil {
		return AskResult{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" && attachment == nil {
		return AskResult{}, ErrEmptyMessage
	}

	if chatID == "" {
		if chatID, err = u.CreateChat(ctx, ""); err != nil {
			return AskResult{}, err
		}
	}

	display, prompt := buildPrompt(text, attachment)

	if _, err := u.appendMessage(ctx, s.UserID, chatID, entity.RoleUser, display); err != nil {
		return AskResult{}, err
	}

	reply := u.assistant.Send(ctx, prompt)
	u.logger.Debug("assistant replied",
		zap.String("chat_id", chatID),
		zap.Int("prompt_len", len(prompt)),
		zap.Int("reply_len", len(reply)))

	if _, err := u.appendMessage(ctx, s.UserID, chatID, entity.RoleBot, reply); err != nil {
		return AskResult{}, err
	}

	return AskResult{ChatID: chatID, Reply: reply}, nil
}

// buildPrompt saqlanadigan matn va yordamchiga ketadigan prompt
func buildPrompt(text string, attachment *entity.Attachment) (display, prompt string) {
	if attachment == nil {
		return text, text
	}

	display = text
	if display == "" {
		display = fmt.Sprintf("I've uploaded \"%s\" for analysis.", attachment.Name)
	}
	prompt = fmt.Sprintf("%s\n\n%s\n\nDocument: %s\n\n%s", documentPromptMarker, display, attachment.Name, attachment.Content)
	return display, prompt
}

// Export barcha chatlarni {"chats": [...]} JSON ko'rinishida
func (u *chatUseCase) Export(ctx context.Context) ([]byte, error) {
	s, err := session.Require(ctx)
	if err != nil {
		return nil, err
	}

	chats, err := u.chatRepo.ListChats(ctx, s.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	archive := entity.ChatArchive{Chats: make([]entity.ChatWithMessages, 0, len(chats))}
	for _, chat := range chats {
		messages, err := u.chatRepo.GetMessages(ctx, s.UserID, chat.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get messages of %s: %w", chat.ID, err)
		}
		chat.CreatedAt = chat.CreatedAt.UTC()
		archive.Chats = append(archive.Chats, entity.ChatWithMessages{Chat: chat, Messages: messages})
	}

	data, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode archive: %w", err)
	}
	return data, nil
}

// Import arxivdagi har bir chatni qo'shadi yoki almashtiradi.
// Vaqtlar ISO satr yoki epoch millisekund son ko'rinishida bo'lishi mumkin.
func (u *chatUseCase) Import(ctx context.Context, data []byte) (int, error) {
	s, err := session.Require(ctx)
	if err != nil {
		return 0, err
	}

	if !gjson.ValidBytes(data) {
		return 0, ErrInvalidArchive
	}
	chats := gjson.GetBytes(data, "chats")
	if !chats.IsArray() {
		return 0, ErrInvalidArchive
	}

	now := time.Now().UTC()
	items := chats.Array()
	for i, c := range items {
		if !c.IsObject() {
			return i, fmt.Errorf("%w: chat #%d is not an object", ErrInvalidArchive, i)
		}

		chat := entity.Chat{
			ID:    c.Get("id").String(),
			Title: c.Get("title").String(),
		}
		if chat.ID == "" {
			chat.ID = uuid.New().String()
		}
		if strings.TrimSpace(chat.Title) == "" {
			chat.Title = entity.DefaultChatTitle
		}
		if chat.CreatedAt, err = archiveTime(c.Get("createdAt")); err != nil {
			return i, fmt.Errorf("%w: chat %s createdAt: %v", ErrInvalidArchive, chat.ID, err)
		}
		if chat.CreatedAt.IsZero() {
			chat.CreatedAt = now
		}

		raw := c.Get("messages")
		if raw.Exists() && !raw.IsArray() {
			return i, fmt.Errorf("%w: chat %s messages is not a list", ErrInvalidArchive, chat.ID)
		}

		messages := make([]entity.Message, 0, len(raw.Array()))
		last := chat.CreatedAt
		for _, m := range raw.Array() {
			msg := entity.Message{
				ID:      m.Get("id").String(),
				Role:    entity.Role(m.Get("role").String()),
				Content: m.Get("content").String(),
			}
			if msg.Role != entity.RoleUser && msg.Role != entity.RoleBot {
				return i, fmt.Errorf("%w: chat %s has message with role %q", ErrInvalidArchive, chat.ID, msg.Role)
			}
			if msg.ID == "" {
				msg.ID = uuid.New().String()
			}
			if msg.Timestamp, err = archiveTime(m.Get("timestamp")); err != nil {
				return i, fmt.Errorf("%w: chat %s message %s timestamp: %v", ErrInvalidArchive, chat.ID, msg.ID, err)
			}
			// vaqtsiz xabar oldingisidan keyin turadi
			if msg.Timestamp.IsZero() {
				msg.Timestamp = last
			}
			last = msg.Timestamp
			messages = append(messages, msg)
		}

		if err := u.chatRepo.ReplaceChat(ctx, s.UserID, chat, messages); err != nil {
			return i, fmt.Errorf("failed to import chat %s: %w", chat.ID, err)
		}
	}

	u.logger.Info("chats imported", zap.String("user_id", s.UserID), zap.Int("count", len(items)))
	return len(items), nil
}

// archiveTime epoch millisekund, RFC 3339 satr yoki bo'sh qiymatni o'qiydi
func archiveTime(v gjson.Result) (time.Time, error) {
	switch v.Type {
	case gjson.Null:
		return time.Time{}, nil
	case gjson.Number:
		return time.UnixMilli(v.Int()).UTC(), nil
	case gjson.String:
		if v.Str == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse(time.RFC3339Nano, v.Str)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unexpected %s value %s", v.Type, v.Raw)
	}
}
