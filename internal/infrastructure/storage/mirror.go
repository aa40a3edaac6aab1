package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/domain/repository"
)

type mirroredChatRepository struct {
	repository.ChatRepository
	mirrors []repository.ChatRepository
	logger  *zap.Logger
}

// NewMirroredChatRepository asosiy repository ga yozib, keyin nusxalarga ham yozadi.
// O'qish faqat asosiydan. Nusxa xatolari log qilinadi va qaytarilmaydi; moslashtirish yo'q.
func NewMirroredChatRepository(primary repository.ChatRepository, logger *zap.Logger, mirrors ...repository.ChatRepository) repository.ChatRepository {
	if len(mirrors) == 0 {
		return primary
	}
	return &mirroredChatRepository{ChatRepository: primary, mirrors: mirrors, logger: logger}
}

func (m *mirroredChatRepository) fanOut(op SaveOp, userID, chatID string, write func(repository.ChatRepository) error) {
	for i, mirror := range m.mirrors {
		if err := write(mirror); err != nil {
			m.logger.Warn("mirror write failed",
				zap.Int("mirror", i),
				zap.String("op", string(op)),
				zap.String("user_id", userID),
				zap.String("chat_id", chatID),
				zap.Error(err))
		}
	}
}

func (m *mirroredChatRepository) CreateChat(ctx context.Context, userID string, chat entity.Chat) error {
	if err := m.ChatRepository.CreateChat(ctx, userID, chat); err != nil {
		return err
	}
	m.fanOut(OpCreateChat, userID, chat.ID, func(r repository.ChatRepository) error {
		return r.CreateChat(ctx, userID, chat)
	})
	return nil
}

func (m *mirroredChatRepository) UpdateTitle(ctx context.Context, userID, chatID, title string) error {
	if err := m.ChatRepository.UpdateTitle(ctx, userID, chatID, title); err != nil {
		return err
	}
	m.fanOut(OpUpdateTitle, userID, chatID, func(r repository.ChatRepository) error {
		return r.UpdateTitle(ctx, userID, chatID, title)
	})
	return nil
}

func (m *mirroredChatRepository) AppendMessage(ctx context.Context, userID, chatID string, message entity.Message) error {
	if err := m.ChatRepository.AppendMessage(ctx, userID, chatID, message); err != nil {
		return err
	}
	m.fanOut(OpAppendMessage, userID, chatID, func(r repository.ChatRepository) error {
		return r.AppendMessage(ctx, userID, chatID, message)
	})
	return nil
}

func (m *mirroredChatRepository) DeleteChat(ctx context.Context, userID, chatID string) error {
	if err := m.ChatRepository.DeleteChat(ctx, userID, chatID); err != nil {
		return err
	}
	m.fanOut(OpDeleteChat, userID, chatID, func(r repository.ChatRepository) error {
		return r.DeleteChat(ctx, userID, chatID)
	})
	return nil
}

func (m *mirroredChatRepository) ReplaceChat(ctx context.Context, userID string, chat entity.Chat, messages []entity.Message) error {
	if err := m.ChatRepository.ReplaceChat(ctx, userID, chat, messages); err != nil {
		return err
	}
	m.fanOut(OpReplaceChat, userID, chat.ID, func(r repository.ChatRepository) error {
		return r.ReplaceChat(ctx, userID, chat, messages)
	})
	return nil
}
