package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/domain/repository"
)

type sqliteChatRepository struct {
	db *sql.DB
}

// NewSQLiteChatRepository SQLite asosidagi chat repository
func NewSQLiteChatRepository(db *sql.DB) repository.ChatRepository {
	return &sqliteChatRepository{db: db}
}

// CreateChat yangi chat yaratish
func (s *sqliteChatRepository) CreateChat(ctx context.Context, userID string, chat entity.Chat) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO chats (user_id, id, title, created_at) VALUES (?, ?, ?, ?)`,
		userID, chat.ID, chat.Title, toUnixNano(chat.CreatedAt))
	if err != nil {
		return fmt.Errorf("chat yaratib bo'lmadi: %w", err)
	}
	return nil
}

// GetChat chatni olish
func (s *sqliteChatRepository) GetChat(ctx context.Context, userID, chatID string) (*entity.Chat, error) {
	var chat entity.Chat
	var created int64
	err := s.db.QueryRowContext(ctx, `SELECT id, title, created_at FROM chats WHERE user_id = ? AND id = ?`, userID, chatID).
		Scan(&chat.ID, &chat.Title, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	chat.CreatedAt = fromUnixNano(created)
	return &chat, nil
}

// UpdateTitle sarlavhani yangilash
func (s *sqliteChatRepository) UpdateTitle(ctx context.Context, userID, chatID, title string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE chats SET title = ? WHERE user_id = ? AND id = ?`, title, userID, chatID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrChatNotFound
	}
	return nil
}

// AppendMessage xabarni saqlash
func (s *sqliteChatRepository) AppendMessage(ctx context.Context, userID, chatID string, message entity.Message) error {
	if _, err := s.GetChat(ctx, userID, chatID); err != nil {
		return err
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO messages (user_id, chat_id, id, role, content, ts) VALUES (?, ?, ?, ?, ?, ?)`,
		userID, chatID, message.ID, string(message.Role), message.Content, toUnixNano(message.Timestamp))
	return err
}

// ListChats chatlar ro'yxati (eng yangisi birinchi)
func (s *sqliteChatRepository) ListChats(ctx context.Context, userID string) ([]entity.Chat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, created_at FROM chats WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := []entity.Chat{}
	for rows.Next() {
		var chat entity.Chat
		var created int64
		if err := rows.Scan(&chat.ID, &chat.Title, &created); err != nil {
			return nil, err
		}
		chat.CreatedAt = fromUnixNano(created)
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// GetMessages chat xabarlari (eskidan yangiga)
func (s *sqliteChatRepository) GetMessages(ctx context.Context, userID, chatID string) ([]entity.Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, role, content, ts FROM messages WHERE user_id = ? AND chat_id = ? ORDER BY ts ASC, rowid ASC`, userID, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []entity.Message{}
	for rows.Next() {
		var msg entity.Message
		var role string
		var ts int64
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &ts); err != nil {
			return nil, err
		}
		msg.Role = entity.Role(role)
		msg.Timestamp = fromUnixNano(ts)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// DeleteChat chatni xabarlari bilan o'chirish
func (s *sqliteChatRepository) DeleteChat(ctx context.Context, userID, chatID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE user_id = ? AND chat_id = ?`, userID, chatID); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE user_id = ? AND id = ?`, userID, chatID); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// ReplaceChat chatni to'liq almashtirish
func (s *sqliteChatRepository) ReplaceChat(ctx context.Context, userID string, chat entity.Chat, messages []entity.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO chats (user_id, id, title, created_at) VALUES (?, ?, ?, ?)`,
		userID, chat.ID, chat.Title, toUnixNano(chat.CreatedAt))
	if err != nil {
		tx.Rollback()
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE user_id = ? AND chat_id = ?`, userID, chat.ID); err != nil {
		tx.Rollback()
		return err
	}

	for _, msg := range messages {
		_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO messages (user_id, chat_id, id, role, content, ts) VALUES (?, ?, ?, ?, ?, ?)`,
			userID, chat.ID, msg.ID, string(msg.Role), msg.Content, toUnixNano(msg.Timestamp))
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
