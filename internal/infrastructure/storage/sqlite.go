package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite SQLite bazasini ochish va schema ni yaratish.
// Bitta *sql.DB chat, user va tax repository lari o'rtasida bo'lishiladi.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		return nil, errors.New("db path bo'sh bo'lmasligi kerak")
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("db papkasini yaratib bo'lmadi: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite ochilmadi: %w", err)
	}
	// :memory: har bir ulanish uchun alohida baza, shuning uchun bitta ulanish
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func createSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS chats (
	user_id TEXT NOT NULL,
	id TEXT NOT NULL,
	title TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, id)
);
CREATE TABLE IF NOT EXISTS messages (
	user_id TEXT NOT NULL,
	chat_id TEXT NOT NULL,
	id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT,
	ts INTEGER NOT NULL,
	PRIMARY KEY (user_id, chat_id, id)
);
CREATE INDEX IF NOT EXISTS idx_messages_chat_ts ON messages (user_id, chat_id, ts);
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	address TEXT NOT NULL,
	did TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS tax_profiles (
	user_id TEXT NOT NULL,
	saved_at INTEGER NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tax_profiles_user ON tax_profiles (user_id, saved_at);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("schema yaratib bo'lmadi: %w", err)
	}
	return nil
}

// nol vaqt 0 sifatida saqlanadi
func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
