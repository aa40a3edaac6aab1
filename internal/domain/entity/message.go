package entity

import "time"

// Role xabar muallifi
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// DefaultChatTitle yangi chat sarlavhasi
const DefaultChatTitle = "New Chat"

// Message domain entity
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat suhbat metadata
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatWithMessages export/import uchun chat va uning xabarlari
type ChatWithMessages struct {
	Chat
	Messages []Message `json:"messages"`
}

// ChatArchive export fayl formati
type ChatArchive struct {
	Chats []ChatWithMessages `json:"chats"`
}

// Attachment savolga biriktirilgan hujjat
type Attachment struct {
	Name    string
	Content string
}
