package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Yordamchi backend turlari
const (
	BackendHTTP   = "http"
	BackendGemini = "gemini"
)

// Chat ombori turlari
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
	StoreFile   = "file"
)

// Config ilovaning konfiguratsiyasi
type Config struct {
	AssistantURL     string
	AssistantTimeout time.Duration
	Backend          string
	GeminiAPIKey     string
	GeminiModel      string
	TelegramToken    string
	Store            string
	ChatDBPath       string
	DataDir          string
	MirrorDir        string
	HTTPAddr         string
}

// Load konfiguratsiyani yuklash
func Load() (*Config, error) {
	// .env faylini yuklash (mavjud bo'lsa)
	_ = godotenv.Load()

	config := &Config{
		AssistantURL:     "https://fin-backend-cbtl.onrender.com/chat",
		AssistantTimeout: 30 * time.Second,
		Backend:          BackendHTTP,
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      os.Getenv("GEMINI_MODEL"),
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		Store:            StoreSQLite,
		ChatDBPath:       "data/fingenie.db",
		DataDir:          "data/kv",
		MirrorDir:        os.Getenv("FINGENIE_MIRROR_DIR"),
		HTTPAddr:         ":8080",
	}

	setString(&config.AssistantURL, "FINGENIE_ASSISTANT_URL")
	setString(&config.Backend, "FINGENIE_BACKEND")
	setString(&config.Store, "FINGENIE_STORE")
	setString(&config.ChatDBPath, "CHAT_DB_PATH")
	setString(&config.DataDir, "FINGENIE_DATA_DIR")
	setString(&config.HTTPAddr, "HTTP_ADDR")

	if raw := os.Getenv("FINGENIE_ASSISTANT_TIMEOUT"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("FINGENIE_ASSISTANT_TIMEOUT noto'g'ri formatda: %q", raw)
		}
		config.AssistantTimeout = time.Duration(seconds) * time.Second
	}

	// Validatsiya
	switch config.Backend {
	case BackendHTTP:
	case BackendGemini:
		if config.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable bo'sh")
		}
	default:
		return nil, fmt.Errorf("FINGENIE_BACKEND noma'lum: %q", config.Backend)
	}

	switch config.Store {
	case StoreSQLite, StoreMemory, StoreFile:
	default:
		return nil, fmt.Errorf("FINGENIE_STORE noma'lum: %q", config.Store)
	}

	return config, nil
}

// RequireTelegram bot uchun token borligini tekshirish
func (c *Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable bo'sh")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
