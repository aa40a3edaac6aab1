package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fingenie/assistant/config"
	"github.com/fingenie/assistant/internal/domain/repository"
	"github.com/fingenie/assistant/internal/infrastructure/assistant"
	"github.com/fingenie/assistant/internal/infrastructure/gemini"
	"github.com/fingenie/assistant/internal/infrastructure/parser"
	"github.com/fingenie/assistant/internal/infrastructure/storage"
	"github.com/fingenie/assistant/internal/usecase"
)

// app holds the wired use cases and the resources to release on exit.
type app struct {
	cfg     *config.Config
	auth    usecase.AuthUseCase
	chats   usecase.ChatUseCase
	tax     usecase.TaxUseCase
	closers []func() error
}

type stores struct {
	chats    repository.ChatRepository
	users    repository.UserRepository
	profiles repository.TaxProfileRepository
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg}

	st, err := a.openStores(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	assistantRepo, err := a.openAssistant(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.auth = usecase.NewAuthUseCase(st.users, logger.Named("auth"))
	a.chats = usecase.NewChatUseCase(assistantRepo, st.chats, logger.Named("chat"))
	a.tax = usecase.NewTaxUseCase(st.profiles, parser.NewTaxWorkbook(logger.Named("workbook")), logger.Named("tax"))
	return a, nil
}

// openStores picks the chat backend; users and tax profiles live in SQLite
// unless everything is kept in memory.
func (a *app) openStores(cfg *config.Config, logger *zap.Logger) (stores, error) {
	var st stores

	if cfg.Store == config.StoreMemory {
		st.chats = storage.NewMemoryChatRepository()
		st.users = storage.NewMemoryUserRepository()
		st.profiles = storage.NewMemoryTaxProfileRepository()
	} else {
		db, err := storage.OpenSQLite(cfg.ChatDBPath)
		if err != nil {
			return st, err
		}
		a.closers = append(a.closers, db.Close)
		st.users = storage.NewSQLiteUserRepository(db)
		st.profiles = storage.NewSQLiteTaxProfileRepository(db)

		if cfg.Store == config.StoreFile {
			kv, err := storage.NewFileKeyValue(cfg.DataDir)
			if err != nil {
				return st, err
			}
			st.chats = storage.NewKVChatRepository(kv)
		} else {
			st.chats = storage.NewSQLiteChatRepository(db)
		}
	}

	if cfg.MirrorDir != "" {
		kv, err := storage.NewFileKeyValue(cfg.MirrorDir)
		if err != nil {
			return st, fmt.Errorf("mirror: %w", err)
		}
		st.chats = storage.NewMirroredChatRepository(st.chats, logger.Named("mirror"), storage.NewKVChatRepository(kv))
	}

	st.chats = storage.NewNotifyingChatRepository(st.chats, saveLogger(logger.Named("store")))

	logger.Info("storage ready",
		zap.String("store", cfg.Store),
		zap.Bool("mirror", cfg.MirrorDir != ""))
	return st, nil
}

func saveLogger(logger *zap.Logger) storage.SaveListener {
	return func(e storage.SaveEvent) {
		fields := []zap.Field{
			zap.String("op", string(e.Op)),
			zap.String("user_id", e.UserID),
			zap.String("chat_id", e.ChatID),
		}
		if e.Err != nil {
			logger.Warn("chat save failed", append(fields, zap.Error(e.Err))...)
			return
		}
		logger.Debug("chat saved", fields...)
	}
}

func (a *app) openAssistant(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.AssistantRepository, error) {
	switch cfg.Backend {
	case config.BackendGemini:
		model := cfg.GeminiModel
		if model == "" {
			model = gemini.DefaultModel
		}
		client, closeFn, err := gemini.NewGeminiClient(ctx, cfg.GeminiAPIKey, model, logger.Named("gemini"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closeFn)
		logger.Info("assistant backend", zap.String("backend", "gemini"), zap.String("model", model))
		return client, nil
	default:
		logger.Info("assistant backend",
			zap.String("backend", "http"),
			zap.String("url", cfg.AssistantURL),
			zap.Duration("timeout", cfg.AssistantTimeout))
		return assistant.NewClient(cfg.AssistantURL, cfg.AssistantTimeout, logger.Named("assistant")), nil
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// loadApp reads the configuration and wires the application.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return buildApp(ctx, cfg, logger)
}
