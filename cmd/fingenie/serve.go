package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpdelivery "github.com/fingenie/assistant/internal/delivery/http"
	"github.com/fingenie/assistant/internal/delivery/telegram"
)

var httpAddr string

// serveCmd runs the HTTP API and, when a token is configured, the Telegram bot
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON HTTP API (and the Telegram bot if TELEGRAM_BOT_TOKEN is set)",
	RunE:  runServe,
}

// botCmd runs only the Telegram bot
var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	RunE:  runBot,
}

func init() {
	serveCmd.Flags().StringVar(&httpAddr, "addr", "", "Listen address (overrides HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.HTTPAddr
	if httpAddr != "" {
		addr = httpAddr
	}

	g, ctx := errgroup.WithContext(ctx)

	server := httpdelivery.NewServer(a.auth, a.chats, a.tax, logger.Named("http"))
	g.Go(func() error {
		return server.Run(ctx, addr)
	})

	if a.cfg.TelegramToken != "" {
		bot, err := telegram.NewBotHandler(a.cfg.TelegramToken, a.auth, a.chats, a.tax, logger.Named("telegram"))
		if err != nil {
			return err
		}
		g.Go(func() error {
			return ignoreCanceled(bot.Start(ctx))
		})
	} else {
		logger.Info("TELEGRAM_BOT_TOKEN not set, bot disabled")
	}

	return g.Wait()
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cfg.RequireTelegram(); err != nil {
		return err
	}

	bot, err := telegram.NewBotHandler(a.cfg.TelegramToken, a.auth, a.chats, a.tax, logger.Named("telegram"))
	if err != nil {
		return err
	}
	logger.Info("bot running", zap.String("username", bot.GetBotUsername()))
	return ignoreCanceled(bot.Start(ctx))
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
