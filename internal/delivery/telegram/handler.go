package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/domain/repository"
	"github.com/fingenie/assistant/internal/infrastructure/parser"
	"github.com/fingenie/assistant/internal/session"
	"github.com/fingenie/assistant/internal/usecase"
)

const (
	maxFileSize     = 5 * 1024 * 1024
	maxMessageLen   = 4096
	downloadTimeout = 30 * time.Second
)

var errFileTooLarge = errors.New("file exceeds 5MB")

// botAPI tgbotapi.BotAPI ning handler ishlatadigan qismi
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// userState Telegram foydalanuvchisining joriy holati
type userState struct {
	did        string
	activeChat string
	pending    *entity.Attachment
	lastTax    *entity.TaxInput
	lastResult entity.TaxResult
}

// BotHandler Telegram bot handler
type BotHandler struct {
	bot         botAPI
	botName     string
	authUseCase usecase.AuthUseCase
	chatUseCase usecase.ChatUseCase
	taxUseCase  usecase.TaxUseCase
	logger      *zap.Logger
	httpClient  *http.Client
	mu          sync.RWMutex
	states      map[int64]*userState
}

// NewBotHandler yangi bot handler yaratish
func NewBotHandler(
	token string,
	authUseCase usecase.AuthUseCase,
	chatUseCase usecase.ChatUseCase,
	taxUseCase usecase.TaxUseCase,
	logger *zap.Logger,
) (*BotHandler, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	h := newBotHandler(bot, authUseCase, chatUseCase, taxUseCase, logger)
	h.botName = bot.Self.UserName
	return h, nil
}

func newBotHandler(
	bot botAPI,
	authUseCase usecase.AuthUseCase,
	chatUseCase usecase.ChatUseCase,
	taxUseCase usecase.TaxUseCase,
	logger *zap.Logger,
) *BotHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BotHandler{
		bot:         bot,
		authUseCase: authUseCase,
		chatUseCase: chatUseCase,
		taxUseCase:  taxUseCase,
		logger:      logger,
		httpClient:  &http.Client{Timeout: downloadTimeout},
		states:      make(map[int64]*userState),
	}
}

// Start botni ishga tushirish
func (h *BotHandler) Start(ctx context.Context) error {
	h.logger.Info("bot started", zap.String("username", h.botName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)
	defer h.bot.StopReceivingUpdates()

	// ishlayotgan handlerlar tugamaguncha qaytmaymiz
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("bot stopping")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			wg.Add(1)
			go func(message *tgbotapi.Message) {
				defer wg.Done()
				h.handleMessage(ctx, message)
			}(update.Message)
		}
	}
}

// handleMessage xabarni qayta ishlash
func (h *BotHandler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil {
		return
	}

	// Fayl yuborilgan bo'lsa
	if message.Document != nil {
		h.handleDocumentMessage(ctx, message)
		return
	}

	// Komandalarni qayta ishlash
	if message.IsCommand() {
		h.handleCommand(ctx, message)
		return
	}

	// Oddiy xabarlarni yordamchiga yuborish
	if strings.TrimSpace(message.Text) != "" {
		h.handleTextMessage(ctx, message, message.Text)
	}
}

// handleCommand komandalarni qayta ishlash
func (h *BotHandler) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	args := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "start":
		h.sendMessage(chatID, welcomeMessage())
	case "help":
		h.sendMessage(chatID, helpMessage())
	case "register":
		h.handleRegisterCommand(ctx, message, args)
	case "new":
		h.handleNewCommand(ctx, message, args)
	case "chats":
		h.handleChatsCommand(ctx, message)
	case "use":
		h.handleUseCommand(ctx, message, args)
	case "history":
		h.handleHistoryCommand(ctx, message)
	case "delete":
		h.handleDeleteCommand(ctx, message, args)
	case "export":
		h.handleExportCommand(ctx, message)
	case "tax":
		h.handleTaxCommand(ctx, message, args)
	case "india":
		h.handleIndiaCommand(message, args)
	case "discuss":
		h.handleDiscussCommand(ctx, message)
	default:
		h.sendMessage(chatID, "Unknown command. See /help.")
	}
}

// displayName Telegram foydalanuvchisi uchun username
func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	return fmt.Sprintf("tg%d", u.ID)
}

// handleRegisterCommand wallet manzili bilan ro'yxatdan o'tish yoki kirish
func (h *BotHandler) handleRegisterCommand(ctx context.Context, message *tgbotapi.Message, address string) {
	chatID := message.Chat.ID
	if address == "" {
		h.sendMessage(chatID, "Usage: /register <wallet address>")
		return
	}

	username := displayName(message.From)
	sess, err := h.authUseCase.Register(ctx, username, address)
	if errors.Is(err, repository.ErrUserExists) {
		sess, err = h.authUseCase.Login(ctx, username, address)
	}
	switch {
	case errors.Is(err, usecase.ErrAddressMismatch):
		h.sendMessage(chatID, "❌ This username is registered with a different wallet address.")
		return
	case err != nil:
		h.logger.Error("register failed", zap.String("username", username), zap.Error(err))
		h.sendMessage(chatID, "❌ Could not sign you in. Please try again.")
		return
	}

	h.updateState(message.From.ID, func(s *userState) {
		s.did = sess.UserID
		s.activeChat = ""
	})
	h.sendMessage(chatID, fmt.Sprintf("✅ Signed in as %s\nDID: %s\n\nAsk me anything about your finances.", sess.Username, sess.UserID))
}

// sessionContext foydalanuvchi sessiyasini context ga qo'yish
func (h *BotHandler) sessionContext(ctx context.Context, message *tgbotapi.Message) (context.Context, bool) {
	state := h.getState(message.From.ID)
	if state.did == "" {
		h.sendMessage(message.Chat.ID, "Please sign in first: /register <wallet address>")
		return ctx, false
	}

	sess, err := h.authUseCase.Resolve(ctx, state.did)
	if err != nil {
		h.logger.Warn("session resolve failed", zap.String("did", state.did), zap.Error(err))
		h.sendMessage(message.Chat.ID, "Your session has expired. Please /register again.")
		return ctx, false
	}
	return session.WithSession(ctx, sess), true
}

// handleNewCommand yangi chat ochish
func (h *BotHandler) handleNewCommand(ctx context.Context, message *tgbotapi.Message, title string) {
	ctx, ok := h.sessionContext(ctx, message)
	if !ok {
		return
	}
	id, err := h.chatUseCase.CreateChat(ctx, title)
	if err != nil {
		h.replyError(message.Chat.ID, "create chat", err)
		return
	}
	h.updateState(message.From.ID, func(s *userState) { s.activeChat = id })
	h.sendMessage(message.Chat.ID, "🆕 New chat started. Ask your question!")
}

// handleChatsCommand chatlar ro'yxati
func (h *BotHandler) handleChatsCommand(ctx context.Context, message *tgbotapi.Message) {
	ctx, ok := h.sessionContext(ctx, message)
	if !ok {
		return
	}
	chats, err := h.chatUseCase.ListChats(ctx)
	if err != nil {
		h.replyError(message.Chat.ID, "list chats", err)
		return
	}
	if len(chats) == 0 {
		h.sendMessage(message.Chat.ID, "You have no chats yet. Just send me a question.")
		return
	}
	h.sendMessage(message.Chat.ID, formatChatList(chats, h.getState(message.From.ID).activeChat))
}

// handleUseCommand faol chatni almashtirish
func (h *BotHandler) handleUseCommand(ctx context.Context, message *tgbotapi.Message, chatID string) {
	ctx, ok := h.sessionContext(ctx, message)
	if !ok {
		return
	}
	if chatID == "" {
		h.sendMessage(message.Chat.ID, "Usage: /use <chatId>")
		return
	}
	if _, err := h.chatUseCase.GetMessages(ctx, chatID); err != nil {
		h.replyError(message.Chat.ID, "use chat", err)
		return
	}
	h.updateState(message.From.ID, func(s *userState) { s.activeChat = chatID })
	h.sendMessage(message.Chat.ID, "✅ Switched chat. /history shows the conversation so far.")
}

// handleHistoryCommand joriy chat tarixini ko'rsatish
func (h *BotHandler) handleHistoryCommand(ctx context.Context, message *tgbotapi.Message) {
	ctx, ok := h.sessionContext(ctx, message)
	if !ok {
		return
	}
	active := h.getState(message.From.ID).activeChat
	if active == "" {
		h.sendMessage(message.Chat.ID, "No chat selected. Use /chats and /use <chatId>.")
		return
	}
	messages, err := h.chatUseCase.GetMessages(ctx, active)
	if err != nil {
		h.replyError(message.Chat.ID, "history", err)
		return
	}
	if len(messages) == 0 {
		h.sendMessage(message.Chat.ID, "This chat is empty.")
		return
	}
	h.sendMessage(message.Chat.ID, formatHistory(messages))
}

// handleDeleteCommand chatni o'chirish
func (h *BotHandler) handleDeleteCommand(ctx context.Context, message *tgbotapi.Message, chatID string) {
	ctx, ok := h.sessionContext(ctx, message)
	if !ok {
		return
	}
	if chatID == "" {
		h.sendMessage(message.Chat.ID, "Usage: /delete <chatId>")
		return
	}
	if err := h.chatUseCase.DeleteChat(ctx, chatID); err != nil {
		h.replyError(message.Chat.ID, "delete chat", err)
		return
	}
	h.updateState(message.From.ID, func(s *userState) {
		if s.activeChat == chatID {
			s.activeChat = ""
		}
	})
	h.sendMessage(message.Chat.ID, "🗑 Chat deleted.")
}

// handleExportCommand chatlarni JSON fayl sifatida yuborish
func (h *BotHandler) handleExportCommand(ctx context.Context, message *tgbotapi.Message) {
	ctx, ok := h.sessionContext(ctx, message)
	if !ok {
		return
	}
	data, err := h.chatUseCase.Export(ctx)
	if err != nil {
		h.replyError(message.Chat.ID, "export", err)
		return
	}

	sess, _ := session.FromContext(ctx)
	name := fmt.Sprintf("fingenie-chats-%s-%s.json", sess.Username, time.Now().UTC().Format(time.DateOnly))
	doc := tgbotapi.NewDocument(message.Chat.ID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = "📦 Your FinGenie chats. Send this file back to me to restore them."
	if _, err := h.bot.Send(doc); err != nil {
		h.logger.Error("send export failed", zap.Error(err))
	}
}

// handleTaxCommand /tax argumentlari bilan soliq hisoblash
func (h *BotHandler) handleTaxCommand(ctx context.Context, message *tgbotapi.Message, args string) {
	in, err := parseTaxArgs(args)
	if err != nil {
		h.sendMessage(message.Chat.ID, fmt.Sprintf("❌ %v\n\nExample: /tax status=single year=2024 income.salary=85000 deduction.retirement=6000", err))
		return
	}
	h.calculateTax(ctx, message, in)
}

// calculateTax hisoblash va natijani yuborish
func (h *BotHandler) calculateTax(ctx context.Context, message *tgbotapi.Message, in entity.TaxInput) {
	if state := h.getState(message.From.ID); state.did != "" {
		if sessCtx, ok := h.sessionContext(ctx, message); ok {
			ctx = sessCtx
		}
	}

	result, err := h.taxUseCase.Calculate(ctx, in)
	if err != nil {
		h.logger.Warn("tax profile not saved", zap.Int64("user_id", message.From.ID), zap.Error(err))
	}
	h.updateState(message.From.ID, func(s *userState) {
		s.lastTax = &in
		s.lastResult = result
	})
	h.sendMessage(message.Chat.ID, formatTaxSummary(result))
}

// handleIndiaCommand Hindiston soliq kalkulyatori
func (h *BotHandler) handleIndiaCommand(message *tgbotapi.Message, args string) {
	in, err := parseIndiaArgs(args)
	if err != nil {
		h.sendMessage(message.Chat.ID, fmt.Sprintf("❌ %v\n\nExample: /india regime=old income=1200000 80c=150000", err))
		return
	}
	h.sendMessage(message.Chat.ID, formatIndiaSummary(in, h.taxUseCase.CalculateIndia(in)))
}

// handleDiscussCommand oxirgi soliq natijasini yordamchiga yuborish
func (h *BotHandler) handleDiscussCommand(ctx context.Context, message *tgbotapi.Message) {
	state := h.getState(message.From.ID)
	if state.lastTax == nil {
		h.sendMessage(message.Chat.ID, "Calculate your taxes first with /tax or by sending a tax workbook.")
		return
	}
	h.handleTextMessage(ctx, message, h.taxUseCase.FormatForChat(*state.lastTax, state.lastResult))
}

// handleTextMessage savolni yordamchiga yuborish
func (h *BotHandler) handleTextMessage(ctx context.Context, message *tgbotapi.Message, text string) {
	ctx, ok := h.sessionContext(ctx, message)
	if !ok {
		return
	}
	chatID := message.Chat.ID

	// "typing" indikatori
	if _, err := h.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		h.logger.Debug("typing action failed", zap.Error(err))
	}

	state := h.getState(message.From.ID)
	res, err := h.chatUseCase.Ask(ctx, state.activeChat, text, state.pending)
	if err != nil {
		h.replyError(chatID, "ask", err)
		return
	}

	h.updateState(message.From.ID, func(s *userState) {
		s.activeChat = res.ChatID
		s.pending = nil
	})
	h.sendMessage(chatID, res.Reply)
}

// handleDocumentMessage fayl yuborilganda
func (h *BotHandler) handleDocumentMessage(ctx context.Context, message *tgbotapi.Message) {
	doc := message.Document
	chatID := message.Chat.ID

	// Fayl hajmini tekshirish (5MB)
	if doc.FileSize > maxFileSize {
		h.sendMessage(chatID, "❌ Files must be 5MB or smaller.")
		return
	}

	data, err := h.downloadFile(ctx, doc.FileID)
	if errors.Is(err, errFileTooLarge) {
		h.sendMessage(chatID, "❌ Files must be 5MB or smaller.")
		return
	}
	if err != nil {
		h.logger.Error("file download failed", zap.String("file", doc.FileName), zap.Error(err))
		h.sendMessage(chatID, "❌ Could not download the file.")
		return
	}

	switch strings.ToLower(filepath.Ext(doc.FileName)) {
	case ".json":
		h.importChats(ctx, message, data)
		return
	case ".xlsx", ".xlsm":
		if in, err := h.taxUseCase.ImportWorkbook(ctx, data); err == nil {
			h.calculateTax(ctx, message, in)
			return
		}
		// soliq jadvali emas, oddiy hujjat sifatida qabul qilamiz
	}

	attachment := &entity.Attachment{
		Name:    doc.FileName,
		Content: parser.Truncate(parser.ExtractText(doc.FileName, data)),
	}
	h.updateState(message.From.ID, func(s *userState) { s.pending = attachment })

	if caption := strings.TrimSpace(message.Caption); caption != "" {
		h.handleTextMessage(ctx, message, caption)
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("📎 Got %q. Now send your question about it.", doc.FileName))
}

// importChats JSON eksport faylini tiklash
func (h *BotHandler) importChats(ctx context.Context, message *tgbotapi.Message, data []byte) {
	ctx, ok := h.sessionContext(ctx, message)
	if !ok {
		return
	}
	n, err := h.chatUseCase.Import(ctx, data)
	if err != nil {
		h.replyError(message.Chat.ID, "import", err)
		return
	}
	h.sendMessage(message.Chat.ID, fmt.Sprintf("✅ Imported %d chat(s). See /chats.", n))
}

// downloadFile Telegram dan faylni yuklash
func (h *BotHandler) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := h.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxFileSize {
		return nil, errFileTooLarge
	}
	return data, nil
}

// replyError xatolikni foydalanuvchiga tushunarli qilib yuborish
func (h *BotHandler) replyError(chatID int64, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrChatNotFound):
		h.sendMessage(chatID, "❌ Chat not found. See /chats.")
	case errors.Is(err, usecase.ErrEmptyMessage):
		h.sendMessage(chatID, "Please type a question.")
	case errors.Is(err, usecase.ErrInvalidArchive):
		h.sendMessage(chatID, "❌ That file is not a FinGenie chat export.")
	default:
		h.logger.Error("bot operation failed", zap.String("op", op), zap.Error(err))
		h.sendMessage(chatID, "Sorry, something went wrong. Please try again.")
	}
}

// getState foydalanuvchi holatining nusxasi
func (h *BotHandler) getState(userID int64) userState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if s, ok := h.states[userID]; ok {
		return *s
	}
	return userState{}
}

// updateState foydalanuvchi holatini o'zgartirish
func (h *BotHandler) updateState(userID int64, fn func(*userState)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.states[userID]
	if !ok {
		s = &userState{}
		h.states[userID] = s
	}
	fn(s)
}

// sendMessage oddiy xabar yuborish
func (h *BotHandler) sendMessage(chatID int64, text string) {
	for _, part := range splitMessage(text, maxMessageLen) {
		if _, err := h.bot.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			h.logger.Error("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
			return
		}
	}
}

// GetBotUsername bot username ni olish
func (h *BotHandler) GetBotUsername() string {
	return h.botName
}
