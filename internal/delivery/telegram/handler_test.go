package telegram

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/domain/tax"
	"github.com/fingenie/assistant/internal/infrastructure/parser"
	"github.com/fingenie/assistant/internal/infrastructure/storage"
	"github.com/fingenie/assistant/internal/usecase"
)

type fakeBot struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	fileURL string
	updates chan tgbotapi.Update
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetFileDirectURL(fileID string) (string, error) {
	return f.fileURL + "/" + fileID, nil
}

func (f *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	if f.updates != nil {
		return f.updates
	}
	return make(chan tgbotapi.Update)
}

func (f *fakeBot) StopReceivingUpdates() {}

// lastText oxirgi yuborilgan matnli xabar
func (f *fakeBot) lastText(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if m, ok := f.sent[i].(tgbotapi.MessageConfig); ok {
			return m.Text
		}
	}
	t.Fatal("no text message sent")
	return ""
}

type promptRecorder struct {
	mu      sync.Mutex
	prompts []string
}

func (p *promptRecorder) Send(_ context.Context, prompt string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	return "Advice #" + string(rune('0'+len(p.prompts)))
}

func (p *promptRecorder) last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompts[len(p.prompts)-1]
}

func newTestHandler(t *testing.T, files map[string][]byte) (*BotHandler, *fakeBot, *promptRecorder) {
	t.Helper()
	fileSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := files[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(fileSrv.Close)

	bot := &fakeBot{fileURL: fileSrv.URL}
	assistant := &promptRecorder{}
	h := newBotHandler(bot,
		usecase.NewAuthUseCase(storage.NewMemoryUserRepository(), nil),
		usecase.NewChatUseCase(assistant, storage.NewMemoryChatRepository(), nil),
		usecase.NewTaxUseCase(storage.NewMemoryTaxProfileRepository(), parser.NewTaxWorkbook(nil), nil),
		nil,
	)
	return h, bot, assistant
}

func textMessage(userID int64, text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, UserName: "alice"},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return msg
}

func documentMessage(userID int64, name, caption string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From:     &tgbotapi.User{ID: userID, UserName: "alice"},
		Chat:     &tgbotapi.Chat{ID: userID},
		Caption:  caption,
		Document: &tgbotapi.Document{FileID: name, FileName: name, FileSize: 100},
	}
}

func TestHandler_RequiresRegistration(t *testing.T) {
	h, bot, assistant := newTestHandler(t, nil)
	ctx := context.Background()

	h.handleMessage(ctx, textMessage(1, "How should I budget?"))
	assert.Contains(t, bot.lastText(t), "/register")
	assert.Empty(t, assistant.prompts)

	h.handleMessage(ctx, textMessage(1, "/register"))
	assert.Contains(t, bot.lastText(t), "Usage: /register")
}

func TestHandler_RegisterAskAndHistory(t *testing.T) {
	h, bot, assistant := newTestHandler(t, nil)
	ctx := context.Background()

	h.handleMessage(ctx, textMessage(1, "/register 0xAbC"))
	assert.Contains(t, bot.lastText(t), "did:ethr:0xAbC:05899680")

	h.handleMessage(ctx, textMessage(1, "How should I budget?"))
	assert.Equal(t, "Advice #1", bot.lastText(t))
	assert.Equal(t, "How should I budget?", assistant.last())

	h.handleMessage(ctx, textMessage(1, "And savings?"))
	assert.Equal(t, "Advice #2", bot.lastText(t))

	h.handleMessage(ctx, textMessage(1, "/history"))
	history := bot.lastText(t)
	assert.Contains(t, history, "🧑 How should I budget?")
	assert.Contains(t, history, "🤖 Advice #2")

	h.handleMessage(ctx, textMessage(1, "/chats"))
	assert.Contains(t, bot.lastText(t), "▶ How should I budget?")

	// qayta /register mavjud foydalanuvchini tizimga kiritadi
	h.handleMessage(ctx, textMessage(1, "/register 0xabc"))
	assert.Contains(t, bot.lastText(t), "Signed in as alice")

	h.handleMessage(ctx, textMessage(1, "/register 0xdef"))
	assert.Contains(t, bot.lastText(t), "different wallet address")
}

func TestHandler_NewUseDelete(t *testing.T) {
	h, bot, _ := newTestHandler(t, nil)
	ctx := context.Background()
	h.handleMessage(ctx, textMessage(1, "/register 0x1"))

	h.handleMessage(ctx, textMessage(1, "/new Retirement"))
	assert.Contains(t, bot.lastText(t), "New chat started")
	first := h.getState(1).activeChat
	require.NotEmpty(t, first)

	h.handleMessage(ctx, textMessage(1, "/new"))
	second := h.getState(1).activeChat
	assert.NotEqual(t, first, second)

	h.handleMessage(ctx, textMessage(1, "/use "+first))
	assert.Equal(t, first, h.getState(1).activeChat)

	h.handleMessage(ctx, textMessage(1, "/use nope"))
	assert.Contains(t, bot.lastText(t), "Chat not found")
	assert.Equal(t, first, h.getState(1).activeChat)

	h.handleMessage(ctx, textMessage(1, "/delete "+first))
	assert.Contains(t, bot.lastText(t), "Chat deleted")
	assert.Empty(t, h.getState(1).activeChat)
}

func TestHandler_TaxAndDiscuss(t *testing.T) {
	h, bot, assistant := newTestHandler(t, nil)
	ctx := context.Background()

	h.handleMessage(ctx, textMessage(1, "/discuss"))
	assert.Contains(t, bot.lastText(t), "Calculate your taxes first")

	h.handleMessage(ctx, textMessage(1, "/tax year=2023 income.salary=63850 deduction.retirement=13850"))
	summary := bot.lastText(t)
	assert.Contains(t, summary, "Taxable income: $50,000")
	assert.Contains(t, summary, "Federal tax: $6,307.5")
	assert.Contains(t, summary, "Bracket: 22%")

	h.handleMessage(ctx, textMessage(1, "/tax salary=1"))
	assert.Contains(t, bot.lastText(t), "unknown field")

	h.handleMessage(ctx, textMessage(1, "/register 0x1"))
	h.handleMessage(ctx, textMessage(1, "/discuss"))
	assert.True(t, strings.HasPrefix(assistant.last(), "Here are my tax calculation results:"))

	h.handleMessage(ctx, textMessage(1, "/india income=700000"))
	assert.Contains(t, bot.lastText(t), "Final tax: ₹0")
}

func TestHandler_DocumentAttachment(t *testing.T) {
	h, bot, assistant := newTestHandler(t, map[string][]byte{"w2.txt": []byte("Wages: 50000")})
	ctx := context.Background()
	h.handleMessage(ctx, textMessage(1, "/register 0x1"))

	h.handleMessage(ctx, documentMessage(1, "w2.txt", ""))
	assert.Contains(t, bot.lastText(t), `Got "w2.txt"`)

	h.handleMessage(ctx, textMessage(1, "Is my withholding right?"))
	assert.Equal(t,
		"DOCUMENT_CONTENT_FOR_ANALYSIS\n\nIs my withholding right?\n\nDocument: w2.txt\n\nWages: 50000",
		assistant.last())

	// biriktirma bir marta ishlatiladi
	h.handleMessage(ctx, textMessage(1, "Thanks"))
	assert.Equal(t, "Thanks", assistant.last())

	h.handleMessage(ctx, documentMessage(1, "w2.txt", "Summarize"))
	assert.Contains(t, assistant.last(), "DOCUMENT_CONTENT_FOR_ANALYSIS\n\nSummarize")
}

func sampleReport() entity.TaxReport {
	in := entity.TaxInput{
		FilingStatus: entity.FilingSingle,
		TaxYear:      2023,
		Country:      "US",
		Income:       map[string]float64{"salary": 63850},
		Deductions:   map[string]float64{"retirement": 13850},
	}
	return entity.TaxReport{User: entity.ReportUser{Name: "alice"}, TaxData: in, TaxResults: tax.Calculate(in)}
}

func TestHandler_ExportImportAndWorkbook(t *testing.T) {
	workbook, err := parser.NewTaxWorkbook(nil).WriteReport(context.Background(), sampleReport())
	require.NoError(t, err)

	files := map[string][]byte{
		"backup.json": []byte(`{"chats":[{"id":"c1","title":"Imported","createdAt":"2024-01-02T03:04:05Z","messages":[{"id":"m1","role":"user","content":"hi","timestamp":"2024-01-02T03:04:06Z"}]}]}`),
		"broken.json": []byte(`{"chats":`),
		"taxes.xlsx":  workbook,
	}
	h, bot, _ := newTestHandler(t, files)
	ctx := context.Background()
	h.handleMessage(ctx, textMessage(1, "/register 0x1"))

	h.handleMessage(ctx, documentMessage(1, "backup.json", ""))
	assert.Contains(t, bot.lastText(t), "Imported 1 chat(s)")

	h.handleMessage(ctx, documentMessage(1, "broken.json", ""))
	assert.Contains(t, bot.lastText(t), "not a FinGenie chat export")

	h.handleMessage(ctx, textMessage(1, "/export"))
	bot.mu.Lock()
	doc, ok := bot.sent[len(bot.sent)-1].(tgbotapi.DocumentConfig)
	bot.mu.Unlock()
	require.True(t, ok)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(file.Name, "fingenie-chats-alice-"))
	assert.Equal(t, "Imported", gjson.GetBytes(file.Bytes, "chats.0.title").String())

	h.handleMessage(ctx, documentMessage(1, "taxes.xlsx", ""))
	assert.Contains(t, bot.lastText(t), "Taxable income: $50,000")
}

func TestHandler_UnknownCommand(t *testing.T) {
	h, bot, _ := newTestHandler(t, nil)
	h.handleMessage(context.Background(), textMessage(1, "/moon"))
	assert.Equal(t, "Unknown command. See /help.", bot.lastText(t))

	h.handleMessage(context.Background(), textMessage(1, "/help"))
	assert.Contains(t, bot.lastText(t), "/register <address>")
}

// blockingAssistant release yopilguncha javob bermaydi
type blockingAssistant struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingAssistant) Send(ctx context.Context, prompt string) string {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return "Keep six months of expenses."
}

func TestHandler_StartWaitsForRunningHandlers(t *testing.T) {
	bot := &fakeBot{updates: make(chan tgbotapi.Update)}
	assistant := &blockingAssistant{started: make(chan struct{}), release: make(chan struct{})}
	h := newBotHandler(bot,
		usecase.NewAuthUseCase(storage.NewMemoryUserRepository(), nil),
		usecase.NewChatUseCase(assistant, storage.NewMemoryChatRepository(), nil),
		usecase.NewTaxUseCase(storage.NewMemoryTaxProfileRepository(), parser.NewTaxWorkbook(nil), nil),
		nil,
	)
	h.handleMessage(context.Background(), textMessage(1, "/register 0xAbC"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Start(ctx) }()

	bot.updates <- tgbotapi.Update{Message: textMessage(1, "Emergency fund?")}
	select {
	case <-assistant.started:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not reach the assistant")
	}

	cancel()
	select {
	case <-done:
		t.Fatal("Start returned while a handler was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(assistant.release)
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after handlers finished")
	}
	assert.Equal(t, "Keep six months of expenses.", bot.lastText(t))
}

func TestHandler_OversizedDownloadRejected(t *testing.T) {
	big := bytes.Repeat([]byte("a"), maxFileSize+1)
	h, bot, assistant := newTestHandler(t, map[string][]byte{"notes.txt": big})
	ctx := context.Background()
	h.handleMessage(ctx, textMessage(1, "/register 0xAbC"))

	msg := documentMessage(1, "notes.txt", "Summarize this")
	msg.Document.FileSize = 0
	h.handleMessage(ctx, msg)

	assert.Contains(t, bot.lastText(t), "5MB or smaller")
	assert.Empty(t, assistant.prompts)
	assert.Nil(t, h.getState(1).pending)

	_, err := h.downloadFile(ctx, "notes.txt")
	assert.ErrorIs(t, err, errFileTooLarge)
}
