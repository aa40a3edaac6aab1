package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/fingenie/assistant/internal/domain/repository"
)

// DefaultModel Gemini modeli, GEMINI_MODEL berilmaganda
const DefaultModel = "gemini-2.0-flash"

const systemInstruction = `You are FinGenie, a personal financial assistant.
You help users understand budgeting, saving, investing and taxes.

RULES:
1. Answer in clear, plain language. Prefer short paragraphs and bullet lists.
2. When the message starts with DOCUMENT_CONTENT_FOR_ANALYSIS, analyse the attached document and answer the user's request about it.
3. When the message contains tax calculation results, explain them: effective vs marginal rate, the bracket, and each suggested deduction with its potential savings.
4. Never invent numbers that are not in the user's message. If information is missing, ask for it.
5. You are not a licensed advisor. For complex situations recommend consulting a tax professional.`

type geminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *zap.Logger
	sem    chan struct{}
	mu     sync.Mutex
	last   time.Time
	delay  time.Duration
}

// NewGeminiClient yangi Gemini AI client yaratish
func NewGeminiClient(ctx context.Context, apiKey, modelName string, logger *zap.Logger) (repository.AssistantRepository, func() error, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	model := client.GenerativeModel(modelName)

	// Moliyaviy maslahat uchun aniqroq javoblar
	model.SetTemperature(0.3)
	model.SetTopK(20)
	model.SetTopP(0.9)
	model.SetMaxOutputTokens(2048)

	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}

	g := &geminiClient{
		client: client,
		model:  model,
		logger: logger,
		sem:    make(chan struct{}, 3), // bir vaqtda 3 ta so'rovdan oshirma
		delay:  350 * time.Millisecond, // minimal interval
	}
	return g, g.Close, nil
}

// Send javob yaratish; xatoda fallback matn
func (g *geminiClient) Send(ctx context.Context, prompt string) string {
	release, err := g.acquire(ctx)
	if err != nil {
		g.logger.Warn("gemini limiter wait aborted", zap.Error(err))
		return repository.UnavailableFallback
	}
	defer release()

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		g.logger.Warn("gemini request failed", zap.Error(err))
		return repository.UnavailableFallback
	}

	reply := strings.TrimSpace(extractText(resp))
	if reply == "" {
		return repository.EmptyReplyFallback
	}
	return reply
}

// extractText javobdan textni ajratib olish
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var result strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				result.WriteString(string(text))
			}
		}
	}
	return result.String()
}

func (g *geminiClient) acquire(ctx context.Context) (func(), error) {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if !g.last.IsZero() {
		if sleep := g.delay - now.Sub(g.last); sleep > 0 {
			timer := time.NewTimer(sleep)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				<-g.sem
				return nil, ctx.Err()
			}
			now = time.Now()
		}
	}
	g.last = now

	return func() {
		<-g.sem
	}, nil
}

// Close client ni yopish
func (g *geminiClient) Close() error {
	return g.client.Close()
}
