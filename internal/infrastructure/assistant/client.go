package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/fingenie/assistant/internal/domain/repository"
)

// DefaultURL is the hosted FinGenie chat endpoint.
const DefaultURL = "https://fin-backend-cbtl.onrender.com/chat"

// Client posts a single prompt to the remote assistant and returns its reply.
// It never retries and never surfaces errors to the caller.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an assistant client. An empty url falls back to DefaultURL.
func NewClient(url string, timeout time.Duration, logger *zap.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:    url,
		logger: logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ repository.AssistantRepository = (*Client)(nil)

type chatRequest struct {
	Message string `json:"message"`
}

// Send implements repository.AssistantRepository.
func (c *Client) Send(ctx context.Context, prompt string) string {
	reply, err := c.send(ctx, prompt)
	if err != nil {
		c.logger.Warn("assistant request failed", zap.String("url", c.url), zap.Error(err))
		return repository.UnavailableFallback
	}
	if reply == "" {
		c.logger.Debug("assistant returned empty reply", zap.String("url", c.url))
		return repository.EmptyReplyFallback
	}
	return reply
}

func (c *Client) send(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{Message: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal assistant request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create assistant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("assistant request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed reading assistant response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("assistant non-success status=%d body=%s", resp.StatusCode, truncate(string(body), 400))
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return "", fmt.Errorf("failed to parse assistant response: %s", truncate(string(body), 400))
	}

	// missing or null reply counts as empty; any other non-string is malformed
	reply := gjson.GetBytes(body, "reply")
	switch reply.Type {
	case gjson.Null:
		return "", nil
	case gjson.String:
		return reply.Str, nil
	default:
		return "", fmt.Errorf("assistant reply is %s, not a string: %s", reply.Type, truncate(reply.Raw, 400))
	}
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
