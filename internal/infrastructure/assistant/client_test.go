package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/fingenie/assistant/internal/domain/repository"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 5*time.Second, zap.NewNop())
}

func TestSend_ReturnsReply(t *testing.T) {
	var got map[string]any
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"reply":"Max out your 401(k)."}`))
	})

	reply := client.Send(context.Background(), "How do I lower my taxes?")

	assert.Equal(t, "Max out your 401(k).", reply)
	assert.Equal(t, map[string]any{"message": "How do I lower my taxes?"}, got)
}

func TestSend_EmptyReply(t *testing.T) {
	for name, body := range map[string]string{
		"empty string":  `{"reply":""}`,
		"missing field": `{"answer":"x"}`,
		"null":          `{"reply":null}`,
	} {
		t.Run(name, func(t *testing.T) {
			client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})
			assert.Equal(t, repository.EmptyReplyFallback, client.Send(context.Background(), "hi"))
		})
	}
}

func TestSend_ServerError(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	assert.Equal(t, repository.UnavailableFallback, client.Send(context.Background(), "hi"))
}

func TestSend_MalformedJSON(t *testing.T) {
	for name, body := range map[string]string{
		"truncated":    `{"reply":`,
		"object reply": `{"reply":{"a":1}}`,
		"number reply": `{"reply":42}`,
		"array body":   `["Save more."]`,
		"string body":  `"Save more."`,
		"bool reply":   `{"reply":true}`,
	} {
		t.Run(name, func(t *testing.T) {
			client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})
			assert.Equal(t, repository.UnavailableFallback, client.Send(context.Background(), "hi"))
		})
	}
}

func TestSend_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(url, time.Second, nil)
	assert.Equal(t, repository.UnavailableFallback, client.Send(context.Background(), "hi"))
}

func TestSend_CanceledContext(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"reply":"late"}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, repository.UnavailableFallback, client.Send(ctx, "hi"))
}

func TestNewClient_DefaultURL(t *testing.T) {
	assert.Equal(t, DefaultURL, NewClient("", time.Second, nil).url)
}
