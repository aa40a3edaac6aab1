package gemini

import (
	"context"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("Save "), genai.Text("more.")}}},
			{Content: nil},
		},
	}
	assert.Equal(t, "Save more.", extractText(resp))
	assert.Equal(t, "", extractText(nil))
}

func TestAcquire_EnforcesMinimumInterval(t *testing.T) {
	g := &geminiClient{sem: make(chan struct{}, 1), delay: 50 * time.Millisecond}

	release, err := g.acquire(context.Background())
	require.NoError(t, err)
	release()

	start := time.Now()
	release, err = g.acquire(context.Background())
	require.NoError(t, err)
	release()
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestAcquire_CanceledWhileWaiting(t *testing.T) {
	g := &geminiClient{sem: make(chan struct{}, 1), delay: time.Hour}

	release, err := g.acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	// semafor bo'shatilgan, lekin interval hali tugamagan
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	_, err = g.acquire(ctx2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, g.sem, 0)
}
