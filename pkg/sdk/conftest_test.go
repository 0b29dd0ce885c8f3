package memento

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type mockEmbedder struct {
	mu    sync.Mutex
	fn    func(ctx context.Context, text string) (EmbeddingResult, error)
	texts []string
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	return m.fn(ctx, text)
}

// topicEmbedder maps texts mentioning dogs and cats to opposite vectors.
func topicEmbedder() *mockEmbedder {
	return &mockEmbedder{fn: func(_ context.Context, text string) (EmbeddingResult, error) {
		switch {
		case strings.Contains(text, "dog"):
			return EmbeddingResult{Embedding: []float32{1, 0, 0}, TotalTokens: 2}, nil
		case strings.Contains(text, "cat"):
			return EmbeddingResult{Embedding: []float32{-1, 0, 0}, TotalTokens: 2}, nil
		default:
			return EmbeddingResult{Embedding: []float32{0, 0, 1}, TotalTokens: 2}, nil
		}
	}}
}

var testTime = time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)

func newMemoryClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	base := []Option{WithMemoryIndex(), WithVectorDimensions(3), WithEmbedder(topicEmbedder())}
	c, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func put(t *testing.T, c *Client, in MemoryInput) string {
	t.Helper()
	id, err := c.Put(context.Background(), in)
	if err != nil {
		t.Fatalf("Put %s: %v", in.ID, err)
	}
	return id
}

func memoryIDs(ms []Memory) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}
