package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/memento/internal/domain"
)

func blockingEmbedder() *mockEmbedder {
	return &mockEmbedder{embed: func(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
		<-ctx.Done()
		return domain.EmbeddingResult{}, ctx.Err()
	}}
}

func TestTimeoutEmbedder_Timeout(t *testing.T) {
	e := NewTimeoutEmbedder(blockingEmbedder(), 10*time.Millisecond)

	_, err := e.Embed(context.Background(), "slow")
	if !errors.Is(err, domain.ErrEmbeddingTimeout) {
		t.Fatalf("expected ErrEmbeddingTimeout, got %v", err)
	}
}

func TestTimeoutEmbedder_CallerCancelIsNotTimeout(t *testing.T) {
	e := NewTimeoutEmbedder(blockingEmbedder(), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Embed(ctx, "x")
	if errors.Is(err, domain.ErrEmbeddingTimeout) {
		t.Fatal("caller cancellation must not be reported as a provider timeout")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTimeoutEmbedder_EmptyVector(t *testing.T) {
	e := NewTimeoutEmbedder(&mockEmbedder{}, time.Second)

	_, err := e.Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestTimeoutEmbedder_Success(t *testing.T) {
	e := NewTimeoutEmbedder(&mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}, 0)

	res, err := e.Embed(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}
