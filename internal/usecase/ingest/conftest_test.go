package ingest

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/memento/internal/domain"
	"github.com/kailas-cloud/memento/internal/domain/geo"
	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	"github.com/kailas-cloud/memento/internal/domain/upload"
)

type mockStorage struct {
	saveErr  error
	taken    int // the first taken saves report an existing file
	attempts []string
	saved    []string
	removed  []string
}

func (m *mockStorage) Save(_ context.Context, name string, _ []byte) (string, error) {
	m.attempts = append(m.attempts, name)
	if len(m.attempts) <= m.taken {
		return "", fmt.Errorf("save %s: %w", name, os.ErrExist)
	}
	if m.saveErr != nil {
		return "", m.saveErr
	}
	p := "/data/" + name
	m.saved = append(m.saved, p)
	return p, nil
}

func (m *mockStorage) Remove(_ context.Context, path string) error {
	m.removed = append(m.removed, path)
	return nil
}

type mockCaptioner struct {
	text string
	err  error
}

func (m *mockCaptioner) Describe(_ context.Context, _ []byte) (string, error) { return m.text, m.err }

type mockOCR struct {
	text string
	err  error
}

func (m *mockOCR) ExtractText(_ context.Context, _ []byte) (string, error) { return m.text, m.err }

type mockGeocoder struct {
	addr   dommem.Address
	err    error
	called bool
}

func (m *mockGeocoder) Reverse(_ context.Context, _ geo.Point) (dommem.Address, error) {
	m.called = true
	return m.addr, m.err
}

type mockEmbedder struct {
	mu    sync.Mutex
	err   error
	texts []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 3}, nil
}

type mockRepo struct {
	err  error
	recs []dommem.Record
}

func (m *mockRepo) Upsert(_ context.Context, rec *dommem.Record) error {
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, *rec)
	return nil
}

type fixture struct {
	storage  *mockStorage
	caption  *mockCaptioner
	ocr      *mockOCR
	geocoder *mockGeocoder
	embedder *mockEmbedder
	repo     *mockRepo
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		storage:  &mockStorage{},
		caption:  &mockCaptioner{text: "A red bicycle leaning on a wall"},
		ocr:      &mockOCR{text: "  PARKING ONLY \n"},
		geocoder: &mockGeocoder{addr: dommem.Address{Formatted: "1 Infinite Loop", City: "Cupertino", Country: "United States"}},
		embedder: &mockEmbedder{},
		repo:     &mockRepo{},
	}
	f.svc = New(Deps{
		Storage:   f.storage,
		Captioner: f.caption,
		OCR:       f.ocr,
		Geocoder:  f.geocoder,
		Embedder:  f.embedder,
		Repo:      f.repo,
	}, nil)
	f.svc.newID = func() string { return "mem-1" }
	return f
}

var jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

var captureTime = time.Date(2024, 7, 4, 18, 30, 0, 0, time.UTC)

func testUpload(t *testing.T, loc *geo.Point) upload.Upload {
	t.Helper()
	u, err := upload.New(jpegHeader, loc, captureTime, 0)
	if err != nil {
		t.Fatalf("upload.New: %v", err)
	}
	return u
}
