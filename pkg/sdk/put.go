package memento

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/memento/internal/domain"
	"github.com/kailas-cloud/memento/internal/domain/geo"
	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
)

func newMemoryID() string { return uuid.NewString() }

// Put embeds a pre-captioned memory and indexes it, replacing any memory
// with the same ID. It returns the memory ID.
func (c *Client) Put(ctx context.Context, in MemoryInput) (_ string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("put", start, err) }()

	id := in.ID
	if id == "" {
		id = c.newID()
	}
	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	ocr := strings.TrimSpace(in.OCRText)

	var descVec, ocrVec []float32
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		descVec, err = c.embed(gctx, "description", in.Description)
		return err
	})
	if ocr != "" {
		g.Go(func() (err error) {
			ocrVec, err = c.embed(gctx, "ocr text", ocr)
			return err
		})
	}
	if err = g.Wait(); err != nil {
		return "", fmt.Errorf("put: %w", err)
	}

	rec, err := dommem.New(id, in.ImagePath, in.Description, descVec, ts)
	if err != nil {
		return "", err
	}
	if rec, err = rec.WithOCR(ocr, ocrVec); err != nil {
		return "", err
	}
	if in.Location != nil {
		if rec, err = rec.WithLocation(geo.Point{Lat: in.Location.Lat, Lon: in.Location.Lon}); err != nil {
			return "", err
		}
	}
	rec = rec.WithAddress(dommem.Address(in.Address)).WithTags(in.Tags...).WithMetadata(in.Metadata)

	if err = c.writer.Upsert(ctx, &rec); err != nil {
		return "", fmt.Errorf("put: %w", err)
	}
	return id, nil
}

func (c *Client) embed(ctx context.Context, what, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewValidationError(what, "is required")
	}
	res, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", what, err)
	}
	if len(res.Embedding) == 0 {
		return nil, fmt.Errorf("embed %s: %w: empty embedding", what, domain.ErrEmbeddingProviderError)
	}
	return res.Embedding, nil
}
