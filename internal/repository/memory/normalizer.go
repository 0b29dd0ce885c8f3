package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/memento/internal/domain/geo"
	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	"github.com/kailas-cloud/memento/internal/domain/timeline"
	"github.com/kailas-cloud/memento/internal/logger"
	"github.com/kailas-cloud/memento/internal/query"
)

// source is the lenient read shape of a hit; every field may be absent.
type source struct {
	ID          string     `json:"id"`
	ImagePath   string     `json:"image_path"`
	Description string     `json:"description"`
	OCRText     *string    `json:"ocr_text"`
	Location    *geo.Point `json:"location"`
	Address     *string    `json:"address"`
	City        *string    `json:"city"`
	State       *string    `json:"state"`
	Zip         *string    `json:"zip"`
	Country     *string    `json:"country"`
	Timestamp   string     `json:"timestamp"`
}

// Normalizer maps raw index hits to the external memory shape.
type Normalizer struct {
	publicRoute string
	logger      *zap.Logger
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithLogger sets the logger used for hits dropped from a result page.
func WithLogger(l *zap.Logger) NormalizerOption {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// NewNormalizer creates a normalizer that rewrites image paths under publicRoute.
func NewNormalizer(publicRoute string, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{publicRoute: strings.TrimSuffix(publicRoute, "/"), logger: zap.NewNop()}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Normalize maps one hit. The score is kept only when ranked is true.
func (n *Normalizer) Normalize(hit query.Hit, ranked bool) (dommem.View, error) {
	var src source
	if err := json.Unmarshal(hit.Source, &src); err != nil {
		return dommem.View{}, fmt.Errorf("decode hit %s: %w", hit.ID, err)
	}

	ts, err := timeline.ParseTimestamp(src.Timestamp)
	if err != nil {
		// stored data, not caller input: never surface as a validation error
		return dommem.View{}, fmt.Errorf("hit %s: invalid stored timestamp %q", hit.ID, src.Timestamp)
	}

	id := src.ID
	if id == "" {
		id = hit.ID
	}

	v := dommem.View{
		Timestamp:   ts,
		ID:          id,
		ImagePath:   n.PublicPath(src.ImagePath),
		OCRText:     src.OCRText,
		Description: src.Description,
		Coords:      src.Location,
		Address:     src.Address,
		City:        src.City,
		State:       src.State,
		Zip:         src.Zip,
		Country:     src.Country,
	}
	if ranked && hit.Score != nil {
		score := *hit.Score
		v.Score = &score
	}
	return v, nil
}

// NormalizeAll maps the hits of res in order. A hit that cannot be decoded
// is logged and left out; the rest of the page is still returned.
func (n *Normalizer) NormalizeAll(ctx context.Context, res *query.Result, ranked bool) []dommem.View {
	if res == nil {
		return []dommem.View{}
	}
	out := make([]dommem.View, 0, len(res.Hits))
	for _, h := range res.Hits {
		v, err := n.Normalize(h, ranked)
		if err != nil {
			logger.FromContext(ctx, n.logger).Warn("skipping unreadable memory", zap.String("id", h.ID), zap.Error(err))
			continue
		}
		out = append(out, v)
	}
	return out
}

// PublicPath keeps only the file name of stored and prefixes the public route.
func (n *Normalizer) PublicPath(stored string) string {
	if stored == "" {
		return ""
	}
	name := stored
	if i := strings.LastIndexAny(stored, `/\`); i >= 0 {
		name = stored[i+1:]
	}
	return n.publicRoute + "/" + name
}
