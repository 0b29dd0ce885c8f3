// Package embcache caches text embeddings in Valkey.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/memento/internal/db"
	"github.com/kailas-cloud/memento/internal/domain"
	"github.com/kailas-cloud/memento/internal/logger"
)

const keyPrefix = "memento:emb:"

// Lookup results reported to Config.Lookups.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultStale = "stale"
)

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config describes the vectors a cache instance serves.
type Config struct {
	Model string
	// Dimensions is the expected vector length; cached vectors of another
	// length are treated as stale. Zero accepts any length.
	Dimensions int
	TTL        time.Duration
	// Lookups counts lookups by result label. Optional.
	Lookups *prometheus.CounterVec
}

// CachedEmbedder serves embeddings from a key-value store and falls back to
// the inner embedder. Store failures never fail an Embed call.
type CachedEmbedder struct {
	inner  domain.Embedder
	store  store
	cfg    Config
	prefix string
	logger *zap.Logger
}

// New creates a caching decorator around inner.
func New(inner domain.Embedder, s store, cfg Config, log *zap.Logger) *CachedEmbedder {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedEmbedder{
		inner:  inner,
		store:  s,
		cfg:    cfg,
		prefix: keyPrefix + cfg.Model + ":" + strconv.Itoa(cfg.Dimensions) + ":",
		logger: log,
	}
}

// Embed returns the cached vector for text or embeds and stores it.
// A hit reports zero tokens.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)
	log := logger.FromContext(ctx, c.logger)

	vec, result := c.lookup(ctx, log, key)
	c.count(result)
	if result == ResultHit {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	c.save(ctx, log, key, res.Embedding)
	return res, nil
}

func (c *CachedEmbedder) key(text string) string {
	h := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, log *zap.Logger, key string) ([]float32, string) {
	data, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil, ResultMiss
	case err != nil:
		log.Warn("embedding cache read failed", zap.String("key", key), zap.Error(err))
		return nil, ResultMiss
	case len(data) == 0:
		return nil, ResultMiss
	}

	vec, err := decodeVector(data)
	if err != nil || (c.cfg.Dimensions > 0 && len(vec) != c.cfg.Dimensions) {
		log.Warn("discarding stale cached embedding",
			zap.String("key", key), zap.Int("bytes", len(data)), zap.Error(err))
		return nil, ResultStale
	}
	return vec, ResultHit
}

// save writes vec under key, detached from request cancellation.
func (c *CachedEmbedder) save(ctx context.Context, log *zap.Logger, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := c.store.SetWithTTL(context.WithoutCancel(ctx), key, encodeVector(vec), c.cfg.TTL); err != nil {
		log.Warn("embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedEmbedder) count(result string) {
	if c.cfg.Lookups != nil {
		c.cfg.Lookups.WithLabelValues(result).Inc()
	}
}

// encodeVector packs vec as little-endian float32s.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("cached embedding has %d bytes, not a multiple of 4", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec, nil
}
