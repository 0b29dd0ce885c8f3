package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/memento/internal/config"
	"github.com/kailas-cloud/memento/internal/db"
	dbElastic "github.com/kailas-cloud/memento/internal/db/elastic"
	"github.com/kailas-cloud/memento/internal/db/memindex"
	dbValkey "github.com/kailas-cloud/memento/internal/db/valkey"
	"github.com/kailas-cloud/memento/internal/domain"
	logpkg "github.com/kailas-cloud/memento/internal/logger"
	"github.com/kailas-cloud/memento/internal/metrics"
	"github.com/kailas-cloud/memento/internal/repository/embcache"
	memrepo "github.com/kailas-cloud/memento/internal/repository/memory"
	"github.com/kailas-cloud/memento/internal/storage/local"
	"github.com/kailas-cloud/memento/internal/transport/geoapify"
	openaiTransport "github.com/kailas-cloud/memento/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/memento/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/memento/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/memento/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/memento/internal/usecase/search"
	timelineuc "github.com/kailas-cloud/memento/internal/usecase/timeline"
	"github.com/kailas-cloud/memento/internal/version"
)

const embeddingProvider = "openai"

// app holds the process-wide dependencies shared by every command.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger

	index db.Index
	cache *dbValkey.Store // nil when the embedding cache is disabled
	repo  *memrepo.Repo

	baseEmbedder  *openaiTransport.Embedder
	docEmbedder   domain.Embedder
	queryEmbedder domain.Embedder
}

// newApp loads configuration, connects to the search index and the optional
// cache, and assembles the embedder chain.
func newApp(ctx context.Context, env string) (*app, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logger.Info("Starting memento",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("search_driver", cfg.Search.Driver),
		zap.Strings("search_addrs", cfg.Search.Addresses),
		zap.String("index", cfg.Search.Index),
	)

	a := &app{env: env, cfg: cfg, logger: logger}

	if a.index, err = newIndex(cfg.Search); err != nil {
		return nil, err
	}
	readiness := time.Duration(cfg.Search.ReadinessTimeout) * time.Second
	if err := a.index.WaitForReady(ctx, readiness); err != nil {
		a.Close()
		return nil, fmt.Errorf("search index not ready: %w", err)
	}
	logger.Info("Connected to search index")

	if cfg.Cache.Enabled {
		a.cache, err = dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create embedding cache: %w", err)
		}
		if err := a.cache.WaitForReady(ctx, readiness); err != nil {
			a.Close()
			return nil, fmt.Errorf("embedding cache not ready: %w", err)
		}
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	a.repo = memrepo.New(a.index, memrepo.IndexOptions{
		Name:       cfg.Search.Index,
		Dimensions: cfg.Embedding.Dimensions,
		Shards:     cfg.Search.Shards,
		Replicas:   cfg.Search.Replicas,
	}, memrepo.NewNormalizer(cfg.Storage.PublicRoute, memrepo.WithLogger(a.logger)))

	a.buildEmbedders()
	logger.Info("Embedders created",
		zap.String("provider", embeddingProvider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", a.cache != nil),
	)
	return a, nil
}

func newIndex(cfg config.SearchConfig) (db.Index, error) {
	switch cfg.Driver {
	case config.DriverElasticsearch:
		refresh := ""
		if cfg.Refresh {
			refresh = "wait_for"
		}
		s, err := dbElastic.NewStore(dbElastic.Config{
			Addresses: cfg.Addresses,
			Username:  cfg.Username,
			Password:  cfg.Password,
			APIKey:    cfg.APIKey,
			Refresh:   refresh,
		})
		if err != nil {
			return nil, fmt.Errorf("create elasticsearch store: %w", err)
		}
		return s, nil
	case config.DriverMemory:
		return memindex.New(), nil
	default:
		return nil, fmt.Errorf("unknown search driver %q", cfg.Driver)
	}
}

// buildEmbedders assembles the decorator chain:
// OpenAI -> Cached -> Timeout -> Instrumented [-> Instruction for queries].
func (a *app) buildEmbedders() {
	ec := a.cfg.Embedding
	a.baseEmbedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Logger:     a.logger,
	})

	var emb domain.Embedder = a.baseEmbedder
	if a.cache != nil {
		emb = embcache.New(emb, a.cache, embcache.Config{
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			TTL:        time.Duration(a.cfg.Cache.TTLSec) * time.Second,
			Lookups:    metrics.EmbeddingCacheTotal,
		}, a.logger)
	}
	emb = embeddinguc.NewTimeoutEmbedder(emb, time.Duration(ec.TimeoutMs)*time.Millisecond)
	emb = embeddinguc.NewInstrumentedEmbedder(emb, embeddingProvider, ec.Model, a.logger,
		embeddinguc.WithDimensions(ec.Dimensions))

	// Queries carry the instruction prefix; documents are embedded verbatim.
	a.docEmbedder = emb
	a.queryEmbedder = emb
	if ec.QueryInstruction != "" {
		a.queryEmbedder = domain.NewInstructionEmbedder(emb, ec.QueryInstruction)
	}
}

func (a *app) searchService() *searchuc.Service {
	return searchuc.New(a.repo, a.queryEmbedder, a.logger)
}

func (a *app) timelineWalker() *timelineuc.Walker {
	return timelineuc.NewWalker(a.repo, a.logger)
}

func (a *app) healthService() *healthuc.Service {
	opts := []healthuc.Option{healthuc.WithEmbedding(a.baseEmbedder)}
	if a.cache != nil {
		opts = append(opts, healthuc.WithCache(a.cache))
	}
	return healthuc.New(a.index, a.logger, opts...)
}

// ingestService wires storage, vision, geocoding and embedding into the
// ingestion pipeline. Geocoding is skipped without an API key.
func (a *app) ingestService() (*ingestuc.Service, error) {
	store, err := local.New(a.cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open image storage: %w", err)
	}

	vc := a.cfg.Vision
	vision := openaiTransport.NewVision(&openaiTransport.VisionConfig{
		APIKey:    vc.APIKey,
		BaseURL:   vc.BaseURL,
		Model:     vc.Model,
		MaxTokens: vc.MaxTokens,
		Width:     vc.ResizeWidth,
		Height:    vc.ResizeHeight,
		Timeout:   time.Duration(vc.TimeoutSec) * time.Second,
		Logger:    a.logger,
	})

	deps := ingestuc.Deps{
		Storage:   store,
		Captioner: vision,
		OCR:       vision,
		Embedder:  a.docEmbedder,
		Repo:      a.repo,
	}
	// Leave Geocoder a nil interface, not a typed nil pointer.
	if gc := a.cfg.Geocoding; gc.APIKey != "" {
		deps.Geocoder = geoapify.New(geoapify.Config{
			APIKey:        gc.APIKey,
			BaseURL:       gc.BaseURL,
			RatePerSecond: gc.RatePerSecond,
			Timeout:       time.Duration(gc.TimeoutSec) * time.Second,
			Logger:        a.logger,
		})
	} else {
		a.logger.Warn("Geocoding disabled: no API key configured")
	}
	return ingestuc.New(deps, a.logger), nil
}

func (a *app) storageDir() string { return a.cfg.Storage.Path }

// Close releases connections and flushes the logger.
func (a *app) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
	if a.index != nil {
		a.index.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
