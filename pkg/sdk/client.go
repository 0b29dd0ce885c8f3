package memento

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/memento/internal/db"
	"github.com/kailas-cloud/memento/internal/db/elastic"
	"github.com/kailas-cloud/memento/internal/db/memindex"
	"github.com/kailas-cloud/memento/internal/domain"
	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	"github.com/kailas-cloud/memento/internal/domain/search/request"
	domtl "github.com/kailas-cloud/memento/internal/domain/timeline"
	memrepo "github.com/kailas-cloud/memento/internal/repository/memory"
	healthuc "github.com/kailas-cloud/memento/internal/usecase/health"
	searchuc "github.com/kailas-cloud/memento/internal/usecase/search"
	timelineuc "github.com/kailas-cloud/memento/internal/usecase/timeline"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultIndexName        = "memories"
	defaultDimensions       = 1536
	defaultPublicRoute      = "/storage"
)

// Internal interfaces, swapped for mocks in tests.
type searchUseCase interface {
	Search(ctx context.Context, req *request.Request) ([]dommem.View, error)
	Get(ctx context.Context, id string) (dommem.View, error)
}

type timelineUseCase interface {
	Walk(ctx context.Context, c domtl.Cursor) ([]dommem.View, error)
}

type recordWriter interface {
	Upsert(ctx context.Context, rec *dommem.Record) error
}

// Client is the memento SDK entry point.
type Client struct {
	index     db.Index
	searchSvc searchUseCase
	walker    timelineUseCase
	writer    recordWriter
	embedder  domain.Embedder
	healthSvc healthUseCase
	newID     func() string
	obs       *observer
}

// New creates a Client, waits for the index backend and creates the memory
// index if it does not exist.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		indexName:        defaultIndexName,
		vectorDimensions: defaultDimensions,
		publicRoute:      defaultPublicRoute,
		readinessTimeout: defaultReadinessTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	index, err := createIndex(cfg)
	if err != nil {
		return nil, err
	}

	if err := index.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		index.Close()
		return nil, fmt.Errorf("memento: index not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		index.Close()
		return nil, err
	}

	c, repo := wireClient(index, cfg, obs)
	if _, err := repo.EnsureIndex(ctx); err != nil {
		index.Close()
		return nil, fmt.Errorf("memento: ensure index: %w", err)
	}
	return c, nil
}

func createIndex(cfg *clientConfig) (db.Index, error) {
	switch cfg.driver {
	case driverElasticsearch:
		refresh := ""
		if cfg.refresh {
			refresh = "wait_for"
		}
		s, err := elastic.NewStore(elastic.Config{
			Addresses: cfg.addrs,
			Username:  cfg.username,
			Password:  cfg.password,
			APIKey:    cfg.apiKey,
			Refresh:   refresh,
		})
		if err != nil {
			return nil, fmt.Errorf("memento: create elasticsearch store: %w", err)
		}
		return s, nil
	case driverMemory:
		return memindex.New(), nil
	case "":
		return nil, errors.New("memento: index backend required (use WithElasticsearch or WithMemoryIndex)")
	default:
		return nil, fmt.Errorf("memento: unknown driver %q", cfg.driver)
	}
}

func wireClient(index db.Index, cfg *clientConfig, obs *observer) (*Client, *memrepo.Repo) {
	repo := memrepo.New(index,
		memrepo.IndexOptions{Name: cfg.indexName, Dimensions: cfg.vectorDimensions, Shards: 1, Replicas: 1},
		memrepo.NewNormalizer(cfg.publicRoute))

	// Embedder: noop if unset (keyword search and timelines work, the rest return an error)
	var emb domain.Embedder = noopEmbedder{}
	if cfg.embedder != nil {
		emb = &embedderAdapter{inner: cfg.embedder}
	}
	queryEmb := emb
	if cfg.queryInstruction != "" {
		queryEmb = domain.NewInstructionEmbedder(emb, cfg.queryInstruction)
	}

	log := zap.NewNop()
	return &Client{
		index:     index,
		searchSvc: searchuc.New(repo, queryEmb, log),
		walker:    timelineuc.NewWalker(repo, log),
		writer:    repo,
		embedder:  emb,
		healthSvc: healthuc.New(index, log),
		newID:     newMemoryID,
		obs:       obs,
	}, repo
}

// Close releases all resources.
func (c *Client) Close() {
	if c.index != nil {
		c.index.Close()
	}
}

// Ping checks index connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.index.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
