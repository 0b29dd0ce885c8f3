// Package ingest turns an uploaded image into an indexed memory.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/memento/internal/domain"
	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	"github.com/kailas-cloud/memento/internal/domain/upload"
	"github.com/kailas-cloud/memento/internal/logger"
	"github.com/kailas-cloud/memento/internal/metrics"
)

// Ingestion stages, used as metric labels.
const (
	StageStore    = "store"
	StageCaption  = "caption"
	StageOCR      = "ocr"
	StageGeocode  = "geocode"
	StageEmbed    = "embed"
	StageIndex    = "index"
	maxFileSuffix = 10000
	saveAttempts  = 5
)

// Deps are the collaborators of the ingestion pipeline. Geocoder may be nil.
type Deps struct {
	Storage   Storage
	Captioner Captioner
	OCR       TextExtractor
	Geocoder  Geocoder
	Embedder  Embedder
	Repo      Repository
}

// Service orchestrates ingestion.
type Service struct {
	deps   Deps
	logger *zap.Logger
	newID  func() string
}

// New creates an ingestion service.
func New(deps Deps, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{deps: deps, logger: logger, newID: uuid.NewString}
}

type enrichment struct {
	description string
	ocrText     string
	address     dommem.Address
}

// Ingest stores the image, enriches it and indexes the resulting record.
// Caption, OCR and reverse geocoding run concurrently; a geocoding failure
// leaves the record without an address. Any other failure removes the
// stored image and is returned.
func (s *Service) Ingest(ctx context.Context, up upload.Upload) (id string, err error) {
	log := logger.FromContext(ctx, s.logger)
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.IngestTotal.WithLabelValues(status).Inc()
	}()

	var path, name string
	if err = s.stage(StageStore, func() error {
		path, name, err = s.save(ctx, up)
		return err
	}); err != nil {
		return "", fmt.Errorf("%w: save image: %w", domain.ErrStorage, err)
	}
	defer func() {
		if err == nil {
			return
		}
		// Removal must run even when ctx is done.
		if rmErr := s.deps.Storage.Remove(context.WithoutCancel(ctx), path); rmErr != nil {
			log.Error("remove image after failed ingestion", zap.String("path", path), zap.Error(rmErr))
		}
	}()

	enr, err := s.enrich(ctx, up)
	if err != nil {
		log.Warn("ingestion enrichment failed", zap.String("file", name), zap.Error(err))
		return "", err
	}

	rec, err := s.build(ctx, s.newID(), path, up, enr)
	if err != nil {
		log.Warn("ingestion embedding failed", zap.String("file", name), zap.Error(err))
		return "", err
	}

	if err = s.stage(StageIndex, func() error { return s.deps.Repo.Upsert(ctx, &rec) }); err != nil {
		log.Error("index memory", zap.String("id", rec.ID()), zap.Error(err))
		return "", fmt.Errorf("index memory: %w", err)
	}

	log.Info("memory ingested",
		zap.String("id", rec.ID()),
		zap.String("file", name),
		zap.Bool("has_ocr", rec.HasOCR()),
		zap.Bool("has_location", rec.Location() != nil),
		zap.Bool("has_address", !rec.Address().IsZero()),
	)
	return rec.ID(), nil
}

// save stores the image under a fresh name, drawing another suffix while
// the name is taken.
func (s *Service) save(ctx context.Context, up upload.Upload) (path, name string, err error) {
	for range saveAttempts {
		name = upload.FileName(up.Timestamp(), rand.IntN(maxFileSuffix+1))
		path, err = s.deps.Storage.Save(ctx, name, up.Image())
		if !errors.Is(err, os.ErrExist) {
			return path, name, err
		}
	}
	return "", "", err
}

func (s *Service) enrich(ctx context.Context, up upload.Upload) (enrichment, error) {
	var enr enrichment
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.stage(StageCaption, func() error {
			desc, err := s.deps.Captioner.Describe(gctx, up.Image())
			if err != nil {
				return providerError(domain.ErrCaptionProviderError, "caption", err)
			}
			if strings.TrimSpace(desc) == "" {
				return fmt.Errorf("%w: empty description", domain.ErrCaptionProviderError)
			}
			enr.description = strings.TrimSpace(desc)
			return nil
		})
	})

	g.Go(func() error {
		return s.stage(StageOCR, func() error {
			text, err := s.deps.OCR.ExtractText(gctx, up.Image())
			if err != nil {
				return providerError(domain.ErrCaptionProviderError, "ocr", err)
			}
			enr.ocrText = strings.TrimSpace(text)
			return nil
		})
	})

	if loc := up.Location(); loc != nil && s.deps.Geocoder != nil {
		g.Go(func() error {
			_ = s.stage(StageGeocode, func() error {
				addr, err := s.deps.Geocoder.Reverse(gctx, *loc)
				if err != nil {
					metrics.IngestDegradedTotal.WithLabelValues(StageGeocode).Inc()
					logger.FromContext(ctx, s.logger).Warn("reverse geocoding failed, continuing without address",
						zap.Float64("lat", loc.Lat), zap.Float64("lon", loc.Lon), zap.Error(err))
					return err
				}
				enr.address = addr
				return nil
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return enrichment{}, err
	}
	return enr, nil
}

func (s *Service) build(
	ctx context.Context, id, path string, up upload.Upload, enr enrichment,
) (dommem.Record, error) {
	var descVec, ocrVec []float32
	err := s.stage(StageEmbed, func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			v, err := s.embed(gctx, "description", enr.description)
			descVec = v
			return err
		})
		if enr.ocrText != "" {
			g.Go(func() error {
				v, err := s.embed(gctx, "ocr text", enr.ocrText)
				ocrVec = v
				return err
			})
		}
		return g.Wait()
	})
	if err != nil {
		return dommem.Record{}, err
	}

	rec, err := dommem.New(id, path, enr.description, descVec, up.Timestamp())
	if err != nil {
		return dommem.Record{}, fmt.Errorf("build memory: %w", err)
	}
	if rec, err = rec.WithOCR(enr.ocrText, ocrVec); err != nil {
		return dommem.Record{}, fmt.Errorf("build memory: %w", err)
	}
	if loc := up.Location(); loc != nil {
		if rec, err = rec.WithLocation(*loc); err != nil {
			return dommem.Record{}, fmt.Errorf("build memory: %w", err)
		}
	}
	return rec.WithAddress(enr.address).WithTags(up.Tags()...).WithMetadata(up.Metadata()), nil
}

func (s *Service) embed(ctx context.Context, what, text string) ([]float32, error) {
	res, err := s.deps.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", what, err)
	}
	if len(res.Embedding) == 0 {
		return nil, fmt.Errorf("embed %s: %w: empty embedding", what, domain.ErrEmbeddingProviderError)
	}
	return res.Embedding, nil
}

func (s *Service) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.IngestStageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return err
}

// providerError tags err with sentinel unless it already carries a domain error.
func providerError(sentinel error, what string, err error) error {
	if errors.Is(err, sentinel) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%s: %w: %w", what, sentinel, err)
}
