package ingest

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/kailas-cloud/memento/internal/domain"
	"github.com/kailas-cloud/memento/internal/domain/geo"
)

func TestIngest_Success(t *testing.T) {
	f := newFixture(t)
	up := testUpload(t, &geo.Point{Lat: 37.33, Lon: -122.03}).WithTags("bike")

	id, err := f.svc.Ingest(context.Background(), up)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "mem-1" {
		t.Errorf("expected id mem-1, got %q", id)
	}
	if len(f.repo.recs) != 1 {
		t.Fatalf("expected one indexed record, got %d", len(f.repo.recs))
	}
	rec := f.repo.recs[0]
	if rec.Description() != "A red bicycle leaning on a wall" {
		t.Errorf("unexpected description %q", rec.Description())
	}
	if rec.OCRText() != "PARKING ONLY" || len(rec.OCRVector()) == 0 {
		t.Errorf("OCR text must be trimmed and embedded, got %q", rec.OCRText())
	}
	if rec.Address().City != "Cupertino" {
		t.Errorf("expected geocoded address, got %+v", rec.Address())
	}
	if rec.Location() == nil || rec.Location().Lat != 37.33 {
		t.Errorf("unexpected location %+v", rec.Location())
	}
	if !rec.Timestamp().Equal(captureTime) {
		t.Errorf("unexpected timestamp %s", rec.Timestamp())
	}
	if len(rec.Tags()) != 1 || rec.Tags()[0] != "bike" {
		t.Errorf("unexpected tags %v", rec.Tags())
	}
	if !strings.HasPrefix(rec.ImagePath(), "/data/image_2024-07-04_18-30-00-") {
		t.Errorf("unexpected image path %q", rec.ImagePath())
	}
	if len(f.embedder.texts) != 2 {
		t.Errorf("expected description and OCR embedded, got %v", f.embedder.texts)
	}
	if len(f.storage.removed) != 0 {
		t.Error("image must be kept on success")
	}
}

func TestIngest_BlankOCRNotEmbedded(t *testing.T) {
	f := newFixture(t)
	f.ocr.text = " \n "

	if _, err := f.svc.Ingest(context.Background(), testUpload(t, nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := f.repo.recs[0]
	if rec.HasOCR() || rec.OCRVector() != nil {
		t.Error("blank OCR must leave the record without OCR fields")
	}
	if len(f.embedder.texts) != 1 {
		t.Errorf("expected only the description embedded, got %v", f.embedder.texts)
	}
}

func TestIngest_NoLocationSkipsGeocoding(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Ingest(context.Background(), testUpload(t, nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.geocoder.called {
		t.Error("geocoder must not be called without a location")
	}
	rec := f.repo.recs[0]
	if rec.Location() != nil {
		t.Errorf("missing location must not become a geo-point, got %+v", rec.Location())
	}
}

func TestIngest_GeocodingFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.geocoder.err = domain.ErrGeocodingProviderError

	_, err := f.svc.Ingest(context.Background(), testUpload(t, &geo.Point{Lat: 1, Lon: 2}))
	if err != nil {
		t.Fatalf("geocoding failure must not fail ingestion: %v", err)
	}
	rec := f.repo.recs[0]
	if !rec.Address().IsZero() {
		t.Errorf("expected no address, got %+v", rec.Address())
	}
	if rec.Location() == nil {
		t.Error("location must be kept when geocoding fails")
	}
}

func TestIngest_FailuresRemoveImage(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture)
		wantErr error
	}{
		{"caption", func(f *fixture) { f.caption.err = errors.New("503") }, domain.ErrCaptionProviderError},
		{"empty caption", func(f *fixture) { f.caption.text = " " }, domain.ErrCaptionProviderError},
		{"ocr", func(f *fixture) { f.ocr.err = errors.New("503") }, domain.ErrCaptionProviderError},
		{"embedding", func(f *fixture) { f.embedder.err = domain.ErrEmbeddingTimeout }, domain.ErrEmbeddingTimeout},
		{"index", func(f *fixture) { f.repo.err = domain.ErrVectorDimMismatch }, domain.ErrVectorDimMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			_, err := f.svc.Ingest(context.Background(), testUpload(t, nil))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(f.storage.saved) != 1 || len(f.storage.removed) != 1 || f.storage.removed[0] != f.storage.saved[0] {
				t.Errorf("stored image must be removed, saved=%v removed=%v", f.storage.saved, f.storage.removed)
			}
			if tt.name != "index" && len(f.repo.recs) != 0 {
				t.Error("nothing may be indexed")
			}
		})
	}
}

func TestIngest_StorageFailure(t *testing.T) {
	f := newFixture(t)
	f.storage.saveErr = errors.New("disk full")

	_, err := f.svc.Ingest(context.Background(), testUpload(t, nil))
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if len(f.storage.removed) != 0 {
		t.Error("nothing to remove when saving failed")
	}
}

func TestIngest_RetriesTakenFileName(t *testing.T) {
	f := newFixture(t)
	f.storage.taken = 2

	if _, err := f.svc.Ingest(context.Background(), testUpload(t, nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.storage.attempts) != 3 || len(f.storage.saved) != 1 {
		t.Errorf("attempts=%v saved=%v, want 3 attempts and one save", f.storage.attempts, f.storage.saved)
	}
	if len(f.repo.recs) != 1 || f.repo.recs[0].ImagePath() != f.storage.saved[0] {
		t.Errorf("record must point at the saved file, got %+v", f.repo.recs)
	}
}

func TestIngest_AllFileNamesTaken(t *testing.T) {
	f := newFixture(t)
	f.storage.taken = saveAttempts

	_, err := f.svc.Ingest(context.Background(), testUpload(t, nil))
	if !errors.Is(err, domain.ErrStorage) || !errors.Is(err, os.ErrExist) {
		t.Fatalf("expected ErrStorage wrapping ErrExist, got %v", err)
	}
	if len(f.storage.attempts) != saveAttempts || len(f.repo.recs) != 0 {
		t.Errorf("attempts=%d recs=%d", len(f.storage.attempts), len(f.repo.recs))
	}
	if len(f.storage.removed) != 0 {
		t.Error("nothing to remove when saving failed")
	}
}
