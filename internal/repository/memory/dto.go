package memory

import (
	"time"

	"github.com/kailas-cloud/memento/internal/domain/geo"
	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
)

// document is the stored JSON shape of a memory record.
type document struct {
	ID                string         `json:"id"`
	ImagePath         string         `json:"image_path"`
	Description       string         `json:"description"`
	DescriptionVector []float32      `json:"description_vector"`
	OCRText           *string        `json:"ocr_text,omitempty"`
	OCRVector         []float32      `json:"ocr_text_vector,omitempty"`
	Location          *geo.Point     `json:"location,omitempty"`
	Address           *string        `json:"address,omitempty"`
	City              *string        `json:"city,omitempty"`
	State             *string        `json:"state,omitempty"`
	Zip               *string        `json:"zip,omitempty"`
	Country           *string        `json:"country,omitempty"`
	Tags              []string       `json:"tags"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	Timestamp         string         `json:"timestamp"`
}

func toDocument(rec *dommem.Record) document {
	addr := rec.Address()
	doc := document{
		ID:                rec.ID(),
		ImagePath:         rec.ImagePath(),
		Description:       rec.Description(),
		DescriptionVector: rec.DescriptionVector(),
		Location:          rec.Location(),
		Address:           optional(addr.Formatted),
		City:              optional(addr.City),
		State:             optional(addr.State),
		Zip:               optional(addr.Zip),
		Country:           optional(addr.Country),
		Tags:              rec.Tags(),
		Metadata:          rec.Metadata(),
		Timestamp:         rec.Timestamp().Format(time.RFC3339Nano),
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	if rec.HasOCR() {
		text := rec.OCRText()
		doc.OCRText = &text
		doc.OCRVector = rec.OCRVector()
	}
	return doc
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
