// Package upload validates an image submitted for ingestion.
package upload

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kailas-cloud/memento/internal/domain"
	"github.com/kailas-cloud/memento/internal/domain/geo"
	"github.com/kailas-cloud/memento/internal/domain/timeline"
)

// DefaultMaxBytes bounds a decoded image.
const DefaultMaxBytes = 20 << 20

// Upload is a decoded image with its capture context.
type Upload struct {
	image     []byte
	location  *geo.Point
	timestamp time.Time
	tags      []string
	metadata  map[string]any
}

// New validates raw image bytes. A zero timestamp is replaced with now.
func New(image []byte, location *geo.Point, ts time.Time, maxBytes int) (Upload, error) {
	if len(image) == 0 {
		return Upload{}, domain.NewValidationError("image", "is required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(image) > maxBytes {
		return Upload{}, domain.NewValidationError("image", fmt.Sprintf("too large (max %d bytes)", maxBytes))
	}
	if ct := http.DetectContentType(image); !strings.HasPrefix(ct, "image/") {
		return Upload{}, domain.NewValidationError("image", fmt.Sprintf("unsupported content type %q", ct))
	}
	if location != nil && !geo.ValidateCoordinates(location.Lat, location.Lon) {
		return Upload{}, domain.NewValidationError("location", "coordinates out of range")
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return Upload{image: image, location: location, timestamp: ts}, nil
}

// Decode builds an Upload from wire fields: image as base64 or a data URL,
// location as "lat,long", timestamp as ISO-8601. Empty location and
// timestamp are optional.
func Decode(image, location, timestamp string, maxBytes int) (Upload, error) {
	data, err := DecodeImage(image)
	if err != nil {
		return Upload{}, err
	}

	var loc *geo.Point
	if strings.TrimSpace(location) != "" {
		p, err := geo.ParsePoint(location)
		if err != nil {
			return Upload{}, domain.NewValidationError("location", err.Error())
		}
		loc = &p
	}

	var ts time.Time
	if strings.TrimSpace(timestamp) != "" {
		if ts, err = timeline.ParseTimestamp(timestamp); err != nil {
			return Upload{}, err
		}
	}
	return New(data, loc, ts, maxBytes)
}

// DecodeImage strips an optional data URL prefix and decodes base64.
func DecodeImage(s string) ([]byte, error) {
	if i := strings.Index(s, "base64,"); i >= 0 {
		s = s[i+len("base64,"):]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, domain.NewValidationError("image", "is required")
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Fall back to URL-safe unpadded base64.
		if data, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "=")); err != nil {
			return nil, domain.NewValidationError("image", "invalid base64")
		}
	}
	return data, nil
}

// WithTags returns a copy with tags attached.
func (u Upload) WithTags(tags ...string) Upload {
	u.tags = append([]string(nil), tags...)
	return u
}

// WithMetadata returns a copy with free-form metadata attached.
func (u Upload) WithMetadata(m map[string]any) Upload {
	u.metadata = m
	return u
}

// Image returns the decoded image bytes.
func (u Upload) Image() []byte { return u.image }

// Reader returns a reader over the image bytes.
func (u Upload) Reader() *bytes.Reader { return bytes.NewReader(u.image) }

// Location returns the capture location or nil.
func (u Upload) Location() *geo.Point { return u.location }

// Timestamp returns the capture time.
func (u Upload) Timestamp() time.Time { return u.timestamp }

// Tags returns the attached tags.
func (u Upload) Tags() []string { return u.tags }

// Metadata returns the attached metadata.
func (u Upload) Metadata() map[string]any { return u.metadata }

// FileName names the stored image after its capture time with a
// disambiguating suffix, e.g. image_2024-07-04_18-30-00-42.jpg.
func FileName(ts time.Time, suffix int) string {
	return fmt.Sprintf("image_%s-%d.jpg", ts.Format("2006-01-02_15-04-05"), suffix)
}
