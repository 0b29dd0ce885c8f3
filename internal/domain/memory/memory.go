package memory

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kailas-cloud/memento/internal/domain"
	"github.com/kailas-cloud/memento/internal/domain/geo"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxIDLength bounds record identifiers.
const MaxIDLength = 256

// Address holds reverse-geocoded address parts. Every part is optional.
type Address struct {
	Formatted string
	City      string
	State     string
	Zip       string
	Country   string
}

// IsZero reports whether no address part is set.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Record is an indexed photo memory (immutable value object).
// Description and its embedding are always present; OCR text and its
// embedding are present together or not at all.
type Record struct {
	id                string
	imagePath         string
	description       string
	descriptionVector []float32
	ocrText           string
	ocrVector         []float32
	timestamp         time.Time
	location          *geo.Point
	address           Address
	tags              []string
	metadata          map[string]any
}

// New validates and creates a Record with the mandatory fields.
func New(
	id, imagePath, description string, descriptionVector []float32, timestamp time.Time,
) (Record, error) {
	if id == "" {
		return Record{}, domain.NewValidationError("id", "is required")
	}
	if len(id) > MaxIDLength {
		return Record{}, domain.NewValidationError("id", fmt.Sprintf("too long (max %d)", MaxIDLength))
	}
	if !idRegex.MatchString(id) {
		return Record{}, domain.NewValidationError("id", "must be alphanumeric with underscores and hyphens")
	}
	if imagePath == "" {
		return Record{}, domain.NewValidationError("image_path", "is required")
	}
	if strings.TrimSpace(description) == "" {
		return Record{}, domain.NewValidationError("description", "is required")
	}
	if len(descriptionVector) == 0 {
		return Record{}, domain.NewValidationError("description_vector", "is required")
	}
	if timestamp.IsZero() {
		return Record{}, domain.NewValidationError("timestamp", "is required")
	}
	return Record{
		id:                id,
		imagePath:         imagePath,
		description:       description,
		descriptionVector: descriptionVector,
		timestamp:         timestamp,
	}, nil
}

// WithOCR attaches OCR text and its embedding. Blank text leaves the record
// without OCR fields.
func (r Record) WithOCR(text string, vector []float32) (Record, error) {
	if strings.TrimSpace(text) == "" {
		r.ocrText = ""
		r.ocrVector = nil
		return r, nil
	}
	if len(vector) == 0 {
		return Record{}, domain.NewValidationError("ocr_text_vector", "is required when ocr_text is set")
	}
	r.ocrText = text
	r.ocrVector = vector
	return r, nil
}

// WithLocation attaches a geo-point.
func (r Record) WithLocation(p geo.Point) (Record, error) {
	if !geo.ValidateCoordinates(p.Lat, p.Lon) {
		return Record{}, domain.NewValidationError("location", "coordinates out of range")
	}
	r.location = &p
	return r, nil
}

// WithAddress attaches address parts.
func (r Record) WithAddress(a Address) Record {
	r.address = a
	return r
}

// WithTags attaches free-form tags, dropping blanks.
func (r Record) WithTags(tags ...string) Record {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	r.tags = out
	return r
}

// WithMetadata attaches free-form metadata.
func (r Record) WithMetadata(m map[string]any) Record {
	if len(m) == 0 {
		r.metadata = nil
		return r
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	r.metadata = cp
	return r
}

// CheckDimensions verifies every embedding matches the index dimension.
func (r *Record) CheckDimensions(dim int) error {
	if dim <= 0 {
		return nil
	}
	if len(r.descriptionVector) != dim {
		return fmt.Errorf("%w: description vector has %d dims, index expects %d",
			domain.ErrVectorDimMismatch, len(r.descriptionVector), dim)
	}
	if r.HasOCR() && len(r.ocrVector) != dim {
		return fmt.Errorf("%w: ocr vector has %d dims, index expects %d",
			domain.ErrVectorDimMismatch, len(r.ocrVector), dim)
	}
	return nil
}

// ID returns the record identifier.
func (r *Record) ID() string { return r.id }

// ImagePath returns the stored image path.
func (r *Record) ImagePath() string { return r.imagePath }

// Description returns the generated image description.
func (r *Record) Description() string { return r.description }

// DescriptionVector returns the description embedding.
func (r *Record) DescriptionVector() []float32 { return r.descriptionVector }

// OCRText returns the extracted text, empty when none.
func (r *Record) OCRText() string { return r.ocrText }

// OCRVector returns the OCR embedding, nil when there is no OCR text.
func (r *Record) OCRVector() []float32 { return r.ocrVector }

// HasOCR reports whether OCR fields are present.
func (r *Record) HasOCR() bool { return r.ocrText != "" }

// Timestamp returns when the photo was taken.
func (r *Record) Timestamp() time.Time { return r.timestamp }

// Location returns the geo-point or nil.
func (r *Record) Location() *geo.Point { return r.location }

// Address returns the address parts.
func (r *Record) Address() Address { return r.address }

// Tags returns the tags.
func (r *Record) Tags() []string { return r.tags }

// Metadata returns the free-form metadata.
func (r *Record) Metadata() map[string]any { return r.metadata }
