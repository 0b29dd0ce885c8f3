package filter

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kailas-cloud/memento/internal/domain"
	"github.com/kailas-cloud/memento/internal/domain/geo"
)

// Filter limits.
const (
	MaxTags           = 32
	MaxMetadataTerms  = 16
	MaxRadiusMeters   = 20_037_509 // half the equatorial circumference
	MaxFilterValueLen = 256
)

var metadataKeyRegex = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]*$`)

// AddressField names an address part that can be matched exactly.
type AddressField string

// Address field constants.
const (
	City    AddressField = "city"
	State   AddressField = "state"
	Zip     AddressField = "zip"
	Country AddressField = "country"
)

// IsValid checks if the field is one of the supported address parts.
func (f AddressField) IsValid() bool {
	return f == City || f == State || f == Zip || f == Country
}

// Geo restricts results to a radius around a center point.
type Geo struct {
	center geo.Point
	radius float64
}

// NewGeo validates a geo filter. All three parameters must be given or none;
// none yields a nil filter.
func NewGeo(lat, lon, radiusMeters *float64) (*Geo, error) {
	if lat == nil && lon == nil && radiusMeters == nil {
		return nil, nil
	}
	if lat == nil || lon == nil || radiusMeters == nil {
		return nil, domain.NewValidationError("geo", "lat, long and radius must be given together")
	}
	if !geo.ValidateCoordinates(*lat, *lon) {
		return nil, domain.NewValidationError("geo", "coordinates out of range")
	}
	if *radiusMeters <= 0 || *radiusMeters > MaxRadiusMeters {
		return nil, domain.NewValidationError("radius", fmt.Sprintf("must be in (0, %d] meters", MaxRadiusMeters))
	}
	return &Geo{center: geo.Point{Lat: *lat, Lon: *lon}, radius: *radiusMeters}, nil
}

// Center returns the filter center.
func (g *Geo) Center() geo.Point { return g.center }

// RadiusMeters returns the filter radius in meters.
func (g *Geo) RadiusMeters() float64 { return g.radius }

// TimeRange is an inclusive timestamp window. Either bound may be open.
type TimeRange struct {
	start *time.Time
	end   *time.Time
}

// NewTimeRange validates a time window; both bounds nil yields a nil range.
func NewTimeRange(start, end *time.Time) (*TimeRange, error) {
	if start == nil && end == nil {
		return nil, nil
	}
	if start != nil && end != nil && start.After(*end) {
		return nil, domain.NewValidationError("start", "must not be after end")
	}
	return &TimeRange{start: start, end: end}, nil
}

// Start returns the inclusive lower bound or nil.
func (r *TimeRange) Start() *time.Time { return r.start }

// End returns the inclusive upper bound or nil.
func (r *TimeRange) End() *time.Time { return r.end }

// Term is an exact-match condition on a field.
type Term struct {
	Field string
	Value string
}

// Set is the validated collection of non-scoring constraints of a search.
type Set struct {
	geo       *Geo
	timeRange *TimeRange
	address   []Term
	tags      []string
	metadata  []Term
}

// NewSet validates and creates a filter Set. Address and metadata terms are
// ordered by field so equal inputs produce equal queries.
func NewSet(
	g *Geo, tr *TimeRange,
	address map[AddressField]string, tags []string, metadata map[string]string,
) (Set, error) {
	addr := make([]Term, 0, len(address))
	for f, v := range address {
		if !f.IsValid() {
			return Set{}, domain.NewValidationError(string(f), "unknown address field")
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if len(v) > MaxFilterValueLen {
			return Set{}, domain.NewValidationError(string(f), "value too long")
		}
		addr = append(addr, Term{Field: string(f), Value: v})
	}
	sortTerms(addr)

	if len(tags) > MaxTags {
		return Set{}, domain.NewValidationError("tags", fmt.Sprintf("too many tags (max %d)", MaxTags))
	}
	cleanTags := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			cleanTags = append(cleanTags, t)
		}
	}

	if len(metadata) > MaxMetadataTerms {
		return Set{}, domain.NewValidationError("metadata", fmt.Sprintf("too many terms (max %d)", MaxMetadataTerms))
	}
	meta := make([]Term, 0, len(metadata))
	for k, v := range metadata {
		if !metadataKeyRegex.MatchString(k) {
			return Set{}, domain.NewValidationError("metadata", fmt.Sprintf("invalid key %q", k))
		}
		meta = append(meta, Term{Field: k, Value: v})
	}
	sortTerms(meta)

	return Set{geo: g, timeRange: tr, address: addr, tags: cleanTags, metadata: meta}, nil
}

func sortTerms(ts []Term) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Field < ts[j].Field })
}

// Geo returns the geo-distance filter or nil.
func (s Set) Geo() *Geo { return s.geo }

// TimeRange returns the timestamp window or nil.
func (s Set) TimeRange() *TimeRange { return s.timeRange }

// Address returns the address exact-match terms.
func (s Set) Address() []Term { return s.address }

// Tags returns the tag membership filter.
func (s Set) Tags() []string { return s.tags }

// Metadata returns the metadata exact-match terms.
func (s Set) Metadata() []Term { return s.metadata }

// Len returns the number of constraints in the set.
func (s Set) Len() int {
	n := len(s.address) + len(s.metadata)
	if s.geo != nil {
		n++
	}
	if s.timeRange != nil {
		n++
	}
	if len(s.tags) > 0 {
		n++
	}
	return n
}

// IsEmpty reports whether the set has no constraints.
func (s Set) IsEmpty() bool { return s.Len() == 0 }
