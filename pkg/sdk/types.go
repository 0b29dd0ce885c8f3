package memento

import (
	"time"

	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
)

// SearchMode controls the search algorithm.
type SearchMode string

// Search mode constants.
const (
	ModeHybrid   SearchMode = "hybrid"
	ModeSemantic SearchMode = "semantic"
	ModeKeyword  SearchMode = "keyword"
)

// Direction selects which side of a reference time a timeline walks.
type Direction string

// Direction constants.
const (
	Before Direction = "before"
	After  Direction = "after"
	Both   Direction = "both"
)

// GeoPoint is a WGS84 coordinate in degrees.
type GeoPoint struct {
	Lat float64
	Lon float64
}

// GeoFilter restricts a search to a radius around a point.
type GeoFilter struct {
	Lat          float64
	Lon          float64
	RadiusMeters float64
}

// Query describes a memory search. Every field is optional; an empty Text
// matches every memory that passes the filters.
type Query struct {
	Text  string
	Mode  SearchMode // default hybrid
	Near  *GeoFilter
	Start *time.Time
	End   *time.Time

	City    string
	State   string
	Zip     string
	Country string

	Tags     []string
	Metadata map[string]string
	Limit    int // default 10, max 100
}

// Address holds reverse-geocoded address parts.
type Address struct {
	Formatted string
	City      string
	State     string
	Zip       string
	Country   string
}

// Memory is a returned photo memory. Empty strings mean the field is absent.
type Memory struct {
	ID          string
	Score       *float64 // set for text searches only
	Timestamp   time.Time
	ImagePath   string
	Description string
	OCRText     string
	Location    *GeoPoint
	Address     Address
}

// MemoryInput is a pre-captioned memory for Put.
type MemoryInput struct {
	ID          string // generated when empty
	ImagePath   string
	Description string
	OCRText     string
	Timestamp   time.Time
	Location    *GeoPoint
	Address     Address
	Tags        []string
	Metadata    map[string]any
}

func memoryFromView(v *dommem.View) Memory {
	m := Memory{
		ID:          v.ID,
		Score:       v.Score,
		Timestamp:   v.Timestamp,
		ImagePath:   v.ImagePath,
		Description: v.Description,
		OCRText:     str(v.OCRText),
		Address: Address{
			Formatted: str(v.Address),
			City:      str(v.City),
			State:     str(v.State),
			Zip:       str(v.Zip),
			Country:   str(v.Country),
		},
	}
	if v.Coords != nil {
		m.Location = &GeoPoint{Lat: v.Coords.Lat, Lon: v.Coords.Lon}
	}
	return m
}

func memoriesFromViews(views []dommem.View) []Memory {
	out := make([]Memory, len(views))
	for i := range views {
		out[i] = memoryFromView(&views[i])
	}
	return out
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
