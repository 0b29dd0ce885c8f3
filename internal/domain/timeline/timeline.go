// Package timeline defines the cursor used to page memories chronologically
// around a reference timestamp without offsets.
package timeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/memento/internal/domain"
)

// Timeline limits.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Direction selects which side of the reference timestamp to walk.
type Direction string

// Direction constants.
const (
	Before Direction = "before"
	After  Direction = "after"
	// Both walks before (exclusive) and after (inclusive) and concatenates them.
	Both Direction = "both"
)

// IsValid checks if the direction is one of the supported values.
func (d Direction) IsValid() bool {
	return d == Before || d == After || d == Both
}

// Cursor is a validated timeline position.
type Cursor struct {
	reference time.Time
	direction Direction
	inclusive bool
	limit     int
}

// NewCursor validates and normalizes timeline parameters.
// limit <= 0 selects DefaultLimit; larger than MaxLimit is clamped.
func NewCursor(reference time.Time, d Direction, limit int, inclusive bool) (Cursor, error) {
	if reference.IsZero() {
		return Cursor{}, domain.NewValidationError("timestamp", "is required")
	}
	if !d.IsValid() {
		return Cursor{}, domain.NewValidationError("direction", fmt.Sprintf("invalid direction %q", d))
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Cursor{reference: reference, direction: d, inclusive: inclusive, limit: limit}, nil
}

// Reference returns the reference timestamp.
func (c Cursor) Reference() time.Time { return c.reference }

// Direction returns the walk direction.
func (c Cursor) Direction() Direction { return c.direction }

// Inclusive reports whether the reference boundary itself is included.
func (c Cursor) Inclusive() bool { return c.inclusive }

// Limit returns the per-direction result cap.
func (c Cursor) Limit() int { return c.limit }

// Toward returns a single-direction cursor sharing reference and limit.
func (c Cursor) Toward(d Direction, inclusive bool) Cursor {
	return Cursor{reference: c.reference, direction: d, inclusive: inclusive, limit: c.limit}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. A space in the offset position
// (a "+" that was URL-decoded) is restored first. Timestamps without an
// offset are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, domain.NewValidationError("timestamp", "is required")
	}
	if i := strings.LastIndexByte(s, ' '); i > 10 {
		s = s[:i] + "+" + s[i+1:]
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, domain.NewValidationError("timestamp", fmt.Sprintf("invalid ISO-8601 timestamp %q", s))
}
