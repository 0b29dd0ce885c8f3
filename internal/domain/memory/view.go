package memory

import (
	"time"

	"github.com/kailas-cloud/memento/internal/domain/geo"
)

// View is the external shape of a memory returned to callers.
// Nullable fields are pointers without omitempty so absent values encode as null.
type View struct {
	Score       *float64   `json:"score,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
	ID          string     `json:"id"`
	ImagePath   string     `json:"image_path"`
	OCRText     *string    `json:"ocr_text"`
	Description string     `json:"description"`
	Coords      *geo.Point `json:"coords"`
	Address     *string    `json:"address"`
	City        *string    `json:"city"`
	State       *string    `json:"state"`
	Zip         *string    `json:"zip"`
	Country     *string    `json:"country"`
}
