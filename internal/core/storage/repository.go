package storage

import (
	"context"
	"errors"
	"time"

	v1 "github.com/wayline-lab/wayline/internal/api/v1"
)

// ErrNotFound is returned when no itinerary exists under the given name.
var ErrNotFound = errors.New("itinerary not found")

// Record is one stored itinerary document.
type Record struct {
	Name      string
	Document  v1.Document
	UpdatedAt time.Time
}

// ItineraryStore persists itinerary documents in exactly their wire shape.
// The engine never depends on it; it is the data-provider collaborator.
type ItineraryStore interface {
	// SaveItinerary inserts or replaces the document stored under name.
	SaveItinerary(ctx context.Context, name string, doc *v1.Document) error

	// LoadItinerary fetches the document stored under name.
	// Returns ErrNotFound when absent.
	LoadItinerary(ctx context.Context, name string) (*Record, error)

	// ListItineraries returns all stored names, sorted.
	ListItineraries(ctx context.Context) ([]string, error)
}
