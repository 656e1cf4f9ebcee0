// Package v1 defines the itinerary interchange shape consumed from external
// data providers and produced by editing clients. The types here are wire
// types only; parsing into engine types happens in internal/core/itinerary.
package v1

import "fmt"

// TimeLayout is the wire format for every timestamp in a Document:
// local wall-clock, minute precision, no timezone suffix. Timestamps are
// explicitly NOT UTC; they are interpreted in the engine's configured
// location.
const TimeLayout = "2006-01-02T15:04"

// Field names that may appear in an Event's Estimated set.
const (
	FieldArrive = "arrive"
	FieldDepart = "depart"
)

// Known transport modes for travel legs. Unknown modes are accepted with a
// warning so new clients can introduce modes ahead of the engine.
const (
	ModePlane = "plane"
	ModeTrain = "train"
	ModeCar   = "car"
	ModeBus   = "bus"
	ModeFerry = "ferry"
	ModeWalk  = "walk"
	ModeBike  = "bike"
)

// KnownModes lists the transport modes the engine ships icons for.
var KnownModes = map[string]bool{
	ModePlane: true,
	ModeTrain: true,
	ModeCar:   true,
	ModeBus:   true,
	ModeFerry: true,
	ModeWalk:  true,
	ModeBike:  true,
}

// Document is the full itinerary payload: the location palette, the sparse
// event list, and rendering configuration.
type Document struct {
	Locations []Location `json:"locations" yaml:"locations"`
	Events    []Event    `json:"events" yaml:"events"`
	Config    Config     `json:"config" yaml:"config"`
}

// Config carries per-document rendering parameters.
type Config struct {
	// FadeHours is the width of the fade-in/fade-out gradient windows at
	// the boundaries of the known itinerary, in hours. Zero means "use the
	// server default".
	FadeHours float64 `json:"fadeHours" yaml:"fadeHours"`
}

// Location is a palette entry referenced by name from events.
type Location struct {
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"` // hex, e.g. "#4a90d9"
	Label string `json:"label" yaml:"label"`
}

// Event is the authoritative record of one destination visit.
type Event struct {
	// ID is the unique identifier provided by the client.
	ID string `json:"id" yaml:"id"`

	// Location references a Location by name. Must exist in the palette;
	// an unresolved reference is fatal since the event cannot be colored
	// or labeled.
	Location string `json:"location" yaml:"location"`

	// Arrive is required, TimeLayout format.
	Arrive string `json:"arrive" yaml:"arrive"`

	// Depart is nil when the departure is not yet known. The engine then
	// synthesizes end-of-day and marks the field estimated.
	Depart *string `json:"depart" yaml:"depart"`

	// Travel, when present, describes the journey leading up to Arrive.
	Travel *Travel `json:"travel,omitempty" yaml:"travel,omitempty"`

	// Estimated lists field names ("arrive", "depart") whose values are
	// placeholders rather than confirmed facts.
	Estimated []string `json:"estimated,omitempty" yaml:"estimated,omitempty"`
}

// Travel holds the ordered legs of the journey to an event's location.
type Travel struct {
	Legs []Leg `json:"legs" yaml:"legs"`
}

// Leg is one mode-of-transport segment within a travel span.
type Leg struct {
	Mode string `json:"mode" yaml:"mode"`
	// Duration is in minutes and must be positive.
	Duration int    `json:"duration" yaml:"duration"`
	Note     string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Validate checks the required envelope fields of an event. Timestamp
// syntax, location resolution and leg durations are checked by the
// itinerary validator, which produces diagnostics instead of errors.
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	if e.Location == "" {
		return fmt.Errorf("location is required")
	}
	if e.Arrive == "" {
		return fmt.Errorf("arrive is required")
	}
	return nil
}
