// Package itinerary turns the wire document into validated, sorted engine
// types and reports diagnostics for everything the data provider got wrong.
package itinerary

import (
	"fmt"
	"sort"
	"time"

	v1 "github.com/wayline-lab/wayline/internal/api/v1"
	"github.com/wayline-lab/wayline/internal/core/grid"
)

// DefaultFadeHours is used when the document does not set Config.FadeHours.
const DefaultFadeHours = 48 * time.Hour

// Location is a resolved palette entry.
type Location struct {
	Name  string
	Color string
	Label string
}

// Leg is one parsed transport leg. Duration is always positive.
type Leg struct {
	Mode     string
	Duration time.Duration
	Note     string
}

// Estimated flags which event fields are placeholders.
type Estimated struct {
	Arrive bool
	Depart bool
}

// Event is a validated destination visit, sorted into itinerary order.
type Event struct {
	ID       string
	Location string
	Arrive   time.Time

	// Depart is meaningful only when HasDepart is true.
	Depart    time.Time
	HasDepart bool

	Legs      []Leg
	Estimated Estimated
}

// TravelDuration is the sum of all leg durations.
func (e Event) TravelDuration() time.Duration {
	var total time.Duration
	for _, leg := range e.Legs {
		total += leg.Duration
	}
	return total
}

// TravelStart is where the event's journey begins: Arrive minus the total
// travel duration, or Arrive itself when the event has no legs.
func (e Event) TravelStart() time.Time {
	return e.Arrive.Add(-e.TravelDuration())
}

// EffectiveEnd is the end of the event's occupancy: the recorded departure
// when present, otherwise 23:59:59 of the arrival's local calendar day.
// Interior and terminal events are treated identically.
func (e Event) EffectiveEnd(cal grid.Calendar) time.Time {
	if e.HasDepart {
		return e.Depart
	}
	return cal.EndOfDay(e.Arrive)
}

// Itinerary is the validated model the derivation engine consumes.
type Itinerary struct {
	Locations map[string]Location
	Events    []Event // sorted ascending by Arrive
	FadeHours time.Duration
	Calendar  grid.Calendar
}

// ParseLocalTime parses a wire timestamp as local wall-clock fields in the
// given location. It deliberately rejects anything with a zone suffix.
func ParseLocalTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(v1.TimeLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q (want YYYY-MM-DDTHH:MM): %w", s, err)
	}
	return t, nil
}

// Build validates and sorts the document's events against its location
// palette. Shape errors reject the offending event but keep the rest;
// consistency problems (depart before arrive, overlapping neighbours) are
// warnings and the data is kept as-is. An event referencing an unknown
// location is fatal: Build returns an *UnknownLocationError and no
// itinerary, since such an event cannot be placed or colored.
func Build(doc *v1.Document, cal grid.Calendar, defaultFade time.Duration) (*Itinerary, []Diagnostic, error) {
	var diags []Diagnostic

	locations := make(map[string]Location, len(doc.Locations))
	for _, l := range doc.Locations {
		if l.Name == "" {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Code:     CodeBadLocation,
				Message:  "location with empty name dropped",
			})
			continue
		}
		if _, dup := locations[l.Name]; dup {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeDuplicateLocation,
				Message:  fmt.Sprintf("duplicate location %q, keeping the first definition", l.Name),
			})
			continue
		}
		locations[l.Name] = Location{Name: l.Name, Color: l.Color, Label: l.Label}
	}

	var events []Event
	var unknownIDs []string
	seen := make(map[string]bool, len(doc.Events))

	for i, raw := range doc.Events {
		ev, evDiags, ok := parseEvent(i, raw, cal.Location())
		diags = append(diags, evDiags...)
		if !ok {
			continue
		}
		if seen[ev.ID] {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Code:     CodeDuplicateID,
				EventID:  ev.ID,
				Message:  fmt.Sprintf("duplicate event id %q, event dropped", ev.ID),
			})
			continue
		}
		seen[ev.ID] = true

		if _, exists := locations[ev.Location]; !exists {
			diags = append(diags, Diagnostic{
				Severity: SeverityFatal,
				Code:     CodeUnknownLocation,
				EventID:  ev.ID,
				Message:  fmt.Sprintf("event %q references unknown location %q", ev.ID, ev.Location),
			})
			unknownIDs = append(unknownIDs, ev.ID)
			continue
		}

		events = append(events, ev)
	}

	if len(unknownIDs) > 0 {
		return nil, diags, &UnknownLocationError{EventIDs: unknownIDs}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Arrive.Before(events[j].Arrive)
	})

	diags = append(diags, consistencyDiagnostics(events, cal)...)

	fade := defaultFade
	if doc.Config.FadeHours > 0 {
		fade = time.Duration(doc.Config.FadeHours * float64(time.Hour))
	}
	if fade <= 0 {
		fade = DefaultFadeHours
	}

	return &Itinerary{
		Locations: locations,
		Events:    events,
		FadeHours: fade,
		Calendar:  cal,
	}, diags, nil
}

// parseEvent type-checks one wire event. ok is false when the event must be
// rejected; the remaining well-formed events still derive normally.
func parseEvent(index int, raw v1.Event, loc *time.Location) (Event, []Diagnostic, bool) {
	var diags []Diagnostic

	if err := raw.Validate(); err != nil {
		diags = append(diags, Diagnostic{
			Severity: SeverityError,
			Code:     CodeMissingField,
			EventID:  raw.ID,
			Message:  fmt.Sprintf("event #%d rejected: %v", index, err),
		})
		return Event{}, diags, false
	}

	arrive, err := ParseLocalTime(raw.Arrive, loc)
	if err != nil {
		diags = append(diags, Diagnostic{
			Severity: SeverityError,
			Code:     CodeBadTimestamp,
			EventID:  raw.ID,
			Message:  fmt.Sprintf("event %q rejected: arrive: %v", raw.ID, err),
		})
		return Event{}, diags, false
	}

	ev := Event{ID: raw.ID, Location: raw.Location, Arrive: arrive}

	if raw.Depart != nil {
		depart, err := ParseLocalTime(*raw.Depart, loc)
		if err != nil {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Code:     CodeBadTimestamp,
				EventID:  raw.ID,
				Message:  fmt.Sprintf("event %q rejected: depart: %v", raw.ID, err),
			})
			return Event{}, diags, false
		}
		ev.Depart = depart
		ev.HasDepart = true
	}

	for _, field := range raw.Estimated {
		switch field {
		case v1.FieldArrive:
			ev.Estimated.Arrive = true
		case v1.FieldDepart:
			ev.Estimated.Depart = true
		default:
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeUnknownEstimatedField,
				EventID:  raw.ID,
				Message:  fmt.Sprintf("event %q: unknown estimated field %q ignored", raw.ID, field),
			})
		}
	}
	// A missing departure is by definition an estimate.
	if !ev.HasDepart {
		ev.Estimated.Depart = true
	}

	if raw.Travel != nil {
		for li, leg := range raw.Travel.Legs {
			if leg.Duration <= 0 {
				diags = append(diags, Diagnostic{
					Severity: SeverityError,
					Code:     CodeBadLegDuration,
					EventID:  raw.ID,
					Message:  fmt.Sprintf("event %q rejected: leg #%d has non-positive duration %d", raw.ID, li, leg.Duration),
				})
				return Event{}, diags, false
			}
			if leg.Mode != "" && !v1.KnownModes[leg.Mode] {
				diags = append(diags, Diagnostic{
					Severity: SeverityWarning,
					Code:     CodeUnknownMode,
					EventID:  raw.ID,
					Message:  fmt.Sprintf("event %q: unknown transport mode %q", raw.ID, leg.Mode),
				})
			}
			ev.Legs = append(ev.Legs, Leg{
				Mode:     leg.Mode,
				Duration: time.Duration(leg.Duration) * time.Minute,
				Note:     leg.Note,
			})
		}
	}

	return ev, diags, true
}

// consistencyDiagnostics runs the post-sort checks: depart-before-arrive and
// overlapping adjacent effective intervals. Both warn; the data is kept.
func consistencyDiagnostics(events []Event, cal grid.Calendar) []Diagnostic {
	var diags []Diagnostic

	for _, ev := range events {
		if ev.HasDepart && ev.Depart.Before(ev.Arrive) {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeDepartBeforeArrive,
				EventID:  ev.ID,
				Message:  fmt.Sprintf("event %q departs before it arrives", ev.ID),
			})
		}
	}

	for i := 0; i+1 < len(events); i++ {
		cur, next := events[i], events[i+1]
		if next.TravelStart().Before(cur.EffectiveEnd(cal)) {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeOverlap,
				EventID:  next.ID,
				Message: fmt.Sprintf("event %q (travel from %s) overlaps event %q (until %s)",
					next.ID, next.TravelStart().Format(v1.TimeLayout),
					cur.ID, cur.EffectiveEnd(cal).Format(v1.TimeLayout)),
			})
		}
	}

	return diags
}
