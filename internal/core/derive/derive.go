// Package derive computes the gap-free partition of time implied by a
// sparse itinerary: stays, travel segments, undefined gaps, and the fade
// windows at the boundaries of the known range. Derive is a pure function of
// the validated event list; caching and invalidation live in the session
// layer.
package derive

import (
	"time"

	"github.com/wayline-lab/wayline/internal/core/itinerary"
)

// Stay is a confirmed-or-estimated occupancy interval at one location.
type Stay struct {
	EventID   string              `json:"event_id"`
	Location  string              `json:"location"`
	Start     time.Time           `json:"start"`
	End       time.Time           `json:"end"`
	Estimated itinerary.Estimated `json:"estimated"`
}

// TravelSegment is the transit span leading up to an arrival. It exists
// only for events with at least one leg; End always equals the arrival.
type TravelSegment struct {
	SourceEventID string          `json:"source_event_id"`
	Location      string          `json:"location"` // destination
	Start         time.Time       `json:"start"`
	End           time.Time       `json:"end"`
	Legs          []itinerary.Leg `json:"legs"`
}

// Gap is an undefined period strictly between two known events.
type Gap struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FadeZone is a rendering-only gradient window bridging undefined and
// known-location coloring. It does not reclassify time, except that time
// inside a fade zone is never reported as undefined.
type FadeZone struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Location string    `json:"location"` // color anchor
	// In is true for the fade-in preceding the first known moment,
	// false for the fade-out following the last confirmed departure.
	In bool `json:"in"`
}

// Derivation is the full computed partition. Stays, Travel and Gaps tile
// the defined range without double coverage; the fade zones overlay its
// boundaries.
type Derivation struct {
	Stays   []Stay          `json:"stays"`
	Travel  []TravelSegment `json:"travel"`
	Gaps    []Gap           `json:"gaps"`
	FadeIn  *FadeZone       `json:"fade_in,omitempty"`
	FadeOut *FadeZone       `json:"fade_out,omitempty"`
}

// Derive computes the partition for a validated itinerary.
func Derive(it *itinerary.Itinerary) Derivation {
	var d Derivation
	if it == nil || len(it.Events) == 0 {
		return d
	}

	cal := it.Calendar

	for _, ev := range it.Events {
		if len(ev.Legs) > 0 {
			d.Travel = append(d.Travel, TravelSegment{
				SourceEventID: ev.ID,
				Location:      ev.Location,
				Start:         ev.TravelStart(),
				End:           ev.Arrive,
				Legs:          ev.Legs,
			})
		}

		start := ev.Arrive
		end := ev.EffectiveEnd(cal)
		if end.After(start) {
			est := ev.Estimated
			if !ev.HasDepart {
				est.Depart = true
			}
			d.Stays = append(d.Stays, Stay{
				EventID:   ev.ID,
				Location:  ev.Location,
				Start:     start,
				End:       end,
				Estimated: est,
			})
		}
	}

	for i := 0; i+1 < len(it.Events); i++ {
		cur, next := it.Events[i], it.Events[i+1]
		gapStart := cur.EffectiveEnd(cal)
		if gapStart.Before(cur.Arrive) {
			// Inconsistent depart-before-arrive input: the stay was
			// suppressed, the undefined period begins at the arrival.
			gapStart = cur.Arrive
		}
		gapEnd := next.TravelStart()
		if gapEnd.After(gapStart) {
			d.Gaps = append(d.Gaps, Gap{Start: gapStart, End: gapEnd})
		}
	}

	first := it.Events[0]
	fadeInEnd := first.TravelStart()
	d.FadeIn = &FadeZone{
		Start:    fadeInEnd.Add(-it.FadeHours),
		End:      fadeInEnd,
		Location: first.Location,
		In:       true,
	}

	// A fade-out exists only when the final departure is a confirmed fact.
	// With a missing or estimated depart the undefined region begins
	// immediately after the stay ends.
	last := it.Events[len(it.Events)-1]
	if last.HasDepart && !last.Estimated.Depart {
		d.FadeOut = &FadeZone{
			Start:    last.Depart,
			End:      last.Depart.Add(it.FadeHours),
			Location: last.Location,
			In:       false,
		}
	}

	return d
}

// contains reports whether t falls inside the half-open interval [start, end).
func contains(start, end, t time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// IsUndefined classifies a timestamp: false inside a stay, a travel segment
// or a fade zone; true everywhere else, including inside gaps and the
// open-ended regions beyond the fades.
func (d Derivation) IsUndefined(t time.Time) bool {
	for _, s := range d.Stays {
		if contains(s.Start, s.End, t) {
			return false
		}
	}
	for _, ts := range d.Travel {
		if contains(ts.Start, ts.End, t) {
			return false
		}
	}
	if d.FadeIn != nil && contains(d.FadeIn.Start, d.FadeIn.End, t) {
		return false
	}
	if d.FadeOut != nil && contains(d.FadeOut.Start, d.FadeOut.End, t) {
		return false
	}
	return true
}
