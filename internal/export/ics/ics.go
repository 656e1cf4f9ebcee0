// Package ics renders a derived itinerary as an iCalendar feed: one VEVENT
// per stay and per travel segment, so the timeline can be subscribed to
// from a regular calendar client.
package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/wayline-lab/wayline/internal/core/derive"
	"github.com/wayline-lab/wayline/internal/core/itinerary"
)

const prodID = "-//wayline//timeline//EN"

// Calendar builds the iCalendar document for a derivation.
func Calendar(it *itinerary.Itinerary, d derive.Derivation) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)

	now := time.Now().UTC()

	for _, stay := range d.Stays {
		ev := cal.AddEvent(fmt.Sprintf("stay-%s@wayline", stay.EventID))
		ev.SetCreatedTime(now)
		ev.SetDtStampTime(now)
		ev.SetStartAt(stay.Start)
		ev.SetEndAt(stay.End)

		label := stay.Location
		if loc, ok := it.Locations[stay.Location]; ok && loc.Label != "" {
			label = loc.Label
		}
		ev.SetSummary(label)
		ev.SetLocation(label)
		if stay.Estimated.Arrive || stay.Estimated.Depart {
			ev.SetDescription("Times partially estimated")
		}
	}

	for _, tr := range d.Travel {
		ev := cal.AddEvent(fmt.Sprintf("travel-%s@wayline", tr.SourceEventID))
		ev.SetCreatedTime(now)
		ev.SetDtStampTime(now)
		ev.SetStartAt(tr.Start)
		ev.SetEndAt(tr.End)

		label := tr.Location
		if loc, ok := it.Locations[tr.Location]; ok && loc.Label != "" {
			label = loc.Label
		}
		ev.SetSummary("Travel to " + label)
		ev.SetDescription(describeLegs(tr.Legs))
	}

	return cal
}

// describeLegs lists the legs of a journey, one per line.
func describeLegs(legs []itinerary.Leg) string {
	parts := make([]string, 0, len(legs))
	for _, leg := range legs {
		part := fmt.Sprintf("%s (%d min)", leg.Mode, int(leg.Duration.Minutes()))
		if leg.Note != "" {
			part += ": " + leg.Note
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "\n")
}
