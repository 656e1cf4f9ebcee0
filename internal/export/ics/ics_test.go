package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	v1 "github.com/wayline-lab/wayline/internal/api/v1"
	"github.com/wayline-lab/wayline/internal/core/derive"
	"github.com/wayline-lab/wayline/internal/core/grid"
	"github.com/wayline-lab/wayline/internal/core/itinerary"
)

func TestCalendar_StaysAndTravel(t *testing.T) {
	depart := "2026-02-01T08:00"
	doc := &v1.Document{
		Locations: []v1.Location{{Name: "paris", Color: "#4a90d9", Label: "Paris"}},
		Events: []v1.Event{
			{ID: "e1", Location: "paris", Arrive: "2026-01-18T10:06", Depart: &depart,
				Travel: &v1.Travel{Legs: []v1.Leg{{Mode: "plane", Duration: 450, Note: "CDG"}}}},
		},
		Config: v1.Config{FadeHours: 48},
	}

	it, _, err := itinerary.Build(doc, grid.NewCalendar(time.UTC), itinerary.DefaultFadeHours)
	require.NoError(t, err)
	d := derive.Derive(it)

	serialized := Calendar(it, d).Serialize()

	require.Contains(t, serialized, "BEGIN:VCALENDAR")
	require.Contains(t, serialized, "UID:stay-e1@wayline")
	require.Contains(t, serialized, "UID:travel-e1@wayline")
	require.Contains(t, serialized, "SUMMARY:Paris")
	require.Contains(t, serialized, "SUMMARY:Travel to Paris")
	require.Contains(t, serialized, "plane (450 min)")

	// One VEVENT per stay plus one per travel segment.
	require.Equal(t, 2, strings.Count(serialized, "BEGIN:VEVENT"))
}
