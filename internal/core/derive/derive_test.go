package derive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	v1 "github.com/wayline-lab/wayline/internal/api/v1"
	"github.com/wayline-lab/wayline/internal/core/grid"
	"github.com/wayline-lab/wayline/internal/core/itinerary"
)

func strptr(s string) *string { return &s }

func buildItinerary(t *testing.T, doc *v1.Document) *itinerary.Itinerary {
	t.Helper()
	it, _, err := itinerary.Build(doc, grid.NewCalendar(time.UTC), itinerary.DefaultFadeHours)
	require.NoError(t, err)
	return it
}

func parisDoc() *v1.Document {
	return &v1.Document{
		Locations: []v1.Location{
			{Name: "paris", Color: "#4a90d9", Label: "Paris"},
			{Name: "rome", Color: "#d94a4a", Label: "Rome"},
		},
		Config: v1.Config{FadeHours: 48},
	}
}

func TestDerive_EmptyItinerary(t *testing.T) {
	d := Derive(buildItinerary(t, parisDoc()))
	require.Empty(t, d.Stays)
	require.Empty(t, d.Travel)
	require.Empty(t, d.Gaps)
	require.Nil(t, d.FadeIn)
	require.Nil(t, d.FadeOut)
	require.True(t, d.IsUndefined(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDerive_TravelBackwardPlacement(t *testing.T) {
	doc := parisDoc()
	doc.Events = []v1.Event{
		{ID: "e1", Location: "paris", Arrive: "2026-01-18T10:06", Depart: strptr("2026-02-01T08:00"),
			Travel: &v1.Travel{Legs: []v1.Leg{
				{Mode: "car", Duration: 45},
				{Mode: "plane", Duration: 450},
				{Mode: "train", Duration: 60},
				{Mode: "walk", Duration: 20},
			}}},
	}

	d := Derive(buildItinerary(t, doc))
	require.Len(t, d.Travel, 1)

	arrive := time.Date(2026, 1, 18, 10, 6, 0, 0, time.UTC)
	require.Equal(t, arrive, d.Travel[0].End)
	require.Equal(t, arrive.Add(-575*time.Minute), d.Travel[0].Start)
	require.Len(t, d.Travel[0].Legs, 4)
}

func TestDerive_MissingDepartSynthesis(t *testing.T) {
	doc := parisDoc()
	doc.Events = []v1.Event{
		{ID: "e1", Location: "paris", Arrive: "2026-01-18T14:30", Depart: nil},
	}

	d := Derive(buildItinerary(t, doc))
	require.Len(t, d.Stays, 1)

	stay := d.Stays[0]
	require.Equal(t, time.Date(2026, 1, 18, 14, 30, 0, 0, time.UTC), stay.Start)
	require.Equal(t, time.Date(2026, 1, 18, 23, 59, 59, 0, time.UTC), stay.End)
	require.True(t, stay.Estimated.Depart)

	// No confirmed departure means no fade-out: undefined begins right
	// after the synthesized stay end.
	require.Nil(t, d.FadeOut)
	require.True(t, d.IsUndefined(stay.End))
	require.False(t, d.IsUndefined(stay.End.Add(-time.Second)))
}

func TestDerive_GapBetweenEvents(t *testing.T) {
	doc := parisDoc()
	doc.Events = []v1.Event{
		{ID: "e1", Location: "paris", Arrive: "2026-01-18T10:00", Depart: strptr("2026-01-20T08:00")},
		{ID: "e2", Location: "rome", Arrive: "2026-01-25T12:00", Depart: strptr("2026-01-28T08:00"),
			Travel: &v1.Travel{Legs: []v1.Leg{{Mode: "plane", Duration: 120}}}},
	}

	d := Derive(buildItinerary(t, doc))
	require.Len(t, d.Gaps, 1)

	gap := d.Gaps[0]
	require.Equal(t, time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC), gap.Start)
	require.Equal(t, time.Date(2026, 1, 25, 10, 0, 0, 0, time.UTC), gap.End) // arrive - 120min

	require.True(t, d.IsUndefined(gap.Start.Add(time.Hour)))
	require.False(t, d.IsUndefined(gap.End)) // travel starts here
}

func TestDerive_NoGapWhenContiguous(t *testing.T) {
	doc := parisDoc()
	doc.Events = []v1.Event{
		{ID: "e1", Location: "paris", Arrive: "2026-01-18T10:00", Depart: strptr("2026-01-20T08:00")},
		{ID: "e2", Location: "rome", Arrive: "2026-01-20T10:00",
			Travel: &v1.Travel{Legs: []v1.Leg{{Mode: "train", Duration: 120}}}},
	}

	d := Derive(buildItinerary(t, doc))
	require.Empty(t, d.Gaps)
}

func TestDerive_FadeZoneExclusivity(t *testing.T) {
	// Single event, no travel, confirmed depart, fadeHours = 48.
	doc := parisDoc()
	doc.Events = []v1.Event{
		{ID: "e1", Location: "paris", Arrive: "2026-01-18T10:06", Depart: strptr("2026-02-01T08:00")},
	}

	d := Derive(buildItinerary(t, doc))
	arrive := time.Date(2026, 1, 18, 10, 6, 0, 0, time.UTC)
	depart := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	require.NotNil(t, d.FadeIn)
	require.Equal(t, arrive.Add(-48*time.Hour), d.FadeIn.Start)
	require.Equal(t, arrive, d.FadeIn.End)

	require.NotNil(t, d.FadeOut)
	require.Equal(t, depart, d.FadeOut.Start)
	require.Equal(t, depart.Add(48*time.Hour), d.FadeOut.End)

	// Every instant inside either fade window is defined time.
	for _, t0 := range []time.Time{
		arrive.Add(-48 * time.Hour),
		arrive.Add(-time.Minute),
		depart,
		depart.Add(48*time.Hour - time.Second),
	} {
		require.False(t, d.IsUndefined(t0), "expected defined at %s", t0)
	}

	// Just outside: undefined.
	require.True(t, d.IsUndefined(arrive.Add(-48*time.Hour-time.Second)))
	require.True(t, d.IsUndefined(depart.Add(48*time.Hour)))
}

func TestDerive_EstimatedDepartSuppressesFadeOut(t *testing.T) {
	doc := parisDoc()
	doc.Events = []v1.Event{
		{ID: "e1", Location: "paris", Arrive: "2026-01-18T10:06", Depart: strptr("2026-02-01T08:00"),
			Estimated: []string{"depart"}},
	}

	d := Derive(buildItinerary(t, doc))
	require.Nil(t, d.FadeOut)

	depart := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	require.True(t, d.IsUndefined(depart))
}

func TestDerive_FadeInEndsAtTravelStart(t *testing.T) {
	doc := parisDoc()
	doc.Events = []v1.Event{
		{ID: "e1", Location: "paris", Arrive: "2026-01-18T10:06", Depart: strptr("2026-02-01T08:00"),
			Travel: &v1.Travel{Legs: []v1.Leg{{Mode: "plane", Duration: 450}}}},
	}

	d := Derive(buildItinerary(t, doc))
	travelStart := time.Date(2026, 1, 18, 10, 6, 0, 0, time.UTC).Add(-450 * time.Minute)

	require.NotNil(t, d.FadeIn)
	require.Equal(t, travelStart, d.FadeIn.End)
	require.Equal(t, travelStart.Add(-48*time.Hour), d.FadeIn.Start)
}

func TestDerive_SuppressedStayOnInvertedDepart(t *testing.T) {
	doc := parisDoc()
	doc.Events = []v1.Event{
		{ID: "e1", Location: "paris", Arrive: "2026-01-18T10:06", Depart: strptr("2026-01-17T08:00")},
	}

	d := Derive(buildItinerary(t, doc))
	require.Empty(t, d.Stays)
}

func TestDerive_PartitionCompleteness(t *testing.T) {
	doc := parisDoc()
	doc.Events = []v1.Event{
		{ID: "e1", Location: "paris", Arrive: "2026-01-18T10:06", Depart: strptr("2026-02-01T08:00"),
			Travel: &v1.Travel{Legs: []v1.Leg{{Mode: "plane", Duration: 450}}}},
		{ID: "e2", Location: "rome", Arrive: "2026-02-10T09:00", Depart: nil,
			Travel: &v1.Travel{Legs: []v1.Leg{{Mode: "train", Duration: 180}}}},
	}

	d := Derive(buildItinerary(t, doc))

	// Sweep the whole affected range: no instant may be inside a stay and
	// a travel segment at once, and the piecewise classification must
	// agree with IsUndefined.
	from := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)

	for ts := from; ts.Before(to); ts = ts.Add(37 * time.Minute) {
		inStay := false
		for _, s := range d.Stays {
			if !ts.Before(s.Start) && ts.Before(s.End) {
				inStay = true
			}
		}
		inTravel := false
		for _, tr := range d.Travel {
			if !ts.Before(tr.Start) && ts.Before(tr.End) {
				inTravel = true
			}
		}
		require.False(t, inStay && inTravel, "double coverage at %s", ts)

		inFade := false
		for _, f := range []*FadeZone{d.FadeIn, d.FadeOut} {
			if f != nil && !ts.Before(f.Start) && ts.Before(f.End) {
				inFade = true
			}
		}

		accounted := inStay || inTravel || inFade
		require.Equal(t, !accounted, d.IsUndefined(ts), "classification disagrees at %s", ts)
	}
}

func TestDerive_EndToEndScenario(t *testing.T) {
	doc := parisDoc()
	doc.Events = []v1.Event{
		{ID: "e1", Location: "paris", Arrive: "2026-01-18T10:06", Depart: strptr("2026-02-01T08:00"),
			Travel: &v1.Travel{Legs: []v1.Leg{{Mode: "plane", Duration: 450, Note: "x"}}}},
	}

	d := Derive(buildItinerary(t, doc))

	arrive := time.Date(2026, 1, 18, 10, 6, 0, 0, time.UTC)
	depart := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	require.Len(t, d.Travel, 1)
	require.Equal(t, arrive, d.Travel[0].End)
	require.Equal(t, arrive.Add(-450*time.Minute), d.Travel[0].Start)

	require.Len(t, d.Stays, 1)
	require.Equal(t, "paris", d.Stays[0].Location)
	require.Equal(t, arrive, d.Stays[0].Start)
	require.Equal(t, depart, d.Stays[0].End)

	travelStart := arrive.Add(-450 * time.Minute)
	require.Equal(t, travelStart, d.FadeIn.End)
	require.Equal(t, travelStart.Add(-48*time.Hour), d.FadeIn.Start)
	require.Equal(t, depart, d.FadeOut.Start)
	require.Equal(t, depart.Add(48*time.Hour), d.FadeOut.End)

	require.Empty(t, d.Gaps)

	require.True(t, d.IsUndefined(travelStart.Add(-49*time.Hour)))
	require.False(t, d.IsUndefined(travelStart.Add(-time.Hour))) // fade-in
	require.False(t, d.IsUndefined(arrive.Add(time.Hour)))       // stay
	require.False(t, d.IsUndefined(depart.Add(time.Hour)))       // fade-out
	require.True(t, d.IsUndefined(depart.Add(49*time.Hour)))
}
