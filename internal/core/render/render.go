// Package render turns a derivation into data-only positioned pieces for an
// arbitrary time window, split at week boundaries into per-row segments.
// The engine never draws; a renderer collaborator (SVG export, a browser
// client) maps pieces to concrete drawing calls.
package render

import (
	"time"

	"github.com/wayline-lab/wayline/internal/core/derive"
	"github.com/wayline-lab/wayline/internal/core/grid"
)

// StayPiece is one week-row slice of a stay rectangle.
type StayPiece struct {
	EventID     string  `json:"event_id"`
	LocationKey string  `json:"location"`
	Row         int     `json:"row"`       // absolute week index
	StartCol    float64 `json:"start_col"` // fractional columns, 0..7
	EndCol      float64 `json:"end_col"`
	Estimated   bool    `json:"estimated"`
}

// TravelPiece is one week-row slice of a travel segment. Exactly one piece
// per segment carries the icon anchor, placed at the temporal midpoint.
type TravelPiece struct {
	SourceEventID string  `json:"source_event_id"`
	LocationKey   string  `json:"location"`
	Row           int     `json:"row"`
	StartCol      float64 `json:"start_col"`
	EndCol        float64 `json:"end_col"`
	HasIcon       bool    `json:"has_icon"`
	IconCol       float64 `json:"icon_col,omitempty"`
	// Modes lists the leg modes in order, for icon selection.
	Modes []string `json:"modes,omitempty"`
}

// GapPiece is one week-row slice of undefined time.
type GapPiece struct {
	Row      int     `json:"row"`
	StartCol float64 `json:"start_col"`
	EndCol   float64 `json:"end_col"`
}

// FadePiece is one week-row slice of a fade gradient. TStart/TEnd are the
// interpolation parameters at the slice's edges: 0 is the fully-undefined
// color, 1 the location color for a fade-in (reversed for a fade-out), both
// clamped to [0, 1].
type FadePiece struct {
	LocationKey string  `json:"location"`
	Row         int     `json:"row"`
	StartCol    float64 `json:"start_col"`
	EndCol      float64 `json:"end_col"`
	TStart      float64 `json:"t_start"`
	TEnd        float64 `json:"t_end"`
	In          bool    `json:"in"`
}

// Pieces is everything a renderer needs for one window.
type Pieces struct {
	Stays  []StayPiece   `json:"stays"`
	Travel []TravelPiece `json:"travel"`
	Gaps   []GapPiece    `json:"gaps"`
	Fades  []FadePiece   `json:"fades"`
}

// rowSegment is one week-row slice of an interval, with the clipped
// absolute time range it covers.
type rowSegment struct {
	row              int
	startCol, endCol float64
	start, end       time.Time
}

// splitRows slices [s, e) at week boundaries. The first row starts at
// col+dayFraction, interior rows at 0; the last row ends at
// col+dayFraction, interior rows at 7. Empty slices are dropped.
func splitRows(cal grid.Calendar, s, e time.Time) []rowSegment {
	if !e.After(s) {
		return nil
	}

	ps := cal.Position(s)
	pe := cal.Position(e)

	lastRow := pe.Week
	endColLast := float64(pe.Col) + pe.DayFraction
	// An end exactly on a week boundary belongs to the previous row.
	if pe.Col == 0 && pe.DayFraction == 0 {
		lastRow--
		endColLast = grid.DaysPerWeek
	}

	var segs []rowSegment
	for row := ps.Week; row <= lastRow; row++ {
		seg := rowSegment{row: row, startCol: 0, endCol: grid.DaysPerWeek, start: cal.WeekStart(row), end: cal.WeekStart(row + 1)}
		if row == ps.Week {
			seg.startCol = float64(ps.Col) + ps.DayFraction
			seg.start = s
		}
		if row == lastRow {
			seg.endCol = endColLast
			seg.end = e
		}
		if seg.endCol > seg.startCol {
			segs = append(segs, seg)
		}
	}
	return segs
}

// clip intersects [s, e) with [from, to); ok is false when disjoint.
func clip(s, e, from, to time.Time) (time.Time, time.Time, bool) {
	if s.Before(from) {
		s = from
	}
	if e.After(to) {
		e = to
	}
	if !e.After(s) {
		return s, e, false
	}
	return s, e, true
}

// Query produces the row-split pieces for the window [from, to). Gap
// pieces cover every undefined instant in the window, including the
// open-ended regions outside the known itinerary, so that piece coverage
// matches the derivation's classification exactly.
func Query(d derive.Derivation, cal grid.Calendar, from, to time.Time) Pieces {
	var p Pieces
	if !to.After(from) {
		return p
	}

	// Defined intervals, collected for the undefined complement below.
	var defined []span

	for _, stay := range d.Stays {
		s, e, ok := clip(stay.Start, stay.End, from, to)
		if ok {
			for _, seg := range splitRows(cal, s, e) {
				p.Stays = append(p.Stays, StayPiece{
					EventID:     stay.EventID,
					LocationKey: stay.Location,
					Row:         seg.row,
					StartCol:    seg.startCol,
					EndCol:      seg.endCol,
					Estimated:   stay.Estimated.Arrive || stay.Estimated.Depart,
				})
			}
		}
		defined = append(defined, span{stay.Start, stay.End})
	}

	for _, tr := range d.Travel {
		s, e, ok := clip(tr.Start, tr.End, from, to)
		if ok {
			mid := tr.Start.Add(tr.End.Sub(tr.Start) / 2)
			midPos := cal.Position(mid)
			modes := make([]string, 0, len(tr.Legs))
			for _, leg := range tr.Legs {
				modes = append(modes, leg.Mode)
			}
			for _, seg := range splitRows(cal, s, e) {
				piece := TravelPiece{
					SourceEventID: tr.SourceEventID,
					LocationKey:   tr.Location,
					Row:           seg.row,
					StartCol:      seg.startCol,
					EndCol:        seg.endCol,
					Modes:         modes,
				}
				if seg.row == midPos.Week && !mid.Before(seg.start) && mid.Before(seg.end) {
					piece.HasIcon = true
					piece.IconCol = float64(midPos.Col) + midPos.DayFraction
				}
				p.Travel = append(p.Travel, piece)
			}
		}
		defined = append(defined, span{tr.Start, tr.End})
	}

	for _, fade := range []*derive.FadeZone{d.FadeIn, d.FadeOut} {
		if fade == nil {
			continue
		}
		s, e, ok := clip(fade.Start, fade.End, from, to)
		if ok {
			window := fade.End.Sub(fade.Start)
			for _, seg := range splitRows(cal, s, e) {
				p.Fades = append(p.Fades, FadePiece{
					LocationKey: fade.Location,
					Row:         seg.row,
					StartCol:    seg.startCol,
					EndCol:      seg.endCol,
					TStart:      fadeParam(fade, seg.start, window),
					TEnd:        fadeParam(fade, seg.end, window),
					In:          fade.In,
				})
			}
		}
		defined = append(defined, span{fade.Start, fade.End})
	}

	for _, g := range undefinedSpans(defined, from, to) {
		for _, seg := range splitRows(cal, g.start, g.end) {
			p.Gaps = append(p.Gaps, GapPiece{Row: seg.row, StartCol: seg.startCol, EndCol: seg.endCol})
		}
	}

	return p
}

// fadeParam maps an absolute instant into the fade window as a [0, 1]
// interpolation parameter. 0 is the undefined edge: the start of a fade-in,
// the end of a fade-out.
func fadeParam(fade *derive.FadeZone, t time.Time, window time.Duration) float64 {
	if window <= 0 {
		return 1
	}
	var v float64
	if fade.In {
		v = float64(t.Sub(fade.Start)) / float64(window)
	} else {
		v = float64(fade.End.Sub(t)) / float64(window)
	}
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return v
}

type span struct {
	start, end time.Time
}

// undefinedSpans returns the complement of the merged defined spans within
// [from, to).
func undefinedSpans(defined []span, from, to time.Time) []span {
	merged := mergeSpans(defined)

	var out []span
	cursor := from
	for _, sp := range merged {
		if !sp.end.After(cursor) {
			continue
		}
		if !sp.start.Before(to) {
			break
		}
		if sp.start.After(cursor) {
			end := sp.start
			if end.After(to) {
				end = to
			}
			out = append(out, span{cursor, end})
		}
		if sp.end.After(cursor) {
			cursor = sp.end
		}
		if !cursor.Before(to) {
			return out
		}
	}
	if cursor.Before(to) {
		out = append(out, span{cursor, to})
	}
	return out
}

// mergeSpans sorts and coalesces overlapping or touching spans.
func mergeSpans(spans []span) []span {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]span, len(spans))
	copy(sorted, spans)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].start.Before(sorted[j-1].start); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	out := sorted[:1]
	for _, sp := range sorted[1:] {
		last := &out[len(out)-1]
		if !sp.start.After(last.end) {
			if sp.end.After(last.end) {
				last.end = sp.end
			}
			continue
		}
		out = append(out, sp)
	}
	return out
}
