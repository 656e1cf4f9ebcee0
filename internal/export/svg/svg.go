// Package svg renders a window of timeline pieces as a standalone SVG
// document. Rows are week rows stacked top to bottom; columns are days
// Sunday through Saturday. Fade zones become linear gradients between the
// undefined color and the location color.
package svg

import (
	"fmt"
	"strings"

	"github.com/wayline-lab/wayline/internal/core/itinerary"
	"github.com/wayline-lab/wayline/internal/core/render"
)

// Options controls the geometry and palette of the rendered document.
// Zero values fall back to the defaults below.
type Options struct {
	CellWidth  int    // pixels per day column
	RowHeight  int    // pixels per week row
	Background string // page background fill
	GapColor   string // fill for undefined time
	GridColor  string // stroke for day/week grid lines
	IconColor  string // fill for travel icon markers
}

const (
	defaultCellWidth  = 96
	defaultRowHeight  = 96
	defaultBackground = "#ffffff"
	defaultGapColor   = "#e8e8e8"
	defaultGridColor  = "#c8c8c8"
	defaultIconColor  = "#333333"
	fallbackLocColor  = "#4a90d9"

	daysPerWeek = 7
	// Travel bands and fades are drawn as a narrower strip centered in
	// the row, as a fraction of the row height.
	bandFraction = 0.5
)

func (o Options) withDefaults() Options {
	if o.CellWidth <= 0 {
		o.CellWidth = defaultCellWidth
	}
	if o.RowHeight <= 0 {
		o.RowHeight = defaultRowHeight
	}
	if o.Background == "" {
		o.Background = defaultBackground
	}
	if o.GapColor == "" {
		o.GapColor = defaultGapColor
	}
	if o.GridColor == "" {
		o.GridColor = defaultGridColor
	}
	if o.IconColor == "" {
		o.IconColor = defaultIconColor
	}
	return o
}

// Render draws the pieces for rows [startWeek, startWeek+weeks) into a
// complete SVG document. Pieces on rows outside that range are skipped.
// Location colors come from the itinerary's location table; unknown keys
// fall back to a neutral blue.
func Render(p render.Pieces, locations map[string]itinerary.Location, startWeek, weeks int, opts Options) string {
	opts = opts.withDefaults()
	if weeks < 0 {
		weeks = 0
	}

	width := daysPerWeek * opts.CellWidth
	height := weeks * opts.RowHeight

	var svg strings.Builder
	svg.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, opts.Background))

	writeFadeDefs(&svg, p.Fades, locations, startWeek, weeks, opts)

	for _, g := range p.Gaps {
		row, ok := localRow(g.Row, startWeek, weeks)
		if !ok {
			continue
		}
		writeRect(&svg, g.StartCol, g.EndCol, row, 1.0, opts, opts.GapColor, "")
	}

	for i, f := range p.Fades {
		row, ok := localRow(f.Row, startWeek, weeks)
		if !ok {
			continue
		}
		writeRect(&svg, f.StartCol, f.EndCol, row, bandFraction, opts, fmt.Sprintf("url(#%s)", fadeID(i)), "")
	}

	for _, s := range p.Stays {
		row, ok := localRow(s.Row, startWeek, weeks)
		if !ok {
			continue
		}
		extra := ""
		if s.Estimated {
			extra = ` fill-opacity="0.55" stroke-dasharray="6,3"`
		}
		writeRect(&svg, s.StartCol, s.EndCol, row, 1.0, opts, locationColor(locations, s.LocationKey), extra)
	}

	for _, t := range p.Travel {
		row, ok := localRow(t.Row, startWeek, weeks)
		if !ok {
			continue
		}
		writeRect(&svg, t.StartCol, t.EndCol, row, bandFraction, opts, locationColor(locations, t.LocationKey), ` fill-opacity="0.8"`)
		if t.HasIcon {
			cx := float64(t.IconCol) * float64(opts.CellWidth)
			cy := float64(row)*float64(opts.RowHeight) + float64(opts.RowHeight)/2
			svg.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>`,
				cx, cy, float64(opts.RowHeight)/8, opts.IconColor))
			svg.WriteString("\n")
			if label := iconLabel(t.Modes); label != "" {
				svg.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" text-anchor="middle" font-family="sans-serif" font-size="%d" fill="%s">%s</text>`,
					cx, cy-float64(opts.RowHeight)/8-4, opts.RowHeight/8, opts.IconColor, escapeText(label)))
				svg.WriteString("\n")
			}
		}
	}

	writeGrid(&svg, weeks, opts)

	svg.WriteString("</svg>")
	return svg.String()
}

// writeFadeDefs emits one horizontal linearGradient per visible fade piece.
// Gradient stops interpolate in the piece's own coordinate space, so a
// clipped piece starts mid-ramp rather than restarting at zero.
func writeFadeDefs(svg *strings.Builder, fades []render.FadePiece, locations map[string]itinerary.Location, startWeek, weeks int, opts Options) {
	if len(fades) == 0 {
		return
	}
	svg.WriteString("<defs>\n")
	for i, f := range fades {
		if _, ok := localRow(f.Row, startWeek, weeks); !ok {
			continue
		}
		locColor := locationColor(locations, f.LocationKey)
		svg.WriteString(fmt.Sprintf(`<linearGradient id="%s" x1="0%%" y1="0%%" x2="100%%" y2="0%%">
<stop offset="0%%" stop-color="%s"/>
<stop offset="100%%" stop-color="%s"/>
</linearGradient>
`, fadeID(i), lerpColor(opts.GapColor, locColor, f.TStart), lerpColor(opts.GapColor, locColor, f.TEnd)))
	}
	svg.WriteString("</defs>\n")
}

func fadeID(i int) string {
	return fmt.Sprintf("fade%d", i)
}

// writeRect draws a horizontal band for [startCol, endCol) on the given
// local row. heightFrac < 1 centers a narrower band in the row.
func writeRect(svg *strings.Builder, startCol, endCol float64, row int, heightFrac float64, opts Options, fill, extra string) {
	x := startCol * float64(opts.CellWidth)
	w := (endCol - startCol) * float64(opts.CellWidth)
	if w <= 0 {
		return
	}
	h := heightFrac * float64(opts.RowHeight)
	y := float64(row)*float64(opts.RowHeight) + (float64(opts.RowHeight)-h)/2
	svg.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"%s/>`,
		x, y, w, h, fill, extra))
	svg.WriteString("\n")
}

// writeGrid draws day column separators and week row separators over the
// pieces.
func writeGrid(svg *strings.Builder, weeks int, opts Options) {
	height := weeks * opts.RowHeight
	for c := 0; c <= daysPerWeek; c++ {
		x := c * opts.CellWidth
		svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="0" x2="%d" y2="%d" stroke="%s" stroke-width="1"/>`,
			x, x, height, opts.GridColor))
		svg.WriteString("\n")
	}
	for r := 0; r <= weeks; r++ {
		y := r * opts.RowHeight
		svg.WriteString(fmt.Sprintf(`<line x1="0" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="1"/>`,
			0, daysPerWeek*opts.CellWidth, y, opts.GridColor))
		svg.WriteString("\n")
	}
}

// localRow maps an absolute week row into a document row, dropping rows
// outside the rendered range.
func localRow(row, startWeek, weeks int) (int, bool) {
	r := row - startWeek
	if r < 0 || r >= weeks {
		return 0, false
	}
	return r, true
}

func locationColor(locations map[string]itinerary.Location, key string) string {
	if loc, ok := locations[key]; ok && loc.Color != "" {
		if _, _, _, ok := parseHex(loc.Color); ok {
			return loc.Color
		}
	}
	return fallbackLocColor
}

func iconLabel(modes []string) string {
	if len(modes) == 0 {
		return ""
	}
	if len(modes) == 1 {
		return modes[0]
	}
	return strings.Join(modes, "+")
}

// parseHex accepts #rgb and #rrggbb.
func parseHex(s string) (r, g, b int, ok bool) {
	if !strings.HasPrefix(s, "#") {
		return 0, 0, 0, false
	}
	hex := s[1:]
	switch len(hex) {
	case 3:
		expanded := make([]byte, 6)
		for i := 0; i < 3; i++ {
			expanded[2*i] = hex[i]
			expanded[2*i+1] = hex[i]
		}
		hex = string(expanded)
	case 6:
	default:
		return 0, 0, 0, false
	}
	var vals [3]int
	for i := 0; i < 3; i++ {
		v, err := parseHexByte(hex[2*i : 2*i+2])
		if err != nil {
			return 0, 0, 0, false
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], true
}

func parseHexByte(s string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(s, "%02x", &v); err != nil {
		return 0, err
	}
	return v, nil
}

// lerpColor interpolates two hex colors channel-wise; t=0 yields a, t=1
// yields b. Unparseable inputs fall back to the endpoints.
func lerpColor(a, b string, t float64) string {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	ar, ag, ab, ok := parseHex(a)
	if !ok {
		return a
	}
	br, bg, bb, ok := parseHex(b)
	if !ok {
		return b
	}
	mix := func(x, y int) int {
		return x + int(t*float64(y-x)+0.5)
	}
	return fmt.Sprintf("#%02x%02x%02x", mix(ar, br), mix(ag, bg), mix(ab, bb))
}

func escapeText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
