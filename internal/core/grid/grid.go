// Package grid maps wall-clock timestamps onto an absolute week/day grid
// anchored to a fixed epoch. All indices are local-calendar based: days are
// counted between civil dates, never by dividing elapsed milliseconds, so a
// DST transition (23h or 25h day) shifts a day boundary but never an index.
package grid

import "time"

// The epoch is Sunday 1970-01-04, local midnight. Week 0 starts there and
// every absolute week therefore begins on a Sunday. Days and weeks before
// the epoch carry negative indices.
const (
	epochYear  = 1970
	epochMonth = time.January
	epochDay   = 4

	// DaysPerWeek is the number of columns in one grid row.
	DaysPerWeek = 7
)

// epochCivil is the civil-day number of the epoch date.
var epochCivil = civilDays(epochYear, epochMonth, epochDay)

// Calendar performs grid arithmetic in one fixed location. The zero value is
// not usable; construct with NewCalendar.
type Calendar struct {
	loc *time.Location
}

// NewCalendar returns a Calendar for the given location. A nil location
// falls back to time.Local.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.Local
	}
	return Calendar{loc: loc}
}

// Location returns the calendar's wall-clock location.
func (c Calendar) Location() *time.Location {
	return c.loc
}

// AbsoluteDay returns the number of whole local calendar days between the
// epoch and t. Negative for dates before the epoch.
func (c Calendar) AbsoluteDay(t time.Time) int {
	y, m, d := t.In(c.loc).Date()
	return civilDays(y, m, d) - epochCivil
}

// Position locates a timestamp on the week grid.
type Position struct {
	// Week is the absolute week index, floor(DayIndex / 7).
	Week int
	// Col is the weekday column, always in [0, 6] (0 = Sunday), including
	// for negative day indices.
	Col int
	// DayIndex is the absolute day index relative to the epoch.
	DayIndex int
	// DayFraction is the elapsed fraction of the local calendar day,
	// clamped to [0, 1]. The denominator is the real length of that day,
	// so 23h and 25h DST days still map noon-ish times near 0.5.
	DayFraction float64
}

// Position computes the grid position of t.
func (c Calendar) Position(t time.Time) Position {
	day := c.AbsoluteDay(t)
	week := floorDiv(day, DaysPerWeek)
	col := day - week*DaysPerWeek

	lt := t.In(c.loc)
	dayStart := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	frac := 0.0
	if length := dayEnd.Sub(dayStart); length > 0 {
		frac = float64(lt.Sub(dayStart)) / float64(length)
	}
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}

	return Position{Week: week, Col: col, DayIndex: day, DayFraction: frac}
}

// WeekStart returns the local midnight beginning the given absolute week,
// always a Sunday.
func (c Calendar) WeekStart(week int) time.Time {
	return c.DayStart(week * DaysPerWeek)
}

// DayStart returns the local midnight beginning the given absolute day.
func (c Calendar) DayStart(day int) time.Time {
	// time.Date normalizes the day offset via calendar arithmetic, which
	// keeps this correct across DST shifts.
	return time.Date(epochYear, epochMonth, epochDay+day, 0, 0, 0, 0, c.loc)
}

// EndOfDay returns 23:59:59 of t's local calendar day.
func (c Calendar) EndOfDay(t time.Time) time.Time {
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 23, 59, 59, 0, c.loc)
}

// civilDays returns the number of days between 1970-01-01 and the given
// civil date (negative before it). Proleptic Gregorian; era-based to stay
// exact for any year.
func civilDays(y int, m time.Month, d int) int {
	mm := int(m)
	if mm <= 2 {
		y--
	}
	era := y / 400
	if y < 0 && y%400 != 0 {
		era--
	}
	yoe := y - era*400
	var mp int
	if mm > 2 {
		mp = mm - 3
	} else {
		mp = mm + 9
	}
	doy := (153*mp+2)/5 + d - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

// floorDiv divides rounding toward negative infinity, so pre-epoch day
// indices land in the correct week.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
