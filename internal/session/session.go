// Package session ties the engine together for one view: the parsed
// document, the lazily cached derivation, and the windowed chunk manager.
// There are no process-wide singletons; every view gets its own Session.
package session

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	v1 "github.com/wayline-lab/wayline/internal/api/v1"
	"github.com/wayline-lab/wayline/internal/core/derive"
	"github.com/wayline-lab/wayline/internal/core/grid"
	"github.com/wayline-lab/wayline/internal/core/itinerary"
	"github.com/wayline-lab/wayline/internal/core/render"
	"github.com/wayline-lab/wayline/internal/core/window"
)

// Options configures a new session.
type Options struct {
	Calendar    grid.Calendar
	DefaultFade time.Duration
	Window      window.Config
}

// Session is one view's engine handle. All methods are safe for concurrent
// use; the engine itself stays synchronous under the session mutex.
type Session struct {
	id   uuid.UUID
	opts Options

	mu     sync.Mutex
	it     *itinerary.Itinerary
	diags  []itinerary.Diagnostic
	window *window.Manager

	// Derivation cache: dirty marks it stale, generation keys the
	// singleflight recompute so stale fills are never observed.
	derived    *derive.Derivation
	dirty      bool
	generation uint64
	sf         singleflight.Group
}

// New builds a session from a document. The returned diagnostics are
// non-fatal findings; a fatal finding (unknown location) is returned as an
// error together with all diagnostics gathered so far.
func New(doc *v1.Document, opts Options) (*Session, []itinerary.Diagnostic, error) {
	if opts.DefaultFade <= 0 {
		opts.DefaultFade = itinerary.DefaultFadeHours
	}

	it, diags, err := itinerary.Build(doc, opts.Calendar, opts.DefaultFade)
	if err != nil {
		return nil, diags, err
	}

	s := &Session{
		id:     uuid.New(),
		opts:   opts,
		it:     it,
		diags:  diags,
		window: window.New(opts.Window),
		dirty:  true,
	}
	s.window.Init(s.homeWeek())
	return s, diags, nil
}

// homeWeek is where the initial window centers: the first event's arrival
// week, or the current week for an empty itinerary.
func (s *Session) homeWeek() int {
	if len(s.it.Events) > 0 {
		return s.opts.Calendar.Position(s.it.Events[0].Arrive).Week
	}
	return s.opts.Calendar.Position(time.Now()).Week
}

// ID returns the session handle.
func (s *Session) ID() uuid.UUID { return s.id }

// Diagnostics returns the validation findings for the current document.
func (s *Session) Diagnostics() []itinerary.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]itinerary.Diagnostic(nil), s.diags...)
}

// Replace swaps in a new document and invalidates the derivation cache.
// The chunk window survives unchanged so the view does not jump.
func (s *Session) Replace(doc *v1.Document) ([]itinerary.Diagnostic, error) {
	it, diags, err := itinerary.Build(doc, s.opts.Calendar, s.opts.DefaultFade)
	if err != nil {
		return diags, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.it = it
	s.diags = diags
	s.dirty = true
	s.generation++
	s.derived = nil
	return diags, nil
}

// Derivation returns the cached partition, recomputing lazily after an
// invalidation. Concurrent first reads share one recompute.
func (s *Session) Derivation() derive.Derivation {
	s.mu.Lock()
	if !s.dirty && s.derived != nil {
		d := *s.derived
		s.mu.Unlock()
		return d
	}
	gen := s.generation
	it := s.it
	s.mu.Unlock()

	v, _, _ := s.sf.Do(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		d := derive.Derive(it)

		s.mu.Lock()
		// A concurrent Replace may have bumped the generation; only
		// publish a fill computed for the current one.
		if s.generation == gen {
			s.derived = &d
			s.dirty = false
		}
		s.mu.Unlock()
		return d, nil
	})
	return v.(derive.Derivation)
}

// QueryWindow returns the row-split render pieces overlapping [from, to).
func (s *Session) QueryWindow(from, to time.Time) (render.Pieces, error) {
	if !to.After(from) {
		return render.Pieces{}, fmt.Errorf("invalid window: end %s not after start %s", to, from)
	}
	d := s.Derivation()
	return render.Query(d, s.opts.Calendar, from, to), nil
}

// QueryChunk returns the pieces for one chunk's time window.
func (s *Session) QueryChunk(index int) (render.Pieces, error) {
	s.mu.Lock()
	startWeek, endWeek := s.window.ChunkWindow(index)
	s.mu.Unlock()
	return s.QueryWindow(s.opts.Calendar.WeekStart(startWeek), s.opts.Calendar.WeekStart(endWeek))
}

// ExtendForward advances the rendered upper bound.
func (s *Session) ExtendForward(weeks int) window.ExtendResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.ExtendForward(weeks)
}

// ExtendBackward grows the rendered window into the past, reporting the
// scroll compensation the caller must apply.
func (s *Session) ExtendBackward(weeks int) window.ExtendResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.ExtendBackward(weeks)
}

// Prune drops distant chunks relative to the viewport center.
func (s *Session) Prune(viewportCenterWeek int) window.PruneResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Prune(viewportCenterWeek)
}

// HandleScroll runs the throttled edge-trigger check.
func (s *Session) HandleScroll(scrollY, viewportPx float64) window.ScrollResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.HandleScroll(scrollY, viewportPx)
}

// Bounds returns the rendered week window [low, high).
func (s *Session) Bounds() (low, high int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Bounds()
}

// RowToY maps an absolute week to its current pixel position.
func (s *Session) RowToY(week int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.RowToY(week)
}

// Itinerary exposes the validated model for exporters.
func (s *Session) Itinerary() *itinerary.Itinerary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.it
}

// Calendar returns the session's grid calendar.
func (s *Session) Calendar() grid.Calendar { return s.opts.Calendar }
