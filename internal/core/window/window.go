// Package window maintains the set of materialized timeline chunks for one
// view: bidirectional lazy extension, distance-based pruning, and a stable
// pixel-origin mapping that keeps already-rendered rows visually unmoved
// when content is prepended.
package window

import (
	"fmt"
	"sort"
	"time"
)

// Config sizes the chunk grid. Zero fields fall back to the defaults.
type Config struct {
	// ChunkWeeks is the fixed number of week rows per chunk. Chunk i
	// covers weeks [i*ChunkWeeks, (i+1)*ChunkWeeks).
	ChunkWeeks int
	// MaxChunks caps the materialized set; Prune evicts beyond it.
	MaxChunks int
	// RowHeightPx is the pixel height of one week row.
	RowHeightPx float64
	// EdgeBufferPx is how close the viewport may come to a rendered edge
	// before a scroll-triggered extension fires.
	EdgeBufferPx float64
	// Throttle is the minimum interval between scroll-triggered
	// extensions, nominally one display-refresh interval.
	Throttle time.Duration
}

const (
	defaultChunkWeeks   = 4
	defaultMaxChunks    = 40
	defaultRowHeightPx  = 96
	defaultEdgeBufferPx = 600
	defaultThrottle     = 16 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.ChunkWeeks <= 0 {
		c.ChunkWeeks = defaultChunkWeeks
	}
	if c.MaxChunks <= 0 {
		c.MaxChunks = defaultMaxChunks
	}
	if c.RowHeightPx <= 0 {
		c.RowHeightPx = defaultRowHeightPx
	}
	if c.EdgeBufferPx <= 0 {
		c.EdgeBufferPx = defaultEdgeBufferPx
	}
	if c.Throttle <= 0 {
		c.Throttle = defaultThrottle
	}
	return c
}

// chunk is one materialized block. topPx is assigned once at
// materialization and only ever adjusted by the cumulative prepend shift,
// never recomputed from absolute coordinates.
type chunk struct {
	index int
	topPx float64
}

// Manager owns the materialized chunk set for a single view. Not safe for
// concurrent use; the session layer serializes access.
type Manager struct {
	cfg    Config
	now    func() time.Time
	chunks map[int]*chunk

	// baseWeek anchors the pixel origin: originPx is the Y of baseWeek.
	// Both are set on the first materialization.
	baseWeek int
	originPx float64

	lastExtend time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock substitutes the time source, for throttle tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates an empty Manager.
func New(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:    cfg.withDefaults(),
		now:    time.Now,
		chunks: make(map[int]*chunk),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ChunkWeeks returns the configured chunk size in weeks.
func (m *Manager) ChunkWeeks() int { return m.cfg.ChunkWeeks }

// chunkIndexFor returns the index of the chunk containing the given week.
func (m *Manager) chunkIndexFor(week int) int {
	return floorDiv(week, m.cfg.ChunkWeeks)
}

func (m *Manager) chunkHeight() float64 {
	return float64(m.cfg.ChunkWeeks) * m.cfg.RowHeightPx
}

// Empty reports whether nothing has been materialized yet.
func (m *Manager) Empty() bool { return len(m.chunks) == 0 }

// Materialized returns the sorted materialized chunk indices.
func (m *Manager) Materialized() []int {
	indices := make([]int, 0, len(m.chunks))
	for i := range m.chunks {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// Bounds returns the rendered week window [low, high). Zeroes when empty.
func (m *Manager) Bounds() (low, high int) {
	if m.Empty() {
		return 0, 0
	}
	lo, hi := m.indexBounds()
	return lo * m.cfg.ChunkWeeks, (hi + 1) * m.cfg.ChunkWeeks
}

func (m *Manager) indexBounds() (lo, hi int) {
	first := true
	for i := range m.chunks {
		if first {
			lo, hi = i, i
			first = false
			continue
		}
		if i < lo {
			lo = i
		}
		if i > hi {
			hi = i
		}
	}
	return lo, hi
}

// ChunkWindow returns the week range [start, end) covered by a chunk index.
func (m *Manager) ChunkWindow(index int) (startWeek, endWeek int) {
	return index * m.cfg.ChunkWeeks, (index + 1) * m.cfg.ChunkWeeks
}

// Init materializes the chunks covering centerWeek plus one chunk of
// lead-in on each side, anchoring the pixel origin. No-op when already
// initialized.
func (m *Manager) Init(centerWeek int) {
	if !m.Empty() {
		return
	}
	center := m.chunkIndexFor(centerWeek)
	m.baseWeek = (center - 1) * m.cfg.ChunkWeeks
	m.originPx = 0
	for i := center - 1; i <= center+1; i++ {
		m.materialize(i)
	}
}

// materialize adds one chunk, computing its top from the current origin.
func (m *Manager) materialize(index int) {
	if _, ok := m.chunks[index]; ok {
		return
	}
	startWeek := index * m.cfg.ChunkWeeks
	m.chunks[index] = &chunk{
		index: index,
		topPx: m.originPx + float64(startWeek-m.baseWeek)*m.cfg.RowHeightPx,
	}
}

// ExtendResult reports what an extension did.
type ExtendResult struct {
	// Added lists newly materialized chunk indices, in render order.
	Added []int
	// ScrollDelta is the compensation the scroll position must absorb so
	// previously rendered content appears unmoved. Non-zero only for
	// backward extension.
	ScrollDelta float64
	// LowWeek/HighWeek are the rendered bounds after the extension.
	LowWeek, HighWeek int
}

// ExtendForward materializes chunks to push the rendered upper bound ahead
// by the given number of weeks.
func (m *Manager) ExtendForward(weeks int) ExtendResult {
	var res ExtendResult
	if m.Empty() || weeks <= 0 {
		res.LowWeek, res.HighWeek = m.Bounds()
		return res
	}
	_, hi := m.indexBounds()
	target := m.chunkIndexFor((hi+1)*m.cfg.ChunkWeeks + weeks - 1)
	for i := hi + 1; i <= target; i++ {
		m.materialize(i)
		res.Added = append(res.Added, i)
	}
	res.LowWeek, res.HighWeek = m.Bounds()
	return res
}

// ExtendBackward materializes chunks below the rendered lower bound. The
// pixel origin shifts down by the added height before the new chunks are
// placed, and the equal-and-opposite scroll compensation is reported, so
// chunks that were already on screen do not jump.
func (m *Manager) ExtendBackward(weeks int) ExtendResult {
	var res ExtendResult
	if m.Empty() || weeks <= 0 {
		res.LowWeek, res.HighWeek = m.Bounds()
		return res
	}
	lo, _ := m.indexBounds()
	target := m.chunkIndexFor(lo*m.cfg.ChunkWeeks - weeks)
	if target >= lo {
		res.LowWeek, res.HighWeek = m.Bounds()
		return res
	}

	added := lo - target
	shift := float64(added) * m.chunkHeight()

	// Shift the origin and every existing chunk by the prepended height
	// first; the new chunks then land in the opened space.
	m.originPx += shift
	for _, c := range m.chunks {
		c.topPx += shift
	}

	for i := target; i < lo; i++ {
		m.materialize(i)
		res.Added = append(res.Added, i)
	}

	res.ScrollDelta = shift
	res.LowWeek, res.HighWeek = m.Bounds()
	return res
}

// PruneResult reports the surviving window after a prune.
type PruneResult struct {
	Evicted           []int
	LowWeek, HighWeek int
}

// Prune evicts chunks ordered by descending week-distance from the
// viewport center until the materialized count is back under MaxChunks,
// then recomputes the rendered bounds from the survivors. Since the
// farthest chunk is always at one end of the contiguous run, contiguity is
// preserved.
func (m *Manager) Prune(viewportCenterWeek int) PruneResult {
	var res PruneResult
	for len(m.chunks) > m.cfg.MaxChunks {
		lo, hi := m.indexBounds()
		loDist := weekDistance(m.chunkCenterWeek(lo), viewportCenterWeek)
		hiDist := weekDistance(m.chunkCenterWeek(hi), viewportCenterWeek)
		victim := lo
		if hiDist > loDist {
			victim = hi
		}
		delete(m.chunks, victim)
		res.Evicted = append(res.Evicted, victim)
	}
	res.LowWeek, res.HighWeek = m.Bounds()
	return res
}

func (m *Manager) chunkCenterWeek(index int) int {
	return index*m.cfg.ChunkWeeks + m.cfg.ChunkWeeks/2
}

func weekDistance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// Contiguous reports whether the materialized indices form one unbroken
// run. Anything else is an inconsistent manager state.
func (m *Manager) Contiguous() bool {
	if m.Empty() {
		return true
	}
	lo, hi := m.indexBounds()
	return len(m.chunks) == hi-lo+1
}

// RowToY maps an absolute week to its pixel Y. Weeks inside a materialized
// chunk use that chunk's stored top; others fall back to the origin
// mapping, which agrees by construction.
func (m *Manager) RowToY(week int) float64 {
	if c, ok := m.chunks[m.chunkIndexFor(week)]; ok {
		startWeek := c.index * m.cfg.ChunkWeeks
		return c.topPx + float64(week-startWeek)*m.cfg.RowHeightPx
	}
	return m.originPx + float64(week-m.baseWeek)*m.cfg.RowHeightPx
}

// ContentExtent returns the pixel range [top, bottom) currently covered by
// materialized chunks.
func (m *Manager) ContentExtent() (top, bottom float64) {
	if m.Empty() {
		return 0, 0
	}
	lo, hi := m.indexBounds()
	return m.chunks[lo].topPx, m.chunks[hi].topPx + m.chunkHeight()
}

// ScrollResult reports the outcome of a scroll-triggered check.
type ScrollResult struct {
	Extended    bool
	Backward    bool
	ScrollDelta float64
	Throttled   bool
}

// HandleScroll extends the window when a viewport edge comes within
// EdgeBufferPx of the rendered content's start or end. At most one
// extension per Throttle interval fires; calls inside the interval are
// dropped, not queued.
func (m *Manager) HandleScroll(scrollY, viewportPx float64) ScrollResult {
	var res ScrollResult
	if m.Empty() {
		return res
	}

	top, bottom := m.ContentExtent()
	nearTop := scrollY-top < m.cfg.EdgeBufferPx
	nearBottom := bottom-(scrollY+viewportPx) < m.cfg.EdgeBufferPx
	if !nearTop && !nearBottom {
		return res
	}

	now := m.now()
	if now.Sub(m.lastExtend) < m.cfg.Throttle {
		res.Throttled = true
		return res
	}
	m.lastExtend = now

	// When both edges are hungry the leading (top) edge wins; the next
	// scroll event picks up the other side.
	if nearTop {
		ext := m.ExtendBackward(m.cfg.ChunkWeeks)
		res.Extended = len(ext.Added) > 0
		res.Backward = true
		res.ScrollDelta = ext.ScrollDelta
		return res
	}

	ext := m.ExtendForward(m.cfg.ChunkWeeks)
	res.Extended = len(ext.Added) > 0
	return res
}

// checkInvariant reports a non-contiguous materialized set as an error.
func (m *Manager) checkInvariant() error {
	if !m.Contiguous() {
		lo, hi := m.indexBounds()
		return fmt.Errorf("window: materialized chunks not contiguous: have %d of [%d,%d]", len(m.chunks), lo, hi)
	}
	return nil
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
