package view

import (
	"github.com/wayline-lab/wayline/internal/core/derive"
	"github.com/wayline-lab/wayline/internal/core/itinerary"

	v1 "github.com/wayline-lab/wayline/internal/api/v1"
)

// CreateSessionRequest opens a session from an inline document or, when
// persistence is enabled, from a stored itinerary by name. Exactly one of
// the two must be set.
type CreateSessionRequest struct {
	Document  *v1.Document `json:"document,omitempty"`
	Itinerary string       `json:"itinerary,omitempty"`
}

// SessionResponse describes a session and its current rendered window.
type SessionResponse struct {
	SessionID   string                 `json:"session_id"`
	Diagnostics []itinerary.Diagnostic `json:"diagnostics"`
	LowWeek     int                    `json:"low_week"`
	HighWeek    int                    `json:"high_week"`
}

// DerivationResponse carries the full derived partition plus the
// diagnostics gathered while parsing the current document.
type DerivationResponse struct {
	Derivation  derive.Derivation      `json:"derivation"`
	Diagnostics []itinerary.Diagnostic `json:"diagnostics"`
}

// ExtendRequest grows the rendered window in one direction.
type ExtendRequest struct {
	Direction string `json:"direction" binding:"required,oneof=forward backward"`
	Weeks     int    `json:"weeks"`
}

// ExtendResponse reports the materialized chunk indexes added and the
// scroll compensation the client must apply to keep content stationary.
type ExtendResponse struct {
	Added       []int   `json:"added"`
	ScrollDelta float64 `json:"scroll_delta"`
	LowWeek     int     `json:"low_week"`
	HighWeek    int     `json:"high_week"`
}

// ScrollRequest reports the client's scroll position for edge triggering.
type ScrollRequest struct {
	ScrollY    float64 `json:"scroll_y"`
	ViewportPx float64 `json:"viewport_px" binding:"required,gt=0"`
}

// ScrollResponse reports whether the scroll position triggered an extension.
type ScrollResponse struct {
	Extended    bool    `json:"extended"`
	Backward    bool    `json:"backward"`
	ScrollDelta float64 `json:"scroll_delta"`
	Throttled   bool    `json:"throttled"`
	LowWeek     int     `json:"low_week"`
	HighWeek    int     `json:"high_week"`
}

// PruneRequest evicts chunks far from the given viewport center.
type PruneRequest struct {
	CenterWeek int `json:"center_week"`
}

// PruneResponse lists the evicted chunk indexes and the surviving window.
type PruneResponse struct {
	Evicted  []int `json:"evicted"`
	LowWeek  int   `json:"low_week"`
	HighWeek int   `json:"high_week"`
}
