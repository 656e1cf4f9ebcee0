package itinerary

import (
	"fmt"
	"strings"
)

// Severity classifies a diagnostic.
//
//   - fatal: derivation cannot proceed (unknown location reference)
//   - error: the offending event was rejected, the rest derive normally
//   - warning: the data was kept as-is
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic codes.
const (
	CodeUnknownLocation       = "unknown_location"
	CodeBadLocation           = "bad_location"
	CodeDuplicateLocation     = "duplicate_location"
	CodeMissingField          = "missing_field"
	CodeBadTimestamp          = "bad_timestamp"
	CodeBadLegDuration        = "bad_leg_duration"
	CodeDuplicateID           = "duplicate_id"
	CodeDepartBeforeArrive    = "depart_before_arrive"
	CodeOverlap               = "overlapping_events"
	CodeUnknownMode           = "unknown_mode"
	CodeUnknownEstimatedField = "unknown_estimated_field"
)

// Diagnostic is one validation finding. Diagnostics are returned to the
// caller alongside the usable result, never thrown; the renderer decides
// whether to surface them.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	EventID  string   `json:"event_id,omitempty"`
	Message  string   `json:"message"`
}

// UnknownLocationError aborts derivation: without a color/label binding the
// affected events cannot be rendered at all.
type UnknownLocationError struct {
	EventIDs []string
}

func (e *UnknownLocationError) Error() string {
	return fmt.Sprintf("events reference unknown locations: %s", strings.Join(e.EventIDs, ", "))
}
