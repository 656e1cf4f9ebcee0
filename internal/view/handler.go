package view

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	httperr "github.com/wayline-lab/wayline/internal/core/errors"
	"github.com/wayline-lab/wayline/internal/core/itinerary"
	"github.com/wayline-lab/wayline/internal/core/storage"
	"github.com/wayline-lab/wayline/internal/core/window"
	"github.com/wayline-lab/wayline/internal/export/ics"
	"github.com/wayline-lab/wayline/internal/export/svg"
	"github.com/wayline-lab/wayline/internal/session"

	v1 "github.com/wayline-lab/wayline/internal/api/v1"
)

const (
	msgReadBodyFailed  = "Failed to read request body"
	msgInvalidJSON     = "Invalid JSON body"
	msgSessionNotFound = "Session not found"
)

// viewError carries the structured HTTP error shape from a helper back to
// the orchestrating handler. Helpers return this instead of writing to
// gin.Context directly, keeping them decoupled from HTTP.
type viewError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *viewError) Error() string {
	return e.message
}

func writeError(c *gin.Context, err *viewError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}

// CreateSessionHandler handles POST /v1/sessions. The document comes
// either inline or, when a store is configured, by stored itinerary name.
func (s *Service) CreateSessionHandler(c *gin.Context) {
	var req CreateSessionRequest
	if verr := s.bindJSON(c, &req); verr != nil {
		writeError(c, verr)
		return
	}

	doc, verr := s.resolveDocument(c, &req)
	if verr != nil {
		writeError(c, verr)
		return
	}

	sess, diags, err := session.New(doc, s.opts)
	if err != nil {
		writeError(c, documentError(err, diags))
		return
	}
	s.registry.Add(sess)

	low, high := sess.Bounds()
	slog.Info("Session created",
		"session_id", sess.ID(),
		"events", len(sess.Itinerary().Events),
		"diagnostics", len(diags),
		"low_week", low,
		"high_week", high)

	c.JSON(http.StatusCreated, SessionResponse{
		SessionID:   sess.ID().String(),
		Diagnostics: diags,
		LowWeek:     low,
		HighWeek:    high,
	})
}

// resolveDocument picks the inline document or loads the named one from
// the store. Exactly one source must be present.
func (s *Service) resolveDocument(c *gin.Context, req *CreateSessionRequest) (*v1.Document, *viewError) {
	switch {
	case req.Document != nil && req.Itinerary != "":
		return nil, &viewError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Provide either an inline document or an itinerary name, not both",
		}
	case req.Document != nil:
		return req.Document, nil
	case req.Itinerary != "":
		if s.store == nil {
			return nil, &viewError{
				statusCode: http.StatusServiceUnavailable,
				errorType:  httperr.HttpStoreDisabledError,
				message:    "Itinerary persistence is not configured",
			}
		}
		rec, err := s.store.LoadItinerary(c.Request.Context(), req.Itinerary)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, &viewError{
					statusCode: http.StatusNotFound,
					errorType:  httperr.HttpItineraryNotFound,
					message:    "Itinerary not found",
					details:    map[string]interface{}{"name": req.Itinerary},
				}
			}
			slog.Error("Failed to load itinerary", "error", err, "name", req.Itinerary)
			return nil, &viewError{
				statusCode: http.StatusInternalServerError,
				errorType:  httperr.HttpInternalError,
				message:    "Failed to load itinerary",
			}
		}
		return &rec.Document, nil
	default:
		return nil, &viewError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request must carry a document or an itinerary name",
		}
	}
}

// documentError maps a fatal document build failure to its HTTP shape.
func documentError(err error, diags []itinerary.Diagnostic) *viewError {
	var unknown *itinerary.UnknownLocationError
	if errors.As(err, &unknown) {
		return &viewError{
			statusCode: http.StatusUnprocessableEntity,
			errorType:  httperr.HttpUnknownLocationError,
			message:    err.Error(),
			details: map[string]interface{}{
				"event_ids":   unknown.EventIDs,
				"diagnostics": diags,
			},
		}
	}
	return &viewError{
		statusCode: http.StatusBadRequest,
		errorType:  httperr.HttpInvalidJsonError,
		message:    err.Error(),
		details:    map[string]interface{}{"diagnostics": diags},
	}
}

// DeleteSessionHandler handles DELETE /v1/sessions/:id.
func (s *Service) DeleteSessionHandler(c *gin.Context) {
	id, verr := sessionID(c)
	if verr != nil {
		writeError(c, verr)
		return
	}
	if !s.registry.Remove(id) {
		writeError(c, notFound())
		return
	}
	slog.Info("Session closed", "session_id", id)
	c.Status(http.StatusNoContent)
}

// ReplaceDocumentHandler handles PUT /v1/sessions/:id/document. The chunk
// window survives the swap; only the derivation is invalidated.
func (s *Service) ReplaceDocumentHandler(c *gin.Context) {
	sess, verr := s.lookup(c)
	if verr != nil {
		writeError(c, verr)
		return
	}

	var doc v1.Document
	if verr := s.bindJSON(c, &doc); verr != nil {
		writeError(c, verr)
		return
	}

	diags, err := sess.Replace(&doc)
	if err != nil {
		writeError(c, documentError(err, diags))
		return
	}

	slog.Info("Session document replaced", "session_id", sess.ID(), "diagnostics", len(diags))
	c.JSON(http.StatusOK, gin.H{"diagnostics": diags})
}

// DerivationHandler handles GET /v1/sessions/:id/derivation.
func (s *Service) DerivationHandler(c *gin.Context) {
	sess, verr := s.lookup(c)
	if verr != nil {
		writeError(c, verr)
		return
	}
	c.JSON(http.StatusOK, DerivationResponse{
		Derivation:  sess.Derivation(),
		Diagnostics: sess.Diagnostics(),
	})
}

// QueryWindowHandler handles GET /v1/sessions/:id/window?start=&end=.
// Bounds are local wall-clock timestamps in the engine timezone.
func (s *Service) QueryWindowHandler(c *gin.Context) {
	sess, verr := s.lookup(c)
	if verr != nil {
		writeError(c, verr)
		return
	}

	loc := sess.Calendar().Location()
	from, err := itinerary.ParseLocalTime(c.Query("start"), loc)
	if err != nil {
		writeError(c, badRange("Invalid start parameter", err))
		return
	}
	to, err := itinerary.ParseLocalTime(c.Query("end"), loc)
	if err != nil {
		writeError(c, badRange("Invalid end parameter", err))
		return
	}

	pieces, err := sess.QueryWindow(from, to)
	if err != nil {
		writeError(c, badRange("Invalid window", err))
		return
	}
	c.JSON(http.StatusOK, pieces)
}

// QueryChunkHandler handles GET /v1/sessions/:id/chunks/:index.
func (s *Service) QueryChunkHandler(c *gin.Context) {
	sess, verr := s.lookup(c)
	if verr != nil {
		writeError(c, verr)
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		writeError(c, badRange("Invalid chunk index", err))
		return
	}
	pieces, err := sess.QueryChunk(index)
	if err != nil {
		writeError(c, badRange("Invalid chunk window", err))
		return
	}
	c.JSON(http.StatusOK, pieces)
}

// ExtendHandler handles POST /v1/sessions/:id/extend.
func (s *Service) ExtendHandler(c *gin.Context) {
	sess, verr := s.lookup(c)
	if verr != nil {
		writeError(c, verr)
		return
	}

	var req ExtendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, &viewError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
			details:    err.Error(),
		})
		return
	}

	var res window.ExtendResult
	if req.Direction == "backward" {
		res = sess.ExtendBackward(req.Weeks)
	} else {
		res = sess.ExtendForward(req.Weeks)
	}

	low, high := sess.Bounds()
	slog.Info("Window extended",
		"session_id", sess.ID(),
		"direction", req.Direction,
		"added", len(res.Added),
		"scroll_delta", res.ScrollDelta)

	c.JSON(http.StatusOK, ExtendResponse{
		Added:       res.Added,
		ScrollDelta: res.ScrollDelta,
		LowWeek:     low,
		HighWeek:    high,
	})
}

// ScrollHandler handles POST /v1/sessions/:id/scroll.
func (s *Service) ScrollHandler(c *gin.Context) {
	sess, verr := s.lookup(c)
	if verr != nil {
		writeError(c, verr)
		return
	}

	var req ScrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, &viewError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
			details:    err.Error(),
		})
		return
	}

	res := sess.HandleScroll(req.ScrollY, req.ViewportPx)
	low, high := sess.Bounds()
	c.JSON(http.StatusOK, ScrollResponse{
		Extended:    res.Extended,
		Backward:    res.Backward,
		ScrollDelta: res.ScrollDelta,
		Throttled:   res.Throttled,
		LowWeek:     low,
		HighWeek:    high,
	})
}

// PruneHandler handles POST /v1/sessions/:id/prune.
func (s *Service) PruneHandler(c *gin.Context) {
	sess, verr := s.lookup(c)
	if verr != nil {
		writeError(c, verr)
		return
	}

	var req PruneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, &viewError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
			details:    err.Error(),
		})
		return
	}

	res := sess.Prune(req.CenterWeek)
	if len(res.Evicted) > 0 {
		slog.Info("Chunks pruned", "session_id", sess.ID(), "evicted", len(res.Evicted))
	}
	c.JSON(http.StatusOK, PruneResponse{
		Evicted:  res.Evicted,
		LowWeek:  res.LowWeek,
		HighWeek: res.HighWeek,
	})
}

// ExportICSHandler handles GET /v1/sessions/:id/export.ics.
func (s *Service) ExportICSHandler(c *gin.Context) {
	sess, verr := s.lookup(c)
	if verr != nil {
		writeError(c, verr)
		return
	}
	cal := ics.Calendar(sess.Itinerary(), sess.Derivation())
	c.Header("Content-Disposition", `attachment; filename="timeline.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(cal.Serialize()))
}

// ExportSVGHandler handles GET /v1/sessions/:id/export.svg. Optional
// start_week and weeks parameters default to the current rendered window.
func (s *Service) ExportSVGHandler(c *gin.Context) {
	sess, verr := s.lookup(c)
	if verr != nil {
		writeError(c, verr)
		return
	}

	low, high := sess.Bounds()
	startWeek, weeks := low, high-low
	if raw := c.Query("start_week"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(c, badRange("Invalid start_week parameter", err))
			return
		}
		startWeek = v
	}
	if raw := c.Query("weeks"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(c, badRange("Invalid weeks parameter", err))
			return
		}
		weeks = v
	}

	cal := sess.Calendar()
	pieces, err := sess.QueryWindow(cal.WeekStart(startWeek), cal.WeekStart(startWeek+weeks))
	if err != nil {
		writeError(c, badRange("Invalid export window", err))
		return
	}

	doc := svg.Render(pieces, sess.Itinerary().Locations, startWeek, weeks, svg.Options{
		RowHeight: int(s.opts.Window.RowHeightPx),
	})
	c.Data(http.StatusOK, "image/svg+xml; charset=utf-8", []byte(doc))
}

// bindJSON reads a size-limited body and binds it into dst.
func (s *Service) bindJSON(c *gin.Context, dst interface{}) *viewError {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return &viewError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return &viewError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	if err := c.ShouldBindJSON(dst); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return &viewError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
			details:    err.Error(),
		}
	}
	return nil
}

func sessionID(c *gin.Context) (uuid.UUID, *viewError) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, notFound()
	}
	return id, nil
}

// lookup resolves the :id path parameter to a live session.
func (s *Service) lookup(c *gin.Context) (*session.Session, *viewError) {
	id, verr := sessionID(c)
	if verr != nil {
		return nil, verr
	}
	sess := s.registry.Get(id)
	if sess == nil {
		return nil, notFound()
	}
	return sess, nil
}

func notFound() *viewError {
	return &viewError{
		statusCode: http.StatusNotFound,
		errorType:  httperr.HttpSessionNotFoundError,
		message:    msgSessionNotFound,
	}
}

func badRange(msg string, err error) *viewError {
	ve := &viewError{
		statusCode: http.StatusBadRequest,
		errorType:  httperr.HttpInvalidRangeError,
		message:    msg,
	}
	if err != nil {
		ve.details = err.Error()
	}
	return ve
}
