package catalog

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	httperr "github.com/wayline-lab/wayline/internal/core/errors"
	"github.com/wayline-lab/wayline/internal/core/storage"

	v1 "github.com/wayline-lab/wayline/internal/api/v1"
)

// storeEnabled short-circuits every handler when persistence is not
// configured.
func (s *Service) storeEnabled(c *gin.Context) bool {
	if s.store != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
		ErrorType: httperr.HttpStoreDisabledError,
		Message:   "Itinerary persistence is not configured",
	})
	return false
}

// SaveHandler handles PUT /v1/itineraries/:name. The body is the raw
// document; it is stored verbatim, without validation, so drafts with
// unresolved locations can still be saved.
func (s *Service) SaveHandler(c *gin.Context) {
	if !s.storeEnabled(c) {
		return
	}
	name := c.Param("name")

	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1)
	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to read request body",
		})
		return
	}
	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		c.JSON(http.StatusRequestEntityTooLarge, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Request body exceeds maximum allowed size",
		})
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var doc v1.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid JSON body",
			Details:   err.Error(),
		})
		return
	}

	if err := s.store.SaveItinerary(c.Request.Context(), name, &doc); err != nil {
		slog.Error("Failed to save itinerary", "error", err, "name", name)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to save itinerary",
		})
		return
	}

	slog.Info("Itinerary saved", "name", name, "events", len(doc.Events))
	c.JSON(http.StatusOK, gin.H{"name": name, "events": len(doc.Events)})
}

// GetHandler handles GET /v1/itineraries/:name.
func (s *Service) GetHandler(c *gin.Context) {
	if !s.storeEnabled(c) {
		return
	}
	name := c.Param("name")

	rec, err := s.store.LoadItinerary(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, httperr.ErrorResponse{
				ErrorType: httperr.HttpItineraryNotFound,
				Message:   "Itinerary not found",
				Details:   map[string]interface{}{"name": name},
			})
			return
		}
		slog.Error("Failed to load itinerary", "error", err, "name", name)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to load itinerary",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":       rec.Name,
		"updated_at": rec.UpdatedAt,
		"document":   rec.Document,
	})
}

// ListHandler handles GET /v1/itineraries.
func (s *Service) ListHandler(c *gin.Context) {
	if !s.storeEnabled(c) {
		return
	}

	names, err := s.store.ListItineraries(c.Request.Context())
	if err != nil {
		slog.Error("Failed to list itineraries", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to list itineraries",
		})
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"itineraries": names})
}
