// Package catalog exposes named itinerary persistence over HTTP: store a
// document under a name, fetch it back, list what is stored. Sessions can
// then be opened by name instead of shipping the document inline.
package catalog

import (
	"github.com/gin-gonic/gin"

	"github.com/wayline-lab/wayline/internal/core/storage"
)

type Service struct {
	store            storage.ItineraryStore // nil when persistence is disabled
	maxBodySizeBytes int
}

func NewService(store storage.ItineraryStore, maxBodySizeMB int) *Service {
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		store:            store,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the itinerary catalog routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.PUT("/v1/itineraries/:name", s.SaveHandler)
	r.GET("/v1/itineraries/:name", s.GetHandler)
	r.GET("/v1/itineraries", s.ListHandler)
}
