// Package view exposes the session-scoped HTTP API: create a session from
// a document, query windows and chunks, drive the scroll-edge machinery,
// and export the derived timeline.
package view

import (
	"github.com/gin-gonic/gin"

	"github.com/wayline-lab/wayline/internal/core/storage"
	"github.com/wayline-lab/wayline/internal/session"
)

type Service struct {
	registry         *session.Registry
	store            storage.ItineraryStore // nil when persistence is disabled
	opts             session.Options
	maxBodySizeBytes int
}

func NewService(reg *session.Registry, store storage.ItineraryStore, opts session.Options, maxBodySizeMB int) *Service {
	if reg == nil {
		panic("view: registry must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		registry:         reg,
		store:            store,
		opts:             opts,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the session API routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/sessions", s.CreateSessionHandler)
	r.DELETE("/v1/sessions/:id", s.DeleteSessionHandler)
	r.PUT("/v1/sessions/:id/document", s.ReplaceDocumentHandler)

	r.GET("/v1/sessions/:id/derivation", s.DerivationHandler)
	r.GET("/v1/sessions/:id/window", s.QueryWindowHandler)
	r.GET("/v1/sessions/:id/chunks/:index", s.QueryChunkHandler)

	r.POST("/v1/sessions/:id/extend", s.ExtendHandler)
	r.POST("/v1/sessions/:id/scroll", s.ScrollHandler)
	r.POST("/v1/sessions/:id/prune", s.PruneHandler)

	r.GET("/v1/sessions/:id/export.ics", s.ExportICSHandler)
	r.GET("/v1/sessions/:id/export.svg", s.ExportSVGHandler)
}
