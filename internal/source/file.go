// Package source loads itinerary documents from local files and keeps them
// fresh on a cron schedule. It is one implementation of the external
// data-provider role; the engine itself never touches the filesystem.
package source

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	v1 "github.com/wayline-lab/wayline/internal/api/v1"
)

// LoadDocument reads a document from a JSON or YAML file, chosen by
// extension.
func LoadDocument(path string) (*v1.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read itinerary source %q: %w", path, err)
	}

	var doc v1.Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML itinerary %q: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON itinerary %q: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported itinerary source extension %q (want .json, .yaml or .yml)", filepath.Ext(path))
	}

	return &doc, nil
}

// Refresher reloads a source file on a cron schedule and hands each
// successful load to the callback. A failed reload keeps the previous
// document in place.
type Refresher struct {
	path   string
	cron   *cron.Cron
	onLoad func(*v1.Document)
}

// NewRefresher schedules reloads of path per the cron spec.
func NewRefresher(spec, path string, onLoad func(*v1.Document)) (*Refresher, error) {
	r := &Refresher{
		path:   path,
		cron:   cron.New(),
		onLoad: onLoad,
	}

	if _, err := r.cron.AddFunc(spec, r.refresh); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return r, nil
}

func (r *Refresher) refresh() {
	doc, err := LoadDocument(r.path)
	if err != nil {
		slog.Error("Itinerary source refresh failed, keeping previous document", "path", r.path, "error", err)
		return
	}
	slog.Info("Itinerary source refreshed", "path", r.path, "events", len(doc.Events))
	r.onLoad(doc)
}

// Start begins the schedule.
func (r *Refresher) Start() {
	r.cron.Start()
	slog.Info("Itinerary source refresher started", "path", r.path)
}

// Stop halts the schedule, waiting for a running reload to finish.
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}
