package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	v1 "github.com/wayline-lab/wayline/internal/api/v1"
)

func TestLoadDocument_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trip.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"locations": [{"name": "paris", "color": "#4a90d9", "label": "Paris"}],
		"events": [{"id": "e1", "location": "paris", "arrive": "2026-01-18T10:06", "depart": null}],
		"config": {"fadeHours": 48}
	}`), 0o644))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	require.Len(t, doc.Locations, 1)
	require.Len(t, doc.Events, 1)
	require.Nil(t, doc.Events[0].Depart)
	require.Equal(t, 48.0, doc.Config.FadeHours)
}

func TestLoadDocument_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trip.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
locations:
  - name: paris
    color: "#4a90d9"
    label: Paris
events:
  - id: e1
    location: paris
    arrive: "2026-01-18T10:06"
    depart: "2026-02-01T08:00"
    travel:
      legs:
        - mode: plane
          duration: 450
config:
  fadeHours: 24
`), 0o644))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	require.Len(t, doc.Events, 1)
	require.NotNil(t, doc.Events[0].Depart)
	require.Equal(t, "2026-02-01T08:00", *doc.Events[0].Depart)
	require.Equal(t, 450, doc.Events[0].Travel.Legs[0].Duration)
	require.Equal(t, 24.0, doc.Config.FadeHours)
}

func TestLoadDocument_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trip.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b"), 0o644))

	_, err := LoadDocument(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported itinerary source extension")
}

func TestLoadDocument_MissingFile(t *testing.T) {
	_, err := LoadDocument(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestNewRefresher_RejectsBadSpec(t *testing.T) {
	_, err := NewRefresher("not a cron spec", "trip.json", func(_ *v1.Document) {})
	require.Error(t, err)
}
