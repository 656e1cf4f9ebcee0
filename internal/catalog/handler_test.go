package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	httperr "github.com/wayline-lab/wayline/internal/core/errors"
	"github.com/wayline-lab/wayline/internal/core/storage"

	v1 "github.com/wayline-lab/wayline/internal/api/v1"
)

func testDocument() *v1.Document {
	return &v1.Document{
		Locations: []v1.Location{{Name: "paris", Color: "#4287f5", Label: "Paris"}},
		Events: []v1.Event{
			{ID: "e1", Location: "paris", Arrive: "2026-01-19T10:00"},
		},
	}
}

func TestSaveAndGetHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := newMemStore()
	svc := NewService(store, 1)
	r := gin.New()
	svc.RegisterRoutes(r)

	body, _ := json.Marshal(testDocument())
	req := httptest.NewRequest(http.MethodPut, "/v1/itineraries/summer", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/v1/itineraries/summer", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var got struct {
		Name     string      `json:"name"`
		Document v1.Document `json:"document"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	require.Equal(t, "summer", got.Name)
	require.Len(t, got.Document.Events, 1)
	require.Equal(t, "e1", got.Document.Events[0].ID)
}

func TestGetHandler_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := NewService(newMemStore(), 1)
	r := gin.New()
	svc.RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/v1/itineraries/nope", nil))
	require.Equal(t, http.StatusNotFound, resp.Code)

	var errResp httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	require.Equal(t, httperr.HttpItineraryNotFound, errResp.ErrorType)
}

func TestSaveHandler_InvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := NewService(newMemStore(), 1)
	r := gin.New()
	svc.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPut, "/v1/itineraries/summer", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSaveHandler_BodySizeLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := NewService(newMemStore(), 1)
	svc.maxBodySizeBytes = 10
	r := gin.New()
	svc.RegisterRoutes(r)

	body, _ := json.Marshal(testDocument())
	req := httptest.NewRequest(http.MethodPut, "/v1/itineraries/summer", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
}

func TestHandlers_StoreDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := NewService(nil, 1)
	r := gin.New()
	svc.RegisterRoutes(r)

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodPut, "/v1/itineraries/summer"},
		{http.MethodGet, "/v1/itineraries/summer"},
		{http.MethodGet, "/v1/itineraries"},
	} {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}")))
		require.Equal(t, http.StatusServiceUnavailable, resp.Code, tc.path)

		var errResp httperr.ErrorResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
		require.Equal(t, httperr.HttpStoreDisabledError, errResp.ErrorType)
	}
}

func TestListHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := newMemStore()
	require.NoError(t, store.SaveItinerary(context.Background(), "b", testDocument()))
	require.NoError(t, store.SaveItinerary(context.Background(), "a", testDocument()))

	svc := NewService(store, 1)
	r := gin.New()
	svc.RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/v1/itineraries", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var got struct {
		Itineraries []string `json:"itineraries"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	require.Equal(t, []string{"a", "b"}, got.Itineraries)
}

func TestListHandler_StoreError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := NewService(&failingStore{}, 1)
	r := gin.New()
	svc.RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/v1/itineraries", nil))
	require.Equal(t, http.StatusInternalServerError, resp.Code)
}

// memStore is a simple in-memory itinerary store for handler tests.
type memStore struct {
	docs map[string]*v1.Document
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]*v1.Document)}
}

func (m *memStore) SaveItinerary(ctx context.Context, name string, doc *v1.Document) error {
	m.docs[name] = doc
	return nil
}

func (m *memStore) LoadItinerary(ctx context.Context, name string) (*storage.Record, error) {
	doc, ok := m.docs[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Record{Name: name, Document: *doc, UpdatedAt: time.Now()}, nil
}

func (m *memStore) ListItineraries(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(m.docs))
	for name := range m.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// failingStore returns an error from every method.
type failingStore struct{}

var errStore = errors.New("db failure")

func (failingStore) SaveItinerary(ctx context.Context, name string, doc *v1.Document) error {
	return errStore
}

func (failingStore) LoadItinerary(ctx context.Context, name string) (*storage.Record, error) {
	return nil, errStore
}

func (failingStore) ListItineraries(ctx context.Context) ([]string, error) {
	return nil, errStore
}
