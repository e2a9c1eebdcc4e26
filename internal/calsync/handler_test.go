package calsync

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/inkstudio-platform/internal/customers"
)

func routerFor(s *Syncer) http.Handler {
	r := chi.NewRouter()
	r.Route("/bookings", NewHandler(s, nil).Routes)
	return r
}

func TestHandlerSyncAndList(t *testing.T) {
	h := newHarness(t)
	start := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	h.api.records = []json.RawMessage{bookingJSON("b1", "pending", start), json.RawMessage(`{"uid":"bad"}`)}
	router := routerFor(h.syncer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bookings/sync", strings.NewReader(`{"force_full_sync":true,"batch_size":10}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result SyncResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, 1, result.Created)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bookings/sync", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings?status=pending", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"uid":"b1"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bookings/b1/confirm", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"accepted"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bookings/b1/notes", strings.NewReader(`{"note":"bring reference"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bring reference")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bookings/zzz/confirm", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerNotConfigured(t *testing.T) {
	h := newHarness(t)
	s := NewSyncer(nil, h.store, h.state, h.appts, customers.NewService(customers.NewInMemoryRepository(), nil), nil)
	router := routerFor(s)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bookings/sync", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"setup_required":true`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"configured":false`)
}

func TestHandlerRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	router := routerFor(h.syncer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings?status=unknown", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bookings/sync", strings.NewReader(`{"sync_type":"weekly"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
