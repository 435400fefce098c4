package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avvvet/kidzone-services/internal/analyticsvc/models"
	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type FakeEventCounter struct {
	Since          time.Time
	CountSinceFunc func(ctx context.Context, since time.Time) ([]models.EventCount, error)
}

func (f *FakeEventCounter) CountSince(ctx context.Context, since time.Time) ([]models.EventCount, error) {
	f.Since = since
	if f.CountSinceFunc != nil {
		return f.CountSinceFunc(ctx, since)
	}
	return []models.EventCount{{Name: "game_start", Count: 4}}, nil
}

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.SetRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStats(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	counter := &FakeEventCounter{}
	h := NewHandler(counter)
	h.now = func() time.Time { return now }

	rec := serve(h, "/v1/stats?days=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, counter.Since.Equal(now.Add(-72*time.Hour)))

	var body struct {
		Data []models.EventCount `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, int64(4), body.Data[0].Count)

	rec = serve(h, "/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, counter.Since.Equal(now.Add(-7*24*time.Hour)))
}

func TestStats_BadDays(t *testing.T) {
	h := NewHandler(&FakeEventCounter{})
	for _, q := range []string{"0", "91", "abc"} {
		rec := serve(h, "/v1/stats?days="+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestStats_StoreError(t *testing.T) {
	h := NewHandler(&FakeEventCounter{CountSinceFunc: func(ctx context.Context, since time.Time) ([]models.EventCount, error) {
		return nil, assert.AnError
	}})
	rec := serve(h, "/v1/stats")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
