// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/dealdash/internal/dashboard"
	"github.com/autobrr/dealdash/internal/models"
)

type recordingLister struct {
	limits []int
	err    error
}

func (l *recordingLister) GetRecentErrors(_ context.Context, contentID int64, limit int) ([]models.FetchError, error) {
	l.limits = append(l.limits, limit)
	if l.err != nil {
		return nil, l.err
	}
	return []models.FetchError{}, nil
}

func serveErrors(h *FetchErrorsHandler, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/errors/{contentID}", h.ListErrors)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestListErrorsLimit(t *testing.T) {
	lister := &recordingLister{}
	h := NewFetchErrorsHandler(lister)

	require.Equal(t, http.StatusOK, serveErrors(h, "/errors/4").Code)
	require.Equal(t, http.StatusOK, serveErrors(h, "/errors/4?limit=5").Code)
	require.Equal(t, http.StatusOK, serveErrors(h, "/errors/4?limit=500").Code)
	require.Equal(t, []int{defaultErrorLimit, 5, maxErrorLimit}, lister.limits)

	rec := serveErrors(h, "/errors/4")
	require.Equal(t, "[]\n", rec.Body.String())
}

func TestListErrorsRejectsBadInput(t *testing.T) {
	lister := &recordingLister{}
	h := NewFetchErrorsHandler(lister)

	require.Equal(t, http.StatusBadRequest, serveErrors(h, "/errors/abc").Code)
	require.Equal(t, http.StatusBadRequest, serveErrors(h, "/errors/0").Code)
	require.Equal(t, http.StatusBadRequest, serveErrors(h, "/errors/4?limit=-1").Code)
	require.Empty(t, lister.limits)
}

func TestListErrorsStoreFailure(t *testing.T) {
	h := NewFetchErrorsHandler(&recordingLister{err: errors.New("database is locked")})

	rec := serveErrors(h, "/errors/4")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"Failed to list fetch errors"}`, rec.Body.String())
}

func TestLoadOptions(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/deals?q=+holiday+&show=4&show=x&show=-2&show=9", nil)

	require.Equal(t, dashboard.LoadOptions{Query: "holiday", Expanded: []int64{4, 9}}, loadOptions(req))
	require.Equal(t, dashboard.LoadOptions{}, loadOptions(httptest.NewRequest(http.MethodGet, "/deals", nil)))
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealthReadiness(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(pinger{}).HandleReady(rec, httptest.NewRequest(http.MethodGet, "/healthz/readiness", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewHealthHandler(pinger{err: errors.New("closed")}).HandleReady(rec, httptest.NewRequest(http.MethodGet, "/healthz/readiness", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusTeapot, "nope")

	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"error":"nope"}`, rec.Body.String())
}
