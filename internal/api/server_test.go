// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/autobrr/dealdash/internal/auth"
	"github.com/autobrr/dealdash/internal/config"
	"github.com/autobrr/dealdash/internal/dashboard"
	"github.com/autobrr/dealdash/internal/domain"
	"github.com/autobrr/dealdash/internal/estuary"
	"github.com/autobrr/dealdash/internal/models"
	"github.com/autobrr/dealdash/internal/web"
)

type routeKey struct {
	Method string
	Path   string
}

type fakeBackend struct {
	entities []models.ContentEntity
	statuses map[int64]*models.ContentStatus
	viewers  map[string]*models.Viewer
}

func (f *fakeBackend) ListContents(context.Context, string) ([]models.ContentEntity, error) {
	return f.entities, nil
}

func (f *fakeBackend) ContentStatus(_ context.Context, _ string, id int64) (*models.ContentStatus, error) {
	if status, ok := f.statuses[id]; ok {
		return status, nil
	}
	return nil, fmt.Errorf("%w: not found", estuary.ErrAPI)
}

func (f *fakeBackend) Viewer(_ context.Context, token string) (*models.Viewer, error) {
	if v, ok := f.viewers[token]; ok {
		viewer := *v
		viewer.Token = token
		return &viewer, nil
	}
	return nil, estuary.ErrUnauthorized
}

type fakeFetchErrors struct{}

func (fakeFetchErrors) GetRecentErrors(_ context.Context, contentID int64, _ int) ([]models.FetchError, error) {
	return []models.FetchError{{ID: 1, ContentID: contentID, Operation: models.OperationFetchStatus, ErrorType: models.ErrorTypeAPI}}, nil
}

func newTestDependencies(t *testing.T, baseURL string) *Dependencies {
	t.Helper()

	sessions, err := auth.NewSessions("test-secret", false)
	require.NoError(t, err)

	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	backend := &fakeBackend{
		entities: []models.ContentEntity{
			{ID: 1, Name: "aggregate"},
			{ID: 2, Name: "a.txt", AggregatedIn: 1},
			{ID: 3, Name: "photo.jpg"},
		},
		statuses: map[int64]*models.ContentStatus{
			1: {Content: &models.ContentEntity{ID: 1, Name: "aggregate", CID: "bafyroot"}},
			3: {Content: &models.ContentEntity{ID: 3, Name: "photo.jpg", CID: "bafyphoto"}},
		},
		viewers: map[string]*models.Viewer{
			"good-token": {ID: 7, Username: "alice"},
		},
	}

	return &Dependencies{
		Config: &config.AppConfig{
			Config: &domain.Config{
				BaseURL: baseURL,
			},
		},
		Sessions:    sessions,
		Viewers:     backend,
		Loader:      dashboard.NewLoader(backend, nil, nil, 2),
		FetchErrors: fakeFetchErrors{},
		Renderer:    renderer,
	}
}

func TestAllEndpointsDocumented(t *testing.T) {
	server := NewServer(newTestDependencies(t, "/"))
	router := server.Handler()

	actualRoutes := collectRouterRoutes(t, router)
	documentedRoutes := loadDocumentedRoutes(t)

	undocumented := diffRoutes(actualRoutes, documentedRoutes)
	if len(undocumented) > 0 {
		t.Fatalf("found %d undocumented API endpoints:\n%s", len(undocumented), formatRoutes(undocumented))
	}

	missingHandlers := diffRoutes(documentedRoutes, actualRoutes)
	if len(missingHandlers) > 0 {
		t.Fatalf("found %d documented endpoints without handlers:\n%s", len(missingHandlers), formatRoutes(missingHandlers))
	}

	t.Logf("checked %d API routes registered in chi", len(actualRoutes))
	t.Logf("OpenAPI spec documents %d API routes", len(documentedRoutes))
}

// signIn posts the token form and returns the session cookies
func signIn(t *testing.T, handler http.Handler, prefix, token string) []*http.Cookie {
	t.Helper()

	form := url.Values{"token": {token}}
	req := httptest.NewRequest(http.MethodPost, prefix+"sign-in", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(t, prefix+"deals", rec.Header().Get("Location"))
	return rec.Result().Cookies()
}

func get(handler http.Handler, target string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestDealsRedirectsWithoutViewer(t *testing.T) {
	handler := NewServer(newTestDependencies(t, "/")).Handler()

	rec := get(handler, "/deals", nil)
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	require.Equal(t, "/sign-in", rec.Header().Get("Location"))

	rec = get(handler, "/deals", []*http.Cookie{{Name: auth.SessionName, Value: "garbage"}})
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	rec = get(handler, "/api/deals", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignInRejectsUnknownToken(t *testing.T) {
	handler := NewServer(newTestDependencies(t, "/")).Handler()

	form := url.Values{"token": {"bad-token"}}
	req := httptest.NewRequest(http.MethodPost, "/sign-in", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid API key")
	require.Empty(t, rec.Result().Cookies())
}

func TestSignedInDealsPage(t *testing.T) {
	handler := NewServer(newTestDependencies(t, "/")).Handler()
	cookies := signIn(t, handler, "/", "good-token")

	rec := get(handler, "/deals", cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, "alice")
	require.Contains(t, body, "https://dweb.link/ipfs/bafyphoto")
	require.Contains(t, body, "(Total)")
	// newest first: photo.jpg (id 3) is rendered before the aggregate (id 1)
	require.Less(t, strings.Index(body, `id="card-3"`), strings.Index(body, `id="card-1"`))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = get(handler, "/sign-in", cookies)
	require.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestSignedInAPI(t *testing.T) {
	handler := NewServer(newTestDependencies(t, "/")).Handler()
	cookies := signIn(t, handler, "/", "good-token")

	rec := get(handler, "/api/deals?q=photo", cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	var page dashboard.PageView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Cards, 1)
	require.Equal(t, "photo.jpg", page.Cards[0].Name)
	require.Equal(t, "alice", page.Viewer.Username)

	rec = get(handler, "/api/deals/1?showFiles=true", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	var card dashboard.CardView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	require.Equal(t, "/", card.Name)
	require.Len(t, card.Files, 1)

	require.Equal(t, http.StatusNotFound, get(handler, "/api/deals/2", cookies).Code)
	require.Equal(t, http.StatusBadRequest, get(handler, "/api/deals/abc", cookies).Code)

	rec = get(handler, "/api/errors/3", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"contentId":3`)

	rec = get(handler, "/api/me", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"username":"alice"`)
	require.NotContains(t, rec.Body.String(), "good-token")
}

func TestSignOutClearsSession(t *testing.T) {
	handler := NewServer(newTestDependencies(t, "/")).Handler()
	cookies := signIn(t, handler, "/", "good-token")

	req := httptest.NewRequest(http.MethodPost, "/sign-out", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/sign-in", rec.Header().Get("Location"))
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	require.Less(t, cleared[0].MaxAge, 0)
}

func TestBaseURLPrefix(t *testing.T) {
	handler := NewServer(newTestDependencies(t, "/dash/")).Handler()

	rec := get(handler, "/dash/deals", nil)
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	require.Equal(t, "/dash/sign-in", rec.Header().Get("Location"))

	cookies := signIn(t, handler, "/dash/", "good-token")
	require.Equal(t, http.StatusOK, get(handler, "/dash/deals", cookies).Code)
	require.Equal(t, http.StatusOK, get(handler, "/dash/api/deals", cookies).Code)
	require.Equal(t, http.StatusNotFound, get(handler, "/", nil).Code)
}

func TestHealthEndpoints(t *testing.T) {
	handler := NewServer(newTestDependencies(t, "/")).Handler()

	require.Equal(t, http.StatusOK, get(handler, "/health", nil).Code)
	require.Equal(t, http.StatusOK, get(handler, "/healthz/readiness", nil).Code)

	rec := get(handler, "/healthz/liveness", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"version"`)
}

func collectRouterRoutes(t *testing.T, r chi.Routes) map[routeKey]struct{} {
	t.Helper()

	routes := make(map[routeKey]struct{})
	err := chi.Walk(r, func(method string, path string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		method = strings.ToUpper(method)
		if !isComparableMethod(method) {
			return nil
		}

		normalizedPath, ok := normalizeRoutePath(path)
		if !ok {
			return nil
		}

		routes[routeKey{Method: method, Path: normalizedPath}] = struct{}{}
		return nil
	})
	require.NoError(t, err)

	return routes
}

func loadDocumentedRoutes(t *testing.T) map[routeKey]struct{} {
	t.Helper()

	require.NotEmpty(t, openAPISpec, "OpenAPI spec should be embedded")

	var spec map[string]any
	require.NoError(t, yaml.Unmarshal(openAPISpec, &spec))

	pathsNode, ok := spec["paths"].(map[string]any)
	require.True(t, ok, "OpenAPI spec missing paths section")

	routes := make(map[routeKey]struct{})

	for path, pathItem := range pathsNode {
		normalizedPath, ok := normalizeRoutePath(path)
		if !ok {
			continue
		}

		methods, ok := pathItem.(map[string]any)
		if !ok {
			continue
		}

		for method := range methods {
			upperMethod := strings.ToUpper(method)
			if !isComparableMethod(upperMethod) {
				continue
			}

			routes[routeKey{Method: upperMethod, Path: normalizedPath}] = struct{}{}
		}
	}

	return routes
}

func normalizeRoutePath(path string) (string, bool) {
	if path == "" {
		return "", false
	}

	if strings.Contains(path, "/*") {
		return "", false
	}

	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}

	if path == "/api/openapi.yaml" {
		return "", false
	}

	if !strings.HasPrefix(path, "/api") && !strings.HasPrefix(path, "/health") {
		return "", false
	}

	path = strings.ReplaceAll(path, "{contentID}", "{contentId}")

	return path, true
}

func isComparableMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func diffRoutes(left, right map[routeKey]struct{}) []routeKey {
	diff := make([]routeKey, 0)
	for route := range left {
		if _, exists := right[route]; !exists {
			diff = append(diff, route)
		}
	}

	sort.Slice(diff, func(i, j int) bool {
		if diff[i].Path == diff[j].Path {
			return diff[i].Method < diff[j].Method
		}
		return diff[i].Path < diff[j].Path
	})

	return diff
}

func formatRoutes(routes []routeKey) string {
	lines := make([]string, len(routes))
	for i, route := range routes {
		lines[i] = fmt.Sprintf("%s %s", route.Method, route.Path)
	}
	return strings.Join(lines, "\n")
}
