package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modvault/modvault/internal/auth"
	"github.com/modvault/modvault/internal/config"
	"github.com/modvault/modvault/internal/db/models"
	"github.com/modvault/modvault/internal/search"
)

type noUserStore struct{}

func (noUserStore) GetUserByTokenHash(ctx context.Context, hash string) (*models.User, error) {
	return nil, nil
}
func (noUserStore) GetByID(ctx context.Context, id int) (*models.User, error)      { return nil, nil }
func (noUserStore) CreateToken(ctx context.Context, token *models.UserToken) error { return nil }
func (noUserStore) DeleteToken(ctx context.Context, hash string) error             { return nil }

func newTestRouter(t *testing.T) (*httptest.Server, sqlmock.Sqlmock) {
	t.Helper()
	return newTestRouterWithSearcher(t, nil)
}

func newTestRouterWithSearcher(t *testing.T, searcher Searcher) (*httptest.Server, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	resolver := auth.NewResolver(noUserStore{}, time.Hour, nil)
	h := NewHandlers(nil, nil, resolver, searcher, nil, cfg, nil)

	srv := httptest.NewServer(NewRouter(cfg, h, resolver, nil, db))
	t.Cleanup(srv.Close)
	return srv, mock
}

func TestHealthEndpoint(t *testing.T) {
	srv, mock := newTestRouter(t)
	mock.ExpectPing()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVersionEndpoint(t *testing.T) {
	srv, _ := newTestRouter(t)

	resp, err := http.Get(srv.URL + "/version")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMutationsRequireAuthentication(t *testing.T) {
	srv, _ := newTestRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/projects"},
		{http.MethodDelete, "/api/v1/projects/my-mod"},
		{http.MethodPost, "/api/v1/projects/my-mod/versions"},
		{http.MethodPost, "/api/v1/projects/my-mod/gallery"},
		{http.MethodPost, "/api/v1/admin/reindex"},
		{http.MethodGet, "/api/v1/moderation/queue"},
		{http.MethodGet, "/api/v1/auth/me"},
	}

	for _, p := range paths {
		req, err := http.NewRequest(p.method, srv.URL+p.path, nil)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", p.method, p.path)
	}
}

func TestStaleTokenRejectedNotDowngraded(t *testing.T) {
	srv, _ := newTestRouter(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/search", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer mvt_stale")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSearchRejectsPrivilegedFacet(t *testing.T) {
	srv, _ := newTestRouter(t)

	// visibility is derived server-side from the caller's identity; a client
	// supplying it directly is a 400, not a silent drop.
	resp, err := http.Get(srv.URL + "/api/v1/search?facets=visibility:Private")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchRejectsUnknownSort(t *testing.T) {
	srv, _ := newTestRouter(t)

	resp, err := http.Get(srv.URL + "/api/v1/search?sort=relevance-but-wrong")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type recordingSearcher struct{ last search.Query }

func (s *recordingSearcher) Search(ctx context.Context, q search.Query, id search.Identity) (*search.Results, error) {
	s.last = q
	return &search.Results{Hits: []models.ProjectData{}}, nil
}

// An absent per_page gets the default; an explicit per_page=0 is passed
// through so the search layer clamps it to 1 instead of silently restoring
// the default.
func TestSearchPerPageDefaultsOnlyWhenAbsent(t *testing.T) {
	searcher := &recordingSearcher{}
	srv, _ := newTestRouterWithSearcher(t, searcher)

	resp, err := http.Get(srv.URL + "/api/v1/search")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, search.DefaultPerPage, searcher.last.PerPage)

	resp, err = http.Get(srv.URL + "/api/v1/search?per_page=0")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, searcher.last.PerPage)
}

func TestSecurityHeadersOnEveryResponse(t *testing.T) {
	srv, _ := newTestRouter(t)

	resp, err := http.Get(srv.URL + "/version")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
