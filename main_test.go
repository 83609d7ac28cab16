package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	app, err := NewApp(Config{
		DBPath:     filepath.Join(t.TempDir(), "test.db"),
		Port:       "0",
		SessionKey: "test-session-key",
		CronSecret: "cron-secret",
	})
	require.NoError(t, err)
	return app
}

func TestCronRouteAnswersScheduledGet(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cron", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count"`)
}

func TestHealthzRoute(t *testing.T) {
	app := newTestApp(t)

	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestFeedSourcesParsing(t *testing.T) {
	sources := feedSources("Cineru=https://cineru.lk/feed/, Baiscope=https://www.baiscope.lk/feed/")
	require.Len(t, sources, 2)
	assert.Equal(t, "Cineru", sources[0].Name)
	assert.Equal(t, "https://www.baiscope.lk/feed/", sources[1].URL)

	// Defaults kick in when nothing is configured.
	assert.Len(t, feedSources(""), 2)

	// Malformed entries are dropped, not fatal.
	assert.Empty(t, feedSources("just-a-url"))
}
