package tmdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-key", slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.baseURL = srv.URL
	return c
}

func TestDisabledClient(t *testing.T) {
	c := NewClient("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.False(t, c.Enabled())

	_, err := c.SearchMovie(context.Background(), "Alpha Strike", 2021)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestSearchMovie(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "Alpha Strike", r.URL.Query().Get("query"))
		assert.Equal(t, "2021", r.URL.Query().Get("year"))
		fmt.Fprint(w, `{"results":[{"id":42,"title":"Alpha Strike","release_date":"2021-06-01","vote_average":7.1}]}`)
	})

	result, err := c.SearchMovie(context.Background(), "Alpha Strike", 2021)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, 42, result.Results[0].ID)
	assert.Equal(t, "Alpha Strike", result.Results[0].Title)
}

func TestMovieWithCredits(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/42", r.URL.Path)
		assert.Equal(t, "credits", r.URL.Query().Get("append_to_response"))
		fmt.Fprint(w, `{"id":42,"title":"Alpha Strike","genres":[{"name":"Action"}],"credits":{"cast":[{"name":"Ana Reyes"},{"name":"Bo Park"}]}}`)
	})

	detail, err := c.MovieWithCredits(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Action", detail.Genres[0].Name)
	assert.Len(t, detail.Credits.Cast, 2)
}

func TestGetErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.MovieWithCredits(context.Background(), 42)
	assert.ErrorContains(t, err, "404")
}

func TestImageURLs(t *testing.T) {
	c := NewClient("test-key", slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Equal(t, "https://image.tmdb.org/t/p/w500/poster.jpg", c.GetPosterURL("/poster.jpg"))
	assert.Equal(t, "https://image.tmdb.org/t/p/original/backdrop.jpg", c.GetBackdropURL("/backdrop.jpg"))
	assert.Empty(t, c.GetPosterURL(""))
	assert.Empty(t, c.GetBackdropURL(""))
}

func TestCastNames(t *testing.T) {
	names := []string{"Ana Reyes", "Bo Park", "Cleo Fernando"}
	assert.Equal(t, "Ana Reyes, Bo Park", CastNames(names, 2))
	assert.Equal(t, "Ana Reyes, Bo Park, Cleo Fernando", CastNames(names, 10))
	assert.Empty(t, CastNames(nil, 10))
}
