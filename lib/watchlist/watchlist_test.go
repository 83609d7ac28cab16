package watchlist

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subhubsl/subhub/lib/db"
	"github.com/subhubsl/subhub/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(gdb, logger))

	return New(gdb, logger), gdb
}

func TestAddIsIdempotent(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, 1, models.CollectionMovies, 7))
	require.NoError(t, svc.Add(ctx, 1, models.CollectionMovies, 7))

	var count int64
	require.NoError(t, gdb.Model(&models.WatchlistEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	member, err := svc.IsMember(ctx, 1, models.CollectionMovies, 7)
	require.NoError(t, err)
	assert.True(t, member)
}

func TestSameIDInDifferentCollections(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, 1, models.CollectionMovies, 7))
	require.NoError(t, svc.Add(ctx, 1, models.CollectionTVShows, 7))

	var count int64
	require.NoError(t, gdb.Model(&models.WatchlistEntry{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRemoveMissingEdgeSucceeds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, 1, models.CollectionMovies, 7))
	require.NoError(t, svc.Remove(ctx, 1, models.CollectionMovies, 7))
	require.NoError(t, svc.Remove(ctx, 1, models.CollectionMovies, 7))

	member, err := svc.IsMember(ctx, 1, models.CollectionMovies, 7)
	require.NoError(t, err)
	assert.False(t, member)
}

func TestListForUserResolvesContent(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()

	movie := models.Movie{ContentFields: models.ContentFields{Title: "Alpha Strike", Year: 2021}}
	require.NoError(t, gdb.Create(&movie).Error)
	show := models.TVShow{ContentFields: models.ContentFields{Title: "Echo Files", Year: 2024}}
	require.NoError(t, gdb.Create(&show).Error)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, gdb.Create(&models.WatchlistEntry{
		UserID: 1, Collection: models.CollectionMovies, ContentID: movie.ID, CreatedAt: base,
	}).Error)
	require.NoError(t, gdb.Create(&models.WatchlistEntry{
		UserID: 1, Collection: models.CollectionTVShows, ContentID: show.ID, CreatedAt: base.Add(time.Hour),
	}).Error)

	items, err := svc.ListForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	// Newest edge first.
	assert.Equal(t, "Echo Files", items[0].Title)
	assert.Equal(t, models.CollectionTVShows, items[0].Collection)
	assert.Equal(t, "Alpha Strike", items[1].Title)

	// Another user's edges are invisible.
	items, err = svc.ListForUser(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestListForUserDropsDanglingEdges(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()

	movie := models.Movie{ContentFields: models.ContentFields{Title: "Alpha Strike"}}
	require.NoError(t, gdb.Create(&movie).Error)
	require.NoError(t, svc.Add(ctx, 1, models.CollectionMovies, movie.ID))
	require.NoError(t, svc.Add(ctx, 1, models.CollectionMovies, 9999))

	items, err := svc.ListForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Alpha Strike", items[0].Title)
}
