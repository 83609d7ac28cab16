package drive

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySingleFlight(t *testing.T) {
	r := NewRegistry()

	job, err := r.Start("job-1", "movie.mkv", "Alpha Strike", 1000)
	require.NoError(t, err)
	assert.Equal(t, StatusPreparing, job.Snapshot().Status)

	// A live job id cannot be started twice.
	_, err = r.Start("job-1", "movie.mkv", "Alpha Strike", 1000)
	assert.Error(t, err)

	// After the job reaches a terminal state the id is reusable.
	job.update(func(s *Snapshot) { s.Status = StatusError; s.Error = "token expired" })
	_, err = r.Start("job-1", "movie.mkv", "Alpha Strike", 1000)
	assert.NoError(t, err)
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Get("missing")
	assert.False(t, ok)

	started, err := r.Start("job-2", "show.mkv", "Echo Files", 500)
	require.NoError(t, err)

	got, ok := r.Get("job-2")
	require.True(t, ok)
	assert.Equal(t, started.Snapshot(), got.Snapshot())
}

func TestJobEventsNeverBlock(t *testing.T) {
	r := NewRegistry()
	job, err := r.Start("job-3", "a.mkv", "Folder", 100)
	require.NoError(t, err)

	// Nobody is draining the channel; updates must still return.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			job.update(func(s *Snapshot) { s.Sent = int64(i) })
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("update blocked on a full event channel")
	}
}

func TestProgressReaderCoalesces(t *testing.T) {
	r := NewRegistry()
	job, err := r.Start("job-4", "big.mkv", "Folder", 1000)
	require.NoError(t, err)

	reader := newProgressReader(strings.NewReader(strings.Repeat("x", 1000)), 1000, job)

	// Many small reads inside one interval produce no snapshot churn.
	buf := make([]byte, 10)
	for i := 0; i < 50; i++ {
		_, err := reader.Read(buf)
		require.NoError(t, err)
	}
	assert.Zero(t, job.Snapshot().Sent)

	// Once the interval passes, the next read publishes the running totals.
	time.Sleep(progressInterval + 50*time.Millisecond)
	_, err = reader.Read(buf)
	require.NoError(t, err)

	snap := job.Snapshot()
	assert.Equal(t, int64(510), snap.Sent)
	assert.InDelta(t, 51.0, snap.Percent, 0.01)
	assert.Greater(t, snap.Rate, 0.0)
}

func TestProgressNeverMovesBackwards(t *testing.T) {
	r := NewRegistry()
	job, err := r.Start("job-5", "big.mkv", "Folder", 1000)
	require.NoError(t, err)

	job.update(func(s *Snapshot) { s.Percent = 80 })

	reader := newProgressReader(strings.NewReader(strings.Repeat("x", 100)), 1000, job)
	reader.lastEmit = time.Now().Add(-2 * progressInterval)

	buf := make([]byte, 100)
	_, err = reader.Read(buf)
	require.NoError(t, err)

	// The computed 10% is below the recorded 80% and must not win.
	assert.Equal(t, 80.0, job.Snapshot().Percent)
	assert.Equal(t, int64(100), job.Snapshot().Sent)
}
