package drive

import (
	"context"
	"io"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuth() *Auth {
	return NewAuth(AuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://subhubsl.com/auth/google/callback",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTokenRequiresAuthWithoutCredentials(t *testing.T) {
	a := testAuth()

	_, err := a.Token(context.Background())
	assert.ErrorIs(t, err, ErrAuthRequired)

	_, err = a.TokenSource(context.Background())
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestConsentURL(t *testing.T) {
	a := testAuth()

	url := a.ConsentURL("upload")
	assert.Contains(t, url, "client-id")
	assert.Contains(t, url, "state=upload")
	assert.Contains(t, url, "accounts.google.com")
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `It\'s a Movie`, escapeQuery("It's a Movie"))
	assert.Equal(t, `back\\slash`, escapeQuery(`back\slash`))
	assert.Equal(t, "plain", escapeQuery("plain"))
}

func TestFailMarksJobTerminal(t *testing.T) {
	r := NewRegistry()
	job, err := r.Start("job-err", "a.mkv", "Folder", 10)
	require.NoError(t, err)

	u := NewUploader(testAuth(), r, slog.New(slog.NewTextHandler(io.Discard, nil)))
	retErr := u.fail(job, ErrAuthRequired)
	assert.ErrorIs(t, retErr, ErrAuthRequired)

	snap := job.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, ErrAuthRequired.Error(), snap.Error)
}
