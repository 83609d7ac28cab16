package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subhubsl/subhub/lib/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(gdb, logger))

	return New(gdb, "test-session-key", []string{"Admin@Example.com"}, logger)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Viewer@Example.com", "Viewer", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "viewer@example.com", user.Email)
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	_, err = svc.Register(ctx, "viewer@example.com", "Again", "other")
	assert.ErrorIs(t, err, ErrEmailTaken)

	got, err := svc.Authenticate(ctx, "viewer@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "viewer@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIsAdminIgnoresCase(t *testing.T) {
	svc := newTestService(t)

	assert.True(t, svc.IsAdmin("admin@example.com"))
	assert.True(t, svc.IsAdmin("ADMIN@EXAMPLE.COM"))
	assert.False(t, svc.IsAdmin("viewer@example.com"))
}

// signIn registers a user and returns a request carrying their session cookie.
func signIn(t *testing.T, svc *Service, email string) *http.Request {
	t.Helper()

	user, err := svc.Register(context.Background(), email, "Tester", "hunter22")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	require.NoError(t, svc.SignIn(rec, req, user))

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}
	return next
}

func TestSessionRoundtrip(t *testing.T) {
	svc := newTestService(t)

	req := signIn(t, svc, "viewer@example.com")
	user, role := svc.CurrentUser(req)
	require.NotNil(t, user)
	assert.Equal(t, "viewer@example.com", user.Email)
	assert.Equal(t, RoleUser, role)

	admin := signIn(t, svc, "admin@example.com")
	_, role = svc.CurrentUser(admin)
	assert.Equal(t, RoleAdmin, role)

	// No cookie at all is simply anonymous.
	user, role = svc.CurrentUser(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Nil(t, user)
	assert.Equal(t, RoleAnonymous, role)
}

func TestSignOutClearsSession(t *testing.T) {
	svc := newTestService(t)
	req := signIn(t, svc, "viewer@example.com")

	rec := httptest.NewRecorder()
	require.NoError(t, svc.SignOut(rec, req))

	cleared := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		cleared.AddCookie(c)
	}
	_, role := svc.CurrentUser(cleared)
	assert.Equal(t, RoleAnonymous, role)
}

func gated(t *testing.T, svc *Service, gate func(http.Handler) http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	handler := svc.WithUser(gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireUserRedirectsAnonymous(t *testing.T) {
	svc := newTestService(t)

	rec := gated(t, svc, svc.RequireUser, httptest.NewRequest(http.MethodGet, "/my-list", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = gated(t, svc, svc.RequireUser, signIn(t, svc, "viewer@example.com"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdminGate(t *testing.T) {
	svc := newTestService(t)

	// Anonymous goes to sign-in.
	rec := gated(t, svc, svc.RequireAdmin, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	// A signed-in non-admin is sent home, never a hard error.
	rec = gated(t, svc, svc.RequireAdmin, signIn(t, svc, "viewer@example.com"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = gated(t, svc, svc.RequireAdmin, signIn(t, svc, "admin@example.com"))
	assert.Equal(t, http.StatusOK, rec.Code)
}
