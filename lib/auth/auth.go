// Package auth classifies each request as anonymous, authenticated, or
// admin, and gates the protected route prefixes. Identity lives in a signed
// session cookie; admin is an email allow-list from configuration.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"log/slog"

	"github.com/gorilla/sessions"
	"github.com/subhubsl/subhub/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Role is the request classification used by the gate.
type Role int

const (
	RoleAnonymous Role = iota
	RoleUser
	RoleAdmin
)

const sessionName = "subhub_session"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned when registering an existing address.
	ErrEmailTaken = errors.New("email already registered")
)

type contextKey struct{}

type Service struct {
	db          *gorm.DB
	store       *sessions.CookieStore
	adminEmails map[string]bool
	logger      *slog.Logger
}

func New(db *gorm.DB, sessionKey string, adminEmails []string, logger *slog.Logger) *Service {
	admins := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			admins[email] = true
		}
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options.HttpOnly = true
	store.Options.SameSite = http.SameSiteLaxMode

	return &Service{
		db:          db,
		store:       store,
		adminEmails: admins,
		logger:      logger,
	}
}

// IsAdmin reports whether the address is on the configured allow-list.
func (s *Service) IsAdmin(email string) bool {
	return s.adminEmails[strings.ToLower(email)]
}

// Register creates a user with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, email, displayName, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// Authenticate checks credentials and returns the matching user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// SignIn stores the user id in the session cookie.
func (s *Service) SignIn(w http.ResponseWriter, r *http.Request, user *models.User) error {
	session, _ := s.store.Get(r, sessionName)
	session.Values["user_id"] = user.ID
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// SignOut clears the session.
func (s *Service) SignOut(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, sessionName)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// CurrentUser resolves the session to a user row. A broken or stale session
// classifies as anonymous rather than erroring the request.
func (s *Service) CurrentUser(r *http.Request) (*models.User, Role) {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		return nil, RoleAnonymous
	}
	id, ok := session.Values["user_id"].(uint)
	if !ok || id == 0 {
		return nil, RoleAnonymous
	}

	var user models.User
	if err := s.db.WithContext(r.Context()).First(&user, id).Error; err != nil {
		return nil, RoleAnonymous
	}

	if s.IsAdmin(user.Email) {
		return &user, RoleAdmin
	}
	return &user, RoleUser
}

// WithUser loads the viewer once per request and stashes it in the context.
func (s *Service) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, role := s.CurrentUser(r)
		ctx := context.WithValue(r.Context(), contextKey{}, viewer{user: user, role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type viewer struct {
	user *models.User
	role Role
}

// UserFrom returns the viewer placed by WithUser; nil user means anonymous.
func UserFrom(ctx context.Context) (*models.User, Role) {
	v, ok := ctx.Value(contextKey{}).(viewer)
	if !ok {
		return nil, RoleAnonymous
	}
	return v.user, v.role
}

// RequireUser redirects anonymous visitors to the sign-in page.
func (s *Service) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, role := UserFrom(r.Context()); role == RoleAnonymous {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin sends anonymous visitors to sign-in and authenticated
// non-admins home. Never a hard error.
func (s *Service) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, role := UserFrom(r.Context())
		switch role {
		case RoleAdmin:
			next.ServeHTTP(w, r)
		case RoleUser:
			http.Redirect(w, r, "/", http.StatusSeeOther)
		default:
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		}
	})
}
