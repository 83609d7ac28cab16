package drive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	driveapi "google.golang.org/api/drive/v3"
)

// ErrAuthRequired means no credential path produced a token; the caller must
// send the user through the interactive consent flow before uploading.
var ErrAuthRequired = errors.New("drive authorization required")

const cachedTokenKey = "drive_token"

// AuthConfig carries the OAuth client plus the optional server-held
// refresh token that enables automatic sign-in.
type AuthConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	RedirectURL  string
}

// Auth resolves a bearer token through a layered strategy: server refresh
// token first, then a short-lived cached token from a previous consent,
// otherwise ErrAuthRequired.
type Auth struct {
	conf   *oauth2.Config
	refr   string
	tokens *gocache.Cache
	logger *slog.Logger
}

func NewAuth(cfg AuthConfig, logger *slog.Logger) *Auth {
	return &Auth{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{driveapi.DriveFileScope},
		},
		refr:   cfg.RefreshToken,
		tokens: gocache.New(55*time.Minute, 10*time.Minute),
		logger: logger,
	}
}

// Token returns a valid bearer token or ErrAuthRequired. It never lets an
// upload start without one.
func (a *Auth) Token(ctx context.Context) (*oauth2.Token, error) {
	if a.refr != "" {
		token, err := a.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: a.refr}).Token()
		if err == nil {
			return token, nil
		}
		a.logger.Warn("refresh token exchange failed, falling back", slog.Any("error", err))
	}

	if v, ok := a.tokens.Get(cachedTokenKey); ok {
		token := v.(*oauth2.Token)
		if token.Valid() {
			return token, nil
		}
	}

	return nil, ErrAuthRequired
}

// ConsentURL starts the interactive flow.
func (a *Auth) ConsentURL(state string) string {
	return a.conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange completes the interactive flow and caches the short-lived token.
func (a *Auth) Exchange(ctx context.Context, code string) error {
	token, err := a.conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange consent code: %w", err)
	}
	a.tokens.SetDefault(cachedTokenKey, token)
	return nil
}

// TokenSource adapts Token for the Drive service constructor.
func (a *Auth) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	token, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}
	return a.conf.TokenSource(ctx, token), nil
}
