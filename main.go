package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/subhubsl/subhub/handlers"
	"github.com/subhubsl/subhub/lib/auth"
	"github.com/subhubsl/subhub/lib/catalog"
	"github.com/subhubsl/subhub/lib/db"
	"github.com/subhubsl/subhub/lib/drive"
	"github.com/subhubsl/subhub/lib/health"
	"github.com/subhubsl/subhub/lib/mailer"
	"github.com/subhubsl/subhub/lib/monitor"
	"github.com/subhubsl/subhub/lib/ratelimit"
	"github.com/subhubsl/subhub/lib/tmdb"
	"github.com/subhubsl/subhub/lib/watchlist"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config is everything the app reads from the environment.
type Config struct {
	DBPath         string
	Port           string
	SessionKey     string
	AdminEmails    []string
	CronSecret     string
	TMDBAPIKey     string
	OpenAIAPIKey   string
	ResendAPIKey   string
	MailFrom       string
	MailRecipients []string
	Drive          drive.AuthConfig
	Sources        []monitor.Source
}

func loadConfig() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		DBPath:       os.Getenv("DB_PATH"),
		Port:         os.Getenv("PORT"),
		SessionKey:   os.Getenv("SESSION_KEY"),
		CronSecret:   os.Getenv("CRON_SECRET"),
		TMDBAPIKey:   os.Getenv("TMDB_API_KEY"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		MailFrom:     os.Getenv("MAIL_FROM"),
		Drive: drive.AuthConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RefreshToken: os.Getenv("GOOGLE_REFRESH_TOKEN"),
			RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		},
	}

	if cfg.DBPath == "" {
		cfg.DBPath = "subhub.db"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.MailFrom == "" {
		cfg.MailFrom = "SubHub SL <updates@subhubsl.com>"
	}

	cfg.AdminEmails = splitList(os.Getenv("ADMIN_EMAILS"))
	cfg.MailRecipients = splitList(os.Getenv("MAIL_RECIPIENTS"))
	cfg.Sources = feedSources(os.Getenv("FEED_SOURCES"))

	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// feedSources parses "Name=URL,Name=URL". Without configuration the monitor
// watches the two sites whose updates the site republishes.
func feedSources(s string) []monitor.Source {
	if s == "" {
		return []monitor.Source{
			{Name: "Cineru", URL: "https://cineru.lk/feed/"},
			{Name: "Baiscope", URL: "https://www.baiscope.lk/feed/"},
		}
	}

	var sources []monitor.Source
	for _, part := range strings.Split(s, ",") {
		name, url, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name != "" && url != "" {
			sources = append(sources, monitor.Source{Name: name, URL: url})
		}
	}
	return sources
}

type App struct {
	cfg    Config
	db     *gorm.DB
	router *chi.Mux

	catalog   *catalog.Service
	watchlist *watchlist.Service
	auth      *auth.Service
	tmdb      *tmdb.Client
	mailer    *mailer.Mailer
	monitor   *monitor.Monitor
	uploader  *drive.Uploader
	limiter   *ratelimit.Limiter
}

func NewApp(cfg Config) (*App, error) {
	logger := slog.Default()

	gdb, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{
		Logger: db.NewGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.RunMigrations(gdb, logger); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	m := mailer.New(mailer.Config{
		APIKey:     cfg.ResendAPIKey,
		From:       cfg.MailFrom,
		Recipients: cfg.MailRecipients,
	}, logger)

	driveAuth := drive.NewAuth(cfg.Drive, logger)

	app := &App{
		cfg:       cfg,
		db:        gdb,
		router:    chi.NewRouter(),
		catalog:   catalog.New(gdb, logger),
		watchlist: watchlist.New(gdb, logger),
		auth:      auth.New(gdb, cfg.SessionKey, cfg.AdminEmails, logger),
		tmdb:      tmdb.NewClient(cfg.TMDBAPIKey, logger),
		mailer:    m,
		monitor:   monitor.New(gdb, cfg.Sources, m, logger),
		uploader:  drive.NewUploader(driveAuth, drive.NewRegistry(), logger),
		limiter:   ratelimit.New(logger),
	}

	app.setupRoutes()
	return app, nil
}

func (a *App) setupRoutes() {
	r := a.router

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(a.auth.WithUser)

	r.NotFound(handlers.HandleNotFound())

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// Public catalog pages.
	r.Get("/", handlers.HandleHome(a.catalog))
	for segment, collection := range handlers.PathCollections {
		r.Get("/"+segment, handlers.HandleList(a.catalog, collection))
	}
	r.Get("/category/{slug}", handlers.HandleCategory(a.catalog))
	r.Get("/search", handlers.HandleSearch(a.catalog))
	r.Get("/{section}/{id:[0-9]+}", handlers.HandleDetail(a.catalog, a.watchlist))

	// Accounts.
	r.Get("/login", handlers.HandleLoginPage())
	r.Post("/login", handlers.HandleLogin(a.auth))
	r.Get("/register", handlers.HandleRegisterPage())
	r.Post("/register", handlers.HandleRegister(a.auth))
	r.Post("/logout", handlers.HandleLogout(a.auth))

	r.Group(func(r chi.Router) {
		r.Use(a.auth.RequireUser)
		r.Get("/my-list", handlers.HandleMyList(a.watchlist))
		r.Get("/profile", handlers.HandleProfile())
	})
	r.Post("/watchlist", handlers.HandleWatchlistToggle(a.watchlist))

	// Contact form.
	r.Get("/contact", handlers.HandleContactPage())
	r.With(a.limiter.Middleware(ratelimit.Policy{
		Name: "contact", Limit: 5, Window: time.Minute,
	})).Post("/contact", handlers.HandleContact(a.db))

	// Admin.
	r.Group(func(r chi.Router) {
		r.Use(a.auth.RequireAdmin)
		r.Get("/admin", handlers.HandleAdminDashboard(a.catalog))
		r.Get("/admin/{section}/new", handlers.HandleAdminNewForm(a.tmdb))
		r.Post("/admin/{section}/new", handlers.HandleAdminCreate(a.catalog, a.mailer))
		r.Get("/admin/{section}/{id}/edit", handlers.HandleAdminEditForm(a.catalog))
		r.Post("/admin/{section}/{id}", handlers.HandleAdminUpdate(a.catalog))
		r.Post("/admin/{section}/{id}/delete", handlers.HandleAdminDelete(a.catalog))
		r.Get("/admin/tmdb/search", handlers.HandleTMDBSearch(a.tmdb))
		r.Get("/admin/tmdb/{type}/{id}", handlers.HandleTMDBDetail(a.tmdb))

		r.Get("/upload", handlers.HandleUploadPage(a.uploader.Auth()))
		r.Get("/auth/google", handlers.HandleDriveConsent(a.uploader.Auth()))
		r.Get("/auth/google/callback", handlers.HandleDriveCallback(a.uploader.Auth()))
		r.Post("/api/uploads", handlers.HandleUploadStart(a.uploader))
		r.Get("/api/uploads/{id}", handlers.HandleUploadStatus(a.uploader))
	})

	// API.
	r.Get("/healthz", health.Check(a.db))
	r.Get("/api/cron", handlers.HandleCron(a.monitor, a.cfg.CronSecret))
	r.With(a.limiter.Middleware(ratelimit.Policy{
		Name: "chat", Limit: 10, Window: time.Minute,
	})).Post("/api/chat", handlers.HandleChat(a.cfg.OpenAIAPIKey))
	r.With(a.limiter.Middleware(ratelimit.Policy{
		Name: "track", Limit: 60, Window: time.Minute,
	})).Post("/api/track", handlers.HandleTrack())
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := loadConfig()
	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("Failed to start", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("Starting server", slog.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, app.router); err != nil {
		slog.Error("Server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
