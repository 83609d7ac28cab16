// Package handlers wires HTTP routes to the catalog, watchlist, monitor,
// mailer, and upload services, and renders the server-side templates.
package handlers

import (
	"embed"
	"html/template"
	"net/http"

	"log/slog"

	"github.com/subhubsl/subhub/lib/auth"
	"github.com/subhubsl/subhub/models"
)

//go:embed templates/*.html
var templateFS embed.FS

func parseTemplates(files ...string) (*template.Template, error) {
	return template.ParseFS(templateFS, append([]string{"templates/base.html"}, files...)...)
}

// baseData is embedded in every page's template data.
type baseData struct {
	Viewer  *models.User
	IsAdmin bool
	ShowAds bool
}

// newBaseData derives the shared view state from the request. Ads are shown
// to everyone except admins.
func newBaseData(r *http.Request) baseData {
	user, role := auth.UserFrom(r.Context())
	return baseData{
		Viewer:  user,
		IsAdmin: role == auth.RoleAdmin,
		ShowAds: role != auth.RoleAdmin,
	}
}

type errorData struct {
	baseData
	Message string
}

// renderError shows the inline error state. Store failures land here;
// not-found and forbidden have their own paths.
func renderError(w http.ResponseWriter, r *http.Request, message string, status int) {
	tmpl, err := parseTemplates("templates/error.html")
	if err != nil {
		slog.Error("Failed to parse error template", slog.Any("error", err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if err := tmpl.Execute(w, errorData{baseData: newBaseData(r), Message: message}); err != nil {
		slog.Error("Failed to execute error template", slog.Any("error", err))
	}
}

// renderNotFound renders the dedicated 404 page.
func renderNotFound(w http.ResponseWriter, r *http.Request) {
	tmpl, err := parseTemplates("templates/notfound.html")
	if err != nil {
		slog.Error("Failed to parse notfound template", slog.Any("error", err))
		http.NotFound(w, r)
		return
	}

	w.WriteHeader(http.StatusNotFound)
	if err := tmpl.Execute(w, newBaseData(r)); err != nil {
		slog.Error("Failed to execute notfound template", slog.Any("error", err))
	}
}

func renderPage(w http.ResponseWriter, r *http.Request, page string, data any) {
	tmpl, err := parseTemplates("templates/" + page)
	if err != nil {
		slog.Error("Failed to parse template", slog.String("page", page), slog.Any("error", err))
		renderError(w, r, "Something went wrong while loading the page.", http.StatusInternalServerError)
		return
	}

	if err := tmpl.Execute(w, data); err != nil {
		slog.Error("Failed to execute template", slog.String("page", page), slog.Any("error", err))
	}
}
