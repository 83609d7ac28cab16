package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/subhubsl/subhub/lib/catalog"
	"github.com/subhubsl/subhub/lib/mailer"
	"github.com/subhubsl/subhub/lib/tmdb"
	"github.com/subhubsl/subhub/models"
)

type adminDashboardData struct {
	baseData
	Stats  *catalog.Stats
	Titles map[string]string
}

// HandleAdminDashboard shows catalog counts.
func HandleAdminDashboard(svc *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			slog.Error("Failed to load admin stats", slog.Any("error", err))
			renderError(w, r, "We couldn't load the dashboard. Please try again later.", http.StatusInternalServerError)
			return
		}

		renderPage(w, r, "admin_dashboard.html", adminDashboardData{
			baseData: newBaseData(r),
			Stats:    stats,
			Titles:   SectionTitles,
		})
	}
}

type adminFormData struct {
	baseData
	Item        *models.ContentItem
	Section     string
	PathSegment string
	TMDBEnabled bool
	Error       string
}

// HandleAdminNewForm renders an empty content form for a collection.
func HandleAdminNewForm(tmdbClient *tmdb.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		segment := chi.URLParam(r, "section")
		collection, ok := PathCollections[segment]
		if !ok {
			renderNotFound(w, r)
			return
		}

		renderPage(w, r, "admin_form.html", adminFormData{
			baseData:    newBaseData(r),
			Item:        &models.ContentItem{Collection: collection},
			Section:     SectionTitles[collection],
			PathSegment: segment,
			TMDBEnabled: tmdbClient.Enabled(),
		})
	}
}

func contentFromForm(r *http.Request) models.ContentFields {
	year, _ := strconv.Atoi(r.FormValue("year"))
	rating, _ := strconv.ParseFloat(r.FormValue("rating"), 64)
	return models.ContentFields{
		Title:       r.FormValue("title"),
		Year:        year,
		Category:    r.FormValue("category"),
		Language:    r.FormValue("language"),
		Rating:      rating,
		PosterURL:   r.FormValue("poster_url"),
		BackdropURL: r.FormValue("backdrop_url"),
		Description: r.FormValue("description"),
		Cast:        r.FormValue("cast"),
	}
}

// HandleAdminCreate inserts a content row and fires the new-title email.
// A failed or disabled send never fails the create.
func HandleAdminCreate(svc *catalog.Service, m *mailer.Mailer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		segment := chi.URLParam(r, "section")
		collection, ok := PathCollections[segment]
		if !ok {
			renderNotFound(w, r)
			return
		}

		fields := contentFromForm(r)
		if err := svc.Create(r.Context(), collection, &fields); err != nil {
			slog.Error("Failed to create content", slog.Any("error", err))
			renderError(w, r, "We couldn't save this title. Please try again later.", http.StatusInternalServerError)
			return
		}

		item := &models.ContentItem{ContentFields: fields, Collection: collection}
		go func() {
			result := m.NotifyNewTitle(context.Background(), item)
			if result.Err != nil {
				slog.Error("Failed to send new-title email", slog.Any("error", result.Err))
			}
		}()

		http.Redirect(w, r, "/"+segment+"/"+strconv.FormatUint(uint64(fields.ID), 10), http.StatusSeeOther)
	}
}

// HandleAdminEditForm renders the form pre-filled with an existing row.
func HandleAdminEditForm(svc *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		segment := chi.URLParam(r, "section")
		collection, ok := PathCollections[segment]
		if !ok {
			renderNotFound(w, r)
			return
		}
		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
		if err != nil {
			renderNotFound(w, r)
			return
		}

		item, _, err := svc.Detail(r.Context(), collection, uint(id), 0, nil)
		if errors.Is(err, catalog.ErrNotFound) {
			renderNotFound(w, r)
			return
		}
		if err != nil {
			slog.Error("Failed to load content for edit", slog.Any("error", err))
			renderError(w, r, "We couldn't load this title. Please try again later.", http.StatusInternalServerError)
			return
		}

		renderPage(w, r, "admin_form.html", adminFormData{
			baseData:    newBaseData(r),
			Item:        item,
			Section:     SectionTitles[collection],
			PathSegment: segment,
		})
	}
}

// HandleAdminUpdate persists edits to an existing row.
func HandleAdminUpdate(svc *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		segment := chi.URLParam(r, "section")
		collection, ok := PathCollections[segment]
		if !ok {
			renderNotFound(w, r)
			return
		}
		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
		if err != nil {
			renderNotFound(w, r)
			return
		}

		fields := contentFromForm(r)
		fields.ID = uint(id)
		err = svc.Update(r.Context(), collection, &fields)
		if errors.Is(err, catalog.ErrNotFound) {
			renderNotFound(w, r)
			return
		}
		if err != nil {
			slog.Error("Failed to update content", slog.Any("error", err))
			renderError(w, r, "We couldn't save this title. Please try again later.", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, "/"+segment+"/"+strconv.FormatUint(id, 10), http.StatusSeeOther)
	}
}

// HandleAdminDelete removes a row.
func HandleAdminDelete(svc *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		segment := chi.URLParam(r, "section")
		collection, ok := PathCollections[segment]
		if !ok {
			renderNotFound(w, r)
			return
		}
		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
		if err != nil {
			renderNotFound(w, r)
			return
		}

		err = svc.Delete(r.Context(), collection, uint(id))
		if err != nil && !errors.Is(err, catalog.ErrNotFound) {
			slog.Error("Failed to delete content", slog.Any("error", err))
			renderError(w, r, "We couldn't delete this title. Please try again later.", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	}
}

// tmdbPrefill is the JSON shape the admin form's lookup consumes.
type tmdbPrefill struct {
	Title       string  `json:"title"`
	Year        int     `json:"year"`
	Category    string  `json:"category"`
	Rating      float64 `json:"rating"`
	PosterURL   string  `json:"poster_url"`
	BackdropURL string  `json:"backdrop_url"`
	Description string  `json:"description"`
	Cast        string  `json:"cast"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", slog.Any("error", err))
	}
}

// HandleTMDBSearch proxies a title search for the admin form.
func HandleTMDBSearch(client *tmdb.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !client.Enabled() {
			writeJSON(w, http.StatusOK, map[string]any{"disabled": true})
			return
		}

		query := r.URL.Query().Get("q")
		year, _ := strconv.Atoi(r.URL.Query().Get("year"))

		if r.URL.Query().Get("type") == "tv" {
			result, err := client.SearchTVShow(r.Context(), query, year)
			if err != nil {
				slog.Error("TMDB search failed", slog.Any("error", err))
				writeJSON(w, http.StatusBadGateway, map[string]string{"error": "metadata lookup failed"})
				return
			}
			writeJSON(w, http.StatusOK, result)
			return
		}

		result, err := client.SearchMovie(r.Context(), query, year)
		if err != nil {
			slog.Error("TMDB search failed", slog.Any("error", err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "metadata lookup failed"})
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// HandleTMDBDetail fetches a title with credits and flattens it into form
// prefill fields.
func HandleTMDBDetail(client *tmdb.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !client.Enabled() {
			writeJSON(w, http.StatusOK, map[string]any{"disabled": true})
			return
		}

		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
			return
		}

		var prefill tmdbPrefill
		if chi.URLParam(r, "type") == "tv" {
			detail, err := client.TVWithCredits(r.Context(), id)
			if err != nil {
				slog.Error("TMDB fetch failed", slog.Any("error", err))
				writeJSON(w, http.StatusBadGateway, map[string]string{"error": "metadata lookup failed"})
				return
			}
			prefill = tvPrefill(client, detail)
		} else {
			detail, err := client.MovieWithCredits(r.Context(), id)
			if err != nil {
				slog.Error("TMDB fetch failed", slog.Any("error", err))
				writeJSON(w, http.StatusBadGateway, map[string]string{"error": "metadata lookup failed"})
				return
			}
			prefill = moviePrefill(client, detail)
		}

		writeJSON(w, http.StatusOK, prefill)
	}
}

const castLimit = 10

func moviePrefill(client *tmdb.Client, d *tmdb.MovieDetail) tmdbPrefill {
	year := 0
	if len(d.ReleaseDate) >= 4 {
		year, _ = strconv.Atoi(d.ReleaseDate[:4])
	}
	category := ""
	if len(d.Genres) > 0 {
		category = d.Genres[0].Name
	}
	names := make([]string, 0, len(d.Credits.Cast))
	for _, c := range d.Credits.Cast {
		names = append(names, c.Name)
	}
	return tmdbPrefill{
		Title:       d.Title,
		Year:        year,
		Category:    category,
		Rating:      d.VoteAverage,
		PosterURL:   client.GetPosterURL(d.PosterPath),
		BackdropURL: client.GetBackdropURL(d.BackdropPath),
		Description: d.Overview,
		Cast:        tmdb.CastNames(names, castLimit),
	}
}

func tvPrefill(client *tmdb.Client, d *tmdb.TVDetail) tmdbPrefill {
	year := 0
	if len(d.FirstAirDate) >= 4 {
		year, _ = strconv.Atoi(d.FirstAirDate[:4])
	}
	category := ""
	if len(d.Genres) > 0 {
		category = d.Genres[0].Name
	}
	names := make([]string, 0, len(d.Credits.Cast))
	for _, c := range d.Credits.Cast {
		names = append(names, c.Name)
	}
	return tmdbPrefill{
		Title:       d.Name,
		Year:        year,
		Category:    category,
		Rating:      d.VoteAverage,
		PosterURL:   client.GetPosterURL(d.PosterPath),
		BackdropURL: client.GetBackdropURL(d.BackdropPath),
		Description: d.Overview,
		Cast:        tmdb.CastNames(names, castLimit),
	}
}
