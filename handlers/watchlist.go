package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"github.com/subhubsl/subhub/lib/auth"
	"github.com/subhubsl/subhub/lib/watchlist"
	"github.com/subhubsl/subhub/models"
)

// safeBackPath accepts only same-site paths as a redirect target. Anything
// absolute or protocol-relative falls back to the watchlist page.
func safeBackPath(back string) string {
	if !strings.HasPrefix(back, "/") ||
		strings.HasPrefix(back, "//") ||
		strings.HasPrefix(back, "/\\") {
		return "/my-list"
	}
	return back
}

type myListData struct {
	baseData
	Items []models.ContentItem
}

// HandleMyList renders the viewer's watchlist. The route is behind
// RequireUser, so the viewer is always present here.
func HandleMyList(wl *watchlist.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.UserFrom(r.Context())
		items, err := wl.ListForUser(r.Context(), user.ID)
		if err != nil {
			slog.Error("Failed to load watchlist", slog.Any("error", err))
			renderError(w, r, "We couldn't load your list. Please try again later.", http.StatusInternalServerError)
			return
		}

		renderPage(w, r, "mylist.html", myListData{
			baseData: newBaseData(r),
			Items:    items,
		})
	}
}

// HandleWatchlistToggle adds or removes an edge depending on the action form
// field, then bounces back to the page the form was on. Anonymous posts are
// redirected to sign-in, never given a data error.
func HandleWatchlistToggle(wl *watchlist.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, role := auth.UserFrom(r.Context())
		if role == auth.RoleAnonymous {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		collection, ok := PathCollections[r.FormValue("section")]
		if !ok {
			renderNotFound(w, r)
			return
		}
		id, err := strconv.ParseUint(r.FormValue("content_id"), 10, 32)
		if err != nil {
			renderNotFound(w, r)
			return
		}

		switch r.FormValue("action") {
		case "remove":
			err = wl.Remove(r.Context(), user.ID, collection, uint(id))
		default:
			err = wl.Add(r.Context(), user.ID, collection, uint(id))
		}
		if err != nil {
			slog.Error("Failed to update watchlist", slog.Any("error", err))
			renderError(w, r, "We couldn't update your list. Please try again later.", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, safeBackPath(r.FormValue("back")), http.StatusSeeOther)
	}
}
