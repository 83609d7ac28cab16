package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/subhubsl/subhub/lib/auth"
	"github.com/subhubsl/subhub/lib/catalog"
	"github.com/subhubsl/subhub/lib/watchlist"
	"github.com/subhubsl/subhub/models"
)

// PathCollections maps URL path segments to content table names.
var PathCollections = map[string]string{
	"movies":         models.CollectionMovies,
	"tv-shows":       models.CollectionTVShows,
	"korean-dramas":  models.CollectionKoreanDramas,
	"sinhala-movies": models.CollectionSinhalaMovies,
}

// SectionTitles are the human headings for each collection.
var SectionTitles = map[string]string{
	models.CollectionMovies:        "Movies",
	models.CollectionTVShows:       "TV Shows",
	models.CollectionKoreanDramas:  "Korean Dramas",
	models.CollectionSinhalaMovies: "Sinhala Movies",
}

// listPageSize is the cap for section list pages; search allows more.
const (
	listPageSize   = 48
	searchPageSize = 100
	homeSampleSize = 12
)

type homeData struct {
	baseData
	Sections map[string][]models.ContentItem
	Titles   map[string]string
}

// HandleHome renders the newest items of every collection.
func HandleHome(svc *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sections, err := svc.Home(r.Context(), homeSampleSize)
		if err != nil {
			slog.Error("Failed to load home sections", slog.Any("error", err))
			renderError(w, r, "We couldn't load the catalog. Please try again later.", http.StatusInternalServerError)
			return
		}

		renderPage(w, r, "home.html", homeData{
			baseData: newBaseData(r),
			Sections: sections,
			Titles:   SectionTitles,
		})
	}
}

type listData struct {
	baseData
	Title   string
	Items   []models.ContentItem
	Facets  catalog.Facets
	Filters catalog.Filters
	Empty   bool
}

func filtersFromQuery(r *http.Request) catalog.Filters {
	q := r.URL.Query()
	return catalog.Filters{
		Category: q.Get("category"),
		Year:     q.Get("year"),
		Language: q.Get("language"),
		Search:   q.Get("q"),
		Sort:     q.Get("sort"),
	}
}

// HandleList serves one collection's list page with filters and facets.
func HandleList(svc *catalog.Service, collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := filtersFromQuery(r)
		page, err := svc.ListPage(r.Context(), collection, f, listPageSize)
		if err != nil {
			slog.Error("Failed to load list page",
				slog.String("collection", collection),
				slog.Any("error", err))
			renderError(w, r, "We couldn't load this section. Please try again later.", http.StatusInternalServerError)
			return
		}

		renderPage(w, r, "list.html", listData{
			baseData: newBaseData(r),
			Title:    SectionTitles[collection],
			Items:    page.Items,
			Facets:   page.Facets,
			Filters:  f,
			Empty:    len(page.Items) == 0,
		})
	}
}

// HandleCategory filters movies by a category URL slug. Slug words are
// title-cased and matched loosely as a substring.
func HandleCategory(svc *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		f := filtersFromQuery(r)
		f.CategoryLike = catalog.FromSlug(slug)

		page, err := svc.ListPage(r.Context(), models.CollectionMovies, f, listPageSize)
		if err != nil {
			slog.Error("Failed to load category page", slog.String("slug", slug), slog.Any("error", err))
			renderError(w, r, "We couldn't load this category. Please try again later.", http.StatusInternalServerError)
			return
		}

		renderPage(w, r, "list.html", listData{
			baseData: newBaseData(r),
			Title:    f.CategoryLike,
			Items:    page.Items,
			Facets:   page.Facets,
			Filters:  f,
			Empty:    len(page.Items) == 0,
		})
	}
}

type searchData struct {
	baseData
	Query    string
	Sections map[string][]models.ContentItem
	Titles   map[string]string
}

// HandleSearch searches every collection for a title substring.
func HandleSearch(svc *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		sections := make(map[string][]models.ContentItem, len(models.Collections))
		for _, collection := range models.Collections {
			items, err := svc.List(r.Context(), collection, catalog.Filters{Search: query}, searchPageSize)
			if err != nil {
				slog.Error("Failed to search", slog.String("collection", collection), slog.Any("error", err))
				renderError(w, r, "Search is unavailable right now. Please try again later.", http.StatusInternalServerError)
				return
			}
			sections[collection] = items
		}

		renderPage(w, r, "search.html", searchData{
			baseData: newBaseData(r),
			Query:    query,
			Sections: sections,
			Titles:   SectionTitles,
		})
	}
}

type detailData struct {
	baseData
	Item        *models.ContentItem
	Section     string
	PathSegment string
	InWatchlist bool
}

// HandleDetail renders one content item, resolving the viewer's watchlist
// membership concurrently with the content fetch.
func HandleDetail(svc *catalog.Service, wl *watchlist.Service) http.HandlerFunc {
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

		var viewerID uint
		if user, _ := auth.UserFrom(r.Context()); user != nil {
			viewerID = user.ID
		}

		item, inWatchlist, err := svc.Detail(r.Context(), collection, uint(id), viewerID, wl)
		if errors.Is(err, catalog.ErrNotFound) {
			renderNotFound(w, r)
			return
		}
		if err != nil {
			slog.Error("Failed to load detail page", slog.Any("error", err))
			renderError(w, r, "We couldn't load this title. Please try again later.", http.StatusInternalServerError)
			return
		}

		renderPage(w, r, "detail.html", detailData{
			baseData:    newBaseData(r),
			Item:        item,
			Section:     SectionTitles[collection],
			PathSegment: segment,
			InWatchlist: inWatchlist,
		})
	}
}

// HandleNotFound is the router's fallback.
func HandleNotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderNotFound(w, r)
	}
}
