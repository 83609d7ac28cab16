// Package catalog builds the filtered, sorted content queries behind every
// list page, and resolves single items together with the viewer's watchlist
// membership. All four content tables share one query path; the table name
// is a parameter.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"log/slog"

	"github.com/subhubsl/subhub/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// AllSentinel is the synthetic first facet value. A filter set to it is
// treated as absent.
const AllSentinel = "All"

// facetSampleSize bounds the rows scanned when deriving facet values.
const facetSampleSize = 500

// DefaultPageSize is used when a caller does not pick its own cap.
const DefaultPageSize = 48

// MaxPageSize is the hard cap for any list query.
const MaxPageSize = 100

// ErrNotFound reports a missing content row or unknown collection. Terminal:
// handlers render a 404 for it, never an inline error state.
var ErrNotFound = errors.New("content not found")

// FetchError wraps a store failure so callers can render it differently
// from an empty result set.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

// Filters are the optional list-page inputs. Category/Year/Language are
// exact matches; CategoryLike/LanguageLike come from URL slugs and match as
// case-insensitive substrings (deliberately loose: "Action" also matches
// "Live Action").
type Filters struct {
	Category     string
	Year         string
	Language     string
	Search       string
	Sort         string
	CategoryLike string
	LanguageLike string
}

// Facets are the distinct values available for the filter controls, each
// list beginning with the "All" sentinel.
type Facets struct {
	Years      []string
	Categories []string
	Languages  []string
}

// Page is a list result joined with its facet values.
type Page struct {
	Items  []models.ContentItem
	Facets Facets
}

// MembershipChecker reports whether a viewer has an item on their watchlist.
type MembershipChecker interface {
	IsMember(ctx context.Context, userID uint, collection string, contentID uint) (bool, error)
}

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

func New(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// ValidCollection reports whether name is one of the content tables. Table
// names reach SQL unparameterized, so everything else is rejected up front.
func ValidCollection(name string) bool {
	for _, c := range models.Collections {
		if c == name {
			return true
		}
	}
	return false
}

// FromSlug title-cases each hyphen-delimited word of a URL segment:
// "action-adventure" becomes "Action Adventure".
func FromSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// List returns up to limit items from collection honoring every supplied
// filter, ordered by the sort key (latest, old, rating, year).
func (s *Service) List(ctx context.Context, collection string, f Filters, limit int) ([]models.ContentItem, error) {
	if !ValidCollection(collection) {
		return nil, ErrNotFound
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	q := s.db.WithContext(ctx).Table(collection)
	q = applyFilters(q, f)
	q = q.Order(orderClause(f.Sort)).Limit(limit)

	var items []models.ContentItem
	if err := q.Find(&items).Error; err != nil {
		return nil, &FetchError{Op: fmt.Sprintf("list %s", collection), Err: err}
	}
	for i := range items {
		items[i].Collection = collection
	}
	return items, nil
}

func applyFilters(q *gorm.DB, f Filters) *gorm.DB {
	if active(f.Category) {
		q = q.Where("category = ?", f.Category)
	}
	if active(f.Year) {
		if year, err := strconv.Atoi(f.Year); err == nil {
			q = q.Where("year = ?", year)
		}
	}
	if active(f.Language) {
		q = q.Where("language = ?", f.Language)
	}
	if f.CategoryLike != "" {
		q = q.Where("LOWER(category) LIKE ?", "%"+strings.ToLower(f.CategoryLike)+"%")
	}
	if f.LanguageLike != "" {
		q = q.Where("LOWER(language) LIKE ?", "%"+strings.ToLower(f.LanguageLike)+"%")
	}
	if f.Search != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(f.Search)+"%")
	}
	return q
}

func active(v string) bool {
	return v != "" && v != AllSentinel
}

func orderClause(sort string) string {
	switch sort {
	case "old":
		return "created_at ASC"
	case "rating":
		return "rating DESC"
	case "year":
		return "year DESC"
	default: // "latest"
		return "created_at DESC"
	}
}

// Facets derives the distinct year/category/language values currently in the
// collection from a bounded sample. Years come back sorted descending; the
// other lists keep encounter order.
func (s *Service) Facets(ctx context.Context, collection string) (Facets, error) {
	if !ValidCollection(collection) {
		return Facets{}, ErrNotFound
	}

	var rows []struct {
		Year     int
		Category string
		Language string
	}
	err := s.db.WithContext(ctx).
		Table(collection).
		Select("year, category, language").
		Order("created_at DESC").
		Limit(facetSampleSize).
		Scan(&rows).Error
	if err != nil {
		return Facets{}, &FetchError{Op: fmt.Sprintf("facets %s", collection), Err: err}
	}

	var years []int
	var categories, languages []string
	seenYears := map[int]bool{}
	seenCategories := map[string]bool{}
	seenLanguages := map[string]bool{}
	for _, r := range rows {
		if r.Year != 0 && !seenYears[r.Year] {
			seenYears[r.Year] = true
			years = append(years, r.Year)
		}
		if r.Category != "" && !seenCategories[r.Category] {
			seenCategories[r.Category] = true
			categories = append(categories, r.Category)
		}
		if r.Language != "" && !seenLanguages[r.Language] {
			seenLanguages[r.Language] = true
			languages = append(languages, r.Language)
		}
	}

	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	f := Facets{
		Years:      []string{AllSentinel},
		Categories: append([]string{AllSentinel}, categories...),
		Languages:  append([]string{AllSentinel}, languages...),
	}
	for _, y := range years {
		f.Years = append(f.Years, strconv.Itoa(y))
	}
	return f, nil
}

// ListPage issues the list query and the facet sample concurrently; neither
// depends on the other's result.
func (s *Service) ListPage(ctx context.Context, collection string, f Filters, limit int) (*Page, error) {
	var page Page
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		items, err := s.List(gctx, collection, f, limit)
		if err != nil {
			return err
		}
		page.Items = items
		return nil
	})
	g.Go(func() error {
		facets, err := s.Facets(gctx, collection)
		if err != nil {
			return err
		}
		page.Facets = facets
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &page, nil
}

// Detail fetches one content row and, concurrently, the viewer's watchlist
// membership flag. viewerID zero means anonymous and skips the membership
// lookup. A missing row is ErrNotFound.
func (s *Service) Detail(ctx context.Context, collection string, id uint, viewerID uint, membership MembershipChecker) (*models.ContentItem, bool, error) {
	if !ValidCollection(collection) {
		return nil, false, ErrNotFound
	}

	var item models.ContentItem
	var inWatchlist bool
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.db.WithContext(gctx).Table(collection).Where("id = ?", id).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return &FetchError{Op: fmt.Sprintf("get %s/%d", collection, id), Err: err}
		}
		return nil
	})
	if viewerID != 0 && membership != nil {
		g.Go(func() error {
			member, err := membership.IsMember(gctx, viewerID, collection, id)
			if err != nil {
				return &FetchError{Op: "watchlist membership", Err: err}
			}
			inWatchlist = member
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	item.Collection = collection
	return &item, inWatchlist, nil
}

// Home fetches the newest items of every collection concurrently.
func (s *Service) Home(ctx context.Context, perCollection int) (map[string][]models.ContentItem, error) {
	results := make([][]models.ContentItem, len(models.Collections))
	g, gctx := errgroup.WithContext(ctx)

	for i, collection := range models.Collections {
		i, collection := i, collection
		g.Go(func() error {
			items, err := s.List(gctx, collection, Filters{}, perCollection)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sections := make(map[string][]models.ContentItem, len(models.Collections))
	for i, collection := range models.Collections {
		sections[collection] = results[i]
	}
	return sections, nil
}
