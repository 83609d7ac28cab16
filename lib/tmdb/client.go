// Package tmdb is a thin client for the metadata lookup API used to prefill
// admin content forms. A missing API key leaves the client in a disabled
// state instead of failing requests at call time.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"log/slog"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("tmdb lookups disabled: no API key configured")

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type SearchResult struct {
	Results []struct {
		ID          int     `json:"id"`
		Title       string  `json:"title"`
		ReleaseDate string  `json:"release_date"`
		PosterPath  string  `json:"poster_path"`
		VoteAverage float64 `json:"vote_average"`
	} `json:"results"`
}

type TVSearchResult struct {
	Results []struct {
		ID           int     `json:"id"`
		Name         string  `json:"name"`
		FirstAirDate string  `json:"first_air_date"`
		PosterPath   string  `json:"poster_path"`
		VoteAverage  float64 `json:"vote_average"`
	} `json:"results"`
}

// MovieDetail is a fetch-by-id response including credits.
type MovieDetail struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`
	Genres       []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Credits struct {
		Cast []struct {
			Name string `json:"name"`
		} `json:"cast"`
	} `json:"credits"`
}

// TVDetail is the TV-show counterpart of MovieDetail.
type TVDetail struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	FirstAirDate string  `json:"first_air_date"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`
	Genres       []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Credits struct {
		Cast []struct {
			Name string `json:"name"`
		} `json:"cast"`
	} `json:"credits"`
}

func NewClient(apiKey string, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    "https://api.themoviedb.org/3",
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

func (c *Client) SearchMovie(ctx context.Context, title string, year int) (*SearchResult, error) {
	u := fmt.Sprintf("%s/search/movie?api_key=%s&query=%s", c.baseURL, c.apiKey, url.QueryEscape(title))
	if year > 0 {
		u = fmt.Sprintf("%s&year=%d", u, year)
	}

	var result SearchResult
	if err := c.get(ctx, u, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) SearchTVShow(ctx context.Context, title string, year int) (*TVSearchResult, error) {
	u := fmt.Sprintf("%s/search/tv?api_key=%s&query=%s", c.baseURL, c.apiKey, url.QueryEscape(title))
	if year > 0 {
		u = fmt.Sprintf("%s&first_air_date_year=%d", u, year)
	}

	var result TVSearchResult
	if err := c.get(ctx, u, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MovieWithCredits fetches a movie by id together with its cast list.
func (c *Client) MovieWithCredits(ctx context.Context, id int) (*MovieDetail, error) {
	u := fmt.Sprintf("%s/movie/%d?api_key=%s&append_to_response=credits", c.baseURL, id, c.apiKey)

	var result MovieDetail
	if err := c.get(ctx, u, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TVWithCredits fetches a TV show by id together with its cast list.
func (c *Client) TVWithCredits(ctx context.Context, id int) (*TVDetail, error) {
	u := fmt.Sprintf("%s/tv/%d?api_key=%s&append_to_response=credits", c.baseURL, id, c.apiKey)

	var result TVDetail
	if err := c.get(ctx, u, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	if !c.Enabled() {
		return ErrDisabled
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", slog.Any("error", err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetPosterURL builds a full image URL from a poster path.
func (c *Client) GetPosterURL(posterPath string) string {
	if posterPath == "" {
		return ""
	}
	return fmt.Sprintf("https://image.tmdb.org/t/p/w500%s", posterPath)
}

// GetBackdropURL builds a full image URL from a backdrop path.
func (c *Client) GetBackdropURL(backdropPath string) string {
	if backdropPath == "" {
		return ""
	}
	return fmt.Sprintf("https://image.tmdb.org/t/p/original%s", backdropPath)
}

// CastNames flattens a credits cast list to a comma-separated string capped
// at limit names.
func CastNames(names []string, limit int) string {
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return strings.Join(names, ", ")
}
