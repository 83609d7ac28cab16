package models

import (
	"time"
)

// Collection names. Each content type lives in its own table; the tables
// share the same shape so every list page can be served by one query builder.
const (
	CollectionMovies        = "movies"
	CollectionTVShows       = "tv_shows"
	CollectionKoreanDramas  = "korean_dramas"
	CollectionSinhalaMovies = "sinhala_movies"
)

// Collections lists every content table in display order.
var Collections = []string{
	CollectionMovies,
	CollectionTVShows,
	CollectionKoreanDramas,
	CollectionSinhalaMovies,
}

// ContentFields is the shared shape of all content tables. Identifiers are
// only unique within a single table, never across tables.
type ContentFields struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"size:500;index" json:"title"`
	Year        int       `gorm:"index" json:"year"`
	Category    string    `gorm:"size:255;index" json:"category"`
	Language    string    `gorm:"size:100" json:"language"`
	Rating      float64   `json:"rating"`
	PosterURL   string    `gorm:"size:1000" json:"poster_url"`
	BackdropURL string    `gorm:"size:1000" json:"backdrop_url"`
	Description string    `gorm:"type:text" json:"description"`
	Cast        string    `gorm:"type:text" json:"cast"`
	CreatedAt   time.Time `json:"created_at"`
}

type Movie struct {
	ContentFields
}

func (Movie) TableName() string { return CollectionMovies }

type TVShow struct {
	ContentFields
}

func (TVShow) TableName() string { return CollectionTVShows }

type KoreanDrama struct {
	ContentFields
}

func (KoreanDrama) TableName() string { return CollectionKoreanDramas }

type SinhalaMovie struct {
	ContentFields
}

func (SinhalaMovie) TableName() string { return CollectionSinhalaMovies }

// ContentItem is a row read back from any content table. It carries the
// collection it came from so links and watchlist edges stay unambiguous.
type ContentItem struct {
	ContentFields
	Collection string `gorm:"-" json:"collection"`
}

// pathSegments maps table names to the URL segments used in routes.
var pathSegments = map[string]string{
	CollectionMovies:        "movies",
	CollectionTVShows:       "tv-shows",
	CollectionKoreanDramas:  "korean-dramas",
	CollectionSinhalaMovies: "sinhala-movies",
}

// PathSegment is the URL segment for the item's collection, for templates
// building detail links.
func (c ContentItem) PathSegment() string {
	return pathSegments[c.Collection]
}

// User mirrors the auth identity. The password hash is only consulted at
// login; everything else treats the row as read-only profile data.
type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex" json:"email"`
	DisplayName  string    `gorm:"size:255" json:"display_name"`
	AvatarURL    string    `gorm:"size:1000" json:"avatar_url"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// WatchlistEntry is a pure many-to-many edge between a user and a content
// row. Collection is part of the key because ids repeat across tables.
type WatchlistEntry struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint      `gorm:"uniqueIndex:idx_watchlist_edge" json:"user_id"`
	Collection string    `gorm:"size:50;uniqueIndex:idx_watchlist_edge" json:"collection"`
	ContentID  uint      `gorm:"uniqueIndex:idx_watchlist_edge" json:"content_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExternalUpdate is one row of the append-only seen-log. Existence of a GUID
// is the sole dedup signal for the feed monitor; rows are never pruned.
type ExternalUpdate struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Site      string    `gorm:"size:255" json:"site"`
	GUID      string    `gorm:"size:1000;uniqueIndex" json:"guid"`
	Title     string    `gorm:"size:1000" json:"title"`
	Link      string    `gorm:"size:1000" json:"link"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactMessage is a message submitted through the contact form.
type ContactMessage struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:255" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	Body      string    `gorm:"type:text" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
