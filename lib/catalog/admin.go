package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/subhubsl/subhub/models"
	"gorm.io/gorm"
)

// Stats summarizes the catalog for the admin dashboard.
type Stats struct {
	Counts          map[string]int64
	Users           int64
	WatchlistEdges  int64
	ContactMessages int64
	ExternalUpdates int64
}

// Create inserts a content row into the named collection and returns its id.
func (s *Service) Create(ctx context.Context, collection string, fields *models.ContentFields) error {
	if !ValidCollection(collection) {
		return ErrNotFound
	}
	if err := s.db.WithContext(ctx).Table(collection).Create(fields).Error; err != nil {
		return &FetchError{Op: fmt.Sprintf("create in %s", collection), Err: err}
	}
	return nil
}

// Update overwrites an existing row. Missing rows are ErrNotFound.
func (s *Service) Update(ctx context.Context, collection string, fields *models.ContentFields) error {
	if !ValidCollection(collection) {
		return ErrNotFound
	}
	res := s.db.WithContext(ctx).Table(collection).Where("id = ?", fields.ID).Updates(map[string]any{
		"title":        fields.Title,
		"year":         fields.Year,
		"category":     fields.Category,
		"language":     fields.Language,
		"rating":       fields.Rating,
		"poster_url":   fields.PosterURL,
		"backdrop_url": fields.BackdropURL,
		"description":  fields.Description,
		"cast":         fields.Cast,
	})
	if res.Error != nil {
		return &FetchError{Op: fmt.Sprintf("update %s/%d", collection, fields.ID), Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a row. Only admins reach this; end users never delete.
func (s *Service) Delete(ctx context.Context, collection string, id uint) error {
	if !ValidCollection(collection) {
		return ErrNotFound
	}
	res := s.db.WithContext(ctx).Exec("DELETE FROM "+collection+" WHERE id = ?", id)
	if res.Error != nil {
		return &FetchError{Op: fmt.Sprintf("delete %s/%d", collection, id), Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats counts rows across the catalog tables.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Counts: make(map[string]int64, len(models.Collections))}

	for _, collection := range models.Collections {
		var n int64
		if err := s.db.WithContext(ctx).Table(collection).Count(&n).Error; err != nil {
			return nil, &FetchError{Op: fmt.Sprintf("count %s", collection), Err: err}
		}
		stats.Counts[collection] = n
	}

	counts := []struct {
		model any
		dst   *int64
	}{
		{&models.User{}, &stats.Users},
		{&models.WatchlistEntry{}, &stats.WatchlistEdges},
		{&models.ContactMessage{}, &stats.ContactMessages},
		{&models.ExternalUpdate{}, &stats.ExternalUpdates},
	}
	for _, c := range counts {
		if err := s.db.WithContext(ctx).Model(c.model).Count(c.dst).Error; err != nil {
			return nil, &FetchError{Op: "count stats", Err: err}
		}
	}
	return stats, nil
}

// IsNotFound reports whether err is the terminal not-found condition rather
// than a store failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
