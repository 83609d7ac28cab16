// Package watchlist manages the per-user set of saved content items. The
// store's unique index on (user, collection, content) is the only conflict
// handler: duplicate adds collapse, concurrent adds never race.
package watchlist

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/subhubsl/subhub/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

func New(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// IsMember reports whether the user has this item on their watchlist.
func (s *Service) IsMember(ctx context.Context, userID uint, collection string, contentID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.WatchlistEntry{}).
		Where("user_id = ? AND collection = ? AND content_id = ?", userID, collection, contentID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check watchlist membership: %w", err)
	}
	return count > 0, nil
}

// Add creates the edge. A duplicate add hits the unique index and is
// swallowed as success; exactly one edge survives either way.
func (s *Service) Add(ctx context.Context, userID uint, collection string, contentID uint) error {
	entry := models.WatchlistEntry{
		UserID:     userID,
		Collection: collection,
		ContentID:  contentID,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to add watchlist entry: %w", err)
	}
	return nil
}

// Remove deletes the edge. Removing a missing edge succeeds silently.
func (s *Service) Remove(ctx context.Context, userID uint, collection string, contentID uint) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND collection = ? AND content_id = ?", userID, collection, contentID).
		Delete(&models.WatchlistEntry{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove watchlist entry: %w", err)
	}
	return nil
}

// ListForUser resolves the user's edges to full content rows, newest edge
// first. Edges whose content row no longer exists are dropped silently.
func (s *Service) ListForUser(ctx context.Context, userID uint) ([]models.ContentItem, error) {
	var entries []models.WatchlistEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist entries: %w", err)
	}

	items := make([]models.ContentItem, 0, len(entries))
	for _, entry := range entries {
		var item models.ContentItem
		err := s.db.WithContext(ctx).
			Table(entry.Collection).
			Where("id = ?", entry.ContentID).
			First(&item).Error
		if err == gorm.ErrRecordNotFound {
			// Dangling edge: the referenced row was deleted by an admin.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve watchlist item: %w", err)
		}
		item.Collection = entry.Collection
		items = append(items, item)
	}
	return items, nil
}
