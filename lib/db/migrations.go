package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/subhubsl/subhub/models"
	"gorm.io/gorm"
)

// RunMigrations prepares the sqlite database: pragmas, schema, indexes.
func RunMigrations(db *gorm.DB, logger *slog.Logger) error {
	ctx := context.Background()

	if err := enableSQLiteOptimizations(ctx, db, logger); err != nil {
		return fmt.Errorf("failed to enable SQLite optimizations: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Movie{},
		&models.TVShow{},
		&models.KoreanDrama{},
		&models.SinhalaMovie{},
		&models.User{},
		&models.WatchlistEntry{},
		&models.ExternalUpdate{},
		&models.ContactMessage{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := createAdditionalIndexes(ctx, db, logger); err != nil {
		return fmt.Errorf("failed to create additional indexes: %w", err)
	}

	return nil
}

// enableSQLiteOptimizations enables SQLite-specific optimizations
func enableSQLiteOptimizations(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	optimizations := []string{
		"PRAGMA journal_mode=WAL",    // Enable WAL mode for better concurrency
		"PRAGMA synchronous=NORMAL",  // Faster writes while maintaining safety
		"PRAGMA foreign_keys=ON",     // Enable foreign key constraints
		"PRAGMA temp_store=MEMORY",   // Store temporary tables in memory
		"PRAGMA mmap_size=134217728", // Enable memory-mapped I/O (128MB)
	}

	for _, pragma := range optimizations {
		if err := db.WithContext(ctx).Exec(pragma).Error; err != nil {
			logger.Warn("Failed to execute pragma", slog.String("pragma", pragma), slog.Any("error", err))
		}
	}

	return nil
}

// createAdditionalIndexes creates composite indexes for the list queries.
func createAdditionalIndexes(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	additionalIndexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_movies_rating_year ON movies(rating, year)",
		"CREATE INDEX IF NOT EXISTS idx_tv_shows_rating_year ON tv_shows(rating, year)",
		"CREATE INDEX IF NOT EXISTS idx_korean_dramas_rating_year ON korean_dramas(rating, year)",
		"CREATE INDEX IF NOT EXISTS idx_sinhala_movies_rating_year ON sinhala_movies(rating, year)",
		"CREATE INDEX IF NOT EXISTS idx_external_updates_site ON external_updates(site)",
	}

	for _, indexSQL := range additionalIndexes {
		if err := db.WithContext(ctx).Exec(indexSQL).Error; err != nil {
			logger.Warn("Failed to create index", slog.String("sql", indexSQL), slog.Any("error", err))
		}
	}

	return nil
}
