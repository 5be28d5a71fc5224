package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gdeltnews/internal/domain/article"
	"gdeltnews/internal/infrastructure/persistence/models"
	"gdeltnews/internal/shared/biztime"
)

const upsertBatchSize = 200

// ArticleRepository is the gorm-backed article store.
type ArticleRepository struct {
	db    *gorm.DB
	clock biztime.Clock
}

func NewArticleRepository(db *gorm.DB, clock biztime.Clock) article.Store {
	return &ArticleRepository{
		db:    db,
		clock: clock,
	}
}

func (r *ArticleRepository) CountInDay(ctx context.Context, country string, lo, hi int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ArticleModel{}).
		Where("country_code = ? AND date_added BETWEEN ? AND ?", country, lo, hi).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count articles in day: %w", err)
	}
	return count, nil
}

func (r *ArticleRepository) MaxDateAdded(ctx context.Context, country string, lo, hi int64) (int64, bool, error) {
	var max sql.NullInt64
	err := r.db.WithContext(ctx).
		Model(&models.ArticleModel{}).
		Where("country_code = ? AND date_added BETWEEN ? AND ?", country, lo, hi).
		Select("MAX(date_added)").
		Scan(&max).Error
	if err != nil {
		return 0, false, fmt.Errorf("failed to query max date_added: %w", err)
	}
	if !max.Valid {
		return 0, false, nil
	}
	return max.Int64, true, nil
}

func (r *ArticleRepository) UpsertMany(ctx context.Context, rows []article.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	modelRows := make([]models.ArticleModel, 0, len(rows))
	for _, row := range rows {
		modelRows = append(modelRows, models.ArticleModel{
			GKGRecordID: row.GKGRecordID,
			CountryCode: row.CountryCode,
			DateAdded:   row.DateAdded,
			Payload:     datatypes.JSON(row.Payload),
		})
	}

	// created_at is deliberately absent from the update set: it is set once
	// on first insert and retention cuts by it.
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "gkg_record_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"country_code", "date_added", "payload"}),
		}).
		CreateInBatches(modelRows, upsertBatchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to upsert articles: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (r *ArticleRepository) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := r.clock.Now().Add(-time.Duration(days) * 24 * time.Hour)

	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ArticleModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired articles: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (r *ArticleRepository) SelectRange(ctx context.Context, country string, lo, hi int64) ([]article.Row, error) {
	var modelRows []models.ArticleModel
	err := r.db.WithContext(ctx).
		Where("country_code = ? AND date_added BETWEEN ? AND ?", country, lo, hi).
		Order("date_added DESC").
		Find(&modelRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select articles: %w", err)
	}

	rows := make([]article.Row, 0, len(modelRows))
	for _, m := range modelRows {
		rows = append(rows, article.Row{
			GKGRecordID: m.GKGRecordID,
			CountryCode: m.CountryCode,
			DateAdded:   m.DateAdded,
			Payload:     []byte(m.Payload),
			CreatedAt:   m.CreatedAt,
		})
	}
	return rows, nil
}

func (r *ArticleRepository) Stats(ctx context.Context) (article.StorageStats, error) {
	stats := article.StorageStats{
		RowsByCountry: make(map[string]int64),
	}

	if err := r.db.WithContext(ctx).
		Model(&models.ArticleModel{}).
		Count(&stats.TotalRows).Error; err != nil {
		return article.StorageStats{}, fmt.Errorf("failed to count articles: %w", err)
	}

	var perCountry []struct {
		CountryCode string
		Count       int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ArticleModel{}).
		Select("country_code, COUNT(*) AS count").
		Group("country_code").
		Scan(&perCountry).Error; err != nil {
		return article.StorageStats{}, fmt.Errorf("failed to count articles per country: %w", err)
	}
	for _, c := range perCountry {
		stats.RowsByCountry[c.CountryCode] = c.Count
	}

	if stats.TotalRows > 0 {
		var bounds struct {
			Oldest time.Time
			Newest time.Time
		}
		if err := r.db.WithContext(ctx).
			Model(&models.ArticleModel{}).
			Select("MIN(created_at) AS oldest, MAX(created_at) AS newest").
			Scan(&bounds).Error; err != nil {
			return article.StorageStats{}, fmt.Errorf("failed to query created_at bounds: %w", err)
		}
		stats.OldestCreatedAt = &bounds.Oldest
		stats.NewestCreatedAt = &bounds.Newest
	}

	return stats, nil
}
