package models

import (
	"time"

	"gorm.io/datatypes"
)

// ArticleModel is the stored article row. The primary key is the upstream
// GKG record ID; created_at records first insertion and drives retention.
type ArticleModel struct {
	GKGRecordID string         `gorm:"column:gkg_record_id;primaryKey;size:64"`
	CountryCode string         `gorm:"size:2;not null;index:idx_articles_country_date,priority:1"`
	DateAdded   int64          `gorm:"not null;index:idx_articles_country_date,priority:2"`
	Payload     datatypes.JSON `gorm:"type:json"`
	CreatedAt   time.Time      `gorm:"index;autoCreateTime"`
}

func (ArticleModel) TableName() string {
	return "articles"
}
