package models

import (
	"time"

	"gorm.io/datatypes"
)

// WarehouseUsageModel is the monthly bytes-scanned counter, one row per
// calendar month. Counters only ever grow within a month.
type WarehouseUsageModel struct {
	Month      string         `gorm:"primaryKey;size:7"` // "2026-01"
	TotalBytes int64          `gorm:"not null;default:0"`
	QueryCount int64          `gorm:"not null;default:0"`
	ByKind     datatypes.JSON `gorm:"type:json"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (WarehouseUsageModel) TableName() string {
	return "warehouse_usage"
}
