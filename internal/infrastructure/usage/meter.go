// Package usage meters warehouse bytes scanned against a monthly budget.
package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"gdeltnews/internal/infrastructure/persistence/models"
	"gdeltnews/internal/shared/biztime"
	"gdeltnews/internal/shared/logger"
)

// Warning thresholds as fractions of the monthly budget.
var warnThresholds = []float64{0.5, 0.8, 0.9}

// KindUsage is the per-query-kind subtotal inside a monthly record.
type KindUsage struct {
	Bytes int64 `json:"bytes"`
	Count int64 `json:"count"`
}

// Stats is the point-in-time snapshot exposed on the stats endpoint.
type Stats struct {
	Month                string               `json:"month"`
	TotalBytes           int64                `json:"total_bytes"`
	QueryCount           int64                `json:"query_count"`
	ByKind               map[string]KindUsage `json:"by_kind"`
	Percent              float64              `json:"percent"`
	RemainingBytes       int64                `json:"remaining_bytes"`
	EstimatedQueriesLeft int64                `json:"estimated_queries_left"`
	WarningLevel         string               `json:"warning_level"`
}

// Meter is the persistent monthly counter of warehouse bytes scanned.
// Counters are monotonic within a month; each Record is one transactional
// read-modify-write under an exclusive process-level lock.
type Meter struct {
	db                *gorm.DB
	clock             biztime.Clock
	budgetBytes       int64
	defaultQueryBytes int64
	logger            logger.Interface

	mu sync.Mutex
}

func NewMeter(db *gorm.DB, clock biztime.Clock, budgetBytes, defaultQueryBytes int64, log logger.Interface) *Meter {
	return &Meter{
		db:                db,
		clock:             clock,
		budgetBytes:       budgetBytes,
		defaultQueryBytes: defaultQueryBytes,
		logger:            log,
	}
}

func (m *Meter) currentMonth() string {
	return m.clock.Now().In(biztime.Location()).Format("2006-01")
}

// Record appends bytes scanned to the current month's counters, lazily
// creating the month row. It logs a warning each time the cumulative
// fraction of the budget crosses a threshold.
func (m *Meter) Record(ctx context.Context, kind string, bytes int64) error {
	if bytes < 0 {
		return fmt.Errorf("negative bytes scanned: %d", bytes)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	month := m.currentMonth()
	var beforeBytes, afterBytes int64

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.WarehouseUsageModel
		err := tx.First(&row, "month = ?", month).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.WarehouseUsageModel{Month: month, ByKind: []byte("{}")}
		} else if err != nil {
			return fmt.Errorf("failed to load usage record: %w", err)
		}

		byKind := map[string]KindUsage{}
		if len(row.ByKind) > 0 {
			if err := json.Unmarshal(row.ByKind, &byKind); err != nil {
				return fmt.Errorf("failed to decode usage by_kind: %w", err)
			}
		}

		beforeBytes = row.TotalBytes
		row.TotalBytes += bytes
		row.QueryCount++
		afterBytes = row.TotalBytes

		k := byKind[kind]
		k.Bytes += bytes
		k.Count++
		byKind[kind] = k

		encoded, err := json.Marshal(byKind)
		if err != nil {
			return fmt.Errorf("failed to encode usage by_kind: %w", err)
		}
		row.ByKind = encoded

		return tx.Save(&row).Error
	})
	if err != nil {
		return err
	}

	m.warnOnThresholdCross(month, beforeBytes, afterBytes)
	return nil
}

func (m *Meter) warnOnThresholdCross(month string, before, after int64) {
	if m.budgetBytes <= 0 {
		return
	}
	beforeFrac := float64(before) / float64(m.budgetBytes)
	afterFrac := float64(after) / float64(m.budgetBytes)
	for _, th := range warnThresholds {
		if beforeFrac < th && afterFrac >= th {
			m.logger.Warnw("warehouse budget threshold crossed",
				"month", month,
				"threshold_percent", th*100,
				"used_bytes", after,
				"budget_bytes", m.budgetBytes,
			)
		}
	}
}

// Snapshot returns the current month's usage statistics. Reads are served
// from the persisted row; a missing row means nothing was recorded yet.
func (m *Meter) Snapshot(ctx context.Context) (Stats, error) {
	month := m.currentMonth()

	var row models.WarehouseUsageModel
	err := m.db.WithContext(ctx).First(&row, "month = ?", month).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.WarehouseUsageModel{Month: month, ByKind: []byte("{}")}
	} else if err != nil {
		return Stats{}, fmt.Errorf("failed to load usage record: %w", err)
	}

	byKind := map[string]KindUsage{}
	if len(row.ByKind) > 0 {
		if err := json.Unmarshal(row.ByKind, &byKind); err != nil {
			return Stats{}, fmt.Errorf("failed to decode usage by_kind: %w", err)
		}
	}

	remaining := m.budgetBytes - row.TotalBytes
	if remaining < 0 {
		remaining = 0
	}

	avg := m.defaultQueryBytes
	if row.QueryCount > 0 {
		avg = row.TotalBytes / row.QueryCount
	}
	if avg <= 0 {
		avg = 1
	}

	percent := 0.0
	if m.budgetBytes > 0 {
		percent = float64(row.TotalBytes) / float64(m.budgetBytes) * 100
	}

	return Stats{
		Month:                month,
		TotalBytes:           row.TotalBytes,
		QueryCount:           row.QueryCount,
		ByKind:               byKind,
		Percent:              percent,
		RemainingBytes:       remaining,
		EstimatedQueriesLeft: remaining / avg,
		WarningLevel:         warningLevel(percent),
	}, nil
}

func warningLevel(percent float64) string {
	switch {
	case percent >= 90:
		return "critical"
	case percent >= 80:
		return "warning"
	case percent >= 50:
		return "notice"
	default:
		return "none"
	}
}
