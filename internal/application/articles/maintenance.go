package articles

import (
	"context"

	"gdeltnews/internal/domain/article"
	"gdeltnews/internal/shared/biztime"
	"gdeltnews/internal/shared/logger"
)

// MaintenanceConfig carries the nightly job's knobs.
type MaintenanceConfig struct {
	RetentionDays   int
	WarmupCountries []string
	// WarmToday additionally runs the current-day freshness path for each
	// warmup country at the maintenance instant.
	WarmToday bool
}

// Maintainer is the nightly maintenance job: it enforces retention and
// pre-warms the recent window for a fixed country set so the first request
// of the next day is cheap.
type Maintainer struct {
	store       article.Store
	coordinator *Coordinator
	cfg         MaintenanceConfig
	logger      logger.Interface
}

func NewMaintainer(store article.Store, coordinator *Coordinator, cfg MaintenanceConfig, log logger.Interface) *Maintainer {
	return &Maintainer{
		store:       store,
		coordinator: coordinator,
		cfg:         cfg,
		logger:      log,
	}
}

// Execute runs one maintenance pass and returns the number of countries
// warmed. Per-country failures are logged and do not abort the loop.
func (m *Maintainer) Execute(ctx context.Context) (int, error) {
	before, err := m.store.Stats(ctx)
	if err != nil {
		return 0, err
	}

	deleted, err := m.store.DeleteOlderThan(ctx, m.cfg.RetentionDays)
	if err != nil {
		return 0, err
	}

	after, err := m.store.Stats(ctx)
	if err != nil {
		return 0, err
	}

	m.logger.Infow("retention completed",
		"event", "retention_completed",
		"retention_days", m.cfg.RetentionDays,
		"deleted", deleted,
		"rows_before", before.TotalRows,
		"rows_after", after.TotalRows,
	)

	warmed := 0
	for _, country := range m.cfg.WarmupCountries {
		if ctx.Err() != nil {
			return warmed, ctx.Err()
		}
		if err := m.coordinator.WarmWindow(ctx, country, m.cfg.RetentionDays-1, m.cfg.WarmToday); err != nil {
			m.logger.Errorw("warmup failed",
				"event", "warmup_failed",
				"country_code", country,
				"error", err,
			)
			continue
		}
		warmed++
	}

	m.logger.Infow("warmup completed",
		"event", "warmup_completed",
		"countries", len(m.cfg.WarmupCountries),
		"warmed", warmed,
	)

	return warmed, nil
}

// WarmWindow pre-fills the cache for the country's recent window without
// reading rows back. includeToday additionally forces the current-day
// freshness path; historical days are always covered.
func (c *Coordinator) WarmWindow(ctx context.Context, country string, daysBack int, includeToday bool) error {
	log := c.logger.With("country_code", country)

	var firstErr error
	for _, day := range biztime.RecentDays(c.clock, daysBack) {
		if err := c.ensureDay(ctx, country, day, log); err != nil {
			if isFatal(err) {
				return err
			}
			log.Errorw("warmup day fetch failed",
				"event", "day_fetch_failed",
				"date", day.Format("2006-01-02"),
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if includeToday {
		if err := c.ensureToday(ctx, country, log); err != nil {
			if isFatal(err) {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
