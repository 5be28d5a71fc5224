package articles

import (
	"context"
	"time"

	"gdeltnews/internal/domain/article"
	"gdeltnews/internal/shared/biztime"
	apperrors "gdeltnews/internal/shared/errors"
	"gdeltnews/internal/shared/logger"
)

// CoverageEvaluator decides whether a (country, day) pair is sufficiently
// cached. A day is sufficient when the store holds at least
// floor(expected * ratio) rows inside the day window.
type CoverageEvaluator struct {
	store    article.Store
	expected int
	ratio    float64
	logger   logger.Interface
}

func NewCoverageEvaluator(store article.Store, expected int, ratio float64, log logger.Interface) *CoverageEvaluator {
	return &CoverageEvaluator{
		store:    store,
		expected: expected,
		ratio:    ratio,
		logger:   log,
	}
}

// Threshold is the minimum row count considered sufficient.
func (e *CoverageEvaluator) Threshold() int64 {
	return int64(float64(e.expected) * e.ratio)
}

// Coverage checks the store's row count for the day window. A partially
// covered day (0 < count < threshold) is re-fetched in whole; the warehouse
// is idempotent over the record ID so re-fetching cannot duplicate rows.
func (e *CoverageEvaluator) Coverage(ctx context.Context, country string, day time.Time) (article.CoverageVerdict, error) {
	lo, hi := biztime.DayBounds(day)

	count, err := e.store.CountInDay(ctx, country, lo, hi)
	if err != nil {
		return article.CoverageVerdict{}, apperrors.NewStoreUnavailableError("coverage check failed", err.Error())
	}

	verdict := article.CoverageVerdict{
		Sufficient: count >= e.Threshold(),
		Count:      count,
	}

	if !verdict.Sufficient && count > 0 {
		e.logger.Warnw("day partially covered, scheduling full re-fetch",
			"country_code", country,
			"date", day.Format("2006-01-02"),
			"count", count,
			"threshold", e.Threshold(),
		)
	}

	return verdict, nil
}
