package articles

import (
	"context"
	"time"

	"gdeltnews/internal/domain/article"
	"gdeltnews/internal/shared/biztime"
	apperrors "gdeltnews/internal/shared/errors"
	"gdeltnews/internal/shared/logger"
)

// FreshnessEvaluator decides whether the current day's cache needs an
// incremental refresh, based on the latest ingest timestamp in the store
// and the configured TTL.
type FreshnessEvaluator struct {
	store  article.Store
	clock  biztime.Clock
	ttl    time.Duration
	logger logger.Interface
}

func NewFreshnessEvaluator(store article.Store, clock biztime.Clock, ttl time.Duration, log logger.Interface) *FreshnessEvaluator {
	return &FreshnessEvaluator{
		store:  store,
		clock:  clock,
		ttl:    ttl,
		logger: log,
	}
}

// Freshness inspects the latest date_added for today. Empty means fetch
// [day start, now]; Stale means fetch [last ingest, now]; Fresh means the
// last ingest is within the TTL and no upstream call is needed.
func (e *FreshnessEvaluator) Freshness(ctx context.Context, country string) (article.FreshnessVerdict, error) {
	now := e.clock.Now().In(biztime.Location())
	nowInt := biztime.EncodeDateTime(now)
	dayLo, _ := biztime.DayBounds(biztime.Today(e.clock))

	latest, ok, err := e.store.MaxDateAdded(ctx, country, dayLo, nowInt)
	if err != nil {
		return article.FreshnessVerdict{}, apperrors.NewStoreUnavailableError("freshness check failed", err.Error())
	}
	if !ok {
		return article.FreshnessVerdict{
			State:    article.FreshnessEmpty,
			WindowLo: dayLo,
			WindowHi: nowInt,
		}, nil
	}

	last, err := biztime.DecodeDateTime(latest)
	if err != nil {
		// An undecodable date_added means a corrupt row slipped past the
		// warehouse; refetch the whole day rather than guess a window.
		e.logger.Warnw("undecodable max date_added, treating today as empty",
			"country_code", country,
			"date_added", latest,
		)
		return article.FreshnessVerdict{
			State:    article.FreshnessEmpty,
			WindowLo: dayLo,
			WindowHi: nowInt,
		}, nil
	}

	if now.Sub(last) >= e.ttl {
		return article.FreshnessVerdict{
			State:      article.FreshnessStale,
			LastIngest: latest,
			WindowLo:   latest,
			WindowHi:   nowInt,
		}, nil
	}

	return article.FreshnessVerdict{
		State:      article.FreshnessFresh,
		LastIngest: latest,
	}, nil
}
