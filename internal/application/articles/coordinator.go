// Package articles contains the fetch-coordination core: per-day coverage
// and current-day freshness evaluation, single-flight collapsing of
// concurrent warehouse scans, and the coordinator that closes cache gaps
// for a requested window.
package articles

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"gdeltnews/internal/domain/article"
	"gdeltnews/internal/shared/biztime"
	apperrors "gdeltnews/internal/shared/errors"
	"gdeltnews/internal/shared/logger"
	"gdeltnews/internal/shared/requestid"
)

// Query kinds recorded against the monthly warehouse budget.
const (
	queryKindDaily = "daily"
	queryKindToday = "today"
)

// Config carries the cache tuning knobs the coordinator needs.
type Config struct {
	ExpectedPerDay   int
	CoverageRatio    float64
	TodayTTL         time.Duration
	HistoricalFanout int
}

// Coordinator orchestrates cache-completeness evaluation and warehouse
// fetches for article requests. It owns the single-flight registry and the
// decision to invoke the warehouse; the store remains the only source of
// truth for reads.
type Coordinator struct {
	store     article.Store
	warehouse article.Warehouse
	usage     article.UsageRecorder
	coverage  *CoverageEvaluator
	freshness *FreshnessEvaluator
	flights   *FlightRegistry
	clock     biztime.Clock
	fanout    int
	expected  int
	logger    logger.Interface
}

func NewCoordinator(
	store article.Store,
	warehouse article.Warehouse,
	usage article.UsageRecorder,
	clock biztime.Clock,
	cfg Config,
	log logger.Interface,
) *Coordinator {
	return &Coordinator{
		store:     store,
		warehouse: warehouse,
		usage:     usage,
		coverage:  NewCoverageEvaluator(store, cfg.ExpectedPerDay, cfg.CoverageRatio, log),
		freshness: NewFreshnessEvaluator(store, clock, cfg.TodayTTL, log),
		flights:   NewFlightRegistry(),
		clock:     clock,
		fanout:    cfg.HistoricalFanout,
		expected:  cfg.ExpectedPerDay,
		logger:    log,
	}
}

// Result is the aggregate outcome of one article request. Partial is set
// when at least one day's upstream fetch failed; the rows still contain
// everything the store holds for the window.
type Result struct {
	Rows    []article.Row
	Partial bool
}

// GetArticles returns all stored rows for the country across the window of
// daysBack historical days plus today, closing cache gaps first. Input is
// assumed validated by the handler.
func (c *Coordinator) GetArticles(ctx context.Context, country string, daysBack int) (Result, error) {
	log := c.logger.With(
		"request_id", requestid.FromContext(ctx),
		"country_code", country,
	)

	days := biztime.RecentDays(c.clock, daysBack)

	var partial atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.fanout)
	for _, day := range days {
		day := day
		g.Go(func() error {
			err := c.ensureDay(gctx, country, day, log)
			if err == nil {
				return nil
			}
			if isFatal(err) {
				return err
			}
			// Upstream failure on one day must not sink the others; the
			// response degrades to whatever the store holds.
			log.Errorw("historical day fetch failed",
				"event", "day_fetch_failed",
				"date", day.Format("2006-01-02"),
				"error", err,
			)
			partial.Store(true)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, classifyCtxErr(err)
	}

	if err := c.ensureToday(ctx, country, log); err != nil {
		if isFatal(err) {
			return Result{}, classifyCtxErr(err)
		}
		log.Errorw("today refresh failed",
			"event", "today_fetch_failed",
			"error", err,
		)
		partial.Store(true)
	}

	rows, err := c.readOut(ctx, country, days)
	if err != nil {
		return Result{}, err
	}

	return Result{Rows: rows, Partial: partial.Load()}, nil
}

// ensureDay closes the cache gap for one historical day. The coverage check
// is repeated inside the single-flight critical section so that followers
// who piled up behind the leader do not refetch a day it just filled.
func (c *Coordinator) ensureDay(ctx context.Context, country string, day time.Time, log logger.Interface) error {
	verdict, err := c.coverage.Coverage(ctx, country, day)
	if err != nil {
		return err
	}
	if verdict.Sufficient {
		return nil
	}

	key := article.DayKey{CountryCode: country, Date: day}.String()
	return c.flights.Do(ctx, key, func(fctx context.Context) error {
		verdict, err := c.coverage.Coverage(fctx, country, day)
		if err != nil {
			return err
		}
		if verdict.Sufficient {
			return nil
		}

		log.Infow("fetching day from warehouse",
			"event", "warehouse_fetch_day",
			"date", day.Format("2006-01-02"),
			"cached_count", verdict.Count,
		)

		res, err := c.warehouse.FetchDay(fctx, country, day, c.expected)
		if err != nil {
			if ctxErr := fctx.Err(); ctxErr != nil {
				return apperrors.NewTimeoutError("warehouse fetch cancelled", key)
			}
			return fmt.Errorf("warehouse fetch failed for %s: %w", key, err)
		}

		return c.commit(fctx, res, queryKindDaily, log)
	})
}

// ensureToday refreshes the current day when its latest ingest is older
// than the TTL, fetching only the missing [last ingest, now] slice.
func (c *Coordinator) ensureToday(ctx context.Context, country string, log logger.Interface) error {
	verdict, err := c.freshness.Freshness(ctx, country)
	if err != nil {
		return err
	}
	if verdict.State == article.FreshnessFresh {
		return nil
	}

	key := article.DayKey{CountryCode: country, Date: biztime.Today(c.clock)}.String()
	return c.flights.Do(ctx, key, func(fctx context.Context) error {
		verdict, err := c.freshness.Freshness(fctx, country)
		if err != nil {
			return err
		}
		if verdict.State == article.FreshnessFresh {
			return nil
		}

		log.Infow("refreshing today from warehouse",
			"event", "warehouse_fetch_today",
			"state", verdict.State.String(),
			"window_lo", verdict.WindowLo,
			"window_hi", verdict.WindowHi,
		)

		res, err := c.warehouse.FetchRange(fctx, country, verdict.WindowLo, verdict.WindowHi, c.expected)
		if err != nil {
			if ctxErr := fctx.Err(); ctxErr != nil {
				return apperrors.NewTimeoutError("warehouse fetch cancelled", key)
			}
			return fmt.Errorf("warehouse refresh failed for %s: %w", key, err)
		}

		return c.commit(fctx, res, queryKindToday, log)
	})
}

// commit upserts fetched rows and meters the scan. A metering failure is
// logged but never fails the fetch; the rows are already durable.
func (c *Coordinator) commit(ctx context.Context, res article.FetchResult, kind string, log logger.Interface) error {
	if len(res.Rows) > 0 {
		written, err := c.store.UpsertMany(ctx, res.Rows)
		if err != nil {
			return apperrors.NewStoreUnavailableError("failed to store fetched articles", err.Error())
		}
		log.Infow("articles stored",
			"event", "articles_stored",
			"kind", kind,
			"fetched", len(res.Rows),
			"written", written,
			"bytes_scanned", res.BytesScanned,
		)
	}

	if err := c.usage.Record(ctx, kind, res.BytesScanned); err != nil {
		log.Errorw("failed to record warehouse usage",
			"event", "usage_record_failed",
			"kind", kind,
			"error", err,
		)
	}
	return nil
}

// readOut returns everything the store holds across the union window of the
// historical days plus [start of today, now], newest first.
func (c *Coordinator) readOut(ctx context.Context, country string, days []time.Time) ([]article.Row, error) {
	lo, _ := biztime.DayBounds(biztime.Today(c.clock))
	if len(days) > 0 {
		lo, _ = biztime.DayBounds(days[0])
	}
	hi := biztime.EncodeDateTime(c.clock.Now())

	rows, err := c.store.SelectRange(ctx, country, lo, hi)
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError("failed to read articles", err.Error())
	}
	return rows, nil
}

// isFatal reports whether the error must abort the whole request rather
// than degrade it to a partial response.
func isFatal(err error) bool {
	return apperrors.IsTimeoutError(err) ||
		apperrors.IsStoreUnavailableError(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func classifyCtxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.NewTimeoutError("request deadline elapsed")
	}
	return err
}
