package articles

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdeltnews/internal/domain/article"
	"gdeltnews/internal/shared/biztime"
	apperrors "gdeltnews/internal/shared/errors"
	"gdeltnews/internal/shared/logger"
)

// Reference instant used across the scenarios.
var testNow = time.Date(2026, 1, 22, 15, 30, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		ExpectedPerDay:   100,
		CoverageRatio:    0.8,
		TodayTTL:         900 * time.Second,
		HistoricalFanout: 4,
	}
}

func newTestCoordinator(t *testing.T) (*Coordinator, *fakeStore, *fakeWarehouse, *fakeUsage) {
	t.Helper()
	biztime.MustInit("UTC")

	clock := biztime.FixedClock{Instant: testNow}
	store := newFakeStore(clock)
	warehouse := newFakeWarehouse()
	usage := &fakeUsage{}
	coord := NewCoordinator(store, warehouse, usage, clock, testConfig(), logger.Nop())
	return coord, store, warehouse, usage
}

// seedDay fills the store with count rows for the given country and day.
func seedDay(store *fakeStore, country string, day time.Time, count int) {
	start, _ := biztime.DayWindow(day)
	store.seed(synthRows(country, start.Add(9*time.Hour), time.Second, count)...)
}

func TestColdCacheSingleDay(t *testing.T) {
	coord, _, warehouse, usage := newTestCoordinator(t)
	ctx := context.Background()

	result, err := coord.GetArticles(ctx, "CH", 1)
	require.NoError(t, err)
	assert.False(t, result.Partial)

	// Exactly one historical scan, covering all of yesterday.
	require.Equal(t, 1, warehouse.dayCallCount())
	call := warehouse.dayCalls[0]
	assert.Equal(t, "CH", call.Country)
	assert.Equal(t, int64(20260121000000), call.Lo)
	assert.Equal(t, int64(20260121235959), call.Hi)
	assert.Equal(t, 100, call.Limit)

	// The empty current day is fetched [00:00, now].
	require.Equal(t, 1, warehouse.rangeCallCount())
	rc := warehouse.rangeCalls[0]
	assert.Equal(t, int64(20260122000000), rc.Lo)
	assert.Equal(t, int64(20260122153000), rc.Hi)

	assert.Len(t, result.Rows, 110)
	assert.Equal(t, int64(2<<20), usage.totalBytes())

	// A second identical request is served entirely from the store.
	result2, err := coord.GetArticles(ctx, "CH", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, warehouse.dayCallCount())
	assert.Equal(t, 1, warehouse.rangeCallCount())
	assert.Len(t, result2.Rows, len(result.Rows))
}

func TestConcurrentColdCacheSingleFlight(t *testing.T) {
	coord, _, warehouse, _ := newTestCoordinator(t)
	warehouse.delay = 50 * time.Millisecond

	const callers = 10
	results := make([]Result, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = coord.GetArticles(context.Background(), "CH", 1)
		}(i)
	}
	wg.Wait()

	// Exactly one scan per day key despite ten concurrent requests.
	assert.Equal(t, 1, warehouse.dayCallCount())
	assert.Equal(t, 1, warehouse.rangeCallCount())

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Len(t, results[i].Rows, len(results[0].Rows))
	}
}

func TestTodayStaleTriggersIncrementalRefresh(t *testing.T) {
	coord, store, warehouse, _ := newTestCoordinator(t)
	ctx := context.Background()

	// Yesterday sufficiently cached; today last ingested 30 minutes ago.
	seedDay(store, "US", testNow.AddDate(0, 0, -1), 100)
	store.seed(article.Row{
		GKGRecordID: "US-today-1",
		CountryCode: "US",
		DateAdded:   20260122150000,
	})

	_, err := coord.GetArticles(ctx, "US", 1)
	require.NoError(t, err)

	assert.Equal(t, 0, warehouse.dayCallCount())
	require.Equal(t, 1, warehouse.rangeCallCount())
	rc := warehouse.rangeCalls[0]
	assert.Equal(t, int64(20260122150000), rc.Lo)
	assert.Equal(t, int64(20260122153000), rc.Hi)
}

func TestTodayFreshSkipsUpstream(t *testing.T) {
	coord, store, warehouse, _ := newTestCoordinator(t)
	ctx := context.Background()

	seedDay(store, "US", testNow.AddDate(0, 0, -1), 100)
	store.seed(article.Row{
		GKGRecordID: "US-today-1",
		CountryCode: "US",
		DateAdded:   20260122152500, // 5 minutes ago, inside the TTL
	})

	_, err := coord.GetArticles(ctx, "US", 1)
	require.NoError(t, err)

	assert.Equal(t, 0, warehouse.dayCallCount())
	assert.Equal(t, 0, warehouse.rangeCallCount())
}

func TestPartialCoverageRefetchesWholeDay(t *testing.T) {
	coord, store, warehouse, _ := newTestCoordinator(t)
	ctx := context.Background()

	// 79 rows is below floor(100 * 0.8) = 80, so the day is re-fetched.
	seedDay(store, "CH", testNow.AddDate(0, 0, -1), 79)
	store.seed(article.Row{
		GKGRecordID: "CH-today-1",
		CountryCode: "CH",
		DateAdded:   20260122152500,
	})

	_, err := coord.GetArticles(ctx, "CH", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, warehouse.dayCallCount())

	// After the fetch returned 100 rows, a follow-up request is cache-only.
	_, err = coord.GetArticles(ctx, "CH", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, warehouse.dayCallCount())
}

func TestExactThresholdIsSufficient(t *testing.T) {
	coord, store, warehouse, _ := newTestCoordinator(t)
	ctx := context.Background()

	seedDay(store, "CH", testNow.AddDate(0, 0, -1), 80)
	store.seed(article.Row{
		GKGRecordID: "CH-today-1",
		CountryCode: "CH",
		DateAdded:   20260122152500,
	})

	_, err := coord.GetArticles(ctx, "CH", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, warehouse.dayCallCount())
}

func TestPartialFailureIsolation(t *testing.T) {
	coord, store, warehouse, _ := newTestCoordinator(t)
	ctx := context.Background()

	store.seed(article.Row{
		GKGRecordID: "CH-today-1",
		CountryCode: "CH",
		DateAdded:   20260122152500,
	})

	failing := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	warehouse.dayErr = func(day time.Time) error {
		if day.Equal(failing) {
			return errors.New("quota exceeded")
		}
		return nil
	}

	result, err := coord.GetArticles(ctx, "CH", 3)
	require.NoError(t, err)

	// All three days were attempted; the failing one degraded the response.
	assert.Equal(t, 3, warehouse.dayCallCount())
	assert.True(t, result.Partial)
	assert.Len(t, result.Rows, 201) // 2 fetched days + today row
}

func TestZeroRowDayIsRetried(t *testing.T) {
	coord, store, warehouse, usage := newTestCoordinator(t)
	ctx := context.Background()

	store.seed(article.Row{
		GKGRecordID: "CH-today-1",
		CountryCode: "CH",
		DateAdded:   20260122152500,
	})
	warehouse.rowsPerDay = 0

	// No negative caching: an empty day stays insufficient and every
	// request re-attempts the fetch.
	_, err := coord.GetArticles(ctx, "CH", 1)
	require.NoError(t, err)
	_, err = coord.GetArticles(ctx, "CH", 1)
	require.NoError(t, err)

	assert.Equal(t, 2, warehouse.dayCallCount())
	// Bytes scanned are metered even when zero rows come back.
	assert.Equal(t, int64(2<<20), usage.totalBytes())
}

func TestStoreFailureIsFatal(t *testing.T) {
	coord, store, _, _ := newTestCoordinator(t)
	store.countErr = errors.New("connection refused")

	_, err := coord.GetArticles(context.Background(), "CH", 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsStoreUnavailableError(err))
}

func TestReadOutOrdering(t *testing.T) {
	coord, store, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	seedDay(store, "CH", testNow.AddDate(0, 0, -1), 100)
	store.seed(article.Row{
		GKGRecordID: "CH-today-1",
		CountryCode: "CH",
		DateAdded:   20260122152500,
	})

	result, err := coord.GetArticles(ctx, "CH", 1)
	require.NoError(t, err)
	require.NotEmpty(t, result.Rows)
	for i := 1; i < len(result.Rows); i++ {
		assert.GreaterOrEqual(t, result.Rows[i-1].DateAdded, result.Rows[i].DateAdded)
	}
	// Today's row is newest and therefore first.
	assert.Equal(t, "CH-today-1", result.Rows[0].GKGRecordID)
}
