package usage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gdeltnews/internal/infrastructure/persistence/models"
	"gdeltnews/internal/shared/biztime"
	"gdeltnews/internal/shared/logger"
)

const (
	testBudget       = int64(1) << 40 // 1 TiB
	testDefaultQuery = int64(4) << 30 // 4 GiB
)

func setupMeter(t *testing.T) *Meter {
	t.Helper()
	biztime.MustInit("UTC")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.WarehouseUsageModel{}))

	clock := biztime.FixedClock{Instant: time.Date(2026, 1, 22, 15, 30, 0, 0, time.UTC)}
	return NewMeter(db, clock, testBudget, testDefaultQuery, logger.Nop())
}

func TestRecordAccumulates(t *testing.T) {
	m := setupMeter(t)
	ctx := context.Background()

	inputs := []struct {
		kind  string
		bytes int64
	}{
		{"daily", 100},
		{"daily", 250},
		{"today", 50},
	}

	var total int64
	for _, in := range inputs {
		require.NoError(t, m.Record(ctx, in.kind, in.bytes))
		total += in.bytes

		// Monotonic: the running total always equals the sum of inputs so far.
		stats, err := m.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, total, stats.TotalBytes)
	}

	stats, err := m.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-01", stats.Month)
	assert.Equal(t, int64(400), stats.TotalBytes)
	assert.Equal(t, int64(3), stats.QueryCount)
	assert.Equal(t, KindUsage{Bytes: 350, Count: 2}, stats.ByKind["daily"])
	assert.Equal(t, KindUsage{Bytes: 50, Count: 1}, stats.ByKind["today"])
}

func TestSnapshotEmptyMonth(t *testing.T) {
	m := setupMeter(t)

	stats, err := m.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalBytes)
	assert.Zero(t, stats.QueryCount)
	assert.Equal(t, testBudget, stats.RemainingBytes)
	// With no samples the estimate falls back to the default query size.
	assert.Equal(t, testBudget/testDefaultQuery, stats.EstimatedQueriesLeft)
	assert.Equal(t, "none", stats.WarningLevel)
}

func TestSnapshotEstimatesFromObservedAverage(t *testing.T) {
	m := setupMeter(t)
	ctx := context.Background()

	require.NoError(t, m.Record(ctx, "daily", 1<<30))
	require.NoError(t, m.Record(ctx, "daily", 3<<30))

	stats, err := m.Snapshot(ctx)
	require.NoError(t, err)
	avg := int64(2) << 30
	assert.Equal(t, stats.RemainingBytes/avg, stats.EstimatedQueriesLeft)
}

func TestRecordRejectsNegative(t *testing.T) {
	m := setupMeter(t)
	assert.Error(t, m.Record(context.Background(), "daily", -1))
}

func TestWarningLevels(t *testing.T) {
	tests := []struct {
		percent  float64
		expected string
	}{
		{0, "none"},
		{49.9, "none"},
		{50, "notice"},
		{79.9, "notice"},
		{80, "warning"},
		{89.9, "warning"},
		{90, "critical"},
		{150, "critical"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, warningLevel(tt.percent), "percent=%v", tt.percent)
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	m := setupMeter(t)
	ctx := context.Background()

	require.NoError(t, m.Record(ctx, "daily", testBudget*2))

	stats, err := m.Snapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.RemainingBytes)
	assert.Equal(t, "critical", stats.WarningLevel)
}
