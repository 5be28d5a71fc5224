// Package warehouse implements the article.Warehouse interface on top of
// BigQuery's public GDELT GKG dataset.
package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"gdeltnews/internal/domain/article"
	"gdeltnews/internal/shared/biztime"
	"gdeltnews/internal/shared/config"
	"gdeltnews/internal/shared/logger"
)

// Each location block in V2Locations is #-delimited with the FIPS country
// code in the third field, so a '#CC#' substring match selects the country.
// The partition predicate bounds bytes scanned to the requested days.
const queryTemplate = "SELECT GKGRECORDID AS gkg_record_id, DATE AS date_added, TO_JSON_STRING(t) AS payload " +
	"FROM `%s` AS t " +
	"WHERE _PARTITIONTIME BETWEEN TIMESTAMP(@part_lo) AND TIMESTAMP(@part_hi) " +
	"AND DATE BETWEEN @lo AND @hi " +
	"AND V2Locations LIKE CONCAT('%%#', @country, '#%%') " +
	"ORDER BY DATE DESC " +
	"LIMIT %d"

// Client runs parameterized GKG scans. It is safe for concurrent use.
type Client struct {
	bq     *bigquery.Client
	table  string
	logger logger.Interface
}

func NewClient(ctx context.Context, cfg *config.WarehouseConfig, log logger.Interface) (*Client, error) {
	bq, err := bigquery.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	return &Client{
		bq:     bq,
		table:  cfg.Dataset + ".gkg_partitioned",
		logger: log,
	}, nil
}

func (c *Client) Close() error {
	return c.bq.Close()
}

// FetchDay scans one full calendar day for the country.
func (c *Client) FetchDay(ctx context.Context, country string, day time.Time, limit int) (article.FetchResult, error) {
	lo, hi := biztime.DayBounds(day)
	return c.fetch(ctx, country, lo, hi, limit)
}

// FetchRange scans the [lo, hi] window for the country.
func (c *Client) FetchRange(ctx context.Context, country string, lo, hi int64, limit int) (article.FetchResult, error) {
	return c.fetch(ctx, country, lo, hi, limit)
}

type gkgRow struct {
	GKGRecordID string `bigquery:"gkg_record_id"`
	DateAdded   int64  `bigquery:"date_added"`
	Payload     string `bigquery:"payload"`
}

func (c *Client) fetch(ctx context.Context, country string, lo, hi int64, limit int) (article.FetchResult, error) {
	loTime, err := biztime.DecodeDateTime(lo)
	if err != nil {
		return article.FetchResult{}, fmt.Errorf("decode window lo: %w", err)
	}
	hiTime, err := biztime.DecodeDateTime(hi)
	if err != nil {
		return article.FetchResult{}, fmt.Errorf("decode window hi: %w", err)
	}

	q := c.bq.Query(fmt.Sprintf(queryTemplate, c.table, limit))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "part_lo", Value: loTime.Format("2006-01-02")},
		{Name: "part_hi", Value: hiTime.Format("2006-01-02")},
		{Name: "lo", Value: lo},
		{Name: "hi", Value: hi},
		{Name: "country", Value: country},
	}

	started := time.Now()
	job, err := q.Run(ctx)
	if err != nil {
		return article.FetchResult{}, fmt.Errorf("run warehouse query: %w", err)
	}
	it, err := job.Read(ctx)
	if err != nil {
		return article.FetchResult{}, fmt.Errorf("read warehouse results: %w", err)
	}

	var rows []article.Row
	for {
		var raw gkgRow
		if err := it.Next(&raw); err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return article.FetchResult{}, fmt.Errorf("iterate warehouse rows: %w", err)
		}
		rows = append(rows, article.Row{
			GKGRecordID: raw.GKGRecordID,
			CountryCode: country,
			DateAdded:   raw.DateAdded,
			Payload:     json.RawMessage(raw.Payload),
		})
	}

	result := article.FetchResult{Rows: rows}
	if status := job.LastStatus(); status != nil {
		if stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			result.BytesScanned = stats.TotalBytesProcessed
		}
	}

	c.logger.Debugw("warehouse scan completed",
		"country_code", country,
		"window_lo", lo,
		"window_hi", hi,
		"rows", len(rows),
		"bytes_scanned", result.BytesScanned,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return result, nil
}
