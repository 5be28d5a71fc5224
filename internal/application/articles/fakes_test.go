package articles

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"gdeltnews/internal/domain/article"
	"gdeltnews/internal/shared/biztime"
)

// fakeStore is an in-memory article.Store.
type fakeStore struct {
	mu    sync.Mutex
	rows  map[string]article.Row
	clock biztime.Clock

	countErr  error
	selectErr error
	upsertErr error
}

func newFakeStore(clock biztime.Clock) *fakeStore {
	return &fakeStore{
		rows:  make(map[string]article.Row),
		clock: clock,
	}
}

func (s *fakeStore) seed(rows ...article.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = s.clock.Now()
		}
		s.rows[r.GKGRecordID] = r
	}
}

func (s *fakeStore) CountInDay(ctx context.Context, country string, lo, hi int64) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, r := range s.rows {
		if r.CountryCode == country && r.DateAdded >= lo && r.DateAdded <= hi {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) MaxDateAdded(ctx context.Context, country string, lo, hi int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max int64
	found := false
	for _, r := range s.rows {
		if r.CountryCode == country && r.DateAdded >= lo && r.DateAdded <= hi {
			if r.DateAdded > max {
				max = r.DateAdded
			}
			found = true
		}
	}
	return max, found, nil
}

func (s *fakeStore) UpsertMany(ctx context.Context, rows []article.Row) (int64, error) {
	if s.upsertErr != nil {
		return 0, s.upsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var written int64
	for _, r := range rows {
		if existing, ok := s.rows[r.GKGRecordID]; ok {
			r.CreatedAt = existing.CreatedAt
		} else if r.CreatedAt.IsZero() {
			r.CreatedAt = s.clock.Now()
		}
		s.rows[r.GKGRecordID] = r
		written++
	}
	return written, nil
}

func (s *fakeStore) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.clock.Now().Add(-time.Duration(days) * 24 * time.Hour)
	var deleted int64
	for id, r := range s.rows {
		if r.CreatedAt.Before(cutoff) {
			delete(s.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *fakeStore) SelectRange(ctx context.Context, country string, lo, hi int64) ([]article.Row, error) {
	if s.selectErr != nil {
		return nil, s.selectErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []article.Row
	for _, r := range s.rows {
		if r.CountryCode == country && r.DateAdded >= lo && r.DateAdded <= hi {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateAdded > out[j].DateAdded })
	return out, nil
}

func (s *fakeStore) Stats(ctx context.Context) (article.StorageStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := article.StorageStats{RowsByCountry: make(map[string]int64)}
	for _, r := range s.rows {
		stats.TotalRows++
		stats.RowsByCountry[r.CountryCode]++
	}
	return stats, nil
}

type dayCall struct {
	Country string
	Day     time.Time
	Lo, Hi  int64
	Limit   int
}

type rangeCall struct {
	Country string
	Lo, Hi  int64
	Limit   int
}

// fakeWarehouse records calls and synthesizes rows spread across the
// requested window.
type fakeWarehouse struct {
	mu         sync.Mutex
	dayCalls   []dayCall
	rangeCalls []rangeCall

	rowsPerDay   int
	rowsPerRange int
	bytesPerCall int64
	delay        time.Duration

	dayErr   func(day time.Time) error
	rangeErr error
}

func newFakeWarehouse() *fakeWarehouse {
	return &fakeWarehouse{
		rowsPerDay:   100,
		rowsPerRange: 10,
		bytesPerCall: 1 << 20,
	}
}

func synthRows(country string, anchor time.Time, step time.Duration, n int) []article.Row {
	rows := make([]article.Row, 0, n)
	for i := 0; i < n; i++ {
		stamp := biztime.EncodeDateTime(anchor.Add(time.Duration(i) * step))
		rows = append(rows, article.Row{
			GKGRecordID: fmt.Sprintf("%s-%d-%d", country, stamp, i),
			CountryCode: country,
			DateAdded:   stamp,
			Payload:     json.RawMessage(`{}`),
		})
	}
	return rows
}

func (w *fakeWarehouse) FetchDay(ctx context.Context, country string, day time.Time, limit int) (article.FetchResult, error) {
	lo, hi := biztime.DayBounds(day)
	w.mu.Lock()
	w.dayCalls = append(w.dayCalls, dayCall{Country: country, Day: day, Lo: lo, Hi: hi, Limit: limit})
	errFn := w.dayErr
	w.mu.Unlock()

	if w.delay > 0 {
		select {
		case <-time.After(w.delay):
		case <-ctx.Done():
			return article.FetchResult{}, ctx.Err()
		}
	}
	if errFn != nil {
		if err := errFn(day); err != nil {
			return article.FetchResult{}, err
		}
	}

	start, _ := biztime.DayWindow(day)
	return article.FetchResult{
		Rows:         synthRows(country, start.Add(8*time.Hour), time.Second, w.rowsPerDay),
		BytesScanned: w.bytesPerCall,
	}, nil
}

func (w *fakeWarehouse) FetchRange(ctx context.Context, country string, lo, hi int64, limit int) (article.FetchResult, error) {
	w.mu.Lock()
	w.rangeCalls = append(w.rangeCalls, rangeCall{Country: country, Lo: lo, Hi: hi, Limit: limit})
	w.mu.Unlock()

	if w.delay > 0 {
		select {
		case <-time.After(w.delay):
		case <-ctx.Done():
			return article.FetchResult{}, ctx.Err()
		}
	}
	if w.rangeErr != nil {
		return article.FetchResult{}, w.rangeErr
	}

	end, err := biztime.DecodeDateTime(hi)
	if err != nil {
		return article.FetchResult{}, err
	}
	return article.FetchResult{
		Rows:         synthRows(country, end, -time.Second, w.rowsPerRange),
		BytesScanned: w.bytesPerCall,
	}, nil
}

func (w *fakeWarehouse) dayCallCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dayCalls)
}

func (w *fakeWarehouse) rangeCallCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.rangeCalls)
}

// fakeUsage records metering calls.
type fakeUsage struct {
	mu      sync.Mutex
	records []struct {
		Kind  string
		Bytes int64
	}
}

func (u *fakeUsage) Record(ctx context.Context, kind string, bytes int64) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.records = append(u.records, struct {
		Kind  string
		Bytes int64
	}{kind, bytes})
	return nil
}

func (u *fakeUsage) totalBytes() int64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	var total int64
	for _, r := range u.records {
		total += r.Bytes
	}
	return total
}
