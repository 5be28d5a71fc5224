// Package biztime provides business-timezone clock and calendar utilities.
// Day boundaries are computed in the configured business timezone; the
// integer YYYYMMDDHHMMSS encoding used by the warehouse is interpreted in
// the same zone. The two must agree (see app.timezone in the configuration).
package biztime

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTimezone is the default business timezone.
const DefaultTimezone = "UTC"

var (
	bizLocation     *time.Location
	bizLocationOnce sync.Once
	initErr         error
)

// Init initializes the business timezone. Should be called once at startup.
// If tz is empty, defaults to UTC.
func Init(tz string) error {
	bizLocationOnce.Do(func() {
		if tz == "" {
			tz = DefaultTimezone
		}
		bizLocation, initErr = time.LoadLocation(tz)
	})
	return initErr
}

// MustInit initializes the business timezone and panics on error.
func MustInit(tz string) {
	if err := Init(tz); err != nil {
		panic(fmt.Sprintf("failed to initialize business timezone %q: %v", tz, err))
	}
}

// Location returns the business timezone location, auto-initializing with
// the default timezone when Init was never called.
func Location() *time.Location {
	if bizLocation == nil {
		if err := Init(""); err != nil {
			panic(fmt.Sprintf("biztime: failed to auto-initialize default timezone: %v", err))
		}
	}
	return bizLocation
}

// Today returns the current calendar date (midnight) in the business timezone.
func Today(c Clock) time.Time {
	now := c.Now().In(Location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, Location())
}

// DayWindow returns the inclusive [00:00:00, 23:59:59] window of the given
// date in the business timezone.
func DayWindow(d time.Time) (start, end time.Time) {
	d = d.In(Location())
	start = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, Location())
	end = time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, Location())
	return start, end
}

// DayBounds returns the YYYYMMDDHHMMSS encodings of the day window.
func DayBounds(d time.Time) (lo, hi int64) {
	start, end := DayWindow(d)
	return EncodeDateTime(start), EncodeDateTime(end)
}

// RecentDays returns the n calendar days ending yesterday, in ascending
// order. Today is excluded; it has its own freshness-driven refresh path.
// RecentDays(c, 0) returns an empty slice.
func RecentDays(c Clock, n int) []time.Time {
	today := Today(c)
	days := make([]time.Time, 0, n)
	for i := n; i >= 1; i-- {
		days = append(days, today.AddDate(0, 0, -i))
	}
	return days
}

// EncodeDateTime encodes t as the integer YYYYMMDDHHMMSS in the business
// timezone.
func EncodeDateTime(t time.Time) int64 {
	t = t.In(Location())
	return int64(t.Year())*1e10 +
		int64(t.Month())*1e8 +
		int64(t.Day())*1e6 +
		int64(t.Hour())*1e4 +
		int64(t.Minute())*1e2 +
		int64(t.Second())
}

// DecodeDateTime decodes a YYYYMMDDHHMMSS integer into a time in the
// business timezone. Returns an error for values that do not round-trip,
// such as out-of-range months or nonexistent calendar days.
func DecodeDateTime(v int64) (time.Time, error) {
	if v < 1_0101_000000 || v > 9999_1231_235959 {
		return time.Time{}, fmt.Errorf("datetime integer %d out of range", v)
	}

	sec := int(v % 100)
	min := int(v / 1e2 % 100)
	hour := int(v / 1e4 % 100)
	day := int(v / 1e6 % 100)
	month := int(v / 1e8 % 100)
	year := int(v / 1e10)

	t := time.Date(year, time.Month(month), day, hour, min, sec, 0, Location())
	if EncodeDateTime(t) != v {
		return time.Time{}, fmt.Errorf("invalid datetime integer %d", v)
	}
	return t, nil
}
