package util

import (
    "strconv"
    "time"
)

// DayFormat is the ISO calendar-day layout used across artifacts and the API.
const DayFormat = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0), true
    }
    return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
    if t, ok := ParseTime(s); ok {
        return t
    }
    return def
}

// Midnight normalizes t to 00:00:00 UTC on the same calendar day.
func Midnight(t time.Time) time.Time {
    y, m, d := t.Date()
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayDistance returns the absolute distance between two dates in whole
// calendar days, ignoring time-of-day.
func DayDistance(a, b time.Time) int {
    d := Midnight(a).Sub(Midnight(b)) / (24 * time.Hour)
    if d < 0 {
        d = -d
    }
    return int(d)
}

// FormatDay renders t as an ISO calendar day.
func FormatDay(t time.Time) string {
    return t.Format(DayFormat)
}
