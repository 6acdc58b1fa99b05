package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}

func TestDayDistance(t *testing.T) {
    cases := []struct {
        a, b time.Time
        want int
    }{
        {time.Date(2020, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2020, 3, 10, 0, 0, 0, 0, time.UTC), 0},
        {time.Date(2020, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2020, 3, 17, 0, 0, 0, 0, time.UTC), 7},
        {time.Date(2020, 3, 17, 0, 0, 0, 0, time.UTC), time.Date(2020, 3, 10, 0, 0, 0, 0, time.UTC), 7},
        {time.Date(2020, 3, 10, 23, 59, 0, 0, time.UTC), time.Date(2020, 3, 11, 0, 1, 0, 0, time.UTC), 1},
        {time.Date(2020, 2, 28, 0, 0, 0, 0, time.UTC), time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), 2},
    }
    for i, c := range cases {
        if got := DayDistance(c.a, c.b); got != c.want {
            t.Errorf("case %d: got %d want %d", i, got, c.want)
        }
    }
}

func TestMidnight(t *testing.T) {
    in := time.Date(2021, 7, 4, 15, 30, 45, 12, time.UTC)
    got := Midnight(in)
    if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
        t.Fatalf("not midnight: %v", got)
    }
    if got.Year() != 2021 || got.Month() != time.July || got.Day() != 4 {
        t.Fatalf("day changed: %v", got)
    }
}
