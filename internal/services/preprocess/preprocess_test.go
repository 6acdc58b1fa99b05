package preprocess

import (
	"errors"
	"math"
	"testing"
	"time"

	"BrentShift/internal/domain/models"
)

func day(n int) time.Time {
	return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func series(prices ...float64) models.PriceSeries {
	s := make(models.PriceSeries, len(prices))
	for i, p := range prices {
		s[i] = models.PricePoint{Date: day(i), Price: p}
	}
	return s
}

func TestPrepareKnownReturns(t *testing.T) {
	ds, err := Prepare(series(100, 110, 90, 50, 45))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{
		math.Log(110.0 / 100.0),
		math.Log(90.0 / 110.0),
		math.Log(50.0 / 90.0),
		math.Log(45.0 / 50.0),
	}
	if len(ds.Returns) != len(want) {
		t.Fatalf("got %d returns, want %d", len(ds.Returns), len(want))
	}
	for i := range want {
		if math.Abs(ds.Returns[i]-want[i]) > 1e-12 {
			t.Errorf("return %d: got %v want %v", i, ds.Returns[i], want[i])
		}
	}
	// spot-check magnitudes against hand-computed values
	approx := []float64{0.0953, -0.2007, -0.5878, -0.1054}
	for i := range approx {
		if math.Abs(ds.Returns[i]-approx[i]) > 5e-4 {
			t.Errorf("return %d: got %v, expected about %v", i, ds.Returns[i], approx[i])
		}
	}
}

func TestPrepareLengthProperty(t *testing.T) {
	for _, n := range []int{2, 3, 10, 257} {
		prices := make([]float64, n)
		for i := range prices {
			prices[i] = 50 + float64(i%7)
		}
		ds, err := Prepare(series(prices...))
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		if len(ds.Returns) != n-1 {
			t.Errorf("n=%d: got %d returns, want %d", n, len(ds.Returns), n-1)
		}
	}
}

func TestPrepareRoundTrip(t *testing.T) {
	in := []float64{100, 110, 90, 50, 45, 61.25, 61.25, 80}
	ds, err := Prepare(series(in...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// exponentiating the cumulative sum must reconstruct the series
	cum := 0.0
	for i, r := range ds.Returns {
		cum += r
		got := in[0] * math.Exp(cum)
		if math.Abs(got-in[i+1]) > 1e-9*in[i+1] {
			t.Errorf("price %d: reconstructed %v want %v", i+1, got, in[i+1])
		}
	}
}

func TestPrepareSortsByDate(t *testing.T) {
	s := models.PriceSeries{
		{Date: day(2), Price: 90},
		{Date: day(0), Price: 100},
		{Date: day(1), Price: 110},
	}
	ds, err := Prepare(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ds.Prices[0].Date.Equal(day(0)) || ds.Prices[0].Price != 100 {
		t.Fatalf("series not sorted: %+v", ds.Prices)
	}
	// input must be untouched
	if !s[0].Date.Equal(day(2)) {
		t.Errorf("input series was mutated")
	}
	// returns follow the sorted order
	if math.Abs(ds.Returns[0]-math.Log(1.1)) > 1e-12 {
		t.Errorf("first return %v, want ln(1.1)", ds.Returns[0])
	}
}

func TestPrepareRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		in   models.PriceSeries
	}{
		{"too short", series(100)},
		{"zero price", series(100, 0, 90)},
		{"negative price", series(100, -5, 90)},
		{"nan price", series(100, math.NaN(), 90)},
		{"missing date", models.PriceSeries{{Price: 100}, {Date: day(1), Price: 101}}},
	}
	for _, c := range cases {
		if _, err := Prepare(c.in); !errors.Is(err, models.ErrMalformedInput) {
			t.Errorf("%s: got %v, want ErrMalformedInput", c.name, err)
		}
	}
}

func TestDateOfOffset(t *testing.T) {
	ds, err := Prepare(series(100, 110, 90))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// return 0 is realized on price date 1
	if !ds.DateOf(0).Equal(day(1)) {
		t.Errorf("DateOf(0) = %v, want %v", ds.DateOf(0), day(1))
	}
	if !ds.DateOf(1).Equal(day(2)) {
		t.Errorf("DateOf(1) = %v, want %v", ds.DateOf(1), day(2))
	}
}

func TestRollingVolatility(t *testing.T) {
	constant := []float64{0.01, 0.01, 0.01, 0.01, 0.01}
	vol := RollingVolatility(constant, 3)
	if len(vol) != 3 {
		t.Fatalf("got %d windows, want 3", len(vol))
	}
	for i, v := range vol {
		if v > 1e-12 {
			t.Errorf("window %d: constant series should have ~zero sd, got %v", i, v)
		}
	}

	if got := RollingVolatility([]float64{0.01}, 3); got != nil {
		t.Errorf("short series should yield nil, got %v", got)
	}

	varied := []float64{0.02, -0.02, 0.02, -0.02}
	vol = RollingVolatility(varied, 4)
	if len(vol) != 1 || vol[0] <= 0 {
		t.Fatalf("expected one positive window, got %v", vol)
	}
}
