package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"BrentShift/internal/domain/models"
	applogger "BrentShift/pkg/logger"
	"BrentShift/pkg/util"
)

// dayLayouts are the date spellings accepted in price files. The canonical
// Brent series switches format partway through, so the configured layout is
// only the first one tried.
var dayLayouts = []string{"02-Jan-06", "Jan 02, 2006", util.DayFormat}

// CSVPriceSource reads a Date,Price file from disk.
type CSVPriceSource struct {
	path   string
	layout string
	l      *applogger.Logger
}

// NewCSVPriceSource builds a source for the file at path. layout is the
// preferred date layout; the known fallbacks are still tried after it.
func NewCSVPriceSource(path, layout string, l *applogger.Logger) *CSVPriceSource {
	return &CSVPriceSource{path: path, layout: layout, l: l}
}

func (s *CSVPriceSource) Load(ctx context.Context) (models.PriceSeries, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open prices: %w", err)
	}
	defer f.Close()

	series, err := decodePrices(f, s.layout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	if s.l != nil {
		s.l.Info("price file loaded",
			applogger.String("path", s.path),
			applogger.Int("rows", len(series)),
		)
	}
	return series, nil
}

// decodePrices parses Date,Price rows. A first row naming the columns is
// skipped; every other row must parse or the whole load fails.
func decodePrices(r io.Reader, layout string) (models.PriceSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	var series models.PriceSeries
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", models.ErrMalformedInput, line+1, err)
		}
		line++
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "date") {
			continue
		}

		day, err := parseDay(rec[0], layout)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", models.ErrMalformedInput, line, err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: bad price %q", models.ErrMalformedInput, line, rec[1])
		}
		series = append(series, models.PricePoint{Date: day, Price: price})
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no price rows", models.ErrMalformedInput)
	}
	return series, nil
}

func parseDay(s, preferred string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := dayLayouts
	if preferred != "" {
		layouts = append([]string{preferred}, dayLayouts...)
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
