package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"BrentShift/internal/domain/models"
	applogger "BrentShift/pkg/logger"
	"BrentShift/pkg/util"
)

// defaultEvents are the curated geopolitical and OPEC milestones considered
// for attribution when no events file is configured.
var defaultEvents = []models.Event{
	{Date: time.Date(1990, 8, 2, 0, 0, 0, 0, time.UTC), Description: "Iraq invades Kuwait"},
	{Date: time.Date(1991, 1, 17, 0, 0, 0, 0, time.UTC), Description: "Gulf War: Operation Desert Storm begins"},
	{Date: time.Date(1997, 7, 2, 0, 0, 0, 0, time.UTC), Description: "Asian financial crisis begins"},
	{Date: time.Date(2001, 9, 11, 0, 0, 0, 0, time.UTC), Description: "September 11 attacks"},
	{Date: time.Date(2003, 3, 20, 0, 0, 0, 0, time.UTC), Description: "US-led invasion of Iraq"},
	{Date: time.Date(2008, 9, 15, 0, 0, 0, 0, time.UTC), Description: "Lehman Brothers collapse"},
	{Date: time.Date(2010, 12, 17, 0, 0, 0, 0, time.UTC), Description: "Arab Spring protests begin"},
	{Date: time.Date(2014, 11, 27, 0, 0, 0, 0, time.UTC), Description: "OPEC declines to cut production"},
	{Date: time.Date(2016, 11, 30, 0, 0, 0, 0, time.UTC), Description: "OPEC agrees to cut output"},
	{Date: time.Date(2020, 3, 6, 0, 0, 0, 0, time.UTC), Description: "OPEC+ deal collapses, Saudi price war"},
	{Date: time.Date(2020, 3, 11, 0, 0, 0, 0, time.UTC), Description: "COVID-19 declared a pandemic"},
	{Date: time.Date(2022, 2, 24, 0, 0, 0, 0, time.UTC), Description: "Russia invades Ukraine"},
}

// EventCatalog serves the event list, either the built-in one or an
// Event_Date,Event_Description file that overrides it.
type EventCatalog struct {
	path string
	l    *applogger.Logger
}

func NewEventCatalog(path string, l *applogger.Logger) *EventCatalog {
	return &EventCatalog{path: path, l: l}
}

func (c *EventCatalog) Load(ctx context.Context) ([]models.Event, error) {
	if c.path == "" {
		out := make([]models.Event, len(defaultEvents))
		copy(out, defaultEvents)
		return out, nil
	}

	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("open events: %w", err)
	}
	defer f.Close()

	evs, err := decodeEvents(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.path, err)
	}
	if c.l != nil {
		c.l.Info("event file loaded",
			applogger.String("path", c.path),
			applogger.Int("events", len(evs)),
		)
	}
	return evs, nil
}

func decodeEvents(r io.Reader) ([]models.Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	var evs []models.Event
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
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "event_date") {
			continue
		}

		day, err := time.Parse(util.DayFormat, strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: bad event date %q", models.ErrMalformedInput, line, rec[0])
		}
		desc := strings.TrimSpace(rec[1])
		if desc == "" {
			return nil, fmt.Errorf("%w: row %d: empty event description", models.ErrMalformedInput, line)
		}
		evs = append(evs, models.Event{Date: day.UTC(), Description: desc})
	}
	if len(evs) == 0 {
		return nil, fmt.Errorf("%w: no event rows", models.ErrMalformedInput)
	}
	return evs, nil
}
