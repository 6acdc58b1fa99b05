package events

import (
	"fmt"
	"sort"
	"time"

	"BrentShift/internal/domain/models"
	"BrentShift/pkg/util"
)

// Associate attributes each change-point date to the first event, in
// ascending date order, whose date lies within windowDays whole days of it
// (inclusive on both sides). The first qualifying event wins even when a
// later one is closer. Change points with no event in the window carry the
// sentinel date and a fixed no-match description.
func Associate(dates []time.Time, evs []models.Event, windowDays int) []models.Association {
	sorted := make([]models.Event, len(evs))
	copy(sorted, evs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := make([]models.Association, 0, len(dates))
	for _, d := range dates {
		a := models.Association{
			ChangePointDate:  d,
			EventDate:        models.NoEventDate,
			EventDescription: fmt.Sprintf("No event within ±%d days", windowDays),
		}
		for _, ev := range sorted {
			if util.DayDistance(d, ev.Date) <= windowDays {
				a.EventDate = util.FormatDay(ev.Date)
				a.EventDescription = ev.Description
				a.Matched = true
				break
			}
		}
		out = append(out, a)
	}
	return out
}
