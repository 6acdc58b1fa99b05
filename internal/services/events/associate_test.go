package events

import (
	"testing"
	"time"

	"BrentShift/internal/domain/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAssociateWindowBoundary(t *testing.T) {
	cp := day(2020, 4, 20)
	tests := []struct {
		name    string
		event   time.Time
		matched bool
	}{
		{"same day", day(2020, 4, 20), true},
		{"seven days before", day(2020, 4, 13), true},
		{"seven days after", day(2020, 4, 27), true},
		{"eight days before", day(2020, 4, 12), false},
		{"eight days after", day(2020, 4, 28), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evs := []models.Event{{Date: tt.event, Description: "OPEC meeting"}}
			got := Associate([]time.Time{cp}, evs, 7)
			if len(got) != 1 {
				t.Fatalf("got %d associations, want 1", len(got))
			}
			if got[0].Matched != tt.matched {
				t.Fatalf("matched = %v, want %v", got[0].Matched, tt.matched)
			}
			if tt.matched && got[0].EventDate != tt.event.Format("2006-01-02") {
				t.Errorf("event date = %q, want %q", got[0].EventDate, tt.event.Format("2006-01-02"))
			}
		})
	}
}

func TestAssociateFirstEventWins(t *testing.T) {
	cp := day(2014, 11, 28)
	evs := []models.Event{
		// listed out of order; the earlier date must win even though the
		// later one is closer to the change point
		{Date: day(2014, 11, 30), Description: "closer event"},
		{Date: day(2014, 11, 25), Description: "earlier event"},
	}

	got := Associate([]time.Time{cp}, evs, 7)
	if !got[0].Matched {
		t.Fatal("expected a match inside the window")
	}
	if got[0].EventDescription != "earlier event" {
		t.Errorf("description = %q, want the first event in date order", got[0].EventDescription)
	}
	if got[0].EventDate != "2014-11-25" {
		t.Errorf("event date = %q, want 2014-11-25", got[0].EventDate)
	}
}

func TestAssociateNoEventSentinel(t *testing.T) {
	cp := day(2008, 9, 15)
	evs := []models.Event{{Date: day(2008, 1, 1), Description: "far away"}}

	got := Associate([]time.Time{cp}, evs, 7)
	if got[0].Matched {
		t.Fatal("expected no match")
	}
	if got[0].EventDate != models.NoEventDate {
		t.Errorf("event date = %q, want %q", got[0].EventDate, models.NoEventDate)
	}
	if want := "No event within ±7 days"; got[0].EventDescription != want {
		t.Errorf("description = %q, want %q", got[0].EventDescription, want)
	}
}

func TestAssociateMultipleChangePoints(t *testing.T) {
	dates := []time.Time{day(2020, 3, 6), day(2022, 2, 25)}
	evs := []models.Event{
		{Date: day(2020, 3, 6), Description: "OPEC+ collapse"},
		{Date: day(2022, 2, 24), Description: "invasion"},
	}

	got := Associate(dates, evs, 7)
	if len(got) != 2 {
		t.Fatalf("got %d associations, want 2", len(got))
	}
	if got[0].EventDescription != "OPEC+ collapse" || got[1].EventDescription != "invasion" {
		t.Errorf("associations = %+v, want each change point matched independently", got)
	}
	if !got[0].ChangePointDate.Equal(dates[0]) || !got[1].ChangePointDate.Equal(dates[1]) {
		t.Errorf("change point dates not preserved: %+v", got)
	}
}

func TestAssociateEmptyEvents(t *testing.T) {
	got := Associate([]time.Time{day(2015, 1, 2)}, nil, 7)
	if len(got) != 1 || got[0].Matched {
		t.Fatalf("associations = %+v, want single unmatched entry", got)
	}
}
