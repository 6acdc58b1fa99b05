package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"BrentShift/internal/domain/models"
)

func TestEventCatalogDefaults(t *testing.T) {
	evs, err := NewEventCatalog("", nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(evs) != len(defaultEvents) {
		t.Fatalf("events = %d, want %d", len(evs), len(defaultEvents))
	}
	for i := 1; i < len(evs); i++ {
		if evs[i].Date.Before(evs[i-1].Date) {
			t.Fatalf("built-in events not date ascending at %d", i)
		}
	}

	want := time.Date(2022, 2, 24, 0, 0, 0, 0, time.UTC)
	found := false
	for _, ev := range evs {
		if ev.Date.Equal(want) {
			found = true
		}
	}
	if !found {
		t.Error("built-in catalog missing the 2022-02-24 event")
	}

	// callers must not be able to corrupt the shared defaults
	evs[0].Description = "mutated"
	again, _ := NewEventCatalog("", nil).Load(context.Background())
	if again[0].Description == "mutated" {
		t.Error("default events leaked a shared slice")
	}
}

func TestEventCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	data := "Event_Date,Event_Description\n2014-11-27,OPEC declines to cut production\n2020-03-06,Price war begins\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	evs, err := NewEventCatalog(path, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("events = %d, want 2", len(evs))
	}
	if evs[0].Description != "OPEC declines to cut production" {
		t.Errorf("description = %q", evs[0].Description)
	}
	if !evs[1].Date.Equal(time.Date(2020, 3, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v, want 2020-03-06", evs[1].Date)
	}
}

func TestEventCatalogRejectsBadFile(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad date", "Event_Date,Event_Description\n06-Mar-20,price war\n"},
		{"empty description", "Event_Date,Event_Description\n2020-03-06,\n"},
		{"no rows", "Event_Date,Event_Description\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "events.csv")
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := NewEventCatalog(path, nil).Load(context.Background())
			if !errors.Is(err, models.ErrMalformedInput) {
				t.Fatalf("err = %v, want ErrMalformedInput", err)
			}
		})
	}
}
