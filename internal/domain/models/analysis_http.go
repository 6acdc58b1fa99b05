package models

// Requests for the read-only analysis API. Defined in domain for consistency and reuse.

// PricesRequest filters the served price table.
type PricesRequest struct {
	From  string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To    string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Limit int    `query:"limit" json:"limit" default:"0" validate:"gte=0,lte=1000000"`
}

// PriceRow is one /api/prices entry.
type PriceRow struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// EventRow is one /api/events entry.
type EventRow struct {
	EventDate        string `json:"event_date"`
	EventDescription string `json:"event_description"`
}
