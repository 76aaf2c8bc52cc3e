package models

import "time"

// SentDeal is a fare that was emailed to subscribers.
type SentDeal struct {
	Origin       string    `db:"origin" json:"origin"`
	Destination  string    `db:"destination" json:"destination"`
	Price        float64   `db:"price" json:"price"`
	OutboundDate time.Time `db:"outbound_date" json:"outbound_date"`
	ReturnDate   time.Time `db:"return_date" json:"return_date"`
	SentAt       time.Time `db:"sent_at" json:"sent_at"`
}
