// models/meta.go
package models

// SiteStats holds the site-wide counters shown on the homepage.
type SiteStats struct {
	TotalRoutes   int      `json:"total_routes"`
	TotalOrigins  int      `json:"total_origins"`
	CheapestPrice *float64 `json:"cheapest_price"`
}

// Metro is a named group of origin airports served as one hub page.
type Metro struct {
	Name        string   `csv:"name" json:"name"`
	DisplayName string   `csv:"display_name" json:"display_name"`
	Slug        string   `csv:"slug" json:"slug"`
	Airports    []string `csv:"-" json:"airports"`
	AirportList string   `csv:"airports" json:"-"` // space separated in metros.csv
	USRegion    string   `csv:"region" json:"region"`
}
