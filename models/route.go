// models/route.go
package models

import "time"

// RouteInsight is the precomputed price summary for one origin/destination pair.
// Rows come from the route_insights table, which an external batch job rewrites.
type RouteInsight struct {
	Origin             string             `db:"origin" json:"origin"`
	Destination        string             `db:"destination" json:"destination"`
	TypicalPrice       *float64           `db:"typical_price" json:"typical_price"`
	LowPriceThreshold  *float64           `db:"low_price_threshold" json:"low_price_threshold"`
	HighPriceThreshold *float64           `db:"high_price_threshold" json:"high_price_threshold"`
	MinPriceEver       *float64           `db:"min_price_ever" json:"min_price_ever"`
	MaxPriceEver       *float64           `db:"max_price_ever" json:"max_price_ever,omitempty"`
	AvgPrice           *float64           `db:"avg_price" json:"avg_price,omitempty"`
	MonthlyTypical     map[string]float64 `db:"monthly_typical" json:"monthly_typical"` // "01".."12"
	SampleSize         int                `db:"sample_size" json:"sample_size"`
	DataQuality        string             `db:"data_quality" json:"data_quality"` // high, medium, low
	DaysTracked        *int               `db:"days_tracked" json:"days_tracked,omitempty"`
	LastScraped        *time.Time         `db:"last_scraped" json:"last_scraped,omitempty"`
}

// Data quality tags assigned upstream.
const (
	QualityHigh   = "high"
	QualityMedium = "medium"
	QualityLow    = "low"
)

// CheapestNow is the minimum fare observed for a route in the trailing window.
type CheapestNow struct {
	Origin      string    `db:"origin" json:"origin"`
	Destination string    `db:"destination" json:"destination"`
	Price       float64   `db:"price" json:"price"`
	ScrapedDate time.Time `db:"scraped_date" json:"scraped_date"`
}

// RegionDestination is a RouteInsight reduced for the region browser.
type RegionDestination struct {
	Origin            string   `db:"origin" json:"origin"`
	Destination       string   `db:"destination" json:"destination"`
	TypicalPrice      *float64 `db:"typical_price" json:"typical_price"`
	LowPriceThreshold *float64 `db:"low_price_threshold" json:"low_price_threshold"`
	SampleSize        int      `db:"sample_size" json:"sample_size"`
	Region            Region   `db:"-" json:"region"`
}

// PriceTrendPoint is the cheapest observed fare on one scrape date.
type PriceTrendPoint struct {
	MinPrice    float64   `db:"min_price" json:"min_price"`
	ScrapedDate time.Time `db:"scraped_date" json:"scraped_date"`
}

// QualifyingRoute is a route with enough data to deserve its own page.
type QualifyingRoute struct {
	Origin      string `db:"origin" json:"origin"`
	Destination string `db:"destination" json:"destination"`
}

// DestinationCode and RankPrice let aggregation code order rows without knowing their
// concrete type. RankPrice is the deal threshold, or nil when unknown.

func (r RouteInsight) DestinationCode() string { return r.Destination }
func (r RouteInsight) RankPrice() *float64     { return r.LowPriceThreshold }

func (r RegionDestination) DestinationCode() string { return r.Destination }
func (r RegionDestination) RankPrice() *float64     { return r.LowPriceThreshold }

func (c CheapestNow) DestinationCode() string { return c.Destination }
func (c CheapestNow) RankPrice() *float64 {
	p := c.Price
	return &p
}

// MonthlyPrices returns the monthly_typical map.
func (r RouteInsight) MonthlyPrices() map[string]float64 { return r.MonthlyTypical }
