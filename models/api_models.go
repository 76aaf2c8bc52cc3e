// models/api_models.go
package models

// HubSummary is everything a metro hub page needs, already aggregated.
type HubSummary struct {
	Metro            Metro              `json:"metro"`
	Destinations     []RouteInsight     `json:"destinations"` // one row per destination, cheapest first
	DestinationCount int                `json:"destination_count"`
	MonthlyAverage   map[string]float64 `json:"monthly_average"`
	CheapestMonths   []string           `json:"cheapest_months"`
	CheapestNow      []CheapestNow      `json:"cheapest_now"` // domestic/international blend
	RecentDeals      []SentDeal         `json:"recent_deals"`
	Regions          []RegionGroup      `json:"regions"`
}

// RegionGroup is one tab of the region browser.
type RegionGroup struct {
	Region        Region              `json:"region"`
	Label         string              `json:"label"`
	Count         int                 `json:"count"`
	CheapestPrice *float64            `json:"cheapest_price"`
	Destinations  []RegionDestination `json:"destinations"`
}

// RouteSummary is everything a route page needs.
type RouteSummary struct {
	Metro          Metro             `json:"metro"`
	Insight        RouteInsight      `json:"insight"`
	PriceTrend     []PriceTrendPoint `json:"price_trend"`
	CheapestMonths []string          `json:"cheapest_months"`
	Narrative      string            `json:"narrative"`
	Related        []string          `json:"related_destinations"`
}

// SitemapRoute is a metro/destination pair that gets a route page.
type SitemapRoute struct {
	MetroSlug   string `json:"metro_slug"`
	Destination string `json:"destination"`
}

// WarmResult reports one metro pre-populated by the cache warmer.
type WarmResult struct {
	Slug       string `json:"slug"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// HomeSummary is the site-wide overview.
type HomeSummary struct {
	Stats       SiteStats  `json:"stats"`
	RecentDeals []SentDeal `json:"recent_deals"`
}
