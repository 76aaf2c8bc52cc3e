// services/aggregate.go
package services

import (
	"math"
	"sort"

	"github.com/cheapflightsfrom/backend/utils"
)

// MissingPrice orders rows without a usable price after every priced row.
const MissingPrice = 9999.0

// Interleave pattern for MixDomesticInternational.
const (
	domesticRun      = 3
	internationalRun = 1
)

// Ranked is a row with a destination and an optional ordering price.
type Ranked interface {
	DestinationCode() string
	RankPrice() *float64
}

// rankValue treats nil and non-positive prices as unknown.
func rankValue(r Ranked) float64 {
	p := r.RankPrice()
	if p == nil || *p <= 0 {
		return MissingPrice
	}
	return *p
}

// DeduplicateByDestination keeps one row per destination: the one with the lowest
// price, the first seen on ties. Output order follows each destination's first
// appearance. The input is not modified.
func DeduplicateByDestination[T Ranked](rows []T) []T {
	if len(rows) == 0 {
		return nil
	}
	index := make(map[string]int, len(rows))
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		dest := r.DestinationCode()
		i, seen := index[dest]
		if !seen {
			index[dest] = len(out)
			out = append(out, r)
			continue
		}
		if rankValue(r) < rankValue(out[i]) {
			out[i] = r
		}
	}
	return out
}

// SortByPrice returns a copy of rows ordered ascending by price, missing prices last.
// The sort is stable.
func SortByPrice[T Ranked](rows []T) []T {
	out := make([]T, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return rankValue(out[i]) < rankValue(out[j])
	})
	return out
}

// MixDomesticInternational interleaves up to three domestic rows with one
// international row, each group cheapest first, until both run out or limit rows have
// been emitted.
func MixDomesticInternational[T Ranked](rows []T, isDomestic func(string) bool, limit int) []T {
	if limit <= 0 || len(rows) == 0 {
		return nil
	}
	var domestic, international []T
	for _, r := range rows {
		if isDomestic != nil && isDomestic(r.DestinationCode()) {
			domestic = append(domestic, r)
		} else {
			international = append(international, r)
		}
	}
	domestic = SortByPrice(domestic)
	international = SortByPrice(international)

	out := make([]T, 0, min(limit, len(rows)))
	di, ii := 0, 0
	for len(out) < limit && (di < len(domestic) || ii < len(international)) {
		for n := 0; n < domesticRun && di < len(domestic) && len(out) < limit; n++ {
			out = append(out, domestic[di])
			di++
		}
		for n := 0; n < internationalRun && ii < len(international) && len(out) < limit; n++ {
			out = append(out, international[ii])
			ii++
		}
	}
	return out
}

// MonthlySource is anything carrying a monthly_typical map.
type MonthlySource interface {
	MonthlyPrices() map[string]float64
}

// AggregateMonthlyPrices averages each month's positive prices across rows, rounded
// to whole dollars. Months with no positive price are left out.
func AggregateMonthlyPrices[T MonthlySource](rows []T) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range rows {
		for month, p := range r.MonthlyPrices() {
			if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
				continue
			}
			sums[month] += p
			counts[month]++
		}
	}
	out := make(map[string]float64, len(sums))
	for month, sum := range sums {
		out[month] = math.Round(sum / float64(counts[month]))
	}
	return out
}

type monthPrice struct {
	key   string
	price float64
}

// rankedMonths returns the positive entries of monthly sorted by price, ties by month key.
func rankedMonths(monthly map[string]float64) []monthPrice {
	entries := make([]monthPrice, 0, len(monthly))
	for k, p := range monthly {
		if p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0) {
			entries = append(entries, monthPrice{key: k, price: p})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].price != entries[j].price {
			return entries[i].price < entries[j].price
		}
		return entries[i].key < entries[j].key
	})
	return entries
}

// CheapestMonths returns the names of the count cheapest months.
func CheapestMonths(monthly map[string]float64, count int) []string {
	if count <= 0 {
		return []string{}
	}
	entries := rankedMonths(monthly)
	if len(entries) > count {
		entries = entries[:count]
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = utils.MonthName(e.key)
	}
	return names
}
