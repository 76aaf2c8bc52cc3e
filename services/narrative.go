// services/narrative.go
package services

import (
	"fmt"
	"strings"

	"github.com/cheapflightsfrom/backend/utils"
)

// GenerateNarrative writes the "best time to fly" paragraph for a route.
func GenerateNarrative(origin, destination string, monthly map[string]float64) string {
	entries := rankedMonths(monthly)
	if len(entries) == 0 {
		return fmt.Sprintf("Check back soon for price trends on flights from %s to %s.", origin, destination)
	}

	cheapest := entries[0]
	expensive := entries[len(entries)-1]
	top := entries
	if len(top) > 3 {
		top = top[:3]
	}
	names := make([]string, len(top))
	for i, e := range top {
		names[i] = utils.MonthName(e.key)
	}

	return fmt.Sprintf(
		"The cheapest time to fly from %s to %s is typically %s, when fares average around %s. "+
			"The most expensive month tends to be %s at around %s. "+
			"For the best deals, consider flying in %s.",
		origin, destination,
		utils.MonthName(cheapest.key), utils.FormatDollars(cheapest.price),
		utils.MonthName(expensive.key), utils.FormatDollars(expensive.price),
		strings.Join(names, ", "),
	)
}
