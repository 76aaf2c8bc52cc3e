package utils

import (
	"math"

	"github.com/dustin/go-humanize"
)

// MonthKeys are the twelve canonical month codes used by monthly_typical.
var MonthKeys = []string{"01", "02", "03", "04", "05", "06", "07", "08", "09", "10", "11", "12"}

var monthNames = map[string]string{
	"01": "January", "02": "February", "03": "March", "04": "April",
	"05": "May", "06": "June", "07": "July", "08": "August",
	"09": "September", "10": "October", "11": "November", "12": "December",
}

// MonthName maps "01".."12" to the full month name; unknown keys pass through.
func MonthName(key string) string {
	if n, ok := monthNames[key]; ok {
		return n
	}
	return key
}

// MonthShort returns the three letter month abbreviation.
func MonthShort(key string) string {
	n := MonthName(key)
	if len(n) > 3 && n != key {
		return n[:3]
	}
	return n
}

// IsMonthKey reports whether key is one of MonthKeys.
func IsMonthKey(key string) bool {
	_, ok := monthNames[key]
	return ok
}

// FormatPrice renders a USD price with no decimals, "N/A" when unknown.
func FormatPrice(price *float64) string {
	if price == nil {
		return "N/A"
	}
	return FormatDollars(*price)
}

// FormatDollars renders "$1,234" rounding to whole dollars.
func FormatDollars(price float64) string {
	return "$" + humanize.Comma(int64(math.Round(price)))
}
