package models

// Region is the display bucket a destination airport falls into.
type Region string

const (
	RegionDomestic         Region = "domestic"
	RegionCanada           Region = "canada"
	RegionMexicoCaribbean  Region = "mexico_caribbean"
	RegionSouthAmerica     Region = "south_america"
	RegionEurope           Region = "europe"
	RegionAsiaPacific      Region = "asia_pacific"
	RegionAfricaMiddleEast Region = "africa_middle_east"
)

// RegionOrder is the order regions are presented in.
var RegionOrder = []Region{
	RegionDomestic,
	RegionCanada,
	RegionMexicoCaribbean,
	RegionSouthAmerica,
	RegionEurope,
	RegionAsiaPacific,
	RegionAfricaMiddleEast,
}

var regionLabels = map[Region]string{
	RegionDomestic:         "US Domestic",
	RegionCanada:           "Canada",
	RegionMexicoCaribbean:  "Mexico & Caribbean",
	RegionSouthAmerica:     "Central & South America",
	RegionEurope:           "Europe",
	RegionAsiaPacific:      "Asia & Pacific",
	RegionAfricaMiddleEast: "Africa & Middle East",
}

// Valid reports whether r is one of the seven known regions.
func (r Region) Valid() bool {
	_, ok := regionLabels[r]
	return ok
}

// Label returns the human-readable region name.
func (r Region) Label() string {
	if l, ok := regionLabels[r]; ok {
		return l
	}
	return string(r)
}
