// utils/regions.go
package utils

import (
	"strings"

	"github.com/cheapflightsfrom/backend/models"
)

// RegionClassifier buckets destination codes into display regions.
// Domestic membership comes from the metro table; international codes are looked up
// in fixed sets, then a Y-prefix heuristic (Canada), then the configured fallback.
type RegionClassifier struct {
	domestic func(string) bool
	fallback models.Region
}

// NewRegionClassifier returns a classifier using isDomestic for US airports and fallback
// for codes no set matches. An invalid fallback is replaced by Europe, which is where
// most unmapped codes in the fare data land.
func NewRegionClassifier(isDomestic func(string) bool, fallback models.Region) *RegionClassifier {
	if !fallback.Valid() || fallback == models.RegionDomestic {
		fallback = models.RegionEurope
	}
	if isDomestic == nil {
		isDomestic = func(string) bool { return false }
	}
	return &RegionClassifier{domestic: isDomestic, fallback: fallback}
}

// Fallback is the region assigned to unmapped codes.
func (c *RegionClassifier) Fallback() models.Region {
	return c.fallback
}

// Classify maps a destination code to exactly one region.
func (c *RegionClassifier) Classify(code string) models.Region {
	code = NormalizeAirportCode(code)
	if c.domestic(code) {
		return models.RegionDomestic
	}
	for _, rs := range regionSets {
		if _, ok := rs.codes[code]; ok {
			return rs.region
		}
	}
	if strings.HasPrefix(code, "Y") {
		return models.RegionCanada
	}
	return c.fallback
}

func codeSet(codes ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

var regionSets = []struct {
	codes  map[string]struct{}
	region models.Region
}{
	{canadaCodes, models.RegionCanada},
	{mexicoCaribbeanCodes, models.RegionMexicoCaribbean},
	{southAmericaCodes, models.RegionSouthAmerica},
	{europeCodes, models.RegionEurope},
	{asiaPacificCodes, models.RegionAsiaPacific},
	{africaMiddleEastCodes, models.RegionAfricaMiddleEast},
}

var canadaCodes = codeSet(
	"YYZ", "YVR", "YYC", "YUL", "YOW", "YWG", "YEG", "YHZ", "YYJ", "YLW",
	"YQR", "YXE", "YQM", "YXU", "YQB", "YYR", "YFC", "YQX", "YQG", "YXY",
	"YZF", "YQT", "YTS", "YVO", "YKA", "YXS", "YPR", "YXC",
)

// Mexico, the Caribbean and Central America.
var mexicoCaribbeanCodes = codeSet(
	"CUN", "MEX", "GDL", "MTY", "PVR", "SJD", "CZM", "ZIH", "ACA", "HUX",
	"QRO", "SLP", "AGU", "BJX", "TIJ", "MID", "OAX", "VSA", "TAM", "CTM",
	"CUU", "HMO", "MZT", "PXM", "MLM", "LAP", "ZLO", "TRC", "AGS", "CME",
	"SJU", "PUJ", "MBJ", "NAS", "GCM", "KIN", "SDQ", "HAV", "STI", "POP",
	"AUA", "CUR", "BON", "SXM", "POS", "BGI", "GND", "UVF", "STT", "STX",
	"EIS", "TAB", "ANU", "SKB", "DOM", "SLU", "GEO", "GUA", "SAL", "SJO",
	"LIR", "PTY", "BZE", "MGA", "TGU", "SAP", "RTB",
)

var southAmericaCodes = codeSet(
	"BOG", "CLO", "CTG", "MDE", "UIO", "GYE", "LIM", "CUZ", "SCL", "EZE",
	"GRU", "GIG", "MVD", "CWB", "POA", "REC", "SSA", "BSB", "GYN", "FOR",
	"VVI", "ASU", "MAO", "COR", "BEL", "CNF", "FLN", "IGU", "NAT", "AEP",
	"CCS", "PMV", "SDU", "VCP", "CGH", "SLA", "MDZ", "BRC", "ROS", "CBB",
	"LPB", "PBM", "CAY",
)

// Includes Turkey and the Baltics.
var europeCodes = codeSet(
	"LHR", "LGW", "STN", "LTN", "MAN", "EDI", "BHX", "BRS", "GLA", "CDG",
	"ORY", "NCE", "LYS", "MRS", "TLS", "NTE", "BOD", "AMS", "BRU", "LUX",
	"FRA", "MUC", "DUS", "HAM", "BER", "CGN", "STR", "TXL", "SXF", "ZRH",
	"GVA", "BSL", "MAD", "BCN", "AGP", "PMI", "VLC", "SVQ", "BIO", "IBZ",
	"ACE", "TFS", "LIS", "OPO", "FAO", "FCO", "MXP", "VCE", "NAP", "BGY",
	"BLQ", "PSA", "CTA", "PMO", "ATH", "SKG", "HER", "RHO", "CFU", "JMK",
	"JTR", "CPH", "ARN", "OSL", "HEL", "GOT", "BMA", "TRD", "BGO", "KEF",
	"PRG", "WAW", "BUD", "BEG", "OTP", "SOF", "ZAG", "LJU", "SPU", "DBV",
	"VIE", "KRK", "GDN", "WRO", "CLJ", "TSR", "KTW", "IST", "SAW", "ADB",
	"AYT", "ESB", "DLM", "BJV", "TLL", "RIX", "VNO",
)

var asiaPacificCodes = codeSet(
	"NRT", "HND", "KIX", "NGO", "FUK", "CTS", "OKA", "ICN", "GMP", "PVG",
	"PEK", "CAN", "SZX", "CTU", "HKG", "TPE", "KHH", "BKK", "DMK", "CNX",
	"HKT", "SIN", "KUL", "PEN", "LGK", "KCH", "BKI", "CGK", "DPS", "SUB",
	"MNL", "CEB", "SGN", "HAN", "DAD", "RGN", "VTE", "PNH", "REP", "BWN",
	"DEL", "BOM", "BLR", "HYD", "MAA", "CCU", "COK", "AMD", "GOI", "TRV",
	"LHE", "ISB", "KHI", "DAC", "CMB", "KTM", "SYD", "MEL", "BNE", "PER",
	"ADL", "OOL", "CNS", "AKL", "WLG", "CHC", "ZQN", "NAN", "PPT", "NOU",
)

var africaMiddleEastCodes = codeSet(
	"DXB", "AUH", "DOH", "RUH", "JED", "DMM", "KWI", "BAH", "MCT", "AMM",
	"BEY", "TLV", "CAI", "SHJ", "BGW", "EBL", "DAM", "ALG", "CMN", "TUN",
	"RAK", "FEZ", "JNB", "CPT", "DUR", "NBO", "DAR", "ADD", "EBB", "ACC",
	"LOS", "ABJ", "TNR",
)
