package engine

import (
	"strconv"
	"strings"
)

// ParsePct converts one raw advertiser KPI cell ("5.9%", "0.059", "5.9")
// into a decimal fraction, nil when unparseable. Magnitudes above 1 are read
// as whole percentages and divided by 100. Known ambiguity, kept on purpose:
// a cell "1.5" meant as 150% comes out as 1.5%. Pending product
// clarification; do not fix silently.
func ParsePct(raw string) *float64 {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "%", ""))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	if v > 1.0 {
		v /= 100.0
	}
	return &v
}

var kpiPrefixes = []string{"full roas ", "roas ", "roi "}

// KPILabel rewrites an advertiser KPI column name into the report label,
// e.g. "Full ROAS D30" -> "ROI D30". Unrecognized names pass through as
// "ROI " + the original name.
func KPILabel(col string) string {
	c := strings.TrimSpace(col)
	lc := strings.ToLower(c)
	for _, p := range kpiPrefixes {
		if strings.Contains(lc, p) {
			fields := strings.Fields(c)
			if len(fields) > 0 {
				return "ROI " + fields[len(fields)-1]
			}
		}
	}
	return "ROI " + c
}
