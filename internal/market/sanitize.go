package market

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Sanitize returns a copy of m that is safe to feed into layout math:
// sizing values that are negative, NaN or infinite become 0, non-finite
// changes become 0, names are trimmed and NFC-normalised, and missing ids
// are derived from the ticker or name. Slices are copied so the caller may
// keep mutating its own value.
func Sanitize(m MarketData) MarketData {
	out := MarketData{
		Name:    cleanText(m.Name),
		Sectors: make([]Sector, 0, len(m.Sectors)),
	}
	for _, s := range m.Sectors {
		sec := Sector{
			ID:     strings.TrimSpace(s.ID),
			Name:   cleanText(s.Name),
			Stocks: make([]Stock, 0, len(s.Stocks)),
		}
		if sec.ID == "" {
			sec.ID = slug(sec.Name)
		}
		for _, st := range s.Stocks {
			st.Name = cleanText(st.Name)
			st.Ticker = strings.TrimSpace(st.Ticker)
			st.ID = strings.TrimSpace(st.ID)
			if st.ID == "" {
				if st.Ticker != "" {
					st.ID = st.Ticker
				} else {
					st.ID = slug(st.Name)
				}
			}
			st.Value = SizingValue(st.Value)
			if !finite(st.Change) {
				st.Change = 0
			}
			if !finite(st.Price) || st.Price < 0 {
				st.Price = 0
			}
			sec.Stocks = append(sec.Stocks, st)
		}
		out.Sectors = append(out.Sectors, sec)
	}
	return out
}

// SizingValue clamps a raw sizing value to a usable non-negative weight.
func SizingValue(v float64) float64 {
	if !finite(v) || v < 0 {
		return 0
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "-")
}
