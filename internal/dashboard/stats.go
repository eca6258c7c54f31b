// Package dashboard builds the detail popover and per-sector summary
// statistics shown next to the heatmap, shared by every front end.
package dashboard

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"kmarket/internal/market"
)

// Trend is the direction of a price change.
type Trend int

const (
	Flat Trend = iota
	Up
	Down
)

func (t Trend) String() string {
	switch t {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "flat"
	}
}

// MarshalText encodes the trend by name.
func (t Trend) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a trend name. Unknown names decode as Flat.
func (t *Trend) UnmarshalText(b []byte) error {
	switch string(b) {
	case "up":
		*t = Up
	case "down":
		*t = Down
	default:
		*t = Flat
	}
	return nil
}

// TrendOf classifies a percent change.
func TrendOf(change float64) Trend {
	switch {
	case change > 0:
		return Up
	case change < 0:
		return Down
	default:
		return Flat
	}
}

// SectorStats holds aggregate statistics for one sector.
type SectorStats struct {
	SectorID   string  `json:"sectorId"`
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Advancers  int     `json:"advancers"`
	Decliners  int     `json:"decliners"`
	Unchanged  int     `json:"unchanged"`
	TotalValue float64 `json:"totalValue"`
	MeanChange float64 `json:"meanChange"` // weighted by sizing value
	Median     float64 `json:"medianChange"`
	StdDev     float64 `json:"stdDevChange"`
	Best       string  `json:"best,omitempty"`  // id of the strongest stock
	Worst      string  `json:"worst,omitempty"` // id of the weakest stock
}

// ComputeSectorStats aggregates a sector's stocks. Stocks with a zero
// sizing value count toward the breadth numbers but carry no weight in the
// weighted mean.
func ComputeSectorStats(sec market.Sector) SectorStats {
	s := SectorStats{SectorID: sec.ID, Name: sec.Name, Count: len(sec.Stocks)}
	if len(sec.Stocks) == 0 {
		return s
	}

	changes := make([]float64, len(sec.Stocks))
	weights := make([]float64, len(sec.Stocks))
	best, worst := 0, 0
	for i, st := range sec.Stocks {
		changes[i] = st.Change
		weights[i] = market.SizingValue(st.Value)
		s.TotalValue += weights[i]
		switch TrendOf(st.Change) {
		case Up:
			s.Advancers++
		case Down:
			s.Decliners++
		default:
			s.Unchanged++
		}
		if st.Change > sec.Stocks[best].Change {
			best = i
		}
		if st.Change < sec.Stocks[worst].Change {
			worst = i
		}
	}
	s.Best = sec.Stocks[best].ID
	s.Worst = sec.Stocks[worst].ID

	if s.TotalValue > 0 {
		s.MeanChange = stat.Mean(changes, weights)
	} else {
		s.MeanChange = stat.Mean(changes, nil)
	}
	if len(changes) > 1 {
		s.StdDev = stat.StdDev(changes, nil)
	}

	sorted := append([]float64(nil), changes...)
	sort.Float64s(sorted)
	s.Median = median(sorted)
	return s
}

// median of sorted values; even counts average the two middle values.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// MarketStats holds per-sector statistics plus the market-wide aggregate.
type MarketStats struct {
	Sectors []SectorStats `json:"sectors"`
	Total   SectorStats   `json:"total"`
}

// ComputeMarketStats aggregates every sector and the market as a whole.
func ComputeMarketStats(m market.MarketData) MarketStats {
	out := MarketStats{Sectors: make([]SectorStats, 0, len(m.Sectors))}
	all := market.Sector{ID: "", Name: m.Name}
	for _, sec := range m.Sectors {
		out.Sectors = append(out.Sectors, ComputeSectorStats(sec))
		all.Stocks = append(all.Stocks, sec.Stocks...)
	}
	out.Total = ComputeSectorStats(all)
	return out
}
