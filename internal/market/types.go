// Package market defines the sector/stock data model rendered by the heatmap,
// along with the built-in sample dataset and load-time sanitizing.
package market

// Stock is one constituent cell of the heatmap.
type Stock struct {
	ID     string  `json:"id" yaml:"id"`
	Name   string  `json:"name" yaml:"name"`
	Ticker string  `json:"ticker" yaml:"ticker"`
	Change float64 `json:"change" yaml:"change"` // percent change, signed
	Value  float64 `json:"value" yaml:"value"`   // sizing weight (market cap)
	Price  float64 `json:"currentPrice,omitempty" yaml:"current_price,omitempty"`
}

// HasPrice reports whether the optional current price is set.
func (s Stock) HasPrice() bool {
	return s.Price > 0
}

// Sector groups stocks under one labelled band of the heatmap.
type Sector struct {
	ID     string  `json:"id" yaml:"id"`
	Name   string  `json:"name" yaml:"name"`
	Stocks []Stock `json:"children" yaml:"stocks"`
}

// MarketData is the root of the heatmap hierarchy.
type MarketData struct {
	Name    string   `json:"name" yaml:"name"`
	Sectors []Sector `json:"children" yaml:"sectors"`
}

// Sector returns the sector with the given id.
func (m MarketData) Sector(id string) (Sector, bool) {
	for _, s := range m.Sectors {
		if s.ID == id {
			return s, true
		}
	}
	return Sector{}, false
}

// Stock returns the stock with the given id and the id of its sector.
func (m MarketData) Stock(id string) (Stock, string, bool) {
	for _, s := range m.Sectors {
		for _, st := range s.Stocks {
			if st.ID == id {
				return st, s.ID, true
			}
		}
	}
	return Stock{}, "", false
}

// StockCount returns the total number of stocks across all sectors.
func (m MarketData) StockCount() int {
	n := 0
	for _, s := range m.Sectors {
		n += len(s.Stocks)
	}
	return n
}

// Equal reports whether two datasets hold the same sectors and stocks in the
// same order.
func (m MarketData) Equal(o MarketData) bool {
	if m.Name != o.Name || len(m.Sectors) != len(o.Sectors) {
		return false
	}
	for i := range m.Sectors {
		a, b := m.Sectors[i], o.Sectors[i]
		if a.ID != b.ID || a.Name != b.Name || len(a.Stocks) != len(b.Stocks) {
			return false
		}
		for j := range a.Stocks {
			if a.Stocks[j] != b.Stocks[j] {
				return false
			}
		}
	}
	return true
}
