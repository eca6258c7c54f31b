package store

import (
	"context"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"kmarket/internal/market"
)

// JSONSource reads the hierarchical web format
// {"name": …, "children": [{"id", "name", "children": [stock…]}]}.
// "sectors" and "stocks" are accepted as aliases for the children arrays,
// and numeric fields may be quoted.
type JSONSource struct {
	Path string
}

// Load parses the file.
func (s *JSONSource) Load(ctx context.Context) (market.MarketData, error) {
	if err := ctx.Err(); err != nil {
		return market.MarketData{}, err
	}
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return market.MarketData{}, fmt.Errorf("reading dataset: %w", err)
	}
	m, err := ParseJSON(b)
	if err != nil {
		return market.MarketData{}, fmt.Errorf("parsing dataset %s: %w", s.Path, err)
	}
	m.Name = marketName(m.Name, s.Path)
	return market.Sanitize(m), nil
}

// Name returns "json:<path>".
func (s *JSONSource) Name() string { return KindJSON + ":" + s.Path }

// ParseJSON decodes the hierarchical web format. The result is not
// sanitized.
func ParseJSON(b []byte) (market.MarketData, error) {
	if !gjson.ValidBytes(b) {
		return market.MarketData{}, fmt.Errorf("invalid json")
	}
	root := gjson.ParseBytes(b)
	sectors := children(root, "sectors")
	if !sectors.IsArray() {
		return market.MarketData{}, fmt.Errorf("missing children array")
	}

	m := market.MarketData{Name: root.Get("name").String()}
	var perr error
	sectors.ForEach(func(_, sr gjson.Result) bool {
		if !sr.IsObject() {
			perr = fmt.Errorf("sector %d is not an object", len(m.Sectors))
			return false
		}
		sec := market.Sector{
			ID:   sr.Get("id").String(),
			Name: sr.Get("name").String(),
		}
		children(sr, "stocks").ForEach(func(_, st gjson.Result) bool {
			sec.Stocks = append(sec.Stocks, market.Stock{
				ID:     st.Get("id").String(),
				Name:   st.Get("name").String(),
				Ticker: st.Get("ticker").String(),
				Change: st.Get("change").Float(),
				Value:  st.Get("value").Float(),
				Price:  st.Get("currentPrice").Float(),
			})
			return true
		})
		m.Sectors = append(m.Sectors, sec)
		return true
	})
	if perr != nil {
		return market.MarketData{}, perr
	}
	return m, nil
}

func children(r gjson.Result, alias string) gjson.Result {
	if c := r.Get("children"); c.Exists() {
		return c
	}
	return r.Get(alias)
}
