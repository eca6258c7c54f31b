package store

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"kmarket/internal/market"
)

// YAMLSource reads a dataset in the layout:
//
//	name: KOSPI
//	sectors:
//	  - id: semiconductor
//	    name: 반도체
//	    stocks:
//	      - {id: samsung, name: 삼성전자, ticker: "005930", change: 1.5, value: 450}
type YAMLSource struct {
	Path string
}

// Load parses the file.
func (s *YAMLSource) Load(ctx context.Context) (market.MarketData, error) {
	if err := ctx.Err(); err != nil {
		return market.MarketData{}, err
	}
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return market.MarketData{}, fmt.Errorf("reading dataset: %w", err)
	}
	var m market.MarketData
	if err := yaml.Unmarshal(b, &m); err != nil {
		return market.MarketData{}, fmt.Errorf("parsing dataset %s: %w", s.Path, err)
	}
	m.Name = marketName(m.Name, s.Path)
	return market.Sanitize(m), nil
}

// Name returns "yaml:<path>".
func (s *YAMLSource) Name() string { return KindYAML + ":" + s.Path }
