package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"kmarket/internal/market"
)

// StockRecord is the Parquet schema of a flat dataset: one row per stock,
// carrying its sector. Row order defines sector and stock order.
type StockRecord struct {
	Market     string  `parquet:"market"`
	SectorID   string  `parquet:"sector_id"`
	SectorName string  `parquet:"sector_name"`
	ID         string  `parquet:"id"`
	Name       string  `parquet:"name"`
	Ticker     string  `parquet:"ticker"`
	Change     float64 `parquet:"change"`
	Value      float64 `parquet:"value"`
	Price      float64 `parquet:"current_price"`
}

// ParquetSource reads a flat Parquet dataset.
type ParquetSource struct {
	Path string
}

// Load reads every row and regroups them by sector in first-appearance
// order.
func (s *ParquetSource) Load(ctx context.Context) (market.MarketData, error) {
	if err := ctx.Err(); err != nil {
		return market.MarketData{}, err
	}
	records, err := readParquetFile[StockRecord](s.Path)
	if err != nil {
		return market.MarketData{}, fmt.Errorf("reading dataset %s: %w", s.Path, err)
	}
	m := GroupRecords(records)
	m.Name = marketName(m.Name, s.Path)
	return market.Sanitize(m), nil
}

// Name returns "parquet:<path>".
func (s *ParquetSource) Name() string { return KindParquet + ":" + s.Path }

// GroupRecords rebuilds the hierarchy from flat rows. The market name is
// taken from the first row that has one.
func GroupRecords(records []StockRecord) market.MarketData {
	var m market.MarketData
	index := make(map[string]int)
	for _, r := range records {
		if m.Name == "" {
			m.Name = r.Market
		}
		i, ok := index[r.SectorID]
		if !ok {
			i = len(m.Sectors)
			index[r.SectorID] = i
			m.Sectors = append(m.Sectors, market.Sector{ID: r.SectorID, Name: r.SectorName})
		}
		m.Sectors[i].Stocks = append(m.Sectors[i].Stocks, market.Stock{
			ID:     r.ID,
			Name:   r.Name,
			Ticker: r.Ticker,
			Change: r.Change,
			Value:  r.Value,
			Price:  r.Price,
		})
	}
	return m
}

// FlattenRecords is the inverse of GroupRecords.
func FlattenRecords(m market.MarketData) []StockRecord {
	records := make([]StockRecord, 0, m.StockCount())
	for _, sec := range m.Sectors {
		for _, st := range sec.Stocks {
			records = append(records, StockRecord{
				Market:     m.Name,
				SectorID:   sec.ID,
				SectorName: sec.Name,
				ID:         st.ID,
				Name:       st.Name,
				Ticker:     st.Ticker,
				Change:     st.Change,
				Value:      st.Value,
				Price:      st.Price,
			})
		}
	}
	return records
}

// ExportParquet writes m as a new flat Parquet file at path. It is an
// export for other tools; sources never write back.
func ExportParquet(path string, m market.MarketData) error {
	if err := writeParquetFile(path, FlattenRecords(m)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
