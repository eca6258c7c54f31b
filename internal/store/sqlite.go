package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"kmarket/internal/market"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// SQLiteSource reads a dataset from a SQLite database with these tables:
//
//	market  (name)  optional; the first row names the market
//	sectors (id, name, position)
//	stocks  (id, sector_id, name, ticker, change, value, current_price, position)
//
// Sectors and stocks are ordered by position, then insertion order. A NULL
// current_price loads as no price.
type SQLiteSource struct {
	Path string
}

// Load queries the sectors and stocks tables.
func (s *SQLiteSource) Load(ctx context.Context) (market.MarketData, error) {
	// sql.Open would silently create a missing database.
	if _, err := os.Stat(s.Path); err != nil {
		return market.MarketData{}, fmt.Errorf("opening dataset: %w", err)
	}
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return market.MarketData{}, fmt.Errorf("opening dataset %s: %w", s.Path, err)
	}
	defer db.Close()

	m, err := loadSQLite(ctx, db)
	if err != nil {
		return market.MarketData{}, fmt.Errorf("reading dataset %s: %w", s.Path, err)
	}
	m.Name = marketName(m.Name, s.Path)
	return market.Sanitize(m), nil
}

// Name returns "sqlite:<path>".
func (s *SQLiteSource) Name() string { return KindSQLite + ":" + s.Path }

func loadSQLite(ctx context.Context, db *sql.DB) (market.MarketData, error) {
	var m market.MarketData

	// The market table is optional.
	if err := db.QueryRowContext(ctx, `SELECT name FROM market LIMIT 1`).Scan(&m.Name); err != nil {
		m.Name = ""
	}

	rows, err := db.QueryContext(ctx, `SELECT id, name FROM sectors ORDER BY position, rowid`)
	if err != nil {
		return m, fmt.Errorf("querying sectors: %w", err)
	}
	index := make(map[string]int)
	for rows.Next() {
		var sec market.Sector
		if err := rows.Scan(&sec.ID, &sec.Name); err != nil {
			rows.Close()
			return m, fmt.Errorf("scanning sector: %w", err)
		}
		index[sec.ID] = len(m.Sectors)
		m.Sectors = append(m.Sectors, sec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return m, err
	}
	rows.Close()

	rows, err = db.QueryContext(ctx, `
		SELECT sector_id, id, name, ticker, change, value, COALESCE(current_price, 0)
		FROM stocks ORDER BY position, rowid`)
	if err != nil {
		return m, fmt.Errorf("querying stocks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sectorID string
		var st market.Stock
		if err := rows.Scan(&sectorID, &st.ID, &st.Name, &st.Ticker, &st.Change, &st.Value, &st.Price); err != nil {
			return m, fmt.Errorf("scanning stock: %w", err)
		}
		i, ok := index[sectorID]
		if !ok {
			return m, fmt.Errorf("stock %s references unknown sector %q", st.ID, sectorID)
		}
		m.Sectors[i].Stocks = append(m.Sectors[i].Stocks, st)
	}
	return m, rows.Err()
}
