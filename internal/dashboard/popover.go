package dashboard

import (
	"math"

	"kmarket/internal/market"
	"kmarket/internal/view"
)

// Popover geometry in screen pixels.
const (
	PopoverWidth     = 256
	PopoverMaxList   = 192 // list area before it scrolls
	popoverOffset    = 20
	popoverReserveX  = 280
	popoverReserveY  = 200
	popoverSectorTag = "Sector View"
)

// PopoverRow is one stock line in the popover.
type PopoverRow struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Ticker      string  `json:"ticker"`
	Change      float64 `json:"change"`
	ChangeText  string  `json:"changeText"`
	Price       string  `json:"price,omitempty"`
	Trend       Trend   `json:"trend"`
	Highlighted bool    `json:"highlighted"`
}

// Popover is the detail overlay for the hovered sector.
type Popover struct {
	SectorID string       `json:"sectorId"`
	Title    string       `json:"title"`
	Tag      string       `json:"tag"`
	Left     float64      `json:"left"`
	Top      float64      `json:"top"`
	Rows     []PopoverRow `json:"rows"`
	Stats    SectorStats  `json:"stats"`
}

// Place returns the popover's top-left corner for a pointer at (x, y) in a
// width×height viewport: offset down-right of the pointer and pulled back
// near the right and bottom edges.
func Place(x, y, width, height float64) (left, top float64) {
	return math.Min(x+popoverOffset, width-popoverReserveX), math.Min(y+popoverOffset, height-popoverReserveY)
}

// BuildPopover returns the popover for the hovered sector, or false when
// nothing is hovered or the sector is unknown. Rows follow the dataset
// order of the sector's stocks.
func BuildPopover(data market.MarketData, hover view.Hover, width, height float64) (Popover, bool) {
	if !hover.Active() {
		return Popover{}, false
	}
	sec, ok := data.Sector(hover.SectorID)
	if !ok {
		return Popover{}, false
	}

	p := Popover{
		SectorID: sec.ID,
		Title:    sec.Name,
		Tag:      popoverSectorTag,
		Rows:     make([]PopoverRow, 0, len(sec.Stocks)),
		Stats:    ComputeSectorStats(sec),
	}
	p.Left, p.Top = Place(hover.X, hover.Y, width, height)

	for _, st := range sec.Stocks {
		row := PopoverRow{
			ID:          st.ID,
			Name:        st.Name,
			Ticker:      st.Ticker,
			Change:      st.Change,
			ChangeText:  FormatChange(st.Change),
			Trend:       TrendOf(st.Change),
			Highlighted: st.ID == hover.StockID,
		}
		if st.HasPrice() {
			row.Price = FormatPrice(st.Price)
		}
		p.Rows = append(p.Rows, row)
	}
	return p, true
}
