// Package treemap computes the two-level sector → stock rectangle partition
// drawn by the heatmap. Layouts are pure functions of the data, the viewport
// size and the padding options.
package treemap

import (
	"sort"

	"kmarket/internal/market"
)

// Options controls padding around and between rectangles, in viewport pixels.
type Options struct {
	PaddingOuter float64 // left, right and bottom inset of every parent
	PaddingTop   float64 // label band reserved at the top of every parent
	PaddingInner float64 // gap between siblings
}

// DefaultOptions returns the padding used by the web heatmap.
func DefaultOptions() Options {
	return Options{PaddingOuter: 4, PaddingTop: 24, PaddingInner: 1}
}

// StockNode is a laid-out stock cell.
type StockNode struct {
	Rect
	Stock market.Stock
}

// SectorNode is a laid-out sector band and its stock cells.
type SectorNode struct {
	Rect
	ID     string
	Name   string
	Value  float64
	Stocks []StockNode
}

// Layout is the derived rectangle tree for one dataset and viewport size.
type Layout struct {
	Name    string
	Width   float64
	Height  float64
	Sectors []SectorNode
}

// Empty reports whether the layout has nothing to draw.
func (l *Layout) Empty() bool {
	return l == nil || len(l.Sectors) == 0
}

// Sector returns the laid-out sector with the given id.
func (l *Layout) Sector(id string) (*SectorNode, bool) {
	if l == nil {
		return nil, false
	}
	for i := range l.Sectors {
		if l.Sectors[i].ID == id {
			return &l.Sectors[i], true
		}
	}
	return nil, false
}

// Stock returns the laid-out stock with the given id and its sector.
func (l *Layout) Stock(id string) (*StockNode, *SectorNode, bool) {
	if l == nil {
		return nil, nil, false
	}
	for i := range l.Sectors {
		sec := &l.Sectors[i]
		for j := range sec.Stocks {
			if sec.Stocks[j].Stock.ID == id {
				return &sec.Stocks[j], sec, true
			}
		}
	}
	return nil, nil, false
}

// weighted is one child handed to the tiling function.
type weighted struct {
	value float64
	rect  Rect
}

// Compute lays data out inside a width×height viewport. Sectors and stocks
// are ordered by descending sizing value (ties keep input order); items whose
// value is not positive are dropped. A non-positive viewport yields an empty
// layout.
func Compute(data market.MarketData, width, height float64, opts Options) *Layout {
	l := &Layout{Name: data.Name, Width: width, Height: height}
	if !(width > 0) || !(height > 0) {
		return l
	}

	type sectorInput struct {
		sector market.Sector
		stocks []market.Stock
		value  float64
	}

	inputs := make([]sectorInput, 0, len(data.Sectors))
	var total float64
	for _, sec := range data.Sectors {
		in := sectorInput{sector: sec}
		for _, st := range sec.Stocks {
			st.Value = market.SizingValue(st.Value)
			if st.Value <= 0 {
				continue
			}
			in.stocks = append(in.stocks, st)
			in.value += st.Value
		}
		if in.value <= 0 {
			continue
		}
		sort.SliceStable(in.stocks, func(i, j int) bool {
			return in.stocks[i].Value > in.stocks[j].Value
		})
		inputs = append(inputs, in)
		total += in.value
	}
	if total <= 0 {
		return l
	}
	sort.SliceStable(inputs, func(i, j int) bool {
		return inputs[i].value > inputs[j].value
	})

	half := opts.PaddingInner / 2

	// Root: the whole viewport, inset for the outer padding and label band.
	root := Rect{X1: width, Y1: height}.inset(
		opts.PaddingTop-half, opts.PaddingOuter-half, opts.PaddingOuter-half, opts.PaddingOuter-half)

	sectors := make([]weighted, len(inputs))
	for i, in := range inputs {
		sectors[i].value = in.value
	}
	squarify(sectors, root, total)

	l.Sectors = make([]SectorNode, 0, len(inputs))
	for i, in := range inputs {
		rect := sectors[i].rect.inset(half, half, half, half)
		node := SectorNode{
			Rect:   rect,
			ID:     in.sector.ID,
			Name:   in.sector.Name,
			Value:  in.value,
			Stocks: make([]StockNode, 0, len(in.stocks)),
		}

		interior := rect.inset(
			opts.PaddingTop-half, opts.PaddingOuter-half, opts.PaddingOuter-half, opts.PaddingOuter-half)
		cells := make([]weighted, len(in.stocks))
		for j, st := range in.stocks {
			cells[j].value = st.Value
		}
		squarify(cells, interior, in.value)

		for j, st := range in.stocks {
			node.Stocks = append(node.Stocks, StockNode{
				Rect:  cells[j].rect.inset(half, half, half, half),
				Stock: st,
			})
		}
		l.Sectors = append(l.Sectors, node)
	}
	return l
}
