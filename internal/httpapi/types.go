// Package httpapi serves the heatmap over HTTP: the page shell, the dataset,
// stateless layouts and images, and stateful view sessions driven by
// pointer events over JSON or a websocket.
package httpapi

import (
	"kmarket/internal/dashboard"
	"kmarket/internal/market"
	"kmarket/internal/palette"
	"kmarket/internal/render"
	"kmarket/internal/treemap"
	"kmarket/internal/view"
)

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status      string `json:"status"`
	Market      string `json:"market"`
	Version     uint64 `json:"version"`
	Stocks      int    `json:"stocks"`
	Sessions    int    `json:"sessions"`
	Subscribers int    `json:"subscribers"` // dataset update listeners
}

// MarketResponse is the current dataset with its summary statistics.
type MarketResponse struct {
	Version uint64                `json:"version"`
	Data    market.MarketData     `json:"data"`
	Stats   dashboard.MarketStats `json:"stats"`
}

// LegendResponse lists the color buckets and the page legend.
type LegendResponse struct {
	Buckets []palette.Bucket `json:"buckets"`
	Legend  []palette.Swatch `json:"legend"`
}

// LayoutStock is one stock cell of a layout response.
type LayoutStock struct {
	treemap.Rect `msgpack:",inline"`
	ID           string  `json:"id" msgpack:"id"`
	Name         string  `json:"name" msgpack:"name"`
	Ticker       string  `json:"ticker" msgpack:"ticker"`
	Change       float64 `json:"change" msgpack:"change"`
	Value        float64 `json:"value" msgpack:"value"`
	Color        string  `json:"color" msgpack:"color"`
}

// LayoutSector is one sector band of a layout response.
type LayoutSector struct {
	treemap.Rect `msgpack:",inline"`
	ID           string        `json:"id" msgpack:"id"`
	Name         string        `json:"name" msgpack:"name"`
	Value        float64       `json:"value" msgpack:"value"`
	Stocks       []LayoutStock `json:"stocks" msgpack:"stocks"`
}

// LayoutResponse is the rectangle tree for one viewport size, encoded as
// JSON or msgpack.
type LayoutResponse struct {
	Name    string         `json:"name" msgpack:"name"`
	Version uint64         `json:"version" msgpack:"version"`
	Width   float64        `json:"width" msgpack:"width"`
	Height  float64        `json:"height" msgpack:"height"`
	Sectors []LayoutSector `json:"sectors" msgpack:"sectors"`
}

// CreateViewRequest opens a view session. A zero size leaves the viewport
// empty until the first resize.
type CreateViewRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	DPR    float64 `json:"dpr"`
}

// SizeRequest changes a session's viewport.
type SizeRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ViewResponse describes a session after a request has been applied.
type ViewResponse struct {
	ID       string             `json:"id"`
	State    view.State         `json:"state"`
	Frame    string             `json:"frame"` // URL of the current frame image
	Popover  *dashboard.Popover `json:"popover"`
	Controls render.Controls    `json:"controls"`
}

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error string `json:"error"`
}

func newLayoutResponse(l *treemap.Layout, version uint64) LayoutResponse {
	resp := LayoutResponse{
		Name:    l.Name,
		Version: version,
		Width:   l.Width,
		Height:  l.Height,
		Sectors: make([]LayoutSector, 0, len(l.Sectors)),
	}
	for _, sec := range l.Sectors {
		ls := LayoutSector{
			Rect:   sec.Rect,
			ID:     sec.ID,
			Name:   sec.Name,
			Value:  sec.Value,
			Stocks: make([]LayoutStock, 0, len(sec.Stocks)),
		}
		for _, st := range sec.Stocks {
			ls.Stocks = append(ls.Stocks, LayoutStock{
				Rect:   st.Rect,
				ID:     st.Stock.ID,
				Name:   st.Stock.Name,
				Ticker: st.Stock.Ticker,
				Change: st.Stock.Change,
				Value:  st.Stock.Value,
				Color:  palette.Hex(st.Stock.Change),
			})
		}
		resp.Sectors = append(resp.Sectors, ls)
	}
	return resp
}
