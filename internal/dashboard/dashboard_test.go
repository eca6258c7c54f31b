package dashboard

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kmarket/internal/market"
	"kmarket/internal/view"
)

func TestFormatChange(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.5, "+1.5%"},
		{-2.1, "-2.1%"},
		{0, "0%"},
		{4, "+4%"},
		{math.NaN(), "-"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatChange(tt.in))
	}
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "1,234,567", FormatInt(1234567))
	assert.Equal(t, "615", FormatValue(615))
	assert.Equal(t, "1,234.5", FormatValue(1234.5))
	assert.Equal(t, "71,500", FormatPrice(71500))
	assert.Equal(t, "-", FormatPrice(0))
	assert.Equal(t, "Zoom: 100%", FormatZoom(1))
	assert.Equal(t, "Zoom: 283%", FormatZoom(2.828))
	assert.Equal(t, "950", FormatCompact(950))
}

func TestComputeSectorStats(t *testing.T) {
	sec, ok := market.Sample().Sector("semiconductor")
	require.True(t, ok)

	s := ComputeSectorStats(sec)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 2, s.Advancers)
	assert.Equal(t, 1, s.Decliners)
	assert.Equal(t, 0, s.Unchanged)
	assert.InDelta(t, 615, s.TotalValue, 1e-9)
	assert.InDelta(t, 957.0/615.0, s.MeanChange, 1e-9)
	assert.InDelta(t, 1.5, s.Median, 1e-9)
	assert.Greater(t, s.StdDev, 0.0)
	assert.Equal(t, "skhynix", s.Best)
	assert.Equal(t, "hanmi", s.Worst)
}

func TestComputeSectorStatsEdgeCases(t *testing.T) {
	empty := ComputeSectorStats(market.Sector{ID: "e"})
	assert.Equal(t, 0, empty.Count)
	assert.Zero(t, empty.MeanChange)

	flat := ComputeSectorStats(market.Sector{ID: "f", Stocks: []market.Stock{
		{ID: "a", Change: 0, Value: 0},
		{ID: "b", Change: 2, Value: 0},
	}})
	assert.Equal(t, 1, flat.Unchanged)
	assert.Equal(t, 1, flat.Advancers)
	assert.InDelta(t, 1, flat.MeanChange, 1e-9, "unweighted mean when no stock has a sizing value")
	assert.InDelta(t, 1, flat.Median, 1e-9)

	four := ComputeSectorStats(market.Sector{ID: "q", Stocks: []market.Stock{
		{ID: "a", Change: 4, Value: 1},
		{ID: "b", Change: 1, Value: 1},
		{ID: "c", Change: 3, Value: 1},
		{ID: "d", Change: 2, Value: 1},
	}})
	assert.InDelta(t, 2.5, four.Median, 1e-9, "even counts average the middle pair")
}

func TestComputeMarketStats(t *testing.T) {
	m := market.Sample()
	s := ComputeMarketStats(m)
	require.Len(t, s.Sectors, len(m.Sectors))
	assert.Equal(t, m.StockCount(), s.Total.Count)
	assert.Equal(t, s.Total.Count, s.Total.Advancers+s.Total.Decliners+s.Total.Unchanged)
	assert.Equal(t, "yuhan", s.Total.Best)
	assert.Equal(t, "ecopro", s.Total.Worst)
}

func TestPlace(t *testing.T) {
	left, top := Place(100, 100, 1200, 720)
	assert.Equal(t, 120.0, left)
	assert.Equal(t, 120.0, top)

	left, top = Place(1100, 650, 1200, 720)
	assert.Equal(t, 920.0, left)
	assert.Equal(t, 520.0, top)
}

func TestBuildPopover(t *testing.T) {
	data := market.Sample()

	_, ok := BuildPopover(data, view.Hover{}, 1200, 720)
	assert.False(t, ok)

	_, ok = BuildPopover(data, view.Hover{SectorID: "missing"}, 1200, 720)
	assert.False(t, ok)

	p, ok := BuildPopover(data, view.Hover{SectorID: "battery", StockID: "posco", X: 1150, Y: 40}, 1200, 720)
	require.True(t, ok)
	assert.Equal(t, "Sector View", p.Tag)
	assert.Equal(t, 920.0, p.Left)
	assert.Equal(t, 60.0, p.Top)
	require.Len(t, p.Rows, 3)
	assert.Equal(t, "lgensol", p.Rows[0].ID, "rows keep dataset order")
	assert.True(t, p.Rows[1].Highlighted)
	assert.False(t, p.Rows[0].Highlighted)
	assert.Equal(t, Down, p.Rows[2].Trend)
	assert.Equal(t, "-3.2%", p.Rows[2].ChangeText)
	assert.Equal(t, 3, p.Stats.Decliners)
}
