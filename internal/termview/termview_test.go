package termview

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kmarket/internal/live"
	"kmarket/internal/market"
	"kmarket/internal/palette"
	"kmarket/internal/treemap"
	"kmarket/internal/view"
)

var t0 = time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)

func twoStocks() market.MarketData {
	return market.MarketData{
		Name: "test",
		Sectors: []market.Sector{{
			ID: "it", Name: "IT",
			Stocks: []market.Stock{
				{ID: "a", Name: "NAVER", Change: 2.5, Value: 3},
				{ID: "b", Name: "KAKAO", Change: -2.5, Value: 1},
			},
		}},
	}
}

func rowText(line []Cell) string {
	var b strings.Builder
	for _, c := range line {
		if c.Char != 0 {
			b.WriteRune(c.Char)
		}
	}
	return b.String()
}

func TestRasterizeSamplesCellCentres(t *testing.T) {
	l := treemap.Compute(twoStocks(), 40, 20, LayoutOptions())
	g := Rasterize(l, view.Identity(), 40, 10)
	require.Len(t, g, 10)

	seen := map[string]int{}
	for r, line := range g {
		require.Len(t, line, 40)
		for c, cell := range line {
			if cell.StockID == "" {
				continue
			}
			seen[cell.StockID]++
			st, sec, ok := l.Stock(cell.StockID)
			require.True(t, ok)
			assert.Equal(t, sec.ID, cell.SectorID)
			assert.True(t, st.Contains(float64(c)+0.5, float64(r*CellHeight)+1), "cell %d,%d outside %s", c, r, cell.StockID)
			assert.Equal(t, palette.Hex(st.Stock.Change), cell.Color)
		}
	}
	assert.Greater(t, seen["a"], seen["b"], "larger stock covers more cells")
	assert.Positive(t, seen["b"])
}

func TestRasterizeLabels(t *testing.T) {
	l := treemap.Compute(twoStocks(), 40, 20, LayoutOptions())
	g := Rasterize(l, view.Identity(), 40, 10)

	assert.Equal(t, "", strings.TrimSpace(rowText(g[0])), "root label band stays empty")
	assert.Contains(t, rowText(g[1]), "IT", "sector label on the band row")
	var all string
	for _, line := range g {
		all += rowText(line) + "\n"
	}
	assert.Contains(t, all, "NAVER")
	assert.Contains(t, all, "+2.5%")
}

func TestRasterizeDegenerate(t *testing.T) {
	assert.Nil(t, Rasterize(nil, view.Identity(), 0, 5))
	g := Rasterize(nil, view.Identity(), 3, 2)
	require.Len(t, g, 2)
	assert.Equal(t, backgroundHex, g[1][2].Color)
	assert.Equal(t, ' ', g[1][2].Char)
}

func TestWriteWideRunes(t *testing.T) {
	g := Rasterize(nil, view.Identity(), 7, 1)
	g.write(0, 0, 7, "삼성전자", true, false)
	assert.Equal(t, '삼', g[0][0].Char)
	assert.Equal(t, rune(0), g[0][1].Char)
	assert.Equal(t, '전', g[0][4].Char)
	assert.Equal(t, ' ', g[0][6].Char, "a wide rune never straddles the limit")
	assert.Equal(t, "삼성전 ", rowText(g[0]))

	out := g.Render()
	assert.Contains(t, out, "삼성전")
	assert.NotContains(t, out, "자")
}

func TestPadOrTrunc(t *testing.T) {
	assert.Equal(t, "ab  ", padOrTrunc("ab", 4))
	assert.Equal(t, "삼 ", padOrTrunc("삼성", 3))
	assert.Equal(t, "", padOrTrunc("x", 0))
}

func newSizedModel(t *testing.T) Model {
	t.Helper()
	m := New(market.Sanitize(market.Sample()), view.DefaultOptions(), nil, zerolog.Nop())
	m.now = func() time.Time { return t0 }
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestModelResize(t *testing.T) {
	m := newSizedModel(t)
	assert.Equal(t, 120-panelWidth, m.mapCols)
	assert.Equal(t, 38, m.mapRows)
	w, h := m.Controller().Size()
	assert.Equal(t, float64(120-panelWidth), w)
	assert.Equal(t, 76.0, h)

	narrow, _ := update(t, m, tea.WindowSizeMsg{Width: 60, Height: 20})
	assert.Equal(t, 60, narrow.mapCols)
	assert.False(t, narrow.showPanel())
}

func TestModelKeys(t *testing.T) {
	m := newSizedModel(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}})
	assert.Equal(t, 2.0, m.Controller().Transform().K)

	before := m.Controller().Transform()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, before.X+panStep, m.Controller().Transform().X)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	require.NotNil(t, cmd, "reset starts the animation ticker")
	assert.True(t, m.Controller().Animating())

	m, cmd = update(t, m, tickMsg(t0.Add(time.Second)))
	assert.Nil(t, cmd)
	assert.True(t, m.Controller().Transform().IsIdentity())
	assert.False(t, m.ticking)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'-'}})
	assert.Equal(t, 1.0, m.Controller().Transform().K, "zoom out is clamped")

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModelMouseHoverAndPanel(t *testing.T) {
	m := newSizedModel(t)
	st, sec, ok := m.Controller().Layout().Stock("samsung")
	require.True(t, ok)
	cx, cy := st.Center()

	m, _ = update(t, m, tea.MouseMsg{X: int(cx), Y: int(cy/CellHeight) + headerHeight, Action: tea.MouseActionMotion})
	h := m.Controller().Hover()
	assert.Equal(t, "samsung", h.StockID)
	assert.Equal(t, sec.ID, h.SectorID)

	out := m.View()
	assert.Contains(t, out, "Sector View")
	assert.Contains(t, out, sec.Name)

	// Leaving the map clears hover.
	m, _ = update(t, m, tea.MouseMsg{X: 119, Y: 5, Action: tea.MouseActionMotion})
	assert.False(t, m.Controller().Hover().Active())
	assert.Contains(t, m.View(), "Hover a sector for details")
}

func TestModelWheelZoom(t *testing.T) {
	m := newSizedModel(t)
	m, cmd := update(t, m, tea.MouseMsg{X: 40, Y: 20, Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	require.NotNil(t, cmd)
	assert.Greater(t, m.Controller().Transform().K, 1.0)
	assert.Equal(t, view.Zooming, m.Controller().Mode())

	m, _ = update(t, m, tickMsg(t0.Add(time.Second)))
	assert.Equal(t, view.Idle, m.Controller().Mode())
}

func TestModelDatasetUpdate(t *testing.T) {
	ch := make(chan live.Update, 1)
	m := New(market.Sanitize(market.Sample()), view.DefaultOptions(), ch, zerolog.Nop())
	require.NotNil(t, m.Init())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(Model)

	m, cmd := update(t, m, dataMsg(live.Update{Data: twoStocks(), Version: 2}))
	require.NotNil(t, cmd)
	assert.Equal(t, "test", m.Controller().Data().Name)
	_, _, ok := m.Controller().Layout().Stock("a")
	assert.True(t, ok)
	assert.Contains(t, m.View(), "test")
}

func TestViewBeforeSize(t *testing.T) {
	m := New(market.Sample(), view.DefaultOptions(), nil, zerolog.Nop())
	assert.Equal(t, "Loading...", m.View())
	assert.Nil(t, m.Init())
}
