package market

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleShape(t *testing.T) {
	m := Sample()

	assert.Equal(t, "KOSPI/KOSDAQ", m.Name)
	assert.Len(t, m.Sectors, 6)
	assert.Equal(t, 17, m.StockCount())

	sec, ok := m.Sector("semiconductor")
	require.True(t, ok)
	assert.Len(t, sec.Stocks, 3)

	st, sectorID, ok := m.Stock("kakao")
	require.True(t, ok)
	assert.Equal(t, "it", sectorID)
	assert.Equal(t, "035720", st.Ticker)
	assert.False(t, st.HasPrice())

	_, _, ok = m.Stock("missing")
	assert.False(t, ok)
}

func TestSanitizeMalformedValues(t *testing.T) {
	in := MarketData{
		Name: "  test ",
		Sectors: []Sector{{
			Name: " Big Tech ",
			Stocks: []Stock{
				{Name: "neg", Ticker: "NEG", Value: -5, Change: 1},
				{Name: "nan", Value: math.NaN(), Change: math.NaN()},
				{ID: "inf", Value: math.Inf(1), Change: math.Inf(-1), Price: math.NaN()},
				{ID: "ok", Value: 10, Change: -2.5, Price: 70100},
			},
		}},
	}

	out := Sanitize(in)

	require.Len(t, out.Sectors, 1)
	sec := out.Sectors[0]
	assert.Equal(t, "test", out.Name)
	assert.Equal(t, "big-tech", sec.ID)
	assert.Equal(t, "Big Tech", sec.Name)

	assert.Equal(t, "NEG", sec.Stocks[0].ID)
	assert.Zero(t, sec.Stocks[0].Value)
	assert.Equal(t, "nan", sec.Stocks[1].ID)
	assert.Zero(t, sec.Stocks[1].Value)
	assert.Zero(t, sec.Stocks[1].Change)
	assert.Zero(t, sec.Stocks[2].Value)
	assert.Zero(t, sec.Stocks[2].Change)
	assert.Zero(t, sec.Stocks[2].Price)
	assert.Equal(t, 10.0, sec.Stocks[3].Value)
	assert.True(t, sec.Stocks[3].HasPrice())

	// The input is left untouched.
	assert.Equal(t, -5.0, in.Sectors[0].Stocks[0].Value)
}

func TestSanitizeNormalizesHangul(t *testing.T) {
	// "기아" in decomposed (NFD) jamo form.
	decomposed := "\u1100\u1175\u110b\u1161"
	out := Sanitize(MarketData{Sectors: []Sector{{ID: "auto", Stocks: []Stock{{ID: "kia", Name: decomposed, Value: 1}}}}})

	assert.Equal(t, "기아", out.Sectors[0].Stocks[0].Name)
}

func TestEqual(t *testing.T) {
	a := Sample()
	b := Sample()
	assert.True(t, a.Equal(b))

	b.Sectors[2].Stocks[1].Change = 9.9
	assert.False(t, a.Equal(b))

	c := Sample()
	c.Sectors = c.Sectors[:5]
	assert.False(t, a.Equal(c))
}
