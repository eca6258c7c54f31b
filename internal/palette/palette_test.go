package palette

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForBoundaries(t *testing.T) {
	tests := []struct {
		change float64
		index  int
		hex    string
	}{
		{-10, 0, "#8b0000"},
		{-3, 0, "#8b0000"},
		{-2.5, 1, "#bf0000"},
		{-2, 1, "#bf0000"},
		{-1, 2, "#f63538"},
		{-0.3, 3, "#414554"},
		{0, 4, "#414554"},
		{0.5, 5, "#35764e"},
		{1, 6, "#2f9e4f"},
		{1.99, 6, "#2f9e4f"},
		{2, 7, "#30cc5a"},
		{3, 8, "#008000"},
		{12, 8, "#008000"},
	}
	for _, tt := range tests {
		b := For(tt.change)
		assert.Equal(t, tt.index, b.Index, "change %v", tt.change)
		assert.Equal(t, tt.hex, b.Hex, "change %v", tt.change)
		assert.Equal(t, tt.hex, Hex(tt.change))
	}
}

func TestForMonotonicAndIdempotent(t *testing.T) {
	prev := -1
	for x := -6.0; x <= 6.0; x += 0.01 {
		b := For(x)
		assert.Equal(t, b, For(x))
		assert.GreaterOrEqual(t, b.Index, prev, "bucket went down at %v", x)
		prev = b.Index
	}
}

func TestForNaNAndInfinities(t *testing.T) {
	assert.Equal(t, Neutral, For(math.NaN()))
	assert.Equal(t, 0, For(math.Inf(-1)).Index)
	assert.Equal(t, 8, For(math.Inf(1)).Index)
}

func TestColorAndParseHex(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0x8b, A: 0xff}, Color(-4))
	assert.Equal(t, color.RGBA{R: 0x30, G: 0xcc, B: 0x5a, A: 0xff}, Color(2.5))

	_, err := ParseHex("8b0000")
	require.Error(t, err)
	_, err = ParseHex("#zz0000")
	require.Error(t, err)
}

func TestLegend(t *testing.T) {
	legend := Legend()
	require.Len(t, legend, 7)
	assert.Equal(t, "-3%", legend[0].Label)
	assert.Equal(t, "#414554", legend[3].Hex)
	assert.Equal(t, "#30cc5a", legend[6].Hex)

	all := Buckets()
	require.Len(t, all, 9)
	all[0].Hex = "#ffffff"
	assert.Equal(t, "#8b0000", Buckets()[0].Hex, "Buckets returns a copy")
}
