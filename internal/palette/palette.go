// Package palette maps a percentage change to one of the heatmap's fixed
// color buckets.
package palette

import (
	"fmt"
	"image/color"
	"math"
)

// Bucket is one discrete color step.
type Bucket struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Hex   string `json:"hex"`
}

// Color returns the bucket color as an opaque RGBA value.
func (b Bucket) Color() color.RGBA {
	c, _ := ParseHex(b.Hex)
	return c
}

// Buckets, from the most negative to the most positive change.
var buckets = [...]Bucket{
	{0, "≤ -3%", "#8b0000"},
	{1, "-3% .. -2%", "#bf0000"},
	{2, "-2% .. -1%", "#f63538"},
	{3, "-1% .. 0%", "#414554"},
	{4, "0%", "#414554"},
	{5, "0% .. +1%", "#35764e"},
	{6, "+1% .. +2%", "#2f9e4f"},
	{7, "+2% .. +3%", "#30cc5a"},
	{8, "≥ +3%", "#008000"},
}

// Neutral is the bucket used for an unchanged (or unknown) price.
var Neutral = buckets[4]

// Buckets returns every bucket in ascending order.
func Buckets() []Bucket {
	out := make([]Bucket, len(buckets))
	copy(out, buckets[:])
	return out
}

// For returns the bucket for a percentage change. Boundaries belong to the
// more extreme negative bucket (-3 → "≤ -3%", -1 → "-2% .. -1%") and to the
// higher positive bucket (1 → "+1% .. +2%", 3 → "≥ +3%"). NaN is neutral.
func For(change float64) Bucket {
	switch {
	case math.IsNaN(change):
		return Neutral
	case change <= -3:
		return buckets[0]
	case change <= -2:
		return buckets[1]
	case change <= -1:
		return buckets[2]
	case change < 0:
		return buckets[3]
	case change == 0:
		return buckets[4]
	case change < 1:
		return buckets[5]
	case change < 2:
		return buckets[6]
	case change < 3:
		return buckets[7]
	default:
		return buckets[8]
	}
}

// Hex returns the hex color for a percentage change.
func Hex(change float64) string {
	return For(change).Hex
}

// Color returns the RGBA color for a percentage change.
func Color(change float64) color.RGBA {
	return For(change).Color()
}

// Swatch is one entry of the page legend.
type Swatch struct {
	Label string `json:"label"`
	Hex   string `json:"hex"`
}

// Legend returns the seven swatches shown in the page header, -3% to +3%.
func Legend() []Swatch {
	return []Swatch{
		{"-3%", buckets[0].Hex},
		{"-2%", buckets[1].Hex},
		{"-1%", buckets[2].Hex},
		{"0%", buckets[4].Hex},
		{"+1%", buckets[5].Hex},
		{"+2%", buckets[6].Hex},
		{"+3%", buckets[7].Hex},
	}
}

// ParseHex parses "#rrggbb" into an opaque color.
func ParseHex(s string) (color.RGBA, error) {
	var c color.RGBA
	if len(s) != 7 || s[0] != '#' {
		return c, fmt.Errorf("invalid hex color %q", s)
	}
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return c, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	c.A = 0xff
	return c, nil
}
