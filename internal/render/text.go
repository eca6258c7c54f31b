package render

import (
	"math"
	"unicode/utf8"
)

// TextStyle holds the tunable constants of the adaptive cell labels. Sizes
// are in layout (data-space) pixels unless noted.
type TextStyle struct {
	MinFont       float64 // floor of the name font size
	MaxFont       float64 // cap of the name font size
	AreaFactor    float64 // share of √area
	WidthFactor   float64 // share of the cell width split across the name's runes
	WidthBoost    float64
	HeightFactor  float64 // share of the cell height
	LargeSide     float64 // √area above which LargeBoost applies
	LargeBoost    float64
	ChangeRatio   float64 // change line font relative to the name font
	ChangeLineMin float64 // cell height, in name fonts, needed for the change line
	NameLift      float64 // upward shift of the name, in name fonts, when the change line shows
	LinePitch     float64 // distance between name and change line, in name fonts
	MinCellWidth  float64 // screen pixels below which no text is drawn
	MinCellHeight float64
	TruncatePad   float64
	Ellipsis      string
	SectorFont    float64 // sector label size in screen pixels
	SectorInsetX  float64 // sector label offset in screen pixels
	SectorInsetY  float64
}

// DefaultTextStyle returns the web heatmap's label constants.
func DefaultTextStyle() TextStyle {
	return TextStyle{
		MinFont:       8,
		MaxFont:       64,
		AreaFactor:    0.12,
		WidthFactor:   0.7,
		WidthBoost:    1.2,
		HeightFactor:  0.35,
		LargeSide:     100,
		LargeBoost:    1.1,
		ChangeRatio:   0.7,
		ChangeLineMin: 1.8,
		NameLift:      0.3,
		LinePitch:     1,
		MinCellWidth:  15,
		MinCellHeight: 10,
		TruncatePad:   4,
		Ellipsis:      "...",
		SectorFont:    12,
		SectorInsetX:  8,
		SectorInsetY:  16,
	}
}

// FontSize returns the name font size for a w×h cell labelled name.
func (s TextStyle) FontSize(w, h float64, name string) float64 {
	side := math.Sqrt(math.Max(0, w*h))
	fs := math.Min(side*s.AreaFactor, h*s.HeightFactor)
	if n := utf8.RuneCountInString(name); n > 0 {
		fs = math.Min(fs, w*s.WidthFactor/float64(n)*s.WidthBoost)
	}
	fs = math.Max(s.MinFont, fs)
	if side > s.LargeSide {
		fs *= s.LargeBoost
	}
	return math.Min(fs, s.MaxFont)
}

// ShowsText reports whether a cell of w×h data pixels at scale k is large
// enough on screen to carry a label.
func (s TextStyle) ShowsText(w, h, k float64) bool {
	return w*k > s.MinCellWidth && h*k > s.MinCellHeight
}

// ShowsChange reports whether a cell of height h has room for the change
// line under a name set at font size fs.
func (s TextStyle) ShowsChange(h, fs float64) bool {
	return h > fs*s.ChangeLineMin
}

// Truncate shortens name, rune by rune from the end, until name+ellipsis
// measures within maxWidth. Names that already fit are returned unchanged.
// If nothing fits, only the ellipsis remains.
func (s TextStyle) Truncate(name string, maxWidth float64, measure func(string) float64) string {
	if measure(name) <= maxWidth {
		return name
	}
	runes := []rune(name)
	n := len(runes)
	for n > 0 && measure(string(runes[:n])+s.Ellipsis) > maxWidth {
		n--
	}
	if n < len(runes) {
		return string(runes[:n]) + s.Ellipsis
	}
	return name
}
