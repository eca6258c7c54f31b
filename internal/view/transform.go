// Package view holds the per-viewer interaction state of the heatmap: the
// pan/zoom transform, gesture mode, pointer hover and the reset animation.
package view

import "math"

// Transform maps data space to screen space: screen = data·K + (X, Y).
type Transform struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	K float64 `json:"k" msgpack:"k"`
}

// Identity is the unzoomed, unpanned transform.
func Identity() Transform {
	return Transform{K: 1}
}

// IsIdentity reports whether t is the identity transform.
func (t Transform) IsIdentity() bool {
	return t.X == 0 && t.Y == 0 && t.K == 1
}

// Apply maps a data-space point to screen space.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return x*t.K + t.X, y*t.K + t.Y
}

// Invert maps a screen-space point to data space.
func (t Transform) Invert(x, y float64) (float64, float64) {
	return (x - t.X) / t.K, (y - t.Y) / t.K
}

// ZoomPercent returns the scale as a rounded percentage (100 at identity).
func (t Transform) ZoomPercent() int {
	return int(math.Round(t.K * 100))
}

// scaleAt returns t rescaled to k while keeping the data point under screen
// point (px, py) fixed.
func (t Transform) scaleAt(k, px, py float64) Transform {
	dx, dy := t.Invert(px, py)
	return Transform{X: px - dx*k, Y: py - dy*k, K: k}
}

// translate shifts t by (dx, dy) data-space units.
func (t Transform) translate(dx, dy float64) Transform {
	return Transform{X: t.X + t.K*dx, Y: t.Y + t.K*dy, K: t.K}
}

// bounds is an axis-aligned box in screen or data space.
type bounds struct {
	x0, y0, x1, y1 float64
}

// constrain shifts t so that the viewport extent never shows anything
// outside the translate extent. When the extent is smaller than the viewport
// the content is centered instead.
func constrain(t Transform, extent, limit bounds) Transform {
	dx0, dy0 := t.Invert(extent.x0, extent.y0)
	dx1, dy1 := t.Invert(extent.x1, extent.y1)
	dx0 -= limit.x0
	dy0 -= limit.y0
	dx1 -= limit.x1
	dy1 -= limit.y1
	return t.translate(shift(dx0, dx1), shift(dy0, dy1))
}

func shift(d0, d1 float64) float64 {
	if d1 > d0 {
		return (d0 + d1) / 2
	}
	if s := math.Min(0, d0); s != 0 {
		return s
	}
	return math.Max(0, d1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// cubicInOut is the symmetric cubic easing curve over [0, 1].
func cubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}
