package treemap

// Rect is an axis-aligned rectangle with X0 <= X1 and Y0 <= Y1.
type Rect struct {
	X0 float64 `json:"x0" msgpack:"x0"`
	Y0 float64 `json:"y0" msgpack:"y0"`
	X1 float64 `json:"x1" msgpack:"x1"`
	Y1 float64 `json:"y1" msgpack:"y1"`
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Area returns Width × Height.
func (r Rect) Area() float64 { return r.Width() * r.Height() }

// Center returns the midpoint.
func (r Rect) Center() (float64, float64) {
	return (r.X0 + r.X1) / 2, (r.Y0 + r.Y1) / 2
}

// Contains reports whether (x, y) lies inside r, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// Overlaps reports whether r and o share interior area.
func (r Rect) Overlaps(o Rect) bool {
	return r.X0 < o.X1 && o.X0 < r.X1 && r.Y0 < o.Y1 && o.Y0 < r.Y1
}

// inset shrinks r by the given edge amounts. An axis that would invert
// collapses to its midpoint instead.
func (r Rect) inset(top, right, bottom, left float64) Rect {
	out := Rect{X0: r.X0 + left, Y0: r.Y0 + top, X1: r.X1 - right, Y1: r.Y1 - bottom}
	if out.X1 < out.X0 {
		mid := (out.X0 + out.X1) / 2
		out.X0, out.X1 = mid, mid
	}
	if out.Y1 < out.Y0 {
		mid := (out.Y0 + out.Y1) / 2
		out.Y0, out.Y1 = mid, mid
	}
	return out
}
