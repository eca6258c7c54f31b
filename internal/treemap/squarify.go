package treemap

import "math"

// phi is the target aspect ratio of squarified rows.
var phi = (1 + math.Sqrt(5)) / 2

// squarify tiles items (already sorted by descending value) into bounds,
// writing each item's rect. Rows are grown greedily while the worst aspect
// ratio in the row keeps improving, then laid out as a horizontal band
// (dice) when bounds is taller than wide, otherwise as a vertical band
// (slice). total must equal the sum of item values.
func squarify(items []weighted, bounds Rect, total float64) {
	n := len(items)
	if n == 0 {
		return
	}
	if total <= 0 || bounds.Width() <= 0 || bounds.Height() <= 0 {
		for i := range items {
			items[i].rect = Rect{X0: bounds.X0, Y0: bounds.Y0, X1: bounds.X0, Y1: bounds.Y0}
		}
		return
	}

	x0, y0, x1, y1 := bounds.X0, bounds.Y0, bounds.X1, bounds.Y1
	value := total
	for i0 := 0; i0 < n; {
		dx, dy := x1-x0, y1-y0

		i1 := i0
		sum := items[i1].value
		i1++
		minV, maxV := sum, sum

		var alpha float64
		if dx > 0 && dy > 0 {
			alpha = math.Max(dy/dx, dx/dy) / (value * phi)
		}
		beta := sum * sum * alpha
		minRatio := worst(minV, maxV, beta)

		for ; i1 < n && alpha > 0; i1++ {
			v := items[i1].value
			sum += v
			lo, hi := math.Min(minV, v), math.Max(maxV, v)
			beta = sum * sum * alpha
			r := worst(lo, hi, beta)
			if r > minRatio {
				sum -= v
				break
			}
			minV, maxV, minRatio = lo, hi, r
		}

		// The last row takes whatever is left so the partition is exact.
		row := items[i0:i1]
		if dx < dy {
			// Row spans the full width at the top of the remaining area.
			ry1 := y1
			if i1 < n && value > 0 {
				ry1 = y0 + dy*sum/value
			}
			dice(row, sum, x0, y0, x1, ry1)
			y0 = ry1
		} else {
			// Row spans the full height at the left of the remaining area.
			rx1 := x1
			if i1 < n && value > 0 {
				rx1 = x0 + dx*sum/value
			}
			slice(row, sum, x0, y0, rx1, y1)
			x0 = rx1
		}
		value -= sum
		i0 = i1
	}
}

// worst returns the worst aspect ratio of a row given its min/max values and
// the precomputed sum²·alpha term.
func worst(minV, maxV, beta float64) float64 {
	if beta <= 0 || minV <= 0 {
		return math.Inf(1)
	}
	return math.Max(maxV/beta, beta/minV)
}

// dice splits [x0,x1] horizontally in proportion to item values.
func dice(row []weighted, sum, x0, y0, x1, y1 float64) {
	var k float64
	if sum > 0 {
		k = (x1 - x0) / sum
	}
	for i := range row {
		next := x0 + row[i].value*k
		if i == len(row)-1 {
			next = x1
		}
		row[i].rect = Rect{X0: x0, Y0: y0, X1: next, Y1: y1}
		x0 = next
	}
}

// slice splits [y0,y1] vertically in proportion to item values.
func slice(row []weighted, sum, x0, y0, x1, y1 float64) {
	var k float64
	if sum > 0 {
		k = (y1 - y0) / sum
	}
	for i := range row {
		next := y0 + row[i].value*k
		if i == len(row)-1 {
			next = y1
		}
		row[i].rect = Rect{X0: x0, Y0: y0, X1: x1, Y1: next}
		y0 = next
	}
}
