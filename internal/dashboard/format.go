package dashboard

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	return humanize.Comma(int64(n))
}

// FormatChange formats a percent change the way cells and the popover show
// it: "+1.5%", "-2.1%", "0%". Positive values carry an explicit sign.
func FormatChange(c float64) string {
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return "-"
	}
	s := strconv.FormatFloat(c, 'f', -1, 64)
	if c > 0 {
		s = "+" + s
	}
	return s + "%"
}

// FormatValue formats a sizing value with comma separators and at most one
// decimal.
func FormatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return humanize.CommafWithDigits(v, 1)
}

// FormatCompact formats a large value with an SI suffix ("1.2 k", "3.4 M").
func FormatCompact(v float64) string {
	if math.Abs(v) < 1000 {
		return FormatValue(v)
	}
	return humanize.SIWithDigits(v, 1, "")
}

// FormatPrice formats a current price, or "-" when none is known.
func FormatPrice(p float64) string {
	if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return "-"
	}
	return humanize.CommafWithDigits(p, 2)
}

// FormatZoom formats a scale factor as the control overlay readout.
func FormatZoom(k float64) string {
	return fmt.Sprintf("Zoom: %d%%", int(math.Round(k*100)))
}
