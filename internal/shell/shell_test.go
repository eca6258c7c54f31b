package shell

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimensions(t *testing.T) {
	tests := []struct {
		width      float64
		wantW      float64
		wantH      float64
		wantRender bool
	}{
		{0, 0, 0, false},
		{-10, 0, 0, false},
		{math.NaN(), 0, 0, false},
		{500, 500, 600, true},
		{1000, 1000, 600, true},
		{1280, 1280, 768, true},
	}
	for _, tt := range tests {
		w, h, ok := Dimensions(tt.width)
		assert.Equal(t, tt.wantRender, ok, "width %v", tt.width)
		assert.Equal(t, tt.wantW, w, "width %v", tt.width)
		assert.InDelta(t, tt.wantH, h, 1e-9, "width %v", tt.width)
	}
}

func TestRenderPage(t *testing.T) {
	updated := time.Date(2026, 2, 9, 16, 26, 1, 0, time.UTC)
	p := NewPage("KOSPI/KOSDAQ", updated)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, p))
	html := buf.String()

	assert.Contains(t, html, "K-Market <span>Heatmap</span>")
	assert.Contains(t, html, "KOSPI/KOSDAQ")
	assert.Contains(t, html, "KRX Sector Indices")
	assert.Contains(t, html, "2026-02-09 16:26:01")
	assert.Contains(t, html, "Reset View")
	for _, sw := range p.Legend {
		assert.Contains(t, html, sw.Hex)
	}
	assert.Equal(t, 7, strings.Count(html, `class="swatch"`))
}

func TestRenderEscapesMarketName(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, NewPage("<script>x</script>", time.Time{})))
	assert.NotContains(t, buf.String(), "<script>x</script>")
	assert.Contains(t, buf.String(), "<b>Updated</b><span>-</span>")
}
