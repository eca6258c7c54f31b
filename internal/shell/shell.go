// Package shell renders the HTML page that hosts a heatmap view in a
// browser: header, legend, the heatmap surface and a footer.
package shell

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"time"

	"kmarket/internal/palette"
)

// Sizing of the heatmap surface relative to its container.
const (
	AspectRatio = 0.6
	MinHeight   = 600
)

const (
	defaultTitle          = "K-Market Heatmap"
	defaultDescription    = "S&P 500 Map 스타일의 국내 증시 업종별 히트맵입니다. 섹터 위에 마우스를 올리면 상세 종목 리스트를 확인할 수 있습니다."
	defaultClassification = "KRX Sector Indices"
	timestampLayout       = "2006-01-02 15:04:05"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Dimensions returns the heatmap size for a container of the given width:
// the full width and max(0.6·width, 600) tall. ok is false when the
// container has no width yet, in which case nothing should be rendered.
func Dimensions(containerWidth float64) (width, height float64, ok bool) {
	if !(containerWidth > 0) || math.IsInf(containerWidth, 0) {
		return 0, 0, false
	}
	return containerWidth, math.Max(containerWidth*AspectRatio, MinHeight), true
}

// Page is the data behind the page template.
type Page struct {
	Title          string
	Description    string
	Market         string
	Classification string
	Updated        time.Time
	Legend         []palette.Swatch
	APIBase        string // prefix of the HTTP API, "" for same origin
}

// NewPage returns a page for the named market with the standard header,
// legend and footer text.
func NewPage(market string, updated time.Time) Page {
	return Page{
		Title:          defaultTitle,
		Description:    defaultDescription,
		Market:         market,
		Classification: defaultClassification,
		Updated:        updated,
		Legend:         palette.Legend(),
	}
}

// UpdatedText formats the footer timestamp.
func (p Page) UpdatedText() string {
	if p.Updated.IsZero() {
		return "-"
	}
	return p.Updated.Format(timestampLayout)
}

// AspectRatio is read by the page script, which sizes the surface the same
// way Dimensions does.
func (Page) AspectRatio() float64 { return AspectRatio }

// MinHeight is read by the page script.
func (Page) MinHeight() float64 { return MinHeight }

// Render writes the page to w.
func Render(w io.Writer, p Page) error {
	if err := pageTemplate.Execute(w, p); err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}
	return nil
}
