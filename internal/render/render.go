// Package render paints a heatmap layout onto a raster surface at a given
// view transform and device pixel ratio.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"kmarket/internal/dashboard"
	"kmarket/internal/palette"
	"kmarket/internal/treemap"
	"kmarket/internal/view"
)

var (
	cellStroke      = color.NRGBA{A: 77}
	changeText      = color.NRGBA{R: 255, G: 255, B: 255, A: 179}
	sectorStroke    = color.RGBA{R: 0x44, G: 0x44, B: 0x44, A: 0xff}
	sectorLabel     = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}
	defaultBackdrop = color.RGBA{A: 0xff}
)

// Options configures a Renderer.
type Options struct {
	FontPath     string // TrueType font for labels; Go Regular when empty
	BoldFontPath string // optional bold variant
	Style        TextStyle
	Background   color.Color // nil means opaque black
}

// Frame is everything a single paint depends on.
type Frame struct {
	Layout    *treemap.Layout
	Transform view.Transform
	Hover     view.Hover
	DPR       float64 // device pixels per layout pixel; <= 0 means 1
}

// Renderer draws frames. It is safe for concurrent use; paints are
// serialized because font faces are stateful.
type Renderer struct {
	style      TextStyle
	background color.Color
	regular    *truetype.Font
	bold       *truetype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

// New loads the configured fonts and returns a Renderer.
func New(opts Options) (*Renderer, error) {
	regular, bold, err := loadFonts(opts.FontPath, opts.BoldFontPath)
	if err != nil {
		return nil, err
	}
	style := opts.Style
	if style == (TextStyle{}) {
		style = DefaultTextStyle()
	}
	bg := opts.Background
	if bg == nil {
		bg = defaultBackdrop
	}
	return &Renderer{
		style:      style,
		background: bg,
		regular:    regular,
		bold:       bold,
		faces:      make(map[faceKey]font.Face),
	}, nil
}

// Render paints f onto dc, replacing its contents. A nil context or layout
// is a no-op. The same frame always produces the same pixels.
func (r *Renderer) Render(dc *gg.Context, f Frame) {
	if dc == nil || f.Layout == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	dpr := f.DPR
	if dpr <= 0 {
		dpr = 1
	}
	t := f.Transform
	if t.K <= 0 {
		t = view.Identity()
	}

	dc.Identity()
	dc.ResetClip()
	dc.SetColor(r.background)
	dc.Clear()

	p := painter{r: r, dc: dc, t: t, dpr: dpr}
	canvas := treemap.Rect{X1: float64(dc.Width()), Y1: float64(dc.Height())}

	for i := range f.Layout.Sectors {
		sec := &f.Layout.Sectors[i]
		if !canvas.Overlaps(p.device(sec.Rect)) {
			continue
		}
		for j := range sec.Stocks {
			st := &sec.Stocks[j]
			if canvas.Overlaps(p.device(st.Rect)) {
				p.stock(st)
			}
		}
		p.sector(sec, f.Hover.SectorID == sec.ID)
	}
}

// painter carries the per-frame coordinate mapping. Drawing happens at the
// identity matrix in device pixels so strokes and glyphs stay crisp at any
// zoom.
type painter struct {
	r   *Renderer
	dc  *gg.Context
	t   view.Transform
	dpr float64
}

func (p painter) device(r treemap.Rect) treemap.Rect {
	x0, y0 := p.t.Apply(r.X0, r.Y0)
	x1, y1 := p.t.Apply(r.X1, r.Y1)
	return treemap.Rect{X0: x0 * p.dpr, Y0: y0 * p.dpr, X1: x1 * p.dpr, Y1: y1 * p.dpr}
}

func (p painter) stock(n *treemap.StockNode) {
	s := p.r.style
	d := p.device(n.Rect)

	p.dc.SetColor(palette.Color(n.Stock.Change))
	p.dc.DrawRectangle(d.X0, d.Y0, d.Width(), d.Height())
	p.dc.Fill()

	p.dc.SetColor(cellStroke)
	p.dc.SetLineWidth(0.5 * p.dpr)
	p.dc.DrawRectangle(d.X0, d.Y0, d.Width(), d.Height())
	p.dc.Stroke()

	w, h := n.Width(), n.Height()
	if !s.ShowsText(w, h, p.t.K) {
		return
	}

	fs := s.FontSize(w, h, n.Stock.Name)
	scale := p.t.K * p.dpr
	cx, cy := (d.X0+d.X1)/2, (d.Y0+d.Y1)/2

	face := p.r.face(fs*scale, true)
	label := s.Truncate(n.Stock.Name, (w-s.TruncatePad)*scale, func(str string) float64 {
		return measure(face, str)
	})

	hasChange := s.ShowsChange(h, fs)
	nameY := cy
	if hasChange {
		nameY = cy - fs*s.NameLift*scale
	}
	p.dc.SetFontFace(face)
	p.dc.SetColor(color.White)
	p.dc.DrawStringAnchored(label, cx, nameY, 0.5, 0.5)

	if hasChange {
		p.dc.SetFontFace(p.r.face(fs*s.ChangeRatio*scale, false))
		p.dc.SetColor(changeText)
		p.dc.DrawStringAnchored(dashboard.FormatChange(n.Stock.Change), cx, nameY+fs*s.LinePitch*scale, 0.5, 0.5)
	}
}

func (p painter) sector(n *treemap.SectorNode, hovered bool) {
	s := p.r.style
	d := p.device(n.Rect)

	stroke, width, label := color.Color(sectorStroke), 1.0, color.Color(sectorLabel)
	if hovered {
		stroke, width, label = color.White, 2.0, color.White
	}
	p.dc.SetColor(stroke)
	p.dc.SetLineWidth(width * p.dpr)
	p.dc.DrawRectangle(d.X0, d.Y0, d.Width(), d.Height())
	p.dc.Stroke()

	p.dc.SetFontFace(p.r.face(s.SectorFont*p.dpr, true))
	p.dc.SetColor(label)
	p.dc.DrawString(n.Name, d.X0+s.SectorInsetX*p.dpr, d.Y0+s.SectorInsetY*p.dpr)
}

// DeviceSize returns the raster size for a width×height viewport at dpr.
func DeviceSize(width, height, dpr float64) (int, int) {
	if dpr <= 0 {
		dpr = 1
	}
	w := int(math.Ceil(math.Max(0, width) * dpr))
	h := int(math.Ceil(math.Max(0, height) * dpr))
	return max(w, 1), max(h, 1)
}

// RenderImage paints f onto a new image sized to the layout's viewport.
func (r *Renderer) RenderImage(f Frame) *image.RGBA {
	var w, h float64
	if f.Layout != nil {
		w, h = f.Layout.Width, f.Layout.Height
	}
	dw, dh := DeviceSize(w, h, f.DPR)
	img := image.NewRGBA(image.Rect(0, 0, dw, dh))
	r.Render(gg.NewContextForRGBA(img), f)
	return img
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}
