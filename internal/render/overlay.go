package render

import (
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"kmarket/internal/dashboard"
	"kmarket/internal/treemap"
)

// Overlay styling, in screen pixels.
const (
	controlsInset   = 16
	controlsGap     = 8
	controlsFont    = 10
	controlsPadX    = 8
	controlsHeight  = 22
	popoverPad      = 16
	popoverTitle    = 16
	popoverTag      = 10
	popoverHeader   = 30
	popoverRow      = 14
	popoverRowPitch = 24
)

var (
	panelFill     = color.NRGBA{R: 23, G: 23, B: 23, A: 204}
	panelHover    = color.NRGBA{R: 38, G: 38, B: 38, A: 230}
	panelBorder   = color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xff}
	popoverFill   = color.NRGBA{R: 10, G: 10, B: 10, A: 242}
	popoverRule   = color.RGBA{R: 0x26, G: 0x26, B: 0x26, A: 0xff}
	rowHighlight  = color.NRGBA{R: 255, G: 255, B: 255, A: 13}
	textMuted     = color.RGBA{R: 0xa3, G: 0xa3, B: 0xa3, A: 0xff}
	textDim       = color.RGBA{R: 0x73, G: 0x73, B: 0x73, A: 0xff}
	textRow       = color.RGBA{R: 0xd4, G: 0xd4, B: 0xd4, A: 0xff}
	trendUpText   = color.RGBA{R: 0x4a, G: 0xde, B: 0x80, A: 0xff}
	trendDownText = color.RGBA{R: 0xf8, G: 0x71, B: 0x71, A: 0xff}
)

// Controls is the placement of the view control overlay in screen pixels.
type Controls struct {
	Reset    treemap.Rect `json:"reset"`
	Zoom     treemap.Rect `json:"zoom"`
	ZoomText string       `json:"zoomText"`
}

// ControlsLayout places the Reset View button and the zoom readout in the
// bottom-left corner of a width×height viewport at scale k.
func (r *Renderer) ControlsLayout(width, height, k float64) Controls {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.controlsLayout(width, height, k)
}

func (r *Renderer) controlsLayout(width, height, k float64) Controls {
	face := r.face(controlsFont, false)
	c := Controls{ZoomText: dashboard.FormatZoom(k)}

	y1 := height - controlsInset
	y0 := y1 - controlsHeight
	x := float64(controlsInset)
	rw := measure(face, "Reset View") + 2*controlsPadX
	c.Reset = treemap.Rect{X0: x, Y0: y0, X1: x + rw, Y1: y1}
	x += rw + controlsGap
	zw := measure(face, c.ZoomText) + 2*controlsPadX
	c.Zoom = treemap.Rect{X0: x, Y0: y0, X1: x + zw, Y1: y1}
	return c
}

// DrawControls paints the control overlay for a width×height viewport at
// scale k. resetHovered lightens the button.
func (r *Renderer) DrawControls(dc *gg.Context, width, height, k, dpr float64, resetHovered bool) {
	if dc == nil || width <= 0 || height <= 0 {
		return
	}
	if dpr <= 0 {
		dpr = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.controlsLayout(width, height, k)
	dc.Identity()
	dc.SetFontFace(r.face(controlsFont*dpr, false))

	fill := color.Color(panelFill)
	if resetHovered {
		fill = panelHover
	}
	r.panel(dc, c.Reset, dpr, fill)
	dc.SetColor(color.White)
	cx, cy := c.Reset.Center()
	dc.DrawStringAnchored("Reset View", cx*dpr, cy*dpr, 0.5, 0.5)

	r.panel(dc, c.Zoom, dpr, panelFill)
	dc.SetColor(textMuted)
	cx, cy = c.Zoom.Center()
	dc.DrawStringAnchored(c.ZoomText, cx*dpr, cy*dpr, 0.5, 0.5)
}

func (r *Renderer) panel(dc *gg.Context, rect treemap.Rect, dpr float64, fill color.Color) {
	dc.DrawRoundedRectangle(rect.X0*dpr, rect.Y0*dpr, rect.Width()*dpr, rect.Height()*dpr, 4*dpr)
	dc.SetColor(fill)
	dc.FillPreserve()
	dc.SetColor(panelBorder)
	dc.SetLineWidth(dpr)
	dc.Stroke()
}

// PopoverHeight returns the drawn height of p in screen pixels.
func PopoverHeight(p dashboard.Popover) float64 {
	list := math.Min(float64(len(p.Rows))*popoverRowPitch, dashboard.PopoverMaxList)
	return 2*popoverPad + popoverHeader + list
}

// DrawPopover paints the sector detail popover at its placed position.
// Rows past the list height are clipped.
func (r *Renderer) DrawPopover(dc *gg.Context, p dashboard.Popover, dpr float64) {
	if dc == nil {
		return
	}
	if dpr <= 0 {
		dpr = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	dc.Identity()
	x0, y0 := p.Left*dpr, p.Top*dpr
	w, h := dashboard.PopoverWidth*dpr, PopoverHeight(p)*dpr
	pad := popoverPad * dpr

	dc.DrawRoundedRectangle(x0, y0, w, h, 8*dpr)
	dc.SetColor(popoverFill)
	dc.FillPreserve()
	dc.SetColor(panelBorder)
	dc.SetLineWidth(dpr)
	dc.Stroke()

	// Header: sector name left, tag right, rule underneath.
	baseline := y0 + pad + popoverTitle*dpr
	dc.SetFontFace(r.face(popoverTitle*dpr, true))
	dc.SetColor(color.White)
	dc.DrawString(p.Title, x0+pad, baseline)
	dc.SetFontFace(r.face(popoverTag*dpr, false))
	dc.SetColor(textDim)
	dc.DrawStringAnchored(p.Tag, x0+w-pad, baseline, 1, 0)

	ruleY := y0 + pad + (popoverHeader-6)*dpr
	dc.SetColor(popoverRule)
	dc.DrawLine(x0+pad, ruleY, x0+w-pad, ruleY)
	dc.Stroke()

	listTop := y0 + pad + popoverHeader*dpr
	dc.DrawRectangle(x0, listTop, w, dashboard.PopoverMaxList*dpr)
	dc.Clip()
	defer dc.ResetClip()

	for i, row := range p.Rows {
		top := listTop + float64(i)*popoverRowPitch*dpr
		mid := top + popoverRowPitch*dpr/2
		if row.Highlighted {
			dc.SetColor(rowHighlight)
			dc.DrawRectangle(x0+pad/2, top, w-pad, popoverRowPitch*dpr)
			dc.Fill()
		}

		nameColor := color.Color(textRow)
		if row.Highlighted {
			nameColor = color.White
		}
		dc.SetFontFace(r.face(popoverRow*dpr, row.Highlighted))
		dc.SetColor(nameColor)
		dc.DrawStringAnchored(row.Name, x0+pad, mid, 0, 0.5)

		dc.SetFontFace(r.face(popoverRow*dpr, true))
		dc.SetColor(trendColor(row.Trend))
		dc.DrawStringAnchored(row.ChangeText, x0+w-pad, mid, 1, 0.5)
	}
}

func trendColor(t dashboard.Trend) color.Color {
	switch t {
	case dashboard.Up:
		return trendUpText
	case dashboard.Down:
		return trendDownText
	default:
		return textDim
	}
}
