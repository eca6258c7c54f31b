package view

import (
	"fmt"
	"math"
	"time"

	"kmarket/internal/market"
	"kmarket/internal/treemap"
)

// Mode is the current gesture state.
type Mode int

const (
	Idle Mode = iota
	Panning
	Zooming
)

func (m Mode) String() string {
	switch m {
	case Panning:
		return "panning"
	case Zooming:
		return "zooming"
	default:
		return "idle"
	}
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*m = Idle
	case "panning":
		*m = Panning
	case "zooming":
		*m = Zooming
	default:
		return fmt.Errorf("unknown mode %q", b)
	}
	return nil
}

// Options tunes gesture handling.
type Options struct {
	MinScale       float64
	MaxScale       float64
	PanMargin      float64       // screen pixels the content may be dragged past the viewport edge
	ResetDuration  time.Duration // reset animation length
	ZoomDuration   time.Duration // double-click zoom animation length
	WheelIdle      time.Duration // wheel gesture ends after this much quiet
	WheelSpeed     float64       // exponent per pixel of wheel delta
	DoubleClickMul float64
}

// DefaultOptions returns the gesture settings of the web heatmap.
func DefaultOptions() Options {
	return Options{
		MinScale:       1,
		MaxScale:       8,
		ResetDuration:  750 * time.Millisecond,
		ZoomDuration:   250 * time.Millisecond,
		WheelIdle:      150 * time.Millisecond,
		WheelSpeed:     0.002,
		DoubleClickMul: 2,
	}
}

// Hover identifies what lies under the pointer. StockID is only set together
// with SectorID. X and Y are the pointer position in screen pixels.
type Hover struct {
	SectorID string  `json:"sectorId,omitempty" msgpack:"sectorId,omitempty"`
	StockID  string  `json:"stockId,omitempty" msgpack:"stockId,omitempty"`
	X        float64 `json:"x" msgpack:"x"`
	Y        float64 `json:"y" msgpack:"y"`
}

// Active reports whether the pointer is over a sector.
func (h Hover) Active() bool {
	return h.SectorID != ""
}

// State is a read-only snapshot of a controller.
type State struct {
	Version   uint64    `json:"version" msgpack:"version"`
	Width     float64   `json:"width" msgpack:"width"`
	Height    float64   `json:"height" msgpack:"height"`
	Transform Transform `json:"transform" msgpack:"transform"`
	Mode      Mode      `json:"mode" msgpack:"mode"`
	Animating bool      `json:"animating" msgpack:"animating"`
	Hover     Hover     `json:"hover" msgpack:"hover"`
	Zoom      int       `json:"zoom" msgpack:"zoom"`
}

type animation struct {
	from, to Transform
	start    time.Time
	duration time.Duration
}

// Controller owns one viewer's layout, transform and hover state. It is not
// safe for concurrent use; callers serialize access per view.
type Controller struct {
	opts       Options
	layoutOpts treemap.Options

	data   market.MarketData
	layout *treemap.Layout
	width  float64
	height float64

	t     Transform
	mode  Mode
	hover Hover

	pointerIn  bool
	px, py     float64
	grabX      float64 // data point held by an active pan
	grabY      float64
	wheelUntil time.Time
	anim       *animation

	version uint64
}

// NewController creates a controller for data laid out with layoutOpts. The
// viewport starts empty until Resize is called.
func NewController(data market.MarketData, layoutOpts treemap.Options, opts Options) *Controller {
	if opts.MinScale <= 0 {
		opts.MinScale = 1
	}
	if opts.MaxScale < opts.MinScale {
		opts.MaxScale = opts.MinScale
	}
	c := &Controller{
		opts:       opts,
		layoutOpts: layoutOpts,
		data:       data,
		t:          Identity(),
	}
	c.layout = treemap.Compute(data, 0, 0, layoutOpts)
	return c
}

// Data returns the dataset being viewed.
func (c *Controller) Data() market.MarketData { return c.data }

// Layout returns the current layout. It must not be modified.
func (c *Controller) Layout() *treemap.Layout { return c.layout }

// Transform returns the current transform.
func (c *Controller) Transform() Transform { return c.t }

// Mode returns the current gesture mode.
func (c *Controller) Mode() Mode { return c.mode }

// Hover returns the current hover state.
func (c *Controller) Hover() Hover { return c.hover }

// Version increases every time anything observable changes.
func (c *Controller) Version() uint64 { return c.version }

// Animating reports whether a transform animation is running.
func (c *Controller) Animating() bool { return c.anim != nil }

// Size returns the viewport size.
func (c *Controller) Size() (float64, float64) { return c.width, c.height }

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	return State{
		Version:   c.version,
		Width:     c.width,
		Height:    c.height,
		Transform: c.t,
		Mode:      c.mode,
		Animating: c.anim != nil,
		Hover:     c.hover,
		Zoom:      c.t.ZoomPercent(),
	}
}

// Resize changes the viewport, recomputes the layout and snaps the transform
// back to identity without animation. Hover is cleared.
func (c *Controller) Resize(width, height float64) {
	if width == c.width && height == c.height {
		return
	}
	c.width, c.height = width, height
	c.layout = treemap.Compute(c.data, width, height, c.layoutOpts)
	c.t = Identity()
	c.anim = nil
	c.mode = Idle
	c.hover = Hover{}
	c.pointerIn = false
	c.bump()
}

// SetData replaces the dataset and recomputes the layout at the current
// size. The transform is kept; hover is re-evaluated.
func (c *Controller) SetData(data market.MarketData) {
	c.data = data
	c.layout = treemap.Compute(data, c.width, c.height, c.layoutOpts)
	c.refreshHover()
	c.bump()
}

// PointerMove records the pointer position, continues an active pan and
// recomputes hover.
func (c *Controller) PointerMove(x, y float64) {
	c.pointerIn = true
	c.px, c.py = x, y
	if c.mode == Panning {
		t := Transform{X: x - c.grabX*c.t.K, Y: y - c.grabY*c.t.K, K: c.t.K}
		c.t = c.constrain(t)
	}
	c.refreshHover()
	c.bump()
}

// PointerDown starts a pan anchored at the data point under (x, y).
func (c *Controller) PointerDown(x, y float64) {
	c.anim = nil
	c.pointerIn = true
	c.px, c.py = x, y
	c.grabX, c.grabY = c.t.Invert(x, y)
	c.mode = Panning
	c.refreshHover()
	c.bump()
}

// PointerUp ends a pan or pinch.
func (c *Controller) PointerUp(x, y float64) {
	c.px, c.py = x, y
	if c.mode != Idle {
		c.mode = Idle
		c.bump()
	}
}

// PointerLeave clears hover. An active pan keeps going so a drag that
// briefly leaves the surface is not lost.
func (c *Controller) PointerLeave() {
	c.pointerIn = false
	if c.hover != (Hover{}) {
		c.hover = Hover{}
		c.bump()
	}
}

// WheelMode is the unit of a wheel delta.
type WheelMode int

const (
	WheelPixel WheelMode = iota
	WheelLine
	WheelPage
)

// WheelFactor converts a vertical wheel delta into a scale multiplier.
func (c *Controller) WheelFactor(dy float64, mode WheelMode, ctrl bool) float64 {
	speed := c.opts.WheelSpeed
	switch mode {
	case WheelLine:
		speed = 0.05
	case WheelPage:
		speed = 1
	}
	if ctrl {
		speed *= 10
	}
	return math.Pow(2, -dy*speed)
}

// Wheel zooms by the wheel delta anchored at (x, y). The zooming mode ends
// once no wheel input arrives for the configured idle period (see Tick).
func (c *Controller) Wheel(x, y, dy float64, mode WheelMode, ctrl bool, now time.Time) {
	c.zoomGesture(x, y, c.WheelFactor(dy, mode, ctrl), now)
}

// Pinch scales by factor around (x, y), typically the midpoint of two
// touches. It behaves like a wheel gesture.
func (c *Controller) Pinch(x, y, factor float64, now time.Time) {
	if !(factor > 0) {
		return
	}
	c.zoomGesture(x, y, factor, now)
}

func (c *Controller) zoomGesture(x, y, factor float64, now time.Time) {
	if c.width <= 0 || c.height <= 0 {
		return
	}
	c.anim = nil
	c.pointerIn = true
	c.px, c.py = x, y
	c.wheelUntil = now.Add(c.opts.WheelIdle)
	if c.mode != Panning {
		c.mode = Zooming
	}
	k := clamp(c.t.K*factor, c.opts.MinScale, c.opts.MaxScale)
	if k != c.t.K {
		c.t = c.constrain(c.t.scaleAt(k, x, y))
	}
	c.refreshHover()
	c.bump()
}

// ZoomBy scales immediately by factor around (x, y) without entering a
// gesture.
func (c *Controller) ZoomBy(factor, x, y float64) {
	if !(factor > 0) || c.width <= 0 || c.height <= 0 {
		return
	}
	c.anim = nil
	k := clamp(c.t.K*factor, c.opts.MinScale, c.opts.MaxScale)
	c.t = c.constrain(c.t.scaleAt(k, x, y))
	c.refreshHover()
	c.bump()
}

// PanBy moves the content by (dx, dy) screen pixels.
func (c *Controller) PanBy(dx, dy float64) {
	c.anim = nil
	c.t = c.constrain(Transform{X: c.t.X + dx, Y: c.t.Y + dy, K: c.t.K})
	c.refreshHover()
	c.bump()
}

// DoubleClick animates a zoom in at (x, y), or out when shift is held.
func (c *Controller) DoubleClick(x, y float64, shift bool, now time.Time) {
	mul := c.opts.DoubleClickMul
	if shift {
		mul = 1 / mul
	}
	k := clamp(c.t.K*mul, c.opts.MinScale, c.opts.MaxScale)
	c.animateTo(c.constrain(c.t.scaleAt(k, x, y)), c.opts.ZoomDuration, now)
}

// Reset animates the transform back to identity.
func (c *Controller) Reset(now time.Time) {
	if c.anim == nil && c.t.IsIdentity() {
		if c.mode != Idle {
			c.mode = Idle
			c.bump()
		}
		return
	}
	c.mode = Idle
	c.animateTo(Identity(), c.opts.ResetDuration, now)
}

func (c *Controller) animateTo(to Transform, d time.Duration, now time.Time) {
	if d <= 0 || c.width <= 0 || c.height <= 0 {
		c.anim = nil
		c.t = to
		c.refreshHover()
		c.bump()
		return
	}
	c.anim = &animation{from: c.t, to: to, start: now, duration: d}
	c.bump()
}

// Tick advances time-driven state: the running animation and the wheel
// gesture timeout. It reports whether anything changed.
func (c *Controller) Tick(now time.Time) bool {
	changed := false
	if c.mode == Zooming && !now.Before(c.wheelUntil) {
		c.mode = Idle
		changed = true
	}
	if a := c.anim; a != nil {
		e := float64(now.Sub(a.start)) / float64(a.duration)
		if e >= 1 {
			c.t = a.to
			c.anim = nil
		} else {
			c.t = c.interpolate(a.from, a.to, cubicInOut(math.Max(0, e)))
		}
		c.refreshHover()
		changed = true
	}
	if changed {
		c.bump()
	}
	return changed
}

// interpolate blends two transforms by interpolating the scale in log space
// and the data-space point at the viewport center linearly.
func (c *Controller) interpolate(a, b Transform, e float64) Transform {
	cx, cy := c.width/2, c.height/2
	ax, ay := a.Invert(cx, cy)
	bx, by := b.Invert(cx, cy)
	k := math.Exp(math.Log(a.K) + (math.Log(b.K)-math.Log(a.K))*e)
	dx := ax + (bx-ax)*e
	dy := ay + (by-ay)*e
	return c.constrain(Transform{X: cx - dx*k, Y: cy - dy*k, K: k})
}

func (c *Controller) constrain(t Transform) Transform {
	m := c.opts.PanMargin
	extent := bounds{x1: c.width, y1: c.height}
	limit := bounds{x0: -m, y0: -m, x1: c.width + m, y1: c.height + m}
	return constrain(t, extent, limit)
}

// Hit is the result of a hit test.
type Hit struct {
	Sector *treemap.SectorNode
	Stock  *treemap.StockNode
}

// HitTest resolves the sector and stock under screen point (x, y). Sectors
// are scanned first, then the stocks of the matching sector; edges count as
// inside and the first match wins.
func (c *Controller) HitTest(x, y float64) Hit {
	return HitTest(c.layout, c.t, x, y)
}

// HitTest resolves the sector and stock of l under screen point (x, y) at
// transform t.
func HitTest(l *treemap.Layout, t Transform, x, y float64) Hit {
	var h Hit
	if l.Empty() || t.K == 0 {
		return h
	}
	dx, dy := t.Invert(x, y)
	for i := range l.Sectors {
		sec := &l.Sectors[i]
		if !sec.Contains(dx, dy) {
			continue
		}
		h.Sector = sec
		for j := range sec.Stocks {
			if sec.Stocks[j].Contains(dx, dy) {
				h.Stock = &sec.Stocks[j]
				break
			}
		}
		return h
	}
	return h
}

func (c *Controller) refreshHover() {
	if !c.pointerIn {
		c.hover = Hover{}
		return
	}
	hit := c.HitTest(c.px, c.py)
	h := Hover{X: c.px, Y: c.py}
	if hit.Sector != nil {
		h.SectorID = hit.Sector.ID
	}
	if hit.Stock != nil {
		h.StockID = hit.Stock.Stock.ID
	}
	c.hover = h
}

func (c *Controller) bump() {
	c.version++
}
