// Package window drives a heatmap view from a desktop window's input and
// keeps a cached frame that is repainted only when the view changes. The
// windowing toolkit itself lives in cmd/heatmap-window.
package window

import (
	"image"
	"math"
	"time"

	"github.com/fogleman/gg"
	"github.com/rs/zerolog"

	"kmarket/internal/dashboard"
	"kmarket/internal/live"
	"kmarket/internal/market"
	"kmarket/internal/render"
	"kmarket/internal/treemap"
	"kmarket/internal/view"
)

const (
	doubleClickWindow = 400 * time.Millisecond
	doubleClickSlop   = 4 // pixels
)

// Input is one frame's worth of pointer and keyboard state, in layout
// pixels.
type Input struct {
	X, Y     float64
	Inside   bool    // cursor is over the window
	WheelY   float64 // lines scrolled, positive is away from the user
	Pressed  bool    // primary button went down this frame
	Released bool    // primary button went up this frame
	Ctrl     bool
	Shift    bool
	Reset    bool // reset key
}

// Viewer owns one window's view state and frame cache. It is used from the
// window's update/draw loop only.
type Viewer struct {
	ctrl     *view.Controller
	renderer *render.Renderer
	updates  <-chan live.Update
	log      zerolog.Logger
	now      func() time.Time

	dpr          float64
	pointerIn    bool
	lastX, lastY float64
	lastPress    time.Time
	pressX       float64
	pressY       float64
	resetHovered bool

	img        *image.RGBA
	drawn      uint64
	drawnReset bool
	hasFrame   bool
}

// NewViewer creates a viewer for data. Datasets received on updates, when
// non-nil, replace the one on screen.
func NewViewer(data market.MarketData, layoutOpts treemap.Options, opts view.Options, r *render.Renderer, updates <-chan live.Update, log zerolog.Logger) *Viewer {
	return &Viewer{
		ctrl:     view.NewController(data, layoutOpts, opts),
		renderer: r,
		updates:  updates,
		log:      log,
		now:      time.Now,
		dpr:      1,
	}
}

// Controller exposes the interaction state.
func (v *Viewer) Controller() *view.Controller { return v.ctrl }

// Resize sets the window size in layout pixels and the device pixel ratio.
func (v *Viewer) Resize(width, height, dpr float64) {
	if dpr <= 0 {
		dpr = 1
	}
	if dpr != v.dpr {
		v.dpr = dpr
		v.hasFrame = false
	}
	v.ctrl.Resize(width, height)
}

// Handle applies one frame of input and advances animations.
func (v *Viewer) Handle(in Input) {
	v.drainUpdates()
	now := v.now()

	w, h := v.ctrl.Size()
	controls := v.renderer.ControlsLayout(w, h, v.ctrl.Transform().K)
	v.resetHovered = in.Inside && controls.Reset.Contains(in.X, in.Y)

	if in.Reset {
		v.ctrl.Reset(now)
	}

	if in.Inside {
		if !v.pointerIn || in.X != v.lastX || in.Y != v.lastY {
			v.ctrl.PointerMove(in.X, in.Y)
		}
		v.pointerIn, v.lastX, v.lastY = true, in.X, in.Y
	} else if v.pointerIn {
		v.ctrl.PointerLeave()
		v.pointerIn = false
	}

	if in.WheelY != 0 && in.Inside {
		v.ctrl.Wheel(in.X, in.Y, -in.WheelY, view.WheelLine, in.Ctrl, now)
	}

	if in.Pressed && in.Inside {
		switch {
		case v.resetHovered:
			v.ctrl.Reset(now)
		case now.Sub(v.lastPress) <= doubleClickWindow &&
			math.Abs(in.X-v.pressX) <= doubleClickSlop && math.Abs(in.Y-v.pressY) <= doubleClickSlop:
			v.ctrl.DoubleClick(in.X, in.Y, in.Shift, now)
			v.lastPress = time.Time{}
		default:
			v.ctrl.PointerDown(in.X, in.Y)
			v.lastPress, v.pressX, v.pressY = now, in.X, in.Y
		}
	}
	if in.Released {
		v.ctrl.PointerUp(in.X, in.Y)
	}

	v.ctrl.Tick(now)
}

func (v *Viewer) drainUpdates() {
	for {
		select {
		case u, ok := <-v.updates:
			if !ok {
				v.updates = nil
				return
			}
			v.ctrl.SetData(u.Data)
			v.log.Info().Uint64("version", u.Version).Msg("dataset updated")
		default:
			return
		}
	}
}

// Frame returns the current frame in device pixels. changed is false when
// the cached frame from the previous call is still valid.
func (v *Viewer) Frame() (img *image.RGBA, changed bool) {
	version := v.ctrl.Version()
	if v.hasFrame && version == v.drawn && v.resetHovered == v.drawnReset {
		return v.img, false
	}

	w, h := v.ctrl.Size()
	t := v.ctrl.Transform()
	hover := v.ctrl.Hover()
	img = v.renderer.RenderImage(render.Frame{
		Layout:    v.ctrl.Layout(),
		Transform: t,
		Hover:     hover,
		DPR:       v.dpr,
	})
	dc := gg.NewContextForRGBA(img)
	v.renderer.DrawControls(dc, w, h, t.K, v.dpr, v.resetHovered)
	if p, ok := dashboard.BuildPopover(v.ctrl.Data(), hover, w, h); ok {
		v.renderer.DrawPopover(dc, p, v.dpr)
	}

	v.img, v.drawn, v.drawnReset, v.hasFrame = img, version, v.resetHovered, true
	return img, true
}
