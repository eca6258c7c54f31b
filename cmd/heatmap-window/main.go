package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/rs/zerolog"

	"kmarket/internal/config"
	"kmarket/internal/live"
	"kmarket/internal/render"
	"kmarket/internal/shell"
	"kmarket/internal/util"
	"kmarket/internal/window"
)

// game adapts a window.Viewer to ebiten's update/draw loop.
type game struct {
	viewer  *window.Viewer
	log     zerolog.Logger
	surface *ebiten.Image
	scale   float64
	width   int // layout pixels
	height  int
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}

	cx, cy := ebiten.CursorPosition()
	x, y := float64(cx)/g.scale, float64(cy)/g.scale
	_, wheelY := ebiten.Wheel()

	g.viewer.Handle(window.Input{
		X:        x,
		Y:        y,
		Inside:   x >= 0 && y >= 0 && x < float64(g.width) && y < float64(g.height),
		WheelY:   wheelY,
		Pressed:  inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft),
		Released: inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft),
		Ctrl:     ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta),
		Shift:    ebiten.IsKeyPressed(ebiten.KeyShift),
		Reset:    inpututil.IsKeyJustPressed(ebiten.KeyR),
	})
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	img, changed := g.viewer.Frame()
	b := img.Bounds()
	if g.surface == nil || g.surface.Bounds().Dx() != b.Dx() || g.surface.Bounds().Dy() != b.Dy() {
		if g.surface != nil {
			g.surface.Deallocate()
		}
		g.surface = ebiten.NewImage(b.Dx(), b.Dy())
		changed = true
	}
	if changed {
		g.surface.WritePixels(img.Pix)
	}
	screen.DrawImage(g.surface, nil)
}

// Layout sizes the screen in device pixels so text stays sharp on HiDPI
// monitors; the viewer works in layout pixels.
func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	scale := ebiten.Monitor().DeviceScaleFactor()
	if scale <= 0 {
		scale = 1
	}
	if outsideWidth != g.width || outsideHeight != g.height || scale != g.scale {
		g.width, g.height, g.scale = outsideWidth, outsideHeight, scale
		g.viewer.Resize(float64(outsideWidth), float64(outsideHeight), scale)
		g.log.Debug().Int("width", outsideWidth).Int("height", outsideHeight).Float64("scale", scale).Msg("window resized")
	}
	return render.DeviceSize(float64(outsideWidth), float64(outsideHeight), scale)
}

func main() {
	width := flag.Int("width", 1280, "initial window width")
	height := flag.Int("height", 0, "initial window height; 0 derives it from the width")
	flag.Parse()

	cfg, _, err := config.LoadOrDefault(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.With().Str("component", "window").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model, reloader, err := live.Bootstrap(ctx, cfg.Dataset, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("loading dataset")
	}
	renderer, err := render.New(cfg.RenderOptions())
	if err != nil {
		log.Fatal().Err(err).Msg("loading fonts")
	}

	subID, updates := model.Subscribe(4)
	defer model.Unsubscribe(subID)
	go func() {
		if err := reloader.Run(ctx, cfg.Dataset.Reload); err != nil {
			log.Error().Err(err).Msg("reloader")
		}
	}()

	data, _ := model.Snapshot()
	w, h, ok := shell.Dimensions(float64(*width))
	if !ok {
		log.Fatal().Int("width", *width).Msg("invalid window width")
	}
	if *height > 0 {
		h = float64(*height)
	}

	g := &game{
		viewer: window.NewViewer(data, cfg.LayoutOptions(), cfg.ViewOptions(), renderer, updates, log),
		log:    log,
		scale:  1,
	}

	ebiten.SetWindowTitle(fmt.Sprintf("%s Heatmap", data.Name))
	ebiten.SetWindowSize(int(w), int(h))
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)

	log.Info().Int("stocks", data.StockCount()).Msg("opening window")
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal().Err(err).Msg("window")
	}
}
