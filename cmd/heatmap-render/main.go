package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fogleman/gg"

	"kmarket/internal/config"
	"kmarket/internal/live"
	"kmarket/internal/render"
	"kmarket/internal/shell"
	"kmarket/internal/store"
	"kmarket/internal/treemap"
	"kmarket/internal/util"
	"kmarket/internal/view"
)

func main() {
	width := flag.Float64("width", 1280, "container width in pixels")
	height := flag.Float64("height", 0, "height in pixels (default max(0.6*width, 600))")
	dpr := flag.Float64("dpr", 0, "device pixel ratio (default from config)")
	out := flag.String("out", "heatmap.png", "output PNG path")
	controls := flag.Bool("controls", false, "draw the Reset View / zoom overlay")
	exportParquet := flag.String("export-parquet", "", "also write the dataset as a flat parquet file")
	flag.Parse()

	cfg, _, err := config.LoadOrDefault(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	w, h, ok := shell.Dimensions(*width)
	if !ok {
		logger.Fatal().Float64("width", *width).Msg("width must be positive")
	}
	if *height > 0 {
		h = *height
	}
	if *dpr <= 0 {
		*dpr = cfg.Render.DPR
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	model, _, err := live.Bootstrap(ctx, cfg.Dataset, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("loading dataset")
	}
	data, _ := model.Snapshot()

	renderer, err := render.New(cfg.RenderOptions())
	if err != nil {
		logger.Fatal().Err(err).Msg("loading fonts")
	}

	start := time.Now()
	img := renderer.RenderImage(render.Frame{
		Layout:    treemap.Compute(data, w, h, cfg.LayoutOptions()),
		Transform: view.Identity(),
		DPR:       *dpr,
	})
	if *controls {
		renderer.DrawControls(gg.NewContextForRGBA(img), w, h, 1, *dpr, false)
	}

	f, err := os.Create(*out)
	if err != nil {
		logger.Fatal().Err(err).Msg("creating output")
	}
	if err := render.EncodePNG(f, img); err != nil {
		f.Close()
		logger.Fatal().Err(err).Msg("encoding PNG")
	}
	if err := f.Close(); err != nil {
		logger.Fatal().Err(err).Msg("closing output")
	}
	logger.Info().
		Str("out", *out).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Dur("elapsed", time.Since(start)).
		Msg("heatmap written")

	if *exportParquet != "" {
		if err := store.ExportParquet(*exportParquet, data); err != nil {
			logger.Fatal().Err(err).Msg("exporting parquet")
		}
		logger.Info().Str("path", *exportParquet).Int("rows", data.StockCount()).Msg("dataset exported")
	}
}
