package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"kmarket/internal/config"
	"kmarket/internal/live"
	"kmarket/internal/termview"
	"kmarket/internal/util"
)

func main() {
	cfg, _, err := config.LoadOrDefault(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logPath := fmt.Sprintf("/tmp/heatmap-tui-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := zerolog.New(logFile).Level(util.ParseLevel(cfg.Logging.Level)).With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Fprint(os.Stderr, "loading dataset...")
	model, reloader, err := live.Bootstrap(ctx, cfg.Dataset, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, " %v\n", err)
		os.Exit(1)
	}
	data, _ := model.Snapshot()
	fmt.Fprintf(os.Stderr, " %d stocks\n", data.StockCount())

	subID, updates := model.Subscribe(4)
	defer model.Unsubscribe(subID)
	go func() {
		if err := reloader.Run(ctx, cfg.Dataset.Reload); err != nil {
			logger.Error().Err(err).Msg("reloader")
		}
	}()

	// All-motion mouse reporting is needed for hover without a button held.
	p := tea.NewProgram(
		termview.New(data, cfg.ViewOptions(), updates, logger),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
