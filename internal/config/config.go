package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"kmarket/internal/render"
	"kmarket/internal/treemap"
	"kmarket/internal/view"
)

// DefaultPath is used when KMARKET_CONFIG is not set.
const DefaultPath = "config/kmarket.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration shared by every heatmap binary.
type Config struct {
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
	Dataset Dataset `yaml:"dataset"`
	Layout  Layout  `yaml:"layout"`
	Render  Render  `yaml:"render"`
	View    View    `yaml:"view"`
	Session Session `yaml:"session"`
}

// Server holds the HTTP listener configuration.
type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Dataset selects where market data comes from.
type Dataset struct {
	Source        string        `yaml:"source"` // sample, yaml, json, parquet, sqlite; empty infers from path
	Path          string        `yaml:"path"`
	Reload        string        `yaml:"reload"` // cron spec; empty disables reloading
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

// Layout holds treemap padding in viewport pixels.
type Layout struct {
	PaddingOuter float64 `yaml:"padding_outer"`
	PaddingTop   float64 `yaml:"padding_top"`
	PaddingInner float64 `yaml:"padding_inner"`
}

// Render configures fonts and raster density.
type Render struct {
	FontPath     string  `yaml:"font_path"`
	BoldFontPath string  `yaml:"bold_font_path"`
	DPR          float64 `yaml:"dpr"`     // default device pixel ratio
	MaxDPR       float64 `yaml:"max_dpr"` // upper bound accepted from clients
}

// View tunes gesture handling. The zoom range defaults to [1, 8]; deployments
// may widen or narrow it as long as 0 < min_scale <= max_scale.
type View struct {
	MinScale      float64       `yaml:"min_scale"`
	MaxScale      float64       `yaml:"max_scale"`
	PanMargin     float64       `yaml:"pan_margin"` // pixels the view may pan past the layout edges; >= 0
	ResetDuration time.Duration `yaml:"reset_duration"`
	WheelIdle     time.Duration `yaml:"wheel_idle"`
}

// Session bounds the server-side view sessions.
type Session struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxSessions   int           `yaml:"max_sessions"`
	TickInterval  time.Duration `yaml:"tick_interval"` // websocket frame pacing while animating
}

// Default returns a configuration with every field set.
func Default() *Config {
	lo := treemap.DefaultOptions()
	vo := view.DefaultOptions()
	return &Config{
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8080,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Logging: Logging{Level: "info", Format: "console"},
		Dataset: Dataset{
			Source:        "sample",
			RetryAttempts: 3,
			RetryDelay:    500 * time.Millisecond,
		},
		Layout: Layout{
			PaddingOuter: lo.PaddingOuter,
			PaddingTop:   lo.PaddingTop,
			PaddingInner: lo.PaddingInner,
		},
		Render: Render{DPR: 1, MaxDPR: 3},
		View: View{
			MinScale:      vo.MinScale,
			MaxScale:      vo.MaxScale,
			PanMargin:     vo.PanMargin,
			ResetDuration: vo.ResetDuration,
			WheelIdle:     vo.WheelIdle,
		},
		Session: Session{
			IdleTimeout:   15 * time.Minute,
			SweepInterval: time.Minute,
			MaxSessions:   1000,
			TickInterval:  16 * time.Millisecond,
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Path returns the config file location from KMARKET_CONFIG, or DefaultPath.
func Path() string {
	if v := os.Getenv("KMARKET_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads the YAML configuration file at path on top of Default, then
// applies environment overrides (including any .env file) and validates the
// result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default (plus
// environment overrides) when the file does not exist. found reports
// whether the file was read.
func LoadOrDefault(path string) (cfg *Config, found bool, err error) {
	cfg, err = Load(path)
	if err == nil {
		return cfg, true, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}
	cfg = Default()
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("KMARKET_ADDR"); v != "" {
		host, port, err := net.SplitHostPort(v)
		if err != nil {
			return fmt.Errorf("KMARKET_ADDR: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("KMARKET_ADDR port: %w", err)
		}
		cfg.Server.Host, cfg.Server.Port = host, p
	}
	if v := os.Getenv("KMARKET_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("KMARKET_PORT: %w", err)
		}
		cfg.Server.Port = p
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("DATASET_SOURCE"); v != "" {
		cfg.Dataset.Source = v
	}
	if v := os.Getenv("DATASET_PATH"); v != "" {
		cfg.Dataset.Path = v
		// A path without an explicit source is typed by its extension.
		if os.Getenv("DATASET_SOURCE") == "" {
			cfg.Dataset.Source = ""
		}
	}
	if v := os.Getenv("DATASET_RELOAD"); v != "" {
		cfg.Dataset.Reload = v
	}

	if v := os.Getenv("FONT_PATH"); v != "" {
		cfg.Render.FontPath = v
	}
	return nil
}

// Validate rejects settings the binaries cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Layout.PaddingOuter < 0 || c.Layout.PaddingTop < 0 || c.Layout.PaddingInner < 0 {
		return fmt.Errorf("layout padding must not be negative")
	}
	if c.View.MinScale <= 0 || c.View.MaxScale < c.View.MinScale {
		return fmt.Errorf("view scale extent [%v, %v] is invalid", c.View.MinScale, c.View.MaxScale)
	}
	if c.View.PanMargin < 0 || math.IsNaN(c.View.PanMargin) {
		return fmt.Errorf("view.pan_margin %v must not be negative", c.View.PanMargin)
	}
	if c.Render.DPR <= 0 || c.Render.MaxDPR < c.Render.DPR {
		return fmt.Errorf("render dpr %v (max %v) is invalid", c.Render.DPR, c.Render.MaxDPR)
	}
	if c.Dataset.RetryAttempts < 1 {
		return fmt.Errorf("dataset.retry_attempts must be at least 1")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// LayoutOptions returns the treemap padding.
func (c *Config) LayoutOptions() treemap.Options {
	return treemap.Options{
		PaddingOuter: c.Layout.PaddingOuter,
		PaddingTop:   c.Layout.PaddingTop,
		PaddingInner: c.Layout.PaddingInner,
	}
}

// ViewOptions returns the gesture settings.
func (c *Config) ViewOptions() view.Options {
	o := view.DefaultOptions()
	o.MinScale = c.View.MinScale
	o.MaxScale = c.View.MaxScale
	o.PanMargin = c.View.PanMargin
	if c.View.ResetDuration > 0 {
		o.ResetDuration = c.View.ResetDuration
	}
	if c.View.WheelIdle > 0 {
		o.WheelIdle = c.View.WheelIdle
	}
	return o
}

// RenderOptions returns the renderer settings.
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		FontPath:     c.Render.FontPath,
		BoldFontPath: c.Render.BoldFontPath,
		Style:        render.DefaultTextStyle(),
	}
}
