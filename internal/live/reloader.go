package live

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"kmarket/internal/config"
	"kmarket/internal/market"
	"kmarket/internal/store"
	"kmarket/internal/util"
)

// Load reads src, retrying failures according to p.
func Load(ctx context.Context, src store.Source, p util.RetryPolicy, log zerolog.Logger) (market.MarketData, error) {
	var data market.MarketData
	err := util.Retry(ctx, p, func(attempt int) error {
		d, err := src.Load(ctx)
		if err != nil {
			log.Warn().Err(err).
				Str("source", src.Name()).
				Int("attempt", attempt+1).
				Msg("dataset load failed")
			return err
		}
		data = d
		return nil
	})
	if err != nil {
		return market.MarketData{}, fmt.Errorf("loading %s: %w", src.Name(), err)
	}
	return data, nil
}

// maxRetryDelay caps the backoff between load attempts.
const maxRetryDelay = 10 * time.Second

// Bootstrap opens the configured dataset source, loads it and returns a
// model holding the data plus a reloader bound to the same source.
func Bootstrap(ctx context.Context, ds config.Dataset, log zerolog.Logger) (*Model, *Reloader, error) {
	src, err := store.Open(ds.Source, ds.Path)
	if err != nil {
		return nil, nil, err
	}
	policy := util.RetryPolicy{
		Attempts:  ds.RetryAttempts,
		BaseDelay: ds.RetryDelay,
		MaxDelay:  maxRetryDelay,
	}
	data, err := Load(ctx, src, policy, log)
	if err != nil {
		return nil, nil, err
	}
	log.Info().
		Str("source", src.Name()).
		Str("market", data.Name).
		Int("sectors", len(data.Sectors)).
		Int("stocks", data.StockCount()).
		Msg("dataset loaded")

	model := NewModel(data)
	return model, NewReloader(src, model, policy, log), nil
}

// Reloader refreshes a Model from a Source, either on demand or on a cron
// schedule. A failed reload keeps the previous dataset.
type Reloader struct {
	source store.Source
	model  *Model
	policy util.RetryPolicy
	log    zerolog.Logger
}

// NewReloader creates a reloader feeding model from source.
func NewReloader(source store.Source, model *Model, policy util.RetryPolicy, log zerolog.Logger) *Reloader {
	return &Reloader{
		source: source,
		model:  model,
		policy: policy,
		log:    util.Component(log, "reloader"),
	}
}

// Reload loads the source once and replaces the model's dataset when the
// content differs. changed reports whether a new version was published.
func (r *Reloader) Reload(ctx context.Context) (changed bool, err error) {
	data, err := Load(ctx, r.source, r.policy, r.log)
	if err != nil {
		return false, err
	}
	changed = r.model.Replace(data)
	if changed {
		r.log.Info().
			Str("source", r.source.Name()).
			Uint64("version", r.model.Version()).
			Int("stocks", data.StockCount()).
			Msg("dataset reloaded")
	} else {
		r.log.Debug().Str("source", r.source.Name()).Msg("dataset unchanged")
	}
	return changed, nil
}

// Run reloads on the given cron schedule until ctx is cancelled. An empty
// schedule disables reloading; Run then just waits for ctx.
// Schedule examples: "@every 5m", "*/10 9-15 * * MON-FRI".
func (r *Reloader) Run(ctx context.Context, schedule string) error {
	if schedule == "" {
		<-ctx.Done()
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := r.Reload(ctx); err != nil && ctx.Err() == nil {
			r.log.Error().Err(err).Msg("scheduled reload failed, keeping previous dataset")
		}
	}); err != nil {
		return fmt.Errorf("reload schedule %q: %w", schedule, err)
	}

	c.Start()
	r.log.Info().Str("schedule", schedule).Str("source", r.source.Name()).Msg("reloader started")

	<-ctx.Done()
	<-c.Stop().Done()
	r.log.Info().Msg("reloader stopped")
	return nil
}
