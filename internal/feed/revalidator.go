package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"newsroom/web/internal/metrics"
)

// Revalidator keeps a ticker snapshot and refreshes it on a fixed cadence,
// so every request in a window sees the same shuffle.
type Revalidator struct {
	agg      *Aggregator
	interval time.Duration
	timeout  time.Duration

	mu       sync.RWMutex
	snapshot Ticker

	cron *cron.Cron
}

// NewRevalidator creates a revalidator. Call Start to take the first
// snapshot and schedule refreshes.
func NewRevalidator(agg *Aggregator, interval time.Duration) *Revalidator {
	return &Revalidator{
		agg:      agg,
		interval: interval,
		timeout:  30 * time.Second,
		cron:     cron.New(),
	}
}

// Start takes the first snapshot and schedules the rest.
func (r *Revalidator) Start(ctx context.Context) error {
	if err := r.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial news snapshot failed, serving empty ticker")
	}

	_, err := r.cron.AddFunc(fmt.Sprintf("@every %s", r.interval), func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.Refresh(refreshCtx); err != nil {
			log.Error().Err(err).Msg("News snapshot refresh failed, keeping previous snapshot")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule news refresh: %w", err)
	}

	r.cron.Start()
	log.Info().Dur("interval", r.interval).Msg("News revalidation scheduled")
	return nil
}

// Stop cancels future refreshes and waits for a running one to finish.
func (r *Revalidator) Stop() {
	<-r.cron.Stop().Done()
}

// Refresh replaces the snapshot. On error the previous snapshot is kept.
func (r *Revalidator) Refresh(ctx context.Context) error {
	t, err := r.agg.Load(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.snapshot = t
	r.mu.Unlock()

	metrics.FeedSnapshotItems.Set(float64(len(t.Items)))
	log.Debug().Int("items", len(t.Items)).Msg("News snapshot refreshed")
	return nil
}

// Snapshot returns the current ticker.
func (r *Revalidator) Snapshot() Ticker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}
