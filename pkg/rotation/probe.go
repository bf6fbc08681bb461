package rotation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Pinger is the subset of a store the prober needs.
type Pinger interface {
	Ping(ctx context.Context) error
	Name() string
}

// ProbeRecorder receives probe results. It is implemented by the metrics
// collector.
type ProbeRecorder interface {
	SetStoreUp(up bool)
}

// Prober pings the rotation store on a cron schedule so that store outages
// show up in logs and metrics before a request hits them.
//
// Credentials themselves are never probed.
type Prober struct {
	store    Pinger
	schedule string
	timeout  time.Duration
	recorder ProbeRecorder
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
	lastUp   *bool
}

// NewProber creates a prober for store. schedule uses standard cron syntax
// or descriptors such as "@every 30s".
func NewProber(store Pinger, schedule string, recorder ProbeRecorder, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		store:    store,
		schedule: schedule,
		timeout:  5 * time.Second,
		recorder: recorder,
		cron:     cron.New(),
		logger:   logger.With("component", "rotation.probe"),
	}
}

// ValidateSchedule reports whether schedule is a valid cron expression.
func ValidateSchedule(schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// Start schedules the probe. An empty schedule disables probing.
// The prober stops when ctx is cancelled or Stop is called.
func (p *Prober) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.schedule == "" {
		p.logger.Debug("probe schedule not configured, skipping")
		return nil
	}
	if p.running {
		return fmt.Errorf("prober already running")
	}

	if err := ValidateSchedule(p.schedule); err != nil {
		return err
	}

	if _, err := p.cron.AddFunc(p.schedule, func() {
		p.Probe(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule store probe: %w", err)
	}

	p.cron.Start()
	p.running = true

	p.logger.Info("rotation store probe started",
		"schedule", p.schedule,
		"backend", p.store.Name(),
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// Probe pings the store once and records the result.
// A lazily opened store that has not been opened yet is skipped.
func (p *Prober) Probe(ctx context.Context) bool {
	if lazy, ok := p.store.(interface{ Initialized() bool }); ok && !lazy.Initialized() {
		p.logger.Debug("rotation store not initialized yet, skipping probe", "backend", p.store.Name())
		return false
	}

	pingCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.store.Ping(pingCtx)
	up := err == nil

	if p.recorder != nil {
		p.recorder.SetStoreUp(up)
	}

	p.mu.Lock()
	changed := p.lastUp == nil || *p.lastUp != up
	p.lastUp = &up
	p.mu.Unlock()

	switch {
	case !up && changed:
		p.logger.Error("rotation store unreachable", "backend", p.store.Name(), "error", err)
	case up && changed:
		p.logger.Info("rotation store reachable", "backend", p.store.Name())
	case !up:
		p.logger.Debug("rotation store still unreachable", "backend", p.store.Name(), "error", err)
	}

	return up
}

// Stop stops the scheduler and waits for a running probe to finish.
func (p *Prober) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	stopCtx := p.cron.Stop()
	<-stopCtx.Done()
	p.logger.Info("rotation store probe stopped")
}

// NextRun returns the next scheduled probe time, or nil if not scheduled.
func (p *Prober) NextRun() *time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := p.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
