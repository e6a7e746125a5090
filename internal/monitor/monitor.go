// Package monitor drives periodic hardware updates on a cron scheduler.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Updater is something refreshed once per tick
type Updater interface {
	Update(ctx context.Context) error
}

// UpdaterFunc adapts a function to Updater
type UpdaterFunc func(ctx context.Context) error

// Update calls f
func (f UpdaterFunc) Update(ctx context.Context) error { return f(ctx) }

// Poller runs registered updaters at fixed intervals. A tick that is still
// running when the next one is due is skipped, so updates never overlap.
type Poller struct {
	cron   *cron.Cron
	logger zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	jobs map[string]cron.EntryID
}

// NewPoller creates a stopped poller
func NewPoller(logger zerolog.Logger) *Poller {
	logger = logger.With().Str("component", "poller").Logger()
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())

	return &Poller{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]cron.EntryID),
	}
}

// Register schedules u every interval under name
func (p *Poller) Register(name string, interval time.Duration, u Updater) error {
	if interval <= 0 {
		return fmt.Errorf("register %s: interval must be positive, got %s", name, interval)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.jobs[name]; exists {
		return fmt.Errorf("register %s: already registered", name)
	}

	entryID, err := p.cron.AddFunc("@every "+interval.String(), p.job(name, u))
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	p.jobs[name] = entryID

	p.logger.Info().Str("job", name).Dur("interval", interval).Msg("registered update job")
	return nil
}

// job wraps an updater into a cron job that logs failures
func (p *Poller) job(name string, u Updater) func() {
	return func() {
		start := time.Now()
		if err := u.Update(p.ctx); err != nil {
			p.logger.Warn().Err(err).Str("job", name).Msg("update failed")
			return
		}
		p.logger.Trace().Str("job", name).Dur("took", time.Since(start)).Msg("update done")
	}
}

// Jobs returns the registered job names with their next run time
func (p *Poller) Jobs() map[string]time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]time.Time, len(p.jobs))
	for name, id := range p.jobs {
		out[name] = p.cron.Entry(id).Next
	}
	return out
}

// Start begins scheduling in the background
func (p *Poller) Start() {
	p.cron.Start()
}

// Stop halts scheduling and waits up to timeout for running updates
func (p *Poller) Stop(timeout time.Duration) {
	p.cancel()
	ctx := p.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(timeout):
		p.logger.Warn().Dur("timeout", timeout).Msg("timed out waiting for running updates")
	}
}

// cronLogger routes scheduler messages to zerolog
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
