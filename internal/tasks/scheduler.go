package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibesync/internal/events"
	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/shared"
)

// Syncer runs one sync cycle. Implemented by [SyncEngine].
type Syncer interface {
	PerformSync(ctx context.Context, progress chan<- ProgressUpdate) (models.SyncResult, error)
}

// EventBus publishes notifications and lets the scheduler follow storage updates.
type EventBus interface {
	events.Publisher
	Subscribe(h events.Handler) (unsubscribe func())
}

// SchedulerConfig holds the scheduler timings.
type SchedulerConfig struct {
	StartupDelay  time.Duration // delay of the sync requested by Start
	DebounceDelay time.Duration // delay used for storage updates and periodic ticks
	Interval      time.Duration // period between background syncs
}

// DefaultSchedulerConfig returns the standard timings.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		StartupDelay:  2 * time.Second,
		DebounceDelay: 5 * time.Second,
		Interval:      10 * time.Minute,
	}
}

// SchedulerConfigFrom reads the timings from the [sync] config section.
func SchedulerConfigFrom(conf shared.SyncConfig) SchedulerConfig {
	return SchedulerConfig{
		StartupDelay:  conf.StartupDelay.Duration,
		DebounceDelay: conf.DebounceDelay.Duration,
		Interval:      conf.Interval.Duration,
	}
}

// Scheduler triggers background syncs.
//
// It owns one debounce timer and one periodic ticker. Each request replaces the pending
// one, so bursts of changes collapse into a single sync.
type Scheduler struct {
	syncer   Syncer
	bus      EventBus
	config   SchedulerConfig
	logger   *log.Logger
	eligible func() bool

	mu          sync.Mutex
	debounce    *time.Timer
	ticker      *time.Ticker
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	running     bool
	active      int // armed timers, loops and running syncs
	idle        *sync.Cond
}

// SchedulerOption configures a [Scheduler].
type SchedulerOption func(*Scheduler)

// WithBus publishes sync-started events on bus and follows its local storage updates while running.
func WithBus(bus EventBus) SchedulerOption {
	return func(s *Scheduler) { s.bus = bus }
}

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(l *log.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// WithEligibility sets the check made before each sync. When it fails the scheduler stops itself.
func WithEligibility(fn func() bool) SchedulerOption {
	return func(s *Scheduler) { s.eligible = fn }
}

// NewScheduler creates a stopped scheduler. Zero timings fall back to [DefaultSchedulerConfig].
func NewScheduler(syncer Syncer, config SchedulerConfig, opts ...SchedulerOption) *Scheduler {
	defaults := DefaultSchedulerConfig()
	if config.StartupDelay <= 0 {
		config.StartupDelay = defaults.StartupDelay
	}
	if config.DebounceDelay <= 0 {
		config.DebounceDelay = defaults.DebounceDelay
	}
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}

	s := &Scheduler{syncer: syncer, config: config}
	s.idle = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = shared.NewLogger(nil)
	}
	return s
}

// Start arms the periodic ticker and requests a sync after the startup delay.
//
// Calling Start on a running scheduler replaces its timers.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.haltLocked()

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.ticker = time.NewTicker(s.config.Interval)
	s.running = true
	if s.bus != nil {
		s.unsubscribe = s.bus.Subscribe(events.Filter(events.StorageUpdated, events.OriginLocal, func(events.Event) {
			s.RequestSync(s.config.DebounceDelay)
		}))
	}

	s.active++
	go s.loop(s.ctx, s.ticker)
	s.mu.Unlock()

	s.logger.Info("background sync started", "interval", s.config.Interval)
	s.RequestSync(s.config.StartupDelay)
}

// Stop cancels the pending request and the ticker, then waits for an in-flight sync to return.
//
// A request made while Stop waits is canceled too. Stop must not be called from an event
// handler running inside a sync.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	wasRunning := s.running
	s.haltLocked()
	for s.active > 0 {
		s.idle.Wait()
		s.cancelPendingLocked()
	}
	s.mu.Unlock()

	if wasRunning {
		s.logger.Info("background sync stopped")
	}
}

// Running reports whether the periodic ticker is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RequestSync schedules a sync after delay, replacing any pending request.
//
// A sync-started event is published immediately so a UI can show a pending state while
// the request waits.
func (s *Scheduler) RequestSync(delay time.Duration) {
	s.mu.Lock()
	s.scheduleLocked(delay)
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(events.Started())
	}
}

// scheduleLocked replaces the debounce timer. The caller holds s.mu.
func (s *Scheduler) scheduleLocked(delay time.Duration) {
	if delay < 0 {
		delay = s.config.DebounceDelay
	}
	s.cancelPendingLocked()

	s.active++
	s.debounce = time.AfterFunc(delay, func() {
		defer s.done()
		s.fire()
	})
	s.idle.Broadcast()
}

// cancelPendingLocked stops the debounce timer if it has not fired. The caller holds s.mu.
func (s *Scheduler) cancelPendingLocked() {
	if s.debounce != nil && s.debounce.Stop() {
		s.doneLocked()
	}
	s.debounce = nil
}

func (s *Scheduler) done() {
	s.mu.Lock()
	s.doneLocked()
	s.mu.Unlock()
}

func (s *Scheduler) doneLocked() {
	s.active--
	s.idle.Broadcast()
}

// haltLocked cancels every timer without waiting. The caller holds s.mu.
func (s *Scheduler) haltLocked() {
	s.cancelPendingLocked()

	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.ctx, s.cancel = nil, nil
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.running = false
}

func (s *Scheduler) loop(ctx context.Context, ticker *time.Ticker) {
	defer s.done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if ctx.Err() != nil {
				s.mu.Unlock()
				return
			}
			s.scheduleLocked(s.config.DebounceDelay)
			s.mu.Unlock()

			if s.bus != nil {
				s.bus.Publish(events.Started())
			}
		}
	}
}

// fire runs the requested sync. Errors are logged and never stop the ticker.
func (s *Scheduler) fire() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if s.eligible != nil && !s.eligible() {
		s.logger.Warn("not signed in, stopping background sync")
		s.mu.Lock()
		s.haltLocked()
		s.mu.Unlock()

		if s.bus != nil {
			s.bus.Publish(events.Failed(fmt.Errorf("%w: background sync stopped", shared.ErrNotAuthenticated)))
		}
		return
	}

	if _, err := s.syncer.PerformSync(ctx, nil); err != nil {
		s.logger.Warn("background sync failed", "error", err)
	}
}
