package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrQueueFull = errors.New("realtime: command queue full")
	ErrStopped   = errors.New("realtime: driver stopped")
	ErrStarted   = errors.New("realtime: driver already started")
)

// Updater is advanced once per tick. *hsm.Machine satisfies it.
type Updater interface {
	Update()
}

// Config configures the driver
type Config struct {
	TickRate           time.Duration // Fixed tick rate (default 16.67ms, 60 FPS)
	MaxCommandsPerTick int           // Command queue capacity (default 1000)
	MaxTicks           uint64        // Stop after this many ticks; 0 runs until stopped
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger for start, stop and recovered panics.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// Driver owns the goroutine that touches the machine. Other goroutines
// queue commands with Post; the driver runs them at the next tick boundary,
// then calls Update.
type Driver struct {
	updater  Updater
	tickRate time.Duration
	maxTicks uint64
	logger   *slog.Logger

	mu       sync.Mutex
	batch    []CommandWithMeta
	seq      uint64
	tickNum  uint64
	err      error
	stopped  bool
	started  bool
	cancel   context.CancelFunc
	loopDone chan struct{}
}

// NewDriver creates a driver for u. Zero Config fields take their defaults.
func NewDriver(u Updater, cfg Config, opts ...Option) *Driver {
	if cfg.MaxCommandsPerTick <= 0 {
		cfg.MaxCommandsPerTick = 1000
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 16667 * time.Microsecond // Default 60 FPS
	}
	d := &Driver{
		updater:  u,
		tickRate: cfg.TickRate,
		maxTicks: cfg.MaxTicks,
		logger:   slog.New(slog.DiscardHandler),
		batch:    make([]CommandWithMeta, 0, cfg.MaxCommandsPerTick),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Post queues fn for the next tick (thread-safe).
func (d *Driver) Post(fn Command) error {
	return d.PostWithPriority(fn, 0)
}

// PostWithPriority queues fn with priority. Higher priorities run first;
// equal priorities run in the order they were posted.
func (d *Driver) PostWithPriority(fn Command, priority int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil || d.stopped {
		return ErrStopped
	}
	if len(d.batch) >= cap(d.batch) {
		return ErrQueueFull
	}
	d.batch = append(d.batch, CommandWithMeta{
		Command:     fn,
		SequenceNum: d.seq,
		Priority:    priority,
	})
	d.seq++
	return nil
}

// Start begins tick-based execution on a new goroutine. The loop ends when
// ctx is cancelled, Stop is called, MaxTicks is reached or a tick panics.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return ErrStarted
	}
	if d.err != nil || d.stopped {
		d.mu.Unlock()
		return ErrStopped
	}
	d.started = true
	ctx, d.cancel = context.WithCancel(ctx)
	d.mu.Unlock()

	d.logger.Info("driver started", "tick_rate", d.tickRate, "max_ticks", d.maxTicks)
	go d.tickLoop(ctx)
	return nil
}

// Stop ends the loop, waits for it to exit and returns the tick error, if
// any. Later Posts fail with ErrStopped.
func (d *Driver) Stop() error {
	d.mu.Lock()
	d.stopped = true
	cancel, started := d.cancel, d.started
	d.mu.Unlock()

	if started {
		cancel()
		<-d.loopDone
	}
	return d.Err()
}

// Done is closed when a started loop exits.
func (d *Driver) Done() <-chan struct{} {
	return d.loopDone
}

// Err returns the error that stopped the driver, or nil.
func (d *Driver) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// TickNumber returns the number of completed ticks
func (d *Driver) TickNumber() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tickNum
}

// tickLoop is the main tick execution loop
func (d *Driver) tickLoop(ctx context.Context) {
	defer close(d.loopDone)

	ticker := time.NewTicker(d.tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.markStopped()
			d.logger.Info("driver stopped", "ticks", d.TickNumber())
			return
		case <-ticker.C:
			if err := d.Step(); err != nil {
				return
			}
			if d.maxTicks > 0 && d.TickNumber() >= d.maxTicks {
				d.markStopped()
				d.logger.Info("driver finished", "ticks", d.maxTicks)
				return
			}
		}
	}
}

// markStopped makes later Posts fail once the loop has exited on its own.
func (d *Driver) markStopped() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}
