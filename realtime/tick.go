package realtime

import (
	"fmt"
	"runtime/debug"
)

// TickPanicError is returned when a command or Update panics during a tick.
// The driver stops after the first one.
type TickPanicError struct {
	Tick  uint64 // zero-based index of the failing tick
	Value any    // value passed to panic
	Stack []byte
}

func (e *TickPanicError) Error() string {
	return fmt.Sprintf("realtime: panic in tick %d: %v", e.Tick, e.Value)
}

// Unwrap exposes the panic value when it is an error, so errors.Is works
// against the sentinels the hsm package panics with.
func (e *TickPanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Step runs one tick synchronously on the calling goroutine. It must not be
// mixed with a running Start loop.
func (d *Driver) Step() error {
	d.mu.Lock()
	if d.err != nil || d.stopped {
		d.mu.Unlock()
		return ErrStopped
	}
	tick := d.tickNum
	d.mu.Unlock()

	if err := d.processTick(tick); err != nil {
		d.mu.Lock()
		d.err = err
		d.mu.Unlock()
		d.logger.Error("tick panicked", "tick", tick, "error", err)
		return err
	}

	d.mu.Lock()
	d.tickNum++
	d.mu.Unlock()
	return nil
}

// processTick runs one complete tick and converts a panic into an error.
func (d *Driver) processTick(tick uint64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TickPanicError{Tick: tick, Value: r, Stack: debug.Stack()}
		}
	}()

	// Phase 1: collect commands atomically
	cmds := d.collectCommands()

	// Phase 2: sort for deterministic order
	sortCommands(cmds)

	// Phase 3: run commands, then advance the machine
	for _, c := range cmds {
		c.Command()
	}
	d.updater.Update()
	return nil
}

// collectCommands atomically retrieves and clears the command batch
func (d *Driver) collectCommands() []CommandWithMeta {
	d.mu.Lock()
	defer d.mu.Unlock()

	cmds := d.batch
	d.batch = make([]CommandWithMeta, 0, cap(d.batch))
	return cmds
}
