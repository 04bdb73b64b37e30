// Package realtime drives an hsm machine at a fixed tick rate.
//
// A Driver confines every machine call to one goroutine. Other goroutines
// never touch the machine directly; they Post commands, and the driver runs
// them at the next tick boundary before calling Update:
//
//	g := arena.NewGame(nil)
//	d := realtime.NewDriver(g, realtime.Config{
//		TickRate: 16667 * time.Microsecond, // 60 FPS
//	})
//	d.Post(func() { g.Start() })
//	d.Start(ctx)
//	defer d.Stop()
//
// # Tick Phases
//
//  1. Drain the queued commands atomically
//  2. Sort them: higher priority first, FIFO within a priority
//  3. Run each command, then call Update once
//
// Given the same sequence of Post calls the machine executes the same way,
// regardless of timing.
//
// # Failures
//
// A panic inside a tick is recovered, logged and returned as a
// *TickPanicError, and the loop stops. Err and Stop report it. The panic
// value stays reachable through errors.Is and errors.As, so an unhandled
// message still surfaces as hsm.ErrUnhandledMessage.
//
// Step runs a single tick synchronously, which is how tests and offline
// tools advance the machine without a ticker.
package realtime
