// Package hsm is a hierarchical state machine core for application and game
// flow.
//
// States form a tree. Each state owns at most one active substate, enters
// and exits through scoped hooks, forwards per-tick updates down the active
// path and raises messages that bubble up through its ancestors until one
// claims them or they reach the machine's top-level handler.
//
// # Lifecycle
//
//   - Machine.Initialize enters the first state.
//   - Node.SetSubstate swaps a state's active substate (one exit, one enter).
//   - Machine.TransitionTo exits up to the common ancestor of the current
//     leaf and the target, then enters down to the target. Parents are
//     always entered before their children and exited after them.
//   - Machine.Update calls OnUpdate on the active state once per tick. The
//     package never schedules ticks itself.
//
// # Messages
//
// Messages carry a discriminant (Kind). Handlers switch on it, recover the
// shape with As and hand anything else to the embedded Node, which bubbles
// it to the parent. A message nobody claims is fatal: Machine.Unhandled
// panics with an *UnhandledMessageError.
//
// # Concurrency
//
// Everything is synchronous and single-threaded. A TransitionTo issued from
// a hook while another transition is unwinding panics with
// ErrReentrantTransition; issue transitions from OnUpdate or from message
// handlers reached outside a transition. See package realtime for a driver
// that confines all calls to one goroutine.
//
// The core uses only the standard library.
package hsm
