package hsm

import "log/slog"

// Option applies configuration to Machine via functional options pattern.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	observers      []Observer
	updateFromRoot bool
}

// WithLogger configures the Machine with a structured logger. Lifecycle
// detail is logged at Debug, unhandled messages at Error.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver registers an Observer. May be given more than once.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithUpdateFromRoot makes Update start the cascade at the structural root
// of the active tree instead of the tracked active state, so ancestors of
// the active state get their per-tick work too.
func WithUpdateFromRoot() Option {
	return func(o *options) {
		o.updateFromRoot = true
	}
}
