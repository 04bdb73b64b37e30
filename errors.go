package hsm

import (
	"errors"
	"fmt"
)

// Construction errors. The core panics with these (wrapped) rather than
// returning them: each one means the state graph was built wrong.
var (
	ErrNilState            = errors.New("hsm: nil state")
	ErrUnbound             = errors.New("hsm: state was never activated or adopted")
	ErrDetached            = errors.New("hsm: state has no parent and no owning machine")
	ErrAlreadyInitialized  = errors.New("hsm: machine already initialized")
	ErrReentrantTransition = errors.New("hsm: transition requested while another transition is unwinding")
	ErrCycle               = errors.New("hsm: state would become its own ancestor")
	ErrUnhandledMessage    = errors.New("hsm: unhandled message")
)

// UnhandledMessageError is the panic value raised when a message reaches the
// machine's top-level handler and nothing claims it.
type UnhandledMessageError struct {
	Kind  string // discriminant, rendered with %v
	Shape string // concrete Go type of the message
}

func (e *UnhandledMessageError) Error() string {
	return fmt.Sprintf("%s: kind %s (shape %s)", ErrUnhandledMessage, e.Kind, e.Shape)
}

func (e *UnhandledMessageError) Unwrap() error {
	return ErrUnhandledMessage
}

// fail panics with err wrapped around a short description of the call site.
func fail(err error, format string, args ...any) {
	panic(fmt.Errorf("%w: "+format, append([]any{err}, args...)...))
}
