package hsm

import (
	"fmt"
	"reflect"
)

// Message is an event raised by a state. K is the discriminant type, usually
// a small integer enum with a String method.
//
// Message values are immutable and ephemeral: created where they are raised,
// claimed by at most one handler and never stored by the core.
//
// Handlers dispatch on the discriminant first and then recover the concrete
// shape with As:
//
//	switch msg.Kind() {
//	case KindRoundCleared:
//		if rc, ok := hsm.As[RoundCleared](msg); ok {
//			...
//			return
//		}
//	}
//	s.Node.HandleMessage(msg) // bubble anything unclaimed
type Message[K comparable] interface {
	Kind() K
}

// As recovers the concrete shape of msg. ok is false when msg is not a T,
// which handlers treat as "not mine".
func As[T Message[K], K comparable](msg Message[K]) (T, bool) {
	t, ok := msg.(T)
	return t, ok
}

// KindOf renders the discriminant of msg for diagnostics.
func KindOf[K comparable](msg Message[K]) string {
	if msg == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v", msg.Kind())
}

// ShapeOf returns the concrete type name of msg.
func ShapeOf[K comparable](msg Message[K]) string {
	if msg == nil {
		return "<nil>"
	}
	return reflect.TypeOf(msg).String()
}
