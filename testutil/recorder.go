package testutil

import (
	"fmt"
	"slices"
	"sync"

	"github.com/comalice/hsm"
)

// Recorder is an hsm.Observer that keeps every notification in order.
type Recorder struct {
	mu          sync.Mutex
	lines       []string
	transitions []hsm.TransitionEvent
	escalated   []hsm.MessageEvent
}

func (r *Recorder) StateEntered(ev hsm.StateEvent) {
	r.add(fmt.Sprintf("enter:%s", ev.Name))
}

func (r *Recorder) StateExited(ev hsm.StateEvent) {
	r.add(fmt.Sprintf("exit:%s", ev.Name))
}

func (r *Recorder) Transitioned(ev hsm.TransitionEvent) {
	r.mu.Lock()
	r.transitions = append(r.transitions, ev)
	r.mu.Unlock()
	r.add(fmt.Sprintf("transition:%s->%s", ev.From, ev.To))
}

func (r *Recorder) Escalated(ev hsm.MessageEvent) {
	r.mu.Lock()
	r.escalated = append(r.escalated, ev)
	r.mu.Unlock()
	r.add(fmt.Sprintf("escalate:%s", ev.Kind))
}

// Lines returns the notifications rendered as "enter:A", "exit:B",
// "transition:B->C" and "escalate:kind".
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.lines)
}

func (r *Recorder) Transitions() []hsm.TransitionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.transitions)
}

// Messages returns the escalated messages in order.
func (r *Recorder) Messages() []hsm.MessageEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.escalated)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines, r.transitions, r.escalated = nil, nil, nil
}

func (r *Recorder) add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}
