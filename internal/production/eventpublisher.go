package production

import (
	"fmt"
	"time"

	"github.com/comalice/hsm"
)

// Record is one lifecycle notification flattened for publishing.
type Record struct {
	Kind   string // enter, exit, transition, escalate
	State  string
	Detail string
	Time   time.Time
}

func (r Record) String() string {
	if r.Detail == "" {
		return fmt.Sprintf("%s %s", r.Kind, r.State)
	}
	return fmt.Sprintf("%s %s (%s)", r.Kind, r.State, r.Detail)
}

// ChannelPublisher forwards lifecycle notifications to a Go channel.
// Non-blocking publish with drop on backpressure; Dropped counts the losses.
type ChannelPublisher struct {
	ch      chan<- Record
	now     func() time.Time
	Dropped int
}

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher(ch chan<- Record) *ChannelPublisher {
	return &ChannelPublisher{ch: ch, now: time.Now}
}

func (p *ChannelPublisher) StateEntered(ev hsm.StateEvent) {
	p.publish(Record{Kind: "enter", State: ev.Name, Detail: ev.Cause.String()})
}

func (p *ChannelPublisher) StateExited(ev hsm.StateEvent) {
	p.publish(Record{Kind: "exit", State: ev.Name, Detail: ev.Cause.String()})
}

func (p *ChannelPublisher) Transitioned(ev hsm.TransitionEvent) {
	detail := "from " + ev.From
	if ev.From == "" {
		detail = "from nothing"
	}
	if ev.Common != "" {
		detail += " via " + ev.Common
	}
	p.publish(Record{Kind: "transition", State: ev.To, Detail: detail})
}

func (p *ChannelPublisher) Escalated(ev hsm.MessageEvent) {
	p.publish(Record{Kind: "escalate", State: ev.Kind, Detail: ev.Shape})
}

func (p *ChannelPublisher) publish(r Record) {
	r.Time = p.now()
	select {
	case p.ch <- r:
	default:
		p.Dropped++ // Non-blocking drop
	}
}

func (p *ChannelPublisher) Close() error {
	close(p.ch)
	return nil
}
