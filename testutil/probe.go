// Package testutil provides probe states and a lifecycle recorder shared by
// the tests of hsm and its drivers.
package testutil

import (
	"slices"
	"strings"
	"sync"

	"github.com/comalice/hsm"
)

// Log is an ordered list of lifecycle entries such as "A.enter".
type Log struct {
	mu      sync.Mutex
	entries []string
}

func (l *Log) Add(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

// Entries returns a copy of every entry.
func (l *Log) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

// Only returns the entries ending in suffix, e.g. ".enter".
func (l *Log) Only(suffixes ...string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		for _, s := range suffixes {
			if strings.HasSuffix(e, s) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Probe is a state that writes every hook to a Log and claims the message
// kinds it was built with. The optional funcs run after the entry is logged.
type Probe[K comparable] struct {
	hsm.Node[K]

	name   string
	log    *Log
	claims []K

	Received []hsm.Message[K]
	Updates  int

	Enter  func()
	Exit   func()
	Update func()
}

// NewProbe creates a probe named name that claims the given kinds.
func NewProbe[K comparable](name string, log *Log, claims ...K) *Probe[K] {
	return &Probe[K]{name: name, log: log, claims: claims}
}

func (p *Probe[K]) Name() string { return p.name }

func (p *Probe[K]) OnEnter() {
	p.log.Add(p.name + ".enter")
	if p.Enter != nil {
		p.Enter()
	}
}

func (p *Probe[K]) OnExit() {
	p.log.Add(p.name + ".exit")
	if p.Exit != nil {
		p.Exit()
	}
}

func (p *Probe[K]) OnUpdate() {
	p.Updates++
	p.log.Add(p.name + ".update")
	if p.Update != nil {
		p.Update()
	}
	p.Node.OnUpdate()
}

func (p *Probe[K]) HandleMessage(msg hsm.Message[K]) {
	if slices.Contains(p.claims, msg.Kind()) {
		p.Received = append(p.Received, msg)
		p.log.Add(p.name + ".claim")
		return
	}
	p.Node.HandleMessage(msg)
}
