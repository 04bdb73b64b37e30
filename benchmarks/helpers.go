// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"github.com/comalice/hsm"
)

// Kind is the message discriminant used by benchmark machines.
type Kind int

const Tick Kind = 1

// TickMsg is the only message benchmark states raise.
type TickMsg struct{}

func (TickMsg) Kind() Kind { return Tick }

// Bench is a state with no behaviour beyond the defaults.
type Bench struct {
	hsm.Node[Kind]
}

// Counting counts its lifecycle hooks.
type Counting struct {
	hsm.Node[Kind]
	Enters, Exits, Updates int
}

func (c *Counting) OnEnter() { c.Enters++ }
func (c *Counting) OnExit()  { c.Exits++ }

func (c *Counting) OnUpdate() {
	c.Updates++
	c.Node.OnUpdate()
}

// GenFlat creates a root with n adopted leaves.
func GenFlat(n int) (root hsm.State[Kind], leaves []hsm.State[Kind]) {
	if n < 1 {
		n = 1
	}
	root = &Bench{}
	leaves = make([]hsm.State[Kind], n)
	for i := range leaves {
		leaves[i] = &Counting{}
		hsm.Adopt(root, leaves[i])
	}
	return root, leaves
}

// GenDeep creates two branches of the given depth under one root and
// returns the root and the bottom leaf of each branch.
func GenDeep(depth int) (root hsm.State[Kind], left, right hsm.State[Kind]) {
	if depth < 1 {
		depth = 1
	}
	root = &Bench{}
	chain := func() hsm.State[Kind] {
		parent := root
		for d := 0; d < depth; d++ {
			child := &Counting{}
			hsm.Adopt[Kind](parent, child)
			parent = child
		}
		return parent
	}
	return root, chain(), chain()
}

// GenActiveChain initializes m on a new root and activates a chain of depth
// substates below it with SetSubstate. It returns the deepest state.
func GenActiveChain(m *hsm.Machine[Kind], depth int) hsm.State[Kind] {
	var parent hsm.State[Kind] = &Counting{}
	m.Initialize(parent)
	for d := 0; d < depth; d++ {
		child := &Counting{}
		parent.SetSubstate(child)
		parent = child
	}
	return parent
}

// Sink is a top-level handler that counts escalated messages.
type Sink struct {
	Count int
}

func (s *Sink) HandleMessage(hsm.Message[Kind]) { s.Count++ }

// Idle is an Updater with nothing to do.
type Idle struct{}

func (Idle) Update() {}
