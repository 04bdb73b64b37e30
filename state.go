package hsm

import (
	"reflect"
	"slices"
)

// State is one level of the hierarchy. Concrete states implement it by
// embedding Node and overriding the hooks they care about:
//
//	type Arena struct {
//		hsm.Node[Kind]
//		round int
//	}
//
//	func (a *Arena) OnEnter() { ... }
//
// The accessor node() is unexported, so only types embedding Node satisfy
// State.
type State[K comparable] interface {
	OnEnter()
	OnExit()
	OnUpdate()
	HandleMessage(msg Message[K])
	SendToParent(msg Message[K])
	SetSubstate(child State[K])
	Parent() State[K]
	Substate() State[K]
	Substates() []State[K]

	node() *Node[K]
}

// Namer lets a state choose the name used in logs, observers and exports.
type Namer interface {
	Name() string
}

// Node carries the bookkeeping shared by every state: the parent link, the
// active substate and the substates ever activated below it.
//
// The parent link does not own the parent. Ownership flows top-down: the
// machine holds the active path, each node holds its substates.
type Node[K comparable] struct {
	self    State[K] // the value embedding this node
	parent  State[K]
	active  State[K]
	known   []State[K]
	machine *Machine[K]
}

func (n *Node[K]) node() *Node[K] { return n }

// OnEnter is called once when the state becomes active.
func (n *Node[K]) OnEnter() {}

// OnExit is called once when the state stops being active. It must undo
// whatever OnEnter set up.
func (n *Node[K]) OnExit() {}

// OnUpdate forwards the tick to the active substate, if any. States that do
// their own per-tick work call it before or after that work.
func (n *Node[K]) OnUpdate() {
	if n.active != nil {
		n.active.OnUpdate()
	}
}

// HandleMessage bubbles msg to the parent. States override it to claim the
// kinds they understand and call it for everything else.
func (n *Node[K]) HandleMessage(msg Message[K]) {
	n.SendToParent(msg)
}

// SendToParent delivers msg to the parent's handler, or to the owning
// machine when this node is the root of the active tree.
func (n *Node[K]) SendToParent(msg Message[K]) {
	if n.parent != nil {
		n.parent.HandleMessage(msg)
		return
	}
	if n.machine == nil {
		fail(ErrDetached, "%s raised %s", n.name(), KindOf(msg))
	}
	n.machine.HandleMessage(msg)
}

// SetSubstate makes child the active substate. The previous substate, if
// any, is exited first. Exactly one OnExit/OnEnter pair runs per swap; the
// previous substate's own substates are left as they are.
func (n *Node[K]) SetSubstate(child State[K]) {
	if isNil(child) {
		fail(ErrNilState, "%s.SetSubstate", n.name())
	}
	if n.self == nil {
		fail(ErrUnbound, "SetSubstate(%s)", NameOf(child))
	}
	n.checkAcyclic(child)

	if prev := n.active; prev != nil {
		n.active = nil
		prev.OnExit()
		n.machine.stateExited(prev, CauseSubstate)
		n.machine.untrack(prev, n.self)
	}

	n.adopt(child)
	n.active = child
	n.machine.stateEntered(child, CauseSubstate)
	child.OnEnter()
}

// Parent returns the owning state, or nil at the root of the active tree.
func (n *Node[K]) Parent() State[K] { return n.parent }

// Substate returns the active substate, or nil for a leaf.
func (n *Node[K]) Substate() State[K] { return n.active }

// Substates returns every substate adopted or activated under this node, in
// first-seen order.
func (n *Node[K]) Substates() []State[K] { return slices.Clone(n.known) }

// adopt links child below n without activating it.
func (n *Node[K]) adopt(child State[K]) {
	c := child.node()
	if c.parent != nil && c.parent != n.self {
		if old := c.parent.node(); old.active == child {
			old.active = nil
		}
	}
	c.self = child
	c.parent = n.self
	if n.machine != nil {
		c.machine = n.machine
	}
	n.remember(child)
}

func (n *Node[K]) remember(child State[K]) {
	if !slices.Contains(n.known, child) {
		n.known = append(n.known, child)
	}
}

func (n *Node[K]) name() string {
	if n.self == nil {
		return "<unbound>"
	}
	return NameOf(n.self)
}

// Adopt links child below parent without entering it. Use it to give a
// transition target its place in the tree before TransitionTo:
//
//	shop := g.Shop()
//	hsm.Adopt[Kind](playing, shop)
//	g.TransitionTo(shop)
func Adopt[K comparable](parent, child State[K]) {
	if isNil(parent) || isNil(child) {
		fail(ErrNilState, "Adopt(%s, %s)", NameOf(parent), NameOf(child))
	}
	p := parent.node()
	if p.self == nil {
		p.self = parent
	}
	p.checkAcyclic(child)
	p.adopt(child)
}

// checkAcyclic panics with ErrCycle when child is n or one of its
// ancestors.
func (n *Node[K]) checkAcyclic(child State[K]) {
	for s := n.self; s != nil; s = s.node().parent {
		if s == child {
			fail(ErrCycle, "%s below %s", NameOf(child), n.name())
		}
	}
}

// NameOf returns s.Name() when s is a Namer, else its type name.
func NameOf[K comparable](s State[K]) string {
	if isNil(s) {
		return "<nil>"
	}
	if n, ok := s.(Namer); ok {
		return n.Name()
	}
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// depth counts the ancestors of s.
func depth[K comparable](s State[K]) int {
	d := 0
	for p := s.node().parent; p != nil; p = p.node().parent {
		d++
	}
	return d
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
