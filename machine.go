package hsm

import (
	"log/slog"
	"slices"
	"time"
)

// Handler resolves messages that bubbled past the root of the active tree.
type Handler[K comparable] interface {
	HandleMessage(msg Message[K])
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[K comparable] func(msg Message[K])

func (f HandlerFunc[K]) HandleMessage(msg Message[K]) { f(msg) }

// Machine tracks the currently active state and performs transitions.
//
// A concrete machine embeds *Machine, supplies itself as the Handler and
// adds factory accessors for its states:
//
//	type Game struct {
//		*hsm.Machine[Kind]
//	}
//
//	func NewGame() *Game {
//		g := &Game{}
//		g.Machine = hsm.NewMachine[Kind](g)
//		return g
//	}
//
//	func (g *Game) HandleMessage(msg hsm.Message[Kind]) {
//		switch msg.Kind() {
//		case KindPlayerDied:
//			g.TransitionTo(g.GameOver())
//		default:
//			g.Unhandled(msg)
//		}
//	}
//
// Machine is not safe for concurrent use. Every call, including those made
// from state hooks, must come from one goroutine.
type Machine[K comparable] struct {
	handler Handler[K]
	active  State[K]
	busy    bool // an Initialize or TransitionTo cascade is on the stack
	opts    options
}

// NewMachine creates an uninitialized machine. handler may be nil, in which
// case every escalated message is fatal.
func NewMachine[K comparable](handler Handler[K], opts ...Option) *Machine[K] {
	m := &Machine[K]{
		handler: handler,
		opts: options{
			logger: slog.New(slog.DiscardHandler),
		},
	}
	for _, opt := range opts {
		opt(&m.opts)
	}
	return m
}

// Initialize activates the first state. It may be called once.
func (m *Machine[K]) Initialize(s State[K]) {
	if isNil(s) {
		fail(ErrNilState, "Initialize")
	}
	if m.active != nil {
		fail(ErrAlreadyInitialized, "Initialize(%s) while %s is active", NameOf(s), NameOf(m.active))
	}
	defer m.acquire("Initialize(%s)", NameOf(s))()

	m.bind(s)
	m.active = s
	m.opts.logger.Debug("hsm initialized", "state", NameOf(s))
	m.stateEntered(s, CauseInitialize)
	s.OnEnter()
}

// Initialized reports whether Initialize (or a first TransitionTo) has run.
func (m *Machine[K]) Initialized() bool {
	return m.active != nil
}

// Update runs one tick: OnUpdate on the active state, which cascades down
// through its substates. Ancestors of the active state are not updated
// unless the machine was built WithUpdateFromRoot.
func (m *Machine[K]) Update() {
	if m.active == nil {
		return
	}
	if m.opts.updateFromRoot {
		m.Root().OnUpdate()
		return
	}
	m.active.OnUpdate()
}

// TransitionTo makes target the active state with the least lifecycle work:
// states between the current leaf and the common ancestor are exited
// innermost first, states between the common ancestor and target are
// entered outermost first. The common ancestor itself is untouched. When
// the two trees share nothing, everything up to the structural root is
// exited and target's whole chain is entered.
//
// target's ancestor chain must already be in place (see Adopt). Calling
// TransitionTo from a hook that runs inside another transition panics with
// ErrReentrantTransition.
func (m *Machine[K]) TransitionTo(target State[K]) {
	if isNil(target) {
		fail(ErrNilState, "TransitionTo")
	}
	defer m.acquire("TransitionTo(%s)", NameOf(target))()

	start := time.Now()
	from := m.Leaf()

	ancestors := make(map[State[K]]struct{})
	for s := from; s != nil; s = s.node().parent {
		ancestors[s] = struct{}{}
	}
	var common State[K]
	for s := target; s != nil; s = s.node().parent {
		if _, ok := ancestors[s]; ok {
			common = s
			break
		}
	}

	var exited []string
	for s := from; s != nil && s != common; {
		parent := s.node().parent
		if parent != nil {
			if p := parent.node(); p.active == s {
				p.active = nil
			}
		}
		s.OnExit()
		m.stateExited(s, CauseTransition)
		exited = append(exited, NameOf(s))
		s = parent
	}

	var pending []State[K]
	for s := target; s != nil && s != common; s = s.node().parent {
		pending = append(pending, s)
	}
	entered := make([]string, 0, len(pending))
	for len(pending) > 0 {
		s := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		n := s.node()
		n.self = s
		n.machine = m
		if n.parent != nil {
			p := n.parent.node()
			if p.active != nil && p.active != s {
				// A parent's OnEnter picked a default substate that is
				// not on the way to target.
				exited = append(exited, m.exitBranch(p.active)...)
			}
			p.remember(s)
			p.active = s
		}
		m.stateEntered(s, CauseTransition)
		entered = append(entered, NameOf(s))
		s.OnEnter()
	}

	m.active = target

	ev := TransitionEvent{
		To:      NameOf(target),
		Exited:  exited,
		Entered: entered,
		Elapsed: time.Since(start),
	}
	if from != nil {
		ev.From = NameOf(from)
	}
	if common != nil {
		ev.Common = NameOf(common)
	}
	m.opts.logger.Debug("hsm transition",
		"from", ev.From,
		"to", ev.To,
		"common", ev.Common,
		"exited", exited,
		"entered", entered,
	)
	for _, o := range m.opts.observers {
		o.Transitioned(ev)
	}
}

// HandleMessage receives messages that bubbled past the root of the active
// tree and passes them to the machine's handler.
func (m *Machine[K]) HandleMessage(msg Message[K]) {
	ev := MessageEvent{Kind: KindOf(msg), Shape: ShapeOf(msg)}
	m.opts.logger.Debug("hsm message escalated", "kind", ev.Kind, "shape", ev.Shape)
	for _, o := range m.opts.observers {
		o.Escalated(ev)
	}
	if m.handler == nil {
		m.Unhandled(msg)
	}
	m.handler.HandleMessage(msg)
}

// Unhandled panics with an *UnhandledMessageError. Concrete handlers call
// it for every kind they do not resolve: a dropped message means a missing
// transition rule.
func (m *Machine[K]) Unhandled(msg Message[K]) {
	err := &UnhandledMessageError{Kind: KindOf(msg), Shape: ShapeOf(msg)}
	m.opts.logger.Error("hsm unhandled message", "kind", err.Kind, "shape", err.Shape)
	panic(err)
}

// Active returns the tracked active state: the target of the last
// transition, or the initial state. It is not necessarily a leaf.
func (m *Machine[K]) Active() State[K] {
	return m.active
}

// Leaf returns the deepest active descendant of the active state.
func (m *Machine[K]) Leaf() State[K] {
	s := m.active
	if s == nil {
		return nil
	}
	for s.node().active != nil {
		s = s.node().active
	}
	return s
}

// Root returns the structural root of the active tree.
func (m *Machine[K]) Root() State[K] {
	s := m.active
	if s == nil {
		return nil
	}
	for s.node().parent != nil {
		s = s.node().parent
	}
	return s
}

// ActivePath returns the names of the active path, root first.
func (m *Machine[K]) ActivePath() []string {
	var path []string
	for s := m.Leaf(); s != nil; s = s.node().parent {
		path = append(path, NameOf(s))
	}
	slices.Reverse(path)
	return path
}

// acquire marks a cascade as running and returns the release func.
func (m *Machine[K]) acquire(format string, args ...any) func() {
	if m.busy {
		fail(ErrReentrantTransition, format, args...)
	}
	m.busy = true
	return func() { m.busy = false }
}

// exitBranch exits top and its active descendants, innermost first, and
// detaches top from its parent's active slot.
func (m *Machine[K]) exitBranch(top State[K]) []string {
	var branch []State[K]
	for s := top; s != nil; s = s.node().active {
		branch = append(branch, s)
	}
	names := make([]string, 0, len(branch))
	for i := len(branch) - 1; i >= 0; i-- {
		s := branch[i]
		if p := s.node().parent; p != nil && p.node().active == s {
			p.node().active = nil
		}
		s.OnExit()
		m.stateExited(s, CauseTransition)
		names = append(names, NameOf(s))
	}
	return names
}

// untrack moves the tracked state to owner when SetSubstate on owner has
// just exited prev and the tracked state was prev or below it.
func (m *Machine[K]) untrack(prev, owner State[K]) {
	if m == nil {
		return
	}
	for s := m.active; s != nil; s = s.node().parent {
		if s == prev {
			m.active = owner
			return
		}
		if s == owner {
			return
		}
	}
}

// bind attaches s and its ancestors to m.
func (m *Machine[K]) bind(s State[K]) {
	s.node().self = s
	for n := s.node(); n != nil; {
		n.machine = m
		if n.parent == nil {
			break
		}
		n = n.parent.node()
	}
}

func (m *Machine[K]) stateEntered(s State[K], cause Cause) {
	if m == nil || len(m.opts.observers) == 0 {
		return
	}
	ev := StateEvent{Name: NameOf(s), Depth: depth(s), Cause: cause}
	for _, o := range m.opts.observers {
		o.StateEntered(ev)
	}
}

func (m *Machine[K]) stateExited(s State[K], cause Cause) {
	if m == nil || len(m.opts.observers) == 0 {
		return
	}
	ev := StateEvent{Name: NameOf(s), Depth: depth(s), Cause: cause}
	for _, o := range m.opts.observers {
		o.StateExited(ev)
	}
}
