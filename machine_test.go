package hsm_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/hsm"
	"github.com/comalice/hsm/testutil"
)

func TestMachine_InitializeEntersOnce(t *testing.T) {
	f := newFixture()
	root := f.probe("root")
	require.False(t, f.m.Initialized())

	f.m.Initialize(root)

	assert.True(t, f.m.Initialized())
	assert.Same(t, root, f.m.Active())
	assert.Equal(t, []string{"root.enter"}, f.log.Entries())
}

func TestMachine_InitializeTwice(t *testing.T) {
	f := newFixture()
	f.m.Initialize(f.probe("root"))

	err := panicErr(t, func() { f.m.Initialize(f.probe("again")) })
	require.ErrorIs(t, err, hsm.ErrAlreadyInitialized)
}

func TestMachine_InitializeNil(t *testing.T) {
	f := newFixture()
	err := panicErr(t, func() { f.m.Initialize(nil) })
	require.ErrorIs(t, err, hsm.ErrNilState)

	var typedNil *testutil.Probe[kind]
	err = panicErr(t, func() { f.m.Initialize(typedNil) })
	require.ErrorIs(t, err, hsm.ErrNilState)
}

func TestMachine_UpdateUninitialized(t *testing.T) {
	f := newFixture()
	assert.NotPanics(t, f.m.Update)
}

func TestMachine_UpdateLeafOnly(t *testing.T) {
	f := newFixture()
	root := f.probe("root")
	f.m.Initialize(root)

	f.m.Update()
	f.m.Update()

	assert.Equal(t, 2, root.Updates)
	assert.Equal(t, []string{"root.enter", "root.update", "root.update"}, f.log.Entries())
}

func TestMachine_UpdateStartsAtActiveState(t *testing.T) {
	f := newFixture()
	playing, arena := f.probe("playing"), f.probe("arena")
	hsm.Adopt[kind](playing, arena)
	f.m.Initialize(playing)
	f.m.TransitionTo(arena)

	f.m.Update()

	assert.Equal(t, 1, arena.Updates)
	assert.Equal(t, 0, playing.Updates, "ancestors of the active state are not updated")
}

func TestMachine_UpdateFromRoot(t *testing.T) {
	f := newFixture(hsm.WithUpdateFromRoot())
	playing, arena := f.probe("playing"), f.probe("arena")
	hsm.Adopt[kind](playing, arena)
	f.m.Initialize(playing)
	f.m.TransitionTo(arena)

	f.m.Update()

	assert.Equal(t, 1, playing.Updates)
	assert.Equal(t, 1, arena.Updates)
	assert.Equal(t, []string{"playing.update", "arena.update"}, f.log.Only(".update"))
}

func TestMachine_TransitionToSibling(t *testing.T) {
	f := newFixture()
	playing, arena, shop := f.probe("playing"), f.probe("arena"), f.probe("shop")
	playing.Enter = func() { playing.SetSubstate(arena) }
	f.m.Initialize(playing)
	hsm.Adopt[kind](playing, shop)
	f.log.Reset()
	f.rec.Reset()

	f.m.TransitionTo(shop)

	assert.Equal(t, []string{"arena.exit", "shop.enter"}, f.log.Entries())
	assert.Same(t, shop, f.m.Active())
	assert.Same(t, shop, playing.Substate())
	assert.Equal(t, []string{"playing", "shop"}, f.m.ActivePath())

	tr := f.rec.Transitions()
	require.Len(t, tr, 1)
	assert.Equal(t, "arena", tr[0].From)
	assert.Equal(t, "shop", tr[0].To)
	assert.Equal(t, "playing", tr[0].Common)
	assert.Equal(t, []string{"arena"}, tr[0].Exited)
	assert.Equal(t, []string{"shop"}, tr[0].Entered)
}

// tree builds r -> a -> a1 -> a2 and r -> b -> b1, all adopted but only r
// entered.
func (f *fixture) tree() map[string]*testutil.Probe[kind] {
	nodes := map[string]*testutil.Probe[kind]{}
	for _, name := range []string{"r", "a", "a1", "a2", "b", "b1"} {
		nodes[name] = f.probe(name)
	}
	hsm.Adopt[kind](nodes["r"], nodes["a"])
	hsm.Adopt[kind](nodes["a"], nodes["a1"])
	hsm.Adopt[kind](nodes["a1"], nodes["a2"])
	hsm.Adopt[kind](nodes["r"], nodes["b"])
	hsm.Adopt[kind](nodes["b"], nodes["b1"])
	f.m.Initialize(nodes["r"])
	return nodes
}

func TestMachine_TransitionExitsAndEntersAroundCommonAncestor(t *testing.T) {
	f := newFixture()
	n := f.tree()
	f.m.TransitionTo(n["a2"])
	assert.Equal(t, []string{"r.enter", "a.enter", "a1.enter", "a2.enter"}, f.log.Entries())
	f.log.Reset()

	f.m.TransitionTo(n["b1"])

	assert.Equal(t, []string{
		"a2.exit", "a1.exit", "a.exit",
		"b.enter", "b1.enter",
	}, f.log.Entries())
	assert.Nil(t, n["a"].Substate())
	assert.Nil(t, n["a1"].Substate())
	assert.Same(t, n["b"], n["r"].Substate())
	assert.Same(t, n["b1"], n["b"].Substate())
	assert.Equal(t, []string{"r", "b", "b1"}, f.m.ActivePath())
}

func TestMachine_TransitionToAncestor(t *testing.T) {
	f := newFixture()
	n := f.tree()
	f.m.TransitionTo(n["a2"])
	f.log.Reset()

	f.m.TransitionTo(n["a"])

	assert.Equal(t, []string{"a2.exit", "a1.exit"}, f.log.Entries())
	assert.Same(t, n["a"], f.m.Active())
	assert.Same(t, n["a"], f.m.Leaf())
}

func TestMachine_TransitionToDescendant(t *testing.T) {
	f := newFixture()
	n := f.tree()

	f.m.TransitionTo(n["a1"])

	assert.Equal(t, []string{"r.enter", "a.enter", "a1.enter"}, f.log.Entries())
	assert.Same(t, n["r"], f.m.Root())
}

func TestMachine_TransitionToSelf(t *testing.T) {
	f := newFixture()
	n := f.tree()
	f.m.TransitionTo(n["b1"])
	f.log.Reset()

	f.m.TransitionTo(n["b1"])

	assert.Empty(t, f.log.Entries(), "the target is its own common ancestor")
}

func TestMachine_TransitionDisjointTrees(t *testing.T) {
	f := newFixture()
	n := f.tree()
	f.m.TransitionTo(n["a1"])

	over, screen := f.probe("over"), f.probe("screen")
	hsm.Adopt[kind](over, screen)
	f.log.Reset()
	f.rec.Reset()

	f.m.TransitionTo(screen)

	assert.Equal(t, []string{
		"a1.exit", "a.exit", "r.exit",
		"over.enter", "screen.enter",
	}, f.log.Entries())
	assert.Same(t, over, f.m.Root())
	tr := f.rec.Transitions()
	require.Len(t, tr, 1)
	assert.Empty(t, tr[0].Common)
}

func TestMachine_TransitionUninitialized(t *testing.T) {
	f := newFixture()
	parent, child := f.probe("parent"), f.probe("child")
	hsm.Adopt[kind](parent, child)

	f.m.TransitionTo(child)

	assert.Equal(t, []string{"parent.enter", "child.enter"}, f.log.Entries())
	assert.True(t, f.m.Initialized())
	tr := f.rec.Transitions()
	require.Len(t, tr, 1)
	assert.Empty(t, tr[0].From)
}

func TestMachine_TransitionExitsDefaultSubstateOffPath(t *testing.T) {
	f := newFixture()
	start := f.probe("start")
	playing, arena, shop := f.probe("playing"), f.probe("arena"), f.probe("shop")
	playing.Enter = func() { playing.SetSubstate(arena) }
	hsm.Adopt[kind](playing, shop)
	f.m.Initialize(start)
	f.log.Reset()

	f.m.TransitionTo(shop)

	assert.Equal(t, []string{
		"start.exit",
		"playing.enter", "arena.enter",
		"arena.exit", "shop.enter",
	}, f.log.Entries())
	assert.Same(t, shop, playing.Substate())
}

func TestMachine_ExitsBalanceEnters(t *testing.T) {
	f := newFixture()
	n := f.tree()
	for _, target := range []string{"a2", "b1", "a", "b", "a2", "r"} {
		f.m.TransitionTo(n[target])
	}
	enters := map[string]int{}
	for _, line := range f.rec.Lines() {
		switch {
		case len(line) > 6 && line[:6] == "enter:":
			enters[line[6:]]++
		case len(line) > 5 && line[:5] == "exit:":
			enters[line[5:]]--
		}
	}
	for name, open := range enters {
		want := 0
		if name == "r" {
			want = 1
		}
		assert.Equalf(t, want, open, "state %s", name)
	}
}

func TestMachine_SetSubstateAboveTrackedState(t *testing.T) {
	f := newFixture()
	root, a, b, other := f.probe("root"), f.probe("a"), f.probe("b"), f.probe("other")
	hsm.Adopt[kind](root, a)
	f.m.Initialize(root)
	f.m.TransitionTo(a)

	root.SetSubstate(b)
	assert.Same(t, root, f.m.Active(), "tracking moves off the exited state")
	assert.Same(t, b, f.m.Leaf())

	f.m.Update()
	f.m.TransitionTo(other)

	assert.Equal(t, []string{
		"root.enter", "a.enter",
		"a.exit", "b.enter",
		"root.update", "b.update",
		"b.exit", "root.exit", "other.enter",
	}, f.log.Entries())
}

func TestMachine_SetSubstateAboveTrackedDescendant(t *testing.T) {
	f := newFixture()
	root, a, a1, b := f.probe("root"), f.probe("a"), f.probe("a1"), f.probe("b")
	hsm.Adopt[kind](root, a)
	hsm.Adopt[kind](a, a1)
	f.m.Initialize(root)
	f.m.TransitionTo(a1)

	root.SetSubstate(b)

	assert.Same(t, root, f.m.Active())
	assert.Equal(t, []string{"root", "b"}, f.m.ActivePath())
}

func TestMachine_SetSubstateBelowTrackedState(t *testing.T) {
	f := newFixture()
	root, a, b := f.probe("root"), f.probe("a"), f.probe("b")
	f.m.Initialize(root)
	root.SetSubstate(a)
	root.SetSubstate(b)

	assert.Same(t, root, f.m.Active(), "swapping below the tracked state keeps it")
}

func TestMachine_ReentrantTransitionPanics(t *testing.T) {
	f := newFixture()
	n := f.tree()
	n["a"].Enter = func() { f.m.TransitionTo(n["b"]) }

	err := panicErr(t, func() { f.m.TransitionTo(n["a"]) })
	require.ErrorIs(t, err, hsm.ErrReentrantTransition)

	n["a"].Enter = nil
	assert.NotPanics(t, func() { f.m.TransitionTo(n["b"]) }, "guard released after unwinding")
}

func TestMachine_TransitionFromUpdateIsAllowed(t *testing.T) {
	f := newFixture()
	n := f.tree()
	f.m.TransitionTo(n["a"])
	n["a"].Update = func() { f.m.TransitionTo(n["b"]) }

	f.m.Update()

	assert.Same(t, n["b"], f.m.Active())
}

func TestMachine_TransitionNil(t *testing.T) {
	f := newFixture()
	err := panicErr(t, func() { f.m.TransitionTo(nil) })
	require.ErrorIs(t, err, hsm.ErrNilState)
}

func TestMachine_BubblesToTopLevelHandler(t *testing.T) {
	f := newFixture()
	a, b := f.probe("A"), f.probe("B")
	f.m.Initialize(a)
	a.SetSubstate(b)

	b.SendToParent(ping{N: 42})

	assert.Equal(t, []hsm.Message[kind]{ping{N: 42}}, f.escalated)
	assert.Equal(t, []hsm.MessageEvent{{Kind: "ping", Shape: "hsm_test.ping"}}, f.rec.Messages())
}

func TestMachine_ClaimedMessageStops(t *testing.T) {
	f := newFixture()
	a, b, c := f.probe("A"), f.probe("B", kindPing), f.probe("C")
	f.m.Initialize(a)
	a.SetSubstate(b)
	b.SetSubstate(c)

	c.HandleMessage(ping{N: 1})
	c.HandleMessage(pong{})

	assert.Equal(t, []hsm.Message[kind]{ping{N: 1}}, b.Received)
	assert.Empty(t, a.Received)
	assert.Equal(t, []hsm.Message[kind]{pong{}}, f.escalated)
	assert.Equal(t, []string{"B.claim"}, f.log.Only(".claim"))
}

func TestMachine_Unhandled(t *testing.T) {
	var m *hsm.Machine[kind]
	m = hsm.NewMachine[kind](hsm.HandlerFunc[kind](func(msg hsm.Message[kind]) {
		switch msg.Kind() {
		case kindStop:
		default:
			m.Unhandled(msg)
		}
	}))
	root := testutil.NewProbe[kind]("root", &testutil.Log{})
	m.Initialize(root)

	assert.NotPanics(t, func() { root.SendToParent(stop{}) })

	err := panicErr(t, func() { root.SendToParent(ping{N: 9}) })
	require.ErrorIs(t, err, hsm.ErrUnhandledMessage)
	var unhandled *hsm.UnhandledMessageError
	require.True(t, errors.As(err, &unhandled))
	assert.Equal(t, "ping", unhandled.Kind)
	assert.Equal(t, "hsm_test.ping", unhandled.Shape)
}

type stop struct{}

func (stop) Kind() kind { return kindStop }

func TestMachine_NilHandlerIsFatal(t *testing.T) {
	m := hsm.NewMachine[kind](nil)
	root := testutil.NewProbe[kind]("root", &testutil.Log{})
	m.Initialize(root)

	err := panicErr(t, func() { root.SendToParent(pong{}) })
	require.ErrorIs(t, err, hsm.ErrUnhandledMessage)
}

func TestMachine_LogsTransitions(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := newFixture(hsm.WithLogger(logger))
	n := f.tree()

	f.m.TransitionTo(n["b1"])

	out := buf.String()
	assert.Contains(t, out, "hsm initialized")
	assert.Contains(t, out, "hsm transition")
	assert.Contains(t, out, "to=b1")
	assert.Contains(t, out, "common=r")
}

func TestMachine_ObserverFuncs(t *testing.T) {
	var entered, exited []string
	obs := hsm.ObserverFuncs{
		OnStateEntered: func(ev hsm.StateEvent) { entered = append(entered, ev.Name) },
		OnStateExited:  func(ev hsm.StateEvent) { exited = append(exited, ev.Name) },
	}
	f := newFixture(hsm.WithObserver(obs))
	n := f.tree()
	f.m.TransitionTo(n["a1"])
	f.m.TransitionTo(n["b"])
	f.m.HandleMessage(pong{})

	assert.Equal(t, []string{"r", "a", "a1", "b"}, entered)
	assert.Equal(t, []string{"a1", "a"}, exited)
}

func TestMachine_ObserverDepth(t *testing.T) {
	var depths []int
	f := newFixture(hsm.WithObserver(hsm.ObserverFuncs{
		OnStateEntered: func(ev hsm.StateEvent) { depths = append(depths, ev.Depth) },
	}))
	n := f.tree()

	f.m.TransitionTo(n["a2"])

	assert.Equal(t, []int{0, 1, 2, 3}, depths)
}
