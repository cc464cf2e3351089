package elaborate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/nenuphar/config"
	"github.com/mna/nenuphar/diag"
	"github.com/mna/nenuphar/netlist"
	"github.com/mna/nenuphar/pform"
	"github.com/mna/nenuphar/procgraph"
	"github.com/mna/nenuphar/scope"
)

func newBehavioral() *BehavioralElaborator {
	return &BehavioralElaborator{
		Diags:  &diag.Counter{},
		Flags:  config.Default(),
		Design: &Design{Behaviors: make(map[*scope.Scope][]procgraph.Stmt), BehaviorMeta: make(map[*scope.Scope][]BehaviorMeta)},
	}
}

// TestWaitConstantTrueShortCircuitsToBody regression-tests review comment
// #4: `wait(1) body;` folds away entirely, lowering straight to body rather
// than constructing a procgraph.WaitStmt around it.
func TestWaitConstantTrueShortCircuitsToBody(t *testing.T) {
	s := scope.New("top", scope.ModuleScope, nil)
	s.Signals.Put("x", &netlist.Signal{Name: "x", Width: 1})
	s.Signals.Put("y", &netlist.Signal{Name: "y", Width: 1})
	be := newBehavioral()

	st := &pform.WaitStmt{
		Cond: constBit(1),
		Body: &pform.AssignStmt{Kind: pform.AssignBlocking, LValue: sigRef("y"), RValue: sigRef("x")},
	}
	got := be.wait(s, st, false)
	assign, ok := got.(*procgraph.AssignStmt)
	require.True(t, ok, "expected a constant-true wait to lower directly to its body, got %T", got)
	assert.Equal(t, procgraph.AssignBlocking, assign.Kind)
}

// TestWaitConstantFalseBecomesPermanentWait regression-tests review comment
// #4: `wait(0) body;` never admits the poll loop, so it reduces to a
// permanent event-control wait on no probes rather than a live
// procgraph.WaitStmt the back end would have to evaluate forever.
func TestWaitConstantFalseBecomesPermanentWait(t *testing.T) {
	s := scope.New("top", scope.ModuleScope, nil)
	s.Signals.Put("x", &netlist.Signal{Name: "x", Width: 1})
	s.Signals.Put("y", &netlist.Signal{Name: "y", Width: 1})
	be := newBehavioral()

	st := &pform.WaitStmt{
		Cond: constBit(0),
		Body: &pform.AssignStmt{Kind: pform.AssignBlocking, LValue: sigRef("y"), RValue: sigRef("x")},
	}
	got := be.wait(s, st, false)
	ec, ok := got.(*procgraph.EventControlStmt)
	require.True(t, ok, "expected a constant-false wait to lower to a permanent EventControlStmt, got %T", got)
	assert.Empty(t, ec.Probes)
	_, ok = ec.Body.(*procgraph.NoOpStmt)
	assert.True(t, ok)
}

// TestWaitNonConstantLowersToWaitStmt covers the case the constant fold
// does not touch: a condition depending on a plain signal (not a parameter)
// never folds, so it lowers to the poll-loop WaitStmt carrying the
// condition's input signals as its resolved probe set.
func TestWaitNonConstantLowersToWaitStmt(t *testing.T) {
	s := scope.New("top", scope.ModuleScope, nil)
	s.Signals.Put("x", &netlist.Signal{Name: "x", Width: 1})
	s.Signals.Put("y", &netlist.Signal{Name: "y", Width: 1})
	be := newBehavioral()

	st := &pform.WaitStmt{
		Cond: sigRef("x"),
		Body: &pform.AssignStmt{Kind: pform.AssignBlocking, LValue: sigRef("y"), RValue: sigRef("x")},
	}
	got := be.wait(s, st, false)
	wait, ok := got.(*procgraph.WaitStmt)
	require.True(t, ok, "expected a non-constant wait to lower to procgraph.WaitStmt, got %T", got)
	require.Len(t, wait.Probes, 1)
	ref, ok := wait.Probes[0].Value.(*procgraph.SignalRef)
	require.True(t, ok)
	assert.Equal(t, "x", ref.Signal.Name)
	assert.Equal(t, procgraph.EdgeAny, wait.Probes[0].Edge)
}

// TestDelayedBlockingAssignSplitsCaptureAndCommit covers spec §8 scenario 4:
// `y = #5 x;` rewrites into a capture/commit pair through a freshly minted
// temporary, so the delay only straddles the commit half.
func TestDelayedBlockingAssignSplitsCaptureAndCommit(t *testing.T) {
	top := &pform.Module{
		Name: "top",
		Body: pform.ModuleBody{
			Signals: []pform.SignalDecl{{Name: "x"}, {Name: "y"}},
			Behaviors: []pform.Behavior{{
				Kind: pform.Initial,
				Body: &pform.AssignStmt{
					Kind:   pform.AssignBlocking,
					LValue: sigRef("y"),
					RValue: sigRef("x"),
					Delay:  &pform.DelayTriple{Rise: fromInt64(5, 32, false), Fall: fromInt64(5, 32, false), Decay: fromInt64(5, 32, false)},
				},
			}},
		},
	}
	d := Elaborate(oneModuleForest(top), nil, config.Default())
	require.Equal(t, 0, d.Diags.Count())

	root := d.Roots[0]
	behaviors := d.Behaviors[root]
	require.Len(t, behaviors, 1)

	seq, ok := behaviors[0].(*procgraph.SeqBlockStmt)
	require.True(t, ok, "expected the delayed assign to lower to a capture/commit SeqBlockStmt, got %T", behaviors[0])
	require.Len(t, seq.Stmts, 2)

	capture, ok := seq.Stmts[0].(*procgraph.AssignStmt)
	require.True(t, ok, "capture statement should be a plain AssignStmt, got %T", seq.Stmts[0])
	tmpRef, ok := capture.LValue.(*procgraph.SignalRef)
	require.True(t, ok)
	assert.NotEqual(t, "y", tmpRef.Signal.Name)

	commit, ok := seq.Stmts[1].(*procgraph.DelayStmt)
	require.True(t, ok, "commit statement should be a DelayStmt, got %T", seq.Stmts[1])
	commitAssign, ok := commit.Body.(*procgraph.AssignStmt)
	require.True(t, ok)
	lhsRef, ok := commitAssign.LValue.(*procgraph.SignalRef)
	require.True(t, ok)
	assert.Equal(t, "y", lhsRef.Signal.Name)
	rhsRef, ok := commitAssign.RValue.(*procgraph.SignalRef)
	require.True(t, ok)
	assert.Equal(t, tmpRef.Signal.Name, rhsRef.Signal.Name, "commit should read back the captured temporary")
}

// TestEventControlStarExpandsToReadSet covers spec §8 scenario 5: `@*`
// expands to the body's read set; a signal the body only writes is not probed.
func TestEventControlStarExpandsToReadSet(t *testing.T) {
	top := &pform.Module{
		Name: "top",
		Body: pform.ModuleBody{
			Signals: []pform.SignalDecl{{Name: "a"}, {Name: "b"}, {Name: "y"}},
			Behaviors: []pform.Behavior{{
				Kind: pform.Always,
				Body: &pform.EventControlStmt{
					Star: true,
					Body: &pform.AssignStmt{
						Kind:   pform.AssignBlocking,
						LValue: sigRef("y"),
						RValue: &pform.BinaryExpr{Op: pform.BinAnd, Left: sigRef("a"), Right: sigRef("b")},
					},
				},
			}},
		},
	}
	d := Elaborate(oneModuleForest(top), nil, config.Default())
	require.Equal(t, 0, d.Diags.Count())

	root := d.Roots[0]
	behaviors := d.Behaviors[root]
	require.Len(t, behaviors, 1)

	ec, ok := behaviors[0].(*procgraph.EventControlStmt)
	require.True(t, ok, "expected always @* to lower to an EventControlStmt, got %T", behaviors[0])
	require.Len(t, ec.Probes, 2)

	names := make(map[string]procgraph.Edge, len(ec.Probes))
	for _, p := range ec.Probes {
		ref, ok := p.Value.(*procgraph.SignalRef)
		require.True(t, ok)
		names[ref.Signal.Name] = p.Edge
	}
	assert.Contains(t, names, "a")
	assert.Contains(t, names, "b")
	assert.NotContains(t, names, "y", "a written-only signal must not appear in the @* probe set")
	for _, edge := range names {
		assert.Equal(t, procgraph.EdgeAny, edge)
	}
}

// TestAlwaysWithoutDelayIsFatal covers spec §4.5's always-without-delay
// check: a purely combinational-looking body with no time-control construct
// anywhere is a genuine zero-time infinite loop, reported as an error.
func TestAlwaysWithoutDelayIsFatal(t *testing.T) {
	top := &pform.Module{
		Name: "top",
		Body: pform.ModuleBody{
			Signals: []pform.SignalDecl{{Name: "y"}},
			Behaviors: []pform.Behavior{{
				Kind: pform.Always,
				Body: &pform.AssignStmt{Kind: pform.AssignBlocking, LValue: sigRef("y"), RValue: constBit(1)},
			}},
		},
	}
	d := Elaborate(oneModuleForest(top), nil, config.Default())
	assert.True(t, d.Diags.Failed())
}

// TestAlwaysWithConditionalDelayWarns covers the POSSIBLE_DELAY case: a time
// control exists, but only inside one arm of a conditional, so whether the
// block actually yields depends on runtime data -- a warning, not an error.
func TestAlwaysWithConditionalDelayWarns(t *testing.T) {
	top := &pform.Module{
		Name: "top",
		Body: pform.ModuleBody{
			Signals: []pform.SignalDecl{{Name: "cond"}, {Name: "y"}},
			Behaviors: []pform.Behavior{{
				Kind: pform.Always,
				Body: &pform.CondStmt{
					Cond: sigRef("cond"),
					Then: &pform.DelayStmt{Delay: fromInt64(1, 32, false), Body: &pform.AssignStmt{Kind: pform.AssignBlocking, LValue: sigRef("y"), RValue: constBit(1)}},
					Else: &pform.AssignStmt{Kind: pform.AssignBlocking, LValue: sigRef("y"), RValue: constBit(0)},
				},
			}},
		},
	}
	flags := config.Default()
	flags.WarnInfLoop = true
	d := Elaborate(oneModuleForest(top), nil, flags)
	require.False(t, d.Diags.Failed())
	assert.Greater(t, len(d.Diags.All()), 0)
}
