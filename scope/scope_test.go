package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/nenuphar/netlist"
	"github.com/mna/nenuphar/scope"
)

func TestPathJoinsHierarchicalNames(t *testing.T) {
	root := scope.New("top", scope.ModuleScope, nil)
	child := root.NewChild("sub", scope.ModuleScope, nil)
	grandchild := child.NewChild("leaf", scope.NamedBlockScope, nil)

	assert.Equal(t, "top", root.Path())
	assert.Equal(t, "top.sub", child.Path())
	assert.Equal(t, "top.sub.leaf", grandchild.Path())
}

func TestNewChildInheritsTimeUnitWhenNoTemplate(t *testing.T) {
	root := scope.New("top", scope.ModuleScope, nil)
	root.TimeUnit = 2
	root.TimePrecision = 1

	child := root.NewChild("blk", scope.NamedBlockScope, nil)
	assert.Equal(t, 2, child.TimeUnit)
	assert.Equal(t, 1, child.TimePrecision)
}

func TestLocalSymbolIsUniquePerScope(t *testing.T) {
	s := scope.New("top", scope.ModuleScope, nil)
	a := s.LocalSymbol("t")
	b := s.LocalSymbol("t")
	assert.NotEqual(t, a, b)
}

func TestNextGenBlockNameIsPositional(t *testing.T) {
	s := scope.New("top", scope.ModuleScope, nil)
	assert.Equal(t, "genblk1", s.NextGenBlockName())
	assert.Equal(t, "genblk2", s.NextGenBlockName())
}

func TestResolveFindsSignalInOwnScope(t *testing.T) {
	s := scope.New("top", scope.ModuleScope, nil)
	sig := &netlist.Signal{Name: "clk", Width: 1}
	s.Signals.Put("clk", sig)

	res := s.Resolve("clk")
	require.Equal(t, scope.ResolveSignal, res.Kind)
	assert.Same(t, sig, res.Signal)
	assert.Same(t, s, res.Scope)
}

func TestResolveWalksOutToParent(t *testing.T) {
	root := scope.New("top", scope.ModuleScope, nil)
	sig := &netlist.Signal{Name: "clk", Width: 1}
	root.Signals.Put("clk", sig)

	child := root.NewChild("blk", scope.NamedBlockScope, nil)
	res := child.Resolve("clk")
	require.Equal(t, scope.ResolveSignal, res.Kind)
	assert.Same(t, root, res.Scope)
}

func TestResolveReturnsNoneWhenNotFound(t *testing.T) {
	s := scope.New("top", scope.ModuleScope, nil)
	res := s.Resolve("nope")
	assert.Equal(t, scope.ResolveNone, res.Kind)
}

func TestResolveChecksParamsEventsTasksFuncs(t *testing.T) {
	s := scope.New("top", scope.ModuleScope, nil)
	s.Params["WIDTH"] = &scope.ParamSlot{Name: "WIDTH"}
	assert.Equal(t, scope.ResolveParam, s.Resolve("WIDTH").Kind)

	s.Events["e"] = &netlist.Event{}
	assert.Equal(t, scope.ResolveEvent, s.Resolve("e").Kind)

	s.Tasks["do_thing"] = nil
	assert.Equal(t, scope.ResolveTask, s.Resolve("do_thing").Kind)

	s.Funcs["compute"] = nil
	assert.Equal(t, scope.ResolveFunc, s.Resolve("compute").Kind)
}

func TestResolvePathWalksChildrenByName(t *testing.T) {
	root := scope.New("top", scope.ModuleScope, nil)
	mid := root.NewChild("mid", scope.ModuleScope, nil)
	leaf := mid.NewChild("leaf", scope.ModuleScope, nil)

	got, ok := scope.ResolvePath(root, []string{"mid", "leaf"})
	require.True(t, ok)
	assert.Same(t, leaf, got)

	_, ok = scope.ResolvePath(root, []string{"mid", "missing"})
	assert.False(t, ok)
}
