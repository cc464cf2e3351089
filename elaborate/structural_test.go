package elaborate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/nenuphar/config"
	"github.com/mna/nenuphar/diag"
	"github.com/mna/nenuphar/netlist"
	"github.com/mna/nenuphar/pform"
	"github.com/mna/nenuphar/scope"
)

func subModule(name string, portWidth int, dir pform.PortDirection) *pform.Module {
	return &pform.Module{
		Name:  name,
		Ports: []pform.Port{{Name: "p", Internal: []string{"p"}}},
		Body: pform.ModuleBody{
			Signals: []pform.SignalDecl{
				{Name: "p", Range: msbLsb(int64(portWidth-1), 0), Direction: dir},
			},
		},
	}
}

// TestModuleInstanceNamedAndPositionalBindEquivalently regression-tests
// review comment #1: a scalar instance connected by name and the same
// instance connected positionally must bind the same port.
func TestModuleInstanceNamedAndPositionalBindEquivalently(t *testing.T) {
	sub := subModule("sub", 1, pform.Input)
	top := &pform.Module{
		Name: "top",
		Body: pform.ModuleBody{
			Signals: []pform.SignalDecl{{Name: "a"}},
			Instances: []pform.ModuleInstance{
				{TypeName: "sub", InstName: "named", Connections: []pform.PortConnection{{Name: "p", Value: sigRef("a")}}},
				{TypeName: "sub", InstName: "positional", Connections: []pform.PortConnection{{Value: sigRef("a")}}},
			},
		},
	}
	forest := &pform.Forest{Modules: map[string]*pform.Module{"top": top, "sub": sub}, Roots: []string{"top"}}

	d := Elaborate(forest, nil, config.Default())
	require.Equal(t, 0, d.Diags.Count())

	root := d.Roots[0]
	a, ok := root.Signals.Get("a")
	require.True(t, ok)

	_ = a
	for _, instName := range []string{"named", "positional"} {
		child, ok := root.Children[instName]
		require.True(t, ok)
		_, ok = child.Signals.Get("p")
		require.True(t, ok, "instance %s should have its internal port signal materialized", instName)
	}
}

// TestModuleInstanceRejectsMixedConnectionStyles covers spec §4.4.3: mixing
// named and positional connections in one instance is an error.
func TestModuleInstanceRejectsMixedConnectionStyles(t *testing.T) {
	sub := subModule("sub", 1, pform.Input)
	top := &pform.Module{
		Name: "top",
		Body: pform.ModuleBody{
			Signals: []pform.SignalDecl{{Name: "a"}, {Name: "b"}},
			Instances: []pform.ModuleInstance{
				{TypeName: "sub", InstName: "u1", Connections: []pform.PortConnection{
					{Value: sigRef("a")},
					{Name: "p", Value: sigRef("b")},
				}},
			},
		},
	}
	forest := &pform.Forest{Modules: map[string]*pform.Module{"top": top, "sub": sub}, Roots: []string{"top"}}

	d := Elaborate(forest, nil, config.Default())
	assert.Greater(t, d.Diags.Count(), 0)
}

// TestModuleInstanceArrayDistributes covers spec §4.4.3's instance-array
// distribute rule: an outer connection exactly N*port_width wide splits one
// part per array element via PartSelect(VP).
func TestModuleInstanceArrayDistributes(t *testing.T) {
	sub := subModule("sub", 2, pform.Input)
	top := &pform.Module{
		Name: "top",
		Body: pform.ModuleBody{
			Signals: []pform.SignalDecl{{Name: "a", Range: msbLsb(7, 0)}},
			Instances: []pform.ModuleInstance{
				{TypeName: "sub", InstName: "u", Range: msbLsb(3, 0), Connections: []pform.PortConnection{{Value: sigRef("a")}}},
			},
		},
	}
	forest := &pform.Forest{Modules: map[string]*pform.Module{"top": top, "sub": sub}, Roots: []string{"top"}}

	d := Elaborate(forest, nil, config.Default())
	require.Equal(t, 0, d.Diags.Count())

	root := d.Roots[0]
	for i := 0; i < 4; i++ {
		name := "u[" + itoa(i) + "]"
		child, ok := root.Children[name]
		require.True(t, ok, "missing child scope %s", name)
		_, ok = child.Signals.Get("p")
		require.True(t, ok)
	}

	// The distribute branch always merges through the child's port-internal
	// nexus (the "other" side of Nexus.Merge, left empty once consumed), so
	// the only side that reliably retains its pins is a's own nexus: one
	// PartSelect(VP) vector-side pin per array element, in element order.
	a, ok := root.Signals.Get("a")
	require.True(t, ok)
	require.Len(t, a.Nexus.Pins, 4)
	for i, pin := range a.Nexus.Pins {
		ps, ok := pin.Node.(*netlist.PartSelect)
		require.True(t, ok, "element %d: expected a's pin to be driven by a PartSelect", i)
		assert.Equal(t, i*2, ps.Base)
		assert.Equal(t, 2, ps.Width)
	}
}

// TestModuleInstanceArrayBroadcasts covers spec §4.4.3's broadcast rule: an
// outer connection exactly port_width wide drives every array element with
// the same net.
func TestModuleInstanceArrayBroadcasts(t *testing.T) {
	sub := subModule("sub", 4, pform.Input)
	top := &pform.Module{
		Name: "top",
		Body: pform.ModuleBody{
			Signals: []pform.SignalDecl{{Name: "a", Range: msbLsb(3, 0)}},
			Instances: []pform.ModuleInstance{
				{TypeName: "sub", InstName: "u", Range: msbLsb(2, 0), Connections: []pform.PortConnection{{Value: sigRef("a")}}},
			},
		},
	}
	forest := &pform.Forest{Modules: map[string]*pform.Module{"top": top, "sub": sub}, Roots: []string{"top"}}

	d := Elaborate(forest, nil, config.Default())
	require.Equal(t, 0, d.Diags.Count())

	root := d.Roots[0]
	a, ok := root.Signals.Get("a")
	require.True(t, ok)
	require.Len(t, a.Nexus.Pins, 0, "broadcast reconciles through reconcileWidth/merge, not a per-pin split")
	for i := 0; i < 3; i++ {
		name := "u[" + itoa(i) + "]"
		child, ok := root.Children[name]
		require.True(t, ok)
		_, ok = child.Signals.Get("p")
		require.True(t, ok)
	}
}

// TestModuleInstanceScalarWidthMismatchWarns covers spec §7: a scalar
// instance's port-width mismatch is a warning, not a fatal error, when
// config.Flags.WarnPortBinding is set.
func TestModuleInstanceScalarWidthMismatchWarns(t *testing.T) {
	sub := subModule("sub", 4, pform.Input)
	top := &pform.Module{
		Name: "top",
		Body: pform.ModuleBody{
			Signals:   []pform.SignalDecl{{Name: "a", Range: msbLsb(1, 0)}},
			Instances: []pform.ModuleInstance{{TypeName: "sub", InstName: "u", Connections: []pform.PortConnection{{Value: sigRef("a")}}}},
		},
	}
	forest := &pform.Forest{Modules: map[string]*pform.Module{"top": top, "sub": sub}, Roots: []string{"top"}}

	flags := config.Default()
	flags.WarnPortBinding = true
	d := Elaborate(forest, nil, flags)
	require.False(t, d.Diags.Failed())
	assert.Greater(t, len(d.Diags.All()), 0)
}

// TestModuleInstanceArrayWidthMismatchErrors covers spec §7: the same
// mismatch inside an instance array is always fatal, regardless of
// WarnPortBinding.
func TestModuleInstanceArrayWidthMismatchErrors(t *testing.T) {
	sub := subModule("sub", 4, pform.Input)
	top := &pform.Module{
		Name: "top",
		Body: pform.ModuleBody{
			Signals: []pform.SignalDecl{{Name: "a", Range: msbLsb(1, 0)}},
			Instances: []pform.ModuleInstance{
				{TypeName: "sub", InstName: "u", Range: msbLsb(1, 0), Connections: []pform.PortConnection{{Value: sigRef("a")}}},
			},
		},
	}
	forest := &pform.Forest{Modules: map[string]*pform.Module{"top": top, "sub": sub}, Roots: []string{"top"}}

	flags := config.Default()
	flags.WarnPortBinding = false
	d := Elaborate(forest, nil, flags)
	assert.True(t, d.Diags.Failed())
}

// TestGateArrayCollapsesWhenOutputWidthMatches covers spec §4.4.2's gate-array
// dichotomy invariant: an N-wide gate array whose output matches the
// collapsed width stays one gate, never N.
func TestGateArrayCollapsesWhenOutputWidthMatches(t *testing.T) {
	s := scope.New("top", scope.ModuleScope, nil)
	str := &StructuralElaborator{Diags: &diag.Counter{}, Flags: config.Default(), Design: &Design{}}
	g := pform.Gate{
		Kind:   pform.GateAnd,
		Range:  msbLsb(3, 0),
		Output: sigRef("y"),
		Inputs: []pform.Expr{sigRef("x1"), sigRef("x2")},
	}
	s.Signals.Put("y", &netlist.Signal{Name: "y", Width: 4})
	s.Signals.Put("x1", &netlist.Signal{Name: "x1", Width: 1})
	s.Signals.Put("x2", &netlist.Signal{Name: "x2", Width: 1})

	str.gate(s, g)

	y, _ := s.Signals.Get("y")
	require.NotNil(t, y.Nexus)
	require.Len(t, y.Nexus.Pins, 1)
	logic, ok := y.Nexus.Pins[0].Node.(*netlist.Logic)
	require.True(t, ok)
	assert.Equal(t, 4, logic.Width)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
