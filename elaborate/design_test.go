package elaborate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/nenuphar/config"
	"github.com/mna/nenuphar/pform"
	"github.com/mna/nenuphar/scope"
)

func constBit(v byte) *pform.ConstVector {
	return &pform.ConstVector{Width: 1, Bits: []byte{v}}
}

func msbLsb(msb, lsb int64) *pform.Range {
	return &pform.Range{MSB: fromInt64(msb, 32, false), LSB: fromInt64(lsb, 32, false)}
}

func sigRef(name string) *pform.SignalRef { return &pform.SignalRef{Name: name} }

func oneModuleForest(top *pform.Module) *pform.Forest {
	return &pform.Forest{
		Modules: map[string]*pform.Module{top.Name: top},
		Roots:   []string{top.Name},
	}
}

// TestIdentityBufferElaboratesWithoutDiagnostics covers spec §8 scenario 1:
// `assign y = a;` between two equal-width ports needs no width-reconciling
// node and reports no errors.
func TestIdentityBufferElaboratesWithoutDiagnostics(t *testing.T) {
	top := &pform.Module{
		Name:  "top",
		Ports: []pform.Port{{Name: "a", Internal: []string{"a"}}, {Name: "y", Internal: []string{"y"}}},
		Body: pform.ModuleBody{
			Signals: []pform.SignalDecl{
				{Name: "a", Range: msbLsb(3, 0), Direction: pform.Input},
				{Name: "y", Range: msbLsb(3, 0), Direction: pform.Output},
			},
			Assigns: []pform.ContinuousAssign{{LValue: sigRef("y"), RValue: sigRef("a")}},
		},
	}

	d := Elaborate(oneModuleForest(top), nil, config.Default())
	require.Equal(t, 0, d.Diags.Count())
	require.Len(t, d.Roots, 1)

	root := d.Roots[0]
	a, ok := root.Signals.Get("a")
	require.True(t, ok)
	y, ok := root.Signals.Get("y")
	require.True(t, ok)
	assert.Equal(t, 4, a.Width)
	assert.Equal(t, 4, y.Width)
	// A matching-width assign merges nexuses directly: no BUFZ is inserted,
	// so y's nexus carries no pins of its own beyond whatever a's carried.
	require.NotNil(t, y.Nexus)
	assert.Empty(t, y.Nexus.Pins)
}

// TestStrengthCarryingAssignInsertsBUFZ covers spec §8 scenario 2: a
// drive-strength-annotated assign always goes through a synthetic BUFZ so
// the strength has somewhere to attach.
func TestStrengthCarryingAssignInsertsBUFZ(t *testing.T) {
	top := &pform.Module{
		Name: "top",
		Body: pform.ModuleBody{
			Signals: []pform.SignalDecl{
				{Name: "a", Direction: pform.Input},
				{Name: "y", Direction: pform.Output},
			},
			Assigns: []pform.ContinuousAssign{{
				LValue:   sigRef("y"),
				RValue:   sigRef("a"),
				Strength: pform.StrengthPair{Strength0: pform.Weak, Strength1: pform.Pull},
			}},
		},
	}

	d := Elaborate(oneModuleForest(top), nil, config.Default())
	require.Equal(t, 0, d.Diags.Count())
	root := d.Roots[0]
	y, ok := root.Signals.Get("y")
	require.True(t, ok)
	require.Len(t, y.Nexus.Pins, 1)
	_, drive1, _ := y.Nexus.Endpoint(y.Nexus.Pins[0])
	assert.Equal(t, byte(pform.Pull), byte(drive1))
}

// TestParamOverrideFlowsThroughInstance covers review comment #2's fix:
// ModuleInstance.ParamOverrides wired into scope.ParamSlot the same way a
// defparam target is, so a width depending on the overridden parameter
// reflects the instance's own value rather than the template default.
func TestParamOverrideFlowsThroughInstance(t *testing.T) {
	sub := &pform.Module{
		Name: "sub",
		Ports: []pform.Port{{Name: "y", Internal: []string{"y"}}},
		Body: pform.ModuleBody{
			Params: []pform.ParamDecl{{Name: "WIDTH", Default: fromInt64(1, 32, false)}},
			Signals: []pform.SignalDecl{
				{Name: "y", Range: &pform.Range{MSB: &pform.SignalRef{Name: "WIDTH"}, LSB: fromInt64(0, 32, false)}, Direction: pform.Output},
			},
		},
	}
	top := &pform.Module{
		Name: "top",
		Body: pform.ModuleBody{
			Instances: []pform.ModuleInstance{{
				TypeName:       "sub",
				InstName:       "u1",
				ParamOverrides: []pform.PortConnection{{Name: "WIDTH", Value: fromInt64(8, 32, false)}},
				Connections:    []pform.PortConnection{{Name: "y", Value: sigRef("w")}},
			}},
			Signals: []pform.SignalDecl{{Name: "w", Range: msbLsb(7, 0)}},
		},
	}
	forest := &pform.Forest{
		Modules: map[string]*pform.Module{"top": top, "sub": sub},
		Roots:   []string{"top"},
	}

	d := Elaborate(forest, nil, config.Default())
	require.Equal(t, 0, d.Diags.Count())

	root := d.Roots[0]
	u1, ok := root.Children["u1"]
	require.True(t, ok)
	slot, ok := u1.Params["WIDTH"]
	require.True(t, ok)
	assert.Equal(t, scope.ParamOverridden, slot.State)
	n, ok := toInt64(slot.Const)
	require.True(t, ok)
	assert.Equal(t, int64(8), n)

	y, ok := u1.Signals.Get("y")
	require.True(t, ok)
	// y is declared [WIDTH:0], so WIDTH=8 gives |8-0|+1 = 9 bits.
	assert.Equal(t, 9, y.Width)
}
