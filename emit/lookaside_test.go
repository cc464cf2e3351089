package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mna/nenuphar/netlist"
)

func TestLookasideRecordAndLookup(t *testing.T) {
	l := NewLookaside()
	sig := &netlist.Signal{Name: "foo", Width: 8}

	_, ok := l.Lookup(sig, 0, 0)
	assert.False(t, ok)

	reg := VecReg{Base: 3, Width: 8}
	l.Record(sig, 0, 0, reg)

	got, ok := l.Lookup(sig, 0, 0)
	assert.True(t, ok)
	assert.Equal(t, reg, got)

	// a different word index/bit offset on the same signal is a distinct key.
	_, ok = l.Lookup(sig, 1, 0)
	assert.False(t, ok)
}

func TestLookasideClearDropsEverything(t *testing.T) {
	l := NewLookaside()
	sigA := &netlist.Signal{Name: "a", Width: 1}
	sigB := &netlist.Signal{Name: "b", Width: 1}
	l.Record(sigA, 0, 0, VecReg{Base: 1, Width: 1})
	l.Record(sigB, 0, 0, VecReg{Base: 2, Width: 1})

	l.Clear()

	_, ok := l.Lookup(sigA, 0, 0)
	assert.False(t, ok)
	_, ok = l.Lookup(sigB, 0, 0)
	assert.False(t, ok)
}

func TestLookasideInvalidateIsPerSignal(t *testing.T) {
	l := NewLookaside()
	sigA := &netlist.Signal{Name: "a", Width: 1}
	sigB := &netlist.Signal{Name: "b", Width: 1}
	l.Record(sigA, 0, 0, VecReg{Base: 1, Width: 1})
	l.Record(sigA, 1, 0, VecReg{Base: 2, Width: 1})
	l.Record(sigB, 0, 0, VecReg{Base: 3, Width: 1})

	l.Invalidate(sigA)

	_, ok := l.Lookup(sigA, 0, 0)
	assert.False(t, ok, "every entry for the invalidated signal must be gone")
	_, ok = l.Lookup(sigA, 1, 0)
	assert.False(t, ok)

	got, ok := l.Lookup(sigB, 0, 0)
	assert.True(t, ok, "entries for other signals must survive")
	assert.Equal(t, VecReg{Base: 3, Width: 1}, got)
}
