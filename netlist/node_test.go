package netlist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mna/nenuphar/netlist"
)

func TestTranPinCountByKind(t *testing.T) {
	cases := []struct {
		kind  netlist.TranKind
		pins  int
	}{
		{netlist.Tran, 2},
		{netlist.Rtran, 2},
		{netlist.TranIf0, 3},
		{netlist.TranIf1, 3},
		{netlist.RtranIf0, 3},
		{netlist.RtranIf1, 3},
	}
	for _, c := range cases {
		tr := netlist.NewTran(netlist.Line{File: "a.v", Num: 1}, c.kind)
		assert.Len(t, tr.Pins(), c.pins)
	}
}

func TestBUFZHasTwoPinsOutputThenInput(t *testing.T) {
	b := netlist.NewBUFZ(netlist.Line{File: "a.v", Num: 2})
	pins := b.Pins()
	assert.Len(t, pins, 2)
	assert.Same(t, netlist.Node(b), pins[0].Node)
	assert.Equal(t, 0, pins[0].Index)
	assert.Equal(t, 1, pins[1].Index)
}

func TestConcatPinCountIsOnePlusOperands(t *testing.T) {
	c := netlist.NewConcat(netlist.Line{}, []int{4, 8, 1})
	assert.Len(t, c.Pins(), 4)
}

func TestUDPPinCountIsOnePlusInputs(t *testing.T) {
	u := netlist.NewUDP(netlist.Line{}, "mux21", 3)
	assert.Len(t, u.Pins(), 4)
	assert.Equal(t, "mux21", u.TypeName)
}

func TestNetWrapsItsSignal(t *testing.T) {
	sig := &netlist.Signal{Name: "w1", Width: 1}
	n := netlist.NewNet(netlist.Line{}, sig)
	assert.Len(t, n.Pins(), 1)
	assert.Same(t, sig, n.Signal)
}

func TestLineRoundTrips(t *testing.T) {
	r := netlist.NewReplicate(netlist.Line{File: "f.v", Num: 7}, 4)
	assert.Equal(t, netlist.Line{File: "f.v", Num: 7}, r.Line())
	assert.Equal(t, 4, r.Count)
}
