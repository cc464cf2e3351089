package netlist

// Node is any structural netlist node: the common capability set spec §3
// names {has-pins, has-line-info, has-attributes}. The universe of variants
// is closed (Logic, Tran, PartSelect, Concat, Replicate, BUFZ, UDP, Net,
// DelaySrc); dispatch is by type switch, not a deep interface hierarchy
// (spec §9 "Polymorphic dispatch").
type Node interface {
	// Pins returns the node's ordered pin array.
	Pins() []*Pin
	// Line returns the source-file-line this node was elaborated from.
	Line() Line
}

// Line is the has-line-info capability.
type Line struct {
	File string
	Num  int
}

type nodeBase struct {
	line Line
	pins []*Pin
}

func newNodeBase(line Line, npins int) nodeBase {
	nb := nodeBase{line: line, pins: make([]*Pin, npins)}
	return nb
}

func (n *nodeBase) Pins() []*Pin { return n.pins }
func (n *nodeBase) Line() Line   { return n.line }

func (n *nodeBase) initPin(self Node, i int) *Pin {
	p := &Pin{Node: self, Index: i}
	n.pins[i] = p
	return p
}

// LogicKind enumerates the gate/switch primitive families (spec §3, §4.4.2).
type LogicKind uint8

const (
	And LogicKind = iota
	Nand
	Or
	Nor
	Xor
	Xnor
	Buf
	Not
	BufIf0
	BufIf1
	NotIf0
	NotIf1
	Cmos
	Rcmos
	Nmos
	Pmos
	Rnmos
	Rpmos
	Pullup
	Pulldown
)

// Logic is a scalar or wide logic/switch gate. Width is the bit-width of a
// single collapsed gate (spec §4.4.2: a gate array either collapses to one
// wide gate or expands to N scalar gates -- never in between).
type Logic struct {
	nodeBase
	Kind  LogicKind
	Width int
	Delay *Delay
}

// NewLogic allocates a Logic node with the pin count required by Kind's
// family (spec §4.4.2 per-gate-family pin-count rules). Pin 0 is always the
// output except for Pullup/Pulldown, whose single pin is the output.
func NewLogic(line Line, kind LogicKind, width, pinCount int) *Logic {
	g := &Logic{nodeBase: newNodeBase(line, pinCount), Kind: kind, Width: width}
	for i := range g.pins {
		g.initPin(g, i)
	}
	return g
}

// TranKind distinguishes the bidirectional-switch family.
type TranKind uint8

const (
	Tran TranKind = iota
	Rtran
	TranIf0
	TranIf1
	RtranIf0
	RtranIf1
)

// Tran is a bidirectional pass-switch (spec §3, §4.4.2: 2 pins for
// TRAN/RTRAN, 3 for the conditional variants). Per spec §9's Open Question,
// RTRAN is elaborated identically to TRAN: no early return short-circuits
// its per-gate finalization.
type Tran struct {
	nodeBase
	Kind TranKind
}

func NewTran(line Line, kind TranKind) *Tran {
	pinCount := 2
	if kind == TranIf0 || kind == TranIf1 || kind == RtranIf0 || kind == RtranIf1 {
		pinCount = 3
	}
	t := &Tran{nodeBase: newNodeBase(line, pinCount), Kind: kind}
	for i := range t.pins {
		t.initPin(t, i)
	}
	return t
}

// PartSelectDir is the direction of a part-select node (spec §3).
type PartSelectDir uint8

const (
	VP PartSelectDir = iota // vector -> part
	PV                      // part -> vector
	BI                      // bidirectional
)

// PartSelect connects a sub-range [Base, Base+Width) of a wider vector to a
// narrower one, in the direction Dir names. Pin 0 is the vector side, pin 1
// the part side.
type PartSelect struct {
	nodeBase
	Dir   PartSelectDir
	Base  int // may be a runtime-computed index; -1 denotes non-constant
	Width int
}

func NewPartSelect(line Line, dir PartSelectDir, base, width int) *PartSelect {
	p := &PartSelect{nodeBase: newNodeBase(line, 2), Dir: dir, Base: base, Width: width}
	p.initPin(p, 0)
	p.initPin(p, 1)
	return p
}

// Concat assembles N narrower inputs (pins 1..N) into one wide output
// (pin 0), MSB-first per Widths order.
type Concat struct {
	nodeBase
	Widths []int
}

func NewConcat(line Line, widths []int) *Concat {
	c := &Concat{nodeBase: newNodeBase(line, 1+len(widths)), Widths: widths}
	for i := range c.pins {
		c.initPin(c, i)
	}
	return c
}

// Replicate is `{N{expr}}`: pin 0 is the output, pin 1 the replicated value.
type Replicate struct {
	nodeBase
	Count int
}

func NewReplicate(line Line, count int) *Replicate {
	r := &Replicate{nodeBase: newNodeBase(line, 2), Count: count}
	r.initPin(r, 0)
	r.initPin(r, 1)
	return r
}

// BUFZ is the synthetic zero-strength-default buffer inserted by the
// Structural Elaborator whenever a continuous assign cannot connect its
// nexuses directly (spec §4.4.1): a delay/strength-carrying driver, or a
// self-loop that needs a driver of its own. Pin 0 is the output, pin 1 the
// input.
type BUFZ struct {
	nodeBase
	Delay    *Delay
	Strength struct{ Drive0, Drive1 DriveStrength }
}

func NewBUFZ(line Line) *BUFZ {
	b := &BUFZ{nodeBase: newNodeBase(line, 2)}
	b.initPin(b, 0)
	b.initPin(b, 1)
	return b
}

// UDP is a user-defined-primitive instance: pin 0 is the output, the rest
// are inputs (spec §4.4.4).
type UDP struct {
	nodeBase
	TypeName string
	Delay    *Delay
}

func NewUDP(line Line, typeName string, inputCount int) *UDP {
	u := &UDP{nodeBase: newNodeBase(line, 1+inputCount), TypeName: typeName}
	for i := range u.pins {
		u.initPin(u, i)
	}
	return u
}

// Net is a plain declared net/register surfaced as a structural node so
// that it can carry a pin for connection purposes distinct from its Signal
// record (spec §3: "Net (wire/tri/reg/supply/...)"). Most signals never
// need this -- it exists for the cases where a bare signal must appear as a
// pin-bearing participant in a larger structural expression (e.g. the
// vector side of an implicit PartSelect).
type Net struct {
	nodeBase
	Signal *Signal
}

func NewNet(line Line, sig *Signal) *Net {
	n := &Net{nodeBase: newNodeBase(line, 1), Signal: sig}
	n.initPin(n, 0)
	return n
}

// DelaySrc is the node a specify path attaches to its destination signal
// (spec §4.4.5): it carries the delay table and the list of source pins
// that gate it, optionally edge-qualified.
type DelaySrc struct {
	nodeBase
	Delays    []Delay // one per (edge-qualified) table entry
	EdgeAware bool
	Condition *Pin // nil if unconditioned
}

func NewDelaySrc(line Line, sourceCount int) *DelaySrc {
	d := &DelaySrc{nodeBase: newNodeBase(line, 1+sourceCount)}
	for i := range d.pins {
		d.initPin(d, i)
	}
	return d
}
