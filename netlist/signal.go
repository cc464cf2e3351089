package netlist

// PortDirection mirrors pform.PortDirection but is redeclared here since
// netlist is the post-elaboration, frozen side of the boundary (spec §3:
// "PForm (input, immutable during elaboration)" vs. the netlist it feeds).
type PortDirection uint8

const (
	NotAPort PortDirection = iota
	Input
	Output
	Inout
	Implicit
)

// DataType is a signal's value domain.
type DataType uint8

const (
	Logic DataType = iota
	Bool
	Real
)

// NetType is the declared net kind.
type NetType uint8

const (
	Wire NetType = iota
	Tri
	Reg
	Supply0Net
	Supply1Net
	TriAnd
	TriOr
	TriReg
	Trireg
)

// Signal is a materialized net or register (spec §4.3). Every signal
// belongs to exactly one scope; its hierarchical name is its scope path dot
// its local name (spec §3 invariant) -- that path is recorded by the owning
// scope, not duplicated here, so Signal itself only carries its local name.
type Signal struct {
	Name      string
	Width     int
	BigEndian bool // true when declared [msb:lsb] with msb > lsb
	ArrayDims []int
	Type      NetType
	DataType  DataType
	Signed    bool
	Direction PortDirection

	// Nexus is the signal's own electrical node for a scalar signal, or the
	// per-bit nexuses for an expanded vector when the structural elaborator
	// needs bit-level granularity (e.g. a gate-array PartSelect source).
	// Most consumers only need the whole-signal Nexus.
	Nexus *Nexus
}

// IsMemory reports whether this signal is a multi-dimensional "memory"
// declaration (spec §4.3).
func (s *Signal) IsMemory() bool { return len(s.ArrayDims) > 0 }
