// Package netlist defines the structural output of elaboration: signals,
// polymorphic nodes, pins, nexuses and events (spec §3 "Netlist nodes").
// Everything here is built monotonically during phases 3-5 of the pipeline
// and never freed until the whole design is released as one arena (spec §3
// "Lifecycle").
package netlist

// DriveStrength is one of {HIGHZ, WEAK, PULL, STRONG, SUPPLY} (spec
// Glossary).
type DriveStrength uint8

const (
	HighZ DriveStrength = iota
	Weak
	Pull
	Strong
	Supply
)

// Delay is a (rise, fall, decay) triple in design-precision time units.
type Delay struct {
	Rise, Fall, Decay int64
}

// Pin is one endpoint belonging to exactly one Node and exactly one Nexus
// (spec §3 invariant). Index is the pin's position in its owning node's
// ordered pin array.
type Pin struct {
	Node  Node
	Index int
	Nexus *Nexus
}

// Pin-level drive/delay annotation, stored on the Nexus keyed by the pin
// that carries it since a nexus can aggregate several drivers with
// different strengths (spec §3: "Every nexus carries, per endpoint: ...").
type endpointAttrs struct {
	Drive0, Drive1 DriveStrength
	Delay          *Delay // nil if this endpoint carries no delay annotation
}

// Nexus is an equivalence class of pins under the connect relation: one
// electrical node in the design (spec Glossary). Nexus equivalence classes
// partition the pin set (spec §8 invariant).
type Nexus struct {
	Name  string // hierarchical name of the representative signal, for diagnostics
	Pins  []*Pin
	attrs map[*Pin]endpointAttrs
}

// NewNexus creates a nexus containing no pins yet.
func NewNexus(name string) *Nexus {
	return &Nexus{Name: name, attrs: make(map[*Pin]endpointAttrs)}
}

// Contains reports whether p is a member of this nexus (spec §8 invariant:
// "p.nexus.contains(p)").
func (n *Nexus) Contains(p *Pin) bool {
	for _, q := range n.Pins {
		if q == p {
			return true
		}
	}
	return false
}

// Add attaches a pin to this nexus with the given drive/delay annotation.
func (n *Nexus) Add(p *Pin, drive0, drive1 DriveStrength, delay *Delay) {
	p.Nexus = n
	n.Pins = append(n.Pins, p)
	n.attrs[p] = endpointAttrs{Drive0: drive0, Drive1: drive1, Delay: delay}
}

// Endpoint returns the recorded drive/delay annotation for p, which must
// already be a member of this nexus.
func (n *Nexus) Endpoint(p *Pin) (drive0, drive1 DriveStrength, delay *Delay) {
	a := n.attrs[p]
	return a.Drive0, a.Drive1, a.Delay
}

// Merge folds other into n, preserving every pin's strength and delay
// annotation (spec §3 invariant: "merges preserve strength and delay
// annotations"). other is left empty and every formerly-other pin now
// belongs to n. The connect relation this establishes is symmetric and
// transitive since Merge is the only way two nexuses ever combine.
func (n *Nexus) Merge(other *Nexus) {
	if n == other {
		return
	}
	for _, p := range other.Pins {
		a := other.attrs[p]
		p.Nexus = n
		n.Pins = append(n.Pins, p)
		n.attrs[p] = a
	}
	other.Pins = nil
	other.attrs = nil
}

// Connect merges the nexuses of two pins, creating a nexus for either pin
// that does not yet have one. It is the general entry point structural
// elaboration uses to join two endpoints (spec §3: "the connect relation").
func Connect(a, b *Pin) {
	switch {
	case a.Nexus == nil && b.Nexus == nil:
		nx := NewNexus("")
		nx.Add(a, HighZ, HighZ, nil)
		nx.Add(b, HighZ, HighZ, nil)
	case a.Nexus == nil:
		b.Nexus.Add(a, HighZ, HighZ, nil)
	case b.Nexus == nil:
		a.Nexus.Add(b, HighZ, HighZ, nil)
	default:
		a.Nexus.Merge(b.Nexus)
	}
}
