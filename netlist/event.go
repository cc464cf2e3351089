package netlist

// Edge is the polarity an Event probe detects.
type Edge uint8

const (
	EdgePos Edge = iota
	EdgeNeg
	EdgeAny
)

// Probe is an edge detector feeding an Event (spec Glossary).
type Probe struct {
	Signal *Signal
	Edge   Edge
}

// Event is a nexus-like rendezvous: fanned-in by probes and/or trigger
// statements, fanned-out to wait statements (spec §3 "Events").
type Event struct {
	Name   string
	Probes []Probe
	// Triggers counts how many `->event;` statements fan into this event;
	// the event itself has no per-trigger identity to track, only the count
	// matters for diagnostics ("unreferenced event" detection).
	Triggers int
	// Waits counts how many wait nodes fan out from this event. A wait node
	// whose event set is empty is a spec §8 invariant violation; Waits lets
	// validation detect an event nobody actually waits on, too.
	Waits int
}

// NewEvent creates an unreferenced event (no probes, no triggers, no
// waiters yet).
func NewEvent(name string) *Event {
	return &Event{Name: name}
}

// AddProbe fans a probe into the event.
func (e *Event) AddProbe(sig *Signal, edge Edge) {
	e.Probes = append(e.Probes, Probe{Signal: sig, Edge: edge})
}
