package emit

import (
	"github.com/dolthub/swiss"

	"github.com/mna/nenuphar/netlist"
)

// lookasideKey identifies one cached (signal, word-index, bit-offset) read,
// spec §4.6's "expression lookaside keyed by (signal, word-index, bit-offset)
// -> register". WordIndex/BitOffset are 0 for a plain scalar/vector signal
// read with no array indexing or part-select.
type lookasideKey struct {
	signal    *netlist.Signal
	wordIndex int
	bitOffset int
}

// Lookaside caches "this signal is already sitting in register R" so a
// basic block doesn't re-emit a read it already performed. It is grounded
// on the teacher's reuse of github.com/dolthub/swiss elsewhere in the scope
// tree (scope.Scope.Signals) for exactly this "fast struct-keyed map" need.
//
// The cache is strictly local to a basic block (spec §4.6): every routine
// that emits a label or crosses a delay/wait/fork boundary calls Clear, and
// every signal write calls Invalidate for the written signal.
type Lookaside struct {
	entries *swiss.Map[lookasideKey, VecReg]
}

// NewLookaside returns an empty cache.
func NewLookaside() *Lookaside {
	return &Lookaside{entries: swiss.NewMap[lookasideKey, VecReg](16)}
}

// Lookup returns the register already holding sig[bitOffset +: width] at
// the given word index, if the cache still has it.
func (l *Lookaside) Lookup(sig *netlist.Signal, wordIndex, bitOffset int) (VecReg, bool) {
	return l.entries.Get(lookasideKey{sig, wordIndex, bitOffset})
}

// Record remembers that sig's value now sits in reg.
func (l *Lookaside) Record(sig *netlist.Signal, wordIndex, bitOffset int, reg VecReg) {
	l.entries.Put(lookasideKey{sig, wordIndex, bitOffset}, reg)
}

// Clear invalidates every cached entry; called at every label, thread
// start, delay/wait boundary and fork/join point per spec §4.6.
func (l *Lookaside) Clear() {
	l.entries = swiss.NewMap[lookasideKey, VecReg](16)
}

// Invalidate drops every cached entry for one signal (a narrower form of
// Clear used after a write whose fanout is known to be limited to that
// signal, e.g. the per-l-value invalidation spec §4.6 item 1 calls for
// after each %set family write).
func (l *Lookaside) Invalidate(sig *netlist.Signal) {
	var stale []lookasideKey
	l.entries.Iter(func(k lookasideKey, _ VecReg) bool {
		if k.signal == sig {
			stale = append(stale, k)
		}
		return false
	})
	for _, k := range stale {
		l.entries.Delete(k)
	}
}
