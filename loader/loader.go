// Package loader declares the Loader contract (spec §6): the
// preprocessor/library-search "load on demand" component is an external
// collaborator out of scope for this module, specified here only by its
// contract.
package loader

// Loader attempts to extend the PForm forest with the definition of an
// unknown type name. LoadModule(name) returns true if it succeeded, in
// which case the Scope Builder retries the lookup in pform.Forest; it
// returns false if the type genuinely could not be found, in which case the
// Scope Builder records an "unknown module/type" error (spec §7) and
// creates an empty scope so elaboration can continue.
//
// The Scope Builder calls LoadModule at most once per unknown type name
// (spec §6): a second instantiation of the same still-unknown type does not
// re-invoke the loader.
type Loader interface {
	LoadModule(typeName string) bool
}

// Func adapts a plain function to the Loader interface, the way callers
// that don't need a stateful loader (e.g. tests, or a loader backed by a
// single in-memory map) typically construct one.
type Func func(typeName string) bool

func (f Func) LoadModule(typeName string) bool { return f(typeName) }

// None is a Loader that never resolves anything, for PForm fixtures that
// are already closed (every instantiated type has a template).
var None Loader = Func(func(string) bool { return false })
