// Package scope implements the hierarchical scope tree (spec §3 "Scope
// tree") and the work-list driver that builds it (spec §4.1). It is the
// generalization of the teacher's block-scoped binding resolver
// (lang/resolver/resolver.go) from a single function-nesting discipline to
// the richer module/task/function/named-block/generate-block nesting an HDL
// elaborator needs, plus the defparam/parameter two-pass fix-point the
// teacher's language has no equivalent of.
package scope

import (
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/mna/nenuphar/netlist"
	"github.com/mna/nenuphar/pform"
)

// Kind is the scope's role in the hierarchy (spec §3).
type Kind uint8

const (
	ModuleScope Kind = iota
	TaskScope
	FunctionScope
	NamedBlockScope
	GenerateBlockScope
)

// ParamState distinguishes a parameter slot that still needs evaluating
// from one that has folded to a constant, or one overridden elsewhere
// (spec §3 "parameter table").
type ParamState uint8

const (
	ParamUnevaluated ParamState = iota
	ParamEvaluated
	ParamOverridden
)

// ParamSlot is one entry of a scope's parameter table.
type ParamSlot struct {
	Name       string
	Expr       pform.Expr // the declared default expression
	State      ParamState
	Const      *pform.ConstVector // set once State == ParamEvaluated (vector case)
	ConstReal  *pform.ConstReal   // set once State == ParamEvaluated (real case)
	OverriddenBy string           // hierarchical path of the defparam that targets this slot
}

// Scope is one node of the hierarchical-name tree. Children are keyed by
// their hierarchical-name component (spec §3); arrayed module instances are
// additionally grouped under InstanceArrays so port-binding can address the
// whole array at once.
type Scope struct {
	Parent   *Scope
	Name     string // this scope's local hierarchical-name component
	Kind     Kind
	Template *pform.Module // nil for task/function/named-block/generate scopes

	Children map[string]*Scope

	Params    map[string]*ParamSlot
	Specparams map[string]*ParamSlot
	Events    map[string]*netlist.Event
	Signals   *swiss.Map[string, *netlist.Signal]

	Tasks map[string]*pform.TaskDecl
	Funcs map[string]*pform.FuncDecl

	TimeUnit       int
	TimePrecision  int
	DefaultNetType pform.NetType

	localSymCounter int
	genblkCounter   int
}

// New creates a root scope (a top-level module instance with no parent).
func New(name string, kind Kind, tmpl *pform.Module) *Scope {
	s := &Scope{
		Name:       name,
		Kind:       kind,
		Template:   tmpl,
		Children:   make(map[string]*Scope),
		Params:     make(map[string]*ParamSlot),
		Specparams: make(map[string]*ParamSlot),
		Events:     make(map[string]*netlist.Event),
		Signals:    swiss.NewMap[string, *netlist.Signal](8),
		Tasks:      make(map[string]*pform.TaskDecl),
		Funcs:      make(map[string]*pform.FuncDecl),
	}
	if tmpl != nil {
		s.TimeUnit = tmpl.TimeUnit
		s.TimePrecision = tmpl.TimePrecision
		s.DefaultNetType = tmpl.DefaultNetType
	}
	return s
}

// NewChild creates and registers a child scope under s, inheriting its
// time-unit/precision/default-net-type (spec §4.1: "copy time-unit/
// precision/default-net-type from the template").
func (s *Scope) NewChild(name string, kind Kind, tmpl *pform.Module) *Scope {
	c := New(name, kind, tmpl)
	c.Parent = s
	if tmpl == nil {
		c.TimeUnit = s.TimeUnit
		c.TimePrecision = s.TimePrecision
		c.DefaultNetType = s.DefaultNetType
	}
	s.Children[name] = c
	return c
}

// Path returns the dot-separated hierarchical name from the root to s.
func (s *Scope) Path() string {
	if s.Parent == nil {
		return s.Name
	}
	return s.Parent.Path() + "." + s.Name
}

// LocalSymbol mints a fresh synthetic local-name component, unique within
// s, for elaboration-created entities (temporaries, synthetic gate
// instance names) that have no source name.
func (s *Scope) LocalSymbol(prefix string) string {
	s.localSymCounter++
	return fmt.Sprintf("%s%d", prefix, s.localSymCounter)
}

// NextGenBlockName returns the synthetic "genblk<n>" name for the next
// unnamed generate block under s, where n is a stable positional index
// (spec §4.1).
func (s *Scope) NextGenBlockName() string {
	s.genblkCounter++
	return fmt.Sprintf("genblk%d", s.genblkCounter)
}

// ResolveKind names the table Resolve found an identifier in. Resolve checks
// a scope's own signal/param/event/task/function tables, then each enclosing
// scope's in turn, module scopes included: the walk does not stop at a
// module boundary.
type ResolveKind uint8

const (
	ResolveNone ResolveKind = iota
	ResolveSignal
	ResolveParam
	ResolveEvent
	ResolveTask
	ResolveFunc
)

// Resolution is the result of a name lookup.
type Resolution struct {
	Kind   ResolveKind
	Signal *netlist.Signal
	Param  *ParamSlot
	Event  *netlist.Event
	Task   *pform.TaskDecl
	Func   *pform.FuncDecl
	Scope  *Scope // the scope the entity was actually found in
}

// Resolve implements the symbol-lookup protocol of spec §4.3's invariant:
// "every identifier ... resolves to either a signal, a parameter-constant,
// an event, a task, or a function." Lookup walks outward from s until it
// either finds a match or runs out of ancestors.
func (s *Scope) Resolve(name string) Resolution {
	for cur := s; cur != nil; cur = cur.Parent {
		if sig, ok := cur.Signals.Get(name); ok {
			return Resolution{Kind: ResolveSignal, Signal: sig, Scope: cur}
		}
		if p, ok := cur.Params[name]; ok {
			return Resolution{Kind: ResolveParam, Param: p, Scope: cur}
		}
		if e, ok := cur.Events[name]; ok {
			return Resolution{Kind: ResolveEvent, Event: e, Scope: cur}
		}
		if t, ok := cur.Tasks[name]; ok {
			return Resolution{Kind: ResolveTask, Task: t, Scope: cur}
		}
		if f, ok := cur.Funcs[name]; ok {
			return Resolution{Kind: ResolveFunc, Func: f, Scope: cur}
		}
	}
	return Resolution{Kind: ResolveNone}
}

// ResolvePath resolves a dot-separated hierarchical scope path against the
// tree rooted at root, used by defparam target resolution (spec §4.2) and
// disable-statement target resolution (spec §4.5).
func ResolvePath(root *Scope, path []string) (*Scope, bool) {
	cur := root
	for _, comp := range path {
		next, ok := cur.Children[comp]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}
