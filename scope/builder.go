package scope

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/mna/nenuphar/config"
	"github.com/mna/nenuphar/diag"
	"github.com/mna/nenuphar/loader"
	"github.com/mna/nenuphar/pform"
)

// ItemKind enumerates the work-list driver's kinds of deferred work (spec
// §4.1): elaborating the scope of one module instance, and the two
// defparam passes.
type ItemKind uint8

const (
	ElaborateScopeOf ItemKind = iota
	RunTopDefparams
	RunLaterDefparams
)

// Item is a small tagged record, not a closure, per spec §9's "Deferred
// work" design note ("keep the work item as a small tagged record rather
// than a closure, to ease debugging").
type Item struct {
	Kind     ItemKind
	Parent   *Scope
	Inst     *pform.ModuleInstance
	ArrayIdx int // valid when Inst.Range != nil; -1 otherwise
}

// Driver runs the Scope Builder's work-list loop to fix-point (spec §4.1).
type Driver struct {
	Forest *pform.Forest
	Loader loader.Loader
	Flags  config.Flags
	Diags  *diag.Counter

	queue   []Item
	loaded  map[string]bool // type names already sent to the Loader, successfully or not
	Roots   []*Scope
}

// NewDriver creates a work-list driver over forest, ready to enqueue root
// module instantiations.
func NewDriver(forest *pform.Forest, ld loader.Loader, flags config.Flags, diags *diag.Counter) *Driver {
	return &Driver{Forest: forest, Loader: ld, Flags: flags, Diags: diags, loaded: make(map[string]bool)}
}

// Enqueue adds a work item to the main queue.
func (d *Driver) Enqueue(it Item) {
	d.queue = append(d.queue, it)
}

// EnqueueRoot enqueues elaboration of a root module instance by type name;
// the synthesized ModuleInstance carries no parameter overrides and no
// parent scope.
func (d *Driver) EnqueueRoot(typeName string) {
	d.Enqueue(Item{
		Kind: ElaborateScopeOf,
		Inst: &pform.ModuleInstance{TypeName: typeName, InstName: typeName},
	})
}

// RunToFixpoint implements the two-level batching loop spec §4.1 requires:
// transfer the current queue into a local batch, run every item (which may
// append new items to the main queue), then -- if the main queue is
// non-empty after the batch -- push one RunLaterDefparams item and repeat;
// otherwise terminate.
func (d *Driver) RunToFixpoint() {
	for {
		batch := d.queue
		d.queue = nil
		if len(batch) == 0 {
			return
		}
		for _, it := range batch {
			d.run(it)
		}
		if len(d.queue) > 0 {
			d.queue = append(d.queue, Item{Kind: RunLaterDefparams})
		}
	}
}

func (d *Driver) run(it Item) {
	switch it.Kind {
	case ElaborateScopeOf:
		d.elaborateScopeOf(it)
	case RunTopDefparams:
		d.applyDefparams()
	case RunLaterDefparams:
		d.runDefparamsLater()
	}
}

func (d *Driver) lookupTemplate(typeName string) *pform.Module {
	return d.Forest.Modules[typeName]
}

// elaborateScopeOf builds one scope node (or one per array element) for a
// module instance, per spec §4.1 "Scope construction per module-instance".
func (d *Driver) elaborateScopeOf(it Item) {
	tmpl := d.lookupTemplate(it.Inst.TypeName)
	if tmpl == nil {
		if !d.loaded[it.Inst.TypeName] {
			d.loaded[it.Inst.TypeName] = true
			if d.Loader != nil && d.Loader.LoadModule(it.Inst.TypeName) {
				tmpl = d.lookupTemplate(it.Inst.TypeName)
			}
		}
	}
	if tmpl == nil {
		d.Diags.Errorf(diag.Pos{Line: 0}, "unknown module type %q", it.Inst.TypeName)
		// safe stand-in: an empty scope, so downstream phases have something
		// to walk without special-casing a nil scope.
		d.makeScope(it, nil)
		return
	}
	d.makeScope(it, tmpl)
}

func (d *Driver) makeScope(it Item, tmpl *pform.Module) {
	var s *Scope
	name := it.Inst.InstName
	if it.Inst.Range != nil {
		name = fmt.Sprintf("%s[%d]", name, it.ArrayIdx)
	}
	if it.Parent == nil {
		s = New(name, ModuleScope, tmpl)
		d.Roots = append(d.Roots, s)
	} else {
		s = it.Parent.NewChild(name, ModuleScope, tmpl)
	}
	if d.Flags.DebugElaborate {
		log.WithField("scope", s.Path()).Debug("elaborating scope")
	}
	if tmpl == nil {
		return
	}

	for _, p := range tmpl.Body.Params {
		s.Params[p.Name] = &ParamSlot{Name: p.Name, Expr: p.Default}
	}
	for _, p := range tmpl.Body.Params {
		if p.IsSpecparam {
			s.Specparams[p.Name] = &ParamSlot{Name: p.Name, Expr: p.Default}
		}
	}
	d.applyParamOverrides(s, tmpl, it.Inst.ParamOverrides)

	for _, t := range tmpl.Body.Tasks {
		t := t
		s.Tasks[t.Name] = &t
	}
	for _, f := range tmpl.Body.Funcs {
		f := f
		s.Funcs[f.Name] = &f
	}

	for _, inst := range tmpl.Body.Instances {
		d.enqueueInstance(s, inst)
	}
	for _, gen := range tmpl.Body.Generates {
		d.expandGenerate(s, gen)
	}
}

// applyParamOverrides wires an instance's `#(...)` parameter overrides (spec
// §3 "module-instance list ... optional parameter overrides") into the
// freshly-built scope's parameter table, the same way a `defparam` override
// replaces a slot's expression and flips its state to ParamOverridden
// (scope/params.go's applyOne). Overrides bind like port connections: by
// name, or positionally against the template's non-specparam parameters in
// declaration order -- specparams are never `#(...)`-overridable.
func (d *Driver) applyParamOverrides(s *Scope, tmpl *pform.Module, overrides []pform.PortConnection) {
	if len(overrides) == 0 {
		return
	}
	var positional []string
	for _, p := range tmpl.Body.Params {
		if !p.IsSpecparam {
			positional = append(positional, p.Name)
		}
	}
	for i, ov := range overrides {
		if ov.Value == nil {
			continue
		}
		name := ov.Name
		if name == "" {
			if i >= len(positional) {
				d.Diags.Errorf(diag.Pos{}, "instance %s: too many positional parameter overrides", s.Path())
				continue
			}
			name = positional[i]
		}
		slot, ok := s.Params[name]
		if !ok {
			d.Diags.Errorf(diag.Pos{}, "instance %s: no such parameter %q", s.Path(), name)
			continue
		}
		slot.Expr = ov.Value
		slot.State = ParamOverridden
		slot.OverriddenBy = s.Path() + "#(" + name + ")"
	}
}

func (d *Driver) enqueueInstance(parent *Scope, inst pform.ModuleInstance) {
	inst := inst
	if inst.Range == nil {
		d.Enqueue(Item{Kind: ElaborateScopeOf, Parent: parent, Inst: &inst, ArrayIdx: -1})
		return
	}
	n := arrayCount(inst.Range)
	for i := 0; i < n; i++ {
		d.Enqueue(Item{Kind: ElaborateScopeOf, Parent: parent, Inst: &inst, ArrayIdx: i})
	}
}

// arrayCount returns the element count of an instance-array range whose
// bounds are literal constants at scope-construction time (the common
// case). A range with any other bound, such as one depending on a
// parameter, counts as a single element and is not expanded again once
// parameters are folded.
func arrayCount(r *pform.Range) int {
	msb, ok1 := constInt(r.MSB)
	lsb, ok2 := constInt(r.LSB)
	if !ok1 || !ok2 {
		return 1
	}
	if msb >= lsb {
		return msb - lsb + 1
	}
	return lsb - msb + 1
}

func constInt(e pform.Expr) (int, bool) {
	cv, ok := e.(*pform.ConstVector)
	if !ok {
		return 0, false
	}
	v := 0
	for i := len(cv.Bits) - 1; i >= 0; i-- {
		v <<= 1
		if cv.Bits[i] == 1 {
			v |= 1
		}
	}
	return v, true
}

// expandGenerate expands one generate scheme into zero or more child
// scopes (spec §4.1: "Generate-for produces one child scope per iteration;
// generate-if/case selects at most one arm. Unnamed generate blocks get
// synthetic names ... genblk<n>").
func (d *Driver) expandGenerate(parent *Scope, gen pform.GenerateScheme) {
	switch gen.Kind {
	case pform.GenerateFor:
		d.expandGenerateFor(parent, gen)
	case pform.GenerateIf, pform.GenerateCase:
		d.expandGenerateSelect(parent, gen)
	}
}

func (d *Driver) expandGenerateFor(parent *Scope, gen pform.GenerateScheme) {
	name := gen.Name
	if name == "" {
		name = parent.NextGenBlockName()
	}
	outer := parent.NewChild(name, GenerateBlockScope, nil)
	// The iteration count comes from literal Init/Step constants and the
	// right-hand operand of Cond (genForIterCount), and one body scope is
	// created per iteration. A bound that is not a literal constant yields
	// zero iterations; no diagnostic is reported for it.
	iters := genForIterCount(gen)
	for i := 0; i < iters; i++ {
		childName := fmt.Sprintf("%s[%d]", gen.LoopVar, i)
		_ = outer.NewChild(childName, GenerateBlockScope, nil)
	}
}

func genForIterCount(gen pform.GenerateScheme) int {
	initV, ok1 := constInt(exprOrNil(gen.Init))
	stepV, ok2 := constInt(exprOrNil(gen.Step))
	condLimit, ok3 := condLimitInt(gen.Cond)
	if !ok1 || !ok2 || !ok3 || stepV == 0 {
		return 0
	}
	n := 0
	for v := initV; v < condLimit; v += stepV {
		n++
		if n > 1<<20 {
			break
		}
	}
	return n
}

func exprOrNil(s pform.Expr) pform.Expr { return s }

func condLimitInt(cond pform.Expr) (int, bool) {
	bin, ok := cond.(*pform.BinaryExpr)
	if !ok {
		return 0, false
	}
	return constInt(bin.Right)
}

func (d *Driver) expandGenerateSelect(parent *Scope, gen pform.GenerateScheme) {
	name := gen.Name
	if name == "" {
		name = parent.NextGenBlockName()
	}
	for _, arm := range gen.Arms {
		selected := arm.Guard == nil
		if !selected {
			if cv, ok := constInt(arm.Guard); ok && cv != 0 {
				selected = true
			}
		}
		if !selected {
			continue
		}
		child := parent.NewChild(name, GenerateBlockScope, nil)
		for _, inst := range arm.Body.Instances {
			d.enqueueInstance(child, inst)
		}
		return
	}
}
