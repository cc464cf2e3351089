package scope

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/mna/nenuphar/diag"
	"github.com/mna/nenuphar/pform"
)

// DefparamOverride is one `defparam target = expr;` carried in a scope's
// PForm (spec §4.2). TargetPath is dot-separated relative to the scope it
// was declared in, e.g. "sub.WIDTH".
type DefparamOverride struct {
	SourceScope *Scope
	TargetPath  []string
	Expr        pform.Expr
	Pos         diag.Pos
}

// Resolver drives the defparam-then-parameter-evaluation passes of spec
// §4.2 across the whole scope tree built by Driver.
type Resolver struct {
	Diags   *diag.Counter
	pending []DefparamOverride // defparams_later
}

// NewResolver creates a Resolver ready to apply defparams over roots.
func NewResolver(diags *diag.Counter) *Resolver {
	return &Resolver{Diags: diags}
}

// ApplyDefparams walks every override and resolves its target path against
// the scope tree rooted at each of roots. Hits are applied directly (the
// targeted slot's State becomes ParamOverridden and its Expr is replaced);
// misses are recorded in the pending set for RunDefparamsLater (spec §4.2).
func (r *Resolver) ApplyDefparams(roots []*Scope, overrides []DefparamOverride) {
	for _, ov := range overrides {
		r.applyOne(roots, ov)
	}
}

func (r *Resolver) applyOne(roots []*Scope, ov DefparamOverride) bool {
	target, ok := resolveFromAnyRoot(roots, ov.SourceScope, ov.TargetPath)
	if !ok {
		r.pending = append(r.pending, ov)
		return false
	}
	last := ov.TargetPath[len(ov.TargetPath)-1]
	slot, ok := target.Params[last]
	if !ok {
		r.pending = append(r.pending, ov)
		return false
	}
	slot.Expr = ov.Expr
	slot.State = ParamOverridden
	slot.OverriddenBy = ov.SourceScope.Path() + "." + strings.Join(ov.TargetPath, ".")
	return true
}

// resolveFromAnyRoot resolves a defparam target path. A leading path
// component that names an ancestor of src, or any root, is tried, matching
// the language's rule that defparam targets are resolved relative to the
// scope they're declared in but may reach anywhere in the design via a
// fully hierarchical path.
func resolveFromAnyRoot(roots []*Scope, src *Scope, path []string) (*Scope, bool) {
	if len(path) == 0 {
		return nil, false
	}
	scopePath := path[:len(path)-1]
	if s, ok := ResolvePath(src, scopePath); ok {
		return s, true
	}
	for _, root := range roots {
		if s, ok := ResolvePath(root, scopePath); ok {
			return s, true
		}
	}
	return nil, false
}

// RunDefparamsLater retries the deferred misses against the now-extended
// scope tree (spec §4.2).
func (r *Resolver) RunDefparamsLater(roots []*Scope) {
	pending := r.pending
	r.pending = nil
	for _, ov := range pending {
		r.applyOne(roots, ov)
	}
}

// ResidualDefparams returns the defparams whose targets still do not exist
// after the work-list driver has finished; the caller reports each as an
// error (spec §4.2: "Residual defparams whose targets still do not exist
// are cleaned up and reported at the end").
func (r *Resolver) ResidualDefparams() []DefparamOverride {
	out := r.pending
	r.pending = nil
	return out
}

// EvaluateParameters walks every parameter slot in every scope reachable
// from roots and folds its expression to a constant, in scope-then-
// definition order (spec §4.2). Scopes are visited in tree order (a scope's
// own declaration order for its parameter list, matching the "definition
// order" the language guarantees resolves forward references within a
// scope correctly since only sibling-before-sibling references are legal).
func (r *Resolver) EvaluateParameters(roots []*Scope, fold Folder) {
	for _, root := range roots {
		r.evalScope(root, fold)
	}
}

func (r *Resolver) evalScope(s *Scope, fold Folder) {
	for _, slot := range s.Params {
		r.evalSlot(s, slot, fold)
	}
	for _, slot := range s.Specparams {
		r.evalSlot(s, slot, fold)
	}
	for _, child := range s.Children {
		r.evalScope(child, fold)
	}
}

func (r *Resolver) evalSlot(s *Scope, slot *ParamSlot, fold Folder) {
	if slot.State == ParamEvaluated {
		return
	}
	cv, cr, ok := fold.Fold(s, slot.Expr)
	if !ok {
		r.Diags.Errorf(diag.Pos{}, "parameter %s.%s did not fold to a constant", s.Path(), slot.Name)
		slot.Const = &pform.ConstVector{Width: 32}
		slot.State = ParamEvaluated
		return
	}
	slot.Const, slot.ConstReal = cv, cr
	slot.State = ParamEvaluated
	log.WithField("param", s.Path()+"."+slot.Name).Trace("parameter folded")
}

// Folder evaluates a parameter/delay/width/condition/selector expression to
// a constant, with parameter references resolved against scope (spec §4.2
// "Constant folding"). It is implemented in package elaborate, which also
// owns signal/width reconciliation, to avoid a dependency cycle between
// scope and the expression-folding rules that need both scope and pform.
type Folder interface {
	Fold(s *Scope, e pform.Expr) (vec *pform.ConstVector, real *pform.ConstReal, ok bool)
}
