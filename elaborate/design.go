package elaborate

import (
	log "github.com/sirupsen/logrus"

	"github.com/mna/nenuphar/config"
	"github.com/mna/nenuphar/diag"
	"github.com/mna/nenuphar/loader"
	"github.com/mna/nenuphar/netlist"
	"github.com/mna/nenuphar/pform"
	"github.com/mna/nenuphar/procgraph"
	"github.com/mna/nenuphar/scope"
)

// Design is the elaborated output: the frozen scope tree plus the
// structural netlist and procedure graphs hung off it (spec §3's "Output
// netlist + procedure graph" boundary). It is the single arena every node
// the pipeline creates lives in; nothing is freed before Emit completes
// (spec §3 "Lifecycle").
type Design struct {
	Forest *pform.Forest
	Flags  config.Flags
	Diags  *diag.Counter

	Roots []*scope.Scope

	// Behaviors maps a scope to the procedure-graph roots elaborated from its
	// PForm behaviors/tasks/functions. Kept as a side-table (rather than a
	// field on scope.Scope) to avoid a scope<->procgraph import cycle, since
	// procgraph.Expr nodes reference *scope.Scope (e.g. a disable target).
	Behaviors map[*scope.Scope][]procgraph.Stmt

	// BehaviorMeta is kept in parallel with Behaviors: per-behavior facts
	// (combinational tagging, initial-vs-always) that have no field on
	// procgraph.Stmt itself (spec §4.5).
	BehaviorMeta map[*scope.Scope][]BehaviorMeta

	// nexusByName lets the Structural Elaborator find (or lazily create) the
	// Nexus backing a plain signal reference without re-walking the scope
	// tree on every pin connection.
	nexusByName map[*netlist.Signal]*netlist.Nexus
}

// Elaborate runs the full pipeline (spec §2 "Data flow"): scope
// construction and recursive instantiation to fix-point, parameter
// resolution, then the single-pass signal/structural/behavioral phases over
// the now-frozen scope tree. Component order is fixed (spec §5 "Ordering
// guarantees").
func Elaborate(forest *pform.Forest, ld loader.Loader, flags config.Flags) *Design {
	diags := &diag.Counter{}
	d := &Design{
		Forest:      forest,
		Flags:       flags,
		Diags:       diags,
		Behaviors:    make(map[*scope.Scope][]procgraph.Stmt),
		BehaviorMeta: make(map[*scope.Scope][]BehaviorMeta),
		nexusByName:  make(map[*netlist.Signal]*netlist.Nexus),
	}

	driver := scope.NewDriver(forest, ld, flags, diags)
	for _, root := range forest.Roots {
		driver.EnqueueRoot(root)
	}
	driver.RunToFixpoint()
	d.Roots = driver.Roots

	if flags.DebugElaborate {
		log.WithField("roots", len(d.Roots)).Debug("scope tree built")
	}

	resolver := scope.NewResolver(diags)
	resolver.ApplyDefparams(d.Roots, collectDefparams(d.Roots))
	resolver.EvaluateParameters(d.Roots, Folder{})
	resolver.RunDefparamsLater(d.Roots)
	for _, residual := range resolver.ResidualDefparams() {
		diags.Errorf(residual.Pos, "defparam target %v does not exist", residual.TargetPath)
	}
	// A defparam resolved late may have changed a width-determining
	// parameter; re-run evaluation once more so every slot reflects its
	// final override before signals are materialized.
	resolver.EvaluateParameters(d.Roots, Folder{})

	if len(d.Roots) == 0 {
		diags.Errorf(diag.Pos{}, "no root modules elaborated")
		return d
	}

	se := &SignalElaborator{Diags: diags}
	for _, root := range d.Roots {
		se.ElaborateScope(root)
	}

	str := &StructuralElaborator{Diags: diags, Flags: flags, Design: d}
	for _, root := range d.Roots {
		str.ElaborateScope(root)
	}

	be := &BehavioralElaborator{Diags: diags, Flags: flags, Design: d}
	for _, root := range d.Roots {
		be.ElaborateScope(root)
	}

	return d
}

func collectDefparams(roots []*scope.Scope) []scope.DefparamOverride {
	var out []scope.DefparamOverride
	for _, root := range roots {
		walkForDefparams(root, &out)
	}
	return out
}

func walkForDefparams(s *scope.Scope, out *[]scope.DefparamOverride) {
	if s.Template != nil {
		for _, dp := range s.Template.Body.Defparams {
			*out = append(*out, scope.DefparamOverride{
				SourceScope: s,
				TargetPath:  dp.Target,
				Expr:        dp.Value,
				Pos:         diag.Pos{File: dp.Pos.File, Line: dp.Pos.Line},
			})
		}
	}
	for _, child := range s.Children {
		walkForDefparams(child, out)
	}
}
