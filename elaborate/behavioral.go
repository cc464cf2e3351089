package elaborate

import (
	log "github.com/sirupsen/logrus"

	"github.com/mna/nenuphar/config"
	"github.com/mna/nenuphar/diag"
	"github.com/mna/nenuphar/netlist"
	"github.com/mna/nenuphar/pform"
	"github.com/mna/nenuphar/procgraph"
	"github.com/mna/nenuphar/scope"
)

// BehavioralElaborator lowers every initial/always block, task and function
// body into the resolved procedure graph (spec §4.5), performing the
// rewrites the language's simulation semantics require: a delayed blocking
// assign splits into a temporary-capture and a delayed commit; `wait`
// becomes a polling while-loop gated on the waited expression's inputs; a
// `for` loop becomes its init/while/step expansion; a constant-condition
// `if` is collapsed to whichever arm survives, with the dead arm pruned to
// a no-op rather than left dangling.
type BehavioralElaborator struct {
	Diags  *diag.Counter
	Flags  config.Flags
	Design *Design
}

// BehaviorMeta records Behavioral-Elaborator-only facts about one
// initial/always block that the procedure graph itself has no field for
// (spec §4.5's combinational-always tagging and always-without-delay
// check). Indexed in parallel with Design.Behaviors' per-scope slice.
type BehaviorMeta struct {
	Kind          pform.BehaviorKind
	Combinational bool // true for an always block whose body is driven purely by @* / @(edges), never by #delay or wait
}

func (be *BehavioralElaborator) ElaborateScope(s *scope.Scope) {
	if s.Template != nil {
		// Task/function scopes are created up front (before any body is
		// lowered) so a call anywhere in this module -- including a task
		// calling itself, or a sibling declared later in source order -- finds
		// its target scope already registered (spec §4.3's "every identifier
		// resolves" invariant applies to task/function names too).
		for name, task := range s.Tasks {
			be.taskScope(s, name, scope.TaskScope, task.Ports, nil)
		}
		for name, fn := range s.Funcs {
			be.taskScope(s, name, scope.FunctionScope, fn.Ports, &fn.ReturnType)
		}
		for name, task := range s.Tasks {
			ts := s.Children[name]
			lowered := be.stmt(ts, task.Body, false)
			be.appendBehavior(ts, lowered, BehaviorMeta{Kind: pform.Initial})
		}
		for name, fn := range s.Funcs {
			fs := s.Children[name]
			be.checkFunctionBody(fs, fn.Body)
			lowered := be.stmt(fs, fn.Body, true)
			be.appendBehavior(fs, lowered, BehaviorMeta{Kind: pform.Initial})
		}
		for _, b := range s.Template.Body.Behaviors {
			be.behavior(s, b)
		}
	}
	for _, child := range s.Children {
		be.ElaborateScope(child)
	}
}

// taskScope materializes (once) the child scope backing a task or function
// declaration, with its declared ports -- and, for a function, its implicit
// return register named after the function itself -- registered as
// signals, so lookups from inside the body resolve exactly like any other
// signal (spec §4.3).
func (be *BehavioralElaborator) taskScope(parent *scope.Scope, name string, kind scope.Kind, ports []pform.SignalDecl, ret *pform.SignalDecl) *scope.Scope {
	if child, ok := parent.Children[name]; ok {
		return child
	}
	child := parent.NewChild(name, kind, nil)
	for _, p := range ports {
		child.Signals.Put(p.Name, be.materializePortSignal(parent, p))
	}
	if ret != nil {
		sig := be.materializePortSignal(parent, *ret)
		sig.Name = name
		child.Signals.Put(name, sig)
	}
	return child
}

func (be *BehavioralElaborator) materializePortSignal(s *scope.Scope, p pform.SignalDecl) *netlist.Signal {
	width, bigEndian := 1, true
	if p.Range != nil {
		if w, e, ok := rangeWidth(s, p.Range); ok {
			width, bigEndian = w, e
		}
	}
	return &netlist.Signal{
		Name:      p.Name,
		Width:     width,
		BigEndian: bigEndian,
		Type:      netlist.Reg,
		DataType:  netlist.DataType(p.DataType),
		Signed:    p.Signed,
		Direction: netlist.PortDirection(p.Direction),
	}
}

func (be *BehavioralElaborator) behavior(s *scope.Scope, b pform.Behavior) {
	combinational := b.Kind == pform.Always && isCombinational(b.Body)
	if b.Kind == pform.Always {
		be.checkAlwaysDelay(s, b.Body)
	}
	lowered := be.stmt(s, b.Body, false)
	be.appendBehavior(s, lowered, BehaviorMeta{Kind: b.Kind, Combinational: combinational})
	if be.Flags.DebugElaborate {
		log.WithField("scope", s.Path()).WithField("combinational", combinational).Debug("lowered behavior")
	}
}

func (be *BehavioralElaborator) appendBehavior(s *scope.Scope, st procgraph.Stmt, meta BehaviorMeta) {
	be.Design.Behaviors[s] = append(be.Design.Behaviors[s], st)
	be.Design.BehaviorMeta[s] = append(be.Design.BehaviorMeta[s], meta)
}

// checkFunctionBody implements spec §4.5's function-body restriction list.
func (be *BehavioralElaborator) checkFunctionBody(s *scope.Scope, st pform.Stmt) {
	switch st := st.(type) {
	case nil:
	case *pform.AssignStmt:
		if st.Kind == pform.AssignNonBlocking {
			be.Diags.Errorf(pos(st.Pos), "non-blocking assignment is illegal inside a function")
		}
		if st.Delay != nil {
			be.Diags.Errorf(pos(st.Pos), "delay control is illegal inside a function")
		}
	case *pform.DelayStmt:
		be.Diags.Errorf(pos(st.Pos), "delay control is illegal inside a function")
		be.checkFunctionBody(s, st.Body)
	case *pform.WaitStmt:
		be.Diags.Errorf(pos(st.Pos), "wait is illegal inside a function")
		be.checkFunctionBody(s, st.Body)
	case *pform.EventControlStmt:
		be.Diags.Errorf(pos(st.Pos), "event control is illegal inside a function")
		be.checkFunctionBody(s, st.Body)
	case *pform.TaskCallStmt:
		be.Diags.Errorf(pos(st.Pos), "task call is illegal inside a function")
	case *pform.SeqBlockStmt:
		for _, sub := range st.Stmts {
			be.checkFunctionBody(s, sub)
		}
	case *pform.ParBlockStmt:
		be.Diags.Errorf(pos(st.Pos), "fork/join is illegal inside a function")
	case *pform.CondStmt:
		be.checkFunctionBody(s, st.Then)
		be.checkFunctionBody(s, st.Else)
	case *pform.CaseStmt:
		for _, arm := range st.Arms {
			be.checkFunctionBody(s, arm.Body)
		}
	case *pform.WhileStmt:
		be.checkFunctionBody(s, st.Body)
	case *pform.ForeverStmt:
		be.checkFunctionBody(s, st.Body)
	case *pform.RepeatStmt:
		be.checkFunctionBody(s, st.Body)
	case *pform.ForStmt:
		be.checkFunctionBody(s, st.Init)
		be.checkFunctionBody(s, st.Step)
		be.checkFunctionBody(s, st.Body)
	}
}

// isCombinational reports whether st contains no time-control construct at
// all (spec §4.5 combinational-always tagging: an always block is
// combinational when its only sensitivity is its own leading @(...)/@*, not
// a #delay or wait anywhere in its body).
func isCombinational(st pform.Stmt) bool {
	switch st := st.(type) {
	case nil:
		return true
	case *pform.DelayStmt, *pform.WaitStmt:
		return false
	case *pform.SeqBlockStmt:
		for _, s := range st.Stmts {
			if !isCombinational(s) {
				return false
			}
		}
		return true
	case *pform.ParBlockStmt:
		for _, s := range st.Stmts {
			if !isCombinational(s) {
				return false
			}
		}
		return true
	case *pform.CondStmt:
		return isCombinational(st.Then) && isCombinational(st.Else)
	case *pform.CaseStmt:
		for _, arm := range st.Arms {
			if !isCombinational(arm.Body) {
				return false
			}
		}
		return true
	case *pform.WhileStmt:
		return isCombinational(st.Body)
	case *pform.ForeverStmt:
		return isCombinational(st.Body)
	case *pform.RepeatStmt:
		return isCombinational(st.Body)
	case *pform.ForStmt:
		return isCombinational(st.Init) && isCombinational(st.Step) && isCombinational(st.Body)
	case *pform.EventControlStmt:
		return isCombinational(st.Body)
	}
	return true
}

// delayKind classifies an always-block body for spec §4.5's
// always-without-delay check: NO_DELAY (no time-control construct anywhere,
// a genuine zero-time infinite loop) is an error; POSSIBLE_DELAY (a time
// control exists only inside a conditional arm, so whether it actually
// delays depends on runtime data) is a warning gated on Flags.WarnInfLoop;
// a body with an unconditioned #delay/@/wait at its top level needs no
// report at all.
func (be *BehavioralElaborator) checkAlwaysDelay(s *scope.Scope, body pform.Stmt) {
	switch hasUnconditionedDelay(body) {
	case delayCertain:
		return
	case delayPossible:
		if be.Flags.WarnInfLoop {
			be.Diags.Warnf(posOf(body), "always block may never yield control (possible infinite loop without delay)")
		}
	case delayNone:
		be.Diags.Errorf(posOf(body), "always block has no delay, event control, or wait: infinite loop")
	}
}

type delayCertainty uint8

const (
	delayNone delayCertainty = iota
	delayPossible
	delayCertain
)

func hasUnconditionedDelay(st pform.Stmt) delayCertainty {
	switch st := st.(type) {
	case nil:
		return delayNone
	case *pform.DelayStmt, *pform.WaitStmt, *pform.EventControlStmt:
		return delayCertain
	case *pform.SeqBlockStmt:
		best := delayNone
		for _, s := range st.Stmts {
			c := hasUnconditionedDelay(s)
			if c == delayCertain {
				return delayCertain
			}
			if c == delayPossible {
				best = delayPossible
			}
		}
		return best
	case *pform.CondStmt:
		return maxCertainty(downgrade(hasUnconditionedDelay(st.Then)), downgrade(hasUnconditionedDelay(st.Else)))
	case *pform.CaseStmt:
		best := delayNone
		for _, arm := range st.Arms {
			best = maxCertainty(best, downgrade(hasUnconditionedDelay(arm.Body)))
		}
		return best
	case *pform.WhileStmt:
		return downgrade(hasUnconditionedDelay(st.Body))
	case *pform.ForeverStmt:
		return hasUnconditionedDelay(st.Body)
	case *pform.RepeatStmt:
		return downgrade(hasUnconditionedDelay(st.Body))
	case *pform.ForStmt:
		return downgrade(hasUnconditionedDelay(st.Body))
	}
	return delayNone
}

func downgrade(c delayCertainty) delayCertainty {
	if c == delayCertain {
		return delayPossible
	}
	return c
}

func maxCertainty(a, b delayCertainty) delayCertainty {
	if a > b {
		return a
	}
	return b
}

func posOf(st pform.Stmt) diag.Pos {
	if st == nil {
		return diag.Pos{}
	}
	return pos(st.Span())
}

// stmt lowers one pform.Stmt into its procgraph counterpart, applying every
// rewrite spec §4.5 names. inFunc gates the function-body legality checks
// already reported by checkFunctionBody (so stmt itself does not
// double-report); it is threaded through purely so nested blocks inherit
// the same restriction when checkFunctionBody's own recursion has already
// covered it -- stmt never emits its own diagnostic for it.
func (be *BehavioralElaborator) stmt(s *scope.Scope, st pform.Stmt, inFunc bool) procgraph.Stmt {
	switch st := st.(type) {
	case nil:
		return &procgraph.NoOpStmt{}
	case *pform.NoOpStmt:
		return &procgraph.NoOpStmt{}
	case *pform.SeqBlockStmt:
		walkScope := s
		var childScope *scope.Scope
		if st.Name != "" {
			childScope = be.namedBlockScope(s, st.Name)
			walkScope = childScope
		}
		stmts := make([]procgraph.Stmt, 0, len(st.Stmts))
		for _, sub := range st.Stmts {
			stmts = append(stmts, be.stmt(walkScope, sub, inFunc))
		}
		return &procgraph.SeqBlockStmt{Scope: childScope, Stmts: stmts}
	case *pform.ParBlockStmt:
		walkScope := s
		var childScope *scope.Scope
		if st.Name != "" {
			childScope = be.namedBlockScope(s, st.Name)
			walkScope = childScope
		}
		stmts := make([]procgraph.Stmt, 0, len(st.Stmts))
		for _, sub := range st.Stmts {
			stmts = append(stmts, be.stmt(walkScope, sub, inFunc))
		}
		return &procgraph.ParBlockStmt{Scope: childScope, Stmts: stmts}
	case *pform.AssignStmt:
		return be.assign(s, st)
	case *pform.ForceStmt:
		return &procgraph.ForceStmt{LValue: be.expr(s, st.LValue), RValue: be.expr(s, st.RValue)}
	case *pform.DeassignStmt:
		return &procgraph.DeassignStmt{LValue: be.expr(s, st.LValue)}
	case *pform.ReleaseStmt:
		return &procgraph.ReleaseStmt{LValue: be.expr(s, st.LValue)}
	case *pform.DelayStmt:
		return &procgraph.DelayStmt{Delay: be.expr(s, st.Delay), Body: be.stmt(s, st.Body, inFunc)}
	case *pform.EventControlStmt:
		return be.eventControl(s, st, inFunc)
	case *pform.WaitStmt:
		return be.wait(s, st, inFunc)
	case *pform.EventTriggerStmt:
		return &procgraph.EventTriggerStmt{Event: be.resolveEvent(s, st.EventName)}
	case *pform.CondStmt:
		return be.cond(s, st, inFunc)
	case *pform.CaseStmt:
		return be.caseStmt(s, st, inFunc)
	case *pform.WhileStmt:
		return &procgraph.WhileStmt{Cond: be.expr(s, st.Cond), Body: be.stmt(s, st.Body, inFunc)}
	case *pform.ForeverStmt:
		return &procgraph.ForeverStmt{Body: be.stmt(s, st.Body, inFunc)}
	case *pform.RepeatStmt:
		return &procgraph.RepeatStmt{Count: be.expr(s, st.Count), Body: be.stmt(s, st.Body, inFunc)}
	case *pform.ForStmt:
		return be.forLoop(s, st, inFunc)
	case *pform.TaskCallStmt:
		res := s.Resolve(st.Name)
		var taskScope *scope.Scope
		if res.Kind == scope.ResolveTask {
			taskScope = res.Scope.Children[st.Name]
		} else {
			be.Diags.Errorf(pos(st.Pos), "task %q not found", st.Name)
		}
		return &procgraph.TaskCallStmt{Task: taskScope, Args: be.exprList(s, st.Args)}
	case *pform.SystemTaskCallStmt:
		return &procgraph.SystemTaskCallStmt{Name: st.Name, Args: be.exprList(s, st.Args)}
	case *pform.DisableStmt:
		target, ok := scope.ResolvePath(rootOf(s), splitPath(st.TargetScope))
		if !ok {
			be.Diags.Errorf(pos(st.Pos), "disable target %q not found", st.TargetScope)
		} else if target.Kind == scope.ModuleScope {
			be.Diags.Errorf(pos(st.Pos), "disable cannot target a module scope")
		} else if target.Kind == scope.FunctionScope {
			be.Diags.Errorf(pos(st.Pos), "disable cannot target a function scope")
		}
		return &procgraph.DisableStmt{Target: target}
	}
	return &procgraph.NoOpStmt{}
}

// namedBlockScope materializes (once) the child scope a named begin/end or
// fork/join block owns, reachable as a disable target (spec §3).
func (be *BehavioralElaborator) namedBlockScope(parent *scope.Scope, name string) *scope.Scope {
	if child, ok := parent.Children[name]; ok {
		return child
	}
	return parent.NewChild(name, scope.NamedBlockScope, nil)
}

func rootOf(s *scope.Scope) *scope.Scope {
	for s.Parent != nil {
		s = s.Parent
	}
	return s
}

func splitPath(p string) []string {
	var out []string
	cur := ""
	for _, r := range p {
		if r == '.' {
			out = append(out, cur)
			cur = ""
			continue
		}
		cur += string(r)
	}
	out = append(out, cur)
	return out
}

// assign rewrites a delayed blocking assign `lhs = #d rhs;` into
// `{ tmp = rhs; #d lhs = tmp; }` (spec §4.5); every other assign form
// passes through unchanged.
func (be *BehavioralElaborator) assign(s *scope.Scope, st *pform.AssignStmt) procgraph.Stmt {
	kind := procgraph.AssignKind(st.Kind)
	lhs := be.expr(s, st.LValue)
	rhs := be.expr(s, st.RValue)
	if st.Delay == nil || st.Kind != pform.AssignBlocking {
		return &procgraph.AssignStmt{Kind: kind, LValue: lhs, RValue: rhs}
	}
	tmpName := s.LocalSymbol("_delay_tmp")
	tmpSig := &netlist.Signal{Name: tmpName, Width: widthOf(rhs), Type: netlist.Reg, DataType: netlist.Logic}
	s.Signals.Put(tmpName, tmpSig)
	tmpRef := &procgraph.SignalRef{Signal: tmpSig, Width: tmpSig.Width, Type: typeOf(rhs)}
	capture := &procgraph.AssignStmt{Kind: procgraph.AssignBlocking, LValue: tmpRef, RValue: rhs}
	commit := &procgraph.DelayStmt{
		Delay: be.delayExpr(s, st.Delay),
		Body:  &procgraph.AssignStmt{Kind: procgraph.AssignBlocking, LValue: lhs, RValue: tmpRef},
	}
	return &procgraph.SeqBlockStmt{Stmts: []procgraph.Stmt{capture, commit}}
}

func (be *BehavioralElaborator) delayExpr(s *scope.Scope, d *pform.DelayTriple) procgraph.Expr {
	return be.expr(s, d.Rise)
}

// eventControl resolves `@(...)`/`@*` into its concrete probe set (spec
// §4.5). A bare `@*` expands to the set of signals read by Body (the
// language's standard "all right-hand-side signals" rule), so a signal Body
// only writes is never probed; a signal Body both reads and writes is
// probed too, except under Flags.Synthesis, where written signals are
// excluded even if also read, matching synthesis tools'
// combinational-sensitivity convention.
func (be *BehavioralElaborator) eventControl(s *scope.Scope, st *pform.EventControlStmt, inFunc bool) procgraph.Stmt {
	var probes []procgraph.EventProbe
	if st.Star {
		reads, writes := signalsOf(st.Body)
		for name := range reads {
			if _, written := writes[name]; written && be.Flags.Synthesis {
				continue
			}
			if res := s.Resolve(name); res.Kind == scope.ResolveSignal {
				probes = append(probes, procgraph.EventProbe{Value: &procgraph.SignalRef{Signal: res.Signal, Width: res.Signal.Width}, Edge: procgraph.EdgeAny})
			}
		}
	} else {
		for _, item := range st.Items {
			probes = append(probes, be.sensitivityItem(s, item))
		}
	}
	return &procgraph.EventControlStmt{Probes: probes, Body: be.stmt(s, st.Body, inFunc)}
}

func (be *BehavioralElaborator) sensitivityItem(s *scope.Scope, item pform.SensitivityItem) procgraph.EventProbe {
	if item.Event != "" {
		return procgraph.EventProbe{Event: be.resolveEvent(s, item.Event)}
	}
	return procgraph.EventProbe{Value: be.expr(s, item.Expr), Edge: procgraph.Edge(item.EdgeQual)}
}

func (be *BehavioralElaborator) resolveEvent(s *scope.Scope, name string) *netlist.Event {
	res := s.Resolve(name)
	if res.Kind == scope.ResolveEvent {
		res.Event.Triggers++
		return res.Event
	}
	be.Diags.Errorf(diag.Pos{}, "event %q not found", name)
	return netlist.NewEvent(name)
}

// wait lowers `wait(expr) stmt;` to the while/no-op-event-control form spec
// §4.5 specifies: poll expr, and whenever it is false, suspend on the
// signals expr reads until it becomes true, then run stmt.
func (be *BehavioralElaborator) wait(s *scope.Scope, st *pform.WaitStmt, inFunc bool) procgraph.Stmt {
	if cv, _, ok := fold(s, st.Cond); ok {
		switch reduceOr(cv) {
		case 1:
			return be.stmt(s, st.Body, inFunc)
		case 0:
			// A constant-false condition never admits the poll loop, so it
			// reduces to a permanent wait on an unreferenced event; routing it
			// through EventControlStmt with no probes reuses the emitter's
			// existing empty-sensitivity-set warning (emit/statement.go's
			// waitOn) instead of duplicating it here.
			return &procgraph.EventControlStmt{Body: &procgraph.NoOpStmt{}}
		}
	}
	cond := be.expr(s, st.Cond)
	exprReads := make(map[string]bool)
	collectExprSignals(st.Cond, exprReads)
	var probes []procgraph.EventProbe
	for name := range exprReads {
		if res := s.Resolve(name); res.Kind == scope.ResolveSignal {
			probes = append(probes, procgraph.EventProbe{Value: &procgraph.SignalRef{Signal: res.Signal, Width: res.Signal.Width}, Edge: procgraph.EdgeAny})
		}
	}
	body := be.stmt(s, st.Body, inFunc)
	return &procgraph.WaitStmt{Cond: cond, Probes: probes, Body: body}
}

// cond lowers `if`, collapsing a constant condition to whichever arm
// survives and pruning the other to a no-op (spec §4.5's "constant-
// condition elision with empty-block pruning").
func (be *BehavioralElaborator) cond(s *scope.Scope, st *pform.CondStmt, inFunc bool) procgraph.Stmt {
	if cv, _, ok := fold(s, st.Cond); ok {
		red := reduceOr(cv)
		if red == 1 {
			return be.stmt(s, st.Then, inFunc)
		}
		if red == 0 {
			if st.Else != nil {
				return be.stmt(s, st.Else, inFunc)
			}
			return &procgraph.NoOpStmt{}
		}
	}
	var elseStmt procgraph.Stmt
	if st.Else != nil {
		elseStmt = be.stmt(s, st.Else, inFunc)
	}
	return &procgraph.CondStmt{Cond: be.expr(s, st.Cond), Then: be.stmt(s, st.Then, inFunc), Else: elseStmt}
}

// caseStmt lowers case/casex/casez/case-on-reals, preserving every
// duplicate guard verbatim (spec §4.5: not an error for two arms to share a
// guard value -- the first match wins at run time, which is the emitter's
// concern, not this phase's).
func (be *BehavioralElaborator) caseStmt(s *scope.Scope, st *pform.CaseStmt, inFunc bool) procgraph.Stmt {
	arms := make([]procgraph.CaseArm, 0, len(st.Arms))
	for _, arm := range st.Arms {
		guards := make([]procgraph.Expr, 0, len(arm.Guards))
		for _, g := range arm.Guards {
			guards = append(guards, be.expr(s, g))
		}
		arms = append(arms, procgraph.CaseArm{Guards: guards, Body: be.stmt(s, arm.Body, inFunc)})
	}
	return &procgraph.CaseStmt{
		Modality: procgraph.CaseModality(st.Modality),
		Select:   be.expr(s, st.Select),
		Arms:     arms,
	}
}

// forLoop lowers `for(init;cond;step) body` to a procgraph.ForStmt whose
// parts the emitter lays out as `{init; while(cond){body; step;}}` (spec
// §4.5).
func (be *BehavioralElaborator) forLoop(s *scope.Scope, st *pform.ForStmt, inFunc bool) procgraph.Stmt {
	init := be.stmt(s, st.Init, inFunc)
	step := be.stmt(s, st.Step, inFunc)
	body := be.stmt(s, st.Body, inFunc)
	return &procgraph.ForStmt{Init: init, Cond: be.expr(s, st.Cond), Step: step, Body: body}
}

func (be *BehavioralElaborator) exprList(s *scope.Scope, es []pform.Expr) []procgraph.Expr {
	out := make([]procgraph.Expr, len(es))
	for i, e := range es {
		out[i] = be.expr(s, e)
	}
	return out
}

// expr resolves a pform.Expr into its procgraph counterpart, folding to a
// constant first wherever possible (the same constant-folding rules the
// Parameter Resolver uses, spec §4.2, apply equally to a residual
// expression inside a procedure graph).
func (be *BehavioralElaborator) expr(s *scope.Scope, e pform.Expr) procgraph.Expr {
	if e == nil {
		return nil
	}
	if cv, rv, ok := fold(s, e); ok {
		if rv != nil {
			return &procgraph.ConstReal{Value: rv.Value}
		}
		return &procgraph.ConstVector{Width: cv.Width, Signed: cv.Signed, Bits: cv.Bits}
	}
	switch e := e.(type) {
	case *pform.SignalRef:
		return be.signalRef(s, e)
	case *pform.UnaryExpr:
		operand := be.expr(s, e.Operand)
		w, sg, t := exprInfo(operand)
		return &procgraph.UnaryExpr{Op: procgraph.UnaryOp(e.Op), Operand: operand, Width: w, Signed: sg, Type: t}
	case *pform.ReductionExpr:
		return &procgraph.ReductionExpr{Op: procgraph.ReductionOp(e.Op), Operand: be.expr(s, e.Operand)}
	case *pform.BinaryExpr:
		l := be.expr(s, e.Left)
		r := be.expr(s, e.Right)
		w, sg, t := binInfo(e.Op, l, r)
		return &procgraph.BinaryExpr{Op: procgraph.BinaryOp(e.Op), Left: l, Right: r, Width: w, Signed: sg, Type: t}
	case *pform.TernaryExpr:
		then := be.expr(s, e.Then)
		els := be.expr(s, e.Else)
		w, sg, t := exprInfo(then)
		return &procgraph.TernaryExpr{Cond: be.expr(s, e.Cond), Then: then, Else: els, Width: w, Signed: sg, Type: t}
	case *pform.ConcatExpr:
		parts := make([]procgraph.Expr, len(e.Parts))
		width := 0
		for i, p := range e.Parts {
			parts[i] = be.expr(s, p)
			w, _, _ := exprInfo(parts[i])
			width += w
		}
		return &procgraph.ConcatExpr{Parts: parts, Width: width}
	case *pform.ReplicateExpr:
		n := 1
		if cv, _, ok := fold(s, e.Count); ok {
			if v, ok2 := toInt64(cv); ok2 {
				n = int(v)
			}
		}
		val := be.expr(s, e.Value)
		w, _, _ := exprInfo(val)
		return &procgraph.ReplicateExpr{Count: n, Value: val, Width: n * w}
	case *pform.FuncCallExpr:
		args := be.exprList(s, e.Args)
		var fnScope *scope.Scope
		if !e.IsSystem {
			res := s.Resolve(e.Name)
			if res.Kind == scope.ResolveFunc {
				fnScope = res.Scope.Children[e.Name]
			} else {
				be.Diags.Errorf(diag.Pos{}, "function %q not found", e.Name)
			}
		}
		return &procgraph.FuncCallExpr{Func: fnScope, IsSystem: e.IsSystem, Name: e.Name, Args: args}
	case *pform.EventProbeExpr:
		return &procgraph.EventProbeExpr{Event: be.resolveEvent(s, e.EventName)}
	}
	return &procgraph.ConstVector{Width: 1, Bits: []byte{2}}
}

func (be *BehavioralElaborator) signalRef(s *scope.Scope, e *pform.SignalRef) procgraph.Expr {
	res := s.Resolve(e.Name)
	var sig *netlist.Signal
	if res.Kind == scope.ResolveSignal {
		sig = res.Signal
	} else {
		be.Diags.Errorf(diag.Pos{}, "signal %q not found", e.Name)
		sig = &netlist.Signal{Name: e.Name, Width: 1}
	}
	width := sig.Width
	if e.PartWidth > 0 {
		width = e.PartWidth
	}
	return &procgraph.SignalRef{
		Signal:     sig,
		Width:      width,
		Signed:     sig.Signed,
		Type:       dataTypeToValueType(sig.DataType),
		WordIndex:  be.expr(s, e.WordIndex),
		PartOffset: be.expr(s, e.PartOffset),
		PartWidth:  e.PartWidth,
		MuxSelect:  be.expr(s, e.MuxSelect),
	}
}

func dataTypeToValueType(t netlist.DataType) procgraph.ValueType {
	switch t {
	case netlist.Real:
		return procgraph.Real
	case netlist.Bool:
		return procgraph.BoolVector
	default:
		return procgraph.LogicVector
	}
}

// exprInfo reads the self-determined Width/Signed/Type a resolved
// expression already carries (spec §9: these are plain fields per variant,
// not a shared interface method).
func exprInfo(e procgraph.Expr) (width int, signed bool, typ procgraph.ValueType) {
	switch e := e.(type) {
	case *procgraph.ConstVector:
		return e.Width, e.Signed, procgraph.LogicVector
	case *procgraph.ConstReal:
		return 1, false, procgraph.Real
	case *procgraph.SignalRef:
		return e.Width, e.Signed, e.Type
	case *procgraph.UnaryExpr:
		return e.Width, e.Signed, e.Type
	case *procgraph.ReductionExpr:
		return 1, false, procgraph.BoolVector
	case *procgraph.BinaryExpr:
		return e.Width, e.Signed, e.Type
	case *procgraph.TernaryExpr:
		return e.Width, e.Signed, e.Type
	case *procgraph.ConcatExpr:
		return e.Width, false, procgraph.LogicVector
	case *procgraph.ReplicateExpr:
		return e.Width, false, procgraph.LogicVector
	case *procgraph.FuncCallExpr:
		return e.Width, e.Signed, e.Type
	}
	return 1, false, procgraph.LogicVector
}

func widthOf(e procgraph.Expr) int {
	w, _, _ := exprInfo(e)
	if w == 0 {
		return 1
	}
	return w
}

func typeOf(e procgraph.Expr) procgraph.ValueType {
	_, _, t := exprInfo(e)
	return t
}

// binInfo implements the same width/type reconciliation fold.go's
// foldBinary applies to constants, generalized to a residual (non-constant)
// operand pair.
func binInfo(op pform.BinaryOp, l, r procgraph.Expr) (width int, signed bool, typ procgraph.ValueType) {
	lw, ls, lt := exprInfo(l)
	rw, rs, _ := exprInfo(r)
	if lt == procgraph.Real || typeOf(r) == procgraph.Real {
		return 1, false, procgraph.Real
	}
	if isCompareOp(op) || isLogicalOp(op) {
		return 1, false, procgraph.BoolVector
	}
	width = lw
	if rw > width {
		width = rw
	}
	return width, ls && rs, procgraph.LogicVector
}

// signalsOf computes the read-set and write-set of st's directly named
// signals, used by `@*` sensitivity-list computation (spec §4.5). It is a
// syntactic approximation over the *resolved* Signal identity is not
// available yet at this point in the walk (only names are), which is
// sufficient since `@*` expansion only needs to know which bare identifiers
// appear, not their elaborated type.
func signalsOf(st pform.Stmt) (reads, writes map[string]bool) {
	reads = make(map[string]bool)
	writes = make(map[string]bool)
	walkSignalsStmt(st, reads, writes)
	return reads, writes
}

func walkSignalsStmt(st pform.Stmt, reads, writes map[string]bool) {
	switch st := st.(type) {
	case nil:
	case *pform.SeqBlockStmt:
		for _, s := range st.Stmts {
			walkSignalsStmt(s, reads, writes)
		}
	case *pform.ParBlockStmt:
		for _, s := range st.Stmts {
			walkSignalsStmt(s, reads, writes)
		}
	case *pform.AssignStmt:
		collectLValueSignal(st.LValue, writes)
		collectExprSignals(st.RValue, reads)
	case *pform.ForceStmt:
		collectLValueSignal(st.LValue, writes)
		collectExprSignals(st.RValue, reads)
	case *pform.CondStmt:
		collectExprSignals(st.Cond, reads)
		walkSignalsStmt(st.Then, reads, writes)
		walkSignalsStmt(st.Else, reads, writes)
	case *pform.CaseStmt:
		collectExprSignals(st.Select, reads)
		for _, arm := range st.Arms {
			for _, g := range arm.Guards {
				collectExprSignals(g, reads)
			}
			walkSignalsStmt(arm.Body, reads, writes)
		}
	case *pform.WhileStmt:
		collectExprSignals(st.Cond, reads)
		walkSignalsStmt(st.Body, reads, writes)
	case *pform.ForeverStmt:
		walkSignalsStmt(st.Body, reads, writes)
	case *pform.RepeatStmt:
		collectExprSignals(st.Count, reads)
		walkSignalsStmt(st.Body, reads, writes)
	case *pform.ForStmt:
		walkSignalsStmt(st.Init, reads, writes)
		collectExprSignals(st.Cond, reads)
		walkSignalsStmt(st.Step, reads, writes)
		walkSignalsStmt(st.Body, reads, writes)
	case *pform.DelayStmt:
		walkSignalsStmt(st.Body, reads, writes)
	case *pform.EventControlStmt:
		walkSignalsStmt(st.Body, reads, writes)
	case *pform.WaitStmt:
		collectExprSignals(st.Cond, reads)
		walkSignalsStmt(st.Body, reads, writes)
	case *pform.TaskCallStmt:
		for _, a := range st.Args {
			collectExprSignals(a, reads)
		}
	case *pform.SystemTaskCallStmt:
		for _, a := range st.Args {
			collectExprSignals(a, reads)
		}
	}
}

func collectLValueSignal(e pform.Expr, writes map[string]bool) {
	if ref, ok := e.(*pform.SignalRef); ok {
		writes[ref.Name] = true
		return
	}
	if c, ok := e.(*pform.ConcatExpr); ok {
		for _, p := range c.Parts {
			collectLValueSignal(p, writes)
		}
	}
}

func collectExprSignals(e pform.Expr, reads map[string]bool) {
	switch e := e.(type) {
	case nil:
	case *pform.SignalRef:
		reads[e.Name] = true
		collectExprSignals(e.PartOffset, reads)
		collectExprSignals(e.WordIndex, reads)
		collectExprSignals(e.MuxSelect, reads)
	case *pform.UnaryExpr:
		collectExprSignals(e.Operand, reads)
	case *pform.ReductionExpr:
		collectExprSignals(e.Operand, reads)
	case *pform.BinaryExpr:
		collectExprSignals(e.Left, reads)
		collectExprSignals(e.Right, reads)
	case *pform.TernaryExpr:
		collectExprSignals(e.Cond, reads)
		collectExprSignals(e.Then, reads)
		collectExprSignals(e.Else, reads)
	case *pform.ConcatExpr:
		for _, p := range e.Parts {
			collectExprSignals(p, reads)
		}
	case *pform.ReplicateExpr:
		collectExprSignals(e.Value, reads)
	case *pform.FuncCallExpr:
		for _, a := range e.Args {
			collectExprSignals(a, reads)
		}
	}
}
