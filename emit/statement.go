package emit

import (
	"fmt"

	"github.com/mna/nenuphar/procgraph"
	"github.com/mna/nenuphar/scope"
)

// stmt dispatches one procedure-graph statement to its emission routine
// (spec §4.6: "every statement variant has a dedicated routine").
func (e *Emitter) stmt(s *scope.Scope, st procgraph.Stmt) {
	switch st := st.(type) {
	case nil:
	case *procgraph.NoOpStmt:
	case *procgraph.SeqBlockStmt:
		e.seqBlock(s, st)
	case *procgraph.ParBlockStmt:
		e.parBlock(s, st)
	case *procgraph.AssignStmt:
		e.assign(s, st)
	case *procgraph.ForceStmt:
		e.forceOrCassign(s, OpForce, st.LValue, st.RValue)
	case *procgraph.DeassignStmt:
		e.deassignOrRelease(s, OpDeassign, st.LValue)
	case *procgraph.ReleaseStmt:
		e.deassignOrRelease(s, OpRelease, st.LValue)
	case *procgraph.DelayStmt:
		e.delay(s, st)
	case *procgraph.EventControlStmt:
		e.eventControl(s, st)
	case *procgraph.WaitStmt:
		e.wait(s, st)
	case *procgraph.EventTriggerStmt:
		e.emit(Instruction{Op: OpSetVTrig, Args: []string{fmt.Sprintf("E_%p", st.Event), "0", "1"}})
	case *procgraph.CondStmt:
		e.cond(s, st)
	case *procgraph.CaseStmt:
		e.caseStmt(s, st)
	case *procgraph.WhileStmt:
		e.whileLoop(s, st)
	case *procgraph.ForeverStmt:
		e.forever(s, st)
	case *procgraph.RepeatStmt:
		e.repeat(s, st)
	case *procgraph.ForStmt:
		e.forLoop(s, st)
	case *procgraph.TaskCallStmt:
		e.taskCall(s, st)
	case *procgraph.SystemTaskCallStmt:
		e.systemTaskCall(s, st)
	case *procgraph.DisableStmt:
		if st.Target != nil {
			e.emit(Instruction{Op: OpDisable, Args: []string{e.scopeLabel(st.Target)}})
		}
	default:
		e.Diags.Errorf(diagPosUnknown(), "internal: unhandled statement kind %T in emitter", st)
	}
}

func (e *Emitter) seqBlock(s *scope.Scope, st *procgraph.SeqBlockStmt) {
	target := s
	if st.Scope != nil {
		target = st.Scope
	}
	for _, sub := range st.Stmts {
		e.stmt(target, sub)
	}
}

// parBlock lowers fork/join (spec §4.6 item 10): N-1 %fork instructions
// spin up sub-threads, one sub-thread body runs inline in the current
// thread, then N-1 %join instructions wait for the forked threads, and the
// sub-thread bodies themselves are laid out after the join chain so the
// inline flow jumps over them.
func (e *Emitter) parBlock(s *scope.Scope, st *procgraph.ParBlockStmt) {
	if len(st.Stmts) == 0 {
		return
	}
	target := s
	if st.Scope != nil {
		target = st.Scope
	}

	inline := st.Stmts[0]
	rest := st.Stmts[1:]

	var threadLabels []string
	outLabel := e.label("fo")
	for range rest {
		threadLabels = append(threadLabels, e.label("t"))
	}
	for _, tl := range threadLabels {
		e.emit(Instruction{Op: OpFork, Args: []string{tl, e.scopeLabel(target)}})
	}
	e.stmt(target, inline)
	for range rest {
		e.emit(Instruction{Op: OpJoin})
	}
	e.emit(Instruction{Op: OpJmp, Args: []string{outLabel}})

	// sub-thread bodies, laid out after the join chain.
	savedCur := e.cur
	for i, sub := range rest {
		subThread := &Thread{Name: threadLabels[i]}
		e.cur = subThread
		e.stmt(target, sub)
		e.emit(Instruction{Op: OpEnd})
		e.prog.Threads = append(e.prog.Threads, subThread)
	}
	e.cur = savedCur
	e.emitLabel(outLabel)
}

// assign lowers a (non-delayed; delayed-blocking has already been rewritten
// by the Behavioral Elaborator, spec §4.5) procedural assignment (spec
// §4.6 items 1-3).
func (e *Emitter) assign(s *scope.Scope, st *procgraph.AssignStmt) {
	ref, ok := st.LValue.(*procgraph.SignalRef)
	if !ok {
		e.Diags.Errorf(diagPosUnknown(), "internal: assignment l-value is not a signal reference")
		return
	}

	if st.Kind == procgraph.AssignContinuousProcedural {
		// the `assign lhs = rhs;` procedural form drives lhs the same way a
		// continuous assign would, so it lowers through the %cassign family
		// rather than %set (spec §4.6 item 13's family, not item 1's).
		e.forceOrCassign(s, OpCassign, st.LValue, st.RValue)
		return
	}

	real := ref.Type == procgraph.Real
	rv := e.eval(st.RValue)
	defer e.freeOperand(rv)

	args := []string{"v" + ref.Signal.Name}
	op := OpSet
	if st.Kind == procgraph.AssignNonBlocking {
		op = OpAssignV0
	}
	if real {
		op = OpSetWR
		if st.Kind == procgraph.AssignNonBlocking {
			op = OpAssignWR
		}
	} else if ref.WordIndex != nil {
		op = OpSetAV
		if st.Kind == procgraph.AssignNonBlocking {
			op = OpAssignAV
		}
		wi := e.eval(ref.WordIndex)
		args = append(args, wi.text)
		e.freeOperand(wi)
	}
	if !real && ref.PartOffset != nil {
		if c, ok := constIntOffset(ref.PartOffset); ok {
			if op == OpSet {
				op = OpSetX0
			} else {
				op = suffix(op, "x1")
			}
			args = append(args, fmt.Sprintf("%d", c))
		} else {
			po := e.eval(ref.PartOffset)
			args = append(args, po.text)
			e.freeOperand(po)
		}
	}
	if ref.MuxSelect != nil {
		// an x/z mux select skips the write entirely rather than writing a
		// garbage bit position (spec §4.6 item 1).
		ms := e.eval(ref.MuxSelect)
		muxLabel := e.label("mx")
		e.emit(Instruction{Op: OpJmp0XZ, Args: []string{muxLabel, ms.text}})
		e.freeOperand(ms)
		e.emit(Instruction{Op: op, Args: append(args, rv.text)})
		e.emitLabel(muxLabel)
		e.Lookaside.Invalidate(ref.Signal)
		return
	}
	args = append(args, rv.text)
	e.emit(Instruction{Op: op, Args: args})
	e.Lookaside.Invalidate(ref.Signal)
}

func (e *Emitter) forceOrCassign(s *scope.Scope, base Opcode, lv, rv procgraph.Expr) {
	ref, ok := lv.(*procgraph.SignalRef)
	if !ok {
		e.Diags.Errorf(diagPosUnknown(), "internal: force/cassign l-value is not a signal reference")
		return
	}
	op := base
	real := ref.Type == procgraph.Real
	if real {
		op = suffix(op, "wr")
	}
	if ref.PartOffset != nil {
		if c, ok := constIntOffset(ref.PartOffset); ok {
			op = suffix(op, "x0")
			v := e.eval(rv)
			e.emit(Instruction{Op: op, Args: []string{"v" + ref.Signal.Name, fmt.Sprintf("%d", c), v.text}})
			e.freeOperand(v)
			e.Lookaside.Invalidate(ref.Signal)
			return
		}
	}
	v := e.eval(rv)
	e.emit(Instruction{Op: op, Args: []string{"v" + ref.Signal.Name, v.text}})
	if _, plain := rv.(*procgraph.SignalRef); plain {
		e.emit(Instruction{Op: suffix(base, "link"), Args: []string{"v" + ref.Signal.Name, v.text}})
	}
	e.freeOperand(v)
	e.Lookaside.Invalidate(ref.Signal)
}

func (e *Emitter) deassignOrRelease(s *scope.Scope, base Opcode, lv procgraph.Expr) {
	ref, ok := lv.(*procgraph.SignalRef)
	if !ok {
		e.Diags.Errorf(diagPosUnknown(), "internal: deassign/release l-value is not a signal reference")
		return
	}
	op := base
	if ref.Type == procgraph.Real {
		op = suffix(op, "wr")
	}
	e.emit(Instruction{Op: op, Args: []string{"v" + ref.Signal.Name}})
	e.Lookaside.Invalidate(ref.Signal)
}

// cond lowers if/else (spec §4.6 item 4).
func (e *Emitter) cond(s *scope.Scope, st *procgraph.CondStmt) {
	c := e.eval(st.Cond)
	falseLabel := e.label("f")
	e.emit(Instruction{Op: OpJmp0XZ, Args: []string{falseLabel, c.text}})
	e.freeOperand(c)
	e.stmt(s, st.Then)
	if st.Else != nil {
		outLabel := e.label("o")
		e.emit(Instruction{Op: OpJmp, Args: []string{outLabel}})
		e.emitLabel(falseLabel)
		e.stmt(s, st.Else)
		e.emitLabel(outLabel)
	} else {
		e.emitLabel(falseLabel)
	}
}

// caseStmt lowers case/casex/casez/case-on-reals (spec §4.6 item 5): a
// chain of comparisons (short-circuiting on a small constant guard with
// %cmpi/u when modality is exact-case) followed by the arm bodies, each
// ending with a jump to the shared out-label; a guardless default arm
// falls through the comparison chain instead of being tested.
func (e *Emitter) caseStmt(s *scope.Scope, st *procgraph.CaseStmt) {
	sel := e.eval(st.Select)
	defer e.freeOperand(sel)

	cmpOp := caseCmpOp(st.Modality)
	outLabel := e.label("co")

	var armLabels []string
	var defaultLabel string
	for _, arm := range st.Arms {
		lbl := e.label("ca")
		armLabels = append(armLabels, lbl)
		if arm.Guards == nil {
			defaultLabel = lbl
			continue
		}
		for _, g := range arm.Guards {
			gv := e.eval(g)
			if c, ok := g.(*procgraph.ConstVector); ok && st.Modality == procgraph.CaseExact && !c.IsFourState() {
				e.emit(Instruction{Op: OpCmpIU, Args: []string{sel.text, gv.text}})
			} else {
				e.emit(Instruction{Op: cmpOp, Args: []string{sel.text, gv.text}})
			}
			e.freeOperand(gv)
			e.emit(Instruction{Op: suffix(OpJmp, "eq"), Args: []string{lbl}})
		}
	}
	if defaultLabel != "" {
		e.emit(Instruction{Op: OpJmp, Args: []string{defaultLabel}})
	} else {
		e.emit(Instruction{Op: OpJmp, Args: []string{outLabel}})
	}

	for i, arm := range st.Arms {
		e.emitLabel(armLabels[i])
		e.stmt(s, arm.Body)
		e.emit(Instruction{Op: OpJmp, Args: []string{outLabel}})
	}
	e.emitLabel(outLabel)
}

func caseCmpOp(mod procgraph.CaseModality) Opcode {
	switch mod {
	case procgraph.CaseX:
		return OpCmpX
	case procgraph.CaseZ:
		return OpCmpZ
	case procgraph.CaseReal:
		return OpCmpWR
	default:
		return OpCmpU
	}
}

// whileLoop lowers while (spec §4.6 item 6).
func (e *Emitter) whileLoop(s *scope.Scope, st *procgraph.WhileStmt) {
	top := e.label("wl")
	out := e.label("wo")
	e.emitLabel(top)
	c := e.eval(st.Cond)
	e.emit(Instruction{Op: OpJmp0XZ, Args: []string{out, c.text}})
	e.freeOperand(c)
	e.stmt(s, st.Body)
	e.emit(Instruction{Op: OpJmp, Args: []string{top}})
	e.emitLabel(out)
}

func (e *Emitter) forever(s *scope.Scope, st *procgraph.ForeverStmt) {
	top := e.label("fl")
	e.emitLabel(top)
	e.stmt(s, st.Body)
	e.emit(Instruction{Op: OpJmp, Args: []string{top}})
}

// repeat lowers repeat(count) body: evaluate count once, skip entirely if
// it is <= 0, otherwise loop decrementing it (spec §4.6 item 6).
func (e *Emitter) repeat(s *scope.Scope, st *procgraph.RepeatStmt) {
	cnt := e.eval(st.Count)
	ctr := e.VecRegs.Alloc(uint(cnt.width))
	e.emit(Instruction{Op: suffix(OpSet, "mov"), Args: []string{ctr.String(), cnt.text}})
	e.freeOperand(cnt)

	top := e.label("rl")
	out := e.label("ro")
	e.emitLabel(top)
	e.emit(Instruction{Op: suffix(OpJmp0XZ, "le0"), Args: []string{out, ctr.String()}})
	e.emit(Instruction{Op: suffix(OpSet, "dec"), Args: []string{ctr.String()}})
	e.stmt(s, st.Body)
	e.emit(Instruction{Op: OpJmp, Args: []string{top}})
	e.emitLabel(out)
	e.VecRegs.Free(ctr)
}

// forLoop lowers a ForStmt as the init/while/step expansion spec §4.5
// describes (Body runs, then Step, each iteration), keeping ForStmt's own identity in the
// assembly only as the label-naming scheme; the emitted code is identical
// to an equivalent hand-written while loop.
func (e *Emitter) forLoop(s *scope.Scope, st *procgraph.ForStmt) {
	e.stmt(s, st.Init)
	top := e.label("fo")
	out := e.label("fe")
	e.emitLabel(top)
	c := e.eval(st.Cond)
	e.emit(Instruction{Op: OpJmp0XZ, Args: []string{out, c.text}})
	e.freeOperand(c)
	e.stmt(s, st.Body)
	e.stmt(s, st.Step)
	e.emit(Instruction{Op: OpJmp, Args: []string{top}})
	e.emitLabel(out)
}

// delay lowers #d body (spec §4.6 item 9). A compile-time-constant delay
// splits into low/high 32-bit halves; an expression delay is evaluated into
// a word register and named with %delayx. Either crosses a scheduling
// boundary, so the lookaside is invalidated regardless of form.
func (e *Emitter) delay(s *scope.Scope, st *procgraph.DelayStmt) {
	if c, ok := st.Delay.(*procgraph.ConstVector); ok && !c.IsFourState() {
		v := constUint64(c)
		e.emit(Instruction{Op: OpDelay, Args: []string{fmt.Sprintf("%d", uint32(v)), fmt.Sprintf("%d", uint32(v>>32))}})
	} else {
		d := e.evalVector(st.Delay)
		reg := e.WordRegs.Alloc()
		e.emit(Instruction{Op: suffix(OpSet, "wr_from_v"), Args: []string{reg.String(), d.text}})
		e.freeOperand(d)
		e.emit(Instruction{Op: OpDelayX, Args: []string{"0"}})
		e.WordRegs.Free(reg)
	}
	e.Lookaside.Clear()
	e.stmt(s, st.Body)
}

func constUint64(c *procgraph.ConstVector) uint64 {
	var v uint64
	for i := len(c.Bits) - 1; i >= 0; i-- {
		v = v<<1 | uint64(c.Bits[i]&1)
	}
	return v
}

// eventControl lowers @(...) body (spec §4.6 item 7): a single probe waits
// directly on its event; multiple probes synthesize a `.event/or` cascade
// object first.
func (e *Emitter) eventControl(s *scope.Scope, st *procgraph.EventControlStmt) {
	e.waitOn(st.Probes)
	e.stmt(s, st.Body)
}

// wait lowers the already-rewritten `while(!expr) @(inputs); body;` form
// (spec §4.5/§4.6 item 7): re-test expr, wait on its inputs while false,
// then run body once it holds.
func (e *Emitter) wait(s *scope.Scope, st *procgraph.WaitStmt) {
	top := e.label("wt")
	e.emitLabel(top)
	c := e.eval(st.Cond)
	skip := e.label("ws")
	e.emit(Instruction{Op: suffix(OpJmp, "true"), Args: []string{skip, c.text}})
	e.freeOperand(c)
	e.waitOn(st.Probes)
	e.emit(Instruction{Op: OpJmp, Args: []string{top}})
	e.emitLabel(skip)
	e.stmt(s, st.Body)
}

func (e *Emitter) waitOn(probes []procgraph.EventProbe) {
	if len(probes) == 0 {
		e.Diags.Warnf(diagPosUnknown(), "wait on an empty sensitivity set blocks permanently")
		return
	}
	if len(probes) == 1 {
		e.emit(Instruction{Op: OpWait, Args: []string{e.probeToken(probes[0])}})
		e.Lookaside.Clear()
		return
	}
	cascade := e.ewaitLabel()
	args := make([]string, 0, len(probes))
	for _, p := range probes {
		args = append(args, e.probeToken(p))
	}
	e.emit(Instruction{Label: cascade, Op: ".event/or", Args: args})
	e.emit(Instruction{Op: OpWait, Args: []string{cascade}})
	e.Lookaside.Clear()
}

func (e *Emitter) probeToken(p procgraph.EventProbe) string {
	if p.Event != nil {
		return fmt.Sprintf("E_%p", p.Event)
	}
	v := e.evalVector(p.Value)
	e.freeOperand(v)
	return v.text
}

// taskCall lowers a user-task invocation (spec §4.6 item 11): bind
// arguments, fork the task's thread, join it.
func (e *Emitter) taskCall(s *scope.Scope, st *procgraph.TaskCallStmt) {
	if st.Task == nil {
		return
	}
	var args []operand
	for _, a := range st.Args {
		args = append(args, e.eval(a))
	}
	e.bindCallArgs(st.Task, args)
	for _, a := range args {
		e.freeOperand(a)
	}
	tl := e.label("t")
	e.emit(Instruction{Op: OpFork, Args: []string{tl, e.scopeLabel(st.Task)}})
	e.emit(Instruction{Op: OpJoin})
	e.Lookaside.Clear()
}

// systemTaskCall lowers $display/$finish/etc. (spec §4.6 item 12).
func (e *Emitter) systemTaskCall(s *scope.Scope, st *procgraph.SystemTaskCallStmt) {
	if len(st.Args) == 0 {
		e.emit(Instruction{Op: OpVpiCall, Args: []string{fmt.Sprintf("%q", st.Name)}})
		return
	}
	var pushed []operand
	for _, a := range st.Args {
		v := e.eval(a)
		pushed = append(pushed, v)
	}
	args := []string{fmt.Sprintf("%q", st.Name)}
	for _, v := range pushed {
		args = append(args, v.text)
	}
	e.emit(Instruction{Op: OpVpiCall, Args: args})
	for _, v := range pushed {
		e.freeOperand(v)
	}
}
