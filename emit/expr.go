package emit

import (
	"fmt"

	"github.com/mna/nenuphar/procgraph"
	"github.com/mna/nenuphar/scope"
)

// operand is the formatted assembly token for an already-evaluated value,
// plus the register (if any) backing it so the caller can free it once
// consumed. A bare constant has no backing register.
type operand struct {
	text  string
	vec   *VecReg
	word  *WordReg
	real  bool
	width int
}

func (e *Emitter) freeOperand(op operand) {
	if op.vec != nil {
		e.VecRegs.Free(*op.vec)
	}
	if op.word != nil {
		e.WordRegs.Free(*op.word)
	}
}

// evalVector evaluates an expression into a vector-register operand (or a
// literal token for a folded constant -- no register needed). Used by
// every statement routine that needs an r-value to write into a signal or
// test in a condition.
func (e *Emitter) evalVector(ex procgraph.Expr) operand {
	switch ex := ex.(type) {
	case *procgraph.ConstVector:
		return operand{text: fmt.Sprintf("C4<%s>", bitsToken(ex.Bits)), width: ex.Width}

	case *procgraph.SignalRef:
		return e.evalSignalRef(ex)

	case *procgraph.UnaryExpr:
		v := e.evalVector(ex.Operand)
		dst := e.VecRegs.Alloc(uint(ex.Width))
		e.emit(Instruction{Op: unaryVecOp(ex.Op), Args: []string{dst.String(), v.text}})
		e.freeOperand(v)
		return operand{text: dst.String(), vec: &dst, width: ex.Width}

	case *procgraph.ReductionExpr:
		v := e.evalVector(ex.Operand)
		dst := e.VecRegs.Alloc(1)
		e.emit(Instruction{Op: reductionVecOp(ex.Op), Args: []string{dst.String(), v.text}})
		e.freeOperand(v)
		return operand{text: dst.String(), vec: &dst, width: 1}

	case *procgraph.BinaryExpr:
		l := e.evalVector(ex.Left)
		r := e.evalVector(ex.Right)
		dst := e.VecRegs.Alloc(uint(ex.Width))
		e.emit(Instruction{Op: binaryVecOp(ex.Op), Args: []string{dst.String(), l.text, r.text}})
		e.freeOperand(l)
		e.freeOperand(r)
		return operand{text: dst.String(), vec: &dst, width: ex.Width}

	case *procgraph.TernaryExpr:
		c := e.evalVector(ex.Cond)
		dst := e.VecRegs.Alloc(uint(ex.Width))
		falseLbl := e.label("tf")
		outLbl := e.label("to")
		e.emit(Instruction{Op: OpJmp0XZ, Args: []string{falseLbl, c.text}})
		e.freeOperand(c)
		t := e.evalVector(ex.Then)
		e.emit(Instruction{Op: OpSet, Args: []string{dst.String(), t.text}})
		e.freeOperand(t)
		e.emit(Instruction{Op: OpJmp, Args: []string{outLbl}})
		e.emitLabel(falseLbl)
		f := e.evalVector(ex.Else)
		e.emit(Instruction{Op: OpSet, Args: []string{dst.String(), f.text}})
		e.freeOperand(f)
		e.emitLabel(outLbl)
		return operand{text: dst.String(), vec: &dst, width: ex.Width}

	case *procgraph.ConcatExpr:
		dst := e.VecRegs.Alloc(uint(ex.Width))
		var parts []string
		for _, p := range ex.Parts {
			pv := e.evalVector(p)
			parts = append(parts, pv.text)
			e.freeOperand(pv)
		}
		e.emit(Instruction{Op: suffix(OpSet, "concat"), Args: append([]string{dst.String()}, parts...)})
		return operand{text: dst.String(), vec: &dst, width: ex.Width}

	case *procgraph.ReplicateExpr:
		v := e.evalVector(ex.Value)
		dst := e.VecRegs.Alloc(uint(ex.Width))
		e.emit(Instruction{Op: suffix(OpSet, "repl"), Args: []string{dst.String(), fmt.Sprintf("%d", ex.Count), v.text}})
		e.freeOperand(v)
		return operand{text: dst.String(), vec: &dst, width: ex.Width}

	case *procgraph.FuncCallExpr:
		return e.evalFuncCall(ex)

	case *procgraph.EventProbeExpr:
		return operand{text: fmt.Sprintf("E_%p", ex.Event), width: 1}

	default:
		e.Diags.Errorf(diagPosUnknown(), "internal: unhandled expression kind %T in emitter", ex)
		return operand{text: "C4<x>", width: 1}
	}
}

// evalSignalRef evaluates a signal reference, reusing the expression
// lookaside when the same (signal, word, offset) was already read in this
// basic block (spec §4.6 "Expression lookaside").
func (e *Emitter) evalSignalRef(ref *procgraph.SignalRef) operand {
	wordIdx, bitOff := 0, 0
	if ref.PartOffset != nil {
		if c, ok := constIntOffset(ref.PartOffset); ok {
			bitOff = c
		}
	}
	if cached, ok := e.Lookaside.Lookup(ref.Signal, wordIdx, bitOff); ok && ref.WordIndex == nil && ref.MuxSelect == nil {
		return operand{text: cached.String(), width: ref.Width}
	}

	dst := e.VecRegs.Alloc(uint(ref.Width))
	args := []string{dst.String(), "v" + ref.Signal.Name}
	op := OpSet
	if ref.WordIndex != nil {
		op = OpSetAV
		wi := e.evalVector(ref.WordIndex)
		args = append(args, wi.text)
		e.freeOperand(wi)
	}
	if ref.PartOffset != nil {
		if c, ok := constIntOffset(ref.PartOffset); ok {
			op = suffix(op, "x0")
			args = append(args, fmt.Sprintf("%d", c))
		} else {
			po := e.evalVector(ref.PartOffset)
			args = append(args, po.text)
			e.freeOperand(po)
		}
	}
	if ref.MuxSelect != nil {
		ms := e.evalVector(ref.MuxSelect)
		args = append(args, "mux="+ms.text)
		e.freeOperand(ms)
	}
	e.emit(Instruction{Op: suffix(op, "read"), Args: args})
	if ref.WordIndex == nil && ref.MuxSelect == nil {
		e.Lookaside.Record(ref.Signal, wordIdx, bitOff, dst)
	}
	return operand{text: dst.String(), vec: &dst, width: ref.Width}
}

// evalReal evaluates a real-typed expression into a word register (spec
// §4.6 item 2 / DESIGN supplement: real expressions use the word-register
// family, not the vector one).
func (e *Emitter) evalReal(ex procgraph.Expr) operand {
	switch ex := ex.(type) {
	case *procgraph.ConstReal:
		return operand{text: fmt.Sprintf("%g", ex.Value), real: true}
	case *procgraph.SignalRef:
		dst := e.WordRegs.Alloc()
		e.emit(Instruction{Op: suffix(OpSetWR, "read"), Args: []string{dst.String(), "v" + ex.Signal.Name}})
		return operand{text: dst.String(), word: &dst, real: true}
	case *procgraph.BinaryExpr:
		l := e.evalReal(ex.Left)
		r := e.evalReal(ex.Right)
		dst := e.WordRegs.Alloc()
		e.emit(Instruction{Op: suffix(binaryVecOp(ex.Op), "wr"), Args: []string{dst.String(), l.text, r.text}})
		e.freeOperand(l)
		e.freeOperand(r)
		return operand{text: dst.String(), word: &dst, real: true}
	case *procgraph.UnaryExpr:
		v := e.evalReal(ex.Operand)
		dst := e.WordRegs.Alloc()
		e.emit(Instruction{Op: suffix(unaryVecOp(ex.Op), "wr"), Args: []string{dst.String(), v.text}})
		e.freeOperand(v)
		return operand{text: dst.String(), word: &dst, real: true}
	case *procgraph.TernaryExpr:
		c := e.evalVector(ex.Cond)
		dst := e.WordRegs.Alloc()
		falseLbl := e.label("tf")
		outLbl := e.label("to")
		e.emit(Instruction{Op: OpJmp0XZ, Args: []string{falseLbl, c.text}})
		e.freeOperand(c)
		t := e.evalReal(ex.Then)
		e.emit(Instruction{Op: suffix(OpSetWR, "mov"), Args: []string{dst.String(), t.text}})
		e.freeOperand(t)
		e.emit(Instruction{Op: OpJmp, Args: []string{outLbl}})
		e.emitLabel(falseLbl)
		f := e.evalReal(ex.Else)
		e.emit(Instruction{Op: suffix(OpSetWR, "mov"), Args: []string{dst.String(), f.text}})
		e.freeOperand(f)
		e.emitLabel(outLbl)
		return operand{text: dst.String(), word: &dst, real: true}
	case *procgraph.FuncCallExpr:
		return e.evalFuncCall(ex)
	default:
		e.Diags.Errorf(diagPosUnknown(), "internal: unhandled real expression kind %T in emitter", ex)
		dst := e.WordRegs.Alloc()
		return operand{text: dst.String(), word: &dst, real: true}
	}
}

// eval dispatches to evalReal or evalVector by the expression's
// self-determined value-type.
func (e *Emitter) eval(ex procgraph.Expr) operand {
	if exprIsReal(ex) {
		return e.evalReal(ex)
	}
	return e.evalVector(ex)
}

func exprIsReal(ex procgraph.Expr) bool {
	switch ex := ex.(type) {
	case *procgraph.ConstReal:
		return true
	case *procgraph.SignalRef:
		return ex.Type == procgraph.Real
	case *procgraph.UnaryExpr:
		return ex.Type == procgraph.Real
	case *procgraph.BinaryExpr:
		return ex.Type == procgraph.Real
	case *procgraph.TernaryExpr:
		return ex.Type == procgraph.Real
	case *procgraph.FuncCallExpr:
		return ex.Type == procgraph.Real
	default:
		return false
	}
}

func (e *Emitter) evalFuncCall(ex *procgraph.FuncCallExpr) operand {
	var args []operand
	for _, a := range ex.Args {
		args = append(args, e.eval(a))
	}
	e.bindCallArgs(ex.Func, args)
	for _, a := range args {
		e.freeOperand(a)
	}
	threadLabel := e.label("t")
	e.emit(Instruction{Op: OpFork, Args: []string{threadLabel, e.scopeLabel(ex.Func)}})
	e.emit(Instruction{Op: OpJoin})
	e.Lookaside.Clear()
	if ex.Type == procgraph.Real {
		dst := e.WordRegs.Alloc()
		e.emit(Instruction{Op: suffix(OpSetWR, "read"), Args: []string{dst.String(), "v" + ex.Name}})
		return operand{text: dst.String(), word: &dst, real: true}
	}
	dst := e.VecRegs.Alloc(uint(ex.Width))
	e.emit(Instruction{Op: suffix(OpSet, "read"), Args: []string{dst.String(), "v" + ex.Name}})
	return operand{text: dst.String(), vec: &dst, width: ex.Width}
}

// bindCallArgs emits the per-argument writes spec §4.6 item 11 describes
// ("using the same %set rules as a blocking assign") before the %fork/%join
// pair that actually invokes the task/function thread.
func (e *Emitter) bindCallArgs(target *scope.Scope, args []operand) {
	ports := e.portSignals(target)
	for i, a := range args {
		if i >= len(ports) {
			break
		}
		e.emit(Instruction{Op: suffix(OpSet, "write"), Args: []string{"v" + ports[i].Name, a.text}})
		e.Lookaside.Invalidate(ports[i])
	}
}

func constIntOffset(ex procgraph.Expr) (int, bool) {
	c, ok := ex.(*procgraph.ConstVector)
	if !ok || c.IsFourState() {
		return 0, false
	}
	v := 0
	for i := len(c.Bits) - 1; i >= 0; i-- {
		v = v<<1 | int(c.Bits[i])
	}
	return v, true
}

func bitsToken(bits []byte) string {
	out := make([]byte, len(bits))
	for i, b := range bits {
		out[len(bits)-1-i] = "01xz"[b]
	}
	return string(out)
}

func unaryVecOp(op procgraph.UnaryOp) Opcode {
	switch op {
	case procgraph.UnaryPlus:
		return suffix(OpSet, "uplus")
	case procgraph.UnaryMinus:
		return suffix(OpSet, "uminus")
	case procgraph.UnaryNot:
		return suffix(OpSet, "not")
	default: // procgraph.UnaryBitNot
		return suffix(OpSet, "bitnot")
	}
}

func reductionVecOp(op procgraph.ReductionOp) Opcode {
	names := [...]string{"and", "nand", "or", "nor", "xor", "xnor"}
	return suffix(OpSet, "red_"+names[op])
}

func binaryVecOp(op procgraph.BinaryOp) Opcode {
	names := [...]string{
		"land", "lor", "eq", "neq", "caseeq", "casenq",
		"lt", "le", "gt", "ge", "add", "sub", "mul", "div", "mod", "pow",
		"min", "max", "and", "or", "xor", "xnor", "shl", "shr", "ashr",
	}
	return suffix(OpSet, names[op])
}
