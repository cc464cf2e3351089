package emit

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/mna/nenuphar/config"
	"github.com/mna/nenuphar/diag"
	"github.com/mna/nenuphar/elaborate"
	"github.com/mna/nenuphar/netlist"
	"github.com/mna/nenuphar/pform"
	"github.com/mna/nenuphar/procgraph"
	"github.com/mna/nenuphar/scope"
)

// Emitter walks the elaborated Design and produces a Program (spec §4.6).
// Its counters and register files are deliberately instance-scoped rather
// than process-wide globals, per spec §9's "Shared resources" note
// ("reimplementations should scope them to an emitter instance to enable
// testing").
type Emitter struct {
	Diags  *diag.Counter
	Flags  config.Flags
	Design *elaborate.Design

	WordRegs  *WordRegisterFile
	VecRegs   *VectorRegisterFile
	Lookaside *Lookaside

	threadCount int
	localCount  int
	transientID int
	ewaitCount  int

	prog *Program
	cur  *Thread
}

// NewEmitter returns a fresh emitter over the given design.
func NewEmitter(d *elaborate.Design, diags *diag.Counter, flags config.Flags) *Emitter {
	return &Emitter{
		Diags:     diags,
		Flags:     flags,
		Design:    d,
		WordRegs:  NewWordRegisterFile(),
		VecRegs:   NewVectorRegisterFile(),
		Lookaside: NewLookaside(),
	}
}

// EmitDesign is the package entry point: it walks every root, finds every
// scope carrying elaborated behaviors (module top-level initial/always
// blocks, task bodies, function bodies), and emits one thread each, task
// and function bodies named as TD_<mangled> definitions invoked only via
// %fork rather than run standing like a module's own behaviors.
func (e *Emitter) EmitDesign() *Program {
	e.prog = NewProgram()
	for _, root := range e.Design.Roots {
		e.emitScope(root)
	}
	return e.prog
}

func (e *Emitter) emitScope(s *scope.Scope) {
	stmts := e.Design.Behaviors[s]
	metas := e.Design.BehaviorMeta[s]
	switch s.Kind {
	case scope.TaskScope, scope.FunctionScope:
		for i, st := range stmts {
			e.emitTaskDef(s, st, i)
		}
	default:
		for i, st := range stmts {
			meta := pform.BehaviorKind(0)
			combinational := false
			if i < len(metas) {
				meta = metas[i].Kind
				combinational = metas[i].Combinational
			}
			e.emitTopLevelThread(s, st, i, meta, combinational)
		}
	}
	for _, child := range s.Children {
		e.emitScope(child)
	}
}

func (e *Emitter) emitTopLevelThread(s *scope.Scope, st procgraph.Stmt, idx int, kind pform.BehaviorKind, combinational bool) {
	name := fmt.Sprintf("T_%d", e.threadCount)
	e.threadCount++
	th := &Thread{Name: name}
	e.cur = th
	e.Lookaside.Clear()

	e.emit(Instruction{Comment: fmt.Sprintf(".scope S_%p", s)})
	push := combinational || kind == pform.Always
	threadDirective := fmt.Sprintf(".thread %s", name)
	if push {
		threadDirective += ", $push"
	}
	e.emit(Instruction{Comment: threadDirective})

	e.stmt(s, st)
	e.emit(Instruction{Op: OpEnd})

	if e.Flags.DebugElaborate {
		log.WithField("thread", name).WithField("scope", s.Path()).Debug("emitted behavior thread")
	}
	e.prog.Threads = append(e.prog.Threads, th)
}

func (e *Emitter) emitTaskDef(s *scope.Scope, st procgraph.Stmt, idx int) {
	name := "TD_" + mangle(s.Path())
	th := &Thread{Name: name}
	e.cur = th
	e.Lookaside.Clear()

	e.emit(Instruction{Comment: fmt.Sprintf(".scope S_%p", s)})
	e.stmt(s, st)
	e.emit(Instruction{Op: OpEnd})

	e.prog.Threads = append(e.prog.Threads, th)
}

func mangle(path string) string {
	out := make([]byte, 0, len(path))
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '.' {
			out = append(out, '_')
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

// emit appends one instruction to the thread currently being built.
func (e *Emitter) emit(insn Instruction) {
	e.cur.Code = append(e.cur.Code, insn)
}

// emitLabel appends a bare label line, the target of a prior jump.
func (e *Emitter) emitLabel(label string) {
	e.emit(Instruction{Label: label})
	e.Lookaside.Clear()
}

// label mints a fresh transient label of the given kind ("t" for a
// transient id per spec §4.6's glossary, anything else as a thread-local
// T_<n>.<m> sub-label).
func (e *Emitter) label(kind string) string {
	switch kind {
	case "t":
		e.transientID++
		return fmt.Sprintf("t_%d", e.transientID)
	default:
		e.localCount++
		return fmt.Sprintf("%s.%d", e.cur.Name, e.localCount)
	}
}

// ewaitLabel mints the next `Ewait_<k>` cascade-object label (spec §6's
// "Event cascade" glossary entry).
func (e *Emitter) ewaitLabel() string {
	e.ewaitCount++
	return fmt.Sprintf("Ewait_%d", e.ewaitCount)
}

func (e *Emitter) scopeLabel(s *scope.Scope) string {
	return fmt.Sprintf("S_%p", s)
}

// portSignals returns a task/function scope's declared ports in source
// order, looked up through the declaring parent's Tasks/Funcs table since
// the child scope itself only carries the already-materialized Signals map
// (spec §4.3), not the declaration order.
func (e *Emitter) portSignals(s *scope.Scope) []*netlist.Signal {
	if s.Parent == nil {
		return nil
	}
	var decls []pform.SignalDecl
	if t, ok := s.Parent.Tasks[s.Name]; ok {
		decls = t.Ports
	} else if f, ok := s.Parent.Funcs[s.Name]; ok {
		decls = f.Ports
	}
	out := make([]*netlist.Signal, 0, len(decls))
	for _, d := range decls {
		if sig, ok := s.Signals.Get(d.Name); ok {
			out = append(out, sig)
		}
	}
	return out
}

func diagPosUnknown() diag.Pos { return diag.Pos{} }
