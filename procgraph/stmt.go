package procgraph

import (
	"github.com/mna/nenuphar/netlist"
	"github.com/mna/nenuphar/scope"
)

// Stmt is a node of the elaborated procedure graph: the Behavioral
// Elaborator's output, generalizing pform.Stmt (spec §4.5) the way
// procgraph.Expr generalizes pform.Expr -- every leaf here has already been
// bound to a resolved signal/event/scope rather than a bare name, and every
// delayed-assign/wait/for/case rewrite spec §4.5 describes has already been
// applied. Dispatch is a type switch over the closed variant set below
// (spec §9).
type Stmt interface {
	stmtNode()
}

type sbase struct{}

func (sbase) stmtNode() {}

// SeqBlockStmt and ParBlockStmt are begin/end and fork/join groups. Scope is
// non-nil for a named block (spec §4.5: a named block owns its own scope,
// reachable as a disable target).
type SeqBlockStmt struct {
	sbase
	Scope *scope.Scope // nil for an unnamed block
	Stmts []Stmt
}

type ParBlockStmt struct {
	sbase
	Scope *scope.Scope
	Stmts []Stmt
}

// AssignKind distinguishes the three procedural-assignment forms (spec §3).
type AssignKind uint8

const (
	AssignBlocking AssignKind = iota
	AssignNonBlocking
	AssignContinuousProcedural
)

// AssignStmt is a (possibly delayed) procedural assignment. A source-level
// `lhs = #d rhs;` has already been rewritten by the Behavioral Elaborator
// into the two-statement `tmp = rhs; #d lhs = tmp;` sequence spec §4.5
// describes, so by the time a Stmt tree reaches here Delay is only ever
// set on a bare DelayStmt wrapping a zero-delay assign, never on AssignStmt
// itself.
type AssignStmt struct {
	sbase
	Kind   AssignKind
	LValue Expr
	RValue Expr
}

// ForceStmt, DeassignStmt and ReleaseStmt implement the force/release
// family (spec §3).
type ForceStmt struct {
	sbase
	LValue Expr
	RValue Expr
}

type DeassignStmt struct {
	sbase
	LValue Expr
}

type ReleaseStmt struct {
	sbase
	LValue Expr
}

// DelayStmt is `#d body;`: a constant or expression delay followed by a
// single statement.
type DelayStmt struct {
	sbase
	Delay Expr
	Body  Stmt
}

// EventControlStmt is `@(...) body;`, already reduced to its resolved
// probe set by the Behavioral Elaborator: a bare `@*` has been expanded to
// the enclosing statement's input signals (spec §4.5 "Event-control
// statement"), and each remaining item is bound to a concrete netlist.Event
// and/or signal.
type EventControlStmt struct {
	sbase
	Probes []EventProbe
	Body   Stmt
}

// EventProbe is one resolved sensitivity-list element.
type EventProbe struct {
	Event *netlist.Event // non-nil for a bare named-event probe
	Value Expr           // non-nil for an expression probe
	Edge  Edge
}

// Edge mirrors pform.Edge on the resolved side.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgePos
	EdgeNeg
	EdgeAny
)

// WaitStmt is the already-lowered form of `wait(expr) body;`: spec §4.5
// rewrites this to `while (!expr) @(inputs-of-expr) ; body;` at elaboration
// time, so Cond/Body here are that rewritten pair's constituents rather
// than a runtime wait primitive the back end would need its own opcode
// for. Probes is the resolved sensitivity set precomputed for the
// rewritten @(...) no-op wait.
type WaitStmt struct {
	sbase
	Cond   Expr
	Probes []EventProbe
	Body   Stmt
}

// EventTriggerStmt is `-> event;`.
type EventTriggerStmt struct {
	sbase
	Event *netlist.Event
}

// CondStmt is `if (cond) then [else else];`. Else is nil when absent.
type CondStmt struct {
	sbase
	Cond Expr
	Then Stmt
	Else Stmt
}

// CaseModality distinguishes case/casex/casez/case-on-reals (spec §3).
type CaseModality uint8

const (
	CaseExact CaseModality = iota
	CaseX
	CaseZ
	CaseReal
)

// CaseArm is one case-statement arm. Guards holds every comma-separated
// guard expression for the arm (spec §4.5: "duplicate guards preserved");
// a nil Guards slice denotes the default arm.
type CaseArm struct {
	Guards []Expr
	Body   Stmt
}

type CaseStmt struct {
	sbase
	Modality CaseModality
	Select   Expr
	Arms     []CaseArm
}

// WhileStmt, ForeverStmt and RepeatStmt are the non-for looping forms.
type WhileStmt struct {
	sbase
	Cond Expr
	Body Stmt
}

type ForeverStmt struct {
	sbase
	Body Stmt
}

type RepeatStmt struct {
	sbase
	Count Expr
	Body  Stmt
}

// ForStmt holds the four parts of `for(init;cond;step) body`, with Body the
// loop body alone; the Back-End Emitter lays them out as its while-loop
// equivalent (spec §4.5 "for-loop lowering": `for(init;cond;step) body` ->
// `init; while(cond) { body; step; }`). It is kept as its own variant
// (rather than only ever appearing as a WhileStmt) so a consumer that wants
// to recognize the idiom specifically -- e.g. to special-case a
// synthesizable unrolled loop -- still can.
type ForStmt struct {
	sbase
	Init Stmt
	Cond Expr
	Step Stmt
	Body Stmt
}

// TaskCallStmt calls a user-defined task; Task is nil only if resolution
// failed and a diagnostic was already recorded.
type TaskCallStmt struct {
	sbase
	Task *scope.Scope // the task's own scope, holding its port bindings
	Args []Expr
}

// SystemTaskCallStmt calls a system task ($display, $finish, ...), which
// the Back-End Emitter lowers to a %vpi_call per spec §4.6.
type SystemTaskCallStmt struct {
	sbase
	Name string
	Args []Expr
}

// DisableStmt targets the named block, task, or (rarer) whole module scope
// to unwind (spec §4.5 "disable targeting module/function" check; Target
// is nil only when resolution failed).
type DisableStmt struct {
	sbase
	Target *scope.Scope
}

// NoOpStmt is an elaborated empty statement -- notably, the residue of a
// constant-condition arm elision leaving nothing to execute (spec §4.5
// "constant-condition elision with empty-block pruning" keeps the tree
// valid rather than leaving a nil Stmt in a slice).
type NoOpStmt struct {
	sbase
}
