package pform

// ExprKind enumerates the closed set of expression-graph variants (spec §3
// "Expression graph").
type ExprKind uint8

const (
	ExprConstVector ExprKind = iota
	ExprConstReal
	ExprSignalRef
	ExprUnary
	ExprBinary
	ExprReductionUnary
	ExprTernary
	ExprConcat
	ExprFuncCall
	ExprEventProbe
)

// UnaryOp and BinaryOp enumerate the operator set named in spec §3: unary,
// binary (short-circuit logical, comparison, arithmetic, bitwise, shift,
// power, min/max), and reduction-unary.
type UnaryOp uint8

const (
	UnaryPlus UnaryOp = iota
	UnaryMinus
	UnaryNot    // logical !
	UnaryBitNot // ~
)

type ReductionOp uint8

const (
	RedAnd ReductionOp = iota
	RedNand
	RedOr
	RedNor
	RedXor
	RedXnor
)

type BinaryOp uint8

const (
	BinLogAnd BinaryOp = iota // short-circuit &&
	BinLogOr                  // short-circuit ||
	BinEq
	BinNeq
	BinCaseEq  // ===
	BinCaseNeq // !==
	BinLt
	BinLe
	BinGt
	BinGe
	BinAdd
	BinSub
	BinMul
	BinDiv
	BinMod
	BinPow
	BinMin
	BinMax
	BinAnd // bitwise &
	BinOr  // bitwise |
	BinXor
	BinXnor
	BinShl
	BinShr
	BinAShr // arithmetic (sign-extending) shift right
)

// ValueType is an expression's value-type per spec §3.
type ValueType uint8

const (
	NoType ValueType = iota
	LogicVector
	BoolVector
	RealType
)

// Expr is any node in the expression graph. self-determined Width/Signed/
// Type are attributes every concrete variant below carries directly rather
// than through a shared interface method set, matching the "closed universe
// of tagged variants" guidance (spec §9): callers type-switch.
type Expr interface {
	exprNode()
	Span() Pos
}

type base struct{ Pos Pos }

func (base) exprNode()    {}
func (b base) Span() Pos  { return b.Pos }

// ConstVector is a compile-time or folded vector constant with x/z support
// (spec §4.2 "Constant folding").
type ConstVector struct {
	base
	Width   int
	Signed  bool
	Bits    []byte // one of {0,1,2('x'),3('z')} per bit, LSB-first
}

// ConstReal is a compile-time or folded IEEE-double constant.
type ConstReal struct {
	base
	Value float64
}

// SignalRef is a reference to a declared signal, optionally indexed into a
// memory word, optionally part-selected, optionally muxed by a runtime
// expression (spec §3).
type SignalRef struct {
	base
	Name       string
	WordIndex  Expr // non-nil for a memory word reference
	PartOffset Expr // non-nil for a part-select; constant-foldable or not
	PartWidth  int
	MuxSelect  Expr // non-nil when PartOffset is itself computed, not constant
}

type UnaryExpr struct {
	base
	Op      UnaryOp
	Operand Expr
}

type ReductionExpr struct {
	base
	Op      ReductionOp
	Operand Expr
}

type BinaryExpr struct {
	base
	Op          BinaryOp
	Left, Right Expr
}

type TernaryExpr struct {
	base
	Cond, Then, Else Expr
}

type ConcatExpr struct {
	base
	Parts []Expr
}

// ReplicateExpr is `{N{expr}}`; kept distinct from ConcatExpr since the
// structural netlist distinguishes Concat and Replicate node kinds (spec §3).
type ReplicateExpr struct {
	base
	Count Expr
	Value Expr
}

// FuncCallExpr is a call to either a user-defined function or a system
// function/task (spec §3; "system-task call" as a statement is separate,
// see stmt.go -- this is the expression-position system *function* call).
type FuncCallExpr struct {
	base
	Name      string
	IsSystem  bool
	Args      []Expr
}

// EventProbeExpr names an event for use in an expression position, e.g. as
// a wait-statement operand distinguishing a bare named event from an
// edge-qualified expression (spec §4.5 "Event-control statement").
type EventProbeExpr struct {
	base
	EventName string
}

// Edge qualifies a sensitivity-list element or a specify-path source.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgePos
	EdgeNeg
	EdgeAny
)

// SensitivityItem is one element of an `@(...)` list.
type SensitivityItem struct {
	Event    string // set when this item is a bare named-event reference
	Expr     Expr   // set when this item is an expression, optionally edge-qualified
	EdgeQual Edge
}
