// Package procgraph is the elaborated behavioral output: a procedure graph
// of statement nodes with strongly-typed leaves, and the companion resolved
// expression graph (spec §3 "Procedure graph", "Expression graph"). Unlike
// pform, every signal/event/task/function reference here is a direct
// pointer into the frozen scope tree and netlist produced by earlier
// phases -- lookups have already happened, so nothing downstream needs to
// re-resolve a name.
package procgraph

import (
	"github.com/mna/nenuphar/netlist"
	"github.com/mna/nenuphar/scope"
)

// ValueType is an expression's value-type (spec §3).
type ValueType uint8

const (
	NoType ValueType = iota
	LogicVector
	BoolVector
	Real
)

// Expr is any node of the resolved expression graph. Every concrete variant
// below is self-determined: Width/Signed/Type are plain fields, not methods
// dispatched through an interface, so folding and width-reconciliation code
// can read them directly after a type switch (spec §9).
type Expr interface {
	exprNode()
}

type ebase struct{}

func (ebase) exprNode() {}

// ConstVector is a folded or literal vector constant with x/z support.
type ConstVector struct {
	ebase
	Width  int
	Signed bool
	Bits   []byte // {0,1,2('x'),3('z')} per bit, LSB-first
}

// IsFourState reports whether any bit of the constant is x or z.
func (c *ConstVector) IsFourState() bool {
	for _, b := range c.Bits {
		if b == 2 || b == 3 {
			return true
		}
	}
	return false
}

// ConstReal is a folded or literal IEEE-double constant.
type ConstReal struct {
	ebase
	Value float64
}

// SignalRef reads a resolved signal, optionally indexed/part-selected/muxed
// (spec §3).
type SignalRef struct {
	ebase
	Signal     *netlist.Signal
	Width      int
	Signed     bool
	Type       ValueType
	WordIndex  Expr // non-nil for a memory word
	PartOffset Expr // non-nil constant or runtime part-select base
	PartWidth  int
	MuxSelect  Expr
}

type UnaryOp uint8

const (
	UnaryPlus UnaryOp = iota
	UnaryMinus
	UnaryNot
	UnaryBitNot
)

type UnaryExpr struct {
	ebase
	Op      UnaryOp
	Operand Expr
	Width   int
	Signed  bool
	Type    ValueType
}

type ReductionOp uint8

const (
	RedAnd ReductionOp = iota
	RedNand
	RedOr
	RedNor
	RedXor
	RedXnor
)

// ReductionExpr always self-determines to width 1, BoolVector typed (spec
// §3: reduction-unary).
type ReductionExpr struct {
	ebase
	Op      ReductionOp
	Operand Expr
}

type BinaryOp uint8

const (
	BinLogAnd BinaryOp = iota
	BinLogOr
	BinEq
	BinNeq
	BinCaseEq
	BinCaseNeq
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
	BinAnd
	BinOr
	BinXor
	BinXnor
	BinShl
	BinShr
	BinAShr
)

type BinaryExpr struct {
	ebase
	Op          BinaryOp
	Left, Right Expr
	Width       int
	Signed      bool
	Type        ValueType
}

type TernaryExpr struct {
	ebase
	Cond, Then, Else Expr
	Width            int
	Signed           bool
	Type             ValueType
}

type ConcatExpr struct {
	ebase
	Parts []Expr
	Width int
}

// ReplicateExpr is `{N{expr}}`, kept distinct from ConcatExpr for the same
// reason pform does (spec §3): the structural netlist has a dedicated
// Replicate node kind, and the Back-End Emitter can special-case a
// replication count over re-emitting N copies of Value.
type ReplicateExpr struct {
	ebase
	Count int
	Value Expr
	Width int
}

type FuncCallExpr struct {
	ebase
	Func     *scope.Scope // the function's own scope, for argument binding
	IsSystem bool
	Name     string
	Args     []Expr
	Width    int
	Signed   bool
	Type     ValueType
}

// EventProbeExpr names a resolved event for use in an expression position.
type EventProbeExpr struct {
	ebase
	Event *netlist.Event
}
