// Package elaborate implements phases 3-5 of the pipeline described in spec
// §4: the Signal, Structural and Behavioral elaborators, plus the constant
// folder the Parameter Resolver depends on (spec §4.2). It generalizes the
// teacher's single-pass AST-to-bytecode walk
// (lang/compiler/compiler.go's fcomp) from a scripting language's
// statements to gates/assigns/instances/UDPs/processes, and its constant
// propagation from general expression folding to the specific x/z-aware
// 4-state arithmetic an HDL requires.
package elaborate

import (
	"math"

	"github.com/mna/nenuphar/pform"
	"github.com/mna/nenuphar/scope"
)

// Folder implements scope.Folder: it evaluates width/delay/condition/
// selector/parameter expressions to constants, resolving parameter
// references against the scope given to Fold (spec §4.2).
type Folder struct{}

var _ scope.Folder = Folder{}

func (Folder) Fold(s *scope.Scope, e pform.Expr) (*pform.ConstVector, *pform.ConstReal, bool) {
	return fold(s, e)
}

func fold(s *scope.Scope, e pform.Expr) (*pform.ConstVector, *pform.ConstReal, bool) {
	switch e := e.(type) {
	case nil:
		return nil, nil, false
	case *pform.ConstVector:
		return e, nil, true
	case *pform.ConstReal:
		return nil, e, true
	case *pform.SignalRef:
		return foldRef(s, e)
	case *pform.UnaryExpr:
		return foldUnary(s, e)
	case *pform.ReductionExpr:
		return foldReduction(s, e)
	case *pform.BinaryExpr:
		return foldBinary(s, e)
	case *pform.TernaryExpr:
		return foldTernary(s, e)
	case *pform.ConcatExpr:
		return foldConcat(s, e)
	case *pform.ReplicateExpr:
		return foldReplicate(s, e)
	default:
		// function calls, event probes, part-selects with a runtime mux: not
		// compile-time foldable. The caller treats this as a residual runtime
		// expression, per spec §4.2: "if reduction fails -- a residual
		// expression that will be emitted as runtime code."
		return nil, nil, false
	}
}

func foldRef(s *scope.Scope, e *pform.SignalRef) (*pform.ConstVector, *pform.ConstReal, bool) {
	if e.PartOffset != nil || e.WordIndex != nil || e.MuxSelect != nil {
		return nil, nil, false
	}
	res := s.Resolve(e.Name)
	if res.Kind != scope.ResolveParam {
		return nil, nil, false
	}
	if res.Param.State != scope.ParamEvaluated {
		// Referenced before evaluation: the language's ordering rules
		// guarantee this does not happen within a scope for a *legal*
		// program, but defensive recursion into the referenced slot's own
		// expression keeps folding robust against the Parameter Resolver's
		// visitation order rather than asserting.
		return fold(res.Scope, res.Param.Expr)
	}
	return res.Param.Const, res.Param.ConstReal, res.Param.Const != nil || res.Param.ConstReal != nil
}

// anyX reports whether any bit of v is x or z; used to implement the
// "arithmetic on any-x operand produces all-x" rule (spec §4.2).
func anyX(v *pform.ConstVector) bool {
	for _, b := range v.Bits {
		if b == 2 || b == 3 {
			return true
		}
	}
	return false
}

func allX(width int) *pform.ConstVector {
	bits := make([]byte, width)
	for i := range bits {
		bits[i] = 2
	}
	return &pform.ConstVector{Width: width, Bits: bits}
}

func toInt64(v *pform.ConstVector) (int64, bool) {
	if anyX(v) {
		return 0, false
	}
	var n int64
	for i := len(v.Bits) - 1; i >= 0; i-- {
		n <<= 1
		if v.Bits[i] == 1 {
			n |= 1
		}
	}
	if v.Signed && v.Width > 0 && v.Bits[v.Width-1] == 1 {
		n -= int64(1) << v.Width
	}
	return n, true
}

func fromInt64(n int64, width int, signed bool) *pform.ConstVector {
	bits := make([]byte, width)
	for i := 0; i < width; i++ {
		bits[i] = byte((n >> i) & 1)
	}
	return &pform.ConstVector{Width: width, Signed: signed, Bits: bits}
}

func foldUnary(s *scope.Scope, e *pform.UnaryExpr) (*pform.ConstVector, *pform.ConstReal, bool) {
	vv, rv, ok := fold(s, e.Operand)
	if !ok {
		return nil, nil, false
	}
	if rv != nil {
		switch e.Op {
		case pform.UnaryMinus:
			return nil, &pform.ConstReal{Value: -rv.Value}, true
		case pform.UnaryPlus:
			return nil, rv, true
		default:
			return nil, nil, false
		}
	}
	if anyX(vv) && e.Op != pform.UnaryNot {
		return allX(vv.Width), nil, true
	}
	switch e.Op {
	case pform.UnaryPlus:
		return vv, nil, true
	case pform.UnaryMinus:
		n, _ := toInt64(vv)
		return fromInt64(-n, vv.Width, vv.Signed), nil, true
	case pform.UnaryBitNot:
		bits := make([]byte, vv.Width)
		for i, b := range vv.Bits {
			if b == 2 || b == 3 {
				bits[i] = 2
			} else {
				bits[i] = 1 - b
			}
		}
		return &pform.ConstVector{Width: vv.Width, Signed: vv.Signed, Bits: bits}, nil, true
	case pform.UnaryNot:
		red := reduceOr(vv)
		if red == 2 {
			return &pform.ConstVector{Width: 1, Bits: []byte{2}}, nil, true
		}
		return &pform.ConstVector{Width: 1, Bits: []byte{1 - red}}, nil, true
	}
	return nil, nil, false
}

// reduceOr folds a vector to a single bit by OR-reduction, per spec §4.5's
// wait-statement lowering ("multi-bit expr is reduced with bitwise-OR-
// reduction before inversion"). Returns 2 to denote an x/z result.
func reduceOr(v *pform.ConstVector) byte {
	sawX := false
	for _, b := range v.Bits {
		if b == 1 {
			return 1
		}
		if b == 2 || b == 3 {
			sawX = true
		}
	}
	if sawX {
		return 2
	}
	return 0
}

func foldReduction(s *scope.Scope, e *pform.ReductionExpr) (*pform.ConstVector, *pform.ConstReal, bool) {
	vv, _, ok := fold(s, e.Operand)
	if !ok {
		return nil, nil, false
	}
	ones, zeros, xs := 0, 0, 0
	for _, b := range vv.Bits {
		switch b {
		case 1:
			ones++
		case 0:
			zeros++
		default:
			xs++
		}
	}
	bit := func(v bool) byte {
		if v {
			return 1
		}
		return 0
	}
	switch e.Op {
	case pform.RedAnd:
		if xs > 0 && zeros == 0 {
			return &pform.ConstVector{Width: 1, Bits: []byte{2}}, nil, true
		}
		return &pform.ConstVector{Width: 1, Bits: []byte{bit(zeros == 0)}}, nil, true
	case pform.RedNand:
		if xs > 0 && zeros == 0 {
			return &pform.ConstVector{Width: 1, Bits: []byte{2}}, nil, true
		}
		return &pform.ConstVector{Width: 1, Bits: []byte{bit(zeros != 0)}}, nil, true
	case pform.RedOr:
		if xs > 0 && ones == 0 {
			return &pform.ConstVector{Width: 1, Bits: []byte{2}}, nil, true
		}
		return &pform.ConstVector{Width: 1, Bits: []byte{bit(ones != 0)}}, nil, true
	case pform.RedNor:
		if xs > 0 && ones == 0 {
			return &pform.ConstVector{Width: 1, Bits: []byte{2}}, nil, true
		}
		return &pform.ConstVector{Width: 1, Bits: []byte{bit(ones == 0)}}, nil, true
	case pform.RedXor, pform.RedXnor:
		if xs > 0 {
			return &pform.ConstVector{Width: 1, Bits: []byte{2}}, nil, true
		}
		parity := ones % 2
		if e.Op == pform.RedXnor {
			parity = 1 - parity
		}
		return &pform.ConstVector{Width: 1, Bits: []byte{byte(parity)}}, nil, true
	}
	return nil, nil, false
}

func foldBinary(s *scope.Scope, e *pform.BinaryExpr) (*pform.ConstVector, *pform.ConstReal, bool) {
	lv, lr, ok1 := fold(s, e.Left)
	rv, rr, ok2 := fold(s, e.Right)
	if !ok1 || !ok2 {
		return nil, nil, false
	}
	if lr != nil || rr != nil {
		return foldBinaryReal(lv, lr, rv, rr, e.Op)
	}
	width := lv.Width
	if rv.Width > width {
		width = rv.Width
	}
	if isCompareOp(e.Op) || isLogicalOp(e.Op) {
		width = 1
	}
	if anyX(lv) || anyX(rv) {
		if isLogicalOp(e.Op) || isCompareOp(e.Op) {
			return &pform.ConstVector{Width: 1, Bits: []byte{2}}, nil, true
		}
		return allX(width), nil, true
	}
	ln, _ := toInt64(lv)
	rn, _ := toInt64(rv)
	signed := lv.Signed && rv.Signed
	bit := func(v bool) *pform.ConstVector {
		if v {
			return &pform.ConstVector{Width: 1, Bits: []byte{1}}
		}
		return &pform.ConstVector{Width: 1, Bits: []byte{0}}
	}
	switch e.Op {
	case pform.BinLogAnd:
		return bit(ln != 0 && rn != 0), nil, true
	case pform.BinLogOr:
		return bit(ln != 0 || rn != 0), nil, true
	case pform.BinEq, pform.BinCaseEq:
		return bit(ln == rn), nil, true
	case pform.BinNeq, pform.BinCaseNeq:
		return bit(ln != rn), nil, true
	case pform.BinLt:
		return bit(ln < rn), nil, true
	case pform.BinLe:
		return bit(ln <= rn), nil, true
	case pform.BinGt:
		return bit(ln > rn), nil, true
	case pform.BinGe:
		return bit(ln >= rn), nil, true
	case pform.BinAdd:
		return fromInt64(ln+rn, width, signed), nil, true
	case pform.BinSub:
		return fromInt64(ln-rn, width, signed), nil, true
	case pform.BinMul:
		return fromInt64(ln*rn, width, signed), nil, true
	case pform.BinDiv:
		if rn == 0 {
			return allX(width), nil, true
		}
		return fromInt64(ln/rn, width, signed), nil, true
	case pform.BinMod:
		if rn == 0 {
			return allX(width), nil, true
		}
		return fromInt64(ln%rn, width, signed), nil, true
	case pform.BinPow:
		return fromInt64(ipow(ln, rn), width, signed), nil, true
	case pform.BinMin:
		if ln < rn {
			return fromInt64(ln, width, signed), nil, true
		}
		return fromInt64(rn, width, signed), nil, true
	case pform.BinMax:
		if ln > rn {
			return fromInt64(ln, width, signed), nil, true
		}
		return fromInt64(rn, width, signed), nil, true
	case pform.BinAnd:
		return fromInt64(ln&rn, width, signed), nil, true
	case pform.BinOr:
		return fromInt64(ln|rn, width, signed), nil, true
	case pform.BinXor:
		return fromInt64(ln^rn, width, signed), nil, true
	case pform.BinXnor:
		return fromInt64(^(ln ^ rn), width, signed), nil, true
	case pform.BinShl:
		return fromInt64(ln<<uint(rn), width, signed), nil, true
	case pform.BinShr:
		return fromInt64(int64(uint64(ln)>>uint(rn)), width, false), nil, true
	case pform.BinAShr:
		return fromInt64(ln>>uint(rn), width, signed), nil, true
	}
	return nil, nil, false
}

func ipow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	r := int64(1)
	for i := int64(0); i < exp; i++ {
		r *= base
	}
	return r
}

func isCompareOp(op pform.BinaryOp) bool {
	switch op {
	case pform.BinEq, pform.BinNeq, pform.BinCaseEq, pform.BinCaseNeq,
		pform.BinLt, pform.BinLe, pform.BinGt, pform.BinGe:
		return true
	}
	return false
}

func isLogicalOp(op pform.BinaryOp) bool {
	return op == pform.BinLogAnd || op == pform.BinLogOr
}

func foldBinaryReal(lv *pform.ConstVector, lr *pform.ConstReal, rv *pform.ConstVector, rr *pform.ConstReal, op pform.BinaryOp) (*pform.ConstVector, *pform.ConstReal, bool) {
	toF := func(v *pform.ConstVector, r *pform.ConstReal) float64 {
		if r != nil {
			return r.Value
		}
		n, _ := toInt64(v)
		return float64(n)
	}
	l := toF(lv, lr)
	r := toF(rv, rr)
	bit := func(v bool) *pform.ConstVector {
		if v {
			return &pform.ConstVector{Width: 1, Bits: []byte{1}}
		}
		return &pform.ConstVector{Width: 1, Bits: []byte{0}}
	}
	switch op {
	case pform.BinAdd:
		return nil, &pform.ConstReal{Value: l + r}, true
	case pform.BinSub:
		return nil, &pform.ConstReal{Value: l - r}, true
	case pform.BinMul:
		return nil, &pform.ConstReal{Value: l * r}, true
	case pform.BinDiv:
		return nil, &pform.ConstReal{Value: l / r}, true
	case pform.BinPow:
		return nil, &pform.ConstReal{Value: math.Pow(l, r)}, true
	case pform.BinMin:
		return nil, &pform.ConstReal{Value: math.Min(l, r)}, true
	case pform.BinMax:
		return nil, &pform.ConstReal{Value: math.Max(l, r)}, true
	case pform.BinEq:
		return bit(l == r), nil, true
	case pform.BinNeq:
		return bit(l != r), nil, true
	case pform.BinLt:
		return bit(l < r), nil, true
	case pform.BinLe:
		return bit(l <= r), nil, true
	case pform.BinGt:
		return bit(l > r), nil, true
	case pform.BinGe:
		return bit(l >= r), nil, true
	}
	return nil, nil, false
}

func foldTernary(s *scope.Scope, e *pform.TernaryExpr) (*pform.ConstVector, *pform.ConstReal, bool) {
	cv, _, ok := fold(s, e.Cond)
	if !ok {
		return nil, nil, false
	}
	red := reduceOr(cv)
	if red == 2 {
		// x condition: a real reimplementation would blend both arms bitwise;
		// conservatively treat as a residual expression instead of guessing.
		return nil, nil, false
	}
	if red == 1 {
		return fold(s, e.Then)
	}
	return fold(s, e.Else)
}

func foldConcat(s *scope.Scope, e *pform.ConcatExpr) (*pform.ConstVector, *pform.ConstReal, bool) {
	var bits []byte
	for i := len(e.Parts) - 1; i >= 0; i-- {
		pv, _, ok := fold(s, e.Parts[i])
		if !ok {
			return nil, nil, false
		}
		bits = append(bits, pv.Bits...)
	}
	return &pform.ConstVector{Width: len(bits), Bits: bits}, nil, true
}

func foldReplicate(s *scope.Scope, e *pform.ReplicateExpr) (*pform.ConstVector, *pform.ConstReal, bool) {
	cv, _, ok := fold(s, e.Count)
	if !ok {
		return nil, nil, false
	}
	n, ok := toInt64(cv)
	if !ok || n < 0 {
		return nil, nil, false
	}
	vv, _, ok := fold(s, e.Value)
	if !ok {
		return nil, nil, false
	}
	var bits []byte
	for i := int64(0); i < n; i++ {
		bits = append(bits, vv.Bits...)
	}
	return &pform.ConstVector{Width: len(bits), Bits: bits}, nil, true
}
