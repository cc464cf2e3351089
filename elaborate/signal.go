package elaborate

import (
	"github.com/mna/nenuphar/diag"
	"github.com/mna/nenuphar/netlist"
	"github.com/mna/nenuphar/pform"
	"github.com/mna/nenuphar/scope"
)

// SignalElaborator materializes every declared signal of a scope as a
// netlist entity (spec §4.3). After this phase, every identifier later
// lookups need resolves to a signal, a parameter-constant, an event, a
// task, or a function (spec §4.3 invariant).
type SignalElaborator struct {
	Diags *diag.Counter
}

// ElaborateScope materializes s's own declared signals, then recurses into
// its children. Module scopes take their declarations from their
// Template; non-module scopes (named blocks, generate blocks) have none of
// their own beyond what their own nested declarations add during the walk.
func (se *SignalElaborator) ElaborateScope(s *scope.Scope) {
	if s.Template != nil {
		for _, decl := range s.Template.Body.Signals {
			se.materialize(s, decl)
		}
		for _, port := range s.Template.Ports {
			se.bindPort(s, port)
		}
	}
	for _, child := range s.Children {
		se.ElaborateScope(child)
	}
}

func (se *SignalElaborator) materialize(s *scope.Scope, decl pform.SignalDecl) *netlist.Signal {
	width := 1
	bigEndian := true
	if decl.Range != nil {
		w, be, ok := rangeWidth(s, decl.Range)
		if ok {
			width, bigEndian = w, be
		} else {
			se.Diags.Errorf(pos(decl.Pos), "signal %s: non-constant range", decl.Name)
		}
	}
	var dims []int
	for _, r := range decl.ArrayDims {
		w, _, ok := rangeWidth(s, &r)
		if ok {
			dims = append(dims, w)
		}
	}
	sig := &netlist.Signal{
		Name:      decl.Name,
		Width:     width,
		BigEndian: bigEndian,
		ArrayDims: dims,
		Type:      netlist.NetType(decl.Type),
		DataType:  netlist.DataType(decl.DataType),
		Signed:    decl.Signed,
		Direction: netlist.PortDirection(decl.Direction),
	}
	s.Signals.Put(decl.Name, sig)
	return sig
}

func (se *SignalElaborator) bindPort(s *scope.Scope, port pform.Port) {
	// The internal signal(s) a port names must already be declared among the
	// module's signals; a port naming an identifier with no matching
	// declaration is an implicit-wire case the Structural Elaborator handles
	// when it first sees the identifier used as a net (spec §4.4.1), so no
	// error is raised here for a bare miss.
	if _, ok := s.Signals.Get(port.Name); !ok {
		return
	}
}

// rangeWidth folds a [msb:lsb] range to a width and endianness flag (spec
// §4.3: "width |msb-lsb|+1 and an endianness flag recording whether
// msb>lsb").
func rangeWidth(s *scope.Scope, r *pform.Range) (width int, bigEndian bool, ok bool) {
	msbV, _, ok1 := fold(s, r.MSB)
	lsbV, _, ok2 := fold(s, r.LSB)
	if !ok1 || !ok2 {
		return 0, true, false
	}
	msb, ok1 := toInt64(msbV)
	lsb, ok2 := toInt64(lsbV)
	if !ok1 || !ok2 {
		return 0, true, false
	}
	if msb >= lsb {
		return int(msb-lsb) + 1, true, true
	}
	return int(lsb-msb) + 1, false, true
}

func pos(p pform.Pos) diag.Pos { return diag.Pos{File: p.File, Line: p.Line} }
