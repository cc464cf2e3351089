package elaborate

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/mna/nenuphar/config"
	"github.com/mna/nenuphar/diag"
	"github.com/mna/nenuphar/netlist"
	"github.com/mna/nenuphar/pform"
	"github.com/mna/nenuphar/scope"
)

// StructuralElaborator walks gates, continuous assigns, module instances,
// UDP instances and specify paths, producing netlist nodes connected
// through shared nexuses (spec §4.4).
type StructuralElaborator struct {
	Diags  *diag.Counter
	Flags  config.Flags
	Design *Design
}

func (str *StructuralElaborator) ElaborateScope(s *scope.Scope) {
	if s.Template != nil {
		for _, ca := range s.Template.Body.Assigns {
			str.continuousAssign(s, ca)
		}
		for _, g := range s.Template.Body.Gates {
			str.gate(s, g)
		}
		for _, u := range s.Template.Body.UDPInstances {
			str.udpInstance(s, u)
		}
		if str.Flags.SpecifyBlocks {
			for _, sp := range s.Template.Body.Specifies {
				str.specifyPath(s, sp)
			}
		}
	}
	for _, inst := range str.moduleInstancesOf(s) {
		str.moduleInstance(s, inst)
	}
	for _, child := range s.Children {
		str.ElaborateScope(child)
	}
}

func (str *StructuralElaborator) moduleInstancesOf(s *scope.Scope) []pform.ModuleInstance {
	if s.Template == nil {
		return nil
	}
	return s.Template.Body.Instances
}

// instanceArrayCount mirrors scope/builder.go's arrayCount so the
// Structural Elaborator addresses the same child scopes the Scope Builder
// already created for inst (spec §4.1/§4.4.3).
func instanceArrayCount(s *scope.Scope, r *pform.Range) int {
	if r == nil {
		return 1
	}
	msbV, ok1 := foldInt(s, r.MSB)
	lsbV, ok2 := foldInt(s, r.LSB)
	if !ok1 || !ok2 {
		return 1
	}
	if msbV >= lsbV {
		return msbV - lsbV + 1
	}
	return lsbV - msbV + 1
}

func foldInt(s *scope.Scope, e pform.Expr) (int, bool) {
	cv, _, ok := fold(s, e)
	if !ok {
		return 0, false
	}
	n, ok := toInt64(cv)
	return int(n), ok
}

// moduleInstance implements spec §4.4.3: by-name (via find_port) or
// positional binding of inst's connection list to the module template's
// declared ports, with instance-array distribute/broadcast and per-port
// width reconciliation. The per-element child scopes were already built by
// scope.Driver.makeScope/enqueueInstance; this only needs to find them
// again by the same naming convention.
func (str *StructuralElaborator) moduleInstance(s *scope.Scope, inst pform.ModuleInstance) {
	n := instanceArrayCount(s, inst.Range)
	children := make([]*scope.Scope, n)
	for i := 0; i < n; i++ {
		name := inst.InstName
		if inst.Range != nil {
			name = fmt.Sprintf("%s[%d]", name, i)
		}
		children[i] = s.Children[name]
	}

	var tmpl *pform.Module
	for _, c := range children {
		if c != nil && c.Template != nil {
			tmpl = c.Template
			break
		}
	}
	if tmpl == nil {
		// unknown module type, or every element failed to build: the Scope
		// Builder already reported the error.
		return
	}

	bound, ok := str.bindPortConnections(s, inst, tmpl.Ports)
	if !ok {
		return
	}
	for portIdx, port := range tmpl.Ports {
		if val := bound[portIdx]; val != nil {
			str.connectPort(s, inst, children, port, val)
		}
	}
}

// bindPortConnections resolves inst's connection list against ports, by
// name (each name looked up via find_port, duplicate/missing names are
// errors) or positionally (exact count match required); mixing the two
// styles in one instance is an error (spec §4.4.3).
func (str *StructuralElaborator) bindPortConnections(s *scope.Scope, inst pform.ModuleInstance, ports []pform.Port) ([]pform.Expr, bool) {
	bound := make([]pform.Expr, len(ports))
	named := false
	for _, c := range inst.Connections {
		if c.Name != "" {
			named = true
			break
		}
	}
	if !named {
		if len(inst.Connections) != len(ports) {
			str.Diags.Errorf(pos(inst.Pos), "instance %s: %d positional port connections, module %s declares %d ports",
				inst.InstName, len(inst.Connections), inst.TypeName, len(ports))
			return nil, false
		}
		for i, c := range inst.Connections {
			bound[i] = c.Value
		}
		return bound, true
	}

	seen := make(map[string]bool, len(inst.Connections))
	for _, c := range inst.Connections {
		if c.Name == "" {
			str.Diags.Errorf(pos(inst.Pos), "instance %s: cannot mix named and positional port connections", inst.InstName)
			return nil, false
		}
		if seen[c.Name] {
			str.Diags.Errorf(pos(inst.Pos), "instance %s: port %q connected more than once", inst.InstName, c.Name)
			continue
		}
		seen[c.Name] = true
		idx := findPort(ports, c.Name)
		if idx < 0 {
			str.Diags.Errorf(pos(inst.Pos), "instance %s: no such port %q on module %s", inst.InstName, c.Name, inst.TypeName)
			continue
		}
		bound[idx] = c.Value
	}
	return bound, true
}

func findPort(ports []pform.Port, name string) int {
	for i, p := range ports {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// connectPort binds one declared port across every array element of inst
// (or the sole scalar instance), dispatching on the internal signal's
// direction per spec §4.4.3.
func (str *StructuralElaborator) connectPort(s *scope.Scope, inst pform.ModuleInstance, children []*scope.Scope, port pform.Port, val pform.Expr) {
	if len(port.Internal) == 0 {
		return
	}
	internalName := port.Internal[0]
	n := len(children)
	portWidth := 1
	var dir netlist.PortDirection
	sigs := make([]*netlist.Signal, n)
	for i, c := range children {
		if c == nil {
			continue
		}
		sig, ok := c.Signals.Get(internalName)
		if !ok {
			continue
		}
		sigs[i] = sig
		portWidth = sig.Width
		dir = sig.Direction
	}
	anyFound := false
	for _, sg := range sigs {
		if sg != nil {
			anyFound = true
			break
		}
	}
	if !anyFound {
		return
	}

	switch dir {
	case netlist.Output:
		str.connectOutputPort(s, inst, sigs, val, portWidth, n)
	case netlist.Inout:
		str.connectInoutPort(s, inst, sigs, val, portWidth, n)
	default: // Input, or an unresolved port defaults to input semantics
		str.connectInputPort(s, inst, sigs, val, portWidth, n)
	}
}

// connectInputPort elaborates val as a net and drives it into every array
// element's internal signal: distributed via one PartSelect(VP) per
// element when the outer width is exactly N*port_width, else broadcast to
// every element (the n==1 case is a degenerate one-element broadcast).
func (str *StructuralElaborator) connectInputPort(s *scope.Scope, inst pform.ModuleInstance, sigs []*netlist.Signal, val pform.Expr, portWidth, n int) {
	outer := str.elaborateNet(s, val)
	if n > 1 && outer.Width == n*portWidth {
		outerNx := outer.Nexus
		if outerNx == nil {
			outerNx = netlist.NewNexus("")
		}
		for i := 0; i < n; i++ {
			if sigs[i] == nil {
				continue
			}
			ps := netlist.NewPartSelect(netlist.Line{}, netlist.VP, i*portWidth, portWidth)
			outerNx.Add(ps.Pins()[0], netlist.HighZ, netlist.HighZ, nil)
			elemNx := netlist.NewNexus("")
			elemNx.Add(ps.Pins()[1], netlist.HighZ, netlist.HighZ, nil)
			elemNx.Merge(str.nexusOf(sigs[i]))
		}
		return
	}
	nx := str.reconcileInstanceWidth(s, inst, outer, portWidth, n > 1)
	for i := 0; i < n; i++ {
		if sigs[i] != nil {
			nx.Merge(str.nexusOf(sigs[i]))
		}
	}
}

// connectOutputPort elaborates val as an l-value net; a distributed array
// assembles each element's output into it via a Concat, otherwise every
// element drives the same outer net directly.
func (str *StructuralElaborator) connectOutputPort(s *scope.Scope, inst pform.ModuleInstance, sigs []*netlist.Signal, val pform.Expr, portWidth, n int) {
	outer := str.elaborateNet(s, val)
	if n > 1 && outer.Width == n*portWidth {
		widths := make([]int, n)
		for i := range widths {
			widths[i] = portWidth
		}
		node := netlist.NewConcat(netlist.Line{}, widths)
		outerNx := outer.Nexus
		if outerNx == nil {
			outerNx = netlist.NewNexus("")
		}
		outerNx.Add(node.Pins()[0], netlist.HighZ, netlist.HighZ, nil)
		for i := 0; i < n; i++ {
			if sigs[i] == nil {
				continue
			}
			elemNx := netlist.NewNexus("")
			elemNx.Add(node.Pins()[1+i], netlist.HighZ, netlist.HighZ, nil)
			elemNx.Merge(str.nexusOf(sigs[i]))
		}
		return
	}
	nx := str.reconcileInstanceWidth(s, inst, outer, portWidth, n > 1)
	for i := 0; i < n; i++ {
		if sigs[i] != nil {
			nx.Merge(str.nexusOf(sigs[i]))
		}
	}
}

// connectInoutPort implements spec §4.4.3's bidirectional rule: the
// upstream grammar guarantees val is a plain identifier or a part-select.
// A plain identifier is a direct nexus merge; a part-select needs a Tran
// bridge so charge flows both ways.
func (str *StructuralElaborator) connectInoutPort(s *scope.Scope, inst pform.ModuleInstance, sigs []*netlist.Signal, val pform.Expr, portWidth, n int) {
	if ref, ok := val.(*pform.SignalRef); ok && ref.PartOffset == nil && ref.WordIndex == nil {
		outer := str.elaborateNet(s, val)
		nx := str.reconcileInstanceWidth(s, inst, outer, portWidth, n > 1)
		for i := 0; i < n; i++ {
			if sigs[i] != nil {
				nx.Merge(str.nexusOf(sigs[i]))
			}
		}
		return
	}
	outer := str.elaborateNet(s, val)
	for i := 0; i < n; i++ {
		if sigs[i] == nil {
			continue
		}
		t := netlist.NewTran(netlist.Line{File: inst.Pos.File, Num: inst.Pos.Line}, netlist.Tran)
		if outer.Nexus != nil {
			outer.Nexus.Add(t.Pins()[0], netlist.HighZ, netlist.HighZ, nil)
		}
		str.nexusOf(sigs[i]).Add(t.Pins()[1], netlist.HighZ, netlist.HighZ, nil)
	}
}

// reconcileInstanceWidth applies spec §4.4.1's pad/crop table to a single
// port connection, but -- unlike continuousAssign's silent reconcileWidth
// -- diagnoses the mismatch per spec §4.4.3/§7: fatal when the instance is
// part of an array, a warning for a scalar instance when
// config.Flags.WarnPortBinding is set.
func (str *StructuralElaborator) reconcileInstanceWidth(s *scope.Scope, inst pform.ModuleInstance, r netResult, w int, inArray bool) *netlist.Nexus {
	if r.Width != w {
		dangling := r.Width - w
		word := "unconnected"
		if dangling < 0 {
			dangling = -dangling
			word = "dangling"
		}
		if inArray {
			str.Diags.Errorf(pos(inst.Pos), "instance %s: port width mismatch (connection is %d bits, port is %d bits), %d bits %s",
				inst.InstName, r.Width, w, dangling, word)
		} else if str.Flags.WarnPortBinding {
			str.Diags.Warnf(pos(inst.Pos), "instance %s: port width mismatch (connection is %d bits, port is %d bits), %d bits %s",
				inst.InstName, r.Width, w, dangling, word)
		}
	}
	return str.reconcileWidth(s, r, w, inst.Pos)
}

// nexusOf returns (creating if necessary) the whole-signal nexus for sig.
func (str *StructuralElaborator) nexusOf(sig *netlist.Signal) *netlist.Nexus {
	if sig.Nexus != nil {
		return sig.Nexus
	}
	sig.Nexus = netlist.NewNexus(sig.Name)
	return sig.Nexus
}

// implicitWire auto-creates an undeclared net when the grammar allows it
// (spec §4.4.1), honoring config.Flags.ErrorImplicit.
func (str *StructuralElaborator) implicitWire(s *scope.Scope, name string, width int, p pform.Pos) *netlist.Signal {
	if str.Flags.ErrorImplicit {
		str.Diags.Errorf(pos(p), "implicit wire %q not declared", name)
	}
	sig := &netlist.Signal{Name: name, Width: width, BigEndian: true, Type: netlist.Wire, DataType: netlist.Logic}
	s.Signals.Put(name, sig)
	return sig
}

// resolveSignal resolves a bare identifier to its materialized signal,
// auto-creating an implicit wire of the given width if it is undeclared.
func (str *StructuralElaborator) resolveSignal(s *scope.Scope, name string, width int, p pform.Pos) *netlist.Signal {
	if sig, ok := s.Signals.Get(name); ok {
		return sig
	}
	res := s.Resolve(name)
	if res.Kind == scope.ResolveSignal {
		return res.Signal
	}
	return str.implicitWire(s, name, width, p)
}

// netResult is the outcome of elaborating an expression as a structural
// net: either a direct nexus (for a bare signal / part-select / concat /
// replicate / gate-mappable expression) or a folded constant.
type netResult struct {
	Nexus  *netlist.Nexus
	Width  int
	Type   netlist.DataType
	Signed bool
	Const  *pform.ConstVector
}

// elaborateNet elaborates e as a net, per spec §4.4.1's "Elaborate the
// r-value to a net of its natural width." The closed netlist node set
// (spec §3) maps cleanly onto signal references, part-selects,
// concatenation, replication and bitwise/logical/reduction operators;
// arithmetic, comparison and ternary expressions have no structural-gate
// representative in that set (they are the Behavioral Elaborator's and
// Back-End Emitter's concern, evaluated into VM registers rather than
// wired as gates), so elaborateNet folds them to a constant when possible
// and otherwise reports them as unsupported in a purely structural
// position.
func (str *StructuralElaborator) elaborateNet(s *scope.Scope, e pform.Expr) netResult {
	switch e := e.(type) {
	case *pform.ConstVector:
		return netResult{Width: e.Width, Const: e, Type: netlist.Logic}
	case *pform.SignalRef:
		return str.elaborateSignalRefNet(s, e)
	case *pform.ConcatExpr:
		return str.elaborateConcatNet(s, e)
	case *pform.ReplicateExpr:
		return str.elaborateReplicateNet(s, e)
	case *pform.UnaryExpr:
		return str.elaborateUnaryNet(s, e)
	case *pform.BinaryExpr:
		return str.elaborateBinaryNet(s, e)
	}
	if cv, _, ok := fold(s, e); ok {
		return netResult{Width: cv.Width, Const: cv, Type: netlist.Logic}
	}
	str.Diags.Errorf(diag.Pos{}, "expression has no structural (gate-level) representation")
	return netResult{Width: 1, Type: netlist.Logic}
}

func (str *StructuralElaborator) elaborateSignalRefNet(s *scope.Scope, ref *pform.SignalRef) netResult {
	sig := str.resolveSignal(s, ref.Name, 1, pform.Pos{})
	if ref.PartOffset == nil && ref.WordIndex == nil {
		return netResult{Nexus: str.nexusOf(sig), Width: sig.Width, Type: sig.DataType, Signed: sig.Signed}
	}
	base := 0
	if cv, _, ok := fold(s, ref.PartOffset); ok {
		if n, ok2 := toInt64(cv); ok2 {
			base = int(n)
		}
	}
	width := ref.PartWidth
	if width == 0 {
		width = 1
	}
	ps := netlist.NewPartSelect(netlist.Line{}, netlist.VP, base, width)
	str.nexusOf(sig).Add(ps.Pins()[0], netlist.HighZ, netlist.HighZ, nil)
	out := netlist.NewNexus("")
	out.Add(ps.Pins()[1], netlist.HighZ, netlist.HighZ, nil)
	return netResult{Nexus: out, Width: width, Type: sig.DataType, Signed: sig.Signed}
}

func (str *StructuralElaborator) elaborateConcatNet(s *scope.Scope, e *pform.ConcatExpr) netResult {
	parts := make([]netResult, len(e.Parts))
	widths := make([]int, len(e.Parts))
	total := 0
	for i, p := range e.Parts {
		parts[i] = str.elaborateNet(s, p)
		widths[i] = parts[i].Width
		total += parts[i].Width
	}
	node := netlist.NewConcat(netlist.Line{}, widths)
	out := netlist.NewNexus("")
	out.Add(node.Pins()[0], netlist.HighZ, netlist.HighZ, nil)
	for i, p := range parts {
		str.bindNetResult(p, node.Pins()[1+i])
	}
	return netResult{Nexus: out, Width: total, Type: netlist.Logic}
}

func (str *StructuralElaborator) elaborateReplicateNet(s *scope.Scope, e *pform.ReplicateExpr) netResult {
	n := 1
	if cv, _, ok := fold(s, e.Count); ok {
		if v, ok2 := toInt64(cv); ok2 {
			n = int(v)
		}
	}
	val := str.elaborateNet(s, e.Value)
	node := netlist.NewReplicate(netlist.Line{}, n)
	out := netlist.NewNexus("")
	out.Add(node.Pins()[0], netlist.HighZ, netlist.HighZ, nil)
	str.bindNetResult(val, node.Pins()[1])
	return netResult{Nexus: out, Width: n * val.Width, Type: netlist.Logic}
}

func gateKindForUnary(op pform.UnaryOp) (netlist.LogicKind, bool) {
	if op == pform.UnaryBitNot {
		return netlist.Not, true
	}
	return 0, false
}

func gateKindForBinary(op pform.BinaryOp) (netlist.LogicKind, bool) {
	switch op {
	case pform.BinAnd:
		return netlist.And, true
	case pform.BinOr:
		return netlist.Or, true
	case pform.BinXor:
		return netlist.Xor, true
	case pform.BinXnor:
		return netlist.Xnor, true
	}
	return 0, false
}

func (str *StructuralElaborator) elaborateUnaryNet(s *scope.Scope, e *pform.UnaryExpr) netResult {
	kind, ok := gateKindForUnary(e.Op)
	if !ok {
		if cv, _, ok := fold(s, e); ok {
			return netResult{Width: cv.Width, Const: cv, Type: netlist.Logic}
		}
		str.Diags.Errorf(diag.Pos{}, "unary operator has no structural representation")
		return netResult{Width: 1}
	}
	operand := str.elaborateNet(s, e.Operand)
	node := netlist.NewLogic(netlist.Line{}, kind, operand.Width, 2)
	out := netlist.NewNexus("")
	out.Add(node.Pins()[0], netlist.HighZ, netlist.HighZ, nil)
	str.bindNetResult(operand, node.Pins()[1])
	return netResult{Nexus: out, Width: operand.Width, Type: netlist.Logic}
}

func (str *StructuralElaborator) elaborateBinaryNet(s *scope.Scope, e *pform.BinaryExpr) netResult {
	kind, ok := gateKindForBinary(e.Op)
	if !ok {
		if cv, _, ok := fold(s, e); ok {
			return netResult{Width: cv.Width, Const: cv, Type: netlist.Logic}
		}
		str.Diags.Errorf(diag.Pos{}, "binary operator has no structural (gate-level) representation")
		return netResult{Width: 1}
	}
	l := str.elaborateNet(s, e.Left)
	r := str.elaborateNet(s, e.Right)
	width := l.Width
	if r.Width > width {
		width = r.Width
	}
	node := netlist.NewLogic(netlist.Line{}, kind, width, 3)
	out := netlist.NewNexus("")
	out.Add(node.Pins()[0], netlist.HighZ, netlist.HighZ, nil)
	str.bindNetResult(l, node.Pins()[1])
	str.bindNetResult(r, node.Pins()[2])
	return netResult{Nexus: out, Width: width, Type: netlist.Logic}
}

// bindNetResult connects a netResult (which may be a bare constant with no
// nexus yet) to pin p.
func (str *StructuralElaborator) bindNetResult(nr netResult, p *netlist.Pin) {
	if nr.Nexus != nil {
		nr.Nexus.Add(p, netlist.HighZ, netlist.HighZ, nil)
		return
	}
	// A constant driving a pin still needs a nexus of its own so the pin
	// invariant (every pin belongs to exactly one nexus) holds; the constant
	// value itself is carried by the node that feeds it (out of scope for
	// the closed netlist-node set to model a literal source node, since it
	// is not one of the named variants -- its value lives in nr.Const for
	// whichever caller needs to inspect it, e.g. the emitter's folding of
	// constant drivers).
	nx := netlist.NewNexus("")
	nx.Add(p, netlist.HighZ, netlist.HighZ, nil)
}

// continuousAssign implements spec §4.4.1.
func (str *StructuralElaborator) continuousAssign(s *scope.Scope, ca pform.ContinuousAssign) {
	lhs := str.elaborateNet(s, ca.LValue)
	rhs := str.elaborateNet(s, ca.RValue)

	rhsNexus := str.reconcileWidth(s, rhs, lhs.Width, ca.Pos)

	ltype, rtype := lhs.Type, rhs.Type
	if ltype == netlist.Real && rtype != netlist.Real {
		rhsNexus = str.insertCast(rhsNexus, ca.Pos)
	} else if ltype != netlist.Real && rtype == netlist.Real {
		rhsNexus = str.insertCast(rhsNexus, ca.Pos)
	}

	needsBufz := ca.Delay != nil || ca.Strength != (pform.StrengthPair{}) || rhsNexus == lhs.Nexus
	if lhs.Nexus == nil {
		lhs.Nexus = netlist.NewNexus("")
	}
	if !needsBufz {
		lhs.Nexus.Merge(rhsNexus)
		return
	}
	bufz := netlist.NewBUFZ(netlist.Line{File: ca.Pos.File, Num: ca.Pos.Line})
	if ca.Delay != nil {
		bufz.Delay = foldDelay(s, ca.Delay)
	}
	bufz.Strength.Drive0 = netlist.DriveStrength(ca.Strength.Strength0)
	bufz.Strength.Drive1 = netlist.DriveStrength(ca.Strength.Strength1)
	lhs.Nexus.Add(bufz.Pins()[0], bufz.Strength.Drive0, bufz.Strength.Drive1, bufz.Delay)
	rhsNexus.Add(bufz.Pins()[1], netlist.HighZ, netlist.HighZ, nil)
}

func foldDelay(s *scope.Scope, d *pform.DelayTriple) *netlist.Delay {
	get := func(e pform.Expr) int64 {
		cv, _, ok := fold(s, e)
		if !ok {
			return 0
		}
		n, _ := toInt64(cv)
		return n
	}
	return &netlist.Delay{Rise: get(d.Rise), Fall: get(d.Fall), Decay: get(d.Decay)}
}

// reconcileWidth applies spec §4.4.1's width-reconciliation table.
func (str *StructuralElaborator) reconcileWidth(s *scope.Scope, r netResult, w int, p pform.Pos) *netlist.Nexus {
	nx := r.Nexus
	if nx == nil {
		nx = netlist.NewNexus("")
	}
	switch {
	case r.Width == w:
		return nx
	case r.Width < w:
		// sign- or zero-extend: represented here as a PartSelect(PV) widening
		// wrapper is not meaningful (PartSelect narrows); widening a value is
		// instead a Concat with a synthetic constant-fill source, matching
		// how a {sign-bits, value} / {zero-bits, value} extension is itself
		// expressed as a concatenation in the source language.
		pad := w - r.Width
		node := netlist.NewConcat(netlist.Line{}, []int{pad, r.Width})
		out := netlist.NewNexus("")
		out.Add(node.Pins()[0], netlist.HighZ, netlist.HighZ, nil)
		fillNx := netlist.NewNexus("")
		fillNx.Add(node.Pins()[1], netlist.HighZ, netlist.HighZ, nil)
		nx.Add(node.Pins()[2], netlist.HighZ, netlist.HighZ, nil)
		return out
	default: // r.Width > w: part-select low w bits
		ps := netlist.NewPartSelect(netlist.Line{File: p.File, Num: p.Line}, netlist.VP, 0, w)
		nx.Add(ps.Pins()[0], netlist.HighZ, netlist.HighZ, nil)
		out := netlist.NewNexus("")
		out.Add(ps.Pins()[1], netlist.HighZ, netlist.HighZ, nil)
		return out
	}
}

func (str *StructuralElaborator) insertCast(nx *netlist.Nexus, p pform.Pos) *netlist.Nexus {
	// A real<->logic cast has no dedicated node kind in the closed netlist
	// set; a BUFZ stands in for it (both are single-input/single-output
	// pass-through drivers), distinguished only by the differing DataType of
	// the nexuses it bridges.
	b := netlist.NewBUFZ(netlist.Line{File: p.File, Num: p.Line})
	nx.Add(b.Pins()[1], netlist.HighZ, netlist.HighZ, nil)
	out := netlist.NewNexus("")
	out.Add(b.Pins()[0], netlist.HighZ, netlist.HighZ, nil)
	return out
}

// gatePinCount returns the pin-count rule for kind (spec §4.4.2).
func gatePinCount(kind pform.GateKind, inputCount int) int {
	switch kind {
	case pform.GateBuf, pform.GateNot:
		return 2
	case pform.GateBufIf0, pform.GateBufIf1, pform.GateNotIf0, pform.GateNotIf1,
		pform.GateNmos, pform.GatePmos, pform.GateRnmos, pform.GateRpmos,
		pform.GateTranIf0, pform.GateTranIf1, pform.GateRtranIf0, pform.GateRtranIf1:
		return 3
	case pform.GateCmos, pform.GateRcmos:
		return 4
	case pform.GateTran, pform.GateRtran:
		return 2
	case pform.GatePullup, pform.GatePulldown:
		return 1
	default: // AND/NAND/OR/NOR/XOR/XNOR
		return 1 + inputCount
	}
}

func toLogicKind(k pform.GateKind) netlist.LogicKind {
	switch k {
	case pform.GateAnd:
		return netlist.And
	case pform.GateNand:
		return netlist.Nand
	case pform.GateOr:
		return netlist.Or
	case pform.GateNor:
		return netlist.Nor
	case pform.GateXor:
		return netlist.Xor
	case pform.GateXnor:
		return netlist.Xnor
	case pform.GateBuf:
		return netlist.Buf
	case pform.GateNot:
		return netlist.Not
	case pform.GateBufIf0:
		return netlist.BufIf0
	case pform.GateBufIf1:
		return netlist.BufIf1
	case pform.GateNotIf0:
		return netlist.NotIf0
	case pform.GateNotIf1:
		return netlist.NotIf1
	case pform.GateCmos:
		return netlist.Cmos
	case pform.GateRcmos:
		return netlist.Rcmos
	case pform.GateNmos:
		return netlist.Nmos
	case pform.GatePmos:
		return netlist.Pmos
	case pform.GateRnmos:
		return netlist.Rnmos
	case pform.GateRpmos:
		return netlist.Rpmos
	case pform.GatePullup:
		return netlist.Pullup
	default:
		return netlist.Pulldown
	}
}

func isTranKind(k pform.GateKind) (netlist.TranKind, bool) {
	switch k {
	case pform.GateTran:
		return netlist.Tran, true
	case pform.GateRtran:
		return netlist.Rtran, true
	case pform.GateTranIf0:
		return netlist.TranIf0, true
	case pform.GateTranIf1:
		return netlist.TranIf1, true
	case pform.GateRtranIf0:
		return netlist.RtranIf0, true
	case pform.GateRtranIf1:
		return netlist.RtranIf1, true
	}
	return 0, false
}

// gate implements spec §4.4.2.
func (str *StructuralElaborator) gate(s *scope.Scope, g pform.Gate) {
	n := 1
	if g.Range != nil {
		if w, _, ok := rangeWidth(s, g.Range); ok {
			n = w
		}
	}

	if tkind, ok := isTranKind(g.Kind); ok {
		// Per spec §9's Open Question, RTRAN is elaborated identically to
		// TRAN: no early return short-circuits the per-gate finalization
		// below, unlike the probable bug in the original source.
		for i := 0; i < n; i++ {
			t := netlist.NewTran(netlist.Line{File: g.Pos.File, Num: g.Pos.Line}, tkind)
			a := str.elaborateNet(s, g.Output)
			b := str.elaborateNet(s, g.Output2)
			str.bindNetResult(a, t.Pins()[0])
			str.bindNetResult(b, t.Pins()[1])
			if len(t.Pins()) == 3 && g.ControlExpr != nil {
				ctrl := str.elaborateNet(s, g.ControlExpr)
				str.bindNetResult(ctrl, t.Pins()[2])
			}
		}
		return
	}

	out := str.elaborateNet(s, g.Output)
	if out.Width == n || n == 1 {
		str.emitGateInstance(s, g, out, n, n)
		return
	}
	// width mismatch between a collapsed-wide output and N scalar outputs is
	// resolved by splitting the output into N single-bit parts via a Concat
	// (spec §4.4.2 "N scalar gates ... output assembled via a Concat").
	widths := make([]int, n)
	for i := range widths {
		widths[i] = 1
	}
	node := netlist.NewConcat(netlist.Line{}, widths)
	outNexus := out.Nexus
	if outNexus == nil {
		outNexus = netlist.NewNexus("")
	}
	outNexus.Add(node.Pins()[0], netlist.HighZ, netlist.HighZ, nil)
	for i := 0; i < n; i++ {
		bitNexus := netlist.NewNexus("")
		bitNexus.Add(node.Pins()[1+i], netlist.HighZ, netlist.HighZ, nil)
		str.emitOneGate(s, g, bitNexus, i)
	}
}

func (str *StructuralElaborator) emitGateInstance(s *scope.Scope, g pform.Gate, out netResult, width, count int) {
	outNexus := out.Nexus
	if outNexus == nil {
		outNexus = netlist.NewNexus("")
	}
	str.emitOneGate(s, g, outNexus, -1)
}

// emitOneGate elaborates one logic/switch gate instance whose output is
// bound to outNexus. idx selects input bit idx of an input whose width
// equals the array count N (spec §4.4.2 port-connection rule (b)); idx==-1
// denotes the single-gate (count==1 or collapsed-wide) case.
func (str *StructuralElaborator) emitOneGate(s *scope.Scope, g pform.Gate, outNexus *netlist.Nexus, idx int) {
	pinCount := gatePinCount(g.Kind, len(g.Inputs))
	width := 1
	if idx < 0 {
		if w, _, ok := rangeWidthOrOne(s, g.Range); ok {
			width = w
		}
	}
	node := netlist.NewLogic(netlist.Line{File: g.Pos.File, Num: g.Pos.Line}, toLogicKind(g.Kind), width, pinCount)
	node.Delay = foldDelayOrNil(s, g.Delay)
	outNexus.Add(node.Pins()[0], netlist.HighZ, netlist.HighZ, node.Delay)

	for i, in := range g.Inputs {
		inr := str.elaborateNet(s, in)
		pin := node.Pins()[1+i]
		if idx >= 0 && inr.Width > 1 {
			// rule (b): bit-split a wide input via PartSelect(VP) per instance.
			ps := netlist.NewPartSelect(netlist.Line{}, netlist.VP, idx, 1)
			inr.Nexus.Add(ps.Pins()[0], netlist.HighZ, netlist.HighZ, nil)
			bitNx := netlist.NewNexus("")
			bitNx.Add(ps.Pins()[1], netlist.HighZ, netlist.HighZ, nil)
			bitNx.Add(pin, netlist.HighZ, netlist.HighZ, nil)
			continue
		}
		str.bindNetResult(inr, pin)
	}
	if g.ControlExpr != nil && pinCount > len(g.Inputs)+1 {
		ctrl := str.elaborateNet(s, g.ControlExpr)
		str.bindNetResult(ctrl, node.Pins()[len(node.Pins())-1])
	}
}

func rangeWidthOrOne(s *scope.Scope, r *pform.Range) (int, bool, bool) {
	if r == nil {
		return 1, true, true
	}
	return rangeWidth(s, r)
}

func foldDelayOrNil(s *scope.Scope, d *pform.DelayTriple) *netlist.Delay {
	if d == nil {
		return nil
	}
	return foldDelay(s, d)
}

// udpInstance implements spec §4.4.4.
func (str *StructuralElaborator) udpInstance(s *scope.Scope, u pform.UDPInstance) {
	if len(u.Connections) == 0 {
		str.Diags.Errorf(pos(u.Pos), "UDP instance %s has no output connection", u.InstName)
		return
	}
	node := netlist.NewUDP(netlist.Line{File: u.Pos.File, Num: u.Pos.Line}, u.TypeName, len(u.Connections)-1)
	if u.Delay != nil {
		if cv, _, ok := fold(s, u.Delay.Rise); ok {
			_ = cv
			node.Delay = foldDelay(s, u.Delay)
		} else {
			str.Diags.Errorf(pos(u.Pos), "UDP delay must be a constant expression")
		}
	}
	out := str.elaborateNet(s, u.Connections[0])
	str.bindNetResult(out, node.Pins()[0])
	for i, in := range u.Connections[1:] {
		inr := str.elaborateNet(s, in)
		str.bindNetResult(inr, node.Pins()[1+i])
	}
}

// specifyPath implements spec §4.4.5.
func (str *StructuralElaborator) specifyPath(s *scope.Scope, sp pform.SpecifyPath) {
	switch len(sp.Delays) {
	case 1, 2, 3, 6, 12:
	default:
		str.Diags.Errorf(pos(sp.Pos), "specify path: %d delay values is not one of {1,2,3,6,12}", len(sp.Delays))
		return
	}
	scale := scalePrecision(s.TimeUnit, s.TimePrecision)
	delays := make([]netlist.Delay, 0, len(sp.Delays))
	for _, e := range sp.Delays {
		cv, _, ok := fold(s, e)
		if !ok {
			str.Diags.Errorf(pos(sp.Pos), "specify path delay must be a constant expression")
			continue
		}
		n, _ := toInt64(cv)
		scaled := n * scale
		delays = append(delays, netlist.Delay{Rise: scaled, Fall: scaled, Decay: scaled})
	}

	for _, destName := range sp.Destinations {
		destSig, ok := s.Signals.Get(destName)
		if !ok {
			str.Diags.Errorf(pos(sp.Pos), "specify path destination %q is not a signal", destName)
			continue
		}
		node := netlist.NewDelaySrc(netlist.Line{File: sp.Pos.File, Num: sp.Pos.Line}, len(sp.Sources))
		node.Delays = delays
		node.EdgeAware = sp.EdgeAware
		str.nexusOf(destSig).Add(node.Pins()[0], netlist.HighZ, netlist.HighZ, nil)
		for i, srcName := range sp.Sources {
			srcSig, ok := s.Signals.Get(srcName)
			if !ok {
				str.Diags.Errorf(pos(sp.Pos), "specify path source %q is not a signal", srcName)
				continue
			}
			str.nexusOf(srcSig).Add(node.Pins()[1+i], netlist.HighZ, netlist.HighZ, nil)
		}
		if sp.Condition != nil {
			cres := str.elaborateNet(s, sp.Condition)
			p := &netlist.Pin{}
			node.Condition = p
			str.bindNetResult(cres, p)
		}
	}
	if str.Flags.DebugElaborate {
		log.WithField("scope", s.Path()).Debug("elaborated specify path")
	}
}

// scalePrecision computes 10^(scope.time_unit - design.precision) per spec
// §4.4.5.
func scalePrecision(timeUnit, designPrecision int) int64 {
	exp := timeUnit - designPrecision
	scale := int64(1)
	for i := 0; i < exp; i++ {
		scale *= 10
	}
	for i := 0; i > exp; i-- {
		scale /= 10
		if scale == 0 {
			scale = 1
			break
		}
	}
	return scale
}
