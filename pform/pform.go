// Package pform defines the parse-form tree the elaborator consumes: the
// output contract of the upstream scanner/parser/preprocessor, which are
// external collaborators out of scope for this module (spec §1, §6). PForm
// is immutable once handed to the elaborator; nothing in this package
// mutates it.
package pform

// Pos is a source-file-line coordinate, carried on every leaf per spec §3's
// "Each leaf carries source-file-line metadata" invariant.
type Pos struct {
	File string
	Line int
}

// PortDirection enumerates the direction attribute of a declared signal.
type PortDirection uint8

const (
	NotAPort PortDirection = iota
	Input
	Output
	Inout
	Implicit
)

// DataType enumerates a signal's value domain (spec §3).
type DataType uint8

const (
	Logic DataType = iota // 4-state logic vector
	Bool                  // 2-state (synthesizable) vector
	Real                  // IEEE double
)

// NetType enumerates the declared net kind of a signal declaration.
type NetType uint8

const (
	Wire NetType = iota
	Tri
	Reg
	Supply0
	Supply1
	TriAnd
	TriOr
	TriReg
	Trireg
)

// Range is an inclusive [MSB:LSB] declaration. Width and endianness are
// derived from it by the Signal Elaborator (spec §4.3): width is
// |MSB-LSB|+1, and MSB > LSB records a big-endian (normal) declaration.
type Range struct {
	MSB, LSB Expr
}

// SignalDecl is a declared signal (net or register), scalar or vector,
// scalar-real or logic-vector, per spec §3.
type SignalDecl struct {
	Pos       Pos
	Name      string
	Range     *Range // nil for a scalar signal
	ArrayDims []Range // non-empty for a "memory" (multi-dimensional) signal
	Type      NetType
	DataType  DataType
	Signed    bool
	Direction PortDirection
}

// Port is a module port: its external name and the internal signal
// reference(s) it binds to (a port can be a concatenation of internal
// signals in the source language; PForm already resolved that to a name
// list here).
type Port struct {
	Pos      Pos
	Name     string
	Internal []string
}

// ParamDecl is a declared parameter or specparam (name + default
// expression); specparams are held in a parallel list per the data model.
type ParamDecl struct {
	Pos        Pos
	Name       string
	Default    Expr
	IsSpecparam bool
}

// DelayTriple is a (rise, fall, decay) expression triple in design-precision
// time units (spec §3 Glossary: "Delay triple").
type DelayTriple struct {
	Rise, Fall, Decay Expr
}

// DriveStrength is one of {HIGHZ, WEAK, PULL, STRONG, SUPPLY}; StrengthPair
// below pairs a strength-0 value with a strength-1 value.
type DriveStrength uint8

const (
	HighZ DriveStrength = iota
	Weak
	Pull
	Strong
	Supply
)

type StrengthPair struct {
	Strength0, Strength1 DriveStrength
}

// GateKind enumerates the closed set of logic/switch primitive families
// (spec §3 Netlist nodes, §4.4.2 per-family pin-count rules).
type GateKind uint8

const (
	GateAnd GateKind = iota
	GateNand
	GateOr
	GateNor
	GateXor
	GateXnor
	GateBuf
	GateNot
	GateBufIf0
	GateBufIf1
	GateNotIf0
	GateNotIf1
	GateCmos
	GateRcmos
	GateNmos
	GatePmos
	GateRnmos
	GateRpmos
	GateTran
	GateRtran
	GateTranIf0
	GateTranIf1
	GateRtranIf0
	GateRtranIf1
	GatePullup
	GatePulldown
)

// Gate is a single primitive-gate (possibly arrayed) declaration.
type Gate struct {
	Pos         Pos
	Kind        GateKind
	InstName    string   // may be synthesized if absent in source
	Range       *Range   // non-nil for a gate array
	Strength    StrengthPair
	Delay       *DelayTriple
	Output      Expr     // the output (or bidirectional-a) port expression
	Output2     Expr     // TRAN's second bidirectional terminal; nil otherwise
	Inputs      []Expr
	ControlExpr Expr     // enable for BUFIFx/NOTIFx/CMOS family; nil otherwise
}

// ContinuousAssign is one `assign` statement (spec §4.4.1).
type ContinuousAssign struct {
	Pos      Pos
	LValue   Expr
	RValue   Expr
	Delay    *DelayTriple
	Strength StrengthPair
}

// PortConnection is one actual in a module-instance port-binding list.
// Exactly one of Name ("by-name") or the positional ordering (by-position,
// recorded by the connection's index in ModuleInstance.Connections) applies
// for a given instance; PForm never mixes the two within one instance.
type PortConnection struct {
	Name  string // empty for a positional connection
	Value Expr   // nil for an explicitly unconnected port ".name()"
}

// ModuleInstance is one (possibly arrayed) instantiation of a module
// template (spec §3, §4.4.3).
type ModuleInstance struct {
	Pos          Pos
	TypeName     string
	InstName     string
	Range        *Range // non-nil for an instance array
	ParamOverrides []PortConnection // positional or by-name, like port binding
	Delay        *DelayTriple
	Connections  []PortConnection
}

// UDPInstance is one instantiation of a user-defined primitive.
type UDPInstance struct {
	Pos         Pos
	TypeName    string
	InstName    string
	Delay       *DelayTriple // re-interpreted as delay, must fold to a constant (spec §4.4.4)
	Connections []Expr       // [0] is the output, the rest are inputs
}

// SpecifyPath is one path_declaration inside a specify block (spec §4.4.5).
type SpecifyPath struct {
	Pos         Pos
	Sources     []string
	Destinations []string
	Condition   Expr // gating signal; nil if unconditioned
	EdgeAware   bool
	Delays      []Expr // len in {1,2,3,6,12}
}

// Defparam is a `defparam target = expr;` declaration (spec §4.2). Target
// is a dot-separated hierarchical path as written in the source, relative
// to the scope the defparam itself is declared in.
type Defparam struct {
	Pos    Pos
	Target []string
	Value  Expr
}

// GenerateKind enumerates the compile-time generate construct (spec §4.1).
type GenerateKind uint8

const (
	GenerateFor GenerateKind = iota
	GenerateIf
	GenerateCase
)

// GenerateScheme is a generate-for/if/case block, expanded into one or more
// child scopes during scope construction.
type GenerateScheme struct {
	Pos  Pos
	Kind GenerateKind
	Name string // empty -> Scope Builder assigns "genblk<n>"

	// GenerateFor fields.
	LoopVar        string
	Init, Cond, Step Expr

	// GenerateIf / GenerateCase fields: each arm is guarded by a Guard
	// expression (for If, exactly one, possibly with an else carried as the
	// final arm with Guard == nil) and holds the Body to instantiate if
	// selected.
	Arms []GenerateArm
}

type GenerateArm struct {
	Guard Expr // nil denotes the default/else arm
	Body  *ModuleBody
}

// TaskDecl and FuncDecl are task/function definitions local to a scope.
type TaskDecl struct {
	Pos    Pos
	Name   string
	Ports  []SignalDecl // declared as ordinary signals in the task's own scope
	Body   Stmt
}

type FuncDecl struct {
	Pos        Pos
	Name       string
	ReturnType SignalDecl // width/sign/type of the function's implicit return register
	Ports      []SignalDecl
	Body       Stmt
}

// Behavior is one initial/always block.
type BehaviorKind uint8

const (
	Initial BehaviorKind = iota
	Always
)

type Behavior struct {
	Pos  Pos
	Kind BehaviorKind
	Body Stmt
}

// ModuleBody is the set of declarative/structural/behavioral elements a
// module template (or a generate-block arm, which shares the same grammar)
// carries. Splitting it out of Module lets GenerateArm reuse it.
type ModuleBody struct {
	Params      []ParamDecl
	Signals     []SignalDecl
	Gates       []Gate
	Assigns     []ContinuousAssign
	Instances   []ModuleInstance
	UDPInstances []UDPInstance
	Behaviors   []Behavior
	Tasks       []TaskDecl
	Funcs       []FuncDecl
	Generates   []GenerateScheme
	Specifies   []SpecifyPath
	Defparams   []Defparam
}

// Module is a module template: an entry in the PForm type table (spec §3).
type Module struct {
	Pos            Pos
	Name           string
	Ports          []Port
	TimeUnit       int // power-of-ten exponent, e.g. -9 for 1ns
	TimePrecision  int
	DefaultNetType NetType
	Body           ModuleBody
}

// UDPTableRow is one row of a UDP's state table; opaque beyond being a
// sequence of input/output symbols, since the Structural Elaborator only
// needs to attach it to the UDP node, not interpret it (that belongs to the
// out-of-scope downstream consumer).
type UDPTableRow struct {
	Inputs []byte
	Output byte
}

// UDP is a user-defined-primitive template.
type UDP struct {
	Pos        Pos
	Name       string
	IsSeq      bool
	OutputInit byte
	Ports      []string // [0] is the output port name
	Table      []UDPTableRow
}

// Forest is the full PForm: every module and UDP template known so far,
// keyed by type name, plus the designated root module names to elaborate.
// The Scope Builder extends Modules/UDPs in place when the Loader resolves
// an unknown type (spec §6 Loader contract); Forest itself is never
// replaced, only grown.
type Forest struct {
	Modules map[string]*Module
	UDPs    map[string]*UDP
	Roots   []string
}
