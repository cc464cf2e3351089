// Package emit is the Back-End Emitter (spec §4.6): it walks the elaborated
// procedure graph and structural netlist and writes a single text stream of
// VM assembly, the handoff boundary to the executing runtime (an external
// collaborator, out of scope here). It generalizes the teacher's
// lang/compiler/asm.go (bytecode <-> textual assembly) and lang/compiler/
// opcode.go (opcode enumeration with stack-picture comments), and the
// register/thread bookkeeping of lang/machine/thread.go and frame.go,
// repurposed from "executable VM state" to "emitter-side allocation
// bookkeeping" since this package only emits assembly, it never runs it.
package emit

// Opcode is a VM assembly mnemonic, spelled out exactly as spec §4.6 writes
// it (the "%family/variant" convention of the executing VM's own assembler).
// Unlike the teacher's binary Opcode enum, text is the wire format here --
// there is no encode/decode round trip to support, only formatting -- so
// the mnemonic itself is the representation.
type Opcode string

// "args" below describes the operand list an instruction of that mnemonic
// expects, in emission order; see statement.go and expr.go for the routines
// that build them.
const (
	// Blocking vector write family (spec §4.6 item 1): args are
	// (signal[, word-index][, part-offset], value).
	OpSet      Opcode = "%set"      // plain part-select at a constant bit offset
	OpSetX0    Opcode = "%set/x0"   // constant part-offset recorded as an immediate
	OpSetAV    Opcode = "%set/av"   // array (memory) word write
	OpSetAVX1  Opcode = "%set/av/x1" // array word write, constant part-offset
	OpSetWR    Opcode = "%set/wr"   // real blocking assign (spec item 2)
	OpSetVTrig Opcode = "%set/v"    // event trigger: `-> event;` (spec item 8)

	// Non-blocking assign family (spec §4.6 item 3), mirroring the %set
	// family one-for-one plus an optional /d (register-held delay) suffix.
	OpAssignV0   Opcode = "%assign/v0"
	OpAssignV0X1 Opcode = "%assign/v0/x1"
	OpAssignAV   Opcode = "%assign/av"
	OpAssignWR   Opcode = "%assign/wr"
	OpAssignD    Opcode = "%assign/d" // suffix marker combined onto one of the above at emission time

	// Control flow (spec §4.6 item 4).
	OpJmp     Opcode = "%jmp"     // unconditional
	OpJmp0XZ  Opcode = "%jmp/0xz" // conditional, with x/z-aware "jump if false" semantics

	// Case dispatch (spec §4.6 item 5).
	OpCmpU  Opcode = "%cmp/u"  // exact case
	OpCmpX  Opcode = "%cmp/x"  // casex
	OpCmpZ  Opcode = "%cmp/z"  // casez
	OpCmpWR Opcode = "%cmp/wr" // case on reals
	OpCmpIU Opcode = "%cmpi/u" // short-circuit compare-immediate for a small constant guard

	// Event wait / trigger (spec §4.6 item 7-8).
	OpWait Opcode = "%wait"

	// Delay (spec §4.6 item 9).
	OpDelay  Opcode = "%delay"  // constant delay, split low/high 32-bit halves
	OpDelayX Opcode = "%delayx" // expression delay, register-held

	// Fork/join (spec §4.6 item 10).
	OpFork Opcode = "%fork"
	OpJoin Opcode = "%join"

	// System task/function calls (spec §4.6 item 12).
	OpVpiCall  Opcode = "%vpi_call"
	OpVpiFunc  Opcode = "%vpi_func"   // vector-valued system function
	OpVpiFuncR Opcode = "%vpi_func/r" // real-valued system function

	// Force/cassign/release/deassign (spec §4.6 item 13), each taking an
	// optional /wr (real l-value), /x0 (constant part-offset) or /link
	// (plain-signal r-value, scheduler keeps the continuous linkage) suffix
	// appended at emission time by the caller, not encoded as distinct
	// mnemonics here.
	OpForce    Opcode = "%force"
	OpCassign  Opcode = "%cassign"
	OpRelease  Opcode = "%release"
	OpDeassign Opcode = "%deassign"

	// Disable (spec §4.6 item 14).
	OpDisable Opcode = "%disable"

	// OpEnd terminates a thread's instruction stream; every emitted thread
	// ends with one so the assembler form has an explicit boundary.
	OpEnd Opcode = "%end"
)

// suffix appends a "/tag" to an opcode's mnemonic, used for the handful of
// families spec §4.6 describes as "same opcode, one of several suffixes
// depending on l-value shape" (items 1, 3, 13) rather than giving each
// combination its own named constant above.
func suffix(op Opcode, tag string) Opcode {
	return op + "/" + Opcode(tag)
}
