package emit

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Instruction is one emitted assembly line: an optional label, the opcode,
// its operands already formatted as text, and an optional trailing comment
// (mirroring the stack-picture comments the teacher's opcode.go carries).
type Instruction struct {
	Label   string
	Op      Opcode
	Args    []string
	Comment string
}

// Thread is one emitted instruction stream: the top-level behavior/task/
// function body, or a fork sub-thread laid out after its parent (spec §4.6
// item 10: "jump over the sub-thread bodies which are laid out after").
type Thread struct {
	Name string // e.g. "T_0", "TD_mytask"
	Code []Instruction
}

// Program is the complete emitted output: every thread produced while
// walking the Design's behaviors, plus a stable opaque BuildID so a
// downstream consumer (the executing runtime, out of scope here) can
// correlate re-emits of the same design across tool invocations. BuildID's
// home is deliberately minimal -- see DESIGN.md -- since nothing in the
// elaboration core itself needs to read it back.
type Program struct {
	BuildID string
	Threads []*Thread
}

// NewProgram returns an empty program stamped with a fresh build identifier.
func NewProgram() *Program {
	return &Program{BuildID: uuid.NewString()}
}

// WriteTo renders the program as the text format spec §4.6 describes: one
// thread per section, each instruction on its own line, labels on their own
// line immediately before the instruction they guard.
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "; build %s\n", p.BuildID)
	for _, t := range p.Threads {
		fmt.Fprintf(&b, "thread: %s\n", t.Name)
		for _, insn := range t.Code {
			writeInsn(&b, insn)
		}
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func writeInsn(b *strings.Builder, insn Instruction) {
	if insn.Label != "" {
		fmt.Fprintf(b, "%s:\n", insn.Label)
	}
	b.WriteByte('\t')
	b.WriteString(string(insn.Op))
	if len(insn.Args) > 0 {
		b.WriteByte(' ')
		b.WriteString(strings.Join(insn.Args, ", "))
	}
	if insn.Comment != "" {
		b.WriteString(" ; ")
		b.WriteString(insn.Comment)
	}
	b.WriteByte('\n')
}
