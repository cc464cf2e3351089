package emit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProgramStampsBuildID(t *testing.T) {
	p := NewProgram()
	assert.NotEmpty(t, p.BuildID)

	q := NewProgram()
	assert.NotEqual(t, p.BuildID, q.BuildID, "each program gets its own build id")
}

func TestProgramWriteToRendersThreadsAndInstructions(t *testing.T) {
	p := NewProgram()
	p.Threads = []*Thread{
		{
			Name: "T_0",
			Code: []Instruction{
				{Comment: ".scope S_0"},
				{Label: "T_0.1", Op: OpSet, Args: []string{"v0", "v1"}},
				{Op: OpEnd},
			},
		},
	}

	var buf strings.Builder
	n, err := p.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Equal(t, int64(len(out)), n)

	assert.Contains(t, out, "; build "+p.BuildID)
	assert.Contains(t, out, "thread: T_0")
	assert.Contains(t, out, "T_0.1:\n\t%set v0, v1")
	assert.Contains(t, out, "\t%end")
}

func TestWriteInsnLabelThenOpcodeOnSeparateLines(t *testing.T) {
	var b strings.Builder
	writeInsn(&b, Instruction{Label: "t_1", Op: OpWait, Args: []string{"E_1"}, Comment: "note"})
	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "t_1:", lines[0])
	assert.Equal(t, "\t%wait E_1 ; note", lines[1])
}
