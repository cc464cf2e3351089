package diag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/nenuphar/diag"
)

func TestCounterWarnDoesNotFail(t *testing.T) {
	var c diag.Counter
	c.Warnf(diag.Pos{File: "a.v", Line: 1}, "unused signal %s", "foo")
	assert.False(t, c.Failed())
	assert.Equal(t, 0, c.Count())
	require.Len(t, c.All(), 1)
	assert.Equal(t, diag.Warning, c.All()[0].Severity)
}

func TestCounterErrorFails(t *testing.T) {
	var c diag.Counter
	c.Errorf(diag.Pos{File: "a.v", Line: 3}, "undeclared signal %s", "bar")
	assert.True(t, c.Failed())
	assert.Equal(t, 1, c.Count())
	require.Error(t, c.Errors())
}

func TestCounterAllSortsByFileThenLine(t *testing.T) {
	var c diag.Counter
	c.Errorf(diag.Pos{File: "b.v", Line: 5}, "second file")
	c.Errorf(diag.Pos{File: "a.v", Line: 9}, "later line, earlier file")
	c.Errorf(diag.Pos{File: "a.v", Line: 2}, "earliest")

	all := c.All()
	require.Len(t, all, 3)
	assert.Equal(t, "earliest", all[0].Message)
	assert.Equal(t, "later line, earlier file", all[1].Message)
	assert.Equal(t, "second file", all[2].Message)
}

func TestDiagnosticErrorFormat(t *testing.T) {
	d := diag.Diagnostic{Severity: diag.Error, Pos: diag.Pos{File: "a.v", Line: 4}, Message: "boom"}
	assert.Equal(t, "a.v:4: error: boom", d.Error())
}

func TestPosStringUnknown(t *testing.T) {
	assert.Equal(t, "<unknown>", diag.Pos{}.String())
}
