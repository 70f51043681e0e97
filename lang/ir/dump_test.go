package ir_test

import (
	"strings"
	"testing"

	"github.com/mna/udecomp/lang/ir"
	"github.com/stretchr/testify/require"
)

func TestProgramDumpAnnotatesMakeFunction(t *testing.T) {
	prog := ir.NewProgram()
	prog.Add(&ir.CodeBlock{
		Name:       "f",
		Source:     "mod.py",
		Descriptor: "f#1",
		Args:       []string{"x"},
		Instructions: []ir.Instruction{
			{Offset: 0, Op: ir.LoadFast, OpText: "LOAD_FAST", Operands: "0", Line: 2, HasLine: true},
			{Offset: 2, Op: ir.ReturnValue, OpText: "RETURN_VALUE"},
		},
	})
	prog.Add(&ir.CodeBlock{
		Name:       "<module>",
		Source:     "mod.py",
		Descriptor: "<module>",
		Instructions: []ir.Instruction{
			{Offset: 0, Op: ir.MakeFunction, OpText: "MAKE_FUNCTION", Operands: "f#1", Line: 4, HasLine: true},
			{Offset: 2, Op: ir.StoreName, OpText: "STORE_NAME", Operands: "f"},
		},
	})

	var buf strings.Builder
	require.NoError(t, prog.Dump(&buf))
	out := buf.String()

	require.Contains(t, out, "## Name:   f")
	require.Contains(t, out, "## Args:   x")
	require.Contains(t, out, "0 MAKE_FUNCTION f#1(f)   # line 4")
}

func TestProgramDumpBlankLineOnNewSourceLine(t *testing.T) {
	prog := ir.NewProgram()
	prog.Add(&ir.CodeBlock{
		Name:       "<module>",
		Descriptor: "<module>",
		Instructions: []ir.Instruction{
			{Offset: 0, Op: ir.LoadConstNone, OpText: "LOAD_CONST_NONE", Line: 1, HasLine: true},
			{Offset: 2, Op: ir.ReturnValue, OpText: "RETURN_VALUE", Line: 2, HasLine: true},
		},
	})

	var buf strings.Builder
	require.NoError(t, prog.Dump(&buf))
	out := buf.String()
	require.Contains(t, out, "\n\n  0 LOAD_CONST_NONE")
	require.Contains(t, out, "\n\n  2 RETURN_VALUE")
}

func TestProgramDumpRendersBasicBlockLabels(t *testing.T) {
	cb := &ir.CodeBlock{
		Name:       "<module>",
		Descriptor: "<module>",
		BasicBlocks: []*ir.BasicBlock{
			{Label: "L0", Instructions: []ir.Instruction{
				{Offset: 0, Op: ir.LoadConstNone, OpText: "LOAD_CONST_NONE"},
			}},
			{Label: "L2", Instructions: []ir.Instruction{
				{Offset: 2, Op: ir.ReturnValue, OpText: "RETURN_VALUE"},
			}},
		},
	}
	prog := ir.NewProgram()
	prog.Add(cb)

	var buf strings.Builder
	require.NoError(t, prog.Dump(&buf))
	out := buf.String()
	require.Contains(t, out, "L0:\n")
	require.Contains(t, out, "L2:\n")
}
