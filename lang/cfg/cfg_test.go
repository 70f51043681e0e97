package cfg_test

import (
	"testing"

	"github.com/mna/udecomp/lang/cfg"
	"github.com/mna/udecomp/lang/ir"
	"github.com/stretchr/testify/require"
)

func insn(offset uint32, op ir.OpCode, operands string) ir.Instruction {
	return ir.Instruction{Offset: offset, Op: op, OpText: op.String(), Operands: operands}
}

func TestBuildNoJumps(t *testing.T) {
	cb := &ir.CodeBlock{Instructions: []ir.Instruction{
		insn(0, ir.LoadConstNone, ""),
		insn(2, ir.ReturnValue, ""),
	}}
	require.NoError(t, cfg.Build(cb))
	require.Len(t, cb.BasicBlocks, 1)
	require.Equal(t, "L0", cb.BasicBlocks[0].Label)
	require.Len(t, cb.BasicBlocks[0].Instructions, 2)
}

func TestBuildPartitionsOnJumpTargets(t *testing.T) {
	cb := &ir.CodeBlock{Instructions: []ir.Instruction{
		insn(0, ir.LoadName, "x"),
		insn(2, ir.PopJumpIfFalse, "6"),
		insn(4, ir.JumpAbsolute, "8"),
		insn(6, ir.LoadConstNone, ""),
		insn(8, ir.ReturnValue, ""),
	}}
	require.NoError(t, cfg.Build(cb))
	require.Len(t, cb.BasicBlocks, 3)
	require.Equal(t, "L0", cb.BasicBlocks[0].Label)
	require.Len(t, cb.BasicBlocks[0].Instructions, 3)
	require.Equal(t, "L6", cb.BasicBlocks[1].Label)
	require.Len(t, cb.BasicBlocks[1].Instructions, 1)
	require.Equal(t, "L8", cb.BasicBlocks[2].Label)
	require.Len(t, cb.BasicBlocks[2].Instructions, 1)

	// every instruction appears exactly once, in order (totality property)
	var flat []ir.Instruction
	for _, bb := range cb.BasicBlocks {
		flat = append(flat, bb.Instructions...)
	}
	require.Equal(t, cb.Instructions, flat)
}

// TestBuildPartitionsOnBareJump covers the VM's plain unconditional JUMP
// opcode, which has no dedicated OpCode constant (it decodes to Unknown)
// but must still be recognized by its raw text, not the closed enum.
func TestBuildPartitionsOnBareJump(t *testing.T) {
	cb := &ir.CodeBlock{Instructions: []ir.Instruction{
		insn(0, ir.LoadConstNone, ""),
		{Offset: 2, Op: ir.Unknown, OpText: "JUMP", Operands: "6"},
		insn(4, ir.LoadConstNone, ""),
		insn(6, ir.ReturnValue, ""),
	}}
	require.NoError(t, cfg.Build(cb))
	require.Len(t, cb.BasicBlocks, 2)
	require.Equal(t, "L0", cb.BasicBlocks[0].Label)
	require.Len(t, cb.BasicBlocks[0].Instructions, 3)
	require.Equal(t, "L6", cb.BasicBlocks[1].Label)
	require.Len(t, cb.BasicBlocks[1].Instructions, 1)
}

func TestBuildUnwindJumpTwoTargets(t *testing.T) {
	cb := &ir.CodeBlock{Instructions: []ir.Instruction{
		insn(0, ir.UnwindJump, "4 6"),
		insn(4, ir.LoadConstNone, ""),
		insn(6, ir.ReturnValue, ""),
	}}
	require.NoError(t, cfg.Build(cb))
	require.Len(t, cb.BasicBlocks, 3)
	require.Equal(t, "L0", cb.BasicBlocks[0].Label)
	require.Equal(t, "L4", cb.BasicBlocks[1].Label)
	require.Equal(t, "L6", cb.BasicBlocks[2].Label)
}

func TestBuildJumpPastEndNoSyntheticBlock(t *testing.T) {
	cb := &ir.CodeBlock{Instructions: []ir.Instruction{
		insn(0, ir.PopJumpIfFalse, "999"),
		insn(2, ir.ReturnValue, ""),
	}}
	require.NoError(t, cfg.Build(cb))
	require.Len(t, cb.BasicBlocks, 1)
	require.Equal(t, "L0", cb.BasicBlocks[0].Label)
	require.Len(t, cb.BasicBlocks[0].Instructions, 2)
}

func TestBuildInvalidUnwindJump(t *testing.T) {
	cb := &ir.CodeBlock{Instructions: []ir.Instruction{
		insn(0, ir.UnwindJump, "4"),
	}}
	err := cfg.Build(cb)
	require.ErrorContains(t, err, "expected two targets")
}
