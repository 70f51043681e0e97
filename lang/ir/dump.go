package ir

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a human-readable rendering of the program's parsed code
// blocks back out as text: a source/name/args header per block, one line
// per instruction, a blank line whenever a new source line begins, and
// MAKE_FUNCTION operands annotated with the referenced block's name. This
// is the rendering printed by the disasm CLI command (SPEC_FULL.md §4,
// grounded on the original decompiler's get_disassembly); the decompile
// command does not use it, its <stem>.s file holds the VM's disassembly
// text as received.
func (p *Program) Dump(w io.Writer) error {
	d := &dumper{w: w, prog: p}
	for _, cb := range p.OrderedBlocks() {
		d.block(cb)
	}
	return d.err
}

type dumper struct {
	w    io.Writer
	prog *Program
	err  error
}

func (d *dumper) writef(format string, args ...interface{}) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, format, args...)
}

func (d *dumper) block(cb *CodeBlock) {
	d.writef("## Source: %s\n", cb.Source)
	d.writef("## Name:   %s\n", cb.Name)
	d.writef("## Args:   %s\n", strings.Join(cb.Args, " "))

	if cb.BasicBlocks == nil {
		d.instructions(cb.Instructions)
	} else {
		for _, bb := range cb.BasicBlocks {
			d.writef("%s:\n", bb.Label)
			d.instructions(bb.Instructions)
		}
	}
	d.writef("\n")
}

func (d *dumper) instructions(instrs []Instruction) {
	for _, insn := range instrs {
		if insn.HasLine {
			d.writef("\n")
		}

		lineSuffix := ""
		if insn.HasLine {
			lineSuffix = fmt.Sprintf("   # line %d", insn.Line)
		}

		if insn.Op == MakeFunction {
			name := insn.Operands
			if target, ok := d.prog.Lookup(strings.TrimSpace(insn.Operands)); ok {
				name = target.Name
			}
			d.writef("  %d %s %s(%s)%s\n", insn.Offset, insn.OpText, insn.Operands, name, lineSuffix)
			continue
		}
		d.writef("  %d %s %s%s\n", insn.Offset, insn.OpText, insn.Operands, lineSuffix)
	}
}
