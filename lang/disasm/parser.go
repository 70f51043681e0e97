// Package disasm implements the Disassembly Parser (spec.md §4.1): it turns
// the VM's textual "-v -v -v -v" dump into a structured *ir.Program.
package disasm

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/mna/udecomp/lang/ir"
)

// Parse reads the full textual stdout of invoking the VM at maximum
// verbosity and returns the structured program it describes. Malformed
// header lines fail with a *ParseError; unrecognized opcodes never fail
// parsing, they are recorded with OpCode ir.Unknown and their raw text kept
// for the Lifter to warn about.
func Parse(data []byte) (*ir.Program, error) {
	p := &parser{s: bufio.NewScanner(bytes.NewReader(data))}
	p.run()
	return p.prog, p.err
}

type parser struct {
	s        *bufio.Scanner
	lineNum  int
	prog     *ir.Program
	cur      *ir.CodeBlock
	lastInsn *ir.Instruction // last instruction appended to cur, for multi-line constants
	err      error
}

func (p *parser) fail(reason string) {
	if p.err == nil {
		p.err = &ParseError{Line: p.lineNum, Reason: reason}
	}
}

func (p *parser) run() {
	p.prog = ir.NewProgram()

	for p.err == nil && p.s.Scan() {
		p.lineNum++
		line := p.s.Text()

		switch {
		case strings.HasPrefix(line, "mem"):
			p.finishBlock()
			return

		case strings.TrimSpace(line) == "", strings.HasPrefix(line, "("), strings.HasPrefix(line, "Raw bytecode"):
			continue

		case strings.HasPrefix(line, "  "):
			p.lineInfoRow(line)

		case strings.HasPrefix(line, " "):
			continue

		default:
			trimmed := strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(trimmed, "File "):
				p.fileHeader(trimmed)
			case strings.HasPrefix(trimmed, "arg names:"):
				p.argNames(trimmed)
			default:
				p.instructionRow(trimmed)
			}
		}
	}
	if p.err == nil {
		p.err = p.s.Err()
	}
	p.finishBlock()

	if p.err == nil && p.prog.Toplevel == nil {
		p.fail("missing <module> code block")
	}
}

func (p *parser) finishBlock() {
	if p.cur != nil {
		p.prog.Add(p.cur)
		p.cur = nil
		p.lastInsn = nil
	}
}

func (p *parser) fileHeader(line string) {
	p.finishBlock()

	rest := strings.TrimPrefix(line, "File ")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		p.fail("invalid File line: missing comma")
		return
	}
	source := rest[:commaIdx]

	quoteParts := strings.SplitN(line, "'", 3)
	if len(quoteParts) < 3 {
		p.fail("invalid File line: missing quoted name")
		return
	}
	name := quoteParts[1]

	fields := strings.Fields(line)
	if len(fields) < 7 {
		p.fail("invalid File line: expected at least 7 fields")
		return
	}
	descriptor := strings.TrimSuffix(fields[6], ",")

	p.cur = &ir.CodeBlock{
		Name:       name,
		Source:     source,
		Descriptor: descriptor,
		LineInfo:   make(map[uint32]int),
	}
}

func (p *parser) argNames(line string) {
	if p.cur == nil {
		p.fail("arg names: outside of a code block")
		return
	}
	fields := strings.Fields(line)
	p.cur.Args = fields[2:] // "arg names:" is two fields
}

func (p *parser) lineInfoRow(line string) {
	if p.cur == nil {
		p.fail("line-info row outside of a code block")
		return
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		p.fail("invalid line-info row: expected bc= and line= fields")
		return
	}

	bc, ok := parseKV(fields[0], "bc")
	if !ok {
		p.fail("invalid line-info row: expected bc=<int>")
		return
	}
	ln, ok := parseKV(fields[1], "line")
	if !ok {
		p.fail("invalid line-info row: expected line=<int>")
		return
	}
	p.cur.LineInfo[uint32(bc)] = ln
}

func parseKV(field, key string) (int, bool) {
	prefix := key + "="
	if !strings.HasPrefix(field, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(field, prefix))
	if err != nil {
		return 0, false
	}
	return n, true
}

func (p *parser) instructionRow(line string) {
	if p.cur == nil {
		p.fail("instruction row outside of a code block")
		return
	}

	fields := strings.Fields(line)
	offset, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		// continuation of the previous instruction's operand: the VM's
		// disassembler embedded a raw newline inside a string constant.
		if p.lastInsn == nil {
			p.fail("constant continuation line with no preceding instruction")
			return
		}
		p.lastInsn.Operands += "\n" + line
		return
	}
	if len(fields) < 2 {
		p.fail("invalid instruction row: expected offset and opcode")
		return
	}

	opText := fields[1]
	operands := strings.Join(fields[2:], " ")
	op, _ := ir.LookupOpcode(opText)

	insn := ir.Instruction{
		Offset:   uint32(offset),
		Op:       op,
		OpText:   opText,
		Operands: operands,
	}
	if ln, ok := p.cur.LineInfo[insn.Offset]; ok {
		insn.Line = ln
		insn.HasLine = true
	}

	p.cur.Instructions = append(p.cur.Instructions, insn)
	p.lastInsn = &p.cur.Instructions[len(p.cur.Instructions)-1]
}
