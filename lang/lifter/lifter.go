// Package lifter implements the Stack-Machine Lifter (spec.md §4.3): it
// abstractly interprets a code block's instructions against an operand
// stack and an auxiliary marker stack to recover an AST of source-level
// constructs. It is the largest component of the pipeline; everything
// upstream (lang/disasm, lang/cfg) exists to feed it a clean instruction
// stream, and everything downstream (lang/unparser) exists to render what it
// produces.
package lifter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dolthub/swiss"
	"github.com/mna/udecomp/lang/ast"
	"github.com/mna/udecomp/lang/cfg"
	"github.com/mna/udecomp/lang/ir"
)

// session is shared across the recursive lift of one program: the memo
// avoids re-lifting a code block referenced by more than one MAKE_FUNCTION
// (a function captured by two closures, or a comprehension body reached
// while resolving more than one forward reference), and the warning log
// accumulates UnsupportedOpcode notices for the whole run.
type session struct {
	prog     *ir.Program
	memo     *swiss.Map[string, *ast.FunctionDef]
	warnings []string
}

func (s *session) warnf(cb *ir.CodeBlock, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.warnings = append(s.warnings, fmt.Sprintf("%s: %s", cb.Name, msg))
}

// Lift runs the Stack-Machine Lifter over the whole program starting at its
// <module> entry point, returning the reconstructed module AST and any
// UnsupportedOpcode warnings collected along the way. A non-nil error is a
// module-level failure per spec.md §7 (StackUnderflow, DescriptorNotFound,
// or a malformed operand).
func Lift(prog *ir.Program) (*ast.Module, []string, error) {
	sess := &session{
		prog: prog,
		memo: swiss.NewMap[string, *ast.FunctionDef](8),
	}
	if prog.Toplevel == nil {
		return nil, nil, fmt.Errorf("lifter: program has no <module> code block")
	}
	stmts, err := liftCodeBlock(sess, prog.Toplevel)
	if err != nil {
		return nil, sess.warnings, err
	}
	return &ast.Module{Body: stmts}, sess.warnings, nil
}

// liftCodeBlock lifts one code block's basic blocks, in order, against a
// fresh pair of operand/auxiliary stacks (spec.md §3: "nested lifts use
// fresh instances").
func liftCodeBlock(sess *session, cb *ir.CodeBlock) ([]ast.Stmt, error) {
	if cb.BasicBlocks == nil {
		if err := cfg.Build(cb); err != nil {
			return nil, fmt.Errorf("%s: %w", cb.Name, err)
		}
	}

	b := &blockLifter{sess: sess, cb: cb}
	var all []ir.Instruction
	for _, bb := range cb.BasicBlocks {
		all = append(all, bb.Instructions...)
	}

	stmts, err := b.liftInstrs(all)
	if err != nil {
		return nil, err
	}
	if b.operand.len() != 0 {
		sess.warnf(cb, "operand stack not empty at end of code block (%d leftover value(s))", b.operand.len())
	}
	return stmts, nil
}

// blockLifter holds the per-code-block state of spec.md §3: the operand
// stack, the auxiliary marker stack, and the running statement list for
// whatever range of instructions is currently being processed. err follows
// the same short-circuit convention as lang/disasm's parser: once set, every
// further step is a no-op.
type blockLifter struct {
	sess    *session
	cb      *ir.CodeBlock
	operand exprStack
	aux     auxStack
	err     error
}

func (b *blockLifter) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *blockLifter) pop(opcode string) ast.Expr {
	e, ok := b.operand.pop()
	if !ok {
		b.fail(&StackUnderflowError{CodeBlock: b.cb.Name, Opcode: opcode})
		return &ast.Unknown{Opcode: opcode, Operands: "stack underflow"}
	}
	return e
}

func lineOf(insn ir.Instruction) int {
	if insn.HasLine {
		return insn.Line
	}
	return 0
}

// liftInstrs interprets a linear run of instructions, recursing into
// liftInstrs for the body of any structured construct it recognizes
// (FOR_ITER, POP_JUMP_IF_*). It shares b's operand and auxiliary stacks with
// its caller: control constructs don't reset lifter state, only narrow the
// instruction range (spec.md §4.3's control-flow paragraph, read as intent
// per spec.md §9).
func (b *blockLifter) liftInstrs(instrs []ir.Instruction) ([]ast.Stmt, error) {
	offIdx := make(map[uint32]int, len(instrs))
	for i, insn := range instrs {
		offIdx[insn.Offset] = i
	}

	var stmts []ast.Stmt
	for i := 0; i < len(instrs) && b.err == nil; i++ {
		insn := instrs[i]

		switch insn.Op {
		case ir.ForIter:
			delta, err := strconv.Atoi(strings.TrimSpace(insn.Operands))
			if err != nil {
				b.fail(&MalformedOperandError{Opcode: insn.OpText, Operand: insn.Operands, Reason: "expected integer delta"})
				break
			}
			exit := insn.Offset + uint32(delta)
			end := len(instrs)
			if idx, ok := offIdx[exit]; ok {
				end = idx
			}
			iter := b.pop(insn.OpText)
			// the value FOR_ITER yields each iteration, consumed by the body's
			// leading store of the loop variable (see extractForTarget).
			b.operand.push(&ast.Unknown{Opcode: insn.OpText, Operands: "loop value", Line: lineOf(insn)})
			body, err := b.liftInstrs(instrs[i+1 : end])
			if err != nil {
				return nil, err
			}
			target, body := extractForTarget(body)
			stmts = append(stmts, &ast.For{Target: target, Iter: iter, Body: body, Line: lineOf(insn)})
			i = end - 1
			continue

		case ir.PopJumpIfTrue, ir.PopJumpIfFalse:
			target, err := strconv.Atoi(strings.TrimSpace(insn.Operands))
			if err != nil {
				b.fail(&MalformedOperandError{Opcode: insn.OpText, Operand: insn.Operands, Reason: "expected integer target"})
				break
			}
			end := len(instrs)
			if idx, ok := offIdx[uint32(target)]; ok {
				end = idx
			}
			test := b.pop(insn.OpText)
			body, err := b.liftInstrs(instrs[i+1 : end])
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, &ast.If{Test: test, Body: body, Line: lineOf(insn)})
			i = end - 1
			continue

		default:
			stmt, skip, err := b.step(insn, instrs, i)
			if err != nil {
				return nil, err
			}
			if stmt != nil {
				stmts = append(stmts, stmt)
			}
			if skip {
				i++
			}
		}
	}
	if b.err != nil {
		return nil, b.err
	}
	return stmts, nil
}

// extractForTarget recognizes the implicit loop-variable assignment that the
// VM compiler emits as the first statement of a FOR_ITER body (a STORE_FAST
// or STORE_NAME immediately binding the iteration value) and lifts it out
// into the For node's Target, rather than rendering it as a redundant first
// body statement.
func extractForTarget(body []ast.Stmt) (ast.Expr, []ast.Stmt) {
	if len(body) == 0 {
		return &ast.Unknown{Opcode: "FOR_ITER", Operands: "missing loop target"}, body
	}
	if assign, ok := body[0].(*ast.Assign); ok && len(assign.Targets) == 1 {
		return assign.Targets[0], body[1:]
	}
	return &ast.Unknown{Opcode: "FOR_ITER", Operands: "missing loop target"}, body
}

// step processes one non-structural instruction, mutating the operand and
// auxiliary stacks and optionally producing a completed statement. instrs
// and i let it peek at the following instruction for the CALL_*/POP_TOP
// lookahead (spec.md §4.3); skip reports whether that lookahead consumed
// part of the peeked instruction logically (it never does here: POP_TOP
// still executes normally afterward and performs the actual discard).
func (b *blockLifter) step(insn ir.Instruction, instrs []ir.Instruction, i int) (ast.Stmt, bool, error) {
	line := lineOf(insn)

	switch insn.Op {
	case ir.LoadConstSmallInt:
		n, err := strconv.ParseInt(strings.TrimSpace(insn.Operands), 10, 64)
		if err != nil {
			return nil, false, &MalformedOperandError{Opcode: insn.OpText, Operand: insn.Operands, Reason: "expected integer"}
		}
		b.operand.push(&ast.Constant{Value: n, Line: line})

	case ir.LoadConstNone:
		b.operand.push(&ast.Constant{Value: nil, Line: line})
	case ir.LoadConstTrue:
		b.operand.push(&ast.Constant{Value: true, Line: line})
	case ir.LoadConstFalse:
		b.operand.push(&ast.Constant{Value: false, Line: line})

	case ir.LoadConstString:
		b.operand.push(&ast.Constant{Value: trimQuotes(insn.Operands), Line: line})

	case ir.LoadConstObj:
		_, value, ok := strings.Cut(insn.Operands, "=")
		if !ok {
			value = insn.Operands
		}
		b.operand.push(&ast.Constant{Value: trimQuotes(value), Line: line})

	case ir.LoadName, ir.LoadGlobal:
		b.operand.push(&ast.Name{ID: strings.TrimSpace(insn.Operands), Ctx: ast.Load, Line: line})

	case ir.LoadFast:
		b.operand.push(&ast.Name{ID: b.resolveLocal(insn.Operands), Ctx: ast.Load, Line: line})

	case ir.LoadAttr, ir.LoadMethod:
		obj := b.pop(insn.OpText)
		b.operand.push(&ast.Attribute{Value: obj, Attr: strings.TrimSpace(insn.Operands), Ctx: ast.Load, Line: line})

	case ir.LoadSubscr:
		idx := b.pop(insn.OpText)
		obj := b.pop(insn.OpText)
		b.operand.push(&ast.Subscript{Value: obj, Index: idx, Ctx: ast.Load, Line: line})

	case ir.BuildTuple:
		elts, err := b.popN(insn)
		if err != nil {
			return nil, false, err
		}
		b.operand.push(&ast.Tuple{Elts: elts, Ctx: ast.Load, Line: line})

	case ir.BuildList:
		elts, err := b.popN(insn)
		if err != nil {
			return nil, false, err
		}
		b.operand.push(&ast.List{Elts: elts, Ctx: ast.Load, Line: line})

	case ir.ImportName:
		return b.importName(insn)

	case ir.ImportFrom:
		name := trimQuotes(insn.Operands)
		b.operand.push(&ast.Name{ID: name, Ctx: ast.Load, Line: line})

	case ir.StoreName:
		return b.storeName(strings.TrimSpace(insn.Operands), line)

	case ir.StoreFast:
		value := b.pop(insn.OpText)
		target := &ast.Name{ID: b.resolveLocal(insn.Operands), Ctx: ast.Store, Line: line}
		return &ast.Assign{Targets: []ast.Expr{target}, Value: value, Line: line}, false, nil

	case ir.StoreAttr:
		obj := b.pop(insn.OpText)
		value := b.pop(insn.OpText)
		target := &ast.Attribute{Value: obj, Attr: strings.TrimSpace(insn.Operands), Ctx: ast.Store, Line: line}
		return &ast.Assign{Targets: []ast.Expr{target}, Value: value, Line: line}, false, nil

	case ir.MakeFunction:
		fn, err := b.makeFunction(strings.TrimSpace(insn.Operands), line)
		if err != nil {
			return nil, false, err
		}
		b.operand.push(fn)

	case ir.LoadBuildClass:
		b.aux.push(buildClassMarker{})

	case ir.CallFunction, ir.CallMethod:
		return b.callFunction(insn, instrs, i)

	case ir.ReturnValue:
		value := b.pop(insn.OpText)
		return &ast.Return{Value: value, Line: line}, false, nil

	case ir.PopTop:
		v := b.pop(insn.OpText)
		if stmt, ok := importCompletion(v); ok {
			return stmt, false, nil
		}

	case ir.DupTop:
		top, ok := b.operand.peek()
		if !ok {
			b.fail(&StackUnderflowError{CodeBlock: b.cb.Name, Opcode: insn.OpText})
			break
		}
		b.operand.push(top)

	case ir.RotTwo:
		if err := b.rotTwo(); err != nil {
			return nil, false, err
		}

	case ir.RotThree:
		if err := b.rotThree(); err != nil {
			return nil, false, err
		}

	case ir.BinaryOp:
		expr, err := b.binaryOp(insn)
		if err != nil {
			return nil, false, err
		}
		b.operand.push(expr)

	case ir.GetIterStack:
		// spec.md §4.3: "marks the top expression as an iterable" — the AST
		// has no wrapper for this; the expression is consumed as-is by the
		// following FOR_ITER.

	case ir.Nop:
		// padding, never statement- or expression-producing.

	default:
		b.sess.warnf(b.cb, "unsupported opcode %s %s", insn.OpText, insn.Operands)
		b.operand.push(&ast.Unknown{Opcode: insn.OpText, Operands: insn.Operands, Line: line})
	}

	return nil, false, b.err
}

// importCompletion reports whether v is a buried Import/ImportFrom node
// reaching the end of its life (popped by the plain-import STORE_NAME
// completion or by the trailing POP_TOP of a from-import group, spec.md
// §4.3's STORE_NAME case 1) — in which case it becomes a statement instead
// of being discarded.
func importCompletion(v ast.Expr) (ast.Stmt, bool) {
	switch n := v.(type) {
	case *ast.Import:
		return n, true
	case *ast.ImportFrom:
		return n, true
	default:
		return nil, false
	}
}

func (b *blockLifter) popN(insn ir.Instruction) ([]ast.Expr, error) {
	n, err := strconv.Atoi(strings.TrimSpace(insn.Operands))
	if err != nil {
		return nil, &MalformedOperandError{Opcode: insn.OpText, Operand: insn.Operands, Reason: "expected integer count"}
	}
	elts := make([]ast.Expr, n)
	for i := n - 1; i >= 0; i-- {
		elts[i] = b.pop(insn.OpText)
	}
	if b.err != nil {
		return nil, b.err
	}
	return elts, nil
}

func (b *blockLifter) resolveLocal(operand string) string {
	n, err := strconv.Atoi(strings.TrimSpace(operand))
	if err != nil {
		return strings.TrimSpace(operand)
	}
	if n < len(b.cb.Args) {
		return b.cb.Args[n]
	}
	return "local_" + strconv.Itoa(n-len(b.cb.Args))
}

func (b *blockLifter) rotTwo() error {
	if b.operand.len() < 2 {
		err := &StackUnderflowError{CodeBlock: b.cb.Name, Opcode: "ROT_TWO"}
		b.fail(err)
		return err
	}
	n := len(b.operand.vals)
	b.operand.vals[n-1], b.operand.vals[n-2] = b.operand.vals[n-2], b.operand.vals[n-1]
	return nil
}

// rotThree implements "bottom becomes top, others shift down" (spec.md §9):
// of the top three values (bottom a, middle b, top c), the new arrangement
// bottom-to-top is (b, c, a).
func (b *blockLifter) rotThree() error {
	if b.operand.len() < 3 {
		err := &StackUnderflowError{CodeBlock: b.cb.Name, Opcode: "ROT_THREE"}
		b.fail(err)
		return err
	}
	n := len(b.operand.vals)
	a, bb, c := b.operand.vals[n-3], b.operand.vals[n-2], b.operand.vals[n-1]
	b.operand.vals[n-3], b.operand.vals[n-2], b.operand.vals[n-1] = bb, c, a
	return nil
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
