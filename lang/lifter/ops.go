package lifter

import (
	"strconv"
	"strings"

	"github.com/mna/udecomp/lang/ast"
	"github.com/mna/udecomp/lang/ir"
)

// importName implements IMPORT_NAME (spec.md §4.3). The module's real stack
// discipline keeps the IMPORT_NAME result buried under every subsequent
// IMPORT_FROM/STORE_NAME pair, surfacing only on the matching STORE_NAME (a
// plain import) or the group's trailing POP_TOP (a from-import): see
// importCompletion.
func (b *blockLifter) importName(insn ir.Instruction) (ast.Stmt, bool, error) {
	fromlist := b.pop(insn.OpText)
	_ = b.pop(insn.OpText) // level, unused: spec.md's Import/ImportFrom carry no absolute-vs-relative level for plain imports
	module := trimQuotes(insn.Operands)
	line := lineOf(insn)

	if tuple, ok := fromlist.(*ast.Tuple); ok {
		names := make([]*ast.Alias, len(tuple.Elts))
		for i, elt := range tuple.Elts {
			name, _ := constString(elt)
			names[i] = &ast.Alias{Name: name}
		}
		b.operand.push(&ast.ImportFrom{Module: module, Names: names, Level: 0, Line: line})
		// push markers in reverse so the first fromlist name is on top,
		// matching the order IMPORT_FROM/STORE_NAME pairs process them.
		for i := len(names) - 1; i >= 0; i-- {
			b.aux.push(importAliasMarker{original: names[i].Name, alias: names[i]})
		}
		return nil, false, nil
	}

	alias := &ast.Alias{Name: module}
	b.operand.push(&ast.Import{Names: []*ast.Alias{alias}, Line: line})
	b.aux.push(importAliasMarker{original: module, alias: alias})
	return nil, false, nil
}

func constString(e ast.Expr) (string, bool) {
	c, ok := e.(*ast.Constant)
	if !ok {
		return "", false
	}
	s, ok := c.Value.(string)
	return s, ok
}

// storeName implements STORE_NAME (spec.md §4.3), trying the three cases in
// priority order.
func (b *blockLifter) storeName(name string, line int) (ast.Stmt, bool, error) {
	if m, ok := b.aux.peek(); ok {
		if marker, ok := m.(importAliasMarker); ok {
			b.aux.pop()
			if marker.original != name {
				marker.alias.AsName = name
			}
			v := b.pop("STORE_NAME")
			if stmt, ok := importCompletion(v); ok {
				return stmt, false, nil
			}
			return nil, false, nil
		}
	}

	if top, ok := b.operand.peek(); ok {
		switch n := top.(type) {
		case *ast.FunctionDef:
			if n.Name == name {
				b.operand.pop()
				return n, false, nil
			}
		case *ast.ClassDef:
			if n.Name == name {
				b.operand.pop()
				return n, false, nil
			}
		}
	}

	value := b.pop("STORE_NAME")
	target := &ast.Name{ID: name, Ctx: ast.Store, Line: line}
	return &ast.Assign{Targets: []ast.Expr{target}, Value: value, Line: line}, false, nil
}

// makeFunction implements MAKE_FUNCTION: recursively lift the referenced
// code block with fresh stacks (spec.md §3), memoizing by descriptor so a
// code block captured by more than one MAKE_FUNCTION is lifted once.
func (b *blockLifter) makeFunction(descriptor string, line int) (*ast.FunctionDef, error) {
	if fn, ok := b.sess.memo.Get(descriptor); ok {
		return fn, nil
	}
	cb, ok := b.sess.prog.Lookup(descriptor)
	if !ok {
		return nil, &DescriptorNotFoundError{Descriptor: descriptor}
	}
	body, err := liftCodeBlock(b.sess, cb)
	if err != nil {
		return nil, err
	}
	fn := &ast.FunctionDef{Name: cb.Name, Args: cb.Args, Body: body, Line: line}
	b.sess.memo.Put(descriptor, fn)
	return fn, nil
}

// callFunction implements CALL_FUNCTION and CALL_METHOD, including the
// class-materialization special case and the POP_TOP statement-lookahead
// (spec.md §4.3).
func (b *blockLifter) callFunction(insn ir.Instruction, instrs []ir.Instruction, idx int) (ast.Stmt, bool, error) {
	line := lineOf(insn)

	if top, ok := b.aux.peek(); ok {
		if _, isClass := top.(buildClassMarker); isClass {
			return b.makeClass(insn, line)
		}
	}

	p, q, err := parseCallCounts(insn.Operands)
	if err != nil {
		return nil, false, err
	}

	kwargs := make([]*ast.Keyword, q)
	for i := q - 1; i >= 0; i-- {
		value := b.pop(insn.OpText)
		name := b.pop(insn.OpText)
		argName, _ := constString(name)
		kwargs[i] = &ast.Keyword{Arg: argName, Value: value}
	}

	args := make([]ast.Expr, p)
	for i := p - 1; i >= 0; i-- {
		args[i] = b.pop(insn.OpText)
	}

	callee := b.pop(insn.OpText)
	call := &ast.Call{Func: callee, Args: args, Keywords: kwargs, Line: line}
	b.operand.push(call)

	if idx+1 < len(instrs) && instrs[idx+1].Op == ir.PopTop {
		return &ast.ExprStmt{Value: call, Line: line}, false, nil
	}
	return nil, false, nil
}

// makeClass implements the LOAD_BUILD_CLASS special case of CALL_FUNCTION
// (spec.md §4.3): the two arguments are always the class body function and
// the class name, regardless of the declared n=/nkw= counts (the VM always
// emits n=2 nkw=0 for this pattern).
func (b *blockLifter) makeClass(insn ir.Instruction, line int) (ast.Stmt, bool, error) {
	b.aux.pop() // buildClassMarker

	nameConst := b.pop(insn.OpText)
	bodyFunc := b.pop(insn.OpText)

	name, _ := constString(nameConst)
	fn, ok := bodyFunc.(*ast.FunctionDef)
	if !ok {
		fn = &ast.FunctionDef{}
	}

	cls := &ast.ClassDef{Name: name, Body: fn.Body, Line: line}
	b.operand.push(cls)
	return nil, false, nil
}

// parseCallCounts parses a "n=<p> nkw=<q>" operand string.
func parseCallCounts(operands string) (p, q int, err error) {
	for _, field := range strings.Fields(operands) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		n, convErr := strconv.Atoi(value)
		if convErr != nil {
			return 0, 0, &MalformedOperandError{Opcode: "CALL_FUNCTION", Operand: operands, Reason: "expected integer " + key}
		}
		switch key {
		case "n":
			p = n
		case "nkw":
			q = n
		}
	}
	return p, q, nil
}

var binOpDunders = map[string]string{
	"__add__": "+", "__iadd__": "+",
	"__sub__": "-", "__isub__": "-",
	"__mul__": "*", "__imul__": "*",
	"__truediv__": "/", "__itruediv__": "/",
	"__floordiv__": "//", "__ifloordiv__": "//",
	"__mod__": "%", "__imod__": "%",
}

var compareDunders = map[string]string{
	"__gt__": ">", "__lt__": "<", "__eq__": "==",
	"__ge__": ">=", "__le__": "<=", "__ne__": "!=",
}

func isAugDunder(dunder string) bool {
	return strings.HasPrefix(dunder, "__i") && dunder != "__invert__"
}

// binaryOp implements BINARY_OP (spec.md §4.3 and §9's open question on
// augmented-assignment fidelity): arithmetic dunders produce a BinOp with
// IsAug recording whether the dunder was an "__i*__" augmented form;
// comparison dunders produce a Compare.
func (b *blockLifter) binaryOp(insn ir.Instruction) (ast.Expr, error) {
	fields := strings.Fields(insn.Operands)
	if len(fields) < 2 {
		return nil, &MalformedOperandError{Opcode: insn.OpText, Operand: insn.Operands, Reason: "expected arity and dunder"}
	}
	arity, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, &MalformedOperandError{Opcode: insn.OpText, Operand: insn.Operands, Reason: "expected integer arity"}
	}
	dunder := fields[1]
	line := lineOf(insn)

	if op, ok := compareDunders[dunder]; ok {
		comparators := make([]ast.Expr, arity)
		for i := arity - 1; i >= 0; i-- {
			comparators[i] = b.pop(insn.OpText)
		}
		left := b.pop(insn.OpText)
		ops := make([]string, arity)
		for i := range ops {
			ops[i] = op
		}
		if b.err != nil {
			return nil, b.err
		}
		return &ast.Compare{Left: left, Ops: ops, Comparators: comparators, Line: line}, nil
	}

	op, ok := binOpDunders[dunder]
	if !ok {
		b.sess.warnf(b.cb, "unsupported BINARY_OP dunder %s", dunder)
		b.pop(insn.OpText)
		b.pop(insn.OpText)
		if b.err != nil {
			return nil, b.err
		}
		return &ast.Unknown{Opcode: insn.OpText, Operands: insn.Operands, Line: line}, nil
	}

	right := b.pop(insn.OpText)
	left := b.pop(insn.OpText)
	if b.err != nil {
		return nil, b.err
	}
	return &ast.BinOp{Left: left, Op: op, Right: right, IsAug: isAugDunder(dunder), Line: line}, nil
}
