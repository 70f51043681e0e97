// Package unparser renders a lifted AST (lang/ast) back to Python-like
// source text (spec.md §4.4): precedence-aware expressions, 4-space
// indentation, and a blank line between top-level statements. It is
// intentionally the simplest component of the pipeline: everything upstream
// exists to hand it a tree that already carries the decisions (aug-assign
// fidelity, unsupported-opcode placeholders) that shape the rendered text.
package unparser

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mna/udecomp/lang/ast"
)

const indentUnit = "    "

// Unparser writes source text for a lifted module to Output. It accumulates
// the first write error and every subsequent write becomes a no-op.
type Unparser struct {
	Output io.Writer

	err error
}

// Unparse renders mod to u.Output, returning the first write error
// encountered, if any.
func (u *Unparser) Unparse(mod *ast.Module) error {
	u.err = nil
	u.stmts(mod.Body, 0, true)
	return u.err
}

// Unparse is a convenience wrapper around Unparser for callers that just
// want the rendered text.
func Unparse(mod *ast.Module) (string, error) {
	var buf bytes.Buffer
	u := &Unparser{Output: &buf}
	if err := u.Unparse(mod); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (u *Unparser) writef(format string, args ...interface{}) {
	if u.err != nil {
		return
	}
	_, u.err = fmt.Fprintf(u.Output, format, args...)
}

// stmts renders a statement block. top reports whether this is the module's
// top-level body, which gets a blank line between statements (spec.md §4.4);
// nested bodies are rendered without the extra spacing.
func (u *Unparser) stmts(list []ast.Stmt, depth int, top bool) {
	if top {
		list = trimTrailingBareReturn(list)
	}
	for i, s := range list {
		if top && i > 0 {
			u.writef("\n")
		}
		u.stmt(s, depth)
	}
}

// trimTrailingBareReturn drops the module's implicit trailing
// "LOAD_CONST_NONE; RETURN_VALUE", which the Lifter renders as a bare
// Return node at <module> scope (spec.md §4.3's RETURN_VALUE case applies
// uniformly regardless of scope). A return statement outside a function
// body is not valid syntax in the target language (spec.md §1: "emits a
// syntactically valid source file"), and the original decompiler never
// emits one either. Only applies at the top level: a function body's own
// trailing return is real and must be kept.
func trimTrailingBareReturn(list []ast.Stmt) []ast.Stmt {
	if len(list) == 0 {
		return list
	}
	ret, ok := list[len(list)-1].(*ast.Return)
	if !ok {
		return list
	}
	if c, ok := ret.Value.(*ast.Constant); !ok || c.Value != nil {
		return list
	}
	return list[:len(list)-1]
}

func indent(depth int) string { return strings.Repeat(indentUnit, depth) }

func (u *Unparser) stmt(s ast.Stmt, depth int) {
	pad := indent(depth)
	switch n := s.(type) {
	case *ast.Import:
		names := make([]string, len(n.Names))
		for i, a := range n.Names {
			names[i] = aliasText(a)
		}
		u.writef("%simport %s\n", pad, strings.Join(names, ", "))

	case *ast.ImportFrom:
		names := make([]string, len(n.Names))
		for i, a := range n.Names {
			names[i] = aliasText(a)
		}
		dots := strings.Repeat(".", n.Level)
		u.writef("%sfrom %s%s import %s\n", pad, dots, n.Module, strings.Join(names, ", "))

	case *ast.Assign:
		if stmt, ok := augAssignText(n); ok {
			u.writef("%s%s\n", pad, stmt)
			return
		}
		targets := make([]string, len(n.Targets))
		for i, t := range n.Targets {
			targets[i] = exprText(t, 0)
		}
		u.writef("%s%s = %s\n", pad, strings.Join(targets, " = "), exprText(n.Value, 0))

	case *ast.Return:
		if c, ok := n.Value.(*ast.Constant); ok && c.Value == nil {
			u.writef("%sreturn\n", pad)
			return
		}
		u.writef("%sreturn %s\n", pad, exprText(n.Value, 0))

	case *ast.ExprStmt:
		u.writef("%s%s\n", pad, exprText(n.Value, 0))

	case *ast.FunctionDef:
		u.writef("%sdef %s(%s):\n", pad, n.Name, strings.Join(n.Args, ", "))
		if len(n.Body) == 0 {
			u.writef("%spass\n", indent(depth+1))
			return
		}
		u.stmts(n.Body, depth+1, false)

	case *ast.ClassDef:
		bases := make([]string, len(n.Bases))
		for i, b := range n.Bases {
			bases[i] = exprText(b, 0)
		}
		for _, kw := range n.Keywords {
			bases = append(bases, kw.Arg+"="+exprText(kw.Value, 0))
		}
		if len(bases) > 0 {
			u.writef("%sclass %s(%s):\n", pad, n.Name, strings.Join(bases, ", "))
		} else {
			u.writef("%sclass %s:\n", pad, n.Name)
		}
		if len(n.Body) == 0 {
			u.writef("%spass\n", indent(depth+1))
			return
		}
		u.stmts(n.Body, depth+1, false)

	case *ast.If:
		u.writef("%sif %s:\n", pad, exprText(n.Test, 0))
		u.stmts(n.Body, depth+1, false)
		if len(n.Orelse) > 0 {
			u.writef("%selse:\n", pad)
			u.stmts(n.Orelse, depth+1, false)
		}

	case *ast.For:
		u.writef("%sfor %s in %s:\n", pad, exprText(n.Target, 0), exprText(n.Iter, 0))
		u.stmts(n.Body, depth+1, false)

	default:
		u.writef("%s# unparser: unhandled statement %T\n", pad, s)
	}
}

func aliasText(a *ast.Alias) string {
	if a.AsName != "" && a.AsName != a.Name {
		return a.Name + " as " + a.AsName
	}
	return a.Name
}

// augAssignText recognizes x = x <op> y, where the BinOp was lifted from an
// augmented dunder (spec.md §9 open question), and renders it as "x += y"
// instead of "x = x + y".
func augAssignText(n *ast.Assign) (string, bool) {
	if len(n.Targets) != 1 {
		return "", false
	}
	bin, ok := n.Value.(*ast.BinOp)
	if !ok || !bin.IsAug {
		return "", false
	}
	target, ok := n.Targets[0].(*ast.Name)
	if !ok {
		return "", false
	}
	left, ok := bin.Left.(*ast.Name)
	if !ok || left.ID != target.ID {
		return "", false
	}
	return fmt.Sprintf("%s %s= %s", target.ID, bin.Op, exprText(bin.Right, 0)), true
}

// precedence orders binary/comparison operators for minimal parenthesization;
// higher binds tighter.
func precedence(op string) int {
	switch op {
	case "*", "/", "//", "%":
		return 2
	case "+", "-":
		return 1
	default: // comparisons
		return 0
	}
}

func exprText(e ast.Expr, parentPrec int) string {
	switch n := e.(type) {
	case *ast.Constant:
		return constText(n.Value)

	case *ast.Name:
		return n.ID

	case *ast.Tuple:
		elts := make([]string, len(n.Elts))
		for i, el := range n.Elts {
			elts[i] = exprText(el, 0)
		}
		if len(elts) == 1 {
			return "(" + elts[0] + ",)"
		}
		return "(" + strings.Join(elts, ", ") + ")"

	case *ast.List:
		elts := make([]string, len(n.Elts))
		for i, el := range n.Elts {
			elts[i] = exprText(el, 0)
		}
		return "[" + strings.Join(elts, ", ") + "]"

	case *ast.Attribute:
		return exprText(n.Value, maxPrec) + "." + n.Attr

	case *ast.Subscript:
		return exprText(n.Value, maxPrec) + "[" + exprText(n.Index, 0) + "]"

	case *ast.Call:
		args := make([]string, 0, len(n.Args)+len(n.Keywords))
		for _, a := range n.Args {
			args = append(args, exprText(a, 0))
		}
		for _, kw := range n.Keywords {
			args = append(args, kw.Arg+"="+exprText(kw.Value, 0))
		}
		return exprText(n.Func, maxPrec) + "(" + strings.Join(args, ", ") + ")"

	case *ast.BinOp:
		prec := precedence(n.Op)
		text := exprText(n.Left, prec) + " " + n.Op + " " + exprText(n.Right, prec+1)
		if prec < parentPrec {
			return "(" + text + ")"
		}
		return text

	case *ast.Compare:
		var b strings.Builder
		b.WriteString(exprText(n.Left, precedence(n.Ops[0])))
		for i, op := range n.Ops {
			b.WriteString(" ")
			b.WriteString(op)
			b.WriteString(" ")
			b.WriteString(exprText(n.Comparators[i], precedence(op)+1))
		}
		text := b.String()
		if precedence(n.Ops[0]) < parentPrec {
			return "(" + text + ")"
		}
		return text

	case *ast.Unknown:
		return fmt.Sprintf("None  # unparser: unsupported opcode %s %s", n.Opcode, n.Operands)

	default:
		return fmt.Sprintf("None  # unparser: unhandled expression %T", e)
	}
}

// maxPrec forces parenthesization of any compound expression used as the
// receiver of an attribute/subscript/call, where Python's grammar requires
// a "primary" on the left.
const maxPrec = 1 << 30

func constText(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case bool:
		if val {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		return strconv.Quote(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
