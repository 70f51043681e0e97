package ast

import "fmt"

type (
	// Constant represents a literal constant: nil, a bool, an int64, a
	// float64 or a string.
	Constant struct {
		Value interface{}
		Line  int
	}

	// Name represents an identifier reference, either a use (Load) or an
	// assignment target (Store).
	Name struct {
		ID   string
		Ctx  ExprContext
		Line int
	}

	// Tuple represents a tuple literal or, with Ctx == Store, a tuple
	// unpacking assignment target.
	Tuple struct {
		Elts []Expr
		Ctx  ExprContext
		Line int
	}

	// List represents a list literal.
	List struct {
		Elts []Expr
		Ctx  ExprContext
		Line int
	}

	// Attribute represents a "value.attr" expression, load or store.
	Attribute struct {
		Value Expr
		Attr  string
		Ctx   ExprContext
		Line  int
	}

	// Subscript represents a "value[index]" expression, load or store.
	Subscript struct {
		Value Expr
		Index Expr
		Ctx   ExprContext
		Line  int
	}

	// Call represents a function or method call.
	Call struct {
		Func     Expr
		Args     []Expr
		Keywords []*Keyword
		Line     int
	}

	// BinOp represents a binary arithmetic expression, e.g. x + y. IsAug
	// records whether the VM's BINARY_OP operand named an augmented dunder
	// (e.g. __iadd__ rather than __add__); the unparser uses it to decide
	// between "x += y" and "x = x + y" when Left and the enclosing Assign's
	// sole target are Names with the same ID (spec.md §9 open question).
	BinOp struct {
		Left  Expr
		Op    string // "+", "-", "*", ...
		Right Expr
		IsAug bool
		Line  int
	}

	// Compare represents a chained comparison, e.g. x > y. The VM's
	// BINARY_OP only ever produces a single (op, comparator) pair, but the
	// node supports chains for a faithful general AST.
	Compare struct {
		Left        Expr
		Ops         []string
		Comparators []Expr
		Line        int
	}

	// Unknown is a placeholder expression for an opcode outside the closed
	// set (spec.md §7, UnsupportedOpcode): decompilation continues, and the
	// unparser renders it as a commented-out marker rather than failing the
	// whole module.
	Unknown struct {
		Opcode   string
		Operands string
		Line     int
	}
)

func (n *Constant) Format(f fmt.State, verb rune) {
	format(f, verb, n, fmt.Sprintf("const %#v", n.Value), nil)
}
func (n *Constant) Walk(_ Visitor) {}
func (n *Constant) expr()          {}

func (n *Name) Format(f fmt.State, verb rune) { format(f, verb, n, "name "+n.ID, nil) }
func (n *Name) Walk(_ Visitor)                {}
func (n *Name) expr()                         {}

func (n *Tuple) Format(f fmt.State, verb rune) {
	format(f, verb, n, "tuple", map[string]int{"elts": len(n.Elts)})
}
func (n *Tuple) Walk(v Visitor) {
	for _, e := range n.Elts {
		Walk(v, e)
	}
}
func (n *Tuple) expr() {}

func (n *List) Format(f fmt.State, verb rune) {
	format(f, verb, n, "list", map[string]int{"elts": len(n.Elts)})
}
func (n *List) Walk(v Visitor) {
	for _, e := range n.Elts {
		Walk(v, e)
	}
}
func (n *List) expr() {}

func (n *Attribute) Format(f fmt.State, verb rune) { format(f, verb, n, "expr."+n.Attr, nil) }
func (n *Attribute) Walk(v Visitor)                { Walk(v, n.Value) }
func (n *Attribute) expr()                         {}

func (n *Subscript) Format(f fmt.State, verb rune) { format(f, verb, n, "expr[index]", nil) }
func (n *Subscript) Walk(v Visitor) {
	Walk(v, n.Value)
	Walk(v, n.Index)
}
func (n *Subscript) expr() {}

func (n *Call) Format(f fmt.State, verb rune) {
	format(f, verb, n, "call", map[string]int{"args": len(n.Args), "kwargs": len(n.Keywords)})
}
func (n *Call) Walk(v Visitor) {
	Walk(v, n.Func)
	for _, a := range n.Args {
		Walk(v, a)
	}
	for _, kw := range n.Keywords {
		Walk(v, kw.Value)
	}
}
func (n *Call) expr() {}

func (n *BinOp) Format(f fmt.State, verb rune) { format(f, verb, n, "binop "+n.Op, nil) }
func (n *BinOp) Walk(v Visitor) {
	Walk(v, n.Left)
	Walk(v, n.Right)
}
func (n *BinOp) expr() {}

func (n *Compare) Format(f fmt.State, verb rune) {
	format(f, verb, n, "compare", map[string]int{"ops": len(n.Ops)})
}
func (n *Compare) Walk(v Visitor) {
	Walk(v, n.Left)
	for _, c := range n.Comparators {
		Walk(v, c)
	}
}
func (n *Compare) expr() {}

func (n *Unknown) Format(f fmt.State, verb rune) {
	format(f, verb, n, "!unknown opcode "+n.Opcode+"!", nil)
}
func (n *Unknown) Walk(_ Visitor) {}
func (n *Unknown) expr()          {}
