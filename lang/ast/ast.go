// Package ast defines the language-neutral tree of statement and expression
// nodes the Lifter reconstructs from bytecode (spec.md §3). It is
// necessarily lossier than a source-parsed AST: there is no source text to
// point back into, only the VM's disassembly, so nodes carry an optional
// source line number (as attributed by the VM) instead of a byte-offset
// span.
package ast

import (
	"fmt"
	"sort"
	"strings"
)

// Node represents any node in the AST.
type Node interface {
	// Every Node implements the fmt.Formatter interface so they can print a
	// description of themselves, primarily for debugging and tests. The
	// only supported verbs are 'v' and 's'. The '#' flag can be used to
	// print count information about children nodes.
	fmt.Formatter

	// Walk enters each node inside itself to implement the Visitor pattern.
	Walk(v Visitor)
}

// Expr represents an expression in the AST.
type Expr interface {
	Node
	expr()
}

// Stmt represents a statement in the AST.
type Stmt interface {
	Node
	stmt()
}

// ExprContext distinguishes use-sites (Load) from assignment targets
// (Store), for Name, Attribute, Subscript, Tuple and List nodes.
type ExprContext int

const (
	Load ExprContext = iota
	Store
)

func (c ExprContext) String() string {
	if c == Store {
		return "store"
	}
	return "load"
}

// Alias is an import binding: "import <Name> as <AsName>", or plain
// "import <Name>" if AsName is empty.
type Alias struct {
	Name   string
	AsName string
}

// Keyword is a name=value pair, used for call keyword arguments.
type Keyword struct {
	Arg   string
	Value Expr
}

// Module is the root node of a decompiled code object: the top-level
// <module> block, or a nested function/class body lifted on its own.
type Module struct {
	Body []Stmt
}

func (n *Module) Format(f fmt.State, verb rune) {
	format(f, verb, n, "module", map[string]int{"stmts": len(n.Body)})
}
func (n *Module) Walk(v Visitor) {
	for _, s := range n.Body {
		Walk(v, s)
	}
}

func format(f fmt.State, verb rune, n Node, label string, counts map[string]int) {
	if verb != 'v' && verb != 's' {
		fmt.Fprintf(f, "%%!%c(%T)", verb, n)
		return
	}

	label = strings.ReplaceAll(label, "\r\n", "⏎")
	label = strings.ReplaceAll(label, "\n", "⏎")
	label = strings.ReplaceAll(label, "\t", "⭾")

	if w, ok := f.Width(); ok {
		minus, plus := f.Flag('-'), f.Flag('+')
		runes := []rune(label)
		if len(runes) >= w {
			runes = runes[:w]
		} else if minus {
			runes = append(runes, []rune(strings.Repeat(" ", w-len(runes)))...)
		} else if !plus {
			runes = append([]rune(strings.Repeat(" ", w-len(runes))), runes...)
		}
		label = string(runes)
	}

	fmt.Fprint(f, label)
	if f.Flag('#') && len(counts) > 0 {
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprint(f, " {")
		for i, k := range keys {
			if i > 0 {
				fmt.Fprint(f, ", ")
			}
			fmt.Fprintf(f, "%s=%d", k, counts[k])
		}
		fmt.Fprint(f, "}")
	}
}
