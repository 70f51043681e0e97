package lifter

import (
	"github.com/mna/udecomp/lang/ast"
)

// exprStack is the Lifter's operand stack (spec.md §3): a LIFO of AST
// expression nodes, reset per code block.
type exprStack struct {
	vals []ast.Expr
}

func (s *exprStack) push(e ast.Expr) { s.vals = append(s.vals, e) }

func (s *exprStack) pop() (ast.Expr, bool) {
	if len(s.vals) == 0 {
		return nil, false
	}
	e := s.vals[len(s.vals)-1]
	s.vals = s.vals[:len(s.vals)-1]
	return e, true
}

func (s *exprStack) peek() (ast.Expr, bool) {
	if len(s.vals) == 0 {
		return nil, false
	}
	return s.vals[len(s.vals)-1], true
}

func (s *exprStack) len() int { return len(s.vals) }

// auxMarker is metadata the VM encodes implicitly in instruction ordering
// rather than on the operand stack (spec.md §3): pending import aliases, the
// class-build sentinel, and loop exit offsets.
type auxMarker interface{ aux() }

// importAliasMarker records one pending binding name from an IMPORT_NAME /
// IMPORT_FROM group awaiting its terminating STORE_NAME. alias points
// directly at the *ast.Alias entry living inside the buried Import or
// ImportFrom node, so a rename can be applied without having to relocate
// that node on the operand stack.
type importAliasMarker struct {
	// original is the name the import bound before any "as" rename; it is
	// compared against the STORE_NAME target to detect a rename.
	original string
	alias    *ast.Alias
}

func (importAliasMarker) aux() {}

// buildClassMarker records that LOAD_BUILD_CLASS has run and the following
// CALL_FUNCTION materializes a class rather than an ordinary call.
type buildClassMarker struct{}

func (buildClassMarker) aux() {}

// auxStack is the Lifter's auxiliary marker stack (spec.md §3).
type auxStack struct {
	vals []auxMarker
}

func (s *auxStack) push(m auxMarker) { s.vals = append(s.vals, m) }

func (s *auxStack) pop() (auxMarker, bool) {
	if len(s.vals) == 0 {
		return nil, false
	}
	m := s.vals[len(s.vals)-1]
	s.vals = s.vals[:len(s.vals)-1]
	return m, true
}

func (s *auxStack) peek() (auxMarker, bool) {
	if len(s.vals) == 0 {
		return nil, false
	}
	return s.vals[len(s.vals)-1], true
}
