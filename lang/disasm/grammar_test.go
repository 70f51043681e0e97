package disasm

import (
	"os"
	"testing"

	"golang.org/x/exp/ebnf"
)

// TestEBNF verifies that the illustrative grammar describing the VM's
// disassembly text format (testdata/disasm.ebnf) is well-formed: every
// referenced production is defined and reachable from Program. The parser
// itself is hand-written, not generated from this grammar; this just keeps
// the documented grammar honest.
func TestEBNF(t *testing.T) {
	const filename = "testdata/disasm.ebnf"
	f, err := os.Open(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	g, err := ebnf.Parse(filename, f)
	if err != nil {
		t.Fatal(err)
	}
	if err := ebnf.Verify(g, "Program"); err != nil {
		t.Fatal(err)
	}
}
