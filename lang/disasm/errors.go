package disasm

import "fmt"

// ParseError reports a malformed disassembly input: a malformed header line
// (File, arg names, bc=/line= rows), a row outside of any code block, or a
// program without a <module> code block. Unknown opcodes never fail parsing.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}
