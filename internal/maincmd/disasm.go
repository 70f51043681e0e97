package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/udecomp/lang/disasm"
)

// Disasm implements the disasm command: parse one or more already-captured
// disassembly text files and print them back out, annotated, without
// invoking the VM.
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return printError(stdio, DisasmFiles(stdio, args...))
}

// DisasmFiles parses each file and dumps its program to stdio.Stdout. It
// keeps going after a per-file error, reporting every failure, and returns
// the first one encountered.
func DisasmFiles(stdio mainer.Stdio, files ...string) error {
	var firstErr error
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", file, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		prog, err := disasm.Parse(data)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", file, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if err := prog.Dump(stdio.Stdout); err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", file, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
