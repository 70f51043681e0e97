package maincmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"
)

const (
	defaultVMPath    = "micropython"
	defaultVMTimeout = 30 * time.Second
)

// VMInvoker runs the VM against a compiled module and returns its verbose
// disassembly text (spec.md §6). Invoking the real VM binary is an external
// collaborator, out of scope for this module's own test suite; tests use a
// fake implementation instead.
type VMInvoker interface {
	Disassemble(ctx context.Context, modulePath string) ([]byte, error)
	// Preflight reports whether the VM binary can be found at all. It is
	// checked once before any module is processed: a missing VM binary is
	// an unrecoverable setup error (spec.md §6), not a per-module one.
	Preflight() error
}

// command invokes the VM as a subprocess, the same way the original
// decompiler shells out to ./micropython/micropython -v -v -v -v -m <file>.
type command struct {
	path    string
	timeout time.Duration
}

// newVMInvoker builds a command from the UDECOMP_VM_PATH and
// UDECOMP_VM_TIMEOUT environment variables, falling back to the defaults
// when unset or unparsable.
func newVMInvoker() *command {
	path := defaultVMPath
	if v := os.Getenv("UDECOMP_VM_PATH"); v != "" {
		path = v
	}

	timeout := defaultVMTimeout
	if v := os.Getenv("UDECOMP_VM_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}

	return &command{path: path, timeout: timeout}
}

func (c *command) Preflight() error {
	if _, err := exec.LookPath(c.path); err != nil {
		return fmt.Errorf("vm binary %q not found: %w", c.path, err)
	}
	return nil
}

func (c *command) Disassemble(ctx context.Context, modulePath string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.path, "-v", "-v", "-v", "-v", "-m", modulePath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		reason := err.Error()
		if stderr.Len() > 0 {
			reason = stderr.String()
		}
		return nil, &VMInvocationError{Module: modulePath, Reason: reason}
	}
	if stdout.Len() == 0 {
		return nil, &VMInvocationError{Module: modulePath, Reason: "no output produced"}
	}
	return stdout.Bytes(), nil
}
