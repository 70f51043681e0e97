package maincmd

import "fmt"

// VMInvocationError reports a failure to obtain a disassembly from the VM
// for a single module (spec.md §7): the VM binary exited non-zero, timed
// out, or produced no output. This is a module-level failure, distinct
// from the VM binary being entirely missing (a setup error, see vm.go's
// preflight check).
type VMInvocationError struct {
	Module string
	Reason string
}

func (e *VMInvocationError) Error() string {
	return fmt.Sprintf("vm invocation failed for %s: %s", e.Module, e.Reason)
}
