package maincmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/mna/mainer"
	"github.com/mna/udecomp/lang/disasm"
	"github.com/mna/udecomp/lang/lifter"
	"github.com/mna/udecomp/lang/unparser"
)

// Decompile implements the decompile command: for every *.mpy file in the
// input directory, obtain its disassembly from the VM, write it out, lift
// it to an AST, unparse that AST back to source, and write that out too
// (spec.md §6).
func (c *Cmd) Decompile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	vm := newVMInvoker()
	return printError(stdio, DecompileDir(ctx, stdio, vm, args[0], args[1], c.BuildVersion))
}

// DecompileDir drives the worker pool that processes every *.mpy file under
// inputDir. A missing VM binary or an unreadable inputDir is a setup error
// and aborts the whole run; a failure specific to one module is isolated,
// reported, and does not stop the others (spec.md §5, §7).
func DecompileDir(ctx context.Context, stdio mainer.Stdio, vm VMInvoker, inputDir, outputDir, version string) error {
	if err := vm.Preflight(); err != nil {
		return err
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputDir, err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", outputDir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".mpy") {
			continue
		}
		names = append(names, e.Name())
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(names) {
		workers = len(names)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed []string

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				if err := decompileModule(ctx, stdio, &mu, vm, inputDir, outputDir, name, version); err != nil {
					mu.Lock()
					failed = append(failed, fmt.Sprintf("%s: %s", name, err))
					mu.Unlock()
				}
			}
		}()
	}

	for _, name := range names {
		jobs <- name
	}
	close(jobs)
	wg.Wait()

	for _, f := range failed {
		fmt.Fprintln(stdio.Stderr, f)
	}
	// module-level failures are reported but never abort the run.
	return nil
}

// decompileModule runs the full pipeline for a single *.mpy file. Any
// failure, including a panic from the lifter or unparser, is caught and
// turned into a best-effort output file carrying an ERROR sentinel.
func decompileModule(ctx context.Context, stdio mainer.Stdio, mu *sync.Mutex, vm VMInvoker, inputDir, outputDir, name, version string) (err error) {
	stem := strings.TrimSuffix(name, ".mpy")
	asmPath := filepath.Join(outputDir, stem+".s")
	srcPath := filepath.Join(outputDir, stem+".py")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			writeErrorFile(srcPath, version, err, debug.Stack())
		}
	}()

	modulePath := filepath.Join(inputDir, name)
	data, derr := vm.Disassemble(ctx, modulePath)
	if derr != nil {
		writeErrorFile(srcPath, version, derr, nil)
		return derr
	}
	if werr := writeBanner(asmPath, version, "Disassembled", data); werr != nil {
		return werr
	}

	prog, perr := disasm.Parse(data)
	if perr != nil {
		writeErrorFile(srcPath, version, perr, nil)
		return perr
	}

	mod, warnings, lerr := lifter.Lift(prog)
	mu.Lock()
	for _, w := range warnings {
		fmt.Fprintf(stdio.Stderr, "%s: %s\n", stem, w)
	}
	mu.Unlock()
	if lerr != nil {
		writeErrorFile(srcPath, version, lerr, nil)
		return lerr
	}

	out, uerr := unparser.Unparse(mod)
	if uerr != nil {
		writeErrorFile(srcPath, version, uerr, nil)
		return uerr
	}

	return writeBanner(srcPath, version, "Decompiled", []byte(out))
}

func writeBanner(path, version, verb string, body []byte) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "####################################")
	fmt.Fprintf(&buf, "## %s with %s (%s) ##\n", verb, binName, version)
	fmt.Fprintf(&buf, "## At: %s ##\n", time.Now().Format(time.RFC3339))
	fmt.Fprintln(&buf, "####################################")
	fmt.Fprintln(&buf)
	buf.Write(body)
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func writeErrorFile(path, version string, cause error, stack []byte) error {
	var body bytes.Buffer
	fmt.Fprintln(&body, "ERROR")
	fmt.Fprintf(&body, "# %s\n", cause)
	for _, line := range bytes.Split(stack, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		fmt.Fprintf(&body, "# %s\n", line)
	}
	return writeBanner(path, version, "Decompiled", body.Bytes())
}
