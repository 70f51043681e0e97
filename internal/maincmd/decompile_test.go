package maincmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/require"
)

// fakeVM is a stand-in VMInvoker: the real VM binary is an external
// collaborator that this test suite never invokes.
type fakeVM struct {
	out map[string][]byte
	err map[string]error
}

func (f *fakeVM) Preflight() error { return nil }

func (f *fakeVM) Disassemble(ctx context.Context, modulePath string) ([]byte, error) {
	name := filepath.Base(modulePath)
	if err, ok := f.err[name]; ok {
		return nil, err
	}
	return f.out[name], nil
}

const okDisasm = `File mod.py, '<module>' flags 0 foo <module>,
  bc=0 line=1
0 LOAD_CONST_SMALL_INT 42
  bc=2 line=1
2 STORE_NAME x
  bc=4 line=2
4 LOAD_CONST_NONE
  bc=6 line=2
6 RETURN_VALUE
mem: info
`

func TestDecompileDirWritesOutputForEachModule(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "a.mpy"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "b.mpy"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "notes.txt"), nil, 0o644))

	vm := &fakeVM{out: map[string][]byte{
		"a.mpy": []byte(okDisasm),
		"b.mpy": []byte(okDisasm),
	}}

	var stderr bytes.Buffer
	stdio := mainer.Stdio{Stderr: &stderr}

	err := DecompileDir(context.Background(), stdio, vm, inDir, outDir, "v0")
	require.NoError(t, err)

	for _, stem := range []string{"a", "b"} {
		asm, err := os.ReadFile(filepath.Join(outDir, stem+".s"))
		require.NoError(t, err)
		require.Contains(t, string(asm), "## Disassembled with udecomp")

		src, err := os.ReadFile(filepath.Join(outDir, stem+".py"))
		require.NoError(t, err)
		require.Contains(t, string(src), "## Decompiled with udecomp")
		require.Contains(t, string(src), "x = 42")
	}

	_, err = os.Stat(filepath.Join(outDir, "notes.py"))
	require.True(t, os.IsNotExist(err))
}

func TestDecompileDirIsolatesPerModuleFailure(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "good.mpy"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "bad.mpy"), nil, 0o644))

	vm := &fakeVM{
		out: map[string][]byte{"good.mpy": []byte(okDisasm)},
		err: map[string]error{"bad.mpy": &VMInvocationError{Module: "bad.mpy", Reason: "boom"}},
	}

	var stderr bytes.Buffer
	stdio := mainer.Stdio{Stderr: &stderr}

	err := DecompileDir(context.Background(), stdio, vm, inDir, outDir, "v0")
	require.NoError(t, err, "module-level failures never abort the run")

	goodSrc, err := os.ReadFile(filepath.Join(outDir, "good.py"))
	require.NoError(t, err)
	require.Contains(t, string(goodSrc), "x = 42")

	badSrc, err := os.ReadFile(filepath.Join(outDir, "bad.py"))
	require.NoError(t, err)
	require.Contains(t, string(badSrc), "ERROR")
	require.Contains(t, string(badSrc), "boom")

	require.Contains(t, stderr.String(), "bad.mpy")
}

type missingVM struct{}

func (missingVM) Preflight() error { return errors.New("vm binary not found") }
func (missingVM) Disassemble(ctx context.Context, modulePath string) ([]byte, error) {
	return nil, nil
}

func TestDecompileDirAbortsOnMissingVMBinary(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	var stderr bytes.Buffer
	stdio := mainer.Stdio{Stderr: &stderr}

	err := DecompileDir(context.Background(), stdio, missingVM{}, inDir, outDir, "v0")
	require.Error(t, err)
}

func TestDecompileDirRejectsUnreadableInputDir(t *testing.T) {
	outDir := t.TempDir()
	var stderr bytes.Buffer
	stdio := mainer.Stdio{Stderr: &stderr}

	err := DecompileDir(context.Background(), stdio, &fakeVM{}, filepath.Join(outDir, "does-not-exist"), outDir, "v0")
	require.Error(t, err)
}
