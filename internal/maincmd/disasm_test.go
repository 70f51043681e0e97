package maincmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/require"
)

func TestDisasmFilesPrintsAnnotatedOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.dis")
	require.NoError(t, os.WriteFile(path, []byte(okDisasm), 0o644))

	var stdout, stderr bytes.Buffer
	err := DisasmFiles(mainer.Stdio{Stdout: &stdout, Stderr: &stderr}, path)
	require.NoError(t, err)
	require.Contains(t, stdout.String(), "## Name:   <module>")
	require.Contains(t, stdout.String(), "RETURN_VALUE")
	require.Empty(t, stderr.String())
}

func TestDisasmFilesReportsPerFileErrorsAndContinues(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.dis")
	require.NoError(t, os.WriteFile(good, []byte(okDisasm), 0o644))
	missing := filepath.Join(dir, "missing.dis")

	var stdout, stderr bytes.Buffer
	err := DisasmFiles(mainer.Stdio{Stdout: &stdout, Stderr: &stderr}, missing, good)
	require.Error(t, err)
	require.Contains(t, stderr.String(), "missing.dis")
	// the good file is still processed after the missing one fails.
	require.Contains(t, stdout.String(), "## Name:   <module>")
}
