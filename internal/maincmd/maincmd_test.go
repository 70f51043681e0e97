package maincmd

import (
	"bytes"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/require"
)

func TestCmdVersion(t *testing.T) {
	c := &Cmd{BuildVersion: "v1.2.3", BuildDate: "2026-07-30"}
	var stdout, stderr bytes.Buffer
	code := c.Main([]string{"-v"}, mainer.Stdio{Stdout: &stdout, Stderr: &stderr})
	require.Equal(t, mainer.Success, code)
	require.Contains(t, stdout.String(), "v1.2.3")
}

func TestCmdHelp(t *testing.T) {
	c := &Cmd{}
	var stdout, stderr bytes.Buffer
	code := c.Main([]string{"--help"}, mainer.Stdio{Stdout: &stdout, Stderr: &stderr})
	require.Equal(t, mainer.Success, code)
	require.Contains(t, stdout.String(), "decompile <input_dir> <output_dir>")
	require.Contains(t, stdout.String(), "UDECOMP_VM_PATH")
}

func TestCmdValidateRejectsUnknownCommand(t *testing.T) {
	c := &Cmd{}
	c.SetArgs([]string{"bogus"})
	err := c.Validate()
	require.Error(t, err)
}

func TestCmdValidateRejectsWrongDecompileArgCount(t *testing.T) {
	c := &Cmd{}
	c.SetArgs([]string{"decompile", "only-one-dir"})
	err := c.Validate()
	require.Error(t, err)
}

func TestCmdValidateRejectsEmptyDisasmArgs(t *testing.T) {
	c := &Cmd{}
	c.SetArgs([]string{"disasm"})
	err := c.Validate()
	require.Error(t, err)
}

func TestCmdValidateAcceptsWellFormedDecompile(t *testing.T) {
	c := &Cmd{}
	c.SetArgs([]string{"decompile", "in", "out"})
	require.NoError(t, c.Validate())
}

func TestBuildCmdsFindsDecompileAndDisasm(t *testing.T) {
	c := &Cmd{}
	cmds := buildCmds(c)
	require.Contains(t, cmds, "decompile")
	require.Contains(t, cmds, "disasm")
}
