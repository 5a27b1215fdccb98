package maincmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/require"

	"github.com/quixil-lang/quixil/internal/maincmd"
)

func newStdio(stdin string) (mainer.Stdio, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return mainer.Stdio{
		Stdout: &out,
		Stderr: &errOut,
		Stdin:  strings.NewReader(stdin),
	}, &out, &errOut
}

func TestMainHelp(t *testing.T) {
	var c maincmd.Cmd
	stdio, out, errOut := newStdio("")

	result := c.Main([]string{"--help"}, stdio)
	require.EqualValues(t, 0, result)
	require.Contains(t, out.String(), "usage: quixil")
	require.Empty(t, errOut.String())
}

func TestMainVersion(t *testing.T) {
	c := maincmd.Cmd{BuildVersion: "1.2.3", BuildDate: "2026-01-01"}
	stdio, out, _ := newStdio("")

	result := c.Main([]string{"--version"}, stdio)
	require.EqualValues(t, 0, result)
	require.Equal(t, "quixil 1.2.3 2026-01-01\n", out.String())
}

func TestMainTooManyArguments(t *testing.T) {
	var c maincmd.Cmd
	stdio, _, errOut := newStdio("")

	result := c.Main([]string{"a.qx", "b.qx"}, stdio)
	require.NotEqualValues(t, 0, result)
	require.Contains(t, errOut.String(), "invalid arguments")
}

func TestMainRunsScriptFromStdin(t *testing.T) {
	var c maincmd.Cmd
	stdio, out, errOut := newStdio(`print 1 + 2;`)

	result := c.Main(nil, stdio)
	require.EqualValues(t, 0, result)
	require.Equal(t, "3\n", out.String())
	require.Empty(t, errOut.String())
}

func TestMainRunsScriptFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.qx")
	require.NoError(t, os.WriteFile(path, []byte(`print "hi";`), 0o644))

	var c maincmd.Cmd
	stdio, out, errOut := newStdio("")

	result := c.Main([]string{path}, stdio)
	require.EqualValues(t, 0, result)
	require.Equal(t, "hi\n", out.String())
	require.Empty(t, errOut.String())
}

func TestMainMissingScriptFileIsIOError(t *testing.T) {
	var c maincmd.Cmd
	stdio, _, errOut := newStdio("")

	result := c.Main([]string{filepath.Join(t.TempDir(), "missing.qx")}, stdio)
	require.EqualValues(t, 74, result)
	require.Contains(t, errOut.String(), "quixil:")
}

func TestMainCompileErrorExitCode(t *testing.T) {
	var c maincmd.Cmd
	stdio, out, errOut := newStdio(`var x = ;`)

	result := c.Main(nil, stdio)
	require.EqualValues(t, 65, result)
	require.Empty(t, out.String())
	require.Contains(t, errOut.String(), "[Line 1]")
}

func TestMainRuntimeErrorExitCode(t *testing.T) {
	var c maincmd.Cmd
	stdio, _, errOut := newStdio(`print 1 + true;`)

	result := c.Main(nil, stdio)
	require.EqualValues(t, 70, result)
	require.Contains(t, errOut.String(), "Unsupported operand types(s) for + : 'number' and 'bool'")
}
