// Package maincmd wires Quixil's command-line flags to mainer.Cmd and
// dispatches to the compiler and VM, translating their outcomes into the
// exit codes Quixil scripts and their callers rely on.
package maincmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mna/mainer"

	"github.com/quixil-lang/quixil/lang/vm"
)

const binName = "quixil"

// Exit codes follow the sysexits.h convention the original interpreter
// used: 65 for a malformed program, 70 for a program that raised an
// uncaught runtime error, 74 for an I/O failure reading the script.
const (
	exitUsage   = 64
	exitDataErr = 65
	exitSoftErr = 70
	exitIOErr   = 74
)

var shortUsage = fmt.Sprintf(`usage: %s [<option>...] <script>
Run '%[1]s --help' for details.
`, binName)

var longUsage = fmt.Sprintf(`usage: %s [<option>...] <script>
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and virtual machine for the %[1]s scripting language.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.

With no <script>, reads from standard input.
`, binName)

// Cmd holds the flags and positional arguments for a single invocation.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args []string
}

func (c *Cmd) SetArgs(args []string)      { c.args = args }
func (c *Cmd) SetFlags(_ map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) > 1 {
		return fmt.Errorf("too many arguments: expected at most one script path")
	}
	return nil
}

// Main parses flags, then either runs a script file or reads the script
// from stdin, returning the process exit code.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.ExitCode(exitUsage)
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	_ = mainer.CancelOnSignal(context.Background(), os.Interrupt)

	source, err := readSource(c.args, stdio)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s: %s\n", binName, err)
		return mainer.ExitCode(exitIOErr)
	}

	machine := vm.New(stdio.Stdout, stdio.Stderr, stdio.Stdin)
	result, errs := machine.Interpret(source)
	switch result {
	case vm.InterpretCompileError:
		for _, e := range errs {
			fmt.Fprintln(stdio.Stderr, e)
		}
		return mainer.ExitCode(exitDataErr)
	case vm.InterpretRuntimeError:
		return mainer.ExitCode(exitSoftErr)
	default:
		return mainer.Success
	}
}

func readSource(args []string, stdio mainer.Stdio) (string, error) {
	if len(args) == 0 {
		buf, err := io.ReadAll(stdio.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading standard input: %w", err)
		}
		return string(buf), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return string(data), nil
}
