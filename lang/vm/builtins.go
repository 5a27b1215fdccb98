package vm

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/quixil-lang/quixil/lang/object"
)

var processStart = time.Now()

// defineBuiltins registers the native functions every Quixil program starts
// with: push the name, push the builtin object, store it as a global, pop
// both. The push/push/set/pop/pop sequence mirrors how the original runtime
// roots a freshly allocated builtin before it is reachable from the globals
// table.
func (vm *VM) defineBuiltins() {
	vm.defineBuiltin("clock", clockBuiltin)
	vm.defineBuiltin("input", inputBuiltin)
}

func (vm *VM) defineBuiltin(name string, fn object.BuiltinFn) {
	nameObj := vm.InternCopy(name)
	vm.push(nameObj.AsValue())
	bn := object.NewBuiltinObject(nameObj, fn)
	vm.addObject(&bn.Object)
	vm.push(bn.AsValue())
	vm.globals.Set(nameObj, vm.peek(0))
	vm.pop()
	vm.pop()
}

// clockBuiltin returns the number of seconds elapsed since the process
// started, as a Quixil number.
func clockBuiltin(_ object.BuiltinHost, args []object.Value) (object.Value, error) {
	if len(args) != 0 {
		return object.Nil, fmt.Errorf("clock() expects 0 arguments but got %d", len(args))
	}
	return object.Number(time.Since(processStart).Seconds()), nil
}

// inputBuiltin accepts 0 to 2 arguments, (prompt, hidden), both optional and
// defaulting to nil/false like the built-in's nominal prompt=nil,
// hidden=false signature. It writes the prompt (if any) to stdout, then
// reads one line from stdin and returns it with its trailing newline
// stripped. The hidden flag is accepted for source compatibility with
// callers that pass it, but this build has no terminal-control dependency
// wired in to suppress echo, so hidden input is read the same plain way as
// visible input (see DESIGN.md).
func inputBuiltin(host object.BuiltinHost, args []object.Value) (object.Value, error) {
	if len(args) > 2 {
		return object.Nil, fmt.Errorf("input() expects at most 2 arguments but got %d", len(args))
	}

	if len(args) >= 1 && !args[0].IsNil() {
		fmt.Fprint(host.Stdout(), args[0].Print())
	}

	line, err := bufio.NewReader(host.Stdin()).ReadString('\n')
	if err != nil && line == "" {
		return object.Nil, fmt.Errorf("input(): %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	return host.InternCopy(line).AsValue(), nil
}
