package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quixil-lang/quixil/lang/vm"
)

func run(t *testing.T, src string) (stdout, stderr string, result vm.InterpretResult) {
	t.Helper()
	var out, errOut bytes.Buffer
	machine := vm.New(&out, &errOut, strings.NewReader(""))
	res, _ := machine.Interpret(src)
	return out.String(), errOut.String(), res
}

func TestInterpretSeedScenarios(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"arithmetic precedence", `print 1 + 2 * 3;`, "7\n"},
		{"string concatenation", `var a = "foo"; var b = "bar"; print a + b;`, "foobar\n"},
		{"while loop", `var i = 0; while (i < 3) { print i; i = i + 1; }`, "0\n1\n2\n"},
		{"function call", `function sq(x) { return x * x; } print sq(5);`, "25\n"},
		{"when match", `var x = 3; when (x) { 1 -> print "one"; 3 -> print "three"; else -> print "other"; }`, "three\n"},
		{"template interpolation", `print "hi $(1 + 2) there";`, "hi 3 there\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stdout, stderr, result := run(t, tc.src)
			require.Equal(t, vm.InterpretOK, result, "stderr: %s", stderr)
			require.Equal(t, tc.want, stdout)
			require.Empty(t, stderr)
		})
	}
}

func TestInterpretRuntimeErrorNegateNonNumber(t *testing.T) {
	stdout, stderr, result := run(t, `-"x";`)
	require.Equal(t, vm.InterpretRuntimeError, result)
	require.Empty(t, stdout)
	require.Contains(t, stderr, "Operand must be a number.")
	require.Contains(t, stderr, "[Line 1]")
	require.Contains(t, stderr, "<script-main>")
}

func TestInterpretRuntimeErrorUndefinedGlobal(t *testing.T) {
	stdout, stderr, result := run(t, `print foo;`)
	require.Equal(t, vm.InterpretRuntimeError, result)
	require.Empty(t, stdout)
	require.Contains(t, stderr, "Undefined variable 'foo'.")
}

func TestInterpretRuntimeErrorNotCallable(t *testing.T) {
	stdout, stderr, result := run(t, `var n = 1; n();`)
	require.Equal(t, vm.InterpretRuntimeError, result)
	require.Empty(t, stdout)
	require.Contains(t, stderr, "can only call functions and classes")
}

func TestInterpretCompileError(t *testing.T) {
	stdout, stderr, result := run(t, `var x = ;`)
	require.Equal(t, vm.InterpretCompileError, result)
	require.Empty(t, stdout)
	require.Empty(t, stderr, "Interpret itself doesn't write compile diagnostics, it returns them")
}

func TestInterpretCompileErrorReturnsMessages(t *testing.T) {
	var out, errOut bytes.Buffer
	machine := vm.New(&out, &errOut, strings.NewReader(""))
	result, errs := machine.Interpret(`var x = ;`)
	require.Equal(t, vm.InterpretCompileError, result)
	require.NotEmpty(t, errs)
	require.Contains(t, errs[0], "[Line 1]")
}

func TestAddStringNumberCoercionTruncates(t *testing.T) {
	stdout, _, result := run(t, `print "n=" + 3.9;`)
	require.Equal(t, vm.InterpretOK, result)
	require.Equal(t, "n=3\n", stdout)
}

func TestAddNumberStringCoercionPreservesOrder(t *testing.T) {
	stdout, _, result := run(t, `print 3 + "x";`)
	require.Equal(t, vm.InterpretOK, result)
	require.Equal(t, "3x\n", stdout)
}

func TestAddStringAndNonNumberIsError(t *testing.T) {
	_, stderr, result := run(t, `print "x" + true;`)
	require.Equal(t, vm.InterpretRuntimeError, result)
	require.Contains(t, stderr, "Can only concatenate str (not 'bool') to str")
}

func TestAddTwoNonStringNonNumberIsError(t *testing.T) {
	_, stderr, result := run(t, `print nil + true;`)
	require.Equal(t, vm.InterpretRuntimeError, result)
	require.Contains(t, stderr, "Unsupported operand types(s) for + : 'nil' and 'bool'")
}

func TestMultiplyStringRepeat(t *testing.T) {
	stdout, _, result := run(t, `print "ab" * 3;`)
	require.Equal(t, vm.InterpretOK, result)
	require.Equal(t, "ababab\n", stdout)
}

func TestMultiplyStringByNonPositiveIsEmpty(t *testing.T) {
	stdout, _, result := run(t, `print "ab" * 0;`)
	require.Equal(t, vm.InterpretOK, result)
	require.Equal(t, "\n", stdout)
}

func TestMultiplyNumberByString(t *testing.T) {
	stdout, _, result := run(t, `print 2 * "x";`)
	require.Equal(t, vm.InterpretOK, result)
	require.Equal(t, "xx\n", stdout)
}

func TestGlobalReassignmentOfUndefinedIsError(t *testing.T) {
	_, stderr, result := run(t, `x = 1;`)
	require.Equal(t, vm.InterpretRuntimeError, result)
	require.Contains(t, stderr, "Undefined variable 'x'.")
}

func TestStringInterningIdentityAcrossOccurrences(t *testing.T) {
	// Two occurrences of the same literal content in source must compare equal
	// (pointer identity via interning), observable through '=='.
	stdout, _, result := run(t, `print "abc" == "abc";`)
	require.Equal(t, vm.InterpretOK, result)
	require.Equal(t, "true\n", stdout)
}

func TestIsFalseyTruthTable(t *testing.T) {
	stdout, _, result := run(t, `
print !nil;
print !false;
print !true;
print !0;
print !"";
`)
	require.Equal(t, vm.InterpretOK, result)
	require.Equal(t, "true\ntrue\nfalse\nfalse\nfalse\n", stdout)
}

func TestRecursiveFunctionCall(t *testing.T) {
	stdout, _, result := run(t, `
function fact(n) {
	if (n <= 1) { return 1; }
	return n * fact(n - 1);
}
print fact(5);
`)
	require.Equal(t, vm.InterpretOK, result)
	require.Equal(t, "120\n", stdout)
}

func TestLocalScopeShadowing(t *testing.T) {
	stdout, _, result := run(t, `
var x = "outer";
{
	var x = "inner";
	print x;
}
print x;
`)
	require.Equal(t, vm.InterpretOK, result)
	require.Equal(t, "inner\nouter\n", stdout)
}

func TestAndOrShortCircuit(t *testing.T) {
	stdout, _, result := run(t, `
function boom() { print "boom"; return true; }
print false and boom();
print true or boom();
`)
	require.Equal(t, vm.InterpretOK, result)
	require.Equal(t, "false\ntrue\n", stdout)
}
