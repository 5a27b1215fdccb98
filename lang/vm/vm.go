// Package vm implements the virtual machine that executes Quixil bytecode: a
// fixed-size value stack, a fixed-size call-frame stack, the global and
// string-interning tables, and the opcode dispatch loop.
package vm

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/quixil-lang/quixil/lang/compiler"
	"github.com/quixil-lang/quixil/lang/object"
)

// FramesMax bounds the call-frame stack, and so sets the deepest recursion
// the VM will permit before reporting a stack overflow.
const FramesMax = 64

// StackMax is the total number of value-stack slots: 256 for each of the
// FramesMax call frames.
const StackMax = FramesMax * 256

// InterpretResult classifies how a run ended.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// CallFrame is one activation record: the function being executed, the
// instruction pointer into its chunk, and the base stack slot its locals
// start at.
type CallFrame struct {
	function *object.ObjFunction
	ip       int
	slots    int // base index into vm.stack
}

// VM executes compiled Quixil programs. Each VM owns its own heap object
// list, string table and globals, so multiple VMs never share state.
type VM struct {
	frames     [FramesMax]CallFrame
	frameCount int

	stack    [StackMax]object.Value
	stackTop int

	strings object.Table
	globals object.Table

	objects *object.Object // head of the heap list, for bulk teardown

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader

	// RuntimeError, when non-nil after Interpret returns InterpretRuntimeError,
	// holds the formatted diagnostic (message plus call stack trace) that was
	// also written to stderr.
	RuntimeError error
}

// New returns a VM wired to the given I/O streams, with its standard library
// of built-ins already registered.
func New(stdout, stderr io.Writer, stdin io.Reader) *VM {
	vm := &VM{stdout: stdout, stderr: stderr, stdin: stdin}
	vm.defineBuiltins()
	return vm
}

func (vm *VM) Stdout() io.Writer { return vm.stdout }
func (vm *VM) Stderr() io.Writer { return vm.stderr }
func (vm *VM) Stdin() io.Reader  { return vm.stdin }

func (vm *VM) addObject(o *object.Object) {
	o.Next = vm.objects
	vm.objects = o
}

// InternCopy implements object.Interner: it returns the canonical ObjString
// for s, interning a fresh copy into vm.strings if none exists yet.
func (vm *VM) InternCopy(s string) *object.ObjString {
	return vm.intern(s)
}

// InternTake implements object.Interner. In Go there is no ownership to
// transfer, so it behaves exactly like InternCopy; it exists so call sites
// can still distinguish "this string was just built" from "this string is a
// source literal", matching the two entry points of the original design.
func (vm *VM) InternTake(s string) *object.ObjString {
	return vm.intern(s)
}

func (vm *VM) intern(s string) *object.ObjString {
	hash := object.HashString(s)
	if existing := vm.strings.FindString(s, hash); existing != nil {
		return existing
	}
	str := object.NewStringObject(s)
	vm.addObject(&str.Object)
	vm.strings.Set(str, object.Bool(true))
	return str
}

func (vm *VM) push(v object.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() object.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) object.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
}

// Interpret compiles and runs source, writing program output to the VM's
// stdout/stderr. It returns InterpretCompileError if compilation failed (the
// diagnostics are the returned strings) or InterpretRuntimeError if the
// program raised an uncaught runtime error (see VM.RuntimeError).
func (vm *VM) Interpret(source string) (InterpretResult, []string) {
	fn, errs := compiler.Compile(source, vm)
	if fn == nil {
		return InterpretCompileError, errs
	}

	vm.resetStack()
	vm.RuntimeError = nil
	vm.push(fn.AsValue())
	vm.callFunction(fn, 0)

	return vm.run(), nil
}

func (vm *VM) frame() *CallFrame { return &vm.frames[vm.frameCount-1] }

func (vm *VM) readByte(fr *CallFrame) byte {
	b := fr.function.Chunk.Code[fr.ip]
	fr.ip++
	return b
}

func (vm *VM) readShort(fr *CallFrame) uint16 {
	hi := vm.readByte(fr)
	lo := vm.readByte(fr)
	return uint16(hi)<<8 | uint16(lo)
}

func (vm *VM) readConstant(fr *CallFrame) object.Value {
	return fr.function.Chunk.Constants[vm.readByte(fr)]
}

func (vm *VM) readString(fr *CallFrame) *object.ObjString {
	v := vm.readConstant(fr)
	return v.AsObject().AsStringObj()
}

// run executes the bytecode loop starting from the current top frame until
// every call frame returns or a runtime error is raised.
func (vm *VM) run() InterpretResult {
	fr := vm.frame()

loop:
	for {
		op := object.OpCode(vm.readByte(fr))

		switch op {
		case object.OpConstant:
			vm.push(vm.readConstant(fr))

		case object.OpNil:
			vm.push(object.Nil)
		case object.OpTrue:
			vm.push(object.True)
		case object.OpFalse:
			vm.push(object.False)

		case object.OpPop:
			vm.pop()
		case object.OpDup:
			vm.push(vm.peek(0))

		case object.OpGetLocal:
			slot := vm.readByte(fr)
			vm.push(vm.stack[fr.slots+int(slot)])
		case object.OpSetLocal:
			slot := vm.readByte(fr)
			vm.stack[fr.slots+int(slot)] = vm.peek(0)

		case object.OpGetGlobal:
			name := vm.readString(fr)
			v, ok := vm.globals.Get(name)
			if !ok {
				if !vm.runtimeError(fr, "Undefined variable '%s'.", name.String()) {
					break loop
				}
			}
			vm.push(v)

		case object.OpDefineGlobal:
			name := vm.readString(fr)
			vm.globals.Set(name, vm.peek(0))
			vm.pop()

		case object.OpSetGlobal:
			name := vm.readString(fr)
			// Probe first, rather than Set-then-Delete on a new key: look the
			// key up, fail if it's missing, and only then overwrite in place,
			// so an undefined name is never inserted into the globals table.
			if _, ok := vm.globals.Get(name); !ok {
				if !vm.runtimeError(fr, "Undefined variable '%s'.", name.String()) {
					break loop
				}
			} else {
				vm.globals.Set(name, vm.peek(0))
			}

		case object.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(object.Bool(object.Equal(a, b)))

		case object.OpGreater:
			if !vm.binaryCompare(fr, func(a, b float64) bool { return a > b }) {
				break loop
			}
		case object.OpLess:
			if !vm.binaryCompare(fr, func(a, b float64) bool { return a < b }) {
				break loop
			}

		case object.OpAdd:
			if !vm.add(fr) {
				break loop
			}
		case object.OpSubtract:
			if !vm.numericBinary(fr, func(a, b float64) float64 { return a - b }) {
				break loop
			}
		case object.OpMultiply:
			if !vm.multiply(fr) {
				break loop
			}
		case object.OpDivide:
			if !vm.numericBinary(fr, func(a, b float64) float64 { return a / b }) {
				break loop
			}

		case object.OpNot:
			vm.push(object.Bool(object.IsFalsey(vm.pop())))

		case object.OpNegate:
			if !vm.peek(0).IsNumber() {
				if !vm.runtimeError(fr, "Operand must be a number.") {
					break loop
				}
			} else {
				vm.push(object.Number(-vm.pop().AsNumber()))
			}

		case object.OpPrint:
			fmt.Fprintln(vm.stdout, vm.pop().Print())

		case object.OpJump:
			offset := vm.readShort(fr)
			fr.ip += int(offset)

		case object.OpJumpIfFalse:
			offset := vm.readShort(fr)
			if object.IsFalsey(vm.peek(0)) {
				fr.ip += int(offset)
			}

		case object.OpLoop:
			offset := vm.readShort(fr)
			fr.ip -= int(offset)

		case object.OpCall:
			argCount := int(vm.readByte(fr))
			if !vm.callValue(vm.peek(argCount), argCount) {
				break loop
			}
			fr = vm.frame()

		case object.OpReturn:
			result := vm.pop()
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return InterpretOK
			}
			vm.stackTop = fr.slots
			vm.push(result)
			fr = vm.frame()

		default:
			if !vm.runtimeError(fr, "Unknown opcode %d.", byte(op)) {
				break loop
			}
		}

		if vm.RuntimeError != nil {
			break loop
		}
	}

	return InterpretRuntimeError
}

func (vm *VM) binaryCompare(fr *CallFrame, cmp func(a, b float64) bool) bool {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError(fr, "Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(object.Bool(cmp(a, b)))
	return true
}

func (vm *VM) numericBinary(fr *CallFrame, op func(a, b float64) float64) bool {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError(fr, "Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(object.Number(op(a, b)))
	return true
}

// add implements '+' overloading. String+String concatenates directly;
// String+Number (either order) concatenates with the number truncated to an
// int and decimal-formatted, matching the original implementation's %d
// coercion rather than Print's %g rendering; a String paired with anything
// else is a dedicated error distinct from the general numeric-add error.
func (vm *VM) add(fr *CallFrame) bool {
	b := vm.peek(0)
	a := vm.peek(1)

	aStr := a.IsObjType(object.ObjString)
	bStr := b.IsObjType(object.ObjString)

	switch {
	case aStr && bStr:
		vm.pop()
		vm.pop()
		vm.push(vm.InternTake(a.AsString() + b.AsString()).AsValue())
	case aStr && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(vm.InternTake(a.AsString() + formatNumberAsInt(b.AsNumber())).AsValue())
	case bStr && a.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(vm.InternTake(formatNumberAsInt(a.AsNumber()) + b.AsString()).AsValue())
	case aStr || bStr:
		other := a
		if aStr {
			other = b
		}
		return vm.runtimeError(fr, "Can only concatenate str (not '%s') to str", other.TypeName())
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(object.Number(a.AsNumber() + b.AsNumber()))
	default:
		return vm.runtimeError(fr, "Unsupported operand types(s) for + : '%s' and '%s'", a.TypeName(), b.TypeName())
	}
	return true
}

// multiply implements '*' overloading: String×Number (either order) repeats
// the string, with non-positive counts and empty strings yielding "";
// Number×Number is arithmetic.
func (vm *VM) multiply(fr *CallFrame) bool {
	b := vm.peek(0)
	a := vm.peek(1)

	switch {
	case a.IsObjType(object.ObjString) && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(vm.InternTake(repeatString(a.AsString(), b.AsNumber())).AsValue())
	case b.IsObjType(object.ObjString) && a.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(vm.InternTake(repeatString(b.AsString(), a.AsNumber())).AsValue())
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(object.Number(a.AsNumber() * b.AsNumber()))
	default:
		return vm.runtimeError(fr, "Unsupported operand types(s) for * : '%s' and '%s'", a.TypeName(), b.TypeName())
	}
	return true
}

// formatNumberAsInt truncates n to an int and decimal-formats it, matching
// the original runtime's %d coercion of numbers used in string context.
func formatNumberAsInt(n float64) string {
	return strconv.Itoa(int(n))
}

// repeatString implements the `*` string-repeat overload: a non-positive
// count or an empty input string always yields "".
func repeatString(s string, count float64) string {
	n := int(count)
	if n <= 0 || s == "" {
		return ""
	}
	return strings.Repeat(s, n)
}

func (vm *VM) callValue(callee object.Value, argCount int) bool {
	if callee.IsObjType(object.ObjFunctionKind) {
		return vm.callFunction(callee.AsFunction(), argCount)
	}
	if callee.IsObjType(object.ObjBuiltinKind) {
		return vm.callBuiltin(callee.AsBuiltin(), argCount)
	}
	return vm.runtimeError(vm.frame(), "can only call functions and classes")
}

func (vm *VM) callFunction(fn *object.ObjFunction, argCount int) bool {
	if argCount != fn.Arity {
		return vm.runtimeError(vm.frame(), "Expected %d arguments but got %d.", fn.Arity, argCount)
	}
	if vm.frameCount == FramesMax {
		return vm.runtimeError(vm.frame(), "Stack overflow.")
	}

	fr := &vm.frames[vm.frameCount]
	vm.frameCount++
	fr.function = fn
	fr.ip = 0
	fr.slots = vm.stackTop - argCount - 1
	return true
}

func (vm *VM) callBuiltin(bn *object.ObjBuiltin, argCount int) bool {
	args := make([]object.Value, argCount)
	copy(args, vm.stack[vm.stackTop-argCount:vm.stackTop])

	result, err := bn.Fn(vm, args)
	if err != nil {
		return vm.runtimeError(vm.frame(), "%s", err.Error())
	}

	vm.stackTop -= argCount + 1
	vm.push(result)
	return true
}

// runtimeError formats a diagnostic, appends the call-stack trace, writes it
// to stderr, and records it on vm.RuntimeError. It always returns false so
// callers can write `return vm.runtimeError(...)` from a bool-returning
// helper and `if !vm.runtimeError(...) { break loop }` from run's switch.
func (vm *VM) runtimeError(_ *CallFrame, format string, args ...any) bool {
	var sb strings.Builder
	fmt.Fprintf(&sb, format, args...)

	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		line := f.function.Chunk.Lines[f.ip-1]
		name := "<script-main>"
		if f.function.Name != nil {
			name = f.function.Name.String() + "()"
		}
		fmt.Fprintf(&sb, "\n[Line %d] in %s", line, name)
	}

	msg := sb.String()
	vm.RuntimeError = fmt.Errorf("%s", msg)
	fmt.Fprintln(vm.stderr, msg)
	vm.resetStack()
	return false
}

