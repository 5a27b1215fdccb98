package object

import (
	"fmt"
	"io"
)

// ObjKind discriminates the kinds of heap-allocated Object.
type ObjKind uint8

const (
	ObjString ObjKind = iota
	ObjFunctionKind
	ObjBuiltinKind
)

// Object is the common header of every heap-allocated value. Objects form a
// singly linked list, Next, owned by the VM for bulk teardown at shutdown;
// Object itself never manages that list, it only provides the link.
type Object struct {
	Kind ObjKind
	Next *Object

	str *ObjString
	fn  *ObjFunction
	bn  *ObjBuiltin
}

func (o *Object) typeName() string {
	switch o.Kind {
	case ObjString:
		return "str"
	case ObjFunctionKind:
		return "function"
	case ObjBuiltinKind:
		return "builtin"
	default:
		return "object"
	}
}

func (o *Object) print() string {
	switch o.Kind {
	case ObjString:
		return o.str.s
	case ObjFunctionKind:
		if o.fn.Name == nil {
			return "<script-main>"
		}
		return fmt.Sprintf("<function %s at %p>", o.fn.Name.str.s, o.fn)
	case ObjBuiltinKind:
		return fmt.Sprintf("<built-in function %s>", o.bn.Name.str.s)
	default:
		return "<object>"
	}
}

func (o *Object) asString() *ObjString     { return o.str }
func (o *Object) asFunction() *ObjFunction { return o.fn }
func (o *Object) asBuiltin() *ObjBuiltin   { return o.bn }

// AsStringObj returns the *ObjString payload of a string-kind Object; the
// caller must already know o.Kind == ObjString.
func (o *Object) AsStringObj() *ObjString { return o.str }

// ObjString is an immutable, FNV-1a-hashed byte sequence. Every ObjString in
// a running program is obtained from the VM's string table (see Table),
// which guarantees that equal content always yields the same *ObjString, so
// string equality reduces to pointer identity.
type ObjString struct {
	Object
	s    string
	hash uint32
}

// NewStringObject wraps s in a fresh heap Object. Callers outside this
// package should go through an Interner's InternCopy / InternTake instead of
// calling this directly, so that interning invariants hold.
func NewStringObject(s string) *ObjString {
	os := &ObjString{s: s, hash: fnv1a(s)}
	os.Object = Object{Kind: ObjString, str: os}
	return os
}

// AsValue returns the Value referencing this string object.
func (os *ObjString) AsValue() Value { return FromObject(&os.Object) }

// String returns the string's content.
func (os *ObjString) String() string { return os.s }

// Len returns the number of bytes in the string.
func (os *ObjString) Len() int { return len(os.s) }

func fnv1a(s string) uint32 {
	const (
		offsetBasis = 2166136261
		prime       = 16777619
	)
	h := uint32(offsetBasis)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// ObjFunction is a user-defined function: its arity, its compiled chunk, and
// an optional name (anonymous only for the implicit top-level script
// function).
type ObjFunction struct {
	Object
	Arity int
	Chunk *Chunk
	Name  *ObjString
}

// NewFunctionObject allocates a function object with a fresh, empty Chunk.
func NewFunctionObject(name *ObjString) *ObjFunction {
	fn := &ObjFunction{Chunk: &Chunk{}, Name: name}
	fn.Object = Object{Kind: ObjFunctionKind, fn: fn}
	return fn
}

// AsValue returns the Value referencing this function object.
func (fn *ObjFunction) AsValue() Value { return FromObject(&fn.Object) }

// BuiltinHost is the subset of VM state a native built-in function needs:
// the thread's configured I/O streams, and the string interner (so a
// built-in that manufactures a new string, such as input's result, can
// return a properly interned value). It is declared here, rather than in
// the vm package, so that ObjBuiltin.Fn can depend on it without object
// importing vm.
type BuiltinHost interface {
	Stdout() io.Writer
	Stderr() io.Writer
	Stdin() io.Reader
	Interner
}

// BuiltinFn is the signature of a native callable. It receives the host VM
// (for I/O) and the slice of argument values, and returns either a result or
// an error describing why the call failed.
type BuiltinFn func(host BuiltinHost, args []Value) (Value, error)

// ObjBuiltin is a native function exposed under a name in the global table.
type ObjBuiltin struct {
	Object
	Name *ObjString
	Fn   BuiltinFn
}

// NewBuiltinObject allocates a built-in function object.
func NewBuiltinObject(name *ObjString, fn BuiltinFn) *ObjBuiltin {
	bn := &ObjBuiltin{Name: name, Fn: fn}
	bn.Object = Object{Kind: ObjBuiltinKind, bn: bn}
	return bn
}

// AsValue returns the Value referencing this built-in object.
func (bn *ObjBuiltin) AsValue() Value { return FromObject(&bn.Object) }
