// Package object implements Quixil's value and object model: a NaN-free
// tagged Value type, the heap Objects a Value may reference (strings,
// functions, built-ins), the bytecode Chunk format, and the open-addressed
// hash table used both for string interning and for the VM's global
// variables.
package object

import (
	"fmt"
	"strconv"
)

// Type is the discriminant of a Value.
type Type uint8

const (
	TypeNil Type = iota
	TypeBool
	TypeNumber
	TypeObject
)

// Value is a tagged, copy-semantic union of the four kinds of data a Quixil
// program can hold. The Object variant is a reference into the heap object
// list owned by the VM; Value itself never owns the pointee.
type Value struct {
	typ    Type
	b      bool
	n      float64
	object *Object
}

// Nil is the canonical nil value.
var Nil = Value{typ: TypeNil}

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{typ: TypeBool, b: b} }

// Number returns a numeric Value.
func Number(n float64) Value { return Value{typ: TypeNumber, n: n} }

// FromObject returns a Value referencing the given heap Object.
func FromObject(o *Object) Value { return Value{typ: TypeObject, object: o} }

// True and False are the two boolean values, named for readability at call
// sites the way the teacher's machine package names its singletons.
var (
	True  = Bool(true)
	False = Bool(false)
)

func (v Value) IsNil() bool    { return v.typ == TypeNil }
func (v Value) IsBool() bool   { return v.typ == TypeBool }
func (v Value) IsNumber() bool { return v.typ == TypeNumber }
func (v Value) IsObject() bool { return v.typ == TypeObject }

// AsBool returns the boolean payload; the caller must have checked IsBool.
func (v Value) AsBool() bool { return v.b }

// AsNumber returns the numeric payload; the caller must have checked
// IsNumber.
func (v Value) AsNumber() float64 { return v.n }

// AsObject returns the heap Object payload; the caller must have checked
// IsObject.
func (v Value) AsObject() *Object { return v.object }

// IsObjType reports whether v is an object Value of the given kind.
func (v Value) IsObjType(k ObjKind) bool {
	return v.typ == TypeObject && v.object.Kind == k
}

// AsString returns the string content of a string-object Value; the caller
// must have checked IsObjType(ObjString).
func (v Value) AsString() string { return v.object.asString().s }

// AsFunction returns the function payload of a function-object Value.
func (v Value) AsFunction() *ObjFunction { return v.object.asFunction() }

// AsBuiltin returns the built-in payload of a built-in-object Value.
func (v Value) AsBuiltin() *ObjBuiltin { return v.object.asBuiltin() }

// IsFalsey reports whether v is considered false in a boolean context: Nil
// or Bool(false). Every other value, including Number(0) and the empty
// string, is truthy.
func IsFalsey(v Value) bool {
	return v.IsNil() || (v.IsBool() && !v.b)
}

// Equal compares two values for Quixil equality. Values of differing tags
// are never equal. Numbers compare by IEEE-754 equality (so NaN != NaN).
// Strings compare by object identity, which is safe because every string is
// interned. Other object kinds compare by pointer identity.
func Equal(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case TypeNil:
		return true
	case TypeBool:
		return a.b == b.b
	case TypeNumber:
		return a.n == b.n
	case TypeObject:
		return a.object == b.object
	default:
		return false
	}
}

// TypeName returns the runtime type name used in error messages: "bool",
// "nil", "number", or the referenced object's static type name.
func (v Value) TypeName() string {
	switch v.typ {
	case TypeNil:
		return "nil"
	case TypeBool:
		return "bool"
	case TypeNumber:
		return "number"
	case TypeObject:
		return v.object.typeName()
	default:
		return "unknown"
	}
}

// Print renders v the way OP_PRINT and the print built-in do.
func (v Value) Print() string {
	switch v.typ {
	case TypeNil:
		return "nil"
	case TypeBool:
		if v.b {
			return "true"
		}
		return "false"
	case TypeNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case TypeObject:
		return v.object.print()
	default:
		return fmt.Sprintf("<unknown value %v>", v)
	}
}
