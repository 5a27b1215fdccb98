package object

// Interner is the string-interning capability the compiler needs from the
// VM: every string constant and every identifier name the compiler embeds
// in a chunk must go through it, so that pointer equality of ObjString
// values implies content equality at run time.
//
// InternCopy and InternTake mirror the two entry points of the original
// design (copy an immutable literal vs. take ownership of a freshly built
// buffer); in Go, where the garbage collector owns all memory, both have
// the same behavior. Both are kept, rather than collapsed to one method, so
// that call sites read the same way the teacher's/originating C code does:
// InternTake at a concatenation or formatting result, InternCopy at a
// source-text literal.
type Interner interface {
	InternCopy(s string) *ObjString
	InternTake(s string) *ObjString
}

// HashString returns the FNV-1a hash of s, the same hash cached on every
// ObjString and used by Table's string-interning lookups.
func HashString(s string) uint32 { return fnv1a(s) }
