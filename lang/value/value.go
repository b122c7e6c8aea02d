// Package value implements the runtime value model consumed by the compiler
// (as constants) and the VM (as stack slots, globals, closure captures and
// HAMT payloads): a tagged union over Integer, Float, Boolean, String,
// None, Array, Hash, Some, Left, Right, Function, Closure and Builtin.
//
// The interface set (Value, Ordered, HasEqual, Indexable, Mapping) is
// trimmed to what this language's closed kind set actually needs: no
// Freeze/Truth, since this core has no concurrent publishing of values and
// truthiness is a VM-level concern, not a per-value method.
package value

// Value is implemented by every runtime value the VM or compiler constant
// pool can hold.
type Value interface {
	// Type returns the short type name used in diagnostics (e.g. "Integer",
	// "Array") and by the "type" builtin.
	Type() string
	String() string
}

// Ordered is implemented by value kinds that support relational comparison
// (<, <=, >, >=) against a value of the same or a numerically-compatible
// kind. Integer, Float and String implement it; Integer.Less and
// Float.Less also accept the other numeric kind, so mixed Integer/Float
// comparisons are handled here rather than in the VM.
type Ordered interface {
	Value
	Less(Value) (bool, error)
}

// HasEqual is implemented by value kinds with custom equality (as opposed to
// the pointer-identity fast path the VM applies for shared
// kinds). None and the scalar kinds implement it; structural equality for
// Array/Hash is implemented by the VM's compare routine since it must
// recurse through arbitrary Values.
type HasEqual interface {
	Value
	Equal(Value) (bool, error)
}

// Indexable is implemented by value kinds that support the OpIndex opcode.
type Indexable interface {
	Value
	Index(i int64) (Value, bool)
	Len() int
}

// Mapping is implemented by value kinds that support keyed lookup.
type Mapping interface {
	Value
	GetKey(HashKey) (Value, bool)
}

// TypeName is a convenience for error messages that need a type name from an
// arbitrary Value, including the untyped Go nil (never a legal Value, but
// diagnostics code is defensive about it).
func TypeName(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.Type()
}
