// Package hashkey implements the HashKey projection: the hashable
// subset of the value model (Integer, String, Boolean) used to index
// HAMT-backed Hash values. It has no dependency on the value
// package so that both lang/value (which projects a Value down to a
// HashKey) and lang/hamt (which hashes and compares HashKeys without
// knowing what a Value is) can import it without a cycle.
package hashkey

import "encoding/binary"

// Kind identifies which field of a HashKey is meaningful.
type Kind byte

const (
	Int Kind = iota
	Str
	Bool
)

// HashKey is a small comparable struct: two HashKeys built from equal
// source values compare equal with plain ==, which lang/hamt relies on to
// resolve collision chains.
type HashKey struct {
	Kind Kind
	I    int64
	S    string
	B    bool
}

// OfInt builds the HashKey for an integer.
func OfInt(i int64) HashKey { return HashKey{Kind: Int, I: i} }

// OfString builds the HashKey for a string.
func OfString(s string) HashKey { return HashKey{Kind: Str, S: s} }

// OfBool builds the HashKey for a boolean.
func OfBool(b bool) HashKey { return HashKey{Kind: Bool, B: b} }

// CanonicalBytes returns a byte encoding suitable for feeding to a hash
// function. It is injective over the (Kind, field) space: the kind tag
// prevents Integer(0) and Boolean(false) (or the empty String) from
// colliding in their encoded form.
func (k HashKey) CanonicalBytes() []byte {
	switch k.Kind {
	case Int:
		buf := make([]byte, 9)
		buf[0] = byte(Int)
		binary.LittleEndian.PutUint64(buf[1:], uint64(k.I))
		return buf
	case Bool:
		buf := make([]byte, 2)
		buf[0] = byte(Bool)
		if k.B {
			buf[1] = 1
		}
		return buf
	default: // Str
		buf := make([]byte, 1+len(k.S))
		buf[0] = byte(Str)
		copy(buf[1:], k.S)
		return buf
	}
}

func (k HashKey) String() string {
	switch k.Kind {
	case Int:
		return "Integer"
	case Bool:
		return "Boolean"
	default:
		return "String"
	}
}
