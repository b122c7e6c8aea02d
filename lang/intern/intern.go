// Package intern implements the interner consumed by the compilation
// pipeline: Intern(name) -> Symbol, Resolve(Symbol) -> string, with
// symbol identity stable across the compilation of one unit.
//
// The store is a flat swiss-table map: there is no need for persistence
// or structural sharing in a table that only ever grows for the duration
// of one compile.
package intern

import "github.com/dolthub/swiss"

// Symbol is a compact identifier for an interned string. Equality is integer
// equality; resolving it back to text goes through the Interner that minted
// it.
type Symbol int32

// Interner maps identifier strings to compact Symbols and back. It is
// not safe for concurrent use; the compilation pipeline is
// single-threaded.
type Interner struct {
	byName *swiss.Map[string, Symbol]
	names  []string
}

// New creates an empty Interner.
func New() *Interner {
	return &Interner{
		byName: swiss.NewMap[string, Symbol](64),
	}
}

// Intern returns the Symbol for name, minting a new one on first use.
func (in *Interner) Intern(name string) Symbol {
	if sym, ok := in.byName.Get(name); ok {
		return sym
	}
	sym := Symbol(len(in.names))
	in.names = append(in.names, name)
	in.byName.Put(name, sym)
	return sym
}

// Resolve returns the text behind sym. It panics if sym was never minted by
// this Interner, since that indicates a compiler bug (a Symbol from a
// different compilation unit leaking into this one).
func (in *Interner) Resolve(sym Symbol) string {
	if int(sym) < 0 || int(sym) >= len(in.names) {
		panic("intern: symbol not owned by this Interner")
	}
	return in.names[sym]
}

// Len returns the number of distinct strings interned so far.
func (in *Interner) Len() int { return len(in.names) }
