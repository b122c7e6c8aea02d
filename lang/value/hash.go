package value

import (
	"strings"

	"golang.org/x/exp/slices"

	"github.com/mna/wisteria/lang/hamt"
)

// Hash is a shared immutable map from HashKey to Value, backed by the
// HAMT heap (lang/hamt). Building or extending a Hash never
// mutates the Heap in place: OpHash and the "set" builtin insert into the
// owning VM's Heap and wraps the returned root in a new Hash value, so
// older Hash values referencing earlier roots keep working.
type Hash struct {
	Heap *hamt.Heap
	Root hamt.Handle
}

// NewHash wraps an existing root handle from heap.
func NewHash(heap *hamt.Heap, root hamt.Handle) *Hash {
	return &Hash{Heap: heap, Root: root}
}

func (*Hash) Type() string { return "Hash" }

func (h *Hash) String() string {
	type pair struct {
		k HashKey
		v Value
	}
	var pairs []pair
	h.Heap.Each(h.Root, func(k HashKey, v any) {
		pairs = append(pairs, pair{k, v.(Value)})
	})
	slices.SortFunc(pairs, func(a, b pair) int {
		return strings.Compare(a.k.String()+a.v.String(), b.k.String()+b.v.String())
	})
	var b strings.Builder
	b.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.v.String())
	}
	b.WriteByte('}')
	return b.String()
}

func (h *Hash) Len() int { return h.Heap.Len(h.Root) }

// GetKey returns (nil, false) for a missing key and the VM turns that
// into None, never an error (the error
// for an unhashable k is raised by the caller via ToHashKey before GetKey
// is reached).
func (h *Hash) GetKey(key HashKey) (Value, bool) {
	v, ok := h.Heap.Lookup(h.Root, key)
	if !ok {
		return nil, false
	}
	return v.(Value), true
}

// With returns a new Hash with key bound to val, structurally sharing
// every other entry with h.
func (h *Hash) With(key HashKey, val Value) *Hash {
	return &Hash{Heap: h.Heap, Root: h.Heap.Insert(h.Root, key, val)}
}

// Each calls fn for every key/value pair reachable from h, in no
// particular order.
func (h *Hash) Each(fn func(HashKey, Value)) {
	h.Heap.Each(h.Root, func(k HashKey, v any) { fn(k, v.(Value)) })
}
