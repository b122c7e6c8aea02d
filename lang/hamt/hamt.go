// Package hamt implements the persistent hash-array-mapped-trie heap that
// backs large Hash values. Structural sharing means an
// insert never mutates the tree it was called on: it returns a new root
// handle, and every handle ever returned remains independently queryable
// for the lifetime of the Heap.
//
// There is no collector: the Heap only ever appends nodes, bounded by
// program duration.
package hamt

import (
	"crypto/rand"
	"encoding/binary"
	"math/bits"

	"github.com/dchest/siphash"

	"github.com/mna/wisteria/lang/hashkey"
)

// Handle is a dense, copyable reference into a Heap. The zero value is not
// a valid handle; use Empty for "no entries".
type Handle int32

// Empty is the canonical empty-root handle. It does not occupy any heap
// storage.
const Empty Handle = -1

const (
	bitsPerLevel = 5
	branchWidth  = 1 << bitsPerLevel // 32
	chunkMask    = branchWidth - 1
	maxLevels    = 13 // ceil(64/5), guarantees two distinct uint64 hashes diverge
)

type entry struct {
	key hashkey.HashKey
	val any
}

type leafNode struct {
	hash    uint64
	entries []entry
}

type branchNode struct {
	bitmap   uint32
	children []Handle
}

// Heap is a pool of persistent trie nodes addressed by Handle. It owns all
// nodes; a Hash value carries only a Heap pointer and a root Handle into it.
type Heap struct {
	nodes []any // *leafNode or *branchNode
	k0, k1 uint64
}

// New creates an empty Heap with a fresh, process-random keyed hash (see
// hashKey) so that HashKey hashing cannot be influenced by an adversary who
// only controls key contents, not the running process.
func New() *Heap {
	var seed [16]byte
	_, _ = rand.Read(seed[:])
	return &Heap{
		k0: binary.LittleEndian.Uint64(seed[:8]),
		k1: binary.LittleEndian.Uint64(seed[8:]),
	}
}

func (h *Heap) alloc(n any) Handle {
	h.nodes = append(h.nodes, n)
	return Handle(len(h.nodes) - 1)
}

func (h *Heap) at(handle Handle) any {
	return h.nodes[handle]
}

func chunkAt(hash uint64, level int) uint32 {
	if level >= maxLevels {
		return 0
	}
	return uint32(hash>>(uint(level)*bitsPerLevel)) & chunkMask
}

// hashKey computes the trie's keyed hash of k using SipHash-2-4, the same
// keyed-hash family used elsewhere in the pack for hostile-input-resistant
// hashing (github.com/dchest/siphash).
func (h *Heap) hashKey(k hashkey.HashKey) uint64 {
	return siphash.Hash(h.k0, h.k1, k.CanonicalBytes())
}

// Lookup returns the value bound to key under root, if any. It performs no
// allocation and never mutates the Heap.
func (h *Heap) Lookup(root Handle, key hashkey.HashKey) (any, bool) {
	hash := h.hashKey(key)
	handle := root
	level := 0
	for handle != Empty {
		switch n := h.at(handle).(type) {
		case *leafNode:
			if n.hash != hash {
				return nil, false
			}
			for _, e := range n.entries {
				if e.key == key {
					return e.val, true
				}
			}
			return nil, false
		case *branchNode:
			chunk := chunkAt(hash, level)
			bit := uint32(1) << chunk
			if n.bitmap&bit == 0 {
				return nil, false
			}
			pos := bits.OnesCount32(n.bitmap & (bit - 1))
			handle = n.children[pos]
			level++
		}
	}
	return nil, false
}

// Insert returns a new root with key bound to val, reusing every node not
// on the path from root to the updated slot. The root passed in remains
// valid and continues to resolve to its old contents.
func (h *Heap) Insert(root Handle, key hashkey.HashKey, val any) Handle {
	return h.insertAt(root, h.hashKey(key), 0, key, val)
}

func (h *Heap) insertAt(handle Handle, hash uint64, level int, key hashkey.HashKey, val any) Handle {
	if handle == Empty {
		return h.alloc(&leafNode{hash: hash, entries: []entry{{key, val}}})
	}
	switch n := h.at(handle).(type) {
	case *leafNode:
		if n.hash == hash {
			return h.alloc(&leafNode{hash: hash, entries: upsert(n.entries, key, val)})
		}
		return h.splitLeaf(n, hash, level, key, val)
	case *branchNode:
		chunk := chunkAt(hash, level)
		bit := uint32(1) << chunk
		pos := bits.OnesCount32(n.bitmap & (bit - 1))
		if n.bitmap&bit != 0 {
			newChild := h.insertAt(n.children[pos], hash, level+1, key, val)
			children := append([]Handle(nil), n.children...)
			children[pos] = newChild
			return h.alloc(&branchNode{bitmap: n.bitmap, children: children})
		}
		newLeaf := h.alloc(&leafNode{hash: hash, entries: []entry{{key, val}}})
		children := make([]Handle, 0, len(n.children)+1)
		children = append(children, n.children[:pos]...)
		children = append(children, newLeaf)
		children = append(children, n.children[pos:]...)
		return h.alloc(&branchNode{bitmap: n.bitmap | bit, children: children})
	default:
		panic("hamt: unreachable node kind")
	}
}

// splitLeaf handles inserting a key whose hash differs from an existing
// leaf's hash: it pushes both down through as many single-child branch
// levels as their hash chunks keep agreeing, then forks into a two-child
// branch at the first level where they diverge.
func (h *Heap) splitLeaf(old *leafNode, hash uint64, level int, key hashkey.HashKey, val any) Handle {
	if level >= maxLevels {
		// Exhausted every chunk without the hashes diverging: treat as a
		// genuine collision and chain the entries, even though their
		// 64-bit hashes differ (this can only happen for a hash function
		// defect; handled defensively rather than assumed impossible).
		return h.alloc(&leafNode{hash: old.hash, entries: upsert(old.entries, key, val)})
	}

	oldChunk := chunkAt(old.hash, level)
	newChunk := chunkAt(hash, level)
	if oldChunk == newChunk {
		child := h.splitLeaf(old, hash, level+1, key, val)
		return h.alloc(&branchNode{bitmap: uint32(1) << oldChunk, children: []Handle{child}})
	}

	oldHandle := h.alloc(&leafNode{hash: old.hash, entries: old.entries})
	newHandle := h.alloc(&leafNode{hash: hash, entries: []entry{{key, val}}})
	bitmap := uint32(1)<<oldChunk | uint32(1)<<newChunk
	var children []Handle
	if oldChunk < newChunk {
		children = []Handle{oldHandle, newHandle}
	} else {
		children = []Handle{newHandle, oldHandle}
	}
	return h.alloc(&branchNode{bitmap: bitmap, children: children})
}

func upsert(entries []entry, key hashkey.HashKey, val any) []entry {
	out := make([]entry, len(entries), len(entries)+1)
	copy(out, entries)
	for i := range out {
		if out[i].key == key {
			out[i].val = val
			return out
		}
	}
	return append(out, entry{key, val})
}

// Each calls fn for every entry reachable from root, in no particular
// order. Used by the VM to implement structural equality and iteration
// over Hash values.
func (h *Heap) Each(root Handle, fn func(hashkey.HashKey, any)) {
	if root == Empty {
		return
	}
	switch n := h.at(root).(type) {
	case *leafNode:
		for _, e := range n.entries {
			fn(e.key, e.val)
		}
	case *branchNode:
		for _, c := range n.children {
			h.Each(c, fn)
		}
	}
}

// Len reports the number of entries reachable from root.
func (h *Heap) Len(root Handle) int {
	n := 0
	h.Each(root, func(hashkey.HashKey, any) { n++ })
	return n
}
