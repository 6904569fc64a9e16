// Package idgen provides the monotonic id allocator threaded through every
// synthesizing call the closure-iterator pass makes. No mutable state is
// shared between separate Transform calls beyond one injected IdGenerator.
//
// It plays the same role as pkg/compiler/regalloc.go's RegisterAllocator
// does for bytecode compilation, stripped of register-specific concepts (no
// free list, no pinning): ids minted here back synthesized symbols,
// temporaries, and env-record fields, and are never reused — the empty-state
// folding pass reassigns ids wholesale instead of recycling freed ones.
package idgen

import "strconv"

// IdGenerator hands out fresh, process-unique integers.
type IdGenerator struct {
	next int
}

// New creates an IdGenerator starting at zero.
func New() *IdGenerator {
	return &IdGenerator{}
}

// Next returns the next unused id.
func (g *IdGenerator) Next() int {
	id := g.next
	g.next++
	return id
}

// NextName returns a fresh synthetic identifier name built from prefix,
// e.g. NextName("tmp") -> "tmp$3". Used whenever the pass needs to name a
// hidden variable or temporary it introduces.
func (g *IdGenerator) NextName(prefix string) string {
	return prefix + "$" + strconv.Itoa(g.Next())
}
