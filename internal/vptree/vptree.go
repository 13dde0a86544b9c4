// Package vptree implements a vantage-point tree over fingerprints with
// integer Hamming distance as the metric. Range queries return exactly
// the hashes within the radius; pruning relies on the triangle
// inequality, which Hamming distance satisfies.
package vptree

import (
	"sort"

	"dedoppel/internal/fingerprint"
)

// node is stored in a backing slice and addressed by index, so queries
// walk the arena instead of chasing per-node heap pointers.
type node struct {
	pivot  fingerprint.Hash
	median int   // split distance: inner subtree holds points at distance <= median from pivot
	inner  int32 // arena index, -1 if empty
	outer  int32 // arena index, -1 if empty
}

// Tree is an immutable vantage-point tree. Safe for concurrent queries
// once built.
type Tree struct {
	nodes []node
}

// Build constructs a tree over the given hashes. Construction is
// deterministic: the first hash of each partition becomes its pivot.
func Build(hashes []fingerprint.Hash) *Tree {
	t := &Tree{nodes: make([]node, 0, len(hashes))}
	if len(hashes) > 0 {
		items := make([]fingerprint.Hash, len(hashes))
		copy(items, hashes)
		t.build(items)
	}
	return t
}

// Len returns the number of fingerprints in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// build adds a subtree for items and returns its arena index, or -1 for
// an empty partition.
func (t *Tree) build(items []fingerprint.Hash) int32 {
	if len(items) == 0 {
		return -1
	}

	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{pivot: items[0], inner: -1, outer: -1})

	rest := items[1:]
	if len(rest) == 0 {
		return idx
	}

	// Order the remaining points by distance to the pivot and split at
	// the median distance. Ties are broken by hash value so the tree
	// shape does not depend on input order.
	sort.Slice(rest, func(i, j int) bool {
		di := fingerprint.Distance(items[0], rest[i])
		dj := fingerprint.Distance(items[0], rest[j])
		if di != dj {
			return di < dj
		}
		return rest[i] < rest[j]
	})

	median := fingerprint.Distance(items[0], rest[(len(rest)-1)/2])

	// All points at distance <= median go inner. split is the first
	// index beyond them; it is always >= 1, so both recursions shrink.
	split := sort.Search(len(rest), func(i int) bool {
		return fingerprint.Distance(items[0], rest[i]) > median
	})

	t.nodes[idx].median = median
	inner := t.build(rest[:split])
	outer := t.build(rest[split:])
	t.nodes[idx].inner = inner
	t.nodes[idx].outer = outer
	return idx
}

// Within returns every stored hash whose Hamming distance to q is at
// most radius. The result is exactly the brute-force answer.
func (t *Tree) Within(q fingerprint.Hash, radius int) []fingerprint.Hash {
	if len(t.nodes) == 0 || radius < 0 {
		return nil
	}

	var found []fingerprint.Hash
	stack := []int32{0}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[idx]

		d := fingerprint.Distance(q, n.pivot)
		if d <= radius {
			found = append(found, n.pivot)
		}

		// Inner subtree holds points at distance <= median from the
		// pivot; it can contain a match only if d - radius <= median.
		// Outer holds distances > median; only if d + radius > median.
		if n.inner >= 0 && d-radius <= n.median {
			stack = append(stack, n.inner)
		}
		if n.outer >= 0 && d+radius > n.median {
			stack = append(stack, n.outer)
		}
	}
	return found
}
