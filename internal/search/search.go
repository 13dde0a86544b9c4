// Package search finds, for every reference fingerprint, all target
// fingerprints within a Hamming-distance threshold.
package search

import (
	"sort"

	"dedoppel/internal/fingerprint"
	"dedoppel/internal/index"
	"dedoppel/internal/vptree"
)

// Result maps each reference path to the sorted target paths whose
// fingerprint lies within the configured distance of the reference
// path's fingerprint. Reference paths with no matches are absent.
type Result map[string][]string

// Find builds a vantage-point tree over the target index and runs a
// range query for every reference fingerprint. Both indexes are read
// only. progress, if non-nil, is called once per reference fingerprint.
//
// When the reference and target sets overlap, a reference path matches
// itself at distance zero; callers wanting strict other-file semantics
// must filter such entries themselves.
func Find(ref, target *index.Index, maxDistance int, progress func()) Result {
	result := make(Result)
	if target.Len() == 0 {
		return result
	}

	tree := vptree.Build(target.Hashes())

	for _, h := range ref.Hashes() {
		matches := tree.Within(h, maxDistance)
		if progress != nil {
			progress()
		}
		if len(matches) == 0 {
			continue
		}

		matched := collectPaths(target, matches)
		for _, refPath := range ref.Paths(h) {
			result[refPath] = matched
		}
	}
	return result
}

// collectPaths unions the target paths stored under each matched
// fingerprint into one sorted list.
func collectPaths(target *index.Index, matches []fingerprint.Hash) []string {
	seen := make(map[string]struct{})
	for _, m := range matches {
		for _, p := range target.Paths(m) {
			seen[p] = struct{}{}
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
