// Package index holds the mapping from perceptual fingerprints to the
// file paths that produced them, and its persisted JSON form.
package index

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"dedoppel/internal/fingerprint"
)

// Index is a multimap from fingerprint to the set of file paths sharing
// that exact fingerprint. A fingerprint never maps to an empty set.
type Index struct {
	entries map[fingerprint.Hash]map[string]struct{}
}

func New() *Index {
	return &Index{entries: make(map[fingerprint.Hash]map[string]struct{})}
}

// Add records path under hash.
func (x *Index) Add(h fingerprint.Hash, path string) {
	set, ok := x.entries[h]
	if !ok {
		set = make(map[string]struct{})
		x.entries[h] = set
	}
	set[path] = struct{}{}
}

// Merge folds every entry of other into x, unioning path sets for
// fingerprints present in both.
func (x *Index) Merge(other *Index) {
	for h, paths := range other.entries {
		for p := range paths {
			x.Add(h, p)
		}
	}
}

// Len returns the number of distinct fingerprints.
func (x *Index) Len() int {
	return len(x.entries)
}

// Hashes returns the distinct fingerprints in sorted order.
func (x *Index) Hashes() []fingerprint.Hash {
	hashes := make([]fingerprint.Hash, 0, len(x.entries))
	for h := range x.entries {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	return hashes
}

// Paths returns the sorted paths recorded under hash, or nil if the
// fingerprint is not present.
func (x *Index) Paths(h fingerprint.Hash) []string {
	set, ok := x.entries[h]
	if !ok {
		return nil
	}
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Equal reports whether two indexes hold the same fingerprints with the
// same path sets.
func (x *Index) Equal(y *Index) bool {
	if len(x.entries) != len(y.entries) {
		return false
	}
	for h, paths := range x.entries {
		other, ok := y.entries[h]
		if !ok || len(paths) != len(other) {
			return false
		}
		for p := range paths {
			if _, ok := other[p]; !ok {
				return false
			}
		}
	}
	return true
}

// Load reads a persisted index: a JSON object whose keys are fingerprint
// text representations and whose values are lists of paths. A corrupted
// index cannot be partially trusted, so any parse failure is an error.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index %s: %w", path, err)
	}

	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing index %s: %w", path, err)
	}

	x := New()
	for key, paths := range raw {
		h, err := fingerprint.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("parsing index %s: %w", path, err)
		}
		for _, p := range paths {
			x.Add(h, p)
		}
	}
	return x, nil
}

// Save writes the index as JSON: one key per fingerprint text form, value
// the sorted list of its paths.
func (x *Index) Save(w io.Writer) error {
	out := make(map[string][]string, len(x.entries))
	for h := range x.entries {
		out[h.String()] = x.Paths(h)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	return nil
}

// WriteFile saves the index to dest, or to stdout when dest is empty.
func WriteFile(x *Index, dest string) error {
	if dest == "" {
		return x.Save(os.Stdout)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating output %s: %w", dest, err)
	}
	defer f.Close()

	if err := x.Save(f); err != nil {
		return err
	}
	return f.Close()
}
