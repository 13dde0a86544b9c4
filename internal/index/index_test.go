package index

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"dedoppel/internal/fingerprint"
)

func TestAdd(t *testing.T) {
	x := New()
	x.Add(0xAB, "a.jpg")
	x.Add(0xAB, "b.jpg")
	x.Add(0xAB, "a.jpg") // duplicate path
	x.Add(0xCD, "c.jpg")

	if x.Len() != 2 {
		t.Errorf("Len() = %d; want 2", x.Len())
	}
	if got := x.Paths(0xAB); !reflect.DeepEqual(got, []string{"a.jpg", "b.jpg"}) {
		t.Errorf("Paths(0xAB) = %v; want [a.jpg b.jpg]", got)
	}
	if got := x.Paths(0xCD); !reflect.DeepEqual(got, []string{"c.jpg"}) {
		t.Errorf("Paths(0xCD) = %v; want [c.jpg]", got)
	}
	if got := x.Paths(0xEF); got != nil {
		t.Errorf("Paths(0xEF) = %v; want nil", got)
	}
}

func TestHashesSorted(t *testing.T) {
	x := New()
	x.Add(0xFF, "a")
	x.Add(0x01, "b")
	x.Add(0x10, "c")

	want := []fingerprint.Hash{0x01, 0x10, 0xFF}
	if got := x.Hashes(); !reflect.DeepEqual(got, want) {
		t.Errorf("Hashes() = %v; want %v", got, want)
	}
}

func TestMerge(t *testing.T) {
	x := New()
	x.Add(0x01, "a.jpg")
	x.Add(0x02, "b.jpg")

	y := New()
	y.Add(0x01, "a.jpg") // same entry
	y.Add(0x01, "c.jpg") // same hash, new path
	y.Add(0x03, "d.jpg") // new hash

	x.Merge(y)

	if x.Len() != 3 {
		t.Errorf("Len() = %d; want 3", x.Len())
	}
	if got := x.Paths(0x01); !reflect.DeepEqual(got, []string{"a.jpg", "c.jpg"}) {
		t.Errorf("Paths(0x01) = %v; want [a.jpg c.jpg]", got)
	}
	if got := x.Paths(0x02); !reflect.DeepEqual(got, []string{"b.jpg"}) {
		t.Errorf("Paths(0x02) = %v; want [b.jpg]", got)
	}
	if got := x.Paths(0x03); !reflect.DeepEqual(got, []string{"d.jpg"}) {
		t.Errorf("Paths(0x03) = %v; want [d.jpg]", got)
	}
}

func TestEqual(t *testing.T) {
	build := func(entries map[fingerprint.Hash][]string) *Index {
		x := New()
		for h, paths := range entries {
			for _, p := range paths {
				x.Add(h, p)
			}
		}
		return x
	}

	tests := []struct {
		name     string
		a, b     *Index
		expected bool
	}{
		{"both empty", New(), New(), true},
		{
			"same entries",
			build(map[fingerprint.Hash][]string{0x1: {"a", "b"}}),
			build(map[fingerprint.Hash][]string{0x1: {"b", "a"}}),
			true,
		},
		{
			"different hash",
			build(map[fingerprint.Hash][]string{0x1: {"a"}}),
			build(map[fingerprint.Hash][]string{0x2: {"a"}}),
			false,
		},
		{
			"different paths",
			build(map[fingerprint.Hash][]string{0x1: {"a"}}),
			build(map[fingerprint.Hash][]string{0x1: {"a", "b"}}),
			false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.expected {
				t.Errorf("Equal() = %v; want %v", got, tc.expected)
			}
			if got := tc.b.Equal(tc.a); got != tc.expected {
				t.Errorf("Equal() reversed = %v; want %v", got, tc.expected)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	x := New()
	x.Add(0x0123456789ABCDEF, "photos/a.jpg")
	x.Add(0x0123456789ABCDEF, "photos/b.jpg")
	x.Add(0xFFFFFFFFFFFFFFFF, "photos/c.nef")

	path := filepath.Join(t.TempDir(), "index.json")
	if err := WriteFile(x, path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !x.Equal(loaded) {
		t.Error("loaded index should equal the saved one")
	}
}

func TestSaveFormat(t *testing.T) {
	x := New()
	x.Add(0xAB, "b.jpg")
	x.Add(0xAB, "a.jpg")

	var buf bytes.Buffer
	if err := x.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var raw map[string][]string
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("saved index should be valid JSON: %v", err)
	}

	paths, ok := raw["00000000000000ab"]
	if !ok {
		t.Fatalf("saved index keys = %v; want hex key 00000000000000ab", raw)
	}
	if !reflect.DeepEqual(paths, []string{"a.jpg", "b.jpg"}) {
		t.Errorf("saved paths = %v; want sorted [a.jpg b.jpg]", paths)
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "nope.json")},
		{"not json", write("garbage.json", "not json at all")},
		{"wrong shape", write("shape.json", `["a", "b"]`)},
		{"bad key", write("badkey.json", `{"xyz": ["a.jpg"]}`)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(tc.path); err == nil {
				t.Error("Load should fail")
			}
		})
	}
}
