package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed formats.yaml
var formatsYAML []byte

const (
	// DefaultThreads is the worker count used when neither the flag nor
	// DEDOPPEL_THREADS is set.
	DefaultThreads = 4

	// DefaultDistance is the maximum Hamming distance used when neither
	// the flag nor DEDOPPEL_DISTANCE is set. Zero means exact matches only.
	DefaultDistance = 0
)

type Config struct {
	Threads  int    // number of hashing workers
	Distance int    // maximum Hamming distance for matches
	Dcraw    string // raw decoder binary, defaults to "dcraw"
	Formats  FormatsConfig
}

// FormatsConfig maps file extensions to processing paths. Extensions are
// stored lowercase without the leading dot.
type FormatsConfig struct {
	Raw   []string `yaml:"raw"`
	Index []string `yaml:"index"`
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

func Load() *Config {
	var formats FormatsConfig
	if err := yaml.Unmarshal(formatsYAML, &formats); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded formats.yaml: " + err.Error())
	}

	dcraw := os.Getenv("DEDOPPEL_DCRAW")
	if dcraw == "" {
		dcraw = "dcraw"
	}

	return &Config{
		Threads:  envInt("DEDOPPEL_THREADS", DefaultThreads),
		Distance: envInt("DEDOPPEL_DISTANCE", DefaultDistance),
		Dcraw:    dcraw,
		Formats:  formats,
	}
}

// normalizeExt lowercases an extension and strips the leading dot, so both
// ".NEF" and "nef" compare equal.
func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(ext), ".")
}

// IsRawExt reports whether the extension belongs to a camera raw format
// that needs the demosaicing decode path.
func (c *Config) IsRawExt(ext string) bool {
	ext = normalizeExt(ext)
	for _, e := range c.Formats.Raw {
		if ext == e {
			return true
		}
	}
	return false
}

// IsIndexExt reports whether the extension marks a persisted fingerprint
// index rather than an image.
func (c *Config) IsIndexExt(ext string) bool {
	ext = normalizeExt(ext)
	for _, e := range c.Formats.Index {
		if ext == e {
			return true
		}
	}
	return false
}
