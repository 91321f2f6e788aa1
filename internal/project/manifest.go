// Package project loads ember.toml manifests and computes the content
// digests the compile cache is keyed by.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file the project root is identified by.
const ManifestName = "ember.toml"

var (
	// ErrPackageSectionMissing indicates that [package] is missing.
	ErrPackageSectionMissing = errors.New("missing [package]")
	// ErrPackageNameMissing indicates that [package].name is missing or empty.
	ErrPackageNameMissing = errors.New("missing [package].name")
	// ErrUnitNameMissing indicates a [[unit]] entry without a name.
	ErrUnitNameMissing = errors.New("missing [[unit]].name")
	// ErrUnitSourcesMissing indicates a [[unit]] entry without sources.
	ErrUnitSourcesMissing = errors.New("missing [[unit]].sources")
	// ErrDuplicateUnit indicates two [[unit]] entries sharing one name.
	ErrDuplicateUnit = errors.New("duplicate [[unit]].name")
)

// Package is the [package] section of ember.toml.
type Package struct {
	Name string `toml:"name"`
}

// Engine is the [engine] section: knobs passed through to the driver.
type Engine struct {
	MaxDiagnostics int  `toml:"max_diagnostics"`
	Jobs           int  `toml:"jobs"`
	Cache          bool `toml:"cache"`
}

// UnitSpec is one [[unit]] entry: a named compilation unit and the
// script files that make it up, relative to the manifest directory.
type UnitSpec struct {
	Name    string   `toml:"name"`
	Sources []string `toml:"sources"`
}

// Manifest is a parsed ember.toml.
type Manifest struct {
	Package Package    `toml:"package"`
	Engine  Engine     `toml:"engine"`
	Units   []UnitSpec `toml:"unit"`

	// Dir is the directory the manifest was loaded from.
	Dir string `toml:"-"`
}

// DefaultMaxDiagnostics caps per-unit diagnostics when the manifest
// leaves [engine].max_diagnostics unset.
const DefaultMaxDiagnostics = 64

// LoadManifest parses and validates an ember.toml file.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return nil, fmt.Errorf("%s: %w", path, ErrPackageSectionMissing)
	}
	if strings.TrimSpace(m.Package.Name) == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrPackageNameMissing)
	}
	if !meta.IsDefined("engine", "max_diagnostics") {
		m.Engine.MaxDiagnostics = DefaultMaxDiagnostics
	}
	if !meta.IsDefined("engine", "cache") {
		m.Engine.Cache = true
	}

	seen := make(map[string]struct{}, len(m.Units))
	for i := range m.Units {
		u := &m.Units[i]
		u.Name = strings.TrimSpace(u.Name)
		if u.Name == "" {
			return nil, fmt.Errorf("%s: unit %d: %w", path, i, ErrUnitNameMissing)
		}
		if _, dup := seen[u.Name]; dup {
			return nil, fmt.Errorf("%s: %q: %w", path, u.Name, ErrDuplicateUnit)
		}
		seen[u.Name] = struct{}{}
		if len(u.Sources) == 0 {
			return nil, fmt.Errorf("%s: %q: %w", path, u.Name, ErrUnitSourcesMissing)
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	m.Dir = filepath.Dir(abs)
	return &m, nil
}

// FindManifest walks up from startDir to locate ember.toml.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// UnitDigest hashes a unit's name and the contents of its source files.
// Source paths are sorted so file order in the manifest does not matter.
func (m *Manifest) UnitDigest(u UnitSpec) (Digest, error) {
	paths := make([]string, len(u.Sources))
	copy(paths, u.Sources)
	sort.Strings(paths)

	parts := make([]Digest, 0, len(paths)+1)
	parts = append(parts, HashBytes([]byte(u.Name)))
	for _, rel := range paths {
		d, err := HashFile(filepath.Join(m.Dir, rel))
		if err != nil {
			return Digest{}, fmt.Errorf("unit %q: %w", u.Name, err)
		}
		parts = append(parts, d)
	}
	return Combine(parts...), nil
}
