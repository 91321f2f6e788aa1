package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ember.toml", `
[package]
name = "demo"

[engine]
jobs = 2

[[unit]]
name = "game"
sources = ["scripts/player.as", "scripts/enemy.as"]

[[unit]]
name = "ui"
sources = ["scripts/hud.as"]
`)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Package.Name != "demo" {
		t.Errorf("package name = %q, want demo", m.Package.Name)
	}
	if m.Engine.Jobs != 2 {
		t.Errorf("jobs = %d, want 2", m.Engine.Jobs)
	}
	if m.Engine.MaxDiagnostics != DefaultMaxDiagnostics {
		t.Errorf("max_diagnostics default = %d, want %d", m.Engine.MaxDiagnostics, DefaultMaxDiagnostics)
	}
	if !m.Engine.Cache {
		t.Error("cache should default to true")
	}
	if len(m.Units) != 2 || m.Units[0].Name != "game" || m.Units[1].Name != "ui" {
		t.Fatalf("units = %+v", m.Units)
	}
	if m.Dir != dir {
		t.Errorf("dir = %q, want %q", m.Dir, dir)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "no package section",
			content: `[[unit]]` + "\n" + `name = "a"` + "\n" + `sources = ["a.as"]`,
			wantErr: ErrPackageSectionMissing,
		},
		{
			name:    "empty package name",
			content: "[package]\nname = \"  \"\n",
			wantErr: ErrPackageNameMissing,
		},
		{
			name:    "unit without name",
			content: "[package]\nname = \"p\"\n[[unit]]\nsources = [\"a.as\"]\n",
			wantErr: ErrUnitNameMissing,
		},
		{
			name:    "unit without sources",
			content: "[package]\nname = \"p\"\n[[unit]]\nname = \"a\"\n",
			wantErr: ErrUnitSourcesMissing,
		},
		{
			name:    "duplicate unit",
			content: "[package]\nname = \"p\"\n[[unit]]\nname = \"a\"\nsources = [\"a.as\"]\n[[unit]]\nname = \"a\"\nsources = [\"b.as\"]\n",
			wantErr: ErrDuplicateUnit,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, dir, "ember.toml", tt.content)
			if _, err := LoadManifest(path); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFindManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ember.toml", "[package]\nname = \"p\"\n")
	nested := filepath.Join(root, "scripts", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	path, ok, err := FindManifest(nested)
	if err != nil || !ok {
		t.Fatalf("FindManifest: ok=%v err=%v", ok, err)
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatal(err)
	}
	wantPath, err := filepath.EvalSymlinks(filepath.Join(root, "ember.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if resolved != wantPath {
		t.Errorf("path = %q, want %q", resolved, wantPath)
	}

	_, ok, err = FindManifest(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("found a manifest in an empty tree")
	}
}

func TestUnitDigest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.as", "class A {}")
	writeFile(t, dir, "b.as", "class B {}")
	m := &Manifest{Dir: dir}

	d1, err := m.UnitDigest(UnitSpec{Name: "u", Sources: []string{"a.as", "b.as"}})
	if err != nil {
		t.Fatal(err)
	}
	if d1.Zero() {
		t.Fatal("digest is zero")
	}

	// Source order in the manifest must not matter.
	d2, err := m.UnitDigest(UnitSpec{Name: "u", Sources: []string{"b.as", "a.as"}})
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Error("digest depends on source order")
	}

	// The unit name participates in the key.
	d3, err := m.UnitDigest(UnitSpec{Name: "v", Sources: []string{"a.as", "b.as"}})
	if err != nil {
		t.Fatal(err)
	}
	if d1 == d3 {
		t.Error("digest ignores unit name")
	}

	// Content changes invalidate.
	writeFile(t, dir, "a.as", "class A { int x; }")
	d4, err := m.UnitDigest(UnitSpec{Name: "u", Sources: []string{"a.as", "b.as"}})
	if err != nil {
		t.Fatal(err)
	}
	if d1 == d4 {
		t.Error("digest ignores content change")
	}

	if _, err := m.UnitDigest(UnitSpec{Name: "w", Sources: []string{"missing.as"}}); err == nil {
		t.Error("expected error for missing source file")
	}
}

func TestCombine(t *testing.T) {
	a := HashBytes([]byte("a"))
	b := HashBytes([]byte("b"))
	if Combine(a, b) == Combine(b, a) {
		t.Error("Combine should be order sensitive")
	}
	if Combine(a) == a {
		t.Error("Combine of one part should still rehash")
	}
}
