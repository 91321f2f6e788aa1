package registry

import (
	"errors"
	"testing"

	"ember/internal/ast"
	"ember/internal/source"
	"ember/internal/typehash"
)

func classEntry(ns []string, name string, unit ast.UnitID) *TypeEntry {
	return NewClass(
		typehash.FromName(NewQualifiedName(ns, name).String()),
		NewQualifiedName(ns, name),
		ScriptSource(unit),
		source.Span{},
		NewClassEntry(),
	)
}

func freeFunc(ns []string, name string, params ...typehash.Hash) *FunctionEntry {
	return &FunctionEntry{
		Hash:   typehash.FromFunction(NewQualifiedName(ns, name).String(), params),
		Name:   NewQualifiedName(ns, name),
		Source: FunctionSource{Kind: FuncScript},
	}
}

func TestGetOrCreatePathIdempotent(t *testing.T) {
	r := New()
	a := r.GetOrCreatePath([]string{"game", "ui"})
	b := r.GetOrCreatePath([]string{"game", "ui"})
	if a != b {
		t.Fatalf("same path produced two nodes: %d vs %d", a, b)
	}
	if got := r.Path(a); len(got) != 2 || got[0] != "game" || got[1] != "ui" {
		t.Fatalf("Path = %v", got)
	}
	if _, ok := r.GetPath([]string{"game", "net"}); ok {
		t.Fatal("GetPath created a missing node")
	}
}

func TestRegisterTypeDuplicate(t *testing.T) {
	r := New()
	if err := r.RegisterType([]string{"game"}, classEntry([]string{"game"}, "Player", 1)); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	err := r.RegisterType([]string{"game"}, classEntry([]string{"game"}, "Player", 1))
	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("want DuplicateError, got %v", err)
	}
	if dup.Qualified != "game::Player" {
		t.Errorf("Qualified = %q", dup.Qualified)
	}
	// Same simple name in a sibling namespace is fine.
	if err := r.RegisterType([]string{"editor"}, classEntry([]string{"editor"}, "Player", 1)); err != nil {
		t.Errorf("sibling namespace rejected: %v", err)
	}
}

func TestRegisterFunctionOverloads(t *testing.T) {
	r := New()
	f1 := freeFunc(nil, "clamp", typehash.Int32, typehash.Int32, typehash.Int32)
	f2 := freeFunc(nil, "clamp", typehash.Float, typehash.Float, typehash.Float)
	if err := r.RegisterFunction(nil, f1); err != nil {
		t.Fatalf("first overload: %v", err)
	}
	if err := r.RegisterFunction(nil, f2); err != nil {
		t.Fatalf("second overload: %v", err)
	}
	dup := freeFunc(nil, "clamp", typehash.Int32, typehash.Int32, typehash.Int32)
	if err := r.RegisterFunction(nil, dup); err == nil {
		t.Fatal("identical signature accepted")
	}
	if got := r.ResolveFunctions("clamp", RootID); len(got) != 2 {
		t.Fatalf("overload set size = %d, want 2", len(got))
	}
}

func TestResolveNearestLevelWins(t *testing.T) {
	r := New()
	outer := classEntry(nil, "Thing", 1)
	inner := classEntry([]string{"game"}, "Thing", 1)
	if err := r.RegisterType(nil, outer); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterType([]string{"game"}, inner); err != nil {
		t.Fatal(err)
	}
	ctx, _ := r.GetPath([]string{"game"})

	e, st := r.ResolveType("Thing", ctx)
	if st != StatusFound || e != inner {
		t.Fatalf("inner lookup got %v (status %d)", e, st)
	}
	// Anchored name bypasses the enclosing namespace.
	e, st = r.ResolveType("::Thing", ctx)
	if st != StatusFound || e != outer {
		t.Fatalf("anchored lookup got %v (status %d)", e, st)
	}
	// A qualified name resolves relative to the nearest level that has it.
	e, st = r.ResolveType("game::Thing", RootID)
	if st != StatusFound || e != inner {
		t.Fatalf("qualified lookup got %v (status %d)", e, st)
	}
	if _, st := r.ResolveType("Missing", ctx); st != StatusNotFound {
		t.Fatalf("missing name status = %d", st)
	}
}

func TestResolveThroughUsing(t *testing.T) {
	r := New()
	mathThing := classEntry([]string{"math"}, "Vec3", 1)
	if err := r.RegisterType([]string{"math"}, mathThing); err != nil {
		t.Fatal(err)
	}
	game := r.GetOrCreatePath([]string{"game"})
	mathNS, _ := r.GetPath([]string{"math"})
	r.AddUsing(game, mathNS)

	e, st := r.ResolveType("Vec3", game)
	if st != StatusFound || e != mathThing {
		t.Fatalf("using lookup got %v (status %d)", e, st)
	}

	// One hop only: game's using must not leak into a deeper using chain.
	deep := r.GetOrCreatePath([]string{"deep"})
	r.AddUsing(deep, game)
	if _, st := r.ResolveType("Vec3", deep); st != StatusNotFound {
		t.Fatalf("transitive using leaked, status = %d", st)
	}
}

func TestResolveUsingAmbiguity(t *testing.T) {
	r := New()
	if err := r.RegisterType([]string{"a"}, classEntry([]string{"a"}, "Dup", 1)); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterType([]string{"b"}, classEntry([]string{"b"}, "Dup", 1)); err != nil {
		t.Fatal(err)
	}
	ctx := r.GetOrCreatePath([]string{"game"})
	aNS, _ := r.GetPath([]string{"a"})
	bNS, _ := r.GetPath([]string{"b"})
	r.AddUsing(ctx, aNS)
	r.AddUsing(ctx, bNS)

	e, st := r.ResolveType("Dup", ctx)
	if st != StatusAmbiguous {
		t.Fatalf("status = %d, want ambiguous", st)
	}
	if e == nil {
		t.Fatal("ambiguous resolution returned no candidate")
	}

	// A direct declaration at the level beats both using targets.
	own := classEntry([]string{"game"}, "Dup", 1)
	if err := r.RegisterType([]string{"game"}, own); err != nil {
		t.Fatal(err)
	}
	e, st = r.ResolveType("Dup", ctx)
	if st != StatusFound || e != own {
		t.Fatalf("own declaration lost to usings: %v (status %d)", e, st)
	}
}

func TestUsingSnapshotFreezesContext(t *testing.T) {
	r := New()
	if err := r.RegisterType([]string{"late"}, classEntry([]string{"late"}, "T", 1)); err != nil {
		t.Fatal(err)
	}
	ctx := r.GetOrCreatePath([]string{"game"})
	snap := r.CaptureUsings(ctx)

	lateNS, _ := r.GetPath([]string{"late"})
	r.AddUsing(ctx, lateNS)

	if _, st := r.ResolveTypeWith("T", ctx, snap); st != StatusNotFound {
		t.Fatalf("snapshot saw a later using, status = %d", st)
	}
	if _, st := r.ResolveType("T", ctx); st != StatusFound {
		t.Fatalf("live resolution missed the using, status = %d", st)
	}
}

func TestFfiFallbackAndShadowing(t *testing.T) {
	ffi := New()
	native := NewClass(
		typehash.FromName("string"),
		NewQualifiedName(nil, "string"),
		FfiSource(),
		source.Span{},
		NewClassEntry(),
	)
	if err := ffi.RegisterType(nil, native); err != nil {
		t.Fatal(err)
	}
	ffi.Freeze()

	unit := NewUnit(ffi)
	e, st := unit.ResolveType("string", RootID)
	if st != StatusFound || e != native {
		t.Fatalf("ffi fallback got %v (status %d)", e, st)
	}

	// A script declaration at the same path shadows the native one.
	shadow := classEntry(nil, "string", 1)
	if err := unit.RegisterType(nil, shadow); err != nil {
		t.Fatal(err)
	}
	e, st = unit.ResolveType("string", RootID)
	if st != StatusFound || e != shadow {
		t.Fatalf("script entry did not shadow ffi: %v", e)
	}

	// By-hash lookup still reaches the ffi entry.
	if got, ok := unit.TypeByHash(native.Hash); !ok || got != native {
		t.Fatalf("TypeByHash ffi fallback: %v %v", got, ok)
	}

	if err := ffi.RegisterType(nil, classEntry(nil, "X", 0)); !errors.Is(err, ErrFrozen) {
		t.Fatalf("frozen registry accepted a write: %v", err)
	}
}

func TestResolveGlobal(t *testing.T) {
	r := New()
	g := &GlobalEntry{
		Hash: typehash.FromName("cfg::tickRate"),
		Name: NewQualifiedName([]string{"cfg"}, "tickRate"),
		Type: Simple(typehash.Int32),
	}
	if err := r.RegisterGlobal([]string{"cfg"}, g); err != nil {
		t.Fatal(err)
	}
	ctx := r.GetOrCreatePath([]string{"game"})
	cfg, _ := r.GetPath([]string{"cfg"})
	r.AddUsing(ctx, cfg)

	got, st := r.ResolveGlobal("tickRate", ctx)
	if st != StatusFound || got != g {
		t.Fatalf("global via using: %v (status %d)", got, st)
	}
	if got, st := r.ResolveGlobal("::cfg::tickRate", RootID); st != StatusFound || got != g {
		t.Fatalf("anchored global: %v (status %d)", got, st)
	}
}

func TestResolveGeneric(t *testing.T) {
	r := New()
	cls := classEntry(nil, "Actor", 1)
	if err := r.RegisterType(nil, cls); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterFunction(nil, freeFunc(nil, "spawn", cls.Hash)); err != nil {
		t.Fatal(err)
	}

	res, st := r.Resolve("Actor", RootID)
	if st != StatusFound || res.Type != cls {
		t.Fatalf("type resolve: %+v (status %d)", res, st)
	}
	res, st = r.Resolve("spawn", RootID)
	if st != StatusFound || len(res.Funcs) != 1 {
		t.Fatalf("func resolve: %+v (status %d)", res, st)
	}
	if _, st := r.Resolve("nothing", RootID); st != StatusNotFound {
		t.Fatalf("missing name status = %d", st)
	}
}

func TestUnloadRemovesUnitEntries(t *testing.T) {
	r := New()
	unit1 := classEntry(nil, "A", 1)
	unit2 := classEntry(nil, "B", 2)
	shared := NewClass(
		typehash.FromName("S"),
		NewQualifiedName(nil, "S"),
		SharedSource(),
		source.Span{},
		NewClassEntry(),
	)
	for _, e := range []*TypeEntry{unit1, unit2, shared} {
		if err := r.RegisterType(nil, e); err != nil {
			t.Fatal(err)
		}
	}
	f := freeFunc(nil, "tick")
	f.Unit = 1
	if err := r.RegisterFunction(nil, f); err != nil {
		t.Fatal(err)
	}

	r.Unload(1)

	if _, st := r.ResolveType("A", RootID); st != StatusNotFound {
		t.Error("unit 1 type survived unload")
	}
	if _, ok := r.TypeByHash(unit1.Hash); ok {
		t.Error("unit 1 type still indexed")
	}
	if _, st := r.ResolveType("B", RootID); st != StatusFound {
		t.Error("unit 2 type was dropped")
	}
	if _, st := r.ResolveType("S", RootID); st != StatusFound {
		t.Error("shared type was dropped")
	}
	if got := r.ResolveFunctions("tick", RootID); len(got) != 0 {
		t.Errorf("unit 1 function survived unload: %d entries", len(got))
	}

	// Primitives are never unloaded.
	if _, st := r.ResolveType("int", RootID); st != StatusFound {
		t.Error("primitive dropped by unload")
	}
}

func TestIsDerivedFromAndImplements(t *testing.T) {
	r := New()
	base := classEntry(nil, "Base", 1)
	mid := classEntry(nil, "Mid", 1)
	leaf := classEntry(nil, "Leaf", 1)
	iface := NewInterface(
		typehash.FromName("IDraw"),
		NewQualifiedName(nil, "IDraw"),
		ScriptSource(1),
		source.Span{},
		&InterfaceEntry{},
	)
	mid.AsClass().Base = base.Hash
	leaf.AsClass().Base = mid.Hash
	mid.AsClass().Interfaces = []typehash.Hash{iface.Hash}
	for _, e := range []*TypeEntry{base, mid, leaf, iface} {
		if err := r.RegisterType(nil, e); err != nil {
			t.Fatal(err)
		}
	}

	if !r.IsDerivedFrom(leaf.Hash, base.Hash) {
		t.Error("Leaf should derive from Base transitively")
	}
	if r.IsDerivedFrom(base.Hash, leaf.Hash) {
		t.Error("derivation is not symmetric")
	}
	if !r.Implements(leaf.Hash, iface.Hash) {
		t.Error("Leaf should implement IDraw through Mid")
	}
	if r.Implements(base.Hash, iface.Hash) {
		t.Error("Base does not implement IDraw")
	}
}
