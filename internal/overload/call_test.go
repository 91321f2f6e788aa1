package overload

import (
	"errors"
	"testing"

	"ember/internal/ast"
	"ember/internal/complete"
	"ember/internal/diag"
	"ember/internal/ffi"
	"ember/internal/register"
	"ember/internal/registry"
	"ember/internal/typehash"
)

func tn(name string) ast.TypeName {
	return ast.TypeName{Written: name}
}

func param(name, typ string) ast.Param {
	return ast.Param{Name: name, Type: ast.TypeRef{Name: tn(typ)}}
}

func compile(t *testing.T, decls ...ast.Decl) *registry.Registry {
	t.Helper()
	reg := registry.New()
	bag := diag.NewBag(64)
	unit := &ast.Unit{ID: 1, Name: "main", Decls: decls}
	pending := register.Run(reg, diag.BagReporter{Bag: bag}, unit)
	complete.Run(reg, diag.BagReporter{Bag: bag}, pending, unit.ID)
	if bag.HasErrors() {
		t.Fatalf("setup diagnostics: %s", bag)
	}
	return reg
}

func typ(h typehash.Hash) registry.DataType { return registry.Simple(h) }

func callCode(t *testing.T, err error) diag.Code {
	t.Helper()
	var ce *CallError
	if !errors.As(err, &ce) {
		t.Fatalf("want CallError, got %v", err)
	}
	return ce.Code
}

func TestExactBeatsConversion(t *testing.T) {
	reg := compile(t,
		&ast.FuncDecl{Name: "f", Params: []ast.Param{param("x", "int")}, Return: ast.TypeRef{Name: tn("void")}},
		&ast.FuncDecl{Name: "f", Params: []ast.Param{param("x", "float")}, Return: ast.TypeRef{Name: tn("void")}},
	)
	cands := FreeCandidates(reg, "f", registry.RootID)
	if len(cands) != 2 {
		t.Fatalf("candidates = %d", len(cands))
	}

	res, err := ResolveCall(reg, "f", cands, []registry.DataType{typ(typehash.Int32)}, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Fn.Params[0].Type.Type != typehash.Int32 || res.Cost != CostExact {
		t.Errorf("picked %v at cost %d", res.Fn.Params[0].Type, res.Cost)
	}

	// With only the float overload, an int argument converts.
	reg2 := compile(t,
		&ast.FuncDecl{Name: "g", Params: []ast.Param{param("x", "float")}, Return: ast.TypeRef{Name: tn("void")}},
	)
	res, err = ResolveCall(reg2, "g", FreeCandidates(reg2, "g", registry.RootID),
		[]registry.DataType{typ(typehash.Int32)}, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Cost != CostIntToFloat {
		t.Errorf("conversion cost = %d, want %d", res.Cost, CostIntToFloat)
	}
}

func TestDefaultsAndVariadic(t *testing.T) {
	reg := compile(t,
		&ast.FuncDecl{Name: "log", Params: []ast.Param{
			param("level", "int"),
			{Name: "detail", Type: ast.TypeRef{Name: tn("int")}, HasDefault: true},
		}, Return: ast.TypeRef{Name: tn("void")}},
		&ast.FuncDecl{Name: "sum", Params: []ast.Param{
			param("first", "int"),
			{Name: "rest", Type: ast.TypeRef{Name: tn("int")}, IsVariadic: true},
		}, Return: ast.TypeRef{Name: tn("int")}},
	)

	// Shorter call matches through the default.
	if _, err := ResolveCall(reg, "log", FreeCandidates(reg, "log", registry.RootID),
		[]registry.DataType{typ(typehash.Int32)}, false); err != nil {
		t.Errorf("default-valued parameter rejected the short call: %v", err)
	}
	// Too few required args fail.
	if _, err := ResolveCall(reg, "log", FreeCandidates(reg, "log", registry.RootID),
		nil, false); err == nil {
		t.Error("missing required argument accepted")
	}

	// Variadic absorbs any number of trailing arguments.
	args := []registry.DataType{typ(typehash.Int32), typ(typehash.Int32), typ(typehash.Int32)}
	res, err := ResolveCall(reg, "sum", FreeCandidates(reg, "sum", registry.RootID), args, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Cost != 2*CostVarArg {
		t.Errorf("variadic cost = %d, want %d", res.Cost, 2*CostVarArg)
	}
}

func TestAmbiguityIsDeterministic(t *testing.T) {
	reg := compile(t,
		&ast.FuncDecl{Name: "h", Params: []ast.Param{param("x", "int8")}, Return: ast.TypeRef{Name: tn("void")}},
		&ast.FuncDecl{Name: "h", Params: []ast.Param{param("x", "int16")}, Return: ast.TypeRef{Name: tn("void")}},
	)
	// An int argument narrows to either at equal cost.
	args := []registry.DataType{typ(typehash.Int32)}
	var msgs []string
	for range 5 {
		_, err := ResolveCall(reg, "h", FreeCandidates(reg, "h", registry.RootID), args, false)
		if callCode(t, err) != diag.CallAmbiguousOverload {
			t.Fatalf("want ambiguity, got %v", err)
		}
		msgs = append(msgs, err.Error())
	}
	for _, m := range msgs[1:] {
		if m != msgs[0] {
			t.Fatalf("ambiguity message unstable: %q vs %q", msgs[0], m)
		}
	}
}

func TestNoMatchAndUnknown(t *testing.T) {
	reg := compile(t,
		&ast.ClassDecl{Name: "Widget"},
		&ast.FuncDecl{Name: "f", Params: []ast.Param{param("x", "int")}, Return: ast.TypeRef{Name: tn("void")}},
	)
	widget, _ := reg.ResolveType("Widget", registry.RootID)

	_, err := ResolveCall(reg, "f", FreeCandidates(reg, "f", registry.RootID),
		[]registry.DataType{registry.Handle(widget.Hash)}, false)
	if callCode(t, err) != diag.CallNoMatchingOverload {
		t.Errorf("want no-matching-overload, got %v", err)
	}

	_, err = ResolveCall(reg, "missing", nil, nil, false)
	if callCode(t, err) != diag.CallUnknownFunction {
		t.Errorf("want unknown-function, got %v", err)
	}
}

func TestVariableParamRanksLast(t *testing.T) {
	b := ffi.NewBuilder()
	b.Class("widget", false)
	b.Function("log", registry.Simple(typehash.Void),
		registry.ParamEntry{Name: "value", Type: registry.Simple(typehash.Variable)})
	b.Function("log", registry.Simple(typehash.Void),
		registry.ParamEntry{Name: "value", Type: registry.Simple(typehash.Double)})
	host, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	cands := FreeCandidates(host, "log", registry.RootID)
	if len(cands) != 2 {
		t.Fatalf("candidates = %d", len(cands))
	}

	// Any real conversion beats the catch-all `?` overload.
	res, err := ResolveCall(host, "log", cands, []registry.DataType{typ(typehash.Int32)}, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Fn.Params[0].Type.Type != typehash.Double {
		t.Errorf("`?` overload won over the numeric conversion")
	}
	if res.Cost != CostIntToFloat {
		t.Errorf("cost = %d, want %d", res.Cost, CostIntToFloat)
	}

	// When nothing converts, `?` absorbs the argument at its own cost.
	widget := registry.DataType{Type: ffi.TypeHash("widget"), IsHandle: true}
	res, err = ResolveCall(host, "log", cands, []registry.DataType{widget}, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Fn.Params[0].Type.Type != typehash.Variable {
		t.Fatalf("catch-all not selected: %v", res.Fn.Params[0].Type)
	}
	if res.Cost != CostVariable || CostVariable <= CostRefCast {
		t.Errorf("`?` cost = %d, must sit below every real conversion", res.Cost)
	}
}

func TestConstGate(t *testing.T) {
	reg := compile(t,
		&ast.ClassDecl{Name: "C", Methods: []*ast.FuncDecl{
			{Name: "mutate", Return: ast.TypeRef{Name: tn("void")}},
			{Name: "read", IsConst: true, Return: ast.TypeRef{Name: tn("void")}},
		}},
	)
	cls, _ := reg.ResolveType("C", registry.RootID)

	// Through a const receiver the non-const method is eliminated even as
	// the unique candidate.
	cands := MethodCandidates(reg, cls.AsClass(), "mutate")
	_, err := ResolveCall(reg, "mutate", cands, nil, true)
	if callCode(t, err) != diag.CallConstViolation {
		t.Fatalf("const gate did not eliminate: %v", err)
	}
	if _, err := ResolveCall(reg, "mutate", cands, nil, false); err != nil {
		t.Errorf("non-const receiver rejected: %v", err)
	}
	if _, err := ResolveCall(reg, "read",
		MethodCandidates(reg, cls.AsClass(), "read"), nil, true); err != nil {
		t.Errorf("const method rejected through const receiver: %v", err)
	}
}

func TestMethodResolutionCarriesSlot(t *testing.T) {
	reg := compile(t,
		&ast.ClassDecl{Name: "Base", Methods: []*ast.FuncDecl{
			{Name: "speak", Return: ast.TypeRef{Name: tn("void")}},
		}},
		&ast.ClassDecl{Name: "Derived", Inherits: []ast.TypeName{tn("Base")},
			Methods: []*ast.FuncDecl{
				{Name: "speak", Return: ast.TypeRef{Name: tn("void")}},
			}},
	)
	base, _ := reg.ResolveType("Base", registry.RootID)
	derived, _ := reg.ResolveType("Derived", registry.RootID)

	rb, err := ResolveCall(reg, "speak", MethodCandidates(reg, base.AsClass(), "speak"), nil, false)
	if err != nil {
		t.Fatal(err)
	}
	rd, err := ResolveCall(reg, "speak", MethodCandidates(reg, derived.AsClass(), "speak"), nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if !rb.HasSlot || !rd.HasSlot {
		t.Fatal("vtable-sourced resolution lost its slot")
	}
	// The override occupies the same slot with a different implementation.
	if rb.Slot != rd.Slot {
		t.Errorf("override moved slots: %d vs %d", rb.Slot, rd.Slot)
	}
	if rb.Hash == rd.Hash {
		t.Error("derived resolution returned the base implementation")
	}
}

func TestHandleConversionCosts(t *testing.T) {
	reg := compile(t,
		&ast.ClassDecl{Name: "Base"},
		&ast.ClassDecl{Name: "Derived", Inherits: []ast.TypeName{tn("Base")}},
		&ast.FuncDecl{Name: "take", Params: []ast.Param{
			{Name: "b", Type: ast.TypeRef{Name: tn("Base"), IsHandle: true}},
		}, Return: ast.TypeRef{Name: tn("void")}},
	)
	derived, _ := reg.ResolveType("Derived", registry.RootID)

	res, err := ResolveCall(reg, "take", FreeCandidates(reg, "take", registry.RootID),
		[]registry.DataType{registry.Handle(derived.Hash)}, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Cost != CostRefCast {
		t.Errorf("upcast cost = %d, want %d", res.Cost, CostRefCast)
	}

	// Null converts to any handle.
	if _, err := ResolveCall(reg, "take", FreeCandidates(reg, "take", registry.RootID),
		[]registry.DataType{typ(typehash.Null)}, false); err != nil {
		t.Errorf("null literal rejected: %v", err)
	}
}
