package overload

import (
	"testing"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/registry"
	"ember/internal/typehash"
)

func retOf(typ string) ast.TypeRef { return ast.TypeRef{Name: tn(typ)} }

func TestPrimitivePromotion(t *testing.T) {
	reg := compile(t)
	cases := []struct {
		a, b, want typehash.Hash
	}{
		{typehash.Int32, typehash.Int32, typehash.Int32},
		{typehash.Int8, typehash.Int32, typehash.Int32},
		{typehash.Int32, typehash.Float, typehash.Float},
		{typehash.Float, typehash.Double, typehash.Double},
		{typehash.Int32, typehash.Uint32, typehash.Uint32},
		{typehash.Bool, typehash.Int8, typehash.Int8},
		{typehash.Uint64, typehash.Float, typehash.Float},
	}
	for _, c := range cases {
		res, err := ResolveBinary(reg, OpAdd, typ(c.a), typ(c.b))
		if err != nil {
			t.Fatalf("%v + %v: %v", c.a, c.b, err)
		}
		if res.Kind != KindPrimitive || res.Promoted != c.want {
			t.Errorf("%v + %v promoted to %v, want %v", c.a, c.b, res.Promoted, c.want)
		}
		if res.Result.Type != c.want {
			t.Errorf("%v + %v result %v, want %v", c.a, c.b, res.Result.Type, c.want)
		}
	}

	// Comparisons yield bool regardless of the promoted operand type.
	res, err := ResolveBinary(reg, OpLt, typ(typehash.Int32), typ(typehash.Float))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != KindPrimitive || res.Result.Type != typehash.Bool {
		t.Errorf("comparison result = %+v", res)
	}
}

func TestOperatorMethodAndReverse(t *testing.T) {
	reg := compile(t,
		&ast.ClassDecl{Name: "Vec", Methods: []*ast.FuncDecl{
			{Name: "opAdd", Params: []ast.Param{
				{Name: "other", Type: ast.TypeRef{Name: tn("Vec")}},
			}, Return: retOf("Vec")},
		}},
		&ast.ClassDecl{Name: "Scaled", Methods: []*ast.FuncDecl{
			{Name: "opMul_r", Params: []ast.Param{
				{Name: "factor", Type: ast.TypeRef{Name: tn("float")}},
			}, Return: retOf("Scaled")},
		}},
	)
	vec, _ := reg.ResolveType("Vec", registry.RootID)
	scaled, _ := reg.ResolveType("Scaled", registry.RootID)

	res, err := ResolveBinary(reg, OpAdd, typ(vec.Hash), typ(vec.Hash))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != KindMethod || res.Result.Type != vec.Hash {
		t.Errorf("opAdd: %+v", res)
	}

	// No opMul on float: the reverse form on the right operand resolves
	// float * Scaled.
	res, err = ResolveBinary(reg, OpMul, typ(typehash.Float), typ(scaled.Hash))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != KindReverse || res.Result.Type != scaled.Hash {
		t.Errorf("opMul_r: %+v", res)
	}
}

func TestEqualsFallsBackToCmp(t *testing.T) {
	reg := compile(t,
		&ast.ClassDecl{Name: "Ordered", Methods: []*ast.FuncDecl{
			{Name: "opCmp", IsConst: true, Params: []ast.Param{
				{Name: "other", Type: ast.TypeRef{Name: tn("Ordered")}},
			}, Return: retOf("int")},
		}},
	)
	ordered, _ := reg.ResolveType("Ordered", registry.RootID)
	o := typ(ordered.Hash)

	res, err := ResolveBinary(reg, OpEq, o, o)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != KindCmp {
		t.Errorf("== without opEquals resolved as %v, want opCmp fallback", res.Kind)
	}
	if res.Result.Type != typehash.Bool {
		t.Error("comparison does not yield bool")
	}

	// Ordering uses opCmp directly.
	res, err = ResolveBinary(reg, OpLt, o, o)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != KindCmp {
		t.Errorf("< resolved as %v", res.Kind)
	}
}

func TestEqualsPrefersOpEquals(t *testing.T) {
	reg := compile(t,
		&ast.ClassDecl{Name: "Both", Methods: []*ast.FuncDecl{
			{Name: "opEquals", IsConst: true, Params: []ast.Param{
				{Name: "other", Type: ast.TypeRef{Name: tn("Both")}},
			}, Return: retOf("bool")},
			{Name: "opCmp", IsConst: true, Params: []ast.Param{
				{Name: "other", Type: ast.TypeRef{Name: tn("Both")}},
			}, Return: retOf("int")},
		}},
	)
	both, _ := reg.ResolveType("Both", registry.RootID)
	res, err := ResolveBinary(reg, OpEq, typ(both.Hash), typ(both.Hash))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != KindMethod {
		t.Errorf("opEquals present but == resolved as %v", res.Kind)
	}
}

func TestHandleIdentity(t *testing.T) {
	reg := compile(t, &ast.ClassDecl{Name: "Obj"})
	obj, _ := reg.ResolveType("Obj", registry.RootID)
	h := registry.Handle(obj.Hash)

	res, err := ResolveBinary(reg, OpIs, h, h)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != KindIdentity || res.Result.Type != typehash.Bool {
		t.Errorf("is: %+v", res)
	}

	// null is a valid identity operand.
	if _, err := ResolveBinary(reg, OpNotIs, h, typ(typehash.Null)); err != nil {
		t.Errorf("x !is null rejected: %v", err)
	}

	// Value operands are not.
	_, err = ResolveBinary(reg, OpIs, typ(obj.Hash), typ(obj.Hash))
	if callCode(t, err) != diag.CallNoMatchingOperator {
		t.Errorf("value operand accepted by is: %v", err)
	}
}

func TestHandleIdentityPrefersHandleOpEquals(t *testing.T) {
	reg := compile(t,
		&ast.ClassDecl{Name: "Res", Methods: []*ast.FuncDecl{
			{Name: "opEquals", IsConst: true, Params: []ast.Param{
				{Name: "other", Type: ast.TypeRef{Name: tn("Res"), IsHandle: true}},
			}, Return: retOf("bool")},
		}},
	)
	res0, _ := reg.ResolveType("Res", registry.RootID)
	h := registry.Handle(res0.Hash)

	res, err := ResolveBinary(reg, OpIs, h, h)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != KindMethod {
		t.Errorf("handle opEquals not preferred: %v", res.Kind)
	}
}

func TestConstGateOnOperators(t *testing.T) {
	reg := compile(t,
		&ast.ClassDecl{Name: "Mut", Methods: []*ast.FuncDecl{
			{Name: "opAdd", Params: []ast.Param{
				{Name: "other", Type: ast.TypeRef{Name: tn("Mut")}},
			}, Return: retOf("Mut")},
		}},
	)
	mut, _ := reg.ResolveType("Mut", registry.RootID)
	constRecv := registry.DataType{Type: mut.Hash, IsConst: true}

	_, err := ResolveBinary(reg, OpAdd, constRecv, typ(mut.Hash))
	if callCode(t, err) != diag.CallNoMatchingOperator {
		t.Errorf("non-const opAdd reachable through const receiver: %v", err)
	}
}

func TestNoMatchingOperator(t *testing.T) {
	reg := compile(t, &ast.ClassDecl{Name: "Plainest"})
	p, _ := reg.ResolveType("Plainest", registry.RootID)

	_, err := ResolveBinary(reg, OpAdd, typ(p.Hash), typ(typehash.Int32))
	if callCode(t, err) != diag.CallNoMatchingOperator {
		t.Fatalf("want no-matching-operator, got %v", err)
	}
}

func TestUnaryOperators(t *testing.T) {
	reg := compile(t,
		&ast.ClassDecl{Name: "Neg", Methods: []*ast.FuncDecl{
			{Name: "opNeg", IsConst: true, Return: retOf("Neg")},
		}},
	)
	negT, _ := reg.ResolveType("Neg", registry.RootID)

	res, err := ResolveUnary(reg, OpNeg, typ(typehash.Int32))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != KindPrimitive || res.Result.Type != typehash.Int32 {
		t.Errorf("-int: %+v", res)
	}

	res, err = ResolveUnary(reg, OpNeg, typ(negT.Hash))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != KindMethod || res.Result.Type != negT.Hash {
		t.Errorf("-Neg: %+v", res)
	}

	_, err = ResolveUnary(reg, OpCompl, typ(negT.Hash))
	if callCode(t, err) != diag.CallNoMatchingOperator {
		t.Errorf("~Neg: %v", err)
	}
}
