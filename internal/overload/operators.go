package overload

import (
	"fmt"

	"ember/internal/diag"
	"ember/internal/registry"
	"ember/internal/typehash"
)

// Op is a resolvable operator. The short-circuit logical operators
// (&&, ||, ^^) are deliberately absent: they are never overloadable and
// the emitter lowers them structurally before this resolver runs.
type Op uint8

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpUShr
	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
	OpIs
	OpNotIs

	// Unary.
	OpNeg
	OpCompl
	OpNot
	OpPreInc
	OpPreDec
)

// behavior is the method-name pair an operator maps to.
type behavior struct {
	primary string
	reverse string
}

var binaryBehaviors = map[Op]behavior{
	OpAdd:    {"opAdd", "opAdd_r"},
	OpSub:    {"opSub", "opSub_r"},
	OpMul:    {"opMul", "opMul_r"},
	OpDiv:    {"opDiv", "opDiv_r"},
	OpMod:    {"opMod", "opMod_r"},
	OpPow:    {"opPow", "opPow_r"},
	OpBitAnd: {"opAnd", "opAnd_r"},
	OpBitOr:  {"opOr", "opOr_r"},
	OpBitXor: {"opXor", "opXor_r"},
	OpShl:    {"opShl", "opShl_r"},
	OpShr:    {"opShr", "opShr_r"},
	OpUShr:   {"opUShr", "opUShr_r"},
}

var unaryBehaviors = map[Op]string{
	OpNeg:    "opNeg",
	OpCompl:  "opCom",
	OpNot:    "opNot",
	OpPreInc: "opPreInc",
	OpPreDec: "opPreDec",
}

func (o Op) isComparison() bool {
	switch o {
	case OpEq, OpNeq, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

func (o Op) isEquality() bool { return o == OpEq || o == OpNeq }

// OpKind tells the emitter which shape the resolved operation takes.
type OpKind uint8

const (
	// KindPrimitive is a direct primitive instruction after numeric
	// promotion; no method is involved.
	KindPrimitive OpKind = iota
	// KindMethod is primary-behavior dispatch on the left (or sole)
	// operand.
	KindMethod
	// KindReverse is reverse-behavior dispatch on the right operand with
	// the left as the argument.
	KindReverse
	// KindCmp is an opCmp call on the left operand whose result is
	// compared against zero.
	KindCmp
	// KindCmpReverse is opCmp on the right operand; the comparison
	// direction is flipped.
	KindCmpReverse
	// KindIdentity is raw handle-pointer comparison for is/!is.
	KindIdentity
)

// OpResult is a resolved operator application.
type OpResult struct {
	Kind OpKind
	// Call is the resolved method for the method-backed kinds.
	Call Result
	// Promoted is the common operand type for KindPrimitive.
	Promoted typehash.Hash
	// Result is the type the operation yields.
	Result registry.DataType
}

// ResolveBinary resolves a binary operator application per the fixed
// ladder: primitive promotion first, then primary/reverse behavior
// methods, then the opCmp fallback for comparisons, then handle identity
// for is/!is. The const gate applies to every method attempt.
func ResolveBinary(reg *registry.Registry, op Op, left, right registry.DataType) (OpResult, error) {
	if op == OpIs || op == OpNotIs {
		return resolveIdentity(reg, op, left, right)
	}

	if !left.IsHandle && !right.IsHandle {
		if promoted, ok := Promote(left.Type, right.Type); ok {
			res := registry.Simple(promoted)
			if op.isComparison() {
				res = registry.Simple(typehash.Bool)
			}
			return OpResult{Kind: KindPrimitive, Promoted: promoted, Result: res}, nil
		}
	}

	if op.isComparison() {
		return resolveComparison(reg, op, left, right)
	}

	beh, ok := binaryBehaviors[op]
	if !ok {
		return OpResult{}, noOperator(reg, op, left, right)
	}
	if r, err := methodOp(reg, beh.primary, left, right); err == nil {
		return OpResult{Kind: KindMethod, Call: r, Result: r.Fn.Return}, nil
	}
	if r, err := methodOp(reg, beh.reverse, right, left); err == nil {
		return OpResult{Kind: KindReverse, Call: r, Result: r.Fn.Return}, nil
	}
	return OpResult{}, noOperator(reg, op, left, right)
}

// ResolveUnary resolves a unary operator: primitive fast path, then the
// behavior method on the operand. Unary operators have no reverse form.
func ResolveUnary(reg *registry.Registry, op Op, operand registry.DataType) (OpResult, error) {
	name, ok := unaryBehaviors[op]
	if !ok {
		return OpResult{}, noOperator(reg, op, operand, registry.DataType{})
	}

	if !operand.IsHandle {
		if _, numeric := numericInfo(operand.Type); numeric {
			res := operand
			if op == OpNot {
				res = registry.Simple(typehash.Bool)
			}
			return OpResult{Kind: KindPrimitive, Promoted: operand.Type, Result: res}, nil
		}
	}

	r, err := methodCallOn(reg, name, operand, nil)
	if err != nil {
		return OpResult{}, &CallError{
			Code: diag.CallNoMatchingOperator,
			Msg:  fmt.Sprintf("no %s operator for type %s", name, typeLabel(reg, operand)),
		}
	}
	return OpResult{Kind: KindMethod, Call: r, Result: r.Fn.Return}, nil
}

// resolveComparison handles ==, !=, <, <=, >, >=. Equality prefers
// opEquals on either side and falls back to opCmp compared against zero;
// ordering uses opCmp only.
func resolveComparison(reg *registry.Registry, op Op, left, right registry.DataType) (OpResult, error) {
	boolRes := registry.Simple(typehash.Bool)

	if op.isEquality() {
		if r, err := methodOp(reg, "opEquals", left, right); err == nil {
			return OpResult{Kind: KindMethod, Call: r, Result: boolRes}, nil
		}
		if r, err := methodOp(reg, "opEquals", right, left); err == nil {
			return OpResult{Kind: KindReverse, Call: r, Result: boolRes}, nil
		}
	}
	if r, err := methodOp(reg, "opCmp", left, right); err == nil {
		return OpResult{Kind: KindCmp, Call: r, Result: boolRes}, nil
	}
	if r, err := methodOp(reg, "opCmp", right, left); err == nil {
		return OpResult{Kind: KindCmpReverse, Call: r, Result: boolRes}, nil
	}
	return OpResult{}, noOperator(reg, op, left, right)
}

// resolveIdentity handles is/!is: handle operands only. An opEquals
// overload taking a handle wins if one exists; raw pointer comparison is
// the always-available fallback and the common case.
func resolveIdentity(reg *registry.Registry, op Op, left, right registry.DataType) (OpResult, error) {
	if !left.IsHandle && left.Type != typehash.Null {
		return OpResult{}, noOperator(reg, op, left, right)
	}
	if !right.IsHandle && right.Type != typehash.Null {
		return OpResult{}, noOperator(reg, op, left, right)
	}

	if cls := classOf(reg, left.Type); cls != nil {
		for _, cand := range MethodCandidates(reg, cls, "opEquals") {
			if len(cand.Fn.Params) == 1 && cand.Fn.Params[0].Type.IsHandle {
				if r, err := ResolveCall(reg, "opEquals", []Candidate{cand},
					[]registry.DataType{right}, left.IsConst); err == nil {
					return OpResult{Kind: KindMethod, Call: r, Result: registry.Simple(typehash.Bool)}, nil
				}
			}
		}
	}
	return OpResult{Kind: KindIdentity, Result: registry.Simple(typehash.Bool)}, nil
}

// methodOp resolves one behavior method on the receiver with a single
// argument, honoring the receiver's constness.
func methodOp(reg *registry.Registry, name string, recv, arg registry.DataType) (Result, error) {
	return methodCallOn(reg, name, recv, []registry.DataType{arg})
}

func methodCallOn(reg *registry.Registry, name string, recv registry.DataType, args []registry.DataType) (Result, error) {
	cls := classOf(reg, recv.Type)
	if cls == nil {
		return Result{}, &CallError{Code: diag.CallUnknownFunction, Msg: "receiver is not a class"}
	}
	cands := MethodCandidates(reg, cls, name)
	return ResolveCall(reg, name, cands, args, recv.IsConst)
}

func classOf(reg *registry.Registry, h typehash.Hash) *registry.ClassEntry {
	e, ok := reg.TypeByHash(h)
	if !ok {
		return nil
	}
	return e.AsClass()
}

func noOperator(reg *registry.Registry, op Op, left, right registry.DataType) error {
	if right == (registry.DataType{}) {
		return &CallError{
			Code: diag.CallNoMatchingOperator,
			Msg:  fmt.Sprintf("no matching operator for type %s", typeLabel(reg, left)),
		}
	}
	return &CallError{
		Code: diag.CallNoMatchingOperator,
		Msg: fmt.Sprintf("no matching operator between %s and %s",
			typeLabel(reg, left), typeLabel(reg, right)),
	}
}

func typeLabel(reg *registry.Registry, dt registry.DataType) string {
	name := reg.TypeName(dt.Type)
	if name == "" {
		name = dt.Type.String()
	}
	if dt.IsConst {
		name = "const " + name
	}
	if dt.IsHandle {
		name += "@"
	}
	return name
}
