package overload

import (
	"fmt"
	"sort"
	"strings"

	"ember/internal/diag"
	"ember/internal/registry"
	"ember/internal/typehash"
)

// Candidate is one function considered by overload resolution, optionally
// carrying the vtable slot it was sourced from.
type Candidate struct {
	Fn      *registry.FunctionEntry
	Slot    int
	HasSlot bool
}

// Result is a successful resolution. When HasSlot is set, the slot index
// (not the hash) is what the emitter bakes into virtual and interface call
// instructions; dispatch re-reads the slot on the receiver's concrete
// class at runtime.
type Result struct {
	Fn      *registry.FunctionEntry
	Hash    typehash.Hash
	Slot    int
	HasSlot bool
	Cost    int
}

// CallError is a failed resolution, carrying the diagnostic code the call
// site should report.
type CallError struct {
	Code diag.Code
	Msg  string
}

func (e *CallError) Error() string { return e.Msg }

// MethodCandidates collects a class's overload set for a method name from
// its completed vtable.
func MethodCandidates(reg *registry.Registry, cls *registry.ClassEntry, name string) []Candidate {
	var out []Candidate
	for _, slot := range cls.VTable.SlotsByName[name] {
		fn, ok := reg.FunctionByHash(cls.VTable.Slots[slot])
		if !ok {
			continue
		}
		out = append(out, Candidate{Fn: fn, Slot: slot, HasSlot: true})
	}
	return out
}

// FreeCandidates collects a namespace-resolved overload set for a free
// function name.
func FreeCandidates(reg *registry.Registry, name string, ctx registry.NodeID) []Candidate {
	var out []Candidate
	for _, fn := range reg.ResolveFunctions(name, ctx) {
		out = append(out, Candidate{Fn: fn})
	}
	return out
}

// scored is one surviving candidate with its total conversion cost.
type scored struct {
	cand  Candidate
	cost  int
	exact int
}

// ResolveCall picks the best candidate for the given argument types.
// recvConst gates the set before ranking: through a const receiver (or
// handle-to-const) only const-declared candidates survive, even if a
// non-const one would otherwise be the unique match.
func ResolveCall(reg *registry.Registry, name string, candidates []Candidate,
	args []registry.DataType, recvConst bool,
) (Result, error) {
	if len(candidates) == 0 {
		return Result{}, &CallError{
			Code: diag.CallUnknownFunction,
			Msg:  fmt.Sprintf("unknown function %q", name),
		}
	}

	var survivors []scored
	var gated []Candidate
	for _, cand := range candidates {
		if recvConst && cand.Fn.IsMethod() && !cand.Fn.IsConst {
			gated = append(gated, cand)
			continue
		}
		s, ok := score(reg, cand, args)
		if !ok {
			continue
		}
		survivors = append(survivors, s)
	}
	if len(survivors) == 0 {
		// Distinguish "would have matched but is not const" from a plain
		// signature mismatch.
		for _, cand := range gated {
			if _, ok := score(reg, cand, args); ok {
				return Result{}, &CallError{
					Code: diag.CallConstViolation,
					Msg:  fmt.Sprintf("cannot call non-const %q through a const reference", name),
				}
			}
		}
		return Result{}, &CallError{
			Code: diag.CallNoMatchingOverload,
			Msg:  fmt.Sprintf("no matching overload for %q with %s", name, describeArgs(reg, args)),
		}
	}

	best := survivors[0]
	tied := []scored{best}
	for _, s := range survivors[1:] {
		switch {
		case s.cost < best.cost:
			best = s
			tied = tied[:0]
			tied = append(tied, s)
		case s.cost == best.cost:
			tied = append(tied, s)
		}
	}
	if len(tied) > 1 {
		// Prefer the candidate with strictly more exact-type positions.
		sort.SliceStable(tied, func(i, j int) bool { return tied[i].exact > tied[j].exact })
		if tied[0].exact == tied[1].exact {
			return Result{}, &CallError{
				Code: diag.CallAmbiguousOverload,
				Msg: fmt.Sprintf("ambiguous call to %q: %s are equally good",
					name, describeCandidates(tied)),
			}
		}
		best = tied[0]
	}
	return Result{
		Fn:      best.cand.Fn,
		Hash:    best.cand.Fn.Hash,
		Slot:    best.cand.Slot,
		HasSlot: best.cand.HasSlot,
		Cost:    best.cost,
	}, nil
}

// score rates one candidate against the argument list, or eliminates it.
func score(reg *registry.Registry, cand Candidate, args []registry.DataType) (scored, bool) {
	fn := cand.Fn
	params := fn.Params
	variadic := fn.IsVariadic()
	fixed := len(params)
	if variadic {
		fixed--
	}

	if len(args) < fixed {
		// Missing trailing arguments are allowed only against defaults.
		for _, p := range params[len(args):fixed] {
			if !p.HasDefault {
				return scored{}, false
			}
		}
	}
	if len(args) > fixed && !variadic {
		return scored{}, false
	}

	s := scored{cand: cand}
	for i, arg := range args {
		var param registry.ParamEntry
		var absorbed bool
		if i < fixed {
			param = params[i]
		} else {
			param = params[len(params)-1]
			absorbed = true
		}
		c, ok := ConversionCost(reg, arg, param.Type)
		if !ok {
			return scored{}, false
		}
		if absorbed {
			c += CostVarArg
		}
		if c == CostExact {
			s.exact++
		}
		s.cost += c
	}
	return s, true
}

func describeArgs(reg *registry.Registry, args []registry.DataType) string {
	if len(args) == 0 {
		return "no arguments"
	}
	parts := make([]string, 0, len(args))
	for _, a := range args {
		name := reg.TypeName(a.Type)
		if name == "" {
			name = a.Type.String()
		}
		if a.IsConst {
			name = "const " + name
		}
		if a.IsHandle {
			name += "@"
		}
		parts = append(parts, name)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func describeCandidates(tied []scored) string {
	parts := make([]string, 0, len(tied))
	for _, s := range tied {
		parts = append(parts, s.cand.Fn.Name.String())
	}
	sort.Strings(parts)
	return strings.Join(parts, " and ")
}
