package registry

import (
	"ember/internal/typehash"
)

// Status is the outcome of a checked name resolution.
type Status uint8

const (
	StatusNotFound Status = iota
	StatusFound
	// StatusAmbiguous: multiple using directives at the same level brought
	// in the same name. The returned entry is the first match; callers
	// report the ambiguity.
	StatusAmbiguous
)

// ResolveType resolves a written type name against the node's current
// namespace context.
func (r *Registry) ResolveType(name string, ctx NodeID) (*TypeEntry, Status) {
	return r.ResolveTypeWith(name, ctx, nil)
}

// ResolveTypeWith resolves with an explicit using snapshot, as captured at
// declaration time by the registration pass.
//
// Lookup order: a "::"-anchored name is looked up in the root only,
// bypassing ancestors and usings. Otherwise the walk goes current → parent
// → … → root; each level checks the unit tree, then the FFI subtree at the
// same path, then that level's one-hop using targets. The first match at
// the nearest level wins.
func (r *Registry) ResolveTypeWith(name string, ctx NodeID, snap UsingSnapshot) (*TypeEntry, Status) {
	q, anchored := ParseQualifiedName(name)
	if anchored {
		if e := r.typeAtPath(RootID, q); e != nil {
			return e, StatusFound
		}
		if r.ffi != nil {
			if e := r.ffi.typeAtPath(RootID, q); e != nil {
				return e, StatusFound
			}
		}
		return nil, StatusNotFound
	}

	for level := ctx; level.IsValid(); level = r.node(level).parent {
		if e := r.typeAtPath(level, q); e != nil {
			return e, StatusFound
		}
		if e := r.ffiTypeAt(level, q); e != nil {
			return e, StatusFound
		}

		var matches []*TypeEntry
		for _, target := range r.usingsAt(level, snap) {
			if e := r.typeAtPath(target, q); e != nil {
				matches = append(matches, e)
				continue
			}
			if e := r.ffiTypeAt(target, q); e != nil {
				matches = append(matches, e)
			}
		}
		if len(matches) == 1 {
			return matches[0], StatusFound
		}
		if len(matches) > 1 {
			return matches[0], StatusAmbiguous
		}
	}
	return nil, StatusNotFound
}

// typeAtPath descends q.Namespace from the level node and looks up the
// simple name there.
func (r *Registry) typeAtPath(level NodeID, q QualifiedName) *TypeEntry {
	n := r.node(level)
	for _, seg := range q.Namespace {
		child, ok := n.children[seg]
		if !ok {
			return nil
		}
		n = r.node(child)
	}
	return n.types[q.Name]
}

// ffiTypeAt checks the FFI subtree at the same absolute path as the level
// node.
func (r *Registry) ffiTypeAt(level NodeID, q QualifiedName) *TypeEntry {
	if r.ffi == nil {
		return nil
	}
	full := r.node(level).path
	ffiNode, ok := r.ffi.GetPath(full)
	if !ok {
		return nil
	}
	return r.ffi.typeAtPath(ffiNode, q)
}

// ResolveFunctions collects the overload set for a written function name.
// The nearest level with any match wins; within that level the unit tree,
// the FFI subtree and the level's using targets all contribute overloads
// (real ambiguity is the overload resolver's business, not the name walk's).
func (r *Registry) ResolveFunctions(name string, ctx NodeID) []*FunctionEntry {
	return r.ResolveFunctionsWith(name, ctx, nil)
}

// ResolveFunctionsWith is ResolveFunctions under a captured using snapshot.
func (r *Registry) ResolveFunctionsWith(name string, ctx NodeID, snap UsingSnapshot) []*FunctionEntry {
	q, anchored := ParseQualifiedName(name)
	if anchored {
		out := r.funcsAtPath(RootID, q)
		if r.ffi != nil {
			out = append(out, r.ffi.funcsAtPath(RootID, q)...)
		}
		return out
	}

	for level := ctx; level.IsValid(); level = r.node(level).parent {
		var out []*FunctionEntry
		out = append(out, r.funcsAtPath(level, q)...)
		out = append(out, r.ffiFuncsAt(level, q)...)
		for _, target := range r.usingsAt(level, snap) {
			out = append(out, r.funcsAtPath(target, q)...)
			out = append(out, r.ffiFuncsAt(target, q)...)
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func (r *Registry) funcsAtPath(level NodeID, q QualifiedName) []*FunctionEntry {
	n := r.node(level)
	for _, seg := range q.Namespace {
		child, ok := n.children[seg]
		if !ok {
			return nil
		}
		n = r.node(child)
	}
	return n.funcs[q.Name]
}

func (r *Registry) ffiFuncsAt(level NodeID, q QualifiedName) []*FunctionEntry {
	if r.ffi == nil {
		return nil
	}
	full := r.node(level).path
	ffiNode, ok := r.ffi.GetPath(full)
	if !ok {
		return nil
	}
	return r.ffi.funcsAtPath(ffiNode, q)
}

// ResolveGlobal resolves a written global variable name.
func (r *Registry) ResolveGlobal(name string, ctx NodeID) (*GlobalEntry, Status) {
	q, anchored := ParseQualifiedName(name)
	if anchored {
		if g := r.globalAtPath(RootID, q); g != nil {
			return g, StatusFound
		}
		if r.ffi != nil {
			if g := r.ffi.globalAtPath(RootID, q); g != nil {
				return g, StatusFound
			}
		}
		return nil, StatusNotFound
	}
	for level := ctx; level.IsValid(); level = r.node(level).parent {
		if g := r.globalAtPath(level, q); g != nil {
			return g, StatusFound
		}
		if r.ffi != nil {
			full := r.node(level).path
			if ffiNode, ok := r.ffi.GetPath(full); ok {
				if g := r.ffi.globalAtPath(ffiNode, q); g != nil {
					return g, StatusFound
				}
			}
		}
		for _, target := range r.usingsAt(level, nil) {
			if g := r.globalAtPath(target, q); g != nil {
				return g, StatusFound
			}
		}
	}
	return nil, StatusNotFound
}

func (r *Registry) globalAtPath(level NodeID, q QualifiedName) *GlobalEntry {
	n := r.node(level)
	for _, seg := range q.Namespace {
		child, ok := n.children[seg]
		if !ok {
			return nil
		}
		n = r.node(child)
	}
	return n.globals[q.Name]
}

// Resolved is the sum returned by the generic Resolve entry point: exactly
// one field is populated on success.
type Resolved struct {
	Type   *TypeEntry
	Global *GlobalEntry
	Funcs  []*FunctionEntry
}

// Resolve looks a written name up as a type, then a global, then a
// function overload set.
func (r *Registry) Resolve(name string, ctx NodeID) (Resolved, Status) {
	if e, st := r.ResolveType(name, ctx); st != StatusNotFound {
		return Resolved{Type: e}, st
	}
	if g, st := r.ResolveGlobal(name, ctx); st != StatusNotFound {
		return Resolved{Global: g}, st
	}
	if fs := r.ResolveFunctions(name, ctx); len(fs) > 0 {
		return Resolved{Funcs: fs}, StatusFound
	}
	return Resolved{}, StatusNotFound
}

// IsDerivedFrom walks the resolved base chain to decide whether the class
// identified by derived inherits (directly or transitively) from base.
// Completion guarantees the chain is acyclic before anyone calls this.
func (r *Registry) IsDerivedFrom(derived, base typehash.Hash) bool {
	cur := derived
	for !cur.IsEmpty() {
		if cur == base {
			return true
		}
		e, ok := r.TypeByHash(cur)
		if !ok {
			return false
		}
		c := e.AsClass()
		if c == nil {
			return false
		}
		cur = c.Base
	}
	return false
}

// Implements reports whether the class implements the interface, directly
// or through a mixin-contributed interface (the union happens during
// completion, so the Interfaces list is authoritative here).
func (r *Registry) Implements(class, iface typehash.Hash) bool {
	e, ok := r.TypeByHash(class)
	if !ok {
		return false
	}
	for cur := e; cur != nil; {
		c := cur.AsClass()
		if c == nil {
			return false
		}
		for _, i := range c.Interfaces {
			if i == iface {
				return true
			}
		}
		if c.Base.IsEmpty() {
			return false
		}
		next, ok := r.TypeByHash(c.Base)
		if !ok {
			return false
		}
		cur = next
	}
	return false
}
