// Package registry is the namespace-aware symbol store shared by every
// pass. The tree of namespace nodes is the compile-time resolution aid (it
// understands `using` directives and lexical nesting); the flat hash
// indexes are what the rest of the compiler addresses entries by once
// completion has run.
package registry

import (
	"fmt"

	"ember/internal/ast"
	"ember/internal/source"
	"ember/internal/typehash"
)

// node is one namespace in the tree arena.
type node struct {
	parent   NodeID
	name     string
	path     []string
	children map[string]NodeID
	usings   []NodeID

	types   map[string]*TypeEntry
	funcs   map[string][]*FunctionEntry
	globals map[string]*GlobalEntry
}

func newNode(parent NodeID, name string, path []string) *node {
	return &node{
		parent:   parent,
		name:     name,
		path:     path,
		children: make(map[string]NodeID),
		types:    make(map[string]*TypeEntry),
		funcs:    make(map[string][]*FunctionEntry),
		globals:  make(map[string]*GlobalEntry),
	}
}

// Registry owns the namespace tree plus flat hash indexes. A unit registry
// optionally chains to a frozen FFI registry that resolution consults as
// just another (read-only) namespace subtree.
type Registry struct {
	nodes []*node // arena; index 0 is the invalid sentinel

	typeIndex map[typehash.Hash]*TypeEntry
	funcIndex map[typehash.Hash]*FunctionEntry

	ffi    *Registry // read-only fallback, nil for the FFI registry itself
	frozen bool
}

// New creates a registry seeded with the primitive value types at the root.
func New() *Registry {
	r := &Registry{
		nodes:     []*node{nil, newNode(NoNodeID, "", nil)},
		typeIndex: make(map[typehash.Hash]*TypeEntry),
		funcIndex: make(map[typehash.Hash]*FunctionEntry),
	}
	r.seedPrimitives()
	return r
}

// NewUnit creates a per-unit registry chained to a frozen FFI registry.
// The FFI registry must be fully populated and frozen before any unit
// compiles; per-unit registries only ever read it.
func NewUnit(ffi *Registry) *Registry {
	r := New()
	r.ffi = ffi
	return r
}

func (r *Registry) seedPrimitives() {
	for _, p := range []struct {
		name string
		hash typehash.Hash
	}{
		{"void", typehash.Void},
		{"bool", typehash.Bool},
		{"int8", typehash.Int8},
		{"int16", typehash.Int16},
		{"int", typehash.Int32},
		{"int64", typehash.Int64},
		{"uint8", typehash.Uint8},
		{"uint16", typehash.Uint16},
		{"uint", typehash.Uint32},
		{"uint64", typehash.Uint64},
		{"float", typehash.Float},
		{"double", typehash.Double},
	} {
		entry := NewPrimitive(p.hash, p.name)
		r.node(RootID).types[p.name] = entry
		r.typeIndex[p.hash] = entry
	}
}

func (r *Registry) node(id NodeID) *node {
	return r.nodes[id]
}

// Frozen reports whether the registry rejects mutation.
func (r *Registry) Frozen() bool { return r.frozen }

// Freeze makes the registry immutable. Used for the FFI registry before
// script compilation starts; concurrent unit compiles may then read it
// without locking.
func (r *Registry) Freeze() { r.frozen = true }

// ErrFrozen is returned when a mutation hits a frozen registry.
var ErrFrozen = fmt.Errorf("registry is frozen")

// DuplicateError reports an exact-duplicate registration.
type DuplicateError struct {
	Qualified string
	Kind      string
	Prev      source.Span
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s %q", e.Kind, e.Qualified)
}

// GetOrCreatePath materializes the namespace path from the root and returns
// its node. Idempotent, so registration can see namespaces in any
// declaration order.
func (r *Registry) GetOrCreatePath(segments []string) NodeID {
	current := RootID
	for _, seg := range segments {
		n := r.node(current)
		if child, ok := n.children[seg]; ok {
			current = child
			continue
		}
		child := NodeID(len(r.nodes)) //nolint:gosec // arena size stays far below uint32
		childPath := make([]string, 0, len(n.path)+1)
		childPath = append(childPath, n.path...)
		childPath = append(childPath, seg)
		r.nodes = append(r.nodes, newNode(current, seg, childPath))
		n.children[seg] = child
		current = child
	}
	return current
}

// GetPath returns the node for an existing path without creating it.
func (r *Registry) GetPath(segments []string) (NodeID, bool) {
	current := RootID
	for _, seg := range segments {
		child, ok := r.node(current).children[seg]
		if !ok {
			return NoNodeID, false
		}
		current = child
	}
	return current, true
}

// Path returns the namespace path of a node.
func (r *Registry) Path(id NodeID) []string {
	return r.node(id).path
}

// Parent returns the enclosing namespace, or NoNodeID for the root.
func (r *Registry) Parent(id NodeID) NodeID {
	return r.node(id).parent
}

// AddUsing records a `using namespace` edge. One hop only: a using'd
// namespace's own usings are never followed.
func (r *Registry) AddUsing(from, target NodeID) {
	n := r.node(from)
	for _, u := range n.usings {
		if u == target {
			return
		}
	}
	n.usings = append(n.usings, target)
}

// UsingSnapshot freezes, per namespace node, how many using edges were
// active at a point in the registration walk. Pending references resolve
// against the snapshot so a later `using` cannot retroactively change a
// declaration's meaning.
type UsingSnapshot map[NodeID]int

// CaptureUsings snapshots the using edges visible from ctx and its
// ancestors.
func (r *Registry) CaptureUsings(ctx NodeID) UsingSnapshot {
	snap := make(UsingSnapshot)
	for id := ctx; id.IsValid(); id = r.node(id).parent {
		snap[id] = len(r.node(id).usings)
	}
	return snap
}

func (r *Registry) usingsAt(id NodeID, snap UsingSnapshot) []NodeID {
	us := r.node(id).usings
	if snap == nil {
		return us
	}
	n, ok := snap[id]
	if !ok {
		return nil
	}
	return us[:n]
}

// RegisterType inserts a type at the node for path. Fails only on an exact
// duplicate simple name at that node.
func (r *Registry) RegisterType(path []string, entry *TypeEntry) error {
	if r.frozen {
		return ErrFrozen
	}
	ns := r.GetOrCreatePath(path)
	n := r.node(ns)
	if prev, ok := n.types[entry.Name.Name]; ok {
		return &DuplicateError{Qualified: entry.Name.String(), Kind: "type", Prev: prev.Decl}
	}
	n.types[entry.Name.Name] = entry
	r.typeIndex[entry.Hash] = entry
	return nil
}

// RegisterFunction inserts a function overload. Distinct overloads of the
// same name succeed; only an identical signature (equal function hash) is a
// duplicate.
func (r *Registry) RegisterFunction(path []string, entry *FunctionEntry) error {
	if r.frozen {
		return ErrFrozen
	}
	ns := r.GetOrCreatePath(path)
	n := r.node(ns)
	for _, f := range n.funcs[entry.Name.Name] {
		if f.Hash == entry.Hash {
			return &DuplicateError{Qualified: entry.Name.String(), Kind: "function", Prev: f.Decl}
		}
	}
	n.funcs[entry.Name.Name] = append(n.funcs[entry.Name.Name], entry)
	r.funcIndex[entry.Hash] = entry
	return nil
}

// RegisterGlobal inserts a global variable; duplicates by simple name fail.
func (r *Registry) RegisterGlobal(path []string, entry *GlobalEntry) error {
	if r.frozen {
		return ErrFrozen
	}
	ns := r.GetOrCreatePath(path)
	n := r.node(ns)
	if prev, ok := n.globals[entry.Name.Name]; ok {
		return &DuplicateError{Qualified: entry.Name.String(), Kind: "global", Prev: prev.Decl}
	}
	n.globals[entry.Name.Name] = entry
	return nil
}

// IndexFunction adds a function to the flat hash index without tree
// storage. Methods live in their class's tables, not in a namespace node,
// but still must be reachable by hash.
func (r *Registry) IndexFunction(entry *FunctionEntry) {
	r.funcIndex[entry.Hash] = entry
}

// IndexType adds a completion-materialized type to the flat hash index.
func (r *Registry) IndexType(entry *TypeEntry) {
	r.typeIndex[entry.Hash] = entry
}

// TypeByHash is the O(1) flat-index lookup the bytecode compiler and the
// dispatch-table builders use. Falls back to the FFI registry.
func (r *Registry) TypeByHash(h typehash.Hash) (*TypeEntry, bool) {
	if e, ok := r.typeIndex[h]; ok {
		return e, true
	}
	if r.ffi != nil {
		return r.ffi.TypeByHash(h)
	}
	return nil, false
}

// FunctionByHash resolves a function overload by hash, falling back to the
// FFI registry.
func (r *Registry) FunctionByHash(h typehash.Hash) (*FunctionEntry, bool) {
	if e, ok := r.funcIndex[h]; ok {
		return e, true
	}
	if r.ffi != nil {
		return r.ffi.FunctionByHash(h)
	}
	return nil, false
}

// TypeName renders the qualified name for a type hash, for diagnostics.
func (r *Registry) TypeName(h typehash.Hash) string {
	if e, ok := r.TypeByHash(h); ok {
		return e.Name.String()
	}
	return typehash.Hash(h).String()
}

// Unload removes every entry owned by the unit. Shared and FFI entries
// persist. The caller must guarantee no in-flight compilation or execution
// references the unit.
func (r *Registry) Unload(unit ast.UnitID) {
	owned := func(src TypeSource) bool {
		return src.Kind == SourceScript && src.Unit == unit
	}
	for _, n := range r.nodes[1:] {
		for name, e := range n.types {
			if owned(e.Source) {
				delete(n.types, name)
				delete(r.typeIndex, e.Hash)
			}
		}
		for name, overloads := range n.funcs {
			kept := overloads[:0]
			for _, f := range overloads {
				if f.Source.Kind == FuncScript && f.Unit == unit {
					delete(r.funcIndex, f.Hash)
					continue
				}
				kept = append(kept, f)
			}
			if len(kept) == 0 {
				delete(n.funcs, name)
			} else {
				n.funcs[name] = kept
			}
		}
		for name, g := range n.globals {
			if owned(g.Source) {
				delete(n.globals, name)
			}
		}
	}
	for h, f := range r.funcIndex {
		if f.Source.Kind == FuncScript && f.Unit == unit {
			delete(r.funcIndex, h)
		}
	}
}

// Types iterates every type entry in this registry (not the FFI fallback).
func (r *Registry) Types(visit func(*TypeEntry) bool) {
	for _, n := range r.nodes[1:] {
		for _, e := range n.types {
			if !visit(e) {
				return
			}
		}
	}
}

// Functions iterates every namespace-level function entry in this registry.
func (r *Registry) Functions(visit func(*FunctionEntry) bool) {
	for _, n := range r.nodes[1:] {
		for _, overloads := range n.funcs {
			for _, f := range overloads {
				if !visit(f) {
					return
				}
			}
		}
	}
}

// Globals iterates every global entry in this registry.
func (r *Registry) Globals(visit func(*GlobalEntry) bool) {
	for _, n := range r.nodes[1:] {
		for _, g := range n.globals {
			if !visit(g) {
				return
			}
		}
	}
}
