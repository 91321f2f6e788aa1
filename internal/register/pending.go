package register

import (
	"ember/internal/ast"
	"ember/internal/registry"
	"ember/internal/typehash"
)

// RefKind tells the completion pass where a resolved type lands.
type RefKind uint8

const (
	// RefInherit is one entry of a class's inherit list. Whether it is the
	// base class, an interface or a mixin is decided after resolution.
	RefInherit RefKind = iota
	// RefParam is a function or method parameter type.
	RefParam
	// RefReturn is a function or method return type.
	RefReturn
	// RefField is a class property type.
	RefField
	// RefGlobal is a global variable type.
	RefGlobal
	// RefIfaceParam is an interface method parameter type.
	RefIfaceParam
	// RefIfaceReturn is an interface method return type.
	RefIfaceReturn
	// RefFuncdefParam is a funcdef parameter type.
	RefFuncdefParam
	// RefFuncdefReturn is a funcdef return type.
	RefFuncdefReturn
)

func (k RefKind) String() string {
	switch k {
	case RefInherit:
		return "inherit"
	case RefParam:
		return "param"
	case RefReturn:
		return "return"
	case RefField:
		return "field"
	case RefGlobal:
		return "global"
	case RefIfaceParam:
		return "iface-param"
	case RefIfaceReturn:
		return "iface-return"
	case RefFuncdefParam:
		return "funcdef-param"
	case RefFuncdefReturn:
		return "funcdef-return"
	}
	return "invalid"
}

// PendingReference is one deferred cross-type name, recorded during the
// registration walk and resolved exactly once by completion. It lives in
// a side table, never inside the registry entries it will patch.
type PendingReference struct {
	// Owner is the hash of the entry the reference belongs to.
	Owner typehash.Hash
	Kind  RefKind

	// Written is the name exactly as it appeared at the declaration site.
	Written ast.TypeName
	// IsHandle and IsConst carry the written decoration so completion can
	// build the final DataType.
	IsHandle bool
	IsConst  bool

	// Index addresses the slot inside the owner: inherit-list position,
	// parameter index, or own-property index. Unused for returns.
	Index int
	// Method addresses the interface method for RefIfaceParam/Return.
	Method int

	// Fn is the write-back target for RefParam and RefReturn.
	Fn *registry.FunctionEntry
	// Global is the write-back target for RefGlobal.
	Global *registry.GlobalEntry

	// Node and Usings are the namespace context captured at declaration
	// time; resolution must use them, not the completion pass's position.
	Node   registry.NodeID
	Usings registry.UsingSnapshot
}

// Pending is the side table of deferred references for one unit.
type Pending struct {
	refs []PendingReference
}

// Add appends a deferred reference.
func (p *Pending) Add(ref PendingReference) {
	p.refs = append(p.refs, ref)
}

// Refs returns every deferred reference in registration order. The stable
// order makes diagnostics deterministic for a given unit.
func (p *Pending) Refs() []PendingReference {
	return p.refs
}

// Len reports how many references are outstanding.
func (p *Pending) Len() int { return len(p.refs) }

// Inherits returns the deferred inherit-list entries of one class, in
// declaration order.
func (p *Pending) Inherits(owner typehash.Hash) []PendingReference {
	var out []PendingReference
	for _, r := range p.refs {
		if r.Kind == RefInherit && r.Owner == owner {
			out = append(out, r)
		}
	}
	return out
}
