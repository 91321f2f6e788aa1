// Package complete implements the type completion pass. It consumes the
// pending registry produced by registration and runs ordered phases over
// it: resolve deferred names, validate inheritance, topologically order the
// class graph, copy inherited and mixin members, build dispatch tables and
// finalize the hash indexes. Errors accumulate; a phase only skips the
// entities whose prerequisites failed.
package complete

import (
	"fmt"
	"sort"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/register"
	"ember/internal/registry"
	"ember/internal/source"
	"ember/internal/typehash"
)

// State is how far completion got for one unit. Phases always run to the
// end; the state is informational and monotone.
type State uint8

const (
	StatePending State = iota
	StateNamesResolved
	StateInheritanceValidated
	StateTopologicallyOrdered
	StateMembersCompleted
	StateVTablesBuilt
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateNamesResolved:
		return "names-resolved"
	case StateInheritanceValidated:
		return "inheritance-validated"
	case StateTopologicallyOrdered:
		return "topologically-ordered"
	case StateMembersCompleted:
		return "members-completed"
	case StateVTablesBuilt:
		return "vtables-built"
	}
	return "invalid"
}

// mixinMethod is one method contributed by an included mixin, queued during
// member completion and installed into the vtable as if the class declared
// it.
type mixinMethod struct {
	name string
	sig  typehash.Hash
	impl typehash.Hash
}

// Pass is the completion state for one unit.
type Pass struct {
	reg     *registry.Registry
	rep     diag.Reporter
	pending *register.Pending
	unit    ast.UnitID
	state   State

	// classes are the unit's class entries, name-sorted for deterministic
	// diagnostics.
	classes []*registry.TypeEntry
	// inherits: class hash -> resolved inherit-list entries in declaration
	// order. Built by phase 1, consumed by phase 2.
	inherits map[typehash.Hash][]resolvedInherit
	// order is the topological order, bases before derived classes.
	order []*registry.TypeEntry
	// cyclic marks classes excluded by a detected inheritance cycle.
	cyclic map[typehash.Hash]bool
	// mixinAdds: class hash -> methods the class gains from its mixins.
	mixinAdds map[typehash.Hash][]mixinMethod
	// failed marks classes whose interface contract is broken.
	failed map[typehash.Hash]bool
}

// resolvedInherit is one entry of a class's inherit list after name
// resolution, before classification into base, interface or mixin.
type resolvedInherit struct {
	entry   *registry.TypeEntry
	written register.PendingReference
}

// Run executes the completion pass for one unit and returns the final
// state. The pending table is consumed; it must not be reused afterwards.
func Run(reg *registry.Registry, rep diag.Reporter, pending *register.Pending, unit ast.UnitID) State {
	p := &Pass{
		reg:       reg,
		rep:       rep,
		pending:   pending,
		unit:      unit,
		inherits:  make(map[typehash.Hash][]resolvedInherit),
		cyclic:    make(map[typehash.Hash]bool),
		mixinAdds: make(map[typehash.Hash][]mixinMethod),
		failed:    make(map[typehash.Hash]bool),
	}
	p.collectClasses()

	p.resolveNames()
	p.state = StateNamesResolved

	p.validateInheritance()
	p.state = StateInheritanceValidated

	p.sortClasses()
	p.state = StateTopologicallyOrdered

	p.completeMembers()
	p.state = StateMembersCompleted

	p.buildVTables()
	p.buildITables()
	p.finalizeIndexes()
	p.state = StateVTablesBuilt
	return p.state
}

func (p *Pass) collectClasses() {
	p.reg.Types(func(e *registry.TypeEntry) bool {
		if e.Kind == registry.KindClass && e.Source.Kind != registry.SourceFfi {
			p.classes = append(p.classes, e)
		}
		return true
	})
	sort.Slice(p.classes, func(i, j int) bool {
		return p.classes[i].Name.String() < p.classes[j].Name.String()
	})
}

func (p *Pass) class(h typehash.Hash) *registry.ClassEntry {
	e, ok := p.reg.TypeByHash(h)
	if !ok {
		return nil
	}
	return e.AsClass()
}

func (p *Pass) errorf(code diag.Code, sp source.Span, format string, args ...any) {
	diag.ReportError(p.rep, code, sp, fmt.Sprintf(format, args...)).Emit()
}
