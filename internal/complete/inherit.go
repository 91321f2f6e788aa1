package complete

import (
	"ember/internal/diag"
	"ember/internal/registry"
	"ember/internal/typehash"
)

// validateInheritance is phase 2: classify each class's resolved inherit
// list into base class, interfaces and mixins, rejecting the illegal
// shapes. Script classes extend only script classes; FFI types are exposed
// through interfaces, never as bases. A final base and a second base are
// rejected. Mixins may declare interfaces only; a mixin that extends a
// class is rejected both at its own declaration and at every inclusion
// site.
func (p *Pass) validateInheritance() {
	for _, e := range p.classes {
		cls := e.AsClass()
		if cls.Completed {
			continue
		}
		for _, inh := range p.inherits[e.Hash] {
			p.classifyInherit(e, cls, inh)
		}
	}
}

func (p *Pass) classifyInherit(e *registry.TypeEntry, cls *registry.ClassEntry, inh resolvedInherit) {
	sp := inh.written.Written.Span
	target := inh.entry

	switch target.Kind {
	case registry.KindInterface:
		cls.Interfaces = appendUnique(cls.Interfaces, target.Hash)
		return
	case registry.KindClass:
		// handled below
	default:
		p.errorf(diag.ResInvalidOperation, sp,
			"%q cannot inherit from %s %q", e.Name.String(), target.Kind, target.Name.String())
		return
	}

	targetCls := target.AsClass()
	if targetCls.IsMixin {
		if len(p.inherits[target.Hash]) > 0 && p.mixinHasClassBase(target.Hash) {
			p.errorf(diag.ResInvalidOperation, sp,
				"mixin %q extends a class; mixins may declare interfaces only", target.Name.String())
			return
		}
		cls.Mixins = append(cls.Mixins, target.Hash)
		return
	}

	// Plain class: a base-class candidate.
	if cls.IsMixin {
		p.errorf(diag.ResInvalidOperation, sp,
			"mixin %q may not extend class %q; mixins may declare interfaces only",
			e.Name.String(), target.Name.String())
		return
	}
	if target.Source.Kind == registry.SourceFfi {
		p.errorf(diag.ResInvalidOperation, sp,
			"%q cannot extend native type %q; native types are exposed through interfaces",
			e.Name.String(), target.Name.String())
		return
	}
	if targetCls.IsFinal {
		p.errorf(diag.ResInvalidOperation, sp,
			"%q cannot extend final class %q", e.Name.String(), target.Name.String())
		return
	}
	if cls.HasBase() {
		p.errorf(diag.ResInvalidOperation, sp,
			"%q already has a base class; %q cannot be a second one",
			e.Name.String(), target.Name.String())
		return
	}
	cls.Base = target.Hash
}

// mixinHasClassBase checks whether a mixin's own inherit list contains a
// plain (non-mixin) class.
func (p *Pass) mixinHasClassBase(mixin typehash.Hash) bool {
	for _, inh := range p.inherits[mixin] {
		if inh.entry.Kind != registry.KindClass {
			continue
		}
		if c := inh.entry.AsClass(); c != nil && !c.IsMixin {
			return true
		}
	}
	return false
}

// sortClasses is phase 3: DFS topological sort over the base-class graph so
// member copy sees every base before its derived classes. A back edge is an
// inheritance cycle; every class on it is reported and excluded from the
// remaining phases, while unrelated classes still complete.
func (p *Pass) sortClasses() {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[typehash.Hash]int, len(p.classes))

	var visit func(e *registry.TypeEntry)
	visit = func(e *registry.TypeEntry) {
		switch state[e.Hash] {
		case done:
			return
		case inProgress:
			// Back edge: the caller reports. Nothing to do here.
			return
		}
		state[e.Hash] = inProgress

		cls := e.AsClass()
		if cls.HasBase() {
			if base, ok := p.reg.TypeByHash(cls.Base); ok && base.AsClass() != nil {
				switch state[base.Hash] {
				case inProgress:
					p.errorf(diag.ResCircularInheritance, e.Decl,
						"inheritance cycle through %q and %q",
						e.Name.String(), base.Name.String())
					p.markCycle(e.Hash)
				case unvisited:
					visit(base)
					if p.cyclic[base.Hash] {
						// A derived class of a cyclic base cannot be
						// completed either.
						p.cyclic[e.Hash] = true
					}
				case done:
					if p.cyclic[base.Hash] {
						p.cyclic[e.Hash] = true
					}
				}
			}
		}

		state[e.Hash] = done
		if !p.cyclic[e.Hash] {
			p.order = append(p.order, e)
		}
	}

	for _, e := range p.classes {
		visit(e)
	}
}

// markCycle walks the base chain from the cycle entry point, marking every
// class on the loop as cyclic.
func (p *Pass) markCycle(start typehash.Hash) {
	cur := start
	for {
		if p.cyclic[cur] {
			return
		}
		p.cyclic[cur] = true
		cls := p.class(cur)
		if cls == nil || !cls.HasBase() {
			return
		}
		cur = cls.Base
		if cur == start {
			return
		}
	}
}

func appendUnique(list []typehash.Hash, h typehash.Hash) []typehash.Hash {
	for _, x := range list {
		if x == h {
			return list
		}
	}
	return append(list, h)
}
