package complete

import (
	"sort"

	"ember/internal/ast"
	"ember/internal/registry"
	"ember/internal/typehash"
)

// completeMembers is phase 4: build each class's completed member surface,
// processed base-before-derived (the topological order guarantees a base's
// surface is final before any derived class reads it). Cyclic classes are
// not in the order and are skipped entirely.
//
// Precedence: the class's own declarations always win. For methods, a
// mixin contribution beats a base-inherited one (the reverse of the normal
// rule); when several mixins contribute the same signature the
// last-declared mixin wins. For properties, mixins have the lowest
// priority and never replace anything. Private base members are never
// copied.
func (p *Pass) completeMembers() {
	for _, e := range p.order {
		cls := e.AsClass()
		if cls.Completed {
			continue
		}
		p.completeProperties(cls)
		p.unionMixinInterfaces(cls)
		p.collectMixinMethods(e.Hash, cls)
	}
}

func (p *Pass) completeProperties(cls *registry.ClassEntry) {
	ownNames := make(map[string]bool, len(cls.OwnProperties))
	for _, prop := range cls.OwnProperties {
		ownNames[prop.Name] = true
	}

	var props []registry.PropertyEntry
	if cls.HasBase() {
		if base := p.class(cls.Base); base != nil {
			for _, prop := range base.Properties {
				if prop.Visibility == ast.Private || ownNames[prop.Name] {
					continue
				}
				props = append(props, prop)
			}
		}
	}
	props = append(props, cls.OwnProperties...)

	have := make(map[string]bool, len(props))
	for _, prop := range props {
		have[prop.Name] = true
	}
	for _, m := range cls.Mixins {
		mixin := p.class(m)
		if mixin == nil {
			continue
		}
		for _, prop := range mixin.OwnProperties {
			if have[prop.Name] {
				continue
			}
			props = append(props, prop)
			have[prop.Name] = true
		}
	}
	cls.Properties = props
}

func (p *Pass) unionMixinInterfaces(cls *registry.ClassEntry) {
	for _, m := range cls.Mixins {
		mixin := p.class(m)
		if mixin == nil {
			continue
		}
		for _, iface := range mixin.Interfaces {
			cls.Interfaces = appendUnique(cls.Interfaces, iface)
		}
	}
}

// collectMixinMethods queues every mixin method that the class does not
// declare itself. The queue feeds vtable construction, where these install
// as if they were own methods.
func (p *Pass) collectMixinMethods(class typehash.Hash, cls *registry.ClassEntry) {
	if len(cls.Mixins) == 0 {
		return
	}

	ownSigs := make(map[typehash.Hash]bool)
	for _, hashes := range cls.OwnMethods {
		for _, h := range hashes {
			if fn, ok := p.reg.FunctionByHash(h); ok {
				ownSigs[fn.SignatureHash()] = true
			}
		}
	}

	// Later mixins overwrite earlier ones at equal signature.
	bySig := make(map[typehash.Hash]mixinMethod)
	var sigOrder []typehash.Hash
	for _, m := range cls.Mixins {
		mixin := p.class(m)
		if mixin == nil {
			continue
		}
		for _, name := range sortedMethodNames(mixin.OwnMethods) {
			for _, h := range mixin.OwnMethods[name] {
				fn, ok := p.reg.FunctionByHash(h)
				if !ok {
					continue
				}
				sig := fn.SignatureHash()
				if ownSigs[sig] {
					continue
				}
				if _, seen := bySig[sig]; !seen {
					sigOrder = append(sigOrder, sig)
				}
				bySig[sig] = mixinMethod{name: name, sig: sig, impl: h}
			}
		}
	}

	adds := make([]mixinMethod, 0, len(sigOrder))
	for _, sig := range sigOrder {
		adds = append(adds, bySig[sig])
	}
	p.mixinAdds[class] = adds
}

func sortedMethodNames(methods map[string][]typehash.Hash) []string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
