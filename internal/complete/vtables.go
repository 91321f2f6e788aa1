package complete

import (
	"sort"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/registry"
	"ember/internal/typehash"
)

// buildVTables is phase 5. Each class starts from a copy of its base
// class's table, then installs its own methods (an equal signature
// overwrites the inherited slot in place, so call sites compiled against
// the base keep dispatching correctly) and finally the mixin-contributed
// methods queued by phase 4.
func (p *Pass) buildVTables() {
	for _, e := range p.order {
		cls := e.AsClass()
		if cls.Completed {
			continue
		}
		vt := registry.NewVTable()
		if cls.HasBase() {
			if base := p.class(cls.Base); base != nil {
				vt = p.inheritableVTable(base)
			}
		}
		for _, name := range sortedMethodNames(cls.OwnMethods) {
			for _, h := range cls.OwnMethods[name] {
				fn, ok := p.reg.FunctionByHash(h)
				if !ok {
					continue
				}
				vt.Install(name, fn.SignatureHash(), h)
			}
		}
		for _, mm := range p.mixinAdds[e.Hash] {
			vt.Install(mm.name, mm.sig, mm.impl)
		}
		cls.VTable = vt
	}
}

// inheritableVTable copies a base class's table minus its private methods.
// A private method exists only inside its declaring class: it never shows
// up in a derived overload set and is not an override target, so a derived
// method with the same signature gets a fresh slot. Slot indexes of the
// surviving methods are untouched.
func (p *Pass) inheritableVTable(base *registry.ClassEntry) registry.VTable {
	vt := base.VTable.Clone()
	for name, slots := range vt.SlotsByName {
		kept := slots[:0]
		for _, slot := range slots {
			fn, ok := p.reg.FunctionByHash(vt.Slots[slot])
			if ok && fn.Visibility == ast.Private {
				delete(vt.SignatureIndex, fn.SignatureHash())
				continue
			}
			kept = append(kept, slot)
		}
		if len(kept) == 0 {
			delete(vt.SlotsByName, name)
		} else {
			vt.SlotsByName[name] = kept
		}
	}
	return vt
}

// buildITables is phase 6. For every implemented interface, direct or
// contributed by a mixin or the base chain, lay out one slot per interface
// method in declaration order and fill it with the class's concrete
// implementation. An unfilled slot on a non-abstract class is a broken
// contract.
func (p *Pass) buildITables() {
	for _, e := range p.order {
		cls := e.AsClass()
		if cls.Completed || cls.IsMixin {
			continue
		}
		for _, iface := range p.effectiveInterfaces(cls) {
			p.buildITable(e, cls, iface)
		}
	}
}

// effectiveInterfaces is the class's own interface list plus everything the
// base chain already satisfies, in a deterministic order.
func (p *Pass) effectiveInterfaces(cls *registry.ClassEntry) []typehash.Hash {
	set := make(map[typehash.Hash]bool)
	var out []typehash.Hash
	add := func(h typehash.Hash) {
		if !set[h] {
			set[h] = true
			out = append(out, h)
		}
	}
	for _, h := range cls.Interfaces {
		add(h)
	}
	if cls.HasBase() {
		if base := p.class(cls.Base); base != nil {
			for h := range base.ITables {
				add(h)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return p.reg.TypeName(out[i]) < p.reg.TypeName(out[j])
	})
	return out
}

func (p *Pass) buildITable(e *registry.TypeEntry, cls *registry.ClassEntry, iface typehash.Hash) {
	entry, ok := p.reg.TypeByHash(iface)
	if !ok {
		return
	}
	ifaceEntry := entry.AsInterface()
	if ifaceEntry == nil {
		return
	}

	it := registry.NewITable(iface, len(ifaceEntry.Methods))
	for mi, m := range ifaceEntry.Methods {
		slot, found := cls.VTable.SignatureIndex[m.SigHash]
		if found {
			it.Slots[mi] = cls.VTable.Slots[slot]
			continue
		}
		if !cls.IsAbstract {
			p.errorf(diag.ResMissingInterfaceMethod, e.Decl,
				"%q does not implement %q required by interface %q",
				e.Name.String(), m.Name, entry.Name.String())
			p.failed[e.Hash] = true
		}
	}
	cls.ITables[iface] = it
}

// finalizeIndexes is phase 7: synthesize the default constructor for every
// instantiable class that declares no constructor of its own, make the new
// entries reachable by hash, and flip the per-class completion flag so a
// second run is a no-op. A class with a broken interface contract is not
// instantiable: it gets no constructor and stays incomplete.
func (p *Pass) finalizeIndexes() {
	for _, e := range p.order {
		cls := e.AsClass()
		if cls.Completed || p.failed[e.Hash] {
			continue
		}
		if !cls.IsMixin && len(cls.OwnMethods[e.Name.Name]) == 0 {
			p.synthesizeDefaultCtor(e, cls)
		}
		cls.Completed = true
	}
}

func (p *Pass) synthesizeDefaultCtor(e *registry.TypeEntry, cls *registry.ClassEntry) {
	ctorName := e.Name.Name
	qname := registry.NewQualifiedName(append(e.Name.Namespace, e.Name.Name), ctorName)
	fn := &registry.FunctionEntry{
		Hash:   typehash.FromFunction(e.Name.String()+"::"+ctorName, nil),
		Name:   qname,
		Return: registry.Simple(typehash.Void),
		Owner:  e.Hash,
		Source: registry.FunctionSource{Kind: registry.FuncScript},
		Unit:   p.unit,
		Decl:   e.Decl,
	}
	p.reg.IndexFunction(fn)
	cls.AddOwnMethod(ctorName, fn.Hash)
}
