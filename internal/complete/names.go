package complete

import (
	"ember/internal/diag"
	"ember/internal/register"
	"ember/internal/registry"
	"ember/internal/typehash"
)

// resolveNames is phase 1: every pending reference is resolved against the
// namespace context captured at its declaration site and written back into
// the owning entry. Unresolvable names report UnknownType with the original
// span; the slot keeps the Empty sentinel so later phases can skip it.
func (p *Pass) resolveNames() {
	for _, ref := range p.pending.Refs() {
		entry, st := p.reg.ResolveTypeWith(ref.Written.Written, ref.Node, ref.Usings)
		switch st {
		case registry.StatusNotFound:
			p.errorf(diag.ResUnknownType, ref.Written.Span,
				"unknown type %q", ref.Written.Written)
			continue
		case registry.StatusAmbiguous:
			p.errorf(diag.ResAmbiguousName, ref.Written.Span,
				"type name %q is ambiguous between using'd namespaces", ref.Written.Written)
			continue
		}
		p.writeBack(ref, entry)
	}
	p.hashInterfaceSignatures()
}

func (p *Pass) writeBack(ref register.PendingReference, entry *registry.TypeEntry) {
	dt := registry.DataType{Type: entry.Hash, IsHandle: ref.IsHandle, IsConst: ref.IsConst}
	switch ref.Kind {
	case register.RefInherit:
		p.inherits[ref.Owner] = append(p.inherits[ref.Owner], resolvedInherit{entry: entry, written: ref})
	case register.RefParam:
		ref.Fn.Params[ref.Index].Type = dt
	case register.RefReturn:
		ref.Fn.Return = dt
	case register.RefField:
		if cls := p.class(ref.Owner); cls != nil {
			cls.OwnProperties[ref.Index].Type = dt
		}
	case register.RefGlobal:
		ref.Global.Type = dt
	case register.RefIfaceParam, register.RefIfaceReturn:
		owner, ok := p.reg.TypeByHash(ref.Owner)
		if !ok {
			return
		}
		iface := owner.AsInterface()
		if iface == nil {
			return
		}
		if ref.Kind == register.RefIfaceParam {
			iface.Methods[ref.Method].Params[ref.Index].Type = dt
		} else {
			iface.Methods[ref.Method].Return = dt
		}
	case register.RefFuncdefParam, register.RefFuncdefReturn:
		owner, ok := p.reg.TypeByHash(ref.Owner)
		if !ok {
			return
		}
		fd := owner.AsFuncdef()
		if fd == nil {
			return
		}
		if ref.Kind == register.RefFuncdefParam {
			fd.Params[ref.Index].Type = dt
		} else {
			fd.Return = dt
		}
	}
}

// hashInterfaceSignatures computes the owner-free signature hash of every
// interface method once all parameter types are resolved. The hashes drive
// ITable slot matching later.
func (p *Pass) hashInterfaceSignatures() {
	p.reg.Types(func(e *registry.TypeEntry) bool {
		iface := e.AsInterface()
		if iface == nil {
			return true
		}
		for i := range iface.Methods {
			m := &iface.Methods[i]
			sigs := make([]uint64, 0, len(m.Params))
			for _, prm := range m.Params {
				sigs = append(sigs, prm.Type.SigHash(prm.Ref))
			}
			m.SigHash = typehash.FromSignature(m.Name, sigs, m.IsConst)
		}
		return true
	})
}
