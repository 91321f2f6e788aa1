// Package register implements the registration pass: one linear walk over a
// unit's declaration tree that creates registry entries from written syntax
// alone. Nothing is resolved here; every cross-type name becomes a
// PendingReference for the completion pass, which is what lets forward
// references and mutually-circular types compile from a single walk.
package register

import (
	"errors"
	"fmt"
	"math"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/registry"
	"ember/internal/typehash"
)

// Pass carries the walk state for one unit.
type Pass struct {
	reg     *registry.Registry
	rep     diag.Reporter
	unit    *ast.Unit
	pending *Pending
}

// Run walks the unit's declarations, inserts entries into the registry and
// returns the side table of deferred references. Local diagnostics
// (duplicates, bad enum values) go to the reporter without aborting the
// walk.
func Run(reg *registry.Registry, rep diag.Reporter, unit *ast.Unit) *Pending {
	p := &Pass{reg: reg, rep: rep, unit: unit, pending: &Pending{}}
	p.walk(registry.RootID, unit.Decls)
	return p.pending
}

func (p *Pass) walk(node registry.NodeID, decls []ast.Decl) {
	for _, d := range decls {
		switch d := d.(type) {
		case *ast.NamespaceDecl:
			child := p.reg.GetOrCreatePath(append(p.reg.Path(node), d.Path...))
			p.walk(child, d.Decls)
		case *ast.UsingDecl:
			// `using namespace` paths are rooted; the edge applies to
			// declarations that follow it, which the per-declaration
			// snapshots capture.
			p.reg.AddUsing(node, p.reg.GetOrCreatePath(d.Path))
		case *ast.ClassDecl:
			p.registerClass(node, d)
		case *ast.InterfaceDecl:
			p.registerInterface(node, d)
		case *ast.EnumDecl:
			p.registerEnum(node, d)
		case *ast.FuncdefDecl:
			p.registerFuncdef(node, d)
		case *ast.FuncDecl:
			p.registerFreeFunc(node, d)
		case *ast.GlobalDecl:
			p.registerGlobal(node, d)
		}
	}
}

// typeHash derives the hash for a declared type. Shared types hash by
// qualified name alone so every unit agrees on them; unit-owned types are
// salted by their unit so two modules declaring the same name never alias.
func (p *Pass) typeHash(qname registry.QualifiedName, shared bool) typehash.Hash {
	if shared {
		return typehash.FromName(qname.String())
	}
	return typehash.FromModuleType(qname.String(), uint32(p.unit.ID))
}

// funcHash hashes a function by its full written name and written parameter
// type names. Resolution has not happened yet, so the written names are the
// only signature available; they are exactly what makes two textually
// identical overloads collide, which is the duplicate we must detect here.
func funcHash(fullName string, params []ast.Param) typehash.Hash {
	hashes := make([]typehash.Hash, 0, len(params))
	for _, prm := range params {
		hashes = append(hashes, typehash.FromName(prm.Type.Name.Written))
	}
	return typehash.FromFunction(fullName, hashes)
}

func (p *Pass) context(node registry.NodeID) (registry.NodeID, registry.UsingSnapshot) {
	return node, p.reg.CaptureUsings(node)
}

func (p *Pass) registerClass(node registry.NodeID, d *ast.ClassDecl) {
	path := p.reg.Path(node)
	qname := registry.NewQualifiedName(path, d.Name)
	hash := p.typeHash(qname, d.IsShared)
	src := registry.ScriptSource(p.unit.ID)
	if d.IsShared {
		src = registry.SharedSource()
	}

	cls := registry.NewClassEntry()
	cls.IsFinal = d.IsFinal
	cls.IsAbstract = d.IsAbstract
	cls.IsMixin = d.IsMixin
	entry := registry.NewClass(hash, qname, src, d.Span, cls)

	if err := p.reg.RegisterType(path, entry); err != nil {
		p.reportRegisterError(err, d, "class", qname.String())
		return
	}

	ctxNode, snap := p.context(node)
	for i, inh := range d.Inherits {
		p.pending.Add(PendingReference{
			Owner: hash, Kind: RefInherit, Written: inh, Index: i,
			Node: ctxNode, Usings: snap,
		})
	}

	for i, f := range d.Fields {
		cls.OwnProperties = append(cls.OwnProperties, registry.PropertyEntry{
			Name:       f.Name,
			Visibility: f.Visibility,
			Decl:       f.Span,
		})
		p.pending.Add(PendingReference{
			Owner: hash, Kind: RefField, Written: f.Type.Name,
			IsHandle: f.Type.IsHandle, IsConst: f.Type.IsConst,
			Index: i, Node: ctxNode, Usings: snap,
		})
	}

	for _, m := range d.Methods {
		p.registerMethod(ctxNode, snap, qname, hash, cls, m)
	}
}

func (p *Pass) registerMethod(node registry.NodeID, snap registry.UsingSnapshot,
	owner registry.QualifiedName, ownerHash typehash.Hash,
	cls *registry.ClassEntry, m *ast.FuncDecl,
) {
	full := owner.String() + "::" + m.Name
	hash := funcHash(full, m.Params)

	for _, existing := range cls.OwnMethods[m.Name] {
		if existing == hash {
			diag.ReportError(p.rep, diag.RegDuplicateFunction, m.Span,
				fmt.Sprintf("method %q is already declared with this signature", full)).
				Emit()
			return
		}
	}

	fn := p.newFunction(hash, registry.NewQualifiedName(append(owner.Namespace, owner.Name), m.Name), m)
	fn.Owner = ownerHash
	p.reg.IndexFunction(fn)
	cls.AddOwnMethod(m.Name, hash)
	p.deferSignature(node, snap, hash, fn, m.Params, m.Return)
}

func (p *Pass) newFunction(hash typehash.Hash, qname registry.QualifiedName, m *ast.FuncDecl) *registry.FunctionEntry {
	fn := &registry.FunctionEntry{
		Hash:          hash,
		Name:          qname,
		ReturnWritten: m.Return,
		IsConst:       m.IsConst,
		Visibility:    m.Visibility,
		Source:        registry.FunctionSource{Kind: registry.FuncScript, Offset: m.CodeOffset},
		Unit:          p.unit.ID,
		Decl:          m.Span,
	}
	fn.Params = paramEntries(m.Params)
	return fn
}

func paramEntries(params []ast.Param) []registry.ParamEntry {
	out := make([]registry.ParamEntry, 0, len(params))
	for _, prm := range params {
		out = append(out, registry.ParamEntry{
			Name:       prm.Name,
			Written:    prm.Type.Name,
			Ref:        prm.Ref,
			HasDefault: prm.HasDefault,
			IsVariadic: prm.IsVariadic,
		})
	}
	return out
}

// deferSignature records one pending reference per parameter plus one for
// the return type.
func (p *Pass) deferSignature(node registry.NodeID, snap registry.UsingSnapshot,
	owner typehash.Hash, fn *registry.FunctionEntry,
	params []ast.Param, ret ast.TypeRef,
) {
	for i, prm := range params {
		p.pending.Add(PendingReference{
			Owner: owner, Kind: RefParam, Written: prm.Type.Name,
			IsHandle: prm.Type.IsHandle, IsConst: prm.Type.IsConst,
			Index: i, Fn: fn, Node: node, Usings: snap,
		})
	}
	p.pending.Add(PendingReference{
		Owner: owner, Kind: RefReturn, Written: ret.Name,
		IsHandle: ret.IsHandle, IsConst: ret.IsConst,
		Fn: fn, Node: node, Usings: snap,
	})
}

func (p *Pass) registerInterface(node registry.NodeID, d *ast.InterfaceDecl) {
	path := p.reg.Path(node)
	qname := registry.NewQualifiedName(path, d.Name)
	hash := p.typeHash(qname, d.IsShared)
	src := registry.ScriptSource(p.unit.ID)
	if d.IsShared {
		src = registry.SharedSource()
	}

	iface := &registry.InterfaceEntry{}
	for _, m := range d.Methods {
		iface.Methods = append(iface.Methods, registry.InterfaceMethodSig{
			Name:    m.Name,
			Params:  paramEntries(m.Params),
			IsConst: m.IsConst,
			Decl:    m.Span,
		})
	}
	entry := registry.NewInterface(hash, qname, src, d.Span, iface)
	if err := p.reg.RegisterType(path, entry); err != nil {
		p.reportRegisterError(err, d, "interface", qname.String())
		return
	}

	ctxNode, snap := p.context(node)
	for mi, m := range d.Methods {
		for pi, prm := range m.Params {
			p.pending.Add(PendingReference{
				Owner: hash, Kind: RefIfaceParam, Written: prm.Type.Name,
				IsHandle: prm.Type.IsHandle, IsConst: prm.Type.IsConst,
				Method: mi, Index: pi, Node: ctxNode, Usings: snap,
			})
		}
		p.pending.Add(PendingReference{
			Owner: hash, Kind: RefIfaceReturn, Written: m.Return.Name,
			IsHandle: m.Return.IsHandle, IsConst: m.Return.IsConst,
			Method: mi, Node: ctxNode, Usings: snap,
		})
	}
}

func (p *Pass) registerEnum(node registry.NodeID, d *ast.EnumDecl) {
	path := p.reg.Path(node)
	qname := registry.NewQualifiedName(path, d.Name)
	hash := p.typeHash(qname, d.IsShared)
	src := registry.ScriptSource(p.unit.ID)
	if d.IsShared {
		src = registry.SharedSource()
	}

	e := &registry.EnumEntry{}
	next := int64(0)
	for _, v := range d.Values {
		val := next
		if v.HasValue {
			val = v.Value
		}
		if val < math.MinInt32 || val > math.MaxInt32 {
			diag.ReportError(p.rep, diag.RegBadEnumValue, v.Span,
				fmt.Sprintf("enum value %q (%d) does not fit in 32 bits", v.Name, val)).
				Emit()
			next = val + 1
			continue
		}
		if _, exists := e.Find(v.Name); exists {
			diag.ReportError(p.rep, diag.RegDuplicateEnumVal, v.Span,
				fmt.Sprintf("enum value %q is already declared in %q", v.Name, qname.String())).
				Emit()
			continue
		}
		e.Values = append(e.Values, registry.EnumValueEntry{Name: v.Name, Value: val, Decl: v.Span})
		next = val + 1
	}

	entry := registry.NewEnum(hash, qname, src, d.Span, e)
	if err := p.reg.RegisterType(path, entry); err != nil {
		p.reportRegisterError(err, d, "enum", qname.String())
	}
}

func (p *Pass) registerFuncdef(node registry.NodeID, d *ast.FuncdefDecl) {
	path := p.reg.Path(node)
	qname := registry.NewQualifiedName(path, d.Name)
	hash := p.typeHash(qname, false)

	fd := &registry.FuncdefEntry{Params: paramEntries(d.Params)}
	entry := registry.NewFuncdef(hash, qname, registry.ScriptSource(p.unit.ID), d.Span, fd)
	if err := p.reg.RegisterType(path, entry); err != nil {
		p.reportRegisterError(err, d, "funcdef", qname.String())
		return
	}

	ctxNode, snap := p.context(node)
	for i, prm := range d.Params {
		p.pending.Add(PendingReference{
			Owner: hash, Kind: RefFuncdefParam, Written: prm.Type.Name,
			IsHandle: prm.Type.IsHandle, IsConst: prm.Type.IsConst,
			Index: i, Node: ctxNode, Usings: snap,
		})
	}
	p.pending.Add(PendingReference{
		Owner: hash, Kind: RefFuncdefReturn, Written: d.Return.Name,
		IsHandle: d.Return.IsHandle, IsConst: d.Return.IsConst,
		Node: ctxNode, Usings: snap,
	})
}

func (p *Pass) registerFreeFunc(node registry.NodeID, d *ast.FuncDecl) {
	path := p.reg.Path(node)
	qname := registry.NewQualifiedName(path, d.Name)
	hash := funcHash(qname.String(), d.Params)

	fn := p.newFunction(hash, qname, d)
	if err := p.reg.RegisterFunction(path, fn); err != nil {
		p.reportRegisterError(err, d, "function", qname.String())
		return
	}
	ctxNode, snap := p.context(node)
	p.deferSignature(ctxNode, snap, hash, fn, d.Params, d.Return)
}

func (p *Pass) registerGlobal(node registry.NodeID, d *ast.GlobalDecl) {
	path := p.reg.Path(node)
	qname := registry.NewQualifiedName(path, d.Name)

	g := &registry.GlobalEntry{
		Hash:       typehash.FromModuleType(qname.String(), uint32(p.unit.ID)),
		Name:       qname,
		Written:    d.Type,
		Visibility: d.Visibility,
		Source:     registry.ScriptSource(p.unit.ID),
		Decl:       d.Span,
	}
	if err := p.reg.RegisterGlobal(path, g); err != nil {
		p.reportRegisterError(err, d, "global", qname.String())
		return
	}
	ctxNode, snap := p.context(node)
	p.pending.Add(PendingReference{
		Kind: RefGlobal, Written: d.Type.Name,
		IsHandle: d.Type.IsHandle, IsConst: d.Type.IsConst,
		Global: g, Node: ctxNode, Usings: snap,
	})
}

func (p *Pass) reportRegisterError(err error, d ast.Decl, kind, qualified string) {
	var dup *registry.DuplicateError
	if errors.As(err, &dup) {
		code := diag.RegDuplicateType
		switch kind {
		case "function":
			code = diag.RegDuplicateFunction
		case "global":
			code = diag.RegDuplicateGlobal
		}
		diag.ReportError(p.rep, code, d.DeclSpan(),
			fmt.Sprintf("%s %q is already declared", kind, qualified)).
			WithNote(dup.Prev, "previous declaration is here").
			Emit()
		return
	}
	diag.ReportError(p.rep, diag.ResInvalidOperation, d.DeclSpan(),
		fmt.Sprintf("cannot register %s %q: %v", kind, qualified, err)).
		Emit()
}
