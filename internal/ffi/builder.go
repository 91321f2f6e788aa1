// Package ffi builds the native registry the host populates before any
// script compiles. Entries arrive pre-resolved (the host knows its own
// types), so there is no registration/completion split here: the builder
// writes final entries, then Build freezes the registry for lock-free
// concurrent reads by every unit compile.
package ffi

import (
	"errors"
	"fmt"
	"sort"

	"ember/internal/registry"
	"ember/internal/source"
	"ember/internal/typehash"
)

// Builder accumulates native declarations. Errors are collected and
// surfaced once by Build, so hosts can chain registrations without
// per-call checks.
type Builder struct {
	reg  *registry.Registry
	errs []error
}

// NewBuilder starts an empty native registry (primitives pre-seeded).
func NewBuilder() *Builder {
	return &Builder{reg: registry.New()}
}

// TypeHash returns the hash a native type will be registered under, so
// hosts can reference not-yet-registered types in signatures.
func TypeHash(qualified string) typehash.Hash {
	return typehash.FromName(qualified)
}

func (b *Builder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

// ClassBuilder adds members to one native class.
type ClassBuilder struct {
	b     *Builder
	entry *registry.TypeEntry
	cls   *registry.ClassEntry
}

// Class registers a native reference type. Native classes are always
// leaves of the script inheritance graph; script classes may implement
// their interfaces but never extend them.
func (b *Builder) Class(qualified string, final bool) *ClassBuilder {
	q, _ := registry.ParseQualifiedName(qualified)
	cls := registry.NewClassEntry()
	cls.IsFinal = final
	cls.VTable = registry.NewVTable()
	entry := registry.NewClass(TypeHash(qualified), q, registry.FfiSource(), source.Span{}, cls)
	if err := b.reg.RegisterType(q.Namespace, entry); err != nil {
		b.fail("class %s: %w", qualified, err)
	}
	return &ClassBuilder{b: b, entry: entry, cls: cls}
}

// Method registers a native method and installs it into the class vtable.
func (c *ClassBuilder) Method(name string, ret registry.DataType, isConst bool, params ...registry.ParamEntry) *ClassBuilder {
	hashes := make([]typehash.Hash, 0, len(params))
	sigs := make([]uint64, 0, len(params))
	for _, p := range params {
		hashes = append(hashes, p.Type.Type)
		sigs = append(sigs, p.Type.SigHash(p.Ref))
	}
	fn := &registry.FunctionEntry{
		Hash:    typehash.FromFunction(c.entry.Name.String()+"::"+name, hashes),
		Name:    registry.NewQualifiedName(nil, name),
		Params:  params,
		Return:  ret,
		Owner:   c.entry.Hash,
		IsConst: isConst,
		Source:  registry.FunctionSource{Kind: registry.FuncNative},
	}
	c.b.reg.IndexFunction(fn)
	c.cls.AddOwnMethod(name, fn.Hash)
	c.cls.VTable.Install(name, typehash.FromSignature(name, sigs, isConst), fn.Hash)
	return c
}

// Property registers a native field.
func (c *ClassBuilder) Property(name string, t registry.DataType) *ClassBuilder {
	c.cls.OwnProperties = append(c.cls.OwnProperties, registry.PropertyEntry{Name: name, Type: t})
	c.cls.Properties = append(c.cls.Properties, registry.PropertyEntry{Name: name, Type: t})
	return c
}

// Implements records a native class as implementing a native interface.
func (c *ClassBuilder) Implements(ifaceQualified string) *ClassBuilder {
	c.cls.Interfaces = append(c.cls.Interfaces, TypeHash(ifaceQualified))
	return c
}

// Interface registers a native interface with pre-resolved method
// signatures.
func (b *Builder) Interface(qualified string, methods ...registry.InterfaceMethodSig) {
	q, _ := registry.ParseQualifiedName(qualified)
	for i := range methods {
		m := &methods[i]
		sigs := make([]uint64, 0, len(m.Params))
		for _, p := range m.Params {
			sigs = append(sigs, p.Type.SigHash(p.Ref))
		}
		m.SigHash = typehash.FromSignature(m.Name, sigs, m.IsConst)
	}
	entry := registry.NewInterface(TypeHash(qualified), q, registry.FfiSource(), source.Span{},
		&registry.InterfaceEntry{Methods: methods})
	if err := b.reg.RegisterType(q.Namespace, entry); err != nil {
		b.fail("interface %s: %w", qualified, err)
	}
}

// Enum registers a native enum from name/value pairs.
func (b *Builder) Enum(qualified string, values map[string]int64) {
	q, _ := registry.ParseQualifiedName(qualified)
	e := &registry.EnumEntry{}
	for name, v := range values {
		e.Values = append(e.Values, registry.EnumValueEntry{Name: name, Value: v})
	}
	sort.Slice(e.Values, func(i, j int) bool { return e.Values[i].Value < e.Values[j].Value })
	entry := registry.NewEnum(TypeHash(qualified), q, registry.FfiSource(), source.Span{}, e)
	if err := b.reg.RegisterType(q.Namespace, entry); err != nil {
		b.fail("enum %s: %w", qualified, err)
	}
}

// Function registers a free native function.
func (b *Builder) Function(qualified string, ret registry.DataType, params ...registry.ParamEntry) {
	q, _ := registry.ParseQualifiedName(qualified)
	hashes := make([]typehash.Hash, 0, len(params))
	for _, p := range params {
		hashes = append(hashes, p.Type.Type)
	}
	fn := &registry.FunctionEntry{
		Hash:   typehash.FromFunction(qualified, hashes),
		Name:   q,
		Params: params,
		Return: ret,
		Source: registry.FunctionSource{Kind: registry.FuncNative},
	}
	if err := b.reg.RegisterFunction(q.Namespace, fn); err != nil {
		b.fail("function %s: %w", qualified, err)
	}
}

// Global registers a native global variable.
func (b *Builder) Global(qualified string, t registry.DataType) {
	q, _ := registry.ParseQualifiedName(qualified)
	g := &registry.GlobalEntry{
		Hash:   typehash.FromName(qualified),
		Name:   q,
		Type:   t,
		Source: registry.FfiSource(),
	}
	if err := b.reg.RegisterGlobal(q.Namespace, g); err != nil {
		b.fail("global %s: %w", qualified, err)
	}
}

// Build freezes and returns the native registry, or every accumulated
// registration error. A frozen registry is safe for concurrent reads.
func (b *Builder) Build() (*registry.Registry, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	b.reg.Freeze()
	return b.reg, nil
}
