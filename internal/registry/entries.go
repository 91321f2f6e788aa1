package registry

import (
	"ember/internal/ast"
	"ember/internal/source"
	"ember/internal/typehash"
)

// TypeSourceKind tells where a type entry came from.
type TypeSourceKind uint8

const (
	// SourceFfi marks native types registered by the host before any
	// script compiles. Never mutated, never completed by this core.
	SourceFfi TypeSourceKind = iota
	// SourceScript marks types owned by one compilation unit.
	SourceScript
	// SourceShared marks script types shared across units.
	SourceShared
)

// TypeSource is the provenance of an entry; Script entries carry their
// owning unit so unloading a module can remove exactly its entries.
type TypeSource struct {
	Kind TypeSourceKind
	Unit ast.UnitID
}

func FfiSource() TypeSource                { return TypeSource{Kind: SourceFfi} }
func ScriptSource(u ast.UnitID) TypeSource { return TypeSource{Kind: SourceScript, Unit: u} }
func SharedSource() TypeSource             { return TypeSource{Kind: SourceShared} }

// EntryKind discriminates the TypeEntry variant.
type EntryKind uint8

const (
	KindClass EntryKind = iota
	KindInterface
	KindEnum
	KindFuncdef
	KindPrimitive
)

func (k EntryKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindFuncdef:
		return "funcdef"
	case KindPrimitive:
		return "primitive"
	}
	return "invalid"
}

// DataType is a resolved type reference: the type hash plus handle and
// const decoration.
type DataType struct {
	Type     typehash.Hash
	IsHandle bool
	IsConst  bool
}

// Simple builds an undecorated DataType.
func Simple(h typehash.Hash) DataType { return DataType{Type: h} }

// Handle builds a handle DataType (T@).
func Handle(h typehash.Hash) DataType { return DataType{Type: h, IsHandle: true} }

// SigHash folds the data type with a passing mode into a parameter
// signature component for vtable override matching.
func (dt DataType) SigHash(ref ast.RefKind) uint64 {
	return typehash.ParamSig(dt.Type, typehash.RefMod(ref), dt.IsConst)
}

// TypeEntry is the tagged variant stored per namespace node: exactly one of
// the capability pointers is non-nil, matching Kind.
type TypeEntry struct {
	Kind   EntryKind
	Hash   typehash.Hash
	Name   QualifiedName
	Source TypeSource
	Decl   source.Span

	class   *ClassEntry
	iface   *InterfaceEntry
	enum    *EnumEntry
	funcdef *FuncdefEntry
}

// NewClass builds a class TypeEntry.
func NewClass(hash typehash.Hash, name QualifiedName, src TypeSource, decl source.Span, c *ClassEntry) *TypeEntry {
	return &TypeEntry{Kind: KindClass, Hash: hash, Name: name, Source: src, Decl: decl, class: c}
}

// NewInterface builds an interface TypeEntry.
func NewInterface(hash typehash.Hash, name QualifiedName, src TypeSource, decl source.Span, i *InterfaceEntry) *TypeEntry {
	return &TypeEntry{Kind: KindInterface, Hash: hash, Name: name, Source: src, Decl: decl, iface: i}
}

// NewEnum builds an enum TypeEntry.
func NewEnum(hash typehash.Hash, name QualifiedName, src TypeSource, decl source.Span, e *EnumEntry) *TypeEntry {
	return &TypeEntry{Kind: KindEnum, Hash: hash, Name: name, Source: src, Decl: decl, enum: e}
}

// NewFuncdef builds a funcdef TypeEntry.
func NewFuncdef(hash typehash.Hash, name QualifiedName, src TypeSource, decl source.Span, f *FuncdefEntry) *TypeEntry {
	return &TypeEntry{Kind: KindFuncdef, Hash: hash, Name: name, Source: src, Decl: decl, funcdef: f}
}

// NewPrimitive builds an entry for a built-in value type.
func NewPrimitive(hash typehash.Hash, name string) *TypeEntry {
	return &TypeEntry{Kind: KindPrimitive, Hash: hash, Name: QualifiedName{Name: name}, Source: FfiSource()}
}

// AsClass returns the class payload, or nil for other kinds.
func (e *TypeEntry) AsClass() *ClassEntry {
	if e == nil {
		return nil
	}
	return e.class
}

// AsInterface returns the interface payload, or nil for other kinds.
func (e *TypeEntry) AsInterface() *InterfaceEntry {
	if e == nil {
		return nil
	}
	return e.iface
}

// AsEnum returns the enum payload, or nil for other kinds.
func (e *TypeEntry) AsEnum() *EnumEntry {
	if e == nil {
		return nil
	}
	return e.enum
}

// AsFuncdef returns the funcdef payload, or nil for other kinds.
func (e *TypeEntry) AsFuncdef() *FuncdefEntry {
	if e == nil {
		return nil
	}
	return e.funcdef
}

// PropertyEntry is one class field.
type PropertyEntry struct {
	Name       string
	Type       DataType
	Visibility ast.Visibility
	Decl       source.Span
}

// ClassEntry carries everything the compiler knows about a class. Own*
// tables hold only members declared directly on the class (reflection);
// the completed member surface lives in the vtable and Properties.
type ClassEntry struct {
	// Base is the resolved base class, Empty until completion resolves it
	// and always Empty for mixins.
	Base       typehash.Hash
	Interfaces []typehash.Hash
	Mixins     []typehash.Hash

	// OwnMethods: simple name -> overload hashes declared on this class.
	OwnMethods map[string][]typehash.Hash
	// OwnProperties: fields declared on this class.
	OwnProperties []PropertyEntry

	// Properties is the completed field surface: own + inherited + mixin.
	Properties []PropertyEntry

	VTable  VTable
	ITables map[typehash.Hash]*ITable

	IsFinal    bool
	IsAbstract bool
	IsMixin    bool

	// Completed flips when the completion pass finishes this class; a
	// second completion run must be a no-op.
	Completed bool
}

// NewClassEntry allocates an empty class payload.
func NewClassEntry() *ClassEntry {
	return &ClassEntry{
		OwnMethods: make(map[string][]typehash.Hash),
		ITables:    make(map[typehash.Hash]*ITable),
	}
}

// AddOwnMethod records a method declared directly on the class.
func (c *ClassEntry) AddOwnMethod(name string, fn typehash.Hash) {
	c.OwnMethods[name] = append(c.OwnMethods[name], fn)
}

// HasBase reports whether a base class has been resolved.
func (c *ClassEntry) HasBase() bool { return !c.Base.IsEmpty() }

// FindProperty returns the completed property with the given name.
func (c *ClassEntry) FindProperty(name string) *PropertyEntry {
	for i := range c.Properties {
		if c.Properties[i].Name == name {
			return &c.Properties[i]
		}
	}
	return nil
}

// InterfaceMethodSig is one required interface method.
type InterfaceMethodSig struct {
	Name    string
	Params  []ParamEntry
	Return  DataType
	IsConst bool
	// SigHash is the owner-free signature hash, filled at completion.
	SigHash typehash.Hash
	Decl    source.Span
}

// InterfaceEntry lists required methods in declaration order; the order is
// the ITable slot layout for every implementing class.
type InterfaceEntry struct {
	Methods []InterfaceMethodSig
}

// EnumEntry maps constant names to values.
type EnumEntry struct {
	Values []EnumValueEntry
}

// EnumValueEntry is one named enum constant.
type EnumValueEntry struct {
	Name  string
	Value int64
	Decl  source.Span
}

// Find returns the value for a constant name.
func (e *EnumEntry) Find(name string) (int64, bool) {
	for _, v := range e.Values {
		if v.Name == name {
			return v.Value, true
		}
	}
	return 0, false
}

// FuncdefEntry is a function pointer type; its signature resolves during
// completion like any other pending reference.
type FuncdefEntry struct {
	Params []ParamEntry
	Return DataType
}

// FunctionSourceKind tells where a function implementation lives.
type FunctionSourceKind uint8

const (
	// FuncNative is a host FFI function.
	FuncNative FunctionSourceKind = iota
	// FuncScript is compiled bytecode at Offset.
	FuncScript
	// FuncImport binds at runtime to a function in another module.
	FuncImport
	// FuncExternal references a shared entity declared elsewhere.
	FuncExternal
)

// FunctionSource is the provenance of a function body.
type FunctionSource struct {
	Kind   FunctionSourceKind
	Offset uint32 // FuncScript: bytecode offset
	Module string // FuncImport: source module name
}

// ParamEntry is one resolved (or, before completion, pending) parameter.
type ParamEntry struct {
	Name       string
	Type       DataType // Type is Empty until completion resolves it
	Written    ast.TypeName
	Ref        ast.RefKind
	HasDefault bool
	IsVariadic bool
}

// FunctionEntry describes one function overload: free function, method, or
// interface method implementation.
type FunctionEntry struct {
	Hash   typehash.Hash
	Name   QualifiedName
	Params []ParamEntry
	Return DataType
	// ReturnWritten keeps the written return type until completion.
	ReturnWritten ast.TypeRef

	// Owner is the owning class or interface, Empty for free functions.
	Owner      typehash.Hash
	IsConst    bool
	Visibility ast.Visibility
	Source     FunctionSource
	Unit       ast.UnitID
	Decl       source.Span
}

// IsMethod reports whether the function belongs to a type.
func (f *FunctionEntry) IsMethod() bool { return !f.Owner.IsEmpty() }

// RequiredParams counts parameters without defaults, ignoring a trailing
// variadic.
func (f *FunctionEntry) RequiredParams() int {
	n := 0
	for _, p := range f.Params {
		if p.IsVariadic {
			continue
		}
		if !p.HasDefault {
			n++
		}
	}
	return n
}

// IsVariadic reports whether the last parameter absorbs extra arguments.
func (f *FunctionEntry) IsVariadic() bool {
	return len(f.Params) > 0 && f.Params[len(f.Params)-1].IsVariadic
}

// SignatureHash computes the owner-free, return-free override shape of the
// function for vtable slot matching.
func (f *FunctionEntry) SignatureHash() typehash.Hash {
	sigs := make([]uint64, 0, len(f.Params))
	for _, p := range f.Params {
		sigs = append(sigs, p.Type.SigHash(p.Ref))
	}
	return typehash.FromSignature(f.Name.Name, sigs, f.IsConst)
}

// GlobalEntry is one global variable.
type GlobalEntry struct {
	Hash       typehash.Hash
	Name       QualifiedName
	Type       DataType
	Written    ast.TypeRef
	Visibility ast.Visibility
	Source     TypeSource
	Decl       source.Span
}
