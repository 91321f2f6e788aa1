// Package ast is the declaration tree the external parser hands to the
// registration pass. It is deliberately shallow: declarations, member
// signatures and written type names with spans, nothing the parser has not
// already validated syntactically. Expression bodies are opaque to this
// core and are represented only by their bytecode offsets.
package ast

import (
	"ember/internal/source"
)

// UnitID identifies one compilation unit (script module).
type UnitID uint32

// Unit is the parsed declaration tree for one compilation unit.
type Unit struct {
	ID    UnitID
	Name  string
	Decls []Decl
}

// Decl is any top-level or namespace-nested declaration.
type Decl interface {
	DeclSpan() source.Span
}

// Visibility of a class member.
type Visibility uint8

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "public"
	}
}

// RefKind is a parameter passing mode as written: none, &in, &out, &inout.
type RefKind uint8

const (
	RefNone RefKind = iota
	RefIn
	RefOut
	RefInOut
)

// TypeName is a type reference exactly as written at the declaration site,
// possibly qualified ("::Game::Player"). Resolution is deferred.
type TypeName struct {
	Written string
	Span    source.Span
}

// TypeRef is a written type with its handle/const decoration.
type TypeRef struct {
	Name     TypeName
	IsHandle bool // T@
	IsConst  bool // const T
}

// Param is one declared function parameter.
type Param struct {
	Name       string
	Type       TypeRef
	Ref        RefKind
	IsConst    bool // const-qualified reference
	HasDefault bool
	IsVariadic bool // must be the trailing parameter
	Span       source.Span
}

// FuncDecl declares a free function or a class method.
type FuncDecl struct {
	Name       string
	Params     []Param
	Return     TypeRef
	IsConst    bool // const method
	Visibility Visibility
	CodeOffset uint32 // bytecode offset assigned by the emitter later
	Span       source.Span
}

func (d *FuncDecl) DeclSpan() source.Span { return d.Span }

// FieldDecl declares a class property.
type FieldDecl struct {
	Name       string
	Type       TypeRef
	Visibility Visibility
	Span       source.Span
}

// ClassDecl declares a script class or a mixin class.
// Inherits lists base class, interfaces and mixins as written, in
// declaration order; classification happens during completion once the
// names resolve.
type ClassDecl struct {
	Name       string
	Inherits   []TypeName
	Methods    []*FuncDecl
	Fields     []*FieldDecl
	IsFinal    bool
	IsAbstract bool
	IsMixin    bool
	IsShared   bool
	Span       source.Span
}

func (d *ClassDecl) DeclSpan() source.Span { return d.Span }

// InterfaceMethod is one method signature required by an interface.
type InterfaceMethod struct {
	Name    string
	Params  []Param
	Return  TypeRef
	IsConst bool
	Span    source.Span
}

// InterfaceDecl declares an interface.
type InterfaceDecl struct {
	Name     string
	Methods  []InterfaceMethod
	IsShared bool
	Span     source.Span
}

func (d *InterfaceDecl) DeclSpan() source.Span { return d.Span }

// EnumValue is one named constant inside an enum declaration.
type EnumValue struct {
	Name     string
	HasValue bool
	Value    int64
	Span     source.Span
}

// EnumDecl declares an enum.
type EnumDecl struct {
	Name     string
	Values   []EnumValue
	IsShared bool
	Span     source.Span
}

func (d *EnumDecl) DeclSpan() source.Span { return d.Span }

// FuncdefDecl declares a function pointer type.
type FuncdefDecl struct {
	Name   string
	Params []Param
	Return TypeRef
	Span   source.Span
}

func (d *FuncdefDecl) DeclSpan() source.Span { return d.Span }

// GlobalDecl declares a global variable.
type GlobalDecl struct {
	Name       string
	Type       TypeRef
	Visibility Visibility
	Span       source.Span
}

func (d *GlobalDecl) DeclSpan() source.Span { return d.Span }

// NamespaceDecl nests declarations inside a (possibly multi-segment)
// namespace: `namespace A::B { ... }`.
type NamespaceDecl struct {
	Path  []string
	Decls []Decl
	Span  source.Span
}

func (d *NamespaceDecl) DeclSpan() source.Span { return d.Span }

// UsingDecl is a `using namespace A::B;` directive. It affects name
// resolution for the declarations that follow it in the same scope.
type UsingDecl struct {
	Path []string
	Span source.Span
}

func (d *UsingDecl) DeclSpan() source.Span { return d.Span }
