// Package model defines the structural model of a decoded compiled unit:
// types, their members, visibility and modifiers.
//
// Model trees are built once by a decoder and are read-only afterwards.
package model

import "strings"

// Scope is the visibility of an item. Values are ordered by accessibility
// breadth, so comparing two scopes tells narrowing from widening.
type Scope int

const (
	Private Scope = iota
	Package
	Protected
	Public
)

func (s Scope) String() string {
	switch s {
	case Private:
		return "private"
	case Package:
		return "package"
	case Protected:
		return "protected"
	case Public:
		return "public"
	default:
		return "unknown"
	}
}

// Modifiers is a set of modifier flags.
type Modifiers uint8

const (
	Static Modifiers = 1 << iota
	Final
	Abstract
	Synthetic
	Deprecated
)

// Has reports whether every flag in m is set.
func (s Modifiers) Has(m Modifiers) bool {
	return s&m == m
}

func (s Modifiers) String() string {
	var parts []string
	for _, f := range []struct {
		flag Modifiers
		name string
	}{
		{Static, "static"},
		{Final, "final"},
		{Abstract, "abstract"},
		{Synthetic, "synthetic"},
		{Deprecated, "deprecated"},
	} {
		if s.Has(f.flag) {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, " ")
}

// Kind distinguishes the flavours of Type.
type Kind string

const (
	Class      Kind = "class"
	Interface  Kind = "interface"
	Enum       Kind = "enum"
	Annotation Kind = "annotation"
)

// Item is implemented by *Type, *Method and *Field only.
type Item interface {
	Name() string
	Owner() *Type
	Visibility() Scope
	Modifiers() Modifiers
	// Label is the human noun for the item ("class", "method", "field", ...).
	Label() string

	sealed()
}

// Attribute is an attribute record the decoder does not model further.
type Attribute struct {
	Name string
	Data []byte
}

type base struct {
	name       string
	owner      *Type
	visibility Scope
	modifiers  Modifiers
	attributes []Attribute
}

func (b *base) Name() string            { return b.name }
func (b *base) Owner() *Type            { return b.owner }
func (b *base) Visibility() Scope       { return b.visibility }
func (b *base) Modifiers() Modifiers    { return b.modifiers }
func (b *base) Attributes() []Attribute { return b.attributes }
func (b *base) IsStatic() bool          { return b.modifiers.Has(Static) }
func (b *base) IsFinal() bool           { return b.modifiers.Has(Final) }
func (b *base) IsAbstract() bool        { return b.modifiers.Has(Abstract) }
func (b *base) IsSynthetic() bool       { return b.modifiers.Has(Synthetic) }
func (b *base) IsDeprecated() bool      { return b.modifiers.Has(Deprecated) }
func (*base) sealed()                   {}

// FormatVersion is the binary format version of a unit. Source units carry
// the zero value.
type FormatVersion struct {
	Major uint16
	Minor uint16
}

// TypeSpec carries the attributes of a Type at construction time.
type TypeSpec struct {
	Name       string
	Kind       Kind
	Visibility Scope
	Modifiers  Modifiers
	Signature  string
	SuperName  string
	Interfaces []string
	Version    FormatVersion
	SourceFile string
	// DeclaringName names the enclosing type of a member type whose owner
	// lives in another unit. The registry resolves it to Owner.
	DeclaringName string
}

// Type is a class, interface, enum or annotation.
type Type struct {
	base
	kind          Kind
	signature     string
	superName     string
	interfaces    []string
	version       FormatVersion
	sourceFile    string
	declaringName string

	methods []*Method
	fields  []*Field
	nested  []*Type

	// Lookup indexes, maintained by AddMethod and AddField.
	methodIndex map[string]*Method
	fieldIndex  map[string]*Field
}

// NewType creates a type. owner is nil for top-level types.
func NewType(owner *Type, spec TypeSpec) *Type {
	t := &Type{
		base: base{
			name:       NormalizeName(spec.Name),
			owner:      owner,
			visibility: spec.Visibility,
			modifiers:  spec.Modifiers,
		},
		kind:          spec.Kind,
		signature:     spec.Signature,
		superName:     NormalizeName(spec.SuperName),
		version:       spec.Version,
		sourceFile:    spec.SourceFile,
		declaringName: NormalizeName(spec.DeclaringName),
	}
	if t.kind == "" {
		t.kind = Class
	}
	for _, in := range spec.Interfaces {
		t.interfaces = append(t.interfaces, NormalizeName(in))
	}
	if owner != nil && t.declaringName == "" {
		t.declaringName = owner.name
	}
	return t
}

func (t *Type) Kind() Kind               { return t.kind }
func (t *Type) Signature() string        { return t.signature }
func (t *Type) SuperName() string        { return t.superName }
func (t *Type) Interfaces() []string     { return t.interfaces }
func (t *Type) Version() FormatVersion   { return t.version }
func (t *Type) SourceFile() string       { return t.sourceFile }
func (t *Type) DeclaringName() string    { return t.declaringName }
func (t *Type) Methods() []*Method       { return t.methods }
func (t *Type) Fields() []*Field         { return t.fields }
func (t *Type) Nested() []*Type          { return t.nested }
func (t *Type) Label() string            { return string(t.kind) }
func (t *Type) DisplayName() string      { return DisplayName(t.name) }
func (t *Type) AddAttribute(a Attribute) { t.attributes = append(t.attributes, a) }

// AddMethod appends a method; insertion order is preserved. When methods
// share a key the index keeps the first non-synthetic one, else the first.
func (t *Type) AddMethod(m *Method) {
	t.methods = append(t.methods, m)
	if t.methodIndex == nil {
		t.methodIndex = make(map[string]*Method)
	}
	if prev, ok := t.methodIndex[m.key]; !ok || (prev.IsSynthetic() && !m.IsSynthetic()) {
		t.methodIndex[m.key] = m
	}
}

// AddField appends a field; insertion order is preserved. The first field
// added under a name is the one Field returns.
func (t *Type) AddField(f *Field) {
	t.fields = append(t.fields, f)
	if t.fieldIndex == nil {
		t.fieldIndex = make(map[string]*Field)
	}
	if _, ok := t.fieldIndex[f.name]; !ok {
		t.fieldIndex[f.name] = f
	}
}

// AddNested appends a nested type reference.
func (t *Type) AddNested(n *Type) { t.nested = append(t.nested, n) }

// Field returns the field called name, or nil.
func (t *Type) Field(name string) *Field {
	return t.fieldIndex[name]
}

// Method returns the method with the given identity key (see Method.Key),
// preferring a non-synthetic method when a bridge shares the key.
func (t *Type) Method(key string) *Method {
	return t.methodIndex[key]
}

// SetSourceFile records the source file name. Decoders call it before the
// type is published.
func (t *Type) SetSourceFile(name string) { t.sourceFile = name }

// SetSignature records the generic signature. Decoders call it before the
// type is published.
func (t *Type) SetSignature(sig string) { t.signature = sig }

// Refine replaces visibility and modifiers. Decoders use it when a later
// record of the unit (an inner-class entry) carries the authoritative flags.
func (t *Type) Refine(visibility Scope, mods Modifiers, declaringName string) {
	t.visibility = visibility
	t.modifiers = mods
	if declaringName != "" {
		t.declaringName = NormalizeName(declaringName)
	}
}

// MethodSpec carries the attributes of a Method at construction time.
type MethodSpec struct {
	Name       string
	Visibility Scope
	Modifiers  Modifiers
	Parameters []string
	Return     string
	Signature  string
	Exceptions []string
	FirstLine  int
	Attributes []Attribute
}

// Method is a method or constructor of a Type.
type Method struct {
	base
	parameters []string
	ret        string
	signature  string
	exceptions []string
	firstLine  int
	key        string
}

// NewMethod creates a method owned by owner. It does not add it to owner.
func NewMethod(owner *Type, spec MethodSpec) *Method {
	m := &Method{
		base: base{
			name:       spec.Name,
			owner:      owner,
			visibility: spec.Visibility,
			modifiers:  spec.Modifiers,
			attributes: spec.Attributes,
		},
		parameters: spec.Parameters,
		ret:        spec.Return,
		signature:  spec.Signature,
		firstLine:  spec.FirstLine,
	}
	for _, e := range spec.Exceptions {
		m.exceptions = append(m.exceptions, NormalizeName(e))
	}
	m.key = m.name + m.ParameterDescriptor()
	return m
}

func (m *Method) Parameters() []string { return m.parameters }
func (m *Method) Return() string       { return m.ret }
func (m *Method) Signature() string    { return m.signature }
func (m *Method) Exceptions() []string { return m.exceptions }

// FirstLine is the first source line recorded for the body, or 0. It is
// diagnostic only.
func (m *Method) FirstLine() int { return m.firstLine }

// Label distinguishes constructors from ordinary methods.
func (m *Method) Label() string {
	if m.name == "<init>" {
		return "constructor"
	}
	return "method"
}

// ParameterDescriptor is the concatenated erased parameter descriptor,
// e.g. "(I[Ljava/lang/String;)".
func (m *Method) ParameterDescriptor() string {
	return "(" + strings.Join(m.parameters, "") + ")"
}

// Descriptor is the full erased method descriptor, e.g. "(I)V".
func (m *Method) Descriptor() string {
	return m.ParameterDescriptor() + m.ret
}

// Key is the identity of a method within its type: name plus parameter
// descriptor. The return type is not part of it.
func (m *Method) Key() string { return m.key }

// FieldSpec carries the attributes of a Field at construction time.
type FieldSpec struct {
	Name       string
	Visibility Scope
	Modifiers  Modifiers
	Type       string
	Signature  string
	// Constant is int32, int64, float32, float64 or string, or nil.
	Constant   any
	Attributes []Attribute
}

// Field is a field of a Type.
type Field struct {
	base
	typ       string
	signature string
	constant  any
}

// NewField creates a field owned by owner. It does not add it to owner.
func NewField(owner *Type, spec FieldSpec) *Field {
	return &Field{
		base: base{
			name:       spec.Name,
			owner:      owner,
			visibility: spec.Visibility,
			modifiers:  spec.Modifiers,
			attributes: spec.Attributes,
		},
		typ:       spec.Type,
		signature: spec.Signature,
		constant:  spec.Constant,
	}
}

func (f *Field) Type() string      { return f.typ }
func (f *Field) Signature() string { return f.signature }
func (f *Field) Constant() any     { return f.constant }
func (f *Field) Label() string     { return "field" }
func (f *Field) Key() string       { return f.name }

// NormalizeName converts a dotted fully-qualified name to internal
// slash-separated form. Nested type separators ('$') are kept.
func NormalizeName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// DisplayName converts an internal name to dotted form.
func DisplayName(name string) string {
	return strings.ReplaceAll(name, "/", ".")
}
