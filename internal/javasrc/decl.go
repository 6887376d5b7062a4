package javasrc

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/japicheck/internal/descriptor"
	"github.com/phobologic/japicheck/internal/model"
)

// modifierSet is what a modifiers node declares explicitly.
type modifierSet struct {
	visibility model.Scope
	explicit   bool // a visibility keyword was present
	mods       model.Modifiers
	isDefault  bool
}

func (f *file) modifiers(decl *sitter.Node) modifierSet {
	ms := modifierSet{visibility: model.Package}
	if isDeprecatedByDoc(decl, f.src) {
		ms.mods |= model.Deprecated
	}
	n := childOfType(decl, "modifiers")
	if n == nil {
		return ms
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "public":
			ms.visibility, ms.explicit = model.Public, true
		case "protected":
			ms.visibility, ms.explicit = model.Protected, true
		case "private":
			ms.visibility, ms.explicit = model.Private, true
		case "static":
			ms.mods |= model.Static
		case "final":
			ms.mods |= model.Final
		case "abstract":
			ms.mods |= model.Abstract
		case "default":
			ms.isDefault = true
		case "marker_annotation", "annotation":
			if name := c.ChildByFieldName("name"); name != nil {
				switch f.text(name) {
				case "Deprecated", "java.lang.Deprecated":
					ms.mods |= model.Deprecated
				}
			}
		}
	}
	return ms
}

// isDeprecatedByDoc reports whether the comment directly preceding decl
// carries a @deprecated tag, which compilers also record.
func isDeprecatedByDoc(decl *sitter.Node, src []byte) bool {
	prev := decl.PrevSibling()
	if prev == nil {
		return false
	}
	switch prev.Type() {
	case "block_comment", "comment":
		text := prev.Content(src)
		return strings.HasPrefix(text, "/**") && strings.Contains(text, "@deprecated")
	}
	return false
}

// typeDecl builds the type declared by n and its member types.
func (f *file) typeDecl(n *sitter.Node, owner *model.Type, outerVars typeVars) *model.Type {
	simple := f.text(n.ChildByFieldName("name"))
	name := f.qualify(simple)
	if owner != nil {
		name = owner.Name() + "$" + simple
	}

	ms := f.modifiers(n)
	ownerIsInterface := owner != nil && (owner.Kind() == model.Interface || owner.Kind() == model.Annotation)
	if ownerIsInterface {
		ms.visibility = model.Public
		ms.mods |= model.Static
	}

	spec := model.TypeSpec{
		Name:       name,
		Visibility: ms.visibility,
		SuperName:  "java/lang/Object",
	}
	vars := outerVars
	if ms.mods.Has(model.Static) {
		vars = nil
	}
	body := n.ChildByFieldName("body")

	switch n.Type() {
	case "class_declaration":
		spec.Kind = model.Class
		vars = f.typeParams(n, vars)
		if sc := childOfType(n, "superclass"); sc != nil {
			if t := namedChildren(sc); len(t) > 0 {
				spec.SuperName = descToName(f.desc(t[0], vars))
			}
		}
		spec.Interfaces = f.typeList(childOfType(n, "super_interfaces"), vars)
	case "interface_declaration":
		spec.Kind = model.Interface
		ms.mods |= model.Abstract
		vars = f.typeParams(n, vars)
		spec.Interfaces = f.typeList(childOfType(n, "extends_interfaces"), vars)
	case "annotation_type_declaration":
		spec.Kind = model.Annotation
		ms.mods |= model.Abstract
		spec.Interfaces = []string{"java/lang/annotation/Annotation"}
	case "enum_declaration":
		spec.Kind = model.Enum
		spec.SuperName = "java/lang/Enum"
		spec.Interfaces = f.typeList(childOfType(n, "super_interfaces"), nil)
		if !enumHasConstantBodies(body) {
			ms.mods |= model.Final
		}
		vars = nil
	case "record_declaration":
		spec.Kind = model.Class
		spec.SuperName = "java/lang/Record"
		ms.mods |= model.Final
		vars = f.typeParams(n, vars)
		spec.Interfaces = f.typeList(childOfType(n, "super_interfaces"), vars)
	}
	if owner != nil {
		switch n.Type() {
		case "interface_declaration", "annotation_type_declaration", "enum_declaration", "record_declaration":
			ms.mods |= model.Static
		}
	}
	spec.Modifiers = ms.mods

	t := model.NewType(owner, spec)
	if owner != nil {
		owner.AddNested(t)
	}
	f.types = append(f.types, t)

	m := &members{file: f, t: t, vars: vars, decl: n}
	m.build(body)
	return t
}

// typeList resolves the types of a super_interfaces or extends_interfaces
// node.
func (f *file) typeList(n *sitter.Node, vars typeVars) []string {
	if n == nil {
		return nil
	}
	list := childOfType(n, "type_list")
	if list == nil {
		list = n
	}
	var out []string
	for _, c := range namedChildren(list) {
		out = append(out, descToName(f.desc(c, vars)))
	}
	return out
}

func enumHasConstantBodies(body *sitter.Node) bool {
	for _, c := range namedChildren(body) {
		if c.Type() == "enum_constant" && c.ChildByFieldName("body") != nil {
			return true
		}
	}
	return false
}

// descToName turns an object descriptor back into an internal name.
func descToName(desc string) string {
	if strings.HasPrefix(desc, "L") && strings.HasSuffix(desc, ";") {
		return desc[1 : len(desc)-1]
	}
	return desc
}

// members collects the fields, methods and member types of one type.
type members struct {
	file *file
	t    *model.Type
	vars typeVars
	decl *sitter.Node

	hasConstructor bool
	declared       map[string]bool // method keys declared explicitly
}

func (m *members) isInterface() bool {
	k := m.t.Kind()
	return k == model.Interface || k == model.Annotation
}

func (m *members) build(body *sitter.Node) {
	m.declared = map[string]bool{}
	f := m.file

	var components []param
	if m.decl.Type() == "record_declaration" {
		components = f.params(m.decl.ChildByFieldName("parameters"), m.vars)
		for _, c := range components {
			m.t.AddField(model.NewField(m.t, model.FieldSpec{
				Name:       c.name,
				Visibility: model.Private,
				Modifiers:  model.Final,
				Type:       c.desc,
			}))
		}
	}

	if m.t.Kind() == model.Enum {
		self := descriptor.Object(m.t.Name())
		for _, c := range namedChildren(body) {
			if c.Type() != "enum_constant" {
				continue
			}
			mods := model.Static | model.Final
			if f.modifiers(c).mods.Has(model.Deprecated) {
				mods |= model.Deprecated
			}
			m.t.AddField(model.NewField(m.t, model.FieldSpec{
				Name:       f.text(c.ChildByFieldName("name")),
				Visibility: model.Public,
				Modifiers:  mods,
				Type:       self,
			}))
		}
		body = childOfType(body, "enum_body_declarations")
	}

	for _, c := range namedChildren(body) {
		switch c.Type() {
		case "field_declaration", "constant_declaration":
			m.fields(c)
		case "method_declaration":
			m.method(c)
		case "annotation_type_element_declaration":
			m.element(c)
		case "constructor_declaration":
			m.constructor(c, f.params(c.ChildByFieldName("parameters"), m.vars))
		case "compact_constructor_declaration":
			m.constructor(c, components)
		default:
			if isTypeDecl(c) {
				f.typeDecl(c, m.t, m.vars)
			}
		}
	}

	m.implicit(components)
}

func (m *members) fields(n *sitter.Node) {
	f := m.file
	ms := f.modifiers(n)
	if m.isInterface() {
		ms.visibility = model.Public
		ms.mods |= model.Static | model.Final
	}
	typeNode := n.ChildByFieldName("type")
	base := f.desc(typeNode, m.vars)
	for _, d := range namedChildren(n) {
		if d.Type() != "variable_declarator" {
			continue
		}
		desc := base
		if dn := d.ChildByFieldName("dimensions"); dn != nil {
			desc = descriptor.Array(desc, dims(f.text(dn)))
		}
		var constant any
		if ms.mods.Has(model.Final) {
			if v := d.ChildByFieldName("value"); v != nil {
				constant = f.constant(v, desc)
			}
		}
		m.t.AddField(model.NewField(m.t, model.FieldSpec{
			Name:       f.text(d.ChildByFieldName("name")),
			Visibility: ms.visibility,
			Modifiers:  ms.mods,
			Type:       desc,
			Constant:   constant,
		}))
	}
}

func (m *members) method(n *sitter.Node) {
	f := m.file
	ms := f.modifiers(n)
	vars := m.vars
	if ms.mods.Has(model.Static) {
		vars = nil
	}
	vars = f.typeParams(n, vars)
	body := n.ChildByFieldName("body")

	if m.isInterface() {
		if ms.visibility != model.Private {
			ms.visibility = model.Public
		}
		if body == nil && !ms.mods.Has(model.Static) {
			ms.mods |= model.Abstract
		}
	}

	ret := f.desc(n.ChildByFieldName("type"), vars)
	if dn := n.ChildByFieldName("dimensions"); dn != nil {
		ret = descriptor.Array(ret, dims(f.text(dn)))
	}
	m.add(model.MethodSpec{
		Name:       f.text(n.ChildByFieldName("name")),
		Visibility: ms.visibility,
		Modifiers:  ms.mods,
		Parameters: paramDescs(f.params(n.ChildByFieldName("parameters"), vars)),
		Return:     ret,
		Exceptions: f.throws(n, vars),
		FirstLine:  firstLine(body),
	})
}

// element adds an annotation type element, an implicit abstract method.
func (m *members) element(n *sitter.Node) {
	f := m.file
	ms := f.modifiers(n)
	ret := f.desc(n.ChildByFieldName("type"), nil)
	if dn := n.ChildByFieldName("dimensions"); dn != nil {
		ret = descriptor.Array(ret, dims(f.text(dn)))
	}
	m.add(model.MethodSpec{
		Name:       f.text(n.ChildByFieldName("name")),
		Visibility: model.Public,
		Modifiers:  ms.mods | model.Abstract,
		Return:     ret,
	})
}

func (m *members) constructor(n *sitter.Node, params []param) {
	f := m.file
	ms := f.modifiers(n)
	if m.t.Kind() == model.Enum {
		ms.visibility = model.Private
	}
	m.hasConstructor = true
	vars := f.typeParams(n, m.vars)
	m.add(model.MethodSpec{
		Name:       "<init>",
		Visibility: ms.visibility,
		Modifiers:  ms.mods &^ (model.Static | model.Final | model.Abstract),
		Parameters: append(m.syntheticParams(), paramDescs(params)...),
		Return:     "V",
		Exceptions: f.throws(n, vars),
		FirstLine:  firstLine(n.ChildByFieldName("body")),
	})
}

// syntheticParams are the leading constructor parameters a compiler adds:
// name and ordinal for enums, the enclosing instance for inner classes.
func (m *members) syntheticParams() []string {
	switch {
	case m.t.Kind() == model.Enum:
		return []string{"Ljava/lang/String;", "I"}
	case m.t.Kind() == model.Class && m.t.Owner() != nil && !m.t.IsStatic():
		return []string{descriptor.Object(m.t.Owner().Name())}
	}
	return nil
}

// implicit adds the members a compiler generates without a declaration.
func (m *members) implicit(components []param) {
	t := m.t
	self := descriptor.Object(t.Name())

	switch t.Kind() {
	case model.Interface, model.Annotation:
		return
	case model.Enum:
		m.addImplicit(model.MethodSpec{Name: "values", Visibility: model.Public, Modifiers: model.Static, Return: "[" + self})
		m.addImplicit(model.MethodSpec{Name: "valueOf", Visibility: model.Public, Modifiers: model.Static, Parameters: []string{"Ljava/lang/String;"}, Return: self})
	}

	if m.decl.Type() == "record_declaration" {
		for _, c := range components {
			m.addImplicit(model.MethodSpec{Name: c.name, Visibility: model.Public, Return: c.desc})
		}
		m.addImplicit(model.MethodSpec{Name: "toString", Visibility: model.Public, Modifiers: model.Final, Return: "Ljava/lang/String;"})
		m.addImplicit(model.MethodSpec{Name: "hashCode", Visibility: model.Public, Modifiers: model.Final, Return: "I"})
		m.addImplicit(model.MethodSpec{Name: "equals", Visibility: model.Public, Modifiers: model.Final, Parameters: []string{"Ljava/lang/Object;"}, Return: "Z"})
		m.addImplicit(model.MethodSpec{Name: "<init>", Visibility: t.Visibility(), Parameters: paramDescs(components), Return: "V"})
		return
	}

	if !m.hasConstructor {
		vis := t.Visibility()
		if t.Kind() == model.Enum {
			vis = model.Private
		}
		m.add(model.MethodSpec{Name: "<init>", Visibility: vis, Parameters: m.syntheticParams(), Return: "V"})
	}
}

func (m *members) add(spec model.MethodSpec) {
	meth := model.NewMethod(m.t, spec)
	m.declared[meth.Key()] = true
	m.t.AddMethod(meth)
}

// addImplicit adds spec unless a method with the same key was declared.
func (m *members) addImplicit(spec model.MethodSpec) {
	meth := model.NewMethod(m.t, spec)
	if m.declared[meth.Key()] {
		return
	}
	m.add(spec)
}

func (f *file) throws(n *sitter.Node, vars typeVars) []string {
	th := childOfType(n, "throws")
	if th == nil {
		return nil
	}
	var out []string
	for _, c := range namedChildren(th) {
		out = append(out, descToName(f.desc(c, vars)))
	}
	return out
}

// firstLine returns the 1-based line of the first statement in body.
func firstLine(body *sitter.Node) int {
	if body == nil {
		return 0
	}
	for _, c := range namedChildren(body) {
		if strings.HasSuffix(c.Type(), "comment") {
			continue
		}
		return int(c.StartPoint().Row) + 1
	}
	return 0
}

type param struct {
	name string
	desc string
}

func paramDescs(ps []param) []string {
	if len(ps) == 0 {
		return nil
	}
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.desc
	}
	return out
}

// params reads a formal_parameters node. Receiver parameters are skipped;
// varargs become arrays.
func (f *file) params(n *sitter.Node, vars typeVars) []param {
	var out []param
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "formal_parameter":
			desc := f.desc(c.ChildByFieldName("type"), vars)
			if dn := c.ChildByFieldName("dimensions"); dn != nil {
				desc = descriptor.Array(desc, dims(f.text(dn)))
			}
			out = append(out, param{name: f.text(c.ChildByFieldName("name")), desc: desc})
		case "spread_parameter":
			var p param
			for _, part := range namedChildren(c) {
				switch part.Type() {
				case "modifiers":
				case "variable_declarator":
					if nn := part.ChildByFieldName("name"); nn != nil {
						p.name = f.text(nn)
					}
				default:
					if p.desc == "" {
						p.desc = descriptor.Array(f.desc(part, vars), 1)
					}
				}
			}
			out = append(out, p)
		}
	}
	return out
}
