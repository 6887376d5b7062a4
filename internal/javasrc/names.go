package javasrc

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/japicheck/internal/descriptor"
	"github.com/phobologic/japicheck/internal/model"
)

// javaLang lists java.lang types that are commonly referenced without an
// import. Wildcard imports cannot be resolved without a class path, so this
// list stands in for the implicit java.lang.* import.
var javaLang = map[string]bool{
	"AutoCloseable": true, "Boolean": true, "Byte": true, "Character": true,
	"CharSequence": true, "Class": true, "ClassCastException": true,
	"ClassLoader": true, "Cloneable": true, "CloneNotSupportedException": true,
	"Comparable": true, "Deprecated": true, "Double": true, "Enum": true,
	"Error": true, "Exception": true, "Float": true, "FunctionalInterface": true,
	"IllegalArgumentException": true, "IllegalStateException": true,
	"IndexOutOfBoundsException": true, "Integer": true,
	"InterruptedException": true, "Iterable": true, "Long": true, "Math": true,
	"NullPointerException": true, "Number": true, "Object": true,
	"Override": true, "Record": true, "Runnable": true,
	"RuntimeException": true, "SafeVarargs": true, "Short": true,
	"String": true, "StringBuilder": true, "StringBuffer": true,
	"SuppressWarnings": true, "System": true, "Thread": true,
	"Throwable": true, "UnsupportedOperationException": true, "Void": true,
}

// file holds per-compilation-unit naming context.
type file struct {
	src      []byte
	pkg      string            // internal form, "" for the default package
	imports  map[string]string // simple name -> internal name
	declared map[string]string // simple name -> internal name, first wins
	types    []*model.Type
}

func newFile(src []byte) *file {
	return &file{
		src:      src,
		imports:  map[string]string{},
		declared: map[string]string{},
	}
}

func (f *file) text(n *sitter.Node) string {
	return n.Content(f.src)
}

// header records the package and single-type imports.
func (f *file) header(root *sitter.Node) {
	for _, n := range namedChildren(root) {
		switch n.Type() {
		case "package_declaration":
			for _, c := range namedChildren(n) {
				if c.Type() == "identifier" || c.Type() == "scoped_identifier" {
					f.pkg = model.NormalizeName(f.text(c))
				}
			}
		case "import_declaration":
			static, wildcard := false, false
			var name string
			for i := 0; i < int(n.ChildCount()); i++ {
				c := n.Child(i)
				switch c.Type() {
				case "static":
					static = true
				case "asterisk":
					wildcard = true
				case "identifier", "scoped_identifier":
					name = f.text(c)
				}
			}
			if static || wildcard || name == "" {
				continue
			}
			simple := name[strings.LastIndexByte(name, '.')+1:]
			f.imports[simple] = qualified(name)
		}
	}
}

// declareAll records every type declared in the file, including member
// types, so references to them resolve before the declarations are built.
func (f *file) declareAll(root *sitter.Node) {
	var walk func(n *sitter.Node, prefix string)
	walk = func(n *sitter.Node, prefix string) {
		for _, c := range namedChildren(n) {
			if !isTypeDecl(c) {
				continue
			}
			nameNode := c.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			simple := f.text(nameNode)
			full := prefix + "$" + simple
			if prefix == "" {
				full = f.qualify(simple)
			}
			if _, ok := f.declared[simple]; !ok {
				f.declared[simple] = full
			}
			if body := c.ChildByFieldName("body"); body != nil {
				walk(body, full)
				if decls := childOfType(body, "enum_body_declarations"); decls != nil {
					walk(decls, full)
				}
			}
		}
	}
	walk(root, "")
}

func (f *file) qualify(simple string) string {
	if f.pkg == "" {
		return simple
	}
	return f.pkg + "/" + simple
}

// qualified converts a dotted fully-qualified name to internal form,
// treating segments after the first capitalised one as member types.
func qualified(dotted string) string {
	parts := strings.Split(dotted, ".")
	var sb strings.Builder
	nested := false
	for i, p := range parts {
		if i > 0 {
			if nested {
				sb.WriteByte('$')
			} else {
				sb.WriteByte('/')
			}
		}
		sb.WriteString(p)
		if p != "" && p[0] >= 'A' && p[0] <= 'Z' {
			nested = true
		}
	}
	return sb.String()
}

// resolve maps a type name as written in source to an internal name.
func (f *file) resolve(name string) string {
	name = stripTypeArguments(name)
	head, rest, dotted := strings.Cut(name, ".")
	if dotted {
		if base, ok := f.lookupSimple(head); ok {
			return base + "$" + strings.ReplaceAll(rest, ".", "$")
		}
		return qualified(name)
	}
	if base, ok := f.lookupSimple(name); ok {
		return base
	}
	if javaLang[name] {
		return "java/lang/" + name
	}
	return f.qualify(name)
}

func (f *file) lookupSimple(name string) (string, bool) {
	if full, ok := f.imports[name]; ok {
		return full, true
	}
	full, ok := f.declared[name]
	return full, ok
}

// stripTypeArguments removes generic arguments, annotations and whitespace
// from a type name: "Outer<T>.Inner" becomes "Outer.Inner".
func stripTypeArguments(s string) string {
	var sb strings.Builder
	depth := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '<':
			depth++
		case c == '>':
			depth--
		case depth > 0, c == ' ', c == '\t', c == '\n', c == '\r':
		case c == '@':
			// skip the annotation name
			for i+1 < len(s) && s[i+1] != ' ' {
				i++
			}
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// typeVars maps type variable names in scope to their erased descriptors.
type typeVars map[string]string

func (tv typeVars) with(more typeVars) typeVars {
	if len(more) == 0 {
		return tv
	}
	out := make(typeVars, len(tv)+len(more))
	for k, v := range tv {
		out[k] = v
	}
	for k, v := range more {
		out[k] = v
	}
	return out
}

// typeParams erases the type parameters declared on n, each to its first
// bound or java/lang/Object.
func (f *file) typeParams(n *sitter.Node, outer typeVars) typeVars {
	params := childOfType(n, "type_parameters")
	if params == nil {
		return outer
	}
	vars := typeVars{}
	scope := outer.with(vars)
	for _, p := range namedChildren(params) {
		if p.Type() != "type_parameter" {
			continue
		}
		var name string
		erasure := descriptor.Object("java/lang/Object")
		for _, c := range namedChildren(p) {
			switch c.Type() {
			case "type_identifier", "identifier":
				if name == "" {
					name = f.text(c)
				}
			case "type_bound":
				if bounds := namedChildren(c); len(bounds) > 0 {
					erasure = f.desc(bounds[0], scope)
				}
			}
		}
		if name != "" {
			vars[name] = erasure
			scope = outer.with(vars)
		}
	}
	return scope
}

// desc returns the erased field descriptor of a type node.
func (f *file) desc(n *sitter.Node, vars typeVars) string {
	switch n.Type() {
	case "void_type":
		return "V"
	case "integral_type", "floating_point_type", "boolean_type":
		if d, ok := descriptor.Primitive(f.text(n)); ok {
			return d
		}
	case "array_type":
		elem := f.desc(n.ChildByFieldName("element"), vars)
		return descriptor.Array(elem, dims(f.text(n.ChildByFieldName("dimensions"))))
	case "generic_type":
		if base := namedChildren(n); len(base) > 0 {
			return f.desc(base[0], vars)
		}
	case "annotated_type":
		if parts := namedChildren(n); len(parts) > 0 {
			return f.desc(parts[len(parts)-1], vars)
		}
	case "type_identifier", "identifier":
		name := f.text(n)
		if d, ok := vars[name]; ok {
			return d
		}
		return descriptor.Object(f.resolve(name))
	case "scoped_type_identifier":
		return descriptor.Object(f.resolve(f.text(n)))
	}
	return descriptor.Object(f.resolve(f.text(n)))
}

// dims counts the array dimensions in a dimensions node's text.
func dims(text string) int {
	return strings.Count(text, "[")
}
