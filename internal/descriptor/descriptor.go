// Package descriptor parses and renders erased field and method descriptors.
package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid reports a descriptor that does not follow the grammar.
var ErrInvalid = errors.New("descriptor: invalid")

var primitives = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
}

var primitiveCodes = map[string]string{
	"byte":    "B",
	"char":    "C",
	"double":  "D",
	"float":   "F",
	"int":     "I",
	"long":    "J",
	"short":   "S",
	"boolean": "Z",
	"void":    "V",
}

// maxArrayDims is the format limit on array dimensions.
const maxArrayDims = 255

// next returns the length of the field descriptor at the start of s.
func next(s string) (int, error) {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i > maxArrayDims {
		return 0, fmt.Errorf("%w: too many array dimensions in %q", ErrInvalid, s)
	}
	if i >= len(s) {
		return 0, fmt.Errorf("%w: truncated %q", ErrInvalid, s)
	}
	if _, ok := primitives[s[i]]; ok {
		return i + 1, nil
	}
	if s[i] != 'L' {
		return 0, fmt.Errorf("%w: unexpected %q in %q", ErrInvalid, s[i], s)
	}
	end := strings.IndexByte(s[i:], ';')
	if end <= 1 {
		return 0, fmt.Errorf("%w: unterminated class name in %q", ErrInvalid, s)
	}
	return i + end + 1, nil
}

// ValidateField checks that desc is exactly one field descriptor.
func ValidateField(desc string) error {
	n, err := next(desc)
	if err != nil {
		return err
	}
	if n != len(desc) {
		return fmt.Errorf("%w: trailing characters in %q", ErrInvalid, desc)
	}
	return nil
}

// ParseMethod splits a method descriptor into its parameter descriptors and
// return descriptor.
func ParseMethod(desc string) (params []string, ret string, err error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("%w: method descriptor %q", ErrInvalid, desc)
	}
	rest := desc[1:]
	for {
		if rest == "" {
			return nil, "", fmt.Errorf("%w: unterminated parameters in %q", ErrInvalid, desc)
		}
		if rest[0] == ')' {
			rest = rest[1:]
			break
		}
		n, err := next(rest)
		if err != nil {
			return nil, "", err
		}
		params = append(params, rest[:n])
		rest = rest[n:]
	}
	if rest == "V" {
		return params, rest, nil
	}
	if err := ValidateField(rest); err != nil {
		return nil, "", err
	}
	return params, rest, nil
}

// Java renders a field descriptor as Java source text, e.g.
// "[Ljava/lang/String;" becomes "java.lang.String[]".
func Java(desc string) string {
	dims := 0
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	elem := desc[dims:]
	var name string
	switch {
	case elem == "V":
		name = "void"
	case len(elem) == 1:
		if p, ok := primitives[elem[0]]; ok {
			name = p
		} else {
			name = elem
		}
	case strings.HasPrefix(elem, "L") && strings.HasSuffix(elem, ";"):
		name = strings.ReplaceAll(elem[1:len(elem)-1], "/", ".")
	default:
		name = elem
	}
	return name + strings.Repeat("[]", dims)
}

// JavaMethod renders a method as name(type, type).
func JavaMethod(name string, params []string) string {
	rendered := make([]string, len(params))
	for i, p := range params {
		rendered[i] = Java(p)
	}
	return name + "(" + strings.Join(rendered, ", ") + ")"
}

// Primitive returns the descriptor of a primitive (or void) type keyword.
func Primitive(keyword string) (string, bool) {
	d, ok := primitiveCodes[keyword]
	return d, ok
}

// Object returns the descriptor of a class given its internal name.
func Object(internalName string) string {
	return "L" + internalName + ";"
}

// Array prefixes desc with dims array dimensions.
func Array(desc string, dims int) string {
	if dims <= 0 {
		return desc
	}
	return strings.Repeat("[", dims) + desc
}
