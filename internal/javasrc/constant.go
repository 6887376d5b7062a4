package javasrc

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// constant evaluates a literal initialiser for a field of type desc. It
// returns nil for anything but a (possibly negated) literal of a matching
// type.
func (f *file) constant(n *sitter.Node, desc string) any {
	neg := false
	if n.Type() == "unary_expression" {
		op := n.ChildByFieldName("operator")
		operand := n.ChildByFieldName("operand")
		if op == nil || operand == nil || f.text(op) != "-" {
			return nil
		}
		neg, n = true, operand
	}
	text := f.text(n)

	switch n.Type() {
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal", "binary_integer_literal":
		v, ok := parseInt(text)
		if !ok {
			return nil
		}
		if neg {
			v = -v
		}
		switch desc {
		case "J":
			return v
		case "I", "S", "B", "C":
			return int32(v)
		case "F":
			return float32(v)
		case "D":
			return float64(v)
		}
	case "decimal_floating_point_literal":
		s := strings.ReplaceAll(text, "_", "")
		s = strings.TrimRight(s, "fFdD")
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		if neg {
			v = -v
		}
		switch desc {
		case "F":
			return float32(v)
		case "D":
			return v
		}
	case "true", "false":
		if desc == "Z" && !neg {
			if n.Type() == "true" {
				return int32(1)
			}
			return int32(0)
		}
	case "character_literal":
		if neg || (desc != "C" && desc != "I") {
			return nil
		}
		s, err := strconv.Unquote("'" + strings.Trim(text, "'") + "'")
		if err != nil {
			return nil
		}
		if r := []rune(s); len(r) == 1 {
			return int32(r[0])
		}
	case "string_literal":
		if neg || desc != "Ljava/lang/String;" {
			return nil
		}
		if s, err := strconv.Unquote(text); err == nil {
			return s
		}
	}
	return nil
}

// parseInt parses a Java integer literal, including its radix prefix,
// underscores and long suffix.
func parseInt(text string) (int64, bool) {
	s := strings.ReplaceAll(text, "_", "")
	s = strings.TrimRight(s, "lL")
	base := 10
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		base, s = 16, s[2:]
	case strings.HasPrefix(s, "0b"), strings.HasPrefix(s, "0B"):
		base, s = 2, s[2:]
	case len(s) > 1 && s[0] == '0':
		base, s = 8, s[1:]
	}
	u, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, false
	}
	return int64(u), true
}
