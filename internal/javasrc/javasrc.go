// Package javasrc decodes Java source files into model types using
// tree-sitter, so source trees can be compared like compiled ones.
//
// The model produced matches what a compiler would emit into class files
// as far as the public surface goes: implicit constructors, enum helpers,
// interface member modifiers and erased descriptors. Method bodies are not
// analysed.
package javasrc

import (
	"context"
	"errors"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/phobologic/japicheck/internal/model"
)

// ErrSyntax reports source that does not parse cleanly.
var ErrSyntax = errors.New("javasrc: syntax error")

// Parsers are not safe for concurrent use; each decode borrows one.
var parsers = sync.Pool{
	New: func() any {
		p := sitter.NewParser()
		p.SetLanguage(java.GetLanguage())
		return p
	},
}

// Decode parses one compilation unit and returns every type it declares,
// outer types before their member types. Member types are also reachable
// through Nested on their owner.
func Decode(source []byte) ([]*model.Type, error) {
	return DecodeContext(context.Background(), source)
}

// DecodeContext is Decode with a context that can cancel the parse.
func DecodeContext(ctx context.Context, source []byte) ([]*model.Type, error) {
	parser := parsers.Get().(*sitter.Parser)
	defer parsers.Put(parser)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, &model.UnitError{Offset: -1, Reason: "parse", Err: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		offset := -1
		if bad := firstError(root); bad != nil {
			offset = int(bad.StartByte())
		}
		return nil, &model.UnitError{Offset: offset, Err: ErrSyntax}
	}

	f := newFile(source)
	f.header(root)
	f.declareAll(root)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		if isTypeDecl(n) {
			f.typeDecl(n, nil, nil)
		}
	}
	return f.types, nil
}

// firstError returns the first error or missing node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil || !c.HasError() && !c.IsMissing() {
			continue
		}
		if bad := firstError(c); bad != nil {
			return bad
		}
	}
	return nil
}

func isTypeDecl(n *sitter.Node) bool {
	switch n.Type() {
	case "class_declaration", "interface_declaration", "enum_declaration",
		"annotation_type_declaration", "record_declaration":
		return true
	}
	return false
}

func childOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == typ {
			return c
		}
	}
	return nil
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}
