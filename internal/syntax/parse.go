package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/refscope/internal/errs"
)

// trackedFields are the grammar fields the engine reads. Field names are
// recovered per child by matching ChildByFieldName results on span and
// type.
var trackedFields = []string{
	"name", "value", "left", "right", "operator", "argument",
	"function", "arguments", "object", "property", "key",
	"parameter", "parameters", "body", "pattern", "alias", "source",
}

// Parse parses src with the grammar registered for path's extension and
// converts the result into a node arena.
func Parse(ctx context.Context, path string, src []byte) (*File, error) {
	lang, ok := LanguageForFile(path)
	if !ok {
		return nil, errs.Newf(errs.CodeNotSupported, "unsupported file type: %s", path).
			WithContext(errs.CtxPath, path)
	}
	grammar, ok := GrammarForLanguage(lang)
	if !ok {
		return nil, errs.Newf(errs.CodeNotSupported, "no grammar for language %q", lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("syntax: parse %s: %w", path, err)
	}
	defer tree.Close()

	f := &File{
		Path:       path,
		Language:   lang,
		Source:     src,
		lineStarts: computeLineStarts(src),
	}
	f.build(tree.RootNode())
	return f, nil
}

type spanKey struct {
	start, end uint32
	typ        string
}

type frame struct {
	node   *sitter.Node
	parent NodeID
	field  string
	wrap   bool
}

// build converts the tree-sitter tree rooted at root into f.Nodes in
// pre-order using an explicit stack.
func (f *File) build(root *sitter.Node) {
	stack := []frame{{node: root, parent: NoNode}}
	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := fr.node

		parent := fr.parent
		if fr.wrap {
			parent = f.add(Node{
				Kind:   KindParameter,
				Type:   "parameter",
				Parent: parent,
				Field:  fr.field,
				Start:  int(n.StartByte()),
				End:    int(n.EndByte()),
			})
			fr.field = ""
		}

		typ := n.Type()
		node := Node{
			Kind:   KindOf(typ),
			Type:   typ,
			Field:  fr.field,
			Parent: parent,
			Start:  int(n.StartByte()),
			End:    int(n.EndByte()),
		}
		if typ == "ERROR" {
			node.Kind = KindError
			f.diagnose(node.Start, "unexpected syntax")
		} else if n.IsMissing() {
			f.diagnose(node.Start, "missing "+typ)
		}
		node.Operator = operatorOf(n, node.Kind)
		id := f.add(node)

		fields := fieldsOf(n)
		var children []frame
		count := int(n.ChildCount())
		for i := 0; i < count; i++ {
			c := n.Child(i)
			if c == nil {
				continue
			}
			if !c.IsNamed() {
				if c.IsMissing() {
					f.diagnose(int(c.StartByte()), "missing "+c.Type())
				}
				continue
			}
			if c.Type() == "comment" {
				continue
			}
			field := fields[spanKey{c.StartByte(), c.EndByte(), c.Type()}]
			children = append(children, frame{
				node:   c,
				parent: id,
				field:  field,
				wrap:   needsParameterWrap(typ, field, c.Type()),
			})
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

func (f *File) add(n Node) NodeID {
	id := NodeID(len(f.Nodes))
	f.Nodes = append(f.Nodes, n)
	if n.Parent != NoNode {
		p := &f.Nodes[n.Parent]
		p.Children = append(p.Children, id)
	}
	return id
}

func (f *File) diagnose(offset int, msg string) {
	pos := f.Position(offset)
	f.Diagnostics = append(f.Diagnostics, Diagnostic{
		Line:    pos.Line,
		Column:  pos.Column,
		Message: msg,
	})
}

func fieldsOf(n *sitter.Node) map[spanKey]string {
	fields := make(map[spanKey]string)
	for _, name := range trackedFields {
		c := n.ChildByFieldName(name)
		if c == nil {
			continue
		}
		key := spanKey{c.StartByte(), c.EndByte(), c.Type()}
		if _, taken := fields[key]; !taken {
			fields[key] = name
		}
	}
	return fields
}

// needsParameterWrap reports whether a child is a bare JavaScript parameter
// binding that has no parameter node of its own.
func needsParameterWrap(parentType, field, childType string) bool {
	switch parentType {
	case "formal_parameters":
		return childType != "required_parameter" && childType != "optional_parameter"
	case "arrow_function", "catch_clause":
		return field == "parameter"
	}
	return false
}

func operatorOf(n *sitter.Node, k Kind) string {
	switch k {
	case KindAssignment:
		return "="
	case KindAugmentedAssignment, KindBinary:
		if op := n.ChildByFieldName("operator"); op != nil {
			return op.Type()
		}
	case KindUpdate:
		for i := 0; i < int(n.ChildCount()); i++ {
			if c := n.Child(i); c != nil && !c.IsNamed() {
				if t := c.Type(); t == "++" || t == "--" {
					return t
				}
			}
		}
	}
	return ""
}
