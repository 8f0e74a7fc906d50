package syntax

import (
	"sort"
	"unicode/utf8"

	"github.com/jward/refscope/internal/location"
)

// NodeID addresses a node inside its File's arena.
type NodeID int32

// NoNode is the parent of the root and the result of failed lookups.
const NoNode NodeID = -1

// Node is one syntax node. Nodes are stored in document pre-order, so a
// lower NodeID always starts at or before a higher one.
type Node struct {
	Kind     Kind
	Type     string // raw grammar type, "parameter" for synthetic wrappers
	Field    string // field name in the parent, if any
	Operator string // operator token for assignments, binaries and updates
	Parent   NodeID
	Children []NodeID
	Start    int // byte offset, inclusive
	End      int // byte offset, exclusive
}

// Diagnostic is a syntax problem reported by the parser.
type Diagnostic struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

// File is a parsed source file: its bytes, its node arena and the line
// table used for 1-based position conversion.
type File struct {
	Path        string
	Language    string
	Source      []byte
	Nodes       []Node
	Diagnostics []Diagnostic

	lineStarts []int
}

// Ref points at a node in a specific file.
type Ref struct {
	File *File
	Node NodeID
}

// Start returns the byte offset of the referenced node.
func (r Ref) Start() int {
	return r.File.Nodes[r.Node].Start
}

// Root returns the program node.
func (f *File) Root() NodeID {
	return 0
}

// Node returns the node stored at id.
func (f *File) Node(id NodeID) *Node {
	return &f.Nodes[id]
}

// Kind is shorthand for f.Node(id).Kind.
func (f *File) Kind(id NodeID) Kind {
	return f.Nodes[id].Kind
}

// Parent returns the parent of id, or NoNode for the root.
func (f *File) Parent(id NodeID) NodeID {
	return f.Nodes[id].Parent
}

// Text returns the source text covered by id.
func (f *File) Text(id NodeID) string {
	n := &f.Nodes[id]
	return string(f.Source[n.Start:n.End])
}

// HasErrors reports whether the parser recorded any diagnostics.
func (f *File) HasErrors() bool {
	return len(f.Diagnostics) > 0
}

// ChildByField returns the first child of id attached under field.
func (f *File) ChildByField(id NodeID, field string) NodeID {
	for _, c := range f.Nodes[id].Children {
		if f.Nodes[c].Field == field {
			return c
		}
	}
	return NoNode
}

// Walk visits id and its descendants in document order using an explicit
// stack. Returning false from fn skips the children of the visited node.
func (f *File) Walk(id NodeID, fn func(NodeID) bool) {
	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur) {
			continue
		}
		children := f.Nodes[cur].Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// FirstDescendant returns the first node of kind k under id (id included),
// in document order.
func (f *File) FirstDescendant(id NodeID, k Kind) NodeID {
	found := NoNode
	f.Walk(id, func(n NodeID) bool {
		if found != NoNode {
			return false
		}
		if f.Nodes[n].Kind == k {
			found = n
			return false
		}
		return true
	})
	return found
}

// IsAncestor reports whether anc is id or one of its ancestors.
func (f *File) IsAncestor(anc, id NodeID) bool {
	for cur := id; cur != NoNode; cur = f.Nodes[cur].Parent {
		if cur == anc {
			return true
		}
	}
	return false
}

// NodeAt returns the deepest node whose span contains offset.
func (f *File) NodeAt(offset int) NodeID {
	if len(f.Nodes) == 0 || offset < 0 || offset > len(f.Source) {
		return NoNode
	}
	cur := f.Root()
	for {
		next := NoNode
		for _, c := range f.Nodes[cur].Children {
			n := &f.Nodes[c]
			if n.Start <= offset && offset < n.End {
				next = c
				break
			}
		}
		if next == NoNode {
			return cur
		}
		cur = next
	}
}

// LineCount returns the number of lines, counting a trailing empty line.
func (f *File) LineCount() int {
	return len(f.lineStarts)
}

// LineLength returns the rune length of a 1-based line without its
// terminator.
func (f *File) LineLength(line int) int {
	if line < 1 || line > len(f.lineStarts) {
		return 0
	}
	start, end := f.lineBounds(line)
	return utf8.RuneCount(f.Source[start:end])
}

func (f *File) lineBounds(line int) (int, int) {
	start := f.lineStarts[line-1]
	end := len(f.Source)
	if line < len(f.lineStarts) {
		end = f.lineStarts[line] - 1
	}
	if end > start && f.Source[end-1] == '\r' {
		end--
	}
	return start, end
}

// Position converts a byte offset to a 1-based line and rune column.
func (f *File) Position(offset int) location.SourceLocation {
	line := sort.Search(len(f.lineStarts), func(i int) bool {
		return f.lineStarts[i] > offset
	})
	start := f.lineStarts[line-1]
	return location.SourceLocation{
		Line:   line,
		Column: utf8.RuneCount(f.Source[start:offset]) + 1,
	}
}

// PositionOf converts a 1-based line and column to a 0-based byte offset.
// Columns past the end of the line clamp to the line end. ok is false when
// the line does not exist.
func (f *File) PositionOf(loc location.SourceLocation) (offset int, ok bool) {
	if loc.Line < 1 || loc.Line > len(f.lineStarts) || loc.Column < 1 {
		return 0, false
	}
	start, end := f.lineBounds(loc.Line)
	offset = start
	for col := 1; col < loc.Column && offset < end; col++ {
		_, size := utf8.DecodeRune(f.Source[offset:end])
		offset += size
	}
	return offset, true
}

// Range returns the location range covered by id. End is exclusive: it
// points at the column after the node's last rune.
func (f *File) Range(id NodeID) location.LocationRange {
	n := &f.Nodes[id]
	return location.LocationRange{
		File:  f.Path,
		Start: f.Position(n.Start),
		End:   f.Position(n.End),
	}
}

func computeLineStarts(src []byte) []int {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// StringValue returns the contents of a string literal node without its
// surrounding quotes.
func (f *File) StringValue(id NodeID) string {
	s := f.Text(id)
	if len(s) >= 2 {
		switch q := s[0]; q {
		case '"', '\'', '`':
			if s[len(s)-1] == q {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}
