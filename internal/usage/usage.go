// Package usage labels identifier occurrences as reads, writes or
// updates from their immediate syntactic context.
package usage

import "github.com/jward/refscope/internal/syntax"

// Type is the access kind of a usage.
type Type string

const (
	Read   Type = "read"
	Write  Type = "write"
	Update Type = "update"
)

var compoundOperators = map[string]bool{
	"+=": true, "-=": true, "*=": true, "/=": true, "%=": true, "**=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true, ">>>=": true,
}

// Classify returns the access kind of id based on its parent. It is total:
// anything that is not an assignment target or an increment operand is a
// read.
func Classify(f *syntax.File, id syntax.NodeID) Type {
	parent := f.Parent(id)
	if parent == syntax.NoNode {
		return Read
	}
	p := f.Node(parent)
	left := f.Node(id).Field == "left"
	switch p.Kind {
	case syntax.KindAssignment:
		if left {
			return Write
		}
	case syntax.KindAugmentedAssignment:
		if left && compoundOperators[p.Operator] {
			return Update
		}
	case syntax.KindUpdate:
		return Update
	}
	return Read
}
