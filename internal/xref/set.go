package xref

import "github.com/jward/refscope/internal/syntax"

// Strategy names the search that produced a reference.
type Strategy string

const (
	Semantic   Strategy = "semantic"
	Structural Strategy = "structural"
)

// Reference is one member of a ReferenceSet.
type Reference struct {
	syntax.Ref
	Strategy Strategy
	// Binding marks a local name introduced by destructuring a module
	// load, as opposed to a use of it.
	Binding bool
}

type refKey struct {
	path  string
	start int
}

// ReferenceSet is an insertion-ordered set of references keyed by file
// path and start offset. The first strategy to add a position keeps it.
type ReferenceSet struct {
	refs []Reference
	seen map[refKey]struct{}
}

func NewReferenceSet() *ReferenceSet {
	return &ReferenceSet{seen: make(map[refKey]struct{})}
}

// Add inserts r unless its position is already present and reports
// whether it was added.
func (s *ReferenceSet) Add(r Reference) bool {
	k := refKey{path: r.File.Path, start: r.Start()}
	if _, dup := s.seen[k]; dup {
		return false
	}
	s.seen[k] = struct{}{}
	s.refs = append(s.refs, r)
	return true
}

// Refs returns the references in insertion order.
func (s *ReferenceSet) Refs() []Reference {
	return s.refs
}

func (s *ReferenceSet) Len() int {
	return len(s.refs)
}
