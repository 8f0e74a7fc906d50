package refscope

import (
	"github.com/jward/refscope/internal/location"
	"github.com/jward/refscope/internal/syntax"
	"github.com/jward/refscope/internal/usage"
)

// UsageType is the access kind of a usage: read, write or update.
type UsageType = usage.Type

const (
	Read   = usage.Read
	Write  = usage.Write
	Update = usage.Update
)

// Location represents a source code position range. Lines and columns are
// 1-based; the end column is the column after the last character.
type Location struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// Range converts l to a location range.
func (l Location) Range() location.LocationRange {
	return location.LocationRange{
		File:  l.File,
		Start: location.SourceLocation{Line: l.StartLine, Column: l.StartCol},
		End:   location.SourceLocation{Line: l.EndLine, Column: l.EndCol},
	}
}

// String formats l as a location string.
func (l Location) String() string {
	return location.Format(l.Range())
}

// Declaration is the declaring token of a variable.
type Declaration struct {
	Location Location `json:"location"`
	Text     string   `json:"text"`
	Source   string   `json:"source"` // full declaration, e.g. "x = 1"
}

// Usage is an identifier bound to a declaration.
type Usage struct {
	Location  Location  `json:"location"`
	Text      string    `json:"text"`
	UsageType UsageType `json:"usage_type"`
}

// VariableLocationResult is the answer to a single-file variable query.
// Usages are ordered by file and start line, and by position within a
// line.
type VariableLocationResult struct {
	VariableName string      `json:"variable_name"`
	Declaration  Declaration `json:"declaration"`
	Usages       []Usage     `json:"usages"`
}

// Reference is one entry of a cross-file reference query. Declaration
// entries come first and are reported as writes.
type Reference struct {
	Location    Location  `json:"location"`
	Text        string    `json:"text"`
	UsageType   UsageType `json:"usage_type"`
	Declaration bool      `json:"declaration,omitempty"`
	Strategy    string    `json:"strategy,omitempty"`
}

// Diagnostic is a syntax error found by Check.
type Diagnostic struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

func (e *Engine) locationOf(f *syntax.File, id syntax.NodeID) Location {
	r := f.Range(id)
	return Location{
		File:      e.displayPath(f.Path),
		StartLine: r.Start.Line,
		StartCol:  r.Start.Column,
		EndLine:   r.End.Line,
		EndCol:    r.End.Column,
	}
}
