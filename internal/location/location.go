// Package location models 1-based source positions, file ranges, and the
// bracketed location grammar used at the CLI boundary:
//
//	[file L1:C1-L2:C2]   explicit start and end
//	[file L1:-L2:]       whole lines L1..L2
//	[file L1:C1-]        from a position to the end of that line
//	[file L1-L2:C2]      from the start of L1 to column C2 of L2
package location

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/jward/refscope/internal/errs"
)

// MaxColumn is the end-of-line sentinel used by whole-line selections.
const MaxColumn = math.MaxInt32

// SourceLocation is a 1-based line/column pair.
type SourceLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Compare orders locations line-major, then by column.
func (l SourceLocation) Compare(o SourceLocation) int {
	switch {
	case l.Line < o.Line:
		return -1
	case l.Line > o.Line:
		return 1
	case l.Column < o.Column:
		return -1
	case l.Column > o.Column:
		return 1
	}
	return 0
}

func (l SourceLocation) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// LocationRange is a start/end span inside one file.
type LocationRange struct {
	File  string         `json:"file"`
	Start SourceLocation `json:"start"`
	End   SourceLocation `json:"end"`
}

func (r LocationRange) String() string {
	return Format(r)
}

// Contains reports whether loc falls within r, end inclusive.
func (r LocationRange) Contains(loc SourceLocation) bool {
	return r.Start.Compare(loc) <= 0 && loc.Compare(r.End) <= 0
}

// LineSource exposes the line geometry of a loaded file.
type LineSource interface {
	LineCount() int
	// LineLength returns the length of a 1-based line in columns,
	// excluding the line terminator.
	LineLength(line int) int
}

var (
	explicitPattern  = regexp.MustCompile(`^\[(.+) (\d+):(\d+)-(\d+):(\d+)\]$`)
	fullLinePattern  = regexp.MustCompile(`^\[(.+) (\d+):-(\d+):\]$`)
	toLineEndPattern = regexp.MustCompile(`^\[(.+) (\d+):(\d+)-\]$`)
	fromLinePattern  = regexp.MustCompile(`^\[(.+) (\d+)-(\d+):(\d+)\]$`)
)

// Parse reads a bracketed location string. The four grammars are tried in
// priority order; the first match wins.
func Parse(text string) (LocationRange, error) {
	if m := explicitPattern.FindStringSubmatch(text); m != nil {
		n, err := atois(text, m[2:]...)
		if err != nil {
			return LocationRange{}, err
		}
		return LocationRange{
			File:  m[1],
			Start: SourceLocation{Line: n[0], Column: n[1]},
			End:   SourceLocation{Line: n[2], Column: n[3]},
		}, nil
	}
	if m := fullLinePattern.FindStringSubmatch(text); m != nil {
		n, err := atois(text, m[2:]...)
		if err != nil {
			return LocationRange{}, err
		}
		return LocationRange{
			File:  m[1],
			Start: SourceLocation{Line: n[0], Column: 1},
			End:   SourceLocation{Line: n[1], Column: MaxColumn},
		}, nil
	}
	if m := toLineEndPattern.FindStringSubmatch(text); m != nil {
		n, err := atois(text, m[2:]...)
		if err != nil {
			return LocationRange{}, err
		}
		return LocationRange{
			File:  m[1],
			Start: SourceLocation{Line: n[0], Column: n[1]},
			End:   SourceLocation{Line: n[0], Column: MaxColumn},
		}, nil
	}
	if m := fromLinePattern.FindStringSubmatch(text); m != nil {
		n, err := atois(text, m[2:]...)
		if err != nil {
			return LocationRange{}, err
		}
		return LocationRange{
			File:  m[1],
			Start: SourceLocation{Line: n[0], Column: 1},
			End:   SourceLocation{Line: n[1], Column: n[2]},
		}, nil
	}
	return LocationRange{}, errs.Newf(errs.CodeInvalidLocationFormat,
		"%q does not match [file L:C-L:C], [file L:-L:], [file L:C-] or [file L-L:C]", text)
}

func atois(text string, fields ...string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > MaxColumn {
			return nil, errs.Newf(errs.CodeInvalidLocationFormat,
				"%q: %q is not a positive line or column number", text, f)
		}
		out[i] = n
	}
	return out, nil
}

// Format renders r in the shortest grammar that parses back to r.
func Format(r LocationRange) string {
	if r.End.Column == MaxColumn {
		if r.Start.Column == 1 {
			return fmt.Sprintf("[%s %d:-%d:]", r.File, r.Start.Line, r.End.Line)
		}
		if r.Start.Line == r.End.Line {
			return fmt.Sprintf("[%s %d:%d-]", r.File, r.Start.Line, r.Start.Column)
		}
	}
	return fmt.Sprintf("[%s %d:%d-%d:%d]", r.File,
		r.Start.Line, r.Start.Column, r.End.Line, r.End.Column)
}

// ValidateRange rejects ranges whose start comes after their end. Such
// ranges are never repaired.
func ValidateRange(r LocationRange) error {
	if r.Start.Compare(r.End) > 0 {
		return errs.Newf(errs.CodeInvalidRange,
			"start %s is after end %s", r.Start, r.End).
			WithContext(errs.CtxLocation, Format(r))
	}
	return nil
}

// ValidateBounds checks the start of r against the geometry of the file it
// addresses: the line must exist and the column may point at most one past
// the last character.
func ValidateBounds(r LocationRange, src LineSource) error {
	lines := src.LineCount()
	if r.Start.Line > lines {
		return errs.Newf(errs.CodeOutOfBoundsLocation,
			"line %d is beyond the end of the file (%d lines)", r.Start.Line, lines).
			WithContext(errs.CtxLocation, Format(r))
	}
	if limit := src.LineLength(r.Start.Line) + 1; r.Start.Column > limit {
		return errs.Newf(errs.CodeOutOfBoundsLocation,
			"column %d is beyond the end of line %d (max %d)", r.Start.Column, r.Start.Line, limit).
			WithContext(errs.CtxLocation, Format(r))
	}
	return nil
}
