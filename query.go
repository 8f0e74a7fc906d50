package refscope

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/jward/refscope/internal/binder"
	"github.com/jward/refscope/internal/location"
	"github.com/jward/refscope/internal/project"
	"github.com/jward/refscope/internal/resolve"
	"github.com/jward/refscope/internal/syntax"
	"github.com/jward/refscope/internal/usage"
	"github.com/jward/refscope/internal/xref"
)

// LocateVariable finds the first declaration named name in file and the
// usages that bind to it.
func (e *Engine) LocateVariable(ctx context.Context, file, name string) (*VariableLocationResult, error) {
	_, f, err := e.loadTarget(ctx, file)
	if err != nil {
		return nil, err
	}
	d, err := resolve.ResolveByName(f, name)
	if err != nil {
		return nil, err
	}
	return e.variableResult(d), nil
}

// LocateAt resolves the declaration enclosing the start of a location
// string and the usages that bind to it.
func (e *Engine) LocateAt(ctx context.Context, loc string) (*VariableLocationResult, error) {
	d, err := e.declarationAt(ctx, loc)
	if err != nil {
		return nil, err
	}
	return e.variableResult(d.decl), nil
}

type target struct {
	proj *project.Project
	decl resolve.Declaration
}

func (e *Engine) declarationAt(ctx context.Context, loc string) (target, error) {
	r, err := location.Parse(loc)
	if err != nil {
		return target{}, err
	}
	if err := location.ValidateRange(r); err != nil {
		return target{}, err
	}
	proj, f, err := e.loadTarget(ctx, r.File)
	if err != nil {
		return target{}, err
	}
	if err := location.ValidateBounds(r, f); err != nil {
		return target{}, err
	}
	d, err := resolve.ResolveAtPosition(f, r.Start)
	if err != nil {
		return target{}, err
	}
	return target{proj: proj, decl: d}, nil
}

func (e *Engine) variableResult(d resolve.Declaration) *VariableLocationResult {
	f := d.File
	res := &VariableLocationResult{
		VariableName: d.Name,
		Declaration: Declaration{
			Location: e.locationOf(f, d.NameToken),
			Text:     d.Name,
			Source:   f.Text(d.Node),
		},
		Usages: []Usage{},
	}
	for _, id := range resolve.CollectUsages(d) {
		res.Usages = append(res.Usages, Usage{
			Location:  e.locationOf(f, id),
			Text:      f.Text(id),
			UsageType: usage.Classify(f, id),
		})
	}
	sort.SliceStable(res.Usages, func(i, j int) bool {
		a, b := res.Usages[i].Location, res.Usages[j].Location
		if a.File != b.File {
			return a.File < b.File
		}
		return a.StartLine < b.StartLine
	})
	return res
}

// FindReferences finds references across the target's project to the
// declaration enclosing the start of a location string.
func (e *Engine) FindReferences(ctx context.Context, loc string) ([]Reference, error) {
	t, err := e.declarationAt(ctx, loc)
	if err != nil {
		return nil, err
	}
	return e.references(ctx, t)
}

// FindReferencesByName finds references across the target's project to
// the first declaration named name in file.
func (e *Engine) FindReferencesByName(ctx context.Context, file, name string) ([]Reference, error) {
	proj, f, err := e.loadTarget(ctx, file)
	if err != nil {
		return nil, err
	}
	d, err := resolve.ResolveByName(f, name)
	if err != nil {
		return nil, err
	}
	return e.references(ctx, target{proj: proj, decl: d})
}

func (e *Engine) references(ctx context.Context, t target) ([]Reference, error) {
	if err := t.proj.LoadAll(ctx); err != nil {
		return nil, err
	}
	files := t.proj.Files()

	b, err := binder.New(ctx, t.proj, e.logger)
	if err != nil {
		return nil, err
	}
	defer b.Close()
	if err := b.Index(ctx, files); err != nil {
		return nil, fmt.Errorf("refscope: index: %w", err)
	}

	m, err := e.matcher()
	if err != nil {
		return nil, err
	}
	set, err := xref.FindAllReferences(ctx, t.decl, t.proj, t.proj.Root(), xref.Options{
		Index:   b,
		Matcher: m,
		Logger:  e.logger,
	})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("references found", "name", t.decl.Name, "files", len(files), "count", set.Len())

	decl := t.decl.Ref()
	out := []Reference{{
		Location:    e.locationOf(decl.File, decl.Node),
		Text:        t.decl.Name,
		UsageType:   usage.Write,
		Declaration: true,
		Strategy:    string(xref.Semantic),
	}}
	var rest []Reference
	for _, ref := range set.Refs() {
		if ref.File == decl.File && ref.Node == decl.Node {
			continue
		}
		r := Reference{
			Location: e.locationOf(ref.File, ref.Node),
			Text:     ref.File.Text(ref.Node),
			Strategy: string(ref.Strategy),
		}
		if ref.Binding {
			r.UsageType = usage.Write
			r.Declaration = true
			out = append(out, r)
			continue
		}
		r.UsageType = usage.Classify(ref.File, ref.Node)
		rest = append(rest, r)
	}
	return append(out, rest...), nil
}

// Check parses file and reports its syntax errors. A file that cannot be
// read or has an unsupported extension is an error; syntax errors are not.
func (e *Engine) Check(ctx context.Context, file string) ([]Diagnostic, error) {
	abs := e.absPath(file)
	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("refscope: read %s: %w", e.displayPath(abs), err)
	}
	f, err := syntax.Parse(ctx, abs, src)
	if err != nil {
		return nil, err
	}
	out := make([]Diagnostic, 0, len(f.Diagnostics))
	for _, d := range f.Diagnostics {
		out = append(out, Diagnostic{
			File:    e.displayPath(abs),
			Line:    d.Line,
			Column:  d.Column,
			Message: d.Message,
		})
	}
	return out, nil
}
