package xref

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/refscope/internal/binder"
	"github.com/jward/refscope/internal/errs"
	"github.com/jward/refscope/internal/resolve"
	"github.com/jward/refscope/internal/store"
	"github.com/jward/refscope/internal/syntax"
)

// memProject is an in-memory Project over absolute slash paths.
type memProject struct {
	files []*syntax.File
}

func newMemProject(t *testing.T, sources map[string]string, order ...string) *memProject {
	t.Helper()
	p := &memProject{}
	for _, name := range order {
		f, err := syntax.Parse(context.Background(), name, []byte(sources[name]))
		require.NoError(t, err)
		require.False(t, f.HasErrors(), "%s: %v", name, f.Diagnostics)
		p.files = append(p.files, f)
	}
	return p
}

func (p *memProject) Files() []*syntax.File { return p.files }

func (p *memProject) ResolveImport(from, specifier string) (string, bool) {
	if !strings.HasPrefix(specifier, ".") {
		return "", false
	}
	base := path.Join(path.Dir(from), specifier)
	for _, f := range p.files {
		for _, ext := range []string{"", ".ts", ".js"} {
			if f.Path == base+ext {
				return f.Path, true
			}
		}
	}
	return "", false
}

func (p *memProject) file(name string) *syntax.File {
	for _, f := range p.files {
		if f.Path == name {
			return f
		}
	}
	return nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func render(set *ReferenceSet) []string {
	var out []string
	for _, r := range set.Refs() {
		out = append(out, path.Base(r.File.Path)+":"+r.File.Position(r.Start()).String()+":"+string(r.Strategy))
	}
	return out
}

func indexed(t *testing.T, p *memProject) *binder.Binder {
	t.Helper()
	b, err := binder.New(context.Background(), p, quiet())
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	require.NoError(t, b.Index(context.Background(), p.Files()))
	return b
}

var runtimeLoad = map[string]string{
	"/p/a.ts": "export const foo = () => 1;\nexport const bar = 2;\n",
	"/p/b.js": "const { foo } = require('./a');\nfoo();\nconsole.log(`${foo}`, foo + 1);\nconst other = { foo: 1 };\n",
	"/p/c.ts": "import { foo } from './a';\nfoo();\n",
	"/p/d.js": "async function f() {\n  const { foo: run } = await import('./a');\n  run(1);\n}\n",
	"/p/e.js": "const { foo } = require('./elsewhere');\nfoo();\n",
}

func TestFindAllReferences_SemanticThenStructural(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := newMemProject(t, runtimeLoad, "/p/a.ts", "/p/b.js", "/p/c.ts", "/p/d.js", "/p/e.js")

	decl, err := resolve.ResolveByName(p.file("/p/a.ts"), "foo")
	require.NoError(t, err)

	set, err := FindAllReferences(ctx, decl, p, "/p", Options{
		Index:   indexed(t, p),
		Matcher: NameMatcher{Functions: []string{"require"}, DynamicImport: true},
		Logger:  quiet(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"a.ts:1:14:semantic",
		"c.ts:1:10:semantic",
		"c.ts:2:1:semantic",
		"b.js:1:9:structural",
		"b.js:2:1:structural",
		"b.js:3:16:structural",
		"b.js:3:23:structural",
		"d.js:2:16:structural",
		"d.js:3:3:structural",
	}, render(set))
}

func TestFindAllReferences_StructuralOnlyAcrossRuntimeLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sources := map[string]string{
		"/p/a.ts": "export const foo = () => 1;\n",
		"/p/b.js": "const { foo } = require('./a');\nfoo();\n",
	}
	p := newMemProject(t, sources, "/p/a.ts", "/p/b.js")
	decl, err := resolve.ResolveByName(p.file("/p/a.ts"), "foo")
	require.NoError(t, err)

	set, err := FindAllReferences(ctx, decl, p, "/p", Options{
		Index:   indexed(t, p),
		Matcher: NameMatcher{Functions: []string{"require"}},
	})
	require.NoError(t, err)
	assert.Contains(t, render(set), "b.js:2:1:structural")
}

func TestFindAllReferences_DynamicImportDisabled(t *testing.T) {
	t.Parallel()
	p := newMemProject(t, runtimeLoad, "/p/a.ts", "/p/d.js")
	decl, err := resolve.ResolveByName(p.file("/p/a.ts"), "foo")
	require.NoError(t, err)

	set, err := FindAllReferences(context.Background(), decl, p, "/p", Options{
		Matcher: NameMatcher{Functions: []string{"require"}},
	})
	require.NoError(t, err)
	assert.Zero(t, set.Len())
}

func TestFindAllReferences_ScopeRoot(t *testing.T) {
	t.Parallel()
	sources := map[string]string{
		"/p/lib/a.ts":   "export const foo = 1;\n",
		"/p/lib/b.js":   "const { foo } = require('./a');\nfoo();\n",
		"/p/other/c.js": "const { foo } = require('../lib/a');\nfoo();\n",
	}
	p := newMemProject(t, sources, "/p/lib/a.ts", "/p/lib/b.js", "/p/other/c.js")
	decl, err := resolve.ResolveByName(p.file("/p/lib/a.ts"), "foo")
	require.NoError(t, err)

	set, err := FindAllReferences(context.Background(), decl, p, "/p/lib", Options{
		Matcher: NameMatcher{Functions: []string{"require"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.js:1:9:structural", "b.js:2:1:structural"}, render(set))
}

func TestFindAllReferences_StructuralNeedsTopLevelDeclaration(t *testing.T) {
	t.Parallel()
	sources := map[string]string{
		"/p/a.js": "function g(foo) { return foo; }\nfunction h() { const foo = 2; return foo; }\nconst foo = 1;\nmodule.exports = { foo };\n",
		"/p/b.js": "const { foo } = require('./a');\nfoo();\n",
	}
	p := newMemProject(t, sources, "/p/a.js", "/p/b.js")
	decls := resolve.Declarations(p.file("/p/a.js"))
	require.Len(t, decls, 3)

	tests := []struct {
		name string
		decl resolve.Declaration
		want []string
	}{
		{"parameter", decls[0], []string{"a.js:1:12:semantic", "a.js:1:26:semantic"}},
		{"function local", decls[1], []string{"a.js:2:22:semantic", "a.js:2:38:semantic"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := FindAllReferences(context.Background(), tt.decl, p, "/p", Options{
				Index:   indexed(t, p),
				Matcher: NameMatcher{Functions: []string{"require"}},
				Logger:  quiet(),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, render(set))
		})
	}

	set, err := FindAllReferences(context.Background(), decls[2], p, "/p", Options{
		Matcher: NameMatcher{Functions: []string{"require"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.js:1:9:structural", "b.js:2:1:structural"}, render(set))
}

func TestFindAllReferences_MarksDestructuredBinding(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		src     string
		binding string
	}{
		{"shorthand first", "const { foo, bar } = require('./a');\nfoo();\n", "1:9"},
		{"shorthand later", "const { bar, foo } = require('./a');\nfoo();\n", "1:14"},
		{"renamed", "const { bar, foo: local } = require('./a');\nlocal();\n", "1:19"},
		{"defaulted", "const { bar, foo = 0 } = require('./a');\nfoo();\n", "1:14"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sources := map[string]string{
				"/p/a.ts": "export const foo = 1;\nexport const bar = 2;\n",
				"/p/b.js": tt.src,
			}
			p := newMemProject(t, sources, "/p/a.ts", "/p/b.js")
			decl, err := resolve.ResolveByName(p.file("/p/a.ts"), "foo")
			require.NoError(t, err)

			set, err := FindAllReferences(context.Background(), decl, p, "/p", Options{
				Matcher: NameMatcher{Functions: []string{"require"}},
			})
			require.NoError(t, err)
			var bindings, uses []string
			for _, r := range set.Refs() {
				pos := r.File.Position(r.Start()).String()
				if r.Binding {
					bindings = append(bindings, pos)
				} else {
					uses = append(uses, pos)
				}
			}
			assert.Equal(t, []string{tt.binding}, bindings)
			assert.Equal(t, []string{"2:1"}, uses)
		})
	}
}

// stubIndex returns canned answers.
type stubIndex struct {
	symErr error
	groups [][]syntax.Ref
}

func (s stubIndex) SymbolAt(context.Context, *syntax.File, syntax.NodeID) (*store.Symbol, error) {
	if s.symErr != nil {
		return nil, s.symErr
	}
	return &store.Symbol{ID: 1}, nil
}

func (s stubIndex) FindReferences(context.Context, *store.Symbol) ([][]syntax.Ref, error) {
	return s.groups, nil
}

func TestFindAllReferences_NoSymbolIsNotFatal(t *testing.T) {
	t.Parallel()
	p := newMemProject(t, runtimeLoad, "/p/a.ts", "/p/b.js")
	decl, err := resolve.ResolveByName(p.file("/p/a.ts"), "foo")
	require.NoError(t, err)

	set, err := FindAllReferences(context.Background(), decl, p, "/p", Options{
		Index:   stubIndex{symErr: errs.New(errs.CodeNoSymbolAtPosition, "none")},
		Matcher: NameMatcher{Functions: []string{"require"}},
		Logger:  quiet(),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, set.Len())
	for _, r := range set.Refs() {
		assert.Equal(t, Structural, r.Strategy)
	}
}

func TestFindAllReferences_OtherIndexErrorsPropagate(t *testing.T) {
	t.Parallel()
	p := newMemProject(t, runtimeLoad, "/p/a.ts")
	decl, err := resolve.ResolveByName(p.file("/p/a.ts"), "foo")
	require.NoError(t, err)

	boom := errors.New("index unavailable")
	_, err = FindAllReferences(context.Background(), decl, p, "/p", Options{Index: stubIndex{symErr: boom}})
	require.ErrorIs(t, err, boom)
}

func TestFindAllReferences_Dedup(t *testing.T) {
	t.Parallel()
	p := newMemProject(t, runtimeLoad, "/p/a.ts", "/p/b.js")
	b := p.file("/p/b.js")
	decl, err := resolve.ResolveByName(p.file("/p/a.ts"), "foo")
	require.NoError(t, err)

	// The index already knows the call on line 2; it must not repeat.
	var call syntax.NodeID = syntax.NoNode
	for i := range b.Nodes {
		id := syntax.NodeID(i)
		if b.Kind(id) == syntax.KindIdentifier && b.Text(id) == "foo" && b.Position(b.Node(id).Start).Line == 2 {
			call = id
		}
	}
	require.NotEqual(t, syntax.NoNode, call)

	set, err := FindAllReferences(context.Background(), decl, p, "/p", Options{
		Index:   stubIndex{groups: [][]syntax.Ref{{decl.Ref()}, {{File: b, Node: call}}}},
		Matcher: NameMatcher{Functions: []string{"require"}},
	})
	require.NoError(t, err)

	seen := map[string]int{}
	for _, r := range set.Refs() {
		seen[r.File.Path+":"+r.File.Position(r.Start()).String()]++
	}
	for k, n := range seen {
		assert.Equal(t, 1, n, "duplicate %s", k)
	}
	assert.Equal(t, []string{
		"a.ts:1:14:semantic",
		"b.js:2:1:semantic",
		"b.js:1:9:structural",
		"b.js:3:16:structural",
		"b.js:3:23:structural",
	}, render(set))
}

func TestAnyMatcher(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := AnyMatcher{
		NameMatcher{Functions: []string{"require"}},
		NameMatcher{Functions: []string{"loader.load"}, DynamicImport: true},
	}
	for _, tt := range []struct {
		callee string
		want   bool
	}{
		{"require", true},
		{"loader.load", true},
		{DynamicImportCallee, true},
		{"fetch", false},
	} {
		got, err := m.IsLoaderCall(ctx, LoaderCall{Callee: tt.callee, Specifier: "./a"})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.callee)
	}
}
