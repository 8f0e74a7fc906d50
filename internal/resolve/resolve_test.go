package resolve

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jward/refscope/internal/errs"
	"github.com/jward/refscope/internal/location"
	"github.com/jward/refscope/internal/scope"
	"github.com/jward/refscope/internal/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, path, src string) *syntax.File {
	t.Helper()
	f, err := syntax.Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	require.False(t, f.HasErrors(), "fixture must parse cleanly: %v", f.Diagnostics)
	return f
}

func positions(f *syntax.File, ids []syntax.NodeID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.Position(f.Node(id).Start).String())
	}
	return out
}

func TestResolveByName_FirstInDocumentOrder(t *testing.T) {
	t.Parallel()
	f := parse(t, "a.ts", "let x = 1;\nfunction f() {\n  let x = 2;\n}\n")

	d, err := ResolveByName(f, "x")
	require.NoError(t, err)
	assert.Equal(t, "x", d.Name)
	assert.Equal(t, syntax.KindVariableDeclarator, f.Kind(d.Node))
	assert.Equal(t, f.Root(), d.Scope)
	assert.Equal(t, location.SourceLocation{Line: 1, Column: 5}, f.Position(f.Node(d.NameToken).Start))
}

func TestResolveByName_Parameter(t *testing.T) {
	t.Parallel()
	f := parse(t, "a.ts", "function f(count: number) {\n  return count + 1;\n}\n")

	d, err := ResolveByName(f, "count")
	require.NoError(t, err)
	assert.Equal(t, syntax.KindParameter, f.Kind(d.Node))
	assert.Equal(t, syntax.KindFunction, f.Kind(d.Scope))
	assert.Equal(t, []string{"2:10"}, positions(f, CollectUsages(d)))
}

func TestResolveByName_NotFound(t *testing.T) {
	t.Parallel()
	f := parse(t, "a.ts", "let x = 1;\n")

	_, err := ResolveByName(f, "missing")
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeDeclarationNotFound))
}

func TestResolveAtPosition(t *testing.T) {
	t.Parallel()
	src := "let total = 0;\nfunction add(n: number) {\n  total += n;\n}\n"
	f := parse(t, "a.ts", src)

	tests := []struct {
		name string
		loc  location.SourceLocation
		want string
		code errs.Code
	}{
		{name: "on declaration name", loc: location.SourceLocation{Line: 1, Column: 5}, want: "total"},
		{name: "on initializer", loc: location.SourceLocation{Line: 1, Column: 13}, want: "total"},
		{name: "on parameter", loc: location.SourceLocation{Line: 2, Column: 14}, want: "n"},
		{name: "no enclosing declaration", loc: location.SourceLocation{Line: 3, Column: 3}, code: errs.CodeDeclarationNotFound},
		{name: "line past end", loc: location.SourceLocation{Line: 40, Column: 1}, code: errs.CodeNoNodeAtPosition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ResolveAtPosition(f, tt.loc)
			if tt.code != "" {
				require.Error(t, err)
				assert.True(t, errs.IsCode(err, tt.code), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Name)
		})
	}
}

func TestResolveAtPosition_EmptyLineHitsRoot(t *testing.T) {
	t.Parallel()
	f := parse(t, "a.ts", "let a = 1;\n\nlet b = 2;\n")

	_, err := ResolveAtPosition(f, location.SourceLocation{Line: 2, Column: 1})
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeNoNodeAtPosition))
}

func TestCollectUsages_ShadowedInnerScope(t *testing.T) {
	t.Parallel()
	f := parse(t, "a.ts", "let x = 1; function f() { let x = 2; console.log(x); }")

	d, err := ResolveByName(f, "x")
	require.NoError(t, err)
	assert.Empty(t, CollectUsages(d))
}

func TestCollectUsages_DocumentOrder(t *testing.T) {
	t.Parallel()
	f := parse(t, "a.ts", "let x = 1; console.log(x); x = 2;")

	d, err := ResolveByName(f, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"1:24", "1:28"}, positions(f, CollectUsages(d)))
}

func TestCollectUsages_Unreferenced(t *testing.T) {
	t.Parallel()
	f := parse(t, "a.ts", "const unused = 42;\nconst other = 1;\nother;\n")

	d, err := ResolveByName(f, "unused")
	require.NoError(t, err)
	assert.Empty(t, CollectUsages(d))
}

func TestCollectUsages_NestedShadowing(t *testing.T) {
	t.Parallel()
	src := `let n = 1;
function outer() {
  n++;
  if (n) {
    let n = 5;
    n = n * 2;
  }
  return n;
}
`
	f := parse(t, "a.ts", src)

	all := Declarations(f)
	require.Len(t, all, 2)
	outerDecl, innerDecl := all[0], all[1]

	outerUses := CollectUsages(outerDecl)
	innerUses := CollectUsages(innerDecl)
	assert.Equal(t, []string{"3:3", "4:7", "8:10"}, positions(f, outerUses))
	assert.Equal(t, []string{"6:5", "6:9"}, positions(f, innerUses))

	for _, u := range innerUses {
		assert.NotContains(t, outerUses, u)
	}
}

func TestCollectUsages_ScopesAreContained(t *testing.T) {
	t.Parallel()
	src := `function a(v: number) {
  const w = () => v + 1;
  return w() + v;
}
function b(v: number) {
  return v;
}
`
	f := parse(t, "a.ts", src)

	for _, d := range Declarations(f) {
		for _, u := range CollectUsages(d) {
			assert.True(t, scope.IsContainedIn(f, scope.NodeScope(f, u), d.Scope),
				"usage of %s at %d escapes its declaration scope", d.Name, u)
		}
	}

	first, err := ResolveByName(f, "v")
	require.NoError(t, err)
	assert.Equal(t, []string{"2:19", "3:16"}, positions(f, CollectUsages(first)))
}

func TestCollectUsages_Idempotent(t *testing.T) {
	t.Parallel()
	f := parse(t, "a.js", "var s = '';\nfor (let i = 0; i < 3; i++) { s += i; }\nconsole.log(s);\n")

	d1, err := ResolveByName(f, "s")
	require.NoError(t, err)
	d2, err := ResolveByName(f, "s")
	require.NoError(t, err)
	assert.Equal(t, CollectUsages(d1), CollectUsages(d2))
	assert.Len(t, CollectUsages(d1), 2)
}

func TestCollectUsages_PropertyNamesAreNotUsages(t *testing.T) {
	t.Parallel()
	f := parse(t, "a.ts", "const id = 1;\nconst o = { id: 2 };\nconsole.log(o.id, id);\n")

	d, err := ResolveByName(f, "id")
	require.NoError(t, err)
	assert.Equal(t, []string{"3:19"}, positions(f, CollectUsages(d)))
}

func TestBindAll_ImportBinding(t *testing.T) {
	t.Parallel()
	src := "import { helper as h } from './lib';\nh();\nfunction g(h: number) { return h; }\n"
	f := parse(t, "b.ts", src)

	spec := f.FirstDescendant(f.Root(), syntax.KindImportSpecifier)
	require.NotEqual(t, syntax.NoNode, spec)
	alias := f.ChildByField(spec, "alias")
	require.NotEqual(t, syntax.NoNode, alias)

	bindings := BindAll(f, Declaration{File: f, Node: spec, NameToken: alias, Name: "h", Scope: f.Root()})
	assert.Equal(t, []string{"2:1"}, positions(f, bindings[spec]))

	param, err := ResolveByName(f, "h")
	require.NoError(t, err)
	assert.Equal(t, []string{"3:32"}, positions(f, bindings[param.Node]))
}

func TestBindAll_MatchesCollectUsages(t *testing.T) {
	t.Parallel()
	src := `let n = 1;
function outer(a, b) {
  n++;
  const m = a + b;
  {
    let n = m;
    n = n * a;
  }
  return (x) => x + n + m;
}
var dup = 1;
var dup = dup + n;
`
	f := parse(t, "a.js", src)

	bindings := BindAll(f)
	for _, d := range Declarations(f) {
		assert.Equal(t, CollectUsages(d), bindings[d.Node], "usages of %s", d.Name)
	}

	var dups [][]string
	for _, d := range Declarations(f) {
		if d.Name == "dup" {
			dups = append(dups, positions(f, bindings[d.Node]))
		}
	}
	assert.Equal(t, [][]string{{"12:5", "12:11"}, {"11:5", "12:11"}}, dups)
}

func TestBindAll_LargeFile(t *testing.T) {
	t.Parallel()
	var b strings.Builder
	b.WriteString("const target = 0;\n")
	const n = 4000
	for i := range n {
		fmt.Fprintf(&b, "function f%d(v) { const w = v + target; return w; }\n", i)
	}
	f := parse(t, "big.js", b.String())

	start := time.Now()
	bindings := BindAll(f)
	elapsed := time.Since(start)

	target, err := ResolveByName(f, "target")
	require.NoError(t, err)
	assert.Len(t, bindings[target.Node], n)
	assert.Len(t, Declarations(f), 1+2*n)
	assert.Less(t, elapsed, 5*time.Second)
}
