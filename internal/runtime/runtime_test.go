package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/risor-io/risor/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/refscope/internal/xref"
)

func TestRunSource_ReturnsFinalValue(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")

	result, err := rt.RunSource(context.Background(), `basename("./lib/util") + "@" + dirname("./lib/util")`, "<inline>", nil)
	require.NoError(t, err)
	assert.Equal(t, "util@./lib", result.Interface())
}

func TestRunSource_ExtraGlobals(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")

	result, err := rt.RunSource(context.Background(), `answer * 2`, "<inline>", map[string]any{"answer": object.NewInt(21)})
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.Interface())
}

func TestRunSource_Error(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")

	_, err := rt.RunSource(context.Background(), `undefined_function()`, "bad.risor", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.risor")
}

func TestLoadScript(t *testing.T) {
	t.Parallel()

	t.Run("disk relative to scripts dir", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "load.risor"), []byte(`true`), 0o644))
		src, err := NewRuntime(dir).LoadScript("load.risor")
		require.NoError(t, err)
		assert.Equal(t, "true", src)
	})

	t.Run("fs", func(t *testing.T) {
		fsys := fstest.MapFS{"matchers/load.risor": {Data: []byte(`false`)}}
		src, err := NewRuntime("", WithRuntimeFS(fsys)).LoadScript("/matchers/load.risor")
		require.NoError(t, err)
		assert.Equal(t, "false", src)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := NewRuntime(t.TempDir()).LoadScript("nope.risor")
		require.Error(t, err)
	})
}

func TestScriptMatcher(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"load.risor": {Data: []byte(`callee == "loadModule" || (callee == "require" && specifier != "fs")`)},
	}
	rt := NewRuntime("", WithRuntimeFS(fsys))
	m, err := NewScriptMatcher(rt, "load.risor")
	require.NoError(t, err)

	tests := []struct {
		call xref.LoaderCall
		want bool
	}{
		{xref.LoaderCall{Callee: "loadModule", Specifier: "./a", File: "/p/b.js"}, true},
		{xref.LoaderCall{Callee: "require", Specifier: "./a", File: "/p/b.js"}, true},
		{xref.LoaderCall{Callee: "require", Specifier: "fs", File: "/p/b.js"}, false},
		{xref.LoaderCall{Callee: "fetch", Specifier: "./a", File: "/p/b.js"}, false},
	}
	for _, tt := range tests {
		got, err := m.IsLoaderCall(context.Background(), tt.call)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%+v", tt.call)
	}
}

func TestScriptMatcher_FileGlobal(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{"only_legacy.risor": {Data: []byte(`basename(dirname(file)) == "legacy"`)}}
	m, err := NewScriptMatcher(NewRuntime("", WithRuntimeFS(fsys)), "only_legacy.risor")
	require.NoError(t, err)

	ok, err := m.IsLoaderCall(context.Background(), xref.LoaderCall{Callee: "x", Specifier: "./a", File: "/p/legacy/b.js"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.IsLoaderCall(context.Background(), xref.LoaderCall{Callee: "x", Specifier: "./a", File: "/p/src/b.js"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScriptMatcher_ScriptErrorIsReturned(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{"broken.risor": {Data: []byte(`missing_global + 1`)}}
	m, err := NewScriptMatcher(NewRuntime("", WithRuntimeFS(fsys)), "broken.risor")
	require.NoError(t, err)

	_, err = m.IsLoaderCall(context.Background(), xref.LoaderCall{Callee: "require"})
	require.Error(t, err)
}

var _ xref.LoaderMatcher = xref.AnyMatcher{xref.NameMatcher{}, (*ScriptMatcher)(nil)}
