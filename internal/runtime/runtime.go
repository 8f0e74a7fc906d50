// Package runtime embeds a Risor VM for user-supplied predicate scripts.
// A loader script decides whether a call expression loads a module at
// runtime, for codebases that wrap require() in their own helpers.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/refscope/internal/xref"
)

// Runtime evaluates Risor scripts with refscope's host globals.
type Runtime struct {
	scriptsDir string
	fsys       fs.FS
	logger     *slog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS loads scripts and Risor imports from fsys instead of disk.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithLogger sets the logger behind the scripts' log global.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

// NewRuntime creates a Runtime resolving relative script paths and Risor
// imports against scriptsDir.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{scriptsDir: scriptsDir, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunSource executes Risor source with the standard globals plus extra
// and returns the script's final value.
func (r *Runtime) RunSource(ctx context.Context, source, label string, extra map[string]any) (object.Object, error) {
	globals := r.buildGlobals(extra)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return result, nil
}

// buildImporter returns a Risor importer for the configured script
// source, or nil when neither an fs.FS nor a scripts directory is set.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file. Relative paths are resolved against the
// scripts directory, or inside the fs.FS when one is configured.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"log":      mustProxy(&logObject{logger: r.logger}),
		"basename": makeBasenameFn(),
		"dirname":  makeDirnameFn(),
	}
	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}

// ScriptMatcher is an xref.LoaderMatcher backed by a Risor predicate. The
// script sees the globals callee, specifier and file and its final value
// is read for truthiness.
type ScriptMatcher struct {
	rt     *Runtime
	label  string
	source string
}

var _ xref.LoaderMatcher = (*ScriptMatcher)(nil)

// NewScriptMatcher loads the predicate at path once.
func NewScriptMatcher(rt *Runtime, path string) (*ScriptMatcher, error) {
	src, err := rt.LoadScript(path)
	if err != nil {
		return nil, err
	}
	return &ScriptMatcher{rt: rt, label: path, source: src}, nil
}

// IsLoaderCall evaluates the predicate for one candidate call.
func (m *ScriptMatcher) IsLoaderCall(ctx context.Context, call xref.LoaderCall) (bool, error) {
	result, err := m.rt.RunSource(ctx, m.source, m.label, map[string]any{
		"callee":    object.NewString(call.Callee),
		"specifier": object.NewString(call.Specifier),
		"file":      object.NewString(call.File),
	})
	if err != nil {
		return false, err
	}
	return result != nil && result.IsTruthy(), nil
}
