package refscope

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jward/refscope/internal/config"
	"github.com/jward/refscope/internal/errs"
	"github.com/jward/refscope/internal/project"
	"github.com/jward/refscope/internal/runtime"
	"github.com/jward/refscope/internal/syntax"
	"github.com/jward/refscope/internal/xref"
)

// Engine answers variable and reference queries. It holds no parsed state
// between calls: every query loads the files it needs from disk.
type Engine struct {
	cfg       *config.Config
	workDir   string
	logger    *slog.Logger
	scriptsFS fs.FS
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default settings.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithWorkDir sets the directory relative paths and location strings are
// resolved against. It defaults to the process working directory.
func WithWorkDir(dir string) Option {
	return func(e *Engine) {
		e.workDir = dir
	}
}

// WithLogger sets the logger used by the engine and its components.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithScriptsFS sets the filesystem that "embedded:" loader scripts are
// read from.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// New creates an Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg == nil {
		e.cfg = config.Default()
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("refscope: %w", err)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("refscope: getting cwd: %w", err)
		}
		e.workDir = wd
	}
	abs, err := filepath.Abs(e.workDir)
	if err != nil {
		return nil, fmt.Errorf("refscope: resolve work dir %s: %w", e.workDir, err)
	}
	e.workDir = abs
	return e, nil
}

// WorkDir returns the absolute working directory.
func (e *Engine) WorkDir() string {
	return e.workDir
}

// Config returns the engine's settings.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// absPath resolves a user-supplied path against the working directory.
func (e *Engine) absPath(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(e.workDir, path)
}

// displayPath reports path relative to the working directory when it lies
// inside it.
func (e *Engine) displayPath(path string) string {
	rel, err := filepath.Rel(e.workDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}

// loadTarget creates a project rooted at the target's project root and
// parses the target. Syntax errors in the target stop the query.
func (e *Engine) loadTarget(ctx context.Context, file string) (*project.Project, *syntax.File, error) {
	abs := e.absPath(file)
	root := project.DetermineRoot(abs, e.workDir, e.cfg)
	proj, err := project.New(root, e.cfg, e.logger)
	if err != nil {
		return nil, nil, err
	}
	f, err := proj.Load(ctx, abs)
	if err != nil {
		return nil, nil, errs.AddContext(err, errs.CtxPath, e.displayPath(abs))
	}
	if err := e.compilationErrors(f); err != nil {
		return nil, nil, err
	}
	e.logger.Debug("target loaded", "path", e.displayPath(abs), "root", root)
	return proj, f, nil
}

func (e *Engine) compilationErrors(f *syntax.File) error {
	if len(f.Diagnostics) == 0 {
		return nil
	}
	first := f.Diagnostics[0]
	return errs.Newf(errs.CodeCompilationErrors,
		"%s has syntax errors, first at %d:%d: %s",
		e.displayPath(f.Path), first.Line, first.Column, first.Message).
		WithContext(errs.CtxPath, e.displayPath(f.Path)).
		WithContext(errs.CtxCount, len(f.Diagnostics))
}

// matcher builds the loader matcher from the loader settings.
func (e *Engine) matcher() (xref.LoaderMatcher, error) {
	names := xref.NameMatcher{
		Functions:     e.cfg.Loader.Functions,
		DynamicImport: e.cfg.Loader.DynamicImport,
	}
	script := e.cfg.Loader.Script
	if script == "" {
		return names, nil
	}

	var rt *runtime.Runtime
	if name, ok := strings.CutPrefix(script, config.EmbeddedPrefix); ok {
		if e.scriptsFS == nil {
			return nil, errs.Newf(errs.CodeNotSupported, "no embedded scripts available for %q", script)
		}
		rt = runtime.NewRuntime("", runtime.WithRuntimeFS(e.scriptsFS), runtime.WithLogger(e.logger))
		script = name
	} else {
		script = e.absPath(script)
		rt = runtime.NewRuntime(filepath.Dir(script), runtime.WithLogger(e.logger))
	}
	sm, err := runtime.NewScriptMatcher(rt, script)
	if err != nil {
		return nil, fmt.Errorf("refscope: loader script: %w", err)
	}
	return xref.AnyMatcher{names, sm}, nil
}
