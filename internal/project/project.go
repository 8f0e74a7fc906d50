// Package project bounds the set of files a cross-file query may look at
// and loads them into memory. A Project belongs to a single command and is
// discarded with it.
package project

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/jward/refscope/internal/config"
	"github.com/jward/refscope/internal/syntax"
)

type exclude struct {
	raw string
	g   glob.Glob
}

func (e exclude) matches(base, rel string) bool {
	if e.raw == base || e.raw == rel {
		return true
	}
	return e.g != nil && (e.g.Match(base) || e.g.Match(rel))
}

// Project maps file paths to parsed files. Loading is memoized by absolute
// path; files are reported in load order.
type Project struct {
	root     string
	cfg      *config.Config
	logger   *slog.Logger
	excludes []exclude
	ignore   *gitignore.GitIgnore

	files map[string]*syntax.File
	order []string
}

// New creates an empty project rooted at root.
func New(root string, cfg *config.Config, logger *slog.Logger) (*Project, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("project: resolve root %s: %w", root, err)
	}

	p := &Project{
		root:   abs,
		cfg:    cfg,
		logger: logger,
		files:  make(map[string]*syntax.File),
	}
	for _, raw := range LoadExcludePatterns(abs, cfg) {
		raw = strings.TrimSuffix(strings.TrimPrefix(raw, "./"), "/")
		g, err := glob.Compile(raw, '/')
		if err != nil {
			logger.Warn("ignoring invalid exclude pattern", "pattern", raw, "error", err)
		}
		p.excludes = append(p.excludes, exclude{raw: raw, g: g})
	}

	if cfg.Project.RespectGitignore {
		path := filepath.Join(abs, ".gitignore")
		if isFile(path) {
			ig, err := gitignore.CompileIgnoreFile(path)
			if err != nil {
				logger.Warn("ignoring unreadable .gitignore", "path", path, "error", err)
			} else {
				p.ignore = ig
			}
		}
	}
	return p, nil
}

// Root returns the absolute project root.
func (p *Project) Root() string { return p.root }

// Load parses path once and returns the cached file on later calls.
func (p *Project) Load(ctx context.Context, path string) (*syntax.File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("project: resolve %s: %w", path, err)
	}
	if f, ok := p.files[abs]; ok {
		return f, nil
	}

	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("project: read %s: %w", abs, err)
	}
	f, err := syntax.Parse(ctx, abs, src)
	if err != nil {
		return nil, err
	}
	p.files[abs] = f
	p.order = append(p.order, abs)
	return f, nil
}

// LoadAll walks the project root and loads every source file that is not
// excluded. Files that fail to load are logged and skipped.
func (p *Project) LoadAll(ctx context.Context) error {
	loaded, skipped := 0, 0
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == p.root {
				return err
			}
			p.logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == p.root {
			return nil
		}

		if d.IsDir() {
			if d.Name() == ".git" || p.Excluded(path, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !p.isSource(path) || p.Excluded(path, false) {
			return nil
		}
		if _, seen := p.files[path]; seen {
			return nil
		}
		if _, err := p.Load(ctx, path); err != nil {
			p.logger.Warn("skipping file", "path", path, "error", err)
			skipped++
			return nil
		}
		loaded++
		return nil
	})
	if err != nil {
		return fmt.Errorf("project: walk %s: %w", p.root, err)
	}
	p.logger.Debug("project loaded", "root", p.root, "files", len(p.order), "new", loaded, "skipped", skipped)
	return nil
}

// Excluded reports whether path matches an exclude pattern or the root
// .gitignore.
func (p *Project) Excluded(path string, isDir bool) bool {
	rel, err := filepath.Rel(p.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(path)
	for _, e := range p.excludes {
		if e.matches(base, rel) {
			return true
		}
	}
	if p.ignore != nil {
		if p.ignore.MatchesPath(rel) || (isDir && p.ignore.MatchesPath(rel+"/")) {
			return true
		}
	}
	return false
}

func (p *Project) isSource(path string) bool {
	if !p.cfg.IsSourceExtension(filepath.Ext(path)) {
		return false
	}
	if syntax.IsDeclarationFile(path) || strings.HasSuffix(path, ".min.js") {
		return false
	}
	_, ok := syntax.LanguageForFile(path)
	return ok
}

// Files returns the loaded files in load order.
func (p *Project) Files() []*syntax.File {
	out := make([]*syntax.File, 0, len(p.order))
	for _, path := range p.order {
		out = append(out, p.files[path])
	}
	return out
}

// File returns the loaded file at path.
func (p *Project) File(path string) (*syntax.File, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}
	f, ok := p.files[abs]
	return f, ok
}

// ResolveImport resolves a relative module specifier written in file from
// to an absolute file path. Bare package specifiers are not resolved.
func (p *Project) ResolveImport(from, specifier string) (string, bool) {
	if !isRelative(specifier) {
		return "", false
	}
	base := filepath.Join(filepath.Dir(from), filepath.FromSlash(specifier))
	if !filepath.IsAbs(base) {
		abs, err := filepath.Abs(base)
		if err != nil {
			return "", false
		}
		base = abs
	}

	candidates := []string{base}
	// `./a.js` may name a TypeScript source compiled to a.js.
	if ext := filepath.Ext(base); ext == ".js" || ext == ".jsx" {
		stem := strings.TrimSuffix(base, ext)
		candidates = append(candidates, stem+".ts", stem+".tsx")
	}
	for _, ext := range p.cfg.Project.Extensions {
		candidates = append(candidates, base+ext)
	}
	for _, ext := range p.cfg.Project.Extensions {
		candidates = append(candidates, filepath.Join(base, "index"+ext))
	}

	for _, c := range candidates {
		if _, ok := p.files[c]; ok {
			return c, true
		}
		if isFile(c) {
			return c, true
		}
	}
	return "", false
}

func isRelative(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}
