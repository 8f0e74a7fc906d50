package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/jward/refscope/internal/config"
)

// DependencyDir is always excluded, even when a manifest lists its own
// excludes without it.
const DependencyDir = "node_modules"

// DetermineRoot picks the project root for file. Inside a test sandbox
// (`<marker>/.../<input>/...`) the nearest input directory wins. Otherwise
// the nearest ancestor holding the manifest is used, searching no higher
// than cwd. The file's own directory is the fallback.
func DetermineRoot(file, cwd string, cfg *config.Config) string {
	abs, err := filepath.Abs(file)
	if err != nil {
		abs = filepath.Clean(file)
	}
	dir := filepath.Dir(abs)

	if root, ok := sandboxRoot(dir, cfg.Sandbox); ok {
		return root
	}

	if cwdAbs, err := filepath.Abs(cwd); err == nil && within(dir, cwdAbs) {
		for cur := dir; within(cur, cwdAbs); cur = filepath.Dir(cur) {
			if isFile(filepath.Join(cur, cfg.Project.Manifest)) {
				return cur
			}
			if cur == cwdAbs {
				break
			}
		}
	}
	return dir
}

func sandboxRoot(dir string, sb config.Sandbox) (string, bool) {
	for cur := dir; ; cur = filepath.Dir(cur) {
		if filepath.Base(cur) == sb.InputDir && hasMarkerAbove(cur, sb.Markers) {
			return cur, true
		}
		if parent := filepath.Dir(cur); parent == cur {
			return "", false
		}
	}
}

func hasMarkerAbove(dir string, markers []string) bool {
	for cur := filepath.Dir(dir); ; cur = filepath.Dir(cur) {
		if slices.Contains(markers, filepath.Base(cur)) {
			return true
		}
		if parent := filepath.Dir(cur); parent == cur {
			return false
		}
	}
}

func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

type manifest struct {
	Exclude []string `json:"exclude"`
}

// LoadExcludePatterns returns the exclusion patterns for root. A valid
// manifest with an exclude list supplies them verbatim, plus DependencyDir
// when it is missing. Without a usable list the configured defaults apply.
func LoadExcludePatterns(root string, cfg *config.Config) []string {
	defaults := slices.Clone(cfg.Project.DefaultExcludes)

	data, err := os.ReadFile(filepath.Join(root, cfg.Project.Manifest))
	if err != nil {
		return defaults
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return defaults
	}
	var m manifest
	if err := json.Unmarshal(std, &m); err != nil || m.Exclude == nil {
		return defaults
	}

	patterns := slices.Clone(m.Exclude)
	if !slices.Contains(patterns, DependencyDir) {
		patterns = append(patterns, DependencyDir)
	}
	return patterns
}
