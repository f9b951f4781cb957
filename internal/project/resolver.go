// Package project resolves project names from working directories.
package project

import (
	"path/filepath"
	"regexp"
	"sync"

	git "github.com/go-git/go-git/v5"
)

// namePattern is the only shape a project name may take; anything else
// coerces to "unknown".
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,100}$`)

// Unknown is the fallback project name.
const Unknown = "unknown"

// Sanitize coerces a raw project name to the allowed pattern.
func Sanitize(name string) string {
	if namePattern.MatchString(name) {
		return name
	}
	return Unknown
}

// Resolver maps working directories to project names, memoized for the
// resolver's lifetime. It is an explicit object owned by the hosting
// service rather than package-level state.
type Resolver struct {
	mu    sync.Mutex
	cache map[string]string
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{cache: make(map[string]string)}
}

// Resolve returns the project name for a working directory: the name
// of the enclosing git repository's root directory when one exists,
// else the directory's own base name, sanitized either way.
func (r *Resolver) Resolve(cwd string) string {
	if cwd == "" {
		return Unknown
	}

	r.mu.Lock()
	if name, ok := r.cache[cwd]; ok {
		r.mu.Unlock()
		return name
	}
	r.mu.Unlock()

	name := Sanitize(repoName(cwd))

	r.mu.Lock()
	r.cache[cwd] = name
	r.mu.Unlock()
	return name
}

// repoName finds the git worktree root above cwd and returns its base
// name, falling back to cwd's base name outside a repository.
func repoName(cwd string) string {
	repo, err := git.PlainOpenWithOptions(cwd, &git.PlainOpenOptions{DetectDotGit: true})
	if err == nil {
		if wt, err := repo.Worktree(); err == nil {
			return filepath.Base(wt.Filesystem.Root())
		}
	}
	return filepath.Base(filepath.Clean(cwd))
}
