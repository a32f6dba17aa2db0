// Package reporter defines the contract shared by every analysis that turns a
// base..head diff into review comments.
package reporter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/directional-star/diggit/pkg/cache"
	"github.com/directional-star/diggit/pkg/gitlib"
	"github.com/directional-star/diggit/pkg/observability"
)

// Comment is a single finding surfaced to the pull request author.
type Comment struct {
	Report   string         `json:"report"`
	Index    string         `json:"index"`
	Location string         `json:"location"`
	Message  string         `json:"message"`
	Meta     map[string]any `json:"meta"`
}

// Args identifies the diff under analysis.
type Args struct {
	Base   gitlib.Hash
	Head   gitlib.Hash
	GHPath string
}

// Env is everything a reporter may use during one run. Repo is a borrowed
// view of the isolated snapshot and must not be retained after Comments
// returns.
type Env struct {
	Repo    *gitlib.Repository
	Args    Args
	Config  Config
	Changes gitlib.Changes
	Cache   cache.Store
	Logger  *slog.Logger
	Metrics *observability.AnalysisMetrics
}

// FilesChanged returns the paths of the diff that still exist at head.
func (e Env) FilesChanged() []string {
	return e.Changes.Surviving()
}

// Log returns the environment logger, never nil.
func (e Env) Log() *slog.Logger {
	return observability.OrDefault(e.Logger)
}

// Reporter produces comments for one diff.
type Reporter interface {
	Name() string
	Comments(ctx context.Context, env Env) ([]Comment, error)
}

// Location formats a "<file>:<line>" location.
func Location(file string, line int) string {
	return fmt.Sprintf("%s:%d", file, line)
}

// Ignored reports whether path matches any entry in patterns, either exactly
// or as a [filepath.Match] glob.
func Ignored(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern == path {
			return true
		}

		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}

	return false
}
