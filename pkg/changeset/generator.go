package changeset

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/directional-star/diggit/pkg/cache"
	"github.com/directional-star/diggit/pkg/gitlib"
	"github.com/directional-star/diggit/pkg/observability"
)

// Generator walks a repository and maintains the changeset cache of one project.
type Generator struct {
	repo    *gitlib.Repository
	store   cache.Store
	ghPath  string
	logger  *slog.Logger
	metrics *observability.AnalysisMetrics
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics *observability.AnalysisMetrics) Option {
	return func(g *Generator) {
		g.metrics = metrics
	}
}

// NewGenerator creates a generator for the project identified by ghPath. A nil
// store keeps the cache in memory for the life of the generator.
func NewGenerator(repo *gitlib.Repository, store cache.Store, ghPath string, opts ...Option) *Generator {
	g := &Generator{repo: repo, store: store, ghPath: ghPath}

	for _, opt := range opts {
		opt(g)
	}

	if g.store == nil {
		g.store = cache.NewMemoryStore()
	}

	g.logger = observability.OrDefault(g.logger).With("gh_path", ghPath)

	return g
}

// Changesets returns every changeset reachable from head, newest first. Only
// commits missing from the cache are walked. The merged result drops entries
// newer than head's author time and is written back to the cache.
func (g *Generator) Changesets(ctx context.Context, head gitlib.Hash) (result []Changeset, err error) {
	ctx, span := observability.StartSpan(ctx, "diggit.changesets.walk",
		attribute.String("gh_path", g.ghPath),
		attribute.String("head", head.String()))
	defer func() { observability.EndSpan(span, err) }()

	commit, err := g.repo.LookupCommit(ctx, head)
	if err != nil {
		return nil, err
	}

	cutoff := commit.Author().When.Unix()
	commit.Free()

	key := cache.ChangesetsKey(g.ghPath)

	var cached []Changeset

	_, err = cache.Load(ctx, g.store, key, &cached)
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "walking repository", "cached", len(cached))

	fresh, err := g.walk(ctx, head, cached)
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "found new changesets", "count", len(fresh))
	g.metrics.RecordChangesets(ctx, len(fresh))

	merged := make([]Changeset, 0, len(cached)+len(fresh))
	merged = append(merged, cached...)
	merged = append(merged, fresh...)

	sortNewestFirst(merged)
	merged = dropAfter(dedupe(merged), cutoff)

	err = cache.Save(ctx, g.store, key, merged)
	if err != nil {
		return nil, err
	}

	intern(merged)
	span.SetAttributes(attribute.Int("changesets", len(merged)))

	return merged, nil
}

// walk collects changesets for commits reachable from head but not from any
// cached commit.
func (g *Generator) walk(ctx context.Context, head gitlib.Hash, cached []Changeset) ([]Changeset, error) {
	walk, err := g.repo.Walk()
	if err != nil {
		return nil, err
	}
	defer walk.Free()

	walk.Sorting(gitlib.SortTime)

	err = walk.Push(head)
	if err != nil {
		return nil, err
	}

	for _, cs := range cached {
		hash, parseErr := gitlib.ParseHash(cs.Commit)
		if parseErr != nil {
			continue
		}

		// Cached commits rewritten away by a force push are no longer in the
		// object database; there is nothing to hide.
		hideErr := walk.Hide(hash)
		if hideErr != nil {
			g.logger.DebugContext(ctx, "cached commit not hidden", "oid", cs.Commit, "error", hideErr)
		}
	}

	var fresh []Changeset

	err = walk.ForEach(func(commit *gitlib.Commit) error {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return ctxErr
		}

		if commit.NumParents() != 1 {
			return nil
		}

		changes, diffErr := gitlib.CommitChanges(commit)
		if diffErr != nil {
			return diffErr
		}

		if len(changes) == 0 {
			return nil
		}

		fresh = append(fresh, Changeset{
			Commit:    commit.Hash().String(),
			Files:     changes.Paths(),
			Timestamp: commit.Author().When.Unix(),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return fresh, nil
}
