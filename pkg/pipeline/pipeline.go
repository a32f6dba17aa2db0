// Package pipeline runs every reporter over one base..head diff against an
// isolated snapshot of the repository and aggregates their comments.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/directional-star/diggit/pkg/cache"
	"github.com/directional-star/diggit/pkg/gitlib"
	"github.com/directional-star/diggit/pkg/observability"
	"github.com/directional-star/diggit/pkg/reporter"
)

// DefaultMaxFilesChanged is the largest diff that gets analysed.
const DefaultMaxFilesChanged = 50

// ErrBadGitHistory is returned when head or base cannot be resolved.
var ErrBadGitHistory = errors.New("bad git history")

// Pipeline analyses one diff. It is not safe for concurrent use; independent
// pipelines may run concurrently.
type Pipeline struct {
	repo            *gitlib.Repository
	args            reporter.Args
	reporters       []reporter.Reporter
	store           cache.Store
	logger          *slog.Logger
	metrics         *observability.AnalysisMetrics
	maxFilesChanged int
	workDir         string
	runID           string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithReporters replaces [DefaultReporters]. Reporters run in the given order.
func WithReporters(reporters ...reporter.Reporter) Option {
	return func(p *Pipeline) {
		p.reporters = reporters
	}
}

// WithCache sets the store shared with reporters.
func WithCache(store cache.Store) Option {
	return func(p *Pipeline) {
		p.store = store
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics *observability.AnalysisMetrics) Option {
	return func(p *Pipeline) {
		p.metrics = metrics
	}
}

// WithMaxFilesChanged sets the diff size gate.
func WithMaxFilesChanged(n int) Option {
	return func(p *Pipeline) {
		p.maxFilesChanged = n
	}
}

// WithWorkDir sets the parent directory of snapshots ("" uses the system
// temp dir).
func WithWorkDir(dir string) Option {
	return func(p *Pipeline) {
		p.workDir = dir
	}
}

// New validates that both ends of the diff exist in repo.
func New(ctx context.Context, repo *gitlib.Repository, args reporter.Args, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		repo:            repo,
		args:            args,
		maxFilesChanged: DefaultMaxFilesChanged,
		runID:           uuid.NewString(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.reporters == nil {
		p.reporters = DefaultReporters(0)
	}

	if p.store == nil {
		p.store = cache.NewMemoryStore()
	}

	p.logger = observability.OrDefault(p.logger).With("gh_path", args.GHPath, "run_id", p.runID)

	for _, h := range []gitlib.Hash{args.Head, args.Base} {
		commit, err := repo.LookupCommit(ctx, h)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadGitHistory, err)
		}

		commit.Free()
	}

	return p, nil
}

// RunID identifies this pipeline in logs and traces.
func (p *Pipeline) RunID() string {
	return p.runID
}

// AggregateComments runs every reporter in order and concatenates their
// comments. Diffs wider than the files-changed gate yield no comments and
// run no reporter. The first reporter error aborts the run.
func (p *Pipeline) AggregateComments(ctx context.Context) (comments []reporter.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "diggit.pipeline",
		attribute.String("run_id", p.runID),
		attribute.String("gh_path", p.args.GHPath),
		attribute.String("base", p.args.Base.String()),
		attribute.String("head", p.args.Head.String()))
	defer func() { observability.EndSpan(span, err) }()

	changes, err := p.repo.ChangedFiles(ctx, p.args.Base, p.args.Head)
	if err != nil {
		return nil, err
	}

	if len(changes) > p.maxFilesChanged {
		p.logger.InfoContext(ctx, "files changed, too large, skipping", "files_changed", len(changes))
		p.metrics.RecordSkip(ctx, "too_many_files")

		return []reporter.Comment{}, nil
	}

	snap, err := gitlib.NewSnapshot(ctx, p.repo, p.workDir, p.args.Head)
	if err != nil {
		return nil, err
	}

	defer func() {
		err = errors.Join(err, snap.Close())
	}()

	project, err := LoadProjectConfig(ctx, snap.Repository, p.args.Head)
	if err != nil {
		return nil, err
	}

	comments = []reporter.Comment{}

	for _, rep := range p.reporters {
		out, runErr := p.run(ctx, snap, rep, reporter.Env{
			Repo:    snap.Repository,
			Args:    p.args,
			Config:  project.For(rep.Name()),
			Changes: changes,
			Cache:   p.store,
			Logger:  p.logger.With("reporter", rep.Name()),
			Metrics: p.metrics,
		})
		if runErr != nil {
			return nil, runErr
		}

		comments = append(comments, out...)
	}

	span.SetAttributes(attribute.Int("comments", len(comments)))

	return comments, nil
}

// run executes one reporter and restores the snapshot afterwards, whatever
// the reporter did to it.
func (p *Pipeline) run(
	ctx context.Context, snap *gitlib.Snapshot, rep reporter.Reporter, env reporter.Env,
) (comments []reporter.Comment, err error) {
	name := rep.Name()

	ctx, span := observability.StartSpan(ctx, "diggit.reporter", attribute.String("reporter", name))
	defer func() { observability.EndSpan(span, err) }()

	p.logger.InfoContext(ctx, "running reporter", "reporter", name)

	start := time.Now()
	comments, err = rep.Comments(ctx, env)
	p.metrics.RecordReporter(ctx, name, time.Since(start), len(comments), err)

	restoreErr := snap.Restore(ctx)
	if restoreErr != nil {
		restoreErr = fmt.Errorf("restore after %s: %w", name, restoreErr)
	}

	if err != nil {
		return nil, errors.Join(fmt.Errorf("reporter %s: %w", name, err), restoreErr)
	}

	if restoreErr != nil {
		return nil, restoreErr
	}

	return comments, nil
}
