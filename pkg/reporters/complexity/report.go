// Package complexity flags files whose whitespace complexity has risen
// sharply over their most recent changes.
package complexity

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/src-d/enry/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/directional-star/diggit/pkg/alg/stats"
	"github.com/directional-star/diggit/pkg/cache"
	"github.com/directional-star/diggit/pkg/gitlib"
	"github.com/directional-star/diggit/pkg/observability"
	"github.com/directional-star/diggit/pkg/reporter"
)

// Name identifies the reporter in comments and project configuration.
const Name = "Complexity"

// Configuration defaults.
const (
	DefaultChangeWindow    = 3
	DefaultChangeThreshold = 50.0
)

const (
	hoursPerDay  = 24
	scoreEntries = 1024
)

// Scorer computes the complexity of one file version.
type Scorer func(contents []byte) float64

// Reporter compares complexity across the last few changes of every file in
// the diff.
type Reporter struct {
	score  Scorer
	scores *cache.LRU[gitlib.Hash, float64]
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithScorer replaces the whitespace [Score].
func WithScorer(score Scorer) Option {
	return func(r *Reporter) {
		r.score = score
	}
}

// New creates a complexity reporter.
func New(opts ...Option) *Reporter {
	r := &Reporter{score: Score}

	for _, opt := range opts {
		opt(r)
	}

	r.scores = cache.NewLRU[gitlib.Hash, float64](scoreEntries)

	return r
}

// Name implements [reporter.Reporter].
func (r *Reporter) Name() string {
	return Name
}

// point is the file version that closes one calendar day.
type point struct {
	commit gitlib.Hash
	when   time.Time
	score  float64
}

// Comments implements [reporter.Reporter].
func (r *Reporter) Comments(ctx context.Context, env reporter.Env) (comments []reporter.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "diggit.complexity")
	defer func() { observability.EndSpan(span, err) }()

	window := env.Config.Int("change_window", DefaultChangeWindow)
	threshold := env.Config.Float("change_threshold", DefaultChangeThreshold)
	ignore := env.Config.Strings("ignore")

	for _, file := range env.FilesChanged() {
		if reporter.Ignored(file, ignore) || enry.IsVendor(file) {
			continue
		}

		points, pointsErr := r.trend(ctx, env.Repo, env.Args.Head, file, window)
		if pointsErr != nil {
			return nil, fmt.Errorf("complexity of %s: %w", file, pointsErr)
		}

		comment, ok := regression(file, points, threshold)
		if ok {
			comments = append(comments, comment)
		}
	}

	span.SetAttributes(attribute.Int("comments", len(comments)))

	scoreStats := r.scores.Stats()
	env.Log().DebugContext(ctx, "score cache",
		"hit_rate", scoreStats.HitRate(), "entries", scoreStats.Entries)

	return comments, nil
}

// trend returns at most window scored points for file, oldest first. Changes
// made on the same UTC day collapse into the newest of them.
func (r *Reporter) trend(
	ctx context.Context, repo *gitlib.Repository, head gitlib.Hash, file string, window int,
) ([]point, error) {
	if window < 1 {
		return nil, nil
	}

	entries, err := repo.PathLog(ctx, head, file, window+1)
	if err != nil {
		return nil, err
	}

	var points []point

	lastDay := ""

	for _, entry := range entries {
		day := entry.When.UTC().Format(time.DateOnly)
		if day == lastDay {
			continue
		}

		lastDay = day

		if len(points) == window {
			break
		}

		score, scoreErr := r.scores.GetOrCompute(entry.Blob, func() (float64, error) {
			contents, readErr := repo.BlobContents(ctx, entry.Blob)
			if readErr != nil {
				return 0, readErr
			}

			return r.score(contents), nil
		})
		if scoreErr != nil {
			return nil, scoreErr
		}

		points = append(points, point{commit: entry.Commit, when: entry.When, score: score})
	}

	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	return points, nil
}

// regression reports a comment when the latest point is itself an increase
// and the rise from the earliest point exceeds threshold percent.
func regression(file string, points []point, threshold float64) (reporter.Comment, bool) {
	if len(points) < 2 {
		return reporter.Comment{}, false
	}

	earliest := points[0]
	previous := points[len(points)-2]
	latest := points[len(points)-1]

	if earliest.score <= 0 || latest.score <= previous.score {
		return reporter.Comment{}, false
	}

	increase := stats.PercentChange(earliest.score, latest.score)
	if increase <= threshold {
		return reporter.Comment{}, false
	}

	days := int(math.Round(latest.when.Sub(earliest.when).Hours() / hoursPerDay))

	return reporter.Comment{
		Report:   Name,
		Index:    file,
		Location: reporter.Location(file, 1),
		Message: fmt.Sprintf("`%s` has increased in complexity by %d%% over the last %d days",
			file, int(math.Round(increase)), days),
		Meta: map[string]any{
			"file":                file,
			"complexity_increase": stats.Round(increase, 2),
			"head":                latest.commit.String(),
			"base":                earliest.commit.String(),
		},
	}, true
}
