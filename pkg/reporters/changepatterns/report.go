// Package changepatterns suggests files that usually change together with
// the files of a pull request but were left untouched by it.
package changepatterns

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/directional-star/diggit/pkg/alg/stats"
	"github.com/directional-star/diggit/pkg/cache"
	"github.com/directional-star/diggit/pkg/changeset"
	"github.com/directional-star/diggit/pkg/itemset"
	"github.com/directional-star/diggit/pkg/observability"
	"github.com/directional-star/diggit/pkg/reporter"
)

// Name identifies the reporter in comments and project configuration.
const Name = "ChangePatterns"

// Configuration defaults.
const (
	DefaultMinConfidence    = 0.75
	DefaultMaxChangesetSize = 25
	DefaultMaxItems         = 25
)

const percent = 100

// Reporter mines the project's co-change history up to the pull request
// base and comments on files the history says are missing from the diff.
type Reporter struct {
	workers int
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithWorkers bounds miner parallelism. Zero uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(r *Reporter) {
		r.workers = n
	}
}

// New creates a change-patterns reporter.
func New(opts ...Option) *Reporter {
	r := &Reporter{}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Name implements [reporter.Reporter].
func (r *Reporter) Name() string {
	return Name
}

// settings are the resolved reporter configuration.
type settings struct {
	minSupport       int
	minConfidence    float64
	maxChangesetSize int
	maxItems         int
	algorithm        string
}

// minedItemsets is the cached mining result, tagged with everything it was
// computed from.
type minedItemsets struct {
	Head             string
	Algorithm        string
	MinSupport       int
	MaxItems         int
	MaxChangesetSize int
	Corpus           int
	Itemsets         []itemset.ItemSet
}

func (m minedItemsets) matches(head string, s settings, corpus int) bool {
	return m.Head == head && m.Algorithm == s.algorithm && m.MinSupport == s.minSupport &&
		m.MaxItems == s.maxItems && m.MaxChangesetSize == s.maxChangesetSize && m.Corpus == corpus
}

// Comments implements [reporter.Reporter].
func (r *Reporter) Comments(ctx context.Context, env reporter.Env) (comments []reporter.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "diggit.changepatterns")
	defer func() { observability.EndSpan(span, err) }()

	files := env.FilesChanged()
	if len(files) == 0 {
		return nil, nil
	}

	gen := changeset.NewGenerator(env.Repo, env.Cache, env.Args.GHPath,
		changeset.WithLogger(env.Logger), changeset.WithMetrics(env.Metrics))

	history, err := gen.Changesets(ctx, env.Args.Base)
	if err != nil {
		return nil, err
	}

	s := settings{
		minConfidence:    env.Config.Float("min_confidence", DefaultMinConfidence),
		maxChangesetSize: env.Config.Int("max_changeset_size", DefaultMaxChangesetSize),
		maxItems:         env.Config.Int("max_items", DefaultMaxItems),
		algorithm:        env.Config.String("algorithm", itemset.AlgorithmFPGrowth),
	}

	corpus := narrow(changeset.Files(history), s.maxChangesetSize)
	s.minSupport = env.Config.Int("min_support", itemset.MinSupportFor(len(corpus)))

	sets, err := r.itemsets(ctx, env, s, corpus)
	if err != nil {
		return nil, err
	}

	rules := NewSuggester(sets).Suggest(files, s.maxChangesetSize)

	for _, rule := range rules {
		if rule.Confidence < s.minConfidence {
			continue
		}

		comments = append(comments, comment(rule))
	}

	span.SetAttributes(
		attribute.Int("corpus", len(corpus)),
		attribute.Int("itemsets", len(sets)),
		attribute.Int("comments", len(comments)))

	return comments, nil
}

// itemsets returns the frequent itemsets of corpus, reusing the cached
// result when it was mined from the same base with the same settings.
func (r *Reporter) itemsets(
	ctx context.Context, env reporter.Env, s settings, corpus [][]string,
) ([]itemset.ItemSet, error) {
	key := cache.ItemsetsKey(env.Args.GHPath)
	base := env.Args.Base.String()

	store := env.Cache
	if store == nil {
		store = cache.NewMemoryStore()
	}

	var cached minedItemsets

	found, err := cache.Load(ctx, store, key, &cached)
	if err != nil {
		return nil, err
	}

	if found && cached.matches(base, s, len(corpus)) {
		env.Log().DebugContext(ctx, "using cached itemsets", "count", len(cached.Itemsets))

		return cached.Itemsets, nil
	}

	miner, err := itemset.New(s.algorithm, r.workers)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	sets, err := miner.FrequentItemsets(ctx, corpus, s.minSupport, s.maxItems)
	if err != nil {
		return nil, fmt.Errorf("mine itemsets: %w", err)
	}

	env.Metrics.RecordMining(ctx, miner.Name(), len(sets), time.Since(start))
	env.Log().InfoContext(ctx, "mined itemsets",
		"algorithm", miner.Name(), "min_support", s.minSupport, "count", len(sets))

	err = cache.Save(ctx, store, key, minedItemsets{
		Head:             base,
		Algorithm:        s.algorithm,
		MinSupport:       s.minSupport,
		MaxItems:         s.maxItems,
		MaxChangesetSize: s.maxChangesetSize,
		Corpus:           len(corpus),
		Itemsets:         sets,
	})
	if err != nil {
		return nil, err
	}

	return sets, nil
}

// narrow drops transactions wider than maxSize. maxSize <= 0 keeps all.
func narrow(transactions [][]string, maxSize int) [][]string {
	if maxSize <= 0 {
		return transactions
	}

	out := make([][]string, 0, len(transactions))

	for _, tx := range transactions {
		if len(tx) <= maxSize {
			out = append(out, tx)
		}
	}

	return out
}

func comment(rule Rule) reporter.Comment {
	return reporter.Comment{
		Report:   Name,
		Index:    rule.Consequent,
		Location: reporter.Location(rule.Consequent, 1),
		Message: fmt.Sprintf("`%s` was modified in %d%% of past changes involving %s",
			rule.Consequent, int(math.Round(rule.Confidence*percent)), strings.Join(rule.Antecedent, ", ")),
		Meta: map[string]any{
			"missing_file": rule.Consequent,
			"confidence":   stats.Round(rule.Confidence, 2),
			"antecedent":   rule.Antecedent,
		},
	}
}
