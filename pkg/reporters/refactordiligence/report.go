// Package refactordiligence flags methods that keep growing every time they
// are modified instead of being refactored.
package refactordiligence

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/directional-star/diggit/pkg/cache"
	"github.com/directional-star/diggit/pkg/gitlib"
	"github.com/directional-star/diggit/pkg/observability"
	"github.com/directional-star/diggit/pkg/reporter"
)

// Name identifies the reporter in comments and project configuration.
const Name = "RefactorDiligence"

// DefaultTimesIncreasedThreshold is the number of growths a method may have
// before it is reported.
const DefaultTimesIncreasedThreshold = 2

const scanEntries = 1024

// History is the chronological sequence of a method's sizes, recorded only
// when the size changes.
type History []int

// Record appends size when it differs from the last recorded size.
func (h History) Record(size int) History {
	if len(h) > 0 && h[len(h)-1] == size {
		return h
	}

	return append(h, size)
}

// Increases counts entries strictly larger than the one before.
func (h History) Increases() int {
	n := 0

	for i := 1; i < len(h); i++ {
		if h[i] > h[i-1] {
			n++
		}
	}

	return n
}

func (h History) String() string {
	parts := make([]string, len(h))
	for i, size := range h {
		parts[i] = strconv.Itoa(size)
	}

	return strings.Join(parts, " -> ")
}

// Reporter tracks method sizes across every commit that touched the files of
// the diff.
type Reporter struct {
	scanner *Scanner
	scans   *cache.LRU[scanKey, []Method]
}

// scanKey includes the path since the language comes from the file name.
type scanKey struct {
	blob gitlib.Hash
	file string
}

// New creates a refactor-diligence reporter.
func New() *Reporter {
	return &Reporter{
		scanner: NewScanner(),
		scans:   cache.NewLRU[scanKey, []Method](scanEntries),
	}
}

// Name implements [reporter.Reporter].
func (r *Reporter) Name() string {
	return Name
}

// methodKey identifies a method across versions. Names are only unique
// within their namespace.
type methodKey struct {
	namespace string
	name      string
}

func compareKeys(a, b methodKey) int {
	return cmp.Or(cmp.Compare(a.namespace, b.namespace), cmp.Compare(a.name, b.name))
}

type location struct {
	file string
	line int
}

// touch is one commit of interest and the blobs of the files it changed.
type touch struct {
	commit gitlib.Hash
	when   time.Time
	blobs  map[string]gitlib.Hash
}

// Comments implements [reporter.Reporter].
func (r *Reporter) Comments(ctx context.Context, env reporter.Env) (comments []reporter.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "diggit.refactordiligence")
	defer func() { observability.EndSpan(span, err) }()

	threshold := env.Config.Int("times_increased_threshold", DefaultTimesIncreasedThreshold)
	ignore := env.Config.Strings("ignore")

	var files []string

	for _, file := range env.FilesChanged() {
		if r.scanner.Supports(file) && !reporter.Ignored(file, ignore) {
			files = append(files, file)
		}
	}

	if len(files) == 0 {
		return nil, nil
	}

	slices.Sort(files)

	current, err := r.currentLocations(ctx, env.Repo, env.Args.Head, files)
	if err != nil {
		return nil, err
	}

	touches, err := commitsOfInterest(ctx, env.Repo, env.Args.Head, files)
	if err != nil {
		return nil, err
	}

	histories, err := r.histories(ctx, env.Repo, touches)
	if err != nil {
		return nil, err
	}

	for _, key := range slices.SortedFunc(maps.Keys(histories), compareKeys) {
		loc, ok := current[key]
		if !ok {
			continue
		}

		history := histories[key]
		if history.Increases() <= threshold {
			continue
		}

		comments = append(comments, comment(key.name, loc, history))
	}

	span.SetAttributes(
		attribute.Int("commits", len(touches)),
		attribute.Int("methods", len(histories)),
		attribute.Int("comments", len(comments)))

	scanStats := r.scans.Stats()
	env.Log().DebugContext(ctx, "scan cache",
		"hit_rate", scanStats.HitRate(), "entries", scanStats.Entries)

	return comments, nil
}

// currentLocations maps every method present at head to where it is now.
func (r *Reporter) currentLocations(
	ctx context.Context, repo *gitlib.Repository, head gitlib.Hash, files []string,
) (map[methodKey]location, error) {
	commit, err := repo.LookupCommit(ctx, head)
	if err != nil {
		return nil, err
	}
	defer commit.Free()

	locations := make(map[methodKey]location)

	for _, file := range files {
		blob, exists, hashErr := commit.FileHash(file)
		if hashErr != nil {
			return nil, hashErr
		}

		if !exists {
			continue
		}

		methods, scanErr := r.scan(ctx, repo, file, blob)
		if scanErr != nil {
			return nil, scanErr
		}

		namespace := r.scanner.Namespace(file)

		for _, m := range methods {
			key := methodKey{namespace: namespace, name: m.Name}
			if _, seen := locations[key]; !seen {
				locations[key] = location{file: file, line: m.Line}
			}
		}
	}

	return locations, nil
}

// commitsOfInterest returns every commit reachable from head that changed
// one of files, oldest first.
func commitsOfInterest(
	ctx context.Context, repo *gitlib.Repository, head gitlib.Hash, files []string,
) ([]*touch, error) {
	byCommit := make(map[gitlib.Hash]*touch)

	for _, file := range files {
		entries, err := repo.PathLog(ctx, head, file, 0)
		if err != nil {
			return nil, fmt.Errorf("log %s: %w", file, err)
		}

		for _, e := range entries {
			t, ok := byCommit[e.Commit]
			if !ok {
				t = &touch{commit: e.Commit, when: e.When, blobs: make(map[string]gitlib.Hash)}
				byCommit[e.Commit] = t
			}

			t.blobs[file] = e.Blob
		}
	}

	touches := slices.Collect(maps.Values(byCommit))
	slices.SortFunc(touches, func(a, b *touch) int {
		if c := a.when.Compare(b.when); c != 0 {
			return c
		}

		return cmp.Compare(a.commit.String(), b.commit.String())
	})

	return touches, nil
}

// histories replays touches in order and records each method's size.
func (r *Reporter) histories(
	ctx context.Context, repo *gitlib.Repository, touches []*touch,
) (map[methodKey]History, error) {
	histories := make(map[methodKey]History)

	for _, t := range touches {
		recorded := make(map[methodKey]bool)

		for _, file := range slices.Sorted(maps.Keys(t.blobs)) {
			methods, err := r.scan(ctx, repo, file, t.blobs[file])
			if err != nil {
				return nil, err
			}

			namespace := r.scanner.Namespace(file)

			for _, m := range methods {
				key := methodKey{namespace: namespace, name: m.Name}
				if recorded[key] {
					continue
				}

				recorded[key] = true
				histories[key] = histories[key].Record(m.Lines)
			}
		}
	}

	return histories, nil
}

func (r *Reporter) scan(ctx context.Context, repo *gitlib.Repository, file string, blob gitlib.Hash) ([]Method, error) {
	return r.scans.GetOrCompute(scanKey{blob: blob, file: file}, func() ([]Method, error) {
		contents, err := repo.BlobContents(ctx, blob)
		if err != nil {
			return nil, err
		}

		return r.scanner.Scan(ctx, file, contents)
	})
}

func comment(name string, loc location, history History) reporter.Comment {
	increases := history.Increases()

	return reporter.Comment{
		Report:   Name,
		Index:    loc.file,
		Location: reporter.Location(loc.file, loc.line),
		Message: fmt.Sprintf("`%s` has increased in size %d times as it was modified: %s",
			name, increases, history),
		Meta: map[string]any{
			"method_name":     name,
			"times_increased": increases,
			"history":         []int(history),
		},
	}
}
