package complexity_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/directional-star/diggit/pkg/gitlib"
	"github.com/directional-star/diggit/pkg/gitlib/gitlibtest"
	"github.com/directional-star/diggit/pkg/reporter"
	"github.com/directional-star/diggit/pkg/reporters/complexity"
)

var epoch = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return epoch.AddDate(0, 0, n)
}

type fixture struct {
	repo *gitlib.Repository
	args reporter.Args
	// sameDay is the newer of the two commits made on the first day.
	sameDay gitlib.Hash
}

// newFixture builds four versions of master.rb: two on day 0, one on day 7
// and the pull request head on day 12, which also deletes a file.
func newFixture(t *testing.T) fixture {
	t.Helper()

	r := gitlibtest.New(t)

	r.Write("master.rb", "one")
	r.Commit("initial", day(0))

	r.Write("master.rb", "two")
	sameDay := r.Commit("same day", day(0).Add(time.Hour))

	r.Write("master.rb", "three")
	r.Write("to_be_removed.rb", "three")
	base := r.Commit("one week ago", day(7))

	r.Write("master.rb", "four")
	r.Remove("to_be_removed.rb")
	head := r.Commit("yesterday", day(12))

	return fixture{
		repo:    r.Open(),
		args:    reporter.Args{Base: base, Head: head, GHPath: "owner/repo"},
		sameDay: sameDay,
	}
}

func (f fixture) env(t *testing.T, cfg reporter.Config) reporter.Env {
	t.Helper()

	changes, err := f.repo.ChangedFiles(context.Background(), f.args.Base, f.args.Head)
	require.NoError(t, err)

	return reporter.Env{Repo: f.repo, Args: f.args, Config: cfg, Changes: changes}
}

func stubScores(scores map[string]float64) complexity.Option {
	return complexity.WithScorer(func(contents []byte) float64 {
		return scores[string(contents)]
	})
}

func TestReporterName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Complexity", complexity.New().Name())
}

func TestCommentsIncreaseBelowThreshold(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	// Same-day changes collapse, so the window sees .6, .7 and .8.
	r := complexity.New(stubScores(map[string]float64{"one": 0.5, "two": 0.6, "three": 0.7, "four": 0.8}))

	comments, err := r.Comments(context.Background(), f.env(t, nil))
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestCommentsIncreaseAboveThreshold(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	r := complexity.New(stubScores(map[string]float64{"one": 0.5, "two": 0.6, "three": 0.7, "four": 0.95}))

	comments, err := r.Comments(context.Background(), f.env(t, reporter.Config{
		"change_window":    3,
		"change_threshold": 50.0,
	}))
	require.NoError(t, err)
	require.Len(t, comments, 1)

	c := comments[0]
	assert.Equal(t, "Complexity", c.Report)
	assert.Equal(t, "master.rb", c.Index)
	assert.Equal(t, "master.rb:1", c.Location)
	assert.Contains(t, c.Message, "increased in complexity by 58% over the last 12 days")
	assert.Equal(t, map[string]any{
		"file":                "master.rb",
		"complexity_increase": 58.33,
		"head":                f.args.Head.String(),
		"base":                f.sameDay.String(),
	}, c.Meta)
}

func TestCommentsSuppressed(t *testing.T) {
	t.Parallel()

	increasing := map[string]float64{"one": 0.5, "two": 0.6, "three": 0.7, "four": 0.95}

	tests := []struct {
		name   string
		scores map[string]float64
		cfg    reporter.Config
	}{
		{
			name:   "threshold_above_change",
			scores: increasing,
			cfg:    reporter.Config{"change_threshold": 75.0},
		},
		{
			name:   "window_excludes_regression",
			scores: increasing,
			cfg:    reporter.Config{"change_window": 2},
		},
		{
			name:   "file_ignored",
			scores: increasing,
			cfg:    reporter.Config{"ignore": []any{"master.rb"}},
		},
		{
			name:   "file_ignored_by_glob",
			scores: increasing,
			cfg:    reporter.Config{"ignore": []any{"*.rb"}},
		},
		{
			name:   "latest_commit_is_decrease",
			scores: map[string]float64{"one": 0.5, "two": 0.6, "three": 1.0, "four": 0.95},
		},
		{
			name:   "earliest_score_zero",
			scores: map[string]float64{"one": 0.5, "two": 0, "three": 0.7, "four": 0.95},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			r := complexity.New(stubScores(tt.scores))

			comments, err := r.Comments(context.Background(), f.env(t, tt.cfg))
			require.NoError(t, err)
			assert.Empty(t, comments)
		})
	}
}

func TestCommentsWideWindowReachesFirstDay(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	r := complexity.New(stubScores(map[string]float64{"one": 0.5, "two": 0.6, "three": 0.7, "four": 0.95}))

	comments, err := r.Comments(context.Background(), f.env(t, reporter.Config{"change_window": 10}))
	require.NoError(t, err)
	require.Len(t, comments, 1)

	// The first day still contributes only its newest version.
	assert.InDelta(t, 58.33, comments[0].Meta["complexity_increase"], 0)
}

func TestCommentsWithWhitespaceScore(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	// Fixture contents are single words, far below the line minimum.
	comments, err := complexity.New().Comments(context.Background(), f.env(t, nil))
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestCommentsLogsScoreCacheHitRate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	r := complexity.New(stubScores(map[string]float64{"one": 0.5, "two": 0.6, "three": 0.7, "four": 0.95}))

	var buf bytes.Buffer

	env := f.env(t, nil)
	env.Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	for range 2 {
		_, err := r.Comments(context.Background(), env)
		require.NoError(t, err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)

	var last struct {
		Msg     string  `json:"msg"`
		HitRate float64 `json:"hit_rate"`
		Entries int     `json:"entries"`
	}

	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &last))
	assert.Equal(t, "score cache", last.Msg)
	// The second run scores the same blobs again, all from the cache.
	assert.InDelta(t, 0.5, last.HitRate, 1e-9)
	assert.Positive(t, last.Entries)
}
