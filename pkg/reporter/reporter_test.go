package reporter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/directional-star/diggit/pkg/gitlib"
	"github.com/directional-star/diggit/pkg/reporter"
)

func TestConfigGetters(t *testing.T) {
	t.Parallel()

	cfg := reporter.Config{
		"window":    3,
		"big":       uint64(7),
		"whole":     4.0,
		"fraction":  0.75,
		"threshold": 50,
		"name":      "apriori",
		"number":    12,
		"ignore":    []any{"a.rb", "lib/*.rb"},
		"single":    "only.rb",
		"typed":     []string{"x"},
	}

	assert.Equal(t, 3, cfg.Int("window", 1))
	assert.Equal(t, 7, cfg.Int("big", 1))
	assert.Equal(t, 4, cfg.Int("whole", 1))
	assert.Equal(t, 1, cfg.Int("fraction", 1))
	assert.Equal(t, 9, cfg.Int("missing", 9))

	assert.InDelta(t, 0.75, cfg.Float("fraction", 0), 0)
	assert.InDelta(t, 50.0, cfg.Float("threshold", 0), 0)
	assert.InDelta(t, 1.5, cfg.Float("name", 1.5), 0)

	assert.Equal(t, "apriori", cfg.String("name", ""))
	assert.Equal(t, "12", cfg.String("number", ""))
	assert.Equal(t, "dflt", cfg.String("missing", "dflt"))

	assert.Equal(t, []string{"a.rb", "lib/*.rb"}, cfg.Strings("ignore"))
	assert.Equal(t, []string{"only.rb"}, cfg.Strings("single"))
	assert.Equal(t, []string{"x"}, cfg.Strings("typed"))
	assert.Nil(t, cfg.Strings("missing"))
}

func TestNilConfig(t *testing.T) {
	t.Parallel()

	var cfg reporter.Config

	assert.Equal(t, 2, cfg.Int("anything", 2))
	assert.Nil(t, cfg.Strings("anything"))
}

func TestIgnored(t *testing.T) {
	t.Parallel()

	patterns := []string{"master.rb", "lib/*.rb"}

	assert.True(t, reporter.Ignored("master.rb", patterns))
	assert.True(t, reporter.Ignored("lib/app.rb", patterns))
	assert.False(t, reporter.Ignored("lib/deep/app.rb", patterns))
	assert.False(t, reporter.Ignored("other.rb", patterns))
	assert.False(t, reporter.Ignored("master.rb", nil))
}

func TestLocation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "app.rb:12", reporter.Location("app.rb", 12))
}

func TestFilesChangedSkipsDeletions(t *testing.T) {
	t.Parallel()

	env := reporter.Env{Changes: gitlib.Changes{
		{Action: gitlib.Modify, To: gitlib.ChangeEntry{Name: "kept.rb"}},
		{Action: gitlib.Delete, From: gitlib.ChangeEntry{Name: "gone.rb"}},
		{Action: gitlib.Insert, To: gitlib.ChangeEntry{Name: "new.rb"}},
	}}

	assert.Equal(t, []string{"kept.rb", "new.rb"}, env.FilesChanged())
	assert.NotNil(t, env.Log())
}
