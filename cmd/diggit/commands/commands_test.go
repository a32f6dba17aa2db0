package commands //nolint:testpackage // Tests reach the range parser and suggestion timer.

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/directional-star/diggit/pkg/gitlib"
	"github.com/directional-star/diggit/pkg/gitlib/gitlibtest"
	"github.com/directional-star/diggit/pkg/itemset"
	"github.com/directional-star/diggit/pkg/persist"
	"github.com/directional-star/diggit/pkg/reporter"
	"github.com/directional-star/diggit/pkg/reporters/changepatterns"
)

var epoch = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return epoch.AddDate(0, 0, n)
}

type fixture struct {
	path       string
	base, head gitlib.Hash
	config     string
}

// newFixture commits a history where app_controller.rb changes with
// app_template.html in 3 of the 4 commits touching the template, then a head
// commit touching only the template.
func newFixture(t *testing.T, serviceConfig string) fixture {
	t.Helper()

	r := gitlibtest.New(t)

	r.Write(".diggit.yml", "ChangePatterns:\n  min_support: 1\n  min_confidence: 0.5\n  max_changeset_size: 10\n")
	r.Write("app.rb", "Sinatra::App")
	r.Commit("initial", day(0))

	r.Write("app_controller.rb", "class AppController; end")
	r.Commit("app controller", day(1))

	r.Write("app_template.html", "<html></html>")
	r.Write("app_controller.rb", "class AppController\n  def render_template\n    render('app_template.html')\n  end\nend\n")
	r.Commit("render app_template", day(2))

	r.Write("app_template.html", "<html> @first </html>")
	r.Write("app_controller.rb", "class AppController\n  def render_template\n    render('app_template.html', 1)\n  end\nend\n")
	r.Commit("first param", day(3))

	r.Write("app_template.html", "<html> @first @second</html>")
	r.Write("app_controller.rb", "class AppController\n  def render_template\n    render('app_template.html', 1, 2)\n  end\nend\n")
	r.Commit("second param", day(4))

	r.Write("app_template.html", "<html>\n  <ul>\n    <li>@first</li>\n  </ul>\n</html>\n")
	base := r.Commit("format app_template", day(5))

	r.Write("app_template.html", "<html> @first @second @third </html>")
	head := r.Commit("third param", day(6))

	cfgPath := filepath.Join(t.TempDir(), "diggit.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(serviceConfig), 0o600))

	return fixture{path: r.Path(), base: base, head: head, config: cfgPath}
}

const memoryConfig = "cache:\n  backend: memory\n"

func execute(t *testing.T, f fixture, args ...string) (string, error) {
	t.Helper()

	var out, logs bytes.Buffer

	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	cmd.SetArgs(append([]string{"--config", f.config, "--repo", f.path, "--gh-path", "owner/repo"}, args...))

	err := cmd.Execute()

	return out.String(), err
}

func TestAnalyseJSON(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memoryConfig)

	out, err := execute(t, f, "analyse", "--base", f.base.String(), "--head", f.head.String(), "--format", "json")
	require.NoError(t, err)

	var comments []reporter.Comment
	require.NoError(t, json.Unmarshal([]byte(out), &comments))
	require.Len(t, comments, 1)

	c := comments[0]
	assert.Equal(t, changepatterns.Name, c.Report)
	assert.Equal(t, "app_controller.rb", c.Index)
	assert.InDelta(t, 0.75, c.Meta["confidence"], 1e-9)
	assert.Equal(t, []any{"app_template.html"}, c.Meta["antecedent"])
}

func TestAnalyseTableWithRevspecs(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memoryConfig)

	out, err := execute(t, f, "analyse", "--base", "HEAD~1")
	require.NoError(t, err)
	assert.Contains(t, out, "ChangePatterns")
	assert.Contains(t, out, "app_controller.rb:1")
	assert.Contains(t, out, "1 comment")
}

func TestAnalyseNoComments(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memoryConfig)

	out, err := execute(t, f, "analyse", "--base", "HEAD", "--head", "HEAD")
	require.NoError(t, err)
	assert.Contains(t, out, "No comments.")
}

func TestAnalyseErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memoryConfig)

	_, err := execute(t, f, "analyse", "--base", "HEAD~1", "--format", "xml")
	require.ErrorIs(t, err, ErrUnknownFormat)

	_, err = execute(t, f, "analyse")
	require.Error(t, err)

	_, err = execute(t, f, "analyse", "--base", "no-such-branch")
	require.ErrorIs(t, err, gitlib.ErrRevisionNotFound)
}

func TestChangesetsWalkWithBoltCache(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "cache", "diggit.db")
	f := newFixture(t, "cache:\n  backend: bolt\n  path: "+dbPath+"\n")

	out, err := execute(t, f, "changesets", "walk")
	require.NoError(t, err)
	assert.Contains(t, out, "changesets touching")
	assert.Contains(t, out, "owner/repo")
	assert.FileExists(t, dbPath)

	again, err := execute(t, f, "changesets", "walk")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestItemsetsGenerate(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memoryConfig)
	dir := t.TempDir()

	out, err := execute(t, f, "itemsets", "generate", "--head", f.base.String(), "--min-support", "3", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "itemsets.json")

	export, err := persist.NewPersister[ItemsetExport](itemsetsBasename, persist.NewJSONCodec()).Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "owner/repo", export.GHPath)
	assert.Equal(t, f.base.String(), export.Head)
	assert.Equal(t, itemset.AlgorithmFPGrowth, export.Algorithm)
	assert.Equal(t, 3, export.MinSupport)
	assert.Equal(t, 25, export.MaxItems)
	assert.Contains(t, export.Itemsets, itemset.ItemSet{Items: []string{"app_controller.rb", "app_template.html"}, Support: 3})
}

func TestItemsetsGenerateGob(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memoryConfig)
	dir := t.TempDir()

	_, err := execute(t, f, "itemsets", "generate", "--min-support", "2", "--algorithm", "apriori",
		"--format", "gob", "--out", dir)
	require.NoError(t, err)

	export, err := persist.NewPersister[ItemsetExport](itemsetsBasename,
		persist.NewLZ4Codec(persist.NewGobCodec())).Load(dir)
	require.NoError(t, err)
	assert.Equal(t, itemset.AlgorithmApriori, export.Algorithm)
	assert.NotEmpty(t, export.Itemsets)

	_, err = execute(t, f, "itemsets", "generate", "--format", "yaml", "--out", dir)
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestBenchmarkMine(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memoryConfig)

	out, err := execute(t, f, "benchmark", "mine", "--supports", "1..3", "--algorithm", "apriori")
	require.NoError(t, err)
	assert.Equal(t, 3, bytes.Count([]byte(out), []byte("apriori")))

	_, err = execute(t, f, "benchmark", "mine", "--supports", "3..1")
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestBenchmarkSuggest(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memoryConfig)

	out, err := execute(t, f, "benchmark", "suggest", "--min-support", "1", "--queries", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "QUERIES")
	assert.Contains(t, out, "P95")
	assert.Contains(t, out, "MIN")
}

func TestVersion(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "diggit ")
}

func TestParseSupportRange(t *testing.T) {
	t.Parallel()

	lo, hi, err := parseSupportRange("5..10")
	require.NoError(t, err)
	assert.Equal(t, 5, lo)
	assert.Equal(t, 10, hi)

	lo, hi, err = parseSupportRange(" 7 .. 7 ")
	require.NoError(t, err)
	assert.Equal(t, 7, lo)
	assert.Equal(t, 7, hi)

	for _, raw := range []string{"", "5", "5-10", "a..b", "0..3", "10..5"} {
		_, _, err = parseSupportRange(raw)
		require.ErrorIs(t, err, ErrInvalidRange, raw)
	}
}

func TestTimeSuggestions(t *testing.T) {
	t.Parallel()

	sg := changepatterns.NewSuggester([]itemset.ItemSet{
		{Items: []string{"a"}, Support: 4},
		{Items: []string{"a", "b"}, Support: 3},
	})

	corpus := [][]string{{"a"}, {"b"}, {"a", "b"}}

	samples, rules := timeSuggestions(sg, corpus, 0, 5)
	assert.Len(t, samples, 3)
	assert.Equal(t, 1, rules)

	samples, _ = timeSuggestions(sg, corpus, 2, 5)
	assert.Len(t, samples, 2)
}
