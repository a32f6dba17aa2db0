package changepatterns //nolint:testpackage // Shares fixtures with the reporter tests.

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/directional-star/diggit/pkg/itemset"
)

func sampleItemsets() []itemset.ItemSet {
	return []itemset.ItemSet{
		{Items: []string{"a"}, Support: 10},
		{Items: []string{"b"}, Support: 8},
		{Items: []string{"c"}, Support: 6},
		{Items: []string{"d"}, Support: 5},
		{Items: []string{"a", "b"}, Support: 4},
		{Items: []string{"a", "c"}, Support: 6},
		{Items: []string{"b", "c"}, Support: 4},
		{Items: []string{"b", "d"}, Support: 4},
		{Items: []string{"a", "b", "c"}, Support: 4},
	}
}

func TestSuggestPicksMostConfidentRule(t *testing.T) {
	t.Parallel()

	rules := NewSuggester(sampleItemsets()).Suggest([]string{"a", "b"}, 0)

	// c: {a}->c is 0.6, {b}->c is 0.5, {a,b}->c is 1.0. d: {b}->d is 0.5.
	assert.Equal(t, []Rule{
		{Antecedent: []string{"a", "b"}, Consequent: "c", Confidence: 1.0, AntecedentSupport: 4},
		{Antecedent: []string{"b"}, Consequent: "d", Confidence: 0.5, AntecedentSupport: 8},
	}, rules)
}

func TestSuggestRespectsAntecedentBound(t *testing.T) {
	t.Parallel()

	rules := NewSuggester(sampleItemsets()).Suggest([]string{"a", "b"}, 1)

	assert.Equal(t, []Rule{
		{Antecedent: []string{"a"}, Consequent: "c", Confidence: 0.6, AntecedentSupport: 10},
		{Antecedent: []string{"b"}, Consequent: "d", Confidence: 0.5, AntecedentSupport: 8},
	}, rules)
}

func TestSuggestTieBreaksOnAntecedentSupport(t *testing.T) {
	t.Parallel()

	sets := []itemset.ItemSet{
		{Items: []string{"x"}, Support: 4},
		{Items: []string{"y"}, Support: 8},
		{Items: []string{"x", "z"}, Support: 2},
		{Items: []string{"y", "z"}, Support: 4},
	}

	rules := NewSuggester(sets).Suggest([]string{"x", "y"}, 0)

	assert.Equal(t, []Rule{
		{Antecedent: []string{"y"}, Consequent: "z", Confidence: 0.5, AntecedentSupport: 8},
	}, rules)
}

func TestSuggestEdgeCases(t *testing.T) {
	t.Parallel()

	s := NewSuggester(sampleItemsets())

	assert.Empty(t, s.Suggest(nil, 0))
	assert.Empty(t, s.Suggest([]string{"unknown"}, 0))
	// Every file of every itemset already changed.
	assert.Empty(t, s.Suggest([]string{"a", "b", "c", "d"}, 0))
	assert.Empty(t, NewSuggester(nil).Suggest([]string{"a"}, 0))
}

func TestSuggestConfidenceBounds(t *testing.T) {
	t.Parallel()

	for _, rule := range NewSuggester(sampleItemsets()).Suggest([]string{"a"}, 0) {
		assert.GreaterOrEqual(t, rule.Confidence, 0.0)
		assert.LessOrEqual(t, rule.Confidence, 1.0)
		assert.NotContains(t, rule.Antecedent, rule.Consequent)
	}
}

func TestSuggestDeterministicOrder(t *testing.T) {
	t.Parallel()

	sets := []itemset.ItemSet{
		{Items: []string{"a"}, Support: 4},
		{Items: []string{"a", "z"}, Support: 2},
		{Items: []string{"a", "m"}, Support: 2},
		{Items: []string{"a", "q"}, Support: 2},
	}

	rules := NewSuggester(sets).Suggest([]string{"a"}, 0)

	consequents := make([]string, 0, len(rules))
	for _, r := range rules {
		consequents = append(consequents, r.Consequent)
	}

	assert.Equal(t, []string{"m", "q", "z"}, consequents)
}
