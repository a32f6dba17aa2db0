package changepatterns

import (
	"cmp"
	"slices"

	"github.com/directional-star/diggit/pkg/itemset"
)

// Rule states that Consequent tends to change whenever every file in
// Antecedent changes.
type Rule struct {
	Antecedent        []string
	Consequent        string
	Confidence        float64
	AntecedentSupport int
}

// Suggester derives association rules from a set of frequent itemsets.
type Suggester struct {
	itemsets []itemset.ItemSet
	support  map[string]int
}

// NewSuggester indexes itemsets for rule lookup.
func NewSuggester(itemsets []itemset.ItemSet) *Suggester {
	return &Suggester{itemsets: itemsets, support: itemset.Index(itemsets)}
}

// Suggest returns, for every file outside files that some frequent itemset
// links to a subset of files, the most confident rule implying it. Only
// antecedents of at most maxAntecedent files are considered; maxAntecedent
// <= 0 means unbounded. Rules are ordered by descending confidence.
func (s *Suggester) Suggest(files []string, maxAntecedent int) []Rule {
	if len(files) == 0 {
		return nil
	}

	changed := make(map[string]struct{}, len(files))
	for _, f := range files {
		changed[f] = struct{}{}
	}

	best := make(map[string]Rule)

	for _, set := range s.itemsets {
		rule, ok := s.ruleFor(set, changed, maxAntecedent)
		if !ok {
			continue
		}

		current, seen := best[rule.Consequent]
		if !seen || compareRules(rule, current) < 0 {
			best[rule.Consequent] = rule
		}
	}

	rules := make([]Rule, 0, len(best))
	for _, rule := range best {
		rules = append(rules, rule)
	}

	slices.SortFunc(rules, compareRules)

	return rules
}

// ruleFor splits set into the part already changed and a single missing
// file. Sets missing zero or several files yield no rule.
func (s *Suggester) ruleFor(set itemset.ItemSet, changed map[string]struct{}, maxAntecedent int) (Rule, bool) {
	var (
		antecedent []string
		missing    string
		misses     int
	)

	for _, item := range set.Items {
		if _, ok := changed[item]; ok {
			antecedent = append(antecedent, item)

			continue
		}

		misses++
		missing = item
	}

	if misses != 1 || len(antecedent) == 0 {
		return Rule{}, false
	}

	if maxAntecedent > 0 && len(antecedent) > maxAntecedent {
		return Rule{}, false
	}

	antecedentSupport, ok := s.support[itemset.Key(antecedent)]
	if !ok || antecedentSupport == 0 {
		return Rule{}, false
	}

	return Rule{
		Antecedent:        antecedent,
		Consequent:        missing,
		Confidence:        float64(set.Support) / float64(antecedentSupport),
		AntecedentSupport: antecedentSupport,
	}, true
}

// compareRules orders by confidence, then antecedent support (both
// descending), then consequent and antecedent lexically.
func compareRules(a, b Rule) int {
	if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
		return c
	}

	if c := cmp.Compare(b.AntecedentSupport, a.AntecedentSupport); c != 0 {
		return c
	}

	if c := cmp.Compare(a.Consequent, b.Consequent); c != 0 {
		return c
	}

	return cmp.Compare(itemset.Key(a.Antecedent), itemset.Key(b.Antecedent))
}
