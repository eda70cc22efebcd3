package calculator

import (
	"fmt"

	"rfm-segments/pkg/models"
)

// Libellés de segments.
const (
	SegmentChampions         = "Champions"
	SegmentLoyal             = "Loyal Customers"
	SegmentPotentialLoyalist = "Potential Loyalist"
	SegmentBigSpenders       = "Big Spenders"
	SegmentNew               = "New Customers"
	SegmentAtRisk            = "At Risk"
	SegmentLost              = "Lost Customers"
	SegmentOthers            = "Others"
)

// Rule associe un prédicat sur les notes à un libellé.
type Rule struct {
	Label string
	Match func(models.Scores) bool
}

// RuleTable est évaluée dans l'ordre : la première règle qui correspond l'emporte, sinon Default.
type RuleTable struct {
	Name    string
	Rules   []Rule
	Default string
}

// Classify retourne le segment des notes s.
func (t RuleTable) Classify(s models.Scores) string {
	for _, r := range t.Rules {
		if r.Match(s) {
			return r.Label
		}
	}
	return t.Default
}

// Labels retourne l'ensemble fermé des libellés possibles, dans l'ordre des règles.
func (t RuleTable) Labels() []string {
	seen := make(map[string]bool, len(t.Rules)+1)
	var out []string
	for _, r := range t.Rules {
		if !seen[r.Label] {
			seen[r.Label] = true
			out = append(out, r.Label)
		}
	}
	if !seen[t.Default] {
		out = append(out, t.Default)
	}
	return out
}

// ThresholdRules : cascade de seuils pour k seaux (hi = k-1, mid = (k+1)/2).
func ThresholdRules(k int) RuleTable {
	hi, mid := k-1, (k+1)/2
	return RuleTable{
		Name: models.RulesThreshold,
		Rules: []Rule{
			{SegmentChampions, func(s models.Scores) bool { return s.R >= hi && s.F >= hi && s.M >= hi }},
			{SegmentLoyal, func(s models.Scores) bool { return s.F >= hi && s.M >= mid }},
			{SegmentBigSpenders, func(s models.Scores) bool { return s.M >= hi }},
			{SegmentNew, func(s models.Scores) bool { return s.R == k }},
			{SegmentAtRisk, func(s models.Scores) bool { return s.R <= 2 && s.F >= mid }},
			{SegmentLost, func(s models.Scores) bool { return s.R == 1 }},
		},
		Default: SegmentOthers,
	}
}

// CodeRules : correspondance exacte sur le code composite, pour k = 4.
func CodeRules() RuleTable {
	codes := []struct {
		label string
		codes []string
	}{
		{SegmentChampions, []string{"444", "443", "434", "433"}},
		{SegmentLoyal, []string{"344", "343", "334"}},
		{SegmentPotentialLoyalist, []string{"244", "243", "234"}},
		{SegmentNew, []string{"144", "143"}},
		{SegmentAtRisk, []string{"111", "112", "121"}},
	}
	t := RuleTable{Name: models.RulesCodes, Default: SegmentOthers}
	for _, c := range codes {
		set := make(map[string]bool, len(c.codes))
		for _, code := range c.codes {
			set[code] = true
		}
		t.Rules = append(t.Rules, Rule{Label: c.label, Match: func(s models.Scores) bool { return set[s.Code()] }})
	}
	return t
}

// RuleTableFor sélectionne la table configurée.
func RuleTableFor(name string, k int) (RuleTable, error) {
	switch name {
	case "", models.RulesThreshold:
		return ThresholdRules(k), nil
	case models.RulesCodes:
		if k != 4 {
			return RuleTable{}, fmt.Errorf("table %q définie pour 4 seaux, pas %d", name, k)
		}
		return CodeRules(), nil
	}
	return RuleTable{}, fmt.Errorf("table de règles inconnue: %q", name)
}
