package calculator

import (
	"testing"

	"rfm-segments/pkg/models"
)

// Chaque combinaison de notes reçoit exactement un libellé de l'ensemble fermé.
func TestThresholdRules_Exhaustive(t *testing.T) {
	for _, k := range []int{4, 5} {
		table := ThresholdRules(k)
		allowed := map[string]bool{}
		for _, l := range table.Labels() {
			allowed[l] = true
		}
		for r := 1; r <= k; r++ {
			for f := 1; f <= k; f++ {
				for m := 1; m <= k; m++ {
					s := models.Scores{R: r, F: f, M: m}
					label := table.Classify(s)
					if !allowed[label] {
						t.Fatalf("k=%d %s: label %q outside closed set", k, s.Code(), label)
					}
					if again := table.Classify(s); again != label {
						t.Fatalf("k=%d %s: not deterministic (%q vs %q)", k, s.Code(), label, again)
					}
				}
			}
		}
	}
}

func TestThresholdRules_Order(t *testing.T) {
	table := ThresholdRules(5)
	cases := []struct {
		s    models.Scores
		want string
	}{
		{models.Scores{R: 5, F: 5, M: 5}, SegmentChampions},
		{models.Scores{R: 4, F: 4, M: 4}, SegmentChampions},
		{models.Scores{R: 1, F: 4, M: 3}, SegmentLoyal},
		{models.Scores{R: 2, F: 2, M: 5}, SegmentBigSpenders},
		{models.Scores{R: 5, F: 1, M: 1}, SegmentNew},
		{models.Scores{R: 2, F: 3, M: 1}, SegmentAtRisk},
		{models.Scores{R: 1, F: 2, M: 2}, SegmentLost},
		{models.Scores{R: 3, F: 2, M: 2}, SegmentOthers},
	}
	for _, c := range cases {
		if got := table.Classify(c.s); got != c.want {
			t.Fatalf("%s: got %q, want %q", c.s.Code(), got, c.want)
		}
	}
}

func TestCodeRules(t *testing.T) {
	table := CodeRules()
	cases := map[string]string{
		"444": SegmentChampions,
		"433": SegmentChampions,
		"334": SegmentLoyal,
		"243": SegmentPotentialLoyalist,
		"143": SegmentNew,
		"121": SegmentAtRisk,
		"222": SegmentOthers,
	}
	for code, want := range cases {
		s := models.Scores{R: int(code[0] - '0'), F: int(code[1] - '0'), M: int(code[2] - '0')}
		if got := table.Classify(s); got != want {
			t.Fatalf("%s: got %q, want %q", code, got, want)
		}
	}
}

func TestRuleTableFor(t *testing.T) {
	if tbl, err := RuleTableFor("", 5); err != nil || tbl.Name != models.RulesThreshold {
		t.Fatalf("default table: %v %v", tbl.Name, err)
	}
	if _, err := RuleTableFor(models.RulesCodes, 5); err == nil {
		t.Fatal("expected error for codes with 5 buckets, got nil")
	}
	if _, err := RuleTableFor("kmeans", 4); err == nil {
		t.Fatal("expected error for unknown table, got nil")
	}
}

func TestScores_CodeAndTotal(t *testing.T) {
	s := models.Scores{R: 4, F: 3, M: 2}
	if s.Code() != "432" || s.Total() != 9 {
		t.Fatalf("got %q / %d", s.Code(), s.Total())
	}
}
