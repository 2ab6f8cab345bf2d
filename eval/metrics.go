package eval

import (
	"sort"

	"github.com/brunobiangulo/gonarrate/relation"
)

// Facet names used in reports.
const (
	FacetSentiment     = "sentiment"
	FacetTone          = "tone"
	FacetMood          = "mood"
	FacetPeriod        = "period"
	FacetSetting       = "setting"
	FacetRelationships = "relationships"
)

// LabelMetrics scores one categorical facet.
type LabelMetrics struct {
	Scored    int                       `json:"scored"`
	Correct   int                       `json:"correct"`
	Accuracy  float64                   `json:"accuracy"`
	MacroF1   float64                   `json:"macro_f1"`
	PerLabel  map[string]PRF            `json:"per_label"`
	Confusion map[string]map[string]int `json:"confusion"` // want -> got -> count
}

// PRF is precision, recall and F1.
type PRF struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// EdgeMetrics scores relationship extraction over unordered typed pairs.
type EdgeMetrics struct {
	Scored         int `json:"scored"`
	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`
	PRF
}

// labelTally accumulates (want, got) pairs for one facet.
type labelTally struct {
	confusion map[string]map[string]int
	scored    int
	correct   int
}

func newLabelTally() *labelTally {
	return &labelTally{confusion: make(map[string]map[string]int)}
}

func (t *labelTally) add(want, got string) bool {
	if t.confusion[want] == nil {
		t.confusion[want] = make(map[string]int)
	}
	t.confusion[want][got]++
	t.scored++
	if want == got {
		t.correct++
		return true
	}
	return false
}

func (t *labelTally) metrics() LabelMetrics {
	m := LabelMetrics{
		Scored:    t.scored,
		Correct:   t.correct,
		PerLabel:  make(map[string]PRF),
		Confusion: t.confusion,
	}
	if t.scored == 0 {
		return m
	}
	m.Accuracy = float64(t.correct) / float64(t.scored)

	// Labels seen on either side.
	seen := make(map[string]bool)
	predicted := make(map[string]int)
	for want, row := range t.confusion {
		seen[want] = true
		for got, n := range row {
			seen[got] = true
			predicted[got] += n
		}
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	var sumF1 float64
	for _, l := range labels {
		tp := t.confusion[l][l]
		actual := 0
		for _, n := range t.confusion[l] {
			actual += n
		}
		p := prf(tp, predicted[l]-tp, actual-tp)
		m.PerLabel[l] = p
		sumF1 += p.F1
	}
	m.MacroF1 = sumF1 / float64(len(labels))
	return m
}

func prf(tp, fp, fn int) PRF {
	var p PRF
	if tp+fp > 0 {
		p.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		p.Recall = float64(tp) / float64(tp+fn)
	}
	if p.Precision+p.Recall > 0 {
		p.F1 = 2 * p.Precision * p.Recall / (p.Precision + p.Recall)
	}
	return p
}

type pairKey struct {
	a, b string
	typ  relation.Type
}

func keyOf(e relation.Edge) pairKey {
	a, b := e.Character1, e.Character2
	if b < a {
		a, b = b, a
	}
	return pairKey{a, b, e.Type}
}

// compareEdges counts matches between expected and extracted edges.
func compareEdges(want, got []relation.Edge) (tp, fp, fn int) {
	expected := make(map[pairKey]bool, len(want))
	for _, e := range want {
		expected[keyOf(e)] = true
	}
	found := make(map[pairKey]bool, len(got))
	for _, e := range got {
		k := keyOf(e)
		if found[k] {
			continue
		}
		found[k] = true
		if expected[k] {
			tp++
		} else {
			fp++
		}
	}
	for k := range expected {
		if !found[k] {
			fn++
		}
	}
	return tp, fp, fn
}
