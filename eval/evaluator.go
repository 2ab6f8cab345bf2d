// Package eval scores the annotation engine against labelled passages.
package eval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brunobiangulo/gonarrate"
	"github.com/brunobiangulo/gonarrate/analysis"
)

// Analyzer is the part of gonarrate.Engine the evaluator needs.
type Analyzer interface {
	AnalyzeBatch(ctx context.Context, texts []string, opts ...gonarrate.AnalyzeOption) []*analysis.Result
}

// Evaluator runs datasets against an analyzer.
type Evaluator struct {
	engine  Analyzer
	refresh bool
}

// NewEvaluator creates a new evaluator.
func NewEvaluator(engine Analyzer) *Evaluator {
	return &Evaluator{engine: engine}
}

// SetRefresh makes runs bypass the result cache.
func (e *Evaluator) SetRefresh(on bool) { e.refresh = on }

// Report holds the results of an evaluation run.
type Report struct {
	Dataset          string                  `json:"dataset"`
	LexiconVersion   string                  `json:"lexicon_version,omitempty"`
	TotalCases       int                     `json:"total_cases"`
	Passed           int                     `json:"passed"`
	Failed           int                     `json:"failed"`
	Degraded         int                     `json:"degraded"`
	Facets           map[string]LabelMetrics `json:"facets"`
	Relationships    EdgeMetrics             `json:"relationships"`
	CategoryPassRate map[string]float64      `json:"category_pass_rate,omitempty"`
	Results          []CaseResult            `json:"results"`
	RunTime          time.Duration           `json:"run_time"`
}

// CaseResult is the outcome of one case.
type CaseResult struct {
	Text        string     `json:"text"`
	Category    string     `json:"category,omitempty"`
	Passed      bool       `json:"passed"`
	Degraded    bool       `json:"degraded"`
	Mismatches  []Mismatch `json:"mismatches,omitempty"`
	Diagnostics []string   `json:"diagnostics,omitempty"`
}

// Mismatch records one facet whose label differed from the expectation.
type Mismatch struct {
	Facet string `json:"facet"`
	Want  string `json:"want"`
	Got   string `json:"got"`
}

// Run annotates every case in one batch and scores the results. A case
// passes when every labelled facet matches and no edge is missing or extra.
func (e *Evaluator) Run(ctx context.Context, ds Dataset) (*Report, error) {
	if len(ds.Cases) == 0 {
		return nil, fmt.Errorf("dataset %q has no cases", ds.Name)
	}
	start := time.Now()
	slog.Info("eval: running dataset", "dataset", ds.Name, "cases", len(ds.Cases))

	texts := make([]string, len(ds.Cases))
	for i, c := range ds.Cases {
		texts[i] = c.Text
	}
	opts := []gonarrate.AnalyzeOption{gonarrate.WithSource("eval")}
	if e.refresh {
		opts = append(opts, gonarrate.WithRefresh())
	}
	results := e.engine.AnalyzeBatch(ctx, texts, opts...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(results) != len(ds.Cases) {
		return nil, fmt.Errorf("analyzer returned %d results for %d cases", len(results), len(ds.Cases))
	}

	tallies := map[string]*labelTally{
		FacetSentiment: newLabelTally(),
		FacetTone:      newLabelTally(),
		FacetMood:      newLabelTally(),
		FacetPeriod:    newLabelTally(),
		FacetSetting:   newLabelTally(),
	}
	var edges EdgeMetrics
	catTotal := make(map[string]int)
	catPassed := make(map[string]int)

	report := &Report{
		Dataset:    ds.Name,
		TotalCases: len(ds.Cases),
		Results:    make([]CaseResult, 0, len(ds.Cases)),
	}
	for i, c := range ds.Cases {
		r := results[i]
		cr := CaseResult{Text: c.Text, Category: c.Category, Passed: true, Degraded: r.Degraded}
		for _, d := range r.Diagnostics {
			cr.Diagnostics = append(cr.Diagnostics, string(d.Facet)+": "+d.Error)
		}

		check := func(facet, want, got string) {
			if want == "" {
				return
			}
			if !tallies[facet].add(want, got) {
				cr.Passed = false
				cr.Mismatches = append(cr.Mismatches, Mismatch{Facet: facet, Want: want, Got: got})
			}
		}
		check(FacetSentiment, string(c.Sentiment), string(r.Sentiment.Label))
		check(FacetTone, string(c.Tone), string(r.Tone.PrimaryTone))
		check(FacetMood, string(c.Mood), string(r.Tone.Mood))
		check(FacetPeriod, string(c.Period), string(r.Context.TemporalContext.PrimaryPeriod))
		check(FacetSetting, string(c.Setting), string(r.Context.SpatialContext.PrimarySetting))

		if c.Relationships != nil || c.NoRelations {
			tp, fp, fn := compareEdges(c.Relationships, r.Relationships.Relationships)
			edges.Scored++
			edges.TruePositives += tp
			edges.FalsePositives += fp
			edges.FalseNegatives += fn
			if fp > 0 || fn > 0 {
				cr.Passed = false
				cr.Mismatches = append(cr.Mismatches, Mismatch{
					Facet: FacetRelationships,
					Want:  fmt.Sprintf("%d edges", len(c.Relationships)),
					Got:   fmt.Sprintf("%d edges (%d missing, %d extra)", len(r.Relationships.Relationships), fn, fp),
				})
			}
		}

		if cr.Degraded {
			report.Degraded++
		}
		if cr.Passed {
			report.Passed++
		} else {
			report.Failed++
			slog.Debug("eval: case failed", "case", i, "mismatches", len(cr.Mismatches))
		}
		if c.Category != "" {
			catTotal[c.Category]++
			if cr.Passed {
				catPassed[c.Category]++
			}
		}
		report.Results = append(report.Results, cr)
	}

	report.Facets = make(map[string]LabelMetrics, len(tallies))
	for facet, t := range tallies {
		if t.scored > 0 {
			report.Facets[facet] = t.metrics()
		}
	}
	edges.PRF = prf(edges.TruePositives, edges.FalsePositives, edges.FalseNegatives)
	report.Relationships = edges
	if len(catTotal) > 0 {
		report.CategoryPassRate = make(map[string]float64, len(catTotal))
		for cat, n := range catTotal {
			report.CategoryPassRate[cat] = float64(catPassed[cat]) / float64(n)
		}
	}
	report.RunTime = time.Since(start)

	slog.Info("eval: dataset complete",
		"dataset", ds.Name, "passed", report.Passed, "failed", report.Failed,
		"degraded", report.Degraded, "elapsed", report.RunTime.Round(time.Millisecond))
	return report, nil
}
