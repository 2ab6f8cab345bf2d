// Command eval scores the annotation engine against a labelled dataset.
//
// Built-in smoke set:
//
//	go run ./cmd/eval
//
// A custom dataset with lexicon overrides:
//
//	go run ./cmd/eval \
//	  --dataset ./testdata/novel.json \
//	  --lexicons ./lexicons/gothic.json \
//	  --output report.json
//
// With an external sentiment classifier:
//
//	go run ./cmd/eval \
//	  --dataset ./testdata/novel.json \
//	  --classifier-provider huggingface \
//	  --classifier-model distilbert-base-uncased-finetuned-sst-2-english
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/brunobiangulo/gonarrate"
	"github.com/brunobiangulo/gonarrate/eval"
)

func main() {
	var (
		datasetPath  = flag.String("dataset", "", "Path to dataset JSON (default: built-in narrative smoke set)")
		lexiconPath  = flag.String("lexicons", "", "Path to lexicon overrides JSON")
		outputFile   = flag.String("output", "", "Path to write JSON report")
		dbPath       = flag.String("db", "", "SQLite database for the result cache (default: no storage)")
		provider     = flag.String("classifier-provider", "", "External sentiment classifier provider")
		model        = flag.String("classifier-model", "", "Classifier model name")
		baseURL      = flag.String("classifier-base-url", "", "Classifier base URL override")
		apiKey       = flag.String("classifier-api-key", "", "Classifier API key (default: from env)")
		concurrency  = flag.Int("concurrency", 4, "Parallel analyses")
		refresh      = flag.Bool("refresh", false, "Bypass cached results")
		minPassRate  = flag.Float64("min-pass-rate", 0, "Exit non-zero when the pass rate falls below this")
		showFailures = flag.Bool("failures", true, "Print failed cases")
		verbose      = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ds := eval.NarrativeDataset()
	if *datasetPath != "" {
		loaded, err := eval.LoadDataset(*datasetPath)
		if err != nil {
			fatal("loading dataset", err)
		}
		ds = loaded
	}

	cfg := gonarrate.DefaultConfig()
	cfg.StorageDir = "none"
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	cfg.LexiconPath = *lexiconPath
	cfg.Concurrency = *concurrency
	cfg.Classifier.Provider = *provider
	cfg.Classifier.Model = *model
	cfg.Classifier.BaseURL = *baseURL
	cfg.Classifier.APIKey = *apiKey
	if cfg.Classifier.APIKey == "" {
		cfg.Classifier.APIKey = resolveAPIKey(*provider)
	}

	engine, err := gonarrate.New(cfg)
	if err != nil {
		fatal("creating engine", err)
	}
	defer engine.Close()

	ev := eval.NewEvaluator(engine)
	ev.SetRefresh(*refresh)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	report, err := ev.Run(ctx, ds)
	if err != nil {
		fatal("running evaluation", err)
	}
	report.LexiconVersion = engine.LexiconVersion()

	printReport(os.Stdout, report, *showFailures)

	if *outputFile != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fatal("encoding report", err)
		}
		if err := os.WriteFile(*outputFile, data, 0644); err != nil {
			fatal("writing report", err)
		}
		slog.Info("report written", "path", *outputFile)
	}

	passRate := float64(report.Passed) / float64(report.TotalCases)
	if passRate < *minPassRate {
		fmt.Fprintf(os.Stderr, "pass rate %.1f%% below minimum %.1f%%\n", passRate*100, *minPassRate*100)
		os.Exit(1)
	}
}

func resolveAPIKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "groq":
		return os.Getenv("GROQ_API_KEY")
	case "openrouter":
		return os.Getenv("OPENROUTER_API_KEY")
	case "huggingface":
		return os.Getenv("HF_TOKEN")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	case "xai":
		return os.Getenv("XAI_API_KEY")
	}
	return ""
}

func printReport(w io.Writer, r *eval.Report, failures bool) {
	fmt.Fprintf(w, "\n=== %s (lexicons %s) ===\n", r.Dataset, r.LexiconVersion)
	fmt.Fprintf(w, "cases: %d  passed: %d  failed: %d  degraded: %d  time: %s\n\n",
		r.TotalCases, r.Passed, r.Failed, r.Degraded, r.RunTime.Round(time.Millisecond))

	facets := make([]string, 0, len(r.Facets))
	for f := range r.Facets {
		facets = append(facets, f)
	}
	sort.Strings(facets)
	fmt.Fprintf(w, "%-14s %7s %9s %9s\n", "facet", "scored", "accuracy", "macro-f1")
	for _, f := range facets {
		m := r.Facets[f]
		fmt.Fprintf(w, "%-14s %7d %8.1f%% %9.3f\n", f, m.Scored, m.Accuracy*100, m.MacroF1)
	}
	if e := r.Relationships; e.Scored > 0 {
		fmt.Fprintf(w, "%-14s %7d  P=%.3f R=%.3f F1=%.3f\n",
			eval.FacetRelationships, e.Scored, e.Precision, e.Recall, e.F1)
	}

	if len(r.CategoryPassRate) > 0 {
		cats := make([]string, 0, len(r.CategoryPassRate))
		for c := range r.CategoryPassRate {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		fmt.Fprintln(w, "\npass rate by category:")
		for _, c := range cats {
			fmt.Fprintf(w, "  %-14s %5.1f%%\n", c, r.CategoryPassRate[c]*100)
		}
	}

	if !failures || r.Failed == 0 {
		return
	}
	fmt.Fprintln(w, "\nfailures:")
	for _, cr := range r.Results {
		if cr.Passed {
			continue
		}
		fmt.Fprintf(w, "  %q\n", truncate(cr.Text, 80))
		for _, m := range cr.Mismatches {
			fmt.Fprintf(w, "    %-13s want %-12s got %s\n", m.Facet, m.Want, m.Got)
		}
		if len(cr.Diagnostics) > 0 {
			fmt.Fprintf(w, "    diagnostics: %s\n", strings.Join(cr.Diagnostics, "; "))
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
