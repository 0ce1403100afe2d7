package pipeline

import (
	"context"
	"log/slog"

	"github.com/vampirenirmal/insightatlas/internal/insight"
	"github.com/vampirenirmal/insightatlas/internal/provider"
	"github.com/vampirenirmal/insightatlas/pkg/jsonutil"
)

// Generator is the slice of the provider abstraction the pipeline needs.
// *provider.Provider satisfies it; tests substitute stubs.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, opts *provider.Options) (*provider.Response, error)
}

const (
	// Stage 0 needs representative sampling, not full coverage.
	analysisSampleChars = 50_000
	analysisMaxTokens   = 8_000
)

// Analyzer runs the single-call book analysis stage.
type Analyzer struct {
	gen    Generator
	logger *slog.Logger
}

func NewAnalyzer(gen Generator, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{gen: gen, logger: logger.With("component", "analyzer")}
}

// Analyze classifies the book and extracts its core concepts. It never
// fails the pipeline: any provider or parse error yields a minimal
// fallback analysis flagged as degraded.
func (a *Analyzer) Analyze(ctx context.Context, title, author, text string) insight.Degradable[insight.BookAnalysis] {
	sample := text
	if len(sample) > analysisSampleChars {
		sample = sample[:analysisSampleChars]
	}

	a.logger.Info("starting book analysis",
		"book_title", title,
		"text_chars", len(text),
		"sample_chars", len(sample))

	resp, err := a.gen.Generate(ctx, analyzerSystemPrompt(), analyzerUserPrompt(title, author, sample), analysisMaxTokens, nil)
	if err != nil {
		a.logger.Warn("analysis call failed, using fallback analysis",
			"book_title", title,
			"error", err)
		return insight.Fallback(fallbackAnalysis(title), err)
	}

	var analysis insight.BookAnalysis
	if err := jsonutil.Parse(resp.Content, &analysis); err != nil {
		a.logger.Warn("analysis response unparseable, using fallback analysis",
			"book_title", title,
			"response_chars", len(resp.Content),
			"error", err)
		return insight.Fallback(fallbackAnalysis(title), err)
	}

	coerced := 0
	for i := range analysis.CoreConcepts {
		if !analysis.CoreConcepts[i].RecommendedVisual.Valid() {
			analysis.CoreConcepts[i].RecommendedVisual = insight.CoerceVisualType(analysis.CoreConcepts[i].RecommendedVisual)
			coerced++
		}
	}

	a.logger.Info("book analysis complete",
		"book_title", title,
		"provider", string(resp.Provider),
		"concept_count", len(analysis.CoreConcepts),
		"visuals_coerced", coerced)
	return insight.Ok(analysis)
}

// fallbackAnalysis is the neutral analysis substituted when the stage
// cannot produce a real one. It carries a single generic concept so later
// stages always have something to work with.
func fallbackAnalysis(title string) insight.BookAnalysis {
	return insight.BookAnalysis{
		Classification: insight.Classification{
			PrimaryCategory:   "general nonfiction",
			SecondaryCategory: "personal development",
			ComplexityLevel:   "intermediate",
			FrameworkType:     "principle-based",
		},
		StructureSummary: "Chapter structure could not be analyzed; the guide is generated from the full text.",
		CoreConcepts: []insight.CoreConcept{
			{
				Name:              "Central Idea of " + title,
				Description:       "The book's main argument and its supporting evidence.",
				RecommendedVisual: insight.VisualFlowDiagram,
				VisualRationale:   "A flow diagram suits an argument that builds step by step.",
				ExampleDomains:    []string{"work", "daily life"},
			},
		},
		Recommendations: insight.Recommendations{
			EmphasisAreas: []string{"practical application"},
		},
	}
}
