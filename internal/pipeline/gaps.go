package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/vampirenirmal/insightatlas/internal/insight"
	"github.com/vampirenirmal/insightatlas/internal/provider"
	"github.com/vampirenirmal/insightatlas/pkg/jsonutil"
)

const (
	gapMaxTokens    = 6_000
	gapExcerptChars = 15_000
)

// GapAnalyzer runs the dimensional completeness check and backfill stage.
// It is a quality enhancement, never a blocking dependency: every failure
// path degrades to "no gaps found".
type GapAnalyzer struct {
	gen    Generator
	logger *slog.Logger
}

func NewGapAnalyzer(gen Generator, logger *slog.Logger) *GapAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GapAnalyzer{gen: gen, logger: logger.With("component", "gap_analyzer")}
}

// Analyze checks the assembled sections against the fixed completeness
// rubric and asks for supplemental sections covering the missing
// dimensions. On any failure it returns an empty result with a score of
// 100 so the pipeline proceeds with the pre-analysis section list.
func (g *GapAnalyzer) Analyze(ctx context.Context, title, author string, sections []insight.PremiumSection, bookText string) insight.GapAnalysisResult {
	doc := serializeGuide(sections)
	excerpt := provider.SampleToBudget(bookText, gapExcerptChars)

	g.logger.Info("starting gap analysis",
		"book_title", title,
		"section_count", len(sections),
		"guide_chars", len(doc))

	resp, err := g.gen.Generate(ctx, gapSystemPrompt(), gapUserPrompt(title, author, doc, excerpt), gapMaxTokens, nil)
	if err != nil {
		g.logger.Warn("gap analysis call failed, proceeding without backfill",
			"book_title", title,
			"error", err)
		return insight.GapAnalysisResult{CompletenessScore: 100}
	}

	var result insight.GapAnalysisResult
	if err := jsonutil.Parse(resp.Content, &result); err != nil {
		g.logger.Warn("gap analysis response unparseable, proceeding without backfill",
			"book_title", title,
			"error", err)
		return insight.GapAnalysisResult{CompletenessScore: 100}
	}

	kept := make([]insight.PremiumSection, 0, len(result.NewSections))
	for _, s := range result.NewSections {
		if !s.Type.Valid() {
			continue
		}
		if s.ID == "" {
			s.ID = "gap_" + uuid.NewString()[:8]
		}
		if s.VisualType != "" {
			s.VisualType = insight.CoerceVisualType(s.VisualType)
		}
		kept = append(kept, s)
	}
	result.NewSections = kept

	if result.CompletenessScore < 0 || result.CompletenessScore > 100 {
		result.CompletenessScore = 100
	}

	g.logger.Info("gap analysis complete",
		"book_title", title,
		"provider", string(resp.Provider),
		"missing_dimensions", result.MissingDimensions,
		"new_sections", len(result.NewSections),
		"completeness_score", result.CompletenessScore)
	return result
}

// Merge appends the backfill sections to the existing list. The merge is
// purely additive: nothing is removed or overwritten, even when a type is
// already represented. Redundant-looking content is tolerated rather than
// risking deletion of valid sections; the analysis call is trusted to have
// proposed only genuinely missing dimensions.
func Merge(existing, backfill []insight.PremiumSection) []insight.PremiumSection {
	merged := make([]insight.PremiumSection, 0, len(existing)+len(backfill))
	merged = append(merged, existing...)
	merged = append(merged, backfill...)
	return merged
}

// serializeGuide flattens sections into a single markdown-like document
// for the analysis prompt: headings, content, and action steps.
func serializeGuide(sections []insight.PremiumSection) string {
	var b strings.Builder
	for _, s := range sections {
		fmt.Fprintf(&b, "## %s (%s)\n\n%s\n", s.Title, s.Type, s.Content)
		for _, step := range s.Meta.ActionSteps {
			fmt.Fprintf(&b, "- %s\n", step)
		}
		b.WriteString("\n")
	}
	return b.String()
}
