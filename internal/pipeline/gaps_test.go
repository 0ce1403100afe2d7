package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vampirenirmal/insightatlas/internal/insight"
	"github.com/vampirenirmal/insightatlas/internal/pipeline"
)

func TestGapAnalyzeAppendsNewSections(t *testing.T) {
	gen := &seqGenerator{responses: []string{`{
		"missing_dimensions": ["selfAssessment", "reflection"],
		"completeness_score": 72,
		"new_sections": [
			{"type": "selfAssessment", "title": "Check Yourself", "content": "quiz content"},
			{"type": "reflectionPrompts", "title": "Reflect", "content": "prompt content"}
		]
	}`}}
	analyzer := pipeline.NewGapAnalyzer(gen, nil)

	existing := makeSections([]insight.SectionType{insight.TypeQuickGlance}, 3, 50)
	result := analyzer.Analyze(context.Background(), "Title", "Author", existing, "book text")

	if result.CompletenessScore != 72 {
		t.Errorf("completeness score = %d, want 72", result.CompletenessScore)
	}
	if len(result.NewSections) != 2 {
		t.Fatalf("new sections = %d, want 2", len(result.NewSections))
	}
	for _, s := range result.NewSections {
		if s.ID == "" {
			t.Errorf("backfill section %q has no id", s.Title)
		}
	}

	merged := pipeline.Merge(existing, result.NewSections)
	if len(merged) != len(existing)+len(result.NewSections) {
		t.Errorf("merged length = %d, want %d", len(merged), len(existing)+len(result.NewSections))
	}
	// Additive: existing sections survive unchanged and in order.
	for i, s := range existing {
		if merged[i].ID != s.ID {
			t.Errorf("merged[%d] = %q, want original %q", i, merged[i].ID, s.ID)
		}
	}
}

func TestGapAnalyzeDegradesOnProviderError(t *testing.T) {
	gen := &seqGenerator{errAt: map[int]error{0: errors.New("provider down")}}
	analyzer := pipeline.NewGapAnalyzer(gen, nil)

	result := analyzer.Analyze(context.Background(), "Title", "", nil, "text")
	if result.CompletenessScore != 100 {
		t.Errorf("degraded score = %d, want 100", result.CompletenessScore)
	}
	if len(result.NewSections) != 0 {
		t.Errorf("degraded result carries %d sections", len(result.NewSections))
	}
}

func TestGapAnalyzeDegradesOnUnparseableResponse(t *testing.T) {
	gen := &seqGenerator{responses: []string{"sorry, I can only answer in prose"}}
	analyzer := pipeline.NewGapAnalyzer(gen, nil)

	result := analyzer.Analyze(context.Background(), "Title", "", nil, "text")
	if result.CompletenessScore != 100 || len(result.NewSections) != 0 {
		t.Errorf("unparseable response not degraded to empty result: %+v", result)
	}
}

func TestGapAnalyzeFiltersInvalidBackfill(t *testing.T) {
	gen := &seqGenerator{responses: []string{`{
		"completeness_score": 140,
		"new_sections": [
			{"type": "notAThing", "title": "Dropped", "content": "x"},
			{"type": "actionBox", "title": "Kept", "content": "y", "visual_type": "weirdVisual"}
		]
	}`}}
	analyzer := pipeline.NewGapAnalyzer(gen, nil)

	result := analyzer.Analyze(context.Background(), "Title", "", nil, "text")
	if len(result.NewSections) != 1 {
		t.Fatalf("new sections = %d, want 1 after filtering", len(result.NewSections))
	}
	if result.NewSections[0].VisualType != insight.VisualFlowDiagram {
		t.Errorf("bogus visual not coerced: %s", result.NewSections[0].VisualType)
	}
	// Out-of-range score clamps to the safe default.
	if result.CompletenessScore != 100 {
		t.Errorf("out-of-range score = %d, want 100", result.CompletenessScore)
	}
}

func TestMergeEmptyBackfill(t *testing.T) {
	existing := makeSections([]insight.SectionType{insight.TypeQuickGlance}, 2, 10)
	merged := pipeline.Merge(existing, nil)
	if len(merged) != 2 {
		t.Errorf("merged length = %d, want 2", len(merged))
	}
}
