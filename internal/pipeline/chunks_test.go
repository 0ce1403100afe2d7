package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/vampirenirmal/insightatlas/internal/insight"
	"github.com/vampirenirmal/insightatlas/internal/pipeline"
	"github.com/vampirenirmal/insightatlas/internal/provider"
)

// seqGenerator replays scripted responses in call order.
type seqGenerator struct {
	responses []string
	errAt     map[int]error
	calls     int
	prompts   []string
}

func (g *seqGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, opts *provider.Options) (*provider.Response, error) {
	idx := g.calls
	g.calls++
	g.prompts = append(g.prompts, userPrompt)
	if err := g.errAt[idx]; err != nil {
		return nil, err
	}
	if idx >= len(g.responses) {
		return nil, fmt.Errorf("unscripted generation call %d", idx)
	}
	return &provider.Response{Content: g.responses[idx], Provider: provider.Primary}, nil
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

// makeSections builds count sections cycling through the given types,
// each carrying wordsEach words of content.
func makeSections(types []insight.SectionType, count, wordsEach int) []insight.PremiumSection {
	sections := make([]insight.PremiumSection, 0, count)
	for i := 0; i < count; i++ {
		t := types[i%len(types)]
		sections = append(sections, insight.PremiumSection{
			ID:      fmt.Sprintf("sec_%02d", i),
			Type:    t,
			Title:   fmt.Sprintf("Section %d", i),
			Content: words(wordsEach),
		})
	}
	return sections
}

func chunkResponse(t *testing.T, sections []insight.PremiumSection) string {
	t.Helper()
	payload := struct {
		Sections []insight.PremiumSection `json:"sections"`
	}{Sections: sections}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshaling chunk fixture: %v", err)
	}
	return string(data)
}

// validChunkResponses scripts the three chunk replies so the assembled
// guide clears every hard minimum.
func validChunkResponses(t *testing.T) []string {
	t.Helper()
	foundation := makeSections([]insight.SectionType{
		insight.TypeQuickGlance,
		insight.TypeFoundationalNarrative,
		insight.TypeExecutiveSummary,
	}, 6, 500)
	core := makeSections([]insight.SectionType{
		insight.TypeConceptExplanation,
		insight.TypePracticalExample,
		insight.TypeInsightAtlasNote,
		insight.TypeActionBox,
		insight.TypeVisualFramework,
	}, 10, 450)
	application := makeSections([]insight.SectionType{
		insight.TypeSelfAssessment,
		insight.TypeTrackingTemplate,
		insight.TypeStructureMap,
		insight.TypeKeyTakeaways,
	}, 8, 450)
	return []string{
		chunkResponse(t, foundation),
		chunkResponse(t, core),
		chunkResponse(t, application),
	}
}

func TestGenerateGuideHappyPath(t *testing.T) {
	gen := &seqGenerator{responses: validChunkResponses(t)}
	chunker := pipeline.NewChunkedGenerator(gen, nil)

	sections, err := chunker.GenerateGuide(context.Background(), "Deep Work", "Cal Newport", insight.BookAnalysis{}, words(5_000))
	if err != nil {
		t.Fatalf("GenerateGuide returned error: %v", err)
	}
	if gen.calls != 3 {
		t.Errorf("generation calls = %d, want 3", gen.calls)
	}
	if len(sections) != 24 {
		t.Errorf("section count = %d, want 24", len(sections))
	}
	if got := insight.TotalWords(sections); got < pipeline.MinGuideWords {
		t.Errorf("assembled guide has %d words, want >= %d", got, pipeline.MinGuideWords)
	}
	for _, required := range pipeline.RequiredTypes {
		if !insight.HasType(sections, required) {
			t.Errorf("required type %s missing", required)
		}
	}
}

func TestGenerateGuideApplicationSeesPriorDigest(t *testing.T) {
	gen := &seqGenerator{responses: validChunkResponses(t)}
	chunker := pipeline.NewChunkedGenerator(gen, nil)

	_, err := chunker.GenerateGuide(context.Background(), "Atomic Habits", "", insight.BookAnalysis{}, words(5_000))
	if err != nil {
		t.Fatalf("GenerateGuide returned error: %v", err)
	}

	// The third prompt carries a digest line for sections produced by the
	// first two chunks.
	appPrompt := gen.prompts[2]
	if !strings.Contains(appPrompt, "Section 0") {
		t.Error("application prompt missing digest of earlier sections")
	}
}

func TestGenerateGuideChunkParseFailureIsFatal(t *testing.T) {
	responses := validChunkResponses(t)
	responses[1] = "I could not produce JSON for this one."
	gen := &seqGenerator{responses: responses}
	chunker := pipeline.NewChunkedGenerator(gen, nil)

	_, err := chunker.GenerateGuide(context.Background(), "Title", "", insight.BookAnalysis{}, words(1_000))
	if !errors.Is(err, pipeline.ErrChunkParse) {
		t.Errorf("error = %v, want ErrChunkParse", err)
	}
	if gen.calls != 2 {
		t.Errorf("generation calls = %d, want 2 (no further chunks after failure)", gen.calls)
	}
}

func TestGenerateGuideProviderErrorIsFatal(t *testing.T) {
	gen := &seqGenerator{
		responses: validChunkResponses(t),
		errAt:     map[int]error{0: provider.ErrExhausted},
	}
	chunker := pipeline.NewChunkedGenerator(gen, nil)

	_, err := chunker.GenerateGuide(context.Background(), "Title", "", insight.BookAnalysis{}, words(1_000))
	if !errors.Is(err, provider.ErrExhausted) {
		t.Errorf("error = %v, want wrapped ErrExhausted", err)
	}
}

func TestValidateAssembled(t *testing.T) {
	base := func() []insight.PremiumSection {
		sections := makeSections([]insight.SectionType{
			insight.TypeQuickGlance,
			insight.TypeFoundationalNarrative,
			insight.TypeExecutiveSummary,
			insight.TypeConceptExplanation,
		}, 20, 450)
		return sections
	}

	t.Run("valid guide passes", func(t *testing.T) {
		if err := pipeline.ValidateAssembled(base()); err != nil {
			t.Errorf("valid guide rejected: %v", err)
		}
	})

	t.Run("word count one below minimum fails", func(t *testing.T) {
		sections := makeSections([]insight.SectionType{
			insight.TypeQuickGlance,
			insight.TypeFoundationalNarrative,
			insight.TypeExecutiveSummary,
			insight.TypeConceptExplanation,
		}, 20, 449)
		// 20 * 449 = 8980 < 9000
		err := pipeline.ValidateAssembled(sections)
		if !errors.Is(err, pipeline.ErrGuideTooShort) {
			t.Errorf("error = %v, want ErrGuideTooShort", err)
		}
	})

	t.Run("word count exactly at minimum passes", func(t *testing.T) {
		sections := makeSections([]insight.SectionType{
			insight.TypeQuickGlance,
			insight.TypeFoundationalNarrative,
			insight.TypeExecutiveSummary,
			insight.TypeConceptExplanation,
		}, 20, 450)
		if got := insight.TotalWords(sections); got != pipeline.MinGuideWords {
			t.Fatalf("fixture has %d words, want exactly %d", got, pipeline.MinGuideWords)
		}
		if err := pipeline.ValidateAssembled(sections); err != nil {
			t.Errorf("guide at exact minimum rejected: %v", err)
		}
	})

	t.Run("nineteen sections fails", func(t *testing.T) {
		sections := makeSections([]insight.SectionType{
			insight.TypeQuickGlance,
			insight.TypeFoundationalNarrative,
			insight.TypeExecutiveSummary,
			insight.TypeConceptExplanation,
		}, 19, 500)
		err := pipeline.ValidateAssembled(sections)
		if !errors.Is(err, pipeline.ErrTooFewSections) {
			t.Errorf("error = %v, want ErrTooFewSections", err)
		}
	})

	t.Run("each required type is enforced", func(t *testing.T) {
		for _, missing := range pipeline.RequiredTypes {
			var kept []insight.SectionType
			for _, r := range pipeline.RequiredTypes {
				if r != missing {
					kept = append(kept, r)
				}
			}
			kept = append(kept, insight.TypeConceptExplanation, insight.TypeKeyTakeaways)

			sections := makeSections(kept, 20, 500)
			err := pipeline.ValidateAssembled(sections)
			if !errors.Is(err, pipeline.ErrMissingRequiredType) {
				t.Errorf("guide missing %s: error = %v, want ErrMissingRequiredType", missing, err)
			}
		}
	})

	t.Run("validation error carries stage and field", func(t *testing.T) {
		err := pipeline.ValidateAssembled(nil)
		var verr *pipeline.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("error %v is not a ValidationError", err)
		}
		if verr.Stage != "generating" {
			t.Errorf("stage = %q, want generating", verr.Stage)
		}
	})
}

func TestGenerateGuideDropsInvalidSections(t *testing.T) {
	responses := validChunkResponses(t)

	// Inject one out-of-enumeration section and one with a bogus visual
	// into the foundation reply.
	foundation := makeSections([]insight.SectionType{
		insight.TypeQuickGlance,
		insight.TypeFoundationalNarrative,
		insight.TypeExecutiveSummary,
	}, 6, 500)
	foundation = append(foundation,
		insight.PremiumSection{Type: "inventedType", Title: "Bad", Content: words(500)},
		insight.PremiumSection{Type: insight.TypeKeyTakeaways, Title: "Odd Visual", Content: words(500), VisualType: "notARealVisual"},
	)
	responses[0] = chunkResponse(t, foundation)

	gen := &seqGenerator{responses: responses}
	chunker := pipeline.NewChunkedGenerator(gen, nil)

	sections, err := chunker.GenerateGuide(context.Background(), "Title", "", insight.BookAnalysis{}, words(1_000))
	if err != nil {
		t.Fatalf("GenerateGuide returned error: %v", err)
	}
	if len(sections) != 25 {
		t.Errorf("section count = %d, want 25 after dropping the invalid type", len(sections))
	}
	for _, s := range sections {
		if !s.Type.Valid() {
			t.Errorf("invalid type %q survived parsing", s.Type)
		}
		if s.VisualType != "" && !s.VisualType.Valid() {
			t.Errorf("invalid visual %q survived coercion on %q", s.VisualType, s.Title)
		}
		if s.ID == "" {
			t.Errorf("section %q left without an id", s.Title)
		}
	}
}

func TestSectionDigest(t *testing.T) {
	sections := []insight.PremiumSection{
		{Type: insight.TypeQuickGlance, Title: "Glance", Content: "first section body"},
		{Type: insight.TypeActionBox, Title: "Do It", Content: "second section body"},
		{Type: insight.TypeKeyTakeaways, Title: "Sum Up", Content: "third section body"},
	}

	digest := pipeline.SectionDigest(sections, 2)
	if !strings.Contains(digest, "Glance") || !strings.Contains(digest, "Do It") {
		t.Errorf("digest missing expected titles: %q", digest)
	}
	if strings.Contains(digest, "Sum Up") {
		t.Errorf("digest exceeded limit: %q", digest)
	}
}
