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

// A single generation call cannot reliably produce the full 9000-12000
// word guide inside one response ceiling, so generation is split into
// three independently prompted chunks with fixed type subsets.
const (
	MinGuideWords   = 9_000
	MinSectionCount = 20

	chunkMaxTokens    = 8_000
	chunkExcerptChars = 30_000
	topConceptCount   = 5
	softTargetRatio   = 0.8
)

// RequiredTypes are the structurally required section types. Downstream
// stages (gap analysis, summary extraction) assume they exist.
var RequiredTypes = []insight.SectionType{
	insight.TypeQuickGlance,
	insight.TypeFoundationalNarrative,
	insight.TypeExecutiveSummary,
}

type chunkSpec struct {
	name        string
	targetWords int
	types       []insight.SectionType
}

var (
	foundationChunk = chunkSpec{
		name:        "Foundation",
		targetWords: 3_000,
		types: []insight.SectionType{
			insight.TypeQuickGlance,
			insight.TypeFoundationalNarrative,
			insight.TypeExecutiveSummary,
		},
	}
	coreConceptsChunk = chunkSpec{
		name:        "Core Concepts",
		targetWords: 4_000,
		types: []insight.SectionType{
			insight.TypeConceptExplanation,
			insight.TypePracticalExample,
			insight.TypeInsightAtlasNote,
			insight.TypeActionBox,
			insight.TypeVisualFramework,
		},
	}
	applicationChunk = chunkSpec{
		name:        "Application",
		targetWords: 3_000,
		types: []insight.SectionType{
			insight.TypeSelfAssessment,
			insight.TypeTrackingTemplate,
			insight.TypeStructureMap,
			insight.TypeKeyTakeaways,
		},
	}
)

// ChunkedGenerator runs the three-chunk content generation stage.
type ChunkedGenerator struct {
	gen    Generator
	logger *slog.Logger
}

func NewChunkedGenerator(gen Generator, logger *slog.Logger) *ChunkedGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChunkedGenerator{gen: gen, logger: logger.With("component", "chunked_generator")}
}

// GenerateGuide issues the Foundation, Core Concepts, and Application
// chunks in order, concatenates their sections, and hard-validates the
// assembled result. A chunk parse failure or a missed minimum is fatal;
// no retry is attempted and no fallback content exists that could satisfy
// the minimums.
func (g *ChunkedGenerator) GenerateGuide(ctx context.Context, title, author string, analysis insight.BookAnalysis, bookText string) ([]insight.PremiumSection, error) {
	excerpt := provider.SampleToBudget(bookText, chunkExcerptChars)

	concepts := analysis.CoreConcepts
	if len(concepts) > topConceptCount {
		concepts = concepts[:topConceptCount]
	}

	var sections []insight.PremiumSection

	foundation, err := g.runChunk(ctx, foundationChunk, foundationUserPrompt(title, author, analysis, excerpt))
	if err != nil {
		return nil, err
	}
	sections = append(sections, foundation...)

	core, err := g.runChunk(ctx, coreConceptsChunk, coreConceptsUserPrompt(title, concepts, excerpt))
	if err != nil {
		return nil, err
	}
	sections = append(sections, core...)

	// The application chunk sees a digest of what chunks 1-2 produced so
	// it does not duplicate them.
	application, err := g.runChunk(ctx, applicationChunk, applicationUserPrompt(title, analysis, SectionDigest(sections, len(sections)), excerpt))
	if err != nil {
		return nil, err
	}
	sections = append(sections, application...)

	if err := ValidateAssembled(sections); err != nil {
		g.logger.Error("assembled guide failed hard validation",
			"book_title", title,
			"section_count", len(sections),
			"word_count", insight.TotalWords(sections),
			"error", err)
		return nil, err
	}

	g.logger.Info("chunked generation complete",
		"book_title", title,
		"section_count", len(sections),
		"word_count", insight.TotalWords(sections))
	return sections, nil
}

func (g *ChunkedGenerator) runChunk(ctx context.Context, spec chunkSpec, userPrompt string) ([]insight.PremiumSection, error) {
	g.logger.Info("generating chunk",
		"chunk", spec.name,
		"target_words", spec.targetWords,
		"prompt_chars", len(userPrompt))

	resp, err := g.gen.Generate(ctx, chunkSystemPrompt(spec.name, spec.targetWords, spec.types), userPrompt, chunkMaxTokens, nil)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", spec.name, err)
	}

	sections, err := parseSections(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk %s: %w", ErrChunkParse, spec.name, err)
	}

	g.softValidate(spec, sections)
	return sections, nil
}

// softValidate logs threshold misses without failing the chunk. Whether a
// retry should be attempted on an under-target chunk is a cost/latency
// tradeoff; the current behavior is to accept and let gap analysis backfill.
func (g *ChunkedGenerator) softValidate(spec chunkSpec, sections []insight.PremiumSection) {
	words := insight.TotalWords(sections)
	if float64(words) < float64(spec.targetWords)*softTargetRatio {
		g.logger.Warn("chunk under word target",
			"chunk", spec.name,
			"words", words,
			"target", spec.targetWords)
	}

	found := false
	for _, t := range spec.types {
		if insight.HasType(sections, t) {
			found = true
			break
		}
	}
	if !found {
		g.logger.Warn("chunk produced none of its expected section types",
			"chunk", spec.name,
			"section_count", len(sections))
	}
}

// parseSections decodes a chunk response, assigns section ids, and drops
// entries whose type is outside the closed enumeration.
func parseSections(response string) ([]insight.PremiumSection, error) {
	var payload struct {
		Sections []insight.PremiumSection `json:"sections"`
	}
	if err := jsonutil.Parse(response, &payload); err != nil {
		return nil, err
	}

	sections := make([]insight.PremiumSection, 0, len(payload.Sections))
	for _, s := range payload.Sections {
		if !s.Type.Valid() {
			continue
		}
		if s.ID == "" {
			s.ID = "sec_" + uuid.NewString()[:8]
		}
		if s.VisualType != "" {
			s.VisualType = insight.CoerceVisualType(s.VisualType)
		}
		sections = append(sections, s)
	}
	return sections, nil
}

// ValidateAssembled enforces the minimum content volume the rest of the
// pipeline depends on: total words, section count, and presence of every
// structurally required type.
func ValidateAssembled(sections []insight.PremiumSection) error {
	words := insight.TotalWords(sections)
	if words < MinGuideWords {
		return newValidationError("generating", "word_count",
			"guide below minimum word count", words, MinGuideWords, ErrGuideTooShort)
	}
	if len(sections) < MinSectionCount {
		return newValidationError("generating", "section_count",
			"guide below minimum section count", len(sections), MinSectionCount, ErrTooFewSections)
	}
	for _, t := range RequiredTypes {
		if !insight.HasType(sections, t) {
			return newValidationError("generating", "section_types",
				fmt.Sprintf("required section type %s missing", t), nil, t, ErrMissingRequiredType)
		}
	}
	return nil
}

// SectionDigest renders a compact view of up to limit sections for use in
// later prompts.
func SectionDigest(sections []insight.PremiumSection, limit int) string {
	var b strings.Builder
	for i, s := range sections {
		if i >= limit {
			break
		}
		fmt.Fprintf(&b, "- [%s] %s: %s\n", s.Type, s.Title, insight.Truncate(s.Content, 200))
	}
	return b.String()
}
