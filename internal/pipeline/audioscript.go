package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vampirenirmal/insightatlas/internal/insight"
)

const (
	audioScriptMaxTokens = 2_000
	audioDigestSections  = 10
	audioExcerptPerEntry = 300
)

// AudioScriptSynthesizer condenses the final section set into a short
// spoken-word script.
type AudioScriptSynthesizer struct {
	gen    Generator
	logger *slog.Logger
}

func NewAudioScriptSynthesizer(gen Generator, logger *slog.Logger) *AudioScriptSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AudioScriptSynthesizer{gen: gen, logger: logger.With("component", "audio_script")}
}

// Synthesize produces the narration text. It never fails the pipeline: on
// any error a short generic narration referencing the book is substituted
// and flagged degraded.
func (s *AudioScriptSynthesizer) Synthesize(ctx context.Context, title, author string, sections []insight.PremiumSection, analysis insight.BookAnalysis) insight.Degradable[string] {
	digest := audioDigest(sections, analysis)

	s.logger.Info("synthesizing audio script",
		"book_title", title,
		"digest_chars", len(digest))

	resp, err := s.gen.Generate(ctx, audioScriptSystemPrompt(), audioScriptUserPrompt(title, author, digest), audioScriptMaxTokens, nil)
	if err != nil {
		s.logger.Warn("audio script call failed, using generic narration",
			"book_title", title,
			"error", err)
		return insight.Fallback(genericNarration(title, author), err)
	}

	script := strings.TrimSpace(resp.Content)
	if script == "" {
		s.logger.Warn("audio script response empty, using generic narration", "book_title", title)
		return insight.Fallback(genericNarration(title, author), nil)
	}

	s.logger.Info("audio script complete",
		"book_title", title,
		"provider", string(resp.Provider),
		"script_words", insight.CountWords(script))
	return insight.Ok(script)
}

// audioDigest builds a compact content digest from a bounded prefix of
// sections, keyed by section type, instead of forwarding full section text.
func audioDigest(sections []insight.PremiumSection, analysis insight.BookAnalysis) string {
	var b strings.Builder

	for i, s := range sections {
		if i >= audioDigestSections {
			break
		}
		excerpt := insight.Truncate(s.Content, audioExcerptPerEntry)
		switch s.Type {
		case insight.TypeQuickGlance:
			fmt.Fprintf(&b, "Quick Summary: %s\n", excerpt)
		case insight.TypeExecutiveSummary:
			fmt.Fprintf(&b, "Key Argument: %s\n", excerpt)
		case insight.TypeActionBox:
			fmt.Fprintf(&b, "Action Steps for %s: %s\n", s.Title, strings.Join(s.Meta.ActionSteps, "; "))
		case insight.TypeConceptExplanation:
			fmt.Fprintf(&b, "Concept %s: %s\n", s.Title, excerpt)
		case insight.TypeKeyTakeaways:
			fmt.Fprintf(&b, "Takeaways: %s\n", excerpt)
		default:
			fmt.Fprintf(&b, "%s: %s\n", s.Title, excerpt)
		}
	}

	if len(analysis.CoreConcepts) > 0 {
		names := make([]string, 0, len(analysis.CoreConcepts))
		for _, c := range analysis.CoreConcepts {
			names = append(names, c.Name)
		}
		fmt.Fprintf(&b, "Core concepts: %s\n", strings.Join(names, ", "))
	}

	return b.String()
}

func genericNarration(title, author string) string {
	byline := ""
	if author != "" {
		byline = " by " + author
	}
	return fmt.Sprintf("Welcome to your insight guide for %s%s. This guide walks you through the book's central ideas, shows how they apply in practice, and leaves you with concrete steps to act on. Open the written guide to explore each concept in depth, and come back to this narration whenever you want a refresher on what matters most.", title, byline)
}
