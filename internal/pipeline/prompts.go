package pipeline

import (
	"fmt"
	"strings"

	"github.com/vampirenirmal/insightatlas/internal/insight"
)

const sectionJSONContract = `Respond with strict JSON only, no markdown fences, in the shape:
{"sections": [{"type": "...", "title": "...", "content": "...", "visual_type": "...", "visual_data": {}, "meta": {"action_steps": []}}]}
The "type" field must be one of the allowed section types named in the instructions. Content is markdown text.`

func analyzerSystemPrompt() string {
	return `You are a nonfiction book analyst. You classify books, extract their core concepts, and recommend one visual representation per concept. Respond with a single strict JSON object and nothing else.`
}

func analyzerUserPrompt(title, author, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the book %q", title)
	if author != "" {
		fmt.Fprintf(&b, " by %s", author)
	}
	b.WriteString(".\n\n")
	b.WriteString(`Return a JSON object with fields:
classification {primary_category, secondary_category, complexity_level, framework_type},
origin_story, structure_summary,
core_concepts (6-10 entries: name, source_chapter, description, recommended_visual, visual_rationale, example_domains),
psychological_frameworks, philosophical_traditions, tone_analysis,
recommendations {emphasis_areas, challenges, opportunities}.

recommended_visual must be one of: `)
	b.WriteString(visualTypeList())
	b.WriteString("\n\nBook text (representative sample):\n\n")
	b.WriteString(text)
	return b.String()
}

func visualTypeList() string {
	return "flowDiagram, radarChart, barChart, pyramidDiagram, matrixGrid, timelineSequence, mindMap, vennDiagram, cycleDiagram, quadrantChart, comparisonTable, icebergModel, funnelDiagram, ladderDiagram, spectrumScale, feedbackLoop, treeDiagram, stackedBlocks, bridgeDiagram, journeyMap, pathwaySteps, webDiagram, balanceScale, gearSystem, thermometerGauge, compassRose, buildingBlocks, ecosystemMap, orbitDiagram, heatmapGrid"
}

func chunkSystemPrompt(chunkName string, targetWords int, types []insight.SectionType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return fmt.Sprintf(`You are writing the %s portion of a premium insight guide for a nonfiction book. Target roughly %d words across all sections combined. Allowed section types: %s.

%s`, chunkName, targetWords, strings.Join(names, ", "), sectionJSONContract)
}

func foundationUserPrompt(title, author string, analysis insight.BookAnalysis, excerpt string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Book: %q", title)
	if author != "" {
		fmt.Fprintf(&b, " by %s", author)
	}
	fmt.Fprintf(&b, "\nCategory: %s / %s (%s)\n", analysis.Classification.PrimaryCategory,
		analysis.Classification.SecondaryCategory, analysis.Classification.ComplexityLevel)
	if analysis.OriginStory != "" {
		fmt.Fprintf(&b, "Origin story: %s\n", analysis.OriginStory)
	}
	fmt.Fprintf(&b, "Structure: %s\n\n", analysis.StructureSummary)
	b.WriteString(`Write the foundation sections: one quickGlance (what the book argues in a page), one foundationalNarrative (the story and stakes behind the ideas), and one executiveSummary (the argument chain for a busy reader).`)
	b.WriteString("\n\nBook excerpt:\n\n")
	b.WriteString(excerpt)
	return b.String()
}

func coreConceptsUserPrompt(title string, concepts []insight.CoreConcept, excerpt string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Book: %q\n\nCore concepts to cover, one set of sections per concept:\n", title)
	for i, c := range concepts {
		fmt.Fprintf(&b, "%d. %s: %s (visual: %s, because %s)\n",
			i+1, c.Name, c.Description, c.RecommendedVisual, c.VisualRationale)
	}
	b.WriteString(`
For each concept produce a conceptExplanation, a practicalExample, an insightAtlasNote (meta fields key_distinction, practical_implication, go_deeper), an actionBox (meta field action_steps), and a visualFramework describing the recommended visual with its visual_data payload.`)
	b.WriteString("\n\nBook excerpt:\n\n")
	b.WriteString(excerpt)
	return b.String()
}

func applicationUserPrompt(title string, analysis insight.BookAnalysis, priorDigest, excerpt string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Book: %q\nEmphasis areas: %s\n\n", title, strings.Join(analysis.Recommendations.EmphasisAreas, ", "))
	b.WriteString(`Write the application sections: a selfAssessment the reader can score, a trackingTemplate for daily or weekly practice, a structureMap of how the book's parts relate, and a keyTakeaways list.

The guide already contains the sections digested below. Do not repeat their content; build on it.

`)
	b.WriteString(priorDigest)
	b.WriteString("\n\nBook excerpt:\n\n")
	b.WriteString(excerpt)
	return b.String()
}

// completenessDimensions is the fixed rubric gap analysis checks against.
var completenessDimensions = []string{
	"originNarrative",
	"conceptExplanation",
	"practicalApplication",
	"selfAssessment",
	"visualFramework",
	"crossDisciplinaryConnection",
	"actionPlanning",
	"reflection",
	"keyTakeaways",
}

func gapSystemPrompt() string {
	return fmt.Sprintf(`You audit insight guides for completeness against a fixed rubric of content dimensions: %s.

Identify which dimensions the guide covers inadequately and generate new sections filling exactly those gaps. Respond with strict JSON only:
{"missing_dimensions": [...], "completeness_score": 0-100, "new_sections": [ ...same section shape as the guide... ]}
Propose sections only for genuinely missing dimensions.`, strings.Join(completenessDimensions, ", "))
}

func gapUserPrompt(title, author, guideDoc, excerpt string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Book: %q", title)
	if author != "" {
		fmt.Fprintf(&b, " by %s", author)
	}
	b.WriteString("\n\nCurrent guide:\n\n")
	b.WriteString(guideDoc)
	b.WriteString("\n\nOriginal book excerpt for grounding:\n\n")
	b.WriteString(excerpt)
	return b.String()
}

func audioScriptSystemPrompt() string {
	return `You turn written insight guides into spoken-word narration scripts. Conversational tone, 500-1000 words, plain text with no markdown and no stage directions. Never describe visual elements directly ("as shown in the chart"); verbalize the information those visuals represent. Open with a hook and end with something memorable.`
}

func audioScriptUserPrompt(title, author, digest string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the narration script for the insight guide of %q", title)
	if author != "" {
		fmt.Fprintf(&b, " by %s", author)
	}
	b.WriteString(".\n\nGuide digest:\n\n")
	b.WriteString(digest)
	return b.String()
}
