package provider

import (
	"regexp"
	"strings"
)

// MaxInputChars is the per-call user prompt ceiling. Prompts above it are
// proportionally sampled rather than tail-truncated, since chapter openings
// and closings carry the thesis statements the pipeline relies on.
const MaxInputChars = 200_000

const elisionMarker = "\n\n[...]\n\n"

var chapterHeaderRE = regexp.MustCompile(`(?mi)^(?:chapter|part)\s+(?:\d+|[ivxlcdm]+)\b.*$|^#{1,3}\s+.+$`)

// SampleToBudget reduces text to at most budget characters while keeping
// fragments from the beginning, middle, and end. When chapter-like headers
// are present the budget is distributed evenly across chapters and each
// chapter keeps its first 40%, a middle 30%, and final 30%. Without
// chapter markers a single 35/35/30 split over the whole text is used.
func SampleToBudget(text string, budget int) string {
	if len(text) <= budget || budget <= 0 {
		return text
	}

	chapters := splitChapters(text)
	if len(chapters) >= 2 {
		perChapter := budget/len(chapters) - 2
		if perChapter > len(elisionMarker)*3 {
			parts := make([]string, 0, len(chapters))
			for _, ch := range chapters {
				parts = append(parts, sampleSpans(ch, perChapter, 0.40, 0.30, 0.30))
			}
			return strings.Join(parts, "\n\n")
		}
	}

	return sampleSpans(text, budget, 0.35, 0.35, 0.30)
}

// splitChapters slices text at detected chapter-like headers. Returns nil
// when fewer than two headers exist.
func splitChapters(text string) []string {
	marks := chapterHeaderRE.FindAllStringIndex(text, -1)
	if len(marks) < 2 {
		return nil
	}

	chapters := make([]string, 0, len(marks)+1)
	if marks[0][0] > 0 {
		chapters = append(chapters, text[:marks[0][0]])
	}
	for i, m := range marks {
		end := len(text)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		chapters = append(chapters, text[m[0]:end])
	}
	return chapters
}

// sampleSpans keeps three spans of text sized by the given fractions of
// budget, separated by elision markers. Output length never exceeds budget.
func sampleSpans(text string, budget int, headFrac, midFrac, tailFrac float64) string {
	if len(text) <= budget {
		return text
	}

	usable := budget - 2*len(elisionMarker)
	if usable <= 0 {
		return text[:budget]
	}

	headLen := int(float64(usable) * headFrac)
	midLen := int(float64(usable) * midFrac)
	tailLen := usable - headLen - midLen

	head := text[:headLen]
	midStart := len(text)/2 - midLen/2
	mid := text[midStart : midStart+midLen]
	tail := text[len(text)-tailLen:]

	return head + elisionMarker + mid + elisionMarker + tail
}
