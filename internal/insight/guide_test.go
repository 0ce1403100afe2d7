package insight_test

import (
	"testing"

	"github.com/vampirenirmal/insightatlas/internal/insight"
)

func TestCountWords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "single word", text: "hello", want: 1},
		{name: "multiple spaces", text: "a   b\t c\nd", want: 4},
		{name: "leading and trailing whitespace", text: "  trimmed words  ", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := insight.CountWords(tt.text); got != tt.want {
				t.Errorf("CountWords(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestSectionWordsIncludesActionSteps(t *testing.T) {
	s := insight.PremiumSection{
		Content: "one two three",
		Meta: insight.SectionMetadata{
			ActionSteps: []string{"do this now", "then this"},
		},
	}
	if got := insight.SectionWords(s); got != 8 {
		t.Errorf("SectionWords = %d, want 8", got)
	}
}

func TestTotalWordsSumsSections(t *testing.T) {
	sections := []insight.PremiumSection{
		{Content: "a b c"},
		{Content: "d e", Meta: insight.SectionMetadata{ActionSteps: []string{"f g h"}}},
	}
	if got := insight.TotalWords(sections); got != 8 {
		t.Errorf("TotalWords = %d, want 8", got)
	}
}

func TestBuildTOCPreservesOrder(t *testing.T) {
	sections := []insight.PremiumSection{
		{ID: "sec_1", Type: insight.TypeQuickGlance, Title: "At a Glance"},
		{ID: "sec_2", Type: insight.TypeConceptExplanation, Title: "First Concept"},
		{ID: "sec_3", Type: insight.TypeKeyTakeaways, Title: "Takeaways"},
	}

	toc := insight.BuildTOC(sections)
	if len(toc) != len(sections) {
		t.Fatalf("TOC has %d entries, want %d", len(toc), len(sections))
	}
	for i, entry := range toc {
		if entry.ID != sections[i].ID || entry.Title != sections[i].Title || entry.Type != sections[i].Type {
			t.Errorf("TOC[%d] = %+v, want projection of %+v", i, entry, sections[i])
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{name: "under limit unchanged", text: "short", limit: 10, want: "short"},
		{name: "at limit unchanged", text: "exact", limit: 5, want: "exact"},
		{name: "over limit gets ellipsis", text: "abcdefghij", limit: 4, want: "abcd..."},
		{name: "trailing space trimmed before ellipsis", text: "ab cdef", limit: 3, want: "ab..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := insight.Truncate(tt.text, tt.limit); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
		})
	}
}

func TestSectionTypeValid(t *testing.T) {
	if !insight.TypeQuickGlance.Valid() {
		t.Error("quickGlance should be valid")
	}
	if insight.SectionType("madeUpType").Valid() {
		t.Error("unknown type should be invalid")
	}
}

func TestCoerceVisualType(t *testing.T) {
	if got := insight.CoerceVisualType(insight.VisualRadarChart); got != insight.VisualRadarChart {
		t.Errorf("valid visual coerced to %s", got)
	}
	if got := insight.CoerceVisualType(insight.VisualType("hologram")); got != insight.VisualFlowDiagram {
		t.Errorf("invalid visual coerced to %s, want %s", got, insight.VisualFlowDiagram)
	}
}

func TestDegradable(t *testing.T) {
	ok := insight.Ok("real")
	if ok.Degraded || ok.Cause != nil || ok.Value != "real" {
		t.Errorf("Ok result unexpectedly degraded: %+v", ok)
	}

	fb := insight.Fallback("substitute", errTest)
	if !fb.Degraded || fb.Cause == nil || fb.Value != "substitute" {
		t.Errorf("Fallback result not flagged degraded: %+v", fb)
	}
}

var errTest = errSentinel("test failure")

type errSentinel string

func (e errSentinel) Error() string { return string(e) }
