package insight

import "strings"

// CountWords counts whitespace-separated words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// SectionWords counts a section's content plus its flattened action-step
// text, matching how guide totals are reported to clients.
func SectionWords(s PremiumSection) int {
	n := CountWords(s.Content)
	for _, step := range s.Meta.ActionSteps {
		n += CountWords(step)
	}
	return n
}

// TotalWords sums SectionWords over an ordered section list.
func TotalWords(sections []PremiumSection) int {
	total := 0
	for _, s := range sections {
		total += SectionWords(s)
	}
	return total
}

// BuildTOC derives the table of contents, one entry per section, in
// document order.
func BuildTOC(sections []PremiumSection) []TOCEntry {
	toc := make([]TOCEntry, 0, len(sections))
	for _, s := range sections {
		toc = append(toc, TOCEntry{ID: s.ID, Title: s.Title, Type: s.Type})
	}
	return toc
}

// HasType reports whether any section in the list carries the given type.
func HasType(sections []PremiumSection, t SectionType) bool {
	for _, s := range sections {
		if s.Type == t {
			return true
		}
	}
	return false
}

// FindByType returns the first section of the given type, if present.
func FindByType(sections []PremiumSection, t SectionType) (PremiumSection, bool) {
	for _, s := range sections {
		if s.Type == t {
			return s, true
		}
	}
	return PremiumSection{}, false
}

// Truncate shortens text to at most limit runes, appending an ellipsis
// when anything was cut.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
