package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vampirenirmal/insightatlas/internal/insight"
)

// Content is the normalized result of text extraction from a book file.
type Content struct {
	Title     string
	Author    string
	Text      string
	WordCount int
	PageCount int
	FileType  string
}

// Extractor converts an uploaded book file into plain text. PDF and EPUB
// extraction live behind this boundary; only the plain-text implementation
// ships in this repository.
type Extractor interface {
	ExtractContent(data []byte, filename, mimeType string) (*Content, error)
}

var ErrUnsupportedFormat = errors.New("unsupported book file format")

// PlainText extracts TXT and markdown files. The title falls back to the
// first non-empty line when no heading is present.
type PlainText struct{}

func NewPlainText() *PlainText {
	return &PlainText{}
}

func (p *PlainText) ExtractContent(data []byte, filename, mimeType string) (*Content, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".md", ".text", "":
	default:
		if !strings.HasPrefix(mimeType, "text/") {
			return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, ext, mimeType)
		}
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, errors.New("file contains no extractable text")
	}

	title := titleFromText(text, filename)
	words := insight.CountWords(text)

	return &Content{
		Title:     title,
		Text:      text,
		WordCount: words,
		// Rough convention for plain text: one page per ~300 words.
		PageCount: (words + 299) / 300,
		FileType:  "txt",
	}, nil
}

func titleFromText(text, filename string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line != "" {
			if len(line) > 120 {
				line = line[:120]
			}
			return line
		}
	}
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
