// Package content builds the display-text companion artifact: the
// narration text, its paragraph and header structure, and reading
// metadata.
package content

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/readalong/readalong-server/internal/errors"
)

// ArtifactVersion identifies the content artifact schema.
const ArtifactVersion = "1.0"

// readingWPM is the words-per-minute assumption for the estimated
// reading time.
const readingWPM = 200

// Artifact is the persisted display-text companion to a timing
// collection.
type Artifact struct {
	Version     string     `json:"version"`
	DisplayText string     `json:"displayText"`
	Paragraphs  []string   `json:"paragraphs"`
	Headers     []string   `json:"headers"`
	Formatting  Formatting `json:"formatting"`
	Metadata    Metadata   `json:"metadata"`
}

// Formatting carries display hints for clients.
type Formatting struct {
	BoldHeaders      bool `json:"boldHeaders"`
	ParagraphSpacing bool `json:"paragraphSpacing"`
}

// Metadata summarizes the text for listing views.
type Metadata struct {
	WordCount            int    `json:"wordCount"`
	CharacterCount       int    `json:"characterCount"`
	EstimatedReadingTime string `json:"estimatedReadingTime"`
}

// Build assembles the content artifact for a display text.
func Build(displayText string) *Artifact {
	paragraphs := splitParagraphs(displayText)
	return &Artifact{
		Version:     ArtifactVersion,
		DisplayText: displayText,
		Paragraphs:  paragraphs,
		Headers:     extractHeaders(paragraphs),
		Formatting: Formatting{
			BoldHeaders:      true,
			ParagraphSpacing: true,
		},
		Metadata: buildMetadata(displayText),
	}
}

func buildMetadata(text string) Metadata {
	wordCount := len(strings.Fields(text))
	minutes := wordCount / readingWPM
	if minutes < 1 {
		minutes = 1
	}
	return Metadata{
		WordCount:            wordCount,
		CharacterCount:       len(text),
		EstimatedReadingTime: fmt.Sprintf("%d min", minutes),
	}
}

// splitParagraphs splits on blank lines and trims each block.
func splitParagraphs(text string) []string {
	blocks := regexp.MustCompile(`\n\s*\n`).Split(text, -1)
	paragraphs := make([]string, 0, len(blocks))
	for _, b := range blocks {
		b = strings.TrimSpace(b)
		if b != "" {
			paragraphs = append(paragraphs, b)
		}
	}
	return paragraphs
}

// headerPattern matches a short title-case line without terminal
// punctuation, the usual shape of a section heading.
var headerPattern = regexp.MustCompile(`^[A-Z][^.!?]{0,79}$`)

// extractHeaders picks out paragraphs that look like section headers:
// single short lines that start a capital and carry no sentence
// punctuation.
func extractHeaders(paragraphs []string) []string {
	headers := []string{}
	for _, p := range paragraphs {
		if strings.Contains(p, "\n") {
			continue
		}
		if len(strings.Fields(p)) > 10 {
			continue
		}
		if headerPattern.MatchString(p) {
			headers = append(headers, p)
		}
	}
	return headers
}

// LoadSourceText reads a narration source file and returns plain display
// text, NFC-normalized. HTML sources are converted through markdown,
// markdown sources are stripped of markup, everything else is read as-is.
func LoadSourceText(path string) (string, error) {
	raw, err := os.ReadFile(path) //#nosec G304 -- path comes from operator input
	if err != nil {
		return "", errors.Wrapf(err, errors.CodeNotFound, "read source text %s", path)
	}

	text := string(raw)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		md, err := htmltomarkdown.ConvertString(text)
		if err != nil {
			return "", errors.Wrapf(err, errors.CodeFormat, "convert html source %s", path)
		}
		text = stripMarkdown(md)
	case ".md", ".markdown":
		text = stripMarkdown(text)
	}

	text = norm.NFC.String(text)
	return strings.TrimSpace(text), nil
}

var (
	mdHeading  = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdEmphasis = regexp.MustCompile(`(\*{1,3}|_{1,3})([^*_]+)(\*{1,3}|_{1,3})`)
	mdLink     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
)

// stripMarkdown removes the markup that narration never speaks, keeping
// only the text content.
func stripMarkdown(md string) string {
	md = mdHeading.ReplaceAllString(md, "")
	md = mdLink.ReplaceAllString(md, "$1")
	md = mdEmphasis.ReplaceAllString(md, "$2")
	return md
}
