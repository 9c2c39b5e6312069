package id

import (
	"regexp"
	"strings"
)

var (
	// Matches spaces, underscores, and slashes (for replacement with dashes).
	wordSeparatorRe = regexp.MustCompile(`[\s_/]+`)
	// Matches non-alphanumeric characters (except dashes).
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9-]`)
	// Matches multiple consecutive dashes.
	multipleDashRe = regexp.MustCompile(`-+`)
)

// Slug converts free-form input to a canonical content ID. Content IDs
// appear in artifact directory names, URLs, and store keys, so they are
// restricted to lowercase alphanumerics and dashes.
//
// Examples:
//
//	"My Book"       → "my-book"
//	"my_book"       → "my-book"
//	"MY-BOOK"       → "my-book"
//	"  multi  word" → "multi-word"
//	"--leading--"   → "leading"
func Slug(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = wordSeparatorRe.ReplaceAllString(s, "-")
	s = nonAlphanumericRe.ReplaceAllString(s, "")
	s = multipleDashRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
