package id

import (
	"strings"
	"testing"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		// Basic normalization
		{"lowercase", "DRAGONS", "dragons"},
		{"spaces to dashes", "my book", "my-book"},
		{"underscores to dashes", "my_book", "my-book"},
		{"already normalized", "my-book", "my-book"},

		// Whitespace handling
		{"trim whitespace", "  dragons  ", "dragons"},
		{"multiple spaces", "my   book", "my-book"},
		{"tabs and spaces", "my\t book", "my-book"},

		// Special characters
		{"emoji removal", "🐉 Dragons!", "dragons"},
		{"path separators", "folk/tales", "folk-tales"},
		{"apostrophe removal", "reader's digest", "readers-digest"},

		// Dash handling
		{"multiple dashes", "my--book", "my-book"},
		{"leading dashes", "--dragons", "dragons"},
		{"trailing dashes", "dragons--", "dragons"},

		// Edge cases
		{"empty string", "", ""},
		{"only spaces", "   ", ""},
		{"only special chars", "!@#$%", ""},
		{"numbers allowed", "chapter10", "chapter10"},
		{"mixed case with numbers", "Chapter 10 Notes", "chapter-10-notes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Slug(tt.input)
			if result != tt.expected {
				t.Errorf("Slug(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	id, err := Generate("sub")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(id, "sub-") {
		t.Errorf("Generate(%q) = %q, want sub- prefix", "sub", id)
	}
	if len(id) <= len("sub-") {
		t.Errorf("Generate(%q) = %q, missing random part", "sub", id)
	}

	other := MustGenerate("sub")
	if id == other {
		t.Errorf("two generated IDs collided: %q", id)
	}
}
