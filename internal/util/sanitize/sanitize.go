// Package sanitize scrubs user-supplied names for use in generated
// download filenames.
//
// Team and project names come straight from form input and can contain
// anything: path separators, Windows-reserved punctuation, zero-width
// Unicode. Generated filenames must be safe on every filesystem a
// downloaded archive might be extracted to.
package sanitize

import (
	"strings"
)

// reserved is the set of characters replaced in filename segments:
// \ / : * ? " < > |
const reserved = `\/:*?"<>|`

// Filename replaces filesystem-reserved characters in a name segment with
// underscores and strips invisible Unicode characters.
func Filename(name string) string {
	if name == "" {
		return name
	}

	name = removeInvisibleChars(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if strings.ContainsRune(reserved, r) {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(b.String())
}

// removeInvisibleChars removes zero-width and other invisible Unicode
// characters that survive copy-paste from rich text editors.
func removeInvisibleChars(s string) string {
	invisibleChars := []string{
		"​", // Zero-width space
		"‌", // Zero-width non-joiner
		"‍", // Zero-width joiner
		"\uFEFF", // Zero-width no-break space (BOM)
		"­", // Soft hyphen
		"⁠", // Word joiner
		"᠎", // Mongolian vowel separator
	}

	for _, char := range invisibleChars {
		s = strings.ReplaceAll(s, char, "")
	}

	return s
}
