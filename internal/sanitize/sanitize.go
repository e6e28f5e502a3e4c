// Package sanitize cleans text that flows from imported pathway files and
// MCP tool arguments into reports returned to agents. It strips control
// characters, XML/HTML tags, markdown structure, and table delimiters so an
// imported compound name cannot inject prompt content or break a rendered
// table, while preserving the readable name.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxLabelLength is the maximum length of a node label in rendered output.
const MaxLabelLength = 120

// MaxIdentifierLength is the maximum accepted length of a user-supplied ID.
const MaxIdentifierLength = 256

// MaxScenarioNameLength is the maximum length of a what-if scenario name.
const MaxScenarioNameLength = 80

// Pre-compiled regular expressions for performance.
var (
	// reXMLTag matches XML/HTML tags including those with attributes and self-closing tags.
	// It also matches XML processing instructions like <?xml ...?>.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	// reMarkdownHeading matches markdown headings at the start of a line (# , ## , etc.).
	reMarkdownHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)

	// reBackticks matches any run of backticks.
	reBackticks = regexp.MustCompile("`+")

	// reWhitespace matches runs of whitespace, including newlines.
	reWhitespace = regexp.MustCompile(`\s+`)

	// reRepeatedHyphens matches 2 or more consecutive hyphens.
	reRepeatedHyphens = regexp.MustCompile(`-{2,}`)

	// reRepeatedUnderscores matches 2 or more consecutive underscores.
	reRepeatedUnderscores = regexp.MustCompile(`_{2,}`)
)

// Label sanitizes a node name for inclusion in a Markdown or plain report.
//
// The pipeline runs in this order:
//  1. Strip null bytes and ASCII control characters (except \n, \t)
//  2. Strip XML/HTML tags (KGML and SBML names sometimes carry <sup>/<sub>)
//  3. Drop markdown heading markers
//  4. Drop backticks and replace table pipes with slashes
//  5. Collapse all whitespace to single spaces and trim
//  6. Truncate to MaxLabelLength
func Label(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reXMLTag.ReplaceAllString(s, "")
	s = reMarkdownHeading.ReplaceAllString(s, "")
	s = reBackticks.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "|", "/")
	s = reWhitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if len(s) > MaxLabelLength {
		s = truncateRunes(s, MaxLabelLength) + "..."
	}
	return s
}

// Identifier cleans a user-supplied node ID, shorthand, or name before it is
// used for lookup. Control characters are removed, whitespace is trimmed, and
// the result is capped at MaxIdentifierLength. Empty input stays empty.
func Identifier(input string) string {
	s := strings.TrimSpace(stripControlChars(input))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) > MaxIdentifierLength {
		s = truncateRunes(s, MaxIdentifierLength)
	}
	return s
}

// ScenarioName keeps only safe characters ([a-zA-Z0-9-_/.: ]) in a what-if
// scenario name and enforces MaxScenarioNameLength. Repeated hyphens and
// underscores are collapsed to single instances.
func ScenarioName(input string) string {
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || strings.ContainsRune("-_/.: ", r) {
			b.WriteRune(r)
		}
	}
	s := b.String()

	s = reRepeatedHyphens.ReplaceAllString(s, "-")
	s = reRepeatedUnderscores.ReplaceAllString(s, "_")
	s = strings.TrimSpace(s)

	if len(s) > MaxScenarioNameLength {
		s = strings.TrimSpace(s[:MaxScenarioNameLength])
	}
	return s
}

// stripControlChars removes ASCII control characters (0x00-0x1F) from the string,
// except for newline (0x0A) and tab (0x09) which are preserved.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// truncateRunes cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := 0
	for i := range s {
		if i > n {
			break
		}
		cut = i
	}
	return s[:cut]
}
