// Package sanitize cleans free-text user input before it is stored or forwarded.
package sanitize

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text removes all markup and control characters (newlines and tabs survive) and trims the result.
func Text(s string) string {
	cleaned := strict.Sanitize(s)
	// StrictPolicy escapes entities; stored text is plain, so undo that.
	cleaned = html.UnescapeString(cleaned)

	cleaned = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, cleaned)

	return strings.TrimSpace(cleaned)
}

// Line is Text restricted to a single line; newlines and tabs become spaces.
func Line(s string) string {
	return strings.Join(strings.Fields(Text(s)), " ")
}

func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
