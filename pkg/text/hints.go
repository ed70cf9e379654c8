// Package text cleans raw strings scraped from chart pages before they
// become title hints.
package text

import (
	"regexp"
	"strings"
)

var (
	rankPrefixRegex = regexp.MustCompile(`^\s*#?\d+[\.\)]?\s+`)
	quoteRegex      = regexp.MustCompile(`^[\p{Pi}"']+|[\p{Pf}"']+$`)
	spaceRegex      = regexp.MustCompile(`[\s\x{00a0}]+`)
)

// CleanCell normalizes one scraped table cell or DOM node text: collapses
// whitespace (including non-breaking spaces), strips surrounding quotes and
// a leading chart-rank prefix such as "3." or "#12".
func CleanCell(s string) string {
	s = spaceRegex.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = rankPrefixRegex.ReplaceAllString(s, "")
	s = quoteRegex.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// SplitTitleArtist splits a combined "Title - Artist" row. Rows without a
// separator yield the whole string as title and an empty artist.
func SplitTitleArtist(row string) (title, artist string) {
	row = CleanCell(row)
	for _, sep := range []string{" - ", " – ", " — "} {
		if i := strings.Index(row, sep); i > 0 {
			return strings.TrimSpace(row[:i]), strings.TrimSpace(row[i+len(sep):])
		}
	}
	return row, ""
}
