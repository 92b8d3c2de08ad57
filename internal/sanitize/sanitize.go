// Package sanitize provides deterministic text cleaning for filenames and
// CSV field values. Every function is total and idempotent.
package sanitize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold decomposes Unicode, strips combining marks and drops anything
// left outside ASCII, so "photó.jpg" folds to "photo.jpg".
var asciiFold = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// Filename normalizes a candidate filename to a safe ASCII base name.
// Whitespace runs collapse to a single underscore, characters outside
// [A-Za-z0-9_.-] are dropped, and the result never contains path
// separators, "..", or NUL. An empty result means the input had nothing
// usable and must be rejected by the caller.
func Filename(name string) string {
	folded, _, err := transform.String(asciiFold, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r):
			pendingSep = true
		case isFilenameRune(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		}
	}

	s := b.String()
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", ".")
	}
	return strings.Trim(s, "._")
}

// Field cleans a free-text annotation value for CSV storage. CR, LF and
// TAB become spaces, whitespace runs collapse to one space, and ends are
// trimmed. A leading spreadsheet formula trigger (=, +, -, @) is
// neutralized with a single-quote prefix so exported files cannot carry
// formula injection.
func Field(value string) string {
	var b strings.Builder
	pendingSpace := false
	for _, r := range value {
		if unicode.IsSpace(r) {
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}

	s := b.String()
	if s != "" {
		switch s[0] {
		case '=', '+', '-', '@':
			s = "'" + s
		}
	}
	return s
}

func isFilenameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '-' || r == '_' || r == '.'
}
