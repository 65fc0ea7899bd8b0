package review

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// CollapseSpaces trims a name and squeezes internal runs of whitespace, the
// minimal cleanup applied before any display-name query.
func CollapseSpaces(name string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(name), " ")
}

// NormalizeName produces the canonical cache/comparison key for a person
// name: lowercased, diacritics stripped, whitespace collapsed, and
// "Last, First" flipped to "first last".
func NormalizeName(name string) string {
	s := strings.ToLower(CollapseSpaces(name))
	if s == "" {
		return s
	}
	s = stripDiacritics(s)

	if parts := strings.SplitN(s, ",", 2); len(parts) == 2 {
		first := strings.TrimSpace(parts[1])
		last := strings.TrimSpace(parts[0])
		if first != "" && last != "" {
			s = first + " " + last
		}
	}
	return strings.TrimSpace(s)
}

// SplitName decomposes a display name into given name and surname for the
// compound directory query. The first token is the given name, everything
// after it the surname. ok is false when the name has fewer than two tokens.
func SplitName(full string) (given, surname string, ok bool) {
	parts := strings.Fields(full)
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[0], strings.Join(parts[1:], " "), true
}

// stripDiacritics removes combining marks after NFD decomposition, so that
// "José" and "Jose" key identically.
func stripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
