package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var numberPattern = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)(\s?(?:million|billion|thousand|bn|k|m|b|x))?`)

// ExtractNumbers returns the canonical numeric tokens of text: thousands separators and
// currency signs removed, magnitude suffixes folded to k/m/b/x. "$2.5M" and "2.5 million"
// both yield "2.5m"; "15%" yields "15". Digits glued to a preceding letter ("EC2", "k8s")
// are identifiers, not numbers.
func ExtractNumbers(text string) []string {
	var out []string
	for _, m := range numberPattern.FindAllStringSubmatchIndex(text, -1) {
		if prev, _ := utf8.DecodeLastRuneInString(text[:m[2]]); m[2] > 0 && unicode.IsLetter(prev) {
			continue
		}
		value := strings.TrimRight(strings.ReplaceAll(text[m[2]:m[3]], ",", ""), ".")
		if value == "" {
			continue
		}
		suffix := ""
		if m[4] >= 0 {
			next, _ := utf8.DecodeRuneInString(text[m[5]:])
			if m[5] >= len(text) || !unicode.IsLetter(next) {
				suffix = canonicalSuffix(strings.TrimSpace(text[m[4]:m[5]]))
			}
		}
		out = append(out, value+suffix)
	}
	return out
}

func canonicalSuffix(s string) string {
	switch strings.ToLower(s) {
	case "k", "thousand":
		return "k"
	case "m", "million":
		return "m"
	case "b", "bn", "billion":
		return "b"
	case "x":
		return "x"
	}
	return ""
}

// NumberSet is a set of canonical numeric tokens
type NumberSet map[string]struct{}

// NewNumberSet collects the numbers of every text
func NewNumberSet(texts ...string) NumberSet {
	set := make(NumberSet)
	for _, t := range texts {
		for _, n := range ExtractNumbers(t) {
			set[n] = struct{}{}
		}
	}
	return set
}

// Contains reports whether n is in the set
func (s NumberSet) Contains(n string) bool {
	_, ok := s[n]
	return ok
}

// Missing returns the numbers of text that are not in the set, in order of appearance
func (s NumberSet) Missing(text string) []string {
	var missing []string
	for _, n := range ExtractNumbers(text) {
		if !s.Contains(n) {
			missing = append(missing, n)
		}
	}
	return missing
}
