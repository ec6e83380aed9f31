package scoring

import (
	"strings"
	"unicode"
)

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true, "in": true,
	"on": true, "to": true, "for": true, "with": true, "by": true, "at": true, "as": true,
	"is": true, "are": true, "be": true, "from": true, "into": true, "our": true, "we": true,
	"you": true, "your": true, "their": true, "its": true, "this": true, "that": true,
	"using": true, "plus": true, "strong": true, "experience": true, "years": true,
	"year": true, "skills": true, "skill": true, "ability": true, "knowledge": true,
	"proven": true, "solid": true, "excellent": true, "good": true, "working": true,
}

// wordFamilies folds outcome verbs and their nouns onto one concept so that
// "increased sales" supports "sales growth"
var wordFamilies = map[string]string{
	"grew": "growth", "grow": "growth", "growing": "growth", "increased": "growth",
	"increase": "growth", "boosted": "growth", "raised": "growth", "expanded": "growth",
	"reduced": "reduction", "reduce": "reduction", "cut": "reduction", "decreased": "reduction",
	"lowered": "reduction", "led": "leadership", "lead": "leadership", "leading": "leadership",
	"managed": "management", "manage": "management", "managing": "management",
	"mentored": "mentoring", "mentor": "mentoring", "mentoring": "mentoring", "testing": "testing", "built": "build", "building": "build",
	"designed": "design", "designing": "design", "automated": "automation",
	"automate": "automation", "optimized": "optimization", "optimize": "optimization",
	"migrated": "migration", "migrate": "migration", "deployed": "deployment",
	"deploy": "deployment", "tested": "testing", "test": "testing", "tests": "testing",
}

// concept maps a lower-cased word onto the form used for comparison
func concept(word string) string {
	if family, ok := wordFamilies[word]; ok {
		return family
	}
	switch {
	case len(word) > 5 && strings.HasSuffix(word, "ing"):
		word = word[:len(word)-3]
	case len(word) > 4 && strings.HasSuffix(word, "ed"):
		word = word[:len(word)-2]
	case len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		word = word[:len(word)-1]
	}
	if family, ok := wordFamilies[word]; ok {
		return family
	}
	return word
}

func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}

// Tokens returns the comparison concepts of s, stopwords removed, in order
func Tokens(s string) []string {
	var out []string
	for _, w := range splitWords(s) {
		if stopwords[w] {
			continue
		}
		out = append(out, concept(w))
	}
	return out
}

// ContentWords returns the distinct concepts of s that are at least three characters long
func ContentWords(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range Tokens(s) {
		if len(t) < 3 || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// TokenSet is a set of concepts for repeated term lookups against one text
type TokenSet map[string]bool

// NewTokenSet builds the concept set of s
func NewTokenSet(s string) TokenSet {
	set := make(TokenSet)
	for _, t := range Tokens(s) {
		set[t] = true
	}
	return set
}

// HasTerm reports whether every concept of term occurs in the set. Terms made only of
// stopwords never match.
func (s TokenSet) HasTerm(term string) bool {
	toks := Tokens(term)
	if len(toks) == 0 {
		return false
	}
	for _, t := range toks {
		if !s[t] {
			return false
		}
	}
	return true
}

// MentionsTerm reports whether text mentions term, ignoring case, word inflection and stopwords
func MentionsTerm(text, term string) bool {
	return NewTokenSet(text).HasTerm(term)
}

// MentionsPhrase reports whether the concepts of term occur in text contiguously and in
// order, so "machine learning" is not found in "learned to operate machine tooling"
func MentionsPhrase(text, term string) bool {
	return ContainsRun(Tokens(text), Tokens(term))
}

// ContainsRun reports whether run occurs as a contiguous subsequence of toks. An empty run
// never matches.
func ContainsRun(toks, run []string) bool {
	if len(run) == 0 {
		return false
	}
	for i := 0; i+len(run) <= len(toks); i++ {
		match := true
		for j, t := range run {
			if toks[i+j] != t {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
