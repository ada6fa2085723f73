// Package tokenize provides the shared tokenization used by the lexical
// index, the grounding validator, and the evaluation harness. Keeping one
// tokenizer keeps their overlap metrics comparable.
package tokenize

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// Words splits text into lowercased word tokens.
func Words(text string) []string {
	raw := wordPattern.FindAllString(text, -1)
	if len(raw) == 0 {
		return nil
	}
	tokens := make([]string, len(raw))
	for i, t := range raw {
		tokens[i] = strings.ToLower(t)
	}
	return tokens
}

// ContentWords returns the lowercased tokens of text with stopwords removed.
func ContentWords(text string) []string {
	var out []string
	for _, tok := range Words(text) {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// IsStopword reports whether the lowercased token is a stopword.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"the", "a", "an", "is", "are", "was", "were", "be", "been", "being",
		"have", "has", "had", "do", "does", "did", "will", "would", "could",
		"should", "may", "might", "can", "shall", "to", "of", "in", "for",
		"on", "with", "at", "by", "from", "up", "about", "into", "through",
		"during", "before", "after", "and", "but", "or", "nor", "not", "so",
		"yet", "both", "this", "that", "these", "those", "it", "its", "as",
		"what", "which", "who", "whom", "i", "you", "he", "she", "we", "they",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
