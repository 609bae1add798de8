package fuzzy

import (
	"strings"

	"github.com/bastiangx/recipeserve/internal/utils"
	"github.com/kljensen/snowball/english"
)

// Stem reduces a lower-case word to its Porter2 root.
func Stem(word string) string {
	return english.Stem(word, false)
}

// ProcessField lower-cases every text, splits it on whitespace and stems each word.
func ProcessField(texts []string) []string {
	var words []string
	for _, text := range texts {
		for _, w := range strings.Fields(strings.ToLower(text)) {
			words = append(words, Stem(w))
		}
	}
	return words
}

// ProcessQuery splits a free-text query into stemmed terms.
func ProcessQuery(query string) []string {
	words := utils.SplitQuery(query)
	terms := make([]string, 0, len(words))
	for _, w := range words {
		terms = append(terms, Stem(w))
	}
	return terms
}
