package fuzzy

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/bastiangx/recipeserve/internal/utils"
)

// Constants for scoring
const (
	distancePenalty   = 20
	lengthDiffPenalty = 2
	maxFrequencyBonus = 30
	baseScore         = 100
)

// Corrector handles approximate matching of query words against the corpus vocabulary
type Corrector struct {
	words       []string
	wordFreq    map[string]int
	maxDistance int
}

// NewCorrector creates a new corrector over a word -> frequency vocabulary
func NewCorrector(words map[string]int, maxDistance int) *Corrector {
	wordList := make([]string, 0, len(words))
	for word := range words {
		wordList = append(wordList, word)
	}
	// stable candidate order for equal scores
	sort.Strings(wordList)

	return &Corrector{
		words:       wordList,
		wordFreq:    words,
		maxDistance: maxDistance,
	}
}

// candidate represents a vocabulary word with its score
type candidate struct {
	word  string
	score int
}

// SuggestCorrection returns the most likely correction for a potentially misspelled word
func (c *Corrector) SuggestCorrection(input string) (string, bool) {
	// For very short inputs, don't attempt correction
	if len([]rune(input)) < 2 {
		return input, false
	}

	lowerInput := strings.ToLower(input)
	if _, ok := c.wordFreq[lowerInput]; ok {
		return lowerInput, false
	}

	var candidates []candidate
	for _, word := range c.words {
		// first letter heuristic: typos rarely hit the first letter
		if word == "" || word[0] != lowerInput[0] {
			continue
		}
		dist := matchr.Levenshtein(lowerInput, word)
		if dist > c.maxDistance {
			continue
		}

		score := baseScore - dist*distancePenalty
		score += min(c.wordFreq[word], maxFrequencyBonus)
		score -= abs(len(word)-len(lowerInput)) * lengthDiffPenalty
		candidates = append(candidates, candidate{word: word, score: score})
	}

	if len(candidates) == 0 {
		return input, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	return candidates[0].word, true
}

// CorrectQuery corrects every word of a free-text query. Numbers and runs of
// one repeated character are left alone. The second result reports whether
// any word changed.
func (c *Corrector) CorrectQuery(query string) (string, bool) {
	words := strings.Fields(strings.ToLower(query))
	changed := false
	for i, w := range words {
		if utils.IsOnlyNumbers(w) || utils.IsRepetitive(w) {
			continue
		}
		if corrected, ok := c.SuggestCorrection(w); ok {
			words[i] = corrected
			changed = true
		}
	}
	return strings.Join(words, " "), changed
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
