// Package fuzzy implements the stemmed, weighted multi-field recipe search used
// for free-text queries.
//
// Every recipe is projected to two stemmed text fields, name and ingredients.
// A query is split into stemmed terms; each term is matched on its own against
// both fields and yields a set of recipe ids. The result is the intersection of
// those sets, so a recipe must match every term but the terms need not be adjacent.
package fuzzy

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/antzucaro/matchr"
	"github.com/bastiangx/recipeserve/internal/utils"
	"github.com/charmbracelet/log"
)

// Document is the raw text of one recipe before stemming.
type Document struct {
	ID          string
	Names       []string
	Ingredients []string
}

// SearchableRecipe is the stemmed projection of a recipe.
type SearchableRecipe struct {
	ID          string
	Name        string
	Ingredients string

	nameWords       []string
	ingredientWords []string
}

// Options tunes scoring.
type Options struct {
	NameWeight       float64
	IngredientWeight float64
	// Threshold is the largest accepted distance score in [0, 1]; 0 only
	// accepts perfect matches.
	Threshold float64
	// MaxDistance is the largest edit distance between a term and a field word.
	MaxDistance int
}

// DefaultOptions returns the standard field weights and tolerances.
func DefaultOptions() Options {
	return Options{
		NameWeight:       0.6,
		IngredientWeight: 0.4,
		Threshold:        0.4,
		MaxDistance:      2,
	}
}

// Match is a recipe id with its weighted score in [0, 1], higher is better.
type Match struct {
	ID    string
	Score float64
}

// FieldIndex is an immutable stemmed index over a corpus.
type FieldIndex struct {
	recipes []SearchableRecipe
	vocab   map[string]int
	opts    Options
	metric  *metrics.Levenshtein
}

// NewFieldIndex stems every document and builds the index.
func NewFieldIndex(docs []Document, opts Options) *FieldIndex {
	if opts.NameWeight+opts.IngredientWeight <= 0 {
		d := DefaultOptions()
		opts.NameWeight, opts.IngredientWeight = d.NameWeight, d.IngredientWeight
	}

	fi := &FieldIndex{
		recipes: make([]SearchableRecipe, 0, len(docs)),
		vocab:   make(map[string]int),
		opts:    opts,
		metric:  metrics.NewLevenshtein(),
	}

	for _, doc := range docs {
		nameWords := ProcessField(doc.Names)
		ingredientWords := ProcessField(doc.Ingredients)
		fi.recipes = append(fi.recipes, SearchableRecipe{
			ID:              doc.ID,
			Name:            strings.Join(nameWords, " "),
			Ingredients:     strings.Join(ingredientWords, " "),
			nameWords:       nameWords,
			ingredientWords: ingredientWords,
		})
		fi.count(doc.Names)
		fi.count(doc.Ingredients)
	}

	log.Debugf("Built field index: %d recipes, %d distinct words", len(fi.recipes), len(fi.vocab))
	return fi
}

func (fi *FieldIndex) count(texts []string) {
	for _, text := range texts {
		for _, w := range utils.SplitQuery(text) {
			fi.vocab[w]++
		}
	}
}

// Search returns the ids of recipes matching every term of query.
func (fi *FieldIndex) Search(query string) []string {
	matches := fi.SearchScored(query)
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids
}

// SearchScored is Search with scores, best first. A recipe's score is the mean
// of its per-term scores.
func (fi *FieldIndex) SearchScored(query string) []Match {
	if fi == nil || len(fi.recipes) == 0 {
		return []Match{}
	}

	terms := ProcessQuery(query)
	if len(terms) == 0 {
		log.Debug("empty query, nothing to search")
		return []Match{}
	}

	var combined map[string]float64
	for i, term := range terms {
		scores := fi.searchTerm(term)
		if i == 0 {
			combined = scores
			continue
		}
		for id := range combined {
			s, ok := scores[id]
			if !ok {
				delete(combined, id)
				continue
			}
			combined[id] += s
		}
		if len(combined) == 0 {
			break
		}
	}

	matches := make([]Match, 0, len(combined))
	for id, total := range combined {
		matches = append(matches, Match{ID: id, Score: total / float64(len(terms))})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) == 0 {
		log.Debugf("no recipe matches all terms of %q", query)
	}
	return matches
}

// searchTerm scores every recipe against a single stemmed term and keeps those
// whose best field is within the threshold.
func (fi *FieldIndex) searchTerm(term string) map[string]float64 {
	scores := make(map[string]float64)
	totalWeight := fi.opts.NameWeight + fi.opts.IngredientWeight
	minSimilarity := 1 - fi.opts.Threshold

	for i := range fi.recipes {
		r := &fi.recipes[i]
		nameSim := fi.fieldSimilarity(term, r.nameWords)
		ingredientSim := fi.fieldSimilarity(term, r.ingredientWords)

		if max(nameSim, ingredientSim) < minSimilarity {
			continue
		}
		scores[r.ID] = (fi.opts.NameWeight*nameSim + fi.opts.IngredientWeight*ingredientSim) / totalWeight
	}
	return scores
}

// fieldSimilarity is the best similarity between term and any word of a field.
// A word starting with a term of at least minPrefixLen runes counts as a
// perfect match. Otherwise only words sharing the first letter and within
// MaxDistance edits score above zero.
func (fi *FieldIndex) fieldSimilarity(term string, words []string) float64 {
	best := 0.0
	for _, w := range words {
		if w == term || (utf8.RuneCountInString(term) >= minPrefixLen && strings.HasPrefix(w, term)) {
			return 1
		}
		if !sameFirstRune(term, w) || matchr.Levenshtein(term, w) > fi.opts.MaxDistance {
			continue
		}
		if sim := strutil.Similarity(term, w, fi.metric); sim > best {
			best = sim
		}
	}
	return best
}

const minPrefixLen = 3

func sameFirstRune(a, b string) bool {
	ra, _ := utf8.DecodeRuneInString(a)
	rb, _ := utf8.DecodeRuneInString(b)
	return ra == rb
}

// Recipes returns the stemmed projections held by the index.
func (fi *FieldIndex) Recipes() []SearchableRecipe {
	if fi == nil {
		return nil
	}
	out := make([]SearchableRecipe, len(fi.recipes))
	copy(out, fi.recipes)
	return out
}

// Vocabulary returns every lower-case corpus word with its number of occurrences.
func (fi *FieldIndex) Vocabulary() map[string]int {
	if fi == nil {
		return map[string]int{}
	}
	out := make(map[string]int, len(fi.vocab))
	for w, n := range fi.vocab {
		out[w] = n
	}
	return out
}

// Len returns the number of indexed recipes.
func (fi *FieldIndex) Len() int {
	if fi == nil {
		return 0
	}
	return len(fi.recipes)
}
