package suggest

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/recipeserve/pkg/fuzzy"
	"github.com/bastiangx/recipeserve/pkg/recipe"
	"github.com/charmbracelet/log"
	sfuzzy "github.com/sahilm/fuzzy"
)

type ingredientName struct {
	name string
	id   string
}

// ingredientNames is the corpus' ingredient vocabulary, one entry per
// localized name. It implements sfuzzy.Source.
type ingredientNames []ingredientName

func (n ingredientNames) String(i int) string { return n[i].name }
func (n ingredientNames) Len() int            { return len(n) }

// resolver maps free-text ingredient names to ingredient ids.
type resolver struct {
	names     ingredientNames
	exact     map[string]string
	corrector *fuzzy.Corrector
}

func newResolver(recipes []*recipe.Recipe, maxDistance int) *resolver {
	res := &resolver{exact: make(map[string]string)}
	words := make(map[string]int)

	for _, r := range recipes {
		for i := range r.Ingredients {
			ing := &r.Ingredients[i]
			for _, name := range ing.Name.Values() {
				name = strings.ToLower(strings.TrimSpace(name))
				if name == "" {
					continue
				}
				words[name]++
				if _, ok := res.exact[name]; ok {
					continue
				}
				res.exact[name] = ing.ID
				res.names = append(res.names, ingredientName{name: name, id: ing.ID})
			}
		}
	}
	sort.Slice(res.names, func(i, j int) bool { return res.names[i].name < res.names[j].name })
	res.corrector = fuzzy.NewCorrector(words, maxDistance)
	return res
}

// minMatchLen is the shortest name tried against the fuzzy matcher.
const minMatchLen = 3

// resolve tries an exact name, then a word prefix of a known name, then an
// edit-distance correction. Fuzzy hits inside a word are rejected, so "ham"
// never resolves to "champignons".
func (res *resolver) resolve(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", false
	}
	if id, ok := res.exact[key]; ok {
		return id, true
	}

	if utf8.RuneCountInString(key) >= minMatchLen {
		for _, m := range sfuzzy.FindFrom(key, res.names) {
			best := res.names[m.Index]
			if !wordPrefix(best.name, key) {
				continue
			}
			log.Debugf("resolved ingredient %q to %q (%s)", name, best.name, best.id)
			return best.id, true
		}
	}

	if corrected, ok := res.corrector.SuggestCorrection(key); ok {
		if id, found := res.exact[corrected]; found {
			log.Debugf("resolved ingredient %q to %q after correction", name, corrected)
			return id, true
		}
	}

	log.Debugf("could not resolve ingredient %q", name)
	return "", false
}

// wordPrefix reports whether key starts at a word boundary of name.
func wordPrefix(name, key string) bool {
	for i := 0; i < len(name); i++ {
		if i > 0 && !isSeparator(name[i-1]) {
			continue
		}
		if strings.HasPrefix(name[i:], key) {
			return true
		}
	}
	return false
}

func isSeparator(b byte) bool {
	return b == ' ' || b == '-' || b == ',' || b == '_'
}

func (res *resolver) len() int {
	return len(res.names)
}
