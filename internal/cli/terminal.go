package cli

import (
	"sort"
	"strings"
	"time"

	"github.com/bastiangx/recipeserve/pkg/recipe"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	nameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

func formatPrice(p float64) string {
	return humanize.FormatFloat("#,###.##", p)
}

// printRecipes prints at most limit recipes with duration and ingredient count.
func (h *InputHandler) printRecipes(recipes []*recipe.Recipe, limit int) {
	shown := recipes
	if len(shown) > limit {
		shown = shown[:limit]
	}
	h.out.Printf("Found %s recipes:", humanize.Comma(int64(len(recipes))))
	for i, r := range shown {
		h.out.Printf("%2d. %-40s [%s] %3.0f min, %d ingredients",
			i+1, nameStyle.Render(r.Name.Get("")), r.ID, r.Duration, len(r.Ingredients))
	}
}

// printSuggestions prints suggestions with their price and missing ingredients.
func (h *InputHandler) printSuggestions(suggestions []recipe.Suggestion, limit int) {
	shown := suggestions
	if len(shown) > limit {
		shown = shown[:limit]
	}
	h.out.Printf("Found %s suggestions:", humanize.Comma(int64(len(suggestions))))
	for i, s := range shown {
		h.out.Printf("%2d. %-40s [%s] %3.0f min, price %s",
			i+1, nameStyle.Render(s.Recipe.Name.Get("")), s.Recipe.ID, s.Recipe.Duration, formatPrice(s.RecipePrice))
		if len(s.MissingIngredients) == 0 {
			continue
		}
		missing := make([]string, len(s.MissingIngredients))
		for j, m := range s.MissingIngredients {
			missing[j] = m.Ingredient.Name.Get("")
			if m.Price != nil {
				missing[j] += " (" + formatPrice(*m.Price) + ")"
			}
		}
		h.out.Printf("    missing: %s", missingStyle.Render(strings.Join(missing, ", ")))
	}
}

// printStats prints engine counters in name order.
func (h *InputHandler) printStats(stats map[string]int, builtAt time.Time) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if builtAt.IsZero() {
		h.out.Print("Index not built yet")
	} else {
		h.out.Printf("Index built %s", humanize.Time(builtAt))
	}
	for _, k := range keys {
		h.out.Printf("  %-16s %12s", k, humanize.Comma(int64(stats[k])))
	}
	h.out.Printf("  %-16s %12s", "commands", humanize.Comma(int64(h.requestCount)))
}

func (h *InputHandler) printHelp() {
	h.out.Print("Commands:")
	h.out.Print("  <text>            search with the default mode")
	h.out.Print("  :p <text>         prefix search")
	h.out.Print("  :f <text>         fuzzy name and ingredient search")
	h.out.Print("  :s <query>        filter, e.g. :s items=tomato,!onion tags=vegan time=30")
	h.out.Print("  :r [query]        recommend from your selections")
	h.out.Print("  :pick <id>        record a selection")
	h.out.Print("  :ls               list every recipe")
	h.out.Print("  :stats            engine statistics")
}
