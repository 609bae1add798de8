// Package suggest is the core, publishing search snapshots built from a recipe corpus and turning queries and selection history into suggestions.
package suggest

import (
	"context"

	"github.com/bastiangx/recipeserve/pkg/rank"
	"github.com/bastiangx/recipeserve/pkg/recipe"
)

// IEngine defines the interface for recipe search engines
type IEngine interface {
	// Rebuild replaces the corpus atomically
	Rebuild(ctx context.Context, corpus []*recipe.Recipe) error

	// Search matches free text with the configured mode
	Search(text string) []*recipe.Recipe

	// Lookup searches with an explicit mode and reports query correction
	Lookup(text string, mode Mode) SearchResult

	// SearchIDs returns raw prefix index ids
	SearchIDs(query string) []string

	// Suggest filters the corpus by a structured query
	Suggest(q recipe.Query) []recipe.Suggestion

	// Recommend ranks recipes by similarity to past selections
	Recommend(h rank.History, q recipe.Query) Recommendation

	// ResolveIngredient maps free text to an ingredient id
	ResolveIngredient(name string) (string, bool)

	// Stats returns statistics about the loaded corpus
	Stats() map[string]int
}

var _ IEngine = (*Engine)(nil)
