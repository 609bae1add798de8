// Package filter narrows a recipe list by the present fields of a query.
//
// A Pipeline is an ordered conjunction of predicates. Each predicate passes
// every recipe when its query field is absent, so a zero Query keeps the whole
// corpus. Predicates are pure; the pipeline stops at the first failing one.
package filter

import (
	"github.com/bastiangx/recipeserve/pkg/recipe"
	"github.com/charmbracelet/log"
)

// Predicate reports whether r satisfies one field of q.
type Predicate struct {
	Name  string
	Match func(r *recipe.Recipe, q *recipe.Query) bool
}

// Pipeline is an ordered chain of predicates.
type Pipeline []Predicate

// Default returns the standard chain: ingredients, duration, tags, price,
// servings and diet.
func Default() Pipeline {
	return Pipeline{
		{Name: "ingredients", Match: Ingredients},
		{Name: "duration", Match: MaxDuration},
		{Name: "tags", Match: Tags},
		{Name: "price", Match: MaxPrice},
		{Name: "servings", Match: Servings},
		{Name: "diet", Match: Diet},
	}
}

// Apply returns the recipes satisfying every predicate, in input order.
func (p Pipeline) Apply(recipes []*recipe.Recipe, q recipe.Query) []*recipe.Recipe {
	out := make([]*recipe.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if p.Match(r, q) {
			out = append(out, r)
		}
	}
	if len(out) == 0 && len(recipes) > 0 {
		log.Debugf("filter: none of %d recipes survived the query", len(recipes))
	}
	return out
}

// Match evaluates the whole chain on a single recipe. A nil recipe never matches.
func (p Pipeline) Match(r *recipe.Recipe, q recipe.Query) bool {
	if r == nil {
		return false
	}
	for _, pred := range p {
		if !pred.Match(r, &q) {
			return false
		}
	}
	return true
}

// Ingredients requires HasIngredient(id) != exclude for every item. Items with
// an unknown or nil id never match unless excluded.
func Ingredients(r *recipe.Recipe, q *recipe.Query) bool {
	for _, item := range q.Items {
		if r.HasIngredient(item.ID) == item.Exclude {
			return false
		}
	}
	return true
}

// MaxDuration keeps recipes no longer than q.Duration.
func MaxDuration(r *recipe.Recipe, q *recipe.Query) bool {
	return q.Duration == nil || r.Duration <= *q.Duration
}

// Tags requires every query tag to be on the recipe.
func Tags(r *recipe.Recipe, q *recipe.Query) bool {
	for _, tag := range q.Tags {
		if !r.HasTag(tag) {
			return false
		}
	}
	return true
}

// MaxPrice keeps recipes whose estimated price does not exceed q.Price.
func MaxPrice(r *recipe.Recipe, q *recipe.Query) bool {
	return q.Price == nil || r.EstimatedPrice() <= *q.Price
}

// Servings keeps recipes that feed at least q.Servings people.
func Servings(r *recipe.Recipe, q *recipe.Query) bool {
	return q.Servings == nil || float64(r.Servings) >= *q.Servings
}

// Diet requires every dietary restriction to be present as a recipe tag.
func Diet(r *recipe.Recipe, q *recipe.Query) bool {
	for _, d := range q.Diet {
		if !r.HasTag(d) {
			return false
		}
	}
	return true
}
