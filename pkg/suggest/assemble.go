package suggest

import "github.com/bastiangx/recipeserve/pkg/recipe"

// Pantry reports which ingredients the user already has.
type Pantry interface {
	Has(ingredientID string) bool
}

// PantrySet is a Pantry backed by a set of ingredient ids.
type PantrySet map[string]struct{}

// Has implements Pantry.
func (p PantrySet) Has(id string) bool {
	_, ok := p[id]
	return ok
}

// QueryPantry treats the ingredients a query asks for as already at hand.
// It returns nil when the query includes no ingredient.
func QueryPantry(q recipe.Query) Pantry {
	var p PantrySet
	for _, item := range q.Items {
		if item.Exclude || item.ID == nil {
			continue
		}
		if p == nil {
			p = make(PantrySet)
		}
		p[*item.ID] = struct{}{}
	}
	if p == nil {
		return nil
	}
	return p
}

// Assembler turns ranked recipes into suggestions. Without a Pantry no
// ingredient is reported missing.
type Assembler struct {
	Pantry Pantry
}

// Assemble builds suggestions with the placeholder price model and no missing
// ingredients.
func Assemble(recipes []*recipe.Recipe) []recipe.Suggestion {
	return Assembler{}.Assemble(recipes)
}

// Assemble builds one suggestion per recipe, keeping input order.
func (a Assembler) Assemble(recipes []*recipe.Recipe) []recipe.Suggestion {
	out := make([]recipe.Suggestion, 0, len(recipes))
	for _, r := range recipes {
		if r == nil {
			continue
		}
		out = append(out, recipe.Suggestion{
			Recipe:             r,
			RecipePrice:        r.EstimatedPrice(),
			MissingIngredients: a.missing(r),
		})
	}
	return out
}

func (a Assembler) missing(r *recipe.Recipe) []recipe.MissingIngredient {
	missing := []recipe.MissingIngredient{}
	if a.Pantry == nil {
		return missing
	}
	for i := range r.Ingredients {
		ing := &r.Ingredients[i]
		if a.Pantry.Has(ing.ID) {
			continue
		}
		price := ing.EstimatedPrice()
		missing = append(missing, recipe.MissingIngredient{Ingredient: ing, Price: &price})
	}
	return missing
}
