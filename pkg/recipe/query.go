package recipe

// ItemQuery constrains a single ingredient. Name is free text resolved to an
// ingredient id by the engine when ID is nil.
type ItemQuery struct {
	ID      *string `json:"id,omitempty" msgpack:"id,omitempty"`
	Name    string  `json:"name,omitempty" msgpack:"name,omitempty"`
	Exclude bool    `json:"exclude,omitempty" msgpack:"exclude,omitempty"`
}

// Query is a structured recipe search. Nil pointer fields are absent; every
// present field narrows the result.
type Query struct {
	Items    []ItemQuery `json:"items,omitempty" msgpack:"items,omitempty"`
	Tags     []string    `json:"tags,omitempty" msgpack:"tags,omitempty"`
	Diet     []string    `json:"diet,omitempty" msgpack:"diet,omitempty"`
	Duration *float64    `json:"duration,omitempty" msgpack:"duration,omitempty"`
	Servings *float64    `json:"servings,omitempty" msgpack:"servings,omitempty"`
	Price    *float64    `json:"price,omitempty" msgpack:"price,omitempty"`
	City     *string     `json:"city,omitempty" msgpack:"city,omitempty"`
}

// Include returns an ItemQuery requiring the ingredient.
func Include(id string) ItemQuery {
	return ItemQuery{ID: &id}
}

// Exclude returns an ItemQuery rejecting the ingredient.
func Exclude(id string) ItemQuery {
	return ItemQuery{ID: &id, Exclude: true}
}

// Float returns a pointer to v, for filling optional Query fields.
func Float(v float64) *float64 {
	return &v
}

// MissingIngredient is an ingredient the user still has to buy.
type MissingIngredient struct {
	Ingredient *Ingredient `json:"item" msgpack:"item"`
	Price      *float64    `json:"price,omitempty" msgpack:"price,omitempty"`
}

// Suggestion is one entry of a suggestion list. Recipe is referenced, not copied.
type Suggestion struct {
	Recipe             *Recipe             `json:"recipe" msgpack:"recipe"`
	RecipePrice        float64             `json:"recipe_price" msgpack:"recipe_price"`
	MissingIngredients []MissingIngredient `json:"missing_ingredients" msgpack:"missing_ingredients"`
}
