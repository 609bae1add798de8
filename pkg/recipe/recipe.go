// Package recipe holds the corpus data model shared by the index, filter, rank and suggest packages.
package recipe

import (
	"math"
	"sort"
)

// LocaleStr maps a language code to a localized text.
type LocaleStr map[string]string

// Values returns all translations ordered by language code.
func (l LocaleStr) Values() []string {
	if len(l) == 0 {
		return nil
	}
	langs := make([]string, 0, len(l))
	for lang := range l {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	values := make([]string, 0, len(langs))
	for _, lang := range langs {
		if v := l[lang]; v != "" {
			values = append(values, v)
		}
	}
	return values
}

// Get returns the text for lang, falling back to the first available translation.
func (l LocaleStr) Get(lang string) string {
	if v, ok := l[lang]; ok && v != "" {
		return v
	}
	if values := l.Values(); len(values) > 0 {
		return values[0]
	}
	return ""
}

// Ingredient is one item used by a recipe.
type Ingredient struct {
	ID       string    `json:"id" yaml:"id" msgpack:"id"`
	Name     LocaleStr `json:"name" yaml:"name" msgpack:"name"`
	Amount   float64   `json:"amount,omitempty" yaml:"amount,omitempty" msgpack:"amount,omitempty"`
	Unit     string    `json:"unit,omitempty" yaml:"unit,omitempty" msgpack:"unit,omitempty"`
	Servings float64   `json:"servings,omitempty" yaml:"servings,omitempty" msgpack:"servings,omitempty"`
	Price    *float64  `json:"price,omitempty" yaml:"price,omitempty" msgpack:"price,omitempty"`
}

// EstimatedPrice is the ingredient's explicit price, or one unit per serving.
func (i *Ingredient) EstimatedPrice() float64 {
	if i.Price != nil {
		return *i.Price
	}
	servings := i.Servings
	if servings <= 0 {
		servings = 1
	}
	return servings
}

// Step is a single preparation step.
type Step struct {
	Description LocaleStr `json:"desc,omitempty" yaml:"desc,omitempty" msgpack:"desc,omitempty"`
	Duration    float64   `json:"duration,omitempty" yaml:"duration,omitempty" msgpack:"duration,omitempty"`
}

// Recipe is a corpus entry.
type Recipe struct {
	ID          string       `json:"id" yaml:"id" msgpack:"id"`
	Name        LocaleStr    `json:"name" yaml:"name" msgpack:"name"`
	Description LocaleStr    `json:"desc,omitempty" yaml:"desc,omitempty" msgpack:"desc,omitempty"`
	Ingredients []Ingredient `json:"ingredients,omitempty" yaml:"ingredients,omitempty" msgpack:"ingredients,omitempty"`
	Steps       []Step       `json:"steps,omitempty" yaml:"steps,omitempty" msgpack:"steps,omitempty"`
	Duration    float64      `json:"duration,omitempty" yaml:"duration,omitempty" msgpack:"duration,omitempty"`
	Tags        []string     `json:"tags,omitempty" yaml:"tags,omitempty" msgpack:"tags,omitempty"`
	Servings    int          `json:"servings,omitempty" yaml:"servings,omitempty" msgpack:"servings,omitempty"`
	Price       *float64     `json:"price,omitempty" yaml:"price,omitempty" msgpack:"price,omitempty"`
}

// HasIngredient reports whether the recipe uses the ingredient with the given id.
// A nil id never matches.
func (r *Recipe) HasIngredient(id *string) bool {
	if id == nil {
		return false
	}
	for i := range r.Ingredients {
		if r.Ingredients[i].ID == *id {
			return true
		}
	}
	return false
}

// HasTag reports whether tag is one of the recipe's tags.
func (r *Recipe) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Names returns every localized name of the recipe.
func (r *Recipe) Names() []string {
	return r.Name.Values()
}

// IngredientNames returns every localized name of every ingredient.
func (r *Recipe) IngredientNames() []string {
	var names []string
	for i := range r.Ingredients {
		names = append(names, r.Ingredients[i].Name.Values()...)
	}
	return names
}

// EstimatedPrice returns the explicit recipe price when set. Otherwise it sums the
// ingredient estimates and floors the total, which is a placeholder until real
// market prices are wired in.
func (r *Recipe) EstimatedPrice() float64 {
	if r.Price != nil {
		return *r.Price
	}
	var price float64
	for i := range r.Ingredients {
		price += r.Ingredients[i].EstimatedPrice()
	}
	return math.Floor(price)
}
