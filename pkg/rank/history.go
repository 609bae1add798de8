package rank

import "github.com/bastiangx/recipeserve/pkg/recipe"

// FeatureVector describes one selected recipe.
type FeatureVector struct {
	RecipeID    string  `json:"recipe_id" msgpack:"recipe_id"`
	Duration    float64 `json:"duration" msgpack:"duration"`
	Ingredients float64 `json:"ingredients" msgpack:"ingredients"`
	Steps       float64 `json:"steps" msgpack:"steps"`
}

// History is a user's past selections, oldest first.
type History []FeatureVector

// FromRecipes builds a history from selected recipes. Nil entries are skipped.
func FromRecipes(selected []*recipe.Recipe) History {
	h := make(History, 0, len(selected))
	for _, r := range selected {
		if r == nil {
			continue
		}
		h = append(h, Features(r))
	}
	return h
}

// Features extracts the feature vector of r.
func Features(r *recipe.Recipe) FeatureVector {
	return FeatureVector{
		RecipeID:    r.ID,
		Duration:    r.Duration,
		Ingredients: float64(len(r.Ingredients)),
		Steps:       float64(len(r.Steps)),
	}
}

// Durations returns the duration of every entry.
func (h History) Durations() []float64 {
	out := make([]float64, len(h))
	for i, f := range h {
		out[i] = f.Duration
	}
	return out
}

// IngredientCounts returns the ingredient count of every entry.
func (h History) IngredientCounts() []float64 {
	out := make([]float64, len(h))
	for i, f := range h {
		out[i] = f.Ingredients
	}
	return out
}

// StepCounts returns the step count of every entry.
func (h History) StepCounts() []float64 {
	out := make([]float64, len(h))
	for i, f := range h {
		out[i] = f.Steps
	}
	return out
}

// Target is the median duration of the history.
func (h History) Target() float64 {
	return Median(h.Durations())
}
