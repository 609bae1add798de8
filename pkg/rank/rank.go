// Package rank orders recipes by how close they are to what a user selected before.
//
// The only signal is cooking duration. Median turns a selection history into
// a target duration; Adaptive widens a relative band around the target until
// enough recipes fall inside it; ByDistance is the plain nearest-first fallback.
package rank

import (
	"sort"

	"github.com/bastiangx/recipeserve/pkg/recipe"
	"github.com/charmbracelet/log"
)

// Options controls the band search.
type Options struct {
	Quota         int
	InitialWidth  float64
	LearningRate  float64
	MaxIterations int
}

// DefaultOptions returns quota 10, width 0.05, learning rate 0.1 and 100 iterations.
func DefaultOptions() Options {
	return Options{
		Quota:         10,
		InitialWidth:  0.05,
		LearningRate:  0.1,
		MaxIterations: 100,
	}
}

// Result is the outcome of one Adaptive run.
type Result struct {
	Selected []*recipe.Recipe
	// Width is the relative half-width of the final band.
	Width      float64
	Iterations int
	// Degenerate is set when the target is 0, which collapses the band to
	// exactly zero duration however far it widens.
	Degenerate bool
}

// Median returns the median of values, or 0 for empty input.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Adaptive selects recipes whose duration lies in [target(1-w), target(1+w)],
// widening w by the learning rate while fewer than min(quota, len(recipes))
// are selected. At most quota recipes are returned, in corpus order.
func Adaptive(recipes []*recipe.Recipe, target float64, opts Options) Result {
	opts = opts.withDefaults()
	want := min(opts.Quota, len(recipes))

	res := Result{Width: opts.InitialWidth, Degenerate: target == 0}
	if res.Degenerate {
		log.Debug("rank: target duration is 0, band cannot widen past zero")
	}

	for {
		res.Selected = inBand(recipes, target, res.Width)
		res.Iterations++
		if len(res.Selected) >= want || res.Iterations >= opts.MaxIterations {
			break
		}
		res.Width += opts.LearningRate
	}

	if len(res.Selected) > opts.Quota {
		res.Selected = res.Selected[:opts.Quota]
	}
	log.Debugf("rank: %d recipes around %.1f after %d iterations (width %.2f)",
		len(res.Selected), target, res.Iterations, res.Width)
	return res
}

func inBand(recipes []*recipe.Recipe, target, width float64) []*recipe.Recipe {
	lo, hi := target*(1-width), target*(1+width)
	if lo > hi {
		// negative targets flip the band
		lo, hi = hi, lo
	}
	out := make([]*recipe.Recipe, 0)
	for _, r := range recipes {
		if r != nil && r.Duration >= lo && r.Duration <= hi {
			out = append(out, r)
		}
	}
	return out
}

// ByDistance sorts recipes by |duration - target| ascending, keeping corpus
// order between ties, and truncates to n. The input is not modified.
func ByDistance(recipes []*recipe.Recipe, target float64, n int) []*recipe.Recipe {
	sorted := make([]*recipe.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if r != nil {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return distance(sorted[i].Duration, target) < distance(sorted[j].Duration, target)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func distance(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Quota <= 0 {
		o.Quota = d.Quota
	}
	if o.InitialWidth <= 0 {
		o.InitialWidth = d.InitialWidth
	}
	if o.LearningRate <= 0 {
		o.LearningRate = d.LearningRate
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	return o
}
