package suggest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bastiangx/recipeserve/internal/utils"
	"github.com/bastiangx/recipeserve/pkg/filter"
	"github.com/bastiangx/recipeserve/pkg/fuzzy"
	"github.com/bastiangx/recipeserve/pkg/index"
	"github.com/bastiangx/recipeserve/pkg/rank"
	"github.com/bastiangx/recipeserve/pkg/recipe"
	"github.com/charmbracelet/log"
)

// Mode selects how free-text queries are matched.
type Mode string

const (
	// ModePrefix walks the mutation-expanded prefix index over recipe names.
	ModePrefix Mode = "prefix"
	// ModeFuzzy runs the stemmed, weighted name and ingredient search.
	ModeFuzzy Mode = "fuzzy"
)

// ParseMode maps a config or request string to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModePrefix, ModeFuzzy:
		return Mode(s), true
	}
	return "", false
}

// Observer receives timing and size information from the engine.
type Observer interface {
	SearchDone(mode Mode, results int, elapsed time.Duration)
	RebuildDone(recipes, keys int, elapsed time.Duration)
	RankDone(iterations int, fallback bool)
}

type nopObserver struct{}

func (nopObserver) SearchDone(Mode, int, time.Duration)  {}
func (nopObserver) RebuildDone(int, int, time.Duration) {}
func (nopObserver) RankDone(int, bool)                  {}

// Options configures an Engine.
type Options struct {
	Mode           Mode
	Workers        int
	MaxFieldLength int
	Fuzzy          fuzzy.Options
	Rank           rank.Options
	CacheSize      int
	// Correct retries a query that found nothing with its spelling corrected.
	Correct  bool
	Filter   filter.Pipeline
	Observer Observer
}

// DefaultOptions returns prefix mode with the standard fuzzy and rank settings.
func DefaultOptions() Options {
	return Options{
		Mode:           ModePrefix,
		MaxFieldLength: 64,
		Fuzzy:          fuzzy.DefaultOptions(),
		Rank:           rank.DefaultOptions(),
		CacheSize:      1024,
		Correct:        true,
	}
}

// snapshot is everything built from one corpus. It is never mutated after
// publication, apart from its cache.
type snapshot struct {
	prefix    *index.PrefixIndex
	fields    *fuzzy.FieldIndex
	corrector *fuzzy.Corrector
	resolver  *resolver
	recipes   map[string]*recipe.Recipe
	ordered   []*recipe.Recipe
	cache     *ResultCache
	builtAt   time.Time
}

func emptySnapshot() *snapshot {
	return &snapshot{
		prefix:    index.NewPrefixIndex(),
		fields:    fuzzy.NewFieldIndex(nil, fuzzy.DefaultOptions()),
		corrector: fuzzy.NewCorrector(map[string]int{}, 0),
		resolver:  newResolver(nil, 0),
		recipes:   map[string]*recipe.Recipe{},
		cache:     NewResultCache(0),
	}
}

// Engine owns the published search state. Reads are lock-free against an
// immutable snapshot; Rebuild builds a new snapshot aside and swaps it in.
type Engine struct {
	opts     Options
	observer Observer
	snap     atomic.Pointer[snapshot]
	mu       sync.Mutex
	rebuilds atomic.Int64
	searches atomic.Int64
}

// NewEngine creates an engine with an empty corpus.
func NewEngine(opts Options) *Engine {
	if _, ok := ParseMode(string(opts.Mode)); !ok {
		opts.Mode = ModePrefix
	}
	if opts.Fuzzy == (fuzzy.Options{}) {
		opts.Fuzzy = fuzzy.DefaultOptions()
	}
	if opts.Filter == nil {
		opts.Filter = filter.Default()
	}
	e := &Engine{opts: opts, observer: opts.Observer}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	e.snap.Store(emptySnapshot())
	return e
}

// Rebuild replaces the corpus. Readers keep seeing the previous snapshot until
// the new one is complete. Nil recipes and recipes without an id are skipped;
// for duplicate ids the first one wins.
func (e *Engine) Rebuild(ctx context.Context, corpus []*recipe.Recipe) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	snap, err := e.build(ctx, corpus)
	if err != nil {
		return fmt.Errorf("rebuild engine: %w", err)
	}
	e.snap.Store(snap)
	e.rebuilds.Add(1)

	elapsed := time.Since(start)
	e.observer.RebuildDone(len(snap.ordered), snap.prefix.Len(), elapsed)
	log.Debugf("Rebuilt engine: %d recipes, %d index keys in %v", len(snap.ordered), snap.prefix.Len(), elapsed)
	return nil
}

func (e *Engine) build(ctx context.Context, corpus []*recipe.Recipe) (*snapshot, error) {
	snap := &snapshot{
		recipes: make(map[string]*recipe.Recipe, len(corpus)),
		ordered: make([]*recipe.Recipe, 0, len(corpus)),
		cache:   NewResultCache(e.opts.CacheSize),
	}
	for _, r := range corpus {
		if r == nil || r.ID == "" {
			continue
		}
		if _, dup := snap.recipes[r.ID]; dup {
			log.Warnf("duplicate recipe id %q, keeping the first", r.ID)
			continue
		}
		snap.recipes[r.ID] = r
		snap.ordered = append(snap.ordered, r)
	}

	prefixDocs := make([]index.Document, 0, len(snap.ordered))
	fieldDocs := make([]fuzzy.Document, 0, len(snap.ordered))
	for _, r := range snap.ordered {
		names := r.Names()
		prefixDocs = append(prefixDocs, index.Document{ID: r.ID, Fields: names})
		fieldDocs = append(fieldDocs, fuzzy.Document{ID: r.ID, Names: names, Ingredients: r.IngredientNames()})
	}

	prefix, err := index.Build(ctx, prefixDocs, index.BuildOptions{
		Workers:        e.opts.Workers,
		MaxFieldLength: e.opts.MaxFieldLength,
	})
	if err != nil {
		return nil, err
	}
	snap.prefix = prefix

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap.fields = fuzzy.NewFieldIndex(fieldDocs, e.opts.Fuzzy)
	snap.corrector = fuzzy.NewCorrector(snap.fields.Vocabulary(), e.opts.Fuzzy.MaxDistance)
	snap.resolver = newResolver(snap.ordered, e.opts.Fuzzy.MaxDistance)
	snap.builtAt = time.Now()
	return snap, nil
}

func (e *Engine) current() *snapshot {
	return e.snap.Load()
}

// Mode returns the configured search mode.
func (e *Engine) Mode() Mode {
	return e.opts.Mode
}

// Search matches free text with the configured mode.
func (e *Engine) Search(text string) []*recipe.Recipe {
	return e.SearchMode(text, e.opts.Mode)
}

// SearchMode matches free text with an explicit mode. Prefix results are
// ordered by id, fuzzy results by score.
func (e *Engine) SearchMode(text string, mode Mode) []*recipe.Recipe {
	return e.Lookup(text, mode).Recipes
}

// SearchResult is a search outcome with correction details.
type SearchResult struct {
	Recipes      []*recipe.Recipe
	WasCorrected bool
	Corrected    string
}

// Lookup is SearchMode that also reports whether the query had to be
// corrected before it matched.
func (e *Engine) Lookup(text string, mode Mode) SearchResult {
	snap := e.current()
	start := time.Now()
	e.searches.Add(1)

	var res SearchResult
	ids := e.searchIDs(snap, text, mode)
	if len(ids) == 0 && e.opts.Correct {
		if corrected, ok := snap.corrector.CorrectQuery(text); ok {
			log.Debugf("no results for %q, retrying as %q", text, corrected)
			ids = e.searchIDs(snap, corrected, mode)
			if len(ids) > 0 {
				res.WasCorrected, res.Corrected = true, corrected
			}
		}
	}

	res.Recipes = snap.lookup(ids)
	e.observer.SearchDone(mode, len(res.Recipes), time.Since(start))
	return res
}

// SearchIDs returns the raw prefix index ids for query.
func (e *Engine) SearchIDs(query string) []string {
	ids := e.searchIDs(e.current(), query, ModePrefix)
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func (e *Engine) searchIDs(snap *snapshot, text string, mode Mode) []string {
	if !utils.IsValidQuery(text) {
		log.Debugf("skipping query %q", text)
		return []string{}
	}

	key := string(mode) + ":" + strings.ToLower(strings.TrimSpace(text))
	if ids, ok := snap.cache.Get(key); ok {
		return ids
	}

	var ids []string
	switch mode {
	case ModeFuzzy:
		ids = snap.fields.Search(text)
	default:
		ids = snap.prefix.Search(text)
	}
	snap.cache.Put(key, ids)
	return ids
}

func (s *snapshot) lookup(ids []string) []*recipe.Recipe {
	out := make([]*recipe.Recipe, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.recipes[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Correct returns the spelling-corrected form of a query.
func (e *Engine) Correct(text string) (string, bool) {
	return e.current().corrector.CorrectQuery(text)
}

// ResolveIngredient maps a free-text ingredient name to an ingredient id.
func (e *Engine) ResolveIngredient(name string) (string, bool) {
	return e.current().resolver.resolve(name)
}

// ResolveQuery fills in the id of every item that only carries a name. Items
// that cannot be resolved keep a nil id and therefore never match.
func (e *Engine) ResolveQuery(q recipe.Query) recipe.Query {
	return e.current().resolveQuery(q)
}

func (s *snapshot) resolveQuery(q recipe.Query) recipe.Query {
	if len(q.Items) == 0 {
		return q
	}
	items := make([]recipe.ItemQuery, len(q.Items))
	copy(items, q.Items)
	for i := range items {
		if items[i].ID != nil || items[i].Name == "" {
			continue
		}
		if id, ok := s.resolver.resolve(items[i].Name); ok {
			items[i].ID = &id
		}
	}
	q.Items = items
	return q
}

// Filter returns the corpus recipes matching q, in corpus order.
func (e *Engine) Filter(q recipe.Query) []*recipe.Recipe {
	snap := e.current()
	return e.opts.Filter.Apply(snap.ordered, snap.resolveQuery(q))
}

// Suggest filters the corpus by q and assembles suggestions. When q includes
// ingredients, every other ingredient of a suggestion is listed as missing.
func (e *Engine) Suggest(q recipe.Query) []recipe.Suggestion {
	snap := e.current()
	q = snap.resolveQuery(q)
	matched := e.opts.Filter.Apply(snap.ordered, q)
	return Assembler{Pantry: QueryPantry(q)}.Assemble(matched)
}

// Recommendation is the outcome of Recommend.
type Recommendation struct {
	Suggestions []recipe.Suggestion
	Target      float64
	Rank        rank.Result
	// Fallback is set when the band search fell short and the list was
	// ordered by distance to the target instead.
	Fallback bool
}

// Recommend ranks the recipes matching q by similarity to the history. An
// empty history has target 0, which the band search cannot widen past; in
// that case, and whenever the band holds fewer recipes than the quota, the
// nearest recipes by duration are returned instead.
func (e *Engine) Recommend(h rank.History, q recipe.Query) Recommendation {
	snap := e.current()
	q = snap.resolveQuery(q)
	candidates := e.opts.Filter.Apply(snap.ordered, q)

	rec := Recommendation{Target: h.Target()}
	rec.Rank = rank.Adaptive(candidates, rec.Target, e.opts.Rank)

	quota := e.opts.Rank.Quota
	if quota <= 0 {
		quota = rank.DefaultOptions().Quota
	}
	selected := rec.Rank.Selected
	if rec.Rank.Degenerate || len(selected) < min(quota, len(candidates)) {
		rec.Fallback = true
		selected = rank.ByDistance(candidates, rec.Target, quota)
	}
	e.observer.RankDone(rec.Rank.Iterations, rec.Fallback)

	rec.Suggestions = Assembler{Pantry: QueryPantry(q)}.Assemble(selected)
	return rec
}

// History builds a history from recipe ids. Unknown ids are skipped.
func (e *Engine) History(ids []string) rank.History {
	return rank.FromRecipes(e.current().lookup(ids))
}

// Recipe returns the recipe with the given id.
func (e *Engine) Recipe(id string) (*recipe.Recipe, bool) {
	r, ok := e.current().recipes[id]
	return r, ok
}

// Recipes returns the corpus in load order.
func (e *Engine) Recipes() []*recipe.Recipe {
	snap := e.current()
	out := make([]*recipe.Recipe, len(snap.ordered))
	copy(out, snap.ordered)
	return out
}

// Stats returns counters about the current snapshot.
func (e *Engine) Stats() map[string]int {
	snap := e.current()
	stats := map[string]int{
		"recipes":      len(snap.ordered),
		"vocabulary":   len(snap.fields.Vocabulary()),
		"ingredients":  snap.resolver.len(),
		"rebuilds":     int(e.rebuilds.Load()),
		"searches":     int(e.searches.Load()),
		"fuzzyRecipes": snap.fields.Len(),
	}
	for k, v := range snap.prefix.Stats() {
		stats[k] = v
	}
	for k, v := range snap.cache.Stats() {
		stats[k] = v
	}
	return stats
}

// BuiltAt returns when the current snapshot was published, zero before the
// first Rebuild.
func (e *Engine) BuiltAt() time.Time {
	return e.current().builtAt
}

// SortByName orders recipes by their first localized name, then id.
func SortByName(recipes []*recipe.Recipe) {
	sort.SliceStable(recipes, func(i, j int) bool {
		a, b := recipes[i].Name.Get(""), recipes[j].Name.Get("")
		if a != b {
			return a < b
		}
		return recipes[i].ID < recipes[j].ID
	})
}
