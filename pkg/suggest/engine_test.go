package suggest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/bastiangx/recipeserve/pkg/rank"
	"github.com/bastiangx/recipeserve/pkg/recipe"
	"github.com/charmbracelet/log"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func ingredient(id, name string, servings float64) recipe.Ingredient {
	return recipe.Ingredient{ID: id, Name: recipe.LocaleStr{"en": name}, Servings: servings}
}

func testCorpus() []*recipe.Recipe {
	return []*recipe.Recipe{
		{
			ID:       "a",
			Name:     recipe.LocaleStr{"en": "Tomato Soup"},
			Duration: 20,
			Tags:     []string{"vegetarian", "vegan"},
			Ingredients: []recipe.Ingredient{
				ingredient("tomato", "Tomato", 3),
				ingredient("onion", "Onion", 1),
			},
		},
		{
			ID:       "b",
			Name:     recipe.LocaleStr{"en": "Tomato Pasta"},
			Duration: 25,
			Tags:     []string{"vegetarian"},
			Ingredients: []recipe.Ingredient{
				ingredient("tomato", "Tomato", 2),
				ingredient("pasta", "Pasta", 2),
				ingredient("basil", "Basil", 1),
			},
		},
		{
			ID:       "c",
			Name:     recipe.LocaleStr{"en": "Green Salad"},
			Duration: 10,
			Tags:     []string{"vegan"},
			Ingredients: []recipe.Ingredient{
				ingredient("lettuce", "Lettuce", 1),
				ingredient("cucumber", "Cucumber", 1),
				ingredient("olive-oil", "Olive Oil", 0.5),
			},
		},
	}
}

func newTestEngine(t testing.TB, opts Options) *Engine {
	t.Helper()
	e := NewEngine(opts)
	if err := e.Rebuild(context.Background(), testCorpus()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	return e
}

func recipeIDs(rs []*recipe.Recipe) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func suggestionIDs(ss []recipe.Suggestion) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Recipe.ID
	}
	return out
}

func TestEngineSearch(t *testing.T) {
	e := newTestEngine(t, DefaultOptions())

	testCases := []struct {
		query       string
		mode        Mode
		expected    []string
		description string
	}{
		{"tomato", ModePrefix, []string{"a", "b"}, "Exact word"},
		{"tomatto", ModePrefix, []string{"a", "b"}, "Typo covered by mutations"},
		{"Tomato Pa", ModePrefix, []string{"b"}, "Whole name prefix"},
		{"grene salda", ModePrefix, []string{"c"}, "Two typos fixed by correction"},
		{"pizza", ModePrefix, []string{}, "No match"},
		{"", ModePrefix, []string{}, "Empty query"},
		{"1234", ModePrefix, []string{}, "Number that names nothing"},
		{"tomatoes basil", ModeFuzzy, []string{"b"}, "Fuzzy terms intersected"},
		{"onions", ModeFuzzy, []string{"a"}, "Fuzzy ingredient"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			got := recipeIDs(e.SearchMode(tc.query, tc.mode))
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("SearchMode(%q, %s): expected %v, got %v", tc.query, tc.mode, tc.expected, got)
			}
		})
	}
}

func TestEngineSearchWithoutCorrection(t *testing.T) {
	opts := DefaultOptions()
	opts.Correct = false
	e := newTestEngine(t, opts)
	if got := e.Search("grene salda"); len(got) != 0 {
		t.Errorf("expected no results without correction, got %v", recipeIDs(got))
	}
}

func TestEngineLookupReportsCorrection(t *testing.T) {
	e := newTestEngine(t, DefaultOptions())

	res := e.Lookup("grene salda", ModePrefix)
	if !res.WasCorrected || res.Corrected != "green salad" {
		t.Errorf("expected correction to %q, got %+v", "green salad", res)
	}
	if got := recipeIDs(res.Recipes); !reflect.DeepEqual(got, []string{"c"}) {
		t.Errorf("expected [c], got %v", got)
	}

	if res := e.Lookup("tomato", ModePrefix); res.WasCorrected {
		t.Errorf("direct match reported as corrected: %+v", res)
	}
}

func TestEngineSearchIDs(t *testing.T) {
	e := newTestEngine(t, DefaultOptions())
	if got := e.SearchIDs("psta"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("expected [b], got %v", got)
	}
}

func TestEngineBeforeRebuild(t *testing.T) {
	e := NewEngine(DefaultOptions())
	if got := e.Search("tomato"); len(got) != 0 {
		t.Errorf("expected empty results, got %v", got)
	}
	if got := e.Suggest(recipe.Query{}); len(got) != 0 {
		t.Errorf("expected no suggestions, got %v", got)
	}
	rec := e.Recommend(nil, recipe.Query{})
	if len(rec.Suggestions) != 0 {
		t.Errorf("expected no recommendations, got %v", rec.Suggestions)
	}
	if !e.BuiltAt().IsZero() {
		t.Errorf("expected zero build time")
	}
}

func TestEngineSuggest(t *testing.T) {
	e := newTestEngine(t, DefaultOptions())

	t.Run("Exclude by name", func(t *testing.T) {
		q := recipe.Query{Items: []recipe.ItemQuery{{Name: "Onion", Exclude: true}}}
		got := e.Suggest(q)
		if ids := suggestionIDs(got); !reflect.DeepEqual(ids, []string{"b", "c"}) {
			t.Errorf("expected [b c], got %v", ids)
		}
		for _, s := range got {
			if s.MissingIngredients == nil || len(s.MissingIngredients) != 0 {
				t.Errorf("expected empty missing list for %s, got %v", s.Recipe.ID, s.MissingIngredients)
			}
		}
	})

	t.Run("Missing ingredients", func(t *testing.T) {
		got := e.Suggest(recipe.Query{Items: []recipe.ItemQuery{recipe.Include("tomato")}})
		if ids := suggestionIDs(got); !reflect.DeepEqual(ids, []string{"a", "b"}) {
			t.Fatalf("expected [a b], got %v", ids)
		}
		var missing []string
		for _, m := range got[1].MissingIngredients {
			missing = append(missing, m.Ingredient.ID)
		}
		if !reflect.DeepEqual(missing, []string{"pasta", "basil"}) {
			t.Errorf("expected pasta and basil missing, got %v", missing)
		}
		if p := got[1].MissingIngredients[0].Price; p == nil || *p != 2 {
			t.Errorf("expected pasta price 2, got %v", p)
		}
		if got[0].RecipePrice != 4 {
			t.Errorf("expected soup price 4, got %v", got[0].RecipePrice)
		}
	})

	t.Run("Unresolvable name", func(t *testing.T) {
		got := e.Suggest(recipe.Query{Items: []recipe.ItemQuery{{Name: "unicorn"}}})
		if len(got) != 0 {
			t.Errorf("expected nothing, got %v", suggestionIDs(got))
		}
	})

	t.Run("Tags and duration", func(t *testing.T) {
		got := e.Suggest(recipe.Query{Tags: []string{"vegan"}, Duration: recipe.Float(15)})
		if ids := suggestionIDs(got); !reflect.DeepEqual(ids, []string{"c"}) {
			t.Errorf("expected [c], got %v", ids)
		}
	})
}

func TestResolveIngredient(t *testing.T) {
	e := newTestEngine(t, DefaultOptions())

	testCases := []struct {
		name        string
		expected    string
		found       bool
		description string
	}{
		{"Tomato", "tomato", true, "Exact, any case"},
		{"  basil ", "basil", true, "Trimmed"},
		{"cucu", "cucumber", true, "Word prefix"},
		{"umber", "", false, "Letters inside a word"},
		{"olive", "olive-oil", true, "Multi-word name"},
		{"tomatos", "tomato", true, "Edit distance correction"},
		{"xyz", "", false, "Unknown"},
		{"", "", false, "Empty"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			id, ok := e.ResolveIngredient(tc.name)
			if id != tc.expected || ok != tc.found {
				t.Errorf("ResolveIngredient(%q): expected (%q, %v), got (%q, %v)", tc.name, tc.expected, tc.found, id, ok)
			}
		})
	}
}

func TestUnknownIngredientNeverMatches(t *testing.T) {
	e := NewEngine(DefaultOptions())
	err := e.Rebuild(context.Background(), []*recipe.Recipe{
		{ID: "r1", Name: recipe.LocaleStr{"en": "Mushroom Risotto"}, Duration: 30,
			Ingredients: []recipe.Ingredient{ingredient("champ", "Champignons", 1)}},
		{ID: "r2", Name: recipe.LocaleStr{"en": "Plain Rice"}, Duration: 15,
			Ingredients: []recipe.Ingredient{ingredient("rice", "Rice", 1)}},
	})
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	if id, ok := e.ResolveIngredient("ham"); ok {
		t.Errorf("expected ham to stay unresolved, got %q", id)
	}
	if id, ok := e.ResolveIngredient("champ"); !ok || id != "champ" {
		t.Errorf("expected word prefix to resolve, got (%q, %v)", id, ok)
	}

	testCases := []struct {
		item        recipe.ItemQuery
		expected    []string
		description string
	}{
		{recipe.ItemQuery{Name: "ham"}, []string{}, "Included unknown ingredient matches nothing"},
		{recipe.ItemQuery{Name: "ham", Exclude: true}, []string{"r1", "r2"}, "Excluded unknown ingredient drops nothing"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			got := recipeIDs(e.Filter(recipe.Query{Items: []recipe.ItemQuery{tc.item}}))
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestEngineSearchDigitsAndRepeats(t *testing.T) {
	e := NewEngine(DefaultOptions())
	err := e.Rebuild(context.Background(), []*recipe.Recipe{
		{ID: "dip", Name: recipe.LocaleStr{"en": "7 Layer Dip"}, Duration: 15},
		{ID: "zzz", Name: recipe.LocaleStr{"en": "Zzz"}, Duration: 5},
	})
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	for query, want := range map[string][]string{"7": {"dip"}, "7 layer": {"dip"}, "zzz": {"zzz"}} {
		if got := recipeIDs(e.SearchMode(query, ModePrefix)); !reflect.DeepEqual(got, want) {
			t.Errorf("SearchMode(%q): expected %v, got %v", query, want, got)
		}
	}
}

func TestEngineRecommend(t *testing.T) {
	opts := DefaultOptions()
	opts.Rank.Quota = 1
	e := newTestEngine(t, opts)

	t.Run("Median of history", func(t *testing.T) {
		h := rank.History{{Duration: 20}, {Duration: 20}, {Duration: 30}}
		rec := e.Recommend(h, recipe.Query{})
		if ids := suggestionIDs(rec.Suggestions); !reflect.DeepEqual(ids, []string{"a"}) {
			t.Errorf("expected [a], got %v", ids)
		}
		if rec.Target != 20 || rec.Fallback || rec.Rank.Iterations != 1 {
			t.Errorf("unexpected recommendation %+v", rec)
		}
	})

	t.Run("Empty history", func(t *testing.T) {
		rec := e.Recommend(nil, recipe.Query{})
		if !rec.Rank.Degenerate || !rec.Fallback {
			t.Errorf("expected degenerate fallback, got %+v", rec.Rank)
		}
		if ids := suggestionIDs(rec.Suggestions); !reflect.DeepEqual(ids, []string{"c"}) {
			t.Errorf("expected the quickest recipe, got %v", ids)
		}
	})

	t.Run("History from ids", func(t *testing.T) {
		h := e.History([]string{"b", "missing", "b"})
		if len(h) != 2 || h.Target() != 25 {
			t.Fatalf("unexpected history %+v", h)
		}
		rec := e.Recommend(h, recipe.Query{})
		if ids := suggestionIDs(rec.Suggestions); !reflect.DeepEqual(ids, []string{"b"}) {
			t.Errorf("expected [b], got %v", ids)
		}
	})
}

func TestEngineRecommendWidens(t *testing.T) {
	opts := DefaultOptions()
	opts.Rank.Quota = 3
	e := newTestEngine(t, opts)

	rec := e.Recommend(rank.History{{Duration: 20}}, recipe.Query{})
	if rec.Fallback {
		t.Errorf("band search should reach the quota")
	}
	if ids := suggestionIDs(rec.Suggestions); !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Errorf("expected corpus order, got %v", ids)
	}
	if rec.Rank.Width <= opts.Rank.InitialWidth {
		t.Errorf("expected widened band, got %v", rec.Rank.Width)
	}
}

func TestRebuildCancelledKeepsSnapshot(t *testing.T) {
	e := newTestEngine(t, DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Rebuild(ctx, []*recipe.Recipe{{ID: "z", Name: recipe.LocaleStr{"en": "Pizza"}}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := recipeIDs(e.Search("tomato")); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("old snapshot lost, got %v", got)
	}
	if e.Stats()["rebuilds"] != 1 {
		t.Errorf("failed rebuild counted")
	}
}

func TestRebuildSkipsInvalid(t *testing.T) {
	e := NewEngine(DefaultOptions())
	corpus := append(testCorpus(), nil,
		&recipe.Recipe{Name: recipe.LocaleStr{"en": "No ID"}},
		&recipe.Recipe{ID: "a", Name: recipe.LocaleStr{"en": "Duplicate"}},
	)
	if err := e.Rebuild(context.Background(), corpus); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if n := len(e.Recipes()); n != 3 {
		t.Errorf("expected 3 recipes, got %d", n)
	}
	if r, ok := e.Recipe("a"); !ok || r.Name.Get("en") != "Tomato Soup" {
		t.Errorf("expected first recipe with id a to win")
	}
	if got := e.Search("duplicate"); len(got) != 0 {
		t.Errorf("duplicate indexed: %v", recipeIDs(got))
	}
}

// Readers running during rebuilds must see one corpus or the other, never a mix.
func TestConcurrentRebuild(t *testing.T) {
	first := testCorpus()
	second := []*recipe.Recipe{
		{ID: "x", Name: recipe.LocaleStr{"en": "Tomato Tart"}},
		{ID: "y", Name: recipe.LocaleStr{"en": "Tomato Salsa"}},
	}
	e := NewEngine(DefaultOptions())
	if err := e.Rebuild(context.Background(), first); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 16)

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				got := recipeIDs(e.Search("tomato"))
				if !reflect.DeepEqual(got, []string{"a", "b"}) && !reflect.DeepEqual(got, []string{"x", "y"}) {
					select {
					case errs <- fmt.Sprint(got):
					default:
					}
					return
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		corpus := first
		if i%2 == 0 {
			corpus = second
		}
		if err := e.Rebuild(context.Background(), corpus); err != nil {
			t.Fatalf("Rebuild: %v", err)
		}
	}
	close(stop)
	wg.Wait()
	close(errs)

	for got := range errs {
		t.Errorf("reader observed a mixed snapshot: %s", got)
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	searches int
	rebuilds int
	ranks    int
}

func (r *recordingObserver) SearchDone(Mode, int, time.Duration) {
	r.mu.Lock()
	r.searches++
	r.mu.Unlock()
}

func (r *recordingObserver) RebuildDone(int, int, time.Duration) {
	r.mu.Lock()
	r.rebuilds++
	r.mu.Unlock()
}

func (r *recordingObserver) RankDone(int, bool) {
	r.mu.Lock()
	r.ranks++
	r.mu.Unlock()
}

func TestEngineObserverAndStats(t *testing.T) {
	obs := &recordingObserver{}
	opts := DefaultOptions()
	opts.Observer = obs
	e := newTestEngine(t, opts)

	e.Search("tomato")
	e.Search("tomato")
	e.Recommend(nil, recipe.Query{})

	if obs.rebuilds != 1 || obs.searches != 2 || obs.ranks != 1 {
		t.Errorf("unexpected observer counts %+v", obs)
	}

	stats := e.Stats()
	if stats["recipes"] != 3 {
		t.Errorf("expected 3 recipes, got %d", stats["recipes"])
	}
	if stats["cacheHits"] < 1 {
		t.Errorf("expected a cache hit, got %v", stats)
	}
	if stats["indexKeys"] == 0 || stats["ingredients"] != 7 {
		t.Errorf("unexpected stats %v", stats)
	}
}

func TestAssemble(t *testing.T) {
	got := Assemble(testCorpus())
	if len(got) != 3 {
		t.Fatalf("expected 3 suggestions, got %d", len(got))
	}
	prices := []float64{4, 5, 2}
	for i, s := range got {
		if s.RecipePrice != prices[i] {
			t.Errorf("%s: expected price %v, got %v", s.Recipe.ID, prices[i], s.RecipePrice)
		}
		if s.MissingIngredients == nil || len(s.MissingIngredients) != 0 {
			t.Errorf("%s: expected empty missing list", s.Recipe.ID)
		}
	}
	if got := Assemble(nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result")
	}
}

func TestQueryPantry(t *testing.T) {
	if QueryPantry(recipe.Query{Items: []recipe.ItemQuery{recipe.Exclude("onion")}}) != nil {
		t.Errorf("excluded items are not in the pantry")
	}
	p := QueryPantry(recipe.Query{Items: []recipe.ItemQuery{recipe.Include("tomato"), {Name: "basil"}}})
	if p == nil || !p.Has("tomato") || p.Has("basil") {
		t.Errorf("unexpected pantry %v", p)
	}
}

func TestResultCacheEviction(t *testing.T) {
	rc := NewResultCache(2)
	rc.Put("a", []string{"1"})
	rc.Put("b", []string{"2"})
	rc.Get("a")
	rc.Put("c", []string{"3"})

	if _, ok := rc.Get("b"); ok {
		t.Errorf("least recently used entry not evicted")
	}
	if ids, ok := rc.Get("a"); !ok || ids[0] != "1" {
		t.Errorf("recently used entry evicted")
	}
	if stats := rc.Stats(); stats["cacheEntries"] != 2 {
		t.Errorf("unexpected stats %v", stats)
	}

	disabled := NewResultCache(0)
	disabled.Put("a", []string{"1"})
	if _, ok := disabled.Get("a"); ok {
		t.Errorf("disabled cache stored an entry")
	}
}

func TestParseMode(t *testing.T) {
	if m, ok := ParseMode("fuzzy"); !ok || m != ModeFuzzy {
		t.Errorf("fuzzy not parsed")
	}
	if _, ok := ParseMode("regex"); ok {
		t.Errorf("unknown mode accepted")
	}
	if NewEngine(Options{Mode: "regex"}).Mode() != ModePrefix {
		t.Errorf("unknown mode should fall back to prefix")
	}
}

func BenchmarkEngineSearch(b *testing.B) {
	corpus := make([]*recipe.Recipe, 0, 500)
	for i := 0; i < 500; i++ {
		corpus = append(corpus, &recipe.Recipe{
			ID:       fmt.Sprintf("r%d", i),
			Name:     recipe.LocaleStr{"en": fmt.Sprintf("Roasted Vegetable Dish %d", i)},
			Duration: float64(10 + i%60),
		})
	}
	opts := DefaultOptions()
	opts.CacheSize = 0
	e := NewEngine(opts)
	if err := e.Rebuild(context.Background(), corpus); err != nil {
		b.Fatal(err)
	}
	queries := []string{"roast", "roasetd", "vegetable dish 4", "dihs"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Search(queries[i%len(queries)])
	}
}
