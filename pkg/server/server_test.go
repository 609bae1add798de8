package server

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bastiangx/recipeserve/internal/history"
	"github.com/bastiangx/recipeserve/pkg/config"
	"github.com/bastiangx/recipeserve/pkg/recipe"
	"github.com/bastiangx/recipeserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func ingredient(id, name string) recipe.Ingredient {
	return recipe.Ingredient{ID: id, Name: recipe.LocaleStr{"en": name}, Servings: 1}
}

func testCorpus() []*recipe.Recipe {
	return []*recipe.Recipe{
		{ID: "a", Name: recipe.LocaleStr{"en": "Tomato Soup"}, Duration: 20, Tags: []string{"vegan"},
			Ingredients: []recipe.Ingredient{ingredient("tomato", "Tomato"), ingredient("onion", "Onion")}},
		{ID: "b", Name: recipe.LocaleStr{"en": "Tomato Pasta"}, Duration: 25,
			Ingredients: []recipe.Ingredient{ingredient("tomato", "Tomato"), ingredient("pasta", "Pasta")}},
		{ID: "c", Name: recipe.LocaleStr{"en": "Green Salad"}, Duration: 10, Tags: []string{"vegan"},
			Ingredients: []recipe.Ingredient{ingredient("lettuce", "Lettuce")}},
	}
}

type countingObserver struct {
	ok, failed, selected int
}

func (c *countingObserver) RequestDone(_ string, ok bool, _ time.Duration) {
	if ok {
		c.ok++
	} else {
		c.failed++
	}
}

func (c *countingObserver) Selected() { c.selected++ }

// roundTrip runs a server over the encoded requests and returns the raw
// responses, without the ready message.
func roundTrip(t *testing.T, opts []Option, requests ...any) []msgpack.RawMessage {
	t.Helper()
	engine := suggest.NewEngine(suggest.DefaultOptions())
	if err := engine.Rebuild(context.Background(), testCorpus()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	var in, out bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	for _, r := range requests {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}

	srv := NewServer(engine, config.DefaultConfig(), append(opts, WithIO(&in, &out))...)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	dec := msgpack.NewDecoder(&out)
	var ready StatusResponse
	if err := dec.Decode(&ready); err != nil || ready.Status != "ready" {
		t.Fatalf("expected ready message, got %+v (%v)", ready, err)
	}
	var responses []msgpack.RawMessage
	for {
		raw, err := dec.DecodeRaw()
		if err != nil {
			break
		}
		responses = append(responses, raw)
	}
	if len(responses) != len(requests) {
		t.Fatalf("expected %d responses, got %d", len(requests), len(responses))
	}
	return responses
}

func decode[T any](t *testing.T, raw msgpack.RawMessage) T {
	t.Helper()
	var v T
	if err := msgpack.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestSearch(t *testing.T) {
	testCases := []struct {
		request     Request
		expected    []string
		corrected   string
		description string
	}{
		{Request{ID: "1", Op: "search", Text: "tomatto"}, []string{"a", "b"}, "", "Prefix with typo"},
		{Request{ID: "2", Op: "search", Text: "tomato", Limit: 1}, []string{"a"}, "", "Limit"},
		{Request{ID: "3", Op: "search", Text: "grene salda"}, []string{"c"}, "green salad", "Corrected"},
		{Request{ID: "4", Op: "search", Text: "onions", Mode: "fuzzy"}, []string{"a"}, "", "Fuzzy mode"},
		{Request{ID: "5", Op: "search", Text: "pizza"}, []string{}, "", "No match"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			resp := decode[SearchResponse](t, roundTrip(t, nil, tc.request)[0])
			if resp.ID != tc.request.ID || resp.Count != len(tc.expected) || resp.Corrected != tc.corrected {
				t.Fatalf("unexpected response %+v", resp)
			}
			for i, hit := range resp.Results {
				if hit.ID != tc.expected[i] || hit.Rank != uint16(i+1) {
					t.Errorf("hit %d: expected %s rank %d, got %+v", i, tc.expected[i], i+1, hit)
				}
			}
		})
	}
}

func TestRequestErrors(t *testing.T) {
	testCases := []struct {
		request     any
		code        int
		description string
	}{
		{Request{ID: "1", Op: "search"}, 400, "Missing query"},
		{Request{ID: "2", Op: "search", Text: "tomato", Mode: "regex"}, 400, "Unknown mode"},
		{Request{ID: "3", Op: "explode"}, 400, "Unknown op"},
		{Request{ID: "4"}, 400, "Missing op"},
		{Request{ID: "5", Op: "select", RecipeID: "a"}, 503, "No history store"},
		{Request{ID: "6", Op: "reload"}, 503, "No loader"},
		{"not a request", 400, "Not a map"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			resp := decode[ErrorResponse](t, roundTrip(t, nil, tc.request)[0])
			if resp.Code != tc.code || resp.Error == "" {
				t.Errorf("expected code %d, got %+v", tc.code, resp)
			}
		})
	}
}

func TestGeneratedID(t *testing.T) {
	resp := decode[StatusResponse](t, roundTrip(t, nil, Request{Op: "health"})[0])
	if len(resp.ID) != 36 || resp.Status != "ok" {
		t.Errorf("expected a generated uuid, got %+v", resp)
	}
}

func TestSuggest(t *testing.T) {
	req := Request{ID: "s", Op: "suggest", Query: &recipe.Query{
		Items:    []recipe.ItemQuery{{Name: "Tomato"}},
		Duration: recipe.Float(22),
	}}
	resp := decode[SuggestResponse](t, roundTrip(t, nil, req)[0])
	if resp.Count != 1 || resp.Suggestions[0].Recipe.ID != "a" {
		t.Fatalf("expected only a, got %+v", resp)
	}
	missing := resp.Suggestions[0].MissingIngredients
	if len(missing) != 1 || missing[0].Ingredient.ID != "onion" {
		t.Errorf("expected onion missing, got %+v", missing)
	}
}

func TestSelectAndRecommend(t *testing.T) {
	store, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	defer store.Close()
	obs := &countingObserver{}

	responses := roundTrip(t, []Option{WithHistory(store), WithObserver(obs)},
		Request{ID: "1", Op: "select", User: "kim", RecipeID: "a"},
		Request{ID: "2", Op: "select", User: "kim", RecipeID: "zzz"},
		Request{ID: "3", Op: "recommend", User: "kim"},
		Request{ID: "4", Op: "recommend", User: "nobody"},
		Request{ID: "5", Op: "forget", User: "kim"},
	)

	if resp := decode[StatusResponse](t, responses[0]); resp.Status != "ok" {
		t.Errorf("select failed: %+v", resp)
	}
	if resp := decode[ErrorResponse](t, responses[1]); resp.Code != 404 {
		t.Errorf("expected 404 for unknown recipe, got %+v", resp)
	}

	rec := decode[RecommendResponse](t, responses[2])
	if rec.Target != 20 || rec.Fallback || rec.Count != 3 || rec.Iterations != 6 {
		t.Errorf("unexpected recommendation %+v", rec)
	}

	empty := decode[RecommendResponse](t, responses[3])
	if !empty.Fallback || empty.Count != 3 || empty.Suggestions[0].Recipe.ID != "c" {
		t.Errorf("expected distance fallback starting with c, got %+v", empty)
	}

	if resp := decode[StatusResponse](t, responses[4]); resp.Stats["removed"] != 1 {
		t.Errorf("expected one removed selection, got %+v", resp)
	}

	if obs.ok != 4 || obs.failed != 1 || obs.selected != 1 {
		t.Errorf("unexpected observer counts %+v", obs)
	}
}

func TestRecommendExplicitHistory(t *testing.T) {
	req := Request{ID: "r", Op: "recommend", History: []string{"b"}, Limit: 1}
	resp := decode[RecommendResponse](t, roundTrip(t, nil, req)[0])
	if resp.Target != 25 || resp.Count != 1 {
		t.Errorf("unexpected recommendation %+v", resp)
	}
}

func TestReload(t *testing.T) {
	loaded := false
	loader := func(context.Context) ([]*recipe.Recipe, error) {
		if loaded {
			return nil, errors.New("corpus gone")
		}
		loaded = true
		return testCorpus()[:1], nil
	}

	responses := roundTrip(t, []Option{WithLoader(loader)},
		Request{ID: "1", Op: "reload"},
		Request{ID: "2", Op: "stats"},
		Request{ID: "3", Op: "reload"},
		Request{ID: "4", Op: "search", Text: "tomato"},
	)

	if resp := decode[StatusResponse](t, responses[0]); resp.Stats["recipes"] != 1 {
		t.Errorf("expected 1 recipe after reload, got %+v", resp)
	}
	if resp := decode[StatusResponse](t, responses[1]); resp.Stats["recipes"] != 1 || resp.Stats["requests"] != 2 {
		t.Errorf("unexpected stats %+v", resp.Stats)
	}
	if resp := decode[ErrorResponse](t, responses[2]); resp.Code != 500 {
		t.Errorf("expected failed reload, got %+v", resp)
	}
	// a failed reload keeps the previous corpus
	if resp := decode[SearchResponse](t, responses[3]); resp.Count != 1 {
		t.Errorf("expected 1 hit, got %+v", resp)
	}
}

func BenchmarkSearchRequest(b *testing.B) {
	engine := suggest.NewEngine(suggest.DefaultOptions())
	engine.Rebuild(context.Background(), testCorpus())
	srv := NewServer(engine, config.DefaultConfig())
	raw, _ := msgpack.Marshal(Request{ID: "b", Op: "search", Text: "tomato"})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		srv.handle(context.Background(), raw)
	}
}
