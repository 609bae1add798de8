package cli

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/bastiangx/recipeserve/internal/history"
	"github.com/bastiangx/recipeserve/pkg/recipe"
	"github.com/bastiangx/recipeserve/pkg/suggest"
	"github.com/charmbracelet/log"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func testEngine(t *testing.T) *suggest.Engine {
	t.Helper()
	ing := func(id, name string) recipe.Ingredient {
		return recipe.Ingredient{ID: id, Name: recipe.LocaleStr{"en": name}, Servings: 1}
	}
	e := suggest.NewEngine(suggest.DefaultOptions())
	err := e.Rebuild(context.Background(), []*recipe.Recipe{
		{ID: "a", Name: recipe.LocaleStr{"en": "Tomato Soup"}, Duration: 20,
			Ingredients: []recipe.Ingredient{ing("tomato", "Tomato"), ing("onion", "Onion")}},
		{ID: "b", Name: recipe.LocaleStr{"en": "Apple Pie"}, Duration: 60,
			Ingredients: []recipe.Ingredient{ing("apple", "Apple")}},
	})
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	return e
}

func run(t *testing.T, opts Options, input string) string {
	t.Helper()
	var out bytes.Buffer
	opts.In = strings.NewReader(input)
	opts.Out = &out
	if err := NewInputHandler(testEngine(t), opts).Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return out.String()
}

func TestCommands(t *testing.T) {
	testCases := []struct {
		input       string
		expected    []string
		description string
	}{
		{"tomato\n", []string{"Found 1 recipes", "Tomato Soup", "[a]"}, "Default search"},
		{":f onions\n", []string{"Tomato Soup"}, "Fuzzy search"},
		{"tomatto soop\n", []string{"Tomato Soup"}, "Typos"},
		{"pizza\n", []string{"No recipes found for 'pizza'"}, "No match"},
		{":s items=tomato\n", []string{"Found 1 suggestions", "missing: ", "Onion (1.00)", "price 2.00"}, "Suggest"},
		{":s time=abc\n", []string{"Bad query"}, "Bad suggest query"},
		{":r\n", []string{"fallback: true", "Tomato Soup"}, "Recommend without history"},
		{":ls\n", []string{"Found 2 recipes", "Apple Pie"}, "List"},
		{":stats\n", []string{"Index built", "recipes", "commands"}, "Stats"},
		{":pick a\n", []string{"History store disabled"}, "Pick without store"},
		{":nope\n", []string{"Unknown command: nope"}, "Unknown command"},
		{":help", []string{"Commands:"}, "Help without trailing newline"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			out := run(t, Options{}, tc.input)
			for _, want := range tc.expected {
				if !strings.Contains(out, want) {
					t.Errorf("expected %q in output:\n%s", want, out)
				}
			}
		})
	}
}

func TestListSortedByName(t *testing.T) {
	out := run(t, Options{}, ":ls\n")
	if strings.Index(out, "Apple Pie") > strings.Index(out, "Tomato Soup") {
		t.Errorf("expected name order:\n%s", out)
	}
}

func TestPickThenRecommend(t *testing.T) {
	store, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	defer store.Close()

	out := run(t, Options{Store: store, User: "kim"}, ":pick b\n:pick zzz\n:r\n")
	for _, want := range []string{"Selected Apple Pie for kim", "Unknown recipe: zzz", "Target 60 min from 1 selections"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery("items=tomato,!red_onion tags=vegan,quick diet=vegan time=30 price=12.5 serves=2 city=Berlin")
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	expectedItems := []recipe.ItemQuery{{Name: "tomato"}, {Name: "red onion", Exclude: true}}
	if !reflect.DeepEqual(q.Items, expectedItems) {
		t.Errorf("unexpected items %+v", q.Items)
	}
	if !reflect.DeepEqual(q.Tags, []string{"vegan", "quick"}) || !reflect.DeepEqual(q.Diet, []string{"vegan"}) {
		t.Errorf("unexpected tags %v / diet %v", q.Tags, q.Diet)
	}
	if *q.Duration != 30 || *q.Price != 12.5 || *q.Servings != 2 || *q.City != "Berlin" {
		t.Errorf("unexpected numeric fields %+v", q)
	}

	if q, err := ParseQuery(""); err != nil || !reflect.DeepEqual(q, recipe.Query{}) {
		t.Errorf("expected empty query, got %+v, %v", q, err)
	}

	for _, bad := range []string{"tomato", "items=", "time=soon", "colour=red"} {
		if _, err := ParseQuery(bad); err == nil {
			t.Errorf("expected an error for %q", bad)
		}
	}
}
