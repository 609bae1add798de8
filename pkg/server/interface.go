/*
Package server implements msgpack IPC for recipe search and suggestions.

The server reads msgpack messages from stdin and writes one msgpack response per
request to stdout. Every request carries an id and an op; the remaining fields
depend on the op. Requests without an id get a generated one, echoed back in the
response.

# IPC

Free-text search, with an optional mode ("prefix" or "fuzzy") and limit:

	{"id": "req_001", "op": "search", "q": "tomatto", "m": "prefix", "l": 5}

	{"id": "req_001", "r": [{"id": "a", "n": "Tomato Soup", "r": 1}], "c": 1, "t": 145}

Structured suggestions filter the corpus. Ingredients may be given by id or by
name; names are resolved against the corpus ingredients:

	{"id": "req_002", "op": "suggest", "query": {"items": [{"name": "tomato"}], "duration": 30}}

Recommendations rank by similarity to the user's stored selections, or to an
explicit list of recipe ids:

	{"id": "req_003", "op": "recommend", "user": "kim", "query": {"tags": ["vegan"]}}
	{"id": "req_004", "op": "recommend", "history": ["a", "b"]}

Selections are recorded with:

	{"id": "req_005", "op": "select", "user": "kim", "recipe": "a"}

The remaining ops are "reload" (reread the corpus and rebuild), "forget"
(drop a user's history), "stats" and "health".

# Message Types

SearchResponse, SuggestResponse and RecommendResponse carry results together
with the time taken in microseconds. StatusResponse answers the management ops.
Failures are reported with ErrorResponse, whose code follows HTTP conventions.
*/
package server

import "github.com/bastiangx/recipeserve/pkg/recipe"

// Request is the envelope of every IPC message.
type Request struct {
	ID       string        `msgpack:"id"`
	Op       string        `msgpack:"op"`
	Text     string        `msgpack:"q,omitempty"`
	Mode     string        `msgpack:"m,omitempty"`
	Limit    int           `msgpack:"l,omitempty"`
	Query    *recipe.Query `msgpack:"query,omitempty"`
	User     string        `msgpack:"user,omitempty"`
	RecipeID string        `msgpack:"recipe,omitempty"`
	History  []string      `msgpack:"history,omitempty"`
}

// SearchHit is a minimal search result.
type SearchHit struct {
	ID   string `msgpack:"id"`
	Name string `msgpack:"n"`
	Rank uint16 `msgpack:"r"`
}

// SearchResponse answers a search request.
type SearchResponse struct {
	ID        string      `msgpack:"id"`
	Results   []SearchHit `msgpack:"r"`
	Count     int         `msgpack:"c"`
	TimeTaken int64       `msgpack:"t"`
	Corrected string      `msgpack:"fix,omitempty"`
}

// SuggestResponse answers a suggest request.
type SuggestResponse struct {
	ID          string              `msgpack:"id"`
	Suggestions []recipe.Suggestion `msgpack:"s"`
	Count       int                 `msgpack:"c"`
	TimeTaken   int64               `msgpack:"t"`
}

// RecommendResponse answers a recommend request.
type RecommendResponse struct {
	ID          string              `msgpack:"id"`
	Suggestions []recipe.Suggestion `msgpack:"s"`
	Count       int                 `msgpack:"c"`
	Target      float64             `msgpack:"target"`
	Width       float64             `msgpack:"width"`
	Iterations  int                 `msgpack:"iterations"`
	Fallback    bool                `msgpack:"fallback,omitempty"`
	TimeTaken   int64               `msgpack:"t"`
}

// StatusResponse answers select, reload, forget, stats and health.
type StatusResponse struct {
	ID     string         `msgpack:"id"`
	Status string         `msgpack:"status"`
	Stats  map[string]int `msgpack:"stats,omitempty"`
}

// ErrorResponse holds basic error information for a failed request.
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
