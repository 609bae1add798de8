// Package cli is an interactive prompt over the engine, for debugging searches,
// filters and recommendations in real time.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/recipeserve/internal/logger"
	"github.com/bastiangx/recipeserve/pkg/rank"
	"github.com/bastiangx/recipeserve/pkg/recipe"
	"github.com/bastiangx/recipeserve/pkg/suggest"
	"github.com/charmbracelet/log"
)

// HistoryStore is the part of the selection history the prompt needs.
type HistoryStore interface {
	Record(ctx context.Context, user string, r *recipe.Recipe) error
	Load(ctx context.Context, user string, limit int) (rank.History, error)
}

// Options configures an InputHandler.
type Options struct {
	Limit  int
	Mode   suggest.Mode
	User   string
	MinLen int
	MaxLen int
	Store  HistoryStore
	In     io.Reader
	Out    io.Writer
}

// InputHandler reads commands from stdin and prints results.
type InputHandler struct {
	engine       *suggest.Engine
	opts         Options
	out          *log.Logger
	requestCount int
}

// NewInputHandler creates a prompt over engine.
func NewInputHandler(engine *suggest.Engine, opts Options) *InputHandler {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Limit < 1 {
		opts.Limit = 10
	}
	if _, ok := suggest.ParseMode(string(opts.Mode)); !ok {
		opts.Mode = engine.Mode()
	}
	return &InputHandler{
		engine: engine,
		opts:   opts,
		out:    logger.Console(opts.Out, ""),
	}
}

// Start runs the prompt loop until the input ends.
func (h *InputHandler) Start(ctx context.Context) error {
	h.out.Print("RecipeServe CLI [BETA]")
	h.out.Print("type a recipe name and press Enter, :help lists the commands (Ctrl+C to exit):")
	reader := bufio.NewReader(h.opts.In)

	for {
		h.out.Print("> ")
		line, err := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			h.handleInput(ctx, line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// handleInput dispatches one line: a command starting with ':' or a search.
func (h *InputHandler) handleInput(ctx context.Context, line string) {
	h.requestCount++
	if !strings.HasPrefix(line, ":") {
		h.search(line, h.opts.Mode)
		return
	}

	cmd, args, _ := strings.Cut(line[1:], " ")
	args = strings.TrimSpace(args)
	switch cmd {
	case "p", "prefix":
		h.search(args, suggest.ModePrefix)
	case "f", "fuzzy":
		h.search(args, suggest.ModeFuzzy)
	case "s", "suggest":
		q, err := ParseQuery(args)
		if err != nil {
			h.out.Errorf("Bad query: %v", err)
			return
		}
		h.suggest(q)
	case "r", "recommend":
		q, err := ParseQuery(args)
		if err != nil {
			h.out.Errorf("Bad query: %v", err)
			return
		}
		h.recommend(ctx, q)
	case "pick":
		h.pick(ctx, args)
	case "ls", "list":
		h.list()
	case "stats":
		h.printStats(h.engine.Stats(), h.engine.BuiltAt())
	case "h", "help":
		h.printHelp()
	default:
		h.out.Errorf("Unknown command: %s", cmd)
	}
}

func (h *InputHandler) search(text string, mode suggest.Mode) {
	n := utf8.RuneCountInString(text)
	if n < h.opts.MinLen {
		h.out.Errorf("Query too short: %s", text)
		return
	}
	if h.opts.MaxLen > 0 && n > h.opts.MaxLen {
		h.out.Errorf("Query too long: %s", text)
		return
	}

	start := time.Now()
	res := h.engine.Lookup(text, mode)
	log.Debugf("Took [ %v ] for %s query '%s'", time.Since(start), mode, text)

	if len(res.Recipes) == 0 {
		h.out.Warnf("No recipes found for '%s'", text)
		return
	}
	if res.WasCorrected {
		h.out.Printf("Showing results for '%s'", res.Corrected)
	}
	h.printRecipes(res.Recipes, h.opts.Limit)
}

func (h *InputHandler) suggest(q recipe.Query) {
	suggestions := h.engine.Suggest(q)
	if len(suggestions) == 0 {
		h.out.Warn("No recipes match the query")
		return
	}
	h.printSuggestions(suggestions, h.opts.Limit)
}

func (h *InputHandler) recommend(ctx context.Context, q recipe.Query) {
	var hist rank.History
	if h.opts.Store != nil {
		var err error
		if hist, err = h.opts.Store.Load(ctx, h.opts.User, 0); err != nil {
			h.out.Errorf("Loading history: %v", err)
			return
		}
	}
	rec := h.engine.Recommend(hist, q)
	h.out.Printf("Target %.0f min from %d selections, %d iterations (fallback: %t)",
		rec.Target, len(hist), rec.Rank.Iterations, rec.Fallback)
	if len(rec.Suggestions) == 0 {
		h.out.Warn("Nothing to recommend")
		return
	}
	h.printSuggestions(rec.Suggestions, h.opts.Limit)
}

func (h *InputHandler) pick(ctx context.Context, id string) {
	if h.opts.Store == nil {
		h.out.Error("History store disabled")
		return
	}
	r, ok := h.engine.Recipe(id)
	if !ok {
		h.out.Errorf("Unknown recipe: %s", id)
		return
	}
	if err := h.opts.Store.Record(ctx, h.opts.User, r); err != nil {
		h.out.Errorf("Recording selection: %v", err)
		return
	}
	h.out.Printf("Selected %s for %s", r.Name.Get(""), h.opts.User)
}

func (h *InputHandler) list() {
	recipes := h.engine.Recipes()
	suggest.SortByName(recipes)
	h.printRecipes(recipes, len(recipes))
}

// ParseQuery reads a structured query written as space separated key=value
// pairs, e.g. "items=tomato,!onion tags=vegan time=30 price=12 serves=2".
// Items prefixed with '!' are excluded.
func ParseQuery(s string) (recipe.Query, error) {
	var q recipe.Query
	for _, field := range strings.Fields(s) {
		key, value, ok := strings.Cut(field, "=")
		if !ok || value == "" {
			return q, fmt.Errorf("expected key=value, got %q", field)
		}
		switch key {
		case "items", "i":
			for _, item := range strings.Split(value, ",") {
				if item == "" {
					continue
				}
				exclude := strings.HasPrefix(item, "!")
				name := strings.ReplaceAll(strings.TrimPrefix(item, "!"), "_", " ")
				q.Items = append(q.Items, recipe.ItemQuery{Name: name, Exclude: exclude})
			}
		case "tags", "t":
			q.Tags = append(q.Tags, strings.Split(value, ",")...)
		case "diet", "d":
			q.Diet = append(q.Diet, strings.Split(value, ",")...)
		case "city":
			city := value
			q.City = &city
		case "time", "duration", "price", "serves", "servings":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return q, fmt.Errorf("%s: %w", key, err)
			}
			switch key {
			case "time", "duration":
				q.Duration = &v
			case "price":
				q.Price = &v
			default:
				q.Servings = &v
			}
		default:
			return q, fmt.Errorf("unknown key %q", key)
		}
	}
	return q, nil
}
