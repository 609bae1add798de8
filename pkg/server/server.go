package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/recipeserve/internal/utils"
	"github.com/bastiangx/recipeserve/pkg/config"
	"github.com/bastiangx/recipeserve/pkg/rank"
	"github.com/bastiangx/recipeserve/pkg/recipe"
	"github.com/bastiangx/recipeserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

const defaultLimit = 10

// HistoryStore persists selections per user.
type HistoryStore interface {
	Record(ctx context.Context, user string, r *recipe.Recipe) error
	Load(ctx context.Context, user string, limit int) (rank.History, error)
	Forget(ctx context.Context, user string) (int64, error)
}

// Observer receives per-request timings.
type Observer interface {
	RequestDone(op string, ok bool, elapsed time.Duration)
	Selected()
}

// Loader rereads the corpus for the reload op.
type Loader func(ctx context.Context) ([]*recipe.Recipe, error)

// Option configures a Server.
type Option func(*Server)

// WithHistory enables select, forget and stored-history recommendations.
func WithHistory(store HistoryStore) Option {
	return func(s *Server) { s.store = store }
}

// WithLoader enables the reload op.
func WithLoader(load Loader) Option {
	return func(s *Server) { s.loader = load }
}

// WithObserver reports request timings, usually to metrics.
func WithObserver(o Observer) Option {
	return func(s *Server) { s.observer = o }
}

// WithIO replaces stdin and stdout.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(s *Server) {
		s.in = r
		s.out = w
	}
}

// Server handles msgpack IPC for the engine.
type Server struct {
	engine       *suggest.Engine
	config       *config.Config
	store        HistoryStore
	loader       Loader
	observer     Observer
	in           io.Reader
	out          io.Writer
	enc          *msgpack.Encoder
	requestCount int
}

// NewServer creates a server reading stdin and writing stdout.
func NewServer(engine *suggest.Engine, cfg *config.Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		engine: engine,
		config: cfg,
		in:     os.Stdin,
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start serves requests until the input is closed or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	log.Debug("Starting Server.")
	w := bufio.NewWriter(s.out)
	s.enc = msgpack.NewEncoder(w)
	dec := msgpack.NewDecoder(bufio.NewReader(s.in))

	s.sendResponse(w, StatusResponse{Status: "ready"})

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		raw, err := dec.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			log.Errorf("Reading request: %v", err)
			return err
		}
		s.sendResponse(w, s.handle(ctx, raw))
	}
}

// sendResponse encodes one response and flushes it to the client.
func (s *Server) sendResponse(w *bufio.Writer, response any) {
	if err := s.enc.Encode(response); err != nil {
		log.Errorf("Encoding response: %v", err)
		return
	}
	if err := w.Flush(); err != nil {
		log.Errorf("Writing response: %v", err)
	}
}

func errorResponse(id, message string, code int) ErrorResponse {
	return ErrorResponse{ID: id, Error: message, Code: code}
}

// handle decodes and dispatches one raw message, returning the response.
func (s *Server) handle(ctx context.Context, raw msgpack.RawMessage) any {
	s.requestCount++
	var req Request
	if err := msgpack.Unmarshal(raw, &req); err != nil {
		log.Debugf("Unmarshaling request: %v", err)
		return errorResponse("", "invalid msgpack request", 400)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	start := time.Now()
	response := s.dispatch(ctx, req)
	if s.observer != nil {
		_, failed := response.(ErrorResponse)
		s.observer.RequestDone(req.Op, !failed, time.Since(start))
	}
	return response
}

func (s *Server) dispatch(ctx context.Context, req Request) any {
	switch req.Op {
	case "search":
		return s.handleSearch(req)
	case "suggest":
		return s.handleSuggest(req)
	case "recommend":
		return s.handleRecommend(ctx, req)
	case "select":
		return s.handleSelect(ctx, req)
	case "forget":
		return s.handleForget(ctx, req)
	case "reload":
		return s.handleReload(ctx, req)
	case "stats":
		return StatusResponse{ID: req.ID, Status: "ok", Stats: s.stats()}
	case "health":
		return StatusResponse{ID: req.ID, Status: "ok"}
	case "":
		return errorResponse(req.ID, "missing 'op'", 400)
	default:
		return errorResponse(req.ID, fmt.Sprintf("unknown op: %s", req.Op), 400)
	}
}

func (s *Server) handleSearch(req Request) any {
	n := utf8.RuneCountInString(req.Text)
	if n == 0 {
		return errorResponse(req.ID, "missing 'q' parameter", 400)
	}
	if n < s.config.Server.MinQuery {
		return errorResponse(req.ID, fmt.Sprintf("query must be at least %d characters", s.config.Server.MinQuery), 400)
	}
	if s.config.Server.MaxQuery > 0 && n > s.config.Server.MaxQuery {
		return errorResponse(req.ID, fmt.Sprintf("query exceeds maximum length of %d characters", s.config.Server.MaxQuery), 400)
	}

	mode := s.engine.Mode()
	if req.Mode != "" {
		m, ok := suggest.ParseMode(req.Mode)
		if !ok {
			return errorResponse(req.ID, fmt.Sprintf("unknown mode: %s", req.Mode), 400)
		}
		mode = m
	}

	start := time.Now()
	res := s.engine.Lookup(req.Text, mode)
	recipes := truncate(res.Recipes, s.limit(req.Limit))
	elapsed := time.Since(start)

	hits := make([]SearchHit, len(recipes))
	ranks := utils.CreateRankList(len(recipes))
	for i, r := range recipes {
		hits[i] = SearchHit{ID: r.ID, Name: r.Name.Get(""), Rank: ranks[i]}
	}
	return SearchResponse{
		ID:        req.ID,
		Results:   hits,
		Count:     len(hits),
		TimeTaken: elapsed.Microseconds(),
		Corrected: res.Corrected,
	}
}

func (s *Server) handleSuggest(req Request) any {
	var q recipe.Query
	if req.Query != nil {
		q = *req.Query
	}
	start := time.Now()
	suggestions := truncate(s.engine.Suggest(q), s.limit(req.Limit))
	return SuggestResponse{
		ID:          req.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   time.Since(start).Microseconds(),
	}
}

func (s *Server) handleRecommend(ctx context.Context, req Request) any {
	start := time.Now()
	var h rank.History
	switch {
	case len(req.History) > 0:
		h = s.engine.History(req.History)
	case s.store != nil:
		var err error
		h, err = s.store.Load(ctx, s.user(req), 0)
		if err != nil {
			log.Errorf("Loading history: %v", err)
			return errorResponse(req.ID, "failed to load history", 500)
		}
	}

	var q recipe.Query
	if req.Query != nil {
		q = *req.Query
	}
	rec := s.engine.Recommend(h, q)
	suggestions := truncate(rec.Suggestions, s.limit(req.Limit))
	return RecommendResponse{
		ID:          req.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		Target:      rec.Target,
		Width:       rec.Rank.Width,
		Iterations:  rec.Rank.Iterations,
		Fallback:    rec.Fallback,
		TimeTaken:   time.Since(start).Microseconds(),
	}
}

func (s *Server) handleSelect(ctx context.Context, req Request) any {
	if s.store == nil {
		return errorResponse(req.ID, "history store disabled", 503)
	}
	if req.RecipeID == "" {
		return errorResponse(req.ID, "missing 'recipe' parameter", 400)
	}
	r, ok := s.engine.Recipe(req.RecipeID)
	if !ok {
		return errorResponse(req.ID, fmt.Sprintf("unknown recipe: %s", req.RecipeID), 404)
	}
	if err := s.store.Record(ctx, s.user(req), r); err != nil {
		log.Errorf("Recording selection: %v", err)
		return errorResponse(req.ID, "failed to record selection", 500)
	}
	if s.observer != nil {
		s.observer.Selected()
	}
	return StatusResponse{ID: req.ID, Status: "ok"}
}

func (s *Server) handleForget(ctx context.Context, req Request) any {
	if s.store == nil {
		return errorResponse(req.ID, "history store disabled", 503)
	}
	removed, err := s.store.Forget(ctx, s.user(req))
	if err != nil {
		log.Errorf("Forgetting history: %v", err)
		return errorResponse(req.ID, "failed to forget history", 500)
	}
	return StatusResponse{ID: req.ID, Status: "ok", Stats: map[string]int{"removed": int(removed)}}
}

func (s *Server) handleReload(ctx context.Context, req Request) any {
	if s.loader == nil {
		return errorResponse(req.ID, "reload not configured", 503)
	}
	corpus, err := s.loader(ctx)
	if err != nil {
		log.Errorf("Reloading corpus: %v", err)
		return errorResponse(req.ID, err.Error(), 500)
	}
	if err := s.engine.Rebuild(ctx, corpus); err != nil {
		log.Errorf("Rebuilding engine: %v", err)
		return errorResponse(req.ID, err.Error(), 500)
	}
	return StatusResponse{ID: req.ID, Status: "ok", Stats: map[string]int{"recipes": s.engine.Stats()["recipes"]}}
}

func (s *Server) stats() map[string]int {
	stats := s.engine.Stats()
	stats["requests"] = s.requestCount
	return stats
}

func (s *Server) user(req Request) string {
	if req.User != "" {
		return req.User
	}
	return s.config.Store.DefaultUser
}

// limit clamps a requested limit to the configured maximum.
func (s *Server) limit(requested int) int {
	if requested < 1 {
		requested = defaultLimit
	}
	if maxLimit := s.config.Server.MaxLimit; maxLimit > 0 && requested > maxLimit {
		requested = maxLimit
	}
	return requested
}

func truncate[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
