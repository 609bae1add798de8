// Package history persists recipe selections per user in SQLite so the ranker
// can be fed across restarts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/recipeserve/pkg/rank"
	"github.com/bastiangx/recipeserve/pkg/recipe"
	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS selections (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	user        TEXT    NOT NULL,
	recipe_id   TEXT    NOT NULL,
	duration    REAL    NOT NULL,
	ingredients INTEGER NOT NULL,
	steps       INTEGER NOT NULL,
	selected_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_selections_user ON selections(user, id);
`

// Store is a selection history backed by an SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory store.
func Open(path string) (*Store, error) {
	memory := path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("history: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	if memory {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range append(pragmas, schema) {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", firstLine(p), err)
		}
	}

	log.Debugf("Opened history store at %s", path)
	return &Store{db: db}, nil
}

// Record appends a selection of r by user.
func (s *Store) Record(ctx context.Context, user string, r *recipe.Recipe) error {
	if r == nil {
		return fmt.Errorf("history: nil recipe")
	}
	f := rank.Features(r)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO selections (user, recipe_id, duration, ingredients, steps, selected_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user, f.RecipeID, f.Duration, int(f.Ingredients), int(f.Steps), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record selection: %w", err)
	}
	return nil
}

// Load returns the last limit selections of user, oldest first. A limit of
// zero or less returns the whole history.
func (s *Store) Load(ctx context.Context, user string, limit int) (rank.History, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT recipe_id, duration, ingredients, steps FROM (
			SELECT id, recipe_id, duration, ingredients, steps
			FROM selections WHERE user = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		user, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	h := rank.History{}
	for rows.Next() {
		var f rank.FeatureVector
		var ingredients, steps int
		if err := rows.Scan(&f.RecipeID, &f.Duration, &ingredients, &steps); err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}
		f.Ingredients, f.Steps = float64(ingredients), float64(steps)
		h = append(h, f)
	}
	return h, rows.Err()
}

// Count returns the number of selections stored for user.
func (s *Store) Count(ctx context.Context, user string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM selections WHERE user = ?`, user).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count selections: %w", err)
	}
	return n, nil
}

// Forget deletes the history of user and returns the number of removed rows.
func (s *Store) Forget(ctx context.Context, user string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM selections WHERE user = ?`, user)
	if err != nil {
		return 0, fmt.Errorf("failed to forget history: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' && i > 0 {
			return s[:i]
		}
	}
	return s
}
