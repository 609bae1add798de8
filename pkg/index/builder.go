package index

import (
	"context"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Document is the searchable projection of one entity.
type Document struct {
	ID     string
	Fields []string
}

// BuildOptions controls index construction.
type BuildOptions struct {
	// Workers is the number of goroutines filling private sub-indexes.
	// Zero or less uses GOMAXPROCS.
	Workers int
	// MaxFieldLength caps each field (in runes) before mutation. Zero disables the cap.
	MaxFieldLength int
}

// Build creates a new index holding every mutation of every document field.
// Documents are split across workers, each filling a private index; the
// private indexes are merged once all workers are done.
func Build(ctx context.Context, docs []Document, opts BuildOptions) (*PrefixIndex, error) {
	start := time.Now()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(docs) {
		workers = len(docs)
	}
	if workers == 0 {
		log.Debug("empty corpus, built empty index")
		return NewPrefixIndex(), nil
	}

	parts := make([]*PrefixIndex, workers)
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			part := NewPrefixIndex()
			for i := w; i < len(docs); i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				insertDocument(part, docs[i], opts.MaxFieldLength)
			}
			parts[w] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ix := parts[0]
	for _, part := range parts[1:] {
		ix.Merge(part)
	}

	log.Debugf("Built index: %d docs, %d keys, %d workers in %v", len(docs), ix.Len(), workers, time.Since(start))
	return ix, nil
}

func insertDocument(ix *PrefixIndex, doc Document, maxLen int) {
	for _, field := range doc.Fields {
		for _, m := range MutateCapped(field, maxLen) {
			ix.Insert(m, doc.ID)
		}
	}
}
