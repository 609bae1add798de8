// Package index is the typo-tolerant prefix index over recipe names.
//
// Typo tolerance is built in at insertion time: each field is expanded by Mutate
// and every variant is inserted. Lookup itself is an exact prefix walk.
package index

import (
	"sort"

	"github.com/bastiangx/recipeserve/internal/utils"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// PrefixIndex maps normalized tokens to the ids registered under them.
// It is not safe for concurrent mutation; once built it is only read.
type PrefixIndex struct {
	trie *patricia.Trie
	keys int
	ids  int
}

// NewPrefixIndex creates an empty index.
func NewPrefixIndex() *PrefixIndex {
	return &PrefixIndex{trie: patricia.NewTrie()}
}

// Insert registers id under the normalized token. Inserting the same id twice
// under one token keeps both entries; Search de-duplicates.
func (ix *PrefixIndex) Insert(token, id string) {
	key := utils.NormalizeToken(token)
	if key == "" {
		return
	}
	ix.insertKey(patricia.Prefix(key), id)
}

func (ix *PrefixIndex) insertKey(key patricia.Prefix, ids ...string) {
	if item := ix.trie.Get(key); item != nil {
		existing := item.([]string)
		ix.trie.Set(key, append(existing, ids...))
	} else {
		stored := make([]string, len(ids))
		copy(stored, ids)
		ix.trie.Insert(key, stored)
		ix.keys++
	}
	ix.ids += len(ids)
}

// Search returns the distinct ids registered under query or under any longer
// token that starts with it. An empty query or a missing path yields an empty,
// non-nil slice. Ids are returned sorted.
func (ix *PrefixIndex) Search(query string) []string {
	if ix == nil || ix.trie == nil {
		return []string{}
	}

	key := utils.NormalizeToken(query)
	if key == "" {
		log.Debug("empty query, nothing to search")
		return []string{}
	}

	filter := utils.NewIDFilter(16)
	results := []string{}
	err := ix.trie.VisitSubtree(patricia.Prefix(key), func(_ patricia.Prefix, item patricia.Item) error {
		for _, id := range item.([]string) {
			if filter.ShouldInclude(id) {
				results = append(results, id)
			}
		}
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting index subtree: %v", err)
		return []string{}
	}

	if len(results) == 0 {
		log.Debugf("could not find %q in index", query)
		return results
	}
	sort.Strings(results)
	return results
}

// Contains reports whether token was inserted exactly.
func (ix *PrefixIndex) Contains(token string) bool {
	if ix == nil || ix.trie == nil {
		return false
	}
	return ix.trie.Get(patricia.Prefix(utils.NormalizeToken(token))) != nil
}

// Merge copies every key of other into ix.
func (ix *PrefixIndex) Merge(other *PrefixIndex) {
	if other == nil || other.trie == nil {
		return
	}
	other.trie.Visit(func(p patricia.Prefix, item patricia.Item) error {
		ix.insertKey(p, item.([]string)...)
		return nil
	})
}

// Len returns the number of distinct tokens in the index.
func (ix *PrefixIndex) Len() int {
	if ix == nil {
		return 0
	}
	return ix.keys
}

// Stats returns statistics about the index.
func (ix *PrefixIndex) Stats() map[string]int {
	if ix == nil {
		return map[string]int{"indexKeys": 0, "indexEntries": 0}
	}
	return map[string]int{
		"indexKeys":    ix.keys,
		"indexEntries": ix.ids,
	}
}
