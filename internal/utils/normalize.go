package utils

import (
	"strings"
	"unicode"
)

// NormalizeToken lower-cases s, drops every rune that is not a letter, digit
// or space, then trims and collapses runs of spaces. Index insertion and index
// lookup both go through it.
func NormalizeToken(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// SplitField splits a field on whitespace, commas and hyphens.
func SplitField(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '-'
	})
}

// SplitQuery lower-cases a free-text query and splits it on whitespace and
// common punctuation, dropping empty words.
func SplitQuery(q string) []string {
	return strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		if unicode.IsSpace(r) {
			return true
		}
		switch r {
		case ',', '.', ';', ':', '!', '?':
			return true
		}
		return false
	})
}

// CreateRankList creates a slice of ranks based on position.
// The rank starts at 1 for the first item and increments for subsequent items.
// Useful for ranking items that are already sorted.
func CreateRankList(count int) []uint16 {
	if count <= 0 {
		return []uint16{}
	}
	ranks := make([]uint16, count)
	for i := 0; i < count; i++ {
		ranks[i] = uint16(i + 1)
	}
	return ranks
}
