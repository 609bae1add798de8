package index

import (
	"strings"

	"github.com/bastiangx/recipeserve/internal/utils"
)

// Mutate returns the single-edit variants of token that are inserted into the
// index next to the token itself, so that a one-letter typo still walks a path.
//
// The token is lower-cased, trimmed and split on whitespace, commas and hyphens.
// Every part and the whole string then yield, for each rune position i:
//
//	swap       runes i and i+1
//	insert     a space before rune i
//	delete     rune i
//	replace    rune i by a space
//	double     rune i
//
// Only one edit is applied per variant, so the output grows linearly with the
// input length. The result carries no order.
func Mutate(token string) []string {
	normalized := strings.ToLower(strings.TrimSpace(token))

	queue := append(utils.SplitField(normalized), normalized)
	mutations := make(map[string]struct{}, len(queue)*len(normalized)*5)

	for _, m := range queue {
		mutations[m] = struct{}{}
		for _, v := range variants([]rune(m)) {
			mutations[v] = struct{}{}
		}
	}

	out := make([]string, 0, len(mutations))
	for m := range mutations {
		out = append(out, m)
	}
	return out
}

// MutateCapped truncates token to maxLen runes before mutating it.
// A maxLen of zero or less disables the cap.
func MutateCapped(token string, maxLen int) []string {
	if maxLen > 0 {
		if r := []rune(token); len(r) > maxLen {
			token = string(r[:maxLen])
		}
	}
	return Mutate(token)
}

func variants(r []rune) []string {
	n := len(r)
	out := make([]string, 0, n*5)
	for i := 0; i < n; i++ {
		if i < n-1 {
			out = append(out, string(r[:i])+string(r[i+1])+string(r[i])+string(r[i+2:]))
		}
		out = append(out, string(r[:i])+" "+string(r[i:]))
		out = append(out, string(r[:i])+string(r[i+1:]))
		out = append(out, string(r[:i])+" "+string(r[i+1:]))
		out = append(out, string(r[:i+1])+string(r[i:]))
	}
	return out
}
