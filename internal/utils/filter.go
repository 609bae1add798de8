package utils

import "unicode"

// IsOnlyNumbers checks if a string consists entirely of numeric digits
func IsOnlyNumbers(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// IsRepetitive checks if a string consists of repetitive characters
// Simple version that checks for repeated characters (e.g., "aaa", "bbb")
func IsRepetitive(s string) bool {
	runes := []rune(s)
	if len(runes) <= 2 {
		return false
	}
	for i := 1; i < len(runes); i++ {
		if runes[i] != runes[0] {
			return false
		}
	}
	return true
}

// IsValidQuery checks if a free-text query is worth running against the index.
// Returns false for queries that normalize to nothing. Numbers and repeated
// characters are valid since recipe names may contain them.
func IsValidQuery(q string) bool {
	return NormalizeToken(q) != ""
}
