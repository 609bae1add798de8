package utils

// IDFilter de-duplicates identifiers while preserving first-seen order.
type IDFilter struct {
	seen map[string]struct{}
}

// NewIDFilter creates a new filter sized for roughly n identifiers.
func NewIDFilter(n int) *IDFilter {
	return &IDFilter{seen: make(map[string]struct{}, n)}
}

// ShouldInclude checks if an id should be included in results (not a duplicate)
// Returns true if the id should be included, false if it's a duplicate
func (f *IDFilter) ShouldInclude(id string) bool {
	if _, ok := f.seen[id]; ok {
		return false
	}
	f.seen[id] = struct{}{}
	return true
}

// Len returns the number of distinct ids seen so far.
func (f *IDFilter) Len() int {
	return len(f.seen)
}
