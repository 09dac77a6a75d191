package pricing

import "strings"

// ReferenceTable holds static default per-kilogram prices. It is built once
// at startup and read-only afterwards, so lookups need no synchronization.
type ReferenceTable struct {
	prices map[string]int64
}

// NewReferenceTable builds the table from configuration. Keys are normalized
// to lower case.
func NewReferenceTable(prices map[string]int64) *ReferenceTable {
	normalized := make(map[string]int64, len(prices))
	for name, price := range prices {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || price <= 0 {
			continue
		}
		normalized[key] = price
	}
	return &ReferenceTable{prices: normalized}
}

// Lookup resolves a name against the table: exact match first, then
// substring containment in either direction, so "organic cabbage" matches a
// "cabbage" entry. When several entries match, the longest one wins; ties
// break on the lexicographically smallest entry, keeping the result stable
// across runs.
func (t *ReferenceTable) Lookup(name string) (int64, bool) {
	if t == nil {
		return 0, false
	}

	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return 0, false
	}

	if price, ok := t.prices[key]; ok {
		return price, true
	}

	var (
		best      string
		bestPrice int64
		found     bool
	)
	for entry, price := range t.prices {
		if !strings.Contains(key, entry) && !strings.Contains(entry, key) {
			continue
		}
		if !found || len(entry) > len(best) || (len(entry) == len(best) && entry < best) {
			best, bestPrice, found = entry, price, true
		}
	}
	return bestPrice, found
}

// Len reports the number of entries.
func (t *ReferenceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.prices)
}
