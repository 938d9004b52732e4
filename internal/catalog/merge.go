package catalog

// Merge concatenates existing and incoming rows and keeps the last
// occurrence of every id, in first-seen id order. It reports how many ids
// were new and how many existing ids were overwritten.
func Merge(existing, incoming []Product) (merged []Product, inserted, updated int) {
	merged = make([]Product, 0, len(existing)+len(incoming))
	pos := make(map[string]int, len(existing)+len(incoming))
	fromExisting := make(map[string]bool, len(existing))

	for _, p := range existing {
		if i, ok := pos[p.ID]; ok {
			merged[i] = p
			continue
		}
		pos[p.ID] = len(merged)
		fromExisting[p.ID] = true
		merged = append(merged, p)
	}

	counted := make(map[string]bool, len(incoming))
	for _, p := range incoming {
		if i, ok := pos[p.ID]; ok {
			merged[i] = p
		} else {
			pos[p.ID] = len(merged)
			merged = append(merged, p)
		}
		if counted[p.ID] {
			continue
		}
		counted[p.ID] = true
		if fromExisting[p.ID] {
			updated++
		} else {
			inserted++
		}
	}
	return merged, inserted, updated
}
