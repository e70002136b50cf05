// Package merge implements the candidate merger (C7): deduplicating USN
// and recycle-bin results by full-path key and sorting the union by
// deletion time.
package merge

import (
	"sort"
	"strings"

	"github.com/archivekit/ntfsrevive/internal/model"
)

// Merge deduplicates candidates by case-insensitive full-path key,
// preferring the recycle-bin candidate on collision (§4.7), then sorts
// the result by deletedTime descending; entries without a timestamp
// compare equal and keep their relative order.
func Merge(usnCandidates, recycleBinCandidates []model.DeletedCandidate) []model.DeletedCandidate {
	byPath := make(map[string]model.DeletedCandidate, len(usnCandidates)+len(recycleBinCandidates))
	var order []string

	add := func(c model.DeletedCandidate) {
		key := strings.ToLower(c.FullPath)
		existing, ok := byPath[key]
		if !ok {
			byPath[key] = c
			order = append(order, key)
			return
		}
		if existing.Source != model.SourceRecycleBin && c.Source == model.SourceRecycleBin {
			byPath[key] = c
		}
	}

	for _, c := range usnCandidates {
		add(c)
	}
	for _, c := range recycleBinCandidates {
		add(c)
	}

	result := make([]model.DeletedCandidate, 0, len(order))
	for _, key := range order {
		result = append(result, byPath[key])
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.DeletedTimeKnown || !b.DeletedTimeKnown {
			return false
		}
		return a.DeletedTimeMs > b.DeletedTimeMs
	})

	return result
}
