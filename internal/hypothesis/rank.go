// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hypothesis

import (
	"regexp"
	"strconv"

	"github.com/pdiddy/chronos/pkg/types"
)

// rankLine matches a ranked entry such as "1. **H3: Title" or "2. H-7:".
var rankLine = regexp.MustCompile(`(?im)^[ \t]*\d+[.)][ \t]*(?:\*\*)?[ \t]*H-?(\d+)\b`)

// RankOrder returns the sequence ids in the order a ranking response lists
// them. Repeated ids keep their first position.
func RankOrder(ranking string) []int {
	var ids []int
	seen := map[int]bool{}
	for _, m := range rankLine.FindAllStringSubmatch(ranking, -1) {
		id, err := strconv.Atoi(m[1])
		if err != nil || id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// TopRanked selects up to n records in ranking order. Records the ranking
// does not mention fill any remaining slots in input order.
func TopRanked(records []types.HypothesisRecord, ranking string, n int) []types.HypothesisRecord {
	if n <= 0 {
		return nil
	}
	byID := make(map[int]types.HypothesisRecord, len(records))
	for _, r := range records {
		byID[r.SequenceID] = r
	}

	var out []types.HypothesisRecord
	used := map[int]bool{}
	for _, id := range RankOrder(ranking) {
		if len(out) == n {
			return out
		}
		if r, ok := byID[id]; ok {
			out = append(out, r)
			used[id] = true
		}
	}
	for _, r := range records {
		if len(out) == n {
			break
		}
		if !used[r.SequenceID] {
			out = append(out, r)
		}
	}
	return out
}
