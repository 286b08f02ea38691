package service

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Candidates below this similarity are noise, not suggestions.
const minPayeeSimilarity = 0.4

// SuggestPayees ranks previously seen payees by edit-distance closeness to
// input, best first, capped at max. Exact matches are excluded; the caller
// already has those.
func SuggestPayees(input string, known []string, max int) []string {
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" || max <= 0 {
		return nil
	}
	type scored struct {
		name string
		sim  float64
	}
	seen := make(map[string]struct{}, len(known))
	var ranked []scored
	for _, candidate := range known {
		name := strings.TrimSpace(candidate)
		lower := strings.ToLower(name)
		if lower == "" || lower == needle {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		sim := similarity(needle, lower)
		if sim < minPayeeSimilarity {
			continue
		}
		ranked = append(ranked, scored{name: name, sim: sim})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].sim != ranked[j].sim {
			return ranked[i].sim > ranked[j].sim
		}
		return ranked[i].name < ranked[j].name
	})
	if len(ranked) > max {
		ranked = ranked[:max]
	}
	out := make([]string, len(ranked))
	for i, s := range ranked {
		out[i] = s.name
	}
	return out
}

func similarity(a, b string) float64 {
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
