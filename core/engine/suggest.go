package engine

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Suggest returns up to n canonical names ranked by edit distance to the
// token. Very short tokens produce no suggestions, and the distance threshold
// scales with token length so garbled input does not surface noise.
func (r *Registry) Suggest(token string, n int) []string {
	token = strings.ToLower(strings.TrimSpace(token))
	if len(token) < 2 || n <= 0 {
		return nil
	}

	maxDist := 1
	if len(token) > 4 {
		maxDist = 2
	}

	type ranked struct {
		name string
		dist int
	}

	r.mu.RLock()
	candidates := make([]ranked, 0, len(r.commands))
	for name := range r.commands {
		if r.disabledLocked(name) {
			continue
		}
		d := levenshtein.ComputeDistance(token, name)
		if d == 0 || d > maxDist {
			continue
		}
		candidates = append(candidates, ranked{name: name, dist: d})
	}
	r.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].name < candidates[j].name
	})

	if len(candidates) > n {
		candidates = candidates[:n]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.name
	}
	return out
}
