package compiler

import (
	"strings"

	"golang.org/x/exp/slices"
)

// maxSuggestions bounds how many "did you mean" candidates an unresolved
// identifier diagnostic carries.
const maxSuggestions = 3

// editDistance computes the Levenshtein distance between a and b over
// runes, the minimum number of single-rune insertions, deletions and
// substitutions turning one into the other.
func editDistance(a, b string) int {
	ar := []rune(a)
	br := []rune(b)
	if len(ar) == 0 {
		return len(br)
	}
	if len(br) == 0 {
		return len(ar)
	}

	prev := make([]int, len(br)+1)
	cur := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i, ac := range ar {
		cur[0] = i + 1
		for j, bc := range br {
			cost := 1
			if ac == bc {
				cost = 0
			}
			cur[j+1] = min3(prev[j+1]+1, cur[j]+1, prev[j]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(br)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// similarNames returns up to maxSuggestions candidates similar to target,
// most similar first. Thresholds and ranking: for a target of rune length
// L the accepted edit distance is 1 when L <= 3, 2 when L <= 6, otherwise
// max(3, L/3); a prefix match in either direction bypasses the threshold.
// Candidates are ranked prefix matches first, then ascending distance,
// then lexicographic. Exact case-insensitive matches are skipped: the
// name resolved differently for another reason and suggesting it back
// would be noise.
func similarNames(target string, candidates []string) []string {
	if len(candidates) == 0 {
		return nil
	}

	targetLower := strings.ToLower(target)
	targetLen := len([]rune(target))

	maxDistance := 1
	switch {
	case targetLen <= 3:
		maxDistance = 1
	case targetLen <= 6:
		maxDistance = 2
	default:
		maxDistance = targetLen / 3
		if maxDistance < 3 {
			maxDistance = 3
		}
	}

	type scored struct {
		name     string
		distance int
		prefix   bool
	}
	var kept []scored
	for _, cand := range candidates {
		candLower := strings.ToLower(cand)
		if candLower == targetLower {
			continue
		}
		dist := editDistance(targetLower, candLower)
		prefix := strings.HasPrefix(candLower, targetLower) || strings.HasPrefix(targetLower, candLower)
		if dist <= maxDistance || prefix {
			kept = append(kept, scored{name: cand, distance: dist, prefix: prefix})
		}
	}

	slices.SortFunc(kept, func(a, b scored) int {
		if a.prefix != b.prefix {
			if a.prefix {
				return -1
			}
			return 1
		}
		if a.distance != b.distance {
			return a.distance - b.distance
		}
		return strings.Compare(a.name, b.name)
	})

	if len(kept) > maxSuggestions {
		kept = kept[:maxSuggestions]
	}
	out := make([]string, len(kept))
	for i, s := range kept {
		out[i] = s.name
	}
	return out
}
