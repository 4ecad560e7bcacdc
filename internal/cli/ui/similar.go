package ui

import (
	"sort"
	"strings"
)

const (
	DefaultMaxDistance    = 3
	DefaultMaxSuggestions = 3
)

// SimilarOptions tunes FindSimilar. Zero values use the defaults.
type SimilarOptions struct {
	MaxDistance    int
	MaxSuggestions int
	CaseSensitive  bool
}

// FindSimilar returns the candidates within edit distance of target,
// closest first:
//
//	FindSimilar("stor", []string{"store", "currency"}, nil) // ["store"]
func FindSimilar(target string, candidates []string, opts *SimilarOptions) []string {
	o := SimilarOptions{}
	if opts != nil {
		o = *opts
	}
	if o.MaxDistance == 0 {
		o.MaxDistance = DefaultMaxDistance
	}
	if o.MaxSuggestions == 0 {
		o.MaxSuggestions = DefaultMaxSuggestions
	}

	type match struct {
		value    string
		distance int
	}
	var matches []match
	for _, c := range candidates {
		a, b := target, c
		if !o.CaseSensitive {
			a, b = strings.ToLower(a), strings.ToLower(b)
		}
		if d := Distance(a, b); d <= o.MaxDistance {
			matches = append(matches, match{c, d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].distance < matches[j].distance })

	out := make([]string, 0, o.MaxSuggestions)
	for i := 0; i < len(matches) && i < o.MaxSuggestions; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// Distance is the Levenshtein distance between a and b in bytes.
func Distance(a, b string) int {
	if a == "" {
		return len(b)
	}
	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
