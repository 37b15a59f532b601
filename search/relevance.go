package search

import (
	"slices"
	"strings"

	"github.com/kulmaganbetov/overbot123/textmatch"
)

// Relevant picks what a plain product question shows: presentable
// candidates that mention at least one keyword in name or brand, most
// mentions first and cheaper first on ties. When nothing mentions a
// keyword it falls back to every presentable candidate rather than
// showing nothing.
func Relevant(candidates []Candidate, keywords []string, n int) []Candidate {
	kws := textmatch.NormalizeAll(keywords)

	type scored struct {
		c    Candidate
		hits int
	}
	valid := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if !c.Presentable() {
			continue
		}
		text := textmatch.Normalize(c.Name + " " + c.Brand)
		hits := 0
		for _, kw := range kws {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		valid = append(valid, scored{c: c, hits: hits})
	}

	chosen := make([]scored, 0, len(valid))
	for _, s := range valid {
		if s.hits > 0 {
			chosen = append(chosen, s)
		}
	}
	if len(chosen) == 0 {
		chosen = valid
	}

	slices.SortStableFunc(chosen, func(a, b scored) int {
		if a.hits != b.hits {
			return b.hits - a.hits
		}
		return a.c.Price.Cmp(b.c.Price)
	})

	if n > 0 && len(chosen) > n {
		chosen = chosen[:n]
	}
	out := make([]Candidate, len(chosen))
	for i, s := range chosen {
		out[i] = s.c
	}
	return out
}
