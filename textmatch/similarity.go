package textmatch

// DefaultThreshold is the relative edit distance under which two strings
// count as the same word with a typo, a declension or a transliteration slip.
const DefaultThreshold = 0.25

// Distance is the Levenshtein distance between a and b with unit costs.
func Distance(a, b string) int {
	return distance([]rune(a), []rune(b))
}

func distance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
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

// IsSimilar reports whether a and b differ by less than DefaultThreshold
// of the longer string. Two empty strings are never similar.
func IsSimilar(a, b string) bool {
	return IsSimilarWithin(a, b, DefaultThreshold)
}

// IsSimilarWithin is IsSimilar with an explicit threshold.
func IsSimilarWithin(a, b string, threshold float64) bool {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return false
	}

	// the distance is at least the length difference
	diff := len(ra) - len(rb)
	if diff < 0 {
		diff = -diff
	}
	if float64(diff)/float64(longest) >= threshold {
		return false
	}

	return float64(distance(ra, rb))/float64(longest) < threshold
}
