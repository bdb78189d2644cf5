package match

// similarityRatio is a Ratcliff/Obershelp similarity in [0,1]: twice the
// total length of recursively matched common substrings over the summed
// input lengths, counted in characters so multi-byte summaries score the
// same as ASCII ones. Two empty strings are fully similar.
func similarityRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingTotal(ra, rb)) / float64(total)
}

func matchingTotal(a, b []rune) int {
	ai, bi, n := longestCommonSubstring(a, b)
	if n == 0 {
		return 0
	}
	return n + matchingTotal(a[:ai], b[:bi]) + matchingTotal(a[ai+n:], b[bi+n:])
}

// longestCommonSubstring returns the leftmost longest common run of
// characters as (start in a, start in b, length).
func longestCommonSubstring(a, b []rune) (int, int, int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	best, bestA, bestB := 0, 0, 0
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] != b[j-1] {
				cur[j] = 0
				continue
			}
			cur[j] = prev[j-1] + 1
			if cur[j] > best {
				best = cur[j]
				bestA = i - cur[j]
				bestB = j - cur[j]
			}
		}
		prev, cur = cur, prev
		for j := range cur {
			cur[j] = 0
		}
	}
	return bestA, bestB, best
}
