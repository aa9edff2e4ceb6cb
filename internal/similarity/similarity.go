// Package similarity implements edit-distance title matching over normalized
// text. All functions are pure and safe for unsynchronized concurrent use.
package similarity

import "github.com/danilopena0/canopy/internal/normalize"

// Distance returns the Levenshtein edit distance between a and b: the minimum
// number of single-rune insertions, deletions, and substitutions (no
// transposition) to turn a into b.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	// Keep the DP row sized by the shorter string.
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra)
	}

	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}

	for i, ca := range ra {
		prev := row[0] // row[j-1] from the previous iteration
		row[0] = i + 1
		for j, cb := range rb {
			cost := 0
			if ca != cb {
				cost = 1
			}
			cur := min(row[j+1]+1, row[j]+1, prev+cost)
			prev = row[j+1]
			row[j+1] = cur
		}
	}

	return row[len(rb)]
}

// TitleSimilarity normalizes both titles and returns their similarity in
// [0, 1]. The second return is false when either side normalizes to empty:
// missing data is no signal, never a match.
func TitleSimilarity(a, b string) (float64, bool) {
	na, nb := normalize.Title(a), normalize.Title(b)
	if na == "" || nb == "" {
		return 0, false
	}
	if na == nb {
		return 1, true
	}

	maxLen := max(len([]rune(na)), len([]rune(nb)))
	return 1 - float64(Distance(na, nb))/float64(maxLen), true
}

// TitleSimilar reports whether two titles are similar enough to be considered
// the same logical role at the given threshold.
func TitleSimilar(a, b string, threshold float64) bool {
	sim, ok := TitleSimilarity(a, b)
	return ok && sim >= threshold
}
