package detect

// lcsPair aligns an old line index with a new line index (both 0-based).
type lcsPair struct {
	oldIdx int
	newIdx int
}

// longestCommonSubsequence computes the LCS alignment between two hash
// sequences with the classic O(m·n) dynamic program and a backtrack pass.
// Pairs come out in ascending order on both sides.
//
// The quadratic cost is acceptable for per-file line counts; swapping in a
// banded or Myers-style diff would be fine as long as "aligned line means
// unchanged line" is preserved exactly.
func longestCommonSubsequence(oldHashes, newHashes []string) []lcsPair {
	m, n := len(oldHashes), len(newHashes)
	if m == 0 || n == 0 {
		return nil
	}

	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if oldHashes[i-1] == newHashes[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	pairs := make([]lcsPair, 0, dp[m][n])
	for i, j := m, n; i > 0 && j > 0; {
		switch {
		case oldHashes[i-1] == newHashes[j-1]:
			pairs = append(pairs, lcsPair{oldIdx: i - 1, newIdx: j - 1})
			i--
			j--
		case dp[i-1][j] > dp[i][j-1]:
			i--
		default:
			j--
		}
	}

	// Backtracking walks tail-first; flip to ascending.
	for l, r := 0, len(pairs)-1; l < r; l, r = l+1, r-1 {
		pairs[l], pairs[r] = pairs[r], pairs[l]
	}
	return pairs
}
