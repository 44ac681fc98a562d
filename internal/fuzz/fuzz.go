// Package fuzz implements indel-based string similarity on a 0..100 scale.
package fuzz

import (
	"sort"
	"strings"
)

// Ratio returns 100 * 2*LCS(a, b) / (len(a)+len(b)), measured in runes.
// Two empty strings are identical.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*lcsLength(ra, rb)) / float64(total)
}

// TokenSetRatio compares a and b as sets of whitespace-separated tokens.
// The shared tokens are compared against each side's shared+remaining tokens
// and the best of the three ratios is returned. When the shared set is
// non-empty and fully covers either side the result is 100.
func TokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var inter, diffAB, diffBA []string
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			inter = append(inter, tok)
		} else {
			diffAB = append(diffAB, tok)
		}
	}
	for tok := range tb {
		if _, ok := ta[tok]; !ok {
			diffBA = append(diffBA, tok)
		}
	}

	if len(inter) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 100
	}

	sect := joinSorted(inter)
	combinedAB := joinParts(sect, joinSorted(diffAB))
	combinedBA := joinParts(sect, joinSorted(diffBA))

	return max(
		Ratio(sect, combinedAB),
		Ratio(sect, combinedBA),
		Ratio(combinedAB, combinedBA),
	)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func joinSorted(tokens []string) string {
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func joinParts(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}

func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
