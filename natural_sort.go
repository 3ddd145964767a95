package osipack

import (
	"strconv"
	"strings"
)

// CompareNatural compares two strings in natural order: embedded digit runs
// are compared as numbers rather than character by character, so
// "build-tools 34.0.2" sorts below "build-tools 34.0.10".
//
// Both strings are repeatedly split into a non-digit run followed by a
// digit run. Non-digit runs compare lexicographically. Digit runs compare
// numerically as unsigned 64-bit values; when that is inconclusive (a run
// overflows, or the values are equal but the spellings differ, e.g.
// leading zeros) the raw digit runs compare as strings instead.
//
// Returns -1, 0 or 1 like strings.Compare.
func CompareNatural(a, b string) int {
	for a != "" || b != "" {
		aWord, aDigits, aRest := splitRun(a)
		bWord, bDigits, bRest := splitRun(b)

		if c := strings.Compare(aWord, bWord); c != 0 {
			return c
		}
		if c := compareDigitRuns(aDigits, bDigits); c != 0 {
			return c
		}
		a, b = aRest, bRest
	}
	return 0
}

// splitRun splits s into its leading non-digit run, the digit run that
// follows, and the remainder.
func splitRun(s string) (word, digits, rest string) {
	i := 0
	for i < len(s) && !isDigit(s[i]) {
		i++
	}
	j := i
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	return s[:i], s[i:j], s[j:]
}

func compareDigitRuns(a, b string) int {
	av, aerr := strconv.ParseUint(a, 10, 64)
	bv, berr := strconv.ParseUint(b, 10, 64)
	if aerr == nil && berr == nil && av != bv {
		if av < bv {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }
