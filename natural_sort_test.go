package osipack

import "testing"

func TestCompareNatural(t *testing.T) {
	testCases := []struct {
		a, b string
		want int
	}{
		{"foobar0", "foobar1", -1},
		{"foobar2", "foobar10", -1},
		{"foo2bar3", "foo10bar10", -1},
		{"foobar10", "foobar2", 1},
		{"foobar", "foobar", 0},
		{"", "", 0},
		{"", "a", -1},
		{"34.0.2", "34.0.10", -1},
		{"33.0.2", "34.0.0", -1},
		{"android-9", "android-10", -1},
		{"a1", "a", 1},
		// Equal values with different spellings fall back to a raw
		// comparison of the digit runs.
		{"a01", "a1", -1},
		// Digit runs beyond uint64 still order deterministically.
		{"a99999999999999999999", "a99999999999999999998", 1},
	}

	for _, tc := range testCases {
		t.Run(tc.a+"_"+tc.b, func(t *testing.T) {
			if got := CompareNatural(tc.a, tc.b); got != tc.want {
				t.Errorf("CompareNatural(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestCompareNaturalSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"foobar0", "foobar1"},
		{"foo2bar3", "foo10bar10"},
		{"a01", "a1"},
	}
	for _, p := range pairs {
		if CompareNatural(p[0], p[1]) != -CompareNatural(p[1], p[0]) {
			t.Errorf("CompareNatural(%q, %q) is not antisymmetric", p[0], p[1])
		}
	}
}
