package tokens

import "testing"

func TestEstimate(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 1},
		{"short", "hi", 1},
		{"four_chars", "abcd", 1},
		{"eight_chars", "abcdefgh", 2},
		{"rounds_down", "abcdefghi", 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Estimate(c.in); got != c.want {
				t.Errorf("Estimate(%q) = %d, want %d", c.in, got, c.want)
			}
		})
	}
}
