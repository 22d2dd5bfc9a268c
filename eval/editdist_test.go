package eval

import (
	"strings"
	"testing"
)

func split(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		hyp  string
		want int
	}{
		{"identical", "a b c", "a b c", 0},
		{"empty both", "", "", 0},
		{"empty ref", "", "a b", 2},
		{"empty hyp", "a b c", "", 3},
		{"substitution", "a b c", "a x c", 1},
		{"deletion", "a b c", "a c", 1},
		{"insertion", "a c", "a b c", 1},
		{"kitten sitting", "k i t t e n", "s i t t i n g", 3},
		{"disjoint", "a b", "x y z", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(split(tt.ref), split(tt.hyp)); got != tt.want {
				t.Errorf("Distance(%q, %q) = %d, want %d", tt.ref, tt.hyp, got, tt.want)
			}
		})
	}
}

func TestDistance_IntTokens(t *testing.T) {
	if got := Distance([]int{1, 2, 3}, []int{1, 9, 3}); got != 1 {
		t.Errorf("Distance = %d, want 1", got)
	}
}

func TestAlign(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		hyp  string
		want Counts
	}{
		{"identical", "a b c", "a b c", Counts{}},
		{"substitution", "a b c", "a x c", Counts{Sub: 1}},
		{"deletion", "a b c", "a c", Counts{Del: 1}},
		{"insertion", "a c", "a b c", Counts{Ins: 1}},
		{"empty ref", "", "a b", Counts{Ins: 2}},
		{"empty hyp", "a b c", "", Counts{Del: 3}},
		{"kitten sitting", "k i t t e n", "s i t t i n g", Counts{Sub: 2, Ins: 1}},
		{"shifted", "a b c d", "b c d e", Counts{Del: 1, Ins: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Align(split(tt.ref), split(tt.hyp))
			if got != tt.want {
				t.Errorf("Align(%q, %q) = %+v, want %+v", tt.ref, tt.hyp, got, tt.want)
			}
		})
	}
}

func TestAlign_TotalMatchesDistance(t *testing.T) {
	pairs := [][2]string{
		{"a b c d e", "a c x e"},
		{"x x x", "y y y y"},
		{"one two three four", "one three four five"},
		{"a", "a a a a"},
	}
	for _, p := range pairs {
		ref, hyp := split(p[0]), split(p[1])
		d := Distance(ref, hyp)
		c := Align(ref, hyp)
		if c.Errors() != d {
			t.Errorf("Align(%q, %q).Errors() = %d, Distance = %d", p[0], p[1], c.Errors(), d)
		}
	}
}

func TestCounts_Add(t *testing.T) {
	a := Counts{Sub: 1, Del: 2, Ins: 3}
	b := Counts{Sub: 4, Ins: 1}
	got := a.Add(b)
	want := Counts{Sub: 5, Del: 2, Ins: 4}
	if got != want {
		t.Errorf("Add = %+v, want %+v", got, want)
	}
	if got.Errors() != 11 {
		t.Errorf("Errors = %d, want 11", got.Errors())
	}
}
