package ctc

import (
	"math"
	"slices"
	"testing"

	"github.com/alongwithyou/ctcdecode-go/internal/mathutil"
)

// logMat converts rows of probabilities into a log-domain posterior matrix.
// Test rows use plain probabilities for readability.
func logMat(t *testing.T, rows [][]float64) mathutil.Mat {
	t.Helper()
	m := make(mathutil.Mat, len(rows))
	for i, row := range rows {
		m[i] = make(mathutil.Vec, len(row))
		for j, p := range row {
			if p <= 0 {
				t.Fatalf("row %d class %d: probability %f not positive", i, j, p)
			}
			m[i][j] = math.Log(p)
		}
	}
	return m
}

// Vocabulary in these tests: blank=0, a=1, b=2.

func TestGreedy_RepeatCollapsesThroughBlank(t *testing.T) {
	// Argmax path [a, a, blank, b]: the doubled a merges, the blank
	// separates a from b.
	m := logMat(t, [][]float64{
		{0.1, 0.8, 0.1},
		{0.2, 0.7, 0.1},
		{0.7, 0.2, 0.1},
		{0.1, 0.2, 0.7},
	})
	hyp := Greedy(m, 4, 0)
	if want := []int{1, 2}; !slices.Equal(hyp.Labels, want) {
		t.Fatalf("labels = %v, want %v", hyp.Labels, want)
	}
	if want := []int{0, 3}; !slices.Equal(hyp.Frames, want) {
		t.Errorf("frames = %v, want %v", hyp.Frames, want)
	}
	want := math.Log(0.8) + math.Log(0.7) + math.Log(0.7) + math.Log(0.7)
	if math.Abs(hyp.Score-want) > 1e-10 {
		t.Errorf("score = %f, want %f", hyp.Score, want)
	}
}

func TestGreedy_RunWithoutBlankIsOneLabel(t *testing.T) {
	// Argmax path [a, a, a] with no intervening blank is a single a.
	m := logMat(t, [][]float64{
		{0.1, 0.8, 0.1},
		{0.1, 0.8, 0.1},
		{0.1, 0.8, 0.1},
	})
	hyp := Greedy(m, 3, 0)
	if want := []int{1}; !slices.Equal(hyp.Labels, want) {
		t.Fatalf("labels = %v, want %v", hyp.Labels, want)
	}
	if want := []int{0}; !slices.Equal(hyp.Frames, want) {
		t.Errorf("frames = %v, want %v", hyp.Frames, want)
	}
}

func TestGreedy_RepeatAfterBlankStays(t *testing.T) {
	m := logMat(t, [][]float64{
		{0.1, 0.8, 0.1},
		{0.8, 0.1, 0.1},
		{0.1, 0.8, 0.1},
	})
	hyp := Greedy(m, 3, 0)
	if want := []int{1, 1}; !slices.Equal(hyp.Labels, want) {
		t.Fatalf("labels = %v, want %v", hyp.Labels, want)
	}
}

func TestGreedy_AllBlank(t *testing.T) {
	m := logMat(t, [][]float64{
		{0.9, 0.05, 0.05},
		{0.8, 0.1, 0.1},
		{0.9, 0.05, 0.05},
	})
	hyp := Greedy(m, 3, 0)
	if !hyp.Empty() {
		t.Fatalf("labels = %v, want empty", hyp.Labels)
	}
}

func TestGreedy_ZeroLength(t *testing.T) {
	hyp := Greedy(nil, 0, 0)
	if !hyp.Empty() {
		t.Fatalf("labels = %v, want empty", hyp.Labels)
	}
	if hyp.Score != 0 {
		t.Errorf("score = %f, want 0", hyp.Score)
	}
}

func TestGreedy_RespectsTrueLength(t *testing.T) {
	// Frames past the true length are padding and must not be read.
	m := logMat(t, [][]float64{
		{0.1, 0.8, 0.1},
		{0.7, 0.2, 0.1},
		{0.1, 0.1, 0.8},
	})
	hyp := Greedy(m, 2, 0)
	if want := []int{1}; !slices.Equal(hyp.Labels, want) {
		t.Fatalf("labels = %v, want %v", hyp.Labels, want)
	}
}

func TestGreedy_NonZeroBlankIndex(t *testing.T) {
	// blank=2: argmax path [0, 2, 0] collapses to [0, 0].
	m := logMat(t, [][]float64{
		{0.8, 0.1, 0.1},
		{0.1, 0.1, 0.8},
		{0.8, 0.1, 0.1},
	})
	hyp := Greedy(m, 3, 2)
	if want := []int{0, 0}; !slices.Equal(hyp.Labels, want) {
		t.Fatalf("labels = %v, want %v", hyp.Labels, want)
	}
}

func TestCollapse(t *testing.T) {
	tests := []struct {
		name  string
		path  []int
		blank int
		want  []int
	}{
		{"repeat then blank then new", []int{1, 1, 0, 2}, 0, []int{1, 2}},
		{"run without blank", []int{1, 1, 1}, 0, []int{1}},
		{"repeat across blank", []int{1, 0, 1}, 0, []int{1, 1}},
		{"all blank", []int{0, 0, 0}, 0, nil},
		{"empty", nil, 0, nil},
		{"leading and trailing blanks", []int{0, 1, 2, 2, 0}, 0, []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Collapse(tt.path, tt.blank); !slices.Equal(got, tt.want) {
				t.Errorf("Collapse(%v, %d) = %v, want %v", tt.path, tt.blank, got, tt.want)
			}
		})
	}
}
