package ctc

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/alongwithyou/ctcdecode-go/internal/mathutil"
)

func randLogMat(rng *rand.Rand, frames, classes int) mathutil.Mat {
	m := mathutil.NewMat(frames, classes)
	for t := range m {
		sum := 0.0
		for c := range m[t] {
			m[t][c] = 0.05 + rng.Float64()
			sum += m[t][c]
		}
		for c := range m[t] {
			m[t][c] = math.Log(m[t][c] / sum)
		}
	}
	return m
}

// exhaustiveBest computes the exact CTC decision by enumerating every
// frame-level path, collapsing it, and summing each label sequence's
// probability mass. Only feasible for tiny inputs; it is the oracle the
// beam search is checked against.
func exhaustiveBest(m mathutil.Mat, length, blank int) ([]int, float64) {
	type seqMass struct {
		labels []int
		logp   float64
	}
	masses := make(map[string]*seqMass)
	path := make([]int, length)
	var walk func(t int, logp float64)
	walk = func(t int, logp float64) {
		if t == length {
			labels := Collapse(path, blank)
			key := fmt.Sprint(labels)
			sm, ok := masses[key]
			if !ok {
				masses[key] = &seqMass{labels: slices.Clone(labels), logp: logp}
				return
			}
			sm.logp = mathutil.LogAdd(sm.logp, logp)
			return
		}
		for c, p := range m[t] {
			path[t] = c
			walk(t+1, logp+p)
		}
	}
	walk(0, 0)

	var best *seqMass
	for _, sm := range masses {
		if best == nil || sm.logp > best.logp {
			best = sm
		}
	}
	return best.labels, best.logp
}

// A beam wide enough to hold every reachable prefix makes the search exact,
// so its decision and scores must match path enumeration.
func TestBeamSearch_MatchesExhaustiveEnumeration(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cases := []struct {
		frames, classes, blank int
	}{
		{5, 3, 0},
		{5, 3, 2},
		{4, 4, 0},
		{6, 3, 0},
	}
	for _, tc := range cases {
		for trial := 0; trial < 5; trial++ {
			m := randLogMat(rng, tc.frames, tc.classes)
			wantLabels, wantScore := exhaustiveBest(m, tc.frames, tc.blank)

			s := &BeamSearch{Width: 2000, Blank: tc.blank}
			hyp, err := s.Search(context.Background(), m, tc.frames)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if !slices.Equal(hyp.Labels, wantLabels) {
				t.Fatalf("T=%d V=%d blank=%d trial %d: labels = %v, want %v",
					tc.frames, tc.classes, tc.blank, trial, hyp.Labels, wantLabels)
			}
			if math.Abs(hyp.Score-wantScore) > 1e-9 {
				t.Fatalf("T=%d V=%d blank=%d trial %d: score = %.12f, want %.12f",
					tc.frames, tc.classes, tc.blank, trial, hyp.Score, wantScore)
			}
		}
	}
}

func TestBeamSearch_ArgmaxPathCases(t *testing.T) {
	tests := []struct {
		name string
		rows [][]float64
		want []int
	}{
		{
			"repeat collapses through blank",
			[][]float64{
				{0.1, 0.8, 0.1},
				{0.2, 0.7, 0.1},
				{0.7, 0.2, 0.1},
				{0.1, 0.2, 0.7},
			},
			[]int{1, 2},
		},
		{
			"run without blank is one label",
			[][]float64{
				{0.1, 0.8, 0.1},
				{0.1, 0.8, 0.1},
				{0.1, 0.8, 0.1},
			},
			[]int{1},
		},
		{
			"all blank is empty",
			[][]float64{
				{0.9, 0.05, 0.05},
				{0.8, 0.1, 0.1},
				{0.9, 0.05, 0.05},
			},
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := logMat(t, tt.rows)
			for _, width := range []int{1, 2, 8} {
				s := &BeamSearch{Width: width, Blank: 0}
				hyp, err := s.Search(context.Background(), m, len(tt.rows))
				if err != nil {
					t.Fatalf("width %d: %v", width, err)
				}
				if !slices.Equal(hyp.Labels, tt.want) {
					t.Errorf("width %d: labels = %v, want %v", width, hyp.Labels, tt.want)
				}
			}
		})
	}
}

func TestBeamSearch_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	m := randLogMat(rng, 12, 5)
	s := &BeamSearch{Width: 3, Blank: 0}

	first, err := s.SearchN(context.Background(), m, 12, 3)
	if err != nil {
		t.Fatalf("SearchN: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := s.SearchN(context.Background(), m, 12, 3)
		if err != nil {
			t.Fatalf("SearchN: %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("run %d: %d hypotheses, want %d", i, len(again), len(first))
		}
		for j := range first {
			if !slices.Equal(again[j].Labels, first[j].Labels) {
				t.Fatalf("run %d hyp %d: labels = %v, want %v", i, j, again[j].Labels, first[j].Labels)
			}
			if again[j].Score != first[j].Score {
				t.Fatalf("run %d hyp %d: score = %v, want bit-identical %v", i, j, again[j].Score, first[j].Score)
			}
		}
	}
}

// On these inputs each width's survivor set contains the narrower
// width's, so the winning score never degrades as the beam grows.
func TestBeamSearch_WiderBeamNeverScoresWorse(t *testing.T) {
	third := 1.0 / 3.0
	cases := [][][]float64{
		{
			{0.1, 0.8, 0.1},
			{0.2, 0.7, 0.1},
			{0.7, 0.2, 0.1},
			{0.1, 0.2, 0.7},
		},
		{
			{0.05, 0.9, 0.05},
			{0.70, 0.01, 0.29},
		},
		{
			{third, third, third},
		},
	}
	for ci, rows := range cases {
		m := logMat(t, rows)
		prev := math.Inf(-1)
		for width := 1; width <= 8; width++ {
			s := &BeamSearch{Width: width, Blank: 0}
			hyp, err := s.Search(context.Background(), m, len(rows))
			if err != nil {
				t.Fatalf("case %d width %d: %v", ci, width, err)
			}
			if hyp.Score < prev-1e-9 {
				t.Fatalf("case %d: score %f at width %d below %f at width %d",
					ci, hyp.Score, width, prev, width-1)
			}
			prev = hyp.Score
		}
	}
}

// Pruning can only drop path mass, so no narrow beam may report a score
// above the exact decision's mass.
func TestBeamSearch_PrunedScoreNeverExceedsExact(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 4; trial++ {
		m := randLogMat(rng, 8, 4)
		_, exact := exhaustiveBest(m, 8, 0)
		for width := 1; width <= 8; width++ {
			s := &BeamSearch{Width: width, Blank: 0}
			hyp, err := s.Search(context.Background(), m, 8)
			if err != nil {
				t.Fatalf("width %d: %v", width, err)
			}
			if hyp.Score > exact+1e-9 {
				t.Fatalf("trial %d width %d: score %f above exact %f",
					trial, width, hyp.Score, exact)
			}
		}
	}
}

// With a uniform frame every candidate ties on score; the documented order
// takes over: the prefix that already existed wins, then new prefixes by
// label order.
func TestBeamSearch_TieBreakOrder(t *testing.T) {
	third := 1.0 / 3.0
	m := logMat(t, [][]float64{{third, third, third}})
	s := &BeamSearch{Width: 10, Blank: 0}
	hyps, err := s.SearchN(context.Background(), m, 1, 3)
	if err != nil {
		t.Fatalf("SearchN: %v", err)
	}
	if len(hyps) != 3 {
		t.Fatalf("got %d hypotheses, want 3", len(hyps))
	}
	if !hyps[0].Empty() {
		t.Errorf("first = %v, want empty prefix", hyps[0].Labels)
	}
	if want := []int{1}; !slices.Equal(hyps[1].Labels, want) {
		t.Errorf("second = %v, want %v", hyps[1].Labels, want)
	}
	if want := []int{2}; !slices.Equal(hyps[2].Labels, want) {
		t.Errorf("third = %v, want %v", hyps[2].Labels, want)
	}

	// Under width 1 the same tie keeps only the carried-over prefix.
	s = &BeamSearch{Width: 1, Blank: 0}
	hyp, err := s.Search(context.Background(), m, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !hyp.Empty() {
		t.Errorf("width 1 survivor = %v, want empty prefix", hyp.Labels)
	}
}

func TestBeamSearch_LengthPenaltyFlipsSelection(t *testing.T) {
	// Candidate [1] has mass 0.9*0.7 + 0.9*0.01 + 0.05*0.01 = 0.6395;
	// candidate [1,2] has 0.9*0.29 = 0.261. Raw selection picks [1];
	// dividing by len^2 favors the longer candidate.
	rows := [][]float64{
		{0.05, 0.9, 0.05},
		{0.70, 0.01, 0.29},
	}
	m := logMat(t, rows)

	raw := &BeamSearch{Width: 10, Blank: 0}
	hyp, err := raw.Search(context.Background(), m, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if want := []int{1}; !slices.Equal(hyp.Labels, want) {
		t.Fatalf("raw labels = %v, want %v", hyp.Labels, want)
	}

	penalized := &BeamSearch{Width: 10, Blank: 0, LengthPenalty: 2}
	hyp, err = penalized.Search(context.Background(), m, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if want := []int{1, 2}; !slices.Equal(hyp.Labels, want) {
		t.Fatalf("penalized labels = %v, want %v", hyp.Labels, want)
	}
	// The normalization reorders the final selection only; the reported
	// score stays the raw log mass.
	if want := math.Log(0.261); math.Abs(hyp.Score-want) > 1e-9 {
		t.Errorf("penalized score = %f, want raw %f", hyp.Score, want)
	}
}

func TestBeamSearch_NBest(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	m := randLogMat(rng, 6, 4)
	s := &BeamSearch{Width: 8, Blank: 0}
	hyps, err := s.SearchN(context.Background(), m, 6, 5)
	if err != nil {
		t.Fatalf("SearchN: %v", err)
	}
	if len(hyps) != 5 {
		t.Fatalf("got %d hypotheses, want 5", len(hyps))
	}
	seen := make(map[string]bool)
	for i, h := range hyps {
		if i > 0 && h.Score > hyps[i-1].Score {
			t.Errorf("hyp %d score %f above previous %f", i, h.Score, hyps[i-1].Score)
		}
		if slices.Contains(h.Labels, 0) {
			t.Errorf("hyp %d contains blank: %v", i, h.Labels)
		}
		key := fmt.Sprint(h.Labels)
		if seen[key] {
			t.Errorf("hyp %d duplicates %v", i, h.Labels)
		}
		seen[key] = true
	}

	// Requests beyond the beam width cap at the surviving set.
	hyps, err = s.SearchN(context.Background(), m, 6, 100)
	if err != nil {
		t.Fatalf("SearchN: %v", err)
	}
	if len(hyps) > 8 {
		t.Errorf("got %d hypotheses, want at most the beam width 8", len(hyps))
	}

	// Negative requests yield no hypotheses.
	hyps, err = s.SearchN(context.Background(), m, 6, -3)
	if err != nil {
		t.Fatalf("SearchN: %v", err)
	}
	if len(hyps) != 0 {
		t.Errorf("got %d hypotheses for a negative request, want none", len(hyps))
	}
}

func TestBeamSearch_ZeroLength(t *testing.T) {
	s := &BeamSearch{Width: 4, Blank: 0}
	hyp, err := s.Search(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !hyp.Empty() {
		t.Fatalf("labels = %v, want empty", hyp.Labels)
	}
	if hyp.Score != 0 {
		t.Errorf("score = %f, want 0 (log probability of the empty output)", hyp.Score)
	}
}

func TestBeamSearch_CancelledContext(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	m := randLogMat(rng, 20, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &BeamSearch{Width: 4, Blank: 0}
	if _, err := s.Search(ctx, m, 20); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
