package ctcdecode

import (
	"slices"
	"strings"
	"testing"

	"github.com/alongwithyou/ctcdecode-go/ctc"
	"github.com/alongwithyou/ctcdecode-go/internal/mathutil"
	"github.com/alongwithyou/ctcdecode-go/posterior"
)

func TestAssemble_ShiftsOutTheBlankSlot(t *testing.T) {
	tests := []struct {
		name    string
		vocab   int
		blank   int
		labels  []int
		want    []int
	}{
		{"blank zero", 4, 0, []int{1, 3, 2}, []int{0, 2, 1}},
		{"blank in the middle", 4, 2, []int{0, 1, 3}, []int{0, 1, 2}},
		{"blank at the top", 4, 3, []int{0, 2, 1}, []int{0, 2, 1}},
		{"empty hypothesis", 4, 0, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.vocab, WithBlankIndex(tt.blank))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			m := posterior.Matrix{ID: "u"}
			r, err := d.assemble(m, ctc.Hypothesis{Labels: tt.labels, Score: -1.5})
			if err != nil {
				t.Fatalf("assemble: %v", err)
			}
			if !slices.Equal(r.Labels, tt.want) {
				t.Errorf("labels = %v, want %v", r.Labels, tt.want)
			}
			if r.Score != -1.5 {
				t.Errorf("score = %v, want -1.5", r.Score)
			}
		})
	}
}

func TestAssemble_RejectsBlankInHypothesis(t *testing.T) {
	d, err := New(4, WithBlankIndex(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = d.assemble(posterior.Matrix{ID: "u"}, ctc.Hypothesis{Labels: []int{0, 1, 2}})
	if err == nil {
		t.Fatal("assemble accepted a blank in the hypothesis")
	}
	if !strings.Contains(err.Error(), "position 1") {
		t.Errorf("error should name the position: %v", err)
	}
}

func TestAssemble_CopiesFrames(t *testing.T) {
	d, err := New(3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	frames := []int{0, 4}
	r, err := d.assemble(posterior.Matrix{ID: "u"}, ctc.Hypothesis{Labels: []int{1, 2}, Frames: frames})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	frames[0] = 99
	if want := []int{0, 4}; !slices.Equal(r.Frames, want) {
		t.Errorf("frames = %v, want %v detached from the hypothesis", r.Frames, want)
	}
}

// The trace covers the consumed rows only, not the padding.
func TestAssemble_TraceStopsAtTrueLength(t *testing.T) {
	d, err := New(3, WithTrace(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m := posterior.Matrix{
		ID:       "u",
		LogProbs: mathutil.NewMatFill(3, 3, -1),
		Length:   2,
	}
	r, err := d.assemble(m, ctc.Hypothesis{Labels: []int{1}})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(r.Posteriors) != 2 {
		t.Fatalf("trace rows = %d, want the true length 2", len(r.Posteriors))
	}
}
