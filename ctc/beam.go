package ctc

import (
	"context"
	"math"
	"slices"
	"sort"

	"github.com/alongwithyou/ctcdecode-go/internal/mathutil"
)

// BeamSearch is a prefix beam search over CTC posteriors. Each candidate
// prefix carries two log-domain masses: blank, the probability of frame
// paths that map to the prefix and end in the blank class, and label, the
// probability of paths ending in the prefix's final label. The split is what
// makes the collapsing rule exact: a repeated label can only start a new
// occurrence through the blank-ending mass.
//
// The zero value is not usable; construct with the width and blank index of
// the posterior space. All fields are read-only during Search, so one
// BeamSearch may serve concurrent calls.
type BeamSearch struct {
	// Width bounds the number of prefixes kept after each frame.
	Width int
	// Blank is the class index reserved for blank.
	Blank int
	// LengthPenalty is the exponent alpha of the final-selection
	// normalization score/len^alpha. Zero disables it. It reorders the
	// final candidates only; pruning during the search always uses the
	// raw total score.
	LengthPenalty float64
}

// beam is one candidate prefix during the frame loop.
//
// carried marks prefixes that survived the previous frame's pruning; the
// pruning tie-break prefers them over prefixes first created this frame.
// rank is scratch for sorting.
type beam struct {
	key     string
	labels  []int
	blank   float64
	label   float64
	carried bool
	rank    float64
}

func (b *beam) total() float64 {
	return mathutil.LogAdd(b.blank, b.label)
}

// appendKey extends a prefix key with one class index. Keys are fixed-width
// big-endian encodings, so equal-length keys compare in label order.
func appendKey(key string, c int) string {
	return key + string([]byte{byte(c >> 24), byte(c >> 16), byte(c >> 8), byte(c)})
}

// Search returns the best hypothesis for one log-posterior sequence of
// length frames. The context is checked between frames; a cancelled search
// returns the context's error and no hypothesis.
func (s *BeamSearch) Search(ctx context.Context, logProbs mathutil.Mat, length int) (Hypothesis, error) {
	hyps, err := s.SearchN(ctx, logProbs, length, 1)
	if err != nil {
		return Hypothesis{}, err
	}
	return hyps[0], nil
}

// SearchN returns up to n hypotheses in selection order. n is capped at the
// beam width since no more prefixes survive the final frame; a negative n
// yields no hypotheses. A Width below 1 behaves as 1.
func (s *BeamSearch) SearchN(ctx context.Context, logProbs mathutil.Mat, length, n int) ([]Hypothesis, error) {
	width := s.Width
	if width < 1 {
		width = 1
	}
	if n < 0 {
		n = 0
	}

	// The empty prefix starts with all probability mass on blank:
	// log(1) before any frame is consumed.
	root := &beam{blank: 0, label: mathutil.LogZero, carried: true}
	cur := []*beam{root}
	curKeys := map[string]struct{}{"": {}}

	for t := 0; t < length; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := logProbs[t]
		next := make(map[string]*beam, len(cur)*4)

		for _, b := range cur {
			total := b.total()
			last := -1
			if len(b.labels) > 0 {
				last = b.labels[len(b.labels)-1]
			}

			// Blank keeps the prefix as-is and moves all of its mass
			// into the blank-ending pool.
			nb := fetchBeam(next, curKeys, b.key, b.labels)
			nb.blank = mathutil.LogAdd(nb.blank, total+row[s.Blank])

			for c, p := range row {
				if c == s.Blank {
					continue
				}
				if c == last {
					// Repeat without an intervening blank merges into
					// the existing occurrence: only the label-ending
					// mass may stay.
					if b.label > mathutil.LogZero+1 {
						nb.label = mathutil.LogAdd(nb.label, b.label+p)
					}
					// A second occurrence is reachable only through
					// the blank-ending mass.
					if b.blank > mathutil.LogZero+1 {
						eb := fetchBeam(next, curKeys, appendKey(b.key, c), appendLabels(b.labels, c))
						eb.label = mathutil.LogAdd(eb.label, b.blank+p)
					}
					continue
				}
				eb := fetchBeam(next, curKeys, appendKey(b.key, c), appendLabels(b.labels, c))
				eb.label = mathutil.LogAdd(eb.label, total+p)
			}
		}

		cur = pruneBeams(next, width)
		curKeys = make(map[string]struct{}, len(cur))
		for _, b := range cur {
			curKeys[b.key] = struct{}{}
		}
	}

	// Final selection reorders by the normalized score when a length
	// penalty is configured; reported scores stay raw log totals.
	for _, b := range cur {
		b.rank = s.finalRank(b)
	}
	sortBeams(cur)

	if n > len(cur) {
		n = len(cur)
	}
	hyps := make([]Hypothesis, n)
	for i := 0; i < n; i++ {
		hyps[i] = Hypothesis{Labels: cur[i].labels, Score: cur[i].total()}
	}
	return hyps, nil
}

func (s *BeamSearch) finalRank(b *beam) float64 {
	total := b.total()
	if s.LengthPenalty == 0 {
		return total
	}
	l := len(b.labels)
	if l < 1 {
		l = 1
	}
	return total / math.Pow(float64(l), s.LengthPenalty)
}

// fetchBeam returns the accumulation target for a prefix in the next frame's
// set, creating it with empty mass on first touch. A created beam counts as
// carried when the same prefix already survived the previous prune.
func fetchBeam(next map[string]*beam, curKeys map[string]struct{}, key string, labels []int) *beam {
	b, ok := next[key]
	if !ok {
		_, carried := curKeys[key]
		b = &beam{key: key, labels: labels, blank: mathutil.LogZero, label: mathutil.LogZero, carried: carried}
		next[key] = b
	}
	return b
}

func appendLabels(labels []int, c int) []int {
	out := make([]int, len(labels)+1)
	copy(out, labels)
	out[len(labels)] = c
	return out
}

// pruneBeams keeps the width best prefixes by total score. The tie-break is
// fixed: a prefix that existed before this frame beats a new one, then the
// shorter prefix, then the lexicographically smaller label sequence. The
// order is total, so the surviving set does not depend on map iteration.
func pruneBeams(next map[string]*beam, width int) []*beam {
	out := make([]*beam, 0, len(next))
	for _, b := range next {
		b.rank = b.total()
		out = append(out, b)
	}
	sortBeams(out)
	if len(out) > width {
		out = out[:width]
	}
	return out
}

func sortBeams(bs []*beam) {
	sort.Slice(bs, func(i, j int) bool {
		bi, bj := bs[i], bs[j]
		if bi.rank != bj.rank {
			return bi.rank > bj.rank
		}
		if bi.carried != bj.carried {
			return bi.carried
		}
		if len(bi.labels) != len(bj.labels) {
			return len(bi.labels) < len(bj.labels)
		}
		return slices.Compare(bi.labels, bj.labels) < 0
	})
}
