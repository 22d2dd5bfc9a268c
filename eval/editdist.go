// Package eval scores decoded hypotheses against reference
// transcripts using token edit distance.
package eval

// Counts breaks an edit distance down by operation, taking the
// reference as ground truth: a substitution replaces a reference
// token, a deletion drops one, an insertion adds a spurious token.
type Counts struct {
	Sub int
	Del int
	Ins int
}

// Errors returns the total edit distance.
func (c Counts) Errors() int {
	return c.Sub + c.Del + c.Ins
}

// Add accumulates another count set.
func (c Counts) Add(o Counts) Counts {
	return Counts{Sub: c.Sub + o.Sub, Del: c.Del + o.Del, Ins: c.Ins + o.Ins}
}

// Distance computes the Levenshtein edit distance between a reference
// and a hypothesis token sequence.
func Distance[T comparable](ref, hyp []T) int {
	lr, lh := len(ref), len(hyp)
	if lr == 0 {
		return lh
	}
	if lh == 0 {
		return lr
	}

	// Use single-row DP to save memory.
	prev := make([]int, lh+1)
	for j := 0; j <= lh; j++ {
		prev[j] = j
	}

	for i := 1; i <= lr; i++ {
		cur := make([]int, lh+1)
		cur[0] = i
		for j := 1; j <= lh; j++ {
			cost := 1
			if ref[i-1] == hyp[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			cur[j] = m
		}
		prev = cur
	}
	return prev[lh]
}

// Align computes the edit distance between a reference and a
// hypothesis and splits it into substitution, deletion and insertion
// counts. It keeps the full DP matrix for the backtrace, so where
// only the distance matters Distance is the cheaper call.
//
// When several alignments share the minimum distance, ties resolve
// substitution first, then deletion, then insertion, so repeated runs
// report identical counts.
func Align[T comparable](ref, hyp []T) Counts {
	lr, lh := len(ref), len(hyp)
	if lr == 0 {
		return Counts{Ins: lh}
	}
	if lh == 0 {
		return Counts{Del: lr}
	}

	d := make([][]int, lr+1)
	for i := range d {
		d[i] = make([]int, lh+1)
		d[i][0] = i
	}
	for j := 0; j <= lh; j++ {
		d[0][j] = j
	}

	for i := 1; i <= lr; i++ {
		for j := 1; j <= lh; j++ {
			cost := 1
			if ref[i-1] == hyp[j-1] {
				cost = 0
			}
			del := d[i-1][j] + 1
			ins := d[i][j-1] + 1
			sub := d[i-1][j-1] + cost
			m := sub
			if del < m {
				m = del
			}
			if ins < m {
				m = ins
			}
			d[i][j] = m
		}
	}

	var c Counts
	i, j := lr, lh
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && d[i][j] == d[i-1][j-1] && ref[i-1] == hyp[j-1]:
			i--
			j--
		case i > 0 && j > 0 && d[i][j] == d[i-1][j-1]+1:
			c.Sub++
			i--
			j--
		case i > 0 && d[i][j] == d[i-1][j]+1:
			c.Del++
			i--
		default:
			c.Ins++
			j--
		}
	}
	return c
}
