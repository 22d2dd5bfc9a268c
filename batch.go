package ctcdecode

import (
	"context"
	"sort"
	"sync"

	"github.com/alongwithyou/ctcdecode-go/posterior"
)

// BatchResult holds per-sequence outcomes in the caller's input order.
// Exactly one of Results[i] and Errors[i] is set for every i.
type BatchResult struct {
	Results []*Result
	Errors  []*SequenceError
}

// Ok reports whether every sequence decoded.
func (r *BatchResult) Ok() bool {
	for _, e := range r.Errors {
		if e != nil {
			return false
		}
	}
	return true
}

// Failed returns the input indices that did not decode.
func (r *BatchResult) Failed() []int {
	var idx []int
	for i, e := range r.Errors {
		if e != nil {
			idx = append(idx, i)
		}
	}
	return idx
}

// DecodeBatch decodes a batch of utterances, one worker per sequence up to
// the configured pool size. Sequences are handed to workers in descending
// length order (matching the upstream producer's padding order) unless
// length sorting is disabled; results always land at their caller index. A
// bad sequence fails alone: its slot carries a SequenceError and every
// other sequence still decodes.
func (d *Decoder) DecodeBatch(ctx context.Context, batch []posterior.Matrix) (*BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &BatchResult{
		Results: make([]*Result, len(batch)),
		Errors:  make([]*SequenceError, len(batch)),
	}
	if len(batch) == 0 {
		return res, nil
	}

	// Submission order: descending true length, stable so equal lengths
	// keep their input order. The permutation stays internal; writing
	// results by original index restores caller order.
	order := make([]int, len(batch))
	for i := range order {
		order[i] = i
	}
	if d.sortByLength {
		sort.SliceStable(order, func(a, b int) bool {
			return batch[order[a]].Length > batch[order[b]].Length
		})
	}

	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup
	for _, idx := range order {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, m posterior.Matrix) {
			defer wg.Done()
			defer func() { <-sem }()
			r, err := d.Decode(ctx, m)
			if err != nil {
				res.Errors[idx] = &SequenceError{Index: idx, ID: m.ID, Err: err}
				return
			}
			res.Results[idx] = r
		}(idx, batch[idx])
	}
	wg.Wait()

	return res, nil
}
