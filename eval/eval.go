package eval

import (
	"context"
	"fmt"
	"math"
	"strconv"

	ctcdecode "github.com/alongwithyou/ctcdecode-go"
	"github.com/alongwithyou/ctcdecode-go/posterior"
	"github.com/alongwithyou/ctcdecode-go/vocab"
)

// Score is the per-utterance comparison of a decoded hypothesis
// against its reference. Labels and LogScore carry the raw decode
// result; Hyp is its rendered token form.
type Score struct {
	ID        string
	Labels    []int
	LogScore  float64
	Hyp       []string
	Counts    Counts
	RefTokens int
}

// Rate returns the utterance error rate: edits divided by reference
// length.
func (s Score) Rate() float64 {
	return rate(s.Counts.Errors(), s.RefTokens)
}

// Summary aggregates scores across a whole posterior set.
type Summary struct {
	Scores    []Score
	Missing   []string                   // utterances with no reference
	Failed    []*ctcdecode.SequenceError // utterances that failed to decode
	Counts    Counts
	RefTokens int
}

// Rate returns the corpus error rate over all scored utterances.
// Failed and unreferenced utterances do not contribute.
func (s *Summary) Rate() float64 {
	return rate(s.Counts.Errors(), s.RefTokens)
}

func rate(errors, refTokens int) float64 {
	if refTokens == 0 {
		if errors == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return float64(errors) / float64(refTokens)
}

// Runner decodes a posterior set and scores it against references.
type Runner struct {
	Decoder *ctcdecode.Decoder
	Symbols *vocab.Table // optional; nil renders label ids as decimal strings

	// CharLevel aligns at character granularity: both reference and
	// hypothesis tokens are split into single characters before
	// alignment, turning the reported rate into a character error
	// rate.
	CharLevel bool
}

// Run decodes every utterance in the set and aligns it against
// refs[utteranceID]. Utterances without a reference are decoded but
// only listed in Summary.Missing; utterances that fail validation end
// up in Summary.Failed with the rest of the set unaffected.
func (r *Runner) Run(ctx context.Context, set *posterior.Set, refs map[string][]string) (*Summary, error) {
	if r.Decoder == nil {
		return nil, fmt.Errorf("eval: Runner has no decoder")
	}

	batch, err := r.Decoder.DecodeBatch(ctx, set.Utterances)
	if err != nil {
		return nil, err
	}

	sum := &Summary{}
	for i := range set.Utterances {
		if seqErr := batch.Errors[i]; seqErr != nil {
			sum.Failed = append(sum.Failed, seqErr)
			continue
		}

		res := batch.Results[i]
		ref, ok := refs[res.ID]
		if !ok {
			sum.Missing = append(sum.Missing, res.ID)
			continue
		}

		hyp := r.render(res.Labels)
		refTok, hypTok := ref, hyp
		if r.CharLevel {
			refTok, hypTok = Chars(ref), Chars(hyp)
		}

		sc := Score{
			ID:        res.ID,
			Labels:    res.Labels,
			LogScore:  res.Score,
			Hyp:       hyp,
			RefTokens: len(refTok),
		}
		sc.Counts = Align(refTok, hypTok)

		sum.Scores = append(sum.Scores, sc)
		sum.Counts = sum.Counts.Add(sc.Counts)
		sum.RefTokens += sc.RefTokens
	}
	return sum, nil
}

func (r *Runner) render(labels []int) []string {
	if r.Symbols != nil {
		return r.Symbols.Render(labels)
	}
	out := make([]string, len(labels))
	for i, id := range labels {
		out[i] = strconv.Itoa(id)
	}
	return out
}

// Chars re-tokenizes a token sequence into single characters,
// dropping the token boundaries. Scoring the result against
// character references gives a character error rate from the same
// alignment machinery.
func Chars(tokens []string) []string {
	var out []string
	for _, tok := range tokens {
		for _, r := range tok {
			out = append(out, string(r))
		}
	}
	return out
}
