// Command postgen generates synthetic posterior sets for demos and
// CLI testing: each utterance gets a random label sequence, a CTC
// path realizing it, and per-frame posteriors peaked on that path.
// The matching reference transcripts (and optionally a symbol table)
// are written alongside, so the output feeds straight into
// "ctcd decode" and "ctcd eval".
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"

	"github.com/alongwithyou/ctcdecode-go/ctc"
	"github.com/alongwithyou/ctcdecode-go/internal/mathutil"
	"github.com/alongwithyou/ctcdecode-go/posterior"
)

type genConfig struct {
	utts      int
	minFrames int
	maxFrames int
	vocabSize int // internal size, blank included at index 0
	peak      float64
	confusion float64
}

func main() {
	output := flag.String("out", "", "output posterior set path (.ctcp)")
	refsPath := flag.String("refs", "", "also write reference transcripts (decimal label ids)")
	symbolsPath := flag.String("symbols", "", "also write a synthetic symbol table")
	utts := flag.Int("utts", 20, "number of utterances")
	minFrames := flag.Int("min-frames", 20, "minimum frames per utterance")
	maxFrames := flag.Int("max-frames", 60, "maximum frames per utterance")
	vocabSize := flag.Int("vocab", 30, "vocabulary size including blank")
	peak := flag.Float64("peak", 0.85, "probability mass on the planted class")
	confusion := flag.Float64("confusion", 0.2, "fraction of frames with a confusable second class")
	seed := flag.Int64("seed", 1, "random seed")

	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: postgen -out SET.ctcp [-refs REFS] [-symbols SYMS]")
		fmt.Fprintln(os.Stderr, "  Generate a synthetic posterior set with planted label paths.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *output == "" {
		flag.Usage()
		os.Exit(1)
	}
	cfg := genConfig{
		utts:      *utts,
		minFrames: *minFrames,
		maxFrames: *maxFrames,
		vocabSize: *vocabSize,
		peak:      *peak,
		confusion: *confusion,
	}
	if err := validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "postgen: %v\n", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	set, refs := generate(cfg, rng)

	if err := set.SaveFile(*output); err != nil {
		fmt.Fprintf(os.Stderr, "postgen: %v\n", err)
		os.Exit(1)
	}
	if *refsPath != "" {
		if err := writeRefs(*refsPath, refs); err != nil {
			fmt.Fprintf(os.Stderr, "postgen: %v\n", err)
			os.Exit(1)
		}
	}
	if *symbolsPath != "" {
		if err := writeSymbols(*symbolsPath, cfg.vocabSize-1); err != nil {
			fmt.Fprintf(os.Stderr, "postgen: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Fprintf(os.Stderr, "wrote %d utterances (vocab %d, frames %d-%d) to %s\n",
		cfg.utts, cfg.vocabSize, cfg.minFrames, cfg.maxFrames, *output)
}

func validate(cfg genConfig) error {
	if cfg.utts < 1 {
		return fmt.Errorf("utts must be at least 1")
	}
	if cfg.vocabSize < 2 {
		return fmt.Errorf("vocab must be at least 2")
	}
	if cfg.minFrames < 1 || cfg.maxFrames < cfg.minFrames {
		return fmt.Errorf("invalid frame range %d-%d", cfg.minFrames, cfg.maxFrames)
	}
	if cfg.peak <= 0 || cfg.peak >= 1 {
		return fmt.Errorf("peak must be in (0,1)")
	}
	if cfg.confusion < 0 || cfg.confusion > 1 {
		return fmt.Errorf("confusion must be in [0,1]")
	}
	return nil
}

// generate builds the set and the public-id reference transcripts
// that its greedy decode should reproduce.
func generate(cfg genConfig, rng *rand.Rand) (*posterior.Set, map[string][]int) {
	set := &posterior.Set{VocabSize: cfg.vocabSize, Blank: 0}
	refs := make(map[string][]int, cfg.utts)

	for i := 0; i < cfg.utts; i++ {
		id := fmt.Sprintf("utt%04d", i)
		frames := cfg.minFrames + rng.Intn(cfg.maxFrames-cfg.minFrames+1)
		path := randomPath(rng, frames, cfg.vocabSize)

		probs := mathutil.NewMat(frames, cfg.vocabSize)
		noise := (1 - cfg.peak) / float64(cfg.vocabSize-1)
		for f := 0; f < frames; f++ {
			mathutil.FillVec(probs[f], noise)
			probs[f][path[f]] = cfg.peak
			if rng.Float64() < cfg.confusion {
				other := 1 + rng.Intn(cfg.vocabSize-1)
				if other != path[f] {
					// Shift some mass to a confusable class; the
					// planted class stays the argmax.
					x := noise * rng.Float64()
					probs[f][other] += x
					probs[f][path[f]] -= x
				}
			}
		}

		set.Utterances = append(set.Utterances, posterior.FromProbs(id, probs, frames))

		labels := ctc.Collapse(path, 0)
		public := make([]int, len(labels))
		for j, c := range labels {
			public[j] = c - 1
		}
		refs[id] = public
	}
	return set, refs
}

// randomPath builds a frame-level class path: runs of blanks and
// labels, so collapsing it yields a plausible label sequence.
func randomPath(rng *rand.Rand, frames, vocabSize int) []int {
	path := make([]int, 0, frames)
	for len(path) < frames {
		// Blank run, possibly empty.
		for n := rng.Intn(3); n > 0 && len(path) < frames; n-- {
			path = append(path, 0)
		}
		if len(path) >= frames {
			break
		}
		label := 1 + rng.Intn(vocabSize-1)
		for n := 1 + rng.Intn(3); n > 0 && len(path) < frames; n-- {
			path = append(path, label)
		}
	}
	return path
}

func writeRefs(path string, refs map[string][]int) error {
	ids := make([]string, 0, len(refs))
	for id := range refs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, id := range ids {
		fmt.Fprint(f, id)
		for _, tok := range refs[id] {
			fmt.Fprintf(f, " %d", tok)
		}
		fmt.Fprintln(f)
	}
	return nil
}

func writeSymbols(path string, n int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for i := 0; i < n; i++ {
		fmt.Fprintf(f, "p%02d\n", i)
	}
	return nil
}
