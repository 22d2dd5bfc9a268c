package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alongwithyou/ctcdecode-go/eval"
	"github.com/alongwithyou/ctcdecode-go/internal/runstore"
	"github.com/alongwithyou/ctcdecode-go/posterior"
)

var (
	evalSet     string
	evalRefs    string
	evalVocab   string
	evalBeam    int
	evalAlpha   float64
	evalBlank   int
	evalWorkers int
	evalUnit    string
	evalStore   string
	evalRunID   string
	evalChunk   int
	evalPerUtt  bool
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Decode and score a corpus against reference transcripts",
	Long: `Decode every utterance in a posterior set, align the hypotheses
against reference transcripts and print an error-rate summary.

References are plain text, one utterance per line:

  uttID token1 token2 token3 ...

With --store, per-utterance records are persisted in a BadgerDB
directory under a run id, and a later invocation with the same
--store and --run-id skips utterances that already have a record.`,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&evalSet, "set", "", "posterior set file (.ctcp)")
	evalCmd.Flags().StringVar(&evalRefs, "refs", "", "reference transcript file")
	evalCmd.Flags().StringVar(&evalVocab, "vocab", "", "symbol table file")
	evalCmd.Flags().IntVar(&evalBeam, "beam", 1, "beam width (1 = greedy)")
	evalCmd.Flags().Float64Var(&evalAlpha, "alpha", 0, "length penalty exponent")
	evalCmd.Flags().IntVar(&evalBlank, "blank", 0, "blank class index")
	evalCmd.Flags().IntVar(&evalWorkers, "workers", 0, "parallel workers (default: NumCPU)")
	evalCmd.Flags().StringVar(&evalUnit, "unit", "word", "alignment unit: word or char")
	evalCmd.Flags().StringVar(&evalStore, "store", "", "run store directory (enables resume)")
	evalCmd.Flags().StringVar(&evalRunID, "run-id", "", "run id to resume (default: new run)")
	evalCmd.Flags().IntVar(&evalChunk, "chunk", 32, "utterances decoded between store writes")
	evalCmd.Flags().BoolVar(&evalPerUtt, "per-utt", false, "print per-utterance scores")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	if evalSet == "" {
		return fmt.Errorf("--set is required")
	}
	if evalRefs == "" {
		return fmt.Errorf("--refs is required")
	}
	if evalUnit != "word" && evalUnit != "char" {
		return fmt.Errorf("invalid --unit %q: want word or char", evalUnit)
	}
	if evalRunID != "" && evalStore == "" {
		return fmt.Errorf("--run-id needs --store")
	}

	beam := resolveInt(cmd, "beam", evalBeam, globalConfig.BeamWidth)
	alpha := resolveFloat(cmd, "alpha", evalAlpha, globalConfig.LengthPenalty)
	workers := resolveInt(cmd, "workers", evalWorkers, globalConfig.Workers)
	vocabPath := resolveString(cmd, "vocab", evalVocab, globalConfig.Vocab)

	set, tab, err := loadInputs(evalSet, vocabPath)
	if err != nil {
		return err
	}
	refs, err := eval.LoadRefsFile(evalRefs)
	if err != nil {
		return err
	}
	blank := effectiveBlank(cmd, evalBlank, set)

	d, err := newDecoder(set.VocabSize, blank, beam, alpha, workers)
	if err != nil {
		return err
	}
	runner := &eval.Runner{Decoder: d, Symbols: tab, CharLevel: evalUnit == "char"}

	var store *runstore.Store
	runID := evalRunID
	resumed := make(map[string]runstore.Record)
	if evalStore != "" {
		store, err = runstore.Open(runstore.Options{Dir: evalStore})
		if err != nil {
			return err
		}
		defer store.Close()

		meta := runstore.Meta{Beam: beam, Alpha: alpha, Blank: blank, Unit: evalUnit}
		if runID == "" {
			runID = runstore.NewRunID()
			if err := store.PutMeta(runID, meta); err != nil {
				return err
			}
		} else {
			if err := checkRunMeta(store, runID, meta); err != nil {
				return err
			}
			inSet := make(map[string]bool, len(set.Utterances))
			for i := range set.Utterances {
				inSet[set.Utterances[i].ID] = true
			}
			for rec, err := range store.List(runID) {
				if err != nil {
					return err
				}
				if inSet[rec.Utt] {
					resumed[rec.Utt] = rec
				}
			}
		}
		slog.Info("run store open", "dir", evalStore, "run", runID, "resumed", len(resumed))
	}

	pending := make([]posterior.Matrix, 0, len(set.Utterances))
	for i := range set.Utterances {
		if _, ok := resumed[set.Utterances[i].ID]; !ok {
			pending = append(pending, set.Utterances[i])
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	total := &eval.Summary{}
	chunk := evalChunk
	if store == nil || chunk < 1 {
		chunk = len(pending)
	}
	for start := 0; start < len(pending); start += chunk {
		end := min(start+chunk, len(pending))
		sub := &posterior.Set{VocabSize: set.VocabSize, Blank: set.Blank, Utterances: pending[start:end]}

		sum, err := runner.Run(ctx, sub, refs)
		if err != nil {
			if store != nil && ctx.Err() != nil {
				return fmt.Errorf("interrupted; resume with --store %s --run-id %s: %w", evalStore, runID, err)
			}
			return err
		}

		if store != nil {
			if err := persistChunk(store, runID, sum); err != nil {
				return err
			}
		}
		mergeSummary(total, sum)

		// Cancellation inside a chunk surfaces as per-utterance failures;
		// stop here instead of reporting them as decode errors.
		if err := ctx.Err(); err != nil {
			if store != nil {
				return fmt.Errorf("interrupted; resume with --store %s --run-id %s: %w", evalStore, runID, err)
			}
			return err
		}
	}

	resumedScored, resumedFailed := 0, 0
	for _, rec := range resumed {
		if rec.Failed != "" {
			resumedFailed++
			slog.Warn("utterance failed (stored)", "id", rec.Utt, "err", rec.Failed)
			continue
		}
		resumedScored++
		total.Counts = total.Counts.Add(eval.Counts{Sub: rec.Sub, Del: rec.Del, Ins: rec.Ins})
		total.RefTokens += rec.RefTokens
	}

	for _, seqErr := range total.Failed {
		slog.Warn("utterance failed", "id", seqErr.ID, "err", seqErr.Err)
	}

	printEvalSummary(total, resumedScored, resumedFailed, runID)
	if len(total.Scores) == 0 && resumedScored == 0 && len(total.Failed)+resumedFailed > 0 {
		return fmt.Errorf("all %d utterances failed to decode", len(total.Failed)+resumedFailed)
	}
	return nil
}

func persistChunk(store *runstore.Store, runID string, sum *eval.Summary) error {
	for _, sc := range sum.Scores {
		rec := runstore.Record{
			Utt:       sc.ID,
			Labels:    sc.Labels,
			Score:     sc.LogScore,
			Hyp:       sc.Hyp,
			Sub:       sc.Counts.Sub,
			Del:       sc.Counts.Del,
			Ins:       sc.Counts.Ins,
			RefTokens: sc.RefTokens,
		}
		if err := store.Put(runID, rec); err != nil {
			return err
		}
	}
	for _, seqErr := range sum.Failed {
		// A cancelled sequence says nothing about the utterance; leave
		// no record so a resumed run decodes it.
		if errors.Is(seqErr, context.Canceled) || errors.Is(seqErr, context.DeadlineExceeded) {
			continue
		}
		rec := runstore.Record{Utt: seqErr.ID, Failed: seqErr.Err.Error()}
		if err := store.Put(runID, rec); err != nil {
			return err
		}
	}
	return nil
}

// checkRunMeta compares the current decode parameters against the ones
// the run was started with and warns on differences. A run recorded
// without parameters adopts the current ones.
func checkRunMeta(store *runstore.Store, runID string, meta runstore.Meta) error {
	stored, err := store.GetMeta(runID)
	if errors.Is(err, runstore.ErrNotFound) {
		return store.PutMeta(runID, meta)
	}
	if err != nil {
		return err
	}
	if diffs := metaDiffs(stored, meta); len(diffs) > 0 {
		slog.Warn("decode parameters differ from the stored run",
			"run", runID, "diffs", strings.Join(diffs, ", "))
	}
	return nil
}

// metaDiffs lists the decode parameters that differ from a stored
// run's.
func metaDiffs(stored, cur runstore.Meta) []string {
	var diffs []string
	if stored.Beam != cur.Beam {
		diffs = append(diffs, fmt.Sprintf("beam %d (run used %d)", cur.Beam, stored.Beam))
	}
	if stored.Alpha != cur.Alpha {
		diffs = append(diffs, fmt.Sprintf("alpha %g (run used %g)", cur.Alpha, stored.Alpha))
	}
	if stored.Blank != cur.Blank {
		diffs = append(diffs, fmt.Sprintf("blank %d (run used %d)", cur.Blank, stored.Blank))
	}
	if stored.Unit != cur.Unit {
		diffs = append(diffs, fmt.Sprintf("unit %s (run used %s)", cur.Unit, stored.Unit))
	}
	return diffs
}

func mergeSummary(dst, src *eval.Summary) {
	dst.Scores = append(dst.Scores, src.Scores...)
	dst.Missing = append(dst.Missing, src.Missing...)
	dst.Failed = append(dst.Failed, src.Failed...)
	dst.Counts = dst.Counts.Add(src.Counts)
	dst.RefTokens += src.RefTokens
}

func printEvalSummary(sum *eval.Summary, resumedScored, resumedFailed int, runID string) {
	if evalPerUtt {
		fmt.Println(titleStyle.Render("Per-utterance"))
		fmt.Printf("%-20s %8s %5s %5s %5s %6s\n", "utt", "rate", "sub", "del", "ins", "ref")
		fmt.Println(strings.Repeat("-", 54))
		for _, sc := range sum.Scores {
			fmt.Printf("%-20s %7.2f%% %5d %5d %5d %6d\n",
				sc.ID, sc.Rate()*100, sc.Counts.Sub, sc.Counts.Del, sc.Counts.Ins, sc.RefTokens)
		}
		fmt.Println()
	}

	unitName := "token"
	if evalUnit == "char" {
		unitName = "char"
	}

	fmt.Println(titleStyle.Render("Evaluation"))
	fmt.Printf("  %s %.2f%%  (S=%d D=%d I=%d / %d ref %ss)\n",
		labelStyle.Render("Error rate "), sum.Rate()*100,
		sum.Counts.Sub, sum.Counts.Del, sum.Counts.Ins, sum.RefTokens, unitName)

	line := fmt.Sprintf("%d scored", len(sum.Scores)+resumedScored)
	if resumedScored > 0 {
		line += fmt.Sprintf(" (%d resumed)", resumedScored)
	}
	if n := len(sum.Failed) + resumedFailed; n > 0 {
		line += fmt.Sprintf(", %d failed", n)
	}
	if n := len(sum.Missing); n > 0 {
		line += fmt.Sprintf(", %d without references", n)
	}
	fmt.Printf("  %s %s\n", labelStyle.Render("Utterances "), line)

	if runID != "" {
		fmt.Printf("  %s\n", dimStyle.Render("run "+runID))
	}
}
