package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	ctcdecode "github.com/alongwithyou/ctcdecode-go"
	"github.com/alongwithyou/ctcdecode-go/posterior"
	"github.com/alongwithyou/ctcdecode-go/vocab"
)

var (
	decodeSet     string
	decodeVocab   string
	decodeBeam    int
	decodeAlpha   float64
	decodeBlank   int
	decodeWorkers int
	decodeNBest   int
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a posterior set and print hypotheses",
	Long: `Decode every utterance in a posterior set and print one line per
hypothesis to stdout:

  uttID<TAB>score<TAB>token token token ...

With --nbest N each utterance prints N lines with a rank column after
the id. Tokens are symbols when --vocab is given, decimal label ids
otherwise. Utterances that fail validation are reported on stderr and
skipped.`,
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().StringVar(&decodeSet, "set", "", "posterior set file (.ctcp)")
	decodeCmd.Flags().StringVar(&decodeVocab, "vocab", "", "symbol table file")
	decodeCmd.Flags().IntVar(&decodeBeam, "beam", 1, "beam width (1 = greedy)")
	decodeCmd.Flags().Float64Var(&decodeAlpha, "alpha", 0, "length penalty exponent")
	decodeCmd.Flags().IntVar(&decodeBlank, "blank", 0, "blank class index")
	decodeCmd.Flags().IntVar(&decodeWorkers, "workers", 0, "parallel workers (default: NumCPU)")
	decodeCmd.Flags().IntVar(&decodeNBest, "nbest", 1, "hypotheses per utterance")
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	if decodeSet == "" {
		return fmt.Errorf("--set is required")
	}
	if decodeNBest < 1 {
		return fmt.Errorf("--nbest must be at least 1")
	}

	beam := resolveInt(cmd, "beam", decodeBeam, globalConfig.BeamWidth)
	alpha := resolveFloat(cmd, "alpha", decodeAlpha, globalConfig.LengthPenalty)
	workers := resolveInt(cmd, "workers", decodeWorkers, globalConfig.Workers)
	vocabPath := resolveString(cmd, "vocab", decodeVocab, globalConfig.Vocab)

	set, tab, err := loadInputs(decodeSet, vocabPath)
	if err != nil {
		return err
	}
	blank := effectiveBlank(cmd, decodeBlank, set)

	d, err := newDecoder(set.VocabSize, blank, beam, alpha, workers)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	slog.Debug("decoding", "utterances", len(set.Utterances), "beam", beam, "alpha", alpha, "blank", blank)

	if decodeNBest > 1 {
		return decodeWithNBest(ctx, d, set, tab)
	}

	batch, err := d.DecodeBatch(ctx, set.Utterances)
	if err != nil {
		return err
	}

	failed := 0
	for i := range set.Utterances {
		if seqErr := batch.Errors[i]; seqErr != nil {
			slog.Warn("utterance skipped", "id", seqErr.ID, "err", seqErr.Err)
			failed++
			continue
		}
		res := batch.Results[i]
		fmt.Printf("%s\t%.4f\t%s\n", res.ID, res.Score, strings.Join(renderTokens(tab, res.Labels), " "))
	}

	if failed == len(set.Utterances) && failed > 0 {
		return fmt.Errorf("all %d utterances failed to decode", failed)
	}
	return nil
}

func decodeWithNBest(ctx context.Context, d *ctcdecode.Decoder, set *posterior.Set, tab *vocab.Table) error {
	failed := 0
	for i := range set.Utterances {
		m := &set.Utterances[i]
		results, err := d.DecodeNBest(ctx, *m, decodeNBest)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("utterance skipped", "id", m.ID, "err", err)
			failed++
			continue
		}
		for rank, res := range results {
			fmt.Printf("%s\t%d\t%.4f\t%s\n", res.ID, rank+1, res.Score, strings.Join(renderTokens(tab, res.Labels), " "))
		}
	}

	if failed == len(set.Utterances) && failed > 0 {
		return fmt.Errorf("all %d utterances failed to decode", failed)
	}
	return nil
}
