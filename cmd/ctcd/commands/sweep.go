package commands

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/alongwithyou/ctcdecode-go/eval"
)

var (
	sweepSet     string
	sweepRefs    string
	sweepVocab   string
	sweepBeams   string
	sweepAlphas  string
	sweepBlank   int
	sweepWorkers int
	sweepUnit    string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Grid-search beam width and length penalty",
	Long: `Evaluate every combination of --beams and --alphas against a
reference corpus and print the grid ranked by error rate, best first.

Combinations run in parallel; each combination decodes the whole set
on a single worker so the grid saturates the available CPUs.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().StringVar(&sweepSet, "set", "", "posterior set file (.ctcp)")
	sweepCmd.Flags().StringVar(&sweepRefs, "refs", "", "reference transcript file")
	sweepCmd.Flags().StringVar(&sweepVocab, "vocab", "", "symbol table file")
	sweepCmd.Flags().StringVar(&sweepBeams, "beams", "1,2,4,8", "comma-separated beam widths")
	sweepCmd.Flags().StringVar(&sweepAlphas, "alphas", "0,0.5,1", "comma-separated length penalty exponents")
	sweepCmd.Flags().IntVar(&sweepBlank, "blank", 0, "blank class index")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 0, "parallel combinations (default: NumCPU)")
	sweepCmd.Flags().StringVar(&sweepUnit, "unit", "word", "alignment unit: word or char")
	rootCmd.AddCommand(sweepCmd)
}

type sweepResult struct {
	beam  int
	alpha float64
	sum   *eval.Summary
	err   error
}

func runSweep(cmd *cobra.Command, args []string) error {
	if sweepSet == "" {
		return fmt.Errorf("--set is required")
	}
	if sweepRefs == "" {
		return fmt.Errorf("--refs is required")
	}
	if sweepUnit != "word" && sweepUnit != "char" {
		return fmt.Errorf("invalid --unit %q: want word or char", sweepUnit)
	}

	beams, err := parseInts(sweepBeams)
	if err != nil {
		return fmt.Errorf("--beams: %w", err)
	}
	alphas, err := parseFloats(sweepAlphas)
	if err != nil {
		return fmt.Errorf("--alphas: %w", err)
	}

	vocabPath := resolveString(cmd, "vocab", sweepVocab, globalConfig.Vocab)
	set, tab, err := loadInputs(sweepSet, vocabPath)
	if err != nil {
		return err
	}
	refs, err := eval.LoadRefsFile(sweepRefs)
	if err != nil {
		return err
	}
	blank := effectiveBlank(cmd, sweepBlank, set)

	workers := resolveInt(cmd, "workers", sweepWorkers, globalConfig.Workers)
	if workers < 1 {
		workers = defaultWorkers()
	}

	var grid []sweepResult
	for _, b := range beams {
		for _, a := range alphas {
			grid = append(grid, sweepResult{beam: b, alpha: a})
		}
	}
	slog.Info("sweeping", "combinations", len(grid), "utterances", len(set.Utterances), "workers", workers)

	ctx, cancel := signalContext()
	defer cancel()

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for gi := range grid {
		wg.Add(1)
		sem <- struct{}{}
		go func(r *sweepResult) {
			defer wg.Done()
			defer func() { <-sem }()

			d, err := newDecoder(set.VocabSize, blank, r.beam, r.alpha, 1)
			if err != nil {
				r.err = err
				return
			}
			runner := &eval.Runner{Decoder: d, Symbols: tab, CharLevel: sweepUnit == "char"}
			r.sum, r.err = runner.Run(ctx, set, refs)
		}(&grid[gi])
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range grid {
		if r.err != nil {
			return fmt.Errorf("beam %d alpha %g: %w", r.beam, r.alpha, r.err)
		}
	}

	// Best rate first; ties go to the cheaper configuration.
	sort.Slice(grid, func(i, j int) bool {
		ri, rj := grid[i].sum.Rate(), grid[j].sum.Rate()
		if ri != rj {
			return ri < rj
		}
		if grid[i].beam != grid[j].beam {
			return grid[i].beam < grid[j].beam
		}
		return grid[i].alpha < grid[j].alpha
	})

	fmt.Println(titleStyle.Render("Sweep results"))
	fmt.Printf("%-6s %-7s %9s %6s %6s %6s %7s %7s\n",
		"beam", "alpha", "rate", "sub", "del", "ins", "ref", "failed")
	fmt.Println(strings.Repeat("-", 60))
	for i, r := range grid {
		line := fmt.Sprintf("%-6d %-7.2f %8.2f%% %6d %6d %6d %7d %7d",
			r.beam, r.alpha, r.sum.Rate()*100,
			r.sum.Counts.Sub, r.sum.Counts.Del, r.sum.Counts.Ins,
			r.sum.RefTokens, len(r.sum.Failed))
		if i == 0 {
			line = labelStyle.Render(line)
		}
		fmt.Println(line)
	}
	return nil
}

func parseInts(s string) ([]int, error) {
	var vals []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid int %q", part)
		}
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	return vals, nil
}

func parseFloats(s string) ([]float64, error) {
	var vals []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q", part)
		}
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	return vals, nil
}
