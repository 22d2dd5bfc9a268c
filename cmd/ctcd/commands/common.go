package commands

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	ctcdecode "github.com/alongwithyou/ctcdecode-go"
	"github.com/alongwithyou/ctcdecode-go/posterior"
	"github.com/alongwithyou/ctcdecode-go/vocab"
)

// Styles for terminal output.
var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	labelStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
)

// defaultWorkers is the fallback parallelism for grid sweeps.
func defaultWorkers() int {
	return runtime.NumCPU()
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

// loadInputs reads a posterior set and an optional symbol table.
func loadInputs(setPath, vocabPath string) (*posterior.Set, *vocab.Table, error) {
	set, err := posterior.LoadSetFile(setPath)
	if err != nil {
		return nil, nil, err
	}
	var tab *vocab.Table
	if vocabPath != "" {
		tab, err = vocab.LoadFile(vocabPath)
		if err != nil {
			return nil, nil, err
		}
	}
	return set, tab, nil
}

// newDecoder builds a decoder from resolved settings. A workers value
// of zero keeps the decoder's own default.
func newDecoder(vocabSize, blank, beam int, alpha float64, workers int) (*ctcdecode.Decoder, error) {
	opts := []ctcdecode.Option{
		ctcdecode.WithBlankIndex(blank),
		ctcdecode.WithBeamWidth(beam),
		ctcdecode.WithLengthPenalty(alpha),
	}
	if workers > 0 {
		opts = append(opts, ctcdecode.WithWorkers(workers))
	}
	return ctcdecode.New(vocabSize, opts...)
}

// effectiveBlank resolves the blank index: an explicit --blank flag
// wins, then the set file's own declaration (a declared blank 0
// counts), then the config file.
func effectiveBlank(cmd *cobra.Command, flagVal int, set *posterior.Set) int {
	if cmd.Flags().Changed("blank") {
		return flagVal
	}
	if set.HasBlank || set.Blank != 0 {
		return set.Blank
	}
	return globalConfig.Blank
}

// renderTokens maps public labels to symbols, or decimal ids without
// a table.
func renderTokens(tab *vocab.Table, labels []int) []string {
	if tab != nil {
		return tab.Render(labels)
	}
	out := make([]string, len(labels))
	for i, id := range labels {
		out[i] = strconv.Itoa(id)
	}
	return out
}
