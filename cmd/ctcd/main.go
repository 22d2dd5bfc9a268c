// Package main is the entry point for the ctcd CLI.
//
// Usage:
//
//	ctcd [flags] <command> [args]
//
// Commands:
//
//	decode  - Decode a posterior set and print hypotheses
//	eval    - Decode and score a corpus against reference transcripts
//	sweep   - Grid-search beam width and length penalty
package main

import (
	"fmt"
	"os"

	"github.com/alongwithyou/ctcdecode-go/cmd/ctcd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
