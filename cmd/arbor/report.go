package main

import (
	"fmt"
	"io"

	"github.com/zoobzio/arbor"
	"github.com/zoobzio/zyn"
)

func printHeader(w io.Writer, model, problem string) {
	fmt.Fprintf(w, "Graph-of-thoughts reasoner started with model: %s\n", model)
	fmt.Fprintf(w, "Problem: %s\n", problem)
}

// printReport writes the final result of a session.
func printReport(w io.Writer, s *arbor.Session) {
	fmt.Fprintln(w)
	best, ok := s.Best()
	if !ok {
		fmt.Fprintln(w, "No solution produced.")
		return
	}

	fmt.Fprintln(w, "Best thought found:")
	fmt.Fprintf(w, "   Score: %.2f\n", best.Score)
	fmt.Fprintf(w, "   Solution: %q\n", best.Content)
}

func printDirect(w io.Writer, answer string) {
	fmt.Fprintln(w)
	if answer == "" {
		fmt.Fprintln(w, "Direct answer unavailable.")
		return
	}
	fmt.Fprintln(w, "Direct answer:")
	fmt.Fprintf(w, "   %s\n", answer)
}

func printUsage(w io.Writer, calls int, usage zyn.TokenUsage) {
	fmt.Fprintf(w, "\nOracle calls: %d (tokens: %d prompt, %d completion, %d total)\n",
		calls, usage.Prompt, usage.Completion, usage.Total)
}

func addUsage(a, b zyn.TokenUsage) zyn.TokenUsage {
	return zyn.TokenUsage{
		Prompt:     a.Prompt + b.Prompt,
		Completion: a.Completion + b.Completion,
		Total:      a.Total + b.Total,
	}
}
