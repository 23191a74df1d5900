// Command arbor solves a problem statement with graph-of-thoughts reasoning
// against an OpenAI-compatible chat completions API.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(newApp(os.Stdout)).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
