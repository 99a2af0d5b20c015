package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "satbench",
		Short:   "satbench runs LLM evaluations on propositional-logic decision problems",
		Version: version,
	}

	root.AddCommand(
		newRunCmd(),
		newPreflightCmd(),
		newCostCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
