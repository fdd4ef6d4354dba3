// Command spldlt generates a model sparse symmetric problem, factorizes it
// with the multifrontal LDLᵀ engine and reports the factorization
// statistics and the backward error of a solve.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd assembles the command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "spldlt",
		Short:         "Task-based multifrontal sparse LDLᵀ factorization",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newFactorCmd(), newConfigCmd())

	return root
}
