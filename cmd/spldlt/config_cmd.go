package main

import (
	"github.com/spf13/cobra"

	"github.com/katalvlaran/spldlt/config"
)

// newConfigCmd prints the effective options as YAML.
func newConfigCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective options as YAML",
		Long: `Prints the options a factorization would use.

Without --config the documented defaults are printed; the output is a
valid input for --config.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := config.Default()
			if path != "" {
				var err error
				if opts, err = config.Load(path); err != nil {
					return err
				}
			}
			out, err := config.Marshal(opts)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)

			return err
		},
	}
	cmd.Flags().StringVar(&path, "config", "", "YAML options file")

	return cmd
}
