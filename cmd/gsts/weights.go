package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/gogpu/gsts/shading"
)

func newWeightsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weights",
		Short: "Print the effective per-zoom weights as JSON",
		Long: `Print the per-zoom weights after applying --weights, in the format
accepted by --weights.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := shading.DefaultWeights()
			if path := getConfigString(cmd, "weights", "GSTS_WEIGHTS", ""); path != "" {
				override, err := loadWeights(path)
				if err != nil {
					return err
				}
				table = table.Merge(override)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(table)
		},
	}
}
