package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	id "octopus/pkg/domain"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <provider-id>",
	Short: "Run every verification agent for one provider and print the TrustScore",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		providerID, err := id.ParseProviderID(args[0])
		if err != nil {
			return err
		}

		a, err := build(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		score, err := a.trust.Evaluate(cmd.Context(), providerID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(score)
	},
}
