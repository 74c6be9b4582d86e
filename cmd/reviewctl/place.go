package main

import (
	"github.com/spf13/cobra"
)

func newEnsurePlaceCmd(withDeps runWithDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-place <place-id>",
		Short: "Fetch a place from Google Places and store it if it is not known yet",
		Args:  cobra.ExactArgs(1),
		RunE: withDeps(func(cmd *cobra.Command, d deps, args []string) error {
			place, err := d.places.EnsurePlace(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), place)
		}),
	}
}
