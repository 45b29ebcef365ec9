package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/udpreplay/internal/app"
)

func newInterfacesCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "interfaces",
		Short: "List local addresses usable as --new-src",
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			return app.RunInterfaces(cmd.OutOrStdout(), all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include interfaces that are down")
	return cmd
}
