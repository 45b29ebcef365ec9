package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/udpreplay/internal/app"
)

type inspectFlags struct {
	pcap    string
	oldDest string
	json    bool
}

func newInspectCmd() *cobra.Command {
	flags := &inspectFlags{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarise a capture without sending anything",
		Long: `Load a capture and print its record counts, the UDP destinations it
contains and, with --old-dest, what a replay to that destination would send.`,
		Example: `  udpreplay inspect --pcap session.pcap
  udpreplay inspect --pcap session.pcap --old-dest 10.0.0.1:5000 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if flags.pcap == "" {
				return missingFlagError(cmd, "--pcap")
			}
			return app.RunInspect(cmd.Context(), app.InspectOptions{
				Pcap:    flags.pcap,
				OldDest: flags.oldDest,
				JSON:    flags.json,
				Stdout:  cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVar(&flags.pcap, "pcap", "", "Capture file or directory of captures (required)")
	cmd.Flags().StringVar(&flags.oldDest, "old-dest", "", "Destination IP:PORT to report replay statistics for")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Print the summary as JSON")

	return cmd
}
