package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/tturner/udpreplay/internal/app"
	"github.com/tturner/udpreplay/internal/config"
	"github.com/tturner/udpreplay/internal/report"
)

type replayFlags struct {
	pcap             string
	oldDest          string
	newSrc           string
	configPath       string
	speed            float64
	limit            int
	handshakeTimeout time.Duration
	continueOnError  bool
	reuseAddr        bool
	verbose          bool
	debug            bool
	quiet            bool
	logFile          string
	logFormat        string
	noProgress       bool
	reportPath       string
	metricsFile      string
	metricsJSON      string
	summary          bool
}

func newReplayCmd() *cobra.Command {
	flags := &replayFlags{}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay captured UDP packets to a live peer",
		Long: `Replay the UDP payloads a capture sent to --old-dest.

The replay socket is bound to --new-src and waits for one datagram from the
peer. Bytes 6..9 of that datagram are the session token; they overwrite
bytes 2..5 of the first replayed payload. Packets are then sent to the peer
in capture order, pausing for the capture's inter-packet gaps.

Settings may also come from a YAML profile (--config) with keys pcap,
old_dest, new_src, handshake_timeout, speed, limit, continue_on_error and
reuse_addr. Flags override the profile.`,
		Example: `  # Replay the session a client sent to 10.0.0.1:5000, listening on port 6000
  udpreplay replay --pcap session.pcap --old-dest 10.0.0.1:5000 --new-src 0.0.0.0:6000

  # Twice as fast, give up if no peer shows up within 30s
  udpreplay replay --pcap session.pcap --old-dest 10.0.0.1:5000 --new-src 0.0.0.0:6000 \
    --speed 2 --handshake-timeout 30s

  # From a profile, with a JSON report
  udpreplay replay --config replay.yaml --report replay.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if flags.configPath == "" {
				if flags.pcap == "" {
					return missingFlagError(cmd, "--pcap")
				}
				if flags.oldDest == "" {
					return missingFlagError(cmd, "--old-dest")
				}
				if flags.newSrc == "" {
					return missingFlagError(cmd, "--new-src")
				}
			}
			return app.RunReplay(cmd.Context(), app.ReplayOptions{
				ConfigPath:  flags.configPath,
				Overrides:   replayOverrides(cmd, flags),
				Verbose:     flags.verbose,
				Debug:       flags.debug,
				Quiet:       flags.quiet,
				LogFile:     flags.logFile,
				LogFormat:   flags.logFormat,
				NoProgress:  flags.noProgress,
				ReportPath:  flags.reportPath,
				MetricsFile: flags.metricsFile,
				MetricsJSON: flags.metricsJSON,
				Summary:     flags.summary,
				Build:       report.BuildInfo{Version: version, Commit: commit},
				Stdout:      cmd.OutOrStdout(),
				Stderr:      cmd.ErrOrStderr(),
			})
		},
	}

	cmd.Flags().StringVar(&flags.pcap, "pcap", "", "Capture file to replay, pcap or pcapng (required)")
	cmd.Flags().StringVar(&flags.oldDest, "old-dest", "", "Captured destination IP:PORT whose packets are replayed (required)")
	cmd.Flags().StringVar(&flags.newSrc, "new-src", "", "Local IP:PORT to bind and receive the handshake on (required)")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "YAML replay profile")
	cmd.Flags().Float64Var(&flags.speed, "speed", config.DefaultSpeed, "Replay speed factor; 0 sends without delays")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "Replay only the first N matching packets (0 = all)")
	cmd.Flags().DurationVar(&flags.handshakeTimeout, "handshake-timeout", 0, "Give up waiting for the handshake after this long (0 = wait forever)")
	cmd.Flags().BoolVar(&flags.continueOnError, "continue-on-error", false, "Log and count send failures instead of aborting")
	cmd.Flags().BoolVar(&flags.reuseAddr, "reuse-addr", false, "Set SO_REUSEADDR on the replay socket")
	cmd.Flags().BoolVar(&flags.verbose, "verbose", false, "Enable verbose output")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "Enable debug output, including hex dumps")
	cmd.Flags().BoolVar(&flags.quiet, "quiet", false, "Print errors only")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "Also write all log lines to this file")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", "text", "Log file format: text|json")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "Disable the progress bar")
	cmd.Flags().StringVar(&flags.reportPath, "report", "", "Write a JSON replay report to this path")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "Write per-packet send metrics as CSV")
	cmd.Flags().StringVar(&flags.metricsJSON, "metrics-json", "", "Write per-packet send metrics as JSON")
	cmd.Flags().BoolVar(&flags.summary, "summary", true, "Print a replay summary after the run")

	return cmd
}

// replayOverrides returns only the settings given on the command line so a
// profile's values survive flag defaults.
func replayOverrides(cmd *cobra.Command, flags *replayFlags) config.Overrides {
	var o config.Overrides
	set := cmd.Flags().Changed
	if flags.pcap != "" {
		o.Pcap = &flags.pcap
	}
	if flags.oldDest != "" {
		o.OldDest = &flags.oldDest
	}
	if flags.newSrc != "" {
		o.NewSource = &flags.newSrc
	}
	if set("speed") {
		o.Speed = &flags.speed
	}
	if set("limit") {
		o.Limit = &flags.limit
	}
	if set("handshake-timeout") {
		o.HandshakeTimeout = &flags.handshakeTimeout
	}
	if set("continue-on-error") {
		o.ContinueOnError = &flags.continueOnError
	}
	if set("reuse-addr") {
		o.ReuseAddr = &flags.reuseAddr
	}
	return o
}
