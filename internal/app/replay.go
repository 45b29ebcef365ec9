package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/tturner/udpreplay/internal/config"
	"github.com/tturner/udpreplay/internal/logging"
	"github.com/tturner/udpreplay/internal/metrics"
	"github.com/tturner/udpreplay/internal/netdetect"
	"github.com/tturner/udpreplay/internal/replay"
	"github.com/tturner/udpreplay/internal/report"
)

type ReplayOptions struct {
	ConfigPath string
	Overrides  config.Overrides

	Verbose     bool
	Debug       bool
	Quiet       bool
	LogFile     string
	LogFormat   string
	NoProgress  bool
	ReportPath  string
	MetricsFile string
	MetricsJSON string
	Summary     bool

	Build  report.BuildInfo
	Stdout io.Writer
	Stderr io.Writer
}

func (o *ReplayOptions) stdout() io.Writer {
	if o.Stdout != nil {
		return o.Stdout
	}
	return os.Stdout
}

func (o *ReplayOptions) stderr() io.Writer {
	if o.Stderr != nil {
		return o.Stderr
	}
	return os.Stderr
}

// LoadReplayConfig merges the optional profile with flag overrides and
// resolves it. No capture or socket I/O happens here.
func LoadReplayConfig(ctx context.Context, configPath string, overrides config.Overrides) (replay.Options, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return replay.Options{}, err
		}
		cfg = loaded
	}
	cfg.Apply(overrides)
	return cfg.Resolve(ctx, net.DefaultResolver)
}

func RunReplay(ctx context.Context, opts ReplayOptions) error {
	engineOpts, err := LoadReplayConfig(ctx, opts.ConfigPath, opts.Overrides)
	if err != nil {
		return err
	}

	logLevel := logging.LogLevelInfo
	switch {
	case opts.Quiet:
		logLevel = logging.LogLevelError
	case opts.Debug:
		logLevel = logging.LogLevelDebug
	case opts.Verbose:
		logLevel = logging.LogLevelVerbose
	}
	logger, err := logging.NewLoggerWithOptions(logLevel, opts.LogFile, opts.LogFormat)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Close()
	logger.SetOutput(opts.stdout(), opts.stderr())

	logger.LogStartup(engineOpts.PcapPath, engineOpts.OldDest.String(), engineOpts.NewSource.String(),
		engineOpts.Speed, engineOpts.Limit, engineOpts.HandshakeTimeout)

	if ok, err := netdetect.IsLocalAddr(engineOpts.NewSource.Addr); err != nil {
		logger.Verbose("interface check skipped: %v", err)
	} else if !ok {
		logger.Error("new source %s is not assigned to any local interface; binding may fail", engineOpts.NewSource.Addr)
	}

	engineOpts.ShowProgress = !opts.NoProgress && !opts.Quiet
	engine := replay.NewEngine(engineOpts, logger)
	engine.SetOutput(opts.stdout())
	sink := metrics.NewSink()
	engine.SetMetrics(sink)

	res, runErr := engine.Run(ctx)
	rep := report.FromResult(opts.Build, engineOpts, res, runErr)
	if res != nil && res.Stats.Total > 0 {
		rep.Timing = sink.GetSummary()
		logger.Verbose("send timing:\n%s", metrics.FormatSummary(rep.Timing))
	}
	if err := writeMetrics(opts.MetricsFile, opts.MetricsJSON, sink); err != nil {
		logger.Error("%v", err)
		if runErr == nil {
			runErr = err
		}
	}

	if opts.Summary && !opts.Quiet && res != nil && res.Negotiated {
		report.WriteReplaySummary(opts.stdout(), rep)
	}
	if opts.ReportPath != "" {
		if err := report.WriteJSONFile(opts.ReportPath, rep); err != nil {
			logger.Error("%v", err)
			if runErr == nil {
				return err
			}
		} else {
			logger.Verbose("report written to %s", opts.ReportPath)
		}
	}
	return runErr
}

func writeMetrics(csvPath, jsonPath string, sink *metrics.Sink) error {
	if csvPath == "" && jsonPath == "" {
		return nil
	}
	w, err := metrics.NewWriter(csvPath, jsonPath)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := w.WriteAll(sink.GetMetrics()); err != nil {
		w.Close()
		return fmt.Errorf("metrics: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}
