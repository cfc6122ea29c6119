package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atikulmunna/lognorm/internal/aggregator"
	"github.com/atikulmunna/lognorm/internal/metrics"
	"github.com/atikulmunna/lognorm/internal/model"
	"github.com/atikulmunna/lognorm/internal/output"
	"github.com/atikulmunna/lognorm/internal/source"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scanOpts struct {
	failFast bool
	print    bool
	level    string
	output   string
	summary  string
}

var scanCmd = &cobra.Command{
	Use:   "scan [paths...]",
	Short: "Classify finished log files and fail on error-level lines",
	Long: `Scan reads every line of the given files (or glob patterns, "**"
allowed), classifies it and prints a summary. The command exits non-zero
when any line carries a failing level (fail_levels, default error and
fatal). Files ending in .gz or .zst are decompressed on the fly.

Examples:
  lognorm scan operator-0.log
  lognorm scan "testrun/**/operator-*.log" --fail-fast
  lognorm scan app.log.gz --print --level error,warn -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	f := scanCmd.Flags()
	f.BoolVar(&scanOpts.failFast, "fail-fast", false, "stop at the first line with a failing level")
	f.BoolVar(&scanOpts.print, "print", false, "render every classified entry to stdout")
	f.StringVarP(&scanOpts.level, "level", "l", "", "only render these levels (comma-separated: info,warn,error)")
	f.StringVarP(&scanOpts.output, "output", "o", "text", "entry output format: text, json")
	f.StringVar(&scanOpts.summary, "summary", "text", "summary format on stderr: text, json, none")
}

var errStopScan = errors.New("stop scan")

func runScan(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = rt.log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths, err := source.Expand(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files matched the given patterns: %v", args)
	}

	renderer, err := output.New(scanOpts.output, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	renderer = output.FilterLevels(renderer, splitList(scanOpts.level))

	agg := aggregator.New(aggregator.Config{
		FailLevels: rt.cfg.FailLevels,
		FileCount:  func() int { return len(paths) },
	})
	sink := rt.log.Sugar()

	for _, path := range paths {
		rt.log.Debug("scanning", zap.String("path", path))
		err := source.ScanFile(ctx, path, func(raw model.RawLine) error {
			rec, format := rt.registry.ClassifyFormat(raw.Text, sink)
			metrics.LinesClassified.WithLabelValues(format.String()).Inc()
			entry := model.Entry{
				ObservedAt: time.Now(),
				Source:     raw.Source,
				Line:       raw.Line,
				Raw:        raw.Text,
				Format:     format,
				Record:     rec,
			}
			failing := agg.Record(entry)
			if scanOpts.print {
				if err := renderer.Render(entry); err != nil {
					return fmt.Errorf("render: %w", err)
				}
			}
			if failing && scanOpts.failFast {
				return errStopScan
			}
			return nil
		})
		if errors.Is(err, errStopScan) {
			break
		}
		if err != nil {
			return err
		}
	}

	if scanOpts.summary != "none" {
		if err := output.WriteSummary(cmd.ErrOrStderr(), agg.Snapshot(), scanOpts.summary); err != nil {
			return err
		}
	}
	return agg.Err()
}
