package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/atikulmunna/lognorm/internal/aggregator"
	"github.com/atikulmunna/lognorm/internal/forward"
	"github.com/atikulmunna/lognorm/internal/hub"
	"github.com/atikulmunna/lognorm/internal/output"
	"github.com/atikulmunna/lognorm/internal/server"
	"github.com/atikulmunna/lognorm/internal/tailer"
	"github.com/atikulmunna/lognorm/internal/watcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var watchOpts struct {
	output    string
	level     string
	fromStart bool
	quiet     bool
}

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Follow log files and classify new lines as they arrive",
	Long: `Watch one or more log files (or glob patterns) and classify new lines
in real time. Entries are rendered to the terminal, counted for /api/stats
when --addr is set, and forwarded to Kafka or OpenSearch when forward.kind
is configured. Read positions are kept in state_file across restarts.

Examples:
  lognorm watch /var/log/app.log
  lognorm watch "/var/log/**/*.log" --addr :7070
  lognorm watch app.log --level error,fatal --output json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	f := watchCmd.Flags()
	f.StringVarP(&watchOpts.output, "output", "o", "text", "output format: text, json")
	f.StringVarP(&watchOpts.level, "level", "l", "", "only render these levels (comma-separated: info,warn,error)")
	f.BoolVar(&watchOpts.fromStart, "from-start", false, "read files without saved state from the beginning")
	f.BoolVarP(&watchOpts.quiet, "quiet", "q", false, "don't render entries")
	f.String("addr", "", "serve /healthz, /api/stats, /ws and /metrics on this address")
	_ = viper.BindPFlag("server.addr", f.Lookup("addr"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	log := rt.log
	defer func() { _ = log.Sync() }()

	renderer, err := output.New(watchOpts.output, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	renderer = output.FilterLevels(renderer, splitList(watchOpts.level))

	pub, err := forward.NewPublisher(rt.cfg.ForwardOptions())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Watcher and tailer ---
	w, err := watcher.New(args, log)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	watchedPaths := w.Paths()
	if len(watchedPaths) == 0 {
		return fmt.Errorf("no files matched the given patterns: %v", args)
	}
	log.Info("watching", zap.Int("files", len(watchedPaths)), zap.Strings("paths", watchedPaths))

	ckpt, err := tailer.NewCheckpoint(rt.cfg.StateFile)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	t := tailer.New(w, ckpt, tailer.Config{FromStart: watchOpts.fromStart}, log)

	// --- Classification and fan-out ---
	h := hub.New(t.Lines(), rt.registry, log)
	agg := aggregator.New(aggregator.Config{
		FailLevels: rt.cfg.FailLevels,
		Dropped:    h.Dropped,
		FileCount:  w.Count,
	})

	var wg sync.WaitGroup
	aggEntries := h.Subscribe()
	wg.Add(1)
	go func() {
		defer wg.Done()
		agg.Start(ctx, aggEntries)
	}()

	if pub != nil {
		fw := forward.NewForwarder(pub, agg.RunID(), rt.cfg.ForwardOptions(), log)
		fwEntries := h.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			fw.Run(ctx, fwEntries)
			if err := fw.Close(); err != nil {
				log.Warn("closing forwarder", zap.Error(err))
			}
		}()
		log.Info("forwarding", zap.String("target", pub.Name()))
	}

	if addr := rt.cfg.Server.Addr; addr != "" {
		srv := server.New(h, agg, rt.registry, addr, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Start(ctx); err != nil {
				log.Error("server stopped", zap.Error(err))
				stop()
			}
		}()
	}

	entries := h.Subscribe()

	// --- Start pipeline ---
	go w.Start(ctx)
	go t.Start(ctx)
	go h.Start(ctx)

	// --- Render output until the hub closes its subscribers ---
	for entry := range entries {
		if watchOpts.quiet {
			continue
		}
		if err := renderer.Render(entry); err != nil {
			log.Warn("render error", zap.Error(err))
		}
	}

	wg.Wait()
	return output.WriteSummary(cmd.ErrOrStderr(), agg.Snapshot(), "text")
}
