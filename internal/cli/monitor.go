package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nkarpov/newsflow/internal/aggregator"
	"github.com/nkarpov/newsflow/internal/model"
)

var (
	monInterval time.Duration
	monCategory string
	monSources  []string
	monHistory  string
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor [query]",
	Short: "Continuously watch sources and report new articles",
	Long: `Monitor runs an aggregation pass at a fixed interval and prints only
the articles not seen on a previous pass. Source reputation and
credibility history accumulate across passes, so slow or failing
sources sink in priority while the session runs.

Stop with Ctrl-C.

Example:
  newsflow monitor "interest rates" --interval 2m
  newsflow monitor --category technology --history history.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().DurationVar(&monInterval, "interval", 0, "check interval (0 = configured default)")
	monitorCmd.Flags().StringVar(&monCategory, "category", "", "restrict to sources of this category")
	monitorCmd.Flags().StringSliceVar(&monSources, "sources", nil, "restrict to these source names")
	monitorCmd.Flags().StringVar(&monHistory, "history", "", "credibility history file to load and save")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	agg, err := buildAggregator(cfg, logger)
	if err != nil {
		return err
	}
	if monHistory != "" {
		if err := importHistoryFile(agg.Scorer(), monHistory); err != nil {
			return err
		}
	}

	opts := agg.DefaultOptions()
	opts.Category = monCategory
	opts.EnabledSources = monSources
	if len(args) == 1 {
		opts.Query = args[0]
	}

	id, err := agg.StartMonitoring(aggregator.MonitorOptions{
		Interval:    monInterval,
		Aggregation: opts,
		OnNewArticles: func(articles []model.Article) {
			for i := range articles {
				a := &articles[i]
				stamp := time.Now().Format("15:04:05")
				if a.PublishedAt != nil {
					stamp = a.PublishedAt.Format("15:04:05")
				}
				fmt.Printf("[%s] %s\n", stamp, a.Title)
				fmt.Printf("          %s (%s)\n", a.URL, a.Source.Name)
			}
		},
		OnError: func(err error) {
			fmt.Fprintf(os.Stderr, "✗ check failed: %v\n", err)
		},
	})
	if err != nil {
		return fmt.Errorf("start monitoring: %w", err)
	}

	interval := monInterval
	if interval <= 0 {
		interval = cfg.Monitor.Interval
	}
	fmt.Fprintf(os.Stderr, "Monitoring every %v (session %s). Ctrl-C to stop.\n\n", interval, id)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	stopped := agg.StopAllMonitors()
	fmt.Fprintf(os.Stderr, "\nStopped %d session(s).\n", stopped.Stopped)

	if monHistory != "" {
		if data, err := agg.Scorer().ExportHistory(); err == nil {
			if werr := os.WriteFile(monHistory, data, 0644); werr != nil {
				fmt.Fprintf(os.Stderr, "✗ save history: %v\n", werr)
			} else if verbose {
				fmt.Fprintf(os.Stderr, "Saved history for %d domains to %s\n", agg.Scorer().HistorySize(), monHistory)
			}
		}
	}
	return nil
}
