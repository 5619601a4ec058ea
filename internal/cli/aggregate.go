package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nkarpov/newsflow/internal/aggregator"
	"github.com/nkarpov/newsflow/internal/model"
)

var (
	aggCategory       string
	aggCountry        string
	aggLanguage       string
	aggLimit          int
	aggSources        []string
	aggPriority       string
	aggMinCredibility float64
	aggSortBy         string
	aggNoCache        bool
	aggNoDedup        bool
	aggTimeout        time.Duration
	aggJSON           bool
)

// aggregateCmd represents the aggregate command
var aggregateCmd = &cobra.Command{
	Use:   "aggregate [query]",
	Short: "Fetch and merge news from all configured sources",
	Long: `Aggregate fans out to every enabled source in parallel, normalizes
the results, removes duplicate coverage and attaches a credibility
score to each article. A failing source is reported in the metadata
but never fails the run.

Example:
  newsflow aggregate
  newsflow aggregate "climate change" --limit 20 --sort credibility
  newsflow aggregate --category technology --priority quality --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAggregate,
}

func init() {
	rootCmd.AddCommand(aggregateCmd)

	aggregateCmd.Flags().StringVar(&aggCategory, "category", "", "filter sources by category (general, technology, ...)")
	aggregateCmd.Flags().StringVar(&aggCountry, "country", "", "country filter passed to API sources")
	aggregateCmd.Flags().StringVar(&aggLanguage, "language", "", "language filter passed to API sources")
	aggregateCmd.Flags().IntVar(&aggLimit, "limit", 0, "max articles to return (0 = configured default)")
	aggregateCmd.Flags().StringSliceVar(&aggSources, "sources", nil, "restrict to these source names")
	aggregateCmd.Flags().StringVar(&aggPriority, "priority", "", "source priority mode (balanced, quality, speed, cost)")
	aggregateCmd.Flags().Float64Var(&aggMinCredibility, "min-credibility", 0, "drop articles scoring below this [0,1]")
	aggregateCmd.Flags().StringVar(&aggSortBy, "sort", "", "sort order (publishedAt, credibility, relevance)")
	aggregateCmd.Flags().BoolVar(&aggNoCache, "no-cache", false, "bypass the result cache")
	aggregateCmd.Flags().BoolVar(&aggNoDedup, "no-dedup", false, "skip duplicate detection")
	aggregateCmd.Flags().DurationVar(&aggTimeout, "timeout", 2*time.Minute, "overall aggregation timeout")
	aggregateCmd.Flags().BoolVar(&aggJSON, "json", false, "print the full result as JSON")
}

func runAggregate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), aggTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	agg, err := buildAggregator(cfg, logger)
	if err != nil {
		return err
	}

	opts, err := aggregateOptions(agg)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		opts.Query = args[0]
	}

	result, err := agg.Aggregate(ctx, opts)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}

	if aggJSON {
		return printJSON(result)
	}
	printAggregateResult(result)
	return nil
}

// aggregateOptions merges the command flags over the configured defaults.
func aggregateOptions(agg *aggregator.Aggregator) (aggregator.Options, error) {
	opts := agg.DefaultOptions()
	opts.Category = aggCategory
	opts.Country = aggCountry
	opts.Language = aggLanguage
	opts.EnabledSources = aggSources
	if aggLimit > 0 {
		opts.Limit = aggLimit
	}
	if aggPriority != "" {
		mode := model.PriorityMode(aggPriority)
		if err := agg.SetPriority(mode); err != nil {
			return opts, err
		}
		opts.SourcePriority = mode
	}
	if aggMinCredibility > 0 {
		if err := agg.SetMinCredibility(aggMinCredibility); err != nil {
			return opts, err
		}
		opts.MinCredibility = aggMinCredibility
	}
	if aggSortBy != "" {
		opts.SortBy = aggSortBy
	}
	if aggNoCache {
		opts.UseCache = false
	}
	if aggNoDedup {
		opts.Deduplication = false
	}
	return opts, nil
}

func printAggregateResult(result *aggregator.Result) {
	meta := result.Metadata
	fmt.Fprintf(os.Stderr, "Fetched %d articles from %d sources in %v",
		meta.TotalFetched, len(meta.SelectedSources), meta.AggregationTime.Round(time.Millisecond))
	if meta.Cached {
		fmt.Fprintf(os.Stderr, " (cached)")
	}
	fmt.Fprintf(os.Stderr, "\n")
	if meta.Deduplicated > 0 || meta.Filtered > 0 || meta.Malformed > 0 {
		fmt.Fprintf(os.Stderr, "Removed: %d duplicates, %d below credibility floor, %d malformed\n",
			meta.Deduplicated, meta.Filtered, meta.Malformed)
	}
	for name, status := range meta.Sources {
		if status.Status == "error" {
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", name, status.Error)
		}
	}
	fmt.Fprintln(os.Stderr)

	for i := range result.Articles {
		a := &result.Articles[i]
		fmt.Printf("%s\n", a.Title)
		fmt.Printf("  %s\n", a.URL)
		line := fmt.Sprintf("  %s", a.Source.Name)
		if a.Credibility != nil {
			line += fmt.Sprintf(" | credibility %.2f (tier %s)", a.Credibility.Score, a.Credibility.Tier)
		}
		if a.PublishedAt != nil {
			line += " | " + a.PublishedAt.Format("2006-01-02 15:04")
		}
		fmt.Println(line)
		fmt.Println()
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
