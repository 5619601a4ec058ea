package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nkarpov/newsflow/internal/trending"
)

var (
	trendLimit    int
	trendCategory string
	trendClusters bool
	trendNoStages bool
	trendTimeout  time.Duration
	trendJSON     bool
)

// trendingCmd represents the trending command
var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Detect trending topics across the aggregated stream",
	Long: `Trending aggregates the configured sources, extracts keywords from
article titles and scores each topic by mention velocity, volume,
recency and source credibility. Topics are tagged with a lifecycle
stage (emerging, rising, peak, declining, fading) and optionally
grouped into clusters of related keywords.

Example:
  newsflow trending
  newsflow trending --category technology --limit 10 --clusters`,
	Args: cobra.NoArgs,
	RunE: runTrending,
}

func init() {
	rootCmd.AddCommand(trendingCmd)

	trendingCmd.Flags().IntVar(&trendLimit, "limit", 15, "max topics to show")
	trendingCmd.Flags().StringVar(&trendCategory, "category", "", "restrict to sources of this category")
	trendingCmd.Flags().BoolVar(&trendClusters, "clusters", false, "group related topics into clusters")
	trendingCmd.Flags().BoolVar(&trendNoStages, "no-lifecycle", false, "skip lifecycle stage detection")
	trendingCmd.Flags().DurationVar(&trendTimeout, "timeout", 2*time.Minute, "overall timeout")
	trendingCmd.Flags().BoolVar(&trendJSON, "json", false, "print the full result as JSON")
}

func runTrending(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), trendTimeout)
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

	opts := agg.DefaultOptions()
	opts.Category = trendCategory
	opts.Limit = 0 // trend detection wants the whole stream

	aggregated, err := agg.Aggregate(ctx, opts)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}

	analyzer := buildAnalyzer(cfg)
	result := analyzer.Analyze(aggregated.Articles, trending.Options{
		Limit:            trendLimit,
		IncludeLifecycle: !trendNoStages,
		IncludeClusters:  trendClusters,
	})

	if trendJSON {
		return printJSON(result)
	}
	printTrendingResult(result)
	return nil
}

func printTrendingResult(result trending.Result) {
	meta := result.Metadata
	fmt.Fprintf(os.Stderr, "Analyzed %d articles, %d keywords, %d topics scored in %v\n\n",
		meta.ArticlesAnalyzed, meta.KeywordsExtracted, meta.TopicsScored,
		meta.ProcessedIn.Round(time.Millisecond))

	if len(result.Trending) == 0 {
		fmt.Println("No trending topics detected.")
		return
	}

	for i, topic := range result.Trending {
		line := fmt.Sprintf("%2d. %-24s score %.2f  %d mentions  %.1f/h",
			i+1, topic.Keyword, topic.TrendScore, topic.Mentions, topic.Velocity)
		if topic.Lifecycle.Stage != "" {
			line += fmt.Sprintf("  [%s]", topic.Lifecycle.Stage)
		}
		fmt.Println(line)
	}

	if len(result.Clusters) > 0 {
		fmt.Println()
		fmt.Println("Clusters:")
		for _, cluster := range result.Clusters {
			fmt.Printf("  %s: %s (%d mentions)\n",
				cluster.MainTopic, strings.Join(cluster.Keywords, ", "), cluster.TotalMentions)
		}
	}
}
