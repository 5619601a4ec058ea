package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nkarpov/newsflow/internal/credibility"
	"github.com/nkarpov/newsflow/internal/model"
)

var (
	sourcesJSON bool
	historyPath string
)

// sourcesCmd represents the sources command
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources with tier and reputation",
	Long: `Sources prints every configured source with its type, credibility
tier and accumulated reputation. Reputation starts empty and fills
in as aggregation passes succeed or fail.`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

// credibilityCmd represents the credibility command
var credibilityCmd = &cobra.Command{
	Use:   "credibility <domain-or-url>...",
	Short: "Score one or more domains against the tier table",
	Long: `Credibility resolves each argument to a domain and scores it using
the built-in tier table and any imported history. Unknown domains get
a neutral score with low confidence.

Example:
  newsflow credibility reuters.com
  newsflow credibility https://techcrunch.com/2026/01/story medium.com`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCredibility,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(credibilityCmd)

	sourcesCmd.Flags().BoolVar(&sourcesJSON, "json", false, "print sources as JSON")
	credibilityCmd.Flags().StringVar(&historyPath, "history", "", "JSON history file to load before scoring")
	credibilityCmd.Flags().BoolVar(&sourcesJSON, "json", false, "print results as JSON")
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	agg, err := buildAggregator(cfg, newLogger())
	if err != nil {
		return err
	}

	profiles := agg.Sources()
	if sourcesJSON {
		return printJSON(profiles)
	}

	fmt.Printf("%-16s %-20s %-5s %-8s %s\n", "NAME", "DOMAIN", "TYPE", "TIER", "REPUTATION")
	for _, p := range profiles {
		rep := "no data"
		if p.Reputation.TotalRequests > 0 {
			rep = fmt.Sprintf("%.0f%% ok, %.1fs avg, quality %.2f",
				p.Reputation.SuccessRate*100,
				p.Reputation.AvgResponseTime.Seconds(),
				p.Reputation.AvgArticleQuality)
		}
		fmt.Printf("%-16s %-20s %-5s %-8s %s\n", p.Name, p.Domain, p.Type, p.Tier, rep)
	}
	return nil
}

func runCredibility(cmd *cobra.Command, args []string) error {
	scorer := credibility.NewScorer()
	if err := importHistoryFile(scorer, historyPath); err != nil {
		return err
	}

	results := make([]model.CredibilityResult, 0, len(args))
	for _, arg := range args {
		results = append(results, scorer.ForURL(arg))
	}

	if sourcesJSON {
		return printJSON(results)
	}
	for _, res := range results {
		fmt.Printf("%-24s score %.2f  tier %-8s confidence %.2f",
			res.Domain, res.Score, res.Tier, res.Confidence)
		if res.Metadata.HasHistoricalData {
			fmt.Printf("  (%d history samples)", res.Metadata.HistorySamples)
		}
		fmt.Println()
	}
	return nil
}

// importHistoryFile loads a history export into the scorer. Corrupt entries
// are skipped rather than failing the whole import.
func importHistoryFile(scorer *credibility.Scorer, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read history file: %w", err)
	}
	restored, err := scorer.ImportHistory(data)
	if err != nil {
		return fmt.Errorf("import history: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded history for %d domains from %s\n", restored, path)
	}
	return nil
}
