package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marroweth/vigil/internal/cli"
	"github.com/marroweth/vigil/internal/engine"
	"github.com/marroweth/vigil/internal/model"
	"github.com/marroweth/vigil/internal/training"
)

func recommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <user-id>",
		Short: "Generate alert recommendations for a user",
		Long: `Generate ranked alert recommendations for a user by combining
transaction-pattern analysis with collaborative filtering over users
with similar spending behavior. Retrains automatically when the model
snapshot is stale.`,
		Args: cobra.ExactArgs(1),
		RunE: runRecommend,
	}

	cmd.Flags().Int("k", 5, "number of nearest neighbors")
	cmd.Flags().String("metric", "cosine", "distance metric (cosine, euclidean)")
	cmd.Flags().Float64("threshold", 0.4, "minimum neighbor probability for collaborative items")
	cmd.Flags().Int("stale-days", training.DefaultStaleDays, "retrain when the snapshot is older than this many days")
	cmd.Flags().Bool("json", false, "emit JSON instead of a formatted table")

	return cmd
}

func runRecommend(cmd *cobra.Command, args []string) error {
	userID := args[0]
	k, _ := cmd.Flags().GetInt("k")
	metric, _ := cmd.Flags().GetString("metric")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	staleDays, _ := cmd.Flags().GetInt("stale-days")
	asJSON, _ := cmd.Flags().GetBool("json")

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	eng := engine.New(store, engine.Config{
		ModelPath: modelPath(),
		Metric:    metric,
		K:         k,
		Threshold: threshold,
		StaleDays: staleDays,
	})

	result, err := eng.GetRecommendations(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to generate recommendations: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printRecommendations(result)
	return nil
}

func printRecommendations(result *engine.CombinedResult) {
	fmt.Println(cli.FormatTitle("Alert recommendations for " + result.UserID))

	if len(result.Recommendations) == 0 {
		fmt.Println(cli.FormatInfo("No recommendations"))
		return
	}

	headers := []string{"#", "ALERT", "PRIORITY", "SCORE", "SOURCE"}
	rows := make([][]string, 0, len(result.Recommendations))
	for i, rec := range result.Recommendations {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			rec.Title,
			rec.Priority,
			fmt.Sprintf("%.2f", rec.FinalScore),
			shortSource(rec.Source),
		})
	}
	fmt.Print(cli.RenderTable(headers, rows))

	for i, rec := range result.Recommendations {
		fmt.Println()
		fmt.Println(cli.TitleStyle.UnsetMargins().Render(fmt.Sprintf("%d. %s", i+1, rec.Title)))
		fmt.Println("   " + rec.Description)
		if rec.Reasoning != "" {
			fmt.Println("   " + cli.SubtleStyle.Render(rec.Reasoning))
		}
		if rec.NaturalLanguageQuery != "" {
			fmt.Println("   " + cli.InfoStyle.Render("rule: "+rec.NaturalLanguageQuery))
		}
	}

	if result.TotalSimilarUsers > 0 {
		fmt.Println()
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Based on %d users with similar spending patterns",
			result.TotalSimilarUsers)))
		var names []string
		for _, su := range result.SimilarUsers {
			names = append(names, fmt.Sprintf("%s (%.2f)", su.UserID, su.Similarity))
		}
		if len(names) > 0 {
			fmt.Println("   " + cli.SubtleStyle.Render(strings.Join(names, ", ")))
		}
	}
}

func shortSource(source model.RecommendationSource) string {
	if source == model.SourceCollaborativeFiltering {
		return "similar users"
	}
	return "your activity"
}
