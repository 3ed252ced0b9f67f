package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/marroweth/vigil/internal/analyzer"
	"github.com/marroweth/vigil/internal/cli"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <user-id>",
		Short: "Analyze a user's transaction history",
		Long: `Analyze a user's stored transactions: spending distribution,
category behavior, recurring merchants, location patterns, and the
derived anomaly thresholds.`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().Bool("json", false, "emit JSON instead of a formatted report")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	userID := args[0]
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

	if _, err := store.GetUser(ctx, userID); err != nil {
		return fmt.Errorf("unknown user %s: %w", userID, err)
	}

	transactions, err := store.GetTransactionsByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to fetch transactions: %w", err)
	}

	analysis := analyzer.AnalyzeTransactions(transactions)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	}

	printAnalysis(userID, analysis)
	return nil
}

func printAnalysis(userID string, a analyzer.Analysis) {
	fmt.Println(cli.FormatTitle("Transaction analysis for " + userID))

	if a.TotalTransactions == 0 {
		fmt.Println(cli.FormatInfo("No transactions on record"))
		return
	}

	fmt.Printf("Transactions: %d\n\n", a.TotalTransactions)

	fmt.Println(cli.TitleStyle.UnsetMargins().Render("Spending"))
	fmt.Print(cli.RenderTable(
		[]string{"MEAN", "MEDIAN", "STD", "MAX", "TOTAL", "P95"},
		[][]string{{
			fmt.Sprintf("%.2f", a.Spending.Mean),
			fmt.Sprintf("%.2f", a.Spending.Median),
			fmt.Sprintf("%.2f", a.Spending.Std),
			fmt.Sprintf("%.2f", a.Spending.Max),
			fmt.Sprintf("%.2f", a.Spending.Total),
			fmt.Sprintf("%.2f", a.Spending.Percentile95),
		}},
	))
	fmt.Println()

	if len(a.Categories.TopCategories) > 0 {
		fmt.Println(cli.TitleStyle.UnsetMargins().Render("Top categories"))
		rows := make([][]string, 0, len(a.Categories.TopCategories))
		for _, cat := range a.Categories.TopCategories {
			stats := a.Categories.Stats[cat]
			rows = append(rows, []string{
				cat,
				fmt.Sprintf("%d", stats.Count),
				fmt.Sprintf("%.2f", stats.Total),
				fmt.Sprintf("%.2f", stats.Mean),
			})
		}
		fmt.Print(cli.RenderTable([]string{"CATEGORY", "COUNT", "TOTAL", "MEAN"}, rows))
		fmt.Println()
	}

	if len(a.Merchants.Recurring) > 0 {
		fmt.Println(cli.TitleStyle.UnsetMargins().Render("Recurring merchants"))
		names := make([]string, 0, len(a.Merchants.Recurring))
		for name := range a.Merchants.Recurring {
			names = append(names, name)
		}
		sort.Strings(names)

		rows := make([][]string, 0, len(names))
		for _, name := range names {
			stats := a.Merchants.Recurring[name]
			sub := ""
			if stats.IsLikelySubscription {
				sub = "subscription"
			}
			rows = append(rows, []string{
				name,
				fmt.Sprintf("%d", stats.Frequency),
				fmt.Sprintf("%.2f", stats.TypicalAmount),
				sub,
			})
		}
		fmt.Print(cli.RenderTable([]string{"MERCHANT", "COUNT", "TYPICAL", ""}, rows))
		fmt.Println()
	}

	if a.Locations.HomeState != "" {
		travel := "no"
		if a.Locations.TravelsFrequently {
			travel = "yes"
		}
		fmt.Println(cli.TitleStyle.UnsetMargins().Render("Location"))
		fmt.Printf("Home state: %s  States visited: %d  Travels frequently: %s\n\n",
			a.Locations.HomeState, len(a.Locations.StatesVisited), travel)
	}

	fmt.Println(cli.TitleStyle.UnsetMargins().Render("Anomaly thresholds"))
	fmt.Print(cli.RenderTable(
		[]string{"SINGLE TXN", "WEEKLY", "MONTHLY"},
		[][]string{{
			fmt.Sprintf("%.2f", a.Thresholds.SingleTransaction),
			fmt.Sprintf("%.2f", a.Thresholds.WeeklySpending),
			fmt.Sprintf("%.2f", a.Thresholds.MonthlySpending),
		}},
	))
}
