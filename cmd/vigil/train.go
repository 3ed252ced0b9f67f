package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/marroweth/vigil/internal/training"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the alert recommender model",
		Long: `Build user features from stored transactions, derive alert labels,
and train the nearest-neighbor model. The trained model is persisted
as an atomic snapshot that the recommend command serves from.

Without --real-alerts, labels are bootstrapped heuristically from
spending percentiles; with it, labels come from each user's active
alert rules.`,
		RunE: runTrain,
	}

	cmd.Flags().Int("k", 5, "number of nearest neighbors")
	cmd.Flags().String("metric", "cosine", "distance metric (cosine, euclidean)")
	cmd.Flags().Bool("real-alerts", false, "label from active alert rules instead of heuristics")
	cmd.Flags().Bool("progress", true, "show a progress bar while extracting alert labels")

	return cmd
}

func runTrain(cmd *cobra.Command, _ []string) error {
	k, _ := cmd.Flags().GetInt("k")
	metric, _ := cmd.Flags().GetString("metric")
	realAlerts, _ := cmd.Flags().GetBool("real-alerts")
	progress, _ := cmd.Flags().GetBool("progress")

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	opts := training.Options{
		ModelPath:     modelPath(),
		Metric:        metric,
		K:             k,
		UseRealAlerts: realAlerts,
		ShowProgress:  progress,
	}

	trainer := training.NewTrainer(store)
	m, err := trainer.Train(ctx, opts)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	slog.Info("Model trained",
		"trained_at", m.TrainedAt(),
		"snapshot", opts.ModelPath,
		"k", k,
		"metric", metric,
		"real_alerts", realAlerts)

	return nil
}
