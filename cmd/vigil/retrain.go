package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/marroweth/vigil/internal/training"
)

func retrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retrain",
		Short: "Retrain the model when the snapshot is stale",
		Long: `Retrain the recommender from current alert rules when the persisted
snapshot is older than the staleness threshold (or missing). Use
--force to retrain regardless of age, or --schedule to keep running
on a cron expression.`,
		RunE: runRetrain,
	}

	cmd.Flags().Int("k", 5, "number of nearest neighbors")
	cmd.Flags().String("metric", "cosine", "distance metric (cosine, euclidean)")
	cmd.Flags().Int("stale-days", training.DefaultStaleDays, "retrain when the snapshot is older than this many days")
	cmd.Flags().Bool("force", false, "retrain even if the snapshot is fresh")
	cmd.Flags().String("schedule", "", "cron expression to retrain on (e.g. \"0 3 * * *\"); runs until interrupted")

	return cmd
}

func runRetrain(cmd *cobra.Command, _ []string) error {
	k, _ := cmd.Flags().GetInt("k")
	metric, _ := cmd.Flags().GetString("metric")
	staleDays, _ := cmd.Flags().GetInt("stale-days")
	force, _ := cmd.Flags().GetBool("force")
	schedule, _ := cmd.Flags().GetString("schedule")

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
		UseRealAlerts: true,
	}

	trainer := training.NewTrainer(store)

	if schedule != "" {
		slog.Info("Starting scheduled retraining", "schedule", schedule, "stale_days", staleDays)
		return trainer.RunSchedule(ctx, schedule, opts, staleDays)
	}

	result := trainer.RetrainIfStale(ctx, opts, staleDays, force)
	switch result.Status {
	case training.StatusError:
		return fmt.Errorf("retraining failed: %s", result.Message)
	case training.StatusSkipped:
		slog.Info("Snapshot is fresh, skipping retrain", "snapshot", opts.ModelPath)
	default:
		slog.Info("Model retrained", "snapshot", opts.ModelPath)
	}

	return nil
}
